package notify_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/ethos/internal/adapters/notify"
	"github.com/okian/ethos/internal/domain/tracker"
	. "github.com/smartystreets/goconvey/convey"
)

func toast(characterID string, i int) tracker.Toast {
	return tracker.Toast{
		ID:          fmt.Sprintf("t%d", i),
		CharacterID: characterID,
		Kind:        tracker.ToastMilestone,
		Title:       "Milestone reached!",
		Message:     fmt.Sprintf("toast %d", i),
	}
}

func TestFeed(t *testing.T) {
	Convey("Given a feed keeping three toasts per character", t, func() {
		fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		feed := notify.NewFeed(notify.WithHistory(3), notify.WithClock(func() time.Time { return fixed }))
		ctx := context.Background()

		Convey("When five toasts arrive for one character", func() {
			for i := 1; i <= 5; i++ {
				feed.Notify(ctx, toast("hero", i))
			}

			Convey("Then only the newest three are kept, newest first", func() {
				So(feed.Len("hero"), ShouldEqual, 3)
				recent := feed.Recent("hero", 0)
				So(len(recent), ShouldEqual, 3)
				So(recent[0].ID, ShouldEqual, "t5")
				So(recent[2].ID, ShouldEqual, "t3")
			})

			Convey("Then Recent honours its limit", func() {
				recent := feed.Recent("hero", 1)
				So(len(recent), ShouldEqual, 1)
				So(recent[0].ID, ShouldEqual, "t5")
			})

			Convey("Then toasts without a timestamp are stamped", func() {
				So(feed.Recent("hero", 1)[0].CreatedAt.Equal(fixed), ShouldBeTrue)
			})

			Convey("Then other characters are unaffected", func() {
				So(feed.Recent("rogue", 10), ShouldBeEmpty)
			})

			Convey("When the history is cleared", func() {
				feed.Clear("hero")

				Convey("Then nothing remains", func() {
					So(feed.Len("hero"), ShouldEqual, 0)
				})
			})
		})

		Convey("When used as a tracker notifier", func() {
			tr := tracker.New("sage", tracker.WithNotifier(feed))
			tr.Observe(ctx, map[string]float64{"wisdom": 10})
			tr.Observe(ctx, map[string]float64{"wisdom": 30})

			Convey("Then the milestone toast lands in the feed", func() {
				recent := feed.Recent("sage", 0)
				So(len(recent), ShouldEqual, 1)
				So(recent[0].Milestone, ShouldNotBeNil)
				So(recent[0].Milestone.Threshold, ShouldEqual, 25)
			})
		})

		Convey("When notified concurrently", func() {
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					feed.Notify(ctx, toast(fmt.Sprintf("c%d", i%5), i))
				}(i)
			}
			wg.Wait()

			Convey("Then every character is capped", func() {
				for i := 0; i < 5; i++ {
					So(feed.Len(fmt.Sprintf("c%d", i)), ShouldEqual, 3)
				}
			})
		})
	})
}
