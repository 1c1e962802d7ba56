package service_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/okian/ethos/internal/adapters/mq/queue"
	"github.com/okian/ethos/internal/adapters/repository"
	service "github.com/okian/ethos/internal/app"
	"github.com/okian/ethos/internal/domain/model"
	"github.com/okian/ethos/internal/domain/progression"
	"github.com/okian/ethos/internal/domain/tracker"
	"github.com/okian/ethos/internal/domain/trait"
	. "github.com/smartystreets/goconvey/convey"
)

func TestService_Observe(t *testing.T) {
	Convey("Given a service with default options", t, func() {
		ctx := context.Background()
		svc := service.New()

		Convey("When the first snapshot arrives", func() {
			obs, err := svc.Observe(ctx, "hero", trait.Snapshot{"courage": 20, "greed": 40})
			So(err, ShouldBeNil)

			Convey("Then it seeds the baseline without events", func() {
				So(obs.Seeded, ShouldBeTrue)
				So(obs.Milestones, ShouldBeEmpty)
				view, err := svc.Character(ctx, "hero")
				So(err, ShouldBeNil)
				So(view.Baseline, ShouldResemble, trait.Snapshot{"courage": 20, "greed": 40})
			})

			Convey("When a later snapshot crosses 25 and lands on 50", func() {
				obs, err := svc.Observe(ctx, "hero", trait.Snapshot{"courage": 50, "greed": 40})
				So(err, ShouldBeNil)

				Convey("Then milestones, the unlock and one toast are produced", func() {
					So(len(obs.Milestones), ShouldEqual, 2)
					So(obs.Milestones[0].Threshold, ShouldEqual, 25)
					So(obs.Milestones[1].Threshold, ShouldEqual, 50)
					So(len(obs.Unlocks), ShouldEqual, 1)
					So(obs.Unlocks[0].ID, ShouldEqual, "courage_intermediate")
					So(obs.Toast, ShouldNotBeNil)

					toasts, err := svc.Toasts(ctx, "hero", 0)
					So(err, ShouldBeNil)
					So(len(toasts), ShouldEqual, 1)
				})

				Convey("Then the trait view reflects the new level", func() {
					v, err := svc.Trait(ctx, "hero", "courage")
					So(err, ShouldBeNil)
					So(v.Category, ShouldEqual, trait.Virtue)
					So(v.Level.Level, ShouldEqual, 3)
					So(v.Progress.Next, ShouldEqual, 75)
				})

				Convey("Then the changes carry trends", func() {
					c, err := svc.Changes(ctx, "hero")
					So(err, ShouldBeNil)
					So(c.Changes, ShouldResemble, progression.Deltas{"courage": 30})
					So(c.Trends.FastestGrowing, ShouldNotBeNil)
					So(c.Trends.FastestGrowing.Trait, ShouldEqual, "courage")
				})

				Convey("When the same snapshot is observed again without a commit", func() {
					obs, err := svc.Observe(ctx, "hero", trait.Snapshot{"courage": 50, "greed": 40})
					So(err, ShouldBeNil)

					Convey("Then the milestones are reported again", func() {
						So(len(obs.Milestones), ShouldEqual, 2)
						ms, err := svc.Milestones(ctx, "hero")
						So(err, ShouldBeNil)
						So(len(ms), ShouldEqual, 4)
					})
				})

				Convey("When committed and observed again", func() {
					So(svc.Commit(ctx, "hero"), ShouldBeNil)
					obs, err := svc.Observe(ctx, "hero", trait.Snapshot{"courage": 50, "greed": 40})
					So(err, ShouldBeNil)

					Convey("Then nothing changes", func() {
						So(obs.Result.Empty(), ShouldBeTrue)
					})
				})

				Convey("When a milestone and an unlock are dismissed", func() {
					m, err := svc.DismissMilestone(ctx, "hero", 0)
					So(err, ShouldBeNil)
					u, err := svc.DismissUnlock(ctx, "hero", 0)
					So(err, ShouldBeNil)

					Convey("Then the queues shrink", func() {
						So(m.Threshold, ShouldEqual, 25)
						So(u.Threshold, ShouldEqual, 50)
						ms, _ := svc.Milestones(ctx, "hero")
						So(len(ms), ShouldEqual, 1)
						us, _ := svc.Unlocks(ctx, "hero")
						So(us, ShouldBeEmpty)
					})

					Convey("Then an out of range index fails", func() {
						_, err := svc.DismissUnlock(ctx, "hero", 0)
						So(errors.Is(err, tracker.ErrIndexOutOfRange), ShouldBeTrue)
					})
				})
			})

			Convey("When the character is deleted", func() {
				So(svc.Delete(ctx, "hero"), ShouldBeNil)

				Convey("Then it is unknown", func() {
					_, err := svc.Character(ctx, "hero")
					So(errors.Is(err, service.ErrUnknownCharacter), ShouldBeTrue)
					So(errors.Is(svc.Delete(ctx, "hero"), service.ErrUnknownCharacter), ShouldBeTrue)
				})
			})
		})

		Convey("Then unknown characters are reported", func() {
			_, err := svc.Alignment(ctx, "ghost")
			So(errors.Is(err, service.ErrUnknownCharacter), ShouldBeTrue)
			So(errors.Is(svc.Commit(ctx, "ghost"), service.ErrUnknownCharacter), ShouldBeTrue)
			_, err = svc.Toasts(ctx, "ghost", 5)
			So(errors.Is(err, service.ErrUnknownCharacter), ShouldBeTrue)
		})

		Convey("Then invalid snapshots are rejected", func() {
			cases := []trait.Snapshot{
				{"courage": -1},
				{"courage": 100.5},
				{"courage": math.NaN()},
				{"courage": math.Inf(1)},
				{" ": 10},
			}
			for _, snap := range cases {
				_, err := svc.Observe(ctx, "hero", snap)
				So(errors.Is(err, service.ErrInvalidSnapshot), ShouldBeTrue)
			}
			_, err := svc.Observe(ctx, "", trait.Snapshot{"courage": 1})
			So(errors.Is(err, service.ErrInvalidSnapshot), ShouldBeTrue)
		})
	})
}

func TestService_Persistence(t *testing.T) {
	Convey("Given two services sharing a store", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		first := service.New(service.WithStore(store))
		_, err := first.Observe(ctx, "sage", trait.Snapshot{"wisdom": 70})
		So(err, ShouldBeNil)
		_, err = first.Observe(ctx, "sage", trait.Snapshot{"wisdom": 72})
		So(err, ShouldBeNil)

		second := service.New(service.WithStore(store))

		Convey("Then the second restores baseline and current", func() {
			view, err := second.Character(ctx, "sage")
			So(err, ShouldBeNil)
			So(view.Baseline, ShouldResemble, trait.Snapshot{"wisdom": 70})
			So(view.Current, ShouldResemble, trait.Snapshot{"wisdom": 72})
			So(view.Changes["wisdom"], ShouldEqual, 2)
			So(view.Milestones, ShouldBeEmpty)
		})

		Convey("When the second crosses a milestone from the restored baseline", func() {
			obs, err := second.Observe(ctx, "sage", trait.Snapshot{"wisdom": 75})
			So(err, ShouldBeNil)

			Convey("Then the milestone is detected", func() {
				So(len(obs.Milestones), ShouldEqual, 1)
				So(obs.Milestones[0].Threshold, ShouldEqual, 75)
			})
		})
	})
}

func TestService_Ingest(t *testing.T) {
	Convey("Given a service that has not been started", t, func() {
		svc := service.New()

		Convey("Then Enqueue is refused", func() {
			_, err := svc.Enqueue(context.Background(), model.SnapshotEvent{CharacterID: "hero"})
			So(err, ShouldEqual, service.ErrNotStarted)
		})
	})

	Convey("Given a started service with auto commit", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(3), service.WithQueueSize(100))
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When snapshots are enqueued for a character", func() {
			for i, v := range []float64{10, 30, 55, 80} {
				dup, err := svc.Enqueue(ctx, model.SnapshotEvent{
					EventID:     fmt.Sprintf("evt-%d", i),
					CharacterID: "hero",
					Traits:      trait.Snapshot{"courage": v},
				})
				So(err, ShouldBeNil)
				So(dup, ShouldBeFalse)
			}

			Convey("Then a redelivered event is a duplicate", func() {
				dup, err := svc.Enqueue(ctx, model.SnapshotEvent{
					EventID:     "evt-1",
					CharacterID: "hero",
					Traits:      trait.Snapshot{"courage": 30},
				})
				So(err, ShouldBeNil)
				So(dup, ShouldBeTrue)
				So(svc.Stop(ctx), ShouldBeNil)
			})

			Convey("Then each step is committed in order", func() {
				stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
				defer cancel()
				So(svc.Stop(stopCtx), ShouldBeNil)

				view, err := svc.Character(ctx, "hero")
				So(err, ShouldBeNil)
				So(view.Baseline, ShouldResemble, trait.Snapshot{"courage": 80})
				thresholds := make([]int, 0, len(view.Milestones))
				for _, m := range view.Milestones {
					thresholds = append(thresholds, m.Threshold)
				}
				So(thresholds, ShouldResemble, []int{25, 50, 75})
			})
		})

		Convey("When an invalid snapshot is enqueued", func() {
			_, err := svc.Enqueue(ctx, model.SnapshotEvent{CharacterID: "hero", Traits: trait.Snapshot{"courage": 101}})

			Convey("Then it is rejected before queueing", func() {
				So(errors.Is(err, service.ErrInvalidSnapshot), ShouldBeTrue)
				stats, err := svc.GetStats(ctx)
				So(err, ShouldBeNil)
				So(stats.QueueLength, ShouldEqual, 0)
				So(svc.Stop(ctx), ShouldBeNil)
			})
		})

		Convey("Then stats describe the running service", func() {
			stats, err := svc.GetStats(ctx)
			So(err, ShouldBeNil)
			So(stats.Started, ShouldBeTrue)
			So(stats.WorkerCount, ShouldEqual, 3)
			So(stats.QueueCapacity, ShouldEqual, 100)
			So(stats.AutoCommit, ShouldBeTrue)
			So(svc.Stop(ctx), ShouldBeNil)
		})
	})

	Convey("Given a started service with a tiny queue and no workers draining", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(1), service.WithQueueSize(1), service.WithAutoCommit(false))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When the queue refuses an event", func() {
			var refused error
			for i := 0; i < 500 && refused == nil; i++ {
				_, refused = svc.Enqueue(ctx, model.SnapshotEvent{
					EventID:     fmt.Sprintf("burst-%d", i),
					CharacterID: fmt.Sprintf("c%d", i),
					Traits:      trait.Snapshot{"courage": 1},
				})
			}

			Convey("Then the error is backpressure", func() {
				if refused == nil {
					return // workers kept up with the burst
				}
				So(errors.Is(refused, queue.ErrFull), ShouldBeTrue)
			})
		})
	})
}
