package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/ethos/internal/adapters/mq/queue"
	"github.com/okian/ethos/internal/adapters/mq/worker"
	"github.com/okian/ethos/internal/domain/trait"
	"github.com/okian/ethos/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

// recorder collects processed events per character.
type recorder struct {
	mu   sync.Mutex
	seen map[string][]string
	fail map[string]error
}

func newRecorder() *recorder {
	return &recorder{seen: make(map[string][]string), fail: make(map[string]error)}
}

func (r *recorder) Process(_ context.Context, e worker.Event) error { //nolint:gocritic // hugeParam
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.fail[e.EventID]; ok {
		return err
	}
	r.seen[e.CharacterID] = append(r.seen[e.CharacterID], e.EventID)
	return nil
}

func (r *recorder) events(characterID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen[characterID]...)
}

func (r *recorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ids := range r.seen {
		n += len(ids)
	}
	return n
}

func event(characterID string, i int) queue.Event {
	return queue.Event{
		EventID:     fmt.Sprintf("%s-%03d", characterID, i),
		CharacterID: characterID,
		Traits:      trait.Snapshot{"courage": float64(i % 100)},
		TS:          time.Now(),
	}
}

func TestPool(t *testing.T) {
	Convey("Given a pool of four workers on an in-memory queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(1000))
		rec := newRecorder()
		registry := prometheus.NewRegistry()
		m := metrics.NewManager(metrics.WithPrometheusRegistry(registry))
		pool := worker.NewPool(4, q, rec, worker.WithMetrics(m), worker.WithLaneBuffer(8))

		Convey("Then a character always maps to the same lane", func() {
			So(pool.Size(), ShouldEqual, 4)
			lane := pool.Lane("hero")
			for i := 0; i < 10; i++ {
				So(pool.Lane("hero"), ShouldEqual, lane)
			}
			So(lane, ShouldBeBetweenOrEqual, 0, 3)
		})

		Convey("When events for several characters are drained", func() {
			ctx := context.Background()
			pool.Start(ctx)
			chars := []string{"hero", "rogue", "sage", "knight", "bard"}
			for i := 0; i < 50; i++ {
				for _, c := range chars {
					So(q.Enqueue(ctx, event(c, i)), ShouldBeNil)
				}
			}
			So(q.Close(), ShouldBeNil)

			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			So(pool.Shutdown(shutdownCtx), ShouldBeNil)

			Convey("Then every event is processed in per-character order", func() {
				So(rec.total(), ShouldEqual, 250)
				for _, c := range chars {
					ids := rec.events(c)
					So(len(ids), ShouldEqual, 50)
					for i, id := range ids {
						So(id, ShouldEqual, fmt.Sprintf("%s-%03d", c, i))
					}
				}
			})

			Convey("And the worker count gauge is reported", func() {
				So(gaugeValue(registry, "ethos_traits_worker_count"), ShouldEqual, 4)
			})
		})

		Convey("When the processor fails an event", func() {
			rec.fail["hero-001"] = errors.New("boom")
			ctx := context.Background()
			pool.Start(ctx)
			for i := 0; i < 3; i++ {
				So(q.Enqueue(ctx, event("hero", i)), ShouldBeNil)
			}
			So(q.Close(), ShouldBeNil)
			So(pool.Shutdown(context.Background()), ShouldBeNil)

			Convey("Then the remaining events still apply and the error is counted", func() {
				So(rec.events("hero"), ShouldResemble, []string{"hero-000", "hero-002"})
				count, err := testutil.GatherAndCount(registry, "ethos_traits_worker_errors_total")
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 1)
			})
		})

		Convey("When stopped without closing the queue", func() {
			pool.Start(context.Background())
			pool.Start(context.Background())
			done := make(chan struct{})
			go func() {
				pool.Stop()
				close(done)
			}()

			Convey("Then Stop returns promptly", func() {
				select {
				case <-done:
				case <-time.After(2 * time.Second):
					t.Fatal("pool did not stop")
				}
			})
		})
	})

	Convey("Given a pool that was never started", t, func() {
		pool := worker.NewPool(0, queue.NewInMemoryQueue(), worker.ProcessorFunc(func(context.Context, worker.Event) error { return nil }))

		Convey("Then it defaults its size and shuts down immediately", func() {
			So(pool.Size(), ShouldBeGreaterThan, 0)
			So(pool.Shutdown(context.Background()), ShouldBeNil)
			So(pool.Stop, ShouldNotPanic)
		})
	})
}

func gaugeValue(registry *prometheus.Registry, name string) float64 {
	families, err := registry.Gather()
	if err != nil {
		return -1
	}
	for _, mf := range families {
		if mf.GetName() == name && len(mf.GetMetric()) > 0 {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return -1
}
