package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/ethos/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	Convey("Given a metrics manager on a private registry", t, func() {
		registry := prometheus.NewRegistry()
		m := metrics.NewManager(metrics.WithPrometheusRegistry(registry))

		Convey("Then it uses the supplied registry", func() {
			So(m.Registry(), ShouldEqual, registry)
		})

		Convey("When progression events are recorded", func() {
			m.RecordMilestone(50)
			m.RecordMilestone(50)
			m.RecordMilestone(75)
			m.RecordUnlock("master")
			m.RecordSnapshotObserved(1.5)

			Convey("Then the counters reflect them", func() {
				count, err := testutil.GatherAndCount(registry, "ethos_traits_milestones_total")
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 2) // two label series
				count, err = testutil.GatherAndCount(registry, "ethos_traits_unlocks_total")
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 1)
			})
		})

		Convey("When store failures are recorded", func() {
			m.RecordStore("put", 2, errors.New("disk full"))
			m.RecordStore("get", 1, nil)

			Convey("Then only failures are counted as errors", func() {
				count, err := testutil.GatherAndCount(registry, "ethos_traits_store_errors_total")
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 1)
			})
		})

		Convey("When scraped over HTTP", func() {
			m.RecordToast()
			rec := httptest.NewRecorder()
			m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			Convey("Then the exposition contains service metrics", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(strings.Contains(rec.Body.String(), "ethos_traits_toasts_total 1"), ShouldBeTrue)
			})
		})
	})

	Convey("Given a nil manager", t, func() {
		var m *metrics.Manager

		Convey("Then every recorder is a no-op", func() {
			So(func() {
				m.RecordMilestone(25)
				m.RecordUnlock("advanced")
				m.RecordToast()
				m.UpdateQueue(1, 10)
				m.RecordHTTPRequest("/x", "GET", "200", 1)
				m.RecordStore("get", 1, nil)
			}, ShouldNotPanic)
			So(m.Registry(), ShouldBeNil)
		})
	})

	Convey("Given custom naming options", t, func() {
		registry := prometheus.NewRegistry()
		m := metrics.NewManager(
			metrics.WithPrometheusRegistry(registry),
			metrics.WithNamespace("game"),
			metrics.WithSubsystem("progress"),
			metrics.WithHistogramBuckets([]float64{1, 10}),
		)
		m.RecordCommit()

		Convey("Then metric names use them", func() {
			count, err := testutil.GatherAndCount(registry, "game_progress_commits_total")
			So(err, ShouldBeNil)
			So(count, ShouldEqual, 1)
		})
	})
}
