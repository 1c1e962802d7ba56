// Package metrics provides Prometheus metrics for the ethos trait service.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns every collector of the service. It is constructed by the
// hosting process and injected where needed; all methods are safe to call on
// a nil *Manager so tests can leave metrics unwired.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         *prometheus.Registry
	runtime          bool

	// Progression
	snapshotsObserved prometheus.Counter
	snapshotsRejected *prometheus.CounterVec
	milestones        *prometheus.CounterVec
	unlocks           *prometheus.CounterVec
	toasts            prometheus.Counter
	commits           prometheus.Counter
	trackedCharacters prometheus.Gauge
	observeLatency    prometheus.Histogram

	// Ingest
	snapshotsDuplicate prometheus.Counter
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueRejected      *prometheus.CounterVec
	workerCount        prometheus.Gauge
	workerLatency      prometheus.Histogram
	workerErrors       prometheus.Counter

	// Storage
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a metrics manager with its own registry unless one is
// supplied.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ethos",
		subsystem:        "traits",
		histogramBuckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	if m.runtime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		})
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		}, labels)
	}
	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		})
	}
	histogram := func(name, help string) prometheus.Histogram {
		return auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
			Buckets: m.histogramBuckets,
		})
	}
	histogramVec := func(name, help string, labels ...string) *prometheus.HistogramVec {
		return auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
			Buckets: m.histogramBuckets,
		}, labels)
	}

	m.snapshotsObserved = counter("snapshots_observed_total", "Snapshots diffed against a tracker baseline")
	m.snapshotsRejected = counterVec("snapshots_rejected_total", "Snapshots rejected at the service boundary", "reason")
	m.milestones = counterVec("milestones_total", "Milestones detected by threshold", "threshold")
	m.unlocks = counterVec("unlocks_total", "Unlocks detected by tier", "tier")
	m.toasts = counter("toasts_total", "Toast notifications emitted")
	m.commits = counter("commits_total", "Baseline commits")
	m.trackedCharacters = gauge("tracked_characters", "Characters with a live tracker")
	m.observeLatency = histogram("observe_latency_milliseconds", "Latency of a single observe call")

	m.snapshotsDuplicate = counter("snapshots_duplicate_total", "Ingested snapshots dropped as duplicates")
	m.queueSize = gauge("queue_size", "Current ingest queue length")
	m.queueCapacity = gauge("queue_capacity", "Ingest queue capacity")
	m.queueEnqueued = counter("queue_enqueued_total", "Snapshots accepted by the ingest queue")
	m.queueRejected = counterVec("queue_rejected_total", "Snapshots refused by the ingest queue", "reason")
	m.workerCount = gauge("worker_count", "Ingest workers")
	m.workerLatency = histogram("worker_latency_milliseconds", "Time a worker spends on one snapshot")
	m.workerErrors = counter("worker_errors_total", "Snapshots a worker failed to apply")

	m.storeLatency = histogramVec("store_latency_milliseconds", "Store operation latency", "op")
	m.storeErrors = counterVec("store_errors_total", "Store operation failures", "op")

	m.httpRequests = counterVec("http_requests_total", "HTTP requests by endpoint", "endpoint", "method", "status_code")
	m.httpRequestDuration = histogramVec("http_request_duration_milliseconds", "HTTP request duration", "endpoint", "method", "status_code")
}

// Registry exposes the underlying registry.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordSnapshotObserved counts one diffed snapshot and its latency.
func (m *Manager) RecordSnapshotObserved(latencyMs float64) {
	if m == nil {
		return
	}
	m.snapshotsObserved.Inc()
	m.observeLatency.Observe(latencyMs)
}

// RecordSnapshotRejected counts a snapshot refused by validation.
func (m *Manager) RecordSnapshotRejected(reason string) {
	if m == nil {
		return
	}
	m.snapshotsRejected.WithLabelValues(reason).Inc()
}

// RecordMilestone counts a milestone at threshold.
func (m *Manager) RecordMilestone(threshold int) {
	if m == nil {
		return
	}
	m.milestones.WithLabelValues(strconv.Itoa(threshold)).Inc()
}

// RecordUnlock counts an unlock of tier.
func (m *Manager) RecordUnlock(tier string) {
	if m == nil {
		return
	}
	m.unlocks.WithLabelValues(tier).Inc()
}

// RecordToast counts an emitted toast.
func (m *Manager) RecordToast() {
	if m == nil {
		return
	}
	m.toasts.Inc()
}

// RecordCommit counts a baseline commit.
func (m *Manager) RecordCommit() {
	if m == nil {
		return
	}
	m.commits.Inc()
}

// UpdateTrackedCharacters sets the live tracker gauge.
func (m *Manager) UpdateTrackedCharacters(n int) {
	if m == nil {
		return
	}
	m.trackedCharacters.Set(float64(n))
}

// RecordDuplicate counts a deduplicated snapshot event.
func (m *Manager) RecordDuplicate() {
	if m == nil {
		return
	}
	m.snapshotsDuplicate.Inc()
}

// UpdateQueue sets queue length and capacity.
func (m *Manager) UpdateQueue(size, capacity int) {
	if m == nil {
		return
	}
	m.queueSize.Set(float64(size))
	m.queueCapacity.Set(float64(capacity))
}

// RecordEnqueue counts an accepted snapshot event.
func (m *Manager) RecordEnqueue() {
	if m == nil {
		return
	}
	m.queueEnqueued.Inc()
}

// RecordEnqueueRejected counts a refused snapshot event.
func (m *Manager) RecordEnqueueRejected(reason string) {
	if m == nil {
		return
	}
	m.queueRejected.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the worker gauge.
func (m *Manager) UpdateWorkerCount(n int) {
	if m == nil {
		return
	}
	m.workerCount.Set(float64(n))
}

// RecordWorkerLatency observes one processed event.
func (m *Manager) RecordWorkerLatency(latencyMs float64) {
	if m == nil {
		return
	}
	m.workerLatency.Observe(latencyMs)
}

// RecordWorkerError counts a failed event.
func (m *Manager) RecordWorkerError() {
	if m == nil {
		return
	}
	m.workerErrors.Inc()
}

// RecordStore observes a store operation; failed operations are counted too.
func (m *Manager) RecordStore(op string, latencyMs float64, err error) {
	if m == nil {
		return
	}
	m.storeLatency.WithLabelValues(op).Observe(latencyMs)
	if err != nil {
		m.storeErrors.WithLabelValues(op).Inc()
	}
}

// RecordHTTPRequest records one served request.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}
