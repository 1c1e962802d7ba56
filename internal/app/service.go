// Package service hosts one trait tracker per character and wires the
// ingest queue, worker pool, toast feed and state store around them.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	eventqueue "github.com/okian/ethos/internal/adapters/mq/queue"
	workerpool "github.com/okian/ethos/internal/adapters/mq/worker"
	"github.com/okian/ethos/internal/adapters/notify"
	"github.com/okian/ethos/internal/adapters/repository"
	"github.com/okian/ethos/internal/domain/dedupe"
	"github.com/okian/ethos/internal/domain/model"
	"github.com/okian/ethos/pkg/logger"
	"github.com/okian/ethos/pkg/metrics"
)

// Service implements the dependencies required by the HTTP API.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	feed    *notify.Feed
	deduper dedupe.Deduper
	queue   eventqueue.Queue
	pool    *workerpool.Pool

	// Configuration
	workerCount  int
	queueSize    int
	dedupeSize   int
	toastHistory int
	autoCommit   bool
	now          func() time.Time

	// State
	started    bool
	startedAt  time.Time
	charsMu    sync.Mutex
	characters map[string]*entry

	logger  logger.Logger
	metrics *metrics.Manager
}

// New constructs a Service. Synchronous operations work right away; the
// ingest pipeline runs between Start and Stop.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU() * 2,
		queueSize:    100_000,
		dedupeSize:   50_000,
		toastHistory: 20,
		autoCommit:   true,
		now:          time.Now,
		characters:   make(map[string]*entry),
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore(repository.WithMetrics(s.metrics))
	}
	s.feed = notify.NewFeed(
		notify.WithHistory(s.toastHistory),
		notify.WithLogger(s.logger.Named("notify")),
		notify.WithMetrics(s.metrics),
		notify.WithClock(s.now),
	)
	return s
}

// Start initializes and starts the ingest pipeline.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting trait service...")

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
		eventqueue.WithMetrics(s.metrics),
	)
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s,
		workerpool.WithLogger(s.logger.Named("worker")),
		workerpool.WithMetrics(s.metrics),
	)
	// Workers outlive the start request; they stop through Stop.
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "trait service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Bool("autoCommit", s.autoCommit),
	)
	return nil
}

// Stop closes the queue, lets the workers drain it until ctx ends, and closes
// the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.started {
		s.logger.Info(ctx, "stopping trait service...")
		if err := s.queue.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close queue: %w", err))
		}
		if err := s.pool.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		s.started = false
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	s.logger.Info(ctx, "trait service stopped")
	return errors.Join(errs...)
}

// Enqueue validates e and submits it for asynchronous application. It reports
// duplicate=true when the event id was already accepted. Events without an id
// get a random one and are never treated as duplicates.
func (s *Service) Enqueue(ctx context.Context, e model.SnapshotEvent) (duplicate bool, err error) { //nolint:gocritic // hugeParam: queued by value
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return false, ErrNotStarted
	}

	if err := validateSnapshot(e.CharacterID, e.Traits); err != nil {
		s.metrics.RecordSnapshotRejected("invalid")
		return false, err
	}
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.TS.IsZero() {
		e.TS = s.now()
	}

	if s.deduper.SeenAndRecord(ctx, e.EventID) {
		s.metrics.RecordDuplicate()
		s.logger.Debug(ctx, "duplicate event detected, skipping",
			logger.String("eventID", e.EventID),
			logger.String("characterID", e.CharacterID),
		)
		return true, nil
	}

	e.Traits = e.Traits.Clone()
	if err := s.queue.Enqueue(ctx, e); err != nil {
		s.deduper.Unrecord(ctx, e.EventID)
		return false, fmt.Errorf("enqueue snapshot %s: %w", e.EventID, err)
	}
	return false, nil
}

// Process applies a queued event. It is called by the worker that owns the
// event's character.
func (s *Service) Process(ctx context.Context, e model.SnapshotEvent) error { //nolint:gocritic // hugeParam: worker.Processor signature
	_, err := s.observe(ctx, e.CharacterID, e.Traits, s.autoCommit)
	return err
}

// Stats is a point-in-time view of the service.
type Stats struct {
	Started           bool      `json:"started"`
	StartedAt         time.Time `json:"started_at,omitempty"`
	WorkerCount       int       `json:"worker_count"`
	QueueCapacity     int       `json:"queue_capacity"`
	QueueLength       int       `json:"queue_length"`
	DedupeSize        int64     `json:"dedupe_size"`
	TrackedCharacters int       `json:"tracked_characters"`
	StoredCharacters  int       `json:"stored_characters"`
	AutoCommit        bool      `json:"auto_commit"`
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Started:       s.started,
		WorkerCount:   s.workerCount,
		QueueCapacity: s.queueSize,
		AutoCommit:    s.autoCommit,
	}
	if s.started {
		stats.StartedAt = s.startedAt
		stats.WorkerCount = s.pool.Size()
		stats.QueueLength = s.queue.Len(ctx)
		stats.DedupeSize = s.deduper.Size()
	}

	s.charsMu.Lock()
	stats.TrackedCharacters = len(s.characters)
	s.charsMu.Unlock()
	s.metrics.UpdateTrackedCharacters(stats.TrackedCharacters)

	stored, err := s.store.Count(ctx)
	if err != nil {
		return stats, fmt.Errorf("count stored characters: %w", err)
	}
	stats.StoredCharacters = stored
	return stats, nil
}
