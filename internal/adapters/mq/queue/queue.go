// Package queue buffers snapshot events between the HTTP ingest endpoint and
// the worker pool.
package queue

import (
	"context"
	"sync"

	"github.com/okian/ethos/internal/domain/model"
	"github.com/okian/ethos/pkg/metrics"
)

const defaultQueueCapacity = 100_000

// Event is the payload flowing through the queue.
type Event = model.SnapshotEvent

// Queue provides non-blocking enqueue and channel-based dequeue.
type Queue interface {
	// Enqueue adds an event without blocking. It returns ErrFull on
	// backpressure and ErrClosed after Close.
	Enqueue(ctx context.Context, e Event) error

	// Dequeue returns the channel events are delivered on. It is closed once
	// the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Event

	Len(ctx context.Context) int
	Cap() int
	Close() error
}

// InMemoryQueue implements Queue on a buffered channel.
type InMemoryQueue struct {
	events   chan Event
	capacity int
	metrics  *metrics.Manager

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.events = make(chan Event, q.capacity)
	q.metrics.UpdateQueue(0, q.capacity)
	return q
}

// Enqueue adds an event to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e Event) error { //nolint:gocritic // hugeParam: events are passed by value through the channel
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.metrics.RecordEnqueueRejected("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		q.metrics.RecordEnqueueRejected("context_cancelled")
		return err
	}

	select {
	case q.events <- e:
		q.metrics.RecordEnqueue()
		q.metrics.UpdateQueue(len(q.events), q.capacity)
		return nil
	default:
		q.metrics.RecordEnqueueRejected("full")
		return ErrFull
	}
}

// Dequeue returns the receive side of the queue.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Event {
	return q.events
}

// Len returns the number of buffered events.
func (q *InMemoryQueue) Len(_ context.Context) int {
	n := len(q.events)
	q.metrics.UpdateQueue(n, q.capacity)
	return n
}

// Cap returns the configured capacity.
func (q *InMemoryQueue) Cap() int { return q.capacity }

// Close stops accepting events. Buffered events remain readable.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.events)
	q.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
