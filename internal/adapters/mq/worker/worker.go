// Package worker applies queued snapshot events with a fixed pool of
// goroutines. Events are partitioned by character id so every character is
// owned by exactly one worker and its snapshots are applied in queue order.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/okian/ethos/internal/domain/model"
	"github.com/okian/ethos/pkg/logger"
	"github.com/okian/ethos/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2
	defaultLaneBuffer       = 64
)

// Event is what workers read off the queue.
type Event = model.SnapshotEvent

// Processor applies one event.
type Processor interface {
	Process(ctx context.Context, e Event) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, e Event) error

// Process calls f.
func (f ProcessorFunc) Process(ctx context.Context, e Event) error { return f(ctx, e) } //nolint:gocritic // hugeParam: value semantics match the queue

// Queue is the source of events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Pool fans events out to per-worker lanes.
type Pool struct {
	queue      Queue
	processor  Processor
	lanes      []chan Event
	laneBuffer int

	logger  logger.Logger
	metrics *metrics.Manager

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPool creates a pool of workerCount workers. A count below one defaults
// to twice the CPU count.
func NewPool(workerCount int, queue Queue, processor Processor, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}
	p := &Pool{
		queue:      queue,
		processor:  processor,
		lanes:      make([]chan Event, workerCount),
		laneBuffer: defaultLaneBuffer,
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	for i := range p.lanes {
		p.lanes[i] = make(chan Event, p.laneBuffer)
	}
	p.metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.lanes) }

// Lane returns the worker index that owns characterID.
func (p *Pool) Lane(characterID string) int {
	return int(xxhash.Sum64String(characterID) % uint64(len(p.lanes)))
}

// Start launches the dispatcher and the workers. Calling Start twice is a
// no-op.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)
	for i, lane := range p.lanes {
		p.wg.Add(1)
		go p.run(ctx, p.logger.Named("worker-"+strconv.Itoa(i)), lane)
	}
	p.wg.Add(1)
	go p.dispatch(ctx)
}

// dispatch routes queue events to their lane until the queue closes or ctx
// ends, then closes every lane.
func (p *Pool) dispatch(ctx context.Context) {
	defer p.wg.Done()
	defer func() {
		for _, lane := range p.lanes {
			close(lane)
		}
	}()

	events := p.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			select {
			case p.lanes[p.Lane(e.CharacterID)] <- e:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (p *Pool) run(ctx context.Context, log logger.Logger, lane <-chan Event) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-lane:
			if !ok {
				return
			}
			p.process(ctx, log, e)
		}
	}
}

func (p *Pool) process(ctx context.Context, log logger.Logger, e Event) { //nolint:gocritic // hugeParam: value semantics match the queue
	start := time.Now()
	err := p.processor.Process(ctx, e)
	p.metrics.RecordWorkerLatency(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		p.metrics.RecordWorkerError()
		log.Error(ctx, "snapshot event failed",
			logger.String("eventID", e.EventID),
			logger.String("characterID", e.CharacterID),
			logger.Error(err),
		)
	}
}

// Shutdown waits for the workers to drain. The caller closes the queue first;
// if ctx ends before the drain completes, in-flight work is cancelled.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	started, cancel := p.started, p.cancel
	p.mu.Unlock()
	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		cancel()
		return nil
	case <-ctx.Done():
		cancel()
		<-done
		p.logger.Warn(ctx, "worker pool shutdown timed out")
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
}

// Stop cancels the workers immediately and waits for them to return.
func (p *Pool) Stop() {
	p.mu.Lock()
	started, cancel := p.started, p.cancel
	p.mu.Unlock()
	if !started {
		return
	}
	cancel()
	p.wg.Wait()
}
