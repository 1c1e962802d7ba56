package simulate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/okian/ethos/pkg/logger"
)

const (
	directoryPermission = 0o750
	filePermission      = 0o600

	maxThrottleRetries = 5
	throttleBackoff    = 50 * time.Millisecond
	pollInterval       = 100 * time.Millisecond
	laneBuffer         = 2
)

// Runner executes simulation runs against one service.
type Runner struct {
	cfg    *Config
	client *Client
	log    logger.Logger
	now    func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the run logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithClock overrides the time source used for timestamps and seeding.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRunner validates cfg and builds a Runner.
func NewRunner(cfg *Config, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Runner{
		cfg:    cfg,
		client: NewClient(cfg.BaseURL, cfg.Timeout),
		log:    logger.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run checks health, submits a generated plan, re-sends some events to
// exercise deduplication and verifies every character.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	start := r.now()
	var stats Stats

	r.log.Info(ctx, "starting ethos simulation",
		logger.String("baseURL", r.cfg.BaseURL),
		logger.Int("characters", r.cfg.Characters),
		logger.Int("steps", r.cfg.Steps),
		logger.Int("workers", r.cfg.Workers))

	if err := r.client.Health(ctx); err != nil {
		return stats, err
	}

	plan := Generate(r.cfg, r.now)
	for _, s := range plan.Scripts {
		stats.EventsGenerated += len(s.Events)
		stats.ExpectedMilestones += s.Milestones
		stats.ExpectedUnlocks += s.Unlocks
	}

	if r.cfg.OutputFile != "" {
		if err := SaveEvents(r.cfg.OutputFile, plan.Events()); err != nil {
			r.log.Warn(ctx, "failed to save events to file", logger.Error(err))
		}
	}

	r.submit(ctx, plan, &stats)
	r.resend(ctx, plan, &stats)

	err := r.verify(ctx, plan, &stats)
	stats.Duration = r.now().Sub(start)

	r.log.Info(ctx, "final statistics",
		logger.Int("eventsGenerated", stats.EventsGenerated),
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("eventsAccepted", stats.EventsAccepted),
		logger.Int("eventsDuplicate", stats.EventsDuplicate),
		logger.Int("eventsFailed", stats.EventsFailed),
		logger.Int("charactersVerified", stats.CharactersVerified),
		logger.Int("charactersMismatch", stats.CharactersMismatch),
		logger.Duration("duration", stats.Duration))
	return stats, err
}

// submit sends every script on the lane its character hashes to, so one
// character's snapshots reach the service in order.
func (r *Runner) submit(ctx context.Context, plan Plan, stats *Stats) {
	var submitted, accepted, duplicate, failed atomic.Int64

	lanes := make([]chan Script, r.cfg.Workers)
	for i := range lanes {
		lanes[i] = make(chan Script, laneBuffer)
	}

	var wg sync.WaitGroup
	for i := range lanes {
		wg.Add(1)
		go func(lane <-chan Script) {
			defer wg.Done()
			for script := range lane {
				for _, e := range script.Events {
					if ctx.Err() != nil {
						return
					}
					submitted.Add(1)
					switch r.submitOne(ctx, e) {
					case Accepted:
						accepted.Add(1)
					case Duplicate:
						duplicate.Add(1)
					default:
						failed.Add(1)
					}
				}
			}
		}(lanes[i])
	}

	for _, script := range plan.Scripts {
		lane := lanes[xxhash.Sum64String(script.CharacterID)%uint64(len(lanes))]
		select {
		case <-ctx.Done():
		case lane <- script:
		}
	}
	for _, lane := range lanes {
		close(lane)
	}
	wg.Wait()

	stats.EventsSubmitted += int(submitted.Load())
	stats.EventsAccepted += int(accepted.Load())
	stats.EventsDuplicate += int(duplicate.Load())
	stats.EventsFailed += int(failed.Load())

	r.log.Info(ctx, "event submission completed",
		logger.Int("accepted", int(accepted.Load())),
		logger.Int("duplicate", int(duplicate.Load())),
		logger.Int("failed", int(failed.Load())))
}

func (r *Runner) submitOne(ctx context.Context, e Event) Outcome {
	for attempt := 1; ; attempt++ {
		outcome, err := r.client.Submit(ctx, e)
		if outcome != Throttled || attempt > maxThrottleRetries {
			if err != nil {
				r.log.Debug(ctx, "submission failed", logger.String("event_id", e.EventID), logger.Error(err))
			}
			return outcome
		}
		select {
		case <-ctx.Done():
			return Failed
		case <-time.After(time.Duration(attempt) * throttleBackoff):
		}
	}
}

// resend replays already delivered events; the service must report each as a
// duplicate.
func (r *Runner) resend(ctx context.Context, plan Plan, stats *Stats) {
	if r.cfg.Duplicates == 0 {
		return
	}
	events := plan.Events()
	n := min(r.cfg.Duplicates, len(events))
	for _, e := range events[:n] {
		stats.EventsSubmitted++
		switch r.submitOne(ctx, e) {
		case Duplicate:
			stats.EventsDuplicate++
		case Accepted:
			stats.EventsAccepted++
			r.log.Warn(ctx, "re-sent event was accepted", logger.String("event_id", e.EventID))
		default:
			stats.EventsFailed++
		}
	}
}

// verify waits until each character's current snapshot matches its final
// expected one, then checks the committed baseline and the pending queues.
func (r *Runner) verify(ctx context.Context, plan Plan, stats *Stats) error {
	deadline := r.now().Add(r.cfg.Settle)

	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	sem := make(chan struct{}, r.cfg.Workers)
	for _, script := range plan.Scripts {
		wg.Add(1)
		sem <- struct{}{}
		go func(s Script) {
			defer func() { <-sem; wg.Done() }()
			err := r.verifyOne(ctx, s, deadline)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.CharactersMismatch++
				errs = append(errs, err)
				return
			}
			stats.CharactersVerified++
		}(script)
	}
	wg.Wait()

	if len(errs) > 0 {
		r.log.Error(ctx, "verification failed", logger.Int("mismatches", len(errs)), logger.Error(errs[0]))
		return errors.Join(errs...)
	}
	r.log.Info(ctx, "all characters verified", logger.Int("characters", stats.CharactersVerified))
	return nil
}

func (r *Runner) verifyOne(ctx context.Context, s Script, deadline time.Time) error {
	var (
		state CharacterState
		err   error
	)
	for {
		state, err = r.client.Character(ctx, s.CharacterID)
		if err == nil && maps.Equal(state.Current, s.Final) {
			break
		}
		if err != nil && !errors.Is(err, errCharacterNotFound) {
			return fmt.Errorf("%w: %s: %w", ErrMismatch, s.CharacterID, err)
		}
		if !r.now().Before(deadline) {
			return fmt.Errorf("%w: %s: final snapshot not applied before deadline", ErrMismatch, s.CharacterID)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}

	switch {
	case !maps.Equal(state.Baseline, s.Final):
		return fmt.Errorf("%w: %s: baseline not committed", ErrMismatch, s.CharacterID)
	case len(state.Milestones) != s.Milestones:
		return fmt.Errorf("%w: %s: %d milestones, want %d", ErrMismatch, s.CharacterID, len(state.Milestones), s.Milestones)
	case len(state.Unlocks) != s.Unlocks:
		return fmt.Errorf("%w: %s: %d unlocks, want %d", ErrMismatch, s.CharacterID, len(state.Unlocks), s.Unlocks)
	}
	return nil
}

// SaveEvents writes events as a JSON array, creating parent directories.
func SaveEvents(filename string, events []Event) error {
	if len(events) == 0 {
		return errors.New("no events to save")
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write events: %w", err)
	}
	return nil
}
