package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/okian/ethos/internal/adapters/repository"
	"github.com/okian/ethos/internal/domain/tracker"
	"github.com/okian/ethos/internal/domain/trait"
	"github.com/okian/ethos/pkg/logger"
)

// entry owns one character's tracker. The tracker is loaded lazily from the
// store under mu; removed is set once the entry left the map.
type entry struct {
	mu      sync.Mutex
	tracker *tracker.Tracker
	removed bool
}

func (s *Service) entry(characterID string) *entry {
	s.charsMu.Lock()
	defer s.charsMu.Unlock()
	e, ok := s.characters[characterID]
	if !ok {
		e = &entry{}
		s.characters[characterID] = e
	}
	return e
}

// drop removes e from the map if it is still the live entry. Callers hold e.mu.
func (s *Service) drop(characterID string, e *entry) {
	s.charsMu.Lock()
	defer s.charsMu.Unlock()
	e.removed = true
	if s.characters[characterID] == e {
		delete(s.characters, characterID)
	}
	s.metrics.UpdateTrackedCharacters(len(s.characters))
}

// withTracker runs fn with the character's tracker locked. Unknown characters
// are created when create is set and reported as ErrUnknownCharacter
// otherwise.
func (s *Service) withTracker(ctx context.Context, characterID string, create bool, fn func(*tracker.Tracker) error) error {
	return s.withEntry(ctx, characterID, create, func(e *entry) error { return fn(e.tracker) })
}

func (s *Service) withEntry(ctx context.Context, characterID string, create bool, fn func(*entry) error) error {
	if strings.TrimSpace(characterID) == "" {
		return fmt.Errorf("%w: empty character id", ErrInvalidSnapshot)
	}
	for {
		e := s.entry(characterID)
		e.mu.Lock()
		if e.removed {
			e.mu.Unlock()
			continue
		}
		err := s.load(ctx, characterID, e, create)
		if err == nil {
			err = fn(e)
		}
		e.mu.Unlock()
		return err
	}
}

func (s *Service) load(ctx context.Context, characterID string, e *entry, create bool) error {
	if e.tracker != nil {
		return nil
	}
	st, err := s.store.Get(ctx, characterID)
	switch {
	case err == nil:
		e.tracker = s.newTracker(characterID)
		e.tracker.Restore(st.Baseline, st.Current)
		s.logger.Debug(ctx, "restored character", logger.String("characterID", characterID))
	case errors.Is(err, repository.ErrNotFound) && create:
		e.tracker = s.newTracker(characterID)
	case errors.Is(err, repository.ErrNotFound):
		s.drop(characterID, e)
		return fmt.Errorf("%w: %s", ErrUnknownCharacter, characterID)
	default:
		s.drop(characterID, e)
		return fmt.Errorf("load character %s: %w", characterID, err)
	}
	s.charsMu.Lock()
	s.metrics.UpdateTrackedCharacters(len(s.characters))
	s.charsMu.Unlock()
	return nil
}

func (s *Service) newTracker(characterID string) *tracker.Tracker {
	return tracker.New(characterID,
		tracker.WithNotifier(s.feed),
		tracker.WithClock(s.now),
	)
}

func (s *Service) persist(ctx context.Context, tr *tracker.Tracker) error {
	err := s.store.Put(ctx, repository.CharacterState{
		CharacterID: tr.ID(),
		Baseline:    tr.Baseline(),
		Current:     tr.Current(),
		UpdatedAt:   s.now(),
	})
	if err != nil {
		s.logger.Error(ctx, "failed to persist character",
			logger.String("characterID", tr.ID()),
			logger.Error(err),
		)
		return fmt.Errorf("persist character %s: %w", tr.ID(), err)
	}
	return nil
}

// validateSnapshot rejects empty ids and names and values that are not finite
// or fall outside [0, 100].
func validateSnapshot(characterID string, snapshot trait.Snapshot) error {
	if strings.TrimSpace(characterID) == "" {
		return fmt.Errorf("%w: empty character id", ErrInvalidSnapshot)
	}
	for name, v := range snapshot {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: empty trait name", ErrInvalidSnapshot)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not a finite number", ErrInvalidSnapshot, name)
		}
		if v < 0 || v > trait.MaxValue {
			return fmt.Errorf("%w: %s=%v outside [0, %d]", ErrInvalidSnapshot, name, v, trait.MaxValue)
		}
	}
	return nil
}

// Observe diffs snapshot against the character's baseline without committing
// it. The character is created on first use.
func (s *Service) Observe(ctx context.Context, characterID string, snapshot trait.Snapshot) (tracker.Observation, error) {
	if err := validateSnapshot(characterID, snapshot); err != nil {
		s.metrics.RecordSnapshotRejected("invalid")
		return tracker.Observation{}, err
	}
	return s.observe(ctx, characterID, snapshot, false)
}

func (s *Service) observe(ctx context.Context, characterID string, snapshot trait.Snapshot, commit bool) (tracker.Observation, error) {
	var obs tracker.Observation
	err := s.withTracker(ctx, characterID, true, func(tr *tracker.Tracker) error {
		start := time.Now()
		obs = tr.Observe(ctx, snapshot)
		s.metrics.RecordSnapshotObserved(float64(time.Since(start).Microseconds()) / 1000)
		for _, m := range obs.Milestones {
			s.metrics.RecordMilestone(m.Threshold)
		}
		for _, u := range obs.Unlocks {
			s.metrics.RecordUnlock(string(u.Tier))
		}
		if len(obs.Milestones) > 0 || len(obs.Unlocks) > 0 {
			s.logger.Info(ctx, "progression detected",
				logger.String("characterID", characterID),
				logger.Int("milestones", len(obs.Milestones)),
				logger.Int("unlocks", len(obs.Unlocks)),
			)
		}
		if commit {
			tr.Commit()
			s.metrics.RecordCommit()
		}
		return s.persist(ctx, tr)
	})
	return obs, err
}

// Commit makes the character's current snapshot its new baseline.
func (s *Service) Commit(ctx context.Context, characterID string) error {
	return s.withTracker(ctx, characterID, false, func(tr *tracker.Tracker) error {
		tr.Commit()
		s.metrics.RecordCommit()
		return s.persist(ctx, tr)
	})
}

// Delete forgets the character: its tracker, stored state and toasts.
func (s *Service) Delete(ctx context.Context, characterID string) error {
	return s.withEntry(ctx, characterID, false, func(e *entry) error {
		if err := s.store.Delete(ctx, characterID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("delete character %s: %w", characterID, err)
		}
		s.drop(characterID, e)
		s.feed.Clear(characterID)
		s.logger.Info(ctx, "character deleted", logger.String("characterID", characterID))
		return nil
	})
}
