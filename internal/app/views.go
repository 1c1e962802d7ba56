package service

import (
	"context"

	"github.com/okian/ethos/internal/domain/progression"
	"github.com/okian/ethos/internal/domain/tracker"
	"github.com/okian/ethos/internal/domain/trait"
)

// CharacterView is everything known about one character.
type CharacterView struct {
	CharacterID string                     `json:"character_id"`
	Baseline    trait.Snapshot             `json:"baseline"`
	Current     trait.Snapshot             `json:"current"`
	Changes     progression.Deltas         `json:"trait_changes"`
	Levels      map[string]trait.LevelInfo `json:"levels"`
	Milestones  []progression.Milestone    `json:"milestones"`
	Unlocks     []progression.Unlock       `json:"unlocks"`
	Alignment   trait.AlignmentSummary     `json:"alignment"`
	Trends      progression.Trends         `json:"trends"`
}

// ChangesView pairs the latest deltas with their trends.
type ChangesView struct {
	Changes progression.Deltas `json:"trait_changes"`
	Trends  progression.Trends `json:"trends"`
}

// TraitView describes one trait of a character.
type TraitView struct {
	Trait    string          `json:"trait"`
	Category trait.Category  `json:"category"`
	Value    float64         `json:"value"`
	Level    trait.LevelInfo `json:"level"`
	Progress trait.Progress  `json:"progress"`
}

// Character returns the full view of characterID.
func (s *Service) Character(ctx context.Context, characterID string) (CharacterView, error) {
	var v CharacterView
	err := s.withTracker(ctx, characterID, false, func(tr *tracker.Tracker) error {
		current := tr.Current()
		levels := make(map[string]trait.LevelInfo, len(current))
		for name := range current {
			levels[name] = tr.TraitLevel(name)
		}
		v = CharacterView{
			CharacterID: characterID,
			Baseline:    tr.Baseline(),
			Current:     current,
			Changes:     tr.TraitChanges(),
			Levels:      levels,
			Milestones:  tr.Milestones(),
			Unlocks:     tr.Unlocks(),
			Alignment:   tr.Alignment(),
			Trends:      tr.Trends(),
		}
		return nil
	})
	return v, err
}

// Alignment returns the alignment of the character's current traits.
func (s *Service) Alignment(ctx context.Context, characterID string) (trait.AlignmentSummary, error) {
	var a trait.AlignmentSummary
	err := s.withTracker(ctx, characterID, false, func(tr *tracker.Tracker) error {
		a = tr.Alignment()
		return nil
	})
	return a, err
}

// Changes returns the deltas of the last observation.
func (s *Service) Changes(ctx context.Context, characterID string) (ChangesView, error) {
	var v ChangesView
	err := s.withTracker(ctx, characterID, false, func(tr *tracker.Tracker) error {
		v = ChangesView{Changes: tr.TraitChanges(), Trends: tr.Trends()}
		return nil
	})
	return v, err
}

// Trait returns level and milestone progress of one trait. Traits the
// character does not have read as zero.
func (s *Service) Trait(ctx context.Context, characterID, name string) (TraitView, error) {
	var v TraitView
	err := s.withTracker(ctx, characterID, false, func(tr *tracker.Tracker) error {
		v = TraitView{
			Trait:    name,
			Category: trait.Classify(name),
			Value:    tr.Current()[name],
			Level:    tr.TraitLevel(name),
			Progress: tr.NextMilestone(name),
		}
		return nil
	})
	return v, err
}

// Milestones returns the pending milestone queue.
func (s *Service) Milestones(ctx context.Context, characterID string) ([]progression.Milestone, error) {
	var out []progression.Milestone
	err := s.withTracker(ctx, characterID, false, func(tr *tracker.Tracker) error {
		out = tr.Milestones()
		return nil
	})
	return out, err
}

// Unlocks returns the pending unlock queue.
func (s *Service) Unlocks(ctx context.Context, characterID string) ([]progression.Unlock, error) {
	var out []progression.Unlock
	err := s.withTracker(ctx, characterID, false, func(tr *tracker.Tracker) error {
		out = tr.Unlocks()
		return nil
	})
	return out, err
}

// DismissMilestone removes the milestone at index.
func (s *Service) DismissMilestone(ctx context.Context, characterID string, index int) (progression.Milestone, error) {
	var m progression.Milestone
	err := s.withTracker(ctx, characterID, false, func(tr *tracker.Tracker) error {
		var err error
		m, err = tr.DismissMilestone(index)
		return err
	})
	return m, err
}

// DismissUnlock removes the unlock at index.
func (s *Service) DismissUnlock(ctx context.Context, characterID string, index int) (progression.Unlock, error) {
	var u progression.Unlock
	err := s.withTracker(ctx, characterID, false, func(tr *tracker.Tracker) error {
		var err error
		u, err = tr.DismissUnlock(index)
		return err
	})
	return u, err
}

// Toasts returns up to n recent toasts of the character, newest first.
func (s *Service) Toasts(ctx context.Context, characterID string, n int) ([]tracker.Toast, error) {
	if err := s.withTracker(ctx, characterID, false, func(*tracker.Tracker) error { return nil }); err != nil {
		return nil, err
	}
	return s.feed.Recent(characterID, n), nil
}
