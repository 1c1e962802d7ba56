// Package tracker holds the per-character progression state: a committed
// baseline snapshot, the latest observed snapshot, and the queues of pending
// milestones and unlocks that observations produce.
//
// A Tracker is not safe for concurrent use; its owner serializes access.
package tracker

import (
	"context"
	"time"

	"github.com/okian/ethos/internal/domain/progression"
	"github.com/okian/ethos/internal/domain/trait"
)

// Observation is the outcome of a single Observe call.
type Observation struct {
	CharacterID string `json:"character_id"`
	// Seeded is true when the snapshot became the baseline instead of being
	// diffed.
	Seeded bool `json:"seeded"`
	progression.Result
	Toast *Toast `json:"toast,omitempty"`
}

// Tracker diffs incoming snapshots against a baseline that only moves on
// Commit. Observing repeatedly without committing keeps diffing against the
// same baseline, and every observation appends what it detects.
type Tracker struct {
	id       string
	notifier Notifier
	now      func() time.Time

	baseline trait.Snapshot
	current  trait.Snapshot
	changes  progression.Deltas

	milestones []progression.Milestone
	unlocks    []progression.Unlock
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithNotifier routes first-milestone toasts to n.
func WithNotifier(n Notifier) Option {
	return func(t *Tracker) {
		if n != nil {
			t.notifier = n
		}
	}
}

// WithClock overrides time.Now for toast timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// New creates an empty tracker for a character.
func New(characterID string, opts ...Option) *Tracker {
	t := &Tracker{
		id:       characterID,
		notifier: NotifierFunc(func(context.Context, Toast) {}),
		now:      time.Now,
		changes:  progression.Deltas{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ID returns the character id.
func (t *Tracker) ID() string { return t.id }

// Restore rehydrates baseline and current without producing events.
func (t *Tracker) Restore(baseline, current trait.Snapshot) {
	t.baseline = baseline.Clone()
	t.current = current.Clone()
	if len(t.current) == 0 {
		t.current = t.baseline.Clone()
	}
	t.changes = progression.Diff(t.baseline, t.current).Deltas
}

// Observe records snapshot as current. The first non-empty snapshot seeds the
// baseline. Later ones are diffed against the baseline: the trait changes are
// replaced, detected milestones and unlocks are appended to their queues, and
// one toast is sent for the first milestone of the batch. Once seeded, an empty
// snapshot clears the trait changes and leaves current untouched.
func (t *Tracker) Observe(ctx context.Context, snapshot trait.Snapshot) Observation {
	obs := Observation{CharacterID: t.id}
	if len(snapshot) == 0 && len(t.baseline) > 0 {
		t.changes = progression.Deltas{}
		obs.Result = progression.Diff(nil, nil)
		return obs
	}
	t.current = snapshot.Clone()

	if len(t.baseline) == 0 {
		t.baseline = t.current.Clone()
		t.changes = progression.Deltas{}
		obs.Seeded = len(t.baseline) > 0
		obs.Result = progression.Result{
			Deltas:     progression.Deltas{},
			Milestones: []progression.Milestone{},
			Unlocks:    []progression.Unlock{},
		}
		return obs
	}

	res := progression.Diff(t.baseline, t.current)
	t.changes = res.Deltas
	t.milestones = append(t.milestones, res.Milestones...)
	t.unlocks = append(t.unlocks, res.Unlocks...)
	obs.Result = res

	if len(res.Milestones) > 0 {
		toast := milestoneToast(t.id, res.Milestones[0], t.now())
		t.notifier.Notify(ctx, toast)
		obs.Toast = &toast
	}
	return obs
}

// Commit collapses current into the baseline. After a commit, observing the
// same snapshot again yields no changes.
func (t *Tracker) Commit() {
	t.baseline = t.current.Clone()
	t.changes = progression.Deltas{}
}

// Baseline returns a copy of the committed snapshot.
func (t *Tracker) Baseline() trait.Snapshot { return t.baseline.Clone() }

// Current returns a copy of the last observed snapshot.
func (t *Tracker) Current() trait.Snapshot { return t.current.Clone() }

// TraitChanges returns a copy of the deltas of the last observation.
func (t *Tracker) TraitChanges() progression.Deltas {
	out := make(progression.Deltas, len(t.changes))
	for k, v := range t.changes {
		out[k] = v
	}
	return out
}

// Milestones returns the pending milestones, oldest first.
func (t *Tracker) Milestones() []progression.Milestone {
	return append([]progression.Milestone{}, t.milestones...)
}

// Unlocks returns the pending unlocks, oldest first.
func (t *Tracker) Unlocks() []progression.Unlock {
	return append([]progression.Unlock{}, t.unlocks...)
}

// DismissMilestone removes the pending milestone at index.
func (t *Tracker) DismissMilestone(index int) (progression.Milestone, error) {
	if index < 0 || index >= len(t.milestones) {
		return progression.Milestone{}, ErrIndexOutOfRange
	}
	m := t.milestones[index]
	t.milestones = append(t.milestones[:index], t.milestones[index+1:]...)
	return m, nil
}

// DismissUnlock removes the pending unlock at index.
func (t *Tracker) DismissUnlock(index int) (progression.Unlock, error) {
	if index < 0 || index >= len(t.unlocks) {
		return progression.Unlock{}, ErrIndexOutOfRange
	}
	u := t.unlocks[index]
	t.unlocks = append(t.unlocks[:index], t.unlocks[index+1:]...)
	return u, nil
}

// TraitLevel returns the level of the named trait in the current snapshot.
// Unknown traits read as 0.
func (t *Tracker) TraitLevel(name string) trait.LevelInfo {
	return trait.LevelOf(t.current[name])
}

// NextMilestone returns the milestone progress of the named trait.
func (t *Tracker) NextMilestone(name string) trait.Progress {
	return trait.ProgressToNextMilestone(t.current[name])
}

// Alignment summarizes the current snapshot.
func (t *Tracker) Alignment() trait.AlignmentSummary {
	return trait.BalanceOf(t.current)
}

// Trends summarizes the current trait changes.
func (t *Tracker) Trends() progression.Trends {
	return progression.TrendsOf(t.changes)
}
