package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okian/ethos/internal/domain/progression"
)

// ToastKind classifies a toast.
type ToastKind string

// Toast kinds.
const (
	ToastMilestone ToastKind = "milestone"
)

// Toast is a user-facing notification raised by an observation.
type Toast struct {
	ID          string                 `json:"id"`
	CharacterID string                 `json:"character_id"`
	Kind        ToastKind              `json:"kind"`
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	Milestone   *progression.Milestone `json:"milestone,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// Notifier receives toasts. Implementations must not block for long; they are
// called while the tracker's owner holds its lock.
type Notifier interface {
	Notify(ctx context.Context, t Toast)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, t Toast)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, t Toast) { f(ctx, t) }

func milestoneToast(characterID string, m progression.Milestone, now time.Time) Toast {
	return Toast{
		ID:          uuid.NewString(),
		CharacterID: characterID,
		Kind:        ToastMilestone,
		Title:       "Milestone reached!",
		Message: fmt.Sprintf("%s reached %d (+%d XP, +%d credits)",
			m.Trait, m.Threshold, m.Rewards.XP, m.Rewards.Credits),
		Milestone: &m,
		CreatedAt: now,
	}
}
