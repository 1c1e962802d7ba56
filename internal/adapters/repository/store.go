// Package repository persists per-character tracker state.
package repository

import (
	"context"
	"time"

	"github.com/okian/ethos/internal/domain/trait"
)

// CharacterState is the durable part of a tracker. Milestone and unlock
// queues are not stored.
type CharacterState struct {
	CharacterID string         `json:"character_id"`
	Baseline    trait.Snapshot `json:"baseline"`
	Current     trait.Snapshot `json:"current"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Store provides read/write access to character state.
type Store interface {
	// Get returns the state of characterID or ErrNotFound.
	Get(ctx context.Context, characterID string) (CharacterState, error)

	// Put inserts or replaces the state of state.CharacterID.
	Put(ctx context.Context, state CharacterState) error

	// Delete removes characterID. Deleting an unknown id returns ErrNotFound.
	Delete(ctx context.Context, characterID string) error

	// Count returns the number of stored characters.
	Count(ctx context.Context) (int, error)

	Close() error
}
