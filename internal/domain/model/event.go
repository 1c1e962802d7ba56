// Package model contains the payloads passed between the ingest layers.
package model

import (
	"time"

	"github.com/okian/ethos/internal/domain/trait"
)

// SnapshotEvent is a trait snapshot pushed by the game backend for
// asynchronous application to a character's tracker.
type SnapshotEvent struct {
	EventID     string         // idempotency key
	CharacterID string         // tracker to apply the snapshot to
	Traits      trait.Snapshot // full snapshot, not a patch
	TS          time.Time      // when the backend produced it
}
