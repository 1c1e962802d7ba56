// Package notify keeps the most recent toasts raised for each character so
// clients can poll them.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/okian/ethos/internal/domain/tracker"
	"github.com/okian/ethos/pkg/logger"
	"github.com/okian/ethos/pkg/metrics"
)

const defaultHistory = 20

// Feed is a bounded per-character toast history. It implements
// tracker.Notifier and is safe for concurrent use.
type Feed struct {
	history int
	logger  logger.Logger
	metrics *metrics.Manager
	now     func() time.Time

	mu     sync.RWMutex
	toasts map[string][]tracker.Toast
}

var _ tracker.Notifier = (*Feed)(nil)

// NewFeed creates an empty feed.
func NewFeed(opts ...Option) *Feed {
	f := &Feed{
		history: defaultHistory,
		logger:  logger.Nop(),
		now:     time.Now,
		toasts:  make(map[string][]tracker.Toast),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Notify appends t to its character's history, dropping the oldest entry once
// the history is full.
func (f *Feed) Notify(ctx context.Context, t tracker.Toast) { //nolint:gocritic // hugeParam: Notifier signature
	if t.CreatedAt.IsZero() {
		t.CreatedAt = f.now()
	}

	f.mu.Lock()
	list := append(f.toasts[t.CharacterID], t)
	if over := len(list) - f.history; over > 0 {
		list = append(list[:0:0], list[over:]...)
	}
	f.toasts[t.CharacterID] = list
	f.mu.Unlock()

	f.metrics.RecordToast()
	f.logger.Debug(ctx, "toast",
		logger.String("characterID", t.CharacterID),
		logger.String("title", t.Title),
		logger.String("message", t.Message),
	)
}

// Recent returns up to n toasts for characterID, newest first. n <= 0 returns
// the whole history.
func (f *Feed) Recent(characterID string, n int) []tracker.Toast {
	f.mu.RLock()
	defer f.mu.RUnlock()

	list := f.toasts[characterID]
	if n <= 0 || n > len(list) {
		n = len(list)
	}
	out := make([]tracker.Toast, 0, n)
	for i := len(list) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, list[i])
	}
	return out
}

// Clear drops the history of characterID.
func (f *Feed) Clear(characterID string) {
	f.mu.Lock()
	delete(f.toasts, characterID)
	f.mu.Unlock()
}

// Len returns the number of toasts held for characterID.
func (f *Feed) Len(characterID string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.toasts[characterID])
}
