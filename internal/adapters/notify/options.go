package notify

import (
	"time"

	"github.com/okian/ethos/pkg/logger"
	"github.com/okian/ethos/pkg/metrics"
)

// Option applies a configuration option to the Feed.
type Option func(*Feed)

// WithHistory caps the toasts kept per character.
func WithHistory(n int) Option {
	return func(f *Feed) {
		if n > 0 {
			f.history = n
		}
	}
}

// WithLogger sets the feed logger.
func WithLogger(l logger.Logger) Option {
	return func(f *Feed) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithMetrics counts delivered toasts on m.
func WithMetrics(m *metrics.Manager) Option {
	return func(f *Feed) {
		f.metrics = m
	}
}

// WithClock overrides the time source used to stamp toasts that arrive
// without a creation time.
func WithClock(now func() time.Time) Option {
	return func(f *Feed) {
		if now != nil {
			f.now = now
		}
	}
}
