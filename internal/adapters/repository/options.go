package repository

import "github.com/okian/ethos/pkg/metrics"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMetrics records store latency and failures on m.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *MemoryStore) {
		s.metrics = m
	}
}
