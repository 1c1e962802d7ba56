package worker

import (
	"github.com/okian/ethos/pkg/logger"
	"github.com/okian/ethos/pkg/metrics"
)

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithLogger sets the pool logger; workers derive named children from it.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics reports worker latency and failures to m.
func WithMetrics(m *metrics.Manager) Option {
	return func(p *Pool) {
		p.metrics = m
	}
}

// WithLaneBuffer sets how many events may wait on each worker.
func WithLaneBuffer(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.laneBuffer = n
		}
	}
}
