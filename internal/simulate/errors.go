package simulate

import "errors"

var (
	// ErrInvalidConfig is returned when a Config cannot drive a run.
	ErrInvalidConfig = errors.New("invalid simulation config")
	// ErrUnhealthy is returned when the service does not answer its health probe.
	ErrUnhealthy = errors.New("service unhealthy")
	// ErrMismatch is returned when a character's server-side state disagrees
	// with the locally replayed expectation.
	ErrMismatch = errors.New("state mismatch")
)
