package tracker

import "errors"

// Sentinel error kinds for this package.
var (
	ErrIndexOutOfRange = errors.New("notification index out of range")
)
