package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrUnknownCharacter = errors.New("unknown character")
	ErrInvalidSnapshot  = errors.New("invalid snapshot")
	ErrNotStarted       = errors.New("service not started")
)
