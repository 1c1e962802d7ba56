package config

import "errors"

var (
	// ErrInvalidConfig marks a configuration that loaded but cannot run the service.
	ErrInvalidConfig = errors.New("invalid ethos config")
	// ErrLoadConfig marks a failure reading the config file or environment.
	ErrLoadConfig = errors.New("cannot load ethos config")
)
