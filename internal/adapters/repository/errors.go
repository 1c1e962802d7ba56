package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound         = errors.New("character not found")
	ErrEmptyCharacterID = errors.New("empty character id")
)
