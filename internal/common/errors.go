package common

import "errors"

var (
	// Local state that cannot be decoded (corrupted or written by another version).
	ErrorCorruptedState = errors.New("corrupted local state")

	// Sealed storage errors.
	ErrInvalidKey = errors.New("invalid storage key")
)
