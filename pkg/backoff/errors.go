// Package backoff defines error types
package backoff

import "errors"

// Predefined errors
var (
	// ErrInvalidJitter indicates a jitter fraction outside [0, 1]
	ErrInvalidJitter = errors.New("jitter must be between 0 and 1")

	// ErrInvalidDuration indicates a negative min or max duration
	ErrInvalidDuration = errors.New("duration must not be negative")
)
