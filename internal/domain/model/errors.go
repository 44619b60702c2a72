package model

import "errors"

// Sentinel kinds for domain errors.
var (
	ErrInvalidClockTime    = errors.New("invalid clock time, want HH:MM")
	ErrInvalidDate         = errors.New("invalid date, want YYYY-MM-DD or RFC3339")
	ErrValidation          = errors.New("validation failed")
	ErrAccessCodeInactive  = errors.New("access code is no longer active")
	ErrAccessCodeExpired   = errors.New("access code has expired")
	ErrAccessCodeExhausted = errors.New("access code has reached its maximum uses")
)
