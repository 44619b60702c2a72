package service

import (
	"errors"

	"github.com/okian/stork/internal/adapters/repository"
	"github.com/okian/stork/internal/domain/model"
)

// Sentinel kinds for service errors.
var (
	ErrSubmissionsLocked = errors.New("submissions are currently closed")
	ErrForbidden         = errors.New("admin access required")
	ErrNoActualResult    = errors.New("actual results not entered yet")
	ErrMissingEmail      = errors.New("email is required")
	ErrMissingToken      = errors.New("token is required")
	ErrMissingCode       = errors.New("access code is required")
	ErrEmptyPatch        = errors.New("no fields to update")
	ErrMailUnavailable   = errors.New("verification email could not be queued")

	// Re-exported so callers need not import the lower layers.
	ErrValidation   = model.ErrValidation
	ErrNotFound     = repository.ErrNotFound
	ErrTokenExpired = repository.ErrTokenExpired
)
