package api

import (
	"errors"
	"net/http"

	service "github.com/okian/stork/internal/app"
	"github.com/okian/stork/internal/domain/model"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrRateLimited = errors.New("too many requests")
)

// Error tags a failure with the handler operation and an optional kind.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Kind != nil:
		return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Op + ": " + e.Err.Error()
	case e.Kind != nil:
		return e.Op + ": " + e.Kind.Error()
	default:
		return e.Op
	}
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind returns an error of kind raised by op.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// Wrap tags err with op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// WrapKind tags err with op and kind.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return NewKind(op, kind)
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// message is what the client sees. Kinds carry the detail for bad requests,
// so the cause is shown; server errors are not described.
func message(status int, err error) string {
	if status >= http.StatusInternalServerError {
		return http.StatusText(status)
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Err != nil {
			return apiErr.Err.Error()
		}
		if apiErr.Kind != nil {
			return apiErr.Kind.Error()
		}
	}
	return err.Error()
}

// classify maps an error to its HTTP status and response code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, service.ErrTokenExpired):
		return http.StatusBadRequest, "token_expired"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrMissingEmail),
		errors.Is(err, service.ErrMissingToken),
		errors.Is(err, service.ErrMissingCode),
		errors.Is(err, service.ErrEmptyPatch):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrSubmissionsLocked):
		return http.StatusForbidden, "submissions_locked"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, model.ErrAccessCodeInactive),
		errors.Is(err, model.ErrAccessCodeExpired),
		errors.Is(err, model.ErrAccessCodeExhausted):
		return http.StatusForbidden, "access_code_rejected"
	case errors.Is(err, service.ErrNoActualResult), errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrMailUnavailable):
		return http.StatusServiceUnavailable, "mail_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
