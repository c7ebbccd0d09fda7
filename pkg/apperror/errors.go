// Package apperror is the error vocabulary shared by the chat services.
// Services wrap these sentinels with fmt.Errorf("...: %w", ...) and the
// response helpers translate them to HTTP statuses at the handler boundary.
package apperror

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound also covers ownership violations: a notification,
	// conversation or message belonging to someone else is reported as
	// missing, never as forbidden.
	ErrNotFound          = errors.New("resource not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrBadRequest        = errors.New("bad request")
	ErrInternal          = errors.New("internal server error")
	ErrInvalidInput      = errors.New("invalid input")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// MapErrorToStatus resolves the HTTP status for an error wrapping one of the
// sentinels. Anything unrecognized is an internal error.
func MapErrorToStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrInvalidInput) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrRateLimitExceeded) {
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}
