// Package chaterr defines the error taxonomy shared by the stores, the
// transport gateway and the HTTP layer. Callers classify failures with
// errors.Is against these sentinels; wrapping adds context with %w.
package chaterr

import (
	"errors"
	"net/http"
)

var (
	// ErrAuthentication means the presented credential is missing,
	// malformed or expired. The connection or request is refused.
	ErrAuthentication = errors.New("authentication failed")

	// ErrAuthorization means the actor's role does not permit the
	// requested room or action.
	ErrAuthorization = errors.New("not permitted")

	// ErrNotFound means the room, message or order does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict means an open room already exists for the pair.
	ErrConflict = errors.New("already exists")

	// ErrValidation means the request payload is unusable (empty
	// content, missing negotiation fields).
	ErrValidation = errors.New("invalid input")

	// ErrAlreadyClosed means close was called on a terminal room. The
	// terminal state is still returned alongside it so duplicate
	// closes stay harmless.
	ErrAlreadyClosed = errors.New("room already closed")

	// ErrTransient means the persistence layer is unreachable; the
	// operation is safe to retry.
	ErrTransient = errors.New("storage unavailable")

	// ErrRateLimited means the actor exceeded the send rate window.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// HTTPStatus maps a taxonomy error to an HTTP status code. Unclassified
// errors map to 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrAlreadyClosed):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrTransient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
