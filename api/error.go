package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Error is the structured failure returned by the remote service. It carries
// enough for a caller to tell "retry later" (rate limited, transient server
// trouble) from "fatal for this request" (auth rejected, malformed request)
// from "fatal for this resource" (gone for good).
type Error struct {
	Code       int       // HTTP-style status code
	Message    string    // server-supplied message, if any
	RetryAfter time.Time // zero unless the server sent a rate-limit window
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: request failed with status %d", e.Code)
	}
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Code)
}

// RateLimited reports whether the server asked the client to back off.
func (e *Error) RateLimited() bool {
	return e.Code == http.StatusTooManyRequests
}

// AuthRejected reports whether the stored token was refused. These are never
// retried automatically; the caller must force re-authentication.
func (e *Error) AuthRejected() bool {
	return e.Code == http.StatusUnauthorized
}

// Gone reports whether the resource is permanently unavailable.
func (e *Error) Gone() bool {
	return e.Code == http.StatusGone || e.Code == http.StatusNotFound
}

// Temporary reports whether retrying the same request later may succeed.
func (e *Error) Temporary() bool {
	return e.RateLimited() || e.Code >= 500
}

// Backoff returns how long the caller should wait before retrying, derived
// from the server-supplied retry-after timestamp when present.
func (e *Error) Backoff(now time.Time) time.Duration {
	if !e.RetryAfter.IsZero() && e.RetryAfter.After(now) {
		return e.RetryAfter.Sub(now)
	}
	return 5 * time.Second
}

// AsError unwraps err into an *Error when the failure came from the remote
// service; ok is false for local/transport failures.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
