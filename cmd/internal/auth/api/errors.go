package authapi

import (
	"errors"
	"net/http"

	"astromatch/cmd/internal/auth/session"
)

// errUnsupportedOperation covers a wrong HTTP method or an unknown action.
var errUnsupportedOperation = errors.New("unsupported operation")

// Client-facing messages.
const (
	msgDuplicateEmail     = "Email already registered"
	msgInvalidCredentials = "Invalid email or password"
	msgInvalidToken       = "Invalid session token"
	msgSessionExpired     = "Session expired"
	msgMethodNotAllowed   = "Method not allowed"
	msgInvalidBody        = "Invalid request body"
	msgTooManyRequests    = "Too many requests"
	msgUnavailable        = "Service unavailable"
	msgInternal           = "Internal server error"
)

// classify maps an error to (status, message, metrics outcome).
// Unknown errors map to 500 without detail.
func classify(err error) (int, string, string) {
	if msg, ok := session.InputMessage(err); ok {
		return http.StatusBadRequest, msg, "invalid_input"
	}

	switch {
	case errors.Is(err, session.ErrDuplicateEmail):
		return http.StatusBadRequest, msgDuplicateEmail, "duplicate_email"
	case errors.Is(err, session.ErrInvalidCredentials):
		return http.StatusUnauthorized, msgInvalidCredentials, "invalid_credentials"
	case errors.Is(err, session.ErrInvalidToken):
		return http.StatusUnauthorized, msgInvalidToken, "invalid_token"
	case errors.Is(err, session.ErrSessionExpired):
		return http.StatusUnauthorized, msgSessionExpired, "session_expired"
	case errors.Is(err, errUnsupportedOperation):
		return http.StatusMethodNotAllowed, msgMethodNotAllowed, "unsupported"
	case errors.Is(err, session.ErrInvalidInput):
		return http.StatusBadRequest, msgInvalidBody, "invalid_input"
	default:
		return http.StatusInternalServerError, msgInternal, "error"
	}
}
