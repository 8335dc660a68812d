package session

import (
	"errors"
	"fmt"
)

// Sentinel error kinds (stable for errors.Is and for mapping to API status codes).
var (
	// ErrInvalidInput is returned when required fields are missing or malformed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateEmail is returned when an account already owns the email.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidToken is returned when no session matches the presented token.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrSessionExpired is returned when the session expiry is at or before now.
	ErrSessionExpired = errors.New("session expired")

	// ErrNotFound is the store-level miss.
	ErrNotFound = errors.New("not found")

	// ErrConflict is the store-level unique violation.
	ErrConflict = errors.New("conflict")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)

// OpError is a typed operation error with a stable Op + Kind contract.
// Msg is safe to show to clients when Kind is ErrInvalidInput; it never carries secrets.
type OpError struct {
	Op   string
	Kind error
	Msg  string
}

func (e OpError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Msg)
}

func (e OpError) Unwrap() error { return e.Kind }

// ConflictError reports a uniqueness violation for a logical field ("email", "token").
type ConflictError struct {
	Op    string
	Field string
}

func (e ConflictError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", e.Op, ErrConflict)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, ErrConflict, e.Field)
}

func (e ConflictError) Unwrap() error { return ErrConflict }

// IsConflictOn reports whether err is a ConflictError for field.
func IsConflictOn(err error, field string) bool {
	var ce ConflictError
	return errors.As(err, &ce) && ce.Field == field
}

// InputMessage returns the client-facing validation message carried by err.
func InputMessage(err error) (string, bool) {
	var oe OpError
	if !errors.As(err, &oe) || !errors.Is(oe.Kind, ErrInvalidInput) || oe.Msg == "" {
		return "", false
	}
	return oe.Msg, true
}

func invalid(op, msg string) error {
	return OpError{Op: op, Kind: ErrInvalidInput, Msg: msg}
}
