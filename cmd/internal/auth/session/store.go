package session

import (
	"context"
	"time"
)

// Profile holds the astrology profile fields stored on an account.
type Profile struct {
	BirthDate  string // YYYY-MM-DD
	BirthTime  string // HH:MM:SS
	BirthCity  string
	ZodiacSign string
}

// PlaceholderProfile is written at registration; a later profile update refines it.
func PlaceholderProfile() Profile {
	return Profile{
		BirthDate:  "2000-01-01",
		BirthTime:  "12:00:00",
		BirthCity:  "Unknown",
		ZodiacSign: "Неизвестно",
	}
}

// Identity is the account view returned by Manager operations.
// SessionToken and ExpiresAt are set only by Register and Login.
type Identity struct {
	AccountID    int64
	Name         string
	Email        string
	SessionToken string
	ExpiresAt    time.Time
}

// NewAccount is the full write set for a registration.
type NewAccount struct {
	Name         string
	Email        string
	PasswordHash string
	Salt         string
	Profile      Profile

	// TokenKey is the value stored in sessions.token.
	TokenKey  string
	ExpiresAt time.Time
	Now       time.Time
}

// CredentialRecord is an account joined with its credential row.
type CredentialRecord struct {
	AccountID    int64
	Name         string
	Email        string
	PasswordHash string
	Salt         string
}

// SessionRecord is a session joined with its owning account.
type SessionRecord struct {
	AccountID int64
	Name      string
	Email     string
	ExpiresAt time.Time
}

// Store abstracts persistence for accounts, credentials and sessions.
//
// Implementations must make CreateAccount atomic: an account without its
// credential and first session is never observable.
type Store interface {
	// EmailExists reports whether an account owns the (canonical) email.
	EmailExists(ctx context.Context, email string) (bool, error)

	// CreateAccount inserts account, credential and session in one unit.
	// A duplicate email yields ConflictError{Field: "email"}.
	CreateAccount(ctx context.Context, in NewAccount) (Identity, error)

	// CredentialsByEmail loads the credential for email or returns ErrNotFound.
	CredentialsByEmail(ctx context.Context, email string) (CredentialRecord, error)

	// CreateSession inserts a session for an existing account.
	CreateSession(ctx context.Context, accountID int64, tokenKey string, expiresAt, now time.Time) error

	// SessionByToken loads the session by exact token key match or returns ErrNotFound.
	SessionByToken(ctx context.Context, tokenKey string) (SessionRecord, error)

	// Ping checks backend reachability.
	Ping(ctx context.Context) error
}
