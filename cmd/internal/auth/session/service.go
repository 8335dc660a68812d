package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"astromatch/cmd/security/password"
	"astromatch/cmd/security/token"
)

// Manager implements Register, Login and VerifyToken over a Store.
//
// It is safe for concurrent use; all shared state lives in the Store.
type Manager struct {
	cfg   Config
	store Store
	pw    password.Config
	keyer token.Keyer
	now   func() time.Time

	// dummySalt feeds one derivation on unknown-email logins.
	dummySalt string
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the wall clock (tests).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager constructs a Manager.
func NewManager(cfg Config, store Store, pw password.Config, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", ErrConfig)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	dummy, err := pw.NewSalt()
	if err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:       cfg,
		store:     store,
		pw:        pw,
		keyer:     token.NewKeyer(cfg.TokenHMACKey),
		now:       func() time.Time { return time.Now().UTC() },
		dummySalt: dummy,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// Ping reports whether the backing store is reachable.
func (m *Manager) Ping(ctx context.Context) error {
	return m.store.Ping(ctx)
}

// CanonicalEmail trims and lower-cases an email for lookup and storage.
func CanonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account with a placeholder profile, its credential and a first session.
func (m *Manager) Register(ctx context.Context, name, email, pw string) (Identity, error) {
	const op = "session.Register"

	email = CanonicalEmail(email)
	name = strings.TrimSpace(name)

	if email == "" || pw == "" {
		return Identity{}, invalid(op, "Email and password are required")
	}
	if err := password.ValidateEmail(email); err != nil {
		return Identity{}, invalid(op, "Invalid email address")
	}
	if err := m.pw.Validate(pw); err != nil {
		return Identity{}, invalid(op, passwordMessage(err))
	}

	exists, err := m.store.EmailExists(ctx, email)
	if err != nil {
		return Identity{}, err
	}
	if exists {
		return Identity{}, OpError{Op: op, Kind: ErrDuplicateEmail}
	}

	hash, salt, err := m.pw.Hash(pw)
	if err != nil {
		return Identity{}, err
	}

	now := m.now()
	tok, err := token.NewOpaque(m.cfg.TokenBytes)
	if err != nil {
		return Identity{}, fmt.Errorf("%s: token: %w", op, err)
	}
	expiresAt := now.Add(m.cfg.SessionTTL)

	id, err := m.store.CreateAccount(ctx, NewAccount{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Salt:         salt,
		Profile:      PlaceholderProfile(),
		TokenKey:     m.keyer.StorageKey(tok),
		ExpiresAt:    expiresAt,
		Now:          now,
	})
	if err != nil {
		// Lost a concurrent registration race on the unique constraint.
		if IsConflictOn(err, "email") {
			return Identity{}, OpError{Op: op, Kind: ErrDuplicateEmail}
		}
		return Identity{}, err
	}

	id.SessionToken = tok
	id.ExpiresAt = expiresAt
	return id, nil
}

// Login verifies credentials and issues a new session. Prior sessions stay valid.
//
// Unknown email and wrong password both return ErrInvalidCredentials.
func (m *Manager) Login(ctx context.Context, email, pw string) (Identity, error) {
	const op = "session.Login"

	email = CanonicalEmail(email)

	rec, err := m.store.CredentialsByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		// Spend the same derivation cost as a real check.
		_ = m.pw.Derive(pw, m.dummySalt)
		return Identity{}, OpError{Op: op, Kind: ErrInvalidCredentials}
	}
	if err != nil {
		return Identity{}, err
	}

	ok, err := m.pw.Verify(pw, rec.Salt, rec.PasswordHash)
	if err != nil {
		return Identity{}, fmt.Errorf("%s: account %d: %w", op, rec.AccountID, err)
	}
	if !ok {
		return Identity{}, OpError{Op: op, Kind: ErrInvalidCredentials}
	}

	now := m.now()
	tok, err := token.NewOpaque(m.cfg.TokenBytes)
	if err != nil {
		return Identity{}, fmt.Errorf("%s: token: %w", op, err)
	}
	expiresAt := now.Add(m.cfg.SessionTTL)

	if err := m.store.CreateSession(ctx, rec.AccountID, m.keyer.StorageKey(tok), expiresAt, now); err != nil {
		return Identity{}, err
	}

	return Identity{
		AccountID:    rec.AccountID,
		Name:         rec.Name,
		Email:        rec.Email,
		SessionToken: tok,
		ExpiresAt:    expiresAt,
	}, nil
}

// VerifyToken resolves a bearer token to its account.
// It fails with ErrSessionExpired once expires_at <= now and never extends expiry.
func (m *Manager) VerifyToken(ctx context.Context, tok string) (Identity, error) {
	const op = "session.VerifyToken"

	// Basic sanity bounds to avoid pathological inputs.
	if tok == "" || len(tok) > 4096 {
		return Identity{}, OpError{Op: op, Kind: ErrInvalidToken}
	}

	rec, err := m.store.SessionByToken(ctx, m.keyer.StorageKey(tok))
	if errors.Is(err, ErrNotFound) {
		return Identity{}, OpError{Op: op, Kind: ErrInvalidToken}
	}
	if err != nil {
		return Identity{}, err
	}

	if !rec.ExpiresAt.After(m.now()) {
		return Identity{}, OpError{Op: op, Kind: ErrSessionExpired}
	}

	return Identity{
		AccountID: rec.AccountID,
		Name:      rec.Name,
		Email:     rec.Email,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

func passwordMessage(err error) string {
	switch {
	case errors.Is(err, password.ErrPasswordTooShort):
		return "Password is too short"
	case errors.Is(err, password.ErrPasswordTooLong):
		return "Password is too long"
	case errors.Is(err, password.ErrWeakPassword):
		return "Password is too weak"
	default:
		return "Invalid password"
	}
}
