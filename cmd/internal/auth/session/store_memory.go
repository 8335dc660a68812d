package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for dev mode (no database) and tests.
// Data is lost on restart.
type MemoryStore struct {
	mu sync.RWMutex

	nextID   int64
	accounts map[int64]memAccount
	byEmail  map[string]int64
	sessions map[string]memSession
}

type memAccount struct {
	name         string
	email        string
	passwordHash string
	salt         string
	profile      Profile
	createdAt    time.Time
}

type memSession struct {
	accountID int64
	expiresAt time.Time
	createdAt time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[int64]memAccount),
		byEmail:  make(map[string]int64),
		sessions: make(map[string]memSession),
	}
}

func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemoryStore) EmailExists(ctx context.Context, email string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byEmail[email]
	return ok, nil
}

func (s *MemoryStore) CreateAccount(ctx context.Context, in NewAccount) (Identity, error) {
	const op = "session.CreateAccount"
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[in.Email]; ok {
		return Identity{}, ConflictError{Op: op, Field: "email"}
	}
	if _, ok := s.sessions[in.TokenKey]; ok {
		return Identity{}, ConflictError{Op: op, Field: "token"}
	}

	s.nextID++
	id := s.nextID
	s.accounts[id] = memAccount{
		name:         in.Name,
		email:        in.Email,
		passwordHash: in.PasswordHash,
		salt:         in.Salt,
		profile:      in.Profile,
		createdAt:    in.Now,
	}
	s.byEmail[in.Email] = id
	s.sessions[in.TokenKey] = memSession{accountID: id, expiresAt: in.ExpiresAt, createdAt: in.Now}

	return Identity{AccountID: id, Name: in.Name, Email: in.Email}, nil
}

func (s *MemoryStore) CredentialsByEmail(ctx context.Context, email string) (CredentialRecord, error) {
	const op = "session.CredentialsByEmail"
	if err := ctx.Err(); err != nil {
		return CredentialRecord{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return CredentialRecord{}, OpError{Op: op, Kind: ErrNotFound}
	}
	a := s.accounts[id]
	return CredentialRecord{
		AccountID:    id,
		Name:         a.name,
		Email:        a.email,
		PasswordHash: a.passwordHash,
		Salt:         a.salt,
	}, nil
}

func (s *MemoryStore) CreateSession(ctx context.Context, accountID int64, tokenKey string, expiresAt, now time.Time) error {
	const op = "session.CreateSession"
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[accountID]; !ok {
		return OpError{Op: op, Kind: ErrNotFound, Msg: "account"}
	}
	if _, ok := s.sessions[tokenKey]; ok {
		return ConflictError{Op: op, Field: "token"}
	}
	s.sessions[tokenKey] = memSession{accountID: accountID, expiresAt: expiresAt, createdAt: now}
	return nil
}

func (s *MemoryStore) SessionByToken(ctx context.Context, tokenKey string) (SessionRecord, error) {
	const op = "session.SessionByToken"
	if err := ctx.Err(); err != nil {
		return SessionRecord{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[tokenKey]
	if !ok {
		return SessionRecord{}, OpError{Op: op, Kind: ErrNotFound}
	}
	a := s.accounts[sess.accountID]
	return SessionRecord{
		AccountID: sess.accountID,
		Name:      a.name,
		Email:     a.email,
		ExpiresAt: sess.expiresAt,
	}, nil
}
