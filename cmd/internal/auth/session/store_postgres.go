package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

// PostgresStore implements Store over PostgreSQL (astro.accounts, astro.credentials, astro.sessions).
//
// The pgx pool is owned by the caller; this store never closes it.
// Schema/table identifiers are quoted via pgx.Identifier.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema (default "astro").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("session: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("session: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: "astro"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("session: nil pool")
	}
	return st, nil
}

// Ping checks the pool.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EmailExists reports whether an account owns email.
func (s *PostgresStore) EmailExists(ctx context.Context, email string) (bool, error) {
	const op = "session.EmailExists"

	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+s.ident("accounts")+` WHERE email = $1)`,
		email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// CreateAccount inserts the account, its credential and the first session in one transaction.
func (s *PostgresStore) CreateAccount(ctx context.Context, in NewAccount) (Identity, error) {
	const op = "session.CreateAccount"

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO `+s.ident("accounts")+` (
		     name, email, birth_date, birth_time, birth_city, zodiac_sign, created_at
		   ) VALUES ($1, $2, $3::text::date, $4::text::time, $5, $6, $7)
		   RETURNING id`,
		in.Name,
		in.Email,
		in.Profile.BirthDate,
		in.Profile.BirthTime,
		in.Profile.BirthCity,
		in.Profile.ZodiacSign,
		now,
	).Scan(&id)
	if err != nil {
		return Identity{}, s.mapWriteErr(op, err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO `+s.ident("credentials")+` (account_id, password_hash, salt, created_at)
		 VALUES ($1, $2, $3, $4)`,
		id, in.PasswordHash, in.Salt, now,
	)
	if err != nil {
		return Identity{}, s.mapWriteErr(op, err)
	}

	if err := insertSession(ctx, tx, s.ident("sessions"), id, in.TokenKey, in.ExpiresAt, now); err != nil {
		return Identity{}, s.mapWriteErr(op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Identity{}, s.mapWriteErr(op, err)
	}

	return Identity{AccountID: id, Name: in.Name, Email: in.Email}, nil
}

// CredentialsByEmail loads the account + credential pair for email.
func (s *PostgresStore) CredentialsByEmail(ctx context.Context, email string) (CredentialRecord, error) {
	const op = "session.CredentialsByEmail"

	var rec CredentialRecord
	err := s.pool.QueryRow(ctx,
		`SELECT a.id, a.name, a.email, c.password_hash, c.salt
		   FROM `+s.ident("accounts")+` a
		   JOIN `+s.ident("credentials")+` c ON c.account_id = a.id
		  WHERE a.email = $1`,
		email,
	).Scan(&rec.AccountID, &rec.Name, &rec.Email, &rec.PasswordHash, &rec.Salt)
	if errors.Is(err, pgx.ErrNoRows) {
		return CredentialRecord{}, OpError{Op: op, Kind: ErrNotFound}
	}
	if err != nil {
		return CredentialRecord{}, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

// CreateSession inserts a session row for accountID.
func (s *PostgresStore) CreateSession(ctx context.Context, accountID int64, tokenKey string, expiresAt, now time.Time) error {
	const op = "session.CreateSession"

	if now.IsZero() {
		now = time.Now().UTC()
	}
	if err := insertSession(ctx, s.pool, s.ident("sessions"), accountID, tokenKey, expiresAt, now); err != nil {
		return s.mapWriteErr(op, err)
	}
	return nil
}

// SessionByToken loads a session joined to its account by exact token match.
func (s *PostgresStore) SessionByToken(ctx context.Context, tokenKey string) (SessionRecord, error) {
	const op = "session.SessionByToken"

	var rec SessionRecord
	err := s.pool.QueryRow(ctx,
		`SELECT a.id, a.name, a.email, s.expires_at
		   FROM `+s.ident("sessions")+` s
		   JOIN `+s.ident("accounts")+` a ON a.id = s.account_id
		  WHERE s.token = $1`,
		tokenKey,
	).Scan(&rec.AccountID, &rec.Name, &rec.Email, &rec.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SessionRecord{}, OpError{Op: op, Kind: ErrNotFound}
	}
	if err != nil {
		return SessionRecord{}, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertSession(ctx context.Context, db execer, table string, accountID int64, tokenKey string, expiresAt, now time.Time) error {
	_, err := db.Exec(ctx,
		`INSERT INTO `+table+` (id, account_id, token, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		ulid.Make().String(), accountID, tokenKey, expiresAt, now,
	)
	return err
}

func (s *PostgresStore) ident(name string) string {
	return pgx.Identifier{s.schema, name}.Sanitize()
}

func (s *PostgresStore) mapWriteErr(op string, err error) error {
	if field, ok := pgClassifyUniqueViolation(err); ok {
		return ConflictError{Op: op, Field: field}
	}
	if pgIsForeignKeyViolation(err) {
		return OpError{Op: op, Kind: ErrNotFound, Msg: "account"}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func pgIsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23503" // foreign_key_violation
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	// Prefer stable constraint names; fall back to substring matching.
	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))
	switch c {
	case "uq_accounts_email":
		return "email", true
	case "uq_sessions_token":
		return "token", true
	default:
		switch {
		case strings.Contains(c, "email"):
			return "email", true
		case strings.Contains(c, "token"):
			return "token", true
		default:
			return "", true
		}
	}
}
