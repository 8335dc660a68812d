package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io/fs"
	"net"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"astromatch/cmd/internal/migrations"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests are enabled when ASTRO_DATABASE_URL is set.
// Each test runs in its own schema built from the embedded migration.
// In non-CI runs, unreachable Postgres skips these tests to keep local runs fast.

func TestPostgresStore_RegisterLoginVerify(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool, store := mustIsolatedStore(ctx, t)

	now := time.Now().UTC().Truncate(time.Microsecond)
	m, err := NewManager(DefaultConfig(), store, testPasswordConfig(), WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	reg, err := m.Register(ctx, "Ann", "ann@x.com", "pw123")
	require.NoError(t, err)
	require.Positive(t, reg.AccountID)

	_, err = m.Register(ctx, "Ann", "ann@x.com", "pw123")
	require.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = m.Login(ctx, "ann@x.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	login, err := m.Login(ctx, "ann@x.com", "pw123")
	require.NoError(t, err)
	require.NotEqual(t, reg.SessionToken, login.SessionToken)

	who, err := m.VerifyToken(ctx, login.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, reg.AccountID, who.AccountID)
	assert.Equal(t, "Ann", who.Name)
	assert.True(t, who.ExpiresAt.Equal(now.Add(30*24*time.Hour)))

	_, err = m.VerifyToken(ctx, "garbage")
	require.ErrorIs(t, err, ErrInvalidToken)

	var birthCity, zodiac, birthDate, birthTime string
	err = pool.QueryRow(ctx,
		`SELECT birth_city, zodiac_sign, birth_date::text, birth_time::text FROM `+store.ident("accounts")+` WHERE id = $1`,
		reg.AccountID,
	).Scan(&birthCity, &zodiac, &birthDate, &birthTime)
	require.NoError(t, err)
	assert.Equal(t, PlaceholderProfile(), Profile{BirthDate: birthDate, BirthTime: birthTime, BirthCity: birthCity, ZodiacSign: zodiac})

	var sessions int
	err = pool.QueryRow(ctx, `SELECT count(*) FROM `+store.ident("sessions")+` WHERE account_id = $1`, reg.AccountID).Scan(&sessions)
	require.NoError(t, err)
	assert.Equal(t, 2, sessions)
}

func TestPostgresStore_CreateAccount_DuplicateEmailIsConflict(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool, store := mustIsolatedStore(ctx, t)

	in := NewAccount{
		Name:         "Ann",
		Email:        "ann@x.com",
		PasswordHash: strings.Repeat("a", 64),
		Salt:         strings.Repeat("b", 32),
		Profile:      PlaceholderProfile(),
		TokenKey:     "tok-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	_, err := store.CreateAccount(ctx, in)
	require.NoError(t, err)

	in.TokenKey = "tok-2"
	_, err = store.CreateAccount(ctx, in)
	require.True(t, IsConflictOn(err, "email"), "got %v", err)

	// The failed transaction left nothing behind.
	var creds, sessions int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM `+store.ident("credentials")).Scan(&creds))
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM `+store.ident("sessions")).Scan(&sessions))
	assert.Equal(t, 1, creds)
	assert.Equal(t, 1, sessions)
}

func TestPostgresStore_CreateSession_UnknownAccount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, store := mustIsolatedStore(ctx, t)

	err := store.CreateSession(ctx, 424242, "tok", time.Now().Add(time.Hour), time.Now())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_ConcurrentRegisterSameEmail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool, store := mustIsolatedStore(ctx, t)

	m, err := NewManager(DefaultConfig(), store, testPasswordConfig())
	require.NoError(t, err)

	const n = 6
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		oks  int
		dups int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Register(ctx, "Ann", "race@x.com", "pw123")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				oks++
			case errors.Is(err, ErrDuplicateEmail):
				dups++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, oks)
	assert.Equal(t, n-1, dups)

	var accounts, creds int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM `+store.ident("accounts")).Scan(&accounts))
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM `+store.ident("credentials")).Scan(&creds))
	assert.Equal(t, 1, accounts)
	assert.Equal(t, 1, creds)
}

func mustIsolatedStore(ctx context.Context, t *testing.T) (*pgxpool.Pool, *PostgresStore) {
	t.Helper()

	dbURL := os.Getenv("ASTRO_DATABASE_URL")
	if dbURL == "" {
		t.Skip("ASTRO_DATABASE_URL is not set; skipping Postgres integration test")
	}

	pool := mustPGXPool(ctx, t, dbURL)
	t.Cleanup(pool.Close)

	schema := "astro_it_" + randomHex(t, 6)
	for _, stmt := range migrationUpStatements(t, schema) {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("apply migration in %s: %v\n%s", schema, err, stmt)
		}
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DROP SCHEMA IF EXISTS `+pgx.Identifier{schema}.Sanitize()+` CASCADE`)
	})

	store, err := NewPostgresStore(pool, WithSchema(schema))
	require.NoError(t, err)
	return pool, store
}

// migrationUpStatements returns the goose Up section of the init migration retargeted at schema.
func migrationUpStatements(t *testing.T, schema string) []string {
	t.Helper()

	b, err := fs.ReadFile(migrations.FS, "00001_init.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	up, _, ok := strings.Cut(string(b), "-- +goose Down")
	if !ok {
		t.Fatalf("migration has no Down marker")
	}
	up = strings.Replace(up, "-- +goose Up", "", 1)
	up = strings.ReplaceAll(up, "astro", schema)

	var out []string
	for _, stmt := range strings.Split(up, ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func mustPGXPool(ctx context.Context, t *testing.T, dbURL string) *pgxpool.Pool {
	t.Helper()

	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		t.Fatalf("pgxpool.ParseConfig: %v", err)
	}

	cfg.MaxConns = 8
	cfg.MinConns = 0
	cfg.MaxConnLifetime = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("pgxpool.NewWithConfig: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		if shouldSkipIntegration(err) {
			t.Skipf("integration test skipped: Postgres unreachable (ASTRO_DATABASE_URL set): %v", err)
		}
		t.Fatalf("pool.Ping: %v", err)
	}

	return pool
}

func shouldSkipIntegration(err error) bool {
	if err == nil {
		return false
	}
	if os.Getenv("CI") != "" {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "dial tcp") ||
		strings.Contains(msg, "no such host") {
		return true
	}
	return false
}

func randomHex(t *testing.T, n int) string {
	t.Helper()

	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand: %v", err)
	}
	return hex.EncodeToString(b)
}
