// Package app wires the astromatch auth server: config, logging, storage, HTTP routes and lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	authapi "astromatch/cmd/internal/auth/api"
	"astromatch/cmd/internal/auth/session"
	"astromatch/cmd/security/password"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Store is the app-level lifecycle abstraction for persistence resources.
type Store interface {
	session.Store
	Close(ctx context.Context) error
}

type memoryStore struct {
	*session.MemoryStore
}

func (memoryStore) Close(_ context.Context) error { return nil }

type dbStore struct {
	*session.PostgresStore
	pool *pgxpool.Pool
}

func (s dbStore) Close(_ context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// App owns the HTTP server and the dependencies behind it.
type App struct {
	cfg Config
	log Logger

	store     Store
	dbEnabled bool

	registry *prometheus.Registry
	sessions *session.Manager
	auth     *authapi.Handler
}

// New constructs a fully wired App from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("password config: %w", err)
	}

	st, dbEnabled, err := newStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	mgr, err := session.NewManager(sessCfg, st, pwCfg)
	if err != nil {
		_ = st.Close(ctx)
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// A DB-only deployment without a database answers auth requests with 503.
	var sessions authapi.Sessions = mgr
	if cfg.ReadinessRequireDB && !dbEnabled {
		log.Warn("auth.disabled", "reason", "db_required")
		sessions = nil
	}
	auth := authapi.NewHandler(log, sessions, authapi.LoadConfigFromEnv(), authapi.WithMetrics(authapi.NewMetrics(reg)))

	log.Info("auth.config",
		"session_ttl", sessCfg.SessionTTL.String(),
		"token_bytes", sessCfg.TokenBytes,
		"token_hmac", len(sessCfg.TokenHMACKey) > 0,
		"pbkdf2_iterations", pwCfg.Params.Iterations,
	)

	return &App{
		cfg:       cfg,
		log:       log,
		store:     st,
		dbEnabled: dbEnabled,
		registry:  reg,
		sessions:  mgr,
		auth:      auth,
	}, nil
}

// Handler returns the fully wired HTTP handler.
func (a *App) Handler() http.Handler {
	return newRouter(a.log, a.cfg, a.store, a.dbEnabled, a.registry, a.auth)
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start",
		"addr", a.cfg.HTTPAddr,
		"base_url", runtimeBaseURL(a.cfg.HTTPAddr),
		"db_enabled", a.dbEnabled,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		_ = a.store.Close(context.Background())
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if err := a.store.Close(shutdownCtx); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return nil
}

// runtimeBaseURL turns a listen address into a URL a local client can dial.
func runtimeBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(strings.TrimSpace(addr))
	if err != nil {
		return "http://" + addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// newStore decides between Postgres-backed persistence and the in-memory dev store.
func newStore(ctx context.Context, cfg Config, log Logger) (Store, bool, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return memoryStore{session.NewMemoryStore()}, false, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, false, err
	}

	if cfg.DBAutoMigrate {
		if err := Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, false, err
		}
		log.Info("db.migrated")
	}

	// app owns the pool lifecycle
	st, err := session.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, false, err
	}

	log.Info("db.enabled.postgres_store")
	return dbStore{PostgresStore: st, pool: pool}, true, nil
}
