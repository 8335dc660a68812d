package authapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"astromatch/cmd/internal/auth/session"

	"github.com/go-chi/chi/v5"
)

// Sessions is the account/session surface the HTTP layer needs.
// *session.Manager implements it.
type Sessions interface {
	Register(ctx context.Context, name, email, password string) (session.Identity, error)
	Login(ctx context.Context, email, password string) (session.Identity, error)
	VerifyToken(ctx context.Context, token string) (session.Identity, error)
}

// Handler wires HTTP auth endpoints to the session manager.
type Handler struct {
	log      *slog.Logger
	cfg      Config
	sessions Sessions
	limiter  *ipLimiter
	metrics  *Metrics
	now      func() time.Time
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) HandlerOption {
	return func(h *Handler) {
		if h == nil || m == nil {
			return
		}
		h.metrics = m
	}
}

// WithClock overrides the clock used by the rate limiter (tests).
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if h == nil || now == nil {
			return
		}
		h.now = now
	}
}

// NewHandler constructs an auth Handler. If sessions is nil, endpoints return 503.
func NewHandler(log *slog.Logger, sessions Sessions, cfg Config, opts ...HandlerOption) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		sessions: sessions,
		limiter:  newIPLimiter(cfg.RatePerSec, cfg.RateBurst),
		now:      func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}

	return h
}

// Routes wires auth routes onto r.
func (h *Handler) Routes(r chi.Router) {
	if h == nil || r == nil {
		return
	}
	me := h.RequireSession(http.HandlerFunc(h.handleMe))

	r.HandleFunc("/auth", h.handleAuth)
	r.HandleFunc("/auth/me", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
			return
		}
		me.ServeHTTP(w, req)
	})
}

// ---- handlers ----

func (h *Handler) handleAuth(w http.ResponseWriter, r *http.Request) {
	start := h.now()

	if r.Method != http.MethodPost {
		h.fail(w, r, "", errUnsupportedOperation, start)
		return
	}
	if h.sessions == nil {
		writeError(w, http.StatusServiceUnavailable, msgUnavailable)
		h.metrics.observe("", "unavailable", h.now().Sub(start))
		return
	}

	var req authRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		h.metrics.observe("", "bad_request", h.now().Sub(start))
		return
	}

	action := strings.TrimSpace(req.Action)
	ctx := r.Context()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := r.UserAgent()

	switch action {
	case actionRegister, actionLogin:
		if ok, retryAfter := h.limiter.allow(ip, start); !ok {
			h.auditRateLimited(ctx, action, ip, ua)
			writeRateLimited(w, retryAfter)
			h.metrics.observe(action, "rate_limited", h.now().Sub(start))
			return
		}
	}

	switch action {
	case actionRegister:
		id, err := h.sessions.Register(ctx, req.Name, req.Email, req.Password)
		if err != nil {
			h.fail(w, r, action, err, start)
			return
		}
		h.auditRegister(ctx, id.AccountID, ip, ua)
		h.ok(w, action, toSessionResponse(id), start)

	case actionLogin:
		id, err := h.sessions.Login(ctx, req.Email, req.Password)
		if err != nil {
			h.auditLoginFailed(ctx, ip, ua)
			h.fail(w, r, action, err, start)
			return
		}
		h.auditLoginSuccess(ctx, id.AccountID, ip, ua)
		h.ok(w, action, toSessionResponse(id), start)

	case actionVerifyToken:
		// Body tokens are matched exactly, surrounding whitespace included.
		tok := req.SessionToken
		if tok == "" {
			tok = requestToken(r)
		}
		id, err := h.sessions.VerifyToken(ctx, tok)
		if err != nil {
			h.fail(w, r, action, err, start)
			return
		}
		h.ok(w, action, toIdentityResponse(id), start)

	default:
		h.fail(w, r, "", errUnsupportedOperation, start)
	}
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	start := h.now()

	id, ok := IdentityFromContext(r.Context())
	if !ok {
		h.fail(w, r, "me", session.ErrInvalidToken, start)
		return
	}
	h.ok(w, "me", toIdentityResponse(id), start)
}

// ---- middleware ----

type identityCtxKey struct{}

// RequireSession verifies the request's session token (X-Auth-Token or Bearer)
// and stores the resolved identity in the request context.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.sessions == nil {
			writeError(w, http.StatusServiceUnavailable, msgUnavailable)
			return
		}

		id, err := h.sessions.VerifyToken(r.Context(), requestToken(r))
		if err != nil {
			h.fail(w, r, "me", err, h.now())
			return
		}

		ctx := context.WithValue(r.Context(), identityCtxKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentityFromContext returns the identity stored by RequireSession.
func IdentityFromContext(ctx context.Context) (session.Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(session.Identity)
	return id, ok
}

// ---- helpers ----

func (h *Handler) ok(w http.ResponseWriter, action string, body any, start time.Time) {
	writeJSON(w, http.StatusOK, body)
	h.metrics.observe(action, "ok", h.now().Sub(start))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, action string, err error, start time.Time) {
	status, msg, outcome := classify(err)
	if status >= http.StatusInternalServerError {
		event := "auth.fail"
		if action != "" {
			event = "auth." + action + ".fail"
		}
		h.log.ErrorContext(r.Context(), event, "err", err)
	}
	writeError(w, status, msg)
	h.metrics.observe(action, outcome, h.now().Sub(start))
}
