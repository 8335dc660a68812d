package app

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

const (
	corsAllowMethods = "GET, POST, OPTIONS"
	corsAllowHeaders = "Content-Type, X-Auth-Token, Authorization"
)

// WithRequestLogging logs one http.request event per request, levelled by status class.
func WithRequestLogging(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level, result := requestLogMeta(status)

		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("status_class", statusClass(status)),
			slog.String("result", result),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.String("remote", r.RemoteAddr),
		}
		if id := middleware.GetReqID(r.Context()); id != "" {
			attrs = append(attrs, slog.String("request_id", id))
		}
		log.LogAttrs(context.Background(), level, "http.request", attrs...)
	})
}

func requestLogMeta(status int) (slog.Level, string) {
	switch {
	case status >= 500:
		return slog.LevelError, "server_error"
	case status >= 400:
		return slog.LevelWarn, "client_error"
	case status >= 300:
		return slog.LevelInfo, "redirect"
	default:
		return slog.LevelInfo, "success"
	}
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

// WithCORS answers every OPTIONS request with 200 and an empty body, and
// decorates other responses with the allow-origin header.
// A preflight from an origin outside cfg.CORSAllowedOrigins still gets 200 but no
// allow-origin header; other requests from such an origin are rejected with 403.
func WithCORS(next http.Handler, cfg Config, log *slog.Logger) http.Handler {
	allowAll, exact, wildcardPort := compileOrigins(cfg.CORSAllowedOrigins)
	maxAge := strconv.Itoa(nonZeroInt(cfg.CORSMaxAgeSeconds, 86400))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		preflight := r.Method == http.MethodOptions
		h := w.Header()

		switch {
		case allowAll:
			h.Set("Access-Control-Allow-Origin", "*")
		case origin == "":
		case originAllowed(origin, exact, wildcardPort):
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
		case preflight:
			h.Add("Vary", "Origin")
			log.Debug("http.cors.preflight_denied", "origin", origin, "path", r.URL.Path)
		default:
			log.Warn("http.cors.denied", "origin", origin, "path", r.URL.Path)
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		if preflight {
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Max-Age", maxAge)
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func compileOrigins(origins []string) (allowAll bool, exact map[string]struct{}, wildcardPort []string) {
	exact = make(map[string]struct{}, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch {
		case o == "":
		case o == "*":
			allowAll = true
		case strings.HasSuffix(o, ":*"):
			wildcardPort = append(wildcardPort, strings.ToLower(strings.TrimSuffix(o, ":*")))
		default:
			exact[strings.ToLower(o)] = struct{}{}
		}
	}
	return allowAll, exact, wildcardPort
}

func originAllowed(origin string, exact map[string]struct{}, wildcardPort []string) bool {
	origin = strings.ToLower(origin)
	if _, ok := exact[origin]; ok {
		return true
	}
	if len(wildcardPort) == 0 {
		return false
	}

	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" || u.Port() == "" {
		return false
	}
	if _, err := strconv.ParseUint(u.Port(), 10, 16); err != nil {
		return false
	}
	base := u.Scheme + "://" + u.Hostname()
	for _, p := range wildcardPort {
		if p == base {
			return true
		}
	}
	return false
}

// WithSecurityHeaders sets conservative response headers for a JSON API.
func WithSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
