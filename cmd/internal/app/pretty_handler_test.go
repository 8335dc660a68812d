package app

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestStripANSI(t *testing.T) {
	t.Parallel()

	in := ansiBlue + "INFO" + ansiReset + " plain " + ansiRed + "ERR" + ansiReset
	got := stripANSI(in)
	want := "INFO plain ERR"
	if got != want {
		t.Fatalf("stripANSI()=%q want=%q", got, want)
	}
}

func TestPrettyHandler_ColorizesRequestFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}, true))
	log.Info("http.request",
		"method", "post",
		"path", "/auth",
		"status", 429,
		"status_class", "4xx",
		"duration_ms", int64(12),
	)

	out := buf.String()
	if !strings.Contains(out, ansiYellow+"429"+ansiReset) {
		t.Fatalf("expected yellow status in %q", out)
	}

	plain := stripANSI(out)
	for _, want := range []string{"method=POST", "path=/auth", "status=429", "class=4xx", "duration=12ms"} {
		if !strings.Contains(plain, want) {
			t.Fatalf("missing %q in %q", want, plain)
		}
	}
}

func TestPrettyHandler_AuthKeysFirst(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, nil, false))
	log.Warn("auth.login.failed",
		"user_agent", "curl/8",
		"ip", "203.0.113.7",
		"action", "login",
		"request_id", "host/abc-000001",
	)

	out := strings.TrimSpace(buf.String())
	idx := func(s string) int {
		i := strings.Index(out, s)
		if i < 0 {
			t.Fatalf("missing %q in %q", s, out)
		}
		return i
	}
	if !(idx("request_id=") < idx("action=login") && idx("action=login") < idx("ip=203.0.113.7") && idx("ip=") < idx("user_agent=curl/8")) {
		t.Fatalf("unexpected field order: %q", out)
	}
	if !strings.Contains(out, "WARN  auth.login.failed") {
		t.Fatalf("unexpected level/event column: %q", out)
	}
}

func TestPrettyHandler_EventColor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, nil, true))
	log.Info("auth.register.success", "user_id", int64(7))
	log.Warn("auth.rate_limited", "action", "register")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	if !strings.Contains(lines[0], ansiGreen+"auth.register.success"+ansiReset) {
		t.Fatalf("success event not green: %q", lines[0])
	}
	if !strings.Contains(stripANSI(lines[0]), "user_id=7") {
		t.Fatalf("missing user_id: %q", lines[0])
	}
	if !strings.Contains(lines[1], ansiYellow+"auth.rate_limited"+ansiReset) {
		t.Fatalf("rate limited event not yellow: %q", lines[1])
	}
}

func TestPrettyHandler_MasksSecrets(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, nil, false))
	log.Info("debug.dump", "password", "hunter2", slog.Group("req", "session_token", "tok-abc"), "email", "a@b.co")

	out := buf.String()
	if strings.Contains(out, "hunter2") || strings.Contains(out, "tok-abc") {
		t.Fatalf("secret leaked: %q", out)
	}
	if !strings.Contains(out, "password=***") || !strings.Contains(out, "req.session_token=***") || !strings.Contains(out, "email=a@b.co") {
		t.Fatalf("unexpected masking: %q", out)
	}
}

func TestPrettyHandler_GroupScoping(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, nil, false)).
		With("service", "astromatch").
		WithGroup("auth").
		With("email", "a b@example.com")
	log.Info("audit", "outcome", "ok")

	out := buf.String()
	if !strings.Contains(out, "service=astromatch") || strings.Contains(out, "auth.service") {
		t.Fatalf("attrs added before WithGroup must stay unprefixed: %q", out)
	}
	if !strings.Contains(out, `auth.email="a b@example.com"`) {
		t.Fatalf("expected grouped quoted attr in %q", out)
	}
	if !strings.Contains(out, "auth.outcome=ok") {
		t.Fatalf("expected grouped outcome in %q", out)
	}
}

func TestPrettyHandler_RespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}, false))
	log.Info("quiet")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below level, got %q", buf.String())
	}
}

func TestValueToInt64(t *testing.T) {
	t.Parallel()

	if n, ok := valueToInt64(slog.StringValue("42")); !ok || n != 42 {
		t.Fatalf("string: n=%d ok=%v", n, ok)
	}
	if _, ok := valueToInt64(slog.BoolValue(true)); ok {
		t.Fatalf("bool should not convert")
	}
}
