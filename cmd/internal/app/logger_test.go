package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "unknown", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
	}

	for _, tc := range cases {
		got := parseLogLevel(tc.in)
		if got != tc.want {
			t.Fatalf("parseLogLevel(%q)=%v want=%v", tc.in, got, tc.want)
		}
	}
}

func TestNewLoggerTo_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := newLoggerTo(&buf, "warn", "json", false)

	log.Info("dropped")
	log.Warn("auth.login.failed", "ip", "203.0.113.1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected only the warn record, got %d lines: %q", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec["msg"] != "auth.login.failed" || rec["ip"] != "203.0.113.1" || rec["level"] != "WARN" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestNewLoggerTo_Pretty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := newLoggerTo(&buf, "info", "pretty", false)
	log.Info("server.start", "addr", "0.0.0.0:8080")

	out := buf.String()
	if !strings.Contains(out, " INFO  server.start ") || !strings.Contains(out, "addr=0.0.0.0:8080") {
		t.Fatalf("unexpected pretty output: %q", out)
	}
}
