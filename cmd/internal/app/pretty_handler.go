package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// prettyHandler renders one aligned line per record for local development:
//
//	12:04:05.123 WARN  auth.login.failed        request_id=host/abc-000001 ip=203.0.113.7
//
// Request and auth keys are printed first in a fixed order; secret-bearing keys are masked.
type prettyHandler struct {
	w      io.Writer
	level  slog.Leveler
	source bool
	color  bool

	prefix string
	fields []prettyField

	mu *sync.Mutex
}

type prettyField struct {
	key string
	val slog.Value
}

const (
	prettyEventWidth = 24
	prettyMask       = "***"
)

var prettyKeyRank = map[string]int{
	"request_id":   1,
	"action":       2,
	"outcome":      3,
	"result":       3,
	"user_id":      4,
	"ip":           5,
	"method":       6,
	"path":         7,
	"status":       8,
	"status_class": 9,
	"duration_ms":  10,
}

var prettySecretKeys = map[string]struct{}{
	"password":      {},
	"session_token": {},
	"token":         {},
	"authorization": {},
	"x-auth-token":  {},
	"salt":          {},
	"password_hash": {},
}

func newPrettyHandler(w io.Writer, opts *slog.HandlerOptions, color bool) slog.Handler {
	h := &prettyHandler{
		w:     w,
		level: slog.LevelInfo,
		color: color,
		mu:    &sync.Mutex{},
	}
	if opts != nil {
		if opts.Level != nil {
			h.level = opts.Level
		}
		h.source = opts.AddSource
	}
	return h
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make([]prettyField, 0, len(h.fields)+r.NumAttrs())
	fields = append(fields, h.fields...)
	r.Attrs(func(a slog.Attr) bool {
		fields = appendPrettyField(fields, h.prefix, a)
		return true
	})
	sort.SliceStable(fields, func(i, j int) bool {
		return prettyRank(fields[i].key) < prettyRank(fields[j].key)
	})

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	b.WriteString(paint(ts.Format("15:04:05.000"), ansiDim, h.color))
	b.WriteByte(' ')
	b.WriteString(levelTag(r.Level, h.color))
	b.WriteByte(' ')
	b.WriteString(h.event(r.Message))

	for _, f := range fields {
		b.WriteByte(' ')
		b.WriteString(remapPrettyKey(f.key))
		b.WriteByte('=')
		b.WriteString(h.value(f))
	}

	if h.source && r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		if frame.File != "" {
			b.WriteByte(' ')
			b.WriteString(paint(fmt.Sprintf("@%s:%d", filepath.Base(frame.File), frame.Line), ansiDim, h.color))
		}
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.fields = append([]prettyField(nil), h.fields...)
	for _, a := range attrs {
		cp.fields = appendPrettyField(cp.fields, h.prefix, a)
	}
	return &cp
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	name = strings.TrimSpace(name)
	if name == "" {
		return h
	}
	cp := *h
	cp.prefix = h.prefix + name + "."
	return &cp
}

// appendPrettyField flattens a into fields under prefix. Empty-key groups are inlined.
func appendPrettyField(fields []prettyField, prefix string, a slog.Attr) []prettyField {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return fields
	}
	key := strings.TrimSpace(a.Key)

	if a.Value.Kind() == slog.KindGroup {
		sub := prefix
		if key != "" {
			sub = prefix + key + "."
		}
		for _, ga := range a.Value.Group() {
			fields = appendPrettyField(fields, sub, ga)
		}
		return fields
	}
	if key == "" {
		return fields
	}
	return append(fields, prettyField{key: prefix + key, val: a.Value})
}

func prettyRank(key string) int {
	if n, ok := prettyKeyRank[key]; ok {
		return n
	}
	return len(prettyKeyRank) + 1
}

// baseKey strips group prefixes.
func baseKey(key string) string {
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		return key[i+1:]
	}
	return key
}

// event pads the message to a fixed column and colours auth events by result.
func (h *prettyHandler) event(msg string) string {
	pad := prettyEventWidth - len(msg)
	out := paint(msg, eventColor(msg), h.color)
	if pad > 0 {
		out += strings.Repeat(" ", pad)
	}
	return out
}

func eventColor(msg string) string {
	switch {
	case strings.HasSuffix(msg, ".success"), strings.HasSuffix(msg, ".ok"):
		return ansiGreen
	case strings.HasSuffix(msg, ".failed"), strings.HasSuffix(msg, ".fail"),
		strings.HasSuffix(msg, ".denied"), strings.HasSuffix(msg, ".rate_limited"):
		return ansiYellow
	case msg == "http.request":
		return ""
	default:
		return ansiBright
	}
}

func (h *prettyHandler) value(f prettyField) string {
	key := baseKey(f.key)
	if _, secret := prettySecretKeys[strings.ToLower(key)]; secret {
		return paint(prettyMask, ansiDim, h.color)
	}

	v := f.val
	switch key {
	case "method":
		return colorizeHTTPMethod(strings.ToUpper(strings.TrimSpace(v.String())), h.color)
	case "path", "user_id":
		return paint(quoteIfNeeded(valueToString(v)), ansiCyan, h.color)
	case "status":
		if n, ok := valueToInt64(v); ok {
			return colorizeStatusCode(int(n), h.color)
		}
	case "status_class":
		return colorizeStatusClass(strings.TrimSpace(v.String()), h.color)
	case "duration_ms":
		if n, ok := valueToInt64(v); ok {
			return colorizeDurationMS(n, h.color)
		}
	case "outcome", "result":
		return colorizeResult(strings.ToLower(strings.TrimSpace(v.String())), h.color)
	}
	return quoteIfNeeded(valueToString(v))
}

func remapPrettyKey(k string) string {
	switch baseKey(k) {
	case "status_class":
		return strings.TrimSuffix(k, "status_class") + "class"
	case "duration_ms":
		return strings.TrimSuffix(k, "duration_ms") + "duration"
	default:
		return k
	}
}

func valueToString(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	default:
		return fmt.Sprint(v.Any())
	}
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " \t\r\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

// levelTag returns a five-column level name.
func levelTag(level slog.Level, color bool) string {
	switch {
	case level >= slog.LevelError:
		return paint("ERROR", ansiRed, color)
	case level >= slog.LevelWarn:
		return paint("WARN ", ansiYellow, color)
	case level < slog.LevelInfo:
		return paint("DEBUG", ansiMagenta, color)
	default:
		return paint("INFO ", ansiBlue, color)
	}
}
