package authapi

import (
	"context"
	"log/slog"
	"net"
	"strings"
)

// Audit events are structured log records; passwords and tokens are never attached.

func (h *Handler) auditRegister(ctx context.Context, accountID int64, ip net.IP, ua string) {
	h.audit(ctx, slog.LevelInfo, "auth.register.success", ip, ua, slog.Int64("user_id", accountID))
}

func (h *Handler) auditLoginSuccess(ctx context.Context, accountID int64, ip net.IP, ua string) {
	h.audit(ctx, slog.LevelInfo, "auth.login.success", ip, ua, slog.Int64("user_id", accountID))
}

func (h *Handler) auditLoginFailed(ctx context.Context, ip net.IP, ua string) {
	h.audit(ctx, slog.LevelWarn, "auth.login.failed", ip, ua)
}

func (h *Handler) auditRateLimited(ctx context.Context, action string, ip net.IP, ua string) {
	h.audit(ctx, slog.LevelWarn, "auth.rate_limited", ip, ua, slog.String("action", action))
}

func (h *Handler) audit(ctx context.Context, level slog.Level, event string, ip net.IP, ua string, attrs ...slog.Attr) {
	if h == nil || h.log == nil {
		return
	}

	all := make([]slog.Attr, 0, len(attrs)+2)
	if ip != nil {
		all = append(all, slog.String("ip", ip.String()))
	}
	if v := strings.TrimSpace(ua); v != "" {
		all = append(all, slog.String("user_agent", v))
	}
	all = append(all, attrs...)

	h.log.LogAttrs(ctx, level, event, all...)
}
