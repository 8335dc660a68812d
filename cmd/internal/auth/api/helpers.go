package authapi

import (
	"net"
	"net/http"
	"strings"

	"astromatch/cmd/internal/auth/session"
)

// TokenHeader carries the session token on authenticated requests.
const TokenHeader = "X-Auth-Token"

func toSessionResponse(id session.Identity) sessionResponse {
	return sessionResponse{
		UserID:       id.AccountID,
		Name:         id.Name,
		Email:        id.Email,
		SessionToken: id.SessionToken,
	}
}

func toIdentityResponse(id session.Identity) identityResponse {
	return identityResponse{
		UserID: id.AccountID,
		Name:   id.Name,
		Email:  id.Email,
	}
}

// requestToken returns the X-Auth-Token header, falling back to an Authorization bearer.
func requestToken(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(TokenHeader)); v != "" {
		return v
	}
	return bearerToken(r)
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for _, p := range parts {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
