package session

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"astromatch/cmd/security/token"
)

// Config defines runtime configuration for session issuance.
type Config struct {
	// SessionTTL is the absolute lifetime of a session from creation.
	SessionTTL time.Duration

	// TokenBytes is the entropy of a session token.
	TokenBytes int

	// TokenHMACKey, when non-empty, switches sessions.token to HMAC-SHA256 hex.
	TokenHMACKey []byte
}

const minTokenHMACKeyBytes = 32

// DefaultConfig returns the production defaults: 30-day sessions, 32-byte tokens, verbatim storage.
func DefaultConfig() Config {
	return Config{
		SessionTTL: 30 * 24 * time.Hour,
		TokenBytes: token.DefaultBytes,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Optional:
//   - ASTRO_SESSION_TTL (Go duration, > 0)
//   - ASTRO_SESSION_TOKEN_BYTES (32..64)
//   - ASTRO_TOKEN_HMAC_KEY (>= 32 bytes when set)
//   - ASTRO_REQUIRE_TOKEN_HMAC (when true, ASTRO_TOKEN_HMAC_KEY is mandatory)
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("ASTRO_SESSION_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.SessionTTL = d
	}

	if v := strings.TrimSpace(os.Getenv("ASTRO_SESSION_TOKEN_BYTES")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 32 || n > 64 {
			return Config{}, ErrConfig
		}
		cfg.TokenBytes = n
	}

	key, err := token.HMACKeyFromEnv(minTokenHMACKeyBytes)
	switch {
	case err == nil:
		cfg.TokenHMACKey = key
	case errors.Is(err, token.ErrHMACKeyMissing):
		if requireHMAC() {
			return Config{}, ErrConfig
		}
	default:
		return Config{}, ErrConfig
	}

	return cfg, nil
}

func requireHMAC() bool {
	b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv("ASTRO_REQUIRE_TOKEN_HMAC")))
	return err == nil && b
}

func (c Config) validate() error {
	if c.SessionTTL <= 0 {
		return ErrConfig
	}
	if c.TokenBytes < 32 || c.TokenBytes > 64 {
		return ErrConfig
	}
	if len(c.TokenHMACKey) > 0 && len(c.TokenHMACKey) < minTokenHMACKeyBytes {
		return ErrConfig
	}
	return nil
}
