package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"os"
	"strings"
)

const (
	// HMACEnvKey is the env var name for the token HMAC secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	HMACEnvKey = "ASTRO_TOKEN_HMAC_KEY"

	// DefaultBytes is the entropy of a session token.
	DefaultBytes = 32
)

// NewOpaque returns nBytes of crypto/rand entropy as URL-safe base64 without padding.
func NewOpaque(nBytes int) (string, error) {
	if nBytes <= 0 {
		nBytes = DefaultBytes
	}

	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	// URL-safe, no padding.
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// HMACKeyFromEnv returns the configured HMAC key bytes (trimmed), enforcing a minimum byte length.
// If the env var is missing/blank -> ErrHMACKeyMissing.
// If too short -> ErrHMACKeyTooShort.
func HMACKeyFromEnv(minBytes int) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(HMACEnvKey))
	if raw == "" {
		return nil, ErrHMACKeyMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrHMACKeyTooShort
	}
	return b, nil
}

// Keyer maps a presented bearer token to the value stored in sessions.token.
type Keyer struct {
	key []byte
}

// NewKeyer returns a Keyer. A nil or empty key selects verbatim storage.
func NewKeyer(key []byte) Keyer {
	if len(key) == 0 {
		return Keyer{}
	}
	return Keyer{key: append([]byte(nil), key...)}
}

// Hashed reports whether tokens are stored as HMAC digests.
func (k Keyer) Hashed() bool { return len(k.key) > 0 }

// StorageKey returns the sessions.token value for tok.
func (k Keyer) StorageKey(tok string) string {
	if len(k.key) == 0 {
		return tok
	}
	return HashHMACSHA256Hex(tok, k.key)
}
