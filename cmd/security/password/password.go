package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// NewSalt returns SaltLength random bytes encoded as lowercase hex.
func (c Config) NewSalt() (string, error) {
	n := c.Params.SaltLength
	if n <= 0 {
		n = defaultSaltLength
	}

	salt := make([]byte, n)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}
	return hex.EncodeToString(salt), nil
}

// Derive returns the lowercase hex PBKDF2-HMAC-SHA256 key of password under saltHex.
// The salt argument is used as text (its hex characters), not decoded.
func (c Config) Derive(password, saltHex string) string {
	key := pbkdf2.Key(
		[]byte(password),
		[]byte(saltHex),
		c.iterations(),
		c.keyLength(),
		sha256.New,
	)
	return hex.EncodeToString(key)
}

// Hash validates password against the policy and derives a fresh (hash, salt) pair.
func (c Config) Hash(password string) (hashHex string, saltHex string, err error) {
	if err := c.Validate(password); err != nil {
		return "", "", err
	}

	saltHex, err = c.NewSalt()
	if err != nil {
		return "", "", err
	}
	return c.Derive(password, saltHex), saltHex, nil
}

// Verify reports whether password derives to hashHex under saltHex.
// Returns (true, nil) for a match, (false, nil) for mismatch,
// and (false, ErrInvalidHash) for a malformed stored credential.
func (c Config) Verify(password, saltHex, hashHex string) (bool, error) {
	if saltHex == "" || len(hashHex) != 2*c.keyLength() || !isLowerHex(hashHex) {
		return false, ErrInvalidHash
	}

	got := c.Derive(password, saltHex)

	// Constant-time compare.
	if subtle.ConstantTimeCompare([]byte(got), []byte(hashHex)) == 1 {
		return true, nil
	}
	return false, nil
}

func (c Config) iterations() int {
	if c.Params.Iterations <= 0 {
		return DefaultIterations
	}
	return c.Params.Iterations
}

func (c Config) keyLength() int {
	if c.Params.KeyLength <= 0 {
		return defaultKeyLength
	}
	return c.Params.KeyLength
}

func isLowerHex(s string) bool {
	for i := 0; i < len(s); i++ {
		b := s[i]
		if (b < '0' || b > '9') && (b < 'a' || b > 'f') {
			return false
		}
	}
	return true
}
