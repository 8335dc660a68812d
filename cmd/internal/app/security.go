package app

import (
	"errors"

	"astromatch/cmd/security/token"
)

// minTokenHMACKeyBytes is the smallest accepted HMAC-SHA256 secret, in raw bytes.
const minTokenHMACKeyBytes = 32

// ValidateSecurityConfig enforces the token storage policy at startup.
// It fails fast rather than falling back to verbatim token storage.
func ValidateSecurityConfig(cfg Config) error {
	if !cfg.RequireTokenHMAC {
		return nil
	}

	if _, err := token.HMACKeyFromEnv(minTokenHMACKeyBytes); err != nil {
		switch {
		case errors.Is(err, token.ErrHMACKeyMissing):
			return errors.New("security policy: ASTRO_REQUIRE_TOKEN_HMAC=true but ASTRO_TOKEN_HMAC_KEY is missing")
		case errors.Is(err, token.ErrHMACKeyTooShort):
			return errors.New("security policy: ASTRO_REQUIRE_TOKEN_HMAC=true but ASTRO_TOKEN_HMAC_KEY is too short (min 32 bytes)")
		default:
			return err
		}
	}

	return nil
}
