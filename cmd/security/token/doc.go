// Package token provides session-token primitives for astromatch.
//
// It is the single source of truth for how bearer session tokens are minted
// and how they are keyed in the sessions table.
//
// Design goals:
// - Tokens are opaque: 32 bytes from crypto/rand, base64url without padding.
// - Default storage mode keeps the token verbatim, matching existing rows.
// - Hardened mode stores HMAC-SHA256(token, key) hex so a leaked table does not leak live tokens.
//
// Environment:
// - ASTRO_TOKEN_HMAC_KEY: when set, enables HMAC storage mode.
// Policy:
//   - If RequireTokenHMAC=true, callers MUST enforce a minimum key size (>= 32 bytes)
//     and MUST use HMAC (no verbatim fallback).
package token
