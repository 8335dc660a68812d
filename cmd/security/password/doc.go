// Package password provides password hashing and verification utilities for astromatch.
//
// Credentials are derived with PBKDF2-HMAC-SHA256 and stored as two hex strings:
// - salt: 16 random bytes, 32 lowercase hex chars
// - hash: the 32-byte derived key, 64 lowercase hex chars
//
// The PBKDF2 salt input is the hex salt text itself. Existing credential rows were
// derived that way, so changing it (or the iteration count) invalidates them.
//
// The package also carries the registration policy (password length bounds,
// optional weak-pattern rejection, email shape).
package password
