// Package session implements astromatch's credential and session lifecycle.
//
// Manager owns the three account operations: Register, Login and VerifyToken.
// Passwords are derived with PBKDF2-HMAC-SHA256 (see security/password) and
// sessions are opaque bearer tokens with an absolute expiry. Sessions are never
// revoked or extended; an expired row stays in place and keeps failing.
//
// Persistence sits behind Store. PostgresStore is the production backend and
// MemoryStore serves dev mode and unit tests.
//
// Transport (HTTP framing) lives in auth/api.
package session
