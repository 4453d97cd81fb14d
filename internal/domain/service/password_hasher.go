// Package service declares the domain's stateless collaborators: password
// hashing, token signing and verification, and signing key access.
package service

// PasswordHasher turns registration passwords into stored hashes and checks
// login attempts against them. Only the hash ever reaches the user store.
type PasswordHasher interface {
	// Hash returns a salted one-way hash. Inputs past 72 bytes are rejected by
	// bcrypt-backed implementations, so callers validate length first.
	Hash(password string) (string, error)

	// Check reports whether password produces hash. A malformed hash is a mismatch.
	Check(password, hash string) bool
}
