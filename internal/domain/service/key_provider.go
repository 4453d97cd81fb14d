package service

import (
	"context"
	"crypto/rsa"

	"github.com/go-jose/go-jose/v4"
)

// KeyProvider supplies the asymmetric key pair used for access tokens.
// Implementations cache key material and are safe for concurrent use.
type KeyProvider interface {
	// SigningKey returns the private key. It fails with ErrKeyUnavailable when
	// the key material cannot be read or parsed.
	SigningKey(ctx context.Context) (*rsa.PrivateKey, error)

	// PublicKey returns the public half of the signing key.
	PublicKey(ctx context.Context) (*rsa.PublicKey, error)

	// KeyID returns the identifier written to the kid header of access tokens.
	KeyID(ctx context.Context) (string, error)

	// JWKS returns the public half of the key pair as a key set.
	JWKS(ctx context.Context) (*jose.JSONWebKeySet, error)
}

// VerificationKeySource resolves the public key an access token was signed with.
// It is satisfied both by the local key provider and by a remote JWKS endpoint.
type VerificationKeySource interface {
	VerificationKey(ctx context.Context, kid string) (*rsa.PublicKey, error)
}
