package service

import (
	"context"

	"authservice/internal/domain/entity"
)

// TokenClaims is the set of facts embedded in a signed token.
// It is built per issuance and never persisted; only its signed encoding travels.
type TokenClaims struct {
	Subject string      // Principal ID.
	Role    entity.Role // Principal role at issuance time.
	TokenID string      // Ledger row ID; set on refresh tokens only.
}

// TokenSigner issues signed tokens.
type TokenSigner interface {
	// IssueAccessToken signs a short-lived token with the asymmetric private key.
	IssueAccessToken(ctx context.Context, claims TokenClaims) (string, error)

	// IssueRefreshToken signs a long-lived token with the shared secret.
	// claims.TokenID becomes the token's jti.
	IssueRefreshToken(ctx context.Context, claims TokenClaims) (string, error)
}

// TokenVerifier validates signed tokens. Verification never mutates state.
type TokenVerifier interface {
	// VerifyAccessToken checks signature, issuer and expiry against the public key.
	VerifyAccessToken(ctx context.Context, token string) (*TokenClaims, error)

	// VerifyRefreshToken checks signature, issuer and expiry against the shared secret.
	VerifyRefreshToken(ctx context.Context, token string) (*TokenClaims, error)
}
