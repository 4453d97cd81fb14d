package entity

import (
	"time"

	"github.com/google/uuid"
)

// RefreshTokenLifetime is a naive year: 365 days, leap years are not special-cased.
const RefreshTokenLifetime = 365 * 24 * time.Hour

// RefreshToken is one ledger row per issued refresh token. Its ID travels
// verbatim as the token's jti claim so a token can be revoked by id.
type RefreshToken struct {
	ID        uuid.UUID // Generated by the store; embedded as jti.
	UserID    uuid.UUID // Owner of the session.
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the record is past its expiry at the given instant.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
