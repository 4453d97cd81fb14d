package repository

import (
	"context"

	"authservice/internal/domain/entity"
	"authservice/internal/errors"

	"github.com/google/uuid"
)

// Domain-specific errors for refresh token persistence.
var (
	// ErrRefreshTokenNotFound is returned when a refresh token is not found.
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	// ErrRefreshTokenExpired is returned when a refresh token has expired.
	ErrRefreshTokenExpired = errors.New("refresh token has expired")
)

// RefreshTokenRepository is the refresh token ledger: one row per issued refresh token.
type RefreshTokenRepository interface {
	// Create persists a new ledger row and fills in the store-generated ID.
	// The ID must be known before the refresh token embedding it is signed.
	Create(ctx context.Context, token *entity.RefreshToken) error

	// FindByID returns a live ledger row. Expired rows yield ErrRefreshTokenExpired.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.RefreshToken, error)

	// Delete revokes a single refresh token by its ID. It returns
	// ErrRefreshTokenNotFound when no row was removed, so two rotations racing
	// on one token cannot both succeed.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteByUserID revokes every refresh token owned by a user.
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error

	// DeleteExpired purges rows whose expiry has passed and returns how many were removed.
	DeleteExpired(ctx context.Context) (int64, error)
}
