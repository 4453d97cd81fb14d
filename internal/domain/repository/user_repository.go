// Package repository declares the persistence contracts for users and the
// refresh token ledger. Implementations live under infra/persistence.
package repository

import (
	"context"

	"authservice/internal/domain/entity"
	"authservice/internal/errors"

	"github.com/google/uuid"
)

// ErrUserNotFound is returned by lookups that match no row.
var ErrUserNotFound = errors.New("user not found")

// UserRepository stores accounts keyed by ID, with email as a unique secondary key.
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// FindByEmail matches the stored email exactly; callers trim input beforehand.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// Create inserts user and writes back the store-generated ID and timestamps.
	// A taken email fails with domain errors.ErrDuplicateEmail.
	Create(ctx context.Context, user *entity.User) error

	// Clear truncates the table. Used by test fixtures and local resets.
	Clear(ctx context.Context) error
}
