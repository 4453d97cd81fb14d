// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"authservice/internal/domain/entity"

	"github.com/google/uuid"
)

// --- Input DTOs ---

// RegisterInput defines the data required to register a new user.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// LoginInput defines the data required for a user to log in.
type LoginInput struct {
	Email    string
	Password string
}

// RefreshInput carries the refresh token presented by the client.
type RefreshInput struct {
	RefreshToken string
}

// LogoutInput identifies the session to end. RefreshToken may be empty, in
// which case every session of the user is revoked.
type LogoutInput struct {
	UserID       uuid.UUID
	RefreshToken string
}

// --- Output DTOs ---

// AuthOutput is returned by every flow that issues a token pair.
type AuthOutput struct {
	User         *entity.User
	AccessToken  string
	RefreshToken string
}

// AuthUsecase defines the authentication flows.
// This is the contract that the delivery layer (e.g., API handlers) will depend on.
type AuthUsecase interface {
	Register(ctx context.Context, input RegisterInput) (*AuthOutput, error)
	Login(ctx context.Context, input LoginInput) (*AuthOutput, error)
	Self(ctx context.Context, userID uuid.UUID) (*entity.User, error)
	Refresh(ctx context.Context, input RefreshInput) (*AuthOutput, error)
	Logout(ctx context.Context, input LogoutInput) error
}

// SessionUsecase maintains the refresh token ledger outside request flows.
type SessionUsecase interface {
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}
