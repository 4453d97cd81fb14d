package repository

import "context"

// TransactionManager runs a unit of work against the user store and the
// refresh token ledger atomically. Register and rotation depend on it: a user
// row or a revocation must never persist without the matching new ledger row.
type TransactionManager interface {
	// Execute commits when fn returns nil and rolls back otherwise. The error
	// from fn is returned unchanged.
	Execute(ctx context.Context, fn func(txRepoFactory RepositoryFactory) error) error
}

// RepositoryFactory hands out repositories that share the enclosing transaction.
type RepositoryFactory interface {
	UserRepo() UserRepository
	RefreshTokenRepo() RefreshTokenRepository
}
