// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"authservice/config"
	deliverycontext "authservice/internal/delivery/context"
	"authservice/internal/domain/entity"
	domainerrors "authservice/internal/domain/errors"
	"authservice/internal/domain/repository"
	"authservice/internal/domain/service"
	"authservice/internal/errors"
	"authservice/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// authService implements the AuthUsecase interface.
type authService struct {
	txManager        repository.TransactionManager
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	hasher           service.PasswordHasher
	signer           service.TokenSigner
	verifier         service.TokenVerifier
	refreshTTL       time.Duration
	logger           *slog.Logger
	now              func() time.Time
}

// AuthServiceParams holds dependencies for AuthService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	TxManager        repository.TransactionManager
	UserRepo         repository.UserRepository
	RefreshTokenRepo repository.RefreshTokenRepository
	Hasher           service.PasswordHasher
	Signer           service.TokenSigner
	Verifier         service.TokenVerifier
	Config           *config.Config
	Logger           *slog.Logger
}

// NewAuthService is the constructor for authService. It receives all dependencies as interfaces.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	refreshTTL := entity.RefreshTokenLifetime
	if params.Config != nil && params.Config.Token != nil && params.Config.Token.RefreshTTL > 0 {
		refreshTTL = params.Config.Token.RefreshTTL
	}

	return &authService{
		txManager:        params.TxManager,
		userRepo:         params.UserRepo,
		refreshTokenRepo: params.RefreshTokenRepo,
		hasher:           params.Hasher,
		signer:           params.Signer,
		verifier:         params.Verifier,
		refreshTTL:       refreshTTL,
		logger:           params.Logger,
		now:              time.Now,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Register creates a customer account and signs it in. The user row, the
// ledger row and both signatures succeed or fail together.
func (srv *authService) Register(ctx context.Context, input usecase.RegisterInput) (*usecase.AuthOutput, error) {
	email := normalizeEmail(input.Email)
	srv.log(ctx).Info("Starting registration", slog.String("email", email))

	hashedPassword, err := srv.hasher.Hash(input.Password)
	if err != nil {
		srv.log(ctx).Error("Failed to hash password during registration", slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrPasswordHashFailed, err.Error())
	}

	var output *usecase.AuthOutput
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()

		_, findErr := userRepo.FindByEmail(ctx, email)
		if findErr == nil {
			return errors.WithStack(domainerrors.ErrDuplicateEmail)
		}
		if !errors.Is(findErr, repository.ErrUserNotFound) {
			return errors.Wrap(findErr, "failed to check existing email")
		}

		newUser := &entity.User{
			FirstName:    strings.TrimSpace(input.FirstName),
			LastName:     strings.TrimSpace(input.LastName),
			Email:        email,
			PasswordHash: hashedPassword,
			Role:         entity.RoleCustomer,
		}
		if err := userRepo.Create(ctx, newUser); err != nil {
			return errors.Wrap(err, "failed to create user during registration")
		}

		var issueErr error
		output, issueErr = srv.issueTokenPair(ctx, repoFactory.RefreshTokenRepo(), newUser)

		return issueErr
	})
	if err != nil {
		srv.log(ctx).Warn("Registration failed", slog.String("email", email), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute user registration transaction")
	}

	srv.log(ctx).Info("User registered", slog.Any("userID", output.User.ID))

	return output, nil
}

// Login verifies credentials and issues a fresh token pair. Unknown email and
// wrong password fail identically.
func (srv *authService) Login(ctx context.Context, input usecase.LoginInput) (*usecase.AuthOutput, error) {
	email := normalizeEmail(input.Email)
	srv.log(ctx).Debug("Starting user login", slog.String("email", email))

	user, err := srv.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			srv.log(ctx).Warn("Login failed", slog.String("email", email), slog.String("reason", "unknown email"))

			return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
		}

		return nil, errors.Wrap(err, "failed to find user by email")
	}

	// bcrypt is CPU-bound; keep it outside the transaction.
	if !srv.hasher.Check(input.Password, user.PasswordHash) {
		srv.log(ctx).Warn("Login failed", slog.String("email", email), slog.String("reason", "password mismatch"))

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
	}

	var output *usecase.AuthOutput
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		var issueErr error
		output, issueErr = srv.issueTokenPair(ctx, repoFactory.RefreshTokenRepo(), user)

		return issueErr
	})
	if err != nil {
		srv.log(ctx).Error("Failed to issue tokens during login", slog.Any("userID", user.ID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute user login transaction")
	}

	srv.log(ctx).Debug("User logged in successfully", slog.Any("userID", user.ID))

	return output, nil
}

// Self loads the principal named by a verified access token.
func (srv *authService) Self(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errors.Wrap(domainerrors.ErrUnauthorized, "token subject no longer exists")
		}

		return nil, errors.Wrap(err, "failed to find user by id")
	}

	return user, nil
}

// Refresh rotates a refresh token: the presented ledger row is revoked and a
// new pair is issued. A token whose row is gone, expired or owned by someone
// else is rejected.
func (srv *authService) Refresh(ctx context.Context, input usecase.RefreshInput) (*usecase.AuthOutput, error) {
	claims, err := srv.verifier.VerifyRefreshToken(ctx, input.RefreshToken)
	if err != nil {
		srv.log(ctx).Warn("Refresh token rejected", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to verify refresh token")
	}

	tokenID, userID, err := parseRefreshClaims(claims)
	if err != nil {
		return nil, err
	}

	var output *usecase.AuthOutput
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		refreshRepo := repoFactory.RefreshTokenRepo()

		record, findErr := refreshRepo.FindByID(ctx, tokenID)
		if findErr != nil {
			if errors.Is(findErr, repository.ErrRefreshTokenNotFound) || errors.Is(findErr, repository.ErrRefreshTokenExpired) {
				return errors.Wrap(domainerrors.ErrRefreshTokenInvalid, findErr.Error())
			}

			return errors.Wrap(findErr, "failed to find refresh token")
		}
		if record.UserID != userID {
			return errors.Wrap(domainerrors.ErrRefreshTokenInvalid, "refresh token owner mismatch")
		}

		if err := refreshRepo.Delete(ctx, record.ID); err != nil {
			if errors.Is(err, repository.ErrRefreshTokenNotFound) {
				return errors.Wrap(domainerrors.ErrRefreshTokenInvalid, "refresh token already rotated")
			}

			return errors.Wrap(err, "failed to revoke rotated refresh token")
		}

		// Reload the user so a role change since the last issuance takes effect.
		user, userErr := repoFactory.UserRepo().FindByID(ctx, userID)
		if userErr != nil {
			if errors.Is(userErr, repository.ErrUserNotFound) {
				return errors.Wrap(domainerrors.ErrRefreshTokenInvalid, "refresh token owner no longer exists")
			}

			return errors.Wrap(userErr, "failed to find user by id")
		}

		var issueErr error
		output, issueErr = srv.issueTokenPair(ctx, refreshRepo, user)

		return issueErr
	})
	if err != nil {
		srv.log(ctx).Warn("Refresh failed", slog.Any("userID", userID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute refresh transaction")
	}

	srv.log(ctx).Debug("Refresh token rotated", slog.Any("userID", userID))

	return output, nil
}

// Logout revokes the presented refresh token, or every token of the user when
// none is presented. An unverifiable token revokes nothing.
func (srv *authService) Logout(ctx context.Context, input usecase.LogoutInput) error {
	if input.RefreshToken == "" {
		if err := srv.refreshTokenRepo.DeleteByUserID(ctx, input.UserID); err != nil {
			return errors.Wrap(err, "failed to revoke user refresh tokens")
		}
		srv.log(ctx).Info("Revoked all refresh tokens", slog.Any("userID", input.UserID))

		return nil
	}

	claims, err := srv.verifier.VerifyRefreshToken(ctx, input.RefreshToken)
	if err != nil {
		srv.log(ctx).Debug("Ignoring unverifiable refresh token on logout", slog.Any("error", err))

		return nil
	}

	tokenID, userID, err := parseRefreshClaims(claims)
	if err != nil || userID != input.UserID {
		srv.log(ctx).Warn("Refresh token does not belong to the caller", slog.Any("userID", input.UserID))

		return nil
	}

	if err := srv.refreshTokenRepo.Delete(ctx, tokenID); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return nil
		}

		return errors.Wrap(err, "failed to revoke refresh token")
	}
	srv.log(ctx).Info("Refresh token revoked", slog.Any("userID", userID), slog.Any("tokenID", tokenID))

	return nil
}

// issueTokenPair signs an access token, writes a ledger row and signs a
// refresh token carrying the row ID as jti.
func (srv *authService) issueTokenPair(
	ctx context.Context,
	refreshRepo repository.RefreshTokenRepository,
	user *entity.User,
) (*usecase.AuthOutput, error) {
	claims := service.TokenClaims{
		Subject: user.ID.String(),
		Role:    user.Role,
	}

	accessToken, err := srv.signer.IssueAccessToken(ctx, claims)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue access token")
	}

	record := &entity.RefreshToken{
		UserID:    user.ID,
		ExpiresAt: srv.now().Add(srv.refreshTTL),
	}
	if err := refreshRepo.Create(ctx, record); err != nil {
		return nil, errors.Wrap(err, "failed to store refresh token")
	}

	claims.TokenID = record.ID.String()
	refreshToken, err := srv.signer.IssueRefreshToken(ctx, claims)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue refresh token")
	}

	return &usecase.AuthOutput{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func parseRefreshClaims(claims *service.TokenClaims) (tokenID, userID uuid.UUID, err error) {
	tokenID, err = uuid.Parse(claims.TokenID)
	if err != nil {
		return uuid.Nil, uuid.Nil, errors.Wrap(domainerrors.ErrRefreshTokenInvalid, "refresh token has no valid jti")
	}

	userID, err = uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, uuid.Nil, errors.Wrap(domainerrors.ErrRefreshTokenInvalid, "refresh token has no valid subject")
	}

	return tokenID, userID, nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
