// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"context"
	"time"

	"authservice/config"
	"authservice/internal/domain/entity"
	domainerrors "authservice/internal/domain/errors"
	"authservice/internal/domain/service"
	"authservice/internal/errors"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/fx"
)

const (
	// DefaultIssuer is written to and required from the iss claim of every token.
	DefaultIssuer = "auth-service"

	defaultAccessTTL  = time.Hour
	defaultRefreshTTL = 365 * 24 * time.Hour

	keyIDHeader = "kid"
)

// tokenClaims is the wire form of service.TokenClaims.
type tokenClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// jwtService signs access tokens with RS256 and refresh tokens with HS256.
type jwtService struct {
	issuer        string
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	keys             service.KeyProvider
	verificationKeys service.VerificationKeySource

	now func() time.Time
}

// JWTParams defines the dependencies of the JWT service.
type JWTParams struct {
	fx.In

	Config           *config.Config
	Keys             service.KeyProvider
	VerificationKeys service.VerificationKeySource
}

// JWTResult exposes the JWT service under both of its roles.
type JWTResult struct {
	fx.Out

	Signer   service.TokenSigner
	Verifier service.TokenVerifier
}

// NewJWTService is the constructor for jwtService.
// A missing refresh secret is reported when a refresh token is issued or verified.
func NewJWTService(params JWTParams) JWTResult {
	svc := newJWTService(params.Config.Token, params.Keys, params.VerificationKeys, time.Now)

	return JWTResult{
		Signer:   svc,
		Verifier: svc,
	}
}

func newJWTService(
	cfg *config.TokenConfig,
	keys service.KeyProvider,
	verificationKeys service.VerificationKeySource,
	now func() time.Time,
) *jwtService {
	svc := &jwtService{
		issuer:           DefaultIssuer,
		accessTTL:        defaultAccessTTL,
		refreshTTL:       defaultRefreshTTL,
		keys:             keys,
		verificationKeys: verificationKeys,
		now:              now,
	}
	if verificationKeys == nil {
		svc.verificationKeys = NewLocalKeySource(keys)
	}

	if cfg != nil {
		if cfg.Issuer != "" {
			svc.issuer = cfg.Issuer
		}
		if cfg.AccessTTL > 0 {
			svc.accessTTL = cfg.AccessTTL
		}
		if cfg.RefreshTTL > 0 {
			svc.refreshTTL = cfg.RefreshTTL
		}
		svc.refreshSecret = []byte(cfg.RefreshSecret)
	}

	return svc
}

// IssueAccessToken signs {sub, role, iss, iat, exp} with the RSA private key.
func (s *jwtService) IssueAccessToken(ctx context.Context, claims service.TokenClaims) (string, error) {
	key, err := s.keys.SigningKey(ctx)
	if err != nil {
		return "", errors.Wrap(domainerrors.ErrSigningKey, err.Error())
	}
	kid, err := s.keys.KeyID(ctx)
	if err != nil {
		return "", errors.Wrap(domainerrors.ErrSigningKey, err.Error())
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, s.claims(claims, s.accessTTL, ""))
	token.Header[keyIDHeader] = kid

	signed, err := token.SignedString(key)
	if err != nil {
		return "", errors.Wrap(domainerrors.ErrSigningKey, err.Error())
	}

	return signed, nil
}

// IssueRefreshToken signs {sub, role, jti, iss, iat, exp} with the shared secret.
func (s *jwtService) IssueRefreshToken(_ context.Context, claims service.TokenClaims) (string, error) {
	if len(s.refreshSecret) == 0 {
		return "", errors.WithStack(domainerrors.ErrMissingSecret)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, s.claims(claims, s.refreshTTL, claims.TokenID))

	signed, err := token.SignedString(s.refreshSecret)
	if err != nil {
		return "", errors.Wrap(domainerrors.ErrSigningKey, err.Error())
	}

	return signed, nil
}

// VerifyAccessToken checks signature, issuer and expiry of an RS256 token.
func (s *jwtService) VerifyAccessToken(ctx context.Context, raw string) (*service.TokenClaims, error) {
	return s.verify(raw, jwt.SigningMethodRS256.Alg(), func(token *jwt.Token) (any, error) {
		kid, _ := token.Header[keyIDHeader].(string)

		return s.verificationKeys.VerificationKey(ctx, kid)
	})
}

// VerifyRefreshToken checks signature, issuer and expiry of an HS256 token.
func (s *jwtService) VerifyRefreshToken(_ context.Context, raw string) (*service.TokenClaims, error) {
	if len(s.refreshSecret) == 0 {
		return nil, errors.WithStack(domainerrors.ErrMissingSecret)
	}

	return s.verify(raw, jwt.SigningMethodHS256.Alg(), func(*jwt.Token) (any, error) {
		return s.refreshSecret, nil
	})
}

func (s *jwtService) claims(claims service.TokenClaims, ttl time.Duration, tokenID string) tokenClaims {
	now := s.now()

	return tokenClaims{
		Role: claims.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			Issuer:    s.issuer,
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func (s *jwtService) verify(raw, alg string, keyFunc jwt.Keyfunc) (*service.TokenClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{alg}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
		jwt.WithStrictDecoding(),
	)

	var claims tokenClaims
	if _, err := parser.ParseWithClaims(raw, &claims, keyFunc); err != nil {
		return nil, mapTokenError(err)
	}

	return &service.TokenClaims{
		Subject: claims.Subject,
		Role:    entity.Role(claims.Role),
		TokenID: claims.ID,
	}, nil
}

// mapTokenError converts jwt library errors into the domain taxonomy. Errors
// raised by a key source already carry a domain error and pass through.
func mapTokenError(err error) error {
	var appErr domainerrors.AppError
	if errors.As(err, &appErr) {
		return errors.WithStack(err)
	}

	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return errors.Wrap(domainerrors.ErrTokenMalformed, err.Error())
	case errors.Is(err, jwt.ErrTokenExpired):
		return errors.Wrap(domainerrors.ErrTokenExpired, err.Error())
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return errors.Wrap(domainerrors.ErrTokenInvalidIssuer, err.Error())
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return errors.Wrap(domainerrors.ErrTokenInvalidSignature, err.Error())
	default:
		return errors.Wrap(domainerrors.ErrTokenMalformed, err.Error())
	}
}
