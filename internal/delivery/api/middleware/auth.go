package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	deliverycontext "authservice/internal/delivery/context"
	domainerrors "authservice/internal/domain/errors"
	"authservice/internal/domain/service"
	"authservice/internal/errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

const (
	// AccessTokenCookie carries the access token set on register, login and refresh.
	AccessTokenCookie = "accessToken"
	// RefreshTokenCookie carries the refresh token set on register, login and refresh.
	RefreshTokenCookie = "refreshToken"

	contextKeyUserID = "userID"
	bearerPrefix     = "Bearer "
)

// AuthMiddlewareParams holds dependencies for AuthMiddleware, injected by Fx.
type AuthMiddlewareParams struct {
	fx.In

	Verifier service.TokenVerifier
	Logger   *slog.Logger
}

// AuthMiddleware gates routes behind a valid access token.
type AuthMiddleware struct {
	verifier service.TokenVerifier
	logger   *slog.Logger
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(params AuthMiddlewareParams) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: params.Verifier,
		logger:   params.Logger,
	}
}

// Authenticate verifies the access token from the accessToken cookie, or from an
// Authorization: Bearer header when no cookie is present.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := accessToken(c.Request())
		if token == "" {
			return errors.Wrap(domainerrors.ErrUnauthorized, "access token is missing")
		}

		ctx := c.Request().Context()
		claims, err := m.verifier.VerifyAccessToken(ctx, token)
		if err != nil {
			deliverycontext.GetLoggerOrDefault(ctx, m.logger).Debug("Access token rejected", slog.Any("error", err))

			return errors.WithStack(err)
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			return errors.Wrap(domainerrors.ErrTokenMalformed, "subject is not a user id")
		}

		c.Set(contextKeyUserID, userID)

		return next(c)
	}
}

// GetUserID returns the authenticated user ID set by Authenticate.
func GetUserID(c echo.Context) (uuid.UUID, bool) {
	userID, ok := c.Get(contextKeyUserID).(uuid.UUID)

	return userID, ok
}

func accessToken(req *http.Request) string {
	if cookie, err := req.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := req.Header.Get(echo.HeaderAuthorization)
	if token, ok := strings.CutPrefix(header, bearerPrefix); ok {
		return strings.TrimSpace(token)
	}

	return ""
}
