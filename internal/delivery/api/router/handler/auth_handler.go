// Package handler contains the HTTP handlers for the API.
package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"authservice/config"
	"authservice/internal/delivery/api/middleware"
	"authservice/internal/delivery/api/response"
	"authservice/internal/domain/entity"
	domainerrors "authservice/internal/domain/errors"
	"authservice/internal/errors"
	"authservice/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

const (
	defaultAccessTTL    = time.Hour
	defaultCookieDomain = "localhost"
)

// AuthHandlerParams holds dependencies for AuthHandler, injected by Fx.
type AuthHandlerParams struct {
	fx.In

	AuthUC usecase.AuthUsecase
	Config *config.Config
	Logger *slog.Logger
}

// AuthHandler serves the /auth routes.
type AuthHandler struct {
	authUC     usecase.AuthUsecase
	logger     *slog.Logger
	domain     string
	secure     bool
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewAuthHandler is the constructor for AuthHandler
func NewAuthHandler(params AuthHandlerParams) *AuthHandler {
	h := &AuthHandler{
		authUC:     params.AuthUC,
		logger:     params.Logger,
		domain:     defaultCookieDomain,
		accessTTL:  defaultAccessTTL,
		refreshTTL: entity.RefreshTokenLifetime,
	}

	if cookie := params.Config.Cookie; cookie != nil {
		if cookie.Domain != "" {
			h.domain = cookie.Domain
		}
		h.secure = cookie.Secure
	}
	if token := params.Config.Token; token != nil {
		if token.AccessTTL > 0 {
			h.accessTTL = token.AccessTTL
		}
		if token.RefreshTTL > 0 {
			h.refreshTTL = token.RefreshTTL
		}
	}

	return h
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,maxbytes=72"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,maxbytes=72"`
}

// UserResponse is a user as returned to its owner; the password hash never leaves the service.
type UserResponse struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Register creates an account and signs it in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return errors.Wrap(domainerrors.ErrValidationFailed, "invalid registration body")
	}
	req.Email = strings.TrimSpace(req.Email)

	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	output, err := h.authUC.Register(c.Request().Context(), usecase.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	h.setTokenCookies(c, output)

	return response.ID(c, output.User.ID.String())
}

// Login verifies credentials and signs the user in.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return errors.Wrap(domainerrors.ErrValidationFailed, "invalid login body")
	}
	req.Email = strings.TrimSpace(req.Email)

	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	output, err := h.authUC.Login(c.Request().Context(), usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	h.setTokenCookies(c, output)

	return response.ID(c, output.User.ID.String())
}

// Self returns the authenticated user.
func (h *AuthHandler) Self(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return errors.WithStack(domainerrors.ErrUnauthorized)
	}

	user, err := h.authUC.Self(c.Request().Context(), userID)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Refresh exchanges the refresh token cookie for a new token pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	cookie, err := c.Cookie(middleware.RefreshTokenCookie)
	if err != nil || cookie.Value == "" {
		return errors.Wrap(domainerrors.ErrUnauthorized, "refresh token is missing")
	}

	output, err := h.authUC.Refresh(c.Request().Context(), usecase.RefreshInput{RefreshToken: cookie.Value})
	if err != nil {
		return errors.WithStack(err)
	}

	h.setTokenCookies(c, output)

	return response.ID(c, output.User.ID.String())
}

// Logout revokes the session of the refresh token cookie and clears both cookies.
func (h *AuthHandler) Logout(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return errors.WithStack(domainerrors.ErrUnauthorized)
	}

	input := usecase.LogoutInput{UserID: userID}
	if cookie, err := c.Cookie(middleware.RefreshTokenCookie); err == nil {
		input.RefreshToken = cookie.Value
	}

	if err := h.authUC.Logout(c.Request().Context(), input); err != nil {
		return errors.WithStack(err)
	}

	h.clearTokenCookies(c)

	return response.Success(c, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

// setTokenCookies runs only after every issuance step succeeded.
func (h *AuthHandler) setTokenCookies(c echo.Context, output *usecase.AuthOutput) {
	c.SetCookie(h.cookie(middleware.AccessTokenCookie, output.AccessToken, int(h.accessTTL.Seconds())))
	c.SetCookie(h.cookie(middleware.RefreshTokenCookie, output.RefreshToken, int(h.refreshTTL.Seconds())))
}

func (h *AuthHandler) clearTokenCookies(c echo.Context) {
	c.SetCookie(h.cookie(middleware.AccessTokenCookie, "", -1))
	c.SetCookie(h.cookie(middleware.RefreshTokenCookie, "", -1))
}

func (h *AuthHandler) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func toUserResponse(user *entity.User) UserResponse {
	return UserResponse{
		ID:        user.ID.String(),
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Role:      user.Role.String(),
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
