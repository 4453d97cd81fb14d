package handler

import (
	"net/http"

	"authservice/internal/delivery/api/response"
	"authservice/internal/domain/service"
	"authservice/internal/errors"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// jwksMaxAge matches the default cache TTL of remote JWKS consumers.
const jwksMaxAge = "public, max-age=600"

// JWKSHandlerParams holds dependencies for JWKSHandler, injected by Fx.
type JWKSHandlerParams struct {
	fx.In

	Keys service.KeyProvider
}

// JWKSHandler publishes the access token verification key.
type JWKSHandler struct {
	keys service.KeyProvider
}

// NewJWKSHandler is the constructor for JWKSHandler
func NewJWKSHandler(params JWKSHandlerParams) *JWKSHandler {
	return &JWKSHandler{keys: params.Keys}
}

// GetJWKS serves the public key set other services verify access tokens with.
func (h *JWKSHandler) GetJWKS(c echo.Context) error {
	set, err := h.keys.JWKS(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}

	c.Response().Header().Set("Cache-Control", jwksMaxAge)

	return c.JSON(http.StatusOK, set)
}

// HealthCheck is a simple handler to check if the service is up.
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"})
}
