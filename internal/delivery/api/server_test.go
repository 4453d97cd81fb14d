package api

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"authservice/config"
	"authservice/internal/delivery/api/middleware"
	"authservice/internal/delivery/api/router"
	"authservice/internal/delivery/api/router/handler"
	"authservice/internal/infra/auth"
	"authservice/internal/usecase/impl"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"
	"golang.org/x/crypto/bcrypt"
)

var (
	signingKeyOnce sync.Once
	signingKeyPEM  []byte
	signingKeyErr  error
)

func testSigningKeyPEM(t *testing.T) []byte {
	t.Helper()

	signingKeyOnce.Do(func() {
		var key *rsa.PrivateKey
		key, signingKeyErr = rsa.GenerateKey(rand.Reader, 2048)
		if signingKeyErr != nil {
			return
		}
		signingKeyPEM = pem.EncodeToMemory(&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(key),
		})
	})
	require.NoError(t, signingKeyErr)

	return signingKeyPEM
}

type testAPI struct {
	echo  *echo.Echo
	store *memoryStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	keyPEM := testSigningKeyPEM(t)
	cfg := &config.Config{
		Token: &config.TokenConfig{
			Issuer:        "auth-service",
			RefreshSecret: "test-refresh-secret",
			AccessTTL:     time.Hour,
			RefreshTTL:    365 * 24 * time.Hour,
		},
		Cookie: &config.CookieConfig{Domain: "localhost"},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	keys := auth.NewRSAKeyProvider(func(ctx context.Context) (*blob.Bucket, error) {
		bucket := memblob.OpenBucket(nil)
		if err := bucket.WriteAll(ctx, "private.pem", keyPEM, nil); err != nil {
			return nil, err
		}

		return bucket, nil
	}, "private.pem")
	tokens := auth.NewJWTService(auth.JWTParams{
		Config:           cfg,
		Keys:             keys,
		VerificationKeys: auth.NewLocalKeySource(keys),
	})

	store := newMemoryStore()
	authUC := impl.NewAuthService(impl.AuthServiceParams{
		TxManager:        store,
		UserRepo:         store.UserRepo(),
		RefreshTokenRepo: store.RefreshTokenRepo(),
		Hasher:           auth.NewBcryptHasherWithCost(bcrypt.MinCost),
		Signer:           tokens.Signer,
		Verifier:         tokens.Verifier,
		Config:           cfg,
		Logger:           logger,
	})

	r := router.NewRouter(router.RouterParams{
		AuthHandler:    handler.NewAuthHandler(handler.AuthHandlerParams{AuthUC: authUC, Config: cfg, Logger: logger}),
		JWKSHandler:    handler.NewJWKSHandler(handler.JWKSHandlerParams{Keys: keys}),
		AuthMiddleware: middleware.NewAuthMiddleware(middleware.AuthMiddlewareParams{Verifier: tokens.Verifier, Logger: logger}),
	})

	return &testAPI{
		echo:  NewEcho(cfg, logger, r),
		store: store,
	}
}

func (a *testAPI) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)

	return rec
}

func (a *testAPI) register(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()

	return a.do(t, http.MethodPost, "/auth/register",
		`{"firstName":"Ajay","lastName":"K","email":"`+email+`","password":"`+password+`"}`)
}

func cookiesByName(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	cookies := make(map[string]*http.Cookie)
	for _, cookie := range rec.Result().Cookies() {
		cookies[cookie.Name] = cookie
	}

	return cookies
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	return body
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	body := decodeBody(t, rec)
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok, "error envelope expected, got %s", rec.Body.String())

	return errBody
}

func unverifiedClaims(t *testing.T, token string) jwt.MapClaims {
	t.Helper()

	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)

	return claims
}

func TestAPI_Register(t *testing.T) {
	api := newTestAPI(t)

	rec := api.register(t, "a@b.com", "secret")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Len(t, body, 1)
	id, ok := body["id"].(string)
	require.True(t, ok)
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	cookies := cookiesByName(rec)
	require.Len(t, cookies, 2)

	access := cookies[middleware.AccessTokenCookie]
	refresh := cookies[middleware.RefreshTokenCookie]
	require.NotNil(t, access)
	require.NotNil(t, refresh)

	for _, cookie := range []*http.Cookie{access, refresh} {
		assert.Len(t, strings.Split(cookie.Value, "."), 3)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
		assert.Equal(t, "localhost", cookie.Domain)
		assert.Equal(t, "/", cookie.Path)
	}
	assert.Equal(t, 3600, access.MaxAge)
	assert.Equal(t, 31536000, refresh.MaxAge)

	accessClaims := unverifiedClaims(t, access.Value)
	assert.Equal(t, id, accessClaims["sub"])
	assert.Equal(t, "customer", accessClaims["role"])
	assert.Equal(t, "auth-service", accessClaims["iss"])

	refreshClaims := unverifiedClaims(t, refresh.Value)
	jti, err := uuid.Parse(refreshClaims["jti"].(string))
	require.NoError(t, err)
	assert.True(t, api.store.hasToken(jti))
	assert.Equal(t, 1, api.store.tokenCount())
}

func TestAPI_Register_DuplicateEmail(t *testing.T) {
	api := newTestAPI(t)

	require.Equal(t, http.StatusOK, api.register(t, "a@b.com", "secret").Code)

	rec := api.register(t, "a@b.com", "other")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "DUPLICATE_EMAIL", errorOf(t, rec)["code"])
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, 1, api.store.tokenCount())
}

func TestAPI_Register_ValidationFailed(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/auth/register", `{"email":"not-an-email","password":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	errBody := errorOf(t, rec)
	assert.Equal(t, "VALIDATION_FAILED", errBody["code"])

	details, ok := errBody["details"].([]any)
	require.True(t, ok)
	fields := make([]string, 0, len(details))
	for _, detail := range details {
		fields = append(fields, detail.(map[string]any)["field"].(string))
	}
	assert.ElementsMatch(t, []string{"firstName", "lastName", "email", "password"}, fields)
	assert.Empty(t, rec.Result().Cookies())
}

func TestAPI_Register_PasswordLimitCountsBytes(t *testing.T) {
	api := newTestAPI(t)

	rec := api.register(t, "a@b.com", strings.Repeat("é", 40))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	errBody := errorOf(t, rec)
	assert.Equal(t, "VALIDATION_FAILED", errBody["code"])
	assert.Equal(t, []any{
		map[string]any{"field": "password", "message": "password must be at most 72 bytes"},
	}, errBody["details"])
	assert.Empty(t, api.store.users)

	rec = api.register(t, "a@b.com", strings.Repeat("é", 36))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_Register_TrimsEmail(t *testing.T) {
	api := newTestAPI(t)

	require.Equal(t, http.StatusOK, api.register(t, "  a@b.com ", "secret").Code)

	rec := api.do(t, http.MethodPost, "/auth/login", `{"email":"a@b.com","password":"secret"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_Register_LedgerFailureEmitsNoCookies(t *testing.T) {
	api := newTestAPI(t)
	api.store.failTokens = true

	rec := api.register(t, "a@b.com", "secret")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
	assert.Nil(t, errorOf(t, rec)["details"])

	// The transaction rolled the user back, so the email is still free.
	api.store.failTokens = false
	assert.Equal(t, http.StatusOK, api.register(t, "a@b.com", "secret").Code)
}

func TestAPI_Login(t *testing.T) {
	api := newTestAPI(t)

	registered := decodeBody(t, api.register(t, "a@b.com", "secret"))

	rec := api.do(t, http.MethodPost, "/auth/login", `{"email":"a@b.com","password":"secret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, registered["id"], decodeBody(t, rec)["id"])
	assert.Len(t, cookiesByName(rec), 2)
	assert.Equal(t, 2, api.store.tokenCount())
}

func TestAPI_Login_FailuresAreIndistinguishable(t *testing.T) {
	api := newTestAPI(t)

	require.Equal(t, http.StatusOK, api.register(t, "a@b.com", "secret").Code)

	wrongPassword := api.do(t, http.MethodPost, "/auth/login", `{"email":"a@b.com","password":"wrong"}`)
	unknownEmail := api.do(t, http.MethodPost, "/auth/login", `{"email":"nobody@b.com","password":"secret"}`)

	require.Equal(t, http.StatusBadRequest, wrongPassword.Code)
	require.Equal(t, http.StatusBadRequest, unknownEmail.Code)

	wrongErr := errorOf(t, wrongPassword)
	unknownErr := errorOf(t, unknownEmail)
	assert.Equal(t, "Email or password doesn't match. Try again", wrongErr["message"])
	assert.Equal(t, wrongErr, unknownErr)
	assert.Empty(t, wrongPassword.Result().Cookies())
	assert.Empty(t, unknownEmail.Result().Cookies())
}

func TestAPI_Self(t *testing.T) {
	api := newTestAPI(t)

	registered := api.register(t, "a@b.com", "secret")
	access := cookiesByName(registered)[middleware.AccessTokenCookie]

	t.Run("cookie", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/auth/self", "", access)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, decodeBody(t, registered)["id"], body["id"])
		assert.Equal(t, "a@b.com", body["email"])
		assert.Equal(t, "customer", body["role"])
		assert.NotContains(t, body, "password")
		assert.NotContains(t, body, "passwordHash")
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/self", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+access.Value)
		rec := httptest.NewRecorder()
		api.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/auth/self", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "UNAUTHORIZED", errorOf(t, rec)["code"])
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		refresh := cookiesByName(registered)[middleware.RefreshTokenCookie]
		rec := api.do(t, http.MethodGet, "/auth/self", "", &http.Cookie{Name: middleware.AccessTokenCookie, Value: refresh.Value})

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "TOKEN_INVALID_SIGNATURE", errorOf(t, rec)["code"])
	})

	t.Run("malformed token", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/auth/self", "", &http.Cookie{Name: middleware.AccessTokenCookie, Value: "not-a-jwt"})

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "TOKEN_MALFORMED", errorOf(t, rec)["code"])
	})
}

func TestAPI_Refresh(t *testing.T) {
	api := newTestAPI(t)

	registered := cookiesByName(api.register(t, "a@b.com", "secret"))
	oldRefresh := registered[middleware.RefreshTokenCookie]

	rec := api.do(t, http.MethodPost, "/auth/refresh", "", oldRefresh)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rotated := cookiesByName(rec)
	require.Len(t, rotated, 2)
	assert.NotEqual(t, oldRefresh.Value, rotated[middleware.RefreshTokenCookie].Value)
	assert.Equal(t, 1, api.store.tokenCount())

	oldJTI := uuid.MustParse(unverifiedClaims(t, oldRefresh.Value)["jti"].(string))
	newJTI := uuid.MustParse(unverifiedClaims(t, rotated[middleware.RefreshTokenCookie].Value)["jti"].(string))
	assert.False(t, api.store.hasToken(oldJTI))
	assert.True(t, api.store.hasToken(newJTI))

	// A rotated token cannot be replayed.
	replay := api.do(t, http.MethodPost, "/auth/refresh", "", oldRefresh)
	require.Equal(t, http.StatusUnauthorized, replay.Code)
	assert.Equal(t, "REFRESH_TOKEN_INVALID", errorOf(t, replay)["code"])
	assert.Empty(t, replay.Result().Cookies())
}

func TestAPI_Refresh_MissingCookie(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/auth/refresh", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_Logout(t *testing.T) {
	api := newTestAPI(t)

	cookies := cookiesByName(api.register(t, "a@b.com", "secret"))
	require.Equal(t, 1, api.store.tokenCount())

	rec := api.do(t, http.MethodPost, "/auth/logout", "",
		cookies[middleware.AccessTokenCookie], cookies[middleware.RefreshTokenCookie])
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Zero(t, api.store.tokenCount())

	cleared := cookiesByName(rec)
	require.Len(t, cleared, 2)
	for _, cookie := range cleared {
		assert.Empty(t, cookie.Value)
		assert.Negative(t, cookie.MaxAge)
	}

	// The revoked refresh token no longer rotates.
	refresh := api.do(t, http.MethodPost, "/auth/refresh", "", cookies[middleware.RefreshTokenCookie])
	assert.Equal(t, http.StatusUnauthorized, refresh.Code)
}

func TestAPI_Logout_RequiresAccessToken(t *testing.T) {
	api := newTestAPI(t)

	cookies := cookiesByName(api.register(t, "a@b.com", "secret"))

	rec := api.do(t, http.MethodPost, "/auth/logout", "", cookies[middleware.RefreshTokenCookie])
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 1, api.store.tokenCount())
}

func TestAPI_JWKS(t *testing.T) {
	api := newTestAPI(t)

	access := cookiesByName(api.register(t, "a@b.com", "secret"))[middleware.AccessTokenCookie]

	rec := api.do(t, http.MethodGet, "/.well-known/jwks.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=600", rec.Header().Get("Cache-Control"))

	var set struct {
		Keys []map[string]any `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &set))
	require.Len(t, set.Keys, 1)

	key := set.Keys[0]
	assert.Equal(t, "RSA", key["kty"])
	assert.Equal(t, "RS256", key["alg"])
	assert.Equal(t, "sig", key["use"])
	assert.NotContains(t, key, "d")

	token, _, err := jwt.NewParser().ParseUnverified(access.Value, jwt.MapClaims{})
	require.NoError(t, err)
	assert.Equal(t, token.Header["kid"], key["kid"])
}

func TestAPI_HealthAndRequestID(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "req-123")
	rec := httptest.NewRecorder()
	api.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-Id"))

	body := decodeBody(t, rec)
	assert.Equal(t, map[string]any{"status": "ok"}, body["data"])
	assert.Equal(t, map[string]any{"request_id": "req-123"}, body["meta"])
}

func TestAPI_UnknownRoute(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "HTTP_ERROR", errorOf(t, rec)["code"])
}
