package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	deliverycontext "authservice/internal/delivery/context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveWithRequestID(t *testing.T, inbound string) (header, seen string) {
	t.Helper()

	e := echo.New()
	mw := NewRequestIDMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.GET("/", func(c echo.Context) error {
		seen = deliverycontext.GetRequestID(c)

		return c.NoContent(http.StatusNoContent)
	}, mw.Process)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if inbound != "" {
		req.Header.Set(deliverycontext.HeaderXRequestID, inbound)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	return rec.Header().Get(deliverycontext.HeaderXRequestID), seen
}

func TestRequestIDMiddleware_KeepsInboundID(t *testing.T) {
	header, seen := serveWithRequestID(t, "trace-123")

	assert.Equal(t, "trace-123", header)
	assert.Equal(t, "trace-123", seen)
}

func TestRequestIDMiddleware_MintsID(t *testing.T) {
	for name, inbound := range map[string]string{
		"missing":   "",
		"too long":  strings.Repeat("a", maxRequestIDLength+1),
		"non ascii": "id\nforged: yes",
	} {
		t.Run(name, func(t *testing.T) {
			header, seen := serveWithRequestID(t, inbound)

			_, err := uuid.Parse(header)
			require.NoError(t, err)
			assert.Equal(t, header, seen)
		})
	}
}
