package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func applySecurityHeaders(t *testing.T, req *http.Request) http.Header {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	handler := SecurityHeaders()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	return rec.Header()
}

func TestSecurityHeadersSet(t *testing.T) {
	headers := applySecurityHeaders(t, httptest.NewRequest(http.MethodGet, "/api/buckets", nil))

	assert.Equal(t, "DENY", headers.Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", headers.Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", headers.Get("Referrer-Policy"))
	assert.NotEmpty(t, headers.Get("Content-Security-Policy"))
	assert.Empty(t, headers.Get("Strict-Transport-Security"), "no HSTS on plain HTTP")
}

func TestSecurityHeadersHSTSOnTLS(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/buckets", nil)
	req.TLS = &tls.ConnectionState{}
	headers := applySecurityHeaders(t, req)
	assert.Contains(t, headers.Get("Strict-Transport-Security"), "max-age=")
}

func TestSecurityHeadersHSTSBehindProxy(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/buckets", nil)
	req.Header.Set("X-Forwarded-Proto", "HTTPS")
	headers := applySecurityHeaders(t, req)
	assert.Contains(t, headers.Get("Strict-Transport-Security"), "max-age=")
}
