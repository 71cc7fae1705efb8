package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rateLimitedHandler(cfg RateLimitConfig) (echo.HandlerFunc, *echo.Echo) {
	e := echo.New()
	handler := RateLimit(cfg)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return handler, e
}

func TestRateLimitAllowsWithinBurst(t *testing.T) {
	handler, e := rateLimitedHandler(RateLimitConfig{RequestsPerSecond: 1, Burst: 3})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/buckets", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		c := e.NewContext(req, httptest.NewRecorder())
		assert.NoError(t, handler(c), "request %d", i)
	}
}

func TestRateLimitRejectsOverBurst(t *testing.T) {
	handler, e := rateLimitedHandler(RateLimitConfig{RequestsPerSecond: 1, Burst: 1})

	req := httptest.NewRequest(http.MethodGet, "/api/buckets", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	require.NoError(t, handler(e.NewContext(req, httptest.NewRecorder())))

	req2 := httptest.NewRequest(http.MethodGet, "/api/buckets", nil)
	req2.RemoteAddr = "10.0.0.1:1234"
	err := handler(e.NewContext(req2, httptest.NewRecorder()))

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusTooManyRequests, httpErr.Code)
}

func TestRateLimitIsPerClient(t *testing.T) {
	handler, e := rateLimitedHandler(RateLimitConfig{RequestsPerSecond: 1, Burst: 1})

	req := httptest.NewRequest(http.MethodGet, "/api/buckets", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	require.NoError(t, handler(e.NewContext(req, httptest.NewRecorder())))

	other := httptest.NewRequest(http.MethodGet, "/api/buckets", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	assert.NoError(t, handler(e.NewContext(other, httptest.NewRecorder())),
		"a saturated neighbour must not throttle this client")
}
