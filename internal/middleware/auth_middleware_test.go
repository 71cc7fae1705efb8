package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damacus/delta-commander/internal/deltaglider"
	"github.com/damacus/delta-commander/internal/services"
	"github.com/damacus/delta-commander/internal/utils"
)

func runAuth(t *testing.T, svc *services.AuthService, req *http.Request) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	handler := AuthMiddleware(svc)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return rec, handler(c)
}

func TestAuthMiddlewareRejectsMissingCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/buckets", nil)
	_, err := runAuth(t, services.NewAuthService(), req)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestAuthMiddlewarePassesValidSession(t *testing.T) {
	svc := services.NewAuthService()
	sealed, err := svc.EncryptCredentials(deltaglider.Credentials{Endpoint: "e", AccessKey: "a", SecretKey: "s"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/buckets", nil)
	req.AddCookie(&http.Cookie{Name: utils.CookieName, Value: sealed})

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	handler := AuthMiddleware(svc)(func(c echo.Context) error {
		creds, ok := c.Get(utils.ContextKeyCreds).(*deltaglider.Credentials)
		require.True(t, ok)
		assert.Equal(t, "a", creds.AccessKey)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddlewareClearsTamperedCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/buckets", nil)
	req.AddCookie(&http.Cookie{Name: utils.CookieName, Value: "garbage"})

	rec, err := runAuth(t, services.NewAuthService(), req)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)

	cleared := false
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == utils.CookieName && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "broken cookie must be expired")
}

func TestAuthMiddlewareSkipsPublicPaths(t *testing.T) {
	for _, path := range []string{"/api/auth/login", "/api/health", "/api/auth/profiles", "/api/download/token/abc"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		_, err := runAuth(t, services.NewAuthService(), req)
		assert.NoError(t, err, "path %s", path)
	}
}
