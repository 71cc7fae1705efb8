// Package middleware holds the HTTP middleware for the console API.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/damacus/delta-commander/internal/services"
	"github.com/damacus/delta-commander/internal/utils"
)

// Paths reachable without a session. Token downloads authenticate through
// the sealed token in the URL instead of the cookie.
var publicPaths = map[string]bool{
	"/api/auth/login":    true,
	"/api/auth/profiles": true,
	"/api/health":        true,
}

// AuthMiddleware validates the session cookie and stores the unsealed
// credentials on the request context. API routes answer 401 as JSON; there
// is no login page to redirect to.
func AuthMiddleware(authService *services.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if publicPaths[path] || strings.HasPrefix(path, "/api/download/token/") {
				return next(c)
			}

			cookie, err := c.Cookie(utils.CookieName)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			creds, err := authService.DecryptCredentials(cookie.Value)
			if err != nil {
				// Clear the broken cookie so the client does not retry it.
				cookie.Value = ""
				cookie.Path = "/"
				cookie.MaxAge = -1
				c.SetCookie(cookie)
				return echo.NewHTTPError(http.StatusUnauthorized, "session invalid")
			}

			c.Set(utils.ContextKeyCreds, creds)
			return next(c)
		}
	}
}
