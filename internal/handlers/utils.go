package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/damacus/delta-commander/internal/browse"
	"github.com/damacus/delta-commander/internal/cache"
	"github.com/damacus/delta-commander/internal/deltaglider"
	"github.com/damacus/delta-commander/internal/utils"
)

// DefaultPageLimit and MaxPageLimit bound the limit query parameter.
const (
	DefaultPageLimit = 100
	MaxPageLimit     = 1000
)

// GetCredentials retrieves the unsealed credentials the auth middleware put
// on the context.
func GetCredentials(c echo.Context) (*deltaglider.Credentials, error) {
	val := c.Get(utils.ContextKeyCreds)
	if val == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	creds, ok := val.(*deltaglider.Credentials)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	return creds, nil
}

// Fingerprint returns the cache scope for the request's credentials.
func Fingerprint(creds *deltaglider.Credentials) string {
	return cache.CredentialsFingerprint(*creds)
}

// parseLimit validates the limit query parameter.
func parseLimit(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return DefaultPageLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > MaxPageLimit {
		return 0, BadRequest("invalid_limit", "limit must be an integer between 1 and 1000")
	}
	return limit, nil
}

// normalizePrefix turns a user-supplied prefix into the canonical form: no
// leading slash, a single trailing slash unless empty.
func normalizePrefix(prefix string) string {
	prefix = strings.TrimLeft(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}

// requestSelection folds a bulk request's key sets into a selection:
// repeated entries collapse, prefixes get their canonical trailing slash
// and empty entries are dropped.
func requestSelection(keys, prefixes []string) *browse.Selection {
	sel := browse.NewSelection()
	for _, k := range keys {
		if k != "" {
			sel.Add(browse.Object(k))
		}
	}
	for _, p := range prefixes {
		if np := normalizePrefix(p); np != "" {
			sel.Add(browse.Prefix(np))
		}
	}
	return sel
}

// sanitizeRelativePath cleans a client-supplied relative path for upload
// keys. Empty segments, "." and ".." are dropped so a crafted path cannot
// climb out of the target prefix.
func sanitizeRelativePath(path string) string {
	parts := strings.Split(path, "/")
	clean := parts[:0]
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			continue
		}
		clean = append(clean, part)
	}
	return strings.Join(clean, "/")
}
