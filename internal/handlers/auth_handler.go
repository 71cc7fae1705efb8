package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/damacus/delta-commander/internal/config"
	"github.com/damacus/delta-commander/internal/deltaglider"
	"github.com/damacus/delta-commander/internal/services"
	"github.com/damacus/delta-commander/internal/utils"
)

type AuthHandler struct {
	authService     *services.AuthService
	storeFactory    deltaglider.StoreFactory
	profiles        []config.Profile
	defaultEndpoint string
	defaultRegion   string
}

func NewAuthHandler(authService *services.AuthService, storeFactory deltaglider.StoreFactory, profiles []config.Profile, defaultEndpoint, defaultRegion string) *AuthHandler {
	return &AuthHandler{
		authService:     authService,
		storeFactory:    storeFactory,
		profiles:        profiles,
		defaultEndpoint: defaultEndpoint,
		defaultRegion:   defaultRegion,
	}
}

type loginRequest struct {
	Profile   string `json:"profile,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	AccessKey string `json:"accessKey,omitempty"`
	SecretKey string `json:"secretKey,omitempty"`
	Region    string `json:"region,omitempty"`
}

type loginResponse struct {
	Endpoint string `json:"endpoint"`
	Region   string `json:"region,omitempty"`
}

// Login validates the submitted credentials against the store and seals them
// into the session cookie. Either a named profile or explicit keys.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("bad_request", "malformed login payload")
	}

	var creds deltaglider.Credentials
	if req.Profile != "" {
		profile, ok := config.FindProfile(h.profiles, req.Profile)
		if !ok {
			return BadRequest("unknown_profile", "no such credential profile")
		}
		creds = profile.Credentials
	} else {
		creds = deltaglider.Credentials{
			Endpoint:  req.Endpoint,
			AccessKey: req.AccessKey,
			SecretKey: req.SecretKey,
			Region:    req.Region,
		}
	}
	if creds.Endpoint == "" {
		creds.Endpoint = h.defaultEndpoint
	}
	if creds.Region == "" {
		creds.Region = h.defaultRegion
	}
	if creds.Endpoint == "" || creds.AccessKey == "" || creds.SecretKey == "" {
		return BadRequest("missing_credentials", "endpoint, access key and secret key are required")
	}

	store, err := h.storeFactory.NewStore(creds)
	if err != nil {
		return TranslateError(err)
	}
	// A listing round-trip proves the keys work before they are sealed.
	if _, err := store.ListBuckets(c.Request().Context()); err != nil {
		return apiError(http.StatusUnauthorized, "invalid_credentials", "authentication against the storage endpoint failed")
	}

	sealed, err := h.authService.EncryptCredentials(creds)
	if err != nil {
		return TranslateError(err)
	}
	c.SetCookie(sessionCookie(c, sealed, 24*60*60))

	return c.JSON(http.StatusOK, loginResponse{Endpoint: creds.Endpoint, Region: creds.Region})
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(sessionCookie(c, "", -1))
	return c.NoContent(http.StatusNoContent)
}

// Profiles lists the configured credential profile names. Secrets never
// leave the server; the client logs in by name.
func (h *AuthHandler) Profiles(c echo.Context) error {
	names := make([]string, 0, len(h.profiles))
	for _, p := range h.profiles {
		names = append(names, p.Name)
	}
	return c.JSON(http.StatusOK, map[string][]string{"profiles": names})
}

func sessionCookie(c echo.Context, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     utils.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Request().TLS != nil,
		SameSite: http.SameSiteStrictMode,
	}
}
