package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/damacus/delta-commander/internal/deltaglider"
	"github.com/damacus/delta-commander/internal/services"
)

type ConnectionHandler struct {
	storeFactory deltaglider.StoreFactory
	monitor      *services.HealthMonitor
	authService  *services.AuthService
}

func NewConnectionHandler(storeFactory deltaglider.StoreFactory, monitor *services.HealthMonitor, authService *services.AuthService) *ConnectionHandler {
	return &ConnectionHandler{storeFactory: storeFactory, monitor: monitor, authService: authService}
}

// Status reports the background monitor's latest view of the backend.
func (h *ConnectionHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.monitor.Status())
}

// Reconnect probes the caller's own credentials right now. Unlike Status it
// answers for this session, not the monitor's probe credentials.
func (h *ConnectionHandler) Reconnect(c echo.Context) error {
	creds, err := GetCredentials(c)
	if err != nil {
		return err
	}
	store, err := h.storeFactory.NewStore(*creds)
	if err != nil {
		return TranslateError(err)
	}
	if _, err := store.ListBuckets(c.Request().Context()); err != nil {
		return c.JSON(http.StatusOK, map[string]any{"connected": false, "error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"connected": true})
}

type rotateRequest struct {
	AccessKey string `json:"accessKey"`
	SecretKey string `json:"secretKey"`
}

// Rotate swaps the session's keys in place, keeping endpoint and region. The
// new keys are verified before the cookie is replaced.
func (h *ConnectionHandler) Rotate(c echo.Context) error {
	creds, err := GetCredentials(c)
	if err != nil {
		return err
	}
	var req rotateRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("bad_request", "malformed payload")
	}
	if req.AccessKey == "" || req.SecretKey == "" {
		return BadRequest("missing_credentials", "access key and secret key are required")
	}

	next := *creds
	next.AccessKey = req.AccessKey
	next.SecretKey = req.SecretKey

	store, err := h.storeFactory.NewStore(next)
	if err != nil {
		return TranslateError(err)
	}
	if _, err := store.ListBuckets(c.Request().Context()); err != nil {
		return apiError(http.StatusUnauthorized, "invalid_credentials", "authentication with the new keys failed")
	}

	sealed, err := h.authService.EncryptCredentials(next)
	if err != nil {
		return TranslateError(err)
	}
	c.SetCookie(sessionCookie(c, sealed, 24*60*60))
	return c.NoContent(http.StatusNoContent)
}
