package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damacus/delta-commander/internal/deltaglider"
	"github.com/damacus/delta-commander/internal/services"
	"github.com/damacus/delta-commander/internal/utils"
)

func TestConnectionStatusReportsMonitor(t *testing.T) {
	monitor := services.NewHealthMonitor(func(context.Context) error { return errors.New("unreachable") })
	monitor.CheckNow(context.Background())
	handler := NewConnectionHandler(&deltaglider.MemoryFactory{Store: deltaglider.NewMemoryStore()}, monitor, services.NewAuthService())

	e := echo.New()
	rec := httptest.NewRecorder()
	require.NoError(t, handler.Status(e.NewContext(httptest.NewRequest(http.MethodGet, "/api/connection/status", nil), rec)))

	var status services.ConnectionStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Connected)
	assert.Equal(t, "unreachable", status.Error)
}

func TestReconnectProbesSessionCredentials(t *testing.T) {
	monitor := services.NewHealthMonitor(func(context.Context) error { return nil })
	handler := NewConnectionHandler(&deltaglider.MemoryFactory{Store: deltaglider.NewMemoryStore()}, monitor, services.NewAuthService())

	e := echo.New()
	rec := httptest.NewRecorder()
	c := authedContext(e, httptest.NewRequest(http.MethodPost, "/api/connection/reconnect", nil), rec)
	require.NoError(t, handler.Reconnect(c))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["connected"])
}

func TestRotateReplacesSessionKeys(t *testing.T) {
	authService := services.NewAuthService()
	handler := NewConnectionHandler(&deltaglider.MemoryFactory{Store: deltaglider.NewMemoryStore()}, nil, authService)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/connection/rotate", strings.NewReader(`{"accessKey":"new-ak","secretKey":"new-sk"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec)

	require.NoError(t, handler.Rotate(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	var rotated string
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == utils.CookieName {
			rotated = cookie.Value
		}
	}
	require.NotEmpty(t, rotated)

	creds, err := authService.DecryptCredentials(rotated)
	require.NoError(t, err)
	assert.Equal(t, "new-ak", creds.AccessKey)
	assert.Equal(t, testCreds.Endpoint, creds.Endpoint, "endpoint survives rotation")
}

func TestRotateRejectsEmptyKeys(t *testing.T) {
	handler := NewConnectionHandler(&deltaglider.MemoryFactory{Store: deltaglider.NewMemoryStore()}, nil, services.NewAuthService())
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/connection/rotate", strings.NewReader(`{"accessKey":""}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := authedContext(e, req, httptest.NewRecorder())

	err := handler.Rotate(c)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "missing_credentials", apiErr.Code)
}
