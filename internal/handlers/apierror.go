// Package handlers implements the JSON API surface of the console.
package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/damacus/delta-commander/internal/deltaglider"
	"github.com/damacus/delta-commander/internal/listing"
	"github.com/damacus/delta-commander/internal/services"
)

// APIError is the wire shape of every error the API returns. Codes are
// stable strings clients switch on; messages are for humans.
type APIError struct {
	Status  int            `json:"-"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *APIError) Error() string { return e.Code + ": " + e.Message }

type errorEnvelope struct {
	Error *APIError `json:"error"`
}

func apiError(status int, code, message string) *APIError {
	return &APIError{Status: status, Code: code, Message: message}
}

func BadRequest(code, message string) *APIError {
	return apiError(http.StatusBadRequest, code, message)
}

// TranslateError maps domain errors onto API errors. Anything unrecognised
// is treated as a storage backend failure.
func TranslateError(err error) *APIError {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, deltaglider.ErrBucketNotFound):
		return apiError(http.StatusNotFound, "bucket_not_found", "bucket does not exist")
	case errors.Is(err, deltaglider.ErrKeyNotFound):
		return apiError(http.StatusNotFound, "key_not_found", "object does not exist")
	case errors.Is(err, deltaglider.ErrBucketExists):
		return apiError(http.StatusConflict, "bucket_exists", "bucket already exists")
	case errors.Is(err, deltaglider.ErrBucketNotEmpty):
		return apiError(http.StatusConflict, "bucket_not_empty", "bucket is not empty")
	case errors.Is(err, listing.ErrInvalidCursor):
		return apiError(http.StatusBadRequest, "invalid_cursor", "cursor is malformed")
	case errors.Is(err, services.ErrTokenExpired):
		return apiError(http.StatusBadRequest, "token_expired", "download token has expired")
	case errors.Is(err, services.ErrInvalidToken):
		return apiError(http.StatusBadRequest, "invalid_token", "download token is invalid")
	default:
		return apiError(http.StatusServiceUnavailable, "sdk_error", "storage backend request failed")
	}
}

// ErrorHandler renders every error through the envelope, including the ones
// echo itself raises for unknown routes and middleware rejections.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	apiErr := envelopeFor(err)
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(apiErr.Status)
		return
	}
	_ = c.JSON(apiErr.Status, errorEnvelope{Error: apiErr})
}

func envelopeFor(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		message, _ := httpErr.Message.(string)
		if message == "" {
			message = http.StatusText(httpErr.Code)
		}
		return apiError(httpErr.Code, codeForStatus(httpErr.Code), message)
	}
	return TranslateError(err)
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusTooManyRequests:
		return "throttled"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	default:
		return "internal_error"
	}
}
