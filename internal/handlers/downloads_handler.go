package handlers

import (
	"archive/zip"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/damacus/delta-commander/internal/deltaglider"
	"github.com/damacus/delta-commander/internal/listing"
	"github.com/damacus/delta-commander/internal/services"
)

type DownloadsHandler struct {
	storeFactory deltaglider.StoreFactory
	downloads    *services.Downloads
	authService  *services.AuthService
}

func NewDownloadsHandler(storeFactory deltaglider.StoreFactory, downloads *services.Downloads, authService *services.AuthService) *DownloadsHandler {
	return &DownloadsHandler{storeFactory: storeFactory, downloads: downloads, authService: authService}
}

type prepareDownloadResponse struct {
	URL           string `json:"url"`
	ExpiresInSecs int    `json:"expires_in_secs"`
	EstimatedSize int64  `json:"estimated_size,omitempty"`
}

// Prepare mints a short-lived token URL for the object so the browser can
// follow it with a plain anchor click.
func (h *DownloadsHandler) Prepare(c echo.Context) error {
	creds, err := GetCredentials(c)
	if err != nil {
		return err
	}
	store, err := h.storeFactory.NewStore(*creds)
	if err != nil {
		return TranslateError(err)
	}
	bucket := c.Param("bucket")
	key := c.QueryParam("key")
	if key == "" {
		return BadRequest("bad_request", "key is required")
	}

	// Reject unknown keys now rather than at redemption time.
	size, err := store.EstimatedObjectSize(c.Request().Context(), bucket, key)
	if err != nil {
		return TranslateError(err)
	}

	token, err := h.downloads.Token(Fingerprint(creds), bucket, key)
	if err != nil {
		return TranslateError(err)
	}
	sealed, err := h.authService.EncryptCredentials(*creds)
	if err != nil {
		return TranslateError(err)
	}

	return c.JSON(http.StatusOK, prepareDownloadResponse{
		URL:           "/api/download/token/" + url.PathEscape(token) + "?session=" + url.QueryEscape(sealed),
		ExpiresInSecs: int(services.DownloadTokenTTL.Seconds()),
		EstimatedSize: size,
	})
}

// Redeem streams the object named by a prepared token. The sealed session
// travels in the URL because anchor downloads cannot attach headers.
func (h *DownloadsHandler) Redeem(c echo.Context) error {
	claim, err := h.downloads.Redeem(c.Param("token"))
	if err != nil {
		return TranslateError(err)
	}
	creds, err := h.authService.DecryptCredentials(c.QueryParam("session"))
	if err != nil {
		return TranslateError(services.ErrInvalidToken)
	}
	if Fingerprint(creds) != claim.Fingerprint {
		return TranslateError(services.ErrInvalidToken)
	}
	store, err := h.storeFactory.NewStore(*creds)
	if err != nil {
		return TranslateError(err)
	}

	body, size, err := store.OpenObject(c.Request().Context(), claim.Bucket, claim.Key)
	if err != nil {
		return TranslateError(err)
	}
	defer body.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, path.Base(claim.Key)))
	if size > 0 {
		c.Response().Header().Set(echo.HeaderContentLength, strconv.FormatInt(size, 10))
	}
	return c.Stream(http.StatusOK, echo.MIMEOctetStream, body)
}

type presignedResponse struct {
	URL           string `json:"url"`
	ExpiresInSecs int    `json:"expires_in_secs"`
}

// PresignedURL returns a direct-to-storage URL for the object. The expiry is
// clamped into the range the backend accepts.
func (h *DownloadsHandler) PresignedURL(c echo.Context) error {
	creds, err := GetCredentials(c)
	if err != nil {
		return err
	}
	store, err := h.storeFactory.NewStore(*creds)
	if err != nil {
		return TranslateError(err)
	}
	key := c.QueryParam("key")
	if key == "" {
		return BadRequest("bad_request", "key is required")
	}

	expiry := 0
	if raw := c.QueryParam("expiry"); raw != "" {
		expiry, err = strconv.Atoi(raw)
		if err != nil {
			return BadRequest("bad_request", "expiry must be an integer number of seconds")
		}
	}
	expiry = services.ClampPresignExpiry(expiry)

	signed, err := store.PresignedGetURL(c.Request().Context(), c.Param("bucket"), key, expiry)
	if err != nil {
		return TranslateError(err)
	}
	return c.JSON(http.StatusOK, presignedResponse{URL: signed, ExpiresInSecs: expiry})
}

type zipRequest struct {
	Keys     []string `json:"keys"`
	Prefixes []string `json:"prefixes"`
	Name     string   `json:"name,omitempty"`
}

// Zip streams the selection as a zip archive, expanding directory prefixes
// the same way bulk delete does. Objects are fetched one at a time; a failed
// fetch aborts the stream since the archive is already partially written.
func (h *DownloadsHandler) Zip(c echo.Context) error {
	creds, err := GetCredentials(c)
	if err != nil {
		return err
	}
	store, err := h.storeFactory.NewStore(*creds)
	if err != nil {
		return TranslateError(err)
	}
	bucket := c.Param("bucket")

	var req zipRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("bad_request", "malformed payload")
	}
	sel := requestSelection(req.Keys, req.Prefixes)
	if sel.Count() == 0 {
		return BadRequest("bad_request", "nothing selected")
	}

	keys, err := listing.ExpandSelection(c.Request().Context(), store, bucket, sel.Objects(), sel.Prefixes())
	if err != nil {
		return TranslateError(err)
	}

	name := req.Name
	if name == "" {
		name = bucket + ".zip"
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, name))
	c.Response().Header().Set(echo.HeaderContentType, "application/zip")
	c.Response().WriteHeader(http.StatusOK)

	zw := zip.NewWriter(c.Response())
	for _, key := range keys {
		body, _, err := store.OpenObject(c.Request().Context(), bucket, key)
		if err != nil {
			zw.Close()
			return err
		}
		entry, err := zw.Create(key)
		if err == nil {
			_, err = io.Copy(entry, body)
		}
		body.Close()
		if err != nil {
			zw.Close()
			return err
		}
	}
	return zw.Close()
}
