package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/damacus/delta-commander/internal/deltaglider"
	"github.com/damacus/delta-commander/internal/services"
)

type UploadsHandler struct {
	storeFactory deltaglider.StoreFactory
	catalog      *services.Catalog
}

func NewUploadsHandler(storeFactory deltaglider.StoreFactory, catalog *services.Catalog) *UploadsHandler {
	return &UploadsHandler{storeFactory: storeFactory, catalog: catalog}
}

type uploadStats struct {
	Count         int     `json:"count"`
	OriginalBytes int64   `json:"original_bytes"`
	StoredBytes   int64   `json:"stored_bytes"`
	SavingsBytes  int64   `json:"savings_bytes"`
	SavingsPct    float64 `json:"savings_pct"`
}

type uploadResponse struct {
	Uploaded []deltaglider.UploadSummary `json:"uploaded"`
	Stats    uploadStats                 `json:"stats"`
}

func summariseUploads(summaries []deltaglider.UploadSummary) uploadStats {
	stats := uploadStats{Count: len(summaries)}
	for _, s := range summaries {
		stats.OriginalBytes += s.OriginalBytes
		stats.StoredBytes += s.StoredBytes
	}
	stats.SavingsBytes = stats.OriginalBytes - stats.StoredBytes
	stats.SavingsPct = deltaglider.SavingsPct(stats.OriginalBytes, stats.StoredBytes)
	return stats
}

// Upload stores one or more multipart files under the target prefix. Each
// file's optional relative path (folder drag and drop) is sanitised before
// it becomes part of the key.
func (h *UploadsHandler) Upload(c echo.Context) error {
	creds, err := GetCredentials(c)
	if err != nil {
		return err
	}
	store, err := h.storeFactory.NewStore(*creds)
	if err != nil {
		return TranslateError(err)
	}
	bucket := c.Param("bucket")
	prefix := normalizePrefix(c.FormValue("prefix"))

	form, err := c.MultipartForm()
	if err != nil {
		return BadRequest("bad_request", "multipart form expected")
	}
	files := form.File["files"]
	if len(files) == 0 {
		return BadRequest("bad_request", "no files in upload")
	}
	relativePaths := form.Value["relative_paths"]

	fingerprint := Fingerprint(creds)
	summaries := make([]deltaglider.UploadSummary, 0, len(files))
	for i, fh := range files {
		name := sanitizeRelativePath(fh.Filename)
		if i < len(relativePaths) && relativePaths[i] != "" {
			name = sanitizeRelativePath(relativePaths[i])
		}
		if name == "" {
			return BadRequest("bad_request", "upload filename resolves to an empty key")
		}
		key := prefix + name

		src, err := fh.Open()
		if err != nil {
			return BadRequest("bad_request", "unreadable upload part")
		}
		summary, err := store.Upload(c.Request().Context(), bucket, key, src, fh.Size, fh.Header.Get("Content-Type"))
		src.Close()
		if err != nil {
			return TranslateError(err)
		}
		h.catalog.InvalidateObject(fingerprint, bucket, key)
		summaries = append(summaries, summary)
	}

	return c.JSON(http.StatusCreated, uploadResponse{Uploaded: summaries, Stats: summariseUploads(summaries)})
}
