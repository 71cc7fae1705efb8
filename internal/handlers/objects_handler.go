package handlers

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/damacus/delta-commander/internal/cache"
	"github.com/damacus/delta-commander/internal/deltaglider"
	"github.com/damacus/delta-commander/internal/listing"
	"github.com/damacus/delta-commander/internal/services"
)

type ObjectsHandler struct {
	storeFactory deltaglider.StoreFactory
	catalog      *services.Catalog
	caches       *cache.Registry

	mu       sync.Mutex
	sidecars map[string]*listing.CountsSidecar
}

func NewObjectsHandler(storeFactory deltaglider.StoreFactory, catalog *services.Catalog, caches *cache.Registry) *ObjectsHandler {
	return &ObjectsHandler{
		storeFactory: storeFactory,
		catalog:      catalog,
		caches:       caches,
		sidecars:     make(map[string]*listing.CountsSidecar),
	}
}

func (h *ObjectsHandler) store(c echo.Context) (deltaglider.Store, string, error) {
	creds, err := GetCredentials(c)
	if err != nil {
		return nil, "", err
	}
	store, err := h.storeFactory.NewStore(*creds)
	if err != nil {
		return nil, "", TranslateError(err)
	}
	return store, Fingerprint(creds), nil
}

// sidecar returns the per-account counts sampler, creating it on first use.
func (h *ObjectsHandler) sidecar(fingerprint string, store deltaglider.Store) *listing.CountsSidecar {
	h.mu.Lock()
	defer h.mu.Unlock()
	sc, ok := h.sidecars[fingerprint]
	if !ok {
		sc = listing.NewCountsSidecar(store, h.caches.Counts)
		h.sidecars[fingerprint] = sc
	}
	return sc
}

// cachedCounts collects whatever counts the sidecar already holds for the
// page's subdirectories. Nil when none are sampled yet so the field is
// omitted from the response.
func (h *ObjectsHandler) cachedCounts(sc *listing.CountsSidecar, bucket string, prefixes []string) map[string]listing.DirectoryCounts {
	var counts map[string]listing.DirectoryCounts
	for _, p := range prefixes {
		if dc, ok := sc.Counts(bucket, p); ok {
			if counts == nil {
				counts = make(map[string]listing.DirectoryCounts, len(prefixes))
			}
			counts[p] = dc
		}
	}
	return counts
}

type listObjectsResponse struct {
	Bucket     string                             `json:"bucket"`
	Prefix     string                             `json:"prefix"`
	Prefixes   []string                           `json:"prefixes"`
	Objects    []deltaglider.LogicalObject        `json:"objects"`
	Counts     map[string]listing.DirectoryCounts `json:"counts,omitempty"`
	NextCursor string                             `json:"next_cursor,omitempty"`
	Total      int                                `json:"total"`
	Complete   bool                               `json:"complete"`
	Stale      bool                               `json:"stale"`
}

// ListObjects serves one page of a directory. The returned subdirectories
// are handed to the counts sidecar so their badges fill in on a later poll.
func (h *ObjectsHandler) ListObjects(c echo.Context) error {
	store, fingerprint, err := h.store(c)
	if err != nil {
		return err
	}
	bucket := c.Param("bucket")
	prefix := normalizePrefix(c.QueryParam("prefix"))

	limit, err := parseLimit(c)
	if err != nil {
		return err
	}

	query := services.ListQuery{
		Cursor: c.QueryParam("cursor"),
		Limit:  limit,
	}
	query.Sort, query.Dir = listing.ParseSortOrder(c.QueryParam("sort"), c.QueryParam("order"))
	query.Filter.Search = c.QueryParam("search")
	if raw := c.QueryParam("compressed"); raw != "" {
		compressed, err := strconv.ParseBool(raw)
		if err != nil {
			return BadRequest("bad_request", "compressed must be a boolean")
		}
		query.Filter.Compressed = &compressed
	}

	page, err := h.catalog.ListDirectory(c.Request().Context(), store, fingerprint, bucket, prefix, query)
	if err != nil {
		return TranslateError(err)
	}

	sc := h.sidecar(fingerprint, store)
	if len(page.Prefixes) > 0 {
		sc.Kick(bucket, page.Prefixes)
	}

	resp := listObjectsResponse{
		Bucket:     bucket,
		Prefix:     prefix,
		Prefixes:   page.Prefixes,
		Objects:    page.Objects,
		Counts:     h.cachedCounts(sc, bucket, page.Prefixes),
		NextCursor: page.NextCursor,
		Total:      page.Total,
		Complete:   page.Complete,
		Stale:      page.Stale,
	}
	if resp.Prefixes == nil {
		resp.Prefixes = []string{}
	}
	if resp.Objects == nil {
		resp.Objects = []deltaglider.LogicalObject{}
	}
	return c.JSON(http.StatusOK, resp)
}

// Counts returns whatever subdirectory counts the sidecar has sampled so
// far for the prefixes named in the query. Unsampled prefixes are absent.
func (h *ObjectsHandler) Counts(c echo.Context) error {
	_, fingerprint, err := h.store(c)
	if err != nil {
		return err
	}
	bucket := c.Param("bucket")

	prefixes := c.QueryParams()["prefix"]
	counts := make(map[string]listing.DirectoryCounts)
	h.mu.Lock()
	sc := h.sidecars[fingerprint]
	h.mu.Unlock()
	if sc != nil {
		for _, p := range prefixes {
			if dc, ok := sc.Counts(bucket, normalizePrefix(p)); ok {
				counts[normalizePrefix(p)] = dc
			}
		}
	}
	return c.JSON(http.StatusOK, map[string]any{"bucket": bucket, "counts": counts})
}

// Metadata returns the delta-aware metadata for one object.
func (h *ObjectsHandler) Metadata(c echo.Context) error {
	store, fingerprint, err := h.store(c)
	if err != nil {
		return err
	}
	key := c.QueryParam("key")
	if key == "" {
		return BadRequest("bad_request", "key is required")
	}

	md, err := h.catalog.Metadata(c.Request().Context(), store, fingerprint, c.Param("bucket"), key)
	if err != nil {
		return TranslateError(err)
	}
	return c.JSON(http.StatusOK, md)
}

// DeleteObject removes a single object and invalidates the caches covering it.
func (h *ObjectsHandler) DeleteObject(c echo.Context) error {
	store, fingerprint, err := h.store(c)
	if err != nil {
		return err
	}
	bucket := c.Param("bucket")
	key := c.QueryParam("key")
	if key == "" {
		return BadRequest("bad_request", "key is required")
	}

	if err := store.DeleteObject(c.Request().Context(), bucket, key); err != nil {
		return TranslateError(err)
	}
	h.catalog.InvalidateObject(fingerprint, bucket, key)
	return c.NoContent(http.StatusNoContent)
}

type bulkDeleteRequest struct {
	Keys     []string `json:"keys"`
	Prefixes []string `json:"prefixes"`
}

type bulkDeleteResponse struct {
	services.BulkResult
	Progress []services.BulkProgress `json:"progress"`
}

// BulkDelete expands the selection and deletes it batch by batch. The
// response carries the per-batch progress trail alongside the totals.
func (h *ObjectsHandler) BulkDelete(c echo.Context) error {
	store, fingerprint, err := h.store(c)
	if err != nil {
		return err
	}
	bucket := c.Param("bucket")

	var req bulkDeleteRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("bad_request", "malformed payload")
	}
	sel := requestSelection(req.Keys, req.Prefixes)
	if sel.Count() == 0 {
		return BadRequest("bad_request", "nothing selected")
	}

	var trail []services.BulkProgress
	res, err := h.catalog.BulkDelete(c.Request().Context(), store, fingerprint, bucket, sel.Objects(), sel.Prefixes(),
		func(p services.BulkProgress) { trail = append(trail, p) })
	if err != nil {
		return TranslateError(err)
	}
	return c.JSON(http.StatusOK, bulkDeleteResponse{BulkResult: res, Progress: trail})
}
