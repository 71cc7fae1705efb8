package handlers

import (
	"net/http"
	"regexp"

	"github.com/labstack/echo/v4"

	"github.com/damacus/delta-commander/internal/deltaglider"
	"github.com/damacus/delta-commander/internal/services"
	"github.com/damacus/delta-commander/internal/utils"
)

var bucketNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

type BucketsHandler struct {
	storeFactory deltaglider.StoreFactory
	catalog      *services.Catalog
	savings      *services.SavingsJobs
}

func NewBucketsHandler(storeFactory deltaglider.StoreFactory, catalog *services.Catalog, savings *services.SavingsJobs) *BucketsHandler {
	return &BucketsHandler{storeFactory: storeFactory, catalog: catalog, savings: savings}
}

func (h *BucketsHandler) store(c echo.Context) (deltaglider.Store, string, error) {
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

type bucketView struct {
	deltaglider.BucketSnapshot
	OriginalHuman  string `json:"original_human"`
	StoredHuman    string `json:"stored_human"`
	SavingsHuman   string `json:"savings_human"`
	SavingsPending bool   `json:"savings_pending"`
}

type bucketListResponse struct {
	Buckets []bucketView `json:"buckets"`
}

// ListBuckets returns all buckets with their stats. Cached detailed savings
// snapshots override the quick numbers the backend reports.
func (h *BucketsHandler) ListBuckets(c echo.Context) error {
	store, _, err := h.store(c)
	if err != nil {
		return err
	}

	snaps, err := store.ListBuckets(c.Request().Context())
	if err != nil {
		return TranslateError(err)
	}

	views := make([]bucketView, 0, len(snaps))
	for _, snap := range snaps {
		if cached, ok := h.savings.Cached(snap.Name); ok {
			snap = cached
		}
		views = append(views, bucketView{
			BucketSnapshot: snap,
			OriginalHuman:  utils.FormatFileSize(snap.OriginalBytes),
			StoredHuman:    utils.FormatFileSize(snap.StoredBytes),
			SavingsHuman:   utils.FormatSavings(snap.SavingsPct),
			SavingsPending: h.savings.Pending(snap.Name),
		})
	}
	return c.JSON(http.StatusOK, bucketListResponse{Buckets: views})
}

// BucketStats computes stats for one bucket at the requested fidelity.
func (h *BucketsHandler) BucketStats(c echo.Context) error {
	store, _, err := h.store(c)
	if err != nil {
		return err
	}
	mode := deltaglider.ParseStatsMode(c.QueryParam("mode"))

	snap, err := store.ComputeBucketStats(c.Request().Context(), c.Param("bucket"), mode)
	if err != nil {
		return TranslateError(err)
	}
	return c.JSON(http.StatusOK, snap)
}

type createBucketRequest struct {
	Name string `json:"name"`
}

// CreateBucket provisions an empty bucket.
func (h *BucketsHandler) CreateBucket(c echo.Context) error {
	store, _, err := h.store(c)
	if err != nil {
		return err
	}

	var req createBucketRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("bad_request", "malformed payload")
	}
	if !bucketNameRe.MatchString(req.Name) {
		return BadRequest("invalid_bucket_name", "bucket names are 3-63 characters of lowercase letters, digits, dots and hyphens")
	}

	if err := store.CreateBucket(c.Request().Context(), req.Name); err != nil {
		return TranslateError(err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"name": req.Name})
}

// DeleteBucket removes an empty bucket and every cache entry naming it.
func (h *BucketsHandler) DeleteBucket(c echo.Context) error {
	store, fingerprint, err := h.store(c)
	if err != nil {
		return err
	}
	bucket := c.Param("bucket")

	if err := store.DeleteBucket(c.Request().Context(), bucket); err != nil {
		return TranslateError(err)
	}
	h.catalog.PurgeBucket(fingerprint, bucket)
	return c.NoContent(http.StatusNoContent)
}

// ComputeSavings kicks off a background detailed stats walk and answers 202
// immediately. A walk already running for the bucket is reused.
func (h *BucketsHandler) ComputeSavings(c echo.Context) error {
	store, _, err := h.store(c)
	if err != nil {
		return err
	}
	bucket := c.Param("bucket")

	exists, err := store.BucketExists(c.Request().Context(), bucket)
	if err != nil {
		return TranslateError(err)
	}
	if !exists {
		return TranslateError(deltaglider.ErrBucketNotFound)
	}

	mode := deltaglider.ParseStatsMode(c.QueryParam("mode"))
	if mode == deltaglider.StatsQuick {
		mode = deltaglider.StatsDetailed
	}
	job, _ := h.savings.Start(store, bucket, mode)
	return c.JSON(http.StatusAccepted, job)
}

// RefreshCache drops the cached listings for one bucket so the next request
// refetches from the store.
func (h *BucketsHandler) RefreshCache(c echo.Context) error {
	_, fingerprint, err := h.store(c)
	if err != nil {
		return err
	}
	h.catalog.PurgeBucket(fingerprint, c.Param("bucket"))
	return c.NoContent(http.StatusNoContent)
}
