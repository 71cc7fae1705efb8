package services

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/damacus/delta-commander/internal/cache"
	"github.com/damacus/delta-commander/internal/deltaglider"
	"github.com/damacus/delta-commander/internal/listing"
)

// BulkBatchSize is how many keys one delete batch carries. Small batches
// keep progress reporting responsive and bound the blast radius of a
// failing request.
const BulkBatchSize = 5

// ListQuery carries the view parameters for one directory page request.
type ListQuery struct {
	Sort   listing.SortKey
	Dir    listing.Direction
	Filter listing.Filter
	Cursor string
	Limit  int
}

// DirectoryPage is one rendered page of a directory plus the listing state
// the client needs: where the data came from and whether it is still being
// refreshed.
type DirectoryPage struct {
	Prefixes   []string
	Objects    []deltaglider.LogicalObject
	NextCursor string
	Total      int
	// Complete is false while only the fast preview page has landed.
	Complete bool
	// Stale marks data served from a persisted snapshot while a live
	// refetch runs in the background.
	Stale     bool
	FetchedAt time.Time
}

// BulkProgress reports running totals during a bulk delete.
type BulkProgress struct {
	Done   int `json:"done"`
	Failed int `json:"failed"`
	Total  int `json:"total"`
}

// BulkResult summarises a finished bulk delete: which keys went, which
// failed and why, plus the totals over the expanded selection.
type BulkResult struct {
	Deleted        []string               `json:"deleted"`
	Errors         []deltaglider.KeyError `json:"errors"`
	TotalRequested int                    `json:"total_requested"`
	TotalDeleted   int                    `json:"total_deleted"`
	TotalErrors    int                    `json:"total_errors"`
}

// Catalog serves directory listings cache-aside: fresh entries straight from
// memory, stale persisted snapshots immediately with a background refetch,
// everything else with a blocking fetch. Concurrent requests for the same
// directory collapse into a single store fetch.
type Catalog struct {
	caches    *cache.Registry
	snapshots *cache.SnapshotStore
	group     singleflight.Group
}

// NewCatalog builds a catalog. snapshots may be nil, which disables
// persistence but keeps every in-memory behavior.
func NewCatalog(caches *cache.Registry, snapshots *cache.SnapshotStore) *Catalog {
	return &Catalog{caches: caches, snapshots: snapshots}
}

// ListDirectory returns one page of bucket/prefix under the query's view
// parameters. fingerprint scopes cache entries to the calling account.
func (c *Catalog) ListDirectory(ctx context.Context, store deltaglider.Store, fingerprint, bucket, prefix string, q ListQuery) (DirectoryPage, error) {
	key := cache.ListingKey{Fingerprint: fingerprint, Bucket: bucket, Prefix: prefix}

	if dir, ok := c.caches.Listing.Get(key); ok {
		return c.render(dir, q, false)
	}

	// A preview from an in-flight load beats stale persisted data.
	if dir, ok := c.caches.Preview.Get(key); ok {
		c.refreshAsync(store, key)
		return c.render(dir, q, false)
	}

	if c.snapshots != nil {
		if dir, ok := c.snapshots.Load(fingerprint, bucket, prefix); ok {
			c.refreshAsync(store, key)
			return c.render(dir, q, true)
		}
	}

	dir, err := c.fetch(ctx, store, key)
	if err != nil {
		return DirectoryPage{}, err
	}
	return c.render(dir, q, false)
}

// Metadata returns the per-object metadata, cached per account.
func (c *Catalog) Metadata(ctx context.Context, store deltaglider.Store, fingerprint, bucket, key string) (deltaglider.FileMetadata, error) {
	mk := cache.MetaKey{Fingerprint: fingerprint, Bucket: bucket, Key: key}
	if md, ok := c.caches.Meta.Get(mk); ok {
		return md, nil
	}
	md, err := store.GetMetadata(ctx, bucket, key)
	if err != nil {
		return deltaglider.FileMetadata{}, err
	}
	c.caches.Meta.Set(mk, md)
	return md, nil
}

// InvalidateObject drops every cache entry an object mutation may have made
// stale, including the persisted snapshots for its bucket.
func (c *Catalog) InvalidateObject(fingerprint, bucket, key string) {
	c.caches.InvalidateObject(fingerprint, bucket, key)
	if c.snapshots != nil {
		if err := c.snapshots.Invalidate(fingerprint, bucket); err != nil {
			log.Printf("catalog: snapshot invalidation for %s failed: %v", bucket, err)
		}
	}
}

// PurgeBucket clears all cached state for a removed bucket.
func (c *Catalog) PurgeBucket(fingerprint, bucket string) {
	c.caches.PurgeBucket(bucket)
	if c.snapshots != nil {
		if err := c.snapshots.Invalidate(fingerprint, bucket); err != nil {
			log.Printf("catalog: snapshot invalidation for %s failed: %v", bucket, err)
		}
	}
}

// BulkDelete expands the selection into a flat key set and deletes it in
// small sequential batches. progress, when non-nil, fires after every batch
// with running totals. A failing batch is recorded and the walk continues;
// only selection expansion aborts the whole operation.
func (c *Catalog) BulkDelete(ctx context.Context, store deltaglider.Store, fingerprint, bucket string, objectKeys, prefixes []string, progress func(BulkProgress)) (BulkResult, error) {
	keys, err := listing.ExpandSelection(ctx, store, bucket, objectKeys, prefixes)
	if err != nil {
		return BulkResult{}, err
	}

	res := BulkResult{
		Deleted:        []string{},
		Errors:         []deltaglider.KeyError{},
		TotalRequested: len(keys),
	}
	for start := 0; start < len(keys); start += BulkBatchSize {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		end := start + BulkBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[start:end]

		out, err := store.DeleteObjects(ctx, bucket, batch)
		if err != nil {
			for _, k := range batch {
				res.Errors = append(res.Errors, deltaglider.KeyError{Key: k, Error: err.Error()})
			}
		} else {
			res.Deleted = append(res.Deleted, out.Deleted...)
			res.Errors = append(res.Errors, out.Errors...)
			for _, k := range out.Deleted {
				c.caches.Meta.Remove(cache.MetaKey{Fingerprint: fingerprint, Bucket: bucket, Key: k})
			}
		}
		res.TotalDeleted = len(res.Deleted)
		res.TotalErrors = len(res.Errors)
		if progress != nil {
			progress(BulkProgress{Done: res.TotalDeleted, Failed: res.TotalErrors, Total: len(keys)})
		}
	}

	if res.TotalDeleted > 0 {
		c.caches.PurgeBucket(bucket)
		if c.snapshots != nil {
			if err := c.snapshots.Invalidate(fingerprint, bucket); err != nil {
				log.Printf("catalog: snapshot invalidation for %s failed: %v", bucket, err)
			}
		}
	}
	return res, nil
}

// fetch runs the two-stage load, collapsing concurrent callers. The preview
// page is published to the preview cache as soon as it lands so parallel
// requests can paint early.
func (c *Catalog) fetch(ctx context.Context, store deltaglider.Store, key cache.ListingKey) (listing.Directory, error) {
	v, err, _ := c.group.Do(flightKey(key), func() (any, error) {
		loader := listing.NewLoader(store)
		dir, err := loader.Load(ctx, key.Bucket, key.Prefix, func(preview listing.Directory) {
			c.caches.Preview.Set(key, preview)
		})
		if err != nil {
			return nil, err
		}
		c.commit(key, dir)
		return dir, nil
	})
	if err != nil {
		return listing.Directory{}, err
	}
	return v.(listing.Directory), nil
}

// refreshAsync refetches a directory in the background. Deduped with the
// same flight key as fetch, so an in-flight foreground load absorbs it.
func (c *Catalog) refreshAsync(store deltaglider.Store, key cache.ListingKey) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := c.fetch(ctx, store, key); err != nil {
			log.Printf("catalog: background refresh of %s/%s failed: %v", key.Bucket, key.Prefix, err)
		}
	}()
}

func (c *Catalog) commit(key cache.ListingKey, dir listing.Directory) {
	c.caches.Listing.Set(key, dir)
	c.caches.Preview.Remove(key)
	if c.snapshots != nil {
		if err := c.snapshots.Save(key.Fingerprint, dir); err != nil {
			log.Printf("catalog: persisting snapshot for %s/%s failed: %v", key.Bucket, key.Prefix, err)
		}
	}
}

// render applies the filter, sort and page transforms to a directory.
func (c *Catalog) render(dir listing.Directory, q ListQuery, stale bool) (DirectoryPage, error) {
	offset, err := listing.DecodeCursor(q.Cursor)
	if err != nil {
		return DirectoryPage{}, err
	}

	objects := listing.FilterObjects(dir.Objects, q.Filter)
	objects = listing.SortObjects(objects, q.Sort, q.Dir)
	prefixes := listing.SortPrefixes(dir.Prefixes, q.Sort, q.Dir)

	page := listing.Page(prefixes, objects, offset, q.Limit)
	out := DirectoryPage{
		Prefixes:  page.Prefixes,
		Objects:   page.Objects,
		Total:     page.Total,
		Complete:  dir.Complete,
		Stale:     stale,
		FetchedAt: dir.FetchedAt,
	}
	if page.HasMore {
		out.NextCursor = listing.EncodeCursor(page.NextOffset())
	}
	return out, nil
}

func flightKey(key cache.ListingKey) string {
	return key.Fingerprint + "|" + key.Bucket + "|" + key.Prefix
}
