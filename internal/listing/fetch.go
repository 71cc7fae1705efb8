package listing

import (
	"context"
	"time"

	"github.com/damacus/delta-commander/internal/deltaglider"
)

const (
	// PreviewPageSize is the size of the fast metadata-free first page.
	PreviewPageSize = 100
	// FullPageSize is the page size for the authoritative fetch.
	FullPageSize = 500
)

// Lister is the slice of the store the fetch loop needs.
type Lister interface {
	ListObjects(ctx context.Context, bucket, prefix string, opts deltaglider.ListOptions) (deltaglider.ObjectListing, error)
}

// FetchAll follows continuation cursors until the listing is exhausted and
// returns one complete Directory. Any page failure discards everything
// accumulated so far; partial results are never returned.
func FetchAll(ctx context.Context, l Lister, bucket, prefix string, pageSize int, withMetadata bool) (Directory, error) {
	if pageSize <= 0 {
		pageSize = FullPageSize
	}

	dir := Directory{Bucket: bucket, Prefix: prefix, Complete: true}
	seen := make(map[string]struct{})
	cursor := ""
	for {
		page, err := l.ListObjects(ctx, bucket, prefix, deltaglider.ListOptions{
			Cursor:       cursor,
			Limit:        pageSize,
			WithMetadata: withMetadata,
		})
		if err != nil {
			return Directory{}, err
		}

		dir.Objects = append(dir.Objects, page.Objects...)
		for _, p := range page.CommonPrefixes {
			if _, dup := seen[p]; !dup {
				seen[p] = struct{}{}
				dir.Prefixes = append(dir.Prefixes, p)
			}
		}

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	dir.FetchedAt = time.Now().UTC()
	return dir, nil
}

// Loader performs the two-stage load: a fast metadata-free page handed to the
// preview callback, then the full metadata fetch. The preview is marked
// incomplete; callers prefer it over stale prior data only until the full
// result lands.
type Loader struct {
	lister Lister
}

func NewLoader(l Lister) *Loader {
	return &Loader{lister: l}
}

// Load returns the complete directory. The preview callback, when non-nil,
// fires at most once, before the full fetch starts. A preview failure is not
// fatal; the full fetch still runs.
func (ld *Loader) Load(ctx context.Context, bucket, prefix string, preview func(Directory)) (Directory, error) {
	if preview != nil {
		page, err := ld.lister.ListObjects(ctx, bucket, prefix, deltaglider.ListOptions{
			Limit: PreviewPageSize,
		})
		if err == nil {
			preview(Directory{
				Bucket:    bucket,
				Prefix:    prefix,
				Objects:   page.Objects,
				Prefixes:  page.CommonPrefixes,
				Complete:  page.NextCursor == "",
				FetchedAt: time.Now().UTC(),
			})
		}
	}

	return FetchAll(ctx, ld.lister, bucket, prefix, FullPageSize, true)
}
