// Package listing implements the directory snapshot model for the object
// browser: cursor-following fetches with a fast preview stage, pure
// sort/filter/page transforms, per-subdirectory count sampling, and bulk
// prefix expansion.
package listing

import (
	"time"

	"github.com/damacus/delta-commander/internal/deltaglider"
)

// Directory is the complete listing of one bucket/prefix at a point in time.
// It is replaced wholesale on refetch; there is no incremental merge.
type Directory struct {
	Bucket   string                      `json:"bucket"`
	Prefix   string                      `json:"prefix"`
	Objects  []deltaglider.LogicalObject `json:"objects"`
	Prefixes []string                    `json:"prefixes"`
	// Complete is false for preview snapshots produced by the fast first
	// page; such snapshots may be truncated.
	Complete  bool      `json:"complete"`
	FetchedAt time.Time `json:"fetched_at"`
}

// ObjectCount and PrefixCount always agree with the slice lengths; the
// counts exist so persisted snapshots stay self-describing.
func (d Directory) ObjectCount() int { return len(d.Objects) }
func (d Directory) PrefixCount() int { return len(d.Prefixes) }

// DirectoryCounts approximates one subdirectory's content from a bounded
// sample. HasMore reports that the sample was truncated, in which case the
// true counts exceed Files+Folders.
type DirectoryCounts struct {
	Files   int  `json:"files"`
	Folders int  `json:"folders"`
	HasMore bool `json:"has_more"`
}
