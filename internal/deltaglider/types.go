// Package deltaglider provides access to delta-compressed object storage
// hosted on an S3-compatible backend. Compressed objects are stored with a
// ".delta" suffix and carry their logical sizes in user metadata; this
// package hides that representation and exposes logical objects only.
package deltaglider

import (
	"errors"
	"time"
)

// StatsMode controls how expensive a bucket statistics pass is allowed to be.
type StatsMode string

const (
	// StatsQuick uses backend usage counters when available and never walks
	// the bucket.
	StatsQuick StatsMode = "quick"
	// StatsSampled walks at most SampleLimit objects and extrapolates nothing;
	// counts may be truncated.
	StatsSampled StatsMode = "sampled"
	// StatsDetailed walks every object in the bucket.
	StatsDetailed StatsMode = "detailed"
)

// SampleLimit bounds the number of objects examined in sampled stats mode.
const SampleLimit = 1000

// ParseStatsMode maps a query value onto a known mode, defaulting to quick.
func ParseStatsMode(raw string) StatsMode {
	switch StatsMode(raw) {
	case StatsSampled:
		return StatsSampled
	case StatsDetailed:
		return StatsDetailed
	default:
		return StatsQuick
	}
}

var (
	ErrBucketNotFound = errors.New("bucket not found")
	ErrBucketExists   = errors.New("bucket already exists")
	ErrBucketNotEmpty = errors.New("bucket is not empty")
	ErrKeyNotFound    = errors.New("object key not found")
)

// LogicalObject is one stored entry as the console presents it: the key with
// any ".delta" suffix stripped and sizes resolved to the uncompressed view.
type LogicalObject struct {
	Key           string    `json:"key"`
	OriginalBytes int64     `json:"original_bytes"`
	StoredBytes   int64     `json:"stored_bytes"`
	Compressed    bool      `json:"compressed"`
	Modified      time.Time `json:"modified"`
	PhysicalKey   string    `json:"-"`
}

// BucketSnapshot captures one bucket's statistics at a point in time.
type BucketSnapshot struct {
	Name          string     `json:"name"`
	ObjectCount   int64      `json:"object_count"`
	OriginalBytes int64      `json:"original_bytes"`
	StoredBytes   int64      `json:"stored_bytes"`
	SavingsPct    float64    `json:"savings_pct"`
	ComputedAt    *time.Time `json:"computed_at,omitempty"`
	CountLimited  bool       `json:"object_count_is_limited,omitempty"`
}

// ObjectListing is one page of a delimiter listing.
type ObjectListing struct {
	Objects        []LogicalObject
	CommonPrefixes []string
	// NextCursor is the opaque continuation token; empty when the listing
	// is exhausted.
	NextCursor string
}

// ListOptions controls a single ListObjects page.
type ListOptions struct {
	Cursor string
	Limit  int
	// WithMetadata resolves authoritative sizes for delta objects at the
	// cost of extra stat calls. Quick listings leave it false.
	WithMetadata bool
}

// FileMetadata is the full per-object detail view.
type FileMetadata struct {
	Key           string            `json:"key"`
	OriginalBytes int64             `json:"original_bytes"`
	StoredBytes   int64             `json:"stored_bytes"`
	Compressed    bool              `json:"compressed"`
	Modified      time.Time         `json:"modified"`
	AcceptRanges  bool              `json:"accept_ranges"`
	ContentType   string            `json:"content_type,omitempty"`
	ETag          string            `json:"etag,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// KeyError ties one failed key to its error text.
type KeyError struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

// BatchDeleteResult reports the per-key outcome of one DeleteObjects call.
// A key absent from Errors was removed; deleting a key that does not exist
// succeeds, matching S3 semantics.
type BatchDeleteResult struct {
	Deleted []string
	Errors  []KeyError
}

// UploadSummary describes the outcome of storing one object.
type UploadSummary struct {
	Bucket        string `json:"bucket"`
	Key           string `json:"key"`
	OriginalBytes int64  `json:"original_bytes"`
	StoredBytes   int64  `json:"stored_bytes"`
	Compressed    bool   `json:"compressed"`
	Operation     string `json:"operation"`
	RelativePath  string `json:"relative_path,omitempty"`
}

// SavingsPct returns the percentage saved by compression, zero when nothing
// was stored.
func SavingsPct(originalBytes, storedBytes int64) float64 {
	if originalBytes <= 0 {
		return 0
	}
	return (1.0 - float64(storedBytes)/float64(originalBytes)) * 100.0
}
