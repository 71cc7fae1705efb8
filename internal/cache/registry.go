package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/damacus/delta-commander/internal/deltaglider"
	"github.com/damacus/delta-commander/internal/listing"
)

// Default sizing mirrors observed hit profiles: listings churn fast,
// metadata is hot, savings results are expensive and long-lived.
const (
	DefaultListingTTL  = 30 * time.Second
	DefaultPreviewTTL  = 10 * time.Second
	DefaultMetaTTL     = 5 * time.Minute
	DefaultSavingsTTL  = 15 * time.Minute
	DefaultCountsTTL   = 60 * time.Second
	defaultListingSize = 100
	defaultMetaSize    = 5000
	defaultSavingsSize = 1000
	defaultCountsSize  = 500
)

// ListingKey identifies one directory snapshot. The credentials fingerprint
// isolates entries between accounts sharing the process.
type ListingKey struct {
	Fingerprint string
	Bucket      string
	Prefix      string
}

// MetaKey identifies one object's metadata entry.
type MetaKey struct {
	Fingerprint string
	Bucket      string
	Key         string
}

// Registry groups every in-memory cache the catalog consults.
type Registry struct {
	Listing *TTL[ListingKey, listing.Directory]
	// Preview holds the fast first-page result while a full fetch for the
	// same key is still in flight.
	Preview *TTL[ListingKey, listing.Directory]
	Meta    *TTL[MetaKey, deltaglider.FileMetadata]
	Savings *TTL[string, deltaglider.BucketSnapshot]
	Counts  *TTL[string, listing.DirectoryCounts]

	mu      sync.Mutex
	pending map[string]time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		Listing: NewTTL[ListingKey, listing.Directory](defaultListingSize, DefaultListingTTL),
		Preview: NewTTL[ListingKey, listing.Directory](defaultListingSize, DefaultPreviewTTL),
		Meta:    NewTTL[MetaKey, deltaglider.FileMetadata](defaultMetaSize, DefaultMetaTTL),
		Savings: NewTTL[string, deltaglider.BucketSnapshot](defaultSavingsSize, DefaultSavingsTTL),
		Counts:  NewTTL[string, listing.DirectoryCounts](defaultCountsSize, DefaultCountsTTL),
		pending: make(map[string]time.Time),
	}
}

// MarkPending records that a savings job is running for the bucket.
func (r *Registry) MarkPending(bucket string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[bucket] = time.Now()
}

func (r *Registry) ClearPending(bucket string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, bucket)
}

func (r *Registry) IsPending(bucket string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pending[bucket]
	return ok
}

// InvalidateObject drops the object's metadata entry and every directory
// snapshot whose prefix contains the key.
func (r *Registry) InvalidateObject(fingerprint, bucket, key string) {
	r.Meta.Remove(MetaKey{Fingerprint: fingerprint, Bucket: bucket, Key: key})
	for _, lk := range r.Listing.Keys() {
		if lk.Bucket == bucket && strings.HasPrefix(key, lk.Prefix) {
			r.Listing.Remove(lk)
			r.Preview.Remove(lk)
		}
	}
}

// PurgeBucket removes every cached entry touching the bucket.
func (r *Registry) PurgeBucket(bucket string) {
	for _, lk := range r.Listing.Keys() {
		if lk.Bucket == bucket {
			r.Listing.Remove(lk)
		}
	}
	for _, lk := range r.Preview.Keys() {
		if lk.Bucket == bucket {
			r.Preview.Remove(lk)
		}
	}
	for _, mk := range r.Meta.Keys() {
		if mk.Bucket == bucket {
			r.Meta.Remove(mk)
		}
	}
	for _, ck := range r.Counts.Keys() {
		if strings.HasPrefix(ck, bucket+"|") {
			r.Counts.Remove(ck)
		}
	}
	r.Savings.Remove(bucket)
	r.ClearPending(bucket)
}
