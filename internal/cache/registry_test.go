package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/damacus/delta-commander/internal/deltaglider"
	"github.com/damacus/delta-commander/internal/listing"
)

func seededRegistry() *Registry {
	r := NewRegistry()
	r.Listing.Set(ListingKey{Fingerprint: "fp", Bucket: "photos", Prefix: ""}, listing.Directory{Bucket: "photos"})
	r.Listing.Set(ListingKey{Fingerprint: "fp", Bucket: "photos", Prefix: "2024/"}, listing.Directory{Bucket: "photos", Prefix: "2024/"})
	r.Listing.Set(ListingKey{Fingerprint: "fp", Bucket: "docs", Prefix: ""}, listing.Directory{Bucket: "docs"})
	r.Meta.Set(MetaKey{Fingerprint: "fp", Bucket: "photos", Key: "2024/trip.jpg"}, deltaglider.FileMetadata{Key: "2024/trip.jpg"})
	r.Counts.Set(listing.CountsKey("photos", "2024/"), listing.DirectoryCounts{Files: 3})
	r.Savings.Set("photos", deltaglider.BucketSnapshot{Name: "photos"})
	return r
}

func TestInvalidateObjectDropsCoveringListings(t *testing.T) {
	r := seededRegistry()
	r.InvalidateObject("fp", "photos", "2024/trip.jpg")

	_, ok := r.Listing.Get(ListingKey{Fingerprint: "fp", Bucket: "photos", Prefix: ""})
	assert.False(t, ok, "root listing contains the key")
	_, ok = r.Listing.Get(ListingKey{Fingerprint: "fp", Bucket: "photos", Prefix: "2024/"})
	assert.False(t, ok, "parent listing contains the key")
	_, ok = r.Listing.Get(ListingKey{Fingerprint: "fp", Bucket: "docs", Prefix: ""})
	assert.True(t, ok, "other buckets untouched")
	_, ok = r.Meta.Get(MetaKey{Fingerprint: "fp", Bucket: "photos", Key: "2024/trip.jpg"})
	assert.False(t, ok)
}

func TestInvalidateObjectLeavesSiblingPrefixes(t *testing.T) {
	r := NewRegistry()
	r.Listing.Set(ListingKey{Fingerprint: "fp", Bucket: "b", Prefix: "a/"}, listing.Directory{})
	r.Listing.Set(ListingKey{Fingerprint: "fp", Bucket: "b", Prefix: "z/"}, listing.Directory{})

	r.InvalidateObject("fp", "b", "a/file.txt")

	_, ok := r.Listing.Get(ListingKey{Fingerprint: "fp", Bucket: "b", Prefix: "z/"})
	assert.True(t, ok)
}

func TestPurgeBucketClearsEveryCache(t *testing.T) {
	r := seededRegistry()
	r.MarkPending("photos")
	r.PurgeBucket("photos")

	assert.False(t, r.IsPending("photos"))
	_, ok := r.Savings.Get("photos")
	assert.False(t, ok)
	_, ok = r.Counts.Get(listing.CountsKey("photos", "2024/"))
	assert.False(t, ok)
	_, ok = r.Listing.Get(ListingKey{Fingerprint: "fp", Bucket: "docs", Prefix: ""})
	assert.True(t, ok, "unrelated bucket survives the purge")
}

func TestPendingFlagLifecycle(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.IsPending("b"))
	r.MarkPending("b")
	assert.True(t, r.IsPending("b"))
	r.ClearPending("b")
	assert.False(t, r.IsPending("b"))
}
