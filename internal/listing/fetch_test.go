package listing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damacus/delta-commander/internal/deltaglider"
)

func seedTree(t *testing.T) *deltaglider.MemoryStore {
	t.Helper()
	store := deltaglider.NewMemoryStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, key := range []string{
		"builds/app-v1.tar.gz",
		"builds/app-v2.tar.gz",
		"builds/nightly/app-v3.tar.gz",
		"docs/readme.md",
		"changelog.txt",
	} {
		store.Seed("releases", deltaglider.MemoryObject{
			Key:      key,
			Data:     []byte("payload"),
			Modified: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return store
}

func TestFetchAllFollowsCursors(t *testing.T) {
	store := seedTree(t)

	dir, err := FetchAll(context.Background(), store, "releases", "", 2, false)
	require.NoError(t, err)

	assert.True(t, dir.Complete)
	assert.Equal(t, []string{"builds/", "docs/"}, dir.Prefixes)
	require.Equal(t, 1, dir.ObjectCount())
	assert.Equal(t, "changelog.txt", dir.Objects[0].Key)
	assert.False(t, dir.FetchedAt.IsZero())
	assert.Greater(t, store.ListCalls, 1, "page size 2 must require multiple pages")
}

func TestFetchAllDiscardsPartialResultsOnError(t *testing.T) {
	store := seedTree(t)
	store.FailListing = errors.New("connection reset")

	dir, err := FetchAll(context.Background(), store, "releases", "", 2, false)
	require.Error(t, err)
	assert.Equal(t, Directory{}, dir)
}

func TestLoaderPreviewFiresOnceBeforeFullFetch(t *testing.T) {
	store := seedTree(t)
	loader := NewLoader(store)

	var previews []Directory
	dir, err := loader.Load(context.Background(), "releases", "builds/", func(d Directory) {
		previews = append(previews, d)
	})
	require.NoError(t, err)

	require.Len(t, previews, 1)
	assert.True(t, previews[0].Complete, "small directory fits the preview page")
	assert.True(t, dir.Complete)
	assert.Equal(t, []string{"builds/nightly/"}, dir.Prefixes)
	assert.Equal(t, 2, dir.ObjectCount())
}

// failFirstLister fails the first ListObjects call and delegates the rest.
type failFirstLister struct {
	inner  Lister
	failed bool
}

func (f *failFirstLister) ListObjects(ctx context.Context, bucket, prefix string, opts deltaglider.ListOptions) (deltaglider.ObjectListing, error) {
	if !f.failed {
		f.failed = true
		return deltaglider.ObjectListing{}, errors.New("transient")
	}
	return f.inner.ListObjects(ctx, bucket, prefix, opts)
}

func TestLoaderSurvivesPreviewFailure(t *testing.T) {
	store := seedTree(t)
	loader := NewLoader(&failFirstLister{inner: store})

	calls := 0
	dir, err := loader.Load(context.Background(), "releases", "", func(Directory) { calls++ })
	require.NoError(t, err)

	assert.Equal(t, 0, calls, "a failed preview page is dropped, not surfaced")
	assert.True(t, dir.Complete)
	assert.Equal(t, 1, dir.ObjectCount())
}
