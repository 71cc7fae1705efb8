package listing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandWalksNestedPrefixes(t *testing.T) {
	store := seedTree(t)

	keys, err := Expand(context.Background(), store, "releases", []string{"builds/"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"builds/app-v1.tar.gz",
		"builds/app-v2.tar.gz",
		"builds/nightly/app-v3.tar.gz",
	}, keys)
}

func TestExpandVisitsEachPrefixOnce(t *testing.T) {
	store := seedTree(t)

	keys, err := Expand(context.Background(), store, "releases", []string{"builds/", "builds/", "builds/nightly/"})
	require.NoError(t, err)

	counted := make(map[string]int)
	for _, k := range keys {
		counted[k]++
	}
	for k, n := range counted {
		assert.Equal(t, 1, n, "key %s expanded more than once", k)
	}
	assert.Len(t, keys, 3)
}

func TestExpandAbortsOnListingFailure(t *testing.T) {
	store := seedTree(t)
	store.FailListing = errors.New("access denied")

	keys, err := Expand(context.Background(), store, "releases", []string{"builds/"})
	require.Error(t, err)
	assert.Nil(t, keys, "no partial key set on failure")
}

func TestExpandSelectionMixesKeysAndPrefixes(t *testing.T) {
	store := seedTree(t)

	keys, err := ExpandSelection(context.Background(), store, "releases",
		[]string{"changelog.txt", "docs/readme.md"},
		[]string{"docs/"})
	require.NoError(t, err)

	assert.Equal(t, []string{"changelog.txt", "docs/readme.md"}, keys[:2], "explicit keys keep their order")
	assert.Len(t, keys, 2, "expansion must not duplicate an explicitly selected key")
}

func TestExpandSelectionNoPrefixesSkipsListing(t *testing.T) {
	store := seedTree(t)

	keys, err := ExpandSelection(context.Background(), store, "releases", []string{"changelog.txt"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"changelog.txt"}, keys)
	assert.Zero(t, store.ListCalls)
}
