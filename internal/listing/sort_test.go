package listing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/damacus/delta-commander/internal/deltaglider"
)

func TestParseSortOrder(t *testing.T) {
	tests := []struct {
		sortParam, orderParam string
		wantKey               SortKey
		wantDir               Direction
	}{
		{"name", "asc", SortByName, Asc},
		{"key", "desc", SortByName, Desc},
		{"size", "asc", SortBySize, Asc},
		{"original_bytes", "desc", SortBySize, Desc},
		{"modified", "asc", SortByModified, Asc},
		{"", "", SortByModified, Desc},
		{"bogus", "asc", SortByModified, Desc},
	}
	for _, tt := range tests {
		key, dir := ParseSortOrder(tt.sortParam, tt.orderParam)
		assert.Equal(t, tt.wantKey, key, "sort=%q", tt.sortParam)
		assert.Equal(t, tt.wantDir, dir, "sort=%q order=%q", tt.sortParam, tt.orderParam)
	}
}

func TestSortObjectsDoesNotMutateInput(t *testing.T) {
	objs := []deltaglider.LogicalObject{
		{Key: "b.txt", OriginalBytes: 2},
		{Key: "a.txt", OriginalBytes: 1},
	}
	out := SortObjects(objs, SortByName, Asc)
	assert.Equal(t, "a.txt", out[0].Key)
	assert.Equal(t, "b.txt", objs[0].Key, "input order preserved")
}

func TestSortObjectsByEachKey(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	objs := []deltaglider.LogicalObject{
		{Key: "Zeta.bin", OriginalBytes: 10, Modified: base.Add(2 * time.Hour)},
		{Key: "alpha.bin", OriginalBytes: 30, Modified: base},
		{Key: "mid.bin", OriginalBytes: 20, Modified: base.Add(time.Hour)},
	}

	byName := SortObjects(objs, SortByName, Asc)
	assert.Equal(t, []string{"alpha.bin", "mid.bin", "Zeta.bin"}, objectKeys(byName), "name compare is case folded")

	bySize := SortObjects(objs, SortBySize, Desc)
	assert.Equal(t, []string{"alpha.bin", "mid.bin", "Zeta.bin"}, objectKeys(bySize))

	byModified := SortObjects(objs, SortByModified, Desc)
	assert.Equal(t, []string{"Zeta.bin", "mid.bin", "alpha.bin"}, objectKeys(byModified))
}

func TestSortObjectsIdempotent(t *testing.T) {
	objs := []deltaglider.LogicalObject{
		{Key: "a", OriginalBytes: 5},
		{Key: "b", OriginalBytes: 5},
		{Key: "c", OriginalBytes: 1},
	}
	once := SortObjects(objs, SortBySize, Asc)
	twice := SortObjects(once, SortBySize, Asc)
	assert.Equal(t, once, twice, "stable sort keeps ties fixed on re-sort")
}

func TestSortPrefixesIgnoresNonNameKeys(t *testing.T) {
	prefixes := []string{"zoo/", "Apps/", "media/"}

	assert.Equal(t, []string{"Apps/", "media/", "zoo/"}, SortPrefixes(prefixes, SortBySize, Desc),
		"size ordering is meaningless for directories")
	assert.Equal(t, []string{"zoo/", "media/", "Apps/"}, SortPrefixes(prefixes, SortByName, Desc))
	assert.Equal(t, []string{"zoo/", "Apps/", "media/"}, prefixes, "input untouched")
}

func objectKeys(objs []deltaglider.LogicalObject) []string {
	keys := make([]string, len(objs))
	for i, o := range objs {
		keys[i] = o.Key
	}
	return keys
}
