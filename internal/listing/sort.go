package listing

import (
	"sort"
	"strings"

	"github.com/damacus/delta-commander/internal/deltaglider"
)

// SortKey selects the object attribute ordering applies to.
type SortKey string

const (
	SortByName     SortKey = "name"
	SortBySize     SortKey = "size"
	SortByModified SortKey = "modified"
)

// Direction is the sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseSortOrder maps querystring values onto a known (key, direction) pair.
// Unknown keys fall back to modified descending, the browser's default view.
func ParseSortOrder(sortParam, orderParam string) (SortKey, Direction) {
	dir := Desc
	if strings.EqualFold(orderParam, "asc") {
		dir = Asc
	}
	switch strings.ToLower(sortParam) {
	case "name", "key":
		return SortByName, dir
	case "size", "original_bytes":
		return SortBySize, dir
	case "modified":
		return SortByModified, dir
	}
	return SortByModified, Desc
}

// SortObjects returns a new ordering of objs; the input is never mutated.
// Sorting is stable, so repeated application is idempotent.
func SortObjects(objs []deltaglider.LogicalObject, key SortKey, dir Direction) []deltaglider.LogicalObject {
	out := make([]deltaglider.LogicalObject, len(objs))
	copy(out, objs)

	less := func(a, b deltaglider.LogicalObject) bool {
		switch key {
		case SortBySize:
			return a.OriginalBytes < b.OriginalBytes
		case SortByModified:
			return a.Modified.Before(b.Modified)
		default:
			return compareNames(a.Key, b.Key) < 0
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if dir == Desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

// SortPrefixes orders directories by name only. When the active key is not
// name the direction is ignored and directories stay in ascending name
// order; size and timestamps are meaningless for a prefix.
func SortPrefixes(prefixes []string, key SortKey, dir Direction) []string {
	out := make([]string, len(prefixes))
	copy(out, prefixes)

	effective := Asc
	if key == SortByName {
		effective = dir
	}
	sort.SliceStable(out, func(i, j int) bool {
		if effective == Desc {
			return compareNames(out[j], out[i]) < 0
		}
		return compareNames(out[i], out[j]) < 0
	})
	return out
}

// compareNames is a case-folded lexicographic compare with a byte-order tie
// break so equal-fold keys still order deterministically.
func compareNames(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}
