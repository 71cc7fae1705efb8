package listing

import (
	"strings"

	"github.com/damacus/delta-commander/internal/deltaglider"
)

// Filter narrows an object set. Compressed is a tri-state: nil matches
// everything. Search is a case-insensitive substring match on the key.
type Filter struct {
	Compressed *bool
	Search     string
}

// Active reports whether the filter would exclude anything.
func (f Filter) Active() bool {
	return f.Compressed != nil || f.Search != ""
}

// FilterObjects applies f without mutating objs. When the filter is
// inactive the input slice is returned as-is; large directories hit this
// path on every unfiltered page.
func FilterObjects(objs []deltaglider.LogicalObject, f Filter) []deltaglider.LogicalObject {
	if !f.Active() {
		return objs
	}

	needle := strings.ToLower(f.Search)
	out := make([]deltaglider.LogicalObject, 0, len(objs))
	for _, obj := range objs {
		if f.Compressed != nil && obj.Compressed != *f.Compressed {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(obj.Key), needle) {
			continue
		}
		out = append(out, obj)
	}
	return out
}
