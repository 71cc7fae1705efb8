package listing

import "github.com/damacus/delta-commander/internal/deltaglider"

// PageResult is one window over the combined prefix and object
// sequence. Prefixes always come before objects, so a single offset
// addresses the concatenation of the two sorted slices.
type PageResult struct {
	Prefixes []string
	Objects  []deltaglider.LogicalObject
	Offset   int
	Limit    int
	Total    int
	HasMore  bool
}

// NextOffset returns the position the following page starts at, or -1
// when this page is the last one.
func (p PageResult) NextOffset() int {
	if !p.HasMore {
		return -1
	}
	return p.Offset + len(p.Prefixes) + len(p.Objects)
}

// TotalPages reports how many pages of this limit cover the full set.
func (p PageResult) TotalPages() int {
	if p.Limit <= 0 {
		return 1
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

// Page slices the directories-first concatenation at offset, returning
// at most limit entries. Out-of-range offsets yield an empty page with
// the totals intact so callers can still render pagination state.
func Page(prefixes []string, objects []deltaglider.LogicalObject, offset, limit int) PageResult {
	if offset < 0 {
		offset = 0
	}
	total := len(prefixes) + len(objects)
	if limit <= 0 {
		limit = total
	}

	res := PageResult{Offset: offset, Limit: limit, Total: total}
	if offset >= total {
		res.Prefixes = []string{}
		res.Objects = []deltaglider.LogicalObject{}
		return res
	}

	end := offset + limit
	if end > total {
		end = total
	}

	// Prefix portion of the window.
	if offset < len(prefixes) {
		pEnd := end
		if pEnd > len(prefixes) {
			pEnd = len(prefixes)
		}
		res.Prefixes = prefixes[offset:pEnd]
	} else {
		res.Prefixes = []string{}
	}

	// Object portion.
	oStart := offset - len(prefixes)
	if oStart < 0 {
		oStart = 0
	}
	oEnd := end - len(prefixes)
	if oEnd < 0 {
		oEnd = 0
	}
	if oStart < oEnd {
		res.Objects = objects[oStart:oEnd]
	} else {
		res.Objects = []deltaglider.LogicalObject{}
	}

	res.HasMore = end < total
	return res
}
