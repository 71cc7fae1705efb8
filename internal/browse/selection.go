// Package browse models the interactive state of the object browser.
// Selection tracks the chosen rows and normalizes the key sets the bulk
// endpoints receive; Navigator models keyboard focus over the listed rows.
package browse

import "sort"

// EntryKind distinguishes selectable row types.
type EntryKind int

const (
	KindObject EntryKind = iota
	KindPrefix
)

// Entry identifies one selectable row.
type Entry struct {
	Kind EntryKind
	Key  string
}

func Object(key string) Entry { return Entry{Kind: KindObject, Key: key} }
func Prefix(key string) Entry { return Entry{Kind: KindPrefix, Key: key} }

// Selection tracks the chosen rows for one directory view. The view token
// ties the selection to a listing generation; navigating to another
// directory resets everything.
type Selection struct {
	view    string
	entries map[Entry]struct{}
}

func NewSelection() *Selection {
	return &Selection{entries: make(map[Entry]struct{})}
}

// SetView switches to a new listing generation. A changed token clears the
// selection so rows from a previous directory can never leak into a bulk
// action.
func (s *Selection) SetView(token string) {
	if token == s.view {
		return
	}
	s.view = token
	s.entries = make(map[Entry]struct{})
}

func (s *Selection) View() string { return s.view }

// Add marks one entry selected. Adding an entry twice is a no-op, which
// also dedupes repeated keys arriving in one bulk request.
func (s *Selection) Add(e Entry) {
	s.entries[e] = struct{}{}
}

// Toggle flips one entry. Toggling twice restores the prior state.
func (s *Selection) Toggle(e Entry) {
	if _, ok := s.entries[e]; ok {
		delete(s.entries, e)
	} else {
		s.entries[e] = struct{}{}
	}
}

// TogglePage selects every given entry, unless all of them are already
// selected, in which case it deselects them. Partial selection therefore
// completes to full before a second invocation clears.
func (s *Selection) TogglePage(page []Entry) {
	all := len(page) > 0
	for _, e := range page {
		if _, ok := s.entries[e]; !ok {
			all = false
			break
		}
	}
	for _, e := range page {
		if all {
			delete(s.entries, e)
		} else {
			s.entries[e] = struct{}{}
		}
	}
}

func (s *Selection) Contains(e Entry) bool {
	_, ok := s.entries[e]
	return ok
}

func (s *Selection) Count() int { return len(s.entries) }

func (s *Selection) Clear() {
	s.entries = make(map[Entry]struct{})
}

// Objects returns the selected object keys in sorted order.
func (s *Selection) Objects() []string { return s.keysOf(KindObject) }

// Prefixes returns the selected directory prefixes in sorted order.
func (s *Selection) Prefixes() []string { return s.keysOf(KindPrefix) }

func (s *Selection) keysOf(kind EntryKind) []string {
	keys := make([]string, 0, len(s.entries))
	for e := range s.entries {
		if e.Kind == kind {
			keys = append(keys, e.Key)
		}
	}
	sort.Strings(keys)
	return keys
}
