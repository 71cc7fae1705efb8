package browse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToggleIsSelfInverse(t *testing.T) {
	s := NewSelection()
	e := Object("a.txt")

	s.Toggle(e)
	assert.True(t, s.Contains(e))
	s.Toggle(e)
	assert.False(t, s.Contains(e))
	assert.Zero(t, s.Count())
}

func TestAddIsIdempotent(t *testing.T) {
	s := NewSelection()
	s.Add(Object("a.txt"))
	s.Add(Object("a.txt"))
	s.Add(Prefix("dir/"))

	assert.Equal(t, 2, s.Count())
	assert.Equal(t, []string{"a.txt"}, s.Objects())
	assert.Equal(t, []string{"dir/"}, s.Prefixes())
}

func TestTogglePageCompletesThenClears(t *testing.T) {
	s := NewSelection()
	page := []Entry{Object("a"), Object("b"), Prefix("dir/")}

	s.Toggle(Object("a"))
	s.TogglePage(page)
	assert.Equal(t, 3, s.Count(), "partial selection completes to the full page")

	s.TogglePage(page)
	assert.Zero(t, s.Count(), "fully selected page clears")
}

func TestTogglePageEmptyIsNoop(t *testing.T) {
	s := NewSelection()
	s.Toggle(Object("kept"))
	s.TogglePage(nil)
	assert.Equal(t, 1, s.Count())
}

func TestSetViewResetsSelection(t *testing.T) {
	s := NewSelection()
	s.SetView("bucket|prefix/|gen1")
	s.Toggle(Object("a"))

	s.SetView("bucket|prefix/|gen1")
	assert.Equal(t, 1, s.Count(), "same view keeps the selection")

	s.SetView("bucket|other/|gen2")
	assert.Zero(t, s.Count(), "navigating away clears the selection")
	assert.Equal(t, "bucket|other/|gen2", s.View())
}

func TestPartitionedAccessorsAreSorted(t *testing.T) {
	s := NewSelection()
	s.Toggle(Object("z.txt"))
	s.Toggle(Object("a.txt"))
	s.Toggle(Prefix("logs/"))
	s.Toggle(Prefix("builds/"))

	assert.Equal(t, []string{"a.txt", "z.txt"}, s.Objects())
	assert.Equal(t, []string{"builds/", "logs/"}, s.Prefixes())
}

func TestSameKeyDifferentKindAreDistinct(t *testing.T) {
	s := NewSelection()
	s.Toggle(Object("backup"))
	s.Toggle(Prefix("backup"))
	assert.Equal(t, 2, s.Count())

	s.Toggle(Object("backup"))
	assert.Equal(t, []string{"backup"}, s.Prefixes())
	assert.Empty(t, s.Objects())
}
