package browse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNavigatorFirstMoveLandsOnEdge(t *testing.T) {
	n := NewNavigator(3)
	assert.Equal(t, -1, n.Focus())

	n.Next()
	assert.Equal(t, 0, n.Focus())

	m := NewNavigator(3)
	m.Prev()
	assert.Equal(t, 2, m.Focus(), "moving up from nowhere starts at the bottom")
}

func TestNavigatorWrapsBothWays(t *testing.T) {
	n := NewNavigator(2)
	n.Next()
	n.Next()
	n.Next()
	assert.Equal(t, 0, n.Focus(), "past the last row wraps to the top")

	n.Prev()
	assert.Equal(t, 1, n.Focus(), "before the first row wraps to the bottom")
}

func TestNavigatorInputCaptureSuppressesMovement(t *testing.T) {
	n := NewNavigator(3)
	n.Next()
	n.CaptureInput(true)
	n.Next()
	n.Prev()
	assert.Equal(t, 0, n.Focus(), "focus frozen while a field captures input")
	assert.Equal(t, -1, n.Activate(), "activation keys are swallowed too")

	n.CaptureInput(false)
	n.Next()
	assert.Equal(t, 1, n.Focus())
	assert.Equal(t, 1, n.Activate())
}

func TestNavigatorResizeClampsFocus(t *testing.T) {
	n := NewNavigator(5)
	n.Next()
	n.Prev() // wraps to 4
	assert.Equal(t, 4, n.Focus())

	n.Resize(2)
	assert.Equal(t, 1, n.Focus())

	n.Resize(0)
	assert.Equal(t, -1, n.Focus())
	assert.Equal(t, -1, n.Activate())
}

func TestNavigatorEmptyPageIgnoresMovement(t *testing.T) {
	n := NewNavigator(0)
	n.Next()
	n.Prev()
	assert.Equal(t, -1, n.Focus())
}

func TestNavigatorBlur(t *testing.T) {
	n := NewNavigator(3)
	n.Next()
	n.Blur()
	assert.Equal(t, -1, n.Focus())
	n.Next()
	assert.Equal(t, 0, n.Focus())
}
