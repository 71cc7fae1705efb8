package browse

// Navigator tracks keyboard focus over the visible rows of a directory
// page. Movement wraps at both ends. While input capture is held (a text
// field has focus, a dialog is open) navigation keys are ignored.
type Navigator struct {
	size     int
	focus    int
	focused  bool
	captured bool
}

func NewNavigator(size int) *Navigator {
	return &Navigator{size: size}
}

// Resize adjusts to a new row count, clamping focus into range. An empty
// page drops focus entirely.
func (n *Navigator) Resize(size int) {
	n.size = size
	if size == 0 {
		n.focused = false
		n.focus = 0
		return
	}
	if n.focus >= size {
		n.focus = size - 1
	}
}

// CaptureInput suppresses navigation while held.
func (n *Navigator) CaptureInput(held bool) {
	n.captured = held
}

// Next advances focus one row, wrapping to the top past the last row. The
// first movement on an unfocused page lands on the first row.
func (n *Navigator) Next() {
	n.move(1)
}

// Prev moves focus one row up, wrapping to the bottom before the first row.
func (n *Navigator) Prev() {
	n.move(-1)
}

func (n *Navigator) move(delta int) {
	if n.captured || n.size == 0 {
		return
	}
	if !n.focused {
		n.focused = true
		if delta < 0 {
			n.focus = n.size - 1
		} else {
			n.focus = 0
		}
		return
	}
	n.focus = ((n.focus+delta)%n.size + n.size) % n.size
}

// Focus reports the focused row index, or -1 when nothing holds focus.
func (n *Navigator) Focus() int {
	if !n.focused {
		return -1
	}
	return n.focus
}

// Activate returns the row an activation key applies to, or -1 when no row
// is focused or input is captured.
func (n *Navigator) Activate() int {
	if n.captured || !n.focused {
		return -1
	}
	return n.focus
}

// Blur drops focus without forgetting the capture state.
func (n *Navigator) Blur() {
	n.focused = false
	n.focus = 0
}
