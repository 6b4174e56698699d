package complete

// Point is a cell coordinate in the terminal viewport
type Point struct {
	X int
	Y int
}

// Size is a width and height in cells
type Size struct {
	Width  int
	Height int
}

// Place keeps a popup inside the viewport.
// It flips left by the popup width when the right edge would overflow, and
// above the anchor line (popup height plus one line) when the bottom would.
// The result is never negative.
func Place(anchor Point, popup, viewport Size, lineHeight int) Point {
	pos := anchor
	if pos.X+popup.Width > viewport.Width {
		pos.X -= popup.Width
	}
	if pos.Y+popup.Height > viewport.Height {
		pos.Y -= popup.Height + lineHeight
	}
	return Point{X: max(0, pos.X), Y: max(0, pos.Y)}
}
