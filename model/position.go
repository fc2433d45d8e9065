package model

import "fmt"

// Position is a cell on the simulation grid. X grows eastward and Y
// grows southward, so (0, 0) is the north-west corner.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns the cell one step from p along h. Headings outside the
// four cardinal values contribute a zero offset.
func (p Position) Add(h Heading) Position {
	dx, dy := h.Delta()
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// InBounds reports whether p lies on a square grid of the given size.
func (p Position) InBounds(gridSize int) bool {
	return p.X >= 0 && p.X < gridSize && p.Y >= 0 && p.Y < gridSize
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}
