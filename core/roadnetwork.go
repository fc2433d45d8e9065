package core

import "github.com/signalsfoundry/traffic-simulator/model"

// RoadNetwork is the set of traversable cells on the grid. Vehicles
// and the path finder consult only IsRoad and Neighbors, so richer
// layouts slot in without engine changes.
type RoadNetwork struct {
	gridSize int

	// cells is nil for the full-grid layout, where every in-bounds
	// cell is road; otherwise it holds the explicit road set.
	cells map[model.Position]struct{}
}

// NewFullGridNetwork treats every in-bounds cell as road. This is the
// default world for procedurally generated engines.
func NewFullGridNetwork(gridSize int) *RoadNetwork {
	return &RoadNetwork{gridSize: gridSize}
}

// NewLatticeNetwork restricts roads to every spacing-th row and
// column, the classic city-block layout.
func NewLatticeNetwork(gridSize, spacing int) *RoadNetwork {
	if spacing < 1 {
		spacing = 1
	}
	cells := make(map[model.Position]struct{})
	for y := 0; y < gridSize; y++ {
		for x := 0; x < gridSize; x++ {
			if x%spacing == 0 || y%spacing == 0 {
				cells[model.Position{X: x, Y: y}] = struct{}{}
			}
		}
	}
	return &RoadNetwork{gridSize: gridSize, cells: cells}
}

// NewCustomNetwork builds a network from an explicit cell list, as
// loaded from scenario files. Out-of-bounds cells are dropped here;
// the scenario loader rejects them before construction.
func NewCustomNetwork(gridSize int, cells []model.Position) *RoadNetwork {
	set := make(map[model.Position]struct{}, len(cells))
	for _, c := range cells {
		if c.InBounds(gridSize) {
			set[c] = struct{}{}
		}
	}
	return &RoadNetwork{gridSize: gridSize, cells: set}
}

// GridSize returns the side length of the square grid.
func (rn *RoadNetwork) GridSize() int { return rn.gridSize }

// IsRoad reports whether vehicles may occupy p.
func (rn *RoadNetwork) IsRoad(p model.Position) bool {
	if !p.InBounds(rn.gridSize) {
		return false
	}
	if rn.cells == nil {
		return true
	}
	_, ok := rn.cells[p]
	return ok
}

// RoadCellCount returns the number of traversable cells.
func (rn *RoadNetwork) RoadCellCount() int {
	if rn.cells == nil {
		return rn.gridSize * rn.gridSize
	}
	return len(rn.cells)
}

// Neighbors returns the road cells adjacent to p in the fixed north,
// south, east, west order. Path search relies on this order being
// stable for reproducible tie-breaking.
func (rn *RoadNetwork) Neighbors(p model.Position) []model.Position {
	out := make([]model.Position, 0, 4)
	for _, h := range model.Headings {
		q := p.Add(h)
		if rn.IsRoad(q) {
			out = append(out, q)
		}
	}
	return out
}
