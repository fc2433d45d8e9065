package core

import (
	"testing"

	"github.com/signalsfoundry/traffic-simulator/model"
)

func TestFullGridNetworkCoversEveryCell(t *testing.T) {
	net := NewFullGridNetwork(4)

	if got := net.RoadCellCount(); got != 16 {
		t.Fatalf("RoadCellCount() = %d, want 16", got)
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if !net.IsRoad(model.Position{X: x, Y: y}) {
				t.Fatalf("IsRoad(%d,%d) = false, want true", x, y)
			}
		}
	}
	for _, p := range []model.Position{{X: -1, Y: 0}, {X: 0, Y: -1}, {X: 4, Y: 0}, {X: 0, Y: 4}} {
		if net.IsRoad(p) {
			t.Errorf("IsRoad(%v) = true for an out-of-bounds cell", p)
		}
	}
}

func TestLatticeNetworkRoadsOnSpacingLines(t *testing.T) {
	net := NewLatticeNetwork(7, 3)

	// Cells are road when either coordinate sits on a lattice line.
	wantRoad := func(p model.Position) bool { return p.X%3 == 0 || p.Y%3 == 0 }
	count := 0
	for y := 0; y < 7; y++ {
		for x := 0; x < 7; x++ {
			p := model.Position{X: x, Y: y}
			if got := net.IsRoad(p); got != wantRoad(p) {
				t.Fatalf("IsRoad(%v) = %v, want %v", p, got, wantRoad(p))
			}
			if wantRoad(p) {
				count++
			}
		}
	}
	if got := net.RoadCellCount(); got != count {
		t.Errorf("RoadCellCount() = %d, want %d", got, count)
	}
}

func TestCustomNetworkKeepsOnlyListedCells(t *testing.T) {
	cells := []model.Position{
		{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 3, Y: 1},
		{X: 9, Y: 9}, // out of bounds on a 5-grid, must be dropped
	}
	net := NewCustomNetwork(5, cells)

	if got := net.RoadCellCount(); got != 3 {
		t.Fatalf("RoadCellCount() = %d, want 3", got)
	}
	if !net.IsRoad(model.Position{X: 2, Y: 1}) {
		t.Errorf("IsRoad(2,1) = false for a listed cell")
	}
	if net.IsRoad(model.Position{X: 2, Y: 2}) {
		t.Errorf("IsRoad(2,2) = true for an unlisted cell")
	}
	if net.IsRoad(model.Position{X: 9, Y: 9}) {
		t.Errorf("IsRoad(9,9) = true for a dropped out-of-bounds cell")
	}
}

func TestNeighborsOrderAndClipping(t *testing.T) {
	net := NewFullGridNetwork(5)

	got := net.Neighbors(model.Position{X: 2, Y: 2})
	want := []model.Position{
		{X: 2, Y: 1}, // north
		{X: 2, Y: 3}, // south
		{X: 3, Y: 2}, // east
		{X: 1, Y: 2}, // west
	}
	if len(got) != len(want) {
		t.Fatalf("Neighbors(2,2) returned %d cells, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Neighbors(2,2)[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	corner := net.Neighbors(model.Position{X: 0, Y: 0})
	wantCorner := []model.Position{{X: 0, Y: 1}, {X: 1, Y: 0}}
	if len(corner) != len(wantCorner) {
		t.Fatalf("Neighbors(0,0) returned %d cells, want %d", len(corner), len(wantCorner))
	}
	for i := range wantCorner {
		if corner[i] != wantCorner[i] {
			t.Fatalf("Neighbors(0,0)[%d] = %v, want %v", i, corner[i], wantCorner[i])
		}
	}
}

func TestNeighborsRespectCustomLayout(t *testing.T) {
	// A single horizontal strip: only east/west moves exist mid-strip.
	net := NewCustomNetwork(5, []model.Position{
		{X: 1, Y: 2}, {X: 2, Y: 2}, {X: 3, Y: 2},
	})

	got := net.Neighbors(model.Position{X: 2, Y: 2})
	want := []model.Position{{X: 3, Y: 2}, {X: 1, Y: 2}}
	if len(got) != len(want) {
		t.Fatalf("Neighbors(2,2) returned %d cells, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Neighbors(2,2)[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
