package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/signalsfoundry/traffic-simulator/model"
)

func TestLoadScenarioProceduralDefaults(t *testing.T) {
	e, summary, err := LoadScenario(strings.NewReader(`{
		"grid_size": 10,
		"cycle_length": 5,
		"seed": 42,
		"vehicle_count": 6
	}`))
	if err != nil {
		t.Fatalf("LoadScenario() error = %v", err)
	}

	if summary.Intersections != 16 || summary.Vehicles != 6 || summary.RoadCells != 100 || summary.Routed != 0 {
		t.Errorf("summary = %+v, want 16 intersections, 6 vehicles, 100 road cells, 0 routed", summary)
	}
	if got := e.VehicleCount(); got != 6 {
		t.Errorf("VehicleCount() = %d, want 6", got)
	}
	if got := e.IntersectionCount(); got != 16 {
		t.Errorf("IntersectionCount() = %d, want 16", got)
	}
}

func TestLoadScenarioMatchesProceduralConstruction(t *testing.T) {
	// A scenario that specifies nothing beyond the config must equal the
	// procedurally built world for the same config and seed.
	cfg := Config{GridSize: 10, VehicleCount: 8, CycleLength: 4, Seed: 77}
	procedural := newTestEngine(t, cfg)

	loaded, _, err := LoadScenario(strings.NewReader(`{
		"grid_size": 10,
		"cycle_length": 4,
		"seed": 77,
		"vehicle_count": 8
	}`))
	if err != nil {
		t.Fatalf("LoadScenario() error = %v", err)
	}

	for tick := 0; tick <= 10; tick++ {
		a, b := procedural.Snapshot(), loaded.Snapshot()
		if len(a.Vehicles) != len(b.Vehicles) {
			t.Fatalf("tick %d: vehicle counts differ: %d vs %d", tick, len(a.Vehicles), len(b.Vehicles))
		}
		for i := range a.Vehicles {
			if a.Vehicles[i] != b.Vehicles[i] {
				t.Fatalf("tick %d: vehicle %d differs: %+v vs %+v", tick, i, a.Vehicles[i], b.Vehicles[i])
			}
		}
		procedural.Step()
		loaded.Step()
	}
}

func TestLoadScenarioExplicitWorld(t *testing.T) {
	e, summary, err := LoadScenario(strings.NewReader(`{
		"grid_size": 7,
		"cycle_length": 5,
		"seed": 1,
		"roads": {"layout": "lattice", "spacing": 3},
		"intersections": [{"x": 3, "y": 3, "cycle_length": 2, "green_axis": "ew"}],
		"vehicles": [
			{"id": 4, "x": 3, "y": 1, "heading": "S"},
			{"id": 2, "x": 1, "y": 3, "heading": "east", "destination": {"x": 6, "y": 3}}
		]
	}`))
	if err != nil {
		t.Fatalf("LoadScenario() error = %v", err)
	}

	if summary.Intersections != 1 || summary.Vehicles != 2 || summary.Routed != 1 {
		t.Fatalf("summary = %+v, want 1 intersection, 2 vehicles, 1 routed", summary)
	}

	snap := e.Snapshot()
	if len(snap.Vehicles) != 2 || snap.Vehicles[0].ID != 2 || snap.Vehicles[1].ID != 4 {
		t.Fatalf("snapshot vehicles = %+v, want IDs [2 4] in order", snap.Vehicles)
	}
	if snap.Vehicles[0].Heading != model.HeadingEast {
		t.Errorf("vehicle 2 heading = %v, want E (parsed from %q)", snap.Vehicles[0].Heading, "east")
	}

	is := snap.Intersections[0]
	if is.Position != (model.Position{X: 3, Y: 3}) || is.NS != model.LightRed || is.EW != model.LightGreen {
		t.Errorf("intersection = %+v, want (3,3) with (red, green)", is)
	}

	// The seeded east-west green flips after its own two-tick cycle.
	e.Step()
	e.Step()
	is = e.Snapshot().Intersections[0]
	if is.NS != model.LightGreen || is.EW != model.LightRed {
		t.Errorf("after 2 ticks intersection = %+v, want (green, red)", is)
	}

	// The routed vehicle is still working through its row eastward.
	if got := len(e.vehiclesByID[2].Route); got == 0 {
		t.Errorf("vehicle 2 has no route left after two ticks, expected waypoints remaining")
	}
}

func TestLoadScenarioExplicitVehiclesWinOverCount(t *testing.T) {
	e, _, err := LoadScenario(strings.NewReader(`{
		"grid_size": 5,
		"cycle_length": 5,
		"seed": 1,
		"vehicle_count": 9,
		"vehicles": [{"id": 0, "x": 1, "y": 0, "heading": "W"}]
	}`))
	if err != nil {
		t.Fatalf("LoadScenario() error = %v", err)
	}
	if got := e.VehicleCount(); got != 1 {
		t.Errorf("VehicleCount() = %d, want 1 (explicit list wins over vehicle_count)", got)
	}
}

func TestLoadScenarioEmptyIntersectionsMeansNoSignals(t *testing.T) {
	e, _, err := LoadScenario(strings.NewReader(`{
		"grid_size": 6,
		"cycle_length": 5,
		"seed": 1,
		"intersections": []
	}`))
	if err != nil {
		t.Fatalf("LoadScenario() error = %v", err)
	}
	if got := e.IntersectionCount(); got != 0 {
		t.Errorf("IntersectionCount() = %d, want 0 for an explicit empty list", got)
	}

	// Absent list: the default lattice appears instead.
	e, _, err = LoadScenario(strings.NewReader(`{
		"grid_size": 6,
		"cycle_length": 5,
		"seed": 1
	}`))
	if err != nil {
		t.Fatalf("LoadScenario() error = %v", err)
	}
	if got := e.IntersectionCount(); got != 4 {
		t.Errorf("IntersectionCount() = %d, want 4 on a 6-grid lattice", got)
	}
}

func TestLoadScenarioDecodeFailure(t *testing.T) {
	_, _, err := LoadScenario(strings.NewReader(`{"grid_size": `))
	if err == nil {
		t.Fatalf("LoadScenario() on truncated JSON succeeded, want error")
	}
	if errors.Is(err, ErrInvalidScenario) || errors.Is(err, ErrInvalidConfig) {
		t.Errorf("decode failure wrapped as %v, want a plain decode error", err)
	}
}

func TestLoadScenarioConfigErrors(t *testing.T) {
	_, _, err := LoadScenario(strings.NewReader(`{
		"grid_size": 0,
		"cycle_length": 5,
		"seed": 1
	}`))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("LoadScenario() with zero grid error = %v, want ErrInvalidConfig", err)
	}
}

func TestLoadScenarioWorldErrors(t *testing.T) {
	tests := []struct {
		name     string
		scenario string
	}{
		{
			name: "vehicle off road",
			scenario: `{
				"grid_size": 7, "cycle_length": 5, "seed": 1,
				"roads": {"layout": "lattice"},
				"intersections": [],
				"vehicles": [{"id": 0, "x": 1, "y": 1, "heading": "N"}]
			}`,
		},
		{
			name: "vehicle on intersection",
			scenario: `{
				"grid_size": 7, "cycle_length": 5, "seed": 1,
				"vehicles": [{"id": 0, "x": 3, "y": 3, "heading": "N"}]
			}`,
		},
		{
			name: "duplicate vehicle id",
			scenario: `{
				"grid_size": 7, "cycle_length": 5, "seed": 1,
				"intersections": [],
				"vehicles": [
					{"id": 0, "x": 1, "y": 1, "heading": "N"},
					{"id": 0, "x": 2, "y": 1, "heading": "N"}
				]
			}`,
		},
		{
			name: "two vehicles on one cell",
			scenario: `{
				"grid_size": 7, "cycle_length": 5, "seed": 1,
				"intersections": [],
				"vehicles": [
					{"id": 0, "x": 1, "y": 1, "heading": "N"},
					{"id": 1, "x": 1, "y": 1, "heading": "S"}
				]
			}`,
		},
		{
			name: "unparseable heading",
			scenario: `{
				"grid_size": 7, "cycle_length": 5, "seed": 1,
				"intersections": [],
				"vehicles": [{"id": 0, "x": 1, "y": 1, "heading": "up"}]
			}`,
		},
		{
			name: "intersection out of bounds",
			scenario: `{
				"grid_size": 7, "cycle_length": 5, "seed": 1,
				"intersections": [{"x": 9, "y": 0}]
			}`,
		},
		{
			name: "duplicate intersection",
			scenario: `{
				"grid_size": 7, "cycle_length": 5, "seed": 1,
				"intersections": [{"x": 3, "y": 3}, {"x": 3, "y": 3}]
			}`,
		},
		{
			name: "negative intersection cycle",
			scenario: `{
				"grid_size": 7, "cycle_length": 5, "seed": 1,
				"intersections": [{"x": 3, "y": 3, "cycle_length": -2}]
			}`,
		},
		{
			name: "unknown road layout",
			scenario: `{
				"grid_size": 7, "cycle_length": 5, "seed": 1,
				"roads": {"layout": "spiral"}
			}`,
		},
		{
			name: "custom layout without cells",
			scenario: `{
				"grid_size": 7, "cycle_length": 5, "seed": 1,
				"roads": {"layout": "custom"}
			}`,
		},
		{
			name: "custom road cell out of bounds",
			scenario: `{
				"grid_size": 7, "cycle_length": 5, "seed": 1,
				"roads": {"layout": "custom", "cells": [{"x": 10, "y": 0}]}
			}`,
		},
		{
			name: "negative lattice spacing",
			scenario: `{
				"grid_size": 7, "cycle_length": 5, "seed": 1,
				"roads": {"layout": "lattice", "spacing": -3}
			}`,
		},
		{
			name: "unreachable destination",
			scenario: `{
				"grid_size": 7, "cycle_length": 5, "seed": 1,
				"roads": {"layout": "custom", "cells": [
					{"x": 0, "y": 0}, {"x": 1, "y": 0}, {"x": 6, "y": 6}
				]},
				"intersections": [],
				"vehicles": [{"id": 0, "x": 0, "y": 0, "heading": "E", "destination": {"x": 6, "y": 6}}]
			}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := LoadScenario(strings.NewReader(tt.scenario))
			if !errors.Is(err, ErrInvalidScenario) {
				t.Fatalf("LoadScenario() error = %v, want ErrInvalidScenario", err)
			}
		})
	}
}
