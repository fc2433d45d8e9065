package core

import "github.com/signalsfoundry/traffic-simulator/model"

// VehicleSnapshot is one vehicle's externally visible state.
type VehicleSnapshot struct {
	ID       int            `json:"id"`
	Position model.Position `json:"position"`
	Heading  model.Heading  `json:"heading"`
}

// IntersectionSnapshot is one signal's externally visible state.
type IntersectionSnapshot struct {
	Position model.Position   `json:"position"`
	NS       model.LightState `json:"ns"`
	EW       model.LightState `json:"ew"`
}

// Snapshot is a self-contained copy of the world at the end of a tick.
// It shares no storage with the engine: holders may retain it, marshal
// it, or read it from other goroutines while the engine keeps
// stepping. Vehicles are ordered by ascending ID and intersections by
// row then column, so equal worlds compare equal.
type Snapshot struct {
	TimeStep      int                    `json:"time_step"`
	GridSize      int                    `json:"grid_size"`
	Vehicles      []VehicleSnapshot      `json:"vehicles"`
	Intersections []IntersectionSnapshot `json:"intersections"`
}
