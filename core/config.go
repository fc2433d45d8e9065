package core

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig indicates an engine configuration that can never
// produce a runnable world. Construction fails fast with this instead
// of spinning or degrading later.
var ErrInvalidConfig = errors.New("invalid configuration")

// IntersectionSpacing is the grid period of the default signal
// lattice: every cell whose x and y are both multiples of this spacing
// hosts an intersection.
const IntersectionSpacing = 3

// Config describes a procedurally generated world.
type Config struct {
	// GridSize is the side length of the square grid.
	GridSize int
	// VehicleCount is how many vehicles to place at construction.
	VehicleCount int
	// CycleLength is the number of ticks each signal axis stays green
	// before the light flips.
	CycleLength int
	// Seed feeds the engine's private RNG. Equal seeds and equal
	// configs reproduce identical runs tick for tick.
	Seed int64
}

// Validate checks the context-free parts of the configuration. The
// capacity check (vehicles versus placeable cells) happens during
// construction, once the road layout and signals are known.
func (c Config) Validate() error {
	if c.GridSize < 1 {
		return fmt.Errorf("%w: grid size %d, must be at least 1", ErrInvalidConfig, c.GridSize)
	}
	if c.CycleLength < 1 {
		return fmt.Errorf("%w: cycle length %d, must be at least 1", ErrInvalidConfig, c.CycleLength)
	}
	if c.VehicleCount < 0 {
		return fmt.Errorf("%w: vehicle count %d, must not be negative", ErrInvalidConfig, c.VehicleCount)
	}
	return nil
}
