package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/signalsfoundry/traffic-simulator/model"
)

// ErrInvalidScenario indicates a scenario file that decoded fine but
// describes an impossible world.
var ErrInvalidScenario = errors.New("invalid scenario")

// ScenarioSummary is a small summary of what was loaded from JSON.
// It's mainly useful for logging from main().
type ScenarioSummary struct {
	Intersections int
	Vehicles      int
	RoadCells     int
	Routed        int
}

// internal JSON shapes - kept unexported so we're free to evolve them.
type scenarioJSON struct {
	GridSize      int                `json:"grid_size"`
	CycleLength   int                `json:"cycle_length"`
	Seed          int64              `json:"seed"`
	Roads         *roadsJSON         `json:"roads"`
	Intersections []intersectionJSON `json:"intersections"`
	VehicleCount  int                `json:"vehicle_count"`
	Vehicles      []vehicleJSON      `json:"vehicles"`
}

type roadsJSON struct {
	Layout  string         `json:"layout"` // "full" | "lattice" | "custom"
	Spacing int            `json:"spacing"`
	Cells   []positionJSON `json:"cells"`
}

type positionJSON struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type intersectionJSON struct {
	X           int    `json:"x"`
	Y           int    `json:"y"`
	CycleLength int    `json:"cycle_length"` // optional; defaults to the scenario cycle_length
	GreenAxis   string `json:"green_axis"`   // "ns" | "ew"; defaults to ns
}

type vehicleJSON struct {
	ID          int           `json:"id"`
	X           int           `json:"x"`
	Y           int           `json:"y"`
	Heading     string        `json:"heading"`
	Destination *positionJSON `json:"destination"` // optional; assigns a route at load
}

// LoadScenario reads a JSON world description from r and constructs a
// ready-to-step engine plus a summary for startup logging.
//
// Omitted sections fall back to the procedural defaults: a full road
// grid, signals on the reference lattice, and random vehicle placement
// when vehicle_count is given without an explicit vehicles list. An
// explicit vehicles list wins over vehicle_count. A present-but-empty
// intersections array means "no signals", unlike an absent one.
func LoadScenario(r io.Reader, opts ...Option) (*Engine, *ScenarioSummary, error) {
	var payload scenarioJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, nil, fmt.Errorf("load scenario: decode failed: %w", err)
	}

	network, err := networkFromJSON(payload.GridSize, payload.Roads)
	if err != nil {
		return nil, nil, err
	}

	explicit := len(payload.Vehicles) > 0
	cfg := Config{
		GridSize:    payload.GridSize,
		CycleLength: payload.CycleLength,
		Seed:        payload.Seed,
	}
	if explicit {
		cfg.VehicleCount = len(payload.Vehicles)
	} else {
		cfg.VehicleCount = payload.VehicleCount
	}

	e, err := newBareEngine(cfg, append(opts, WithRoadNetwork(network))...)
	if err != nil {
		return nil, nil, err
	}

	if payload.Intersections == nil {
		for y := 0; y < cfg.GridSize; y += IntersectionSpacing {
			for x := 0; x < cfg.GridSize; x += IntersectionSpacing {
				pos := model.Position{X: x, Y: y}
				e.intersections[pos] = NewIntersection(pos, cfg.CycleLength)
			}
		}
	} else {
		for _, ij := range payload.Intersections {
			pos := model.Position{X: ij.X, Y: ij.Y}
			if !pos.InBounds(cfg.GridSize) {
				return nil, nil, fmt.Errorf("%w: intersection %s out of bounds", ErrInvalidScenario, pos)
			}
			if _, dup := e.intersections[pos]; dup {
				return nil, nil, fmt.Errorf("%w: duplicate intersection at %s", ErrInvalidScenario, pos)
			}
			cycle := ij.CycleLength
			if cycle == 0 {
				cycle = cfg.CycleLength
			}
			if cycle < 1 {
				return nil, nil, fmt.Errorf("%w: intersection %s cycle length %d", ErrInvalidScenario, pos, cycle)
			}
			e.intersections[pos] = NewIntersectionWithPhase(pos, cycle, axisFromString(ij.GreenAxis))
		}
	}

	routed := 0
	if explicit {
		for _, vj := range payload.Vehicles {
			pos := model.Position{X: vj.X, Y: vj.Y}
			if _, dup := e.vehiclesByID[vj.ID]; dup {
				return nil, nil, fmt.Errorf("%w: duplicate vehicle id %d", ErrInvalidScenario, vj.ID)
			}
			if !e.network.IsRoad(pos) {
				return nil, nil, fmt.Errorf("%w: vehicle %d at %s is not on a road cell", ErrInvalidScenario, vj.ID, pos)
			}
			if _, ok := e.intersections[pos]; ok {
				return nil, nil, fmt.Errorf("%w: vehicle %d starts on the intersection at %s", ErrInvalidScenario, vj.ID, pos)
			}
			if _, ok := e.occupied[pos]; ok {
				return nil, nil, fmt.Errorf("%w: two vehicles share cell %s", ErrInvalidScenario, pos)
			}
			heading, err := model.ParseHeading(vj.Heading)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: vehicle %d: %v", ErrInvalidScenario, vj.ID, err)
			}
			e.addVehicle(&model.Vehicle{ID: vj.ID, Position: pos, Heading: heading})
		}

		// Routes go in after every vehicle is placed so destinations can
		// reference any road cell regardless of declaration order.
		for _, vj := range payload.Vehicles {
			if vj.Destination == nil {
				continue
			}
			dest := model.Position{X: vj.Destination.X, Y: vj.Destination.Y}
			if err := e.AssignRoute(vj.ID, dest); err != nil {
				return nil, nil, fmt.Errorf("%w: vehicle %d: %v", ErrInvalidScenario, vj.ID, err)
			}
			routed++
		}
	} else if cfg.VehicleCount > 0 {
		if err := e.placeVehicles(cfg.VehicleCount); err != nil {
			return nil, nil, err
		}
	}

	e.finalize()

	return e, &ScenarioSummary{
		Intersections: len(e.intersections),
		Vehicles:      len(e.vehicles),
		RoadCells:     e.network.RoadCellCount(),
		Routed:        routed,
	}, nil
}

// networkFromJSON builds the road layout for a scenario. A nil roads
// section means the full grid.
func networkFromJSON(gridSize int, roads *roadsJSON) (*RoadNetwork, error) {
	if roads == nil {
		return NewFullGridNetwork(gridSize), nil
	}

	switch strings.ToLower(strings.TrimSpace(roads.Layout)) {
	case "", "full":
		return NewFullGridNetwork(gridSize), nil
	case "lattice":
		spacing := roads.Spacing
		if spacing == 0 {
			spacing = IntersectionSpacing
		}
		if spacing < 1 {
			return nil, fmt.Errorf("%w: road spacing %d", ErrInvalidScenario, spacing)
		}
		return NewLatticeNetwork(gridSize, spacing), nil
	case "custom":
		if len(roads.Cells) == 0 {
			return nil, fmt.Errorf("%w: custom road layout has no cells", ErrInvalidScenario)
		}
		cells := make([]model.Position, 0, len(roads.Cells))
		for _, c := range roads.Cells {
			p := model.Position{X: c.X, Y: c.Y}
			if !p.InBounds(gridSize) {
				return nil, fmt.Errorf("%w: road cell %s out of bounds", ErrInvalidScenario, p)
			}
			cells = append(cells, p)
		}
		return NewCustomNetwork(gridSize, cells), nil
	default:
		return nil, fmt.Errorf("%w: unknown road layout %q", ErrInvalidScenario, roads.Layout)
	}
}

// axisFromString maps the JSON "green_axis" value to an Axis.
//
// Kept tolerant: unknown or empty values default to north-south, the
// same phase procedurally built worlds start with.
func axisFromString(s string) model.Axis {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ew", "east-west", "east_west":
		return model.AxisEW
	default:
		return model.AxisNS
	}
}
