package core

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/signalsfoundry/traffic-simulator/internal/logging"
	"github.com/signalsfoundry/traffic-simulator/model"
)

var (
	// ErrVehicleNotFound indicates a vehicle ID unknown to the engine.
	ErrVehicleNotFound = errors.New("vehicle not found")
	// ErrNoRoute indicates no drivable path exists to the requested
	// destination.
	ErrNoRoute = errors.New("no route to destination")
)

// StepStats summarises one tick for observers: how many vehicles
// moved, why the rest held position, and how the signals behaved.
type StepStats struct {
	Tick          int
	Moved         int
	HeldBounds    int
	HeldSignal    int
	HeldCollision int
	LightSwitches int
	Duration      time.Duration
}

// MetricsRecorder receives per-tick outcome counts and world-size
// gauges. The observability collector implements it; the engine works
// fine without one.
type MetricsRecorder interface {
	RecordStep(stats StepStats)
	SetWorldCounts(vehicles, intersections, roadCells int)
}

// Option customises Engine construction.
type Option func(*Engine)

// WithLogger attaches a structured logger for engine lifecycle and
// per-tick debug events.
func WithLogger(log logging.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithMetricsRecorder attaches an optional recorder for tick outcomes
// and world gauges.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithRoadNetwork replaces the default full-grid road layout. The
// network's grid size must match the engine configuration.
func WithRoadNetwork(rn *RoadNetwork) Option {
	return func(e *Engine) {
		if rn != nil {
			e.network = rn
		}
	}
}

// Engine owns the entire world and advances it one discrete tick at a
// time. It carries no internal locking: Step, Snapshot, and the other
// mutating calls must be serialized by the caller. A single driver
// goroutine that steps the engine and hands value Snapshots to
// consumers is the intended shape.
type Engine struct {
	cfg   Config
	runID string

	log     logging.Logger
	metrics MetricsRecorder

	timeStep      int
	vehicles      []*model.Vehicle // ascending ID order
	vehiclesByID  map[int]*model.Vehicle
	occupied      map[model.Position]*model.Vehicle
	intersections map[model.Position]*Intersection
	network       *RoadNetwork
	pathfinder    *PathFinder
	rng           *rand.Rand

	tickListeners []func(int)
}

// newBareEngine validates the config and wires an empty world. Both
// procedural construction and the scenario loader start here.
func newBareEngine(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:           cfg,
		runID:         uuid.NewString(),
		log:           logging.Noop(),
		vehiclesByID:  make(map[int]*model.Vehicle),
		occupied:      make(map[model.Position]*model.Vehicle),
		intersections: make(map[model.Position]*Intersection),
		rng:           rand.New(rand.NewSource(cfg.Seed)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	if e.network == nil {
		e.network = NewFullGridNetwork(cfg.GridSize)
	}
	if e.network.GridSize() != cfg.GridSize {
		return nil, fmt.Errorf("%w: road network grid size %d does not match configured size %d",
			ErrInvalidConfig, e.network.GridSize(), cfg.GridSize)
	}
	e.pathfinder = NewPathFinder(e.network)
	e.log = e.log.With(logging.String("run_id", e.runID))
	return e, nil
}

// NewEngine builds a world from cfg: signals on every cell whose x and
// y are both multiples of IntersectionSpacing, then VehicleCount
// vehicles on random free road cells with random headings. All
// validation happens here; a returned engine is ready to Step.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	e, err := newBareEngine(cfg, opts...)
	if err != nil {
		return nil, err
	}

	for y := 0; y < cfg.GridSize; y += IntersectionSpacing {
		for x := 0; x < cfg.GridSize; x += IntersectionSpacing {
			pos := model.Position{X: x, Y: y}
			e.intersections[pos] = NewIntersection(pos, cfg.CycleLength)
		}
	}

	if err := e.placeVehicles(cfg.VehicleCount); err != nil {
		return nil, err
	}

	e.finalize()
	return e, nil
}

// placeVehicles scatters count vehicles over free road cells by
// rejection sampling from the engine RNG, mirroring how worlds are
// seeded by hand on small grids. The capacity check up front keeps the
// sampling loop finite.
func (e *Engine) placeVehicles(count int) error {
	capacity := 0
	for y := 0; y < e.cfg.GridSize; y++ {
		for x := 0; x < e.cfg.GridSize; x++ {
			p := model.Position{X: x, Y: y}
			if e.network.IsRoad(p) && e.intersections[p] == nil {
				capacity++
			}
		}
	}
	if count > capacity {
		return fmt.Errorf("%w: %d vehicles exceed %d placeable cells",
			ErrInvalidConfig, count, capacity)
	}

	for id := 0; id < count; id++ {
		for {
			p := model.Position{
				X: e.rng.Intn(e.cfg.GridSize),
				Y: e.rng.Intn(e.cfg.GridSize),
			}
			if !e.network.IsRoad(p) {
				continue
			}
			if _, ok := e.intersections[p]; ok {
				continue
			}
			if _, ok := e.occupied[p]; ok {
				continue
			}
			e.addVehicle(&model.Vehicle{
				ID:       id,
				Position: p,
				Heading:  model.Headings[e.rng.Intn(len(model.Headings))],
			})
			break
		}
	}
	return nil
}

// addVehicle registers v in all engine indexes. Callers ensure the
// position is free and the ID unused.
func (e *Engine) addVehicle(v *model.Vehicle) {
	e.vehicles = append(e.vehicles, v)
	e.vehiclesByID[v.ID] = v
	e.occupied[v.Position] = v
}

// finalize orders vehicles, publishes world gauges, and logs the
// initial world. Runs once per construction path.
func (e *Engine) finalize() {
	sort.Slice(e.vehicles, func(a, b int) bool {
		return e.vehicles[a].ID < e.vehicles[b].ID
	})
	if e.metrics != nil {
		e.metrics.SetWorldCounts(len(e.vehicles), len(e.intersections), e.network.RoadCellCount())
	}
	e.log.Info(context.Background(), "engine initialized",
		logging.Int("grid_size", e.cfg.GridSize),
		logging.Int("vehicles", len(e.vehicles)),
		logging.Int("intersections", len(e.intersections)),
		logging.Int("cycle_length", e.cfg.CycleLength),
		logging.Int64("seed", e.cfg.Seed),
	)
}

// movePlan is one vehicle's intent for the current tick, computed in
// the pure planning pass.
type movePlan struct {
	heading model.Heading
	next    model.Position
}

// Step advances the world exactly one tick: signals first, then a pure
// planning pass over all vehicles, then conflict resolution in
// ascending vehicle ID order. Inadmissible moves hold the vehicle in
// place for the tick; they are outcomes, not errors. The time step
// increments once everything has settled.
func (e *Engine) Step() {
	start := time.Now()

	switches := 0
	for _, sig := range e.intersections {
		if sig.Advance() {
			switches++
		}
	}

	// Planning pass: read-only. A routed vehicle steers toward its
	// next waypoint, everyone else continues straight.
	plans := make([]movePlan, len(e.vehicles))
	for idx, v := range e.vehicles {
		heading := v.Heading
		if rh, ok := v.RouteHeading(); ok {
			heading = rh
		}
		plans[idx] = movePlan{heading: heading, next: v.Position.Add(heading)}
	}

	// Resolution pass. Vehicles are evaluated in ascending ID order;
	// lower IDs win contested cells. claimed holds the cells granted
	// this tick, occupied tracks live positions so a held vehicle
	// still blocks its cell while a vacated cell opens up immediately.
	stats := StepStats{LightSwitches: switches}
	claimed := make(map[model.Position]struct{}, len(e.vehicles))
	for idx, v := range e.vehicles {
		plan := plans[idx]

		if !e.network.IsRoad(plan.next) {
			stats.HeldBounds++
			continue
		}
		if sig := e.intersections[plan.next]; sig != nil && !sig.IsGreenFor(plan.heading) {
			stats.HeldSignal++
			continue
		}
		if _, taken := claimed[plan.next]; taken {
			stats.HeldCollision++
			continue
		}
		if occ, ok := e.occupied[plan.next]; ok && occ != v {
			stats.HeldCollision++
			continue
		}

		delete(e.occupied, v.Position)
		v.Position = plan.next
		v.Heading = plan.heading
		e.occupied[v.Position] = v
		claimed[v.Position] = struct{}{}
		v.TrimRoute()
		stats.Moved++
	}

	e.timeStep++
	stats.Tick = e.timeStep
	stats.Duration = time.Since(start)

	if e.metrics != nil {
		e.metrics.RecordStep(stats)
	}
	e.log.Debug(context.Background(), "step complete",
		logging.Int("tick", stats.Tick),
		logging.Int("moved", stats.Moved),
		logging.Int("held_bounds", stats.HeldBounds),
		logging.Int("held_signal", stats.HeldSignal),
		logging.Int("held_collision", stats.HeldCollision),
		logging.Int("light_switches", stats.LightSwitches),
		logging.Duration("duration", stats.Duration),
	)

	for _, fn := range e.tickListeners {
		fn(e.timeStep)
	}
}

// RegisterTickListener adds fn to the post-step notification list. The
// engine invokes listeners synchronously after each completed tick
// with the new time step.
func (e *Engine) RegisterTickListener(fn func(int)) {
	if fn != nil {
		e.tickListeners = append(e.tickListeners, fn)
	}
}

// Snapshot captures the world as value types. The result shares no
// storage with the engine and stays valid indefinitely.
func (e *Engine) Snapshot() Snapshot {
	vehicles := make([]VehicleSnapshot, 0, len(e.vehicles))
	for _, v := range e.vehicles {
		vehicles = append(vehicles, VehicleSnapshot{
			ID:       v.ID,
			Position: v.Position,
			Heading:  v.Heading,
		})
	}

	intersections := make([]IntersectionSnapshot, 0, len(e.intersections))
	for _, sig := range e.intersections {
		ns, ew := sig.State()
		intersections = append(intersections, IntersectionSnapshot{
			Position: sig.Position,
			NS:       ns,
			EW:       ew,
		})
	}
	sort.Slice(intersections, func(a, b int) bool {
		if intersections[a].Position.Y != intersections[b].Position.Y {
			return intersections[a].Position.Y < intersections[b].Position.Y
		}
		return intersections[a].Position.X < intersections[b].Position.X
	})

	return Snapshot{
		TimeStep:      e.timeStep,
		GridSize:      e.cfg.GridSize,
		Vehicles:      vehicles,
		Intersections: intersections,
	}
}

// FindPath exposes shortest-path queries over the engine's road
// network. It never runs as part of Step; callers use it to plan
// routes they then install with AssignRoute.
func (e *Engine) FindPath(start, goal model.Position) []model.Position {
	return e.pathfinder.FindPath(start, goal)
}

// AssignRoute computes a shortest path from the vehicle's current cell
// to dest and installs it as the vehicle's route. The vehicle follows
// the route on subsequent ticks, still subject to every admissibility
// rule. Movement itself never re-routes: a blocked route is retried,
// not recomputed.
func (e *Engine) AssignRoute(vehicleID int, dest model.Position) error {
	v, ok := e.vehiclesByID[vehicleID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrVehicleNotFound, vehicleID)
	}
	path := e.pathfinder.FindPath(v.Position, dest)
	if len(path) == 0 {
		return fmt.Errorf("%w: %s -> %s", ErrNoRoute, v.Position, dest)
	}
	d := dest
	v.Destination = &d
	v.Route = path
	// The path starts at the vehicle's own cell; keep only the waypoints
	// still ahead. Routing a vehicle to the cell it already occupies
	// leaves no route at all.
	v.TrimRoute()
	e.log.Debug(context.Background(), "route assigned",
		logging.Int("vehicle_id", vehicleID),
		logging.String("destination", dest.String()),
		logging.Int("route_cells", len(path)),
	)
	return nil
}

// TimeStep returns the number of completed ticks.
func (e *Engine) TimeStep() int { return e.timeStep }

// RunID identifies this engine instance in logs and stream envelopes.
func (e *Engine) RunID() string { return e.runID }

// GridSize returns the side length of the world.
func (e *Engine) GridSize() int { return e.cfg.GridSize }

// VehicleCount returns the number of vehicles in the world.
func (e *Engine) VehicleCount() int { return len(e.vehicles) }

// IntersectionCount returns the number of signalled cells.
func (e *Engine) IntersectionCount() int { return len(e.intersections) }
