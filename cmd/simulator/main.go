package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/signalsfoundry/traffic-simulator/core"
	"github.com/signalsfoundry/traffic-simulator/internal/logging"
	"github.com/signalsfoundry/traffic-simulator/timectrl"
)

func main() {
	gridSize := flag.Int("grid-size", 10, "side length of the square grid")
	vehicles := flag.Int("vehicles", 8, "number of vehicles to place")
	cycleLength := flag.Int("cycle-length", 5, "ticks between signal phase flips")
	seed := flag.Int64("seed", 42, "seed for deterministic vehicle placement")
	steps := flag.Int("steps", 20, "number of ticks to run")
	delay := flag.Duration("delay", 200*time.Millisecond, "wall-clock delay between ticks (0 runs flat out)")
	render := flag.String("render", "grid", "per-tick output: grid, json, or none")
	scenarioPath := flag.String("scenario", "", "path to a scenario JSON file (overrides the world flags)")
	flag.Parse()

	log := logging.NewFromEnv()

	eng, err := buildEngine(*scenarioPath, core.Config{
		GridSize:     *gridSize,
		VehicleCount: *vehicles,
		CycleLength:  *cycleLength,
		Seed:         *seed,
	}, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	emit, err := newRenderer(*render, os.Stdout, *delay > 0)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Show the world before the first tick, then after every tick.
	emit(eng.Snapshot())

	mode := timectrl.Accelerated
	if *delay > 0 {
		mode = timectrl.RealTime
	}
	tc := timectrl.NewTickController(*delay, mode)
	tc.AddListener(func(int) {
		eng.Step()
		emit(eng.Snapshot())
	})

	done := tc.Run(ctx, *steps)
	<-done

	fmt.Printf("simulation complete: %d ticks, %d vehicles, %d intersections\n",
		eng.TimeStep(), eng.VehicleCount(), eng.IntersectionCount())
}

// buildEngine constructs the world from a scenario file when one is
// given, otherwise from the flags.
func buildEngine(scenarioPath string, cfg core.Config, log logging.Logger) (*core.Engine, error) {
	if scenarioPath != "" {
		f, err := os.Open(scenarioPath)
		if err != nil {
			return nil, fmt.Errorf("open scenario %q: %w", scenarioPath, err)
		}
		defer f.Close()

		eng, summary, err := core.LoadScenario(f, core.WithLogger(log))
		if err != nil {
			return nil, fmt.Errorf("load scenario %q: %w", scenarioPath, err)
		}
		fmt.Printf("loaded scenario: %d vehicles, %d intersections, %d road cells, %d routed\n",
			summary.Vehicles, summary.Intersections, summary.RoadCells, summary.Routed)
		return eng, nil
	}

	return core.NewEngine(cfg, core.WithLogger(log))
}
