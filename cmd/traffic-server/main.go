package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/traffic-simulator/core"
	"github.com/signalsfoundry/traffic-simulator/internal/logging"
	"github.com/signalsfoundry/traffic-simulator/internal/observability"
	"github.com/signalsfoundry/traffic-simulator/internal/viewer"
	"github.com/signalsfoundry/traffic-simulator/timectrl"
)

const tracerName = "github.com/signalsfoundry/traffic-simulator/cmd/traffic-server"

// Config carries everything the server needs, resolved from flags in
// main. Tests construct it directly and call run.
type Config struct {
	ListenAddress  string
	MetricsAddress string
	LogLevel       string
	LogFormat      string

	ScenarioPath string
	GridSize     int
	Vehicles     int
	CycleLength  int
	Seed         int64

	TickInterval time.Duration
	Accelerated  bool
	Ticks        int
}

func main() {
	var cfg Config
	flag.StringVar(&cfg.ListenAddress, "listen-addr", ":8080", "TCP address for the state API and websocket stream")
	flag.StringVar(&cfg.MetricsAddress, "metrics-addr", ":9090", "HTTP address for Prometheus /metrics (empty disables it)")
	flag.StringVar(&cfg.LogLevel, "log-level", envOr("LOG_LEVEL", "info"), "log level: debug, info, warn, error")
	flag.StringVar(&cfg.LogFormat, "log-format", envOr("LOG_FORMAT", "json"), "log format: json or text")
	flag.StringVar(&cfg.ScenarioPath, "scenario", "", "path to a scenario JSON file (overrides the world flags)")
	flag.IntVar(&cfg.GridSize, "grid-size", 10, "side length of the square grid")
	flag.IntVar(&cfg.Vehicles, "vehicles", 8, "number of vehicles to place")
	flag.IntVar(&cfg.CycleLength, "cycle-length", 5, "ticks between signal phase flips")
	flag.Int64Var(&cfg.Seed, "seed", 42, "seed for deterministic vehicle placement")
	flag.DurationVar(&cfg.TickInterval, "tick", 500*time.Millisecond, "wall-clock interval between simulation ticks")
	flag.BoolVar(&cfg.Accelerated, "accelerated", false, "tick as fast as possible instead of pacing by -tick")
	flag.IntVar(&cfg.Ticks, "ticks", 0, "stop stepping after this many ticks (0 = run until shutdown)")
	flag.Parse()

	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	lis, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		log.Error(context.Background(), "failed to listen", logging.String("addr", cfg.ListenAddress), logging.Err(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, log, lis); err != nil {
		log.Error(context.Background(), "server exited", logging.Err(err))
		os.Exit(1)
	}
}

// run wires the engine, the simulation loop, and the HTTP surface, then
// serves until ctx is cancelled. The listener is passed in so tests can
// use an ephemeral port.
func run(ctx context.Context, cfg Config, log logging.Logger, lis net.Listener) error {
	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewSimCollector(nil)
	if err != nil {
		return fmt.Errorf("init metrics collector: %w", err)
	}
	streamMetrics, err := observability.NewStreamCollector(nil)
	if err != nil {
		return fmt.Errorf("init stream metrics: %w", err)
	}

	eng, err := buildEngine(cfg, log, collector)
	if err != nil {
		return err
	}

	view := viewer.NewServer(eng.RunID(), log, streamMetrics)
	defer view.Close()

	mux := http.NewServeMux()
	mux.Handle("/state", collector.InstrumentHandler("/state", http.HandlerFunc(view.HandleState)))
	mux.Handle("/ws", collector.InstrumentHandler("/ws", http.HandlerFunc(view.HandleWS)))

	srv := &http.Server{Handler: otelhttp.NewHandler(mux, "viewer")}
	metricsSrv := serveMetrics(cfg.MetricsAddress, collector, log)

	log.Info(ctx, "starting state server",
		logging.String("addr", lis.Addr().String()),
		logging.String("run_id", eng.RunID()))
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(lis)
	}()

	// Clients connecting before the first tick see the initial world.
	view.Publish(eng.Snapshot())

	mode := timectrl.RealTime
	if cfg.Accelerated {
		mode = timectrl.Accelerated
	}
	tc := timectrl.NewTickController(cfg.TickInterval, mode)

	loopCtx, cancelLoop := context.WithCancel(ctx)
	defer cancelLoop()
	loopDone := runSimLoop(loopCtx, tc, eng, view, cfg.Ticks, log)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("state server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	cancelLoop()
	<-loopDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return nil
}

// runSimLoop steps the engine and publishes a snapshot on every tick of
// the controller. Everything that touches the engine happens on the
// controller's goroutine.
func runSimLoop(ctx context.Context, tc *timectrl.TickController, eng *core.Engine, view *viewer.Server, ticks int, log logging.Logger) <-chan struct{} {
	tracer := otel.Tracer(tracerName)

	tc.AddListener(func(tick int) {
		_, span := tracer.Start(ctx, "engine.step", trace.WithAttributes(
			attribute.Int("tick", tick),
			attribute.String("run_id", eng.RunID()),
		))
		eng.Step()
		view.Publish(eng.Snapshot())
		span.End()
	})

	log.Info(ctx, "simulation loop started",
		logging.Int("ticks", ticks),
		logging.Duration("interval", tc.Interval),
		logging.String("mode", tc.Mode.String()))
	return tc.Run(ctx, ticks)
}

// buildEngine constructs the world either from a scenario file or from
// the procedural flags.
func buildEngine(cfg Config, log logging.Logger, collector *observability.SimCollector) (*core.Engine, error) {
	opts := []core.Option{core.WithLogger(log)}
	if collector != nil {
		opts = append(opts, core.WithMetricsRecorder(collector))
	}

	if cfg.ScenarioPath != "" {
		f, err := os.Open(cfg.ScenarioPath)
		if err != nil {
			return nil, fmt.Errorf("open scenario %q: %w", cfg.ScenarioPath, err)
		}
		defer f.Close()

		eng, summary, err := core.LoadScenario(f, opts...)
		if err != nil {
			return nil, fmt.Errorf("load scenario %q: %w", cfg.ScenarioPath, err)
		}
		log.Info(context.Background(), "scenario loaded",
			logging.String("path", cfg.ScenarioPath),
			logging.Int("vehicles", summary.Vehicles),
			logging.Int("intersections", summary.Intersections),
			logging.Int("road_cells", summary.RoadCells),
			logging.Int("routed", summary.Routed))
		return eng, nil
	}

	return core.NewEngine(core.Config{
		GridSize:     cfg.GridSize,
		VehicleCount: cfg.Vehicles,
		CycleLength:  cfg.CycleLength,
		Seed:         cfg.Seed,
	}, opts...)
}

func serveMetrics(addr string, collector *observability.SimCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
