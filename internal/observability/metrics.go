package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/traffic-simulator/core"
)

// Outcome label values for sim_vehicle_moves_total.
const (
	OutcomeMoved         = "moved"
	OutcomeHeldBounds    = "held_bounds"
	OutcomeHeldSignal    = "held_signal"
	OutcomeHeldCollision = "held_collision"
)

// SimCollector bundles Prometheus metrics for the simulation and its
// HTTP surface. It implements core.MetricsRecorder so the engine can
// drive the per-tick series directly.
type SimCollector struct {
	gatherer prometheus.Gatherer

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec

	Ticks         prometheus.Counter
	StepDuration  prometheus.Histogram
	VehicleMoves  *prometheus.CounterVec
	LightSwitches prometheus.Counter

	TimeStep           prometheus.Gauge
	WorldVehicles      prometheus.Gauge
	WorldIntersections prometheus.Gauge
	WorldRoadCells     prometheus.Gauge
}

// NewSimCollector registers simulation Prometheus metrics against the
// provided registerer, defaulting to the global Prometheus registry
// when nil. Re-registering against the same registry hands back the
// existing collectors instead of failing.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	httpRequests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of handled HTTP requests, labeled by route, method, and status code.",
	}, []string{"route", "method", "code"}), "http_requests_total")
	if err != nil {
		return nil, err
	}

	httpDurations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"route", "method"}), "http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	ticks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_ticks_total",
		Help: "Total number of completed simulation ticks.",
	}), "sim_ticks_total")
	if err != nil {
		return nil, err
	}

	stepDuration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_step_duration_seconds",
		Help:    "Wall-clock duration of one simulation step in seconds.",
		Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	}), "sim_step_duration_seconds")
	if err != nil {
		return nil, err
	}

	vehicleMoves, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_vehicle_moves_total",
		Help: "Per-vehicle tick outcomes, labeled by whether the vehicle moved or why it held position.",
	}, []string{"outcome"}), "sim_vehicle_moves_total")
	if err != nil {
		return nil, err
	}

	lightSwitches, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_light_switches_total",
		Help: "Total number of traffic light axis switches.",
	}), "sim_light_switches_total")
	if err != nil {
		return nil, err
	}

	timeStep, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_time_step",
		Help: "Current simulation time step.",
	}), "sim_time_step")
	if err != nil {
		return nil, err
	}
	vehicles, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_vehicles",
		Help: "Number of vehicles in the world.",
	}), "sim_vehicles")
	if err != nil {
		return nil, err
	}
	intersections, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_intersections",
		Help: "Number of signalled intersections in the world.",
	}), "sim_intersections")
	if err != nil {
		return nil, err
	}
	roadCells, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_road_cells",
		Help: "Number of traversable road cells in the world.",
	}), "sim_road_cells")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:           gatherer,
		HTTPRequests:       httpRequests,
		HTTPDurations:      httpDurations,
		Ticks:              ticks,
		StepDuration:       stepDuration,
		VehicleMoves:       vehicleMoves,
		LightSwitches:      lightSwitches,
		TimeStep:           timeStep,
		WorldVehicles:      vehicles,
		WorldIntersections: intersections,
		WorldRoadCells:     roadCells,
	}, nil
}

// RecordStep satisfies core.MetricsRecorder: the engine calls it once
// per completed tick with the outcome counts.
func (c *SimCollector) RecordStep(stats core.StepStats) {
	if c == nil {
		return
	}
	if c.Ticks != nil {
		c.Ticks.Inc()
	}
	if c.StepDuration != nil {
		c.StepDuration.Observe(stats.Duration.Seconds())
	}
	if c.VehicleMoves != nil {
		c.VehicleMoves.WithLabelValues(OutcomeMoved).Add(float64(stats.Moved))
		c.VehicleMoves.WithLabelValues(OutcomeHeldBounds).Add(float64(stats.HeldBounds))
		c.VehicleMoves.WithLabelValues(OutcomeHeldSignal).Add(float64(stats.HeldSignal))
		c.VehicleMoves.WithLabelValues(OutcomeHeldCollision).Add(float64(stats.HeldCollision))
	}
	if c.LightSwitches != nil {
		c.LightSwitches.Add(float64(stats.LightSwitches))
	}
	if c.TimeStep != nil {
		c.TimeStep.Set(float64(stats.Tick))
	}
}

// SetWorldCounts satisfies core.MetricsRecorder for the world-size
// gauges set at construction time.
func (c *SimCollector) SetWorldCounts(vehicles, intersections, roadCells int) {
	if c == nil {
		return
	}
	if c.WorldVehicles != nil {
		c.WorldVehicles.Set(float64(vehicles))
	}
	if c.WorldIntersections != nil {
		c.WorldIntersections.Set(float64(intersections))
	}
	if c.WorldRoadCells != nil {
		c.WorldRoadCells.Set(float64(roadCells))
	}
}

// InstrumentHandler wraps an HTTP handler with request count and
// latency instrumentation under the given route label.
func (c *SimCollector) InstrumentHandler(route string, next http.Handler) http.Handler {
	if c == nil || c.HTTPRequests == nil || c.HTTPDurations == nil {
		return next
	}
	labels := prometheus.Labels{"route": route}
	return promhttp.InstrumentHandlerCounter(
		c.HTTPRequests.MustCurryWith(labels),
		promhttp.InstrumentHandlerDuration(c.HTTPDurations.MustCurryWith(labels), next),
	)
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
