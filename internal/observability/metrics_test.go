package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"github.com/signalsfoundry/traffic-simulator/core"
)

func TestRecordStepCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}

	collector.RecordStep(core.StepStats{
		Tick:          1,
		Moved:         3,
		HeldBounds:    1,
		HeldSignal:    2,
		HeldCollision: 1,
		LightSwitches: 4,
		Duration:      time.Millisecond,
	})
	collector.RecordStep(core.StepStats{
		Tick:     2,
		Moved:    7,
		Duration: time.Millisecond,
	})

	if got := testutil.ToFloat64(collector.Ticks); got != 2 {
		t.Fatalf("sim_ticks_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.VehicleMoves.WithLabelValues(OutcomeMoved)); got != 10 {
		t.Fatalf("sim_vehicle_moves_total{outcome=moved} = %v, want 10", got)
	}
	if got := testutil.ToFloat64(collector.VehicleMoves.WithLabelValues(OutcomeHeldSignal)); got != 2 {
		t.Fatalf("sim_vehicle_moves_total{outcome=held_signal} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.LightSwitches); got != 4 {
		t.Fatalf("sim_light_switches_total = %v, want 4", got)
	}
	if got := testutil.ToFloat64(collector.TimeStep); got != 2 {
		t.Fatalf("sim_time_step = %v, want 2", got)
	}

	if count := histogramSampleCount(t, reg, "sim_step_duration_seconds", nil); count != 2 {
		t.Fatalf("sim_step_duration_seconds sample_count = %d, want 2", count)
	}
}

func TestInstrumentHandlerRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}

	handler := collector.InstrumentHandler("/state", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("/state", "get", "200")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "http_request_duration_seconds", map[string]string{
		"route":  "/state",
		"method": "get",
	}); count != 1 {
		t.Fatalf("http_request_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestMetricsHandlerExposesWorldGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}
	collector.SetWorldCounts(4, 16, 100)
	collector.RecordStep(core.StepStats{Tick: 1, Moved: 4, Duration: time.Microsecond})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"sim_ticks_total",
		"sim_step_duration_seconds",
		"sim_vehicle_moves_total",
		"sim_light_switches_total",
		"sim_time_step",
		"sim_vehicles",
		"sim_intersections",
		"sim_road_cells",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
}

func TestNewSimCollectorTolerantOfReRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector (first): %v", err)
	}
	second, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector (second): %v", err)
	}

	// Both handles must feed the same underlying series.
	first.Ticks.Inc()
	second.Ticks.Inc()
	if got := testutil.ToFloat64(first.Ticks); got != 2 {
		t.Fatalf("sim_ticks_total across re-registered collectors = %v, want 2", got)
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
