package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StreamCollector exposes metrics for the live snapshot stream.
type StreamCollector struct {
	gatherer prometheus.Gatherer

	ClientsConnected   prometheus.Gauge
	SnapshotsBroadcast prometheus.Counter
	SendFailures       prometheus.Counter
	BroadcastDuration  prometheus.Histogram
}

// NewStreamCollector registers stream metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewStreamCollector(reg prometheus.Registerer) (*StreamCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	clients, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stream_clients_connected",
		Help: "Number of websocket clients currently subscribed to the snapshot stream.",
	}), "stream_clients_connected")
	if err != nil {
		return nil, err
	}

	snapshots, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stream_snapshots_broadcast_total",
		Help: "Cumulative number of snapshots broadcast to stream subscribers.",
	}), "stream_snapshots_broadcast_total")
	if err != nil {
		return nil, err
	}

	failures, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stream_send_failures_total",
		Help: "Cumulative number of subscriber sends that failed and dropped the client.",
	}), "stream_send_failures_total")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "stream_broadcast_duration_seconds",
		Help:    "Duration of one snapshot broadcast across all subscribers.",
		Buckets: []float64{0.00001, 0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	}), "stream_broadcast_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &StreamCollector{
		gatherer:           gatherer,
		ClientsConnected:   clients,
		SnapshotsBroadcast: snapshots,
		SendFailures:       failures,
		BroadcastDuration:  duration,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *StreamCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// SetConnectedClients updates the subscriber gauge.
func (c *StreamCollector) SetConnectedClients(count int) {
	if c == nil || c.ClientsConnected == nil {
		return
	}
	c.ClientsConnected.Set(float64(count))
}

// ObserveBroadcast records one completed broadcast.
func (c *StreamCollector) ObserveBroadcast(d time.Duration) {
	if c == nil {
		return
	}
	if c.SnapshotsBroadcast != nil {
		c.SnapshotsBroadcast.Inc()
	}
	if c.BroadcastDuration != nil {
		c.BroadcastDuration.Observe(d.Seconds())
	}
}

// IncSendFailures counts a subscriber that was dropped because its
// send failed or timed out.
func (c *StreamCollector) IncSendFailures() {
	if c == nil || c.SendFailures == nil {
		return
	}
	c.SendFailures.Inc()
}
