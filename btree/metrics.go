package btree

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus-compatible collectors for tick-engine
// monitoring.
//
// Collectors (all namespaced "btree_"):
//   - ticks_total (counter): completed engine ticks, labelled by the
//     root's resulting status.
//   - tick_duration_ms (histogram): engine tick duration, labelled by
//     tree id.
//   - node_ticks_total (counter): per-node-type tick completions,
//     labelled by node type and status.
//   - running_operations (gauge): currently registered async operations.
//   - snapshots_total (counter): captured execution snapshots.
//
// Wire into an engine with WithMetrics; expose via promhttp on the
// registry passed to NewMetrics.
type Metrics struct {
	ticks      *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	nodeTicks  *prometheus.CounterVec
	runningOps prometheus.Gauge
	snapshots  prometheus.Counter

	enabled bool
}

// NewMetrics creates and registers all collectors with the given registry
// (prometheus.DefaultRegisterer when nil).
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		enabled: true,
		ticks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "btree",
			Name:      "ticks_total",
			Help:      "Completed engine ticks by resulting root status",
		}, []string{"tree_id", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "btree",
			Name:      "tick_duration_ms",
			Help:      "Engine tick duration in milliseconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000, 5000},
		}, []string{"tree_id"}),
		nodeTicks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "btree",
			Name:      "node_ticks_total",
			Help:      "Node tick completions by node type and status",
		}, []string{"node_type", "status"}),
		runningOps: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "btree",
			Name:      "running_operations",
			Help:      "Currently registered asynchronous leaf operations",
		}),
		snapshots: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "btree",
			Name:      "snapshots_total",
			Help:      "Captured execution snapshots",
		}),
	}
}

// RecordTick records one completed engine tick.
func (m *Metrics) RecordTick(treeID string, status Status, d time.Duration) {
	if m == nil || !m.enabled {
		return
	}
	m.ticks.WithLabelValues(treeID, status.String()).Inc()
	m.duration.WithLabelValues(treeID).Observe(float64(d.Microseconds()) / 1000.0)
}

// RecordNodeTick records one node tick completion.
func (m *Metrics) RecordNodeTick(nodeType string, status Status) {
	if m == nil || !m.enabled {
		return
	}
	m.nodeTicks.WithLabelValues(nodeType, status.String()).Inc()
}

// SetRunningOperations updates the async-operation gauge.
func (m *Metrics) SetRunningOperations(n int) {
	if m == nil || !m.enabled {
		return
	}
	m.runningOps.Set(float64(n))
}

// RecordSnapshot counts one captured snapshot.
func (m *Metrics) RecordSnapshot() {
	if m == nil || !m.enabled {
		return
	}
	m.snapshots.Inc()
}

// Disable stops recording (useful in tests); counters keep their values.
func (m *Metrics) Disable() { m.enabled = false }

// Enable resumes recording after Disable.
func (m *Metrics) Enable() { m.enabled = true }
