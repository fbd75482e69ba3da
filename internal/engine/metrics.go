package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/ergo/internal/ir"
)

// Run results recorded by Metrics.
const (
	resultOK      = "ok"
	resultInvalid = "invalid"
	resultFailed  = "failed"
)

// Metrics records run counts, node evaluations and action outcomes.
type Metrics struct {
	runs     *prometheus.CounterVec
	nodes    *prometheus.CounterVec
	actions  *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics creates the engine collectors and registers them with reg.
// Panics if a collector is already registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ergo_runs_total",
				Help: "Total number of graph runs by result",
			},
			[]string{"result"},
		),
		nodes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ergo_node_evaluations_total",
				Help: "Total number of node evaluations by primitive kind",
			},
			[]string{"kind"},
		),
		actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ergo_action_outcomes_total",
				Help: "Total number of action outcomes",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ergo_run_duration_seconds",
				Help:    "Duration of graph runs",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
	reg.MustRegister(m.runs, m.nodes, m.actions, m.duration)
	return m
}

// observeRun records one run. A nil *Metrics records nothing.
func (m *Metrics) observeRun(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(result).Inc()
	m.duration.Observe(d.Seconds())
}

func (m *Metrics) observeNode(kind ir.PrimitiveKind) {
	if m == nil {
		return
	}
	m.nodes.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) observeAction(outcome ir.ActionOutcome) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(string(outcome)).Inc()
}
