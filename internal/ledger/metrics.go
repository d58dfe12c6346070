package ledger

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Invocation outcomes used as metric labels.
const (
	OutcomeCommitted = "committed"
	OutcomeReadOnly  = "read_only"
	OutcomeRejected  = "rejected"
	OutcomeConflict  = "conflict"
	OutcomeError     = "error"
)

// Metrics tracks invocation outcomes, conflicts and latency.
type Metrics struct {
	Invocations *prometheus.CounterVec
	Conflicts   *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
}

// NewMetrics registers ledger metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Invocations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "propreg_ledger_invocations_total",
			Help: "Ledger invocations by function and outcome",
		}, []string{"function", "outcome"}),
		Conflicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "propreg_ledger_conflicts_total",
			Help: "Commits rejected because a read version moved",
		}, []string{"function"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "propreg_ledger_invocation_duration_seconds",
			Help:    "Wall time of an invocation including retries",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"function"}),
	}
}

func (m *Metrics) observe(fn, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Invocations.WithLabelValues(fn, outcome).Inc()
	m.Duration.WithLabelValues(fn).Observe(time.Since(start).Seconds())
}

func (m *Metrics) incConflict(fn string) {
	if m == nil {
		return
	}
	m.Conflicts.WithLabelValues(fn).Inc()
}
