package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Transition outcomes recorded on univend_transition_total.
const (
	OutcomeCommitted = "committed"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// TransitionMetrics tracks atomic units run by the transition runner.
type TransitionMetrics struct {
	total     *prometheus.CounterVec
	conflicts *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

func NewTransitionMetrics(reg prometheus.Registerer) *TransitionMetrics {
	if reg == nil {
		return &TransitionMetrics{}
	}
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "univend_transition_total",
		Help: "Atomic transitions by name and outcome.",
	}, []string{"transition", "outcome"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "univend_transition_conflicts_total",
		Help: "Write conflicts that forced an atomic transition to re-run.",
	}, []string{"transition"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "univend_transition_duration_seconds",
		Help:    "Wall time of atomic transitions including conflict retries.",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"transition"})
	reg.MustRegister(total, conflicts, duration)
	return &TransitionMetrics{total: total, conflicts: conflicts, duration: duration}
}

func (m *TransitionMetrics) Observe(transition, outcome string, elapsed time.Duration) {
	if m == nil || m.total == nil {
		return
	}
	name := normalizeLabel(transition)
	m.total.WithLabelValues(name, outcome).Inc()
	m.duration.WithLabelValues(name).Observe(elapsed.Seconds())
}

func (m *TransitionMetrics) IncConflict(transition string) {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.WithLabelValues(normalizeLabel(transition)).Inc()
}
