package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks workflow step transitions.
type Metrics struct {
	StepTransitions *prometheus.CounterVec
	Stalls          *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		StepTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_workflow_step_transitions_total",
			Help: "Workflow step transitions by step and resulting status",
		}, []string{"step", "status"}),
		Stalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_workflow_stalls_total",
			Help: "Workflows stalled on a failed step",
		}, []string{"step"}),
	}
}

// ObserveTransition records a step reaching status. Safe on a nil receiver.
func (m *Metrics) ObserveTransition(step, status string) {
	if m == nil {
		return
	}
	m.StepTransitions.WithLabelValues(step, status).Inc()
}

// IncrementStall records a workflow stalling on step.
func (m *Metrics) IncrementStall(step string) {
	if m == nil {
		return
	}
	m.Stalls.WithLabelValues(step).Inc()
}
