package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for application lifecycle operations.
type Metrics struct {
	Transitions     *prometheus.CounterVec
	IncompleteItems *prometheus.CounterVec
	DriveDuration   *prometheus.HistogramVec
	Decisions       *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_application_transitions_total",
			Help: "Application lifecycle transitions by target status",
		}, []string{"status"}),
		IncompleteItems: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_application_incomplete_items_total",
			Help: "Missing items reported on rejected submissions",
		}, []string{"item"}),
		DriveDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "verity_application_drive_duration_seconds",
			Help:    "Time spent driving the workflow synchronously",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"result"}),
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_application_review_decisions_total",
			Help: "Operator review decisions",
		}, []string{"decision"}),
	}
}

func (m *Metrics) IncrementTransition(status string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementIncomplete(items []string) {
	if m == nil {
		return
	}
	for _, item := range items {
		m.IncompleteItems.WithLabelValues(item).Inc()
	}
}

func (m *Metrics) ObserveDrive(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.DriveDuration.WithLabelValues(result).Observe(d.Seconds())
}

func (m *Metrics) IncrementDecision(decision string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(decision).Inc()
}
