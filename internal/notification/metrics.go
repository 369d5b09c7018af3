package notification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts what happened to each published event.
type Metrics struct {
	Delivered    *prometheus.CounterVec
	Dropped      *prometheus.CounterVec
	Failures     *prometheus.CounterVec
	BreakerState prometheus.Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		Delivered: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_notifications_delivered_total",
			Help: "Lifecycle events delivered to the sink",
		}, []string{"type"}),
		Dropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_notifications_dropped_total",
			Help: "Lifecycle events dropped before delivery",
		}, []string{"reason"}),
		Failures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_notification_failures_total",
			Help: "Sink delivery failures",
		}, []string{"type"}),
		BreakerState: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "verity_notification_breaker_state",
			Help: "Sink circuit breaker state (0=closed, 1=open)",
		}),
	}
}

func (m *Metrics) incDelivered(t EventType) {
	if m == nil {
		return
	}
	m.Delivered.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) incDropped(reason string) {
	if m == nil {
		return
	}
	m.Dropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) incFailure(t EventType) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) setBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerState.Set(1)
	} else {
		m.BreakerState.Set(0)
	}
}
