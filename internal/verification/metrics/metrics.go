package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for adapter calls and step outcomes.
type Metrics struct {
	Calls        *prometheus.CounterVec
	CallLatency  *prometheus.HistogramVec
	CacheHits    *prometheus.CounterVec
	BreakerOpens *prometheus.CounterVec
	Verdicts     *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Calls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_adapter_calls_total",
			Help: "Settled adapter calls by adapter and status",
		}, []string{"adapter", "status"}),
		CallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "verity_adapter_call_duration_seconds",
			Help:    "Duration of adapter calls including retries",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"adapter"}),
		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_adapter_cache_hits_total",
			Help: "Adapter calls answered from the result cache",
		}, []string{"kind"}),
		BreakerOpens: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_adapter_circuit_opened_total",
			Help: "Times an adapter circuit breaker opened",
		}, []string{"adapter"}),
		Verdicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_step_verdicts_total",
			Help: "Step verdicts by step",
		}, []string{"step", "verdict"}),
	}
}

func (m *Metrics) ObserveCall(adapter, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.Calls.WithLabelValues(adapter, status).Inc()
	m.CallLatency.WithLabelValues(adapter).Observe(d.Seconds())
}

func (m *Metrics) IncrementCacheHit(kind string) {
	if m != nil {
		m.CacheHits.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) IncrementBreakerOpen(adapter string) {
	if m != nil {
		m.BreakerOpens.WithLabelValues(adapter).Inc()
	}
}

func (m *Metrics) IncrementVerdict(step, verdict string) {
	if m != nil {
		m.Verdicts.WithLabelValues(step, verdict).Inc()
	}
}
