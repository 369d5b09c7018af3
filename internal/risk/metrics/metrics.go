package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for risk scoring.
type Metrics struct {
	Assessments *prometheus.CounterVec
	Scores      prometheus.Histogram
	FraudHits   *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Assessments: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_risk_assessments_total",
			Help: "Risk assessments recorded by trigger and resulting level",
		}, []string{"trigger", "level"}),
		Scores: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "verity_risk_score",
			Help:    "Distribution of aggregate risk scores",
			Buckets: []float64{0.1, 0.25, 0.4, 0.5, 0.6, 0.75, 0.9, 1},
		}),
		FraudHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_risk_fraud_indicators_total",
			Help: "Fraud indicators raised by name",
		}, []string{"indicator"}),
	}
}

// ObserveAssessment records one appended assessment.
func (m *Metrics) ObserveAssessment(trigger, level string, score float64, indicators []string) {
	if m == nil {
		return
	}
	m.Assessments.WithLabelValues(trigger, level).Inc()
	m.Scores.Observe(score)
	for _, ind := range indicators {
		m.FraudHits.WithLabelValues(ind).Inc()
	}
}
