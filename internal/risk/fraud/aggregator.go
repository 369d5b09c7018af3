// Package fraud combines independent fraud-pattern detectors into one score.
package fraud

import (
	"verity/internal/risk/models"
	vstrings "verity/pkg/platform/strings"
)

// DefaultWeight applies to detectors missing from the weight table.
const DefaultWeight = 0.1

// Aggregator computes a weighted ensemble mean, except that any single score
// at or above the critical threshold dominates: the result is then 1.0 and
// marked critical regardless of the other detectors.
type Aggregator struct {
	weights  map[string]float64
	critical float64
}

func NewAggregator(weights map[string]float64, criticalThreshold float64) *Aggregator {
	return &Aggregator{weights: weights, critical: criticalThreshold}
}

func (a *Aggregator) weight(detector string) float64 {
	if w, ok := a.weights[detector]; ok {
		return w
	}
	return DefaultWeight
}

// Aggregate folds signals into one result. No signals means zero fraud risk
// with no indicators. An unresolved signal never marks the result critical,
// but the score does not drop below it.
func (a *Aggregator) Aggregate(signals []models.FraudSignal) models.FraudResult {
	res := models.FraudResult{Signals: signals, Indicators: []string{}}
	if len(signals) == 0 {
		return res
	}

	var (
		weighted, total float64
		floor           float64
		indicators      []string
	)
	for _, s := range signals {
		score := clamp01(s.Score)
		switch {
		case s.Unresolved:
			floor = max(floor, score)
		case score >= a.critical:
			res.Critical = true
		}
		w := a.weight(s.Detector)
		weighted += w * score
		total += w
		indicators = append(indicators, s.Indicators...)
	}
	res.Indicators = vstrings.NormalizeIndicators(indicators)
	if res.Indicators == nil {
		res.Indicators = []string{}
	}

	switch {
	case res.Critical:
		res.Score = 1.0
	case total > 0:
		res.Score = max(weighted/total, floor)
	}
	return res
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
