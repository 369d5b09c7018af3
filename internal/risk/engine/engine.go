// Package engine computes factor scores, the aggregate risk score and its
// confidence band from collected evidence. It is pure: no I/O and no clock.
package engine

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/mssola/useragent"

	"verity/internal/platform/config"
	"verity/internal/risk/fraud"
	"verity/internal/risk/models"
)

// Result is one evaluation, before it is stamped into an assessment record.
type Result struct {
	Factors    map[models.Factor]float64
	Weighted   float64
	Score      float64
	Level      models.Level
	Confidence models.Interval
	Fraud      models.FraudResult
}

// Engine holds the policy-derived scoring parameters.
type Engine struct {
	weights        map[models.Factor]float64
	thresholds     models.Thresholds
	unresolvedRisk float64
	highRisk       []string
	detectors      []fraud.Detector
	aggregator     *fraud.Aggregator
	version        string
}

// New builds an engine from a validated policy.
func New(p config.Policy) *Engine {
	weights := make(map[models.Factor]float64, len(p.Weights))
	for name, w := range p.Weights {
		weights[models.Factor(name)] = w
	}
	return &Engine{
		weights:        weights,
		thresholds:     models.Thresholds{Low: p.Levels.Low, Medium: p.Levels.Medium, High: p.Levels.High},
		unresolvedRisk: p.UnresolvedRisk,
		highRisk:       p.HighRiskCountries,
		detectors:      fraud.DefaultDetectors(p.HighRiskCountries),
		aggregator:     fraud.NewAggregator(p.Fraud.Weights, p.Fraud.CriticalThreshold),
		version:        p.AlgorithmVersion,
	}
}

// AlgorithmVersion is stamped on every record this engine produces.
func (e *Engine) AlgorithmVersion() string { return e.version }

// Evaluate scores the signals. In-process detectors run on every call and are
// aggregated together with any external detector answers in s.ExternalFraud.
func (e *Engine) Evaluate(s models.Signals) Result {
	factors := e.Factors(s)

	fraudSignals := fraud.Run(e.detectors, s)
	for _, sig := range s.ExternalFraud {
		if sig.Unresolved {
			sig.Score = e.unresolvedRisk
		}
		fraudSignals = append(fraudSignals, sig)
	}
	fr := e.aggregator.Aggregate(fraudSignals)

	weighted := e.weightedScore(factors)
	score := weighted
	if fr.Critical {
		score = 1.0
	} else {
		score = math.Max(score, fr.Score)
	}
	score = clamp01(score)

	margin := Margin(len(factors))
	return Result{
		Factors:  factors,
		Weighted: weighted,
		Score:    score,
		Level:    e.thresholds.LevelFor(score),
		Confidence: models.Interval{
			Low:  clamp01(score - margin),
			High: clamp01(score + margin),
		},
		Fraud: fr,
	}
}

// Margin widens as fewer factors have evidence behind them.
func Margin(present int) float64 {
	total := float64(len(models.AllFactors))
	return 0.05 + 0.20*(1-float64(present)/total)
}

// weightedScore renormalizes the weights over present factors only. No
// present factors scores zero.
func (e *Engine) weightedScore(factors map[models.Factor]float64) float64 {
	var sum, total float64
	for f, v := range factors {
		w := e.weights[f]
		sum += w * v
		total += w
	}
	if total == 0 {
		return 0
	}
	return sum / total
}

// Factors computes every factor that has evidence. Absent factors are not in
// the map.
func (e *Engine) Factors(s models.Signals) map[models.Factor]float64 {
	risks := map[models.Factor]func(models.Signals) (float64, bool){
		models.FactorDocument:   e.documentRisk,
		models.FactorIdentity:   e.identityRisk,
		models.FactorBehavioral: behavioralRisk,
		models.FactorGeographic: e.geographicRisk,
		models.FactorFinancial:  financialRisk,
		models.FactorCompliance: complianceRisk,
	}
	out := make(map[models.Factor]float64, len(risks))
	for f, risk := range risks {
		if v, ok := risk(s); ok {
			out[f] = clamp01(v)
		}
	}
	return out
}

func (e *Engine) documentRisk(s models.Signals) (float64, bool) {
	if len(s.Documents) == 0 {
		return 0, false
	}
	var risk float64
	for _, d := range s.Documents {
		var r float64
		switch {
		case d.Unresolved:
			r = e.unresolvedRisk
		case d.Tampered:
			r = 1
		default:
			r = 1 - (0.5*d.ExtractionConfidence + 0.5*d.AuthenticityScore)
			if d.QualityScore < 0.5 {
				r += 0.5 - d.QualityScore
			}
		}
		risk = math.Max(risk, r)
	}
	return risk, true
}

func (e *Engine) identityRisk(s models.Signals) (float64, bool) {
	if len(s.Biometrics) == 0 && len(s.Registry) == 0 {
		return 0, false
	}
	var risk float64
	for _, b := range s.Biometrics {
		switch {
		case b.Unresolved:
			risk = math.Max(risk, e.unresolvedRisk)
		case !b.IsMatch || b.SpoofDetected:
			risk = 1
		default:
			risk = math.Max(risk, 1-math.Min(b.Similarity, b.LivenessScore))
		}
	}
	for _, r := range s.Registry {
		switch {
		case r.Unresolved:
			risk = math.Max(risk, e.unresolvedRisk)
		case !r.IsValid:
			risk = 1
		default:
			risk = math.Max(risk, 1-r.Confidence)
		}
	}
	return risk, true
}

func behavioralRisk(s models.Signals) (float64, bool) {
	if !s.Submitted {
		return 0, false
	}
	risk := 0.1
	if strings.TrimSpace(s.UserAgent) == "" {
		risk = 0.4
	} else {
		ua := useragent.New(s.UserAgent)
		browser, _ := ua.Browser()
		switch {
		case ua.Bot():
			risk = 0.9
		case browser == "":
			risk = 0.4
		}
	}
	risk += 0.1 * float64(s.Resubmissions)
	return math.Min(risk, 1), true
}

func (e *Engine) geographicRisk(s models.Signals) (float64, bool) {
	if s.DeclaredCountry == "" {
		return 0, false
	}
	risk := 0.1
	if slices.Contains(e.highRisk, s.DeclaredCountry) {
		risk = 0.8
	}
	if s.IPCountry != "" && s.IPCountry != s.DeclaredCountry {
		risk += 0.3
	}
	return risk, true
}

// Declared monthly volume bands, upper bounds exclusive.
var volumeBands = []struct {
	below float64
	risk  float64
}{
	{10_000, 0.1},
	{100_000, 0.3},
	{1_000_000, 0.5},
}

func financialRisk(s models.Signals) (float64, bool) {
	var (
		present bool
		risk    = 0.1
	)
	if raw := strings.TrimSpace(s.DeclaredFields["expected_monthly_volume"]); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v >= 0 {
			present = true
			risk = 0.7
			for _, b := range volumeBands {
				if v < b.below {
					risk = b.risk
					break
				}
			}
		}
	}
	for _, d := range s.Documents {
		if d.Type != "bank_statement" {
			continue
		}
		present = true
		if d.Unresolved {
			risk += 0.2
		}
	}
	return risk, present
}

func complianceRisk(s models.Signals) (float64, bool) {
	if len(s.Registry) == 0 {
		return 0, false
	}
	var risk float64
	for _, r := range s.Registry {
		switch {
		case r.Listed:
			return 1, true
		case r.Unresolved:
			risk = 0.5
		}
	}
	return risk, true
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
