package models

import (
	"time"

	id "verity/pkg/domain"
)

// Factor names one normalized risk dimension.
type Factor string

const (
	FactorDocument   Factor = "document"
	FactorIdentity   Factor = "identity"
	FactorBehavioral Factor = "behavioral"
	FactorGeographic Factor = "geographic"
	FactorFinancial  Factor = "financial"
	FactorCompliance Factor = "compliance"
)

// AllFactors in reporting order.
var AllFactors = []Factor{
	FactorDocument,
	FactorIdentity,
	FactorBehavioral,
	FactorGeographic,
	FactorFinancial,
	FactorCompliance,
}

// Level is the discrete risk band.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// IsElevated reports whether the level requires an operator look.
func (l Level) IsElevated() bool {
	return l == LevelHigh || l == LevelCritical
}

// Thresholds are inclusive upper bounds for low, medium and high.
type Thresholds struct {
	Low    float64
	Medium float64
	High   float64
}

// LevelFor bands a score.
func (t Thresholds) LevelFor(score float64) Level {
	switch {
	case score <= t.Low:
		return LevelLow
	case score <= t.Medium:
		return LevelMedium
	case score <= t.High:
		return LevelHigh
	default:
		return LevelCritical
	}
}

// Triggers that are not step names.
const (
	TriggerManual    = "manual"
	TriggerReprocess = "reprocess"
)

// Interval is a closed score range.
type Interval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Assessment is an immutable snapshot. Each run appends a new version.
type Assessment struct {
	ID               id.AssessmentID    `json:"id"`
	ApplicationID    id.ApplicationID   `json:"application_id"`
	Version          int                `json:"version"`
	Factors          map[Factor]float64 `json:"factors"`
	Score            float64            `json:"score"`
	Level            Level              `json:"level"`
	Confidence       Interval           `json:"confidence_interval"`
	FraudScore       float64            `json:"fraud_score"`
	FraudCritical    bool               `json:"fraud_critical"`
	FraudIndicators  []string           `json:"fraud_indicators"`
	AlgorithmVersion string             `json:"algorithm_version"`
	Trigger          string             `json:"trigger"`
	CreatedAt        time.Time          `json:"created_at"`
}
