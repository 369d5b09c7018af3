package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Step names as they appear in the policy file.
const (
	StepDocumentUpload       = "document_upload"
	StepDocumentVerification = "document_verification"
	StepIdentityVerification = "identity_verification"
	StepRegistryVerification = "registry_verification"
	StepRiskAssessment       = "risk_assessment"
	StepManualReview         = "manual_review"
)

// StepOrder is the fixed workflow order.
var StepOrder = []string{
	StepDocumentUpload,
	StepDocumentVerification,
	StepIdentityVerification,
	StepRegistryVerification,
	StepRiskAssessment,
	StepManualReview,
}

// Factor names as they appear in the policy file.
var FactorNames = []string{"document", "identity", "behavioral", "geographic", "financial", "compliance"}

// Policy carries every tunable of scoring and workflow behavior. It is loaded
// once at startup and treated as immutable afterwards.
type Policy struct {
	AlgorithmVersion  string                `yaml:"algorithm_version"`
	UnresolvedRisk    float64               `yaml:"unresolved_risk"`
	Weights           map[string]float64    `yaml:"weights"`
	Levels            LevelThresholds       `yaml:"levels"`
	HighRiskCountries []string              `yaml:"high_risk_countries"`
	CacheTTL          CacheTTL              `yaml:"cache_ttl"`
	Fraud             FraudPolicy           `yaml:"fraud"`
	Steps             map[string]StepPolicy `yaml:"steps"`
}

// LevelThresholds are inclusive upper bounds; anything above High is critical.
type LevelThresholds struct {
	Low    float64 `yaml:"low"`
	Medium float64 `yaml:"medium"`
	High   float64 `yaml:"high"`
}

// CacheTTL per adapter kind. Zero disables caching for that kind.
type CacheTTL struct {
	Document  time.Duration `yaml:"document"`
	Biometric time.Duration `yaml:"biometric"`
	Registry  time.Duration `yaml:"registry"`
	Fraud     time.Duration `yaml:"fraud"`
}

// FraudPolicy configures the detector ensemble.
type FraudPolicy struct {
	CriticalThreshold float64            `yaml:"critical_threshold"`
	Weights           map[string]float64 `yaml:"weights"`
}

// StepPolicy holds the per-step template and completion criteria.
type StepPolicy struct {
	EstimatedDuration time.Duration      `yaml:"estimated_duration"`
	RequiredActions   []string           `yaml:"required_actions"`
	RequireResolved   bool               `yaml:"require_resolved"`
	MinConfidence     map[string]float64 `yaml:"min_confidence"`
}

// DefaultPolicy returns the built-in policy used when no file is configured.
func DefaultPolicy() Policy {
	return Policy{
		AlgorithmVersion: "verity-risk/1.0",
		UnresolvedRisk:   0.6,
		Weights: map[string]float64{
			"document":   0.25,
			"identity":   0.20,
			"behavioral": 0.15,
			"geographic": 0.10,
			"financial":  0.15,
			"compliance": 0.15,
		},
		Levels:            LevelThresholds{Low: 0.25, Medium: 0.50, High: 0.75},
		HighRiskCountries: []string{"IR", "KP", "SY", "MM"},
		CacheTTL: CacheTTL{
			Document: 24 * time.Hour,
			Registry: 7 * 24 * time.Hour,
			Fraud:    time.Hour,
		},
		Fraud: FraudPolicy{
			CriticalThreshold: 0.9,
			Weights: map[string]float64{
				"synthetic-identity":       0.20,
				"behavioral-anomaly":       0.15,
				"document-tamper":          0.20,
				"biometric-spoof":          0.20,
				"geographic-anomaly":       0.10,
				"historical-pattern-match": 0.15,
			},
		},
		Steps: map[string]StepPolicy{
			StepDocumentUpload: {
				EstimatedDuration: 10 * time.Minute,
				RequiredActions:   []string{"upload_required_documents"},
			},
			StepDocumentVerification: {
				EstimatedDuration: 2 * time.Minute,
				RequiredActions:   []string{"extract_document_fields", "check_authenticity"},
				MinConfidence:     map[string]float64{"extraction": 0.6, "authenticity": 0.6},
			},
			StepIdentityVerification: {
				EstimatedDuration: time.Minute,
				RequiredActions:   []string{"match_selfie_to_document", "check_liveness"},
				MinConfidence:     map[string]float64{"similarity": 0.8, "liveness": 0.7},
			},
			StepRegistryVerification: {
				EstimatedDuration: 5 * time.Minute,
				RequiredActions:   []string{"verify_identifiers_with_registry"},
				MinConfidence:     map[string]float64{"registry": 0.5},
			},
			StepRiskAssessment: {
				EstimatedDuration: time.Minute,
				RequiredActions:   []string{"score_fraud_signals", "compute_risk"},
			},
			StepManualReview: {
				EstimatedDuration: 24 * time.Hour,
				RequiredActions:   []string{"operator_decision"},
			},
		},
	}
}

// LoadPolicy reads a YAML policy file. Fields omitted from the file keep their
// default values. An empty path returns the defaults.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy file: %w", err)
	}
	return ParsePolicy(raw)
}

// ParsePolicy decodes YAML over the defaults and validates the result.
func ParsePolicy(raw []byte) (Policy, error) {
	p := DefaultPolicy()
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Policy{}, fmt.Errorf("decode policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

const weightTolerance = 1e-6

// Validate checks weights sum to 1, thresholds are ordered and every step is configured.
func (p Policy) Validate() error {
	var errs []error
	if p.AlgorithmVersion == "" {
		errs = append(errs, errors.New("algorithm_version is required"))
	}
	if p.UnresolvedRisk < 0 || p.UnresolvedRisk > 1 {
		errs = append(errs, fmt.Errorf("unresolved_risk %v outside [0,1]", p.UnresolvedRisk))
	}

	var sum float64
	for _, name := range FactorNames {
		w, ok := p.Weights[name]
		if !ok {
			errs = append(errs, fmt.Errorf("weight for factor %q is missing", name))
			continue
		}
		if w < 0 {
			errs = append(errs, fmt.Errorf("weight for factor %q is negative", name))
		}
		sum += w
	}
	for name := range p.Weights {
		if !isFactor(name) {
			errs = append(errs, fmt.Errorf("unknown factor %q", name))
		}
	}
	if math.Abs(sum-1) > weightTolerance {
		errs = append(errs, fmt.Errorf("factor weights sum to %v, want 1", sum))
	}

	l := p.Levels
	if !(0 < l.Low && l.Low < l.Medium && l.Medium < l.High && l.High < 1) {
		errs = append(errs, fmt.Errorf("level thresholds must satisfy 0 < low < medium < high < 1, got %v/%v/%v", l.Low, l.Medium, l.High))
	}

	if p.Fraud.CriticalThreshold <= 0 || p.Fraud.CriticalThreshold > 1 {
		errs = append(errs, fmt.Errorf("fraud.critical_threshold %v outside (0,1]", p.Fraud.CriticalThreshold))
	}
	for name, w := range p.Fraud.Weights {
		if w < 0 {
			errs = append(errs, fmt.Errorf("fraud weight for %q is negative", name))
		}
	}

	for _, step := range StepOrder {
		sp, ok := p.Steps[step]
		if !ok {
			errs = append(errs, fmt.Errorf("step %q is not configured", step))
			continue
		}
		for signal, min := range sp.MinConfidence {
			if min < 0 || min > 1 {
				errs = append(errs, fmt.Errorf("step %q min_confidence.%s %v outside [0,1]", step, signal, min))
			}
		}
	}
	for step := range p.Steps {
		if !isStep(step) {
			errs = append(errs, fmt.Errorf("unknown step %q", step))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid policy: %w", errors.Join(errs...))
	}
	return nil
}

func isFactor(name string) bool {
	for _, f := range FactorNames {
		if f == name {
			return true
		}
	}
	return false
}

func isStep(name string) bool {
	for _, s := range StepOrder {
		if s == name {
			return true
		}
	}
	return false
}
