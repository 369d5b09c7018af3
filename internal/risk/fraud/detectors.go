package fraud

import (
	"slices"
	"strings"

	"verity/internal/risk/models"
)

// Detector is a deterministic in-process pattern check. ok is false when the
// detector has nothing to look at; such detectors do not dilute the ensemble.
type Detector interface {
	Name() string
	Detect(s models.Signals) (sig models.FraudSignal, ok bool)
}

// DefaultDetectors returns the in-process detector set.
func DefaultDetectors(highRiskCountries []string) []Detector {
	return []Detector{
		DocumentTamper{},
		BiometricSpoof{},
		SyntheticIdentity{},
		GeographicAnomaly{HighRiskCountries: highRiskCountries},
	}
}

// Run evaluates every applicable detector.
func Run(detectors []Detector, s models.Signals) []models.FraudSignal {
	out := make([]models.FraudSignal, 0, len(detectors))
	for _, d := range detectors {
		if sig, ok := d.Detect(s); ok {
			sig.Detector = d.Name()
			out = append(out, sig)
		}
	}
	return out
}

// DocumentTamper treats a confirmed forgery as critical.
type DocumentTamper struct{}

func (DocumentTamper) Name() string { return "document-tamper" }

func (DocumentTamper) Detect(s models.Signals) (models.FraudSignal, bool) {
	var sig models.FraudSignal
	seen := false
	for _, d := range s.Documents {
		if d.Unresolved {
			continue
		}
		seen = true
		switch {
		case d.Tampered:
			sig.Score = max(sig.Score, 0.95)
			sig.Indicators = append(sig.Indicators, "document_tampered")
		case d.AuthenticityScore < 0.5:
			sig.Score = max(sig.Score, 0.6)
			sig.Indicators = append(sig.Indicators, "low_document_authenticity")
		default:
			sig.Score = max(sig.Score, (1-d.AuthenticityScore)*0.3)
		}
	}
	return sig, seen
}

// BiometricSpoof treats a detected presentation attack as critical.
type BiometricSpoof struct{}

func (BiometricSpoof) Name() string { return "biometric-spoof" }

func (BiometricSpoof) Detect(s models.Signals) (models.FraudSignal, bool) {
	var sig models.FraudSignal
	seen := false
	for _, b := range s.Biometrics {
		if b.Unresolved {
			continue
		}
		seen = true
		switch {
		case b.SpoofDetected:
			sig.Score = 1.0
			sig.Indicators = append(sig.Indicators, "biometric_spoof")
		case b.LivenessScore < 0.5:
			sig.Score = max(sig.Score, 0.7)
			sig.Indicators = append(sig.Indicators, "low_liveness")
		default:
			sig.Score = max(sig.Score, (1-b.LivenessScore)*0.3)
		}
	}
	return sig, seen
}

// SyntheticIdentity looks for documents that look genuine but describe nobody
// the registry knows, or that disagree with the declared name.
type SyntheticIdentity struct{}

func (SyntheticIdentity) Name() string { return "synthetic-identity" }

var nameFields = []string{"full_name", "legal_name"}

func (SyntheticIdentity) Detect(s models.Signals) (models.FraudSignal, bool) {
	if len(s.Registry) == 0 && len(s.Documents) == 0 {
		return models.FraudSignal{}, false
	}
	sig := models.FraudSignal{Score: 0.05}

	strongDocs := len(s.Documents) > 0
	for _, d := range s.Documents {
		if d.Unresolved || d.Tampered || d.AuthenticityScore < 0.8 {
			strongDocs = false
		}
	}
	for _, r := range s.Registry {
		if !r.Unresolved && !r.IsValid && strongDocs {
			sig.Score = max(sig.Score, 0.8)
			sig.Indicators = append(sig.Indicators, "registry_rejects_convincing_documents")
		}
	}

	for _, d := range s.Documents {
		for _, field := range nameFields {
			declared := normalizeName(s.DeclaredFields[field])
			extracted := normalizeName(d.ExtractedFields[field])
			if declared != "" && extracted != "" && declared != extracted {
				sig.Score = max(sig.Score, 0.7)
				sig.Indicators = append(sig.Indicators, "name_mismatch")
			}
		}
	}
	return sig, true
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// GeographicAnomaly flags high-risk jurisdictions and IP/declared country drift.
type GeographicAnomaly struct {
	HighRiskCountries []string
}

func (GeographicAnomaly) Name() string { return "geographic-anomaly" }

func (g GeographicAnomaly) Detect(s models.Signals) (models.FraudSignal, bool) {
	if s.DeclaredCountry == "" {
		return models.FraudSignal{}, false
	}
	sig := models.FraudSignal{Score: 0.05}
	if slices.Contains(g.HighRiskCountries, s.DeclaredCountry) {
		sig.Score += 0.4
		sig.Indicators = append(sig.Indicators, "high_risk_jurisdiction")
	}
	if s.IPCountry != "" && s.IPCountry != s.DeclaredCountry {
		sig.Score += 0.45
		sig.Indicators = append(sig.Indicators, "ip_country_mismatch")
	}
	return sig, true
}
