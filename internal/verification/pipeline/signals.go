package pipeline

import (
	"strings"

	appmodels "verity/internal/application/models"
	riskmodels "verity/internal/risk/models"
	"verity/internal/verification/adapters"
	"verity/internal/verification/models"
	id "verity/pkg/domain"
)

// BuildSignals assembles risk inputs from the application and its collected
// evidence. Evidence for superseded documents is ignored; a document with no
// evidence yet contributes nothing.
func BuildSignals(app *appmodels.Application, docs []*appmodels.Document, records []models.Record) riskmodels.Signals {
	byKey := make(map[string]models.CallResult, len(records))
	for _, r := range records {
		byKey[r.Result.Key] = r.Result
	}
	active := map[string]bool{}
	for _, d := range docs {
		if d.IsActive() {
			active[d.ID.String()] = true
		}
	}

	s := riskmodels.Signals{
		ApplicationType: string(app.Type),
		DeclaredFields:  app.Metadata,
		DeclaredCountry: app.Metadata["country"],
		IPCountry:       app.Metadata["ip_country"],
		Submitted:       app.SubmittedAt != nil,
		UserAgent:       app.UserAgent,
		Resubmissions:   app.Resubmissions,
	}

	for _, d := range docs {
		if !d.IsActive() || d.Type == id.DocumentPhoto {
			continue
		}
		res, ok := byKey[models.DocumentKey(d.ID)]
		if !ok {
			continue
		}
		sig := riskmodels.DocumentSignal{
			DocumentID:       d.ID.String(),
			Type:             string(d.Type),
			IdentityDocument: d.Type.IsIdentityDocument(),
			Unresolved:       !res.Resolved() || res.Extraction == nil,
		}
		if e := res.Extraction; e != nil && res.Resolved() {
			sig.ExtractionConfidence = e.Confidence
			sig.AuthenticityScore = e.AuthenticityScore
			sig.QualityScore = e.QualityScore
			sig.Tampered = e.Tampered
			sig.ExtractedFields = e.Fields
		}
		s.Documents = append(s.Documents, sig)
	}

	for _, r := range records {
		res := r.Result
		switch res.Kind {
		case adapters.KindBiometric:
			if !pairActive(res.Subject, active) {
				continue
			}
			sig := riskmodels.BiometricSignal{Unresolved: !res.Resolved() || res.Biometric == nil}
			if b := res.Biometric; b != nil && res.Resolved() {
				sig.IsMatch = b.IsMatch
				sig.Similarity = b.Similarity
				sig.LivenessScore = b.LivenessScore
				sig.SpoofDetected = b.SpoofDetected
			}
			s.Biometrics = append(s.Biometrics, sig)
		case adapters.KindRegistry:
			if app.Metadata[res.Subject] == "" {
				continue
			}
			sig := riskmodels.RegistrySignal{IdentifierType: res.Subject, Unresolved: !res.Resolved() || res.Registry == nil}
			if c := res.Registry; c != nil && res.Resolved() {
				sig.IsValid = c.IsValid
				sig.Confidence = c.Confidence
				sig.Listed = c.Listed
			}
			s.Registry = append(s.Registry, sig)
		case adapters.KindFraud:
			if f := res.Fraud; f != nil && res.Resolved() {
				s.ExternalFraud = append(s.ExternalFraud, riskmodels.FraudSignal{
					Detector:   f.Detector,
					Score:      f.Score,
					Indicators: f.Indicators,
				})
				continue
			}
			s.ExternalFraud = append(s.ExternalFraud, riskmodels.FraudSignal{
				Detector:   res.AdapterID,
				Indicators: []string{"detector_unresolved"},
				Unresolved: true,
			})
		}
	}
	return s
}

// pairActive checks a "photo/document" subject against the active set.
func pairActive(subject string, active map[string]bool) bool {
	photo, doc, ok := strings.Cut(subject, "/")
	return ok && active[photo] && active[doc]
}
