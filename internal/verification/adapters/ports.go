// Package adapters declares the black-box verification capabilities the
// pipeline consumes. Concrete vendors live in sub-packages and are swappable
// without touching the orchestrator or the risk engine.
package adapters

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks DocumentExtractor,BiometricMatcher,RegistryVerifier,FraudDetector

import (
	"context"
)

// Kind identifies an adapter capability.
type Kind string

const (
	KindDocument  Kind = "document"
	KindBiometric Kind = "biometric"
	KindRegistry  Kind = "registry"
	KindFraud     Kind = "fraud"
)

// Identifier types understood by registry verifiers.
const (
	IdentifierNationalID         = "national_id"
	IdentifierRegistrationNumber = "registration_number"
	IdentifierTaxID              = "tax_id"
)

// DocumentRequest asks for field extraction from one uploaded document.
type DocumentRequest struct {
	DocumentType string
	FileRef      string
	ContentHash  string
	// Hints are declared applicant fields the extractor may cross-check.
	Hints map[string]string
}

// Extraction is the extractor's answer. Scores are in [0,1].
type Extraction struct {
	Fields            map[string]string `json:"fields,omitempty"`
	Confidence        float64           `json:"confidence"`
	AuthenticityScore float64           `json:"authenticity_score"`
	QualityScore      float64           `json:"quality_score"`
	Tampered          bool              `json:"tampered"`
}

// BiometricRequest compares a selfie against the portrait on an identity document.
type BiometricRequest struct {
	SelfieRef    string
	SelfieHash   string
	DocumentRef  string
	DocumentHash string
}

// BiometricMatch is the matcher's answer.
type BiometricMatch struct {
	IsMatch       bool    `json:"is_match"`
	Similarity    float64 `json:"similarity"`
	LivenessScore float64 `json:"liveness_score"`
	SpoofDetected bool    `json:"spoof_detected"`
}

// RegistryRequest verifies one identifier against an authority.
type RegistryRequest struct {
	IdentifierType  string
	IdentifierValue string
	Country         string
	// Context carries declared names used for record matching.
	Context map[string]string
}

// RegistryCheck is the authority's answer. Listed marks sanctions or PEP hits.
type RegistryCheck struct {
	IsValid    bool              `json:"is_valid"`
	Confidence float64           `json:"confidence"`
	Listed     bool              `json:"listed"`
	Details    map[string]string `json:"details,omitempty"`
}

// FraudRequest is the applicant profile handed to external fraud detectors.
type FraudRequest struct {
	ApplicationID   string
	ApplicantID     string
	ApplicationType string
	Metadata        map[string]string
	ClientIP        string
	UserAgent       string
	Submissions     int
}

// FraudSignal is one detector's verdict.
type FraudSignal struct {
	Detector   string   `json:"detector"`
	Score      float64  `json:"score"`
	Indicators []string `json:"indicators,omitempty"`
}

// DocumentExtractor extracts fields from an image and scores its authenticity.
type DocumentExtractor interface {
	ID() string
	Extract(ctx context.Context, req DocumentRequest) (*Extraction, error)
}

// BiometricMatcher compares two faces and checks liveness.
type BiometricMatcher interface {
	ID() string
	Compare(ctx context.Context, req BiometricRequest) (*BiometricMatch, error)
}

// RegistryVerifier checks an identifier with an authority.
type RegistryVerifier interface {
	ID() string
	Verify(ctx context.Context, req RegistryRequest) (*RegistryCheck, error)
}

// FraudDetector scores an applicant profile for one fraud pattern.
type FraudDetector interface {
	ID() string
	Detect(ctx context.Context, req FraudRequest) (*FraudSignal, error)
}
