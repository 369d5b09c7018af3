package models

// Signals is everything the engine scores, assembled from collected evidence.
// A nil or empty section means no evidence, which makes the matching factor
// absent rather than zero.
type Signals struct {
	ApplicationType string
	DeclaredFields  map[string]string
	DeclaredCountry string
	IPCountry       string

	// Submitted is false for on-demand assessments of a draft that was never
	// submitted; the behavioral factor needs a submission to observe.
	Submitted     bool
	UserAgent     string
	Resubmissions int

	Documents  []DocumentSignal
	Biometrics []BiometricSignal
	Registry   []RegistrySignal

	// ExternalFraud are detector answers gathered through the pipeline.
	ExternalFraud []FraudSignal
}

// DocumentSignal is the processed state of one active document.
type DocumentSignal struct {
	DocumentID           string
	Type                 string
	IdentityDocument     bool
	Unresolved           bool
	ExtractionConfidence float64
	AuthenticityScore    float64
	QualityScore         float64
	Tampered             bool
	ExtractedFields      map[string]string
}

// BiometricSignal is one selfie/document comparison.
type BiometricSignal struct {
	Unresolved    bool
	IsMatch       bool
	Similarity    float64
	LivenessScore float64
	SpoofDetected bool
}

// RegistrySignal is one identifier check.
type RegistrySignal struct {
	IdentifierType string
	Unresolved     bool
	IsValid        bool
	Confidence     float64
	Listed         bool
}

// FraudSignal is one detector's answer. Unresolved marks a detector that
// could not be reached; its Score is the unresolved penalty.
type FraudSignal struct {
	Detector   string   `json:"detector"`
	Score      float64  `json:"score"`
	Indicators []string `json:"indicators,omitempty"`
	Unresolved bool     `json:"unresolved,omitempty"`
}

// FraudResult is the aggregated fraud factor.
type FraudResult struct {
	Score      float64       `json:"score"`
	Critical   bool          `json:"critical"`
	Indicators []string      `json:"indicators"`
	Signals    []FraudSignal `json:"signals"`
}
