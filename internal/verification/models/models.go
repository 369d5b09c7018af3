// Package models holds the pipeline's call results and step inputs.
package models

import (
	"slices"
	"time"

	"verity/internal/verification/adapters"
	wfmodels "verity/internal/workflow/models"
	id "verity/pkg/domain"
)

// CallStatus is how one adapter call settled.
type CallStatus string

const (
	// CallResolved carries a definitive adapter answer.
	CallResolved CallStatus = "resolved"
	// CallUnresolved means retries ran out, the circuit was open, or the
	// call was abandoned. It is a risk signal, not a step failure.
	CallUnresolved CallStatus = "unresolved"
	// CallError is a definitive, non-retryable adapter failure.
	CallError CallStatus = "error"
)

// CallResult is one settled adapter call. Exactly one payload is set when
// Status is resolved.
type CallResult struct {
	Key           string                   `json:"key"`
	Kind          adapters.Kind            `json:"kind"`
	AdapterID     string                   `json:"adapter_id"`
	Subject       string                   `json:"subject"`
	Status        CallStatus               `json:"status"`
	Attempts      int                      `json:"attempts"`
	Cached        bool                     `json:"cached"`
	ErrorCategory adapters.ErrorCategory   `json:"error_category,omitempty"`
	Message       string                   `json:"message,omitempty"`
	Extraction    *adapters.Extraction     `json:"extraction,omitempty"`
	Biometric     *adapters.BiometricMatch `json:"biometric,omitempty"`
	Registry      *adapters.RegistryCheck  `json:"registry,omitempty"`
	Fraud         *adapters.FraudSignal    `json:"fraud,omitempty"`
}

func (r CallResult) Resolved() bool { return r.Status == CallResolved }

// Evidence keys. A newer result for the same key replaces the older one.
func DocumentKey(docID id.DocumentID) string { return "document:" + docID.String() }

func BiometricKey(photoID, docID id.DocumentID) string {
	return "biometric:" + photoID.String() + ":" + docID.String()
}

func RegistryKey(identifierType string) string { return "registry:" + identifierType }

func FraudKey(detector string) string { return "fraud:" + detector }

// Record is a stored call result.
type Record struct {
	ApplicationID id.ApplicationID
	Step          wfmodels.StepName
	Result        CallResult
	UpdatedAt     time.Time
}

// DocumentRef is an active document the pipeline may process.
type DocumentRef struct {
	ID          id.DocumentID
	Type        id.DocumentType
	FileRef     string
	ContentHash string
}

// StepInput is the application snapshot a step runs against.
type StepInput struct {
	ApplicationID   id.ApplicationID
	ApplicantID     id.ApplicantID
	ApplicationType id.ApplicationType
	Step            wfmodels.StepName
	Criteria        wfmodels.Criteria
	Metadata        map[string]string
	Documents       []DocumentRef
	// Missing lists unmet completeness items; only document_upload reads it.
	Missing      []string
	ClientIP     string
	UserAgent    string
	Submissions  int
	ManualReview bool
	// ElevatedRisk is true when the current risk level is high or critical.
	ElevatedRisk bool
}

// StepOutcome exists only once every call for the step has settled.
type StepOutcome struct {
	Step    wfmodels.StepName
	Verdict wfmodels.Verdict
	Results []CallResult
	Reasons []string
}

// Flagged reports whether the outcome should set the manual-review flag.
func (o StepOutcome) Flagged() bool {
	return o.Verdict == wfmodels.VerdictFail || o.Verdict == wfmodels.VerdictNeedsReview
}

// Statuses counts results per status.
func (o StepOutcome) Statuses() map[CallStatus]int {
	out := map[CallStatus]int{}
	for _, r := range o.Results {
		out[r.Status]++
	}
	return out
}

// HasUnresolved reports whether any call ended unresolved.
func (o StepOutcome) HasUnresolved() bool {
	return slices.ContainsFunc(o.Results, func(r CallResult) bool { return r.Status == CallUnresolved })
}
