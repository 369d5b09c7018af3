// Package models holds the application aggregate, its documents and the
// completeness rules per application type.
package models

import (
	"maps"
	"strings"
	"time"

	id "verity/pkg/domain"
	dErrors "verity/pkg/domain-errors"
)

// Status is the application lifecycle state.
type Status string

const (
	StatusDraft       Status = "draft"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusCancelled   Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusDraft:       {StatusUnderReview, StatusCancelled},
	StatusUnderReview: {StatusApproved, StatusRejected, StatusCancelled},
	StatusRejected:    {StatusDraft},
}

// CanTransitionTo reports whether the lifecycle allows moving to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsOpen reports whether the application still counts against the
// one-open-application-per-applicant rule.
func (s Status) IsOpen() bool {
	return s == StatusDraft || s == StatusUnderReview
}

func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusCancelled
}

// Application is the aggregate root of one verification request.
//
// Invariants:
//   - Status moves only along the lifecycle transitions
//   - RiskLevel and RiskScore mirror the latest assessment
//   - Applications are never deleted
type Application struct {
	ID                 id.ApplicationID   `json:"id"`
	ApplicantID        id.ApplicantID     `json:"applicant_id"`
	Type               id.ApplicationType `json:"type"`
	Status             Status             `json:"status"`
	RiskLevel          string             `json:"risk_level,omitempty"`
	RiskScore          *float64           `json:"risk_score,omitempty"`
	ManualReview       bool               `json:"manual_review"`
	Metadata           map[string]string  `json:"metadata"`
	CancellationReason string             `json:"cancellation_reason,omitempty"`
	RejectionReason    string             `json:"rejection_reason,omitempty"`
	ReviewedBy         string             `json:"reviewed_by,omitempty"`
	Resubmissions      int                `json:"resubmissions"`
	ClientIP           string             `json:"-"`
	UserAgent          string             `json:"-"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
	SubmittedAt        *time.Time         `json:"submitted_at,omitempty"`
	ReviewedAt         *time.Time         `json:"reviewed_at,omitempty"`
}

// NewApplication validates input and builds a draft.
func NewApplication(applicantID id.ApplicantID, appType id.ApplicationType, metadata map[string]string, now time.Time) (*Application, error) {
	if applicantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "applicant_id is required")
	}
	if !appType.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid application type")
	}
	fields, err := normalizeMetadata(nil, metadata)
	if err != nil {
		return nil, err
	}
	return &Application{
		ID:          id.NewApplicationID(),
		ApplicantID: applicantID,
		Type:        appType,
		Status:      StatusDraft,
		Metadata:    fields,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// normalizeMetadata merges updates into base. An empty value removes the
// field. Identifiers and country codes are validated after trimming.
func normalizeMetadata(base, updates map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(base)+len(updates))
	maps.Copy(out, base)
	for k, v := range updates {
		k = strings.TrimSpace(k)
		if k == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "metadata field names must not be empty")
		}
		v = strings.TrimSpace(v)
		if v == "" {
			delete(out, k)
			continue
		}
		switch k {
		case "national_id":
			if _, err := id.ParseNationalID(v); err != nil {
				return nil, err
			}
		case "country", "ip_country":
			if _, err := id.ParseCountryCode(v); err != nil {
				return nil, err
			}
		}
		out[k] = v
	}
	return out, nil
}

func (a *Application) requireStatus(want Status, action string) error {
	if a.Status != want {
		return dErrors.New(dErrors.CodeInvalidState, action+" requires status "+string(want)+", application is "+string(a.Status))
	}
	return nil
}

// CanUpdate checks metadata edits are allowed.
func (a *Application) CanUpdate() error {
	return a.requireStatus(StatusDraft, "update")
}

// ApplyUpdate merges fields into the metadata.
func (a *Application) ApplyUpdate(fields map[string]string, now time.Time) error {
	merged, err := normalizeMetadata(a.Metadata, fields)
	if err != nil {
		return err
	}
	a.Metadata = merged
	a.UpdatedAt = now
	return nil
}

func (a *Application) CanSubmit() error {
	return a.requireStatus(StatusDraft, "submit")
}

// ApplySubmission moves the draft under review and records the client that
// submitted it.
func (a *Application) ApplySubmission(clientIP, userAgent string, now time.Time) {
	a.Status = StatusUnderReview
	a.ClientIP = clientIP
	a.UserAgent = userAgent
	a.SubmittedAt = &now
	a.UpdatedAt = now
}

func (a *Application) CanCancel() error {
	if !a.Status.CanTransitionTo(StatusCancelled) {
		return dErrors.New(dErrors.CodeInvalidState, "cannot cancel an application that is "+string(a.Status))
	}
	return nil
}

func (a *Application) ApplyCancellation(reason string, now time.Time) {
	a.Status = StatusCancelled
	a.CancellationReason = strings.TrimSpace(reason)
	a.UpdatedAt = now
}

func (a *Application) CanResubmit() error {
	return a.requireStatus(StatusRejected, "resubmit")
}

// ApplyResubmission returns a rejected application to draft. Risk fields
// keep mirroring the latest assessment; history is untouched.
func (a *Application) ApplyResubmission(now time.Time) {
	a.Status = StatusDraft
	a.RejectionReason = ""
	a.ReviewedBy = ""
	a.ReviewedAt = nil
	a.ManualReview = false
	a.Resubmissions++
	a.UpdatedAt = now
}

func (a *Application) CanDecide() error {
	return a.requireStatus(StatusUnderReview, "review decision")
}

// ApplyApproval records the final approval. reviewer is empty for automatic
// approvals.
func (a *Application) ApplyApproval(reviewer string, now time.Time) {
	a.Status = StatusApproved
	a.ReviewedBy = reviewer
	a.ReviewedAt = &now
	a.UpdatedAt = now
}

func (a *Application) ApplyRejection(reviewer, reason string, now time.Time) {
	a.Status = StatusRejected
	a.ReviewedBy = reviewer
	a.RejectionReason = strings.TrimSpace(reason)
	a.ReviewedAt = &now
	a.UpdatedAt = now
}

// ApplyRisk mirrors the latest assessment.
func (a *Application) ApplyRisk(level string, score float64, now time.Time) {
	a.RiskLevel = level
	a.RiskScore = &score
	a.UpdatedAt = now
}

// ApplyReviewFlag marks the application for operator attention. The flag is
// sticky until resubmission.
func (a *Application) ApplyReviewFlag(now time.Time) {
	if a.ManualReview {
		return
	}
	a.ManualReview = true
	a.UpdatedAt = now
}

// Clone returns a deep copy.
func (a *Application) Clone() *Application {
	c := *a
	c.Metadata = maps.Clone(a.Metadata)
	if a.RiskScore != nil {
		v := *a.RiskScore
		c.RiskScore = &v
	}
	if a.SubmittedAt != nil {
		v := *a.SubmittedAt
		c.SubmittedAt = &v
	}
	if a.ReviewedAt != nil {
		v := *a.ReviewedAt
		c.ReviewedAt = &v
	}
	return &c
}
