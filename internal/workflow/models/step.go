package models

import (
	"fmt"
	"time"

	"verity/internal/platform/config"
	id "verity/pkg/domain"
	dErrors "verity/pkg/domain-errors"
)

// StepName identifies a workflow step.
type StepName string

const (
	StepDocumentUpload       StepName = config.StepDocumentUpload
	StepDocumentVerification StepName = config.StepDocumentVerification
	StepIdentityVerification StepName = config.StepIdentityVerification
	StepRegistryVerification StepName = config.StepRegistryVerification
	StepRiskAssessment       StepName = config.StepRiskAssessment
	StepManualReview         StepName = config.StepManualReview
)

// StepOrder is the fixed execution order from the policy; position is
// index+1.
var StepOrder = stepOrder(config.StepOrder)

func stepOrder(names []string) []StepName {
	out := make([]StepName, len(names))
	for i, n := range names {
		out[i] = StepName(n)
	}
	return out
}

// ParseStepName validates a step name from an untrusted source.
func ParseStepName(s string) (StepName, error) {
	for _, n := range StepOrder {
		if string(n) == s {
			return n, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown step %q", s))
}

// StepStatus is the lifecycle state of one step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepFailed     StepStatus = "failed"
	StepSkipped    StepStatus = "skipped"
)

// CanTransitionTo encodes the step state machine. Restart is handled by
// rebuilding the plan, not through transitions.
//
//	pending     -> in_progress
//	in_progress -> completed | failed | skipped
//	failed      -> in_progress (operator retry)
func (s StepStatus) CanTransitionTo(next StepStatus) bool {
	switch s {
	case StepPending:
		return next == StepInProgress
	case StepInProgress:
		return next == StepCompleted || next == StepFailed || next == StepSkipped
	case StepFailed:
		return next == StepInProgress
	default:
		return false
	}
}

// IsSettled reports whether the step lets its successor start.
func (s StepStatus) IsSettled() bool {
	return s == StepCompleted || s == StepSkipped
}

// Verdict is the orchestrator's judgement of a step.
type Verdict string

const (
	VerdictPass          Verdict = "pass"
	VerdictFail          Verdict = "fail"
	VerdictNeedsReview   Verdict = "needs_review"
	VerdictNotApplicable Verdict = "not_applicable"
)

// IsValid reports whether v is a known verdict.
func (v Verdict) IsValid() bool {
	switch v {
	case VerdictPass, VerdictFail, VerdictNeedsReview, VerdictNotApplicable:
		return true
	}
	return false
}

// Criteria is the threshold map a step's outcome must satisfy.
type Criteria struct {
	RequireResolved bool               `json:"require_resolved"`
	MinConfidence   map[string]float64 `json:"min_confidence,omitempty"`
}

// Min returns the configured threshold for signal, or 0.
func (c Criteria) Min(signal string) float64 {
	return c.MinConfidence[signal]
}

// Template is the static definition a step is instantiated from.
type Template struct {
	Name              StepName
	RequiredActions   []string
	EstimatedDuration time.Duration
	Criteria          Criteria
}

// Step is one ordered stage of an application's workflow.
//
// Invariants:
//   - Position is 1..len(StepOrder) and matches Name's index in StepOrder
//   - A step never moves pending -> completed without passing in_progress
//   - A step is in_progress only when every earlier step is completed or skipped
type Step struct {
	ApplicationID     id.ApplicationID `json:"application_id"`
	Position          int              `json:"position"`
	Name              StepName         `json:"name"`
	Status            StepStatus       `json:"status"`
	RequiredActions   []string         `json:"required_actions"`
	EstimatedDuration time.Duration    `json:"estimated_duration"`
	Criteria          Criteria         `json:"criteria"`
	StartedAt         *time.Time       `json:"started_at,omitempty"`
	CompletedAt       *time.Time       `json:"completed_at,omitempty"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// CanMoveTo returns InvalidState when the transition is not allowed.
func (s *Step) CanMoveTo(next StepStatus) error {
	if !s.Status.CanTransitionTo(next) {
		return dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("step %s cannot move from %s to %s", s.Name, s.Status, next))
	}
	return nil
}

// ApplyStart marks the step in progress.
func (s *Step) ApplyStart(now time.Time) {
	s.Status = StepInProgress
	s.StartedAt = &now
	s.CompletedAt = nil
	s.UpdatedAt = now
}

// ApplyFinish settles an in-progress step.
func (s *Step) ApplyFinish(status StepStatus, now time.Time) {
	s.Status = status
	s.CompletedAt = &now
	s.UpdatedAt = now
}
