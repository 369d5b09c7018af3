package models

import (
	"fmt"
	"time"

	id "verity/pkg/domain"
	dErrors "verity/pkg/domain-errors"
)

// Plan is the ordered step list of one application.
type Plan []*Step

// NewPlan builds the initial layout: step 1 in progress, the rest pending.
func NewPlan(appID id.ApplicationID, templates map[StepName]Template, now time.Time) Plan {
	plan := make(Plan, len(StepOrder))
	for i, name := range StepOrder {
		tpl := templates[name]
		plan[i] = &Step{
			ApplicationID:     appID,
			Position:          i + 1,
			Name:              name,
			Status:            StepPending,
			RequiredActions:   append([]string(nil), tpl.RequiredActions...),
			EstimatedDuration: tpl.EstimatedDuration,
			Criteria:          tpl.Criteria,
			UpdatedAt:         now,
		}
	}
	plan[0].ApplyStart(now)
	return plan
}

// Active returns the in-progress step, or nil.
func (p Plan) Active() *Step {
	for _, s := range p {
		if s.Status == StepInProgress {
			return s
		}
	}
	return nil
}

// Failed returns the failed step the workflow is stalled on, or nil.
func (p Plan) Failed() *Step {
	for _, s := range p {
		if s.Status == StepFailed {
			return s
		}
	}
	return nil
}

// Find returns the named step, or nil.
func (p Plan) Find(name StepName) *Step {
	for _, s := range p {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Finished reports whether every step is completed or skipped.
func (p Plan) Finished() bool {
	for _, s := range p {
		if !s.Status.IsSettled() {
			return false
		}
	}
	return true
}

// Settled counts completed or skipped steps.
func (p Plan) Settled() int {
	n := 0
	for _, s := range p {
		if s.Status.IsSettled() {
			n++
		}
	}
	return n
}

// Outcome describes what an Advance did.
type Outcome struct {
	Step         StepName
	Status       StepStatus
	Next         StepName
	Stalled      bool
	Finished     bool
	ManualReview bool
}

// Advance applies a verdict to the named active step and activates the next
// pending step when the verdict settles it.
func (p Plan) Advance(name StepName, verdict Verdict, now time.Time) (Outcome, error) {
	if !verdict.IsValid() {
		return Outcome{}, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown verdict %q", verdict))
	}
	step := p.Find(name)
	if step == nil {
		return Outcome{}, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown step %q", name))
	}
	if step.Status != StepInProgress {
		return Outcome{}, dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("step %s is %s, not the active step", name, step.Status))
	}

	out := Outcome{Step: name}
	switch verdict {
	case VerdictPass:
		out.Status = StepCompleted
	case VerdictNeedsReview:
		out.Status = StepCompleted
		out.ManualReview = true
	case VerdictFail:
		out.Status = StepFailed
		out.ManualReview = true
		out.Stalled = true
	case VerdictNotApplicable:
		out.Status = StepSkipped
	}
	step.ApplyFinish(out.Status, now)

	if out.Stalled {
		return out, nil
	}
	if next := p.nextPending(step.Position); next != nil {
		next.ApplyStart(now)
		out.Next = next.Name
		return out, nil
	}
	out.Finished = p.Finished()
	return out, nil
}

// Retry reopens the failed step the workflow is stalled on.
func (p Plan) Retry(now time.Time) (*Step, error) {
	step := p.Failed()
	if step == nil {
		return nil, dErrors.New(dErrors.CodeInvalidState, "workflow has no failed step to retry")
	}
	if err := step.CanMoveTo(StepInProgress); err != nil {
		return nil, err
	}
	step.ApplyStart(now)
	return step, nil
}

func (p Plan) nextPending(after int) *Step {
	for _, s := range p {
		if s.Position > after && s.Status == StepPending {
			return s
		}
	}
	return nil
}

// CheckOrdering verifies the ordering invariant: no step is active or settled
// while an earlier step is still pending or in progress.
func (p Plan) CheckOrdering() error {
	blocked := false
	for _, s := range p {
		if blocked && s.Status != StepPending {
			return dErrors.New(dErrors.CodeInvariantViolation,
				fmt.Sprintf("step %s is %s while an earlier step is unsettled", s.Name, s.Status))
		}
		if !s.Status.IsSettled() {
			blocked = true
		}
	}
	return nil
}

// Progress summarizes a plan for status display.
type Progress struct {
	Completed  int            `json:"completed"`
	Total      int            `json:"total"`
	Percentage float64        `json:"percentage"`
	Active     StepName       `json:"active_step,omitempty"`
	Stalled    StepName       `json:"stalled_step,omitempty"`
	Steps      []StepProgress `json:"steps"`
}

// StepProgress is one row of Progress.
type StepProgress struct {
	Position int        `json:"position"`
	Name     StepName   `json:"name"`
	Status   StepStatus `json:"status"`
}

// Progress computes the summary. It does not mutate the plan.
func (p Plan) Progress() Progress {
	out := Progress{Total: len(p), Steps: make([]StepProgress, 0, len(p))}
	for _, s := range p {
		out.Steps = append(out.Steps, StepProgress{Position: s.Position, Name: s.Name, Status: s.Status})
		switch s.Status {
		case StepInProgress:
			out.Active = s.Name
		case StepFailed:
			out.Stalled = s.Name
		}
	}
	out.Completed = p.Settled()
	if out.Total > 0 {
		out.Percentage = float64(out.Completed) * 100 / float64(out.Total)
	}
	return out
}

// Clone deep-copies the plan so stores never share step pointers with callers.
func (p Plan) Clone() Plan {
	out := make(Plan, len(p))
	for i, s := range p {
		c := *s
		c.RequiredActions = append([]string(nil), s.RequiredActions...)
		if s.Criteria.MinConfidence != nil {
			c.Criteria.MinConfidence = make(map[string]float64, len(s.Criteria.MinConfidence))
			for k, v := range s.Criteria.MinConfidence {
				c.Criteria.MinConfidence[k] = v
			}
		}
		out[i] = &c
	}
	return out
}
