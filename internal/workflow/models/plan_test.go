package models

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verity/internal/platform/config"
	id "verity/pkg/domain"
	dErrors "verity/pkg/domain-errors"
	"verity/pkg/testutil"
)

var t0 = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func newTestPlan() Plan {
	return NewPlan(id.ApplicationID(uuid.New()), map[StepName]Template{
		StepDocumentVerification: {Criteria: Criteria{MinConfidence: map[string]float64{"extraction": 0.6}}},
	}, t0)
}

func TestStepOrderMatchesPolicy(t *testing.T) {
	require.Len(t, StepOrder, len(config.StepOrder))
	policy := config.DefaultPolicy()
	for i, name := range config.StepOrder {
		assert.Equal(t, StepName(name), StepOrder[i])
		assert.Contains(t, policy.Steps, name, "default policy covers %s", name)
		parsed, err := ParseStepName(name)
		require.NoError(t, err)
		assert.Equal(t, StepOrder[i], parsed)
	}
}

func TestNewPlan(t *testing.T) {
	p := newTestPlan()
	require.Len(t, p, len(StepOrder))
	for i, s := range p {
		assert.Equal(t, i+1, s.Position)
		assert.Equal(t, StepOrder[i], s.Name)
	}
	assert.Equal(t, StepInProgress, p[0].Status)
	for _, s := range p[1:] {
		assert.Equal(t, StepPending, s.Status)
	}
	assert.InDelta(t, 0.6, p.Find(StepDocumentVerification).Criteria.Min("extraction"), 1e-9)
	assert.NoError(t, p.CheckOrdering())
}

func TestAdvance(t *testing.T) {
	testutil.Given(t, "a fresh plan", func(t *testing.T) {
		testutil.When(t, "the active step passes", func(t *testing.T) {
			p := newTestPlan()
			out, err := p.Advance(StepDocumentUpload, VerdictPass, t0)
			require.NoError(t, err)
			testutil.Then(t, "the next step becomes active", func(t *testing.T) {
				assert.Equal(t, StepCompleted, p[0].Status)
				assert.Equal(t, StepDocumentVerification, out.Next)
				assert.Equal(t, StepInProgress, p[1].Status)
				assert.False(t, out.ManualReview)
			})
		})

		testutil.When(t, "a step other than the active one is advanced", func(t *testing.T) {
			p := newTestPlan()
			_, err := p.Advance(StepRegistryVerification, VerdictPass, t0)
			testutil.Then(t, "it is rejected as invalid state", func(t *testing.T) {
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
				assert.Equal(t, StepPending, p.Find(StepRegistryVerification).Status)
			})
		})

		testutil.When(t, "the active step needs review", func(t *testing.T) {
			p := newTestPlan()
			out, err := p.Advance(StepDocumentUpload, VerdictNeedsReview, t0)
			require.NoError(t, err)
			testutil.Then(t, "it completes and flags manual review", func(t *testing.T) {
				assert.Equal(t, StepCompleted, out.Status)
				assert.True(t, out.ManualReview)
				assert.Equal(t, StepDocumentVerification, out.Next)
			})
		})

		testutil.When(t, "the active step fails", func(t *testing.T) {
			p := newTestPlan()
			out, err := p.Advance(StepDocumentUpload, VerdictFail, t0)
			require.NoError(t, err)
			testutil.Then(t, "the workflow stalls on it", func(t *testing.T) {
				assert.True(t, out.Stalled)
				assert.True(t, out.ManualReview)
				assert.Nil(t, p.Active())
				assert.Equal(t, StepDocumentUpload, p.Failed().Name)
				assert.Equal(t, StepPending, p[1].Status)
			})
		})

		testutil.When(t, "a step is not applicable", func(t *testing.T) {
			p := newTestPlan()
			out, err := p.Advance(StepDocumentUpload, VerdictNotApplicable, t0)
			require.NoError(t, err)
			testutil.Then(t, "it is skipped and the next step starts", func(t *testing.T) {
				assert.Equal(t, StepSkipped, out.Status)
				assert.Equal(t, StepInProgress, p[1].Status)
			})
		})
	})
}

func TestAdvance_FinishesAfterLastStep(t *testing.T) {
	p := newTestPlan()
	for _, name := range StepOrder[:len(StepOrder)-1] {
		_, err := p.Advance(name, VerdictPass, t0)
		require.NoError(t, err)
	}
	out, err := p.Advance(StepManualReview, VerdictNotApplicable, t0)
	require.NoError(t, err)
	assert.True(t, out.Finished)
	assert.Empty(t, out.Next)
	assert.Equal(t, 6, p.Progress().Completed)
	assert.InDelta(t, 100, p.Progress().Percentage, 1e-9)
}

func TestRetry(t *testing.T) {
	p := newTestPlan()
	_, err := p.Retry(t0)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))

	_, err = p.Advance(StepDocumentUpload, VerdictFail, t0)
	require.NoError(t, err)
	step, err := p.Retry(t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, StepDocumentUpload, step.Name)
	assert.Equal(t, StepInProgress, step.Status)
	assert.Nil(t, step.CompletedAt)
	assert.NoError(t, p.CheckOrdering())
}

func TestStepStatusTransitions(t *testing.T) {
	assert.False(t, StepPending.CanTransitionTo(StepCompleted), "pending never jumps to completed")
	assert.False(t, StepPending.CanTransitionTo(StepSkipped))
	assert.True(t, StepPending.CanTransitionTo(StepInProgress))
	assert.True(t, StepFailed.CanTransitionTo(StepInProgress))
	assert.False(t, StepCompleted.CanTransitionTo(StepInProgress))
	assert.False(t, StepSkipped.CanTransitionTo(StepInProgress))
}

// Random verdict sequences, including retries and bogus advances, must never
// violate ordering or let a step settle without having been in progress.
func TestPlanInvariantsUnderRandomDriving(t *testing.T) {
	verdicts := []Verdict{VerdictPass, VerdictFail, VerdictNeedsReview, VerdictNotApplicable}
	rng := rand.New(rand.NewPCG(7, 11))

	for run := 0; run < 500; run++ {
		p := newTestPlan()
		everStarted := map[StepName]bool{StepDocumentUpload: true}

		for i := 0; i < 20; i++ {
			switch rng.IntN(4) {
			case 0:
				_, _ = p.Retry(t0)
			case 1:
				name := StepOrder[rng.IntN(len(StepOrder))]
				_, _ = p.Advance(name, verdicts[rng.IntN(len(verdicts))], t0)
			default:
				if active := p.Active(); active != nil {
					_, err := p.Advance(active.Name, verdicts[rng.IntN(len(verdicts))], t0)
					require.NoError(t, err)
				}
			}

			require.NoError(t, p.CheckOrdering())
			for _, s := range p {
				if s.Status == StepInProgress {
					everStarted[s.Name] = true
				}
				if s.Status != StepPending {
					require.True(t, everStarted[s.Name], "step %s reached %s without being in progress", s.Name, s.Status)
				}
			}
		}
	}
}

func TestParseStepName(t *testing.T) {
	n, err := ParseStepName("registry_verification")
	require.NoError(t, err)
	assert.Equal(t, StepRegistryVerification, n)

	_, err = ParseStepName("coffee")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestClone(t *testing.T) {
	p := newTestPlan()
	c := p.Clone()
	c[0].Status = StepFailed
	c[1].Criteria.MinConfidence["extraction"] = 0.1
	assert.Equal(t, StepInProgress, p[0].Status)
	assert.InDelta(t, 0.6, p[1].Criteria.MinConfidence["extraction"], 1e-9)
}
