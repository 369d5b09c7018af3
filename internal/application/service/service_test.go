package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"verity/internal/application/models"
	appstore "verity/internal/application/store"
	"verity/internal/notification"
	"verity/internal/platform/config"
	"verity/internal/risk/engine"
	riskmodels "verity/internal/risk/models"
	riskservice "verity/internal/risk/service"
	riskstore "verity/internal/risk/store"
	"verity/internal/verification/adapters"
	"verity/internal/verification/adapters/simulated"
	"verity/internal/verification/cache"
	"verity/internal/verification/evidence"
	"verity/internal/verification/orchestrator"
	"verity/internal/verification/pipeline"
	wfmodels "verity/internal/workflow/models"
	wfservice "verity/internal/workflow/service"
	wfstore "verity/internal/workflow/store"
	id "verity/pkg/domain"
	dErrors "verity/pkg/domain-errors"
	"verity/pkg/requestcontext"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification.Event
}

func (n *recordingNotifier) Publish(_ context.Context, e notification.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) types() []notification.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notification.EventType, len(n.events))
	for i, e := range n.events {
		out[i] = e.Type
	}
	return out
}

// scriptedRegistry answers with the queued errors first, then valid records.
type scriptedRegistry struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (r *scriptedRegistry) ID() string { return "scripted-registry" }

func (r *scriptedRegistry) Verify(_ context.Context, req adapters.RegistryRequest) (*adapters.RegistryCheck, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		return nil, err
	}
	return &adapters.RegistryCheck{IsValid: true, Confidence: 0.9, Details: map[string]string{"type": req.IdentifierType}}, nil
}

type ServiceSuite struct {
	suite.Suite
	ctx      context.Context
	apps     *appstore.InMemoryStore
	workflow *wfservice.Service
	risk     *riskservice.Service
	registry *scriptedRegistry
	notifier *recordingNotifier
	service  *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithClientMetadata(context.Background(), "203.0.113.7",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	policy := config.DefaultPolicy()
	s.apps = appstore.NewInMemory()
	s.workflow = wfservice.New(wfstore.NewInMemory(), wfservice.TemplatesFromPolicy(policy))
	s.risk = riskservice.New(riskstore.NewInMemory(), engine.New(policy))
	s.registry = &scriptedRegistry{}
	s.notifier = &recordingNotifier{}

	orch, err := orchestrator.New(adapters.Set{
		Extractor:      simulated.NewExtractor(),
		Matcher:        simulated.NewMatcher(),
		Registry:       s.registry,
		FraudDetectors: []adapters.FraudDetector{simulated.NewBehavioralDetector(), simulated.NewHistoryDetector()},
	}, cache.NewInMemory(), config.PipelineConfig{
		MaxConcurrency:  4,
		AttemptTimeout:  time.Second,
		MaxAttempts:     3,
		InitialBackoff:  time.Millisecond,
		BackoffFactor:   2,
		MaxBackoff:      2 * time.Millisecond,
		BreakerFailures: 10,
		BreakerCooldown: time.Minute,
	}, policy.CacheTTL)
	s.Require().NoError(err)

	p := pipeline.New(s.apps, evidence.NewInMemory(), s.workflow, s.risk, orch)
	s.service = New(s.apps, s.workflow, s.risk, p, WithNotifier(s.notifier))
}

var individualFields = map[string]string{
	"full_name":     "Grace Hopper",
	"date_of_birth": "1986-12-09",
	"national_id":   "GH1234567",
	"country":       "US",
}

func (s *ServiceSuite) draft(fields map[string]string, uploads map[id.DocumentType]string) *models.Application {
	app, err := s.service.Create(s.ctx, id.ApplicantID(uuid.New()), "individual", fields)
	s.Require().NoError(err)
	for _, t := range []id.DocumentType{id.DocumentPassport, id.DocumentIdentityCard, id.DocumentPhoto} {
		ref, ok := uploads[t]
		if !ok {
			continue
		}
		_, err := s.service.UploadDocument(s.ctx, app.ID, string(t), ref, "sha256:"+ref)
		s.Require().NoError(err)
	}
	return app
}

func (s *ServiceSuite) TestCreate() {
	s.Run("rejects malformed input", func() {
		applicant := id.ApplicantID(uuid.New())
		_, err := s.service.Create(s.ctx, applicant, "trust", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = s.service.Create(s.ctx, applicant, "individual", map[string]string{"national_id": "ab-12"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = s.service.Create(s.ctx, applicant, "individual", map[string]string{"country": "USA"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("initializes the workflow and notifies", func() {
		app, err := s.service.Create(s.ctx, id.ApplicantID(uuid.New()), "business", nil)
		s.Require().NoError(err)
		s.Equal(models.StatusDraft, app.Status)

		progress, err := s.service.GetProgress(s.ctx, app.ID)
		s.Require().NoError(err)
		s.Equal(wfmodels.StepDocumentUpload, progress.Active)
		s.Equal(6, progress.Total)
		s.Contains(s.notifier.types(), notification.EventCreated)
	})

	s.Run("second application while one is under review is a duplicate", func() {
		app := s.draft(individualFields, map[id.DocumentType]string{id.DocumentPassport: "passport.jpg"})
		s.registry.errs = []error{adapters.NewError(adapters.ErrorBadData, "scripted-registry", "garbled", nil)}
		_, err := s.service.Submit(s.ctx, app.ID)
		s.Require().NoError(err)

		_, err = s.service.Create(s.ctx, app.ApplicantID, "individual", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicateInProgress))
	})
}

func (s *ServiceSuite) TestUpdate() {
	app := s.draft(map[string]string{"full_name": "Grace Hopper", "nickname": "Amazing Grace"}, nil)

	updated, err := s.service.Update(s.ctx, app.ID, map[string]string{"nickname": "", "country": " US "})
	s.Require().NoError(err)
	s.NotContains(updated.Metadata, "nickname")
	s.Equal("US", updated.Metadata["country"])

	_, err = s.service.Update(s.ctx, app.ID, map[string]string{"national_id": "bad id"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.service.Cancel(s.ctx, app.ID, "")
	s.Require().NoError(err)
	_, err = s.service.Update(s.ctx, app.ID, map[string]string{"country": "GB"})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *ServiceSuite) TestSubmitIncompleteListsMissingItems() {
	app := s.draft(map[string]string{"full_name": "Grace Hopper", "country": "US"}, nil)

	_, err := s.service.Submit(s.ctx, app.ID)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeIncomplete))
	s.Equal([]string{"document:identity_document", "field:date_of_birth", "field:national_id"}, dErrors.MissingItems(err))

	status, err := s.service.GetStatus(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusDraft, status.Application.Status)
	s.NotContains(s.notifier.types(), notification.EventSubmitted)
}

func (s *ServiceSuite) TestSubmitCleanApplicationIsApproved() {
	app := s.draft(individualFields, map[id.DocumentType]string{
		id.DocumentPassport: "passport.jpg",
		id.DocumentPhoto:    "selfie.jpg",
	})

	status, err := s.service.Submit(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, status.Application.Status)
	s.Empty(status.Application.ReviewedBy)
	s.Nil(status.ActiveStep)
	s.Require().NotNil(status.Risk)
	s.Equal(riskmodels.LevelLow, status.Risk.Level)
	s.Equal("203.0.113.7", status.Application.ClientIP)

	progress, err := s.service.GetProgress(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(float64(100), progress.Percentage)
	s.Equal([]notification.EventType{
		notification.EventCreated,
		notification.EventSubmitted,
		notification.EventApproved,
	}, s.notifier.types())

	_, err = s.service.Cancel(s.ctx, app.ID, "too late")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *ServiceSuite) TestSpoofedSelfieRejectedThenResubmitted() {
	app := s.draft(individualFields, map[id.DocumentType]string{
		id.DocumentPassport: "passport.jpg",
		id.DocumentPhoto:    "spoof-selfie.jpg",
	})

	status, err := s.service.Submit(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusUnderReview, status.Application.Status)
	s.True(status.Application.ManualReview)
	s.Equal(string(riskmodels.LevelCritical), status.Application.RiskLevel)
	s.Require().NotNil(status.StalledStep)
	s.Equal(wfmodels.StepIdentityVerification, status.StalledStep.Name)
	s.True(status.Risk.FraudCritical)
	s.Equal(1.0, status.Risk.FraudScore)

	_, err = s.service.DecideReview(s.ctx, app.ID, DecisionApprove, "")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState), "a stalled workflow cannot be approved")

	operatorCtx := requestcontext.WithActor(s.ctx, "operator-7")
	rejected, err := s.service.DecideReview(operatorCtx, app.ID, DecisionReject, "spoofed selfie")
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, rejected.Status)
	s.Equal("operator-7", rejected.ReviewedBy)
	s.Equal("spoofed selfie", rejected.RejectionReason)

	before, err := s.service.RiskHistory(s.ctx, app.ID)
	s.Require().NoError(err)

	draft, err := s.service.Resubmit(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusDraft, draft.Status)
	s.False(draft.ManualReview)
	s.Empty(draft.RejectionReason)
	s.Equal(1, draft.Resubmissions)

	progress, err := s.service.GetProgress(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(wfmodels.StepDocumentUpload, progress.Active)
	for _, step := range progress.Steps[1:] {
		s.Equal(wfmodels.StepPending, step.Status)
	}
	after, err := s.service.RiskHistory(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(before, after)

	s.Equal(notification.EventRejected, s.notifier.types()[len(s.notifier.types())-1])
}

func (s *ServiceSuite) TestUnresolvedRegistryWaitsForOperator() {
	outage := adapters.NewError(adapters.ErrorOutage, "scripted-registry", "registry down", nil)
	s.registry.errs = []error{outage, outage, outage}
	app := s.draft(individualFields, map[id.DocumentType]string{
		id.DocumentPassport: "passport.jpg",
		id.DocumentPhoto:    "selfie.jpg",
	})

	status, err := s.service.Submit(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(3, s.registry.calls)
	s.Equal(models.StatusUnderReview, status.Application.Status)
	s.Require().NotNil(status.ActiveStep)
	s.Equal(wfmodels.StepManualReview, status.ActiveStep.Name)

	progress, err := s.service.GetProgress(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(wfmodels.StepCompleted, progress.Steps[3].Status)

	history, err := s.service.RiskHistory(s.ctx, app.ID)
	s.Require().NoError(err)
	var registryRun *riskmodels.Assessment
	for i := range history {
		if history[i].Trigger == string(wfmodels.StepRegistryVerification) {
			registryRun = &history[i]
		}
	}
	s.Require().NotNil(registryRun)
	s.GreaterOrEqual(registryRun.Factors[riskmodels.FactorIdentity], 0.6)
	s.Equal(0.5, registryRun.Factors[riskmodels.FactorCompliance])

	approved, err := s.service.DecideReview(requestcontext.WithActor(s.ctx, "operator-1"), app.ID, DecisionApprove, "")
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, approved.Status)
	s.NotNil(approved.ReviewedAt)
}

func (s *ServiceSuite) TestRetryStepAfterAdapterError() {
	s.registry.errs = []error{adapters.NewError(adapters.ErrorBadData, "scripted-registry", "garbled", nil)}
	app := s.draft(individualFields, map[id.DocumentType]string{id.DocumentPassport: "passport.jpg"})

	status, err := s.service.Submit(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Require().NotNil(status.StalledStep)
	s.Equal(wfmodels.StepRegistryVerification, status.StalledStep.Name)
	s.Equal(1, s.registry.calls)

	status, err = s.service.RetryStep(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Nil(status.StalledStep)
	s.Require().NotNil(status.ActiveStep)
	s.Equal(wfmodels.StepManualReview, status.ActiveStep.Name, "the earlier failure keeps the review flag")

	_, err = s.service.RetryStep(s.ctx, app.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *ServiceSuite) TestUploadDocument() {
	app := s.draft(individualFields, nil)

	first, err := s.service.UploadDocument(s.ctx, app.ID, "passport", "p1.jpg", "sha256:p1")
	s.Require().NoError(err)
	second, err := s.service.UploadDocument(s.ctx, app.ID, "passport", "p2.jpg", "sha256:p2")
	s.Require().NoError(err)

	docs, err := s.apps.ListDocuments(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Require().Len(docs, 2)
	s.Equal(first.ID, docs[0].ID)
	s.Equal(models.DocumentSuperseded, docs[0].Status)
	s.Equal(second.ID, docs[1].ID)
	s.Equal(models.DocumentPending, docs[1].Status)

	_, err = s.service.UploadDocument(s.ctx, app.ID, "selfie", "x.jpg", "sha256:x")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.service.Submit(s.ctx, app.ID)
	s.Require().NoError(err)
	_, err = s.service.UploadDocument(s.ctx, app.ID, "photo", "late.jpg", "sha256:late")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *ServiceSuite) TestReprocessDocumentKeepsWorkflow() {
	app := s.draft(individualFields, map[id.DocumentType]string{id.DocumentPassport: "passport.jpg"})
	_, err := s.service.Submit(s.ctx, app.ID)
	s.Require().NoError(err)
	docs, err := s.apps.ListDocuments(s.ctx, app.ID)
	s.Require().NoError(err)
	before, err := s.service.GetProgress(s.ctx, app.ID)
	s.Require().NoError(err)

	doc, assessment, err := s.service.ReprocessDocument(s.ctx, docs[0].ID)
	s.Require().NoError(err)
	s.Equal(models.DocumentVerified, doc.Status)
	s.Equal(riskmodels.TriggerReprocess, assessment.Trigger)

	after, err := s.service.GetProgress(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(before, after)

	_, _, err = s.service.ReprocessDocument(s.ctx, id.NewDocumentID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestRunRiskAssessment() {
	app := s.draft(individualFields, map[id.DocumentType]string{id.DocumentPassport: "passport.jpg"})

	s.Run("concurrent runs get distinct versions", func() {
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.service.RunRiskAssessment(s.ctx, app.ID)
				s.NoError(err)
			}()
		}
		wg.Wait()

		history, err := s.service.RiskHistory(s.ctx, app.ID)
		s.Require().NoError(err)
		s.Require().Len(history, 8)
		for i, a := range history {
			s.Equal(i+1, a.Version)
			s.Equal(riskmodels.TriggerManual, a.Trigger)
		}
	})

	s.Run("does not advance the workflow", func() {
		progress, err := s.service.GetProgress(s.ctx, app.ID)
		s.Require().NoError(err)
		s.Equal(wfmodels.StepDocumentUpload, progress.Active)
		s.Zero(progress.Completed)
	})

	s.Run("cancelled applications are not scored", func() {
		_, err := s.service.Cancel(s.ctx, app.ID, "withdrawn")
		s.Require().NoError(err)
		_, err = s.service.RunRiskAssessment(s.ctx, app.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *ServiceSuite) TestCancel() {
	app := s.draft(individualFields, nil)

	cancelled, err := s.service.Cancel(s.ctx, app.ID, "  duplicate signup ")
	s.Require().NoError(err)
	s.Equal(models.StatusCancelled, cancelled.Status)
	s.Equal("duplicate signup", cancelled.CancellationReason)

	_, err = s.service.Cancel(s.ctx, app.ID, "again")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	_, err = s.service.Cancel(s.ctx, id.NewApplicationID(), "")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	s.Run("a cancelled application frees the applicant", func() {
		_, err := s.service.Create(s.ctx, app.ApplicantID, "individual", nil)
		s.NoError(err)
	})
}

func (s *ServiceSuite) TestLockHonorsCancelledContext() {
	app := s.draft(individualFields, nil)
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.service.Update(ctx, app.ID, map[string]string{"country": "GB"})
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
	s.True(errors.Is(err, context.Canceled))
}
