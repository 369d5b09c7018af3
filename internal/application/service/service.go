// Package service is the application lifecycle controller: it owns creation,
// submission, cancellation and operator decisions, and drives the workflow
// through the verification pipeline on submit.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"verity/internal/application/metrics"
	"verity/internal/application/models"
	"verity/internal/notification"
	riskmodels "verity/internal/risk/models"
	"verity/internal/verification/pipeline"
	wfmodels "verity/internal/workflow/models"
	id "verity/pkg/domain"
	dErrors "verity/pkg/domain-errors"
	"verity/pkg/platform/sentinel"
	"verity/pkg/platform/tx"
	"verity/pkg/requestcontext"
)

// Store persists applications and their documents.
type Store interface {
	Create(ctx context.Context, app *models.Application) error
	Get(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	Update(ctx context.Context, app *models.Application, from models.Status) error
	Cancel(ctx context.Context, appID id.ApplicationID, reason string, now time.Time) (*models.Application, error)
	AddDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, docID id.DocumentID) (*models.Document, error)
	ListDocuments(ctx context.Context, appID id.ApplicationID) ([]*models.Document, error)
}

type Workflow interface {
	Initialize(ctx context.Context, appID id.ApplicationID) (wfmodels.Plan, error)
	Restart(ctx context.Context, appID id.ApplicationID) (wfmodels.Plan, error)
	Plan(ctx context.Context, appID id.ApplicationID) (wfmodels.Plan, error)
	Progress(ctx context.Context, appID id.ApplicationID) (wfmodels.Progress, error)
	Advance(ctx context.Context, appID id.ApplicationID, step wfmodels.StepName, verdict wfmodels.Verdict) (wfmodels.Outcome, error)
	RetryFailed(ctx context.Context, appID id.ApplicationID) (*wfmodels.Step, error)
}

type Risk interface {
	Latest(ctx context.Context, appID id.ApplicationID) (*riskmodels.Assessment, error)
	History(ctx context.Context, appID id.ApplicationID) ([]riskmodels.Assessment, error)
}

// Pipeline runs verification work. Callers hold the application's lock.
type Pipeline interface {
	Drive(ctx context.Context, appID id.ApplicationID) (pipeline.DriveResult, error)
	Reprocess(ctx context.Context, docID id.DocumentID) (*models.Document, *riskmodels.Assessment, error)
	Assess(ctx context.Context, appID id.ApplicationID, trigger string) (*riskmodels.Assessment, error)
}

// Notifier is fire-and-forget.
type Notifier interface {
	Publish(ctx context.Context, e notification.Event)
}

type Service struct {
	store    Store
	workflow Workflow
	risk     Risk
	pipeline Pipeline
	notifier Notifier
	tx       tx.Runner
	lock     shardedLock
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithTxRunner makes multi-store mutations share one transaction.
func WithTxRunner(r tx.Runner) Option {
	return func(s *Service) {
		s.tx = r
	}
}

// WithLockTimeout bounds how long one locked operation may run when the
// caller's context has no deadline.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.lock.timeout = d
	}
}

func New(store Store, workflow Workflow, risk Risk, p Pipeline, opts ...Option) *Service {
	s := &Service{
		store:    store,
		workflow: workflow,
		risk:     risk,
		pipeline: p,
		tx:       tx.NoopRunner{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Status is the GetStatus view.
type Status struct {
	Application *models.Application    `json:"application"`
	ActiveStep  *wfmodels.Step         `json:"active_step,omitempty"`
	StalledStep *wfmodels.Step         `json:"stalled_step,omitempty"`
	Risk        *riskmodels.Assessment `json:"risk,omitempty"`
}

// Create opens a draft for the applicant and lays out its workflow.
func (s *Service) Create(ctx context.Context, applicantID id.ApplicantID, appType string, metadata map[string]string) (*models.Application, error) {
	parsedType, err := id.ParseApplicationType(appType)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	app, err := models.NewApplication(applicantID, parsedType, metadata, now)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, app); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeDuplicateInProgress, "applicant already has an application in progress")
			}
			return dErrors.Wrap(err, dErrors.CodePersistence, "failed to create application")
		}
		_, err := s.workflow.Initialize(ctx, app.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementTransition(string(app.Status))
	s.logger.InfoContext(ctx, "application created",
		"event", "application.created",
		"application_id", app.ID.String(),
		"applicant_id", applicantID.String(),
		"type", app.Type,
	)
	s.emit(ctx, notification.EventCreated, app)
	return app, nil
}

// Update merges metadata fields into a draft. An empty value removes a field.
func (s *Service) Update(ctx context.Context, appID id.ApplicationID, fields map[string]string) (*models.Application, error) {
	var out *models.Application
	err := s.lock.run(ctx, appID, func(ctx context.Context) error {
		app, err := s.load(ctx, appID)
		if err != nil {
			return err
		}
		if err := app.CanUpdate(); err != nil {
			return err
		}
		if err := app.ApplyUpdate(fields, requestcontext.Now(ctx)); err != nil {
			return err
		}
		if err := s.save(ctx, app, models.StatusDraft); err != nil {
			return err
		}
		out = app
		return nil
	})
	return out, err
}

// UploadDocument attaches a document to a draft. A newer upload of the same
// type supersedes the earlier one.
func (s *Service) UploadDocument(ctx context.Context, appID id.ApplicationID, docType, fileRef, contentHash string) (*models.Document, error) {
	parsed, err := id.ParseDocumentType(docType)
	if err != nil {
		return nil, err
	}
	var out *models.Document
	err = s.lock.run(ctx, appID, func(ctx context.Context) error {
		app, err := s.load(ctx, appID)
		if err != nil {
			return err
		}
		if app.Status != models.StatusDraft {
			return dErrors.New(dErrors.CodeInvalidState, "documents can only be uploaded to a draft, application is "+string(app.Status))
		}
		doc, err := models.NewDocument(appID, parsed, fileRef, contentHash, requestcontext.Now(ctx))
		if err != nil {
			return err
		}
		if err := s.store.AddDocument(ctx, doc); err != nil {
			return dErrors.Wrap(err, dErrors.CodePersistence, "failed to store document")
		}
		s.logger.InfoContext(ctx, "document uploaded",
			"event", "document.uploaded",
			"application_id", appID.String(),
			"document_id", doc.ID.String(),
			"type", doc.Type,
		)
		out = doc
		return nil
	})
	return out, err
}

// Submit checks completeness, moves the draft under review and drives the
// workflow until it finishes, stalls or waits for an operator.
func (s *Service) Submit(ctx context.Context, appID id.ApplicationID) (*Status, error) {
	err := s.lock.run(ctx, appID, func(ctx context.Context) error {
		app, err := s.load(ctx, appID)
		if err != nil {
			return err
		}
		if err := app.CanSubmit(); err != nil {
			return err
		}
		docs, err := s.store.ListDocuments(ctx, appID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodePersistence, "failed to load documents")
		}
		if missing := models.MissingItems(app, docs); len(missing) > 0 {
			s.metrics.IncrementIncomplete(missing)
			return dErrors.Incomplete(missing)
		}

		app.ApplySubmission(requestcontext.ClientIP(ctx), requestcontext.UserAgent(ctx), requestcontext.Now(ctx))
		if err := s.save(ctx, app, models.StatusDraft); err != nil {
			return err
		}
		s.metrics.IncrementTransition(string(app.Status))
		s.logger.InfoContext(ctx, "application submitted",
			"event", "application.submitted",
			"application_id", appID.String(),
			"resubmissions", app.Resubmissions,
		)
		s.emit(ctx, notification.EventSubmitted, app)

		return s.drive(ctx, appID)
	})
	if err != nil {
		return nil, err
	}
	return s.GetStatus(ctx, appID)
}

// drive runs the pipeline and approves the application when the workflow
// finishes without an operator.
func (s *Service) drive(ctx context.Context, appID id.ApplicationID) error {
	start := time.Now()
	res, err := s.pipeline.Drive(ctx, appID)
	result := driveLabel(res, err)
	s.metrics.ObserveDrive(result, time.Since(start))
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "workflow driven",
		"event", "workflow.driven",
		"application_id", appID.String(),
		"steps", len(res.Steps),
		"result", result,
	)
	if !res.Finished {
		return nil
	}

	app, err := s.load(ctx, appID)
	if err != nil {
		return err
	}
	if app.Status != models.StatusUnderReview {
		return nil
	}
	app.ApplyApproval("", requestcontext.Now(ctx))
	if err := s.save(ctx, app, models.StatusUnderReview); err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidState) {
			// Cancelled while the last step ran.
			return nil
		}
		return err
	}
	s.finalized(ctx, app, notification.EventApproved)
	return nil
}

func driveLabel(res pipeline.DriveResult, err error) string {
	switch {
	case err != nil:
		return "error"
	case res.Cancelled:
		return "cancelled"
	case res.Finished:
		return "finished"
	case res.AwaitingReview:
		return "awaiting_review"
	case res.Stalled:
		return "stalled"
	default:
		return "paused"
	}
}

// Cancel is terminal from draft or under_review. It does not wait for
// in-flight step work; that work stops advancing the workflow once it sees
// the cancelled status.
func (s *Service) Cancel(ctx context.Context, appID id.ApplicationID, reason string) (*models.Application, error) {
	app, err := s.store.Cancel(ctx, appID, reason, requestcontext.Now(ctx))
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return nil, dErrors.New(dErrors.CodeInvalidState, "only draft or under_review applications can be cancelled")
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to cancel application")
	}
	s.metrics.IncrementTransition(string(app.Status))
	s.logger.InfoContext(ctx, "application cancelled",
		"event", "application.cancelled",
		"application_id", appID.String(),
		"reason", app.CancellationReason,
	)
	s.emit(ctx, notification.EventCancelled, app)
	return app, nil
}

// Resubmit returns a rejected application to draft and restarts its
// workflow. Assessment history is kept.
func (s *Service) Resubmit(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	var out *models.Application
	err := s.lock.run(ctx, appID, func(ctx context.Context) error {
		app, err := s.load(ctx, appID)
		if err != nil {
			return err
		}
		if err := app.CanResubmit(); err != nil {
			return err
		}
		app.ApplyResubmission(requestcontext.Now(ctx))
		err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
			if err := s.save(ctx, app, models.StatusRejected); err != nil {
				return err
			}
			_, err := s.workflow.Restart(ctx, appID)
			return err
		})
		if err != nil {
			return err
		}
		s.metrics.IncrementTransition(string(app.Status))
		s.logger.InfoContext(ctx, "application returned to draft",
			"event", "application.resubmitted",
			"application_id", appID.String(),
			"resubmissions", app.Resubmissions,
		)
		out = app
		return nil
	})
	return out, err
}

// GetStatus returns the application with its active step and latest
// assessment.
func (s *Service) GetStatus(ctx context.Context, appID id.ApplicationID) (*Status, error) {
	app, err := s.load(ctx, appID)
	if err != nil {
		return nil, err
	}
	plan, err := s.workflow.Plan(ctx, appID)
	if err != nil {
		return nil, err
	}
	latest, err := s.risk.Latest(ctx, appID)
	if err != nil {
		return nil, err
	}
	return &Status{
		Application: app,
		ActiveStep:  plan.Active(),
		StalledStep: plan.Failed(),
		Risk:        latest,
	}, nil
}

func (s *Service) GetProgress(ctx context.Context, appID id.ApplicationID) (wfmodels.Progress, error) {
	if _, err := s.load(ctx, appID); err != nil {
		return wfmodels.Progress{}, err
	}
	return s.workflow.Progress(ctx, appID)
}

// RiskHistory lists every assessment, oldest first.
func (s *Service) RiskHistory(ctx context.Context, appID id.ApplicationID) ([]riskmodels.Assessment, error) {
	if _, err := s.load(ctx, appID); err != nil {
		return nil, err
	}
	return s.risk.History(ctx, appID)
}

// ReprocessDocument re-runs extraction for one document and appends a
// reprocess assessment without moving the workflow.
func (s *Service) ReprocessDocument(ctx context.Context, docID id.DocumentID) (*models.Document, *riskmodels.Assessment, error) {
	doc, err := s.store.GetDocument(ctx, docID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil, dErrors.New(dErrors.CodeNotFound, "document not found")
	}
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to load document")
	}

	var (
		out        *models.Document
		assessment *riskmodels.Assessment
	)
	err = s.lock.run(ctx, doc.ApplicationID, func(ctx context.Context) error {
		var err error
		out, assessment, err = s.pipeline.Reprocess(ctx, docID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return out, assessment, nil
}

// RunRiskAssessment scores the evidence collected so far. It never advances
// the workflow.
func (s *Service) RunRiskAssessment(ctx context.Context, appID id.ApplicationID) (*riskmodels.Assessment, error) {
	var out *riskmodels.Assessment
	err := s.lock.run(ctx, appID, func(ctx context.Context) error {
		app, err := s.load(ctx, appID)
		if err != nil {
			return err
		}
		if app.Status == models.StatusCancelled {
			return dErrors.New(dErrors.CodeInvalidState, "application is cancelled")
		}
		out, err = s.pipeline.Assess(ctx, appID, riskmodels.TriggerManual)
		return err
	})
	return out, err
}

// Decision is an operator's review outcome.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// DecideReview records an operator decision. Approval requires the workflow to
// wait at manual_review; rejection is also allowed while the workflow is
// stalled on a failed step.
func (s *Service) DecideReview(ctx context.Context, appID id.ApplicationID, decision Decision, reason string) (*models.Application, error) {
	if decision != DecisionApprove && decision != DecisionReject {
		return nil, dErrors.New(dErrors.CodeValidation, "decision must be approve or reject")
	}
	var out *models.Application
	err := s.lock.run(ctx, appID, func(ctx context.Context) error {
		app, err := s.load(ctx, appID)
		if err != nil {
			return err
		}
		if err := app.CanDecide(); err != nil {
			return err
		}
		plan, err := s.workflow.Plan(ctx, appID)
		if err != nil {
			return err
		}

		atReview := plan.Active() != nil && plan.Active().Name == wfmodels.StepManualReview
		stalled := plan.Failed() != nil
		switch {
		case atReview:
			verdict := wfmodels.VerdictPass
			if decision == DecisionReject {
				verdict = wfmodels.VerdictFail
			}
			if _, err := s.workflow.Advance(ctx, appID, wfmodels.StepManualReview, verdict); err != nil {
				return err
			}
		case stalled && decision == DecisionReject:
		default:
			return dErrors.New(dErrors.CodeInvalidState, "application is not waiting for a review decision")
		}

		reviewer := requestcontext.Actor(ctx)
		now := requestcontext.Now(ctx)
		event := notification.EventApproved
		if decision == DecisionApprove {
			app.ApplyApproval(reviewer, now)
		} else {
			app.ApplyRejection(reviewer, reason, now)
			event = notification.EventRejected
		}
		if err := s.save(ctx, app, models.StatusUnderReview); err != nil {
			return err
		}
		s.metrics.IncrementDecision(string(decision))
		s.finalized(ctx, app, event)
		out = app
		return nil
	})
	return out, err
}

// RetryStep reopens the failed step and drives the workflow again.
func (s *Service) RetryStep(ctx context.Context, appID id.ApplicationID) (*Status, error) {
	err := s.lock.run(ctx, appID, func(ctx context.Context) error {
		app, err := s.load(ctx, appID)
		if err != nil {
			return err
		}
		if app.Status != models.StatusUnderReview {
			return dErrors.New(dErrors.CodeInvalidState, "only applications under review have steps to retry")
		}
		if _, err := s.workflow.RetryFailed(ctx, appID); err != nil {
			return err
		}
		return s.drive(ctx, appID)
	})
	if err != nil {
		return nil, err
	}
	return s.GetStatus(ctx, appID)
}

func (s *Service) load(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	app, err := s.store.Get(ctx, appID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to load application")
	}
	return app, nil
}

func (s *Service) save(ctx context.Context, app *models.Application, from models.Status) error {
	err := s.store.Update(ctx, app, from)
	switch {
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvalidState, "application changed state concurrently")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeDuplicateInProgress, "applicant already has an application in progress")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "application not found")
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodePersistence, "failed to save application")
	}
	return nil
}

func (s *Service) finalized(ctx context.Context, app *models.Application, event notification.EventType) {
	s.metrics.IncrementTransition(string(app.Status))
	s.logger.InfoContext(ctx, "application decided",
		"event", string(event),
		"application_id", app.ID.String(),
		"status", app.Status,
		"reviewed_by", app.ReviewedBy,
		"risk_level", app.RiskLevel,
	)
	s.emit(ctx, event, app)
}

func (s *Service) emit(ctx context.Context, t notification.EventType, app *models.Application) {
	if s.notifier == nil {
		return
	}
	reason := app.CancellationReason
	if t == notification.EventRejected {
		reason = app.RejectionReason
	}
	s.notifier.Publish(ctx, notification.Event{
		Type:          t,
		ApplicationID: app.ID.String(),
		ApplicantID:   app.ApplicantID.String(),
		Status:        string(app.Status),
		Reason:        reason,
		RiskLevel:     app.RiskLevel,
		RequestID:     requestcontext.RequestID(ctx),
		OccurredAt:    requestcontext.Now(ctx),
	})
}
