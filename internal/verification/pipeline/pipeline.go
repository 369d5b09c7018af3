// Package pipeline drives an application's workflow: it runs each active step
// through the orchestrator, records the evidence, re-scores risk and advances
// the workflow. Callers serialize work per application.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	appmodels "verity/internal/application/models"
	riskmodels "verity/internal/risk/models"
	"verity/internal/verification/models"
	wfmodels "verity/internal/workflow/models"
	id "verity/pkg/domain"
	dErrors "verity/pkg/domain-errors"
	"verity/pkg/platform/sentinel"
	"verity/pkg/requestcontext"
)

// ApplicationStore is the slice of the application store the pipeline uses.
type ApplicationStore interface {
	Get(ctx context.Context, appID id.ApplicationID) (*appmodels.Application, error)
	MirrorRisk(ctx context.Context, appID id.ApplicationID, level string, score float64, flag bool, now time.Time) error
	Flag(ctx context.Context, appID id.ApplicationID, now time.Time) error
	ListDocuments(ctx context.Context, appID id.ApplicationID) ([]*appmodels.Document, error)
	GetDocument(ctx context.Context, docID id.DocumentID) (*appmodels.Document, error)
	SaveDocument(ctx context.Context, doc *appmodels.Document) error
}

type EvidenceStore interface {
	Put(ctx context.Context, appID id.ApplicationID, step wfmodels.StepName, results []models.CallResult, now time.Time) error
	List(ctx context.Context, appID id.ApplicationID) ([]models.Record, error)
}

type Workflow interface {
	Plan(ctx context.Context, appID id.ApplicationID) (wfmodels.Plan, error)
	Advance(ctx context.Context, appID id.ApplicationID, step wfmodels.StepName, verdict wfmodels.Verdict) (wfmodels.Outcome, error)
	Restore(ctx context.Context, appID id.ApplicationID, plan wfmodels.Plan) error
}

type Risk interface {
	Assess(ctx context.Context, appID id.ApplicationID, signals riskmodels.Signals, trigger string) (*riskmodels.Assessment, error)
	Latest(ctx context.Context, appID id.ApplicationID) (*riskmodels.Assessment, error)
}

type Executor interface {
	Execute(ctx context.Context, in models.StepInput) models.StepOutcome
	Reextract(ctx context.Context, doc models.DocumentRef, hints map[string]string) models.CallResult
}

type Pipeline struct {
	apps     ApplicationStore
	evidence EvidenceStore
	workflow Workflow
	risk     Risk
	exec     Executor
	logger   *slog.Logger
}

type Option func(*Pipeline)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

func New(apps ApplicationStore, evidence EvidenceStore, workflow Workflow, risk Risk, exec Executor, opts ...Option) *Pipeline {
	p := &Pipeline{apps: apps, evidence: evidence, workflow: workflow, risk: risk, exec: exec, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// errCancelled stops driving once a concurrent Cancel has landed.
var errCancelled = errors.New("application cancelled")

// StepReport is one executed step.
type StepReport struct {
	Outcome    models.StepOutcome
	Assessment *riskmodels.Assessment
	Advance    *wfmodels.Outcome
}

// DriveResult says where driving stopped.
type DriveResult struct {
	Steps          []StepReport
	Finished       bool
	Stalled        bool
	AwaitingReview bool
	Cancelled      bool
}

// Drive runs active steps until the workflow finishes, stalls on a failed
// step, waits for an operator at manual_review, or the application leaves
// under_review.
func (p *Pipeline) Drive(ctx context.Context, appID id.ApplicationID) (DriveResult, error) {
	var result DriveResult
	for {
		plan, err := p.workflow.Plan(ctx, appID)
		if err != nil {
			return result, err
		}
		active := plan.Active()
		if active == nil {
			result.Finished = plan.Finished()
			result.Stalled = plan.Failed() != nil
			return result, nil
		}

		report, err := p.RunStep(ctx, appID, active)
		if errors.Is(err, errCancelled) {
			result.Cancelled = true
			return result, nil
		}
		if err != nil {
			return result, err
		}
		result.Steps = append(result.Steps, report)

		if report.Advance == nil {
			result.AwaitingReview = true
			return result, nil
		}
		if report.Advance.Stalled {
			result.Stalled = true
			return result, nil
		}
		if report.Advance.Finished {
			result.Finished = true
			return result, nil
		}
	}
}

// RunStep executes one active step. A needs_review verdict on manual_review
// leaves the step in progress for an operator and returns a nil Advance.
func (p *Pipeline) RunStep(ctx context.Context, appID id.ApplicationID, step *wfmodels.Step) (StepReport, error) {
	var report StepReport
	app, err := p.loadOpen(ctx, appID)
	if err != nil {
		return report, err
	}
	docs, err := p.apps.ListDocuments(ctx, appID)
	if err != nil {
		return report, dErrors.Wrap(err, dErrors.CodePersistence, "failed to load documents")
	}

	in := models.StepInput{
		ApplicationID:   app.ID,
		ApplicantID:     app.ApplicantID,
		ApplicationType: app.Type,
		Step:            step.Name,
		Criteria:        step.Criteria,
		Metadata:        app.Metadata,
		ClientIP:        app.ClientIP,
		UserAgent:       app.UserAgent,
		Submissions:     app.Resubmissions + 1,
		ManualReview:    app.ManualReview,
		ElevatedRisk:    riskmodels.Level(app.RiskLevel).IsElevated(),
	}
	for _, d := range docs {
		if d.IsActive() {
			in.Documents = append(in.Documents, d.Ref())
		}
	}
	if step.Name == wfmodels.StepDocumentUpload {
		in.Missing = appmodels.MissingItems(app, docs)
	}

	outcome := p.exec.Execute(ctx, in)
	report.Outcome = outcome
	now := requestcontext.Now(ctx)

	if len(outcome.Results) > 0 {
		if step.Name == wfmodels.StepDocumentVerification {
			if err := p.applyExtractions(ctx, docs, outcome.Results, step.Criteria); err != nil {
				return report, err
			}
		}
		if err := p.evidence.Put(ctx, appID, step.Name, outcome.Results, now); err != nil {
			return report, dErrors.Wrap(err, dErrors.CodePersistence, "failed to record evidence")
		}
		a, err := p.assess(ctx, appID, string(step.Name), outcome.Flagged())
		if err != nil {
			return report, err
		}
		report.Assessment = a
	} else if outcome.Flagged() && step.Name != wfmodels.StepManualReview {
		if err := p.flag(ctx, appID); err != nil {
			return report, err
		}
	}

	if step.Name == wfmodels.StepManualReview && outcome.Verdict == wfmodels.VerdictNeedsReview {
		p.logger.InfoContext(ctx, "awaiting operator review",
			"event", "workflow.awaiting_review",
			"application_id", appID.String(),
			"reasons", outcome.Reasons,
		)
		return report, nil
	}

	// Cancel does not take the application lock; check once more before
	// moving the workflow.
	if _, err := p.loadOpen(ctx, appID); err != nil {
		return report, err
	}
	prev, err := p.workflow.Plan(ctx, appID)
	if err != nil {
		return report, err
	}
	adv, err := p.workflow.Advance(ctx, appID, step.Name, outcome.Verdict)
	if err != nil {
		return report, err
	}
	// A cancel that landed while advancing rolls the plan back.
	if _, err := p.loadOpen(ctx, appID); err != nil {
		if errors.Is(err, errCancelled) {
			if rerr := p.workflow.Restore(ctx, appID, prev); rerr != nil {
				return report, rerr
			}
		}
		return report, err
	}
	report.Advance = &adv
	return report, nil
}

func (p *Pipeline) loadOpen(ctx context.Context, appID id.ApplicationID) (*appmodels.Application, error) {
	app, err := p.apps.Get(ctx, appID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to load application")
	}
	if app.Status == appmodels.StatusCancelled {
		return nil, errCancelled
	}
	if app.Status != appmodels.StatusUnderReview {
		return nil, dErrors.New(dErrors.CodeInvalidState, "application is not under review")
	}
	return app, nil
}

func (p *Pipeline) applyExtractions(ctx context.Context, docs []*appmodels.Document, results []models.CallResult, criteria wfmodels.Criteria) error {
	now := requestcontext.Now(ctx)
	byKey := make(map[string]models.CallResult, len(results))
	for _, r := range results {
		byKey[r.Key] = r
	}
	for _, d := range docs {
		res, ok := byKey[models.DocumentKey(d.ID)]
		if !ok {
			continue
		}
		d.ApplyExtraction(res, criteria, now)
		if err := p.apps.SaveDocument(ctx, d); err != nil {
			return dErrors.Wrap(err, dErrors.CodePersistence, "failed to save document")
		}
	}
	return nil
}

// assess appends an assessment over everything collected so far and mirrors
// it into the application. A cancelled application keeps its last mirror.
func (p *Pipeline) assess(ctx context.Context, appID id.ApplicationID, trigger string, flag bool) (*riskmodels.Assessment, error) {
	app, err := p.apps.Get(ctx, appID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to load application")
	}
	docs, err := p.apps.ListDocuments(ctx, appID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to load documents")
	}
	records, err := p.evidence.List(ctx, appID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to load evidence")
	}

	a, err := p.risk.Assess(ctx, appID, BuildSignals(app, docs, records), trigger)
	if err != nil {
		return nil, err
	}
	err = p.apps.MirrorRisk(ctx, appID, string(a.Level), a.Score, flag || a.FraudCritical, requestcontext.Now(ctx))
	switch {
	case errors.Is(err, sentinel.ErrInvalidState):
		p.logger.InfoContext(ctx, "risk mirror skipped for cancelled application",
			"application_id", appID.String(), "version", a.Version)
		return a, errCancelled
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to mirror risk")
	}
	return a, nil
}

func (p *Pipeline) flag(ctx context.Context, appID id.ApplicationID) error {
	err := p.apps.Flag(ctx, appID, requestcontext.Now(ctx))
	switch {
	case errors.Is(err, sentinel.ErrInvalidState):
		return errCancelled
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodePersistence, "failed to flag application")
	}
	return nil
}

// Assess runs an on-demand or reprocess assessment without touching the
// workflow. It works in any status except cancelled.
func (p *Pipeline) Assess(ctx context.Context, appID id.ApplicationID, trigger string) (*riskmodels.Assessment, error) {
	a, err := p.assess(ctx, appID, trigger, false)
	if errors.Is(err, errCancelled) {
		return a, nil
	}
	return a, err
}

// Reprocess re-extracts one document, refreshes its evidence and appends a
// reprocess assessment. Step ordering is untouched; running it twice leaves
// the document in the same state.
func (p *Pipeline) Reprocess(ctx context.Context, docID id.DocumentID) (*appmodels.Document, *riskmodels.Assessment, error) {
	doc, err := p.apps.GetDocument(ctx, docID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil, dErrors.New(dErrors.CodeNotFound, "document not found")
	}
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to load document")
	}
	if !doc.IsActive() {
		return nil, nil, dErrors.New(dErrors.CodeInvalidState, "document was superseded by a newer upload")
	}
	if doc.Type == id.DocumentPhoto {
		return nil, nil, dErrors.New(dErrors.CodeInvalidState, "photos are not extracted")
	}
	app, err := p.apps.Get(ctx, doc.ApplicationID)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to load application")
	}
	if app.Status == appmodels.StatusCancelled {
		return nil, nil, dErrors.New(dErrors.CodeInvalidState, "application is cancelled")
	}

	criteria := wfmodels.Criteria{}
	if plan, err := p.workflow.Plan(ctx, app.ID); err == nil {
		if s := plan.Find(wfmodels.StepDocumentVerification); s != nil {
			criteria = s.Criteria
		}
	}

	now := requestcontext.Now(ctx)
	doc.ApplyReset(now)
	if err := p.apps.SaveDocument(ctx, doc); err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to reset document")
	}

	res := p.exec.Reextract(ctx, doc.Ref(), app.Metadata)
	doc.ApplyExtraction(res, criteria, now)
	if err := p.apps.SaveDocument(ctx, doc); err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to save document")
	}
	if err := p.evidence.Put(ctx, app.ID, wfmodels.StepDocumentVerification, []models.CallResult{res}, now); err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to record evidence")
	}

	a, err := p.Assess(ctx, app.ID, riskmodels.TriggerReprocess)
	if err != nil {
		return nil, nil, err
	}
	p.logger.InfoContext(ctx, "document reprocessed",
		"event", "document.reprocessed",
		"application_id", app.ID.String(),
		"document_id", doc.ID.String(),
		"status", doc.Status,
	)
	return doc, a, nil
}
