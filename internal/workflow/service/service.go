// Package service owns the ordered verification steps of each application.
package service

import (
	"context"
	"errors"
	"log/slog"

	"verity/internal/platform/config"
	"verity/internal/workflow/metrics"
	"verity/internal/workflow/models"
	id "verity/pkg/domain"
	dErrors "verity/pkg/domain-errors"
	"verity/pkg/platform/sentinel"
	"verity/pkg/requestcontext"
)

// Store persists plans.
type Store interface {
	Save(ctx context.Context, appID id.ApplicationID, plan models.Plan) error
	Load(ctx context.Context, appID id.ApplicationID) (models.Plan, error)
}

// Service drives step transitions. It does not lock: callers serialize work on
// one application.
type Service struct {
	store     Store
	templates map[models.StepName]models.Template
	logger    *slog.Logger
	metrics   *metrics.Metrics
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

// New creates the service. templates supplies per-step durations and criteria;
// missing entries get zero values.
func New(store Store, templates map[models.StepName]models.Template, opts ...Option) *Service {
	s := &Service{
		store:     store,
		templates: templates,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TemplatesFromPolicy converts the policy's step section.
func TemplatesFromPolicy(p config.Policy) map[models.StepName]models.Template {
	out := make(map[models.StepName]models.Template, len(p.Steps))
	for name, sp := range p.Steps {
		out[models.StepName(name)] = models.Template{
			Name:              models.StepName(name),
			RequiredActions:   sp.RequiredActions,
			EstimatedDuration: sp.EstimatedDuration,
			Criteria: models.Criteria{
				RequireResolved: sp.RequireResolved,
				MinConfidence:   sp.MinConfidence,
			},
		}
	}
	return out
}

// Initialize creates the plan: step 1 in progress, the rest pending.
func (s *Service) Initialize(ctx context.Context, appID id.ApplicationID) (models.Plan, error) {
	plan := models.NewPlan(appID, s.templates, requestcontext.Now(ctx))
	if err := s.store.Save(ctx, appID, plan); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to save workflow")
	}
	s.metrics.ObserveTransition(string(plan[0].Name), string(plan[0].Status))
	return plan, nil
}

// Restart resets every step to the initial layout.
func (s *Service) Restart(ctx context.Context, appID id.ApplicationID) (models.Plan, error) {
	if _, err := s.load(ctx, appID); err != nil {
		return nil, err
	}
	plan, err := s.Initialize(ctx, appID)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "workflow restarted",
		"event", "workflow.restarted",
		"application_id", appID.String(),
	)
	return plan, nil
}

// Advance applies verdict to the named step, which must be the active one.
func (s *Service) Advance(ctx context.Context, appID id.ApplicationID, step models.StepName, verdict models.Verdict) (models.Outcome, error) {
	plan, err := s.load(ctx, appID)
	if err != nil {
		return models.Outcome{}, err
	}
	out, err := plan.Advance(step, verdict, requestcontext.Now(ctx))
	if err != nil {
		return models.Outcome{}, err
	}
	if err := plan.CheckOrdering(); err != nil {
		return models.Outcome{}, err
	}
	if err := s.store.Save(ctx, appID, plan); err != nil {
		return models.Outcome{}, dErrors.Wrap(err, dErrors.CodePersistence, "failed to save workflow")
	}

	s.metrics.ObserveTransition(string(out.Step), string(out.Status))
	if out.Next != "" {
		s.metrics.ObserveTransition(string(out.Next), string(models.StepInProgress))
	}
	if out.Stalled {
		s.metrics.IncrementStall(string(out.Step))
		s.logger.WarnContext(ctx, "workflow stalled",
			"event", "workflow.stalled",
			"application_id", appID.String(),
			"step", out.Step,
		)
	}
	s.logger.InfoContext(ctx, "workflow step advanced",
		"event", "workflow.advanced",
		"application_id", appID.String(),
		"step", out.Step,
		"verdict", verdict,
		"status", out.Status,
		"next", out.Next,
	)
	return out, nil
}

// Restore puts back a plan read earlier. It undoes an advance that raced a
// cancellation.
func (s *Service) Restore(ctx context.Context, appID id.ApplicationID, plan models.Plan) error {
	if err := s.store.Save(ctx, appID, plan); err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "failed to save workflow")
	}
	s.logger.InfoContext(ctx, "workflow restored",
		"event", "workflow.restored",
		"application_id", appID.String(),
	)
	return nil
}

// RetryFailed reopens the failed step a stalled workflow is waiting on.
func (s *Service) RetryFailed(ctx context.Context, appID id.ApplicationID) (*models.Step, error) {
	plan, err := s.load(ctx, appID)
	if err != nil {
		return nil, err
	}
	step, err := plan.Retry(requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, appID, plan); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to save workflow")
	}
	s.metrics.ObserveTransition(string(step.Name), string(step.Status))
	s.logger.InfoContext(ctx, "workflow step retried",
		"event", "workflow.retried",
		"application_id", appID.String(),
		"step", step.Name,
	)
	return step, nil
}

// Plan returns the current steps.
func (s *Service) Plan(ctx context.Context, appID id.ApplicationID) (models.Plan, error) {
	return s.load(ctx, appID)
}

// Progress is a pure read of the plan summary.
func (s *Service) Progress(ctx context.Context, appID id.ApplicationID) (models.Progress, error) {
	plan, err := s.load(ctx, appID)
	if err != nil {
		return models.Progress{}, err
	}
	return plan.Progress(), nil
}

func (s *Service) load(ctx context.Context, appID id.ApplicationID) (models.Plan, error) {
	plan, err := s.store.Load(ctx, appID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "workflow not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to load workflow")
	}
	return plan, nil
}
