// Package service records versioned risk assessments.
package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"verity/internal/risk/engine"
	"verity/internal/risk/metrics"
	"verity/internal/risk/models"
	id "verity/pkg/domain"
	dErrors "verity/pkg/domain-errors"
	"verity/pkg/platform/sentinel"
	"verity/pkg/requestcontext"
)

// Store is the append-only assessment history.
type Store interface {
	Append(ctx context.Context, a *models.Assessment) error
	List(ctx context.Context, appID id.ApplicationID) ([]models.Assessment, error)
	Latest(ctx context.Context, appID id.ApplicationID) (*models.Assessment, error)
}

type Service struct {
	store   Store
	engine  *engine.Engine
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(store Store, eng *engine.Engine, opts ...Option) *Service {
	s := &Service{store: store, engine: eng, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// maxVersionRaces bounds retries when a concurrent writer takes our version.
const maxVersionRaces = 3

// Assess evaluates signals and appends the next version for the application.
// Callers hold the application's lock, so a version conflict only happens when
// a second process scores the same application; the next version is retried.
func (s *Service) Assess(ctx context.Context, appID id.ApplicationID, signals models.Signals, trigger string) (*models.Assessment, error) {
	res := s.engine.Evaluate(signals)

	for range maxVersionRaces {
		version, err := s.nextVersion(ctx, appID)
		if err != nil {
			return nil, err
		}
		a := &models.Assessment{
			ID:               id.NewAssessmentID(),
			ApplicationID:    appID,
			Version:          version,
			Factors:          res.Factors,
			Score:            res.Score,
			Level:            res.Level,
			Confidence:       res.Confidence,
			FraudScore:       res.Fraud.Score,
			FraudCritical:    res.Fraud.Critical,
			FraudIndicators:  slices.Clone(res.Fraud.Indicators),
			AlgorithmVersion: s.engine.AlgorithmVersion(),
			Trigger:          trigger,
			CreatedAt:        requestcontext.Now(ctx),
		}
		err = s.store.Append(ctx, a)
		if errors.Is(err, sentinel.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to record risk assessment")
		}

		s.metrics.ObserveAssessment(trigger, string(a.Level), a.Score, a.FraudIndicators)
		s.logger.InfoContext(ctx, "risk assessed",
			"event", "risk.assessed",
			"application_id", appID.String(),
			"version", a.Version,
			"score", a.Score,
			"level", a.Level,
			"fraud_critical", a.FraudCritical,
			"trigger", trigger,
		)
		return a, nil
	}
	return nil, dErrors.New(dErrors.CodeConflict, "concurrent risk assessments for application")
}

func (s *Service) nextVersion(ctx context.Context, appID id.ApplicationID) (int, error) {
	latest, err := s.store.Latest(ctx, appID)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return 1, nil
	case err != nil:
		return 0, dErrors.Wrap(err, dErrors.CodePersistence, "failed to load risk history")
	}
	return latest.Version + 1, nil
}

// Latest returns the current assessment, or nil when none exists yet.
func (s *Service) Latest(ctx context.Context, appID id.ApplicationID) (*models.Assessment, error) {
	a, err := s.store.Latest(ctx, appID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to load risk assessment")
	}
	return a, nil
}

// History returns every version, oldest first.
func (s *Service) History(ctx context.Context, appID id.ApplicationID) ([]models.Assessment, error) {
	list, err := s.store.List(ctx, appID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to list risk assessments")
	}
	return list, nil
}
