// Package orchestrator runs the adapter calls a workflow step needs and folds
// their results into a verdict.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"verity/internal/platform/config"
	"verity/internal/verification/adapters"
	"verity/internal/verification/cache"
	"verity/internal/verification/metrics"
	"verity/internal/verification/models"
	wfmodels "verity/internal/workflow/models"
	"verity/pkg/platform/circuit"
	"verity/pkg/platform/retry"
)

type Orchestrator struct {
	adapters       adapters.Set
	cache          cache.Store
	ttl            config.CacheTTL
	retry          retry.Policy
	attemptTimeout time.Duration
	concurrency    int
	breakers       map[string]*circuit.Breaker
	limiters       map[string]*rate.Limiter

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	clock   func() time.Time
}

type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// WithBreakerClock sets the breakers' time source; used by tests.
func WithBreakerClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.clock = now }
}

// New provisions one breaker and one limiter per adapter.
func New(set adapters.Set, store cache.Store, cfg config.PipelineConfig, ttl config.CacheTTL, opts ...Option) (*Orchestrator, error) {
	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("adapter set: %w", err)
	}
	burst := max(cfg.AdapterBurst, 1)
	limit := rate.Limit(cfg.AdapterRPS)
	if cfg.AdapterRPS <= 0 {
		limit = rate.Inf
	}

	o := &Orchestrator{
		adapters:       set,
		cache:          store,
		ttl:            ttl,
		attemptTimeout: cfg.AttemptTimeout,
		concurrency:    max(cfg.MaxConcurrency, 1),
		retry: retry.Policy{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: cfg.InitialBackoff,
			Multiplier:   cfg.BackoffFactor,
			MaxDelay:     cfg.MaxBackoff,
		},
		breakers: make(map[string]*circuit.Breaker),
		limiters: make(map[string]*rate.Limiter),
		logger:   slog.Default(),
		tracer:   otel.Tracer("verity/verification"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.attemptTimeout <= 0 {
		o.attemptTimeout = 5 * time.Second
	}

	breakerOpts := []circuit.Option{
		circuit.WithFailureThreshold(cfg.BreakerFailures),
		circuit.WithCooldown(cfg.BreakerCooldown),
	}
	if o.clock != nil {
		breakerOpts = append(breakerOpts, circuit.WithClock(o.clock))
	}
	for _, adapterID := range set.IDs() {
		o.breakers[adapterID] = circuit.New(adapterID, breakerOpts...)
		o.limiters[adapterID] = rate.NewLimiter(limit, burst)
	}
	return o, nil
}

func (o *Orchestrator) breakerFor(adapterID string) *circuit.Breaker { return o.breakers[adapterID] }

func (o *Orchestrator) limiterFor(adapterID string) *rate.Limiter { return o.limiters[adapterID] }

// Execute issues the step's calls as one bounded task group and returns only
// after every call has settled.
func (o *Orchestrator) Execute(ctx context.Context, in models.StepInput) models.StepOutcome {
	ctx, span := o.tracer.Start(ctx, "step."+string(in.Step), trace.WithAttributes(
		attribute.String("application.id", in.ApplicationID.String()),
	))
	defer span.End()

	var out models.StepOutcome
	switch in.Step {
	case wfmodels.StepDocumentUpload:
		out = uploadOutcome(in)
	case wfmodels.StepManualReview:
		out = reviewOutcome(in)
	default:
		tasks := o.plan(in)
		if len(tasks) == 0 {
			out = models.StepOutcome{Verdict: wfmodels.VerdictNotApplicable, Reasons: []string{"no calls apply"}}
			break
		}
		results := o.run(ctx, tasks)
		out = Judge(in.Criteria, results)
	}
	out.Step = in.Step

	span.SetAttributes(attribute.String("step.verdict", string(out.Verdict)), attribute.Int("step.calls", len(out.Results)))
	o.metrics.IncrementVerdict(string(in.Step), string(out.Verdict))
	o.logger.InfoContext(ctx, "step executed",
		"event", "step.executed",
		"application_id", in.ApplicationID.String(),
		"step", in.Step,
		"verdict", out.Verdict,
		"calls", len(out.Results),
	)
	return out
}

// task is one deferred call; it settles into a result.
type task func(ctx context.Context) models.CallResult

func (o *Orchestrator) run(ctx context.Context, tasks []task) []models.CallResult {
	results := make([]models.CallResult, len(tasks))
	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i, t := range tasks {
		g.Go(func() error {
			results[i] = t(ctx)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (o *Orchestrator) plan(in models.StepInput) []task {
	switch in.Step {
	case wfmodels.StepDocumentVerification:
		return o.documentTasks(in)
	case wfmodels.StepIdentityVerification:
		return o.biometricTasks(in)
	case wfmodels.StepRegistryVerification:
		return o.registryTasks(in)
	case wfmodels.StepRiskAssessment:
		return o.fraudTasks(in)
	}
	return nil
}

func uploadOutcome(in models.StepInput) models.StepOutcome {
	if len(in.Missing) > 0 {
		return models.StepOutcome{Verdict: wfmodels.VerdictFail, Reasons: in.Missing}
	}
	return models.StepOutcome{Verdict: wfmodels.VerdictPass}
}

func reviewOutcome(in models.StepInput) models.StepOutcome {
	var reasons []string
	if in.ManualReview {
		reasons = append(reasons, "flagged_for_review")
	}
	if in.ElevatedRisk {
		reasons = append(reasons, "elevated_risk")
	}
	if len(reasons) > 0 {
		return models.StepOutcome{Verdict: wfmodels.VerdictNeedsReview, Reasons: reasons}
	}
	return models.StepOutcome{Verdict: wfmodels.VerdictNotApplicable}
}
