package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"verity/internal/verification/adapters"
	"verity/internal/verification/cache"
	"verity/internal/verification/models"
	"verity/pkg/platform/retry"
)

// errCircuitOpen stops retrying once the breaker opens mid-call.
var errCircuitOpen = errors.New("circuit open")

// call describes one adapter invocation.
type call struct {
	key       string
	kind      adapters.Kind
	adapterID string
	subject   string
	// fingerprint is empty when the call must not be cached.
	fingerprint string
	ttl         time.Duration
}

func (c call) result(status models.CallStatus) models.CallResult {
	return models.CallResult{
		Key:       c.key,
		Kind:      c.kind,
		AdapterID: c.adapterID,
		Subject:   c.subject,
		Status:    status,
	}
}

// invoke runs one call through cache, breaker, limiter, per-attempt timeout
// and retry. It never returns an error: every failure settles into the
// result's status.
func invoke[T any](ctx context.Context, o *Orchestrator, c call, fn func(context.Context) (*T, error)) (models.CallResult, *T) {
	ctx, span := o.tracer.Start(ctx, "adapter."+string(c.kind), trace.WithAttributes(
		attribute.String("adapter.id", c.adapterID),
		attribute.String("adapter.subject", c.subject),
	))
	defer span.End()

	start := time.Now()
	res, v := settle(ctx, o, c, fn)

	span.SetAttributes(
		attribute.String("call.status", string(res.Status)),
		attribute.Int("call.attempts", res.Attempts),
		attribute.Bool("call.cached", res.Cached),
	)
	if res.Status == models.CallError {
		span.SetStatus(codes.Error, res.Message)
	}
	o.metrics.ObserveCall(c.adapterID, string(res.Status), time.Since(start))
	return res, v
}

func (o *Orchestrator) settleLog(ctx context.Context, c call, res models.CallResult) {
	if res.Status == models.CallResolved {
		return
	}
	o.logger.WarnContext(ctx, "adapter call did not resolve",
		"adapter", c.adapterID,
		"subject", c.subject,
		"status", res.Status,
		"attempts", res.Attempts,
		"category", res.ErrorCategory,
		"message", res.Message,
	)
}

func settle[T any](ctx context.Context, o *Orchestrator, c call, fn func(context.Context) (*T, error)) (res models.CallResult, out *T) {
	defer func() { o.settleLog(ctx, c, res) }()

	if c.fingerprint != "" && c.ttl > 0 {
		hit, ok, err := cache.GetJSON[T](ctx, o.cache, c.fingerprint)
		if err != nil {
			o.logger.WarnContext(ctx, "result cache read failed", "key", c.fingerprint, "error", err)
		}
		if ok {
			o.metrics.IncrementCacheHit(string(c.kind))
			res = c.result(models.CallResolved)
			res.Cached = true
			return res, hit
		}
	}

	breaker := o.breakerFor(c.adapterID)
	if !breaker.Allow() {
		res = c.result(models.CallUnresolved)
		res.ErrorCategory = adapters.ErrorOutage
		res.Message = errCircuitOpen.Error()
		return res, nil
	}

	v, attempts, err := retry.Do(ctx, o.retry.MaxAttempts, o.retry.Backoff(), func(attempt int) (*T, error) {
		if attempt > 1 && !breaker.Allow() {
			return nil, errCircuitOpen
		}
		if err := o.limiterFor(c.adapterID).Wait(ctx); err != nil {
			return nil, err
		}
		v, err := within(ctx, o.attemptTimeout, fn)
		if err == nil && v == nil {
			err = adapters.NewError(adapters.ErrorContractMismatch, c.adapterID, "empty response", nil)
		}
		if err != nil {
			aerr := adapters.Classify(c.adapterID, err)
			if aerr.Retryable {
				if _, change := breaker.RecordFailure(); change.Opened {
					o.metrics.IncrementBreakerOpen(c.adapterID)
					o.logger.WarnContext(ctx, "adapter circuit opened", "adapter", c.adapterID)
				}
				return nil, fmt.Errorf("%w: %w", retry.ErrRetry, aerr)
			}
			return nil, aerr
		}
		breaker.RecordSuccess()
		return v, nil
	})

	switch {
	case err == nil:
		res = c.result(models.CallResolved)
		res.Attempts = attempts
		if c.fingerprint != "" {
			if cerr := cache.SetJSON(ctx, o.cache, c.fingerprint, v, c.ttl); cerr != nil {
				o.logger.WarnContext(ctx, "result cache write failed", "key", c.fingerprint, "error", cerr)
			}
		}
		return res, v
	case errors.Is(err, errCircuitOpen):
		res = c.result(models.CallUnresolved)
		res.Attempts = attempts
		res.ErrorCategory = adapters.ErrorOutage
		res.Message = errCircuitOpen.Error()
		return res, nil
	case errors.Is(err, retry.ErrExhausted), ctx.Err() != nil:
		res = c.result(models.CallUnresolved)
	default:
		res = c.result(models.CallError)
	}
	res.Attempts = attempts
	res.ErrorCategory = adapters.CategoryOf(err)
	res.Message = err.Error()
	return res, nil
}

type answer[T any] struct {
	v   *T
	err error
}

// within bounds one attempt to timeout even when fn ignores its context. A
// late answer is discarded and the attempt reports the deadline.
func within[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (*T, error)) (*T, error) {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan answer[T], 1)
	go func() {
		v, err := fn(actx)
		done <- answer[T]{v: v, err: err}
	}()

	select {
	case a := <-done:
		if a.err == nil && actx.Err() != nil {
			return nil, actx.Err()
		}
		return a.v, a.err
	case <-actx.Done():
		return nil, actx.Err()
	}
}
