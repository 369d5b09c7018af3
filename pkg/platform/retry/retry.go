// Package retry runs an operation with bounded attempts and backoff between them.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrRetry marks a failure worth another attempt. Wrap it alongside the cause:
//
//	return fmt.Errorf("%w: %w", retry.ErrRetry, err)
var ErrRetry = errors.New("retry")

// ErrExhausted is returned (wrapping the last failure) when every attempt failed
// with ErrRetry.
var ErrExhausted = errors.New("retry attempts exhausted")

// Backoff blocks until the next attempt may start. It returns ctx.Err() if the
// context ends first.
type Backoff func(context.Context) error

// ExponentialBackoff waits initial, initial*r, initial*r^2, ... between
// attempts, capped at max when max > 0. Each call to ExponentialBackoff returns
// an independent sequence.
func ExponentialBackoff(initial time.Duration, r float64, max time.Duration) Backoff {
	interval := initial
	return func(ctx context.Context) error {
		timer := time.NewTimer(interval)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			next := time.Duration(float64(interval) * r)
			if max > 0 && next > max {
				next = max
			}
			interval = next
			return nil
		}
	}
}

// StaticBackoff waits a fixed interval between attempts.
func StaticBackoff(interval time.Duration) Backoff {
	return ExponentialBackoff(interval, 1, 0)
}

// Policy bounds a retry loop.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// Backoff builds a fresh backoff sequence for one call.
func (p Policy) Backoff() Backoff {
	m := p.Multiplier
	if m < 1 {
		m = 2
	}
	return ExponentialBackoff(p.InitialDelay, m, p.MaxDelay)
}

// Do calls f until it succeeds, returns an error not wrapping ErrRetry, or
// maxAttempts is reached. The first attempt runs immediately; b is awaited
// before each later one. It returns the last value, the number of attempts
// made, and the error.
func Do[T any](ctx context.Context, maxAttempts int, b Backoff, f func(attempt int) (T, error)) (T, int, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var (
		last T
		err  error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if berr := b(ctx); berr != nil {
				return last, attempt - 1, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempt-1, err)
			}
		}
		last, err = f(attempt)
		if err == nil {
			return last, attempt, nil
		}
		if !errors.Is(err, ErrRetry) {
			return last, attempt, err
		}
	}
	return last, maxAttempts, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, maxAttempts, err)
}
