package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noWait(context.Context) error { return nil }

func TestDo(t *testing.T) {
	t.Run("returns on first success", func(t *testing.T) {
		v, n, err := Do(context.Background(), 3, noWait, func(int) (string, error) {
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", v)
		assert.Equal(t, 1, n)
	})

	t.Run("retries only ErrRetry failures", func(t *testing.T) {
		calls := 0
		_, n, err := Do(context.Background(), 5, noWait, func(int) (int, error) {
			calls++
			return 0, errors.New("definitive")
		})
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrExhausted))
		assert.Equal(t, 1, n)
		assert.Equal(t, 1, calls)
	})

	t.Run("exhausts after max attempts and keeps the cause", func(t *testing.T) {
		cause := errors.New("timeout")
		_, n, err := Do(context.Background(), 3, noWait, func(int) (int, error) {
			return 0, fmt.Errorf("%w: %w", ErrRetry, cause)
		})
		require.ErrorIs(t, err, ErrExhausted)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, 3, n)
	})

	t.Run("succeeds on a later attempt", func(t *testing.T) {
		v, n, err := Do(context.Background(), 3, noWait, func(attempt int) (int, error) {
			if attempt < 3 {
				return 0, ErrRetry
			}
			return attempt, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, v)
		assert.Equal(t, 3, n)
	})

	t.Run("stops when the backoff context ends", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, n, err := Do(ctx, 3, StaticBackoff(time.Hour), func(int) (int, error) {
			return 0, ErrRetry
		})
		require.ErrorIs(t, err, ErrExhausted)
		assert.Equal(t, 1, n)
	})
}

func TestExponentialBackoff_GrowsAndCaps(t *testing.T) {
	b := ExponentialBackoff(time.Millisecond, 2, 3*time.Millisecond)
	start := time.Now()
	for range 4 {
		require.NoError(t, b(context.Background()))
	}
	// 1 + 2 + 3 + 3 ms
	assert.GreaterOrEqual(t, time.Since(start), 9*time.Millisecond)
}
