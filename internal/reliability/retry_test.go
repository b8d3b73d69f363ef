package reliability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy(maxAttempts int) *ExponentialBackoff {
	return &ExponentialBackoff{
		InitialInterval: time.Millisecond,
		MaxInterval:     4 * time.Millisecond,
		Multiplier:      2.0,
		MaxAttempts:     maxAttempts,
	}
}

func TestExponentialBackoff(t *testing.T) {
	t.Run("no retry on success", func(t *testing.T) {
		retry, _ := testPolicy(3).ShouldRetry(0, nil)
		assert.False(t, retry)
	})

	t.Run("no retry past the attempt budget", func(t *testing.T) {
		policy := testPolicy(3)
		retry, _ := policy.ShouldRetry(2, errors.New("boom"))
		assert.True(t, retry)

		retry, _ = policy.ShouldRetry(3, errors.New("boom"))
		assert.False(t, retry)
	})

	t.Run("delays grow and are capped without jitter", func(t *testing.T) {
		policy := testPolicy(10)

		_, first := policy.ShouldRetry(0, errors.New("boom"))
		_, second := policy.ShouldRetry(1, errors.New("boom"))
		_, far := policy.ShouldRetry(9, errors.New("boom"))

		assert.Equal(t, time.Millisecond, first)
		assert.Equal(t, 2*time.Millisecond, second)
		assert.Equal(t, 4*time.Millisecond, far)
	})

	t.Run("jitter stays within 15 percent of the base delay", func(t *testing.T) {
		policy := testPolicy(10)
		policy.Jitter = true

		for range 20 {
			_, delay := policy.ShouldRetry(0, errors.New("boom"))
			assert.GreaterOrEqual(t, delay, time.Duration(0.85*float64(time.Millisecond)))
			assert.LessOrEqual(t, delay, time.Duration(1.15*float64(time.Millisecond)))
		}
	})
}

func TestRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("a first-attempt success never retries", func(t *testing.T) {
		calls := 0
		err := Retry(ctx, testPolicy(3), func() error {
			calls++
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries until the call succeeds", func(t *testing.T) {
		calls := 0
		err := Retry(ctx, testPolicy(3), func() error {
			calls++
			if calls < 3 {
				return errors.New("boom")
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("exhaustion returns the last error", func(t *testing.T) {
		lastErr := errors.New("still broken")
		calls := 0
		err := Retry(ctx, testPolicy(2), func() error {
			calls++
			return lastErr
		})

		assert.ErrorIs(t, err, lastErr)
		assert.Equal(t, 3, calls)
	})

	t.Run("a cancelled context stops the loop", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		err := Retry(cancelled, testPolicy(3), func() error {
			return errors.New("boom")
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
