package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quick() RetryConfig {
	return RetryConfig{MaxAttempts: 4, InitialDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
}

func TestRetrySucceedsEventually(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "flaky", quick(), func() error {
		calls++
		if calls < 3 {
			return errDown
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryGivesUp(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "down", quick(), func() error {
		calls++
		return errDown
	})
	assert.ErrorIs(t, err, errDown)
	assert.Contains(t, err.Error(), "giving up after 4 attempts")
	assert.Equal(t, 4, calls)
}

func TestRetryStopsOnPermanent(t *testing.T) {
	bad := errors.New("cannot encode")
	calls := 0
	err := Retry(context.Background(), "encode", quick(), func() error {
		calls++
		return Permanent(bad)
	})
	assert.Same(t, bad, err)
	assert.Equal(t, 1, calls)
	assert.NoError(t, Permanent(nil))
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 10, InitialDelay: time.Hour}
	err := Retry(ctx, "slow", cfg, func() error {
		cancel()
		return errDown
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryDelayIsBounded(t *testing.T) {
	cfg := RetryConfig{InitialDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond}
	for attempt := 1; attempt <= 10; attempt++ {
		d := cfg.Delay(attempt)
		assert.GreaterOrEqual(t, d, 5*time.Millisecond)
		assert.LessOrEqual(t, d, 50*time.Millisecond)
	}
	assert.Equal(t, 50*time.Millisecond, cfg.Delay(10))
}

func TestWithTimeout(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, "load tutorial", func(context.Context) error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "load tutorial")

	require.NoError(t, WithTimeout(context.Background(), 0, "no limit", func(context.Context) error { return nil }))
}
