package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsOnLastAttempt(t *testing.T) {
	calls := 0
	attempts, err := Do(context.Background(), Policy{MaxAttempts: 5, Delay: time.Millisecond}, "extract", func(_ context.Context, attempt int) error {
		calls++
		if attempt < 5 {
			return errors.New("service unavailable")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 5, attempts)
	assert.Equal(t, 5, calls)
}

func TestDoReportsExhaustion(t *testing.T) {
	errBoom := errors.New("boom")
	attempts, err := Do(context.Background(), Policy{MaxAttempts: 3}, "append", func(context.Context, int) error {
		return errBoom
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.ErrorIs(t, err, errBoom)

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, "append", exhausted.Operation)
	assert.Equal(t, 3, exhausted.Attempts)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	errPermanent := errors.New("permanent")
	calls := 0
	attempts, err := Do(context.Background(), Policy{
		MaxAttempts: 5,
		Classify: func(error) Classification {
			return Classification{Retryable: false, RecordFailure: true}
		},
	}, "op", func(context.Context, int) error {
		calls++
		return errPermanent
	})

	assert.ErrorIs(t, err, errPermanent)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestDoHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts, err := Do(ctx, Policy{MaxAttempts: 3}, "op", func(context.Context, int) error {
		t.Fatal("operation must not run with a cancelled context")
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, attempts)
}

func TestDoDefaultsToSingleAttempt(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{}, "", func(context.Context, int) error {
		calls++
		return errors.New("nope")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecutorOpensCircuitAfterFailures(t *testing.T) {
	exec := NewExecutor(Policy{MaxAttempts: 1}, BreakerConfig{
		Enabled:          true,
		MinRequests:      2,
		FailureRatio:     1,
		OpenTimeout:      time.Minute,
		HalfOpenMaxCalls: 1,
	})

	errTemp := errors.New("temporary")
	for i := 0; i < 2; i++ {
		_, err := exec.Execute(context.Background(), "extract", func(context.Context, int) error {
			return errTemp
		})
		require.ErrorIs(t, err, errTemp)
	}

	attempts, err := exec.Execute(context.Background(), "extract", func(context.Context, int) error {
		t.Fatal("circuit should be open and must not call operation")
		return nil
	})
	assert.True(t, IsCircuitOpen(err))
	assert.Equal(t, 0, attempts)
}

func TestExecutorWithoutBreakerRetries(t *testing.T) {
	exec := NewExecutor(Policy{MaxAttempts: 2}, BreakerConfig{Enabled: false})

	calls := 0
	attempts, err := exec.Execute(context.Background(), "op", func(context.Context, int) error {
		calls++
		if calls == 1 {
			return errors.New("first")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}
