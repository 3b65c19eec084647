package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestDoSucceedsAfterRetries(t *testing.T) {
	calls := 0
	var slept []time.Duration
	p := Policy{
		Attempts: 5,
		Interval: 200 * time.Millisecond,
		Sleep: func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	}

	v, err := Do(context.Background(), p, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errBoom
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 200 * time.Millisecond}, slept)
}

func TestDoExhaustsBudget(t *testing.T) {
	calls := 0
	retries := 0
	p := Policy{
		Attempts: 4,
		Sleep:    NoSleep,
		OnRetry:  func(int, error) { retries++ },
	}

	_, err := Do(context.Background(), p, func() (string, error) {
		calls++
		return "", errBoom
	})

	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 4, calls)
	assert.Equal(t, 3, retries)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	calls := 0
	p := Policy{
		Attempts:     10,
		Sleep:        NoSleep,
		NonRetryable: func(err error) bool { return errors.Is(err, errBoom) },
	}

	_, err := Do(context.Background(), p, func() (int, error) {
		calls++
		return 0, errBoom
	})

	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, calls)
}

func TestDoNoAttempts(t *testing.T) {
	_, err := Do(context.Background(), Policy{}, func() (int, error) { return 1, nil })
	require.ErrorIs(t, err, ErrNoAttempts)
}

func TestDoCancelledWhileSleeping(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Do(ctx, Policy{Attempts: 3, Interval: time.Hour}, func() (int, error) {
		return 0, errBoom
	})

	require.ErrorIs(t, err, errBoom)
	require.ErrorIs(t, err, context.Canceled)
}
