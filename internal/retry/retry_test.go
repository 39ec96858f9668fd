package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/juancollazo-ch/holded-order-monitor/internal/errors"
)

func TestWithRetry(t *testing.T) {
	testCases := []struct {
		name         string
		failures     int
		failWith     error
		attempts     int
		wantErr      bool
		wantAttempts int
	}{
		{name: "first attempt succeeds", failures: 0, attempts: 3, wantAttempts: 1},
		{name: "succeeds after transient errors", failures: 2, failWith: errors.New("boom"), attempts: 3, wantAttempts: 3},
		{name: "gives up after attempts", failures: 5, failWith: errors.New("boom"), attempts: 3, wantErr: true, wantAttempts: 3},
		{
			name:         "retryable app error",
			failures:     1,
			failWith:     apperrors.ErrExternalAPI(503, "unavailable", nil),
			attempts:     3,
			wantAttempts: 2,
		},
		{
			name:         "non retryable app error stops",
			failures:     5,
			failWith:     apperrors.ErrExternalAPI(401, "unauthorized", nil),
			attempts:     3,
			wantErr:      true,
			wantAttempts: 1,
		},
		{name: "zero attempts runs once", failures: 0, attempts: 0, wantAttempts: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			err := WithRetry(context.Background(), tc.attempts, time.Millisecond, func(attempt int) error {
				calls++
				assert.Equal(t, calls, attempt)
				if calls <= tc.failures {
					return tc.failWith
				}
				return nil
			})

			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.wantAttempts, calls)
		})
	}
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := WithRetry(ctx, 3, time.Millisecond, func(int) error {
		calls++
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestWithRetry_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := WithRetry(ctx, 3, time.Hour, func(int) error {
		calls++
		cancel()
		return errors.New("boom")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
