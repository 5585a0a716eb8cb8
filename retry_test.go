package ninjadb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:      maxRetries,
		InitialBackoff:  time.Millisecond,
		BackoffMultiple: 1,
		JitterPercent:   0,
	}
}

func TestRetryOnConflictSucceedsAfterConflicts(t *testing.T) {
	calls := 0
	retries, err := retryOnConflict(context.Background(), fastRetry(5), func() error {
		calls++
		if calls < 3 {
			return ErrConflict
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, retries)
}

func TestRetryOnConflictStopsOnOtherErrors(t *testing.T) {
	boom := errors.New("disk on fire")
	calls := 0
	_, err := retryOnConflict(context.Background(), fastRetry(5), func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRetryOnConflictGivesUp(t *testing.T) {
	calls := 0
	_, err := retryOnConflict(context.Background(), fastRetry(2), func() error {
		calls++
		return ErrConflict
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 3, calls)
}

func TestRetryOnConflictHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := retryOnConflict(ctx, fastRetry(5), func() error {
		return ErrConflict
	})
	assert.Error(t, err)
}
