package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/AdhubOrg/rebase-bot/internal/errors"
)

func fastRetryConfig(maxAttempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:     maxAttempts,
		InitialDelay:    time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		BackoffFactor:   2.0,
		RetryableErrors: apperrors.IsRetryableError,
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := RetryWithConfig(context.Background(), fastRetryConfig(5), func() error {
		attempts++
		if attempts < 3 {
			return apperrors.NewSourceUnavailableError("chat", errors.New("503"))
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	err := RetryWithConfig(context.Background(), fastRetryConfig(5), func() error {
		attempts++
		return apperrors.NewValidationError("bad payload")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, attempts, "validation errors are not retried")
}

func TestRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := RetryWithConfig(context.Background(), fastRetryConfig(3), func() error {
		attempts++
		return apperrors.NewSourceUnavailableError("chat", errors.New("503"))
	})

	assert.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryRespectsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithConfig(ctx, fastRetryConfig(3), func() error {
		return apperrors.NewSourceUnavailableError("chat", errors.New("503"))
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalculateDelayBackoff(t *testing.T) {
	config := RetryConfig{
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
	}

	assert.Equal(t, 100*time.Millisecond, calculateDelay(config, 0))
	assert.Equal(t, 200*time.Millisecond, calculateDelay(config, 1))
	assert.Equal(t, 400*time.Millisecond, calculateDelay(config, 2))
	assert.Equal(t, time.Second, calculateDelay(config, 10), "capped at MaxDelay")
}
