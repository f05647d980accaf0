package warehouse

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/erp/fulfillment-sync/internal/domain/fulfillment"
)

// RetryPolicy controls the retry-with-backoff wrapper
type RetryPolicy struct {
	// MaxRetries is the number of additional attempts after the first
	MaxRetries int
	// BaseDelay is the delay before the first retry; subsequent delays
	// grow as BaseDelay * 2^attempt
	BaseDelay time.Duration
}

// DefaultRetryPolicy returns the policy used for remote order creation
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
	}
}

// RetryResult reports the outcome of a retried operation.
// Attempts is surfaced regardless of outcome.
type RetryResult struct {
	Attempts int
	Err      error
}

// Success returns true if the operation eventually succeeded
func (r RetryResult) Success() bool {
	return r.Err == nil
}

// isRetryable classifies a failure. Validation-class rejections and
// authentication failures are never retried; everything else
// (network, timeout, 5xx) is considered transient.
func isRetryable(err error) bool {
	if errors.Is(err, fulfillment.ErrProviderRejected) {
		return false
	}
	if errors.Is(err, fulfillment.ErrProviderAuthFailed) {
		return false
	}
	return true
}

// WithRetry attempts op, retrying transient failures up to
// policy.MaxRetries times with exponential backoff.
func WithRetry(ctx context.Context, policy RetryPolicy, logger *zap.Logger, label string, op func(ctx context.Context) error) RetryResult {
	result := RetryResult{}

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := policy.BaseDelay * time.Duration(1<<uint(attempt-1))
			logger.Info("retrying remote operation",
				zap.String("operation", label),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
			)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				result.Err = ctx.Err()
				return result
			case <-timer.C:
			}
		}

		result.Attempts++
		err := op(ctx)
		if err == nil {
			result.Err = nil
			return result
		}
		result.Err = err

		if !isRetryable(err) {
			logger.Warn("remote operation failed permanently",
				zap.String("operation", label),
				zap.Int("attempts", result.Attempts),
				zap.Error(err),
			)
			return result
		}

		logger.Warn("remote operation failed",
			zap.String("operation", label),
			zap.Int("attempts", result.Attempts),
			zap.Error(err),
		)
	}

	return result
}
