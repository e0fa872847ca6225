package remote

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/abhisek/quizcal/internal/schedule"
)

// RetryService is a decorator that retries transient errors with
// exponential backoff and jitter.
type RetryService struct {
	inner  Service
	config RetryConfig
}

// WithRetry wraps a Service with retry logic.
func WithRetry(s Service, cfg RetryConfig) Service {
	return &RetryService{inner: s, config: cfg}
}

func (r *RetryService) Create(ctx context.Context, p schedule.CreatePayload) (schedule.Item, error) {
	return retry(ctx, r, func() (schedule.Item, error) { return r.inner.Create(ctx, p) })
}

func (r *RetryService) Edit(ctx context.Context, serverID string, p schedule.Patch) (schedule.Item, error) {
	return retry(ctx, r, func() (schedule.Item, error) { return r.inner.Edit(ctx, serverID, p) })
}

func (r *RetryService) Delete(ctx context.Context, serverID string) error {
	_, err := retry(ctx, r, func() (struct{}, error) { return struct{}{}, r.inner.Delete(ctx, serverID) })
	return err
}

func (r *RetryService) List(ctx context.Context, from, to time.Time) ([]schedule.Item, error) {
	return retry(ctx, r, func() ([]schedule.Item, error) { return r.inner.List(ctx, from, to) })
}

func (r *RetryService) Name() string {
	return r.inner.Name()
}

func retry[T any](ctx context.Context, r *RetryService, call func() (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	attempts := max(r.config.MaxAttempts, 1)

	for attempt := range attempts {
		v, err := call()
		if err == nil {
			return v, nil
		}
		lastErr = err

		if !shouldRetry(err) {
			return zero, err
		}

		// Last attempt, return without sleeping.
		if attempt == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(r.backoff(attempt)):
		}
	}

	return zero, lastErr
}

// shouldRetry reports whether err is transient. Validation errors are the
// caller's to surface and are never retried.
func shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return schedule.IsTransient(err)
}

// backoff computes the wait duration for the given attempt.
func (r *RetryService) backoff(attempt int) time.Duration {
	wait := float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(attempt))
	if wait > float64(r.config.MaxWait) {
		wait = float64(r.config.MaxWait)
	}

	// Add ±20% jitter.
	jitter := wait * 0.2 * (2*rand.Float64() - 1)
	wait += jitter

	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}
