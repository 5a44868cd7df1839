package resilience

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig drives the backoff schedule.
// Delay for attempt n (1-based) is min(BaseDelay * Multiplier^(n-1), MaxDelay).
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	// Retryable kinds. Empty means use the taxonomy default (ErrorKind.Retryable).
	RetryableKinds []ErrorKind
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Multiplier:  2.0,
	}
}

// RetryHandler retries operations whose failures classify as retryable.
// Non-retryable errors are returned after the first occurrence.
type RetryHandler struct {
	config  RetryConfig
	tracker *ErrorTracker
	// sleep is swappable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRetryHandler(config RetryConfig, tracker *ErrorTracker) *RetryHandler {
	def := DefaultRetryConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = def.MaxAttempts
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = def.BaseDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = def.MaxDelay
	}
	if config.Multiplier <= 1 {
		config.Multiplier = def.Multiplier
	}
	return &RetryHandler{
		config:  config,
		tracker: tracker,
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Delay returns the backoff delay before retrying after the given 1-based attempt.
func (r *RetryHandler) Delay(attempt int) time.Duration {
	delay := float64(r.config.BaseDelay)
	for i := 1; i < attempt; i++ {
		delay *= r.config.Multiplier
	}
	if delay > float64(r.config.MaxDelay) {
		return r.config.MaxDelay
	}
	return time.Duration(delay)
}

func (r *RetryHandler) isRetryable(kind ErrorKind) bool {
	if len(r.config.RetryableKinds) == 0 {
		return kind.Retryable()
	}
	for _, k := range r.config.RetryableKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Execute runs the operation up to MaxAttempts times, backing off between attempts.
func (r *RetryHandler) Execute(ctx context.Context, contextName string, operation func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = operation(ctx)
		if lastErr == nil {
			return nil
		}

		kind := r.record(contextName, lastErr)
		if !r.isRetryable(kind) {
			return lastErr
		}
		if attempt == r.config.MaxAttempts {
			break
		}

		if err := r.sleep(ctx, r.Delay(attempt)); err != nil {
			return err
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", r.config.MaxAttempts, lastErr)
}

func (r *RetryHandler) record(contextName string, err error) ErrorKind {
	if r.tracker != nil {
		return r.tracker.Record(contextName, err)
	}
	return Classify(err)
}
