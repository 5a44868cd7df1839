package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindUnknown},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"timeout text", errors.New("request timeout after 5s"), KindTimeout},
		{"rate limit", errors.New("upstream returned status 429"), KindRateLimit},
		{"too many requests", errors.New("too many requests"), KindRateLimit},
		{"quota", errors.New("monthly quota exceeded"), KindQuota},
		{"bad gateway", errors.New("unexpected status 502"), KindServiceUnavailable},
		{"unavailable", errors.New("service unavailable"), KindServiceUnavailable},
		{"refused", errors.New("dial tcp: connection refused"), KindConnection},
		{"dns", errors.New("lookup example.com: no such host"), KindNetwork},
		{"other", errors.New("invalid payload"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRetryableKinds(t *testing.T) {
	retryable := []ErrorKind{KindTimeout, KindNetwork, KindRateLimit, KindServiceUnavailable, KindConnection}
	for _, k := range retryable {
		if !k.Retryable() {
			t.Errorf("%v should be retryable", k)
		}
	}
	for _, k := range []ErrorKind{KindQuota, KindUnknown} {
		if k.Retryable() {
			t.Errorf("%v should not be retryable", k)
		}
	}
}

func TestRetryDelaySchedule(t *testing.T) {
	r := NewRetryHandler(RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    1 * time.Second,
		Multiplier:  2.0,
	}, nil)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second}, // capped at MaxDelay
	}

	for _, tt := range tests {
		if got := r.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRetryExecuteRetriesTransientFailures(t *testing.T) {
	r := NewRetryHandler(RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond}, NewErrorTracker())
	r.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	calls := 0
	err := r.Execute(context.Background(), "test", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryExecuteStopsOnNonRetryable(t *testing.T) {
	r := NewRetryHandler(RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond}, nil)
	r.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	calls := 0
	wantErr := errors.New("invalid payload")
	err := r.Execute(context.Background(), "test", func(ctx context.Context) error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Execute() error = %v, want %v", err, wantErr)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (non-retryable should not retry)", calls)
	}
}

func TestRetryExecuteExhaustsAttempts(t *testing.T) {
	tracker := NewErrorTracker()
	r := NewRetryHandler(RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond}, tracker)
	r.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	calls := 0
	err := r.Execute(context.Background(), "search", func(ctx context.Context) error {
		calls++
		return errors.New("request timeout")
	})
	if err == nil {
		t.Fatal("Execute() expected error")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if got := tracker.Count("search", KindTimeout); got != 3 {
		t.Errorf("tracker count = %d, want 3", got)
	}
}

func TestRetryExecuteHonorsCancellation(t *testing.T) {
	r := NewRetryHandler(RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Execute(ctx, "test", func(ctx context.Context) error {
		t.Fatal("operation should not run with cancelled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
}

func TestCircuitBreakerOpensAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{FailureThreshold: 3, RecoveryTimeout: time.Minute})
	fail := func(ctx context.Context) error { return errors.New("boom") }

	for i := 0; i < 3; i++ {
		if state := cb.State(); state != StateClosed {
			t.Fatalf("state before threshold = %v, want CLOSED", state)
		}
		cb.Execute(context.Background(), fail)
	}

	if state := cb.State(); state != StateOpen {
		t.Fatalf("state after threshold = %v, want OPEN", state)
	}

	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		t.Fatal("operation should not run while open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() error = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond})
	cb.Execute(context.Background(), func(ctx context.Context) error { return errors.New("boom") })

	if state := cb.State(); state != StateOpen {
		t.Fatalf("state = %v, want OPEN", state)
	}

	time.Sleep(15 * time.Millisecond)

	if state := cb.State(); state != StateHalfOpen {
		t.Fatalf("state after recovery timeout = %v, want HALF_OPEN", state)
	}

	// Trial success closes the breaker and resets the counter.
	if err := cb.Execute(context.Background(), func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("trial Execute() error = %v", err)
	}
	if state := cb.State(); state != StateClosed {
		t.Errorf("state after trial success = %v, want CLOSED", state)
	}
	if cb.Failures() != 0 {
		t.Errorf("failures = %d, want 0 after reset", cb.Failures())
	}
}

func TestCircuitBreakerTrialFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond})
	cb.Execute(context.Background(), func(ctx context.Context) error { return errors.New("boom") })

	time.Sleep(15 * time.Millisecond)

	cb.Execute(context.Background(), func(ctx context.Context) error { return errors.New("still down") })
	if state := cb.State(); state != StateOpen {
		t.Errorf("state after trial failure = %v, want OPEN", state)
	}
}

func TestErrorTrackerSnapshot(t *testing.T) {
	tracker := NewErrorTracker()
	tracker.Record("search", errors.New("request timeout"))
	tracker.Record("search", errors.New("another timeout"))
	tracker.Record("llm", fmt.Errorf("status 429"))

	snap := tracker.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot size = %d, want 2", len(snap))
	}
	if got := tracker.Count("search", KindTimeout); got != 2 {
		t.Errorf("search timeout count = %d, want 2", got)
	}
	if got := tracker.Count("llm", KindRateLimit); got != 1 {
		t.Errorf("llm rate limit count = %d, want 1", got)
	}
}
