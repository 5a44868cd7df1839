package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// BreakerState follows the classic three-state model.
type BreakerState string

const (
	StateClosed   BreakerState = "CLOSED"
	StateOpen     BreakerState = "OPEN"
	StateHalfOpen BreakerState = "HALF_OPEN"
)

// ErrCircuitOpen is returned when the breaker rejects a call without executing it.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig tunes one breaker instance.
type CircuitBreakerConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
}

func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
	}
}

// CircuitBreaker guards one upstream dependency. One long-lived instance per
// dependency, shared by all concurrent runs; held by the composition root.
type CircuitBreaker struct {
	name   string
	config CircuitBreakerConfig

	mu          sync.Mutex
	state       BreakerState
	failures    int
	lastFailure time.Time
	// In HALF_OPEN only one trial call is allowed through at a time.
	trialInFlight bool
}

func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = DefaultCircuitBreakerConfig().FailureThreshold
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = DefaultCircuitBreakerConfig().RecoveryTimeout
	}
	return &CircuitBreaker{
		name:   name,
		config: config,
		state:  StateClosed,
	}
}

func (cb *CircuitBreaker) Name() string { return cb.name }

// State returns the current state, applying the OPEN -> HALF_OPEN timeout transition.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked()
}

func (cb *CircuitBreaker) currentStateLocked() BreakerState {
	if cb.state == StateOpen && time.Since(cb.lastFailure) >= cb.config.RecoveryTimeout {
		cb.state = StateHalfOpen
		cb.trialInFlight = false
	}
	return cb.state
}

// Execute runs the operation if the breaker allows it.
// OPEN: reject immediately until RecoveryTimeout elapses, then allow exactly one
// trial call (HALF_OPEN). Trial success resets to CLOSED and zeroes the failure
// counter; trial failure re-opens.
func (cb *CircuitBreaker) Execute(ctx context.Context, operation func(ctx context.Context) error) error {
	cb.mu.Lock()
	switch cb.currentStateLocked() {
	case StateOpen:
		cb.mu.Unlock()
		return fmt.Errorf("%s: %w", cb.name, ErrCircuitOpen)
	case StateHalfOpen:
		if cb.trialInFlight {
			cb.mu.Unlock()
			return fmt.Errorf("%s: %w", cb.name, ErrCircuitOpen)
		}
		cb.trialInFlight = true
	}
	cb.mu.Unlock()

	err := operation(ctx)

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.onFailureLocked()
		return err
	}
	cb.onSuccessLocked()
	return nil
}

func (cb *CircuitBreaker) onSuccessLocked() {
	cb.failures = 0
	cb.state = StateClosed
	cb.trialInFlight = false
}

func (cb *CircuitBreaker) onFailureLocked() {
	cb.lastFailure = time.Now()
	cb.trialInFlight = false

	if cb.state == StateHalfOpen {
		cb.state = StateOpen
		return
	}

	cb.failures++
	if cb.failures >= cb.config.FailureThreshold {
		cb.state = StateOpen
	}
}

// Failures exposes the consecutive failure count for health reporting.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}
