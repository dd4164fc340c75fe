package agent

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// ErrCircuitOpen reports that the circuit breaker is blocking attempts.
// Callers should treat this as retryable later, not as a permanent failure.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// RetryConfig controls exponential backoff behaviour.
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	ExponentialBase float64
	Jitter          bool
}

// DefaultRetryConfig mirrors the defaults used for transient API failures.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialDelay:    time.Second,
		MaxDelay:        30 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          true,
	}
}

// BreakerState is the circuit breaker position.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half-open"
)

// CircuitBreaker trips open after a threshold of consecutive failures and
// self-heals after a cooldown. Counters are mutex-guarded so one instance
// can be shared across concurrent operations.
type CircuitBreaker struct {
	mu               sync.Mutex
	failureThreshold int
	timeout          time.Duration
	failures         int
	lastFailure      time.Time
	state            BreakerState
}

// NewCircuitBreaker creates a closed breaker. A threshold of n means the
// breaker opens the moment failures reach n.
func NewCircuitBreaker(failureThreshold int, timeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		timeout:          timeout,
		state:            BreakerClosed,
	}
}

// CanAttempt reports whether an operation may proceed. While open, it keeps
// returning false until the cooldown elapses, then transitions to half-open
// and permits a single probe.
func (cb *CircuitBreaker) CanAttempt() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerOpen:
		if time.Since(cb.lastFailure) >= cb.timeout {
			cb.state = BreakerHalfOpen
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess resets the breaker to closed.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.state = BreakerClosed
}

// RecordFailure increments the counter and opens the breaker once the
// threshold is reached. Failures are not reset on half-open, so a failed
// probe immediately re-opens.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures++
	cb.lastFailure = time.Now()
	if cb.failures >= cb.failureThreshold {
		cb.state = BreakerOpen
	}
}

// State returns the current position.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset forces the breaker back to closed regardless of current state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.lastFailure = time.Time{}
	cb.state = BreakerClosed
}

// RetryWithBackoff runs op up to cfg.MaxAttempts times with exponential
// backoff between attempts. The optional breaker is consulted before every
// attempt; when it blocks, execution fails with ErrCircuitOpen without
// calling op. No sleep happens after the final attempt.
func RetryWithBackoff(ctx context.Context, op func(ctx context.Context) (map[string]any, error), cfg RetryConfig, breaker *CircuitBreaker) (map[string]any, error) {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.ExponentialBase <= 0 {
		cfg.ExponentialBase = 2.0
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if breaker != nil && !breaker.CanAttempt() {
			return nil, fmt.Errorf("%w (after %d failures)", ErrCircuitOpen, breaker.Failures())
		}

		result, err := op(ctx)
		if err == nil {
			if breaker != nil {
				breaker.RecordSuccess()
			}
			return result, nil
		}

		lastErr = err
		if breaker != nil {
			breaker.RecordFailure()
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		select {
		case <-time.After(backoffDelay(cfg, attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// backoffDelay computes the delay before retry n (0-indexed):
// min(initial*base^n, max), with full jitter in [0.5, 1.0) when enabled.
// The 0.5 floor avoids degenerate near-zero delays.
func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.ExponentialBase, float64(attempt))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.Jitter {
		delay *= 0.5 + rand.Float64()*0.5
	}
	return time.Duration(delay)
}
