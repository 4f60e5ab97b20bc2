package nli

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen indicates that the circuit breaker rejected a request.
// This error is returned when the circuit is open and prevents requests
// from reaching the backend.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerState represents the current state of a circuit breaker.
type CircuitBreakerState int

// Circuit breaker states.
const (
	// StateClosed allows all requests to pass through normally.
	// This is the default state when the backend is healthy.
	StateClosed CircuitBreakerState = iota

	// StateOpen rejects all requests immediately to prevent cascading failures.
	// The circuit enters this state after too many consecutive failures.
	StateOpen

	// StateHalfOpen allows limited requests to test backend recovery.
	// The circuit transitions to this state after the cooldown period expires.
	StateHalfOpen
)

// CircuitBreakerMetrics enables observability for circuit breaker behavior.
// Implementations can integrate with monitoring systems to track state
// changes, trips, and recovery patterns.
type CircuitBreakerMetrics interface {
	// RecordState updates the current circuit breaker state metric.
	RecordState(state CircuitBreakerState)

	// RecordTrip increments the circuit breaker trip counter.
	RecordTrip()

	// RecordSuccess increments the successful request counter.
	RecordSuccess()

	// RecordFailure increments the failed request counter.
	RecordFailure()
}

// CircuitBreaker implements the circuit breaker pattern. It tracks failure
// counts and opens when failures exceed the threshold, then tests recovery
// through half-open states after a cooldown.
type CircuitBreaker struct {
	mu               sync.RWMutex
	state            CircuitBreakerState
	failureCount     int
	maxFailures      int
	cooldownDuration time.Duration
	lastFailure      time.Time
	metrics          CircuitBreakerMetrics
}

// NewCircuitBreaker creates a circuit breaker with the specified
// configuration. The circuit opens after maxFailures consecutive errors and
// stays open for cooldownDuration before testing recovery.
func NewCircuitBreaker(maxFailures int, cooldownDuration time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:            StateClosed,
		maxFailures:      maxFailures,
		cooldownDuration: cooldownDuration,
	}
}

// Call executes a function through the circuit breaker.
// If the circuit is open, this returns ErrCircuitOpen immediately.
// Otherwise, it executes the function and updates circuit state based on the result.
func (cb *CircuitBreaker) Call(fn func() error) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastFailure) < cb.cooldownDuration {
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		fallthrough
	case StateHalfOpen:
		err := fn()
		if err != nil {
			cb.failureCount++
			cb.lastFailure = time.Now()
			cb.state = StateOpen
			return err
		}
		cb.failureCount = 0
		cb.state = StateClosed
		return nil
	case StateClosed:
		err := fn()
		if err != nil {
			cb.failureCount++
			cb.lastFailure = time.Now()
			if cb.failureCount >= cb.maxFailures {
				cb.state = StateOpen
			}
			return err
		}
		cb.failureCount = 0
		return nil
	}
	return nil
}

// GetState returns the current circuit breaker state.
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// circuitBreakedClassifier guards the backend with a circuit breaker so a
// failing model endpoint degrades the engine to its rule-based fallback
// quickly instead of stalling every parameter on a dead connection.
type circuitBreakedClassifier struct {
	next    CoreClassifier
	cb      *CircuitBreaker
	metrics CircuitBreakerMetrics
}

// CircuitBreakerMiddleware creates middleware that implements the circuit
// breaker pattern. The circuit opens after maxFailures consecutive errors
// and stays open for the cooldown duration before attempting recovery.
func CircuitBreakerMiddleware(maxFailures int, cooldown time.Duration) Middleware {
	return CircuitBreakerMiddlewareWithMetrics(maxFailures, cooldown, nil)
}

// CircuitBreakerMiddlewareWithMetrics creates circuit breaker middleware
// with metrics support for monitoring trip behavior in production.
func CircuitBreakerMiddlewareWithMetrics(maxFailures int, cooldown time.Duration, metrics CircuitBreakerMetrics) Middleware {
	cb := &CircuitBreaker{
		maxFailures:      maxFailures,
		cooldownDuration: cooldown,
		metrics:          metrics,
		state:            StateClosed,
	}

	return func(next CoreClassifier) CoreClassifier {
		return &circuitBreakedClassifier{
			next:    next,
			cb:      cb,
			metrics: metrics,
		}
	}
}

// DoClassify executes the request through the circuit breaker.
// If the circuit is open, this fails immediately without calling the
// backend.
func (c *circuitBreakedClassifier) DoClassify(ctx context.Context, input string, labels []string) (map[string]float64, error) {
	var scores map[string]float64

	err := c.cb.Call(func() error {
		var err error
		scores, err = c.next.DoClassify(ctx, input, labels)
		return err
	})

	if c.metrics != nil {
		switch err {
		case nil:
			c.metrics.RecordSuccess()
		case ErrCircuitOpen:
			c.metrics.RecordTrip()
		default:
			c.metrics.RecordFailure()
		}
		c.metrics.RecordState(c.cb.GetState())
	}

	return scores, err
}

// Ready forwards the readiness probe without going through the breaker; a
// failed warmup must not poison the circuit before traffic starts.
func (c *circuitBreakedClassifier) Ready(ctx context.Context) error { return c.next.Ready(ctx) }

// GetModel returns the model name from the wrapped implementation.
func (c *circuitBreakedClassifier) GetModel() string { return c.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (c *circuitBreakedClassifier) SetModel(m string) { c.next.SetModel(m) }
