// circuitbreaker.go - Circuit breaker guarding the headless browser.
//
// When Chrome crashes or a remote browser goes away every markup-based
// conversion fails the same way; the breaker turns that into fast 503s and
// lets /ready take the instance out of rotation until a probe succeeds.
package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"doc-convert/internal/logging"
	"doc-convert/internal/render"
)

// CircuitState represents the current state of a circuit breaker.
type CircuitState int

const (
	// StateClosed: Circuit is closed, requests flow normally
	StateClosed CircuitState = iota
	// StateOpen: Circuit is open, requests fail fast
	StateOpen
	// StateHalfOpen: Circuit is testing if service recovered
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var (
	// ErrCircuitOpen is returned when circuit breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrTooManyRequests is returned when half-open circuit receives too many requests.
	ErrTooManyRequests = errors.New("too many requests while circuit is half-open")
)

// CircuitBreaker implements the circuit breaker pattern.
type CircuitBreaker struct {
	mu sync.RWMutex

	// Configuration
	maxFailures uint32        // Failures before opening circuit
	timeout     time.Duration // Time to wait before attempting recovery
	maxHalfOpen uint32        // Max concurrent requests in half-open state

	// State
	state            CircuitState
	failures         uint32
	lastFailureTime  time.Time
	halfOpenRequests uint32

	// Statistics
	totalRequests    uint64
	successRequests  uint64
	failedRequests   uint64
	rejectedRequests uint64
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(maxFailures uint32, timeout time.Duration) *CircuitBreaker {
	if maxFailures == 0 {
		maxFailures = 1
	}
	return &CircuitBreaker{
		maxFailures: maxFailures,
		timeout:     timeout,
		maxHalfOpen: 1, // Allow 1 request to test recovery
		state:       StateClosed,
	}
}

// Execute runs the given function with circuit breaker protection. Errors
// for which counts returns false are passed through without touching the
// failure count; a nil counts treats every error as a failure.
func (cb *CircuitBreaker) Execute(fn func() error, counts func(error) bool) error {
	cb.mu.Lock()
	cb.totalRequests++

	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastFailureTime) <= cb.timeout {
			cb.rejectedRequests++
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.halfOpenRequests = 0
		logging.Info(context.Background(), "circuit_breaker_half_open", logging.Fields{
			"timeout_elapsed": cb.timeout.String(),
		})
		fallthrough

	case StateHalfOpen:
		// Limit concurrent requests in half-open state
		if cb.halfOpenRequests >= cb.maxHalfOpen {
			cb.rejectedRequests++
			cb.mu.Unlock()
			return ErrTooManyRequests
		}
		cb.halfOpenRequests++
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateHalfOpen && cb.halfOpenRequests > 0 {
		cb.halfOpenRequests--
	}
	switch {
	case err == nil:
		cb.onSuccess()
	case counts == nil || counts(err):
		cb.onFailure()
	}
	return err
}

// onSuccess handles successful request.
func (cb *CircuitBreaker) onSuccess() {
	cb.successRequests++
	cb.failures = 0

	if cb.state == StateHalfOpen {
		// Recovery successful, close circuit
		cb.state = StateClosed
		logging.Info(context.Background(), "circuit_breaker_closed", logging.Fields{
			"reason": "recovery_successful",
		})
	}
}

// onFailure handles failed request.
func (cb *CircuitBreaker) onFailure() {
	cb.failedRequests++
	cb.failures++
	cb.lastFailureTime = time.Now()

	if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
		if cb.state != StateOpen {
			cb.state = StateOpen
			logging.Warn(context.Background(), "circuit_breaker_opened", logging.Fields{
				"failures":     cb.failures,
				"max_failures": cb.maxFailures,
				"timeout":      cb.timeout.String(),
			})
		}
	}
}

// GetState returns the current circuit state (thread-safe). An open circuit
// whose timeout has elapsed reports half-open, since the next call will probe.
func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	if cb.state == StateOpen && time.Since(cb.lastFailureTime) > cb.timeout {
		return StateHalfOpen
	}
	return cb.state
}

// GetStats returns circuit breaker statistics.
func (cb *CircuitBreaker) GetStats() CircuitBreakerStats {
	state := cb.GetState()

	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return CircuitBreakerStats{
		State:            state.String(),
		Failures:         cb.failures,
		TotalRequests:    cb.totalRequests,
		SuccessRequests:  cb.successRequests,
		FailedRequests:   cb.failedRequests,
		RejectedRequests: cb.rejectedRequests,
		LastFailureTime:  cb.lastFailureTime,
	}
}

// Reset manually resets the circuit breaker to closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.halfOpenRequests = 0

	logging.Info(context.Background(), "circuit_breaker_reset", logging.Fields{
		"manual": true,
	})
}

// CircuitBreakerStats holds circuit breaker statistics.
type CircuitBreakerStats struct {
	State            string    `json:"state"`
	Failures         uint32    `json:"failures"`
	TotalRequests    uint64    `json:"total_requests"`
	SuccessRequests  uint64    `json:"success_requests"`
	FailedRequests   uint64    `json:"failed_requests"`
	RejectedRequests uint64    `json:"rejected_requests"`
	LastFailureTime  time.Time `json:"last_failure_time"`
}

// GuardedRenderer routes every render through a circuit breaker. A render
// cut short by its caller's context says nothing about the browser, so
// those errors do not count as failures.
type GuardedRenderer struct {
	next    render.Renderer
	breaker *CircuitBreaker
}

// NewGuardedRenderer wraps next with cb.
func NewGuardedRenderer(next render.Renderer, cb *CircuitBreaker) *GuardedRenderer {
	return &GuardedRenderer{next: next, breaker: cb}
}

func (g *GuardedRenderer) RenderFile(ctx context.Context, htmlPath string) ([]byte, error) {
	var pdf []byte
	err := g.breaker.Execute(func() error {
		var err error
		pdf, err = g.next.RenderFile(ctx, htmlPath)
		return err
	}, func(err error) bool {
		return ctx.Err() == nil &&
			!errors.Is(err, context.Canceled) &&
			!errors.Is(err, context.DeadlineExceeded)
	})
	if err != nil {
		return nil, err
	}
	return pdf, nil
}
