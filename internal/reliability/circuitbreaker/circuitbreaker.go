package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// ErrOpen is returned when the circuit rejects a call outright
var ErrOpen = errors.New("circuit breaker open")

// CircuitBreaker fast-fails calls to a dependency that keeps failing. After
// failureThreshold consecutive failures the circuit opens for cooldown; the
// first call after the cooldown probes half-open, and successThreshold
// consecutive successes close it again.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            State
	failures         int
	successes        int
	lastFailure      time.Time
	failureThreshold int
	successThreshold int
	cooldown         time.Duration
}

// New creates a circuit breaker
func New(failureThreshold, successThreshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		cooldown:         cooldown,
	}
}

// Call runs fn through the breaker
func (cb *CircuitBreaker) Call(fn func() error) error {
	if !cb.allow() {
		return ErrOpen
	}

	if err := fn(); err != nil {
		cb.recordFailure()
		return err
	}

	cb.recordSuccess()
	return nil
}

// Status returns the current state
func (cb *CircuitBreaker) Status() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed, StateHalfOpen:
		return true
	default:
		if time.Since(cb.lastFailure) > cb.cooldown {
			cb.state = StateHalfOpen
			cb.failures = 0
			cb.successes = 0
			return true
		}
		return false
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.successThreshold {
			cb.state = StateClosed
			cb.failures = 0
			cb.successes = 0
		}
	case StateClosed:
		cb.failures = 0
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailure = time.Now()

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			cb.state = StateOpen
			cb.failures = 0
			cb.successes = 0
		}
	case StateHalfOpen:
		cb.state = StateOpen
		cb.failures = 0
		cb.successes = 0
	}
}
