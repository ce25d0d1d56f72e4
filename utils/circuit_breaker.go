package utils

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

// CircuitBreaker guards calls to an external service. After
// maxConsecutiveFailures the circuit opens and calls fail fast for
// cooldown; the first call after the cooldown probes the service again.
type CircuitBreaker struct {
	name                   string
	maxConsecutiveFailures int
	cooldown               time.Duration

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
}

func NewCircuitBreaker(name string, maxConsecutiveFailures int, cooldown time.Duration) *CircuitBreaker {
	if maxConsecutiveFailures <= 0 {
		maxConsecutiveFailures = 5
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &CircuitBreaker{
		name:                   name,
		maxConsecutiveFailures: maxConsecutiveFailures,
		cooldown:               cooldown,
	}
}

// Do runs req unless the circuit is open. The req error propagates as-is;
// ErrCircuitOpen means req was never invoked.
func (cb *CircuitBreaker) Do(req func() error) error {
	if err := cb.before(); err != nil {
		return err
	}

	err := req()
	cb.after(err == nil)
	return err
}

func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == BreakerOpen {
		if time.Since(cb.openedAt) < cb.cooldown {
			return ErrCircuitOpen
		}
		cb.state = BreakerHalfOpen
	}
	return nil
}

func (cb *CircuitBreaker) after(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if success {
		cb.state = BreakerClosed
		cb.failures = 0
		return
	}

	cb.failures++
	if cb.state == BreakerHalfOpen || cb.failures >= cb.maxConsecutiveFailures {
		cb.state = BreakerOpen
		cb.openedAt = time.Now()
		cb.failures = 0
	}
}
