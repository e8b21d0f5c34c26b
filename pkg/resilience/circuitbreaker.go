// Package resilience provides fault-tolerance primitives for the calls the
// search service makes outside its own memory: the Redis query cache, the
// RPC listener of a peer searcher, and index-event publishing. It offers a
// circuit breaker, exponential-backoff retry and a context-based timeout
// wrapper.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the phase of a circuit breaker. The numeric values are exported
// as the circuit_breaker_state gauge.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// CircuitBreakerConfig controls when a breaker trips and how it recovers.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit. Default 5.
	FailureThreshold int
	// Cooldown is how long the circuit stays open before one probe is let
	// through. Default 30s.
	Cooldown time.Duration
	// Probes is how many calls may run while half-open. Default 1.
	Probes int
	// Tolerate reports errors that prove the dependency is reachable, such
	// as a not-found answer. They count as successes. Nil tolerates none.
	Tolerate func(error) bool
	// OnStateChange is called, with the lock released, after every
	// transition.
	OnStateChange func(name string, from, to State)
}

func (c *CircuitBreakerConfig) withDefaults() {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 30 * time.Second
	}
	if c.Probes <= 0 {
		c.Probes = 1
	}
}

// CircuitBreaker fails calls fast while a dependency is down.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	inFlight int
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	cfg.withDefaults()
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
		now:    time.Now,
	}
}

// Execute runs fn unless the circuit is open. The error from fn is
// returned unchanged; ErrCircuitOpen is wrapped when fn was not run.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err == nil || (cb.cfg.Tolerate != nil && cb.cfg.Tolerate(err)))
	return err
}

// Current returns the breaker's state, moving an expired open circuit to
// half-open first.
func (cb *CircuitBreaker) Current() State {
	cb.mu.Lock()
	from, to := cb.state, cb.state
	if cb.state == StateOpen && cb.cooledDown() {
		to = cb.setLocked(StateHalfOpen)
	}
	cb.mu.Unlock()
	cb.notify(from, to)
	return to
}

// Reset closes the circuit and forgets past failures.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	from := cb.state
	to := cb.setLocked(StateClosed)
	cb.mu.Unlock()
	cb.notify(from, to)
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	from := cb.state
	var err error
	switch cb.state {
	case StateOpen:
		if !cb.cooledDown() {
			wait := cb.cfg.Cooldown - cb.now().Sub(cb.openedAt)
			err = fmt.Errorf("%w: %s (retry in %v)", ErrCircuitOpen, cb.name, wait.Round(time.Millisecond))
			break
		}
		cb.setLocked(StateHalfOpen)
		cb.inFlight = 1
	case StateHalfOpen:
		if cb.inFlight >= cb.cfg.Probes {
			err = fmt.Errorf("%w: %s (probe in flight)", ErrCircuitOpen, cb.name)
			break
		}
		cb.inFlight++
	}
	to := cb.state
	cb.mu.Unlock()
	cb.notify(from, to)
	return err
}

func (cb *CircuitBreaker) record(ok bool) {
	cb.mu.Lock()
	from := cb.state
	switch {
	case ok && cb.state == StateHalfOpen:
		cb.setLocked(StateClosed)
	case ok:
		cb.failures = 0
	case cb.state == StateHalfOpen:
		cb.setLocked(StateOpen)
	default:
		cb.failures++
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.setLocked(StateOpen)
		}
	}
	to := cb.state
	cb.mu.Unlock()
	cb.notify(from, to)
}

// setLocked moves to s and resets the counters that belong to the old
// phase. cb.mu must be held.
func (cb *CircuitBreaker) setLocked(s State) State {
	cb.state = s
	cb.inFlight = 0
	switch s {
	case StateClosed:
		cb.failures = 0
	case StateOpen:
		cb.openedAt = cb.now()
	}
	return s
}

func (cb *CircuitBreaker) cooledDown() bool {
	return cb.now().Sub(cb.openedAt) >= cb.cfg.Cooldown
}

func (cb *CircuitBreaker) notify(from, to State) {
	if from == to {
		return
	}
	if to == StateOpen {
		cb.logger.Warn("circuit opened", "from", from.String(), "threshold", cb.cfg.FailureThreshold)
	} else {
		cb.logger.Info("circuit state changed", "from", from.String(), "to", to.String())
	}
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, from, to)
	}
}
