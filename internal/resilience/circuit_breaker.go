package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

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
	default:
		return "unknown"
	}
}

type CircuitBreakerConfig struct {
	Name string
	// MaxFailures consecutive failures open the breaker.
	MaxFailures int
	// Timeout is how long the breaker stays open before admitting trial calls.
	Timeout time.Duration
	// HalfOpenMax successful trial calls close the breaker again. At most this
	// many trial calls run at once while half-open.
	HalfOpenMax int
	// OnStateChange runs after the transition, outside the breaker's lock.
	OnStateChange func(name string, from, to State)
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// CircuitBreaker guards one telemetry signal. While open, calls fail fast
// with ErrCircuitOpen and the autoscaler skips the cycle instead of waiting
// out every retry.
type CircuitBreaker struct {
	name          string
	maxFailures   int
	timeout       time.Duration
	halfOpenMax   int
	onStateChange func(name string, from, to State)
	now           func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	trials   int
	inFlight int
	openedAt time.Time
}

// Snapshot is a point-in-time view of a breaker.
type Snapshot struct {
	Name     string
	State    State
	Failures int
	OpenedAt time.Time
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &CircuitBreaker{
		name:          cfg.Name,
		maxFailures:   cfg.MaxFailures,
		timeout:       cfg.Timeout,
		halfOpenMax:   cfg.HalfOpenMax,
		onStateChange: cfg.OnStateChange,
		now:           cfg.Clock,
		state:         StateClosed,
	}
}

func (cb *CircuitBreaker) Name() string {
	return cb.name
}

func (cb *CircuitBreaker) Execute(fn func() error) error {
	return cb.ExecuteContext(context.Background(), func(context.Context) error {
		return fn()
	})
}

// ExecuteContext runs fn if the breaker admits it. Failures caused by the
// caller cancelling ctx are not counted against the breaker.
func (cb *CircuitBreaker) ExecuteContext(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	trial, err := cb.admit()
	if err != nil {
		return err
	}

	err = fn(ctx)

	switch {
	case err == nil:
		cb.record(trial, true)
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		cb.release(trial)
	default:
		cb.record(trial, false)
	}
	return err
}

// admit decides whether a call may run and whether it counts as a
// half-open trial.
func (cb *CircuitBreaker) admit() (trial bool, err error) {
	cb.mu.Lock()
	var change func()
	defer func() {
		cb.mu.Unlock()
		if change != nil {
			change()
		}
	}()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.openedAt) < cb.timeout {
			return false, fmt.Errorf("%w: %s", ErrCircuitOpen, cb.name)
		}
		change = cb.transitionLocked(StateHalfOpen)
	}

	if cb.state == StateHalfOpen {
		if cb.inFlight >= cb.halfOpenMax {
			return false, fmt.Errorf("%w: %s (half-open)", ErrCircuitOpen, cb.name)
		}
		cb.inFlight++
		return true, nil
	}
	return false, nil
}

func (cb *CircuitBreaker) release(trial bool) {
	if !trial {
		return
	}
	cb.mu.Lock()
	if cb.inFlight > 0 {
		cb.inFlight--
	}
	cb.mu.Unlock()
}

func (cb *CircuitBreaker) record(trial, success bool) {
	cb.mu.Lock()
	var change func()
	defer func() {
		cb.mu.Unlock()
		if change != nil {
			change()
		}
	}()

	if trial && cb.inFlight > 0 {
		cb.inFlight--
	}

	switch cb.state {
	case StateClosed:
		if success {
			cb.failures = 0
			return
		}
		cb.failures++
		if cb.failures >= cb.maxFailures {
			change = cb.transitionLocked(StateOpen)
		}

	case StateHalfOpen:
		if !success {
			change = cb.transitionLocked(StateOpen)
			return
		}
		cb.trials++
		if cb.trials >= cb.halfOpenMax {
			change = cb.transitionLocked(StateClosed)
		}
	}
}

// transitionLocked switches state and returns the callback to run once the
// lock is released.
func (cb *CircuitBreaker) transitionLocked(to State) func() {
	from := cb.state
	if from == to {
		return nil
	}
	cb.state = to
	cb.failures = 0
	cb.trials = 0
	if to == StateOpen {
		cb.openedAt = cb.now()
		cb.inFlight = 0
	}

	if cb.onStateChange == nil {
		return nil
	}
	name, notify := cb.name, cb.onStateChange
	return func() { notify(name, from, to) }
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// RetryAfter is how long until an open breaker admits a trial; zero when
// it is not open.
func (cb *CircuitBreaker) RetryAfter() time.Duration {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state != StateOpen {
		return 0
	}
	if d := cb.timeout - cb.now().Sub(cb.openedAt); d > 0 {
		return d
	}
	return 0
}

func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	change := cb.transitionLocked(StateClosed)
	cb.inFlight = 0
	cb.mu.Unlock()
	if change != nil {
		change()
	}
}

func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return Snapshot{
		Name:     cb.name,
		State:    cb.state,
		Failures: cb.failures,
		OpenedAt: cb.openedAt,
	}
}
