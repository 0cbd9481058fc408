// Package circuit implements the per-registry circuit breaker.
//
// State machine: closed → open after failureThreshold consecutive failures;
// open → half-open once the reset timeout elapses; half-open → closed on a
// successful probe, half-open → open on a failed one. Exactly one probe is
// admitted while half-open; concurrent callers are rejected until the probe
// resolves.
package circuit

import (
	"sync"
	"time"
)

// State is the breaker state, exposed for health reporting.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Observer is notified synchronously on every state transition. Transitions
// happen under the breaker lock, so implementations must be quick and must
// not call back into the breaker.
type Observer func(name string, from, to State)

// Breaker guards one registry. All transitions are mutex-protected so
// concurrent callers cannot double-increment or race past the open check.
type Breaker struct {
	name             string
	failureThreshold int
	resetTimeout     time.Duration
	now              func() time.Time
	observer         Observer

	mu          sync.Mutex
	state       State
	failures    int
	nextAttempt time.Time
	probing     bool
}

// Option customizes a Breaker.
type Option func(*Breaker)

// WithFailureThreshold sets consecutive failures required to open.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) { b.failureThreshold = n }
}

// WithResetTimeout sets the cool-down before a half-open probe is allowed.
func WithResetTimeout(d time.Duration) Option {
	return func(b *Breaker) { b.resetTimeout = d }
}

// WithClock overrides the clock, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// WithObserver registers a transition observer.
func WithObserver(obs Observer) Option {
	return func(b *Breaker) { b.observer = obs }
}

// New constructs a closed Breaker for the named registry.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		failureThreshold: 5,
		resetTimeout:     30 * time.Second,
		now:              time.Now,
		state:            StateClosed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the registry this breaker guards.
func (b *Breaker) Name() string { return b.name }

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a call may proceed. While open it returns false
// until the reset timeout elapses, at which point the breaker moves to
// half-open and admits a single probe; further callers are rejected until
// that probe's outcome is recorded.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Before(b.nextAttempt) {
			return false
		}
		b.transition(StateHalfOpen)
		b.probing = true
		return true
	case StateHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
	return false
}

// RecordSuccess records a successful outcome for an admitted call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	b.failures = 0
	if b.state != StateClosed {
		b.transition(StateClosed)
	}
}

// RecordFailure records a failed outcome for an admitted call. In the closed
// state it counts toward the failure threshold; a failed half-open probe
// reopens immediately with a fresh cool-down.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.failureThreshold {
			b.open()
		}
	case StateHalfOpen:
		b.open()
	case StateOpen:
		// Late failure from a call admitted before opening; nothing to do.
	}
}

// Reset forces the breaker closed and clears counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.probing = false
	if b.state != StateClosed {
		b.transition(StateClosed)
	}
}

// NextAttempt returns when an open breaker will admit a probe. Zero while
// not open.
func (b *Breaker) NextAttempt() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateOpen {
		return time.Time{}
	}
	return b.nextAttempt
}

// open transitions to open with a fresh cool-down. Caller holds b.mu.
func (b *Breaker) open() {
	b.nextAttempt = b.now().Add(b.resetTimeout)
	b.transition(StateOpen)
}

// transition changes state and notifies the observer. Caller holds b.mu.
func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	if b.observer != nil && from != to {
		b.observer(b.name, from, to)
	}
}
