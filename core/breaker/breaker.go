package breaker

import (
	"sync"
	"time"
)

// State is the breaker state.
type State int

const (
	// StateClosed passes calls through and counts consecutive failures.
	StateClosed State = iota
	// StateOpen fails every call fast until the cooldown elapses.
	StateOpen
	// StateHalfOpen allows exactly one probe call.
	StateHalfOpen
)

// String returns the lowercase state name used by the status endpoint.
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

type openError struct{}

func (openError) Error() string { return "circuit breaker is open" }

// Retryable marks ErrOpen as non-retryable: retrying inside the cooldown
// window cannot succeed.
func (openError) Retryable() bool { return false }

// ErrOpen is returned by Allow while the breaker refuses calls.
var ErrOpen error = openError{}

// Clock supplies the current time. Injectable for deterministic tests.
type Clock func() time.Time

// Breaker is a three-state circuit breaker shared by all callers of one
// external system. Concurrent calls share the failure counter.
type Breaker struct {
	mu        sync.Mutex
	state     State
	failures  int
	openedAt  time.Time
	probing   bool
	threshold int
	cooldown  time.Duration
	now       Clock
}

// New creates a breaker using the wall clock.
func New(threshold int, cooldown time.Duration) *Breaker {
	return NewWithClock(threshold, cooldown, time.Now)
}

// NewWithClock creates a breaker with an injected clock.
func NewWithClock(threshold int, cooldown time.Duration, now Clock) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 60 * time.Second
	}
	return &Breaker{
		state:     StateClosed,
		threshold: threshold,
		cooldown:  cooldown,
		now:       now,
	}
}

// Allow reports whether a call may proceed. While open it returns ErrOpen
// without touching the network; after the cooldown the first caller becomes
// the half-open probe and everyone else keeps getting ErrOpen until the
// probe resolves.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return ErrOpen
		}
		b.state = StateHalfOpen
		b.probing = true
		return nil
	case StateHalfOpen:
		if b.probing {
			return ErrOpen
		}
		b.probing = true
		return nil
	}
	return nil
}

// Success records a successful call. Any success closes the breaker and
// resets the consecutive-failure counter.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.probing = false
	b.state = StateClosed
}

// Failure records a failed call. The fifth consecutive failure (by default)
// trips the breaker; a failed half-open probe re-opens it and restarts the
// cooldown timer.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.trip()
	case StateClosed:
		b.failures++
		if b.failures >= b.threshold {
			b.trip()
		}
	case StateOpen:
		// A call that was already in flight when the breaker tripped.
	}
}

// State returns the current state without side effects.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) trip() {
	b.state = StateOpen
	b.openedAt = b.now()
	b.probing = false
}
