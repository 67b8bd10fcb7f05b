package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Policy is an exponential backoff retry policy with uniform jitter.
// Only errors that classify themselves as retryable (via a Retryable()
// method anywhere in the chain) are retried up to MaxRetries times.
// Unclassified errors get a single retry before being surfaced.
type Policy struct {
	// Base is the initial backoff delay.
	Base time.Duration
	// Cap is the maximum backoff delay.
	Cap time.Duration
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// Sleep waits for the given duration or until the context is done.
	// Overridable in tests.
	Sleep func(ctx context.Context, d time.Duration) error
	// Rand returns a value in [0,1) used for jitter. Overridable in tests.
	Rand func() float64
}

// New creates a policy with the given parameters and default sleep/jitter.
func New(base, cap time.Duration, maxRetries int) Policy {
	return Policy{
		Base:       base,
		Cap:        cap,
		MaxRetries: maxRetries,
	}
}

// Default returns the standard policy: base 1s, cap 30s, 3 retries.
func Default() Policy {
	return New(1*time.Second, 30*time.Second, 3)
}

// Do runs op, retrying per the policy. It returns nil on the first success,
// the original error when it is non-retryable, or the last error once the
// retry budget is exhausted.
func (p Policy) Do(ctx context.Context, op func(context.Context) error) error {
	var lastErr error

	for attempt := 0; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		retryable, classified := classify(err)
		if classified && !retryable {
			return err
		}

		budget := p.MaxRetries
		if !classified {
			// Unknown errors get exactly one retry before surfacing.
			budget = 1
		}
		if attempt >= budget {
			return lastErr
		}

		if err := p.sleep(ctx, p.Delay(attempt, err)); err != nil {
			return lastErr
		}
	}
}

// Delay computes min(base*2^attempt, cap) plus uniform jitter in [0, base).
// Errors that demand a minimum backoff (rate limits with a Retry-After)
// raise the delay to at least that value.
func (p Policy) Delay(attempt int, err error) time.Duration {
	base := p.Base
	if base <= 0 {
		base = time.Second
	}
	cap := p.Cap
	if cap <= 0 {
		cap = 30 * time.Second
	}

	d := base
	for i := 0; i < attempt && d < cap; i++ {
		d *= 2
	}
	if d > cap {
		d = cap
	}

	d += time.Duration(p.rand() * float64(base))

	var backoff interface{ Backoff() time.Duration }
	if errors.As(err, &backoff) {
		if min := backoff.Backoff(); d < min {
			d = min
		}
	}

	return d
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p Policy) rand() float64 {
	if p.Rand != nil {
		return p.Rand()
	}
	return rand.Float64()
}

// classify inspects the error chain for a Retryable() classification.
func classify(err error) (retryable, classified bool) {
	var c interface{ Retryable() bool }
	if errors.As(err, &c) {
		return c.Retryable(), true
	}
	return false, false
}
