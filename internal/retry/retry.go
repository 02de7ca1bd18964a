package retry

import (
	"context"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultMaxAttempts = 4
	DefaultBaseDelay   = 1500 * time.Millisecond
)

// Policy is fixed configuration; a Retryer never mutates it.
type Policy struct {
	MaxAttempts uint
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    30 * time.Second,
	}
}

func (p Policy) attempts() uint {
	return max(p.MaxAttempts, 1)
}

// Sleeper blocks for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

var TimerSleeper Sleeper = SleeperFunc(func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
})

type Retryer struct {
	policy  Policy
	sleeper Sleeper
	onRetry func(attempt uint, delay time.Duration, err error)
}

type Option func(*Retryer)

func WithSleeper(s Sleeper) Option {
	return func(r *Retryer) {
		if s != nil {
			r.sleeper = s
		}
	}
}

// OnRetry registers a hook called before each backoff sleep.
func OnRetry(fn func(attempt uint, delay time.Duration, err error)) Option {
	return func(r *Retryer) {
		r.onRetry = fn
	}
}

func NewRetryer(policy Policy, opts ...Option) *Retryer {
	r := &Retryer{
		policy:  policy,
		sleeper: TimerSleeper,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Retryer) Policy() Policy {
	return r.policy
}

// Do calls fn until it reports shouldRetry=false or the attempts run out, in
// which case the error of the last attempt is returned. No sleep follows the
// final attempt.
func (r *Retryer) Do(ctx context.Context, fn func(attempt uint) (shouldRetry bool, err error)) error {
	var lastErr error

	b := r.newBackOff()
	attempts := r.policy.attempts()
	for attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return err
		}

		shouldRetry, err := fn(attempt)
		if !shouldRetry {
			return err
		}
		lastErr = err

		if attempt+1 < attempts {
			delay := b.NextBackOff()
			if r.onRetry != nil {
				r.onRetry(attempt, delay, err)
			}
			if err := r.sleeper.Sleep(ctx, delay); err != nil {
				return err
			}
		}
	}

	return lastErr
}

// Schedule lists the delays Do sleeps between attempts.
func (r *Retryer) Schedule() []time.Duration {
	b := r.newBackOff()
	n := r.policy.attempts() - 1
	delays := make([]time.Duration, 0, n)
	for range n {
		delays = append(delays, b.NextBackOff())
	}
	return delays
}

// newBackOff yields BaseDelay * 2^attempt with no jitter, capped at MaxDelay.
func (r *Retryer) newBackOff() *backoff.ExponentialBackOff {
	maxDelay := r.policy.MaxDelay
	if maxDelay <= 0 {
		maxDelay = time.Duration(math.MaxInt64)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.BaseDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = maxDelay
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}
