// Package retry runs operations under a bounded exponential backoff policy.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Defaults used when a Policy field is zero.
const (
	DefaultMaxAttempts     = 3
	DefaultInitialInterval = 50 * time.Millisecond
	DefaultMaxInterval     = time.Second
	defaultMultiplier      = 2.0
	defaultJitter          = 0.5
)

// Policy describes how an operation is retried.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// Retryable decides whether err deserves another attempt.
	// Nil means every error is retried.
	Retryable func(err error) bool

	// OnRetry is called before each wait with the attempt number that failed.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Default returns the policy with default bounds.
func Default() Policy {
	return Policy{
		MaxAttempts:     DefaultMaxAttempts,
		InitialInterval: DefaultInitialInterval,
		MaxInterval:     DefaultMaxInterval,
	}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	if eb.InitialInterval <= 0 {
		eb.InitialInterval = DefaultInitialInterval
	}
	eb.MaxInterval = p.MaxInterval
	if eb.MaxInterval <= 0 {
		eb.MaxInterval = DefaultMaxInterval
	}
	eb.Multiplier = defaultMultiplier
	eb.RandomizationFactor = defaultJitter
	eb.MaxElapsedTime = 0

	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(attempts-1)), ctx)
}

// Do runs op until it succeeds, returns a non-retryable error, the attempt
// budget is spent, or ctx is done. The last error is returned unwrapped.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	attempt := 0
	wrapped := func() error {
		attempt++
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		err := op(ctx)
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}
	}

	err := backoff.RetryNotify(wrapped, p.backOff(ctx), notify)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Unwrap()
	}
	return err
}

// Value is Do for operations that return a result.
func Value[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := Do(ctx, p, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
