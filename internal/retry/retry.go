// Package retry runs cluster operations with a fixed delay between attempts.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy describes how often and how long an operation is retried.
type Policy struct {
	// Attempts is the total number of calls, at least 1.
	Attempts int

	// Delay between two attempts.
	Delay time.Duration

	// Timeout bounds all attempts together, including delays. Zero means no
	// bound beyond Attempts.
	Timeout time.Duration

	// Retryable decides whether an error is worth another attempt. Nil retries
	// every error.
	Retryable func(err error) bool

	// OnRetry is called before waiting for the next attempt.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// ErrExhausted wraps the last error once all attempts failed.
var ErrExhausted = errors.New("retries exhausted")

// Do calls op until it succeeds, a non retryable error occurs or the policy
// gives up. The value of the last call is returned in every case, so callers
// can report partial results.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	attempts := max(p.Attempts, 1)

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	var (
		last      T
		lastErr   error
		attempt   int
		permanent bool
	)

	operation := func() (T, error) {
		attempt++

		res, err := op(ctx)
		last, lastErr = res, err
		if err != nil && p.Retryable != nil && !p.Retryable(err) {
			permanent = true
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	maxElapsed := p.Timeout
	if maxElapsed <= 0 {
		maxElapsed = time.Duration(attempts) * (p.Delay + time.Hour)
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(backoff.NewConstantBackOff(p.Delay)),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithMaxElapsedTime(maxElapsed),
	}
	if p.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(func(err error, wait time.Duration) {
			p.OnRetry(attempt, err, wait)
		}))
	}

	_, err := backoff.Retry(ctx, operation, opts...)

	switch {
	case err == nil:
		return last, nil
	case lastErr == nil:
		return last, err
	case permanent:
		return last, lastErr
	case ctx.Err() != nil:
		return last, errors.Join(lastErr, ctx.Err())
	default:
		return last, errors.Join(ErrExhausted, lastErr)
	}
}
