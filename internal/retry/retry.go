// Package retry provides a reusable bounded-retry policy with exponential
// backoff. Any task that calls an external capability invokes the same
// policy object instead of hand-rolling its own loop.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// Policy describes how an operation is retried: how many retries follow
// the first attempt, and the backoff base (delay = base * 2^attempt).
type Policy struct {
	// Retries is the number of retries after the initial attempt.
	Retries int

	// BackoffBase is the sleep before the first retry; it doubles for
	// each subsequent one.
	BackoffBase time.Duration
}

// permanentError wraps an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an error as non-transient so Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs op, retrying transient failures per the policy. Context
// cancellation stops retrying immediately and returns the context error.
// The returned error is the last attempt's error with any permanent
// wrapper unwrapped.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= p.Retries; attempt++ {
		if attempt > 0 {
			delay := p.BackoffBase << (attempt - 1)
			log.Debug().
				Int("attempt", attempt).
				Dur("backoff", delay).
				Msg("Retrying after transient failure")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := op(ctx)
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
	}

	return lastErr
}
