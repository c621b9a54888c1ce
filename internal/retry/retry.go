// Package retry wraps suspension-point I/O (exchange calls, state file
// reads/writes) with exponential backoff, and implements the safe-hold
// escalation path when a call exhausts its retries.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
)

// Policy configures the backoff: delay(k) = base_delay * backoff_factor^k,
// capped at max_delay; a failing call is retried up to max_retries times
// after the first attempt.
type Policy struct {
	MaxRetries    int
	BaseDelay     time.Duration
	BackoffFactor float64
	MaxDelay      time.Duration
}

// RetryExhausted is returned when every attempt failed; it wraps the last
// underlying error.
type RetryExhausted struct {
	Attempts int
	Err      error
}

func (e *RetryExhausted) Error() string {
	return fmt.Sprintf("retry: exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryExhausted) Unwrap() error { return e.Err }

// Do runs fn, retrying on error per Policy. It returns *RetryExhausted once
// attempts are exhausted, or the context's error if it's cancelled first.
func Do(ctx context.Context, p Policy, label string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt == p.MaxRetries {
			break
		}

		delay := backoffDelay(p, attempt)
		log.Warn().Err(lastErr).Str("op", label).Int("attempt", attempt+1).Dur("delay", delay).
			Msg("retry: attempt failed, backing off")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return &RetryExhausted{Attempts: p.MaxRetries + 1, Err: lastErr}
}

func backoffDelay(p Policy, attempt int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(p.BackoffFactor, float64(attempt))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	return time.Duration(d)
}

// IsExhausted reports whether err is (or wraps) a RetryExhausted.
func IsExhausted(err error) bool {
	var re *RetryExhausted
	return errors.As(err, &re)
}
