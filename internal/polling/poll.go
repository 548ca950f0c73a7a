// Package polling provides a small poll-with-backoff-and-budget primitive.
package polling

import (
	"context"
	"errors"
	"math"
	"time"
)

// ErrBudgetExceeded is returned when the wall-clock budget runs out before
// the check reports a terminal result.
var ErrBudgetExceeded = errors.New("polling budget exceeded")

// Backoff computes the wait between polls: min(Initial * Factor^attempt, Max).
type Backoff struct {
	Initial time.Duration
	Factor  float64
	Max     time.Duration
}

// Delay returns the wait after the given zero-based attempt. The sequence is
// non-decreasing and caps at Max.
func (b Backoff) Delay(attempt int) time.Duration {
	d := float64(b.Initial) * math.Pow(b.Factor, float64(attempt))
	if d >= float64(b.Max) {
		return b.Max
	}
	return time.Duration(d)
}

// CheckFunc performs one status check. It returns done=true with the terminal
// result to stop polling. A non-nil err is treated as "status unknown": the
// loop keeps polling until the budget runs out.
type CheckFunc[T any] func(ctx context.Context) (result T, done bool, err error)

// PollUntil polls check until it reports a terminal result, the wall-clock
// budget (measured from the first poll) is exhausted, or ctx is cancelled.
// The first poll fires immediately; subsequent polls wait per the backoff
// policy, never sleeping past the budget deadline.
func PollUntil[T any](ctx context.Context, check CheckFunc[T], policy Backoff, budget time.Duration) (T, error) {
	var zero T

	deadline := time.Now().Add(budget)

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, done, _ := check(ctx)
		if done {
			return result, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return zero, ErrBudgetExceeded
		}

		wait := policy.Delay(attempt)
		if wait > remaining {
			wait = remaining
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
