// Package waiter implements the polling primitive every wait in gridcheck is
// built on. There are no fixed sleeps anywhere else.
package waiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/gridcheck/internal/interfaces"
)

// DefaultPollInterval is used when a Waiter is built with a non-positive interval
const DefaultPollInterval = 250 * time.Millisecond

// ErrTimeout matches every *TimeoutError via errors.Is
var ErrTimeout = errors.New("condition timed out")

// NoIgnore makes Until propagate every Fatal outcome
var NoIgnore = []error{}

// TimeoutError is returned when a condition never held within its budget
type TimeoutError struct {
	Description string
	Timeout     time.Duration
	Elapsed     time.Duration
	Polls       int
	// LastErr is the last swallowed transient error, if any
	LastErr error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timed out after %s (limit %s, %d polls) waiting for %s",
		e.Elapsed.Round(time.Millisecond), e.Timeout, e.Polls, e.Description)
	if e.LastErr != nil {
		msg += fmt.Sprintf(": last error: %v", e.LastErr)
	}
	return msg
}

// Is makes errors.Is(err, ErrTimeout) true. LastErr is deliberately not
// unwrapped so a timeout never looks like a transient failure.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// IsTimeout reports whether err is or wraps a *TimeoutError
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// Condition describes one wait
type Condition[T any] struct {
	// Description names the condition in timeout errors and logs
	Description string
	// Timeout bounds the wait; zero evaluates the predicate exactly once
	Timeout time.Duration
	// Ignore lists failure kinds treated as "not yet". Nil means
	// interfaces.TransientErrors; use NoIgnore to ignore nothing.
	Ignore []error
	Poll   Predicate[T]
}

// Waiter polls conditions at a fixed interval
type Waiter struct {
	interval time.Duration
	logger   arbor.ILogger
}

// New creates a Waiter polling every interval
func New(logger arbor.ILogger, interval time.Duration) *Waiter {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Waiter{interval: interval, logger: logger}
}

// Interval returns the poll interval
func (w *Waiter) Interval() time.Duration {
	return w.interval
}

// Until evaluates c.Poll until it is Ready, a non-ignored failure occurs, or
// c.Timeout elapses. The predicate is always evaluated at least once and the
// call never blocks longer than the timeout plus one poll interval (plus the
// duration of the final predicate call).
func Until[T any](ctx context.Context, w *Waiter, c Condition[T]) (T, error) {
	var zero T
	if c.Poll == nil {
		return zero, fmt.Errorf("condition %q has no predicate", c.Description)
	}
	ignore := c.Ignore
	if ignore == nil {
		ignore = interfaces.TransientErrors
	}

	start := time.Now()
	deadline := start.Add(c.Timeout)
	waitCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(w.interval), 1)
	limiter.Allow() // first evaluation is immediate, later ones are paced

	polls := 0
	var lastErr error
	for {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("waiting for %s: %w", c.Description, err)
		}

		out := c.Poll(ctx)
		polls++
		switch out.state {
		case stateReady:
			return out.value, nil
		case stateFatal:
			if !matchesAny(out.err, ignore) {
				return zero, fmt.Errorf("waiting for %s: %w", c.Description, out.err)
			}
			lastErr = out.err
		}

		if !time.Now().Before(deadline) {
			terr := &TimeoutError{
				Description: c.Description,
				Timeout:     c.Timeout,
				Elapsed:     time.Since(start),
				Polls:       polls,
				LastErr:     lastErr,
			}
			if w.logger != nil && c.Timeout > 0 {
				w.logger.Debug().
					Str("condition", c.Description).
					Int("polls", polls).
					Str("elapsed", terr.Elapsed.String()).
					Msg("Wait timed out")
			}
			return zero, terr
		}

		if err := limiter.Wait(waitCtx); err != nil {
			if ctx.Err() != nil {
				return zero, fmt.Errorf("waiting for %s: %w", c.Description, ctx.Err())
			}
			// The next paced poll would land past the deadline: sleep out the
			// remainder and evaluate one last time.
			<-waitCtx.Done()
		}
	}
}

func matchesAny(err error, kinds []error) bool {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
