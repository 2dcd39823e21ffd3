package waiter

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/gridcheck/internal/interfaces"
)

const testInterval = 10 * time.Millisecond

func newTestWaiter() *Waiter {
	return New(arbor.NewLogger(), testInterval)
}

// countdown is Ready with "done" on the n-th evaluation
func countdown(n int, calls *int) Predicate[string] {
	return func(ctx context.Context) Outcome[string] {
		*calls++
		if *calls >= n {
			return Ready("done")
		}
		return Pending[string]()
	}
}

func TestUntilReadyOnFirstPoll(t *testing.T) {
	calls := 0
	got, err := Until(context.Background(), newTestWaiter(), Condition[string]{
		Description: "immediate",
		Timeout:     time.Second,
		Poll:        countdown(1, &calls),
	})
	require.NoError(t, err)
	assert.Equal(t, "done", got)
	assert.Equal(t, 1, calls)
}

func TestUntilReadyAfterSeveralPolls(t *testing.T) {
	calls := 0
	start := time.Now()
	got, err := Until(context.Background(), newTestWaiter(), Condition[string]{
		Description: "third poll",
		Timeout:     time.Second,
		Poll:        countdown(3, &calls),
	})
	require.NoError(t, err)
	assert.Equal(t, "done", got)
	assert.Equal(t, 3, calls)
	assert.GreaterOrEqual(t, time.Since(start), 2*testInterval, "polls must be paced")
}

func TestUntilTimesOut(t *testing.T) {
	timeout := 50 * time.Millisecond
	calls := 0
	start := time.Now()
	_, err := Until(context.Background(), newTestWaiter(), Condition[string]{
		Description: "never",
		Timeout:     timeout,
		Poll:        countdown(1000, &calls),
	})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	var terr *TimeoutError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "never", terr.Description)
	assert.Equal(t, calls, terr.Polls)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+testInterval+100*time.Millisecond, "must not block past timeout + one interval")
	assert.Contains(t, err.Error(), "waiting for never")
}

func TestUntilZeroTimeoutEvaluatesOnce(t *testing.T) {
	calls := 0
	_, err := Until(context.Background(), newTestWaiter(), Condition[string]{
		Description: "single check",
		Timeout:     0,
		Poll:        countdown(2, &calls),
	})
	assert.True(t, IsTimeout(err))
	assert.Equal(t, 1, calls)
}

func TestUntilSwallowsTransientErrors(t *testing.T) {
	transient := []error{interfaces.ErrStaleElement, interfaces.ErrElementNotFound, interfaces.ErrUnexpectedDialog}
	calls := 0
	got, err := Until(context.Background(), newTestWaiter(), Condition[int]{
		Description: "after transient failures",
		Timeout:     time.Second,
		Poll: func(ctx context.Context) Outcome[int] {
			calls++
			if calls <= len(transient) {
				return Fatal[int](fmt.Errorf("row lookup: %w", transient[calls-1]))
			}
			return Ready(42)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 4, calls)
}

func TestUntilPropagatesOtherErrorsImmediately(t *testing.T) {
	boom := errors.New("session crashed")
	calls := 0
	_, err := Until(context.Background(), newTestWaiter(), Condition[int]{
		Description: "fatal",
		Timeout:     time.Second,
		Poll: func(ctx context.Context) Outcome[int] {
			calls++
			return Fatal[int](boom)
		},
	})
	require.ErrorIs(t, err, boom)
	assert.False(t, IsTimeout(err))
	assert.Equal(t, 1, calls)
}

func TestUntilNoIgnorePropagatesTransient(t *testing.T) {
	_, err := Until(context.Background(), newTestWaiter(), Condition[int]{
		Description: "strict",
		Timeout:     time.Second,
		Ignore:      NoIgnore,
		Poll: func(ctx context.Context) Outcome[int] {
			return Fatal[int](interfaces.ErrStaleElement)
		},
	})
	require.ErrorIs(t, err, interfaces.ErrStaleElement)
}

func TestTimeoutKeepsLastErrorWithoutUnwrapping(t *testing.T) {
	_, err := Until(context.Background(), newTestWaiter(), Condition[int]{
		Description: "always stale",
		Timeout:     30 * time.Millisecond,
		Poll: func(ctx context.Context) Outcome[int] {
			return Fatal[int](interfaces.ErrStaleElement)
		},
	})
	var terr *TimeoutError
	require.True(t, errors.As(err, &terr))
	assert.ErrorIs(t, terr.LastErr, interfaces.ErrStaleElement)
	assert.False(t, errors.Is(err, interfaces.ErrStaleElement), "a timeout must not look transient")
	assert.Contains(t, err.Error(), "last error")
}

func TestUntilStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Until(ctx, newTestWaiter(), Condition[int]{
		Description: "cancelled",
		Timeout:     time.Second,
		Poll: func(ctx context.Context) Outcome[int] {
			calls++
			if calls == 2 {
				cancel()
			}
			return Pending[int]()
		},
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsTimeout(err))
}

func TestUntilRequiresPredicate(t *testing.T) {
	_, err := Until(context.Background(), newTestWaiter(), Condition[int]{Description: "nil"})
	require.Error(t, err)
}

func TestFrom(t *testing.T) {
	assert.True(t, From(1, true, nil).IsReady())
	assert.True(t, From(1, false, nil).IsPending())
	out := From(1, true, errors.New("x"))
	assert.True(t, out.IsFatal())
	assert.EqualError(t, out.Err(), "x")
	assert.Equal(t, 7, Ready(7).Value())
}

func TestNewDefaultsInterval(t *testing.T) {
	assert.Equal(t, DefaultPollInterval, New(arbor.NewLogger(), 0).Interval())
}
