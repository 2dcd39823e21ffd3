// Package dispatch performs UI actions that a transient notification may
// intercept. Recovery escalates through three tiers: a direct attempt, a
// retry after closing notifications, and a final blind retry for the case
// where the notification expired on its own mid-recovery.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/gridcheck/internal/interfaces"
	"github.com/ternarybob/gridcheck/internal/services/toast"
	"github.com/ternarybob/gridcheck/internal/services/waiter"
)

// Tier identifies which attempt completed an action
type Tier int

const (
	TierDirect Tier = iota + 1
	TierAfterClose
	TierBlind
)

func (t Tier) String() string {
	switch t {
	case TierDirect:
		return "direct"
	case TierAfterClose:
		return "after-close"
	case TierBlind:
		return "blind"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Action is one attempt at a UI interaction
type Action func(ctx context.Context) error

// Dispatcher runs actions with notification-interception recovery
type Dispatcher struct {
	page    interfaces.Page
	waiter  *waiter.Waiter
	toasts  *toast.Detector
	timeout time.Duration
	logger  arbor.ILogger
}

// NewDispatcher creates a Dispatcher. timeout bounds each wait for a click
// target to become visible.
func NewDispatcher(page interfaces.Page, w *waiter.Waiter, toasts *toast.Detector, timeout time.Duration, logger arbor.ILogger) *Dispatcher {
	return &Dispatcher{page: page, waiter: w, toasts: toasts, timeout: timeout, logger: logger}
}

// Click waits for target to be visible and clicks it
func (d *Dispatcher) Click(ctx context.Context, target interfaces.Locator) error {
	_, err := d.Dispatch(ctx, "click "+target.String(), d.clickAction(target, false))
	return err
}

// DoubleClick waits for target to be visible and double clicks it
func (d *Dispatcher) DoubleClick(ctx context.Context, target interfaces.Locator) error {
	_, err := d.Dispatch(ctx, "double click "+target.String(), d.clickAction(target, true))
	return err
}

// Dispatch runs action, escalating only when it fails with
// interfaces.ErrClickIntercepted. Any other error is returned unchanged.
func (d *Dispatcher) Dispatch(ctx context.Context, description string, action Action) (Tier, error) {
	err := action(ctx)
	if err == nil {
		return TierDirect, nil
	}
	if !errors.Is(err, interfaces.ErrClickIntercepted) {
		return TierDirect, err
	}

	d.logger.Info().Str("action", description).Err(err).Msg("Action intercepted, closing notifications and retrying")
	closed, err := d.toasts.CloseAll(ctx)
	if err != nil {
		return TierAfterClose, fmt.Errorf("%s: %w", description, err)
	}

	retry := true
	if err := d.toasts.AwaitClear(ctx); err != nil {
		if !waiter.IsTimeout(err) {
			return TierAfterClose, fmt.Errorf("%s: %w", description, err)
		}
		d.logger.Debug().Str("action", description).Int("closed", closed).Msg("Notifications did not clear, skipping to blind retry")
		retry = false
	}

	if retry {
		err = action(ctx)
		if err == nil {
			return TierAfterClose, nil
		}
		if !errors.Is(err, interfaces.ErrClickIntercepted) && !waiter.IsTimeout(err) {
			return TierAfterClose, err
		}
		d.logger.Debug().Str("action", description).Err(err).Msg("Retry after close failed, retrying blind")
	}

	if err := action(ctx); err != nil {
		return TierBlind, fmt.Errorf("%s failed after notification recovery: %w", description, err)
	}
	d.logger.Info().Str("action", description).Msg("Action completed on blind retry")
	return TierBlind, nil
}

// clickAction finds and clicks target in one poll so a re-render between
// the two is retried rather than surfaced
func (d *Dispatcher) clickAction(target interfaces.Locator, double bool) Action {
	visible := waiter.FirstVisible(d.page, target)
	return func(ctx context.Context) error {
		_, err := waiter.Until(ctx, d.waiter, waiter.Condition[struct{}]{
			Description: fmt.Sprintf("click on %s", target),
			Timeout:     d.timeout,
			Poll: func(ctx context.Context) waiter.Outcome[struct{}] {
				out := visible(ctx)
				if !out.IsReady() {
					return waiter.From(struct{}{}, false, out.Err())
				}
				click := out.Value().Click
				if double {
					click = out.Value().DoubleClick
				}
				return waiter.From(struct{}{}, true, click(ctx))
			},
		})
		return err
	}
}
