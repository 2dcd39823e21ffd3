// Package alerts guards the native dialog channel of a browser session.
// A dialog left open blocks every other interaction, so absence is the normal
// result of a probe and never an error.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/gridcheck/internal/interfaces"
	"github.com/ternarybob/gridcheck/internal/models"
	"github.com/ternarybob/gridcheck/internal/services/waiter"
)

// Guard probes, accepts and clears native dialogs
type Guard struct {
	page   interfaces.Page
	waiter *waiter.Waiter
	logger arbor.ILogger
}

// NewGuard creates a Guard for page
func NewGuard(page interfaces.Page, w *waiter.Waiter, logger arbor.ILogger) *Guard {
	return &Guard{page: page, waiter: w, logger: logger}
}

// Probe waits up to timeout for a dialog. A timeout yields an absent state.
func (g *Guard) Probe(ctx context.Context, timeout time.Duration) (models.AlertState, error) {
	dialog, err := g.await(ctx, timeout)
	if err != nil || dialog == nil {
		return models.AlertState{}, err
	}
	return models.AlertState{Present: true, Text: dialog.Text()}, nil
}

// AcceptIfPresent accepts a dialog that appears within timeout and returns
// its text. accepted is false when no dialog appeared.
func (g *Guard) AcceptIfPresent(ctx context.Context, timeout time.Duration) (text string, accepted bool, err error) {
	dialog, err := g.await(ctx, timeout)
	if err != nil || dialog == nil {
		return "", false, err
	}

	text = dialog.Text()
	g.logger.Info().Str("text", text).Msg("Native dialog detected, accepting")
	if err := dialog.Accept(ctx); err != nil {
		if errors.Is(err, interfaces.ErrNoDialog) {
			// closed by the page between read and accept
			return text, false, nil
		}
		return text, false, fmt.Errorf("failed to accept dialog %q: %w", text, err)
	}
	return text, true, nil
}

// DismissStray clears any dialog left open at a test boundary. It returns
// the text of the dialog it cleared, or "" when the channel was clean.
func (g *Guard) DismissStray(ctx context.Context, timeout time.Duration) (string, error) {
	text, accepted, err := g.AcceptIfPresent(ctx, timeout)
	if err != nil {
		return "", fmt.Errorf("failed to clear stray dialog: %w", err)
	}
	if accepted {
		g.logger.Warn().Str("text", text).Msg("Stray native dialog cleared at test boundary")
	}
	return text, nil
}

func (g *Guard) await(ctx context.Context, timeout time.Duration) (interfaces.Dialog, error) {
	dialog, err := waiter.Until(ctx, g.waiter, waiter.Condition[interfaces.Dialog]{
		Description: "native dialog",
		Timeout:     timeout,
		Ignore:      waiter.NoIgnore,
		Poll: func(ctx context.Context) waiter.Outcome[interfaces.Dialog] {
			d, err := g.page.CurrentDialog(ctx)
			if errors.Is(err, interfaces.ErrNoDialog) {
				return waiter.Pending[interfaces.Dialog]()
			}
			return waiter.From(d, err == nil, err)
		},
	})
	if waiter.IsTimeout(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to probe for native dialog: %w", err)
	}
	return dialog, nil
}
