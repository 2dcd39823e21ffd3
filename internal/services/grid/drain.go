package grid

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/gridcheck/internal/interfaces"
	"github.com/ternarybob/gridcheck/internal/services/waiter"
)

var (
	// ErrDrainStalled means too many consecutive drain iterations were skipped
	ErrDrainStalled = errors.New("drain made no progress")
	// ErrDrainDiverged means the row count grew while draining
	ErrDrainDiverged = errors.New("row count increased during drain")
)

// DrainState is a state of the drain loop
type DrainState string

const (
	DrainScanning         DrainState = "scanning"
	DrainDeleting         DrainState = "deleting"
	DrainWaitingForShrink DrainState = "waiting_for_shrink"
	DrainEmpty            DrainState = "empty"
)

// DrainReport describes a finished or failed drain
type DrainReport struct {
	// Removed counts deletions confirmed by a shrink
	Removed int
	// Iterations counts passes through the scanning state
	Iterations int
	// Skips counts iterations abandoned after a race
	Skips int
	// Counts is the row count observed at each scan, non-increasing
	Counts []int
	// History records each transition, for failure messages
	History []string
}

func (r *DrainReport) enter(state DrainState, detail string) {
	if detail != "" {
		r.History = append(r.History, fmt.Sprintf("%s(%s)", state, detail))
		return
	}
	r.History = append(r.History, string(state))
}

// DrainAll deletes the first row until the grid is empty. A row that goes
// stale or loses its delete control between scan and click skips the
// iteration, as does a delete click intercepted by a notification. Each
// confirmed deletion waits up to Options.ShrinkTimeout for the count to drop.
func (g *Grid[R]) DrainAll(ctx context.Context) (DrainReport, error) {
	var report DrainReport
	skips := 0

	for {
		report.Iterations++
		count, err := g.scanCount(ctx)
		if err != nil {
			return report, g.drainFailed(&report, err)
		}
		report.enter(DrainScanning, fmt.Sprint(count))
		if n := len(report.Counts); n > 0 && count > report.Counts[n-1] {
			report.Counts = append(report.Counts, count)
			return report, g.drainFailed(&report, fmt.Errorf("%d -> %d: %w", report.Counts[n-1], count, ErrDrainDiverged))
		}
		report.Counts = append(report.Counts, count)

		if count == 0 {
			report.enter(DrainEmpty, "")
			g.logger.Info().
				Str("grid", string(g.schema.Kind)).
				Int("removed", report.Removed).
				Int("iterations", report.Iterations).
				Int("skips", report.Skips).
				Msg("Grid drained")
			return report, nil
		}

		report.enter(DrainDeleting, "")
		err = g.clickFirstDelete(ctx)
		switch {
		case err == nil:
			report.enter(DrainWaitingForShrink, fmt.Sprint(count))
			if _, err := g.awaitShrink(ctx, count); err != nil {
				return report, g.drainFailed(&report, err)
			}
			report.Removed++
			skips = 0
			continue

		case interfaces.IsTransient(err):
			// the row vanished under us; give a concurrent removal the
			// chance to land before re-scanning
			report.enter(DrainWaitingForShrink, "skip: "+err.Error())
			if _, werr := g.awaitShrink(ctx, count); werr != nil && !waiter.IsTimeout(werr) {
				return report, g.drainFailed(&report, werr)
			}

		case errors.Is(err, interfaces.ErrClickIntercepted):
			report.enter(DrainDeleting, "skip: intercepted")
			if _, cerr := g.toasts.CloseAll(ctx); cerr != nil {
				return report, g.drainFailed(&report, cerr)
			}

		default:
			return report, g.drainFailed(&report, err)
		}

		report.Skips++
		skips++
		g.logger.Debug().Str("grid", string(g.schema.Kind)).Int("skips", skips).Err(err).Msg("Drain iteration skipped")
		if skips > g.opts.MaxSkips {
			return report, g.drainFailed(&report, fmt.Errorf("%d consecutive skipped iterations: %w", skips, ErrDrainStalled))
		}
	}
}

// scanCount reads the row count, riding out a transient query failure
func (g *Grid[R]) scanCount(ctx context.Context) (int, error) {
	return waiter.Until(ctx, g.waiter, waiter.Condition[int]{
		Description: fmt.Sprintf("%s row count", g.schema.Kind),
		Timeout:     g.opts.SettleTimeout,
		Poll: func(ctx context.Context) waiter.Outcome[int] {
			elements, err := g.page.FindAll(ctx, g.schema.Rows)
			return waiter.From(len(elements), err == nil, err)
		},
	})
}

func (g *Grid[R]) clickFirstDelete(ctx context.Context) error {
	row, err := g.page.Find(ctx, g.schema.Rows)
	if err != nil {
		return err
	}
	icon, err := row.Find(ctx, g.schema.DeleteIcon)
	if err != nil {
		return err
	}
	return icon.Click(ctx)
}

func (g *Grid[R]) awaitShrink(ctx context.Context, before int) (int, error) {
	return waiter.Until(ctx, g.waiter, waiter.Condition[int]{
		Description: fmt.Sprintf("%s row count below %d", g.schema.Kind, before),
		Timeout:     g.opts.ShrinkTimeout,
		Poll:        waiter.CountBelow(g.page, g.schema.Rows, before),
	})
}

func (g *Grid[R]) drainFailed(report *DrainReport, err error) error {
	g.logger.Error().
		Str("grid", string(g.schema.Kind)).
		Int("removed", report.Removed).
		Int("iterations", report.Iterations).
		Strs("history", report.History).
		Err(err).
		Msg("Grid drain failed")
	return fmt.Errorf("failed to drain %s grid after %d iteration(s) [%s]: %w",
		g.schema.Kind, report.Iterations, strings.Join(report.History, " -> "), err)
}
