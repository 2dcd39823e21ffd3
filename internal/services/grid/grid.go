// Package grid verifies and mutates one CRUD grid of the profile page. A
// Grid reads rows live on every call; nothing read from the page is cached
// across an action.
package grid

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/gridcheck/internal/interfaces"
	"github.com/ternarybob/gridcheck/internal/models"
	"github.com/ternarybob/gridcheck/internal/services/dispatch"
	"github.com/ternarybob/gridcheck/internal/services/textnorm"
	"github.com/ternarybob/gridcheck/internal/services/toast"
	"github.com/ternarybob/gridcheck/internal/services/waiter"
)

var (
	// ErrRecordNotFound means no row matched the record
	ErrRecordNotFound = errors.New("no grid row matches record")
	// ErrUnknownDropdown means the grid's form has no such dropdown
	ErrUnknownDropdown = errors.New("unknown dropdown")
)

// Options bound the waits a Grid performs
type Options struct {
	// ActionTimeout bounds waits for controls to become visible
	ActionTimeout time.Duration
	// SettleTimeout bounds retries of a snapshot racing a re-render
	SettleTimeout time.Duration
	// ShrinkTimeout bounds each drain iteration's wait for the row count to drop
	ShrinkTimeout time.Duration
	// MaxSkips is how many consecutive drain iterations may be skipped.
	// Zero tolerates none; a negative value takes the default.
	MaxSkips int
}

// DefaultOptions returns the budgets used when none are configured
func DefaultOptions() Options {
	return Options{
		ActionTimeout: 5 * time.Second,
		SettleTimeout: 2 * time.Second,
		ShrinkTimeout: 5 * time.Second,
		MaxSkips:      5,
	}
}

// Grid is the page object for one grid
type Grid[R models.Record] struct {
	schema     Schema[R]
	page       interfaces.Page
	waiter     *waiter.Waiter
	dispatcher *dispatch.Dispatcher
	toasts     *toast.Detector
	opts       Options
	logger     arbor.ILogger
}

// New creates a Grid over page. Zero timeouts and a negative MaxSkips take
// DefaultOptions values.
func New[R models.Record](schema Schema[R], page interfaces.Page, w *waiter.Waiter, dispatcher *dispatch.Dispatcher, toasts *toast.Detector, opts Options, logger arbor.ILogger) *Grid[R] {
	defaults := DefaultOptions()
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = defaults.ActionTimeout
	}
	if opts.SettleTimeout <= 0 {
		opts.SettleTimeout = defaults.SettleTimeout
	}
	if opts.ShrinkTimeout <= 0 {
		opts.ShrinkTimeout = defaults.ShrinkTimeout
	}
	if opts.MaxSkips < 0 {
		opts.MaxSkips = defaults.MaxSkips
	}
	return &Grid[R]{
		schema:     schema,
		page:       page,
		waiter:     w,
		dispatcher: dispatcher,
		toasts:     toasts,
		opts:       opts,
		logger:     logger,
	}
}

// Kind returns which grid this is
func (g *Grid[R]) Kind() models.GridKind {
	return g.schema.Kind
}

// OpenTab navigates to the grid's tab and waits for its pane
func (g *Grid[R]) OpenTab(ctx context.Context) error {
	if err := g.dispatcher.Click(ctx, g.schema.Tab); err != nil {
		return fmt.Errorf("failed to open %s tab: %w", g.schema.Kind, err)
	}
	if _, err := g.visible(ctx, g.schema.Pane); err != nil {
		return fmt.Errorf("%s pane did not show: %w", g.schema.Kind, err)
	}
	return nil
}

// OpenForm opens the add form
func (g *Grid[R]) OpenForm(ctx context.Context) error {
	if err := g.dispatcher.Click(ctx, g.schema.AddNew); err != nil {
		return fmt.Errorf("failed to open %s form: %w", g.schema.Kind, err)
	}
	return nil
}

// FillForm types and selects record's values into the open form. Blank
// inputs are cleared and blank selects are left untouched.
func (g *Grid[R]) FillForm(ctx context.Context, record R) error {
	for _, control := range g.schema.Controls {
		value := record.Value(control.Field)
		if control.Kind == ControlSelect && textnorm.Blank(value) {
			continue
		}
		if err := g.fill(ctx, control, value); err != nil {
			return fmt.Errorf("failed to fill %s %s: %w", g.schema.Kind, control.Field, err)
		}
	}
	g.logger.Debug().Str("grid", string(g.schema.Kind)).Str("record", models.Describe(record)).Msg("Form filled")
	return nil
}

// SubmitAdd clicks the form's Add button
func (g *Grid[R]) SubmitAdd(ctx context.Context) error {
	return g.submit(ctx, g.schema.Add, false)
}

// SubmitUpdate clicks the form's Update button
func (g *Grid[R]) SubmitUpdate(ctx context.Context) error {
	return g.submit(ctx, g.schema.Update, false)
}

// DoubleSubmitAdd double clicks the Add button
func (g *Grid[R]) DoubleSubmitAdd(ctx context.Context) error {
	return g.submit(ctx, g.schema.Add, true)
}

// DoubleSubmitUpdate double clicks the Update button
func (g *Grid[R]) DoubleSubmitUpdate(ctx context.Context) error {
	return g.submit(ctx, g.schema.Update, true)
}

// Cancel closes the form without saving
func (g *Grid[R]) Cancel(ctx context.Context) error {
	if err := g.dispatcher.Click(ctx, g.schema.Cancel); err != nil {
		return fmt.Errorf("failed to cancel %s form: %w", g.schema.Kind, err)
	}
	return nil
}

// EditFirst opens the first row for editing and fills it with record
func (g *Grid[R]) EditFirst(ctx context.Context, record R) error {
	_, err := g.dispatcher.Dispatch(ctx, fmt.Sprintf("edit first %s row", g.schema.Kind), func(ctx context.Context) error {
		_, err := waiter.Until(ctx, g.waiter, waiter.Condition[struct{}]{
			Description: fmt.Sprintf("first %s row edit control", g.schema.Kind),
			Timeout:     g.opts.ActionTimeout,
			Poll: func(ctx context.Context) waiter.Outcome[struct{}] {
				row, err := g.page.Find(ctx, g.schema.Rows)
				if err != nil {
					return waiter.Fatal[struct{}](err)
				}
				icon, err := row.Find(ctx, g.schema.EditIcon)
				if err != nil {
					return waiter.Fatal[struct{}](err)
				}
				return waiter.From(struct{}{}, true, icon.Click(ctx))
			},
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to edit first %s row: %w", g.schema.Kind, err)
	}
	return g.FillForm(ctx, record)
}

// DeleteMatching deletes the first row matching record and returns the
// success notification text. It fails with ErrRecordNotFound when no row
// matches.
func (g *Grid[R]) DeleteMatching(ctx context.Context, record R) (string, error) {
	_, err := g.dispatcher.Dispatch(ctx, "delete "+models.Describe(record), func(ctx context.Context) error {
		_, err := waiter.Until(ctx, g.waiter, waiter.Condition[struct{}]{
			Description: fmt.Sprintf("delete control of %s row %s", g.schema.Kind, models.Describe(record)),
			Timeout:     g.opts.SettleTimeout,
			Poll: func(ctx context.Context) waiter.Outcome[struct{}] {
				return waiter.From(struct{}{}, true, g.clickDeleteOf(ctx, record))
			},
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to delete %s row: %w", g.schema.Kind, err)
	}

	text, err := g.toasts.SuccessText(ctx)
	if err != nil {
		return "", fmt.Errorf("deletion of %s row %s not confirmed: %w", g.schema.Kind, models.Describe(record), err)
	}
	g.logger.Info().Str("grid", string(g.schema.Kind)).Str("record", models.Describe(record)).Str("message", text).Msg("Row deleted")
	return text, nil
}

// DropdownOptions returns the option texts of one of the form's selects
func (g *Grid[R]) DropdownOptions(ctx context.Context, d models.Dropdown) ([]string, error) {
	locator, err := g.schema.dropdown(d)
	if err != nil {
		return nil, err
	}
	return waiter.Until(ctx, g.waiter, waiter.Condition[[]string]{
		Description: fmt.Sprintf("%s options of %s form", d, g.schema.Kind),
		Timeout:     g.opts.ActionTimeout,
		Poll: func(ctx context.Context) waiter.Outcome[[]string] {
			out := waiter.FirstVisible(g.page, locator)(ctx)
			if !out.IsReady() {
				return waiter.From[[]string](nil, false, out.Err())
			}
			options, err := out.Value().Options(ctx)
			return waiter.From(options, err == nil, err)
		},
	})
}

func (g *Grid[R]) submit(ctx context.Context, button interfaces.Locator, double bool) error {
	var err error
	if double {
		err = g.dispatcher.DoubleClick(ctx, button)
	} else {
		err = g.dispatcher.Click(ctx, button)
	}
	if err != nil {
		return fmt.Errorf("failed to submit %s form: %w", g.schema.Kind, err)
	}
	return nil
}

// fill sets one control in a single poll so a re-render mid-fill restarts it
func (g *Grid[R]) fill(ctx context.Context, control Control, value string) error {
	visible := waiter.FirstVisible(g.page, control.Locator)
	_, err := waiter.Until(ctx, g.waiter, waiter.Condition[struct{}]{
		Description: fmt.Sprintf("%s control %s", control.Field, control.Locator),
		Timeout:     g.opts.ActionTimeout,
		Poll: func(ctx context.Context) waiter.Outcome[struct{}] {
			out := visible(ctx)
			if !out.IsReady() {
				return waiter.From(struct{}{}, false, out.Err())
			}
			el := out.Value()
			if control.Kind == ControlSelect {
				return waiter.From(struct{}{}, true, el.SelectByText(ctx, value))
			}
			if err := el.Clear(ctx); err != nil {
				return waiter.Fatal[struct{}](err)
			}
			if textnorm.Blank(value) {
				return waiter.Ready(struct{}{})
			}
			return waiter.From(struct{}{}, true, el.SendText(ctx, value))
		},
	})
	return err
}

// clickDeleteOf scans the live rows and clicks the delete control of the
// first one matching record
func (g *Grid[R]) clickDeleteOf(ctx context.Context, record R) error {
	rows, err := g.page.FindAll(ctx, g.schema.Rows)
	if err != nil {
		return err
	}
	for i, row := range rows {
		cells, err := g.readCells(ctx, i, row)
		if err != nil {
			return err
		}
		if !Matches(record, g.toRecord(cells)) {
			continue
		}
		icon, err := row.Find(ctx, g.schema.DeleteIcon)
		if err != nil {
			return err
		}
		return icon.Click(ctx)
	}
	return fmt.Errorf("%s: %w", models.Describe(record), ErrRecordNotFound)
}

func (g *Grid[R]) visible(ctx context.Context, locator interfaces.Locator) (interfaces.Element, error) {
	return waiter.Until(ctx, g.waiter, waiter.Condition[interfaces.Element]{
		Description: fmt.Sprintf("%s to be visible", locator),
		Timeout:     g.opts.ActionTimeout,
		Poll:        waiter.FirstVisible(g.page, locator),
	})
}
