// Package toast reads and clears the transient success/error notifications
// the profile page shows after each mutation.
package toast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/gridcheck/internal/interfaces"
	"github.com/ternarybob/gridcheck/internal/models"
	"github.com/ternarybob/gridcheck/internal/services/textnorm"
	"github.com/ternarybob/gridcheck/internal/services/waiter"
)

// DefaultTimeout bounds SuccessText, ErrorText, Read and Await
const DefaultTimeout = 10 * time.Second

// Locators address the notification elements
type Locators struct {
	Success interfaces.Locator
	Error   interfaces.Locator
	Close   interfaces.Locator
	All     interfaces.Locator
}

// DefaultLocators match the notification markup of the profile page
func DefaultLocators() Locators {
	return Locators{
		Success: interfaces.CSS("div.ns-box.ns-type-success .ns-box-inner"),
		Error:   interfaces.CSS("div.ns-box.ns-type-error .ns-box-inner"),
		Close:   interfaces.CSS("a.ns-close"),
		All:     interfaces.CSS("div.ns-box-inner"),
	}
}

// Detector observes notifications on one page
type Detector struct {
	page     interfaces.Page
	waiter   *waiter.Waiter
	locators Locators
	timeout  time.Duration
	logger   arbor.ILogger
}

// NewDetector creates a Detector. A non-positive timeout uses DefaultTimeout.
func NewDetector(page interfaces.Page, w *waiter.Waiter, locators Locators, timeout time.Duration, logger arbor.ILogger) *Detector {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Detector{page: page, waiter: w, locators: locators, timeout: timeout, logger: logger}
}

// Timeout returns the wait budget for a notification
func (d *Detector) Timeout() time.Duration {
	return d.timeout
}

// SuccessText waits for the success notification and returns its text
func (d *Detector) SuccessText(ctx context.Context) (string, error) {
	msg, err := d.Read(ctx, models.ToastSuccess)
	return msg.Text, err
}

// ErrorText waits for the error notification and returns its text
func (d *Detector) ErrorText(ctx context.Context) (string, error) {
	msg, err := d.Read(ctx, models.ToastError)
	return msg.Text, err
}

// Read waits for a visible notification of kind. Reading does not dismiss it.
func (d *Detector) Read(ctx context.Context, kind models.ToastKind) (models.ToastMessage, error) {
	locator := d.locatorFor(kind)
	text, err := waiter.Until(ctx, d.waiter, waiter.Condition[string]{
		Description: fmt.Sprintf("%s notification (%s)", kind, locator),
		Timeout:     d.timeout,
		Poll:        visibleText(d.page, locator),
	})
	if err != nil {
		d.logVisible(ctx, kind)
		return models.ToastMessage{}, err
	}
	d.logger.Debug().Str("kind", string(kind)).Str("text", text).Msg("Notification read")
	return models.ToastMessage{Kind: kind, Text: text}, nil
}

// Await waits for whichever notification kind shows first. Success wins when
// both are visible in the same poll.
func (d *Detector) Await(ctx context.Context) (models.ToastMessage, error) {
	success := visibleText(d.page, d.locators.Success)
	failure := visibleText(d.page, d.locators.Error)
	msg, err := waiter.Until(ctx, d.waiter, waiter.Condition[models.ToastMessage]{
		Description: "any notification",
		Timeout:     d.timeout,
		Poll: func(ctx context.Context) waiter.Outcome[models.ToastMessage] {
			ok := success(ctx)
			if ok.IsReady() {
				return waiter.Ready(models.ToastMessage{Kind: models.ToastSuccess, Text: ok.Value()})
			}
			bad := failure(ctx)
			if bad.IsReady() {
				return waiter.Ready(models.ToastMessage{Kind: models.ToastError, Text: bad.Value()})
			}
			if bad.IsFatal() {
				return waiter.Fatal[models.ToastMessage](bad.Err())
			}
			return waiter.From(models.ToastMessage{}, false, ok.Err())
		},
	})
	if err != nil {
		return models.ToastMessage{}, err
	}
	return msg, nil
}

// CloseAll clicks every displayed and enabled close control without
// waiting. Individual click failures are skipped; it returns how many
// notifications it closed.
func (d *Detector) CloseAll(ctx context.Context) (int, error) {
	controls, err := d.page.FindAll(ctx, d.locators.Close)
	if err != nil {
		if interfaces.IsTransient(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to find notification close controls: %w", err)
	}

	closed := 0
	for _, control := range controls {
		if !usable(ctx, control) {
			continue
		}
		if err := control.Click(ctx); err != nil {
			if ctx.Err() != nil || errors.Is(err, interfaces.ErrSessionClosed) {
				return closed, fmt.Errorf("failed to close notification: %w", err)
			}
			d.logger.Debug().Err(err).Msg("Notification close control not clickable, skipping")
			continue
		}
		closed++
	}
	if closed > 0 {
		d.logger.Debug().Int("closed", closed).Msg("Closed notifications")
	}
	return closed, nil
}

// AwaitClear waits until no notification is visible
func (d *Detector) AwaitClear(ctx context.Context) error {
	_, err := waiter.Until(ctx, d.waiter, waiter.Condition[struct{}]{
		Description: "notifications to clear",
		Timeout:     d.timeout,
		Poll:        waiter.Absent(d.page, d.locators.All),
	})
	return err
}

// ListAll returns the text of every visible notification without waiting
func (d *Detector) ListAll(ctx context.Context) ([]string, error) {
	elements, err := d.page.FindAll(ctx, d.locators.All)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	var texts []string
	for _, el := range elements {
		visible, err := el.IsVisible(ctx)
		if err != nil || !visible {
			continue
		}
		text, err := el.Text(ctx)
		if err != nil {
			continue
		}
		texts = append(texts, textnorm.Normalize(text))
	}
	return texts, nil
}

func (d *Detector) locatorFor(kind models.ToastKind) interfaces.Locator {
	if kind == models.ToastError {
		return d.locators.Error
	}
	return d.locators.Success
}

func (d *Detector) logVisible(ctx context.Context, want models.ToastKind) {
	visible, err := d.ListAll(ctx)
	if err != nil {
		return
	}
	d.logger.Warn().
		Str("wanted", string(want)).
		Strs("visible", visible).
		Msg("Expected notification did not appear")
}

func usable(ctx context.Context, el interfaces.Element) bool {
	visible, err := el.IsVisible(ctx)
	if err != nil || !visible {
		return false
	}
	enabled, err := el.IsEnabled(ctx)
	return err == nil && enabled
}

// visibleText is Ready with the trimmed text of the first visible element
// matching locator. The text is read in the same poll so a re-render between
// find and read is retried.
func visibleText(page interfaces.Page, locator interfaces.Locator) waiter.Predicate[string] {
	first := waiter.FirstVisible(page, locator)
	return func(ctx context.Context) waiter.Outcome[string] {
		out := first(ctx)
		if !out.IsReady() {
			return waiter.From("", false, out.Err())
		}
		text, err := out.Value().Text(ctx)
		if err != nil {
			return waiter.Fatal[string](err)
		}
		return waiter.Ready(textnorm.Normalize(text))
	}
}
