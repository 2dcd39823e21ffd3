// Package feedback classifies what the page showed after an action. The
// native dialog channel is always probed before notifications because an
// open dialog blocks every DOM query.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/gridcheck/internal/models"
	"github.com/ternarybob/gridcheck/internal/services/alerts"
	"github.com/ternarybob/gridcheck/internal/services/toast"
	"github.com/ternarybob/gridcheck/internal/services/waiter"
)

// ErrDialogInstead means a native dialog appeared where a notification was expected
var ErrDialogInstead = errors.New("native dialog shown instead of notification")

// Observer reads action outcomes
type Observer struct {
	guard        *alerts.Guard
	toasts       *toast.Detector
	alertTimeout time.Duration
	logger       arbor.ILogger
}

// NewObserver creates an Observer. alertTimeout bounds each dialog probe.
func NewObserver(guard *alerts.Guard, toasts *toast.Detector, alertTimeout time.Duration, logger arbor.ILogger) *Observer {
	return &Observer{guard: guard, toasts: toasts, alertTimeout: alertTimeout, logger: logger}
}

// SuccessText returns the success notification text. A dialog shown
// instead is accepted and reported as ErrDialogInstead.
func (o *Observer) SuccessText(ctx context.Context) (string, error) {
	return o.read(ctx, models.ToastSuccess)
}

// ErrorText returns the error notification text. A dialog shown instead is
// accepted and reported as ErrDialogInstead.
func (o *Observer) ErrorText(ctx context.Context) (string, error) {
	return o.read(ctx, models.ToastError)
}

// DialogTextIfAny accepts a dialog that appears within the alert timeout and
// returns its text, or "" when none appeared
func (o *Observer) DialogTextIfAny(ctx context.Context) (string, error) {
	text, _, err := o.guard.AcceptIfPresent(ctx, o.alertTimeout)
	return text, err
}

// Observe classifies the outcome of the last action: a dialog (accepted),
// a success or error notification, or nothing within the notification timeout
func (o *Observer) Observe(ctx context.Context) (models.Feedback, error) {
	text, accepted, err := o.guard.AcceptIfPresent(ctx, o.alertTimeout)
	if err != nil {
		return models.Feedback{}, err
	}
	if accepted {
		return models.Feedback{Kind: models.FeedbackAlert, Text: text}, nil
	}

	msg, err := o.toasts.Await(ctx)
	if waiter.IsTimeout(err) {
		if fb, ok, derr := o.lateDialog(ctx); derr != nil || ok {
			return fb, derr
		}
		o.logger.Debug().Msg("No feedback observed after action")
		return models.Feedback{Kind: models.FeedbackNone}, nil
	}
	if err != nil {
		return models.Feedback{}, err
	}

	kind := models.FeedbackSuccess
	if msg.Kind == models.ToastError {
		kind = models.FeedbackError
	}
	return models.Feedback{Kind: kind, Text: msg.Text}, nil
}

func (o *Observer) read(ctx context.Context, kind models.ToastKind) (string, error) {
	text, accepted, err := o.guard.AcceptIfPresent(ctx, 0)
	if err != nil {
		return "", err
	}
	if accepted {
		return "", fmt.Errorf("waiting for %s notification: %q: %w", kind, text, ErrDialogInstead)
	}

	msg, err := o.toasts.Read(ctx, kind)
	if err == nil {
		return msg.Text, nil
	}
	if waiter.IsTimeout(err) {
		// a dialog that opened mid-wait hides every notification query
		if fb, ok, derr := o.lateDialog(ctx); derr != nil {
			return "", derr
		} else if ok {
			return "", fmt.Errorf("waiting for %s notification: %q: %w", kind, fb.Text, ErrDialogInstead)
		}
	}
	return "", err
}

func (o *Observer) lateDialog(ctx context.Context) (models.Feedback, bool, error) {
	text, accepted, err := o.guard.AcceptIfPresent(ctx, 0)
	if err != nil || !accepted {
		return models.Feedback{}, false, err
	}
	return models.Feedback{Kind: models.FeedbackAlert, Text: text}, true, nil
}
