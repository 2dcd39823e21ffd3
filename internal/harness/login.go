package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/gridcheck/internal/common"
	"github.com/ternarybob/gridcheck/internal/interfaces"
	"github.com/ternarybob/gridcheck/internal/services/waiter"
)

// login signs in from the base URL and waits for the authenticated layout
func (c *Context) login() error {
	l := c.Config.Login
	ctx := c.Ctx

	if err := c.Session.Navigate(ctx, c.Config.Environment.BaseURL); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := c.Dispatcher.Click(ctx, l.SignIn); err != nil {
		return fmt.Errorf("login: failed to open sign in: %w", err)
	}
	if err := c.typeInto(ctx, l.EmailInput, l.Email); err != nil {
		return fmt.Errorf("login: failed to enter email: %w", err)
	}
	if err := c.typeInto(ctx, l.PasswordInput, l.Password); err != nil {
		return fmt.Errorf("login: failed to enter password: %w", err)
	}
	if err := c.Dispatcher.Click(ctx, l.Submit); err != nil {
		return fmt.Errorf("login: failed to submit: %w", err)
	}

	timeout := common.MustDuration(c.Config.Waits.DefaultTimeout, 5*time.Second)
	if _, err := waiter.Until(ctx, c.Waiter, waiter.Condition[interfaces.Element]{
		Description: "signed in layout " + l.LoggedIn.String(),
		Timeout:     timeout,
		Poll:        waiter.FirstVisible(c.Page, l.LoggedIn),
	}); err != nil {
		return fmt.Errorf("login: not signed in: %w", err)
	}

	// The password never reaches the log
	c.Log("Signed in as %s", l.Email)
	return nil
}

// typeInto replaces the value of the first visible match in a single poll
func (c *Context) typeInto(ctx context.Context, locator interfaces.Locator, text string) error {
	visible := waiter.FirstVisible(c.Page, locator)
	_, err := waiter.Until(ctx, c.Waiter, waiter.Condition[struct{}]{
		Description: "input " + locator.String(),
		Timeout:     common.MustDuration(c.Config.Waits.DefaultTimeout, 5*time.Second),
		Poll: func(ctx context.Context) waiter.Outcome[struct{}] {
			out := visible(ctx)
			if !out.IsReady() {
				return waiter.From(struct{}{}, false, out.Err())
			}
			el := out.Value()
			if err := el.Clear(ctx); err != nil {
				return waiter.Fatal[struct{}](err)
			}
			return waiter.From(struct{}{}, true, el.SendText(ctx, text))
		},
	})
	return err
}
