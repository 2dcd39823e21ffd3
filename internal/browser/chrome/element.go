package chrome

import (
	"context"
	"fmt"

	"github.com/ternarybob/gridcheck/internal/interfaces"
)

// element is a registry handle. label is for log output only.
type element struct {
	page  *Page
	id    string
	label string
}

func (e *element) String() string { return e.label }

func (e *element) do(ctx context.Context, op, text string) (result, error) {
	res, err := e.page.eval(ctx, elementScript, elementArg{ID: e.id, Op: op, Text: text})
	if err != nil {
		return res, fmt.Errorf("%s %s: %w", op, e.label, err)
	}
	return res, nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	res, err := e.do(ctx, "text", "")
	return res.Text, err
}

func (e *element) Click(ctx context.Context) error {
	_, err := e.do(ctx, "click", "")
	return err
}

func (e *element) DoubleClick(ctx context.Context) error {
	_, err := e.do(ctx, "dblclick", "")
	return err
}

func (e *element) IsVisible(ctx context.Context) (bool, error) {
	res, err := e.do(ctx, "visible", "")
	return res.Flag, err
}

func (e *element) IsEnabled(ctx context.Context) (bool, error) {
	res, err := e.do(ctx, "enabled", "")
	return res.Flag, err
}

func (e *element) Clear(ctx context.Context) error {
	_, err := e.do(ctx, "clear", "")
	return err
}

func (e *element) SendText(ctx context.Context, text string) error {
	_, err := e.do(ctx, "send", text)
	return err
}

func (e *element) SelectByText(ctx context.Context, text string) error {
	_, err := e.do(ctx, "select", text)
	return err
}

func (e *element) Options(ctx context.Context) ([]string, error) {
	res, err := e.do(ctx, "options", "")
	return res.Items, err
}

func (e *element) FindAll(ctx context.Context, locator interfaces.Locator) ([]interfaces.Element, error) {
	return e.page.query(ctx, e.id, locator)
}

func (e *element) Find(ctx context.Context, locator interfaces.Locator) (interfaces.Element, error) {
	return first(e.FindAll(ctx, locator))
}
