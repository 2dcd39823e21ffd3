package chrome

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/gridcheck/internal/interfaces"
)

// Page implements interfaces.Page on a chromedp tab. Every call is a single
// bounded round trip; nothing here waits for elements to appear.
type Page struct {
	tabCtx         context.Context
	commandTimeout time.Duration
	logger         arbor.ILogger

	mu     sync.Mutex
	dialog *dialog
}

func newPage(tabCtx context.Context, commandTimeout time.Duration, logger arbor.ILogger) *Page {
	p := &Page{
		tabCtx:         tabCtx,
		commandTimeout: commandTimeout,
		logger:         logger,
	}

	// Dialog events must not block the listener, so only state is recorded
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *page.EventJavascriptDialogOpening:
			p.mu.Lock()
			p.dialog = &dialog{page: p, text: e.Message, kind: string(e.Type)}
			p.mu.Unlock()
			p.logger.Debug().Str("type", string(e.Type)).Str("message", e.Message).Msg("Native dialog opened")
		case *page.EventJavascriptDialogClosed:
			p.mu.Lock()
			p.dialog = nil
			p.mu.Unlock()
		}
	})
	return p
}

// FindAll returns every element matching locator
func (p *Page) FindAll(ctx context.Context, locator interfaces.Locator) ([]interfaces.Element, error) {
	return p.query(ctx, "", locator)
}

// Find returns the first element matching locator
func (p *Page) Find(ctx context.Context, locator interfaces.Locator) (interfaces.Element, error) {
	return first(p.FindAll(ctx, locator))
}

// CurrentDialog returns the open native dialog or ErrNoDialog
func (p *Page) CurrentDialog(ctx context.Context) (interfaces.Dialog, error) {
	if err := p.alive(ctx); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dialog == nil {
		return nil, interfaces.ErrNoDialog
	}
	return p.dialog, nil
}

func (p *Page) dialogOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dialog != nil
}

func (p *Page) alive(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.tabCtx.Err() != nil {
		return interfaces.ErrSessionClosed
	}
	return nil
}

func (p *Page) query(ctx context.Context, root string, locator interfaces.Locator) ([]interfaces.Element, error) {
	by := string(locator.By)
	if by == "" {
		by = string(interfaces.ByCSS)
	}
	res, err := p.eval(ctx, queryScript, queryArg{Root: root, By: by, Value: locator.Value, Text: locator.Text})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", locator, err)
	}
	elements := make([]interfaces.Element, len(res.IDs))
	for i, id := range res.IDs {
		label := id
		if i < len(res.Items) {
			label = res.Items[i]
		}
		elements[i] = &element{page: p, id: id, label: label}
	}
	return elements, nil
}

// eval runs one script. A native dialog blocks script evaluation, so an open
// dialog fails fast with ErrUnexpectedDialog instead of hanging the call.
func (p *Page) eval(ctx context.Context, script string, arg interface{}) (result, error) {
	var res result
	if p.dialogOpen() {
		return res, interfaces.ErrUnexpectedDialog
	}
	expr, err := expression(script, arg)
	if err != nil {
		return res, err
	}
	if err := p.run(ctx, p.commandTimeout, chromedp.Evaluate(expr, &res)); err != nil {
		if p.dialogOpen() && ctx.Err() == nil {
			// The dialog opened while the evaluation was in flight
			return res, interfaces.ErrUnexpectedDialog
		}
		return res, err
	}
	return res, res.err()
}

// run executes actions on the tab, bounded by timeout and by ctx
func (p *Page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := p.alive(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(p.tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case p.tabCtx.Err() != nil:
		return interfaces.ErrSessionClosed
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("browser command exceeded %s: %w", timeout, err)
	}
	return err
}

func first(elements []interfaces.Element, err error) (interfaces.Element, error) {
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, interfaces.ErrElementNotFound
	}
	return elements[0], nil
}

// dialog is the native dialog reported by the last opening event
type dialog struct {
	page *Page
	text string
	kind string
}

func (d *dialog) Text() string { return d.text }

func (d *dialog) Accept(ctx context.Context) error { return d.handle(ctx, true) }

func (d *dialog) Dismiss(ctx context.Context) error { return d.handle(ctx, false) }

func (d *dialog) handle(ctx context.Context, accept bool) error {
	p := d.page
	p.mu.Lock()
	current := p.dialog == d
	p.mu.Unlock()
	if !current {
		return interfaces.ErrNoDialog
	}

	if err := p.run(ctx, p.commandTimeout, page.HandleJavaScriptDialog(accept)); err != nil {
		if strings.Contains(err.Error(), "No dialog is showing") {
			return interfaces.ErrNoDialog
		}
		return fmt.Errorf("failed to handle %s dialog: %w", d.kind, err)
	}

	p.mu.Lock()
	if p.dialog == d {
		p.dialog = nil
	}
	p.mu.Unlock()
	return nil
}
