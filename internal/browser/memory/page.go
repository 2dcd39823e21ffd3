// Package memory is an in-process DOM that implements interfaces.Page on top
// of goquery. Tests script application behaviour with click handlers and
// mutate the document directly to reproduce re-render races.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/ternarybob/gridcheck/internal/interfaces"
)

// Event is passed to click handlers and hooks. Handlers run while the page
// is locked and must only touch the document through Doc and the Event
// helpers.
type Event struct {
	Doc    *goquery.Document
	Target *goquery.Selection
	Double bool
	page   *Page
}

// OpenDialog opens a native dialog with text
func (e *Event) OpenDialog(text string) {
	e.page.dialog = &dialog{page: e.page, text: text}
}

// Value returns the value attribute of the first element matching selector
func (e *Event) Value(selector string) string {
	v, _ := e.Doc.Find(selector).First().Attr("value")
	return v
}

// Selected returns the text of the selected option of the select matching selector
func (e *Event) Selected(selector string) string {
	return strings.TrimSpace(e.Doc.Find(selector).First().Find("option[selected]").First().Text())
}

// ClickHandler reacts to a click on an element matching its selector
type ClickHandler func(e *Event)

// Interceptor decides whether a click on target is covered by another
// element. It returns a description of the blocker when it is.
type Interceptor func(doc *goquery.Document, target *goquery.Selection) (string, bool)

type handler struct {
	selector string
	fn       ClickHandler
}

// Page is an in-memory interfaces.Page
type Page struct {
	mu           sync.Mutex
	doc          *goquery.Document
	dialog       *dialog
	handlers     []handler
	interceptors []Interceptor
	beforeClick  []ClickHandler
	clicks       []string
}

// New parses markup into a Page
func New(markup string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page markup: %w", err)
	}
	return &Page{doc: doc}, nil
}

// MustNew is New for fixtures known to be valid
func MustNew(markup string) *Page {
	p, err := New(markup)
	if err != nil {
		panic(err)
	}
	return p
}

// Handle registers fn for clicks on elements matching selector
func (p *Page) Handle(selector string, fn ClickHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, handler{selector: selector, fn: fn})
}

// Intercept registers a click interceptor
func (p *Page) Intercept(fn Interceptor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interceptors = append(p.interceptors, fn)
}

// BeforeClick registers a hook that runs before a click is validated, so it
// can detach the target to simulate a re-render race
func (p *Page) BeforeClick(fn ClickHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.beforeClick = append(p.beforeClick, fn)
}

// Mutate runs fn against the document under the page lock
func (p *Page) Mutate(fn func(doc *goquery.Document)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p.doc)
}

// OpenDialog opens a native dialog with text
func (p *Page) OpenDialog(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dialog = &dialog{page: p, text: text}
}

// DialogOpen reports whether a native dialog is open
func (p *Page) DialogOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dialog != nil
}

// Count returns how many elements match selector
func (p *Page) Count(selector string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.Find(selector).Length()
}

// Clicks returns a description of every successful click, in order
func (p *Page) Clicks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicks...)
}

// HTML renders the current document
func (p *Page) HTML() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out, err := p.doc.Html()
	if err != nil {
		return ""
	}
	return out
}

// FindAll implements interfaces.Page
func (p *Page) FindAll(ctx context.Context, locator interfaces.Locator) ([]interfaces.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.usable(ctx); err != nil {
		return nil, err
	}
	return p.query(p.doc.Selection, locator)
}

// Find implements interfaces.Page
func (p *Page) Find(ctx context.Context, locator interfaces.Locator) (interfaces.Element, error) {
	elements, err := p.FindAll(ctx, locator)
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("%s: %w", locator, interfaces.ErrElementNotFound)
	}
	return elements[0], nil
}

// CurrentDialog implements interfaces.Page
func (p *Page) CurrentDialog(ctx context.Context) (interfaces.Dialog, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.dialog == nil {
		return nil, interfaces.ErrNoDialog
	}
	return p.dialog, nil
}

// usable rejects DOM access while a dialog blocks the page. Callers hold p.mu.
func (p *Page) usable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.dialog != nil {
		return fmt.Errorf("dialog %q: %w", p.dialog.text, interfaces.ErrUnexpectedDialog)
	}
	return nil
}

// query resolves locator under root. Callers hold p.mu.
func (p *Page) query(root *goquery.Selection, locator interfaces.Locator) ([]interfaces.Element, error) {
	if locator.By == interfaces.ByXPath {
		return nil, fmt.Errorf("memory page does not support xpath locator %s", locator)
	}
	var elements []interfaces.Element
	root.Find(locator.Value).Each(func(_ int, s *goquery.Selection) {
		if locator.Text != "" && strings.TrimSpace(s.Text()) != locator.Text {
			return
		}
		elements = append(elements, &element{page: p, node: s.Get(0)})
	})
	return elements, nil
}

// attached reports whether node is still part of the document. Callers hold p.mu.
func (p *Page) attached(node *html.Node) bool {
	root := p.doc.Get(0)
	for n := node; n != nil; n = n.Parent {
		if n == root {
			return true
		}
	}
	return false
}

type dialog struct {
	page *Page
	text string
}

func (d *dialog) Text() string { return d.text }

func (d *dialog) Accept(ctx context.Context) error { return d.close() }

func (d *dialog) Dismiss(ctx context.Context) error { return d.close() }

func (d *dialog) close() error {
	d.page.mu.Lock()
	defer d.page.mu.Unlock()
	if d.page.dialog != d {
		return interfaces.ErrNoDialog
	}
	d.page.dialog = nil
	return nil
}
