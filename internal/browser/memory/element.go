package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/ternarybob/gridcheck/internal/interfaces"
)

type element struct {
	page *Page
	node *html.Node
}

// describe renders a short tag#id.class label. Callers hold p.mu.
func describe(node *html.Node) string {
	var b strings.Builder
	b.WriteString(node.Data)
	for _, a := range node.Attr {
		switch a.Key {
		case "id":
			b.WriteString("#" + a.Val)
		case "class":
			for _, c := range strings.Fields(a.Val) {
				b.WriteString("." + c)
			}
		}
	}
	return b.String()
}

func (e *element) selection() *goquery.Selection {
	return e.page.doc.FindNodes(e.node)
}

// check validates the handle. Callers hold p.mu.
func (e *element) check(ctx context.Context) error {
	if err := e.page.usable(ctx); err != nil {
		return err
	}
	if !e.page.attached(e.node) {
		return fmt.Errorf("%s: %w", describe(e.node), interfaces.ErrStaleElement)
	}
	return nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if err := e.check(ctx); err != nil {
		return "", err
	}
	return e.selection().Text(), nil
}

func (e *element) Click(ctx context.Context) error {
	return e.click(ctx, false)
}

func (e *element) DoubleClick(ctx context.Context) error {
	return e.click(ctx, true)
}

func (e *element) click(ctx context.Context, double bool) error {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if err := e.page.usable(ctx); err != nil {
		return err
	}

	event := &Event{Doc: e.page.doc, Target: e.selection(), Double: double, page: e.page}
	for _, hook := range e.page.beforeClick {
		hook(event)
	}

	if err := e.check(ctx); err != nil {
		return err
	}
	if !visible(e.node) {
		return fmt.Errorf("%s is not visible: %w", describe(e.node), interfaces.ErrClickIntercepted)
	}
	target := e.selection()
	for _, intercept := range e.page.interceptors {
		if blocker, blocked := intercept(e.page.doc, target); blocked {
			return fmt.Errorf("%s covered by %s: %w", describe(e.node), blocker, interfaces.ErrClickIntercepted)
		}
	}

	e.page.clicks = append(e.page.clicks, describe(e.node))
	event.Target = target
	presses := 1
	if double {
		presses = 2
	}
	for i := 0; i < presses; i++ {
		for _, h := range e.page.handlers {
			if target.Is(h.selector) || target.Closest(h.selector).Length() > 0 {
				h.fn(event)
			}
		}
		if e.page.dialog != nil {
			// the second press of a double click lands on the dialog
			break
		}
	}
	return nil
}

func (e *element) IsVisible(ctx context.Context) (bool, error) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if err := e.check(ctx); err != nil {
		return false, err
	}
	return visible(e.node), nil
}

func (e *element) IsEnabled(ctx context.Context) (bool, error) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if err := e.check(ctx); err != nil {
		return false, err
	}
	_, disabled := e.selection().Attr("disabled")
	return !disabled, nil
}

func (e *element) Clear(ctx context.Context) error {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if err := e.check(ctx); err != nil {
		return err
	}
	e.selection().SetAttr("value", "")
	return nil
}

func (e *element) SendText(ctx context.Context, text string) error {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if err := e.check(ctx); err != nil {
		return err
	}
	s := e.selection()
	current, _ := s.Attr("value")
	s.SetAttr("value", current+text)
	return nil
}

func (e *element) SelectByText(ctx context.Context, text string) error {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if err := e.check(ctx); err != nil {
		return err
	}
	options := e.selection().Find("option")
	match := options.FilterFunction(func(_ int, o *goquery.Selection) bool {
		return strings.TrimSpace(o.Text()) == text
	})
	if match.Length() == 0 {
		return fmt.Errorf("%q in %s: %w", text, describe(e.node), interfaces.ErrOptionNotFound)
	}
	options.RemoveAttr("selected")
	match.First().SetAttr("selected", "selected")
	return nil
}

func (e *element) Options(ctx context.Context) ([]string, error) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if err := e.check(ctx); err != nil {
		return nil, err
	}
	var out []string
	e.selection().Find("option").Each(func(_ int, o *goquery.Selection) {
		out = append(out, strings.TrimSpace(o.Text()))
	})
	return out, nil
}

func (e *element) FindAll(ctx context.Context, locator interfaces.Locator) ([]interfaces.Element, error) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if err := e.check(ctx); err != nil {
		return nil, err
	}
	return e.page.query(e.selection(), locator)
}

func (e *element) Find(ctx context.Context, locator interfaces.Locator) (interfaces.Element, error) {
	elements, err := e.FindAll(ctx, locator)
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("%s under %s: %w", locator, describe(e.node), interfaces.ErrElementNotFound)
	}
	return elements[0], nil
}

// visible walks up from node looking for hidden ancestors
func visible(node *html.Node) bool {
	for n := node; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		for _, a := range n.Attr {
			switch a.Key {
			case "hidden":
				return false
			case "style":
				style := strings.ReplaceAll(strings.ToLower(a.Val), " ", "")
				if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
					return false
				}
			case "type":
				if n == node && n.Data == "input" && a.Val == "hidden" {
					return false
				}
			}
		}
	}
	return true
}

// Hide marks every element matching selector hidden
func Hide(doc *goquery.Document, selector string) {
	doc.Find(selector).SetAttr("hidden", "hidden")
}

// Show removes the hidden attribute from every element matching selector
func Show(doc *goquery.Document, selector string) {
	doc.Find(selector).RemoveAttr("hidden")
}

// CoveredBy returns an Interceptor that blocks clicks on elements matching
// covered while a visible element matches overlay
func CoveredBy(overlay, covered string) Interceptor {
	return func(doc *goquery.Document, target *goquery.Selection) (string, bool) {
		if !target.Is(covered) {
			return "", false
		}
		var blocker string
		doc.Find(overlay).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if visible(s.Get(0)) {
				blocker = describe(s.Get(0))
				return false
			}
			return true
		})
		return blocker, blocker != ""
	}
}
