package interfaces

import (
	"context"
	"errors"
	"fmt"
)

// Errors reported by Page implementations. The first three are transient:
// waits treat them as "not yet" while polling.
var (
	// ErrStaleElement means the element was detached from the document after
	// the handle was obtained
	ErrStaleElement = errors.New("stale element reference")
	// ErrElementNotFound means no element matched the locator
	ErrElementNotFound = errors.New("element not found")
	// ErrUnexpectedDialog means a native dialog is open and blocks DOM access
	ErrUnexpectedDialog = errors.New("unexpected native dialog open")

	// ErrClickIntercepted means another element covers the click target
	ErrClickIntercepted = errors.New("click intercepted by another element")
	// ErrNoDialog means no native dialog is currently open
	ErrNoDialog = errors.New("no native dialog present")
	// ErrOptionNotFound means a select has no option with the requested text
	ErrOptionNotFound = errors.New("select option not found")
	// ErrSessionClosed means the browser session is gone
	ErrSessionClosed = errors.New("browser session closed")
)

// TransientErrors are the failure kinds waits swallow by default
var TransientErrors = []error{ErrStaleElement, ErrElementNotFound, ErrUnexpectedDialog}

// IsTransient reports whether err matches one of TransientErrors
func IsTransient(err error) bool {
	for _, kind := range TransientErrors {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// LocatorStrategy selects how a locator value is interpreted
type LocatorStrategy string

const (
	ByCSS   LocatorStrategy = "css"
	ByXPath LocatorStrategy = "xpath"
)

// Locator addresses elements on the page. When Text is set only elements
// whose trimmed visible text equals it are matched.
type Locator struct {
	By    LocatorStrategy `toml:"by"`
	Value string          `toml:"value"`
	Text  string          `toml:"text"`
}

// CSS returns a CSS locator
func CSS(selector string) Locator {
	return Locator{By: ByCSS, Value: selector}
}

// XPath returns an XPath locator
func XPath(expr string) Locator {
	return Locator{By: ByXPath, Value: expr}
}

// WithText narrows a locator to elements whose visible text equals text
func (l Locator) WithText(text string) Locator {
	l.Text = text
	return l
}

// IsZero reports whether the locator is unset
func (l Locator) IsZero() bool {
	return l.Value == ""
}

func (l Locator) String() string {
	by := l.By
	if by == "" {
		by = ByCSS
	}
	if l.Text != "" {
		return fmt.Sprintf("%s=%s[text=%q]", by, l.Value, l.Text)
	}
	return fmt.Sprintf("%s=%s", by, l.Value)
}

// Page is the capability surface the verification engine needs from a
// browser. Implementations never wait implicitly: every call inspects the
// DOM once and returns.
type Page interface {
	// FindAll returns every element matching the locator, possibly none
	FindAll(ctx context.Context, locator Locator) ([]Element, error)

	// Find returns the first matching element or ErrElementNotFound
	Find(ctx context.Context, locator Locator) (Element, error)

	// CurrentDialog returns the open native dialog or ErrNoDialog
	CurrentDialog(ctx context.Context) (Dialog, error)
}

// Element is a handle to a DOM element. Any method may return
// ErrStaleElement once the page re-renders.
type Element interface {
	Text(ctx context.Context) (string, error)
	Click(ctx context.Context) error
	DoubleClick(ctx context.Context) error
	IsVisible(ctx context.Context) (bool, error)
	IsEnabled(ctx context.Context) (bool, error)
	Clear(ctx context.Context) error
	SendText(ctx context.Context, text string) error

	// SelectByText picks the option of a select element whose text equals text
	SelectByText(ctx context.Context, text string) error

	// Options returns the option texts of a select element in order
	Options(ctx context.Context) ([]string, error)

	// FindAll and Find search the element's subtree
	FindAll(ctx context.Context, locator Locator) ([]Element, error)
	Find(ctx context.Context, locator Locator) (Element, error)
}

// Dialog is an open native browser dialog (alert, confirm, prompt)
type Dialog interface {
	Text() string
	Accept(ctx context.Context) error
	Dismiss(ctx context.Context) error
}
