package waiter

import (
	"context"

	"github.com/ternarybob/gridcheck/internal/interfaces"
)

// Predicates shared by the services. Each inspects the page once.

// FirstVisible is Ready with the first visible element matching locator
func FirstVisible(page interfaces.Page, locator interfaces.Locator) Predicate[interfaces.Element] {
	return func(ctx context.Context) Outcome[interfaces.Element] {
		elements, err := page.FindAll(ctx, locator)
		if err != nil {
			return Fatal[interfaces.Element](err)
		}
		var transient error
		for _, el := range elements {
			visible, err := el.IsVisible(ctx)
			if err != nil {
				if interfaces.IsTransient(err) {
					transient = err
					continue
				}
				return Fatal[interfaces.Element](err)
			}
			if visible {
				return Ready(el)
			}
		}
		if transient != nil {
			return Fatal[interfaces.Element](transient)
		}
		return Pending[interfaces.Element]()
	}
}

// Present is Ready with the first element matching locator, visible or not
func Present(page interfaces.Page, locator interfaces.Locator) Predicate[interfaces.Element] {
	return func(ctx context.Context) Outcome[interfaces.Element] {
		el, err := page.Find(ctx, locator)
		if err != nil {
			return Fatal[interfaces.Element](err)
		}
		return Ready(el)
	}
}

// CountBelow is Ready with the current count once fewer than limit elements
// match locator
func CountBelow(page interfaces.Page, locator interfaces.Locator, limit int) Predicate[int] {
	return func(ctx context.Context) Outcome[int] {
		elements, err := page.FindAll(ctx, locator)
		if err != nil {
			return Fatal[int](err)
		}
		return From(len(elements), len(elements) < limit, nil)
	}
}

// Absent is Ready once no visible element matches locator
func Absent(page interfaces.Page, locator interfaces.Locator) Predicate[struct{}] {
	return func(ctx context.Context) Outcome[struct{}] {
		elements, err := page.FindAll(ctx, locator)
		if err != nil {
			return Fatal[struct{}](err)
		}
		for _, el := range elements {
			visible, err := el.IsVisible(ctx)
			if err != nil {
				return Fatal[struct{}](err)
			}
			if visible {
				return Pending[struct{}]()
			}
		}
		return Ready(struct{}{})
	}
}
