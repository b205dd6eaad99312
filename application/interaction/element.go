package interaction

import (
	"context"

	"webharness-go/infrastructure/browser"
)

// Click clicks the element repeat times. Each click re-locates the element,
// so a DOM update between clicks is picked up. repeat below 1 means 1.
func Click(ctx context.Context, s Session, sel browser.Selector, repeat int) error {
	if repeat < 1 {
		repeat = 1
	}
	for i := 0; i < repeat; i++ {
		_, err := execute(ctx, s, "click", sel, strict, located, func(ctx context.Context, els []browser.Element) (struct{}, error) {
			return struct{}{}, first(els).Click(ctx)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// SendKeys types text into the element. Use browser.KeyEnter to submit.
func SendKeys(ctx context.Context, s Session, sel browser.Selector, text string) error {
	_, err := execute(ctx, s, "sendKeys", sel, strict, located, func(ctx context.Context, els []browser.Element) (struct{}, error) {
		return struct{}{}, first(els).SendKeys(ctx, text)
	})
	return err
}

// Clear empties an input or textarea.
func Clear(ctx context.Context, s Session, sel browser.Selector) error {
	_, err := execute(ctx, s, "clear", sel, strict, located, func(ctx context.Context, els []browser.Element) (struct{}, error) {
		return struct{}{}, first(els).Clear(ctx)
	})
	return err
}

// ReadText returns the rendered text of the element.
func ReadText(ctx context.Context, s Session, sel browser.Selector) (string, error) {
	return execute(ctx, s, "readText", sel, strict, located, func(ctx context.Context, els []browser.Element) (string, error) {
		return first(els).Text(ctx)
	})
}

// ReadAttribute returns the named attribute and whether it is present.
// An empty name reads "value".
func ReadAttribute(ctx context.Context, s Session, sel browser.Selector, name string) (string, bool, error) {
	if name == "" {
		name = "value"
	}
	type attr struct {
		value   string
		present bool
	}
	a, err := execute(ctx, s, "readAttribute", sel, strict, located, func(ctx context.Context, els []browser.Element) (attr, error) {
		v, ok, err := first(els).Attribute(ctx, name)
		return attr{v, ok}, err
	})
	return a.value, a.present, err
}

// ReadCSSProperty returns the computed value of a CSS property.
func ReadCSSProperty(ctx context.Context, s Session, sel browser.Selector, property string) (string, error) {
	return execute(ctx, s, "readCssProperty", sel, strict, located, func(ctx context.Context, els []browser.Element) (string, error) {
		return first(els).CSSValue(ctx, property)
	})
}

// IsDisplayed reports whether the element is rendered visible. A missing
// or non-interactable element is reported as false after the wait.
func IsDisplayed(ctx context.Context, s Session, sel browser.Selector) (bool, error) {
	return execute(ctx, s, "isDisplayed", sel, lenient, located, func(ctx context.Context, els []browser.Element) (bool, error) {
		return first(els).IsDisplayed(ctx)
	})
}

// IsSelected reports whether a checkbox, radio or option is selected.
func IsSelected(ctx context.Context, s Session, sel browser.Selector) (bool, error) {
	return execute(ctx, s, "isSelected", sel, lenient, located, func(ctx context.Context, els []browser.Element) (bool, error) {
		return first(els).IsSelected(ctx)
	})
}

// IsEnabled reports whether the element accepts input.
func IsEnabled(ctx context.Context, s Session, sel browser.Selector) (bool, error) {
	return execute(ctx, s, "isEnabled", sel, lenient, located, func(ctx context.Context, els []browser.Element) (bool, error) {
		return first(els).IsEnabled(ctx)
	})
}

// CountVisibleElements waits until at least one element matches and
// returns how many do.
func CountVisibleElements(ctx context.Context, s Session, sel browser.Selector) (int, error) {
	return execute(ctx, s, "countVisibleElements", sel, strict, located, func(ctx context.Context, els []browser.Element) (int, error) {
		return len(els), nil
	})
}

// CountElementsImmediate returns how many elements match right now,
// without waiting. Zero matches is not an error.
func CountElementsImmediate(ctx context.Context, s Session, sel browser.Selector) (int, error) {
	immediate := func(ctx context.Context, els []browser.Element) (bool, error) {
		return true, nil
	}
	return execute(ctx, s, "countElementsImmediate", sel, strict, immediate, func(ctx context.Context, els []browser.Element) (int, error) {
		return len(els), nil
	})
}

// WaitUntilVisible waits until the element is displayed and returns it.
func WaitUntilVisible(ctx context.Context, s Session, sel browser.Selector) (browser.Element, error) {
	return execute(ctx, s, "waitUntilVisible", sel, strict, visible, func(ctx context.Context, els []browser.Element) (browser.Element, error) {
		return first(els), nil
	})
}
