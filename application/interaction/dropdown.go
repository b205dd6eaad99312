package interaction

import (
	"context"
	"fmt"
	"strings"

	"webharness-go/core/failure"
	"webharness-go/infrastructure/browser"
)

// Dropdown is a located select element.
type Dropdown struct {
	el     browser.Element
	sel    browser.Selector
	random func(min, max int) int
}

// asDropdown fails with ElementNotSelectable unless el is a select element.
func asDropdown(ctx context.Context, s Session, sel browser.Selector, el browser.Element) (*Dropdown, error) {
	tag, err := el.TagName(ctx)
	if err != nil {
		return nil, err
	}
	if tag != "select" {
		return nil, failure.New(failure.ElementNotSelectable, "", "", fmt.Errorf("element is <%s>, not <select>", tag))
	}
	return &Dropdown{el: el, sel: sel, random: randomOf(s).Intn}, nil
}

// LocateDropdown waits for a select element and returns it.
func LocateDropdown(ctx context.Context, s Session, sel browser.Selector) (*Dropdown, error) {
	return execute(ctx, s, "locateDropdown", sel, strict, located, func(ctx context.Context, els []browser.Element) (*Dropdown, error) {
		return asDropdown(ctx, s, sel, first(els))
	})
}

// withDropdown runs fn on the select element matched by sel.
func withDropdown(ctx context.Context, s Session, op string, sel browser.Selector, fn func(ctx context.Context, d *Dropdown) (string, error)) (string, error) {
	return execute(ctx, s, op, sel, strict, located, func(ctx context.Context, els []browser.Element) (string, error) {
		d, err := asDropdown(ctx, s, sel, first(els))
		if err != nil {
			return "", err
		}
		return fn(ctx, d)
	})
}

// SelectByVisibleText selects the first option whose text equals text, or
// contains it when partial is set.
func SelectByVisibleText(ctx context.Context, s Session, sel browser.Selector, text string, partial bool) error {
	_, err := withDropdown(ctx, s, "selectByVisibleText", sel, func(ctx context.Context, d *Dropdown) (string, error) {
		return "", d.SelectByText(ctx, text, partial)
	})
	return err
}

// SelectByIndex selects the option at index i.
func SelectByIndex(ctx context.Context, s Session, sel browser.Selector, i int) error {
	_, err := withDropdown(ctx, s, "selectByIndex", sel, func(ctx context.Context, d *Dropdown) (string, error) {
		return "", d.SelectByIndex(ctx, i)
	})
	return err
}

// ReadSelectedOptionText returns the text of the selected option.
func ReadSelectedOptionText(ctx context.Context, s Session, sel browser.Selector) (string, error) {
	return withDropdown(ctx, s, "readSelectedOptionText", sel, func(ctx context.Context, d *Dropdown) (string, error) {
		return d.SelectedText(ctx)
	})
}

// SelectRandomOption selects a uniformly random option other than the
// first, which is usually a placeholder. It returns the selected text.
func SelectRandomOption(ctx context.Context, s Session, sel browser.Selector) (string, error) {
	return withDropdown(ctx, s, "selectRandomOption", sel, func(ctx context.Context, d *Dropdown) (string, error) {
		return d.SelectRandom(ctx)
	})
}

// SelectOptionOtherThan scans the options from index 1 and selects the
// first whose text differs from excluded. If every scanned option equals
// excluded, nothing is selected and the returned text is empty.
func SelectOptionOtherThan(ctx context.Context, s Session, sel browser.Selector, excluded string) (string, error) {
	return withDropdown(ctx, s, "selectOptionOtherThan", sel, func(ctx context.Context, d *Dropdown) (string, error) {
		return d.SelectOtherThan(ctx, excluded)
	})
}

// Options returns the options of the dropdown.
func (d *Dropdown) Options(ctx context.Context) ([]browser.Option, error) {
	return d.el.Options(ctx)
}

// SelectByIndex selects the option at index i.
func (d *Dropdown) SelectByIndex(ctx context.Context, i int) error {
	opts, err := d.el.Options(ctx)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(opts) {
		return failure.New(failure.NotFound, "", "", fmt.Errorf("no option at index %d of %d", i, len(opts)))
	}
	return d.el.SelectIndex(ctx, i)
}

// SelectByText selects the first option matching text.
func (d *Dropdown) SelectByText(ctx context.Context, text string, partial bool) error {
	opts, err := d.el.Options(ctx)
	if err != nil {
		return err
	}
	want := strings.TrimSpace(text)
	for _, o := range opts {
		got := strings.TrimSpace(o.Text)
		if got == want || (partial && strings.Contains(got, want)) {
			return d.el.SelectIndex(ctx, o.Index)
		}
	}
	return failure.New(failure.NotFound, "", "", fmt.Errorf("no option with text %q", text))
}

// SelectedText returns the text of the selected option.
func (d *Dropdown) SelectedText(ctx context.Context) (string, error) {
	opts, err := d.el.Options(ctx)
	if err != nil {
		return "", err
	}
	for _, o := range opts {
		if o.Selected {
			return strings.TrimSpace(o.Text), nil
		}
	}
	return "", failure.New(failure.NotFound, "", "", fmt.Errorf("no option selected"))
}

// SelectRandom selects a random option in [1, n).
func (d *Dropdown) SelectRandom(ctx context.Context) (string, error) {
	opts, err := d.el.Options(ctx)
	if err != nil {
		return "", err
	}
	if len(opts) < 2 {
		return "", failure.New(failure.NotFound, "", "", fmt.Errorf("need at least 2 options, have %d", len(opts)))
	}
	i := d.random(1, len(opts))
	if err := d.el.SelectIndex(ctx, opts[i].Index); err != nil {
		return "", err
	}
	return strings.TrimSpace(opts[i].Text), nil
}

// SelectOtherThan selects the first option from index 1 whose text is not excluded.
func (d *Dropdown) SelectOtherThan(ctx context.Context, excluded string) (string, error) {
	opts, err := d.el.Options(ctx)
	if err != nil {
		return "", err
	}
	want := strings.TrimSpace(excluded)
	for i := 1; i < len(opts); i++ {
		text := strings.TrimSpace(opts[i].Text)
		if text != want {
			if err := d.el.SelectIndex(ctx, opts[i].Index); err != nil {
				return "", err
			}
			return text, nil
		}
	}
	return "", nil
}

// Selector returns the selector the dropdown was located with.
func (d *Dropdown) Selector() browser.Selector {
	return d.sel
}
