package pages

import (
	"context"

	"webharness-go/application/interaction"
	"webharness-go/core/randutil"
	"webharness-go/domain/page"
	"webharness-go/infrastructure/browser"
)

// Category sections that must render on the landing page.
var categoryElements = []string{"mathematics", "scienceTechnology", "societyCulture", "everydayLife"}

const searchInputElement = "searchInput"

// LandingPage is the application's start page.
type LandingPage struct {
	s   interaction.Session
	sel map[string]browser.Selector
}

// NewLandingPage binds the landing catalog to a session.
func NewLandingPage(s interaction.Session, reg *page.Registry) (*LandingPage, error) {
	sel, err := selectors(reg, Landing, append(append([]string(nil), categoryElements...), searchInputElement)...)
	if err != nil {
		return nil, err
	}
	return &LandingPage{s: s, sel: sel}, nil
}

// MainCategoriesLoaded reports whether all four category sections are
// displayed. It stops at the first one that is not.
func (p *LandingPage) MainCategoriesLoaded(ctx context.Context) (bool, error) {
	for _, name := range categoryElements {
		ok, err := interaction.IsDisplayed(ctx, p.s, p.sel[name])
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// InputRandomSearchParameter types a random codename into the search box
// and returns it.
func (p *LandingPage) InputRandomSearchParameter(ctx context.Context) (string, error) {
	src := p.s.Random()
	if src == nil {
		src = randutil.Default()
	}
	value := src.Codename()
	if err := interaction.SendKeys(ctx, p.s, p.sel[searchInputElement], value); err != nil {
		return "", err
	}
	return value, nil
}

// StartSearchUsingKeyboard submits the search box with Enter.
func (p *LandingPage) StartSearchUsingKeyboard(ctx context.Context) (*LandingPage, error) {
	if err := interaction.SendKeys(ctx, p.s, p.sel[searchInputElement], browser.KeyEnter); err != nil {
		return nil, err
	}
	return p, nil
}
