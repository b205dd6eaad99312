// Package pages holds the page objects for the application under test and
// resolves flow targets against the page catalogs.
package pages

import (
	"fmt"
	"strings"

	"webharness-go/domain/page"
	"webharness-go/infrastructure/browser"
	"webharness-go/resources"
)

// Page names in the shipped catalog.
const (
	Landing      = "landing"
	SearchResult = "searchResult"
)

// LoadCatalog loads the page catalogs embedded in the binary.
func LoadCatalog() (*page.Registry, error) {
	reg := page.NewRegistry()
	if err := page.NewLoader(reg).LoadFromFS(resources.Files); err != nil {
		return nil, err
	}
	return reg, nil
}

// Resolve turns a flow target into a selector. Targets prefixed with
// "xpath=" or "css=", or starting with "/" or "(", are raw selectors;
// anything else is a "page.element" reference looked up in reg.
func Resolve(reg *page.Registry, target string) (browser.Selector, error) {
	target = strings.TrimSpace(target)
	if isRawSelector(target) {
		return browser.ParseSelector(target)
	}
	if reg == nil {
		return browser.Selector{}, fmt.Errorf("%w: %s (no catalog loaded)", page.ErrUnknownElement, target)
	}

	expr, err := reg.Resolve(target)
	if err != nil {
		return browser.Selector{}, err
	}
	return browser.ParseSelector(expr)
}

func isRawSelector(s string) bool {
	for _, prefix := range []string{"xpath=", "css=", "/", "("} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// selectors resolves every element of pageName up front so page objects
// fail at construction rather than mid-test.
func selectors(reg *page.Registry, pageName string, elements ...string) (map[string]browser.Selector, error) {
	out := make(map[string]browser.Selector, len(elements))
	for _, el := range elements {
		sel, err := Resolve(reg, pageName+"."+el)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s.%s: %w", pageName, el, err)
		}
		out[el] = sel
	}
	return out, nil
}
