// Package page defines selector catalogs for the pages under test.
package page

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownElement is returned when a reference names no catalogued element.
var ErrUnknownElement = errors.New("unknown page element")

// Page is a named set of element selectors for one logical page.
type Page struct {
	// Name is the unique identifier used in "page.element" references
	Name string

	Description string

	// Path is appended to the application URL by navigate steps, if set
	Path string

	// Elements maps element names to selector expressions
	// ("xpath=...", "css=...", or a bare XPath/CSS expression).
	Elements map[string]string
}

// Selector returns the selector expression for element.
func (p *Page) Selector(element string) (string, error) {
	sel, ok := p.Elements[element]
	if !ok {
		return "", fmt.Errorf("%w: %s.%s", ErrUnknownElement, p.Name, element)
	}
	return sel, nil
}

// ElementNames returns the element names, sorted.
func (p *Page) ElementNames() []string {
	names := make([]string, 0, len(p.Elements))
	for name := range p.Elements {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that the page has a usable name and non-empty selectors.
func (p *Page) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("page name is required")
	}
	if strings.Contains(p.Name, ".") {
		return fmt.Errorf("page name %q cannot contain '.'", p.Name)
	}
	if len(p.Elements) == 0 {
		return fmt.Errorf("page %s has no elements", p.Name)
	}
	for name, sel := range p.Elements {
		if strings.TrimSpace(sel) == "" {
			return fmt.Errorf("page %s: element %s has an empty selector", p.Name, name)
		}
	}
	return nil
}

// SplitRef splits a "page.element" reference. ok is false when ref has no dot.
func SplitRef(ref string) (pageName, element string, ok bool) {
	i := strings.IndexByte(ref, '.')
	if i <= 0 || i == len(ref)-1 {
		return "", "", false
	}
	return ref[:i], ref[i+1:], true
}
