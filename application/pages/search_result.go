package pages

import (
	"context"

	"webharness-go/application/interaction"
	"webharness-go/domain/page"
	"webharness-go/infrastructure/browser"
)

// SearchResultPage is shown after a search is submitted.
type SearchResultPage struct {
	s              interaction.Session
	previousSearch browser.Selector
}

// NewSearchResultPage binds the search result catalog to a session.
func NewSearchResultPage(s interaction.Session, reg *page.Registry) (*SearchResultPage, error) {
	sel, err := selectors(reg, SearchResult, "previousSearch")
	if err != nil {
		return nil, err
	}
	return &SearchResultPage{s: s, previousSearch: sel["previousSearch"]}, nil
}

// VerifyPreviousSearchInput reports whether the pre-populated query equals
// the value searched for on the landing page.
func (p *SearchResultPage) VerifyPreviousSearchInput(ctx context.Context, value string) (bool, error) {
	text, err := interaction.ReadText(ctx, p.s, p.previousSearch)
	if err != nil {
		return false, err
	}
	return text == value, nil
}
