// Package wishlist turns fetched wishlist pages into products and decides
// how the crawl of each list continues.
package wishlist

import (
	"fmt"
	"net/url"
	"strings"
)

// Selectors of the wishlist markup.
const (
	itemSelector       = "li[data-price]"
	itemIDAttr         = "data-itemid"
	itemPriceAttr      = "data-price"
	itemLinkSelector   = `a[id^="itemName"]`
	itemImageSelector  = "img"
	usedPriceSelector  = ".itemUsedAndNewPrice"
	primeBadgeSelector = ".a-icon-prime"

	listIDSelector      = `input[name="listId"]`
	listIDFallback      = "[data-list-id]"
	listTitleSelector   = "#profile-list-name"
	continuationKeySel  = `input[name="lastEvaluatedKey"]`
	nextPageLinkSel     = `input[name="showMoreUrl"]`
	navListsSelector    = `#your-lists-nav a[href*="/hz/wishlist/ls/"]`
	navListsFallbackSel = `a[href*="/wishlist/genericItemsPage/"], a[href*="/hz/wishlist/ls/"], a[href*="lid="]`
)

func itemField(prefix, id string) string {
	return "#" + prefix + id
}

// Site resolves relative hrefs against the configured site base.
type Site struct {
	base *url.URL
}

// NewSite parses the site base URL, e.g. "https://www.amazon.de".
func NewSite(baseURL string) (*Site, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse site url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("site url %q must be absolute", baseURL)
	}
	return &Site{base: parsed}, nil
}

// Resolve returns href as an absolute URL. Empty or unparseable hrefs
// resolve to "".
func (s *Site) Resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return s.base.ResolveReference(ref).String()
}
