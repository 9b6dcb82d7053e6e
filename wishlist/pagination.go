package wishlist

import (
	"net/url"
	"strings"

	"github.com/aluiziolira/go-scrape-wishlists/page"
)

// Advancer decides the next request of one list's infinite-scroll
// pagination. It is owned by a single list and is not safe for concurrent use.
type Advancer struct {
	site     *Site
	listURL  string
	maxPages int
	pages    int
	fetched  map[string]struct{}
}

// NewAdvancer starts pagination for listURL, which counts as fetched.
// maxPages <= 0 means no cap.
func NewAdvancer(site *Site, listURL string, maxPages int) *Advancer {
	return &Advancer{
		site:     site,
		listURL:  listURL,
		maxPages: maxPages,
		pages:    1,
		fetched:  map[string]struct{}{listURL: {}},
	}
}

// Pages returns how many page requests the advancer has handed out.
func (a *Advancer) Pages() int {
	return a.pages
}

// Next reads the trailing markers of p. Only a continuation key proves there
// is more data; the "show more" link is repeated by the site even on the last
// page and is followed only when it carries the new key. The returned URL is
// recorded as fetched.
func (a *Advancer) Next(p page.Node) (string, bool) {
	key, ok := p.Attr(continuationKeySel, "value")
	if !ok || key == "" {
		return "", false
	}
	if a.maxPages > 0 && a.pages >= a.maxPages {
		return "", false
	}

	next := ""
	if link, ok := p.Attr(nextPageLinkSel, "value"); ok {
		if abs := a.site.Resolve(link); abs != "" && a.carriesKey(abs, key) && !a.seen(abs) {
			next = abs
		}
	}
	if next == "" {
		next = withContinuationKey(a.listURL, key)
	}
	if a.seen(next) {
		return "", false
	}

	a.fetched[next] = struct{}{}
	a.pages++
	return next, true
}

func (a *Advancer) seen(u string) bool {
	_, ok := a.fetched[u]
	return ok
}

func (a *Advancer) carriesKey(link, key string) bool {
	return strings.Contains(link, key) || strings.Contains(link, url.QueryEscape(key))
}

// withContinuationKey appends the key as the "lek" query parameter.
func withContinuationKey(listURL, key string) string {
	parsed, err := url.Parse(listURL)
	if err != nil {
		return listURL + "?lek=" + url.QueryEscape(key)
	}
	query := parsed.Query()
	query.Set("lek", key)
	parsed.RawQuery = query.Encode()
	return parsed.String()
}
