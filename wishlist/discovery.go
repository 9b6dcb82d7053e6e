package wishlist

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/aluiziolira/go-scrape-wishlists/page"
)

// ListRef identifies one wishlist eligible for crawling.
type ListRef struct {
	ID  string
	URL string
}

var listIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/genericItemsPage/([A-Za-z0-9]+)`),
	regexp.MustCompile(`/ls/([A-Za-z0-9]+)`),
}

// ListID normalizes the known list URL shapes (".../genericItemsPage/<id>",
// ".../ls/<id>", "...?lid=<id>") to the bare list id. It returns "" for
// anything else.
func ListID(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	if lid := parsed.Query().Get("lid"); lid != "" {
		return lid
	}
	for _, pattern := range listIDPatterns {
		if m := pattern.FindStringSubmatch(parsed.Path); m != nil {
			return m[1]
		}
	}
	return ""
}

// normalizeExclusion accepts either a list URL in any known shape or a bare id.
func normalizeExclusion(exclusion string) string {
	if id := ListID(exclusion); id != "" {
		return id
	}
	return strings.TrimSpace(exclusion)
}

// Discover collects the lists linked from a navigation page in document
// order. The primary selector family is tried first; the fallback only when
// it yields nothing. Exclusions are matched by list id so a different URL
// shape still matches.
func Discover(p page.Node, site *Site, excludes []string) []ListRef {
	excluded := make(map[string]struct{}, len(excludes))
	for _, e := range excludes {
		if id := normalizeExclusion(e); id != "" {
			excluded[id] = struct{}{}
		}
	}

	links := p.All(navListsSelector)
	if len(links) == 0 {
		links = p.All(navListsFallbackSel)
	}

	seen := make(map[string]struct{}, len(links))
	refs := make([]ListRef, 0, len(links))
	for _, link := range links {
		href, _ := link.Attr("", "href")
		abs := site.Resolve(href)
		id := ListID(abs)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := excluded[id]; ok {
			continue
		}
		refs = append(refs, ListRef{ID: id, URL: abs})
	}
	return refs
}
