package wishlist

import (
	"fmt"
	"strings"
	"testing"

	"github.com/aluiziolira/go-scrape-wishlists/page"
	"github.com/aluiziolira/go-scrape-wishlists/parser"
	"github.com/stretchr/testify/require"
)

const testBase = "https://www.example.test"

type testItem struct {
	id       string
	price    string
	title    string
	byline   string
	priority string
	comment  string
	used     string
	prime    bool
}

func (it testItem) html() string {
	var b strings.Builder
	fmt.Fprintf(&b, `<li data-itemid="%s" data-price="%s">`, it.id, it.price)
	fmt.Fprintf(&b, `<img src="https://images.example.test/%s.jpg">`, it.id)
	fmt.Fprintf(&b, `<a id="itemName_%s" href="/dp/B00000000%s/?coliid=%s" title="%s">%s</a>`, it.id, it.id[len(it.id)-1:], it.id, it.title, it.title)
	if it.byline != "" {
		fmt.Fprintf(&b, `<span id="item-byline-%s">%s</span>`, it.id, it.byline)
	}
	if it.priority != "" {
		fmt.Fprintf(&b, `<span id="itemPriority_%s">%s</span>`, it.id, it.priority)
	}
	if it.comment != "" {
		fmt.Fprintf(&b, `<span id="itemComment_%s">%s</span>`, it.id, it.comment)
	}
	if it.used != "" {
		fmt.Fprintf(&b, `<span class="itemUsedAndNewPrice">%s</span>`, it.used)
	}
	if it.prime {
		b.WriteString(`<i class="a-icon a-icon-prime"></i>`)
	}
	b.WriteString(`</li>`)
	return b.String()
}

type testPage struct {
	listID   string
	title    string
	items    []testItem
	lek      string
	showMore string
}

func (p testPage) html() string {
	var b strings.Builder
	b.WriteString(`<html><body>`)
	if p.listID != "" {
		fmt.Fprintf(&b, `<input type="hidden" name="listId" value="%s">`, p.listID)
	}
	if p.title != "" {
		fmt.Fprintf(&b, `<span id="profile-list-name">%s</span>`, p.title)
	}
	b.WriteString(`<ul id="g-items">`)
	for _, it := range p.items {
		b.WriteString(it.html())
	}
	b.WriteString(`</ul>`)
	if p.lek != "" {
		fmt.Fprintf(&b, `<input type="hidden" name="lastEvaluatedKey" value="%s">`, p.lek)
	}
	if p.showMore != "" {
		fmt.Fprintf(&b, `<input type="hidden" name="showMoreUrl" value="%s">`, p.showMore)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func (p testPage) doc() *page.Document {
	return page.MustParse(p.html(), "")
}

func newTestSite(t *testing.T) *Site {
	t.Helper()
	site, err := NewSite(testBase)
	require.NoError(t, err)
	return site
}

func newTestExtractor(t *testing.T, loc parser.Locale) *Extractor {
	t.Helper()
	return NewExtractor(newTestSite(t), loc, parser.DefaultBuyPrices())
}
