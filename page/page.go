// Package page exposes fetched documents through a small selector query
// interface so extraction code never depends on a concrete HTML parser.
package page

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Node is a queryable fragment of a fetched page. An empty selector
// addresses the node itself.
type Node interface {
	// Text returns the trimmed text of the first match and whether a match exists.
	Text(selector string) (string, bool)
	// Attr returns an attribute of the first match.
	Attr(selector, name string) (string, bool)
	// Has reports whether the selector matches anything.
	Has(selector string) bool
	// All returns every match in document order.
	All(selector string) []Node
}

// Document is the goquery backed Node.
type Document struct {
	sel *goquery.Selection
	url string
}

// FromSelection wraps an already parsed selection, e.g. colly's HTMLElement.DOM.
func FromSelection(sel *goquery.Selection, url string) *Document {
	return &Document{sel: sel, url: url}
}

// Parse reads HTML from r.
func Parse(r io.Reader, url string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return FromSelection(doc.Selection, url), nil
}

// MustParse is Parse for literal HTML in tests and fixtures.
func MustParse(html, url string) *Document {
	doc, err := Parse(strings.NewReader(html), url)
	if err != nil {
		panic(err)
	}
	return doc
}

// URL returns the final response URL the document was read from.
func (d *Document) URL() string {
	return d.url
}

func (d *Document) find(selector string) *goquery.Selection {
	if selector == "" {
		return d.sel
	}
	return d.sel.Find(selector)
}

// Text implements Node.
func (d *Document) Text(selector string) (string, bool) {
	match := d.find(selector).First()
	if match.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(match.Text()), true
}

// Attr implements Node.
func (d *Document) Attr(selector, name string) (string, bool) {
	match := d.find(selector).First()
	if match.Length() == 0 {
		return "", false
	}
	value, ok := match.Attr(name)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

// Has implements Node.
func (d *Document) Has(selector string) bool {
	return d.find(selector).Length() > 0
}

// All implements Node.
func (d *Document) All(selector string) []Node {
	matches := d.find(selector)
	nodes := make([]Node, 0, matches.Length())
	matches.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, &Document{sel: s, url: d.url})
	})
	return nodes
}
