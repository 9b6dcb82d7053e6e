package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aluiziolira/go-scrape-wishlists/models"
	"github.com/antchfx/xmlquery"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(id, price string) *models.Product {
	p := &models.Product{
		ID:       id,
		Title:    "Title " + id,
		URL:      "https://www.example.test/dp/" + id,
		BuyPrice: decimal.NewFromInt(30),
	}
	if price != "" {
		p.Price = models.PriceOf(decimal.RequireFromString(price))
		p.PriceDisplay = "$" + price
	}
	return p
}

func parseOutput(t *testing.T, path string) *xmlquery.Node {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	doc, err := xmlquery.Parse(f)
	require.NoError(t, err)
	return doc
}

func attrs(nodes []*xmlquery.Node, name string) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.SelectAttr(name))
	}
	return out
}

func TestWriteOmitsEmptyWishlistsAndKeepsOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "wishlists.xml")
	w := NewWriter(path, StylesheetFor(path))

	wishlists := []*models.Wishlist{
		{ID: "L1", Title: "Books", URL: "https://www.example.test/hz/wishlist/ls/L1", Products: []*models.Product{product("B", "20.00"), product("A", "10.00"), product("B", "19.00")}},
		{ID: "L2", Title: "Empty", URL: "https://www.example.test/hz/wishlist/ls/L2"},
		{Title: "Error: https://www.example.test/hz/wishlist/ls/L3", Errored: true},
		{ID: "L4", Title: "Games", URL: "https://www.example.test/hz/wishlist/ls/L4", Products: []*models.Product{product("C", "")}},
	}

	n, err := w.Write(wishlists, Empty())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, string(raw), `<?xml-stylesheet type="text/xsl" href="`+strings.TrimSuffix(path, ".xml")+`.xslt"?>`)

	doc := parseOutput(t, path)
	lists := xmlquery.Find(doc, "/amazon/wishlist")
	require.Len(t, lists, 2)
	assert.Equal(t, []string{"L1", "L4"}, attrs(lists, "id"))
	assert.Equal(t, "Books", xmlquery.FindOne(lists[0], "title").InnerText())
	assert.Equal(t, "https://www.example.test/hz/wishlist/ls/L1", xmlquery.FindOne(lists[0], "url").InnerText())

	first := xmlquery.Find(lists[0], "product")
	assert.Equal(t, []string{"B", "A", "B"}, attrs(first, "id"))
	assert.Equal(t, []string{"20", "10", "19"}, attrs(first, "price"))
	assert.Equal(t, "0", first[0].SelectAttr("priority"))
	assert.Equal(t, "30", first[0].SelectAttr("buyprice"))
	assert.Equal(t, "false", first[0].SelectAttr("prime"))
	assert.Equal(t, "0", first[0].SelectAttr("pricecut"))
	assert.Empty(t, first[0].SelectAttr("isnew"), "no previous snapshot, nothing is new")
	assert.Equal(t, "$20.00", xmlquery.FindOne(first[0], "price").InnerText())

	second := xmlquery.Find(lists[1], "product")
	require.Len(t, second, 1)
	assert.Equal(t, models.UnavailablePrice, second[0].SelectAttr("price"))
}

func TestRoundTripPriceCut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wishlists.xml")
	w := NewWriter(path, "")

	run1 := []*models.Wishlist{{
		ID:       "L1",
		Title:    "Books",
		Products: []*models.Product{product("A", "10.00"), product("B", "20.00"), product("C", "5.00")},
	}}
	_, err := w.Write(run1, Load(path))
	require.NoError(t, err)

	diff := Load(path)
	require.True(t, diff.Loaded())
	assert.Equal(t, 3, diff.Len())

	run2 := []*models.Wishlist{{
		ID:       "L1",
		Title:    "Books",
		Products: []*models.Product{product("A", "4.00"), product("B", "20.00"), product("C", "7.00"), product("D", "1.00")},
	}}
	_, err = w.Write(run2, diff)
	require.NoError(t, err)

	doc := parseOutput(t, path)
	products := xmlquery.Find(doc, "/amazon/wishlist/product")
	require.Len(t, products, 4)
	assert.Equal(t, []string{"6", "0", "0", "0"}, attrs(products, "pricecut"))
	assert.Equal(t, []string{"", "", "", "yes"}, attrs(products, "isnew"))

	threshold := decimal.NewFromInt(1)
	assert.True(t, Significant(diff.PriceCut("A", models.PriceOf(decimal.NewFromInt(4))), threshold))
	assert.False(t, Significant(diff.PriceCut("B", models.PriceOf(decimal.NewFromInt(20))), threshold))
}

func TestRoundTripUnavailableProductIsNotNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wishlists.xml")
	w := NewWriter(path, "")

	run := []*models.Wishlist{{
		ID:       "L1",
		Title:    "Books",
		Products: []*models.Product{product("A", "10.00"), product("U", "")},
	}}
	_, err := w.Write(run, Load(path))
	require.NoError(t, err)

	diff := Load(path)
	assert.True(t, diff.Known("U"))
	assert.Equal(t, 1, diff.Len(), "only priced products count")
	assert.True(t, diff.PriceCut("U", models.PriceOf(decimal.NewFromInt(3))).IsZero())

	_, err = w.Write(run, diff)
	require.NoError(t, err)

	products := xmlquery.Find(parseOutput(t, path), "/amazon/wishlist/product")
	require.Len(t, products, 2)
	assert.Equal(t, []string{"10", "-Infinity"}, attrs(products, "price"))
	assert.Equal(t, []string{"", ""}, attrs(products, "isnew"))
}

func TestPriceCut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wishlists.xml")
	require.NoError(t, os.WriteFile(path, []byte(`<?xml version="1.0"?>
<amazon>
  <wishlist id="L1">
    <product id="A" price="10"/>
    <product id="U" price="-Infinity"/>
  </wishlist>
</amazon>`), 0o644))

	diff := Load(path)
	tests := []struct {
		name     string
		id       string
		price    models.Price
		expected string
	}{
		{name: "drop", id: "A", price: models.PriceOf(decimal.RequireFromString("7.5")), expected: "2.5"},
		{name: "increase", id: "A", price: models.PriceOf(decimal.NewFromInt(12)), expected: "0"},
		{name: "unchanged", id: "A", price: models.PriceOf(decimal.NewFromInt(10)), expected: "0"},
		{name: "now unavailable", id: "A", price: models.Price{}, expected: "0"},
		{name: "previously unavailable", id: "U", price: models.PriceOf(decimal.NewFromInt(1)), expected: "0"},
		{name: "first seen", id: "NEW", price: models.PriceOf(decimal.NewFromInt(1)), expected: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cut := diff.PriceCut(tt.id, tt.price)
			assert.False(t, cut.IsNegative())
			assert.True(t, cut.Equal(decimal.RequireFromString(tt.expected)), "got %s", cut)
		})
	}

	var nilDiff *Diff
	assert.True(t, nilDiff.PriceCut("A", models.PriceOf(decimal.Zero)).IsZero())
}

func TestLoadToleratesMissingAndCorruptFiles(t *testing.T) {
	dir := t.TempDir()

	missing := Load(filepath.Join(dir, "nope.xml"))
	assert.False(t, missing.Loaded())
	assert.Zero(t, missing.Len())

	for name, content := range map[string]string{
		"garbage.xml":    "<<<not xml",
		"wrong-root.xml": `<?xml version="1.0"?><catalog><wishlist><product id="A" price="1"/></wishlist></catalog>`,
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		diff := Load(path)
		assert.False(t, diff.Loaded(), name)
		assert.Zero(t, diff.Len(), name)
	}
}

func TestWriteNothingKeepsPreviousSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wishlists.xml")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0o644))

	_, err := NewWriter(path, "").Write([]*models.Wishlist{{ID: "L1"}}, Empty())
	require.ErrorIs(t, err, ErrNothingToWrite)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(raw))
}
