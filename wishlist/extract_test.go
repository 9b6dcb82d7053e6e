package wishlist

import (
	"errors"
	"testing"

	"github.com/aluiziolira/go-scrape-wishlists/models"
	"github.com/aluiziolira/go-scrape-wishlists/page"
	"github.com/aluiziolira/go-scrape-wishlists/parser"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extractOne(t *testing.T, x *Extractor, it testItem) (*models.Product, error) {
	t.Helper()
	items := Items(page.MustParse("<ul>"+it.html()+"</ul>", ""))
	require.Len(t, items, 1)
	return x.Extract(items[0])
}

func TestExtractFullItem(t *testing.T) {
	x := newTestExtractor(t, parser.LocaleUS)

	p, err := extractOne(t, x, testItem{
		id:       "I1",
		price:    "19.99",
		title:    "Book One",
		byline:   "by John Doe (Paperback)",
		priority: "HIGH",
		comment:  "gift {max 15.00}",
		prime:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, "I1", p.ID)
	assert.Equal(t, "B000000001", p.ASIN)
	assert.Equal(t, "Book One", p.Title)
	assert.Equal(t, "John Doe", p.By)
	assert.Equal(t, testBase+"/dp/B000000001/?coliid=I1", p.URL)
	assert.Equal(t, "https://images.example.test/I1.jpg", p.ImageURL)
	assert.Equal(t, "gift {max 15.00}", p.Comment)
	assert.Equal(t, 1, p.Priority)
	assert.True(t, p.Price.Available)
	assert.True(t, p.Price.Amount.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, "$19.99", p.PriceDisplay)
	assert.True(t, p.Prime)
	assert.True(t, p.BuyPrice.Equal(decimal.NewFromInt(15)), "comment directive overrides buy price, got %s", p.BuyPrice)
}

func TestExtractUsedOfferOverridesPrice(t *testing.T) {
	x := newTestExtractor(t, parser.LocaleDE)

	p, err := extractOne(t, x, testItem{
		id:     "I2",
		price:  "-Infinity",
		title:  "Used Thing",
		byline: "von: John Doe, Marie Jane",
		used:   "EUR 3,00",
		prime:  true,
	})
	require.NoError(t, err)

	assert.True(t, p.Price.Available)
	assert.True(t, p.Price.Amount.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, "3,00 €", p.PriceDisplay)
	assert.False(t, p.Prime, "alternate offers are never prime")
	assert.Equal(t, "John Doe, Marie Jane", p.By)
	assert.Equal(t, 0, p.Priority)
	assert.True(t, p.BuyPrice.Equal(decimal.NewFromInt(30)))
}

func TestExtractUnavailablePrice(t *testing.T) {
	x := newTestExtractor(t, parser.LocaleUS)

	p, err := extractOne(t, x, testItem{id: "I3", price: "-Infinity", title: "Gone", priority: "-2"})
	require.NoError(t, err)

	assert.False(t, p.Price.Available)
	assert.Equal(t, "-Infinity", p.Price.String())
	assert.Empty(t, p.PriceDisplay)
	assert.False(t, p.WorthBuying())
	assert.True(t, p.BuyPrice.Equal(decimal.NewFromInt(10)))
}

func TestExtractFailures(t *testing.T) {
	x := newTestExtractor(t, parser.LocaleUS)

	tests := []struct {
		name    string
		html    string
		field   string
		wantErr error
	}{
		{
			name:    "missing id",
			html:    `<li data-price="1.00"></li>`,
			field:   "id",
			wantErr: ErrMissingField,
		},
		{
			name:  "unparseable price",
			html:  `<li data-itemid="X" data-price="abc"></li>`,
			field: "price",
		},
		{
			name:    "unknown priority",
			html:    `<li data-itemid="X" data-price="1.00"><span id="itemPriority_X">bogus</span></li>`,
			field:   "priority",
			wantErr: parser.ErrUnrecognizedPriority,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := Items(page.MustParse("<ul>"+tt.html+"</ul>", ""))
			require.Len(t, items, 1)

			_, err := x.Extract(items[0])
			var extractErr *ExtractError
			require.True(t, errors.As(err, &extractErr), "got %v", err)
			assert.Equal(t, tt.field, extractErr.Field)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
