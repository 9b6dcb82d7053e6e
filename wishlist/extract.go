package wishlist

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/aluiziolira/go-scrape-wishlists/models"
	"github.com/aluiziolira/go-scrape-wishlists/page"
	"github.com/aluiziolira/go-scrape-wishlists/parser"
	"github.com/shopspring/decimal"
)

// ExtractError reports why a single item could not be turned into a product.
type ExtractError struct {
	ItemID string
	Field  string
	Err    error
}

func (e *ExtractError) Error() string {
	if e.ItemID == "" {
		return fmt.Sprintf("extract item: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("extract item %s: %s: %v", e.ItemID, e.Field, e.Err)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// ErrMissingField is wrapped by ExtractError when a required attribute is absent.
var ErrMissingField = errors.New("missing field")

var asinInPath = regexp.MustCompile(`/dp/([A-Z0-9]{10})`)

// Extractor converts wishlist item fragments into products.
type Extractor struct {
	site   *Site
	locale parser.Locale
	prices parser.BuyPriceTable
}

// NewExtractor builds an extractor for one site, locale and buy-price table.
func NewExtractor(site *Site, locale parser.Locale, prices parser.BuyPriceTable) *Extractor {
	return &Extractor{site: site, locale: locale, prices: prices}
}

// Items returns the item fragments of a wishlist page.
func Items(p page.Node) []page.Node {
	return p.All(itemSelector)
}

// Extract reads one item. A missing id, an unreadable primary price or an
// unknown priority fail the item with an *ExtractError.
func (x *Extractor) Extract(item page.Node) (*models.Product, error) {
	id, ok := item.Attr("", itemIDAttr)
	if !ok || id == "" {
		return nil, &ExtractError{Field: "id", Err: ErrMissingField}
	}

	price, err := primaryPrice(item)
	if err != nil {
		return nil, &ExtractError{ItemID: id, Field: "price", Err: err}
	}

	priorityText, _ := item.Text(itemField("itemPriority_", id))
	priority, err := parser.DecodePriority(priorityText)
	if err != nil {
		return nil, &ExtractError{ItemID: id, Field: "priority", Err: err}
	}

	href, _ := item.Attr(itemLinkSelector, "href")
	title, ok := item.Text(itemField("itemName_", id))
	if !ok || title == "" {
		title, _ = item.Attr(itemLinkSelector, "title")
	}
	comment, _ := item.Text(itemField("itemComment_", id))
	by, _ := item.Text(itemField("item-byline-", id))
	img, _ := item.Attr(itemImageSelector, "src")

	product := &models.Product{
		ID:       id,
		Title:    title,
		By:       parser.CleanByline(by),
		ImageURL: x.site.Resolve(img),
		URL:      x.site.Resolve(href),
		Comment:  comment,
		Priority: priority,
		Price:    price,
		Prime:    item.Has(primeBadgeSelector),
	}
	if m := asinInPath.FindStringSubmatch(href); m != nil {
		product.ASIN = m[1]
	}

	// Alternate offers override the listed price and are never prime.
	if used, ok := item.Text(usedPriceSelector); ok {
		if amount, err := parser.ParseAmount(used, x.locale); err == nil {
			product.Price = models.PriceOf(amount)
			product.Prime = false
		}
	}

	product.BuyPrice = x.prices.For(priority)
	if override, ok := parser.BuyPriceDirective(comment, x.locale); ok {
		product.BuyPrice = override
	}

	if product.Price.Available {
		product.PriceDisplay = x.locale.FormatCurrency(product.Price.Amount)
	}
	return product, nil
}

// primaryPrice reads data-price, which the site always renders in US
// format or as "-Infinity".
func primaryPrice(item page.Node) (models.Price, error) {
	raw, ok := item.Attr("", itemPriceAttr)
	if !ok || raw == "" {
		return models.Price{}, ErrMissingField
	}
	switch strings.ToLower(raw) {
	case "-infinity", "-inf":
		return models.Price{}, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return models.Price{}, fmt.Errorf("parse %q: %w", raw, err)
	}
	if amount.IsNegative() {
		return models.Price{}, nil
	}
	return models.PriceOf(amount), nil
}
