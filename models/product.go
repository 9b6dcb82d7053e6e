// Package models defines data structures for the scraper.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnavailablePrice is how the site and the snapshot spell a missing price.
const UnavailablePrice = "-Infinity"

// Price is either an available non-negative amount or unavailable.
// The zero value is unavailable.
type Price struct {
	Amount    decimal.Decimal
	Available bool
}

// PriceOf returns an available price.
func PriceOf(amount decimal.Decimal) Price {
	return Price{Amount: amount, Available: true}
}

// String renders the plain decimal used in the snapshot attributes.
func (p Price) String() string {
	if !p.Available {
		return UnavailablePrice
	}
	return p.Amount.String()
}

// Product represents one wishlist entry.
type Product struct {
	ID           string
	ASIN         string
	Title        string
	By           string
	ImageURL     string
	URL          string
	Comment      string
	Priority     int
	Price        Price
	PriceDisplay string
	Prime        bool
	BuyPrice     decimal.Decimal
}

// WorthBuying reports whether the price is known and at or below the
// buy-threshold.
func (p *Product) WorthBuying() bool {
	return p.Price.Available && p.Price.Amount.LessThanOrEqual(p.BuyPrice)
}

// Wishlist is the finalized result of crawling one list.
type Wishlist struct {
	ID       string
	Title    string
	URL      string
	Products []*Product
	Errored  bool
}

// Alert is a product worth acting on, emitted by the alert pipeline.
type Alert struct {
	WishlistID    string          `json:"wishlist_id"`
	WishlistTitle string          `json:"wishlist_title"`
	ProductID     string          `json:"product_id"`
	Title         string          `json:"title"`
	URL           string          `json:"url"`
	Price         decimal.Decimal `json:"price"`
	PriceDisplay  string          `json:"price_display"`
	BuyPrice      decimal.Decimal `json:"buy_price"`
	PriceCut      decimal.Decimal `json:"price_cut"`
	Reason        string          `json:"reason"`
	DetectedAt    time.Time       `json:"detected_at"`
}

// ScraperResult holds the overall result of a scraping operation
type ScraperResult struct {
	Wishlists       []*Wishlist
	StartTime       time.Time
	EndTime         time.Time
	ListsDiscovered int
	ProductCount    int
	ErrorCount      int
	ChallengeCount  int
	FailedURLs      []string
	ErrorsByType    map[string]int
	RetryCount      int
	RequestCount    int
	PageCount       int
}
