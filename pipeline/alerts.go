package pipeline

import (
	"time"

	"github.com/aluiziolira/go-scrape-wishlists/models"
	"github.com/aluiziolira/go-scrape-wishlists/snapshot"
	"github.com/shopspring/decimal"
)

// Alert reasons.
const (
	ReasonBelowBuyPrice = "below_buy_price"
	ReasonPriceCut      = "price_cut"
)

// Collect derives alerts from a finished crawl. A product yields one alert
// per reason: its price is at or below its buy price, or it dropped by at
// least threshold since the previous snapshot. Errored lists are skipped.
func Collect(wishlists []*models.Wishlist, diff *snapshot.Diff, threshold decimal.Decimal, now time.Time) []*models.Alert {
	var alerts []*models.Alert
	for _, wl := range wishlists {
		if wl == nil || wl.Errored {
			continue
		}
		for _, p := range wl.Products {
			cut := diff.PriceCut(p.ID, p.Price)
			newAlert := func(reason string) *models.Alert {
				return &models.Alert{
					WishlistID:    wl.ID,
					WishlistTitle: wl.Title,
					ProductID:     p.ID,
					Title:         p.Title,
					URL:           p.URL,
					Price:         p.Price.Amount,
					PriceDisplay:  p.PriceDisplay,
					BuyPrice:      p.BuyPrice,
					PriceCut:      cut,
					Reason:        reason,
					DetectedAt:    now,
				}
			}
			if p.WorthBuying() {
				alerts = append(alerts, newAlert(ReasonBelowBuyPrice))
			}
			if snapshot.Significant(cut, threshold) {
				alerts = append(alerts, newAlert(ReasonPriceCut))
			}
		}
	}
	return alerts
}
