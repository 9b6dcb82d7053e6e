// Package snapshot reads the previous run's XML output and writes the new one.
package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/aluiziolira/go-scrape-wishlists/models"
	"github.com/antchfx/xmlquery"
	"github.com/shopspring/decimal"
)

const productsXPath = "/" + rootElement + "/wishlist/product"

// Diff is the read-only price table of the previous snapshot. A nil or
// empty Diff knows no products.
type Diff struct {
	prices map[string]decimal.Decimal
	seen   map[string]struct{}
	loaded bool
}

// Empty returns a Diff with no prior state.
func Empty() *Diff {
	return &Diff{prices: map[string]decimal.Decimal{}, seen: map[string]struct{}{}}
}

// Load reads the snapshot at path. A missing file yields an empty Diff; a
// corrupt one is logged and treated as missing, so the run always goes on.
func Load(path string) *Diff {
	diff, err := read(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Info("no previous snapshot", slog.String("path", path))
		return Empty()
	case err != nil:
		slog.Warn("previous snapshot is corrupt and will be recreated",
			slog.String("path", path),
			slog.Any("error", err),
		)
		return Empty()
	}
	slog.Debug("previous snapshot loaded",
		slog.String("path", path),
		slog.Int("products", diff.Len()),
	)
	return diff
}

func read(path string) (*Diff, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := xmlquery.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}
	if xmlquery.FindOne(doc, "/"+rootElement) == nil {
		return nil, fmt.Errorf("missing <%s> root element", rootElement)
	}

	diff := Empty()
	diff.loaded = true
	for _, node := range xmlquery.Find(doc, productsXPath) {
		id := strings.TrimSpace(node.SelectAttr("id"))
		if id == "" {
			continue
		}
		if _, dup := diff.seen[id]; dup {
			continue
		}
		diff.seen[id] = struct{}{}
		price, err := decimal.NewFromString(strings.TrimSpace(node.SelectAttr("price")))
		if err != nil {
			// Unavailable prices are remembered as unknown.
			continue
		}
		diff.prices[id] = price
	}
	return diff, nil
}

// Loaded reports whether a previous snapshot was actually read.
func (d *Diff) Loaded() bool {
	return d != nil && d.loaded
}

// Len returns the number of products with a known previous price.
func (d *Diff) Len() int {
	if d == nil {
		return 0
	}
	return len(d.prices)
}

// Known reports whether id was in the previous snapshot, priced or not.
func (d *Diff) Known(id string) bool {
	if d == nil {
		return false
	}
	_, ok := d.seen[id]
	return ok
}

// PriceCut returns max(0, old-new). Unknown products, unavailable prices and
// price increases yield zero.
func (d *Diff) PriceCut(id string, price models.Price) decimal.Decimal {
	if d == nil || !price.Available {
		return decimal.Zero
	}
	old, ok := d.prices[id]
	if !ok {
		return decimal.Zero
	}
	cut := old.Sub(price.Amount)
	if !cut.IsPositive() {
		return decimal.Zero
	}
	return cut
}

// Significant reports whether a cut is positive and reaches threshold.
func Significant(cut, threshold decimal.Decimal) bool {
	return cut.IsPositive() && cut.GreaterThanOrEqual(threshold)
}
