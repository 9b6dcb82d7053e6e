package wishlist

import (
	"log/slog"

	"github.com/aluiziolira/go-scrape-wishlists/models"
	"github.com/aluiziolira/go-scrape-wishlists/page"
)

// Step is the outcome of feeding one page to an Accumulator. Challenged
// marks a bot-challenge page served instead of list content; it always ends
// the list.
type Step struct {
	Products   []*models.Product
	Skipped    []error
	NextURL    string
	More       bool
	Challenged bool
}

// Accumulator owns one wishlist while its pages arrive. Pages of a list are
// fed sequentially, so it needs no locking; its partial state is valid at
// any point.
type Accumulator struct {
	url       string
	extractor *Extractor
	advancer  *Advancer

	started  bool
	errored  bool
	id       string
	title    string
	products []*models.Product
}

// NewAccumulator prepares the crawl of the list at listURL.
func NewAccumulator(listURL string, extractor *Extractor, maxPages int) *Accumulator {
	return &Accumulator{
		url:       listURL,
		extractor: extractor,
		advancer:  NewAdvancer(extractor.site, listURL, maxPages),
	}
}

// URL returns the list URL the crawl started from.
func (a *Accumulator) URL() string {
	return a.url
}

// Started reports whether the first page has been consumed.
func (a *Accumulator) Started() bool {
	return a.started
}

// Errored reports whether the list could not be identified.
func (a *Accumulator) Errored() bool {
	return a.errored
}

// Pages returns the number of pages requested so far for this list.
func (a *Accumulator) Pages() int {
	return a.advancer.Pages()
}

// StartWith consumes the first page. A page without a list id, typically a
// challenge page, turns the list into an errored placeholder and ends its
// pagination.
func (a *Accumulator) StartWith(p page.Node) Step {
	a.started = true

	id, ok := p.Attr(listIDSelector, "value")
	if !ok || id == "" {
		id, _ = p.Attr(listIDFallback, "data-list-id")
	}
	if id == "" {
		a.markErrored()
		challenged := page.IsChallenge(p)
		slog.Warn("wishlist page has no list id",
			slog.String("url", a.url),
			slog.Bool("challenge", challenged),
		)
		return Step{Challenged: challenged}
	}

	a.id = id
	a.title, _ = p.Text(listTitleSelector)
	return a.consume(p)
}

// Extend appends the products of a continuation page. A challenge page
// truncates the list; the products collected so far are kept.
func (a *Accumulator) Extend(p page.Node) Step {
	if a.errored {
		return Step{}
	}
	if page.IsChallenge(p) {
		slog.Warn("wishlist truncated by challenge page",
			slog.String("list_id", a.id),
			slog.String("url", a.url),
			slog.Int("pages", a.advancer.Pages()),
			slog.Int("products", len(a.products)),
		)
		return Step{Challenged: true}
	}
	return a.consume(p)
}

// Fail records that the list could not be fetched. A list that already has
// pages keeps them.
func (a *Accumulator) Fail(err error) {
	if a.started {
		slog.Warn("wishlist crawl abandoned, keeping partial list",
			slog.String("list_id", a.id),
			slog.Int("products", len(a.products)),
			slog.Any("error", err),
		)
		return
	}
	a.started = true
	a.markErrored()
}

// Wishlist returns a snapshot of the accumulated list.
func (a *Accumulator) Wishlist() *models.Wishlist {
	products := make([]*models.Product, len(a.products))
	copy(products, a.products)
	return &models.Wishlist{
		ID:       a.id,
		Title:    a.title,
		URL:      a.url,
		Products: products,
		Errored:  a.errored,
	}
}

func (a *Accumulator) markErrored() {
	a.errored = true
	a.title = "Error: " + a.url
	a.products = nil
}

func (a *Accumulator) consume(p page.Node) Step {
	var step Step
	for _, item := range Items(p) {
		product, err := a.extractor.Extract(item)
		if err != nil {
			slog.Warn("skipping wishlist item",
				slog.String("list_id", a.id),
				slog.Any("error", err),
			)
			step.Skipped = append(step.Skipped, err)
			continue
		}
		step.Products = append(step.Products, product)
	}
	a.products = append(a.products, step.Products...)
	step.NextURL, step.More = a.advancer.Next(p)
	return step
}
