package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry          *prometheus.Registry
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   prometheus.Histogram
	PagesTotal        *prometheus.CounterVec
	ProductsTotal     prometheus.Counter
	ItemFailuresTotal *prometheus.CounterVec
	ListsDiscovered   prometheus.Gauge
	ChallengesTotal   prometheus.Counter
	RetriesTotal      prometheus.Counter
	ErrorsTotal       *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wishlist_requests_total",
			Help: "Total HTTP requests issued by the scraper.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wishlist_request_duration_seconds",
			Help:    "HTTP request latency for scraper requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wishlist_pages_total",
			Help: "Pages parsed, by kind (nav, first, continuation).",
		},
		[]string{"kind"},
	)
	products := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wishlist_products_extracted_total",
			Help: "Total number of products extracted from wishlist pages.",
		},
	)
	itemFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wishlist_item_failures_total",
			Help: "Wishlist items skipped, by failing field.",
		},
		[]string{"field"},
	)
	listsDiscovered := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wishlist_lists_discovered",
			Help: "Wishlists found on the navigation page after exclusions.",
		},
	)
	challenges := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wishlist_challenges_total",
			Help: "Bot-challenge pages served instead of content.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wishlist_retries_total",
			Help: "Total number of retry attempts scheduled.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wishlist_errors_total",
			Help: "Total number of scraper errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(requests, requestDuration, pages, products, itemFailures, listsDiscovered, challenges, retries, errorsTotal)

	return &Metrics{
		Registry:          registry,
		RequestsTotal:     requests,
		RequestDuration:   requestDuration,
		PagesTotal:        pages,
		ProductsTotal:     products,
		ItemFailuresTotal: itemFailures,
		ListsDiscovered:   listsDiscovered,
		ChallengesTotal:   challenges,
		RetriesTotal:      retries,
		ErrorsTotal:       errorsTotal,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncPage counts a parsed page.
func (m *Metrics) IncPage(kind string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(kind).Inc()
}

// AddProducts adds extracted products.
func (m *Metrics) AddProducts(n int) {
	if m == nil {
		return
	}
	m.ProductsTotal.Add(float64(n))
}

// IncItemFailure counts a skipped item.
func (m *Metrics) IncItemFailure(field string) {
	if m == nil {
		return
	}
	m.ItemFailuresTotal.WithLabelValues(field).Inc()
}

// SetListsDiscovered records the discovery result.
func (m *Metrics) SetListsDiscovered(n int) {
	if m == nil {
		return
	}
	m.ListsDiscovered.Set(float64(n))
}

// IncChallenge counts a challenge page.
func (m *Metrics) IncChallenge() {
	if m == nil {
		return
	}
	m.ChallengesTotal.Inc()
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
