package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aluiziolira/go-scrape-wishlists/config"
	"github.com/aluiziolira/go-scrape-wishlists/models"
	"github.com/aluiziolira/go-scrape-wishlists/page"
	"github.com/aluiziolira/go-scrape-wishlists/wishlist"
	"github.com/gocolly/colly/v2"
)

// ctxWishlist is the colly.Context key carrying a list's *wishlist.Accumulator.
// Requests without it are navigation requests.
const ctxWishlist = "wishlist"

// Scraper wraps the colly collector and retry logic for the wishlist site.
type Scraper struct {
	cfg       *config.Config
	collector *colly.Collector
	retry     *retryManager
	site      *wishlist.Site
	extractor *wishlist.Extractor
	Metrics   *Metrics

	requestCount   int64
	pageCount      int64
	errorCount     int64
	challengeCount int64

	mu           sync.Mutex
	lists        []*wishlist.Accumulator
	failedURLs   []string
	errorsByType map[string]int

	handlersOnce sync.Once
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	site, err := wishlist.NewSite(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	locale, err := cfg.ParsedLocale()
	if err != nil {
		return nil, err
	}

	domains, err := allowedDomains(cfg.BaseURL, cfg.ListsURL)
	if err != nil {
		return nil, err
	}

	collector := colly.NewCollector(
		colly.Async(true),
		colly.AllowedDomains(domains...),
		colly.UserAgent(cfg.UserAgent),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
		Delay:       cfg.Delay,
		RandomDelay: cfg.RandomDelay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	s := &Scraper{
		cfg:          cfg,
		collector:    collector,
		site:         site,
		extractor:    wishlist.NewExtractor(site, locale, cfg.MaxPrices),
		errorsByType: make(map[string]int),
		Metrics:      NewMetrics(),
	}
	s.retry = newRetryManager(cfg, s.Metrics)
	return s, nil
}

func allowedDomains(urls ...string) ([]string, error) {
	seen := make(map[string]struct{}, len(urls))
	var domains []string
	for _, raw := range urls {
		parsed, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse url %q: %w", raw, err)
		}
		if parsed.Hostname() == "" {
			return nil, fmt.Errorf("url %q must include a host", raw)
		}
		if _, ok := seen[parsed.Hostname()]; ok {
			continue
		}
		seen[parsed.Hostname()] = struct{}{}
		domains = append(domains, parsed.Hostname())
	}
	return domains, nil
}

// Run discovers the account's wishlists, crawls each of them and returns
// every wishlist in discovery order. Lists abandoned through ctx keep the
// products collected so far.
func (s *Scraper) Run(ctx context.Context) (*models.ScraperResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.retry.SetContext(ctx)
	s.configureHandlers(ctx)

	start := time.Now()
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			s.collector.Wait()
			s.retry.Stop()
		case <-done:
		}
	}()

	if err := s.collector.Request(http.MethodGet, s.cfg.ListsURL, nil, colly.NewContext(), nil); err != nil {
		return nil, fmt.Errorf("initial visit: %w", err)
	}

	// Retries fire from timers after the collector may have gone idle.
	for {
		s.collector.Wait()
		if !s.retry.Wait() {
			break
		}
	}
	s.retry.Stop()

	result := &models.ScraperResult{
		StartTime:      start,
		EndTime:        time.Now(),
		ErrorCount:     int(atomic.LoadInt64(&s.errorCount)),
		ChallengeCount: int(atomic.LoadInt64(&s.challengeCount)),
		FailedURLs:     s.snapshotFailedURLs(),
		ErrorsByType:   s.snapshotErrors(),
		RetryCount:     s.retry.TotalRetries(),
		RequestCount:   int(atomic.LoadInt64(&s.requestCount)),
		PageCount:      int(atomic.LoadInt64(&s.pageCount)),
	}

	s.mu.Lock()
	result.ListsDiscovered = len(s.lists)
	for _, acc := range s.lists {
		wl := acc.Wishlist()
		result.ProductCount += len(wl.Products)
		result.Wishlists = append(result.Wishlists, wl)
	}
	s.mu.Unlock()

	return result, nil
}

func (s *Scraper) configureHandlers(ctx context.Context) {
	s.handlersOnce.Do(func() {
		s.collector.OnRequest(func(r *colly.Request) {
			if ctx.Err() != nil {
				r.Abort()
				return
			}
			r.Ctx.Put("start", time.Now())
			current := atomic.AddInt64(&s.requestCount, 1)
			if s.Metrics != nil {
				s.Metrics.IncRequest("started")
			}
			slog.Debug("scraper request",
				slog.Int64("requests", current),
				slog.String("url", r.URL.String()),
			)
		})

		s.collector.OnResponse(func(r *colly.Response) {
			if s.Metrics != nil {
				if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
					s.Metrics.ObserveDuration(time.Since(start))
				}
			}
		})

		s.collector.OnError(func(r *colly.Response, err error) {
			atomic.AddInt64(&s.errorCount, 1)
			statusCode := 0
			if r != nil {
				statusCode = r.StatusCode
			}
			classified := classifyError(err, statusCode)
			category := errorTypeLabel(classified)

			s.mu.Lock()
			s.errorsByType[category]++
			s.mu.Unlock()

			var req *colly.Request
			target := ""
			if r != nil && r.Request != nil && r.Request.URL != nil {
				req = r.Request
				target = req.URL.String()
			}
			slog.Error("request error",
				slog.String("url", target),
				slog.String("category", category),
				slog.Any("error", err),
			)
			if s.Metrics != nil {
				s.Metrics.IncError(category)
			}

			if req != nil && s.retry.Schedule(req) {
				return
			}
			s.mu.Lock()
			s.failedURLs = append(s.failedURLs, target)
			s.mu.Unlock()

			if req != nil {
				if acc, ok := req.Ctx.GetAny(ctxWishlist).(*wishlist.Accumulator); ok {
					acc.Fail(classified)
				}
			}
		})

		s.collector.OnHTML("html", func(e *colly.HTMLElement) {
			doc := page.FromSelection(e.DOM, e.Request.URL.String())
			if acc, ok := e.Request.Ctx.GetAny(ctxWishlist).(*wishlist.Accumulator); ok {
				s.handleListPage(ctx, e.Request, acc, doc)
				return
			}
			s.handleNavPage(ctx, doc)
		})
	})
}

func (s *Scraper) handleNavPage(ctx context.Context, doc *page.Document) {
	atomic.AddInt64(&s.pageCount, 1)
	s.Metrics.IncPage("nav")

	refs := wishlist.Discover(doc, s.site, s.cfg.ExcludedLists)
	s.Metrics.SetListsDiscovered(len(refs))
	if len(refs) == 0 {
		if page.IsChallenge(doc) {
			s.recordChallenge(doc.URL())
			return
		}
		slog.Warn("no wishlists found on navigation page, layout may have changed",
			slog.String("url", doc.URL()),
		)
		return
	}
	slog.Info("wishlists discovered", slog.Int("count", len(refs)))

	for _, ref := range refs {
		acc := wishlist.NewAccumulator(ref.URL, s.extractor, s.cfg.MaxPagesPerList)
		s.mu.Lock()
		s.lists = append(s.lists, acc)
		s.mu.Unlock()

		if ctx.Err() != nil {
			acc.Fail(ctx.Err())
			continue
		}
		listCtx := colly.NewContext()
		listCtx.Put(ctxWishlist, acc)
		if err := s.collector.Request(http.MethodGet, ref.URL, nil, listCtx, nil); err != nil {
			slog.Error("visit wishlist", slog.String("list_id", ref.ID), slog.Any("error", err))
			acc.Fail(err)
		}
	}
}

// handleListPage runs on the chain of one list only: the next page is
// requested after the current one is consumed, with the same context.
func (s *Scraper) handleListPage(ctx context.Context, req *colly.Request, acc *wishlist.Accumulator, doc *page.Document) {
	atomic.AddInt64(&s.pageCount, 1)

	var step wishlist.Step
	if !acc.Started() {
		s.Metrics.IncPage("first")
		step = acc.StartWith(doc)
	} else {
		s.Metrics.IncPage("continuation")
		step = acc.Extend(doc)
	}
	if step.Challenged {
		s.recordChallenge(doc.URL())
	}

	s.Metrics.AddProducts(len(step.Products))
	for _, err := range step.Skipped {
		var extractErr *wishlist.ExtractError
		field := "unknown"
		if errors.As(err, &extractErr) {
			field = extractErr.Field
		}
		s.Metrics.IncItemFailure(field)
	}

	if !step.More {
		slog.Debug("wishlist exhausted",
			slog.String("url", acc.URL()),
			slog.Int("pages", acc.Pages()),
		)
		return
	}
	if ctx.Err() != nil {
		return
	}
	if err := req.Visit(step.NextURL); err != nil {
		slog.Error("visit next wishlist page",
			slog.String("url", step.NextURL),
			slog.Any("error", err),
		)
		acc.Fail(err)
	}
}

func (s *Scraper) recordChallenge(target string) {
	atomic.AddInt64(&s.challengeCount, 1)
	s.Metrics.IncChallenge()
	err := ErrChallenge{URL: target}

	s.mu.Lock()
	s.errorsByType[errorTypeLabel(err)]++
	s.mu.Unlock()

	slog.Error("bot challenge page served, try again later or from another network",
		slog.String("url", target),
		slog.Any("error", err),
	)
}

func (s *Scraper) snapshotFailedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.failedURLs))
	copy(out, s.failedURLs)
	return out
}

func (s *Scraper) snapshotErrors() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		out[k] = v
	}
	return out
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch statusCode {
		case http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return ErrRateLimited{Err: wrapped}
		}
	}

	if err == nil {
		return nil
	}
	return err
}
