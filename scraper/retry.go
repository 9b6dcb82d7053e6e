package scraper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-wishlists/config"
	"github.com/gocolly/colly/v2"
)

// retryManager re-issues failed requests with capped exponential backoff.
// Retries reuse the failed request so a list page keeps its context.
type retryManager struct {
	cfg     *config.Config
	metrics *Metrics
	ctx     context.Context

	mu           sync.Mutex
	idle         *sync.Cond
	attempts     map[string]int
	timers       map[string]*time.Timer
	inflight     int
	totalRetries int
	waited       int
	stopped      bool
}

func newRetryManager(cfg *config.Config, metrics *Metrics) *retryManager {
	rm := &retryManager{
		cfg:      cfg,
		attempts: make(map[string]int),
		timers:   make(map[string]*time.Timer),
		metrics:  metrics,
		ctx:      context.Background(),
	}
	rm.idle = sync.NewCond(&rm.mu)
	return rm
}

// Schedule queues a retry of req and reports whether it did.
func (rm *retryManager) Schedule(req *colly.Request) bool {
	if rm.cfg.MaxRetries == 0 || req == nil || req.URL == nil {
		return false
	}
	url := req.URL.String()

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.stopped {
		return false
	}
	if rm.ctx != nil && rm.ctx.Err() != nil {
		return false
	}

	attempt := rm.attempts[url]
	if attempt >= rm.cfg.MaxRetries {
		return false
	}

	attempt++
	rm.attempts[url] = attempt
	rm.totalRetries++
	if rm.metrics != nil {
		rm.metrics.IncRetries()
	}

	delay := rm.backoff(attempt)
	rm.resetTimerLocked(url)
	rm.inflight++
	rm.timers[url] = time.AfterFunc(delay, func() {
		defer rm.done()
		rm.fireRetry(url, req)
	})
	return true
}

func (rm *retryManager) done() {
	rm.mu.Lock()
	rm.doneLocked()
	rm.mu.Unlock()
}

func (rm *retryManager) doneLocked() {
	rm.inflight--
	if rm.inflight == 0 {
		rm.idle.Broadcast()
	}
}

func (rm *retryManager) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := rm.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := rm.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

func (rm *retryManager) resetTimerLocked(url string) {
	if timer, ok := rm.timers[url]; ok {
		if timer.Stop() {
			rm.doneLocked()
		}
		delete(rm.timers, url)
	}
}

func (rm *retryManager) fireRetry(url string, req *colly.Request) {
	rm.mu.Lock()
	delete(rm.timers, url)
	if rm.stopped {
		rm.mu.Unlock()
		return
	}
	ctx := rm.ctx
	rm.mu.Unlock()

	if ctx != nil && ctx.Err() != nil {
		return
	}
	if err := req.Retry(); err != nil {
		slog.Debug("retry visit failed", slog.String("url", url), slog.Any("error", err))
	}
}

// Wait blocks until every scheduled retry has been handed back to the
// collector and reports whether any retry was scheduled since the last call.
func (rm *retryManager) Wait() bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	for rm.inflight > 0 {
		rm.idle.Wait()
	}
	scheduled := rm.totalRetries != rm.waited
	rm.waited = rm.totalRetries
	return scheduled
}

func (rm *retryManager) Stop() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.stopped {
		return
	}

	rm.stopped = true
	for url, timer := range rm.timers {
		if timer.Stop() {
			rm.doneLocked()
		}
		delete(rm.timers, url)
	}
}

func (rm *retryManager) TotalRetries() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.totalRetries
}

func (rm *retryManager) SetContext(ctx context.Context) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if ctx == nil {
		rm.ctx = context.Background()
		return
	}
	rm.ctx = ctx
}
