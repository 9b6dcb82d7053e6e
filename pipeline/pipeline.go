// Package pipeline delivers buy alerts to their sinks through a small
// worker pool with de-duplication and batching.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-wishlists/config"
	"github.com/aluiziolira/go-scrape-wishlists/models"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
	// ErrPipelineCloseTimeout is returned when workers do not drain in time.
	ErrPipelineCloseTimeout = errors.New("pipeline: close timed out")
)

// drainTimeout bounds how long Close waits for a stuck sink.
var drainTimeout = 30 * time.Second

// AlertWriter is a sink for alert batches.
type AlertWriter interface {
	Write(alerts []*models.Alert) error
	Close() error
}

// Pipeline coordinates validation, de-duplication, and alert writing.
type Pipeline struct {
	writer    AlertWriter
	alertCh   chan *models.Alert
	batchSize int

	wg sync.WaitGroup

	seen *lru.Cache[string, struct{}]

	metrics metrics

	mu     sync.Mutex // guards closed/err
	closed bool
	err    error

	closeOnce    sync.Once
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewPipeline builds a pipeline whose duplicate memory holds at most
// cfg.DedupeMaxSize alert keys.
func NewPipeline(writer AlertWriter, cfg *config.Config) (*Pipeline, error) {
	if writer == nil {
		return nil, fmt.Errorf("pipeline: writer is required")
	}
	seen, err := lru.New[string, struct{}](cfg.DedupeMaxSize)
	if err != nil {
		return nil, fmt.Errorf("create dedupe cache: %w", err)
	}
	return &Pipeline{
		writer:    writer,
		alertCh:   make(chan *models.Alert, 256),
		batchSize: 32,
		seen:      seen,
		metrics:   newMetrics(),
		shutdown:  make(chan struct{}),
	}, nil
}

// Start launches worker goroutines.
func (p *Pipeline) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Process enqueues alerts for delivery.
func (p *Pipeline) Process(alerts ...*models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	closed, err := p.state()
	if err != nil {
		return err
	}
	if closed {
		return ErrPipelineClosed
	}

	for _, alert := range alerts {
		if alert == nil {
			continue
		}
		if err := p.enqueue(alert); err != nil {
			return err
		}
	}
	return nil
}

// Close waits for workers to flush and prevents more submissions. The
// writer is left open.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
	}
	p.mu.Unlock()

	p.signalShutdown()
	p.closeOnce.Do(func() {
		close(p.alertCh)
	})

	drained := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(drained)
	}()

	timer := time.NewTimer(drainTimeout)
	defer timer.Stop()
	select {
	case <-drained:
		return p.Err()
	case <-timer.C:
		return fmt.Errorf("%w after %s", ErrPipelineCloseTimeout, drainTimeout)
	}
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

// StartMetricsReporting emits periodic progress logs.
func (p *Pipeline) StartMetricsReporting(interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				metrics := p.GetMetrics()
				slog.Info("alert pipeline progress",
					slog.Int64("delivered", metrics["delivered_alerts"].(int64)),
					slog.Any("rejected", metrics["rejected_alerts"]),
				)
			case <-p.shutdown:
				return
			}
		}
	}()
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	batch := make([]*models.Alert, 0, p.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.writer.Write(batch); err != nil {
			return err
		}
		p.metrics.addDelivered(len(batch))
		batch = batch[:0]
		return nil
	}

	for alert := range p.alertCh {
		if !p.accept(alert) {
			continue
		}
		batch = append(batch, alert)
		if len(batch) >= p.batchSize {
			if err := flush(); err != nil {
				p.setErr(fmt.Errorf("write batch: %w", err))
				return
			}
		}
	}

	if err := flush(); err != nil {
		p.setErr(fmt.Errorf("write batch: %w", err))
	}
}

func (p *Pipeline) accept(alert *models.Alert) bool {
	if alert.ProductID == "" || alert.Reason == "" {
		p.metrics.addRejected("invalid_record")
		return false
	}
	if found, _ := p.seen.ContainsOrAdd(dedupeKey(alert), struct{}{}); found {
		p.metrics.addRejected("duplicate_alert")
		return false
	}
	return true
}

// dedupeKey identifies an alert by list, product and reason. The same
// product on two lists alerts twice.
func dedupeKey(alert *models.Alert) string {
	return alert.WishlistID + "\x00" + alert.ProductID + "\x00" + alert.Reason
}

func (p *Pipeline) enqueue(alert *models.Alert) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrPipelineClosed
		}
	}()

	select {
	case <-p.shutdown:
		return ErrPipelineClosed
	case p.alertCh <- alert:
		return nil
	}
}

func (p *Pipeline) setErr(err error) {
	if err == nil {
		return
	}

	p.mu.Lock()
	if p.err != nil {
		p.mu.Unlock()
		return
	}
	p.err = err
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
}

func (p *Pipeline) state() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed, p.err
}

func (p *Pipeline) signalShutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
}

type metrics struct {
	mu        sync.Mutex
	delivered int64
	rejected  map[string]int
}

func newMetrics() metrics {
	return metrics{
		rejected: make(map[string]int),
	}
}

func (m *metrics) addDelivered(n int) {
	m.mu.Lock()
	m.delivered += int64(n)
	m.mu.Unlock()
}

func (m *metrics) addRejected(kind string) {
	m.mu.Lock()
	m.rejected[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	rejected := make(map[string]int, len(m.rejected))
	for k, v := range m.rejected {
		rejected[k] = v
	}

	return map[string]interface{}{
		"delivered_alerts": m.delivered,
		"rejected_alerts":  rejected,
	}
}
