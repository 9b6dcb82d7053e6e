package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-wishlists/config"
	"github.com/aluiziolira/go-scrape-wishlists/models"
	"github.com/aluiziolira/go-scrape-wishlists/parser"
	"github.com/aluiziolira/go-scrape-wishlists/pipeline"
	"github.com/aluiziolira/go-scrape-wishlists/scraper"
	"github.com/aluiziolira/go-scrape-wishlists/snapshot"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// exitNothingWritten signals that no wishlist had products to write.
const exitNothingWritten = 2

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid environment: %v\n", err)
		os.Exit(1)
	}
	if err := parseFlags(os.Args[1:], cfg); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting scrape",
		slog.String("lists_url", cfg.ListsURL),
		slog.String("locale", cfg.Locale),
		slog.String("max_prices", cfg.MaxPrices.String()),
		slog.Int("workers", cfg.Parallelism),
	)

	s, err := scraper.NewScraper(cfg)
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, writing what was collected so far")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" && s.Metrics != nil {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	startTime := time.Now()
	result, err := s.Run(ctx)
	if err != nil {
		slog.Error("scraping failed", slog.Any("error", err))
		os.Exit(1)
	}

	// The previous snapshot must be read before it is replaced.
	diff := snapshot.Load(cfg.OutputFile)

	stylesheet := cfg.StylesheetHref
	if stylesheet == "" {
		stylesheet = snapshot.StylesheetFor(cfg.OutputFile)
	}
	written, err := snapshot.NewWriter(cfg.OutputFile, stylesheet).Write(result.Wishlists, diff)
	exitCode := 0
	switch {
	case errors.Is(err, snapshot.ErrNothingToWrite):
		slog.Error("nothing was written, no wishlist had products",
			slog.Int("lists_discovered", result.ListsDiscovered),
			slog.Int("challenges", result.ChallengeCount),
		)
		exitCode = exitNothingWritten
	case err != nil:
		slog.Error("writing snapshot failed", slog.Any("error", err))
		os.Exit(1)
	}

	alertMetrics, err := deliverAlerts(context.Background(), cfg, result, diff)
	if err != nil {
		slog.Error("alert delivery failed", slog.Any("error", err))
		if exitCode == 0 {
			exitCode = 1
		}
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(result, time.Since(startTime), written, cfg.OutputFile, alertMetrics)
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

// parseFlags overrides cfg with command line flags. Flag defaults are the
// values already in cfg, so environment settings survive unless a flag is
// given.
func parseFlags(args []string, cfg *config.Config) error {
	fs := flag.NewFlagSet("wishlists", flag.ContinueOnError)

	fs.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "Site base URL")
	fs.StringVar(&cfg.ListsURL, "lists-url", cfg.ListsURL, "Wishlist navigation page URL")
	fs.Func("exclude", "Comma separated list ids or URLs to skip (repeatable)", func(value string) error {
		cfg.ExcludedLists = append(cfg.ExcludedLists, config.SplitList(value)...)
		return nil
	})
	fs.Func("max-prices", "Buy-price table by priority, e.g. \"-2=10,0=30,2=100\"", func(value string) error {
		table, err := parser.ParseBuyPriceTable(value)
		if err != nil {
			return err
		}
		cfg.MaxPrices = table
		return nil
	})
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "Number locale: en_US, en_GB or de_DE")
	fs.StringVar(&cfg.OutputFile, "output", cfg.OutputFile, "Snapshot file path")
	fs.StringVar(&cfg.StylesheetHref, "stylesheet", cfg.StylesheetHref, "Stylesheet href (default: output path with .xslt)")
	fs.Func("significant-change", fmt.Sprintf("Minimum price cut that raises an alert (default %s)", cfg.SignificantPriceChange), func(value string) error {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return err
		}
		cfg.SignificantPriceChange = d
		return nil
	})
	fs.IntVar(&cfg.MaxPagesPerList, "max-pages", cfg.MaxPagesPerList, "Maximum pages fetched per wishlist (0 = unlimited)")
	fs.IntVar(&cfg.Parallelism, "parallel", cfg.Parallelism, "Number of concurrent requests")
	fs.DurationVar(&cfg.Delay, "delay", cfg.Delay, "Delay between requests")
	fs.DurationVar(&cfg.RandomDelay, "random-delay", cfg.RandomDelay, "Random jitter added to delay")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per request timeout")
	fs.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "Maximum retry attempts per URL")
	fs.DurationVar(&cfg.RetryBackoff, "retry-backoff", cfg.RetryBackoff, "Initial retry backoff")
	fs.DurationVar(&cfg.RetryBackoffMax, "retry-backoff-max", cfg.RetryBackoffMax, "Maximum retry backoff")
	fs.BoolVar(&cfg.RespectRobotsTxt, "respect-robots", cfg.RespectRobotsTxt, "Respect robots.txt directives")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Enable verbose logging")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	fs.StringVar(&cfg.AlertsFormat, "alerts", cfg.AlertsFormat, "Alert sink: jsonl, csv, redis or dual (empty = off)")
	fs.StringVar(&cfg.AlertsFile, "alerts-file", cfg.AlertsFile, "Alert file for jsonl, csv and dual")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address for alert streams")
	fs.StringVar(&cfg.RedisStream, "redis-stream", cfg.RedisStream, "Redis stream receiving alerts")

	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.AlertsFormat = strings.ToLower(cfg.AlertsFormat)
	return nil
}

// deliverAlerts sends the run's alerts through the pipeline. It returns the
// pipeline counters, or nil when alerts are off.
func deliverAlerts(ctx context.Context, cfg *config.Config, result *models.ScraperResult, diff *snapshot.Diff) (map[string]interface{}, error) {
	writer, err := pipeline.NewAlertWriter(ctx, cfg)
	if err != nil || writer == nil {
		return nil, err
	}
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Error("close alert writer", slog.Any("error", err))
		}
	}()

	p, err := pipeline.NewPipeline(writer, cfg)
	if err != nil {
		return nil, err
	}
	p.Start(cfg.AlertWorkers)
	if cfg.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	alerts := pipeline.Collect(result.Wishlists, diff, cfg.SignificantPriceChange, time.Now())
	if err := p.Process(alerts...); err != nil {
		p.Close()
		return p.GetMetrics(), err
	}
	if err := p.Close(); err != nil {
		return p.GetMetrics(), err
	}
	return p.GetMetrics(), nil
}

func printSummary(result *models.ScraperResult, duration time.Duration, written int, outputFile string, alerts map[string]interface{}) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")

	errored := 0
	for _, wl := range result.Wishlists {
		if wl.Errored {
			errored++
		}
	}

	fmt.Printf("  Wishlists:     %d discovered, %d written, %d errored\n", result.ListsDiscovered, written, errored)
	fmt.Printf("  Products:      %d\n", result.ProductCount)
	fmt.Printf("  Pages:         %d\n", result.PageCount)
	successRate := 0.0
	if result.RequestCount > 0 {
		successRate = float64(result.RequestCount-result.ErrorCount) / float64(result.RequestCount) * 100
	}
	fmt.Printf("  Success rate:  %.2f%%\n", successRate)
	fmt.Printf("  Errors:        %d\n", result.ErrorCount)
	fmt.Printf("  Challenges:    %d\n", result.ChallengeCount)
	fmt.Printf("  Retries:       %d\n", result.RetryCount)
	fmt.Printf("  Failed URLs:   %d\n", len(result.FailedURLs))
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
	}
	if alerts != nil {
		fmt.Printf("  Alerts:        %v\n", alerts["delivered_alerts"])
		if rejected, ok := alerts["rejected_alerts"].(map[string]int); ok && len(rejected) > 0 {
			fmt.Printf("  Rejected:      %v\n", rejected)
		}
	}
	fmt.Printf("  Duration:      %v\n", duration)
	fmt.Printf("  Output file:   %s\n", outputFile)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
