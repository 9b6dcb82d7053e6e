package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/aluiziolira/go-scrape-wishlists/parser"
	"github.com/shopspring/decimal"
)

// Alert output formats.
const (
	AlertsOff   = ""
	AlertsJSONL = "jsonl"
	AlertsCSV   = "csv"
	AlertsRedis = "redis"
	AlertsDual  = "dual"
)

// Config holds scraper configuration.
type Config struct {
	BaseURL                string
	ListsURL               string
	ExcludedLists          []string
	MaxPrices              parser.BuyPriceTable
	Locale                 string
	OutputFile             string
	StylesheetHref         string
	SignificantPriceChange decimal.Decimal
	MaxPagesPerList        int
	Parallelism            int
	Delay                  time.Duration
	RandomDelay            time.Duration
	Timeout                time.Duration
	MaxRetries             int
	RetryBackoff           time.Duration
	RetryBackoffMax        time.Duration
	UserAgent              string
	RespectRobotsTxt       bool
	Verbose                bool
	MetricsAddr            string
	AlertsFormat           string // "", jsonl, csv, redis or dual
	AlertsFile             string
	AlertWorkers           int
	RedisAddr              string
	RedisDB                int
	RedisStream            string
	DedupeMaxSize          int
}

// DefaultConfig returns conservative defaults for the German storefront.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:                "https://www.amazon.de",
		ListsURL:               "https://www.amazon.de/hz/wishlist/ls",
		MaxPrices:              parser.DefaultBuyPrices(),
		Locale:                 parser.LocaleDE.Name,
		OutputFile:             "output/wishlists.xml",
		SignificantPriceChange: decimal.NewFromInt(1),
		MaxPagesPerList:        100,
		Parallelism:            2,
		Delay:                  500 * time.Millisecond,
		RandomDelay:            500 * time.Millisecond,
		Timeout:                20 * time.Second,
		MaxRetries:             2,
		RetryBackoff:           time.Second,
		RetryBackoffMax:        10 * time.Second,
		UserAgent:              "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		AlertsFile:             "output/alerts.jsonl",
		AlertWorkers:           2,
		RedisAddr:              "localhost:6379",
		RedisStream:            "wishlist:alerts",
		DedupeMaxSize:          10000,
	}
}

// ParsedLocale resolves the configured locale.
func (c *Config) ParsedLocale() (parser.Locale, error) {
	return parser.LocaleByName(c.Locale)
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.ListsURL == "" {
		return fmt.Errorf("lists URL cannot be empty")
	}
	listsURL, err := url.Parse(c.ListsURL)
	if err != nil {
		return fmt.Errorf("invalid lists URL: %w", err)
	}
	if listsURL.Host == "" {
		return fmt.Errorf("lists URL must include a host")
	}

	if len(c.MaxPrices) == 0 {
		return fmt.Errorf("max prices table cannot be empty")
	}
	for priority, price := range c.MaxPrices {
		if price.IsNegative() {
			return fmt.Errorf("max price for priority %d cannot be negative", priority)
		}
	}
	if _, err := c.ParsedLocale(); err != nil {
		return err
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.SignificantPriceChange.IsNegative() {
		return fmt.Errorf("significant price change cannot be negative")
	}
	if c.MaxPagesPerList < 0 {
		return fmt.Errorf("max pages per list cannot be negative")
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.RandomDelay < 0 {
		return fmt.Errorf("random delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	switch c.AlertsFormat {
	case AlertsOff:
	case AlertsJSONL, AlertsCSV:
		if c.AlertsFile == "" {
			return fmt.Errorf("alerts file cannot be empty for format %s", c.AlertsFormat)
		}
	case AlertsRedis, AlertsDual:
		if c.RedisAddr == "" || c.RedisStream == "" {
			return fmt.Errorf("redis address and stream are required for format %s", c.AlertsFormat)
		}
		if c.AlertsFormat == AlertsDual && c.AlertsFile == "" {
			return fmt.Errorf("alerts file cannot be empty for format %s", c.AlertsFormat)
		}
	default:
		return fmt.Errorf("alerts format must be empty, jsonl, csv, redis, or dual")
	}
	if c.AlertsFormat != AlertsOff && c.AlertWorkers <= 0 {
		return fmt.Errorf("alert workers must be positive")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}

	return nil
}
