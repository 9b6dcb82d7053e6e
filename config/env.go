package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-wishlists/parser"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// EnvString returns a trimmed, non-empty environment value.
func EnvString(key string) (string, bool) {
	value := strings.TrimSpace(os.Getenv(key))
	return value, value != ""
}

// EnvInt parses an integer environment value.
func EnvInt(key string) (int, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvDuration parses a duration environment value such as "500ms".
func EnvDuration(key string) (time.Duration, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvList splits a comma separated environment value, dropping blanks.
func EnvList(key string) ([]string, bool) {
	raw, ok := EnvString(key)
	if !ok {
		return nil, false
	}
	return SplitList(raw), true
}

// SplitList splits on commas and whitespace-trims each element.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ApplyEnv overrides fields from WISHLIST_* environment variables.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"WISHLIST_BASE_URL":      &c.BaseURL,
		"WISHLIST_LISTS_URL":     &c.ListsURL,
		"WISHLIST_LOCALE":        &c.Locale,
		"WISHLIST_OUTPUT":        &c.OutputFile,
		"WISHLIST_STYLESHEET":    &c.StylesheetHref,
		"WISHLIST_USER_AGENT":    &c.UserAgent,
		"WISHLIST_METRICS_ADDR":  &c.MetricsAddr,
		"WISHLIST_ALERTS_FORMAT": &c.AlertsFormat,
		"WISHLIST_ALERTS_FILE":   &c.AlertsFile,
		"WISHLIST_REDIS_ADDR":    &c.RedisAddr,
		"WISHLIST_REDIS_STREAM":  &c.RedisStream,
	}
	for key, field := range strs {
		if value, ok := EnvString(key); ok {
			*field = value
		}
	}

	ints := map[string]*int{
		"WISHLIST_MAX_PAGES":     &c.MaxPagesPerList,
		"WISHLIST_PARALLEL":      &c.Parallelism,
		"WISHLIST_MAX_RETRIES":   &c.MaxRetries,
		"WISHLIST_ALERT_WORKERS": &c.AlertWorkers,
		"WISHLIST_REDIS_DB":      &c.RedisDB,
		"WISHLIST_DEDUPE_SIZE":   &c.DedupeMaxSize,
	}
	for key, field := range ints {
		value, ok, err := EnvInt(key)
		if err != nil {
			return err
		}
		if ok {
			*field = value
		}
	}

	durations := map[string]*time.Duration{
		"WISHLIST_DELAY":             &c.Delay,
		"WISHLIST_RANDOM_DELAY":      &c.RandomDelay,
		"WISHLIST_TIMEOUT":           &c.Timeout,
		"WISHLIST_RETRY_BACKOFF":     &c.RetryBackoff,
		"WISHLIST_RETRY_BACKOFF_MAX": &c.RetryBackoffMax,
	}
	for key, field := range durations {
		value, ok, err := EnvDuration(key)
		if err != nil {
			return err
		}
		if ok {
			*field = value
		}
	}

	if excludes, ok := EnvList("WISHLIST_EXCLUDES"); ok {
		c.ExcludedLists = excludes
	}
	if raw, ok := EnvString("WISHLIST_MAXPRICES"); ok {
		table, err := parser.ParseBuyPriceTable(raw)
		if err != nil {
			return fmt.Errorf("WISHLIST_MAXPRICES: %w", err)
		}
		c.MaxPrices = table
	}
	if raw, ok := EnvString("WISHLIST_SIGNIFICANT_CHANGE"); ok {
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("WISHLIST_SIGNIFICANT_CHANGE: %w", err)
		}
		c.SignificantPriceChange = value
	}
	return nil
}
