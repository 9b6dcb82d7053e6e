package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-wishlists/models"
)

var csvHeader = []string{
	"detected_at", "reason", "wishlist_id", "wishlist_title", "product_id",
	"title", "price", "price_display", "buy_price", "price_cut", "url",
}

// CSVWriter appends alerts to a CSV file.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter opens filename for appending. The header row is written
// only when the file is new or empty.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	f, err := openAppend(filename)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := writer.Write(csvHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("write csv header: %w", err)
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("flush csv header: %w", err)
		}
	}

	return &CSVWriter{
		file:   f,
		writer: writer,
	}, nil
}

// Write appends alerts to the CSV output.
func (cw *CSVWriter) Write(alerts []*models.Alert) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, alert := range alerts {
		record := []string{
			alert.DetectedAt.Format(time.RFC3339),
			alert.Reason,
			alert.WishlistID,
			alert.WishlistTitle,
			alert.ProductID,
			alert.Title,
			alert.Price.String(),
			alert.PriceDisplay,
			alert.BuyPrice.String(),
			alert.PriceCut.String(),
			alert.URL,
		}
		if err := cw.writer.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// JSONLWriter appends newline-delimited JSON alerts.
type JSONLWriter struct {
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONLWriter opens filename for appending.
func NewJSONLWriter(filename string) (*JSONLWriter, error) {
	f, err := openAppend(filename)
	if err != nil {
		return nil, fmt.Errorf("open jsonl file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	return &JSONLWriter{
		file:    f,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}, nil
}

// Write appends alerts in JSONL format.
func (jw *JSONLWriter) Write(alerts []*models.Alert) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for _, alert := range alerts {
		if err := jw.encoder.Encode(alert); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
	}

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}

	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONLWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

func openAppend(filename string) (*os.File, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}
	return os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
