package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aluiziolira/go-scrape-wishlists/models"
)

// DualWriter sends every batch to a file sink and a stream sink.
type DualWriter struct {
	file   AlertWriter
	stream AlertWriter
	mu     sync.Mutex
}

// NewDualWriter combines a file writer and a stream writer.
func NewDualWriter(file, stream AlertWriter) *DualWriter {
	return &DualWriter{
		file:   file,
		stream: stream,
	}
}

// Write writes the batch to the file first, then to the stream.
func (dw *DualWriter) Write(alerts []*models.Alert) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if err := dw.file.Write(alerts); err != nil {
		return fmt.Errorf("file write failed: %w", err)
	}
	if err := dw.stream.Write(alerts); err != nil {
		return fmt.Errorf("stream write failed: %w", err)
	}
	return nil
}

// Close closes both writers
func (dw *DualWriter) Close() error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	var errs []error
	if err := dw.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("file close failed: %w", err))
	}
	if err := dw.stream.Close(); err != nil {
		errs = append(errs, fmt.Errorf("stream close failed: %w", err))
	}
	return errors.Join(errs...)
}
