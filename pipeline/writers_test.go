package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/aluiziolira/go-scrape-wishlists/models"
)

func TestCSVWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alerts", "alerts.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	if err := writer.Write([]*models.Alert{testAlert("L1", "I1", ReasonBelowBuyPrice)}); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	// Reopening appends without repeating the header.
	writer, err = NewCSVWriter(path)
	if err != nil {
		t.Fatalf("reopen csv writer: %v", err)
	}
	if err := writer.Write([]*models.Alert{testAlert("L1", "I2", ReasonPriceCut)}); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records=%d, want 3", len(records))
	}
	if records[0][0] != "detected_at" || records[0][1] != "reason" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	if records[1][0] != "2026-01-02T03:04:05Z" || records[1][4] != "I1" || records[1][6] != "9.99" {
		t.Fatalf("unexpected record: %v", records[1])
	}
	if records[2][1] != ReasonPriceCut {
		t.Fatalf("unexpected record: %v", records[2])
	}
}

func TestJSONLWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alerts.jsonl")

	writer, err := NewJSONLWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}

	alerts := []*models.Alert{
		testAlert("L1", "I1", ReasonBelowBuyPrice),
		testAlert("L1", "I2", ReasonPriceCut),
	}
	if err := writer.Write(alerts); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close json: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []map[string]interface{}
	for scanner.Scan() {
		var record map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			t.Fatalf("decode line %q: %v", scanner.Text(), err)
		}
		lines = append(lines, record)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan json: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("lines=%d, want 2", len(lines))
	}
	if lines[0]["product_id"] != "I1" || lines[0]["reason"] != ReasonBelowBuyPrice {
		t.Fatalf("unexpected record: %v", lines[0])
	}
	if lines[0]["price"] != "9.99" {
		t.Fatalf("price=%v, want \"9.99\"", lines[0]["price"])
	}
}

func TestDualWriterWritesBoth(t *testing.T) {
	file := &mockWriter{}
	stream := &mockWriter{}
	dw := NewDualWriter(file, stream)

	if err := dw.Write([]*models.Alert{testAlert("L1", "I1", ReasonPriceCut)}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := dw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if file.totalWritten() != 1 || stream.totalWritten() != 1 {
		t.Fatalf("file=%d stream=%d, want 1 each", file.totalWritten(), stream.totalWritten())
	}
	if !file.closed || !stream.closed {
		t.Fatalf("both writers should be closed")
	}
}
