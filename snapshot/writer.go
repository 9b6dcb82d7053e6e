package snapshot

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aluiziolira/go-scrape-wishlists/models"
)

const rootElement = "amazon"

// ErrNothingToWrite is returned when no wishlist has products; the previous
// snapshot is left untouched.
var ErrNothingToWrite = errors.New("snapshot: no wishlist with products")

type document struct {
	XMLName   xml.Name          `xml:"amazon"`
	Wishlists []wishlistElement `xml:"wishlist"`
}

type wishlistElement struct {
	ID       string           `xml:"id,attr,omitempty"`
	Title    string           `xml:"title"`
	URL      string           `xml:"url"`
	Products []productElement `xml:"product"`
}

type productElement struct {
	ID       string `xml:"id,attr"`
	ASIN     string `xml:"asin,attr,omitempty"`
	Price    string `xml:"price,attr"`
	Priority int    `xml:"priority,attr"`
	BuyPrice string `xml:"buyprice,attr"`
	Prime    bool   `xml:"prime,attr"`
	PriceCut string `xml:"pricecut,attr"`
	IsNew    string `xml:"isnew,attr,omitempty"`

	URL          string `xml:"url"`
	Picture      string `xml:"picture"`
	Title        string `xml:"title"`
	By           string `xml:"by"`
	Comment      string `xml:"comment"`
	PriceDisplay string `xml:"price"`
}

// Writer produces the XML snapshot.
type Writer struct {
	path       string
	stylesheet string
}

// NewWriter writes to path. A non-empty stylesheet is referenced through an
// xml-stylesheet processing instruction.
func NewWriter(path, stylesheet string) *Writer {
	return &Writer{path: path, stylesheet: stylesheet}
}

// StylesheetFor derives the conventional stylesheet name next to the
// snapshot, "wishlists.xml" -> "wishlists.xslt".
func StylesheetFor(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".xslt"
}

// Path returns the snapshot location.
func (w *Writer) Path() string {
	return w.path
}

// Write serializes every wishlist that has products, annotated with price
// cuts against diff. The file is replaced atomically. It returns the number
// of wishlists written.
func (w *Writer) Write(wishlists []*models.Wishlist, diff *Diff) (int, error) {
	doc := build(wishlists, diff)
	if len(doc.Wishlists) == 0 {
		return 0, ErrNothingToWrite
	}
	if err := w.replace(doc); err != nil {
		return 0, err
	}
	return len(doc.Wishlists), nil
}

func build(wishlists []*models.Wishlist, diff *Diff) document {
	var doc document
	for _, wl := range wishlists {
		if wl == nil || len(wl.Products) == 0 {
			continue
		}
		elem := wishlistElement{
			ID:       wl.ID,
			Title:    wl.Title,
			URL:      wl.URL,
			Products: make([]productElement, 0, len(wl.Products)),
		}
		for _, p := range wl.Products {
			pe := productElement{
				ID:           p.ID,
				ASIN:         p.ASIN,
				Price:        p.Price.String(),
				Priority:     p.Priority,
				BuyPrice:     p.BuyPrice.String(),
				Prime:        p.Prime,
				PriceCut:     diff.PriceCut(p.ID, p.Price).String(),
				URL:          p.URL,
				Picture:      p.ImageURL,
				Title:        p.Title,
				By:           p.By,
				Comment:      p.Comment,
				PriceDisplay: p.PriceDisplay,
			}
			if diff.Loaded() && !diff.Known(p.ID) {
				pe.IsNew = "yes"
			}
			elem.Products = append(elem.Products, pe)
		}
		doc.Wishlists = append(doc.Wishlists, elem)
	}
	return doc
}

func (w *Writer) replace(doc document) error {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := w.encode(tmp, doc); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func (w *Writer) encode(f *os.File, doc document) error {
	buf := bufio.NewWriter(f)
	buf.WriteString(xml.Header)
	if w.stylesheet != "" {
		buf.WriteString(`<?xml-stylesheet type="text/xsl" href="`)
		if err := xml.EscapeText(buf, []byte(w.stylesheet)); err != nil {
			return fmt.Errorf("encode stylesheet reference: %w", err)
		}
		buf.WriteString("\"?>\n")
	}

	enc := xml.NewEncoder(buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	buf.WriteString("\n")
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
