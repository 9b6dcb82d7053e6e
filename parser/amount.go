// Package parser turns the loosely formatted text fields of a wishlist page
// into typed values.
package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ErrNoAmount is returned when a text fragment contains no numeric token.
var ErrNoAmount = errors.New("no amount found")

// Locale fixes the numeric and currency conventions used to read and render
// prices.
type Locale struct {
	Name        string
	Tag         language.Tag
	DecimalSep  rune
	Symbol      string
	SymbolAfter bool
}

var (
	// LocaleUS is the default: "1,234.50", "$1,234.50".
	LocaleUS = Locale{Name: "en_US", Tag: language.AmericanEnglish, DecimalSep: '.', Symbol: "$"}
	// LocaleGB reads like LocaleUS with a pound sign.
	LocaleGB = Locale{Name: "en_GB", Tag: language.BritishEnglish, DecimalSep: '.', Symbol: "£"}
	// LocaleDE: "1.234,50", "1.234,50 €".
	LocaleDE = Locale{Name: "de_DE", Tag: language.German, DecimalSep: ',', Symbol: "€", SymbolAfter: true}
)

var locales = map[string]Locale{
	LocaleUS.Name: LocaleUS,
	LocaleGB.Name: LocaleGB,
	LocaleDE.Name: LocaleDE,
}

// LocaleByName resolves names such as "de_DE" or "de-DE".
func LocaleByName(name string) (Locale, error) {
	loc, ok := locales[strings.ReplaceAll(strings.TrimSpace(name), "-", "_")]
	if !ok {
		return Locale{}, fmt.Errorf("unsupported locale %q", name)
	}
	return loc, nil
}

var amountPattern = regexp.MustCompile(`[0-9][0-9.,']*`)

// ParseAmount extracts the first numeric token anywhere in text and reads it
// with the separators of loc. Currency words and symbols around the token are
// ignored.
func ParseAmount(text string, loc Locale) (decimal.Decimal, error) {
	token := amountPattern.FindString(text)
	if token == "" {
		return decimal.Zero, ErrNoAmount
	}
	token = strings.TrimRight(token, ".,'")

	var b strings.Builder
	for _, r := range token {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == loc.DecimalSep:
			b.WriteByte('.')
		}
	}

	amount, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", token, err)
	}
	return amount, nil
}

// FormatCurrency renders amount with two decimals, the digit grouping of
// the locale's language and its currency symbol.
func (l Locale) FormatCurrency(amount decimal.Decimal) string {
	digits := message.NewPrinter(l.Tag).Sprintf("%.2f", amount.Abs().Round(2).InexactFloat64())

	var b strings.Builder
	if amount.IsNegative() {
		b.WriteByte('-')
	}
	if l.SymbolAfter {
		b.WriteString(digits)
		b.WriteString(" ")
		b.WriteString(l.Symbol)
		return b.String()
	}
	b.WriteString(l.Symbol)
	b.WriteString(digits)
	return b.String()
}
