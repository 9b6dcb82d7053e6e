package parser

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// BuyPriceTable maps a priority to the default price at or below which an
// item is worth buying.
type BuyPriceTable map[int]decimal.Decimal

// DefaultBuyPrices returns the table used when none is configured.
func DefaultBuyPrices() BuyPriceTable {
	return BuyPriceTable{
		-2: decimal.NewFromInt(10),
		-1: decimal.NewFromInt(20),
		0:  decimal.NewFromInt(30),
		1:  decimal.NewFromInt(50),
		2:  decimal.NewFromInt(100),
	}
}

// For returns the threshold for priority. Priorities outside the table are
// clamped to the nearest configured one.
func (t BuyPriceTable) For(priority int) decimal.Decimal {
	if price, ok := t[priority]; ok {
		return price
	}
	if len(t) == 0 {
		return decimal.Zero
	}
	keys := t.priorities()
	if priority < keys[0] {
		return t[keys[0]]
	}
	if priority > keys[len(keys)-1] {
		return t[keys[len(keys)-1]]
	}
	// Gap inside the table: fall back to the next lower priority.
	for i := len(keys) - 1; i >= 0; i-- {
		if keys[i] < priority {
			return t[keys[i]]
		}
	}
	return decimal.Zero
}

// String renders the table in the format accepted by ParseBuyPriceTable.
func (t BuyPriceTable) String() string {
	parts := make([]string, 0, len(t))
	for _, k := range t.priorities() {
		parts = append(parts, fmt.Sprintf("%d=%s", k, t[k].String()))
	}
	return strings.Join(parts, ",")
}

func (t BuyPriceTable) priorities() []int {
	keys := make([]int, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// ParseBuyPriceTable reads "priority=price" pairs separated by commas, e.g.
// "-2=10,0=30,2=100". Prices use the dot as decimal separator.
func ParseBuyPriceTable(s string) (BuyPriceTable, error) {
	table := BuyPriceTable{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("buy price %q: missing '='", pair)
		}
		priority, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("buy price %q: priority: %w", pair, err)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("buy price %q: price: %w", pair, err)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("buy price %q: price cannot be negative", pair)
		}
		table[priority] = price
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("buy price table is empty")
	}
	return table, nil
}

var directivePattern = regexp.MustCompile(`\{([^{}]*)\}`)

// BuyPriceDirective finds a "{... amount ...}" override embedded in a
// comment. The first braced group holding an amount wins.
func BuyPriceDirective(comment string, loc Locale) (decimal.Decimal, bool) {
	for _, m := range directivePattern.FindAllStringSubmatch(comment, -1) {
		if amount, err := ParseAmount(m[1], loc); err == nil {
			return amount, true
		}
	}
	return decimal.Zero, false
}
