package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is the display currency of an invoice. Switching it relabels
// amounts, it never converts them.
type Currency string

const (
	HNL Currency = "HNL"
	USD Currency = "USD"
)

// Currencies lists the supported currencies in menu order.
var Currencies = []Currency{HNL, USD}

// ErrUnknownCurrency is returned by ParseCurrency for unsupported codes.
var ErrUnknownCurrency = errors.New("money: unknown currency")

// ParseCurrency accepts a supported ISO code, case-insensitively.
func ParseCurrency(code string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if !c.Valid() {
		return "", fmt.Errorf("%w %q", ErrUnknownCurrency, code)
	}
	return c, nil
}

// Valid reports whether c is a supported currency.
func (c Currency) Valid() bool {
	return c == HNL || c == USD
}

// Symbol returns the display prefix for amounts.
func (c Currency) Symbol() string {
	switch c {
	case USD:
		return "$"
	default:
		return "L."
	}
}

// Format renders amount as "{symbol}{amount with 2 decimals}".
func (c Currency) Format(amount decimal.Decimal) string {
	return c.Symbol() + amount.StringFixed(2)
}

// FormatGrouped renders amount with comma thousands separators, for
// listings and summaries where amounts grow large. Digits come from the
// exact decimal, so large totals never pick up float rounding.
func (c Currency) FormatGrouped(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.WriteString(sign)
	b.WriteString(c.Symbol())
	for i, d := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

func (c Currency) String() string {
	return string(c)
}
