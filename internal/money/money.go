// Package money computes invoice totals and formats amounts for display.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TaxRate is the Honduran sales tax (ISV) applied to every invoice.
var TaxRate = decimal.RequireFromString("0.15")

// Priced is anything contributing an amount to the subtotal.
type Priced interface {
	Amount() decimal.Decimal
}

// Totals is the derived subtotal/tax/total triple of an invoice.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"isv"`
	Total    decimal.Decimal `json:"total"`
}

// Calculate sums the items and applies TaxRate. Prices are assumed to be
// validated non-negative decimals.
func Calculate[P Priced](items []P) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Amount())
	}
	// Round is half away from zero, which is half-up for non-negative amounts.
	tax := subtotal.Mul(TaxRate).Round(2)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// Consistent reports whether Total equals Subtotal plus Tax.
func (t Totals) Consistent() bool {
	return t.Total.Equal(t.Subtotal.Add(t.Tax))
}

// Equal compares every component numerically.
func (t Totals) Equal(other Totals) bool {
	return t.Subtotal.Equal(other.Subtotal) && t.Tax.Equal(other.Tax) && t.Total.Equal(other.Total)
}

// TaxLabel is the caption of the tax row, e.g. "ISV (15%)".
func TaxLabel() string {
	return fmt.Sprintf("ISV (%s%%)", TaxRate.Shift(2).String())
}
