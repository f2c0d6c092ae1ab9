// Package pricing derives order totals from line items.
package pricing

import "github.com/shopspring/decimal"

// TaxRate is the flat sales tax applied to every order subtotal.
var TaxRate = decimal.RequireFromString("0.08")

// Line is the minimal view of an order line the calculator needs.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Totals holds the amounts written back onto an order.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals sums unit_price*quantity over lines, applies TaxRate rounded
// half-up to cents and returns the three amounts fixed to two decimals.
// Only the tax step rounds; the subtotal is exact.
func ComputeTotals(lines []Line) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	tax := subtotal.Mul(TaxRate).Round(2)

	return Totals{
		Subtotal: subtotal.Round(2),
		Tax:      tax,
		Total:    subtotal.Add(tax).Round(2),
	}
}
