// Package pricing computes order totals from frozen line prices.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Line is a single priced order line.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Totals holds the full price breakdown of an order.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// NegativeInputError indicates a monetary input that must be non-negative.
type NegativeInputError struct {
	Field string
}

func (e *NegativeInputError) Error() string {
	return fmt.Sprintf("%s must not be negative", e.Field)
}

// Quote computes subtotal, applied discount, and grand total:
//
//	subtotal = Σ unitPrice * quantity
//	total    = subtotal - discount + shipping
//
// The discount is clamped to the subtotal so the total never drops below the
// shipping cost. All amounts are rounded to 2 decimal places. Quote has no
// side effects and never touches floating point.
func Quote(lines []Line, discount, shipping decimal.Decimal) (Totals, error) {
	if shipping.IsNegative() {
		return Totals{}, &NegativeInputError{Field: "shipping cost"}
	}
	if discount.IsNegative() {
		return Totals{}, &NegativeInputError{Field: "discount"}
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		if l.Quantity < 0 {
			return Totals{}, &NegativeInputError{Field: "quantity"}
		}
		if l.UnitPrice.IsNegative() {
			return Totals{}, &NegativeInputError{Field: "unit price"}
		}
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	applied := decimal.Min(discount, subtotal)
	total := subtotal.Sub(applied).Add(shipping)

	return Totals{
		Subtotal: subtotal.Round(2),
		Discount: applied.Round(2),
		Shipping: shipping.Round(2),
		Total:    total.Round(2),
	}, nil
}
