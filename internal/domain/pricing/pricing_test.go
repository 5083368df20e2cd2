package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestQuote(t *testing.T) {
	tests := []struct {
		name     string
		lines    []Line
		discount decimal.Decimal
		shipping decimal.Decimal
		want     Totals
		wantErr  string
	}{
		{
			name:     "single line no discount",
			lines:    []Line{{UnitPrice: dec("6.50"), Quantity: 1}},
			discount: decimal.Zero,
			shipping: decimal.Zero,
			want: Totals{
				Subtotal: dec("6.50"),
				Discount: dec("0"),
				Shipping: dec("0"),
				Total:    dec("6.50"),
			},
		},
		{
			name: "two items with shipping",
			lines: []Line{
				{UnitPrice: dec("25.00"), Quantity: 2},
			},
			discount: decimal.Zero,
			shipping: dec("10"),
			want: Totals{
				Subtotal: dec("50.00"),
				Discount: dec("0"),
				Shipping: dec("10.00"),
				Total:    dec("60.00"),
			},
		},
		{
			name: "discount subtracted before shipping added",
			lines: []Line{
				{UnitPrice: dec("100.00"), Quantity: 1},
			},
			discount: dec("20"),
			shipping: dec("5"),
			want: Totals{
				Subtotal: dec("100.00"),
				Discount: dec("20.00"),
				Shipping: dec("5.00"),
				Total:    dec("85.00"),
			},
		},
		{
			name: "discount larger than subtotal clamps to subtotal",
			lines: []Line{
				{UnitPrice: dec("30.00"), Quantity: 1},
			},
			discount: dec("50"),
			shipping: dec("8"),
			want: Totals{
				Subtotal: dec("30.00"),
				Discount: dec("30.00"),
				Shipping: dec("8.00"),
				Total:    dec("8.00"),
			},
		},
		{
			name:     "empty lines",
			lines:    nil,
			discount: decimal.Zero,
			shipping: dec("4.50"),
			want: Totals{
				Subtotal: dec("0"),
				Discount: dec("0"),
				Shipping: dec("4.50"),
				Total:    dec("4.50"),
			},
		},
		{
			name:     "fractional prices rounded to 2 places",
			lines:    []Line{{UnitPrice: dec("3.333"), Quantity: 3}},
			discount: decimal.Zero,
			shipping: decimal.Zero,
			want: Totals{
				Subtotal: dec("10.00"),
				Discount: dec("0"),
				Shipping: dec("0"),
				Total:    dec("10.00"),
			},
		},
		{
			name:     "negative quantity rejected",
			lines:    []Line{{UnitPrice: dec("5.00"), Quantity: -1}},
			discount: decimal.Zero,
			shipping: decimal.Zero,
			wantErr:  "quantity",
		},
		{
			name:     "negative unit price rejected",
			lines:    []Line{{UnitPrice: dec("-5.00"), Quantity: 1}},
			discount: decimal.Zero,
			shipping: decimal.Zero,
			wantErr:  "unit price",
		},
		{
			name:     "negative shipping rejected",
			lines:    []Line{{UnitPrice: dec("5.00"), Quantity: 1}},
			discount: decimal.Zero,
			shipping: dec("-1"),
			wantErr:  "shipping cost",
		},
		{
			name:     "negative discount rejected",
			lines:    []Line{{UnitPrice: dec("5.00"), Quantity: 1}},
			discount: dec("-1"),
			shipping: decimal.Zero,
			wantErr:  "discount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Quote(tt.lines, tt.discount, tt.shipping)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.True(t, tt.want.Subtotal.Equal(got.Subtotal), "subtotal: want %s, got %s", tt.want.Subtotal, got.Subtotal)
			assert.True(t, tt.want.Discount.Equal(got.Discount), "discount: want %s, got %s", tt.want.Discount, got.Discount)
			assert.True(t, tt.want.Total.Equal(got.Total), "total: want %s, got %s", tt.want.Total, got.Total)

			// total == subtotal - discount + shipping holds for every accepted quote
			recomputed := got.Subtotal.Sub(got.Discount).Add(got.Shipping)
			assert.True(t, recomputed.Equal(got.Total), "invariant: %s != %s", recomputed, got.Total)
			assert.True(t, got.Total.GreaterThanOrEqual(got.Shipping))
		})
	}
}
