package promo

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPromoRepo struct {
	Repository

	promo *Promo
	err   error
}

func (m *mockPromoRepo) FindByCode(_ context.Context, _ string) (*Promo, error) {
	return m.promo, m.err
}

func decp(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestRepoValidator_Validate(t *testing.T) {
	fixedNow := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := fixedNow.Add(-30 * 24 * time.Hour)
	future := fixedNow.Add(30 * 24 * time.Hour)

	tests := []struct {
		name         string
		repo         *mockPromoRepo
		subtotal     decimal.Decimal
		wantDiscount decimal.Decimal
		wantErr      error
		wantErrAs    any
	}{
		{
			name: "percentage capped at max discount",
			repo: &mockPromoRepo{promo: &Promo{
				Code:          "SAVE20",
				DiscountType:  DiscountPercentage,
				DiscountValue: decimal.NewFromInt(20),
				MaxDiscount:   decp("50"),
				StartDate:     past,
				EndDate:       future,
			}},
			subtotal:     decimal.NewFromInt(1000),
			wantDiscount: decimal.NewFromInt(50),
		},
		{
			name: "percentage below cap",
			repo: &mockPromoRepo{promo: &Promo{
				Code:          "SAVE20",
				DiscountType:  DiscountPercentage,
				DiscountValue: decimal.NewFromInt(20),
				MaxDiscount:   decp("50"),
				StartDate:     past,
				EndDate:       future,
			}},
			subtotal:     decimal.NewFromInt(100),
			wantDiscount: decimal.NewFromInt(20),
		},
		{
			name: "percentage without cap",
			repo: &mockPromoRepo{promo: &Promo{
				Code:          "TEN",
				DiscountType:  DiscountPercentage,
				DiscountValue: decimal.NewFromInt(10),
				StartDate:     past,
				EndDate:       future,
			}},
			subtotal:     decimal.NewFromInt(250),
			wantDiscount: decimal.NewFromInt(25),
		},
		{
			name: "flat discount",
			repo: &mockPromoRepo{promo: &Promo{
				Code:          "FLAT15",
				DiscountType:  DiscountFlat,
				DiscountValue: decimal.NewFromInt(15),
				StartDate:     past,
				EndDate:       future,
			}},
			subtotal:     decimal.NewFromInt(100),
			wantDiscount: decimal.NewFromInt(15),
		},
		{
			name: "flat discount clamped to subtotal",
			repo: &mockPromoRepo{promo: &Promo{
				Code:          "FLAT100",
				DiscountType:  DiscountFlat,
				DiscountValue: decimal.NewFromInt(100),
				StartDate:     past,
				EndDate:       future,
			}},
			subtotal:     decimal.NewFromInt(60),
			wantDiscount: decimal.NewFromInt(60),
		},
		{
			name:     "unknown code",
			repo:     &mockPromoRepo{err: ErrNotFound},
			subtotal: decimal.NewFromInt(100),
			wantErr:  ErrNotFound,
		},
		{
			name: "end date in the past",
			repo: &mockPromoRepo{promo: &Promo{
				Code:          "OLD",
				DiscountType:  DiscountPercentage,
				DiscountValue: decimal.NewFromInt(10),
				StartDate:     past,
				EndDate:       fixedNow.Add(-time.Hour),
			}},
			subtotal: decimal.NewFromInt(100),
			wantErr:  ErrNotActive,
		},
		{
			name: "start date in the future",
			repo: &mockPromoRepo{promo: &Promo{
				Code:          "SOON",
				DiscountType:  DiscountPercentage,
				DiscountValue: decimal.NewFromInt(10),
				StartDate:     fixedNow.Add(time.Hour),
				EndDate:       future,
			}},
			subtotal: decimal.NewFromInt(100),
			wantErr:  ErrNotActive,
		},
		{
			name: "window bounds are inclusive",
			repo: &mockPromoRepo{promo: &Promo{
				Code:          "EDGE",
				DiscountType:  DiscountFlat,
				DiscountValue: decimal.NewFromInt(5),
				StartDate:     fixedNow,
				EndDate:       fixedNow,
			}},
			subtotal:     decimal.NewFromInt(100),
			wantDiscount: decimal.NewFromInt(5),
		},
		{
			name: "subtotal below minimum order amount",
			repo: &mockPromoRepo{promo: &Promo{
				Code:           "MIN50",
				DiscountType:   DiscountFlat,
				DiscountValue:  decimal.NewFromInt(5),
				MinOrderAmount: decp("50"),
				StartDate:      past,
				EndDate:        future,
			}},
			subtotal:  decimal.NewFromInt(40),
			wantErrAs: &MinimumNotMetError{},
		},
		{
			name: "subtotal exactly at minimum passes",
			repo: &mockPromoRepo{promo: &Promo{
				Code:           "MIN50",
				DiscountType:   DiscountFlat,
				DiscountValue:  decimal.NewFromInt(5),
				MinOrderAmount: decp("50"),
				StartDate:      past,
				EndDate:        future,
			}},
			subtotal:     decimal.NewFromInt(50),
			wantDiscount: decimal.NewFromInt(5),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewRepoValidator(tt.repo)
			v.now = func() time.Time { return fixedNow }

			got, err := v.Validate(context.Background(), "code", tt.subtotal)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			if tt.wantErrAs != nil {
				var minErr *MinimumNotMetError
				require.ErrorAs(t, err, &minErr)
				return
			}

			require.NoError(t, err)
			assert.True(t, tt.wantDiscount.Equal(got),
				"expected discount %s, got %s", tt.wantDiscount, got)
		})
	}
}

func TestMinimumNotMetError_Message(t *testing.T) {
	err := &MinimumNotMetError{Minimum: decimal.NewFromInt(50)}
	assert.Equal(t, "minimum order amount is 50", err.Error())
}
