package promo

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Validator resolves a promo code against an order subtotal and returns the
// discount amount to subtract.
type Validator interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal) (decimal.Decimal, error)
}

// RepoValidator implements Validator by looking up promo rules from a
// Repository. It is read-only: validating a code never mutates the promo.
type RepoValidator struct {
	repo Repository
	now  func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo, now: time.Now}
}

// Validate looks up the promo for the given code, checks its validity window
// (inclusive on both ends) and minimum order amount, and computes the
// discount:
//
//	PERCENTAGE: subtotal * value/100, clamped to MaxDiscount when set
//	FLAT:       value, clamped to the subtotal
//
// The result is rounded to 2 decimal places.
func (v *RepoValidator) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (decimal.Decimal, error) {
	p, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return decimal.Zero, ErrNotFound
		}
		return decimal.Zero, errors.Wrap(err, "lookup promo")
	}

	now := v.now()
	if now.Before(p.StartDate) || now.After(p.EndDate) {
		return decimal.Zero, ErrNotActive
	}

	if p.MinOrderAmount != nil && subtotal.LessThan(*p.MinOrderAmount) {
		return decimal.Zero, &MinimumNotMetError{Minimum: *p.MinOrderAmount}
	}

	var discount decimal.Decimal
	switch p.DiscountType {
	case DiscountPercentage:
		discount = subtotal.Mul(p.DiscountValue).Div(hundred)
		if p.MaxDiscount != nil && discount.GreaterThan(*p.MaxDiscount) {
			discount = *p.MaxDiscount
		}
	case DiscountFlat:
		discount = decimal.Min(p.DiscountValue, subtotal)
	default:
		return decimal.Zero, errors.Errorf("unsupported discount type: %q", p.DiscountType)
	}

	return discount.Round(2), nil
}
