// Package promo holds discount promo rules and their validation logic.
package promo

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported promo discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies value% of the subtotal, optionally capped.
	DiscountPercentage DiscountType = "PERCENTAGE"
	// DiscountFlat applies a fixed monetary discount capped at the subtotal.
	DiscountFlat DiscountType = "FLAT"
)

var (
	// ErrNotFound is returned when no promo exists for a code or id.
	ErrNotFound = errors.New("promo not found")
	// ErrNotActive is returned when the current time falls outside the
	// promo's [start, end] validity window.
	ErrNotActive = errors.New("promo code is not valid")
	// ErrDuplicateCode is returned when creating a promo whose code is taken.
	ErrDuplicateCode = errors.New("promo already exists")
)

// MinimumNotMetError indicates the order subtotal is below the promo's
// minimum order amount.
type MinimumNotMetError struct {
	Minimum decimal.Decimal
}

func (e *MinimumNotMetError) Error() string {
	return fmt.Sprintf("minimum order amount is %s", e.Minimum)
}

// Promo is a redeemable discount rule. MaxDiscount and MinOrderAmount are
// optional; nil means unset.
type Promo struct {
	ID             string
	Code           string
	Description    string
	DiscountType   DiscountType
	DiscountValue  decimal.Decimal
	MaxDiscount    *decimal.Decimal
	MinOrderAmount *decimal.Decimal
	StartDate      time.Time
	EndDate        time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Update describes a partial promo update; nil fields are left unchanged.
type Update struct {
	Description    *string
	DiscountType   *DiscountType
	DiscountValue  *decimal.Decimal
	MaxDiscount    *decimal.Decimal
	MinOrderAmount *decimal.Decimal
	StartDate      *time.Time
	EndDate        *time.Time
}

// Repository provides lookup and admin mutation of promo rules.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Promo, error)
	Create(ctx context.Context, p *Promo) error
	List(ctx context.Context) ([]Promo, error)
	GetByID(ctx context.Context, id string) (*Promo, error)
	Update(ctx context.Context, id string, upd Update) (*Promo, error)
	Delete(ctx context.Context, id string) error
}
