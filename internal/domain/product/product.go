// Package product holds catalog types consumed by order placement.
package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog item. Price and Stock form the snapshot the order
// assembler reads; the authoritative stock check happens inside the order
// transaction.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Update describes a partial product update; nil fields are left unchanged.
type Update struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
}

// Repository defines catalog persistence operations.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	// GetByIDs fetches all requested products in a single query. Missing ids
	// are simply absent from the result.
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, id string, upd Update) (*Product, error)
}
