// Package cart holds the per-user shopping cart consumed by order placement.
package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrItemNotFound is returned when a cart line does not exist for a product.
var ErrItemNotFound = errors.New("cart item not found")

// Item is a product line in a user's cart, enriched with current catalog data
// for display. Price and Stock are live values, not frozen.
type Item struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	Stock     int
	Quantity  int
}

// Cart is a user's current cart with its lines.
type Cart struct {
	ID     string
	UserID string
	Items  []Item
}

// Repository defines cart persistence. A user's cart is created lazily on
// first access.
type Repository interface {
	// Get returns the user's cart, creating an empty one if none exists.
	Get(ctx context.Context, userID string) (*Cart, error)
	// AddItem adds quantity of a product, incrementing an existing line.
	AddItem(ctx context.Context, userID, productID string, quantity int) (*Cart, error)
	// SetQuantity replaces the quantity of an existing line. Zero removes it.
	SetQuantity(ctx context.Context, userID, productID string, quantity int) (*Cart, error)
	// RemoveItems deletes the lines for the given product ids. Missing lines
	// are ignored; used by order placement to clear purchased products.
	RemoveItems(ctx context.Context, userID string, productIDs []string) error
}
