package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront-api/internal/domain/product"
)

// QuantityError indicates an out-of-range requested quantity.
type QuantityError struct {
	Reason string
}

func (e *QuantityError) Error() string {
	return fmt.Sprintf("invalid quantity: %s", e.Reason)
}

// Service validates cart mutations against the catalog before delegating to
// the repository.
type Service struct {
	carts    Repository
	products product.Repository
}

// NewService creates a cart Service.
func NewService(carts Repository, products product.Repository) *Service {
	return &Service{carts: carts, products: products}
}

// Get returns the user's cart.
func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	return s.carts.Get(ctx, userID)
}

// AddItem adds quantity of an existing catalog product to the user's cart.
// The cart may hold more units than are currently in stock; availability is
// enforced at order time.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return nil, &QuantityError{Reason: "must be greater than 0"}
	}
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrap(err, "check product")
	}
	return s.carts.AddItem(ctx, userID, productID, quantity)
}

// SetQuantity replaces the quantity of a cart line. Zero removes the line.
func (s *Service) SetQuantity(ctx context.Context, userID, productID string, quantity int) (*Cart, error) {
	if quantity < 0 {
		return nil, &QuantityError{Reason: "must not be negative"}
	}
	return s.carts.SetQuantity(ctx, userID, productID, quantity)
}

// RemoveItem deletes a single cart line.
func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*Cart, error) {
	if err := s.carts.RemoveItems(ctx, userID, []string{productID}); err != nil {
		return nil, err
	}
	return s.carts.Get(ctx, userID)
}
