// Package order implements the order aggregate and its assembly service.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when an order does not exist or is not owned by
// the requesting user. The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("order not found")

// InvalidTransitionError indicates a status change the state machine forbids.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InsufficientStockError indicates a product's stock cannot cover the
// requested quantity.
type InsufficientStockError struct {
	ProductID string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s", e.ProductID)
}

// ValidationError indicates a malformed create-order request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// AddressSnapshot is an immutable copy of the shipping address taken at
// order time. It is written once, in the same transaction as the order, and
// never updated; later edits to the user's address book do not affect it.
type AddressSnapshot struct {
	ID            string
	RecipientName string
	PhoneNumber   string
	AddressLine1  string
	AddressLine2  string
	SubDistrict   string
	District      string
	City          string
	Province      string
	Country       string
	PostalCode    string
}

// Item is one priced order line. Price is the unit price frozen at order
// time, not a live reference to the catalog.
type Item struct {
	ID        string
	OrderID   string
	ProductID string
	Quantity  int
	Price     decimal.Decimal
}

// Order is a committed purchase. TotalAmount always equals
// sum(item price*qty) - PromoDiscount + ShippingCost and is never negative.
type Order struct {
	ID            string
	UserID        string
	OrderNumber   string
	TotalAmount   decimal.Decimal
	ShippingCost  decimal.Decimal
	PromoDiscount decimal.Decimal
	Status        Status
	PaymentStatus PaymentStatus
	Snapshot      AddressSnapshot
	Items         []Item
	CreatedAt     time.Time
}

// StockDecrement is one conditional stock reservation applied inside the
// order-creation transaction.
type StockDecrement struct {
	ProductID string
	Quantity  int
}

// Repository defines order persistence. Implementations must make Create
// atomic: snapshot, order row, items, and stock decrements all commit or
// none do, and a failed decrement surfaces as *InsufficientStockError.
type Repository interface {
	Create(ctx context.Context, o *Order, decrements []StockDecrement) error
	GetForUser(ctx context.Context, userID, orderID string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*Order, error)
	// UpdateStatus applies a guarded status change and returns the updated
	// order. It fails with *InvalidTransitionError when the state machine
	// forbids the move, evaluated against the current row under lock.
	UpdateStatus(ctx context.Context, orderID string, next Status) (*Order, error)
}
