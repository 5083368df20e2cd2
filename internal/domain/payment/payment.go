// Package payment implements Midtrans payment initiation and webhook
// reconciliation for orders.
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/order"
)

// ErrForbidden is returned when a notification's signature does not match.
// Nothing is written and no detail about the mismatch leaks to the caller.
var ErrForbidden = errors.New("invalid notification signature")

// ErrOrderNotFound is returned when a notification references an order
// number that does not exist.
var ErrOrderNotFound = errors.New("order for notification not found")

// UnknownStatusError indicates a gateway transaction status outside the
// recognized set.
type UnknownStatusError struct {
	TransactionStatus string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown transaction status %q", e.TransactionStatus)
}

// Payment is the single payment record kept per order. Repeated
// notifications update it in place rather than appending rows.
type Payment struct {
	ID                string
	OrderID           string
	PaymentType       string
	TransactionStatus string
	TransactionTime   time.Time
	GrossAmount       decimal.Decimal
	TransactionID     string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Notification is an inbound Midtrans webhook payload. The signature fields
// are verified against the raw string values exactly as the gateway sent
// them, before any parsing.
type Notification struct {
	OrderNumber       string
	PaymentType       string
	TransactionStatus string
	TransactionTime   string
	GrossAmount       string
	TransactionID     string
	SignatureKey      string
	StatusCode        string
}

// StatusPair is the order/payment status outcome a transaction status maps to.
type StatusPair struct {
	Order   order.Status
	Payment order.PaymentStatus
}

// MapTransactionStatus translates a Midtrans transaction status into the
// order and payment statuses it implies.
func MapTransactionStatus(transactionStatus string) (StatusPair, error) {
	switch transactionStatus {
	case "settlement", "capture":
		return StatusPair{Order: order.StatusPaid, Payment: order.PaymentPaid}, nil
	case "pending":
		return StatusPair{Order: order.StatusPending, Payment: order.PaymentUnpaid}, nil
	case "deny":
		return StatusPair{Order: order.StatusPending, Payment: order.PaymentFailed}, nil
	case "expire":
		return StatusPair{Order: order.StatusCancelled, Payment: order.PaymentExpired}, nil
	case "cancel":
		return StatusPair{Order: order.StatusCancelled, Payment: order.PaymentCancelled}, nil
	default:
		return StatusPair{}, &UnknownStatusError{TransactionStatus: transactionStatus}
	}
}

// Apply describes the reconciliation write: upsert the payment record for
// the order and, when the transition is allowed, move the order's statuses.
type Apply struct {
	OrderID           string
	PaymentType       string
	TransactionStatus string
	TransactionTime   time.Time
	GrossAmount       decimal.Decimal
	TransactionID     string

	OrderStatus   order.Status
	PaymentStatus order.PaymentStatus
}

// Repository persists payment records. Implementations must make Apply
// atomic and serialize concurrent applies for the same order.
type Repository interface {
	Apply(ctx context.Context, a Apply) (*Payment, error)
	GetByOrderID(ctx context.Context, orderID string) (*Payment, error)
}

// Transaction is the canonical transaction state fetched from the gateway's
// status endpoint. Reconciliation trusts these values, not the webhook body.
type Transaction struct {
	OrderNumber       string
	PaymentType       string
	TransactionStatus string
	TransactionTime   string
	GrossAmount       string
	TransactionID     string
}

// Customer identifies the paying customer on a checkout session. Midtrans
// shows these details on the payment page; all fields may be empty.
type Customer struct {
	Name  string
	Email string
	Phone string
}

// Gateway abstracts the Midtrans HTTP API.
type Gateway interface {
	// CreateTransaction opens a Snap payment session and returns its token
	// and redirect URL.
	CreateTransaction(ctx context.Context, orderNumber string, grossAmount decimal.Decimal, customer Customer) (*Session, error)
	// GetTransactionStatus fetches the canonical transaction state for an
	// order from the Core API.
	GetTransactionStatus(ctx context.Context, orderNumber string) (*Transaction, error)
}

// Session is a Snap checkout session.
type Session struct {
	Token       string
	RedirectURL string
}
