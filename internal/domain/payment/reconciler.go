package payment

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/user"
)

// transactionTimeLayout is the timestamp format Midtrans uses in both
// webhook payloads and status responses.
const transactionTimeLayout = "2006-01-02 15:04:05"

// Reconciler verifies Midtrans webhook notifications and folds them into
// order and payment state. Verification is signature-first: an unverified
// payload causes no reads or writes beyond the order lookup needed to apply
// a verified one.
type Reconciler struct {
	serverKey string
	orders    order.Repository
	payments  Repository
	gateway   Gateway
	lg        *zap.Logger
}

// NewReconciler creates a Reconciler with the Midtrans server key used for
// signature verification.
func NewReconciler(serverKey string, orders order.Repository, payments Repository, gateway Gateway, lg *zap.Logger) *Reconciler {
	return &Reconciler{
		serverKey: serverKey,
		orders:    orders,
		payments:  payments,
		gateway:   gateway,
		lg:        lg,
	}
}

// HandleNotification processes one webhook delivery. The flow is:
// verify the signature over the raw payload fields, re-fetch the canonical
// transaction state from the gateway, map it onto order and payment
// statuses, and apply the result atomically. Replays and out-of-order
// deliveries are absorbed: the payment record is always brought up to date,
// but order status only ever moves forward.
func (r *Reconciler) HandleNotification(ctx context.Context, n Notification) error {
	if !r.verifySignature(n) {
		r.lg.Warn("rejected notification with bad signature",
			zap.String("order_number", n.OrderNumber),
		)
		return ErrForbidden
	}

	// The webhook body is untrusted even after signature verification; the
	// status endpoint is the source of truth for the transaction state.
	tx, err := r.gateway.GetTransactionStatus(ctx, n.OrderNumber)
	if err != nil {
		return errors.Wrap(err, "fetch transaction status")
	}

	pair, err := MapTransactionStatus(tx.TransactionStatus)
	if err != nil {
		return err
	}

	o, err := r.orders.GetByNumber(ctx, n.OrderNumber)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return ErrOrderNotFound
		}
		return errors.Wrap(err, "get order")
	}

	gross, err := decimal.NewFromString(tx.GrossAmount)
	if err != nil {
		return errors.Wrap(err, "parse gross amount")
	}
	txTime, err := time.Parse(transactionTimeLayout, tx.TransactionTime)
	if err != nil {
		txTime = time.Now()
	}

	apply := Apply{
		OrderID:           o.ID,
		PaymentType:       tx.PaymentType,
		TransactionStatus: tx.TransactionStatus,
		TransactionTime:   txTime,
		GrossAmount:       gross,
		TransactionID:     tx.TransactionID,
		OrderStatus:       pair.Order,
		PaymentStatus:     pair.Payment,
	}

	if _, err := r.payments.Apply(ctx, apply); err != nil {
		return errors.Wrap(err, "apply notification")
	}

	r.lg.Info("reconciled payment notification",
		zap.String("order_number", n.OrderNumber),
		zap.String("transaction_status", tx.TransactionStatus),
		zap.String("order_status", string(pair.Order)),
	)
	return nil
}

// verifySignature checks hex(sha512(order_id + status_code + gross_amount +
// server_key)) against the payload's signature key in constant time. The raw
// string fields are concatenated exactly as received.
func (r *Reconciler) verifySignature(n Notification) bool {
	sum := sha512.Sum512([]byte(n.OrderNumber + n.StatusCode + n.GrossAmount + r.serverKey))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(n.SignatureKey)) == 1
}

// Initiator opens Snap checkout sessions for pending orders.
type Initiator struct {
	orders  order.Repository
	users   user.Directory
	gateway Gateway
}

// NewInitiator creates an Initiator.
func NewInitiator(orders order.Repository, users user.Directory, gateway Gateway) *Initiator {
	return &Initiator{orders: orders, users: users, gateway: gateway}
}

// Initiate opens a payment session for an order owned by the user. The
// gateway is charged the order's total; the session token and redirect URL
// are returned for the client to complete checkout.
func (i *Initiator) Initiate(ctx context.Context, userID, orderID string) (*Session, error) {
	o, err := i.orders.GetForUser(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != order.StatusPending {
		return nil, &order.InvalidTransitionError{From: o.Status, To: order.StatusPaid}
	}

	// The checkout page shows the payer's details when the directory has
	// them; a missing record does not block payment.
	var customer Customer
	if u, err := i.users.GetByID(ctx, userID); err == nil {
		customer = Customer{Name: u.Name, Email: u.Email, Phone: u.Phone}
	} else if !errors.Is(err, user.ErrNotFound) {
		return nil, errors.Wrap(err, "load customer")
	}

	s, err := i.gateway.CreateTransaction(ctx, o.OrderNumber, o.TotalAmount, customer)
	if err != nil {
		return nil, errors.Wrap(err, "create transaction")
	}
	return s, nil
}
