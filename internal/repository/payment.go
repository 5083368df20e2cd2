package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/payment"
)

const (
	// Advisory lock keyed on the order id serializes concurrent webhook
	// deliveries for the same order without blocking unrelated orders.
	lockPaymentSQL = `SELECT pg_advisory_xact_lock(hashtext($1::text))`

	upsertPaymentSQL = `INSERT INTO payments
		(id, order_id, payment_type, transaction_status, transaction_time, gross_amount, transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (order_id) DO UPDATE SET
			payment_type = EXCLUDED.payment_type,
			transaction_status = EXCLUDED.transaction_status,
			transaction_time = EXCLUDED.transaction_time,
			gross_amount = EXCLUDED.gross_amount,
			transaction_id = EXCLUDED.transaction_id,
			updated_at = now()
		RETURNING id, order_id, payment_type, transaction_status, transaction_time,
			gross_amount, transaction_id, created_at, updated_at`

	getOrderStatusesSQL = `SELECT status, payment_status FROM orders WHERE id = $1 FOR UPDATE`

	setOrderStatusesSQL = `UPDATE orders SET status = $2, payment_status = $3, updated_at = now()
		WHERE id = $1`

	getPaymentByOrderSQL = `SELECT id, order_id, payment_type, transaction_status, transaction_time,
		gross_amount, transaction_id, created_at, updated_at
		FROM payments WHERE order_id = $1`
)

var _ payment.Repository = (*PaymentRepository)(nil)

// PaymentRepository implements payment.Repository backed by PostgreSQL.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository returns a PaymentRepository that uses the given pool.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// Apply records the reconciled transaction state for an order. The payment
// row is always upserted to the latest gateway state. Order statuses move
// only when the transition is allowed from the current row; a stale or
// out-of-order delivery updates the payment record and leaves the order
// untouched rather than failing.
func (r *PaymentRepository) Apply(ctx context.Context, a payment.Apply) (*payment.Payment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning payment transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, lockPaymentSQL, a.OrderID); err != nil {
		return nil, fmt.Errorf("locking payment for order %q: %w", a.OrderID, err)
	}

	rows, err := tx.Query(ctx, upsertPaymentSQL,
		uuid.New().String(), a.OrderID, a.PaymentType, a.TransactionStatus,
		a.TransactionTime, a.GrossAmount, a.TransactionID,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting payment for order %q: %w", a.OrderID, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPayment)
	if err != nil {
		return nil, fmt.Errorf("upserting payment for order %q: %w", a.OrderID, err)
	}

	var (
		currentStatus  order.Status
		currentPayment order.PaymentStatus
	)
	if err := tx.QueryRow(ctx, getOrderStatusesSQL, a.OrderID).Scan(&currentStatus, &currentPayment); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("locking order %q: %w", a.OrderID, err)
	}

	if currentStatus.CanTransition(a.OrderStatus) {
		if _, err := tx.Exec(ctx, setOrderStatusesSQL, a.OrderID, a.OrderStatus, a.PaymentStatus); err != nil {
			return nil, fmt.Errorf("updating statuses of order %q: %w", a.OrderID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing payment for order %q: %w", a.OrderID, err)
	}
	return &p, nil
}

// GetByOrderID returns the payment record for an order.
func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*payment.Payment, error) {
	rows, err := r.pool.Query(ctx, getPaymentByOrderSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("getting payment for order %q: %w", orderID, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanPayment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting payment for order %q: %w", orderID, err)
	}
	return &p, nil
}

func scanPayment(row pgx.CollectableRow) (payment.Payment, error) {
	var p payment.Payment
	err := row.Scan(
		&p.ID, &p.OrderID, &p.PaymentType, &p.TransactionStatus, &p.TransactionTime,
		&p.GrossAmount, &p.TransactionID, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}
