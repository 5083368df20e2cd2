package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/order"
)

const (
	decrementStockSQL = `UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2`

	insertSnapshotSQL = `INSERT INTO order_address_snapshots
		(id, recipient_name, phone_number, address_line_1, address_line_2,
		 sub_district, district, city, province, country, postal_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	insertOrderSQL = `INSERT INTO orders
		(id, user_id, order_number, total_amount, shipping_cost, promo_discount,
		 status, payment_status, snapshot_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4, $5)`

	orderColumns = `o.id, o.user_id, o.order_number, o.total_amount, o.shipping_cost,
		o.promo_discount, o.status, o.payment_status, o.created_at,
		s.id, s.recipient_name, s.phone_number, s.address_line_1, s.address_line_2,
		s.sub_district, s.district, s.city, s.province, s.country, s.postal_code`

	getOrderForUserSQL = `SELECT ` + orderColumns + `
		FROM orders o JOIN order_address_snapshots s ON s.id = o.snapshot_id
		WHERE o.id = $1 AND o.user_id = $2`

	getOrderByNumberSQL = `SELECT ` + orderColumns + `
		FROM orders o JOIN order_address_snapshots s ON s.id = o.snapshot_id
		WHERE o.order_number = $1`

	listOrdersByUserSQL = `SELECT ` + orderColumns + `
		FROM orders o JOIN order_address_snapshots s ON s.id = o.snapshot_id
		WHERE o.user_id = $1 ORDER BY o.created_at DESC`

	listOrderItemsSQL = `SELECT id, order_id, product_id, quantity, price
		FROM order_items WHERE order_id = ANY($1) ORDER BY created_at`

	lockOrderStatusSQL = `SELECT status FROM orders WHERE id = $1 FOR UPDATE`

	setOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order aggregate in one transaction: stock decrements
// first, then the address snapshot, order row, and items. Each decrement is
// conditional on remaining stock; a decrement that matches no row means a
// concurrent order won the remaining units, and the whole transaction rolls
// back with *order.InsufficientStockError.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order, decrements []order.StockDecrement) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning order transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, d := range decrements {
		tag, err := tx.Exec(ctx, decrementStockSQL, d.ProductID, d.Quantity)
		if err != nil {
			return fmt.Errorf("decrementing stock for %q: %w", d.ProductID, err)
		}
		if tag.RowsAffected() == 0 {
			return &order.InsufficientStockError{ProductID: d.ProductID}
		}
	}

	s := o.Snapshot
	if _, err := tx.Exec(ctx, insertSnapshotSQL,
		s.ID, s.RecipientName, s.PhoneNumber, s.AddressLine1, s.AddressLine2,
		s.SubDistrict, s.District, s.City, s.Province, s.Country, s.PostalCode,
	); err != nil {
		return fmt.Errorf("inserting address snapshot: %w", err)
	}

	if _, err := tx.Exec(ctx, insertOrderSQL,
		o.ID, o.UserID, o.OrderNumber, o.TotalAmount, o.ShippingCost, o.PromoDiscount,
		o.Status, o.PaymentStatus, s.ID, o.CreatedAt,
	); err != nil {
		return fmt.Errorf("inserting order %q: %w", o.ID, err)
	}

	for _, item := range o.Items {
		if _, err := tx.Exec(ctx, insertOrderItemSQL,
			item.ID, item.OrderID, item.ProductID, item.Quantity, item.Price,
		); err != nil {
			return fmt.Errorf("inserting order item %q: %w", item.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

// GetForUser returns a single order owned by the user, with items.
func (r *OrderRepository) GetForUser(ctx context.Context, userID, orderID string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderForUserSQL, orderID, userID)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", orderID, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", orderID, err)
	}

	if err := r.attachItems(ctx, []*order.Order{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

// GetByNumber returns an order by its public order number, with items.
func (r *OrderRepository) GetByNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByNumberSQL, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("getting order by number %q: %w", orderNumber, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order by number %q: %w", orderNumber, err)
	}

	if err := r.attachItems(ctx, []*order.Order{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListByUser returns the user's orders newest first, with items.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}

	list, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}

	refs := make([]*order.Order, len(list))
	for i := range list {
		refs[i] = &list[i]
	}
	if err := r.attachItems(ctx, refs); err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateStatus moves an order's status under a row lock. The transition is
// checked against the current row, so concurrent updates serialize and each
// sees the state left by the previous one.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, next order.Status) (*order.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning status transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current order.Status
	if err := tx.QueryRow(ctx, lockOrderStatusSQL, orderID).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("locking order %q: %w", orderID, err)
	}

	if !current.CanTransition(next) {
		return nil, &order.InvalidTransitionError{From: current, To: next}
	}

	if _, err := tx.Exec(ctx, setOrderStatusSQL, orderID, next); err != nil {
		return nil, fmt.Errorf("updating status of order %q: %w", orderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing status of order %q: %w", orderID, err)
	}

	return r.getByID(ctx, orderID)
}

func (r *OrderRepository) getByID(ctx context.Context, orderID string) (*order.Order, error) {
	const getOrderByIDSQL = `SELECT ` + orderColumns + `
		FROM orders o JOIN order_address_snapshots s ON s.id = o.snapshot_id
		WHERE o.id = $1`

	rows, err := r.pool.Query(ctx, getOrderByIDSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", orderID, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", orderID, err)
	}

	if err := r.attachItems(ctx, []*order.Order{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

// attachItems loads order items for all given orders in a single query.
func (r *OrderRepository) attachItems(ctx context.Context, orders []*order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	byID := make(map[string]*order.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	rows, err := r.pool.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}

	items, err := pgx.CollectRows(rows, scanOrderItem)
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}

	for _, item := range items {
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.OrderNumber, &o.TotalAmount, &o.ShippingCost,
		&o.PromoDiscount, &o.Status, &o.PaymentStatus, &o.CreatedAt,
		&o.Snapshot.ID, &o.Snapshot.RecipientName, &o.Snapshot.PhoneNumber,
		&o.Snapshot.AddressLine1, &o.Snapshot.AddressLine2,
		&o.Snapshot.SubDistrict, &o.Snapshot.District, &o.Snapshot.City,
		&o.Snapshot.Province, &o.Snapshot.Country, &o.Snapshot.PostalCode,
	)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var item order.Item
	err := row.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price)
	return item, err
}
