package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/cart"
)

const (
	ensureCartSQL = `INSERT INTO carts (id, user_id) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id`

	getCartIDSQL = `SELECT id FROM carts WHERE user_id = $1`

	listCartItemsSQL = `SELECT ci.product_id, p.name, p.price, p.stock, ci.quantity
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		JOIN products p ON p.id = ci.product_id
		WHERE c.user_id = $1
		ORDER BY ci.created_at`

	upsertCartItemSQL = `INSERT INTO cart_items (id, cart_id, product_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cart_id, product_id) DO UPDATE SET
			quantity = cart_items.quantity + EXCLUDED.quantity`

	setCartItemQuantitySQL = `UPDATE cart_items SET quantity = $3
		WHERE cart_id = $1 AND product_id = $2`

	deleteCartItemSQL = `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`

	deleteCartItemsSQL = `DELETE FROM cart_items
		USING carts
		WHERE carts.id = cart_items.cart_id
			AND carts.user_id = $1
			AND cart_items.product_id = ANY($2)`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. Each user
// has at most one cart row; it is created lazily on first write.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Get returns the user's cart with current product names, prices, and stock
// joined in. A user without a cart gets an empty one.
func (r *CartRepository) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	c := &cart.Cart{UserID: userID}

	if err := r.pool.QueryRow(ctx, getCartIDSQL, userID).Scan(&c.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c, nil
		}
		return nil, fmt.Errorf("getting cart for user %q: %w", userID, err)
	}

	rows, err := r.pool.Query(ctx, listCartItemsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing cart items for user %q: %w", userID, err)
	}
	c.Items, err = pgx.CollectRows(rows, scanCartItem)
	if err != nil {
		return nil, fmt.Errorf("listing cart items for user %q: %w", userID, err)
	}
	return c, nil
}

// AddItem adds quantity of a product to the user's cart, merging with any
// existing line for the same product.
func (r *CartRepository) AddItem(ctx context.Context, userID, productID string, quantity int) (*cart.Cart, error) {
	var cartID string
	if err := r.pool.QueryRow(ctx, ensureCartSQL, uuid.New().String(), userID).Scan(&cartID); err != nil {
		return nil, fmt.Errorf("ensuring cart for user %q: %w", userID, err)
	}

	if _, err := r.pool.Exec(ctx, upsertCartItemSQL, uuid.New().String(), cartID, productID, quantity); err != nil {
		return nil, fmt.Errorf("adding product %q to cart: %w", productID, err)
	}
	return r.Get(ctx, userID)
}

// SetQuantity replaces the quantity of a cart line. Zero removes the line.
// A product not in the cart yields cart.ErrItemNotFound.
func (r *CartRepository) SetQuantity(ctx context.Context, userID, productID string, quantity int) (*cart.Cart, error) {
	var cartID string
	if err := r.pool.QueryRow(ctx, getCartIDSQL, userID).Scan(&cartID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrItemNotFound
		}
		return nil, fmt.Errorf("getting cart for user %q: %w", userID, err)
	}

	var (
		tag pgconn.CommandTag
		err error
	)
	if quantity == 0 {
		tag, err = r.pool.Exec(ctx, deleteCartItemSQL, cartID, productID)
	} else {
		tag, err = r.pool.Exec(ctx, setCartItemQuantitySQL, cartID, productID, quantity)
	}
	if err != nil {
		return nil, fmt.Errorf("updating cart item %q: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, cart.ErrItemNotFound
	}
	return r.Get(ctx, userID)
}

// RemoveItems deletes the given products from the user's cart. Products not
// in the cart are ignored.
func (r *CartRepository) RemoveItems(ctx context.Context, userID string, productIDs []string) error {
	if _, err := r.pool.Exec(ctx, deleteCartItemsSQL, userID, productIDs); err != nil {
		return fmt.Errorf("removing cart items for user %q: %w", userID, err)
	}
	return nil
}

func scanCartItem(row pgx.CollectableRow) (cart.Item, error) {
	var item cart.Item
	err := row.Scan(&item.ProductID, &item.Name, &item.Price, &item.Stock, &item.Quantity)
	return item, err
}
