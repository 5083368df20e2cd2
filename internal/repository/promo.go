package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/promo"
)

const (
	promoColumns = `id, code, description, discount_type, discount_value,
		max_discount, min_order_amount, start_date, end_date, created_at, updated_at`

	findPromoByCodeSQL = `SELECT ` + promoColumns + `
		FROM promos WHERE UPPER(code) = UPPER($1)`

	listPromosSQL = `SELECT ` + promoColumns + ` FROM promos ORDER BY code`

	getPromoByIDSQL = `SELECT ` + promoColumns + ` FROM promos WHERE id = $1`

	insertPromoSQL = `INSERT INTO promos
		(id, code, description, discount_type, discount_value, max_discount,
		 min_order_amount, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	updatePromoSQL = `UPDATE promos SET
			description = COALESCE($2, description),
			discount_type = COALESCE($3, discount_type),
			discount_value = COALESCE($4, discount_value),
			max_discount = COALESCE($5, max_discount),
			min_order_amount = COALESCE($6, min_order_amount),
			start_date = COALESCE($7, start_date),
			end_date = COALESCE($8, end_date),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + promoColumns

	deletePromoSQL = `DELETE FROM promos WHERE id = $1`
)

// uniqueViolation is the PostgreSQL error code for unique constraint breaks.
const uniqueViolation = "23505"

var _ promo.Repository = (*PromoRepository)(nil)

// PromoRepository implements promo.Repository backed by PostgreSQL.
type PromoRepository struct {
	pool *pgxpool.Pool
}

// NewPromoRepository returns a PromoRepository that uses the given pool.
func NewPromoRepository(pool *pgxpool.Pool) *PromoRepository {
	return &PromoRepository{pool: pool}
}

// FindByCode looks up a promo by its code (case-insensitive).
func (r *PromoRepository) FindByCode(ctx context.Context, code string) (*promo.Promo, error) {
	rows, err := r.pool.Query(ctx, findPromoByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding promo by code %q: %w", code, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanPromo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promo.ErrNotFound
		}
		return nil, fmt.Errorf("finding promo by code %q: %w", code, err)
	}
	return &p, nil
}

// Create inserts a new promo rule.
func (r *PromoRepository) Create(ctx context.Context, p *promo.Promo) error {
	_, err := r.pool.Exec(ctx, insertPromoSQL,
		p.ID, p.Code, p.Description, p.DiscountType, p.DiscountValue,
		p.MaxDiscount, p.MinOrderAmount, p.StartDate, p.EndDate,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return promo.ErrDuplicateCode
		}
		return fmt.Errorf("creating promo %q: %w", p.Code, err)
	}
	return nil
}

// List returns all promo rules ordered by code.
func (r *PromoRepository) List(ctx context.Context) ([]promo.Promo, error) {
	rows, err := r.pool.Query(ctx, listPromosSQL)
	if err != nil {
		return nil, fmt.Errorf("listing promos: %w", err)
	}
	return pgx.CollectRows(rows, scanPromo)
}

// GetByID returns a single promo by its identifier.
func (r *PromoRepository) GetByID(ctx context.Context, id string) (*promo.Promo, error) {
	rows, err := r.pool.Query(ctx, getPromoByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting promo %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanPromo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promo.ErrNotFound
		}
		return nil, fmt.Errorf("getting promo %q: %w", id, err)
	}
	return &p, nil
}

// Update applies a partial update; nil fields keep their current values.
func (r *PromoRepository) Update(ctx context.Context, id string, upd promo.Update) (*promo.Promo, error) {
	rows, err := r.pool.Query(ctx, updatePromoSQL, id,
		upd.Description, upd.DiscountType, upd.DiscountValue,
		upd.MaxDiscount, upd.MinOrderAmount, upd.StartDate, upd.EndDate,
	)
	if err != nil {
		return nil, fmt.Errorf("updating promo %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanPromo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promo.ErrNotFound
		}
		return nil, fmt.Errorf("updating promo %q: %w", id, err)
	}
	return &p, nil
}

// Delete removes a promo rule.
func (r *PromoRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deletePromoSQL, id)
	if err != nil {
		return fmt.Errorf("deleting promo %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return promo.ErrNotFound
	}
	return nil
}

func scanPromo(row pgx.CollectableRow) (promo.Promo, error) {
	var p promo.Promo
	err := row.Scan(
		&p.ID, &p.Code, &p.Description, &p.DiscountType, &p.DiscountValue,
		&p.MaxDiscount, &p.MinOrderAmount, &p.StartDate, &p.EndDate,
		&p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}
