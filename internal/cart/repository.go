package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-commerce/storefront/internal/platform/db"
	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/pricing"
)

type Repository interface {
	Items(ctx context.Context, customerID int64) ([]Item, error)
	Product(ctx context.Context, productID int64) (*ProductInfo, error)
	DiscountPercent(ctx context.Context, customerID int64) (int, error)
	Quantity(ctx context.Context, customerID, productID int64) (int, error)
	Put(ctx context.Context, customerID, productID int64, qty int, unitPrice int64) error
	Remove(ctx context.Context, customerID, productID int64) (bool, error)
}

type repository struct {
	db db.DBTX
}

func NewRepository(q db.DBTX) Repository {
	return &repository{db: q}
}

func (r *repository) Items(ctx context.Context, customerID int64) ([]Item, error) {
	rows, err := r.db.Query(ctx, `SELECT c.product_id, p.slug, p.name, p.image_url, c.quantity, p.price_cents, c.unit_price_cents, p.stock
		FROM cart_items c JOIN products p ON p.id = c.product_id
		WHERE c.customer_id = $1 ORDER BY c.created_at, c.product_id`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Slug, &it.Name, &it.ImageURL, &it.Quantity, &it.ListPriceCents, &it.UnitPriceCents, &it.Stock); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) Product(ctx context.Context, productID int64) (*ProductInfo, error) {
	var p ProductInfo
	err := r.db.QueryRow(ctx, `SELECT id, price_cents, stock, is_active FROM products WHERE id = $1`, productID).
		Scan(&p.ID, &p.PriceCents, &p.Stock, &p.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: product", httpx.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) DiscountPercent(ctx context.Context, customerID int64) (int, error) {
	promo, err := pricing.BestPromo(ctx, r.db, customerID)
	if err != nil {
		return 0, err
	}
	return promo.PercentOff(), nil
}

func (r *repository) Quantity(ctx context.Context, customerID, productID int64) (int, error) {
	var qty int
	err := r.db.QueryRow(ctx, `SELECT quantity FROM cart_items WHERE customer_id = $1 AND product_id = $2`, customerID, productID).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return qty, err
}

func (r *repository) Put(ctx context.Context, customerID, productID int64, qty int, unitPrice int64) error {
	_, err := r.db.Exec(ctx, `INSERT INTO cart_items (customer_id, product_id, quantity, unit_price_cents)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (customer_id, product_id) DO UPDATE
		SET quantity = EXCLUDED.quantity, unit_price_cents = EXCLUDED.unit_price_cents, updated_at = NOW()`,
		customerID, productID, qty, unitPrice)
	return err
}

func (r *repository) Remove(ctx context.Context, customerID, productID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE customer_id = $1 AND product_id = $2`, customerID, productID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
