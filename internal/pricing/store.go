package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-commerce/storefront/internal/platform/db"
)

const activePromoClause = `customer_id = $1 AND status = 'ACTIVE' AND (expires_at IS NULL OR expires_at > NOW())`

// ActivePromo is the discount currently applying to a customer.
type ActivePromo struct {
	ID      int64
	Code    string
	Percent int
}

// BestPromo returns the customer's highest active discount, or nil when none applies.
func BestPromo(ctx context.Context, q db.DBTX, customerID int64) (*ActivePromo, error) {
	var p ActivePromo
	err := q.QueryRow(ctx, `SELECT id, code, discount_percent FROM promo_codes WHERE `+activePromoClause+`
		ORDER BY discount_percent DESC, id LIMIT 1`, customerID).Scan(&p.ID, &p.Code, &p.Percent)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pricing: best promo: %w", err)
	}
	return &p, nil
}

// PercentOff returns the discount of p, zero when p is nil.
func (p *ActivePromo) PercentOff() int {
	if p == nil {
		return 0
	}
	return p.Percent
}

// RepriceProductLines rewrites every cart line holding productID from priceCents and the line
// owner's best active discount. Run it in the transaction that changed the price.
func RepriceProductLines(ctx context.Context, q db.DBTX, productID, priceCents int64) (int64, error) {
	tag, err := q.Exec(ctx, `UPDATE cart_items c
		SET unit_price_cents = $2 * (100 - COALESCE((
			SELECT MAX(discount_percent) FROM promo_codes pc
			WHERE pc.customer_id = c.customer_id AND pc.status = 'ACTIVE'
			  AND (pc.expires_at IS NULL OR pc.expires_at > NOW())), 0)) / 100,
		    updated_at = NOW()
		WHERE c.product_id = $1`, productID, priceCents)
	if err != nil {
		return 0, fmt.Errorf("pricing: reprice lines of product %d: %w", productID, err)
	}
	return tag.RowsAffected(), nil
}

// RepriceCart rewrites every cart line of customer from list price and the best active discount.
// The arithmetic matches Discounted.
func RepriceCart(ctx context.Context, q db.DBTX, customerID int64) (int64, error) {
	tag, err := q.Exec(ctx, `UPDATE cart_items c
		SET unit_price_cents = p.price_cents * (100 - d.pct) / 100, updated_at = NOW()
		FROM products p,
		     (SELECT COALESCE(MAX(discount_percent), 0) AS pct FROM promo_codes WHERE `+activePromoClause+`) d
		WHERE c.customer_id = $1 AND p.id = c.product_id`, customerID)
	if err != nil {
		return 0, fmt.Errorf("pricing: reprice cart of %d: %w", customerID, err)
	}
	return tag.RowsAffected(), nil
}
