package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-commerce/storefront/internal/platform/db"
)

func TestUpdateRepricesCartLines(t *testing.T) {
	dsn := os.Getenv("STOREFRONT_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("STOREFRONT_TEST_PG_DSN not set")
	}
	require.NoError(t, db.Migrate(dsn, slog.New(slog.NewTextHandler(io.Discard, nil))))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	pool, err := db.New(ctx, dsn, db.PoolConfig{MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	suffix := uuid.NewString()
	var customerID, productID int64
	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO customers (email, password_hash, name) VALUES ($1, 'x', 'Cart') RETURNING id`,
		fmt.Sprintf("cart-%s@example.test", suffix)).Scan(&customerID))
	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO products (slug, name, price_cents, stock) VALUES ($1, 'Mug', 1000, 5) RETURNING id`,
		"mug-"+suffix).Scan(&productID))
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM customers WHERE id = $1`, customerID)
		_, _ = pool.Exec(context.Background(), `DELETE FROM products WHERE id = $1`, productID)
	})
	_, err = pool.Exec(ctx, `INSERT INTO promo_codes (code, customer_id, discount_percent, status) VALUES ($1, $2, 20, 'ACTIVE')`,
		"MUG20-"+suffix[:8], customerID)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO cart_items (customer_id, product_id, quantity, unit_price_cents) VALUES ($1, $2, 1, 800)`,
		customerID, productID)
	require.NoError(t, err)

	repo := NewRepository(pool)
	p, err := repo.Get(ctx, productID)
	require.NoError(t, err)
	p.PriceCents = 500
	_, err = repo.Update(ctx, *p)
	require.NoError(t, err)

	var unit int64
	require.NoError(t, pool.QueryRow(ctx, `SELECT unit_price_cents FROM cart_items WHERE customer_id = $1 AND product_id = $2`,
		customerID, productID).Scan(&unit))
	assert.Equal(t, int64(400), unit)
}
