package wishlist

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-commerce/storefront/internal/platform/db"
)

func TestConcurrentTogglesAlternate(t *testing.T) {
	dsn := os.Getenv("STOREFRONT_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("STOREFRONT_TEST_PG_DSN not set")
	}
	require.NoError(t, db.Migrate(dsn, slog.New(slog.NewTextHandler(io.Discard, nil))))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	pool, err := db.New(ctx, dsn, db.PoolConfig{MaxConns: 16})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	suffix := uuid.NewString()
	var customerID, productID int64
	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO customers (email, password_hash, name) VALUES ($1, 'x', 'Wish') RETURNING id`,
		fmt.Sprintf("wish-%s@example.test", suffix)).Scan(&customerID))
	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO products (slug, name, price_cents, stock) VALUES ($1, 'Lamp', 1500, 3) RETURNING id`,
		"lamp-"+suffix).Scan(&productID))
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM customers WHERE id = $1`, customerID)
		_, _ = pool.Exec(context.Background(), `DELETE FROM products WHERE id = $1`, productID)
	})

	repo := NewRepository(pool)
	const n = 6
	var wg sync.WaitGroup
	results := make(chan bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			added, err := repo.Toggle(ctx, customerID, productID)
			assert.NoError(t, err)
			results <- added
		}()
	}
	wg.Wait()
	close(results)

	adds := 0
	for added := range results {
		if added {
			adds++
		}
	}
	assert.Equal(t, n/2, adds, "toggles alternate between add and remove")

	items, err := repo.List(ctx, customerID)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = repo.Toggle(ctx, customerID, -1)
	assert.ErrorContains(t, err, "product")
}
