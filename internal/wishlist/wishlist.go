// Package wishlist stores the products a customer marked for later.
package wishlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-commerce/storefront/internal/platform/db"
	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/rbac"
	"github.com/odyssey-commerce/storefront/internal/shared"
)

type Item struct {
	ProductID  int64     `json:"productId"`
	Slug       string    `json:"slug"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"priceCents"`
	ImageURL   string    `json:"imageUrl"`
	InStock    bool      `json:"inStock"`
	AddedAt    time.Time `json:"addedAt"`
}

type ToggleInput struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
}

type Repository interface {
	List(ctx context.Context, customerID int64) ([]Item, error)
	// Toggle removes the entry when present and adds it otherwise, reporting whether it was added.
	Toggle(ctx context.Context, customerID, productID int64) (bool, error)
}

type repository struct {
	db   db.DBTX
	pool db.Beginner
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) List(ctx context.Context, customerID int64) ([]Item, error) {
	rows, err := r.db.Query(ctx, `SELECT p.id, p.slug, p.name, p.price_cents, p.image_url, p.stock > 0, w.created_at
		FROM wishlist_items w JOIN products p ON p.id = w.product_id
		WHERE w.customer_id = $1 AND p.is_active ORDER BY w.created_at DESC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Slug, &it.Name, &it.PriceCents, &it.ImageURL, &it.InStock, &it.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Toggle runs in one transaction holding the customer row, so concurrent toggles of the same
// customer apply one after another and each sees the previous outcome.
func (r *repository) Toggle(ctx context.Context, customerID, productID int64) (bool, error) {
	var added bool
	err := db.WithTxOptions(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		var one int
		err := tx.QueryRow(ctx, `SELECT 1 FROM customers WHERE id = $1 FOR NO KEY UPDATE`, customerID).Scan(&one)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: customer", httpx.ErrNotFound)
		}
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM wishlist_items WHERE customer_id = $1 AND product_id = $2`, customerID, productID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			return nil
		}
		tag, err = tx.Exec(ctx, `INSERT INTO wishlist_items (customer_id, product_id)
			SELECT $1, id FROM products WHERE id = $2 AND is_active
			ON CONFLICT DO NOTHING`, customerID, productID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: product", httpx.ErrNotFound)
		}
		added = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

type Handler struct {
	logger    *slog.Logger
	repo      Repository
	customers rbac.Middleware
}

func NewHandler(logger *slog.Logger, repo Repository, customers rbac.Middleware) *Handler {
	return &Handler{logger: logger, repo: repo, customers: customers}
}

// MountRoutes registers /api/wishlist.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.customers.Require())
	r.Get("/", h.list)
	r.Post("/toggle", h.toggle)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context(), shared.AudienceCustomer).ID
	items, err := h.repo.List(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request) {
	var in ToggleInput
	if err := httpx.Bind(w, r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	id := shared.IdentityFromContext(r.Context(), shared.AudienceCustomer).ID
	added, err := h.repo.Toggle(r.Context(), id, in.ProductID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"added": added})
}
