package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-commerce/storefront/internal/platform/db"
	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/pricing"
)

// ErrArchived reports a delete that deactivated a product still referenced by orders.
var ErrArchived = errors.New("product archived instead of deleted")

type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Product, int, error)
	Get(ctx context.Context, id int64) (*Product, error)
	GetBySlug(ctx context.Context, slug string) (*Product, error)
	Create(ctx context.Context, p Product) (*Product, error)
	Update(ctx context.Context, p Product) (*Product, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db   db.DBTX
	pool db.Beginner
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

const productColumns = `id, slug, name, description, category, price_cents, stock, image_url, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &p.Category, &p.PriceCents, &p.Stock, &p.ImageURL, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: product", httpx.ErrNotFound)
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	var (
		where []string
		args  []any
	)
	if !filter.IncludeInactive {
		where = append(where, "is_active")
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%[1]d OR description ILIKE $%[1]d)", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM products%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		productColumns, clause, len(args)-1, len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := make([]Product, 0, filter.Limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *p)
	}
	return items, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*Product, error) {
	return scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

func (r *repository) GetBySlug(ctx context.Context, slug string) (*Product, error) {
	return scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1`, slug))
}

func (r *repository) Create(ctx context.Context, p Product) (*Product, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO products (slug, name, description, category, price_cents, stock, image_url, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING `+productColumns,
		p.Slug, p.Name, p.Description, p.Category, p.PriceCents, p.Stock, p.ImageURL, p.IsActive)
	out, err := scanProduct(row)
	return out, mapWriteErr(err)
}

// Update rewrites the product and, in the same transaction, reprices the cart lines holding it.
func (r *repository) Update(ctx context.Context, p Product) (*Product, error) {
	var out *Product
	err := db.WithTxOptions(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `UPDATE products SET slug = $2, name = $3, description = $4, category = $5,
			price_cents = $6, stock = $7, image_url = $8, is_active = $9, updated_at = NOW()
			WHERE id = $1 RETURNING `+productColumns,
			p.ID, p.Slug, p.Name, p.Description, p.Category, p.PriceCents, p.Stock, p.ImageURL, p.IsActive)
		var err error
		if out, err = scanProduct(row); err != nil {
			return mapWriteErr(err)
		}
		_, err = pricing.RepriceProductLines(ctx, tx, out.ID, out.PriceCents)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if db.IsCode(err, db.CodeForeignKeyViolation) {
			if _, err := r.db.Exec(ctx, `UPDATE products SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id); err != nil {
				return err
			}
			return ErrArchived
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product", httpx.ErrNotFound)
	}
	return nil
}

func mapWriteErr(err error) error {
	if err != nil && db.IsCode(err, db.CodeUniqueViolation) {
		return fmt.Errorf("%w: slug already in use", httpx.ErrDuplicate)
	}
	return err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
