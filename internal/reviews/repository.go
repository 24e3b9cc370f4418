package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-commerce/storefront/internal/platform/db"
	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/shared"
)

type Repository interface {
	ProductExists(ctx context.Context, productID int64) (bool, error)
	List(ctx context.Context, filter ListFilter) ([]Review, int, error)
	Average(ctx context.Context, productID int64) (float64, error)
	Create(ctx context.Context, r Review) (*Review, error)
	SetStatus(ctx context.Context, id int64, status Status) (*Review, error)
	Delete(ctx context.Context, id int64) error
	Audit(ctx context.Context, log shared.AuditLog) error
}

type repository struct {
	db db.DBTX
}

func NewRepository(q db.DBTX) Repository {
	return &repository{db: q}
}

const reviewSelect = `SELECT r.id, r.product_id, r.customer_id, c.name, r.rating, r.title, r.body, r.status, r.created_at
	FROM reviews r JOIN customers c ON c.id = r.customer_id`

func scanReview(row pgx.Row) (*Review, error) {
	var (
		rv     Review
		status string
	)
	if err := row.Scan(&rv.ID, &rv.ProductID, &rv.CustomerID, &rv.CustomerName, &rv.Rating, &rv.Title, &rv.Body, &status, &rv.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: review", httpx.ErrNotFound)
		}
		return nil, err
	}
	rv.Status = Status(status)
	return &rv, nil
}

func (r *repository) ProductExists(ctx context.Context, productID int64) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1 AND is_active)`, productID).Scan(&ok)
	return ok, err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Review, int, error) {
	var (
		where []string
		args  []any
	)
	if filter.ProductID != nil {
		args = append(args, *filter.ProductID)
		where = append(where, fmt.Sprintf("r.product_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where = append(where, fmt.Sprintf("r.status = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM reviews r`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, filter.Limit, filter.Offset)
	rows, err := r.db.Query(ctx, fmt.Sprintf(`%s%s ORDER BY r.created_at DESC, r.id DESC LIMIT $%d OFFSET $%d`,
		reviewSelect, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *rv)
	}
	return out, total, rows.Err()
}

func (r *repository) Average(ctx context.Context, productID int64) (float64, error) {
	var avg float64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(AVG(rating), 0)::float8 FROM reviews
		WHERE product_id = $1 AND status = 'APPROVED'`, productID).Scan(&avg)
	return avg, err
}

func (r *repository) Create(ctx context.Context, rv Review) (*Review, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO reviews (product_id, customer_id, rating, title, body, status)
		VALUES ($1, $2, $3, $4, $5, 'PENDING') RETURNING id`,
		rv.ProductID, rv.CustomerID, rv.Rating, rv.Title, rv.Body).Scan(&id)
	switch {
	case db.IsCode(err, db.CodeUniqueViolation):
		return nil, fmt.Errorf("%w: you already reviewed this product", httpx.ErrDuplicate)
	case db.IsCode(err, db.CodeForeignKeyViolation):
		return nil, fmt.Errorf("%w: product", httpx.ErrNotFound)
	case err != nil:
		return nil, err
	}
	return scanReview(r.db.QueryRow(ctx, reviewSelect+` WHERE r.id = $1`, id))
}

func (r *repository) SetStatus(ctx context.Context, id int64, status Status) (*Review, error) {
	tag, err := r.db.Exec(ctx, `UPDATE reviews SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("%w: review", httpx.ErrNotFound)
	}
	return scanReview(r.db.QueryRow(ctx, reviewSelect+` WHERE r.id = $1`, id))
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: review", httpx.ErrNotFound)
	}
	return nil
}

func (r *repository) Audit(ctx context.Context, log shared.AuditLog) error {
	return shared.RecordAudit(ctx, r.db, log)
}
