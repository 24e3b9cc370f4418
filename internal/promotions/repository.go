package promotions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-commerce/storefront/internal/platform/db"
	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/pricing"
	"github.com/odyssey-commerce/storefront/internal/shared"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*PromoCode, error)
	GetForUpdate(ctx context.Context, id int64) (*PromoCode, error)
	List(ctx context.Context, filter ListFilter) ([]PromoCode, int, error)
	Create(ctx context.Context, p PromoCode) (*PromoCode, error)
	SetStatus(ctx context.Context, id int64, status Status) error
	ExpireDue(ctx context.Context, now time.Time) ([]PromoCode, error)
	RepriceCart(ctx context.Context, customerID int64) error
	Audit(ctx context.Context, log shared.AuditLog) error
}

type repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTxOptions(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const promoColumns = `id, code, customer_id, discount_percent, status, expires_at, activated_at, created_at, updated_at`

func scanPromo(row pgx.Row) (*PromoCode, error) {
	var (
		p      PromoCode
		status string
	)
	err := row.Scan(&p.ID, &p.Code, &p.CustomerID, &p.DiscountPercent, &status, &p.ExpiresAt, &p.ActivatedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: promo code", httpx.ErrNotFound)
		}
		return nil, err
	}
	p.Status = Status(status)
	return &p, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*PromoCode, error) {
	return scanPromo(r.db.QueryRow(ctx, `SELECT `+promoColumns+` FROM promo_codes WHERE id = $1`, id))
}

func (r *repository) GetForUpdate(ctx context.Context, id int64) (*PromoCode, error) {
	return scanPromo(r.db.QueryRow(ctx, `SELECT `+promoColumns+` FROM promo_codes WHERE id = $1 FOR UPDATE`, id))
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]PromoCode, int, error) {
	var (
		where []string
		args  []any
	)
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		where = append(where, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM promo_codes`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, filter.Limit, filter.Offset)
	rows, err := r.db.Query(ctx, fmt.Sprintf(`SELECT %s FROM promo_codes%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		promoColumns, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []PromoCode{}
	for rows.Next() {
		p, err := scanPromo(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, p PromoCode) (*PromoCode, error) {
	out, err := scanPromo(r.db.QueryRow(ctx, `INSERT INTO promo_codes (code, customer_id, discount_percent, status, expires_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING `+promoColumns,
		p.Code, p.CustomerID, p.DiscountPercent, string(p.Status), p.ExpiresAt))
	switch {
	case err == nil:
		return out, nil
	case db.IsCode(err, db.CodeUniqueViolation):
		return nil, fmt.Errorf("%w: promo code already exists", httpx.ErrDuplicate)
	case db.IsCode(err, db.CodeForeignKeyViolation):
		return nil, fmt.Errorf("%w: customer", httpx.ErrNotFound)
	default:
		return nil, err
	}
}

func (r *repository) SetStatus(ctx context.Context, id int64, status Status) error {
	_, err := r.db.Exec(ctx, `UPDATE promo_codes SET status = $2, updated_at = NOW(),
		activated_at = CASE WHEN $2 = 'ACTIVE' THEN NOW() ELSE activated_at END
		WHERE id = $1`, id, string(status))
	return err
}

// ExpireDue flips ACTIVE codes past their expiry to EXPIRED and returns them.
func (r *repository) ExpireDue(ctx context.Context, now time.Time) ([]PromoCode, error) {
	rows, err := r.db.Query(ctx, `UPDATE promo_codes SET status = 'EXPIRED', updated_at = NOW()
		WHERE status = 'ACTIVE' AND expires_at IS NOT NULL AND expires_at <= $1
		RETURNING `+promoColumns, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PromoCode
	for rows.Next() {
		p, err := scanPromo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *repository) RepriceCart(ctx context.Context, customerID int64) error {
	_, err := pricing.RepriceCart(ctx, r.db, customerID)
	return err
}

func (r *repository) Audit(ctx context.Context, log shared.AuditLog) error {
	return shared.RecordAudit(ctx, r.db, log)
}
