package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-commerce/storefront/internal/platform/db"
	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
)

var methodScope = db.DefaultScope{Table: "payment_methods", OwnerColumn: "customer_id", OwnerTable: "customers"}

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	List(ctx context.Context, customerID int64) ([]Method, error)
	// Lock takes the owner's row locks and returns the ids held.
	Lock(ctx context.Context, customerID int64) ([]int64, error)
	Insert(ctx context.Context, m Method) (*Method, error)
	MakeDefault(ctx context.Context, customerID, id int64) (bool, error)
	Delete(ctx context.Context, customerID, id int64) (wasDefault bool, err error)
	PromoteNewest(ctx context.Context, customerID int64) error
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

const methodColumns = `id, customer_id, brand, last4, exp_month, exp_year, holder, is_default, created_at`

func scanMethod(row pgx.Row) (*Method, error) {
	var m Method
	if err := row.Scan(&m.ID, &m.CustomerID, &m.Brand, &m.Last4, &m.ExpMonth, &m.ExpYear, &m.Holder, &m.IsDefault, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repository) List(ctx context.Context, customerID int64) ([]Method, error) {
	rows, err := r.db.Query(ctx, `SELECT `+methodColumns+` FROM payment_methods
		WHERE customer_id = $1 ORDER BY is_default DESC, created_at DESC, id DESC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Method{}
	for rows.Next() {
		m, err := scanMethod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (r *repository) Lock(ctx context.Context, customerID int64) ([]int64, error) {
	return db.LockOwnerRows(ctx, r.db, methodScope, customerID)
}

func (r *repository) Insert(ctx context.Context, m Method) (*Method, error) {
	return scanMethod(r.db.QueryRow(ctx, `INSERT INTO payment_methods (customer_id, brand, last4, exp_month, exp_year, holder)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+methodColumns,
		m.CustomerID, m.Brand, m.Last4, m.ExpMonth, m.ExpYear, m.Holder))
}

func (r *repository) MakeDefault(ctx context.Context, customerID, id int64) (bool, error) {
	return db.MakeDefault(ctx, r.db, methodScope, customerID, id)
}

func (r *repository) Delete(ctx context.Context, customerID, id int64) (bool, error) {
	var wasDefault bool
	err := r.db.QueryRow(ctx, `DELETE FROM payment_methods WHERE id = $1 AND customer_id = $2 RETURNING is_default`,
		id, customerID).Scan(&wasDefault)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("%w: payment method", httpx.ErrNotFound)
	}
	return wasDefault, err
}

func (r *repository) PromoteNewest(ctx context.Context, customerID int64) error {
	return db.PromoteNewest(ctx, r.db, methodScope, customerID)
}
