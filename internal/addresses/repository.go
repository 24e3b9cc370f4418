package addresses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-commerce/storefront/internal/platform/db"
	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
)

var scope = db.DefaultScope{Table: "addresses", OwnerColumn: "customer_id", OwnerTable: "customers"}

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	List(ctx context.Context, customerID int64) ([]Address, error)
	Get(ctx context.Context, customerID, id int64) (*Address, error)
	Lock(ctx context.Context, customerID int64) ([]int64, error)
	Insert(ctx context.Context, a Address) (*Address, error)
	Update(ctx context.Context, a Address) (*Address, error)
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

const columns = `id, customer_id, label, recipient, line1, line2, city, postal_code, country, phone, is_default, created_at, updated_at`

func scan(row pgx.Row) (*Address, error) {
	var a Address
	err := row.Scan(&a.ID, &a.CustomerID, &a.Label, &a.Recipient, &a.Line1, &a.Line2, &a.City,
		&a.PostalCode, &a.Country, &a.Phone, &a.IsDefault, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: address", httpx.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) List(ctx context.Context, customerID int64) ([]Address, error) {
	rows, err := r.db.Query(ctx, `SELECT `+columns+` FROM addresses WHERE customer_id = $1
		ORDER BY is_default DESC, created_at DESC, id DESC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Address{}
	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, customerID, id int64) (*Address, error) {
	return scan(r.db.QueryRow(ctx, `SELECT `+columns+` FROM addresses WHERE id = $1 AND customer_id = $2`, id, customerID))
}

func (r *repository) Lock(ctx context.Context, customerID int64) ([]int64, error) {
	return db.LockOwnerRows(ctx, r.db, scope, customerID)
}

func (r *repository) Insert(ctx context.Context, a Address) (*Address, error) {
	return scan(r.db.QueryRow(ctx, `INSERT INTO addresses
		(customer_id, label, recipient, line1, line2, city, postal_code, country, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING `+columns,
		a.CustomerID, a.Label, a.Recipient, a.Line1, a.Line2, a.City, a.PostalCode, strings.ToUpper(a.Country), a.Phone))
}

func (r *repository) Update(ctx context.Context, a Address) (*Address, error) {
	return scan(r.db.QueryRow(ctx, `UPDATE addresses SET label = $3, recipient = $4, line1 = $5, line2 = $6,
		city = $7, postal_code = $8, country = $9, phone = $10, updated_at = NOW()
		WHERE id = $1 AND customer_id = $2 RETURNING `+columns,
		a.ID, a.CustomerID, a.Label, a.Recipient, a.Line1, a.Line2, a.City, a.PostalCode, strings.ToUpper(a.Country), a.Phone))
}

func (r *repository) MakeDefault(ctx context.Context, customerID, id int64) (bool, error) {
	return db.MakeDefault(ctx, r.db, scope, customerID, id)
}

func (r *repository) Delete(ctx context.Context, customerID, id int64) (bool, error) {
	var wasDefault bool
	err := r.db.QueryRow(ctx, `DELETE FROM addresses WHERE id = $1 AND customer_id = $2 RETURNING is_default`,
		id, customerID).Scan(&wasDefault)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("%w: address", httpx.ErrNotFound)
	}
	return wasDefault, err
}

func (r *repository) PromoteNewest(ctx context.Context, customerID int64) error {
	return db.PromoteNewest(ctx, r.db, scope, customerID)
}
