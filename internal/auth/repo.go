package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-commerce/storefront/internal/platform/db"
	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/rbac"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindCustomerByEmail(ctx context.Context, email string) (*Account, error)
	FindCustomerByID(ctx context.Context, id int64) (*Account, error)
	CreateCustomer(ctx context.Context, name, email, passwordHash string) (*Account, error)
	FindAdminByEmail(ctx context.Context, email string) (*Account, error)
	FindAdminByID(ctx context.Context, id int64) (*Account, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(q db.DBTX) *PGRepository {
	return &PGRepository{db: q}
}

const customerColumns = `id, email, name, password_hash, is_active, created_at`

// FindCustomerByEmail fetches a customer by email.
func (r *PGRepository) FindCustomerByEmail(ctx context.Context, email string) (*Account, error) {
	return r.scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE email = $1`, normaliseEmail(email)))
}

// FindCustomerByID fetches a customer by id.
func (r *PGRepository) FindCustomerByID(ctx context.Context, id int64) (*Account, error) {
	return r.scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
}

// CreateCustomer inserts a customer account.
func (r *PGRepository) CreateCustomer(ctx context.Context, name, email, passwordHash string) (*Account, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO customers (name, email, password_hash) VALUES ($1, $2, $3)
		RETURNING `+customerColumns, name, normaliseEmail(email), passwordHash)
	acc, err := r.scanCustomer(row)
	if err != nil && db.IsCode(err, db.CodeUniqueViolation) {
		return nil, fmt.Errorf("%w: email already registered", httpx.ErrDuplicate)
	}
	return acc, err
}

func (r *PGRepository) scanCustomer(row pgx.Row) (*Account, error) {
	var acc Account
	if err := row.Scan(&acc.ID, &acc.Email, &acc.Name, &acc.PasswordHash, &acc.IsActive, &acc.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	acc.Role = rbac.RoleCustomer
	return &acc, nil
}

const adminColumns = `id, email, name, password_hash, role, is_active, created_at`

// FindAdminByEmail fetches a staff account by email.
func (r *PGRepository) FindAdminByEmail(ctx context.Context, email string) (*Account, error) {
	return scanAdmin(r.db.QueryRow(ctx, `SELECT `+adminColumns+` FROM admin_users WHERE email = $1`, normaliseEmail(email)))
}

// FindAdminByID fetches a staff account by id.
func (r *PGRepository) FindAdminByID(ctx context.Context, id int64) (*Account, error) {
	return scanAdmin(r.db.QueryRow(ctx, `SELECT `+adminColumns+` FROM admin_users WHERE id = $1`, id))
}

func scanAdmin(row pgx.Row) (*Account, error) {
	var (
		acc  Account
		role string
	)
	if err := row.Scan(&acc.ID, &acc.Email, &acc.Name, &acc.PasswordHash, &role, &acc.IsActive, &acc.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	parsed, err := rbac.ParseRole(role)
	if err != nil || !parsed.IsStaff() {
		return nil, fmt.Errorf("auth: admin %d has unusable role %q", acc.ID, role)
	}
	acc.Role = parsed
	return &acc, nil
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ Repository = (*PGRepository)(nil)
