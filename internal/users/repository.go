package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-commerce/storefront/internal/platform/db"
	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/rbac"
	"github.com/odyssey-commerce/storefront/internal/shared"
)

// RepositoryPort defines data access methods for employees and customers.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, RepositoryPort) error) error
	ListEmployees(ctx context.Context) ([]Employee, error)
	GetEmployeeForUpdate(ctx context.Context, id int64) (*Employee, error)
	CreateEmployee(ctx context.Context, e Employee, passwordHash string) (*Employee, error)
	SetEmployeeRole(ctx context.Context, id int64, role rbac.Role) error
	ListCustomers(ctx context.Context, search string, limit, offset int) ([]Customer, int, error)
	GetCustomer(ctx context.Context, id int64) (*Customer, error)
	SetCustomerActive(ctx context.Context, id int64, active bool) error
	Audit(ctx context.Context, log shared.AuditLog) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool, pool: pool}
}

func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, RepositoryPort) error) error {
	return db.WithTxOptions(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, &Repository{db: tx, pool: r.pool})
	})
}

const employeeColumns = `id, email, name, role, is_active, created_at, updated_at`

func scanEmployee(row pgx.Row) (*Employee, error) {
	var (
		e    Employee
		role string
	)
	if err := row.Scan(&e.ID, &e.Email, &e.Name, &role, &e.IsActive, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: employee", httpx.ErrNotFound)
		}
		return nil, err
	}
	parsed, err := rbac.ParseRole(role)
	if err != nil {
		return nil, err
	}
	e.Role = parsed
	return &e, nil
}

// ListEmployees returns all staff accounts.
func (r *Repository) ListEmployees(ctx context.Context) ([]Employee, error) {
	rows, err := r.db.Query(ctx, `SELECT `+employeeColumns+` FROM admin_users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	employees := []Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, *e)
	}
	return employees, rows.Err()
}

func (r *Repository) GetEmployeeForUpdate(ctx context.Context, id int64) (*Employee, error) {
	return scanEmployee(r.db.QueryRow(ctx, `SELECT `+employeeColumns+` FROM admin_users WHERE id = $1 FOR UPDATE`, id))
}

func (r *Repository) CreateEmployee(ctx context.Context, e Employee, passwordHash string) (*Employee, error) {
	out, err := scanEmployee(r.db.QueryRow(ctx, `INSERT INTO admin_users (email, name, password_hash, role)
		VALUES ($1, $2, $3, $4) RETURNING `+employeeColumns,
		strings.ToLower(strings.TrimSpace(e.Email)), e.Name, passwordHash, e.Role.String()))
	if err != nil && db.IsCode(err, db.CodeUniqueViolation) {
		return nil, fmt.Errorf("%w: email already in use", httpx.ErrDuplicate)
	}
	return out, err
}

func (r *Repository) SetEmployeeRole(ctx context.Context, id int64, role rbac.Role) error {
	_, err := r.db.Exec(ctx, `UPDATE admin_users SET role = $2, updated_at = NOW() WHERE id = $1`, id, role.String())
	return err
}

const customerSelect = `SELECT c.id, c.email, c.name, c.phone, c.is_active, c.created_at, c.updated_at,
	COUNT(o.id), COALESCE(SUM(o.total_cents) FILTER (WHERE o.status <> 'CANCELLED'), 0)
	FROM customers c LEFT JOIN orders o ON o.customer_id = c.id`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	if err := row.Scan(&c.ID, &c.Email, &c.Name, &c.Phone, &c.IsActive, &c.CreatedAt, &c.UpdatedAt, &c.OrderCount, &c.SpentCents); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: customer", httpx.ErrNotFound)
		}
		return nil, err
	}
	return &c, nil
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func (r *Repository) ListCustomers(ctx context.Context, search string, limit, offset int) ([]Customer, int, error) {
	clause, args := "", []any{}
	if search = strings.TrimSpace(search); search != "" {
		clause = ` WHERE (c.name ILIKE $1 OR c.email ILIKE $1)`
		args = append(args, likePattern(search))
	}
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM customers c`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)
	rows, err := r.db.Query(ctx, fmt.Sprintf(`%s%s GROUP BY c.id ORDER BY c.created_at DESC, c.id DESC LIMIT $%d OFFSET $%d`,
		customerSelect, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *c)
	}
	return out, total, rows.Err()
}

func (r *Repository) GetCustomer(ctx context.Context, id int64) (*Customer, error) {
	return scanCustomer(r.db.QueryRow(ctx, customerSelect+` WHERE c.id = $1 GROUP BY c.id`, id))
}

func (r *Repository) SetCustomerActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE customers SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: customer", httpx.ErrNotFound)
	}
	return nil
}

func (r *Repository) Audit(ctx context.Context, log shared.AuditLog) error {
	return shared.RecordAudit(ctx, r.db, log)
}
