package orders

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
	"github.com/odyssey-commerce/storefront/internal/shared"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Order, error)
	GetForUpdate(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, int, error)
	LockCart(ctx context.Context, customerID int64) ([]CartLine, error)
	Shipping(ctx context.Context, customerID, addressID int64) (*Shipping, error)
	BestPromo(ctx context.Context, customerID int64) (*pricing.ActivePromo, error)
	PromoByCode(ctx context.Context, customerID int64, code string) (*pricing.ActivePromo, error)
	Insert(ctx context.Context, order Order) (int64, error)
	InsertItem(ctx context.Context, item Item) error
	DecrementStock(ctx context.Context, productID int64, qty int) error
	ClearCart(ctx context.Context, customerID int64) error
	TransitionStatus(ctx context.Context, id int64, from, to Status) (bool, error)
	Restock(ctx context.Context, orderID int64) error
	Audit(ctx context.Context, log shared.AuditLog) error
}

type repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

// WithTx runs fn in a ReadCommitted transaction; the row locks taken inside keep it consistent.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTxOptions(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const orderColumns = `id, customer_id, status, subtotal_cents, discount_cents, total_cents, promo_code_id,
	ship_recipient, ship_line1, ship_line2, ship_city, ship_postal_code, ship_country, ship_phone,
	cancelled_at, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var status string
	err := row.Scan(&o.ID, &o.CustomerID, &status, &o.SubtotalCents, &o.DiscountCents, &o.TotalCents, &o.PromoCodeID,
		&o.Shipping.Recipient, &o.Shipping.Line1, &o.Shipping.Line2, &o.Shipping.City, &o.Shipping.PostalCode,
		&o.Shipping.Country, &o.Shipping.Phone, &o.CancelledAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: order", httpx.ErrNotFound)
		}
		return nil, err
	}
	o.Status = Status(status)
	return &o, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	items, err := r.items(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

func (r *repository) GetForUpdate(ctx context.Context, id int64) (*Order, error) {
	return scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
}

func (r *repository) items(ctx context.Context, orderID int64) ([]Item, error) {
	rows, err := r.db.Query(ctx, `SELECT id, order_id, product_id, name, unit_price_cents, quantity, line_total_cents
		FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.UnitPriceCents, &it.Quantity, &it.LineTotalCents); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Order, int, error) {
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
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, filter.Limit, filter.Offset)
	rows, err := r.db.Query(ctx, fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		orderColumns, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *o)
	}
	return out, total, rows.Err()
}

// LockCart returns the customer's cart and locks the referenced product rows in id order.
func (r *repository) LockCart(ctx context.Context, customerID int64) ([]CartLine, error) {
	rows, err := r.db.Query(ctx, `SELECT p.id, p.name, c.quantity, p.price_cents, p.stock, p.is_active
		FROM cart_items c JOIN products p ON p.id = c.product_id
		WHERE c.customer_id = $1 ORDER BY p.id FOR UPDATE OF p`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []CartLine
	for rows.Next() {
		var l CartLine
		if err := rows.Scan(&l.ProductID, &l.Name, &l.Quantity, &l.PriceCents, &l.Stock, &l.IsActive); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *repository) Shipping(ctx context.Context, customerID, addressID int64) (*Shipping, error) {
	var s Shipping
	err := r.db.QueryRow(ctx, `SELECT recipient, line1, line2, city, postal_code, country, phone
		FROM addresses WHERE id = $1 AND customer_id = $2`, addressID, customerID).
		Scan(&s.Recipient, &s.Line1, &s.Line2, &s.City, &s.PostalCode, &s.Country, &s.Phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: address", httpx.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repository) BestPromo(ctx context.Context, customerID int64) (*pricing.ActivePromo, error) {
	return pricing.BestPromo(ctx, r.db, customerID)
}

func (r *repository) PromoByCode(ctx context.Context, customerID int64, code string) (*pricing.ActivePromo, error) {
	var p pricing.ActivePromo
	err := r.db.QueryRow(ctx, `SELECT id, code, discount_percent FROM promo_codes
		WHERE code = $1 AND customer_id = $2 AND status = 'ACTIVE' AND (expires_at IS NULL OR expires_at > NOW())`,
		code, customerID).Scan(&p.ID, &p.Code, &p.Percent)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) Insert(ctx context.Context, o Order) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO orders (customer_id, status, subtotal_cents, discount_cents, total_cents, promo_code_id,
		ship_recipient, ship_line1, ship_line2, ship_city, ship_postal_code, ship_country, ship_phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`,
		o.CustomerID, string(o.Status), o.SubtotalCents, o.DiscountCents, o.TotalCents, o.PromoCodeID,
		o.Shipping.Recipient, o.Shipping.Line1, o.Shipping.Line2, o.Shipping.City, o.Shipping.PostalCode,
		o.Shipping.Country, o.Shipping.Phone).Scan(&id)
	return id, err
}

func (r *repository) InsertItem(ctx context.Context, it Item) error {
	_, err := r.db.Exec(ctx, `INSERT INTO order_items (order_id, product_id, name, unit_price_cents, quantity, line_total_cents)
		VALUES ($1, $2, $3, $4, $5, $6)`, it.OrderID, it.ProductID, it.Name, it.UnitPriceCents, it.Quantity, it.LineTotalCents)
	return err
}

func (r *repository) DecrementStock(ctx context.Context, productID int64, qty int) error {
	tag, err := r.db.Exec(ctx, `UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1 AND stock >= $2`, productID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: insufficient stock", httpx.ErrConflict)
	}
	return nil
}

func (r *repository) ClearCart(ctx context.Context, customerID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE customer_id = $1`, customerID)
	return err
}

// TransitionStatus applies to only when the row still holds from. It reports whether a row changed.
func (r *repository) TransitionStatus(ctx context.Context, id int64, from, to Status) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE orders SET status = $3, updated_at = NOW(),
		cancelled_at = CASE WHEN $3 = 'CANCELLED' THEN NOW() ELSE cancelled_at END
		WHERE id = $1 AND status = $2`, id, string(from), string(to))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repository) Restock(ctx context.Context, orderID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE products p SET stock = p.stock + oi.quantity, updated_at = NOW()
		FROM order_items oi WHERE oi.order_id = $1 AND p.id = oi.product_id`, orderID)
	return err
}

func (r *repository) Audit(ctx context.Context, log shared.AuditLog) error {
	return shared.RecordAudit(ctx, r.db, log)
}
