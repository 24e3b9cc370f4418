// Package banners manages the storefront hero banners.
package banners

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-commerce/storefront/internal/platform/db"
	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
)

type Banner struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	ImageURL  string     `json:"imageUrl"`
	LinkURL   string     `json:"linkUrl"`
	Position  int        `json:"position"`
	IsActive  bool       `json:"isActive"`
	StartsAt  *time.Time `json:"startsAt,omitempty"`
	EndsAt    *time.Time `json:"endsAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Live reports whether the banner is shown at t.
func (b Banner) Live(t time.Time) bool {
	if !b.IsActive {
		return false
	}
	if b.StartsAt != nil && t.Before(*b.StartsAt) {
		return false
	}
	if b.EndsAt != nil && !t.Before(*b.EndsAt) {
		return false
	}
	return true
}

type Input struct {
	Title    string     `json:"title" validate:"required,max=160"`
	ImageURL string     `json:"imageUrl" validate:"required,url"`
	LinkURL  string     `json:"linkUrl" validate:"omitempty,max=500"`
	Position int        `json:"position" validate:"min=0,max=1000"`
	IsActive *bool      `json:"isActive"`
	StartsAt *time.Time `json:"startsAt"`
	EndsAt   *time.Time `json:"endsAt"`
}

func (in Input) banner() Banner {
	b := Banner{
		Title:    in.Title,
		ImageURL: in.ImageURL,
		LinkURL:  in.LinkURL,
		Position: in.Position,
		IsActive: true,
		StartsAt: in.StartsAt,
		EndsAt:   in.EndsAt,
	}
	if in.IsActive != nil {
		b.IsActive = *in.IsActive
	}
	return b
}

func (in Input) validate() error {
	if err := httpx.Validate(in); err != nil {
		return err
	}
	if in.StartsAt != nil && in.EndsAt != nil && !in.EndsAt.After(*in.StartsAt) {
		return fmt.Errorf("%w: endsAt must be after startsAt", httpx.ErrValidation)
	}
	return nil
}

type Repository interface {
	Live(ctx context.Context, at time.Time) ([]Banner, error)
	All(ctx context.Context) ([]Banner, error)
	Create(ctx context.Context, b Banner) (*Banner, error)
	Update(ctx context.Context, id int64, b Banner) (*Banner, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db db.DBTX
}

func NewRepository(q db.DBTX) Repository {
	return &repository{db: q}
}

const columns = `id, title, image_url, link_url, position, is_active, starts_at, ends_at, created_at, updated_at`

func scan(row pgx.Row) (*Banner, error) {
	var b Banner
	if err := row.Scan(&b.ID, &b.Title, &b.ImageURL, &b.LinkURL, &b.Position, &b.IsActive, &b.StartsAt, &b.EndsAt, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: banner", httpx.ErrNotFound)
		}
		return nil, err
	}
	return &b, nil
}

func (r *repository) collect(rows pgx.Rows, err error) ([]Banner, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Banner{}
	for rows.Next() {
		b, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *repository) Live(ctx context.Context, at time.Time) ([]Banner, error) {
	return r.collect(r.db.Query(ctx, `SELECT `+columns+` FROM banners
		WHERE is_active AND (starts_at IS NULL OR starts_at <= $1) AND (ends_at IS NULL OR ends_at > $1)
		ORDER BY position, id`, at))
}

func (r *repository) All(ctx context.Context) ([]Banner, error) {
	return r.collect(r.db.Query(ctx, `SELECT `+columns+` FROM banners ORDER BY position, id`))
}

func (r *repository) Create(ctx context.Context, b Banner) (*Banner, error) {
	return scan(r.db.QueryRow(ctx, `INSERT INTO banners (title, image_url, link_url, position, is_active, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+columns,
		b.Title, b.ImageURL, b.LinkURL, b.Position, b.IsActive, b.StartsAt, b.EndsAt))
}

func (r *repository) Update(ctx context.Context, id int64, b Banner) (*Banner, error) {
	return scan(r.db.QueryRow(ctx, `UPDATE banners SET title = $2, image_url = $3, link_url = $4, position = $5,
		is_active = $6, starts_at = $7, ends_at = $8, updated_at = NOW() WHERE id = $1 RETURNING `+columns,
		id, b.Title, b.ImageURL, b.LinkURL, b.Position, b.IsActive, b.StartsAt, b.EndsAt))
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM banners WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: banner", httpx.ErrNotFound)
	}
	return nil
}
