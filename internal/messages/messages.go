// Package messages handles contact-form submissions and their back-office inbox.
package messages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/odyssey-commerce/storefront/internal/platform/db"
	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/rbac"
	"github.com/odyssey-commerce/storefront/internal/shared"
)

type Message struct {
	ID         int64     `json:"id"`
	CustomerID *int64    `json:"customerId,omitempty"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	IsRead     bool      `json:"isRead"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Input struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=200"`
	Body    string `json:"body" validate:"required,max=5000"`
}

type Page struct {
	Items      []Message         `json:"items"`
	Unread     int               `json:"unread"`
	Pagination shared.Pagination `json:"pagination"`
}

type Repository interface {
	Create(ctx context.Context, m Message) (*Message, error)
	List(ctx context.Context, unreadOnly bool, limit, offset int) ([]Message, int, error)
	CountUnread(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id int64) (*Message, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db db.DBTX
}

func NewRepository(q db.DBTX) Repository {
	return &repository{db: q}
}

const columns = `id, customer_id, name, email, subject, body, is_read, created_at`

func scan(row pgx.Row) (*Message, error) {
	var m Message
	if err := row.Scan(&m.ID, &m.CustomerID, &m.Name, &m.Email, &m.Subject, &m.Body, &m.IsRead, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: message", httpx.ErrNotFound)
		}
		return nil, err
	}
	return &m, nil
}

func (r *repository) Create(ctx context.Context, m Message) (*Message, error) {
	return scan(r.db.QueryRow(ctx, `INSERT INTO messages (customer_id, name, email, subject, body)
		VALUES ($1, $2, $3, $4, $5) RETURNING `+columns, m.CustomerID, m.Name, m.Email, m.Subject, m.Body))
}

func (r *repository) List(ctx context.Context, unreadOnly bool, limit, offset int) ([]Message, int, error) {
	clause := ""
	if unreadOnly {
		clause = " WHERE NOT is_read"
	}
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM messages`+clause).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+columns+` FROM messages`+clause+` ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Message{}
	for rows.Next() {
		m, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *m)
	}
	return out, total, rows.Err()
}

func (r *repository) CountUnread(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE NOT is_read`).Scan(&n)
	return n, err
}

func (r *repository) MarkRead(ctx context.Context, id int64) (*Message, error) {
	return scan(r.db.QueryRow(ctx, `UPDATE messages SET is_read = TRUE WHERE id = $1 RETURNING `+columns, id))
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: message", httpx.ErrNotFound)
	}
	return nil
}

type Handler struct {
	logger *slog.Logger
	repo   Repository
	admins rbac.Middleware
}

func NewHandler(logger *slog.Logger, repo Repository, admins rbac.Middleware) *Handler {
	return &Handler{logger: logger, repo: repo, admins: admins}
}

// MountPublicRoutes registers POST /api/messages.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Post("/", h.submit)
}

// MountAdminRoutes registers /api/admin/messages.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.With(h.admins.Require(rbac.CapMessagesView)).Get("/", h.list)
	r.Group(func(r chi.Router) {
		r.Use(h.admins.Require(rbac.CapMessagesEdit))
		r.Patch("/{id}/read", h.markRead)
		r.Delete("/{id}", h.remove)
	})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.Bind(w, r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	m := Message{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.ToLower(strings.TrimSpace(in.Email)),
		Subject: strings.TrimSpace(in.Subject),
		Body:    strings.TrimSpace(in.Body),
	}
	if who := shared.IdentityFromContext(r.Context(), shared.AudienceCustomer); who != nil {
		m.CustomerID = &who.ID
	}
	created, err := h.repo.Create(r.Context(), m)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]int64{"id": created.ID})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page := shared.PageFromQuery(r)
	unreadOnly := r.URL.Query().Get("unread") == "true" || r.URL.Query().Get("unread") == "1"
	items, total, err := h.repo.List(r.Context(), unreadOnly, page.PerPage, page.Offset())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	unread, err := h.repo.CountUnread(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, Page{Items: items, Unread: unread, Pagination: shared.NewPagination(page.Page, page.PerPage, total)})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	m, err := h.repo.MarkRead(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Success(w, nil)
}
