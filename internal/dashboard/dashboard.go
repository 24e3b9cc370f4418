// Package dashboard aggregates back-office headline numbers.
package dashboard

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-commerce/storefront/internal/platform/db"
	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/rbac"
	"github.com/odyssey-commerce/storefront/internal/shared"
	"github.com/odyssey-commerce/storefront/internal/view"
)

// LoginPath is where the dashboard page sends anonymous or unauthorised visitors.
const LoginPath = "/admin/login"

type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type Summary struct {
	Products       int           `json:"products"`
	UnreadMessages int           `json:"unreadMessages"`
	PendingReviews int           `json:"pendingReviews"`
	RevenueCents   int64         `json:"revenueCents"`
	Orders         []StatusCount `json:"orders"`
}

type Repository interface {
	Summary(ctx context.Context) (*Summary, error)
}

type repository struct {
	db db.DBTX
}

func NewRepository(q db.DBTX) Repository {
	return &repository{db: q}
}

func (r *repository) Summary(ctx context.Context) (*Summary, error) {
	var s Summary
	err := r.db.QueryRow(ctx, `SELECT
		(SELECT COUNT(*) FROM products WHERE is_active),
		(SELECT COUNT(*) FROM messages WHERE NOT is_read),
		(SELECT COUNT(*) FROM reviews WHERE status = 'PENDING'),
		(SELECT COALESCE(SUM(total_cents), 0) FROM orders WHERE status IN ('DELIVERED', 'COMPLETED'))`).
		Scan(&s.Products, &s.UnreadMessages, &s.PendingReviews, &s.RevenueCents)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	s.Orders = []StatusCount{}
	for rows.Next() {
		var c StatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, err
		}
		s.Orders = append(s.Orders, c)
	}
	return &s, rows.Err()
}

type Handler struct {
	logger    *slog.Logger
	repo      Repository
	templates *view.Engine
	csrf      *shared.CSRFManager
	admins    rbac.Middleware
}

func NewHandler(logger *slog.Logger, repo Repository, templates *view.Engine, csrf *shared.CSRFManager, admins rbac.Middleware) *Handler {
	return &Handler{logger: logger, repo: repo, templates: templates, csrf: csrf, admins: admins}
}

// MountPage registers GET /admin.
func (h *Handler) MountPage(r chi.Router) {
	r.With(h.admins.RequirePage(rbac.CapDashboardView, LoginPath)).Get("/", h.page)
}

// MountAPI registers GET /api/admin/dashboard.
func (h *Handler) MountAPI(r chi.Router) {
	r.With(h.admins.Require(rbac.CapDashboardView)).Get("/", h.summary)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.repo.Summary(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request) {
	s, err := h.repo.Summary(r.Context())
	if err != nil {
		h.logger.Error("dashboard summary", slog.Any("error", err))
		http.Error(w, httpx.GenericInternalMessage, http.StatusInternalServerError)
		return
	}
	who := shared.IdentityFromContext(r.Context(), shared.AudienceAdmin)
	data := view.TemplateData{
		Title:       "Dashboard",
		CSRFToken:   h.csrf.Token(who),
		CurrentPath: r.URL.Path,
		Identity:    who,
		Data:        s,
	}
	if err := h.templates.Render(w, http.StatusOK, "pages/admin_dashboard.html", data); err != nil {
		h.logger.Error("render dashboard", slog.Any("error", err))
	}
}
