package banners

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/rbac"
)

type Handler struct {
	logger *slog.Logger
	repo   Repository
	admins rbac.Middleware
	now    func() time.Time
}

func NewHandler(logger *slog.Logger, repo Repository, admins rbac.Middleware) *Handler {
	return &Handler{logger: logger, repo: repo, admins: admins, now: time.Now}
}

// MountPublicRoutes registers GET /api/banners.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/", h.live)
}

// MountAdminRoutes registers /api/admin/banners.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.With(h.admins.Require(rbac.CapBannersView)).Get("/", h.all)
	r.Group(func(r chi.Router) {
		r.Use(h.admins.Require(rbac.CapBannersEdit))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.remove)
	})
}

func (h *Handler) live(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.Live(r.Context(), h.now())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) all(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.All(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.Bind(w, r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := in.validate(); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	b, err := h.repo.Create(r.Context(), in.banner())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, b)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var in Input
	if err := httpx.Bind(w, r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := in.validate(); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	b, err := h.repo.Update(r.Context(), id, in.banner())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
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
