package addresses

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/rbac"
	"github.com/odyssey-commerce/storefront/internal/shared"
)

type Handler struct {
	logger    *slog.Logger
	service   *Service
	customers rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, customers rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, customers: customers}
}

// MountRoutes registers /api/addresses.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.customers.Require())
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Put("/{id}", h.update)
	r.Put("/{id}/default", h.setDefault)
	r.Delete("/{id}", h.remove)
}

func owner(r *http.Request) int64 {
	return shared.IdentityFromContext(r.Context(), shared.AudienceCustomer).ID
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context(), owner(r))
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
	a, err := h.service.Create(r.Context(), owner(r), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, a)
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
	a, err := h.service.Update(r.Context(), owner(r), id, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

func (h *Handler) setDefault(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.SetDefault(r.Context(), owner(r), id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Success(w, nil)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.Delete(r.Context(), owner(r), id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Success(w, nil)
}
