package payments

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

// MountRoutes registers /api/payment-methods.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.customers.Require())
	r.Get("/", h.list)
	r.Post("/", h.add)
	r.Put("/{id}/default", h.setDefault)
	r.Delete("/{id}", h.remove)
}

func customerID(r *http.Request) int64 {
	return shared.IdentityFromContext(r.Context(), shared.AudienceCustomer).ID
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	methods, err := h.service.List(r.Context(), customerID(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": methods})
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	var in MethodInput
	if err := httpx.Bind(w, r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	m, err := h.service.Add(r.Context(), customerID(r), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}

func (h *Handler) setDefault(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.SetDefault(r.Context(), customerID(r), id); err != nil {
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
	if err := h.service.Remove(r.Context(), customerID(r), id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Success(w, nil)
}
