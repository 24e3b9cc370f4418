package promotions

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/rbac"
	"github.com/odyssey-commerce/storefront/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
	admins  rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, admins rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, admins: admins}
}

// MountAdminRoutes registers /api/admin/promotions.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.admins.Require(rbac.CapPromotionsView))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.admins.Require(rbac.CapPromotionsEdit))
		r.Post("/", h.create)
		r.Patch("/{id}/status", h.setStatus)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var customerID *int64
	if raw := r.URL.Query().Get("customerId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			httpx.RespondError(w, h.logger, fmt.Errorf("%w: invalid customerId", httpx.ErrValidation))
			return
		}
		customerID = &id
	}
	page, err := h.service.List(r.Context(), customerID, r.URL.Query().Get("status"), shared.PageFromQuery(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.Bind(w, r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	actor := shared.IdentityFromContext(r.Context(), shared.AudienceAdmin)
	p, err := h.service.Create(r.Context(), actor.ID, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var in StatusInput
	if err := httpx.Bind(w, r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	actor := shared.IdentityFromContext(r.Context(), shared.AudienceAdmin)
	p, err := h.service.SetStatus(r.Context(), actor.ID, id, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}
