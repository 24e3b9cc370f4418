package reviews

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
	admins    rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, customers, admins rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, customers: customers, admins: admins}
}

// MountProductRoutes registers /{id}/reviews inside the /api/products router.
func (h *Handler) MountProductRoutes(r chi.Router) {
	r.Get("/{id}/reviews", h.listForProduct)
	r.With(h.customers.Require()).Post("/{id}/reviews", h.submit)
}

// MountAdminRoutes registers /api/admin/reviews.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.With(h.admins.Require(rbac.CapReviewsView)).Get("/", h.list)
	r.Group(func(r chi.Router) {
		r.Use(h.admins.Require(rbac.CapReviewsModerate))
		r.Patch("/{id}", h.moderate)
		r.Delete("/{id}", h.remove)
	})
}

func (h *Handler) listForProduct(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	out, err := h.service.ForProduct(r.Context(), id, shared.PageFromQuery(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var in CreateInput
	if err := httpx.Bind(w, r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	customer := shared.IdentityFromContext(r.Context(), shared.AudienceCustomer)
	rv, err := h.service.Submit(r.Context(), customer.ID, id, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rv)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.List(r.Context(), r.URL.Query().Get("status"), shared.PageFromQuery(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) moderate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var in ModerateInput
	if err := httpx.Bind(w, r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	actor := shared.IdentityFromContext(r.Context(), shared.AudienceAdmin)
	rv, err := h.service.Moderate(r.Context(), actor.ID, id, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rv)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Success(w, nil)
}
