package cart

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/rbac"
	"github.com/odyssey-commerce/storefront/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers /api/cart. Every route needs a customer session.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.Require())
	r.Get("/", h.get)
	r.Post("/items", h.add)
	r.Put("/items/{productId}", h.setQuantity)
	r.Delete("/items/{productId}", h.remove)
}

func customerID(r *http.Request) int64 {
	return shared.IdentityFromContext(r.Context(), shared.AudienceCustomer).ID
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), customerID(r))
	h.respond(w, c, err)
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	var in AddItemInput
	if err := httpx.Bind(w, r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	c, err := h.service.Add(r.Context(), customerID(r), in)
	h.respond(w, c, err)
}

func (h *Handler) setQuantity(w http.ResponseWriter, r *http.Request) {
	productID, err := httpx.IDParam(r, "productId")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var in SetQuantityInput
	if err := httpx.Bind(w, r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	c, err := h.service.SetQuantity(r.Context(), customerID(r), productID, *in.Quantity)
	h.respond(w, c, err)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	productID, err := httpx.IDParam(r, "productId")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	c, err := h.service.Remove(r.Context(), customerID(r), productID)
	h.respond(w, c, err)
}

func (h *Handler) respond(w http.ResponseWriter, c *Cart, err error) {
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}
