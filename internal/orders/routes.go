package orders

import (
	"github.com/go-chi/chi/v5"

	"github.com/odyssey-commerce/storefront/internal/rbac"
)

// MountCustomerRoutes registers /api/orders.
func (h *Handler) MountCustomerRoutes(r chi.Router) {
	r.Use(h.customers.Require())
	r.Get("/", h.listMine)
	r.Post("/", h.checkout)
	r.Get("/{id}", h.showMine)
	r.Post("/{id}/cancel", h.cancelMine)
}

// MountAdminRoutes registers /api/admin/orders.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.admins.Require(rbac.CapOrdersView))
		r.Get("/", h.listAll)
		r.Get("/{id}", h.showAny)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.admins.Require(rbac.CapOrdersEdit))
		r.Patch("/{id}/status", h.updateStatus)
	})
}
