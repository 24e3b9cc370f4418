package catalog

import (
	"github.com/go-chi/chi/v5"

	"github.com/odyssey-commerce/storefront/internal/rbac"
)

// MountPublicRoutes registers storefront catalog reads under /api/products.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/", h.listPublic)
	r.Get("/{slug}", h.showPublic)
}

// MountAdminRoutes registers /api/admin/products.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.CapProductsView))
		r.Get("/", h.listAdmin)
		r.Get("/{id}", h.showAdmin)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.CapProductsEdit))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.CapProductsDelete))
		r.Delete("/{id}", h.delete)
	})
}
