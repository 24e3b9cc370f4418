package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
)

// PermissionsHandler exposes the capability table to the back office.
type PermissionsHandler struct {
	rbac Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require())
		r.Get("/", h.mine)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(CapEmployeesView))
		r.Get("/matrix", h.matrix)
	})
}

func (h *PermissionsHandler) mine(w http.ResponseWriter, r *http.Request) {
	p, _ := h.rbac.principal(r)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"role":         p.GetRole(),
		"capabilities": Capabilities(p.GetRole()),
	})
}

func (h *PermissionsHandler) matrix(w http.ResponseWriter, r *http.Request) {
	out := make(map[string][]Capability, len(Roles()))
	for _, role := range Roles() {
		out[role.String()] = Capabilities(role)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": out})
}
