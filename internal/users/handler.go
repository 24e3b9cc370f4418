package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/rbac"
	"github.com/odyssey-commerce/storefront/internal/shared"
)

// Handler manages employee and customer administration endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountEmployeeRoutes registers /api/admin/employees.
func (h *Handler) MountEmployeeRoutes(r chi.Router) {
	r.With(h.rbac.Require(rbac.CapEmployeesView)).Get("/", h.listEmployees)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.CapEmployeesEdit))
		r.Post("/", h.createEmployee)
		r.Patch("/{id}/role", h.changeRole)
	})
}

// MountCustomerRoutes registers /api/admin/customers.
func (h *Handler) MountCustomerRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.CapCustomersView))
		r.Get("/", h.listCustomers)
		r.Get("/{id}", h.showCustomer)
	})
	r.With(h.rbac.Require(rbac.CapCustomersEdit)).Patch("/{id}", h.patchCustomer)
}

func actor(r *http.Request) Actor {
	id := shared.IdentityFromContext(r.Context(), shared.AudienceAdmin)
	return Actor{ID: id.ID, Role: id.Role}
}

func (h *Handler) listEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.service.ListEmployees(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": employees})
}

func (h *Handler) createEmployee(w http.ResponseWriter, r *http.Request) {
	var in CreateEmployeeInput
	if err := httpx.Bind(w, r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	e, err := h.service.CreateEmployee(r.Context(), actor(r), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, e)
}

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var in RoleInput
	if err := httpx.Bind(w, r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	e, err := h.service.ChangeRole(r.Context(), actor(r), id, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.ListCustomers(r.Context(), r.URL.Query().Get("search"), shared.PageFromQuery(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) showCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	c, err := h.service.GetCustomer(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) patchCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var in CustomerPatch
	if err := httpx.Bind(w, r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	c, err := h.service.PatchCustomer(r.Context(), actor(r).ID, id, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}
