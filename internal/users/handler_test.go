package users

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/odyssey-commerce/storefront/internal/rbac"
	"github.com/odyssey-commerce/storefront/internal/shared"
)

func TestEmployeeRoutesNeedCapabilities(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, newTestService(newStubRepo()), rbac.NewMiddleware(shared.PrincipalFor(shared.AudienceAdmin), logger, nil))
	r := chi.NewRouter()
	r.Route("/api/admin/employees", h.MountEmployeeRoutes)
	r.Route("/api/admin/customers", h.MountCustomerRoutes)

	do := func(method, path, body string, id int64, role rbac.Role) int {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req = req.WithContext(shared.ContextWithIdentity(req.Context(), &shared.Identity{Audience: shared.AudienceAdmin, ID: id, Role: role}))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/api/admin/employees", "", 2, rbac.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, do(http.MethodGet, "/api/admin/employees", "", 3, rbac.RoleEditor))
	assert.Equal(t, http.StatusForbidden, do(http.MethodPatch, "/api/admin/employees/3/role", `{"role":"SUPPORT"}`, 2, rbac.RoleAdmin))
	assert.Equal(t, http.StatusOK, do(http.MethodPatch, "/api/admin/employees/3/role", `{"role":"SUPPORT"}`, 1, rbac.RoleSuperAdmin))
	assert.Equal(t, http.StatusForbidden, do(http.MethodPatch, "/api/admin/employees/1/role", `{"role":"ADMIN"}`, 1, rbac.RoleSuperAdmin))

	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/api/admin/customers/7", "", 4, rbac.RoleSupport))
	assert.Equal(t, http.StatusForbidden, do(http.MethodPatch, "/api/admin/customers/7", `{"isActive":false}`, 4, rbac.RoleSupport))
	assert.Equal(t, http.StatusOK, do(http.MethodPatch, "/api/admin/customers/7", `{"isActive":false}`, 2, rbac.RoleAdmin))
}
