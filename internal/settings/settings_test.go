package settings

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/rbac"
	"github.com/odyssey-commerce/storefront/internal/shared"
)

type memRepo struct {
	values map[string]string
	audits []shared.AuditLog
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	snapshot := make(map[string]string, len(m.values))
	for k, v := range m.values {
		snapshot[k] = v
	}
	if err := fn(ctx, m); err != nil {
		m.values = snapshot
		return err
	}
	return nil
}

func (m *memRepo) Load(context.Context) (map[string]string, error) {
	return m.values, nil
}

func (m *memRepo) Upsert(_ context.Context, key Key, value string) error {
	m.values[string(key)] = value
	return nil
}

func (m *memRepo) Audit(_ context.Context, log shared.AuditLog) error {
	m.audits = append(m.audits, log)
	return nil
}

func TestParse(t *testing.T) {
	v, err := Parse(map[string]any{"currency": "eur", "free_shipping_threshold": float64(7500)})
	require.NoError(t, err)
	assert.Equal(t, Values{KeyCurrency: "EUR", KeyFreeShippingThreshold: "7500"}, v)

	_, err = Parse(map[string]any{"theme": "dark", "currency": "EUR"})
	var fe *httpx.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, map[string]string{"theme": "unknown setting"}, fe.Fields)

	_, err = Parse(map[string]any{"free_shipping_threshold": 10.5, "support_email": "nope", "store_name": 3.0})
	require.ErrorAs(t, err, &fe)
	assert.Len(t, fe.Fields, 3)

	_, err = Parse(map[string]any{})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestSettingsRoutes(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := &memRepo{values: map[string]string{"store_name": "Odd Goods", "legacy_banner": "x"}}
	h := NewHandler(logger, NewService(repo), rbac.NewMiddleware(shared.PrincipalFor(shared.AudienceAdmin), logger, nil))
	r := chi.NewRouter()
	r.Route("/api/settings", h.MountPublicRoutes)
	r.Route("/api/admin/settings", h.MountAdminRoutes)

	do := func(method, path, body string, role rbac.Role) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if role.Valid() {
			req = req.WithContext(shared.ContextWithIdentity(req.Context(), &shared.Identity{Audience: shared.AudienceAdmin, ID: 1, Role: role}))
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodGet, "/api/settings", "", 0)
	assert.JSONEq(t, `{"store_name":"Odd Goods","support_email":"support@example.com","currency":"USD","free_shipping_threshold":5000}`, rec.Body.String())

	assert.Equal(t, http.StatusForbidden, do(http.MethodPut, "/api/admin/settings", `{"currency":"EUR"}`, rbac.RoleAdmin).Code)

	rec = do(http.MethodPut, "/api/admin/settings", `{"currency":"EUR","bogus":1}`, rbac.RoleSuperAdmin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Odd Goods", repo.values["store_name"])
	_, stored := repo.values["currency"]
	assert.False(t, stored)

	rec = do(http.MethodPut, "/api/admin/settings", `{"currency":"eur","free_shipping_threshold":0}`, rbac.RoleSuperAdmin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"currency":"EUR"`)
	assert.Contains(t, rec.Body.String(), `"free_shipping_threshold":0`)
	require.Len(t, repo.audits, 1)
	assert.Equal(t, []string{"currency", "free_shipping_threshold"}, repo.audits[0].Meta["keys"])
}
