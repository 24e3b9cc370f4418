package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-commerce/storefront/internal/auth"
	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/rbac"
	"github.com/odyssey-commerce/storefront/internal/shared"
	_ "github.com/odyssey-commerce/storefront/internal/testing/guard"
	"github.com/odyssey-commerce/storefront/internal/view"
)

type stubRepo struct {
	customers map[string]*auth.Account
	admins    map[string]*auth.Account
	nextID    int64
}

func newStubRepo(t *testing.T) *stubRepo {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	return &stubRepo{
		customers: map[string]*auth.Account{
			"shopper@test.local": {ID: 10, Email: "shopper@test.local", Name: "Shopper", PasswordHash: string(hash), Role: rbac.RoleCustomer, IsActive: true},
		},
		admins: map[string]*auth.Account{
			"editor@test.local":   {ID: 1, Email: "editor@test.local", Name: "Ed", PasswordHash: string(hash), Role: rbac.RoleEditor, IsActive: true},
			"disabled@test.local": {ID: 2, Email: "disabled@test.local", Name: "Di", PasswordHash: string(hash), Role: rbac.RoleAdmin, IsActive: false},
		},
		nextID: 100,
	}
}

func (s *stubRepo) FindCustomerByEmail(ctx context.Context, email string) (*auth.Account, error) {
	if acc, ok := s.customers[email]; ok {
		return acc, nil
	}
	return nil, httpx.ErrNotFound
}

func (s *stubRepo) FindCustomerByID(ctx context.Context, id int64) (*auth.Account, error) {
	for _, acc := range s.customers {
		if acc.ID == id {
			return acc, nil
		}
	}
	return nil, httpx.ErrNotFound
}

func (s *stubRepo) CreateCustomer(ctx context.Context, name, email, hash string) (*auth.Account, error) {
	if _, ok := s.customers[email]; ok {
		return nil, httpx.ErrDuplicate
	}
	s.nextID++
	acc := &auth.Account{ID: s.nextID, Email: email, Name: name, PasswordHash: hash, Role: rbac.RoleCustomer, IsActive: true}
	s.customers[email] = acc
	return acc, nil
}

func (s *stubRepo) FindAdminByEmail(ctx context.Context, email string) (*auth.Account, error) {
	if acc, ok := s.admins[email]; ok {
		return acc, nil
	}
	return nil, httpx.ErrNotFound
}

func (s *stubRepo) FindAdminByID(ctx context.Context, id int64) (*auth.Account, error) {
	for _, acc := range s.admins {
		if acc.ID == id {
			return acc, nil
		}
	}
	return nil, httpx.ErrNotFound
}

type fixture struct {
	router   http.Handler
	sessions *shared.SessionManager
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := shared.NewSessionManager("session-secret-for-tests-0123456789", false)
	csrf := shared.NewCSRFManager("csrf-secret")
	templates, err := view.NewEngine()
	require.NoError(t, err)
	customers := rbac.NewMiddleware(shared.PrincipalFor(shared.AudienceCustomer), logger, nil)
	admins := rbac.NewMiddleware(shared.PrincipalFor(shared.AudienceAdmin), logger, nil)
	h := auth.NewHandler(logger, auth.NewService(newStubRepo(t)), templates, sessions, csrf, customers, admins, 0)

	r := chi.NewRouter()
	r.Use(sessions.Authenticate(shared.AudienceCustomer, logger), sessions.Authenticate(shared.AudienceAdmin, logger))
	r.Route("/api/auth", h.MountCustomerRoutes)
	r.Route("/api/admin/auth", h.MountAdminRoutes)
	r.Route("/admin", h.MountPages)
	return fixture{router: r, sessions: sessions}
}

func (f fixture) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestCustomerRegisterAndMe(t *testing.T) {
	f := newFixture(t)

	rec := f.do(jsonRequest(http.MethodPost, "/api/auth/register", `{"name":"New","email":"new@test.local","password":"longenough"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cookie := cookieNamed(rec, "shop_session")
	require.NotNil(t, cookie)
	assert.Equal(t, int(shared.SessionTTL.Seconds()), cookie.MaxAge)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["csrfToken"])
	assert.Equal(t, "new@test.local", body["user"].(map[string]any)["email"])

	rec = f.do(jsonRequest(http.MethodPost, "/api/auth/register", `{"name":"New","email":"new@test.local","password":"longenough"}`))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCustomerRegisterValidation(t *testing.T) {
	f := newFixture(t)
	rec := f.do(jsonRequest(http.MethodPost, "/api/auth/register", `{"name":"New","email":"not-an-email","password":"short"}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body httpx.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Fields, "email")
	assert.Contains(t, body.Fields, "password")
}

func TestCustomerLogin(t *testing.T) {
	f := newFixture(t)

	rec := f.do(jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"shopper@test.local","password":"wrong-pass"}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, cookieNamed(rec, "shop_session"))

	rec = f.do(jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"nobody@test.local","password":"whatever1"}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"shopper@test.local","password":"correct-horse","rememberMe":true}`))
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := cookieNamed(rec, "shop_session")
	require.NotNil(t, cookie)
	assert.Equal(t, int(shared.RememberTTL.Seconds()), cookie.MaxAge)
}

func TestMeWithoutSession(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusUnauthorized, f.do(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(httptest.NewRequest(http.MethodGet, "/api/admin/auth/me", nil)).Code)
}

func TestCustomerCookieIsNotAnAdminSession(t *testing.T) {
	f := newFixture(t)
	rec := f.do(jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"shopper@test.local","password":"correct-horse"}`))
	cookie := cookieNamed(rec, "shop_session")
	require.NotNil(t, cookie)
	forged := *cookie
	forged.Name = "admin_session"
	assert.Equal(t, http.StatusUnauthorized, f.do(httptest.NewRequest(http.MethodGet, "/api/admin/auth/me", nil), &forged).Code)
}

func TestAdminLogin(t *testing.T) {
	f := newFixture(t)

	rec := f.do(jsonRequest(http.MethodPost, "/api/admin/auth/login", `{"email":"disabled@test.local","password":"correct-horse"}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(jsonRequest(http.MethodPost, "/api/admin/auth/login", `{"email":"editor@test.local","password":"correct-horse"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := cookieNamed(rec, "admin_session")
	require.NotNil(t, cookie)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/admin/auth/me", nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"products.edit"`)
	assert.NotContains(t, rec.Body.String(), `"orders.view"`)
}

func TestAdminLoginPage(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/admin/login?next=/admin/orders", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<form")

	form := url.Values{"email": {"editor@test.local"}, "password": {"wrong-password"}, "next": {"/admin"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = f.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid email or password.")

	form.Set("password", "correct-horse")
	form.Set("next", "https://evil.example/admin")
	req = httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = f.do(req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))
	assert.NotNil(t, cookieNamed(rec, "admin_session"))
}

func TestLogoutClearsCookie(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := cookieNamed(rec, "shop_session")
	require.NotNil(t, cookie)
	assert.True(t, cookie.Expires.Before(time.Now()))
}
