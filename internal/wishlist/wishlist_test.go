package wishlist

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/rbac"
	"github.com/odyssey-commerce/storefront/internal/shared"
)

type stubRepo struct {
	products map[int64]bool
	saved    map[[2]int64]bool
}

func (s *stubRepo) List(_ context.Context, customerID int64) ([]Item, error) {
	out := []Item{}
	for k := range s.saved {
		if k[0] == customerID {
			out = append(out, Item{ProductID: k[1]})
		}
	}
	return out, nil
}

func (s *stubRepo) Toggle(_ context.Context, customerID, productID int64) (bool, error) {
	if !s.products[productID] {
		return false, fmt.Errorf("%w: product", httpx.ErrNotFound)
	}
	k := [2]int64{customerID, productID}
	if s.saved[k] {
		delete(s.saved, k)
		return false, nil
	}
	s.saved[k] = true
	return true, nil
}

func newRouter(repo Repository) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, repo, rbac.NewMiddleware(shared.PrincipalFor(shared.AudienceCustomer), logger, nil))
	r := chi.NewRouter()
	r.Route("/api/wishlist", h.MountRoutes)
	return r
}

func toggle(router http.Handler, body string, withSession bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/wishlist/toggle", strings.NewReader(body))
	if withSession {
		req = req.WithContext(shared.ContextWithIdentity(req.Context(),
			&shared.Identity{Audience: shared.AudienceCustomer, ID: 7, Role: rbac.RoleCustomer}))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestToggleAddsThenRemoves(t *testing.T) {
	repo := &stubRepo{products: map[int64]bool{5: true}, saved: map[[2]int64]bool{}}
	router := newRouter(repo)

	rec := toggle(router, `{"productId":5}`, true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"added":true}`, rec.Body.String())

	rec = toggle(router, `{"productId":5}`, true)
	assert.JSONEq(t, `{"added":false}`, rec.Body.String())
	assert.Empty(t, repo.saved)
}

func TestToggleErrors(t *testing.T) {
	repo := &stubRepo{products: map[int64]bool{5: true}, saved: map[[2]int64]bool{}}
	router := newRouter(repo)

	assert.Equal(t, http.StatusUnauthorized, toggle(router, `{"productId":5}`, false).Code)

	rec := toggle(router, `{"productId":404}`, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"resource not found: product"}`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, toggle(router, `{"productId":0}`, true).Code)
	assert.Equal(t, http.StatusBadRequest, toggle(router, `{"productId":5,"extra":1}`, true).Code)
	assert.Empty(t, repo.saved)
}
