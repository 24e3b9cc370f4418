package messages

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
	"github.com/stretchr/testify/require"

	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/rbac"
	"github.com/odyssey-commerce/storefront/internal/shared"
)

type memRepo struct {
	rows []Message
}

func (m *memRepo) Create(_ context.Context, msg Message) (*Message, error) {
	msg.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, msg)
	return &msg, nil
}

func (m *memRepo) List(_ context.Context, unreadOnly bool, _, _ int) ([]Message, int, error) {
	out := []Message{}
	for _, msg := range m.rows {
		if unreadOnly && msg.IsRead {
			continue
		}
		out = append(out, msg)
	}
	return out, len(out), nil
}

func (m *memRepo) CountUnread(ctx context.Context) (int, error) {
	_, n, err := m.List(ctx, true, 0, 0)
	return n, err
}

func (m *memRepo) MarkRead(_ context.Context, id int64) (*Message, error) {
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows[i].IsRead = true
			msg := m.rows[i]
			return &msg, nil
		}
	}
	return nil, fmt.Errorf("%w: message", httpx.ErrNotFound)
}

func (m *memRepo) Delete(_ context.Context, id int64) error {
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: message", httpx.ErrNotFound)
}

func newRouter(repo Repository) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, repo, rbac.NewMiddleware(shared.PrincipalFor(shared.AudienceAdmin), logger, nil))
	r := chi.NewRouter()
	r.Route("/api/messages", h.MountPublicRoutes)
	r.Route("/api/admin/messages", h.MountAdminRoutes)
	return r
}

func send(router http.Handler, method, path, body string, who *shared.Identity) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if who != nil {
		req = req.WithContext(shared.ContextWithIdentity(req.Context(), who))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

const contact = `{"name":"Ada","email":"Ada@Example.com","subject":"Order","body":"Where is it?"}`

func TestSubmitAttachesCustomer(t *testing.T) {
	repo := &memRepo{}
	router := newRouter(repo)

	rec := send(router, http.MethodPost, "/api/messages", contact, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Nil(t, repo.rows[0].CustomerID)
	assert.Equal(t, "ada@example.com", repo.rows[0].Email)

	who := &shared.Identity{Audience: shared.AudienceCustomer, ID: 7, Role: rbac.RoleCustomer}
	rec = send(router, http.MethodPost, "/api/messages", contact, who)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, repo.rows[1].CustomerID)
	assert.Equal(t, int64(7), *repo.rows[1].CustomerID)

	rec = send(router, http.MethodPost, "/api/messages", `{"name":"Ada","email":"nope","subject":"x","body":"y"}`, nil)
	assert.JSONEq(t, `{"error":"validation failed","fields":{"email":"email"}}`, rec.Body.String())
}

func TestInbox(t *testing.T) {
	repo := &memRepo{}
	router := newRouter(repo)
	send(router, http.MethodPost, "/api/messages", contact, nil)
	send(router, http.MethodPost, "/api/messages", contact, nil)

	editor := &shared.Identity{Audience: shared.AudienceAdmin, ID: 3, Role: rbac.RoleEditor}
	assert.Equal(t, http.StatusForbidden, send(router, http.MethodGet, "/api/admin/messages", "", editor).Code)

	support := &shared.Identity{Audience: shared.AudienceAdmin, ID: 2, Role: rbac.RoleSupport}
	rec := send(router, http.MethodPatch, "/api/admin/messages/1/read", "", support)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = send(router, http.MethodGet, "/api/admin/messages?unread=true", "", support)
	assert.Contains(t, rec.Body.String(), `"unread":1`)
	assert.Contains(t, rec.Body.String(), `"total":1`)

	assert.Equal(t, http.StatusOK, send(router, http.MethodDelete, "/api/admin/messages/2", "", support).Code)
	assert.Equal(t, http.StatusNotFound, send(router, http.MethodDelete, "/api/admin/messages/2", "", support).Code)
}
