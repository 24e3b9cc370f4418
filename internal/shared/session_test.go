package shared

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-commerce/storefront/internal/rbac"
)

const testSecret = "test-session-secret-0123456789abcdef"

func issueCookie(t *testing.T, sm *SessionManager, aud Audience, id int64, role rbac.Role, remember bool) (*http.Cookie, *Identity) {
	t.Helper()
	rec := httptest.NewRecorder()
	identity, err := sm.Issue(rec, aud, id, role, remember)
	require.NoError(t, err)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0], identity
}

func requestWith(cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func TestSessionIssueAndVerify(t *testing.T) {
	sm := NewSessionManager(testSecret, true)
	cookie, issued := issueCookie(t, sm, AudienceAdmin, 42, rbac.RoleEditor, false)

	assert.Equal(t, "admin_session", cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, int(SessionTTL.Seconds()), cookie.MaxAge)

	identity, err := sm.Verify(requestWith(cookie), AudienceAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(42), identity.ID)
	assert.Equal(t, rbac.RoleEditor, identity.Role)
	assert.Equal(t, issued.TokenID, identity.TokenID)
	assert.Equal(t, issued.ExpiresAt.Unix(), identity.ExpiresAt.Unix())
}

func TestSessionRememberExtendsLifetime(t *testing.T) {
	sm := NewSessionManager(testSecret, false)
	short, shortID := issueCookie(t, sm, AudienceCustomer, 7, rbac.RoleCustomer, false)
	long, longID := issueCookie(t, sm, AudienceCustomer, 7, rbac.RoleCustomer, true)

	assert.Equal(t, "shop_session", short.Name)
	assert.Equal(t, http.SameSiteLaxMode, short.SameSite)
	assert.Equal(t, SessionTTL, shortID.ExpiresAt.Sub(shortID.IssuedAt))
	assert.Equal(t, RememberTTL, longID.ExpiresAt.Sub(longID.IssuedAt))
	assert.Equal(t, int(RememberTTL.Seconds()), long.MaxAge)
}

func TestSessionVerifyRejects(t *testing.T) {
	sm := NewSessionManager(testSecret, false)
	adminCookie, _ := issueCookie(t, sm, AudienceAdmin, 1, rbac.RoleAdmin, false)
	customerCookie, _ := issueCookie(t, sm, AudienceCustomer, 2, rbac.RoleCustomer, false)

	t.Run("absent", func(t *testing.T) {
		_, err := sm.Verify(requestWith(nil), AudienceAdmin)
		assert.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("tampered", func(t *testing.T) {
		bad := *adminCookie
		bad.Value = adminCookie.Value[:len(adminCookie.Value)-2] + "xx"
		_, err := sm.Verify(requestWith(&bad), AudienceAdmin)
		assert.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("other secret", func(t *testing.T) {
		other := NewSessionManager("a-completely-different-secret-value", false)
		_, err := other.Verify(requestWith(adminCookie), AudienceAdmin)
		assert.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("customer token presented as admin", func(t *testing.T) {
		forged := *customerCookie
		forged.Name = sm.CookieName(AudienceAdmin)
		_, err := sm.Verify(requestWith(&forged), AudienceAdmin)
		assert.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("admin token presented as customer", func(t *testing.T) {
		forged := *adminCookie
		forged.Name = sm.CookieName(AudienceCustomer)
		_, err := sm.Verify(requestWith(&forged), AudienceCustomer)
		assert.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("expired", func(t *testing.T) {
		later := NewSessionManager(testSecret, false)
		later.now = func() time.Time { return time.Now().Add(SessionTTL + time.Minute) }
		_, err := later.Verify(requestWith(adminCookie), AudienceAdmin)
		assert.ErrorIs(t, err, ErrInvalidSession)
	})
}

func TestSessionIssueRejectsRoleOutsideAudience(t *testing.T) {
	sm := NewSessionManager(testSecret, false)
	_, err := sm.Issue(httptest.NewRecorder(), AudienceAdmin, 1, rbac.RoleCustomer, false)
	assert.Error(t, err)
	_, err = sm.Issue(httptest.NewRecorder(), AudienceCustomer, 1, rbac.RoleSuperAdmin, false)
	assert.Error(t, err)
}

func TestAuthenticateMiddleware(t *testing.T) {
	sm := NewSessionManager(testSecret, false)
	cookie, _ := issueCookie(t, sm, AudienceCustomer, 9, rbac.RoleCustomer, false)

	var seen, seenAdmin *Identity
	handler := sm.Authenticate(AudienceCustomer, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = IdentityFromContext(r.Context(), AudienceCustomer)
		seenAdmin = IdentityFromContext(r.Context(), AudienceAdmin)
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWith(cookie))
	require.NotNil(t, seen)
	assert.Equal(t, int64(9), seen.ID)
	assert.Nil(t, seenAdmin)

	seen = nil
	bad := *cookie
	bad.Value = "garbage"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWith(&bad))
	assert.Nil(t, seen)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)
}
