package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/odyssey-commerce/storefront/internal/rbac"
)

func TestCSRFTokenBoundToSession(t *testing.T) {
	m := NewCSRFManager("csrf-secret")
	first := &Identity{Audience: AudienceAdmin, ID: 3, Role: rbac.RoleAdmin, TokenID: "a"}
	second := &Identity{Audience: AudienceAdmin, ID: 3, Role: rbac.RoleAdmin, TokenID: "b"}

	token := m.Token(first)
	assert.NotEmpty(t, token)
	assert.Equal(t, token, m.Token(first))
	assert.NoError(t, m.VerifyToken(first, token))
	assert.ErrorIs(t, m.VerifyToken(second, token), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, m.VerifyToken(first, ""), ErrCSRFTokenMissing)
	assert.ErrorIs(t, m.VerifyToken(nil, token), ErrCSRFTokenMissing)
	assert.Empty(t, m.Token(nil))
}
