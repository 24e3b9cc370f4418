package shared

import (
	"context"
	"net/http"

	"github.com/odyssey-commerce/storefront/internal/rbac"
)

type identityContextKey struct {
	aud Audience
}

// ContextWithIdentity stores a verified identity in context under its audience.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	if identity == nil {
		return ctx
	}
	return context.WithValue(ctx, identityContextKey{aud: identity.Audience}, identity)
}

// IdentityFromContext extracts the identity of aud, or nil.
func IdentityFromContext(ctx context.Context, aud Audience) *Identity {
	identity, _ := ctx.Value(identityContextKey{aud: aud}).(*Identity)
	return identity
}

// PrincipalFor adapts the aud identity to the rbac principal lookup.
func PrincipalFor(aud Audience) rbac.PrincipalFunc {
	return func(r *http.Request) (rbac.Principal, bool) {
		identity := IdentityFromContext(r.Context(), aud)
		if identity == nil {
			return nil, false
		}
		return identity, true
	}
}
