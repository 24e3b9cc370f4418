package rbac

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
)

// PrincipalFunc extracts the authenticated principal from a request.
type PrincipalFunc func(r *http.Request) (Principal, bool)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Principal PrincipalFunc
	Logger    *slog.Logger
	denied    *prometheus.CounterVec
}

// NewMiddleware builds a Middleware and registers its denial counter on reg when given.
func NewMiddleware(principal PrincipalFunc, logger *slog.Logger, reg prometheus.Registerer) Middleware {
	m := Middleware{Principal: principal, Logger: logger}
	if reg != nil {
		m.denied = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_authz_denied_total",
			Help: "Requests rejected for a missing capability.",
		}, []string{"capability"})
		reg.MustRegister(m.denied)
	}
	return m
}

// Require guards API routes: 401 without a principal, 403 unless every capability is held.
func (m Middleware) Require(caps ...Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := m.principal(r)
			if !ok {
				httpx.Error(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if missing, ok := m.firstMissing(p, caps); !ok {
				m.deny(r, p, missing)
				httpx.Error(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny guards API routes needing at least one of caps.
func (m Middleware) RequireAny(caps ...Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := m.principal(r)
			if !ok {
				httpx.Error(w, http.StatusUnauthorized, "authentication required")
				return
			}
			for _, c := range caps {
				if HasPermission(p.GetRole(), c) {
					next.ServeHTTP(w, r)
					return
				}
			}
			var first Capability
			if len(caps) > 0 {
				first = caps[0]
			}
			m.deny(r, p, first)
			httpx.Error(w, http.StatusForbidden, "insufficient permissions")
		})
	}
}

// RequirePage guards rendered pages: absent or unauthorised principals are redirected to loginPath.
func (m Middleware) RequirePage(capability Capability, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := m.principal(r)
			if !ok {
				http.Redirect(w, r, loginPath+"?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
				return
			}
			if !HasPermission(p.GetRole(), capability) {
				m.deny(r, p, capability)
				http.Redirect(w, r, loginPath+"?denied=1", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole guards routes for a single role, used for customer-only endpoints.
func (m Middleware) RequireRole(role Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := m.principal(r)
			if !ok {
				httpx.Error(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if p.GetRole() != role {
				httpx.Error(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) principal(r *http.Request) (Principal, bool) {
	if m.Principal == nil {
		return nil, false
	}
	p, ok := m.Principal(r)
	if !ok || p == nil || !p.GetRole().Valid() {
		return nil, false
	}
	return p, true
}

func (m Middleware) firstMissing(p Principal, caps []Capability) (Capability, bool) {
	for _, c := range caps {
		if !HasPermission(p.GetRole(), c) {
			return c, false
		}
	}
	return capInvalid, true
}

func (m Middleware) deny(r *http.Request, p Principal, c Capability) {
	if m.denied != nil {
		m.denied.WithLabelValues(c.String()).Inc()
	}
	if m.Logger != nil {
		m.Logger.Warn("permission denied",
			slog.Int64("principal", p.GetID()),
			slog.String("role", p.GetRole().String()),
			slog.String("capability", c.String()),
			slog.String("path", r.URL.Path))
	}
}
