package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/rbac"
	"github.com/odyssey-commerce/storefront/internal/shared"
	"github.com/odyssey-commerce/storefront/internal/view"
)

// AdminLoginPath is where unauthenticated back-office page requests are sent.
const AdminLoginPath = "/admin/login"

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	templates  *view.Engine
	sessions   *shared.SessionManager
	csrf       *shared.CSRFManager
	customers  rbac.Middleware
	admins     rbac.Middleware
	loginLimit int
}

// NewHandler constructs a Handler instance. loginLimit caps login attempts per IP per minute;
// zero disables the limiter.
func NewHandler(
	logger *slog.Logger,
	service *Service,
	templates *view.Engine,
	sessions *shared.SessionManager,
	csrf *shared.CSRFManager,
	customers rbac.Middleware,
	admins rbac.Middleware,
	loginLimit int,
) *Handler {
	return &Handler{
		logger:     logger,
		service:    service,
		templates:  templates,
		sessions:   sessions,
		csrf:       csrf,
		customers:  customers,
		admins:     admins,
		loginLimit: loginLimit,
	}
}

func (h *Handler) limited(r chi.Router) chi.Router {
	if h.loginLimit <= 0 {
		return r
	}
	return r.With(httprate.LimitByIP(h.loginLimit, time.Minute))
}

// MountCustomerRoutes registers /api/auth routes.
func (h *Handler) MountCustomerRoutes(r chi.Router) {
	h.limited(r).Post("/register", h.register)
	h.limited(r).Post("/login", h.customerLogin)
	r.Post("/logout", h.customerLogout)
	r.With(h.customers.Require()).Get("/me", h.customerMe)
}

// MountAdminRoutes registers /api/admin/auth routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	h.limited(r).Post("/login", h.adminLogin)
	r.Post("/logout", h.adminLogout)
	r.With(h.admins.Require()).Get("/me", h.adminMe)
}

// MountPages registers the back-office login pages.
func (h *Handler) MountPages(r chi.Router) {
	r.Get("/login", h.showLogin)
	h.limited(r).Post("/login", h.handleLoginForm)
	r.Post("/logout", h.handleLogoutForm)
}

type sessionResponse struct {
	Account      *Account          `json:"user"`
	CSRFToken    string            `json:"csrfToken"`
	ExpiresAt    time.Time         `json:"expiresAt"`
	Capabilities []rbac.Capability `json:"capabilities,omitempty"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := httpx.Bind(w, r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	acc, err := h.service.Register(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	identity, err := h.sessions.Issue(w, shared.AudienceCustomer, acc.ID, rbac.RoleCustomer, false)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sessionResponse{Account: acc, CSRFToken: h.csrf.Token(identity), ExpiresAt: identity.ExpiresAt})
}

func (h *Handler) customerLogin(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := httpx.Bind(w, r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	acc, err := h.service.AuthenticateCustomer(r.Context(), in.Email, in.Password)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	identity, err := h.sessions.Issue(w, shared.AudienceCustomer, acc.ID, rbac.RoleCustomer, in.RememberMe)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sessionResponse{Account: acc, CSRFToken: h.csrf.Token(identity), ExpiresAt: identity.ExpiresAt})
}

func (h *Handler) customerLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w, shared.AudienceCustomer)
	httpx.Success(w, nil)
}

func (h *Handler) customerMe(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context(), shared.AudienceCustomer)
	acc, err := h.service.Customer(r.Context(), identity.ID)
	if err != nil {
		if errors.Is(err, httpx.ErrUnauthorized) {
			h.sessions.Clear(w, shared.AudienceCustomer)
		}
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sessionResponse{Account: acc, CSRFToken: h.csrf.Token(identity), ExpiresAt: identity.ExpiresAt})
}

func (h *Handler) adminLogin(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := httpx.Bind(w, r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	acc, identity, err := h.startAdminSession(w, r, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sessionResponse{
		Account:      acc,
		CSRFToken:    h.csrf.Token(identity),
		ExpiresAt:    identity.ExpiresAt,
		Capabilities: rbac.Capabilities(acc.Role),
	})
}

func (h *Handler) startAdminSession(w http.ResponseWriter, r *http.Request, in LoginInput) (*Account, *shared.Identity, error) {
	acc, err := h.service.AuthenticateAdmin(r.Context(), in.Email, in.Password)
	if err != nil {
		return nil, nil, err
	}
	identity, err := h.sessions.Issue(w, shared.AudienceAdmin, acc.ID, acc.Role, in.RememberMe)
	if err != nil {
		return nil, nil, err
	}
	if h.logger != nil {
		h.logger.Info("admin login", slog.Int64("admin_id", acc.ID), slog.String("role", acc.Role.String()))
	}
	return acc, identity, nil
}

func (h *Handler) adminLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w, shared.AudienceAdmin)
	httpx.Success(w, nil)
}

func (h *Handler) adminMe(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context(), shared.AudienceAdmin)
	acc, err := h.service.Admin(r.Context(), identity.ID)
	if err != nil {
		if errors.Is(err, httpx.ErrUnauthorized) {
			h.sessions.Clear(w, shared.AudienceAdmin)
		}
		httpx.RespondError(w, h.logger, err)
		return
	}
	// The session carries the role it was issued with; report the one currently stored.
	httpx.JSON(w, http.StatusOK, sessionResponse{
		Account:      acc,
		CSRFToken:    h.csrf.Token(identity),
		ExpiresAt:    identity.ExpiresAt,
		Capabilities: rbac.Capabilities(acc.Role),
	})
}

type loginPageData struct {
	Email string
	Next  string
	Error string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if shared.IdentityFromContext(r.Context(), shared.AudienceAdmin) != nil && r.URL.Query().Get("denied") == "" {
		http.Redirect(w, r, safeNext(r.URL.Query().Get("next")), http.StatusSeeOther)
		return
	}
	data := loginPageData{Next: r.URL.Query().Get("next")}
	notice := ""
	if r.URL.Query().Get("denied") != "" {
		notice = "Your role does not grant access to that page."
	}
	h.renderLogin(w, r, http.StatusOK, notice, data)
}

func (h *Handler) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	in := LoginInput{
		Email:      r.PostFormValue("email"),
		Password:   r.PostFormValue("password"),
		RememberMe: r.PostFormValue("remember") != "",
	}
	data := loginPageData{Email: in.Email, Next: r.PostFormValue("next")}
	if err := httpx.Validate(in); err != nil {
		data.Error = "Enter a valid email and password."
		h.renderLogin(w, r, http.StatusBadRequest, "", data)
		return
	}
	if _, _, err := h.startAdminSession(w, r, in); err != nil {
		status := httpx.StatusOf(err)
		data.Error = "Invalid email or password."
		if status == http.StatusInternalServerError {
			h.logger.Error("admin login", slog.Any("error", err))
			data.Error = httpx.GenericInternalMessage
		}
		h.renderLogin(w, r, status, "", data)
		return
	}
	http.Redirect(w, r, safeNext(data.Next), http.StatusSeeOther)
}

func (h *Handler) handleLogoutForm(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w, shared.AudienceAdmin)
	http.Redirect(w, r, AdminLoginPath, http.StatusSeeOther)
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, notice string, data loginPageData) {
	identity := shared.IdentityFromContext(r.Context(), shared.AudienceAdmin)
	viewData := view.TemplateData{
		Title:       "Sign in",
		CSRFToken:   h.csrf.Token(identity),
		Notice:      notice,
		CurrentPath: r.URL.Path,
		Identity:    identity,
		Data:        data,
	}
	if err := h.templates.Render(w, status, "pages/admin_login.html", viewData); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
	}
}

// safeNext only follows same-site back-office paths.
func safeNext(next string) string {
	u, err := url.Parse(next)
	if err != nil || next == "" || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/admin") || strings.HasPrefix(next, "//") {
		return "/admin"
	}
	if u.Path == AdminLoginPath {
		return "/admin"
	}
	return u.RequestURI()
}
