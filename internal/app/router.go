package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-commerce/storefront/internal/addresses"
	"github.com/odyssey-commerce/storefront/internal/auth"
	"github.com/odyssey-commerce/storefront/internal/banners"
	"github.com/odyssey-commerce/storefront/internal/cart"
	"github.com/odyssey-commerce/storefront/internal/catalog"
	"github.com/odyssey-commerce/storefront/internal/dashboard"
	"github.com/odyssey-commerce/storefront/internal/messages"
	"github.com/odyssey-commerce/storefront/internal/observability"
	"github.com/odyssey-commerce/storefront/internal/orders"
	"github.com/odyssey-commerce/storefront/internal/payments"
	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/promotions"
	"github.com/odyssey-commerce/storefront/internal/rbac"
	"github.com/odyssey-commerce/storefront/internal/reviews"
	"github.com/odyssey-commerce/storefront/internal/settings"
	"github.com/odyssey-commerce/storefront/internal/shared"
	"github.com/odyssey-commerce/storefront/internal/users"
	"github.com/odyssey-commerce/storefront/internal/wishlist"
	"github.com/odyssey-commerce/storefront/jobs"
	"github.com/odyssey-commerce/storefront/web"
)

// RouterParams groups dependencies for building the HTTP router. Nil handlers are skipped.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics

	AuthHandler        *auth.Handler
	CatalogHandler     *catalog.Handler
	CartHandler        *cart.Handler
	OrdersHandler      *orders.Handler
	PromotionsHandler  *promotions.Handler
	PaymentsHandler    *payments.Handler
	WebhookHandler     *payments.WebhookHandler
	AddressesHandler   *addresses.Handler
	WishlistHandler    *wishlist.Handler
	ReviewsHandler     *reviews.Handler
	MessagesHandler    *messages.Handler
	BannersHandler     *banners.Handler
	UsersHandler       *users.Handler
	SettingsHandler    *settings.Handler
	DashboardHandler   *dashboard.Handler
	JobHandler         *jobs.Handler
	PermissionsHandler *rbac.PermissionsHandler
}

// NewRouter constructs the chi.Router with storefront defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Logger)
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Error(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/admin", func(r chi.Router) {
		if params.DashboardHandler != nil {
			params.DashboardHandler.MountPage(r)
		}
		if params.AuthHandler != nil {
			params.AuthHandler.MountPages(r)
		}
	})

	r.Route("/api", func(r chi.Router) {
		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountCustomerRoutes)
		}
		r.Route("/products", func(r chi.Router) {
			if params.CatalogHandler != nil {
				params.CatalogHandler.MountPublicRoutes(r)
			}
			if params.ReviewsHandler != nil {
				params.ReviewsHandler.MountProductRoutes(r)
			}
		})
		if params.CartHandler != nil {
			r.Route("/cart", params.CartHandler.MountRoutes)
		}
		if params.OrdersHandler != nil {
			r.Route("/orders", params.OrdersHandler.MountCustomerRoutes)
		}
		if params.PaymentsHandler != nil {
			r.Route("/payment-methods", params.PaymentsHandler.MountRoutes)
		}
		if params.WebhookHandler != nil {
			r.Method(http.MethodPost, "/payments/webhook", params.WebhookHandler)
		}
		if params.AddressesHandler != nil {
			r.Route("/addresses", params.AddressesHandler.MountRoutes)
		}
		if params.WishlistHandler != nil {
			r.Route("/wishlist", params.WishlistHandler.MountRoutes)
		}
		if params.MessagesHandler != nil {
			r.Route("/messages", params.MessagesHandler.MountPublicRoutes)
		}
		if params.BannersHandler != nil {
			r.Route("/banners", params.BannersHandler.MountPublicRoutes)
		}
		if params.SettingsHandler != nil {
			r.Route("/settings", params.SettingsHandler.MountPublicRoutes)
		}

		r.Route("/admin", func(r chi.Router) {
			if params.AuthHandler != nil {
				r.Route("/auth", params.AuthHandler.MountAdminRoutes)
			}
			if params.DashboardHandler != nil {
				r.Route("/dashboard", params.DashboardHandler.MountAPI)
			}
			if params.CatalogHandler != nil {
				r.Route("/products", params.CatalogHandler.MountAdminRoutes)
			}
			if params.OrdersHandler != nil {
				r.Route("/orders", params.OrdersHandler.MountAdminRoutes)
			}
			if params.PromotionsHandler != nil {
				r.Route("/promotions", params.PromotionsHandler.MountAdminRoutes)
			}
			if params.ReviewsHandler != nil {
				r.Route("/reviews", params.ReviewsHandler.MountAdminRoutes)
			}
			if params.MessagesHandler != nil {
				r.Route("/messages", params.MessagesHandler.MountAdminRoutes)
			}
			if params.BannersHandler != nil {
				r.Route("/banners", params.BannersHandler.MountAdminRoutes)
			}
			if params.UsersHandler != nil {
				r.Route("/customers", params.UsersHandler.MountCustomerRoutes)
				r.Route("/employees", params.UsersHandler.MountEmployeeRoutes)
			}
			if params.SettingsHandler != nil {
				r.Route("/settings", params.SettingsHandler.MountAdminRoutes)
			}
			if params.JobHandler != nil {
				r.Route("/jobs", params.JobHandler.MountRoutes)
			}
			if params.PermissionsHandler != nil {
				r.Route("/permissions", params.PermissionsHandler.MountRoutes)
			}
		})
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler caches embedded assets in the browser for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
