package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-commerce/storefront/cmd/storefront/cli"
	"github.com/odyssey-commerce/storefront/internal/addresses"
	"github.com/odyssey-commerce/storefront/internal/app"
	"github.com/odyssey-commerce/storefront/internal/auth"
	"github.com/odyssey-commerce/storefront/internal/banners"
	"github.com/odyssey-commerce/storefront/internal/cart"
	"github.com/odyssey-commerce/storefront/internal/catalog"
	"github.com/odyssey-commerce/storefront/internal/dashboard"
	"github.com/odyssey-commerce/storefront/internal/messages"
	"github.com/odyssey-commerce/storefront/internal/observability"
	"github.com/odyssey-commerce/storefront/internal/orders"
	"github.com/odyssey-commerce/storefront/internal/payments"
	"github.com/odyssey-commerce/storefront/internal/platform/cache"
	"github.com/odyssey-commerce/storefront/internal/platform/db"
	"github.com/odyssey-commerce/storefront/internal/promotions"
	"github.com/odyssey-commerce/storefront/internal/rbac"
	"github.com/odyssey-commerce/storefront/internal/reviews"
	"github.com/odyssey-commerce/storefront/internal/settings"
	"github.com/odyssey-commerce/storefront/internal/shared"
	"github.com/odyssey-commerce/storefront/internal/users"
	"github.com/odyssey-commerce/storefront/internal/view"
	"github.com/odyssey-commerce/storefront/internal/wishlist"
	"github.com/odyssey-commerce/storefront/jobs"
)

const usage = `usage: storefront [command]

commands:
  serve                     run the HTTP server (default)
  migrate                   apply pending database migrations
  jobs trigger <task>       enqueue a background task (--json for machine output)
  jobs stats                print default queue depth (--json for machine output)
`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	args := os.Args[1:]
	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}
	switch command {
	case "serve":
		if err := serve(ctx, cfg, logger); err != nil {
			logger.Error("server", slog.Any("error", err))
			os.Exit(1)
		}
	case "migrate":
		if err := db.Migrate(cfg.PGDSN, logger); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			os.Exit(1)
		}
	case "jobs":
		os.Exit(runJobs(ctx, cfg, args))
	default:
		_, _ = fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func runJobs(ctx context.Context, cfg *app.Config, args []string) int {
	if len(args) == 0 {
		_, _ = fmt.Fprint(os.Stderr, usage)
		return 2
	}
	fs := flag.NewFlagSet("jobs "+args[0], flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "print JSON output")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	redisOpts := cfg.Redis().AsynqOpt()
	client := jobs.NewClient(redisOpts)
	defer func() { _ = client.Close() }()
	inspector := asynq.NewInspector(redisOpts)
	defer func() { _ = inspector.Close() }()
	jobsCLI := cli.NewJobsCLI(client, inspector)

	opts := cli.OutputOptions{JSONOutput: *jsonOut}
	switch args[0] {
	case "trigger":
		return jobsCLI.TriggerCommand(ctx, fs.Arg(0), opts)
	case "stats":
		return jobsCLI.StatsCommand(opts)
	default:
		_, _ = fmt.Fprint(os.Stderr, usage)
		return 2
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.PGDSN, logger); err != nil {
			return err
		}
	}

	dbpool, err := db.New(ctx, cfg.PGDSN, db.PoolConfig{MaxConns: cfg.PGMaxConns, MaxConnIdleTime: cfg.PGMaxIdleTime})
	if err != nil {
		return err
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		// The catalog falls back to the database until Redis answers again.
		logger.Warn("redis unavailable, catalog cache degraded", slog.Any("error", err))
		redisClient = cache.NewClient(cfg.Redis())
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(cfg.SessionSecret, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	metrics := observability.NewMetrics()

	templates, err := view.NewEngine()
	if err != nil {
		return err
	}

	// Only one middleware registers the denial counter.
	admins := rbac.NewMiddleware(shared.PrincipalFor(shared.AudienceAdmin), logger, metrics.Registerer())
	customers := rbac.NewMiddleware(shared.PrincipalFor(shared.AudienceCustomer), logger, nil)

	authService := auth.NewService(auth.NewRepository(dbpool))
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager, customers, admins, cfg.LoginRateLimit)

	catalogService := catalog.NewService(catalog.NewRepository(dbpool), catalog.NewCache(redisClient, cfg.CatalogCacheTTL), logger)
	cartService := cart.NewService(cart.NewRepository(dbpool))
	ordersService := orders.NewService(orders.NewRepository(dbpool), metrics, catalogService, logger)
	promoService := promotions.NewService(promotions.NewRepository(dbpool), logger)
	paymentsService := payments.NewService(payments.NewRepository(dbpool), logger)
	addressService := addresses.NewService(addresses.NewRepository(dbpool))
	reviewService := reviews.NewService(reviews.NewRepository(dbpool))
	usersService := users.NewService(users.NewRepository(dbpool))
	settingsService := settings.NewService(settings.NewRepository(dbpool))

	inspector := asynq.NewInspector(cfg.Redis().AsynqOpt())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		Metrics:            metrics,
		AuthHandler:        authHandler,
		CatalogHandler:     catalog.NewHandler(logger, catalogService, admins),
		CartHandler:        cart.NewHandler(logger, cartService, customers),
		OrdersHandler:      orders.NewHandler(logger, ordersService, customers, admins),
		PromotionsHandler:  promotions.NewHandler(logger, promoService, admins),
		PaymentsHandler:    payments.NewHandler(logger, paymentsService, customers),
		WebhookHandler:     payments.NewWebhookHandler(logger, cfg.WebhookSecret, idempotencyStore, promoService),
		AddressesHandler:   addresses.NewHandler(logger, addressService, customers),
		WishlistHandler:    wishlist.NewHandler(logger, wishlist.NewRepository(dbpool), customers),
		ReviewsHandler:     reviews.NewHandler(logger, reviewService, customers, admins),
		MessagesHandler:    messages.NewHandler(logger, messages.NewRepository(dbpool), admins),
		BannersHandler:     banners.NewHandler(logger, banners.NewRepository(dbpool), admins),
		UsersHandler:       users.NewHandler(logger, usersService, admins),
		SettingsHandler:    settings.NewHandler(logger, settingsService, admins),
		DashboardHandler:   dashboard.NewHandler(logger, dashboard.NewRepository(dbpool), templates, csrfManager, admins),
		JobHandler:         jobs.NewHandler(inspector, logger, admins),
		PermissionsHandler: rbac.NewPermissionsHandler(admins),
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
