// Package settings stores the small closed set of store-wide options.
package settings

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-commerce/storefront/internal/platform/db"
	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/rbac"
	"github.com/odyssey-commerce/storefront/internal/shared"
)

// Key is one of the supported setting names.
type Key string

const (
	KeyStoreName             Key = "store_name"
	KeySupportEmail          Key = "support_email"
	KeyCurrency              Key = "currency"
	KeyFreeShippingThreshold Key = "free_shipping_threshold"
)

type spec struct {
	fallback string
	numeric  bool
	check    func(string) error
}

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

var keys = map[Key]spec{
	KeyStoreName: {fallback: "Storefront", check: func(v string) error {
		if v == "" || len(v) > 120 {
			return fmt.Errorf("must be 1 to 120 characters")
		}
		return nil
	}},
	KeySupportEmail: {fallback: "support@example.com", check: func(v string) error {
		if _, err := mail.ParseAddress(v); err != nil {
			return fmt.Errorf("must be an email address")
		}
		return nil
	}},
	KeyCurrency: {fallback: "USD", check: func(v string) error {
		if !currencyPattern.MatchString(v) {
			return fmt.Errorf("must be a three letter ISO code")
		}
		return nil
	}},
	KeyFreeShippingThreshold: {fallback: "5000", numeric: true, check: func(v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("must be a non-negative amount in cents")
		}
		return nil
	}},
}

// Values maps every known key to its current value.
type Values map[Key]string

func (v Values) wire() map[string]any {
	out := make(map[string]any, len(v))
	for k, val := range v {
		if keys[k].numeric {
			n, _ := strconv.ParseInt(val, 10, 64)
			out[string(k)] = n
			continue
		}
		out[string(k)] = val
	}
	return out
}

// Parse validates a partial update. Unknown keys and malformed values are rejected as a whole.
func Parse(in map[string]any) (Values, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: no settings given", httpx.ErrValidation)
	}
	out := make(Values, len(in))
	fields := map[string]string{}
	for name, raw := range in {
		s, ok := keys[Key(name)]
		if !ok {
			fields[name] = "unknown setting"
			continue
		}
		var val string
		switch t := raw.(type) {
		case string:
			val = strings.TrimSpace(t)
		case float64:
			if !s.numeric || t != float64(int64(t)) {
				fields[name] = "wrong type"
				continue
			}
			val = strconv.FormatInt(int64(t), 10)
		default:
			fields[name] = "wrong type"
			continue
		}
		if Key(name) == KeyCurrency {
			val = strings.ToUpper(val)
		}
		if err := s.check(val); err != nil {
			fields[name] = err.Error()
			continue
		}
		out[Key(name)] = val
	}
	if len(fields) > 0 {
		return nil, &httpx.FieldErrors{Fields: fields}
	}
	return out, nil
}

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Load(ctx context.Context) (map[string]string, error)
	Upsert(ctx context.Context, key Key, value string) error
	Audit(ctx context.Context, log shared.AuditLog) error
}

type repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTxOptions(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

func (r *repository) Load(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.Query(ctx, `SELECT key, value FROM store_settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (r *repository) Upsert(ctx context.Context, key Key, value string) error {
	_, err := r.db.Exec(ctx, `INSERT INTO store_settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`, string(key), value)
	return err
}

func (r *repository) Audit(ctx context.Context, log shared.AuditLog) error {
	return shared.RecordAudit(ctx, r.db, log)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns every key, falling back to defaults for unset ones. Stale rows for keys no
// longer supported are ignored.
func (s *Service) Get(ctx context.Context) (Values, error) {
	stored, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make(Values, len(keys))
	for k, sp := range keys {
		if v, ok := stored[string(k)]; ok {
			out[k] = v
			continue
		}
		out[k] = sp.fallback
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, actorID int64, in map[string]any) (Values, error) {
	values, err := Parse(in)
	if err != nil {
		return nil, err
	}
	changed := make([]string, 0, len(values))
	for k := range values {
		changed = append(changed, string(k))
	}
	sort.Strings(changed)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		for _, k := range changed {
			if err := tx.Upsert(ctx, Key(k), values[Key(k)]); err != nil {
				return err
			}
		}
		return tx.Audit(ctx, shared.AuditLog{ActorID: actorID, Action: "settings.update", Entity: "store_settings", EntityID: "store",
			Meta: map[string]any{"keys": changed}})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx)
}

type Handler struct {
	logger  *slog.Logger
	service *Service
	admins  rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, admins rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, admins: admins}
}

// MountPublicRoutes registers GET /api/settings.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/", h.get)
}

// MountAdminRoutes registers /api/admin/settings.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.With(h.admins.Require(rbac.CapSettingsView)).Get("/", h.get)
	r.With(h.admins.Require(rbac.CapSettingsEdit)).Put("/", h.update)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.Get(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v.wire())
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var in map[string]any
	if err := httpx.Decode(w, r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	actor := shared.IdentityFromContext(r.Context(), shared.AudienceAdmin)
	v, err := h.service.Update(r.Context(), actor.ID, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v.wire())
}
