package promotions

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/shared"
)

type Page struct {
	Items      []PromoCode       `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// List lists codes, optionally narrowed to one customer or status.
func (s *Service) List(ctx context.Context, customerID *int64, status string, page shared.PageRequest) (*Page, error) {
	filter := ListFilter{CustomerID: customerID, Limit: page.PerPage, Offset: page.Offset()}
	if status != "" {
		st, err := ParseStatus(strings.ToUpper(status))
		if err != nil {
			return nil, err
		}
		filter.Status = &st
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Pagination: shared.NewPagination(page.Page, page.PerPage, total)}, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*PromoCode, error) {
	return s.repo.Get(ctx, id)
}

// Create issues a PENDING code. It takes effect once activated.
func (s *Service) Create(ctx context.Context, actorID int64, in CreateInput) (*PromoCode, error) {
	if err := httpx.Validate(in); err != nil {
		return nil, err
	}
	if in.ExpiresAt != nil && !in.ExpiresAt.After(s.now()) {
		return nil, fmt.Errorf("%w: expiresAt must be in the future", httpx.ErrValidation)
	}
	var out *PromoCode
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		var err error
		out, err = tx.Create(ctx, PromoCode{
			Code:            strings.ToUpper(strings.TrimSpace(in.Code)),
			CustomerID:      in.CustomerID,
			DiscountPercent: in.DiscountPercent,
			Status:          StatusPending,
			ExpiresAt:       in.ExpiresAt,
		})
		if err != nil {
			return err
		}
		return tx.Audit(ctx, auditEntry(actorID, "promotion.create", out.ID, map[string]any{
			"code": out.Code, "customerId": out.CustomerID, "discountPercent": out.DiscountPercent,
		}))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetStatus applies a back-office status change. Activation reprices the owner's cart.
func (s *Service) SetStatus(ctx context.Context, actorID, id int64, in StatusInput) (*PromoCode, error) {
	if err := httpx.Validate(in); err != nil {
		return nil, err
	}
	to := Status(in.Status)
	if to == StatusActive {
		return s.activate(ctx, id, true, func(ctx context.Context, tx Repository, from Status) error {
			return tx.Audit(ctx, auditEntry(actorID, "promotion.status", id, map[string]any{"from": string(from), "to": string(to)}))
		})
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		p, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p.Status == to {
			return nil
		}
		if err := tx.SetStatus(ctx, id, to); err != nil {
			return err
		}
		if p.Status == StatusActive {
			if err := tx.RepriceCart(ctx, p.CustomerID); err != nil {
				return err
			}
		}
		return tx.Audit(ctx, auditEntry(actorID, "promotion.status", id, map[string]any{"from": string(p.Status), "to": string(to)}))
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Activate marks the code ACTIVE and reprices the owner's cart in the same transaction.
// Activating an already active code is a no-op. Expired or disabled codes cannot be activated;
// only a back-office SetStatus may re-enable a disabled code.
func (s *Service) Activate(ctx context.Context, id int64) (*PromoCode, error) {
	return s.activate(ctx, id, false, nil)
}

func (s *Service) activate(ctx context.Context, id int64, allowDisabled bool, after func(context.Context, Repository, Status) error) (*PromoCode, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		p, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		switch p.Status {
		case StatusActive:
			return nil
		case StatusExpired:
			return fmt.Errorf("%w: promo code has expired", httpx.ErrConflict)
		case StatusDisabled:
			if !allowDisabled {
				return fmt.Errorf("%w: promo code is disabled", httpx.ErrConflict)
			}
		}
		if p.ExpiresAt != nil && !p.ExpiresAt.After(s.now()) {
			return fmt.Errorf("%w: promo code has expired", httpx.ErrConflict)
		}
		from := p.Status
		if err := tx.SetStatus(ctx, id, StatusActive); err != nil {
			return err
		}
		if err := tx.RepriceCart(ctx, p.CustomerID); err != nil {
			return fmt.Errorf("reprice cart: %w", err)
		}
		if after != nil {
			return after(ctx, tx, from)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("promo code activated", slog.Int64("promo_id", id))
	return s.repo.Get(ctx, id)
}

// ExpireDue expires every active code whose deadline passed and reprices the affected carts.
func (s *Service) ExpireDue(ctx context.Context) (int, error) {
	var expired []PromoCode
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		var err error
		expired, err = tx.ExpireDue(ctx, s.now())
		if err != nil {
			return err
		}
		seen := make(map[int64]struct{}, len(expired))
		for _, p := range expired {
			if _, ok := seen[p.CustomerID]; ok {
				continue
			}
			seen[p.CustomerID] = struct{}{}
			if err := tx.RepriceCart(ctx, p.CustomerID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(expired) > 0 {
		s.logger.Info("promo codes expired", slog.Int("count", len(expired)))
	}
	return len(expired), nil
}

func auditEntry(actorID int64, action string, id int64, meta map[string]any) shared.AuditLog {
	return shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "promo_code",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	}
}
