package payments

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
)

// Service manages saved payment methods. Each customer with at least one method has exactly one default.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

func (s *Service) List(ctx context.Context, customerID int64) ([]Method, error) {
	return s.repo.List(ctx, customerID)
}

// Add saves a method. The first method, or one flagged isDefault, becomes the default.
func (s *Service) Add(ctx context.Context, customerID int64, in MethodInput) (*Method, error) {
	if err := httpx.Validate(in); err != nil {
		return nil, err
	}
	now := s.now()
	if in.ExpYear < now.Year() || (in.ExpYear == now.Year() && in.ExpMonth < int(now.Month())) {
		return nil, fmt.Errorf("%w: card has expired", httpx.ErrValidation)
	}
	var out *Method
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		held, err := tx.Lock(ctx, customerID)
		if err != nil {
			return err
		}
		m, err := tx.Insert(ctx, Method{
			CustomerID: customerID,
			Brand:      in.Brand,
			Last4:      in.Last4,
			ExpMonth:   in.ExpMonth,
			ExpYear:    in.ExpYear,
			Holder:     strings.TrimSpace(in.Holder),
		})
		if err != nil {
			return err
		}
		if in.IsDefault || len(held) == 0 {
			if _, err := tx.MakeDefault(ctx, customerID, m.ID); err != nil {
				return err
			}
			m.IsDefault = true
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetDefault makes id the customer's only default method.
func (s *Service) SetDefault(ctx context.Context, customerID, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		ok, err := tx.MakeDefault(ctx, customerID, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: payment method", httpx.ErrNotFound)
		}
		return nil
	})
}

// Remove deletes a method; removing the default promotes the newest remaining one.
func (s *Service) Remove(ctx context.Context, customerID, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if _, err := tx.Lock(ctx, customerID); err != nil {
			return err
		}
		wasDefault, err := tx.Delete(ctx, customerID, id)
		if err != nil {
			return err
		}
		if wasDefault {
			return tx.PromoteNewest(ctx, customerID)
		}
		return nil
	})
}
