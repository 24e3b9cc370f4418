package addresses

import (
	"context"
	"fmt"

	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
)

// Service keeps the address book of each customer with exactly one default while non-empty.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, customerID int64) ([]Address, error) {
	return s.repo.List(ctx, customerID)
}

func (s *Service) Create(ctx context.Context, customerID int64, in Input) (*Address, error) {
	if err := httpx.Validate(in); err != nil {
		return nil, err
	}
	var out *Address
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		held, err := tx.Lock(ctx, customerID)
		if err != nil {
			return err
		}
		a := Address{CustomerID: customerID}
		in.apply(&a)
		created, err := tx.Insert(ctx, a)
		if err != nil {
			return err
		}
		if in.IsDefault || len(held) == 0 {
			if _, err := tx.MakeDefault(ctx, customerID, created.ID); err != nil {
				return err
			}
			created.IsDefault = true
		}
		out = created
		return nil
	})
	return out, err
}

// Update rewrites the address fields. isDefault=true also makes it the default; false is ignored
// so the book never loses its default through an edit.
func (s *Service) Update(ctx context.Context, customerID, id int64, in Input) (*Address, error) {
	if err := httpx.Validate(in); err != nil {
		return nil, err
	}
	var out *Address
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if _, err := tx.Lock(ctx, customerID); err != nil {
			return err
		}
		current, err := tx.Get(ctx, customerID, id)
		if err != nil {
			return err
		}
		in.apply(current)
		updated, err := tx.Update(ctx, *current)
		if err != nil {
			return err
		}
		if in.IsDefault && !updated.IsDefault {
			if _, err := tx.MakeDefault(ctx, customerID, id); err != nil {
				return err
			}
			updated.IsDefault = true
		}
		out = updated
		return nil
	})
	return out, err
}

func (s *Service) SetDefault(ctx context.Context, customerID, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		ok, err := tx.MakeDefault(ctx, customerID, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: address", httpx.ErrNotFound)
		}
		return nil
	})
}

func (s *Service) Delete(ctx context.Context, customerID, id int64) error {
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
