package cart

import (
	"context"
	"fmt"

	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/pricing"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the priced cart of customer. Unit prices follow the live list price and the
// current discount, so a stale stored line never shows a price checkout would not charge.
func (s *Service) Get(ctx context.Context, customerID int64) (*Cart, error) {
	items, err := s.repo.Items(ctx, customerID)
	if err != nil {
		return nil, err
	}
	pct, err := s.repo.DiscountPercent(ctx, customerID)
	if err != nil {
		return nil, err
	}
	c := &Cart{Items: items, DiscountPercent: pct}
	for i := range c.Items {
		it := &c.Items[i]
		it.UnitPriceCents = pricing.Discounted(it.ListPriceCents, pct)
		it.LineTotalCents = pricing.LineTotal(it.UnitPriceCents, it.Quantity)
		c.SubtotalCents += pricing.LineTotal(it.ListPriceCents, it.Quantity)
		c.TotalCents += it.LineTotalCents
	}
	c.DiscountCents = c.SubtotalCents - c.TotalCents
	return c, nil
}

// Add increases the quantity of a product in the cart.
func (s *Service) Add(ctx context.Context, customerID int64, in AddItemInput) (*Cart, error) {
	if err := httpx.Validate(in); err != nil {
		return nil, err
	}
	current, err := s.repo.Quantity(ctx, customerID, in.ProductID)
	if err != nil {
		return nil, err
	}
	if err := s.put(ctx, customerID, in.ProductID, current+in.Quantity); err != nil {
		return nil, err
	}
	return s.Get(ctx, customerID)
}

// SetQuantity replaces the quantity of a line; zero removes it.
func (s *Service) SetQuantity(ctx context.Context, customerID, productID int64, qty int) (*Cart, error) {
	if qty < 0 || qty > MaxLineQuantity {
		return nil, fmt.Errorf("%w: quantity must be between 0 and %d", httpx.ErrValidation, MaxLineQuantity)
	}
	if qty == 0 {
		return s.Remove(ctx, customerID, productID)
	}
	current, err := s.repo.Quantity(ctx, customerID, productID)
	if err != nil {
		return nil, err
	}
	if current == 0 {
		return nil, fmt.Errorf("%w: cart item", httpx.ErrNotFound)
	}
	if err := s.put(ctx, customerID, productID, qty); err != nil {
		return nil, err
	}
	return s.Get(ctx, customerID)
}

// Remove deletes a line from the cart.
func (s *Service) Remove(ctx context.Context, customerID, productID int64) (*Cart, error) {
	found, err := s.repo.Remove(ctx, customerID, productID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: cart item", httpx.ErrNotFound)
	}
	return s.Get(ctx, customerID)
}

func (s *Service) put(ctx context.Context, customerID, productID int64, qty int) error {
	if qty > MaxLineQuantity {
		return fmt.Errorf("%w: at most %d per item", httpx.ErrValidation, MaxLineQuantity)
	}
	product, err := s.repo.Product(ctx, productID)
	if err != nil {
		return err
	}
	if !product.IsActive {
		return fmt.Errorf("%w: product", httpx.ErrNotFound)
	}
	if qty > product.Stock {
		return fmt.Errorf("%w: only %d in stock", httpx.ErrConflict, product.Stock)
	}
	pct, err := s.repo.DiscountPercent(ctx, customerID)
	if err != nil {
		return err
	}
	return s.repo.Put(ctx, customerID, productID, qty, pricing.Discounted(product.PriceCents, pct))
}
