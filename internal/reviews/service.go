package reviews

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ForProduct lists approved reviews with the approved average rounded to one decimal.
func (s *Service) ForProduct(ctx context.Context, productID int64, page shared.PageRequest) (*ProductReviews, error) {
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}
	approved := StatusApproved
	items, total, err := s.repo.List(ctx, ListFilter{ProductID: &productID, Status: &approved, Limit: page.PerPage, Offset: page.Offset()})
	if err != nil {
		return nil, err
	}
	avg, err := s.repo.Average(ctx, productID)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].CustomerID = 0
	}
	return &ProductReviews{
		Items:         items,
		AverageRating: math.Round(avg*10) / 10,
		Count:         total,
		Pagination:    shared.NewPagination(page.Page, page.PerPage, total),
	}, nil
}

// Submit stores a PENDING review. A customer reviews a product at most once.
func (s *Service) Submit(ctx context.Context, customerID, productID int64, in CreateInput) (*Review, error) {
	if err := httpx.Validate(in); err != nil {
		return nil, err
	}
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, Review{
		ProductID:  productID,
		CustomerID: customerID,
		Rating:     in.Rating,
		Title:      strings.TrimSpace(in.Title),
		Body:       strings.TrimSpace(in.Body),
	})
}

func (s *Service) List(ctx context.Context, status string, page shared.PageRequest) (*Page, error) {
	filter := ListFilter{Limit: page.PerPage, Offset: page.Offset()}
	if status != "" {
		st, err := ParseStatus(status)
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

func (s *Service) Moderate(ctx context.Context, actorID, id int64, in ModerateInput) (*Review, error) {
	if err := httpx.Validate(in); err != nil {
		return nil, err
	}
	rv, err := s.repo.SetStatus(ctx, id, Status(in.Status))
	if err != nil {
		return nil, err
	}
	if err := s.repo.Audit(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "review.moderate",
		Entity:   "review",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"status": in.Status},
	}); err != nil {
		return nil, err
	}
	return rv, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) requireProduct(ctx context.Context, productID int64) error {
	ok, err := s.repo.ProductExists(ctx, productID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: product", httpx.ErrNotFound)
	}
	return nil
}
