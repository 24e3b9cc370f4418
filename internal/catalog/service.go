package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/shared"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type Service struct {
	repo   Repository
	cache  *Cache
	logger *slog.Logger
}

func NewService(repo Repository, cache *Cache, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger}
}

// ListPublic returns active products, served from cache when possible.
func (s *Service) ListPublic(ctx context.Context, search, category string, page shared.PageRequest) (*ProductPage, error) {
	search = strings.TrimSpace(search)
	category = strings.TrimSpace(category)
	load := func(ctx context.Context) (any, error) {
		return s.list(ctx, ListFilter{Search: search, Category: category}, page)
	}
	var out ProductPage
	err := s.cached(ctx, &out, load, "list", category, search, strconv.Itoa(page.Page), strconv.Itoa(page.PerPage))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPublic returns one active product by slug.
func (s *Service) GetPublic(ctx context.Context, slug string) (*Product, error) {
	load := func(ctx context.Context) (any, error) {
		p, err := s.repo.GetBySlug(ctx, slug)
		if err != nil {
			return nil, err
		}
		if !p.IsActive {
			return nil, fmt.Errorf("%w: product", httpx.ErrNotFound)
		}
		return p, nil
	}
	var out Product
	if err := s.cached(ctx, &out, load, "product", slug); err != nil {
		return nil, err
	}
	return &out, nil
}

// cached reads through the cache. Redis failures degrade to a direct load.
func (s *Service) cached(ctx context.Context, dest any, load func(context.Context) (any, error), parts ...string) error {
	key, err := s.cache.BuildKey(ctx, parts...)
	if err == nil {
		err = s.cache.FetchJSON(ctx, key, dest, func(ctx context.Context) (any, error) {
			v, err := load(ctx)
			if err != nil {
				return nil, &loadError{err: err}
			}
			return v, nil
		})
		var le *loadError
		if errors.As(err, &le) {
			return le.err
		}
		if err == nil {
			return nil
		}
	}
	s.logger.Warn("catalog cache unavailable", slog.Any("error", err))
	return loadInto(ctx, dest, load)
}

type loadError struct{ err error }

func (e *loadError) Error() string { return e.err.Error() }

func (e *loadError) Unwrap() error { return e.err }

// ListAdmin lists every product including inactive ones, bypassing the cache.
func (s *Service) ListAdmin(ctx context.Context, search, category string, page shared.PageRequest) (*ProductPage, error) {
	return s.list(ctx, ListFilter{Search: strings.TrimSpace(search), Category: category, IncludeInactive: true}, page)
}

func (s *Service) list(ctx context.Context, filter ListFilter, page shared.PageRequest) (*ProductPage, error) {
	filter.Limit = page.PerPage
	filter.Offset = page.Offset()
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ProductPage{Items: items, Pagination: shared.NewPagination(page.Page, page.PerPage, total)}, nil
}

// Get loads a product by id, active or not.
func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in ProductInput) (*Product, error) {
	p, err := productFromInput(in)
	if err != nil {
		return nil, err
	}
	out, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return out, nil
}

func (s *Service) Update(ctx context.Context, id int64, in ProductInput) (*Product, error) {
	p, err := productFromInput(in)
	if err != nil {
		return nil, err
	}
	p.ID = id
	out, err := s.repo.Update(ctx, p)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return out, nil
}

// Delete removes a product. Products referenced by orders are archived and ErrArchived returned.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.Delete(ctx, id)
	if err == nil || errors.Is(err, ErrArchived) {
		s.invalidate(ctx)
	}
	return err
}

// Invalidate drops cached catalog reads. Called after stock changes made by other modules.
func (s *Service) Invalidate(ctx context.Context) {
	s.invalidate(ctx)
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("catalog cache bump failed", slog.Any("error", err))
	}
}

func productFromInput(in ProductInput) (Product, error) {
	in.Slug = strings.ToLower(strings.TrimSpace(in.Slug))
	in.Name = strings.TrimSpace(in.Name)
	if err := httpx.Validate(in); err != nil {
		return Product{}, err
	}
	if !slugPattern.MatchString(in.Slug) {
		return Product{}, &httpx.FieldErrors{Fields: map[string]string{"slug": "slug"}}
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return Product{
		Slug:        in.Slug,
		Name:        in.Name,
		Description: in.Description,
		Category:    strings.TrimSpace(in.Category),
		PriceCents:  in.PriceCents,
		Stock:       in.Stock,
		ImageURL:    in.ImageURL,
		IsActive:    active,
	}, nil
}
