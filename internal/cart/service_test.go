package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
)

type line struct {
	qty  int
	unit int64
}

type stubRepo struct {
	products map[int64]*ProductInfo
	lines    map[int64]*line
	discount int
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		products: map[int64]*ProductInfo{
			1: {ID: 1, PriceCents: 999, Stock: 5, IsActive: true},
			2: {ID: 2, PriceCents: 500, Stock: 1, IsActive: true},
			3: {ID: 3, PriceCents: 100, Stock: 10, IsActive: false},
		},
		lines: map[int64]*line{},
	}
}

func (s *stubRepo) Items(ctx context.Context, customerID int64) ([]Item, error) {
	items := []Item{}
	for id := int64(1); id <= 3; id++ {
		if l, ok := s.lines[id]; ok {
			items = append(items, Item{ProductID: id, Quantity: l.qty, UnitPriceCents: l.unit, ListPriceCents: s.products[id].PriceCents})
		}
	}
	return items, nil
}

func (s *stubRepo) Product(ctx context.Context, productID int64) (*ProductInfo, error) {
	if p, ok := s.products[productID]; ok {
		return p, nil
	}
	return nil, httpx.ErrNotFound
}

func (s *stubRepo) DiscountPercent(ctx context.Context, customerID int64) (int, error) {
	return s.discount, nil
}

func (s *stubRepo) Quantity(ctx context.Context, customerID, productID int64) (int, error) {
	if l, ok := s.lines[productID]; ok {
		return l.qty, nil
	}
	return 0, nil
}

func (s *stubRepo) Put(ctx context.Context, customerID, productID int64, qty int, unit int64) error {
	s.lines[productID] = &line{qty: qty, unit: unit}
	return nil
}

func (s *stubRepo) Remove(ctx context.Context, customerID, productID int64) (bool, error) {
	_, ok := s.lines[productID]
	delete(s.lines, productID)
	return ok, nil
}

func TestAddAccumulatesAndSnapshotsDiscount(t *testing.T) {
	repo := newStubRepo()
	repo.discount = 15
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Add(ctx, 7, AddItemInput{ProductID: 1, Quantity: 1})
	require.NoError(t, err)
	c, err := svc.Add(ctx, 7, AddItemInput{ProductID: 1, Quantity: 1})
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, int64(849), c.Items[0].UnitPriceCents)
	assert.Equal(t, int64(1998), c.SubtotalCents)
	assert.Equal(t, int64(1698), c.TotalCents)
	assert.Equal(t, int64(300), c.DiscountCents)
	assert.Equal(t, 15, c.DiscountPercent)
}

func TestAddRejections(t *testing.T) {
	svc := NewService(newStubRepo())
	ctx := context.Background()

	_, err := svc.Add(ctx, 7, AddItemInput{ProductID: 2, Quantity: 2})
	assert.ErrorIs(t, err, httpx.ErrConflict)
	_, err = svc.Add(ctx, 7, AddItemInput{ProductID: 3, Quantity: 1})
	assert.ErrorIs(t, err, httpx.ErrNotFound)
	_, err = svc.Add(ctx, 7, AddItemInput{ProductID: 99, Quantity: 1})
	assert.ErrorIs(t, err, httpx.ErrNotFound)
	_, err = svc.Add(ctx, 7, AddItemInput{ProductID: 1, Quantity: 0})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestSetQuantityZeroRemoves(t *testing.T) {
	svc := NewService(newStubRepo())
	ctx := context.Background()
	_, err := svc.Add(ctx, 7, AddItemInput{ProductID: 1, Quantity: 2})
	require.NoError(t, err)

	c, err := svc.SetQuantity(ctx, 7, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Items[0].Quantity)

	c, err = svc.SetQuantity(ctx, 7, 1, 0)
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	_, err = svc.SetQuantity(ctx, 7, 1, 3)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
	_, err = svc.Remove(ctx, 7, 1)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestGetPricesFromLiveListPrice(t *testing.T) {
	repo := newStubRepo()
	repo.discount = 10
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Add(ctx, 7, AddItemInput{ProductID: 1, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(899), repo.lines[1].unit)

	// price cut after the line was stored
	repo.products[1].PriceCents = 500
	c, err := svc.Get(ctx, 7)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, int64(450), c.Items[0].UnitPriceCents)
	assert.Equal(t, int64(1000), c.SubtotalCents)
	assert.Equal(t, int64(900), c.TotalCents)
	assert.Equal(t, int64(100), c.DiscountCents)
}
