package promotions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/shared"
)

type state struct {
	promos   map[int64]PromoCode
	repriced []int64
	audits   []shared.AuditLog
}

func (s state) clone() state {
	return state{
		promos:   maps.Clone(s.promos),
		repriced: append([]int64(nil), s.repriced...),
		audits:   append([]shared.AuditLog(nil), s.audits...),
	}
}

type mockRepo struct {
	st          *state
	nextID      int64
	repriceErr  error
	customerIDs map[int64]bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{st: &state{promos: map[int64]PromoCode{}}, nextID: 1, customerIDs: map[int64]bool{7: true, 8: true}}
}

func (m *mockRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	snapshot := m.st.clone()
	if err := fn(ctx, m); err != nil {
		*m.st = snapshot
		return err
	}
	return nil
}

func (m *mockRepo) Get(_ context.Context, id int64) (*PromoCode, error) {
	p, ok := m.st.promos[id]
	if !ok {
		return nil, fmt.Errorf("%w: promo code", httpx.ErrNotFound)
	}
	return &p, nil
}

func (m *mockRepo) GetForUpdate(ctx context.Context, id int64) (*PromoCode, error) {
	return m.Get(ctx, id)
}

func (m *mockRepo) List(_ context.Context, f ListFilter) ([]PromoCode, int, error) {
	out := []PromoCode{}
	for _, p := range m.st.promos {
		if f.CustomerID != nil && p.CustomerID != *f.CustomerID {
			continue
		}
		if f.Status != nil && p.Status != *f.Status {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *mockRepo) Create(_ context.Context, p PromoCode) (*PromoCode, error) {
	if !m.customerIDs[p.CustomerID] {
		return nil, fmt.Errorf("%w: customer", httpx.ErrNotFound)
	}
	for _, existing := range m.st.promos {
		if existing.Code == p.Code {
			return nil, fmt.Errorf("%w: promo code already exists", httpx.ErrDuplicate)
		}
	}
	p.ID = m.nextID
	m.nextID++
	m.st.promos[p.ID] = p
	return &p, nil
}

func (m *mockRepo) SetStatus(_ context.Context, id int64, status Status) error {
	p := m.st.promos[id]
	p.Status = status
	m.st.promos[id] = p
	return nil
}

func (m *mockRepo) ExpireDue(_ context.Context, now time.Time) ([]PromoCode, error) {
	var out []PromoCode
	for id, p := range m.st.promos {
		if p.Status == StatusActive && p.ExpiresAt != nil && !p.ExpiresAt.After(now) {
			p.Status = StatusExpired
			m.st.promos[id] = p
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockRepo) RepriceCart(_ context.Context, customerID int64) error {
	if m.repriceErr != nil {
		return m.repriceErr
	}
	m.st.repriced = append(m.st.repriced, customerID)
	return nil
}

func (m *mockRepo) Audit(_ context.Context, log shared.AuditLog) error {
	m.st.audits = append(m.st.audits, log)
	return nil
}

func newTestService(repo Repository) *Service {
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreateStartsPending(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	p, err := svc.Create(context.Background(), 1, CreateInput{Code: "spring20", CustomerID: 7, DiscountPercent: 20})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, p.Status)
	assert.Equal(t, "SPRING20", p.Code)
	require.Len(t, repo.st.audits, 1)
	assert.Equal(t, "promotion.create", repo.st.audits[0].Action)
	assert.Empty(t, repo.st.repriced)

	_, err = svc.Create(context.Background(), 1, CreateInput{Code: "SPRING20", CustomerID: 8, DiscountPercent: 10})
	assert.Equal(t, http.StatusConflict, httpx.StatusOf(err))
}

func TestCreateValidatesInput(t *testing.T) {
	svc := newTestService(newMockRepo())
	past := time.Now().Add(-time.Hour)

	cases := map[string]CreateInput{
		"percent too high": {Code: "BIG", CustomerID: 7, DiscountPercent: 95},
		"percent zero":     {Code: "NONE", CustomerID: 7},
		"no customer":      {Code: "ORPHAN", DiscountPercent: 10},
		"already expired":  {Code: "LATE", CustomerID: 7, DiscountPercent: 10, ExpiresAt: &past},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), 1, in)
			assert.Equal(t, http.StatusBadRequest, httpx.StatusOf(err))
		})
	}
}

func TestActivateRepricesOwnerCart(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	p, err := svc.Create(context.Background(), 1, CreateInput{Code: "VIP15", CustomerID: 7, DiscountPercent: 15})
	require.NoError(t, err)

	got, err := svc.Activate(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status)
	assert.Equal(t, []int64{7}, repo.st.repriced)

	// already active is a no-op
	_, err = svc.Activate(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, repo.st.repriced)
}

func TestActivateRollsBackWhenRepricingFails(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	p, err := svc.Create(context.Background(), 1, CreateInput{Code: "VIP15", CustomerID: 7, DiscountPercent: 15})
	require.NoError(t, err)

	repo.repriceErr = errors.New("deadlock detected")
	_, err = svc.Activate(context.Background(), p.ID)
	require.Error(t, err)
	assert.Equal(t, StatusPending, repo.st.promos[p.ID].Status)
}

func TestActivateRejectsExpired(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	past := time.Now().Add(-time.Minute)
	repo.st.promos[1] = PromoCode{ID: 1, Code: "OLD", CustomerID: 7, DiscountPercent: 10, Status: StatusPending, ExpiresAt: &past}
	repo.st.promos[2] = PromoCode{ID: 2, Code: "GONE", CustomerID: 7, DiscountPercent: 10, Status: StatusExpired}

	for _, id := range []int64{1, 2} {
		_, err := svc.Activate(context.Background(), id)
		assert.Equal(t, http.StatusConflict, httpx.StatusOf(err))
	}
	assert.Empty(t, repo.st.repriced)

	_, err := svc.Activate(context.Background(), 99)
	assert.Equal(t, http.StatusNotFound, httpx.StatusOf(err))
}

func TestActivateDisabledOnlyFromBackOffice(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	repo.st.promos[5] = PromoCode{ID: 5, Code: "OFF", CustomerID: 7, DiscountPercent: 10, Status: StatusDisabled}

	_, err := svc.Activate(context.Background(), 5)
	assert.Equal(t, http.StatusConflict, httpx.StatusOf(err))
	assert.Equal(t, StatusDisabled, repo.st.promos[5].Status)
	assert.Empty(t, repo.st.repriced)

	got, err := svc.SetStatus(context.Background(), 3, 5, StatusInput{Status: "ACTIVE"})
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status)
	assert.Equal(t, []int64{7}, repo.st.repriced)
	require.Len(t, repo.st.audits, 1)
	assert.Equal(t, map[string]any{"from": "DISABLED", "to": "ACTIVE"}, repo.st.audits[0].Meta)
}

func TestDisableActiveRepricesAndAudits(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	repo.st.promos[1] = PromoCode{ID: 1, Code: "ON", CustomerID: 8, DiscountPercent: 10, Status: StatusActive}

	got, err := svc.SetStatus(context.Background(), 3, 1, StatusInput{Status: "DISABLED"})
	require.NoError(t, err)
	assert.Equal(t, StatusDisabled, got.Status)
	assert.Equal(t, []int64{8}, repo.st.repriced)
	require.Len(t, repo.st.audits, 1)
	assert.Equal(t, map[string]any{"from": "ACTIVE", "to": "DISABLED"}, repo.st.audits[0].Meta)
	assert.Equal(t, int64(3), repo.st.audits[0].ActorID)

	_, err = svc.SetStatus(context.Background(), 3, 1, StatusInput{Status: "EXPIRED"})
	assert.Equal(t, http.StatusBadRequest, httpx.StatusOf(err))
}

func TestExpireDueRepricesEachOwnerOnce(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	repo.st.promos[1] = PromoCode{ID: 1, CustomerID: 7, Status: StatusActive, ExpiresAt: &past}
	repo.st.promos[2] = PromoCode{ID: 2, CustomerID: 7, Status: StatusActive, ExpiresAt: &past}
	repo.st.promos[3] = PromoCode{ID: 3, CustomerID: 8, Status: StatusActive, ExpiresAt: &future}
	repo.st.promos[4] = PromoCode{ID: 4, CustomerID: 8, Status: StatusActive}

	n, err := svc.ExpireDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{7}, repo.st.repriced)
	assert.Equal(t, StatusActive, repo.st.promos[3].Status)
	assert.Equal(t, StatusActive, repo.st.promos[4].Status)
}
