package users

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/rbac"
	"github.com/odyssey-commerce/storefront/internal/shared"
)

type stubRepo struct {
	employees map[int64]Employee
	customers map[int64]Customer
	audits    []shared.AuditLog
	nextID    int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		employees: map[int64]Employee{
			1: {ID: 1, Email: "root@shop.test", Role: rbac.RoleSuperAdmin, IsActive: true},
			2: {ID: 2, Email: "boss@shop.test", Role: rbac.RoleAdmin, IsActive: true},
			3: {ID: 3, Email: "ed@shop.test", Role: rbac.RoleEditor, IsActive: true},
		},
		customers: map[int64]Customer{7: {ID: 7, Email: "c@shop.test", IsActive: true}},
		nextID:    10,
	}
}

func (s *stubRepo) WithTx(ctx context.Context, fn func(context.Context, RepositoryPort) error) error {
	employees := make(map[int64]Employee, len(s.employees))
	for k, v := range s.employees {
		employees[k] = v
	}
	audits := append([]shared.AuditLog(nil), s.audits...)
	if err := fn(ctx, s); err != nil {
		s.employees, s.audits = employees, audits
		return err
	}
	return nil
}

func (s *stubRepo) ListEmployees(context.Context) ([]Employee, error) {
	out := []Employee{}
	for _, e := range s.employees {
		out = append(out, e)
	}
	return out, nil
}

func (s *stubRepo) GetEmployeeForUpdate(_ context.Context, id int64) (*Employee, error) {
	e, ok := s.employees[id]
	if !ok {
		return nil, fmt.Errorf("%w: employee", httpx.ErrNotFound)
	}
	return &e, nil
}

func (s *stubRepo) CreateEmployee(_ context.Context, e Employee, hash string) (*Employee, error) {
	for _, existing := range s.employees {
		if existing.Email == e.Email {
			return nil, fmt.Errorf("%w: email already in use", httpx.ErrDuplicate)
		}
	}
	if hash == "" {
		return nil, fmt.Errorf("empty hash")
	}
	e.ID = s.nextID
	s.nextID++
	e.IsActive = true
	s.employees[e.ID] = e
	return &e, nil
}

func (s *stubRepo) SetEmployeeRole(_ context.Context, id int64, role rbac.Role) error {
	e := s.employees[id]
	e.Role = role
	s.employees[id] = e
	return nil
}

func (s *stubRepo) ListCustomers(context.Context, string, int, int) ([]Customer, int, error) {
	out := []Customer{}
	for _, c := range s.customers {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (s *stubRepo) GetCustomer(_ context.Context, id int64) (*Customer, error) {
	c, ok := s.customers[id]
	if !ok {
		return nil, fmt.Errorf("%w: customer", httpx.ErrNotFound)
	}
	return &c, nil
}

func (s *stubRepo) SetCustomerActive(_ context.Context, id int64, active bool) error {
	c, ok := s.customers[id]
	if !ok {
		return fmt.Errorf("%w: customer", httpx.ErrNotFound)
	}
	c.IsActive = active
	s.customers[id] = c
	return nil
}

func (s *stubRepo) Audit(_ context.Context, log shared.AuditLog) error {
	s.audits = append(s.audits, log)
	return nil
}

func newTestService(repo RepositoryPort) *Service {
	svc := NewService(repo)
	svc.hash = func(pw string) (string, error) { return "hashed:" + pw, nil }
	return svc
}

var (
	superadmin = Actor{ID: 1, Role: rbac.RoleSuperAdmin}
	admin      = Actor{ID: 2, Role: rbac.RoleAdmin}
)

func TestChangeRoleRules(t *testing.T) {
	cases := []struct {
		name   string
		actor  Actor
		target int64
		role   string
		status int
	}{
		{"superadmin promotes editor", superadmin, 3, "ADMIN", http.StatusOK},
		{"superadmin grants superadmin", superadmin, 3, "SUPERADMIN", http.StatusOK},
		{"admin cannot grant superadmin", admin, 3, "SUPERADMIN", http.StatusForbidden},
		{"admin cannot revoke superadmin", admin, 1, "EDITOR", http.StatusForbidden},
		{"admin demotes editor", admin, 3, "SUPPORT", http.StatusOK},
		{"own role", superadmin, 1, "ADMIN", http.StatusForbidden},
		{"customer is not staff", superadmin, 3, "CUSTOMER", http.StatusBadRequest},
		{"unknown role", superadmin, 3, "OWNER", http.StatusBadRequest},
		{"missing employee", superadmin, 99, "ADMIN", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newStubRepo()
			before := repo.employees[tc.target].Role
			_, err := newTestService(repo).ChangeRole(context.Background(), tc.actor, tc.target, RoleInput{Role: tc.role})
			assert.Equal(t, tc.status, httpx.StatusOf(err))
			if tc.status != http.StatusOK {
				assert.Equal(t, before, repo.employees[tc.target].Role)
				assert.Empty(t, repo.audits)
				return
			}
			require.Len(t, repo.audits, 1)
			assert.Equal(t, "employee.role", repo.audits[0].Action)
			assert.Equal(t, tc.actor.ID, repo.audits[0].ActorID)
			assert.Equal(t, before.String(), repo.audits[0].Meta["from"])
			assert.Equal(t, tc.role, repo.audits[0].Meta["to"])
		})
	}
}

func TestCreateEmployee(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)
	in := CreateEmployeeInput{Name: "Sam", Email: "sam@shop.test", Password: "long-enough", Role: "SUPPORT"}

	e, err := svc.CreateEmployee(context.Background(), admin, in)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleSupport, e.Role)
	require.Len(t, repo.audits, 1)

	_, err = svc.CreateEmployee(context.Background(), admin, in)
	assert.Equal(t, http.StatusConflict, httpx.StatusOf(err))

	in.Email, in.Role = "top@shop.test", "SUPERADMIN"
	_, err = svc.CreateEmployee(context.Background(), admin, in)
	assert.Equal(t, http.StatusForbidden, httpx.StatusOf(err))

	in.Role = "CUSTOMER"
	_, err = svc.CreateEmployee(context.Background(), superadmin, in)
	assert.Equal(t, http.StatusBadRequest, httpx.StatusOf(err))
}

func TestPatchCustomer(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)
	off := false

	c, err := svc.PatchCustomer(context.Background(), 2, 7, CustomerPatch{IsActive: &off})
	require.NoError(t, err)
	assert.False(t, c.IsActive)
	assert.Equal(t, map[string]any{"isActive": false}, repo.audits[0].Meta)

	_, err = svc.PatchCustomer(context.Background(), 2, 7, CustomerPatch{})
	assert.Equal(t, http.StatusBadRequest, httpx.StatusOf(err))

	_, err = svc.PatchCustomer(context.Background(), 2, 8, CustomerPatch{IsActive: &off})
	assert.Equal(t, http.StatusNotFound, httpx.StatusOf(err))
}
