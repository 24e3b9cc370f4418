package users

import (
	"context"
	"fmt"
	"strconv"

	"github.com/odyssey-commerce/storefront/internal/auth"
	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/rbac"
	"github.com/odyssey-commerce/storefront/internal/shared"
)

// Service handles user business logic.
type Service struct {
	repo RepositoryPort
	hash func(string) (string, error)
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, hash: auth.HashPassword}
}

// Actor is the back-office user performing a change.
type Actor struct {
	ID   int64
	Role rbac.Role
}

func staffRole(name string) (rbac.Role, error) {
	role, err := rbac.ParseRole(name)
	if err != nil || !role.IsStaff() {
		return 0, fmt.Errorf("%w: %q is not an employee role", httpx.ErrValidation, name)
	}
	return role, nil
}

// ListEmployees returns all staff accounts.
func (s *Service) ListEmployees(ctx context.Context) ([]Employee, error) {
	return s.repo.ListEmployees(ctx)
}

// CreateEmployee adds a staff account. Only a SUPERADMIN may create another SUPERADMIN.
func (s *Service) CreateEmployee(ctx context.Context, actor Actor, in CreateEmployeeInput) (*Employee, error) {
	if err := httpx.Validate(in); err != nil {
		return nil, err
	}
	role, err := staffRole(in.Role)
	if err != nil {
		return nil, err
	}
	if role == rbac.RoleSuperAdmin && actor.Role != rbac.RoleSuperAdmin {
		return nil, fmt.Errorf("%w: only a superadmin can grant SUPERADMIN", httpx.ErrForbidden)
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	var out *Employee
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx RepositoryPort) error {
		out, err = tx.CreateEmployee(ctx, Employee{Name: in.Name, Email: in.Email, Role: role}, hash)
		if err != nil {
			return err
		}
		return tx.Audit(ctx, shared.AuditLog{
			ActorID:  actor.ID,
			Action:   "employee.create",
			Entity:   "admin_user",
			EntityID: strconv.FormatInt(out.ID, 10),
			Meta:     map[string]any{"role": role.String()},
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ChangeRole moves an employee to another staff role.
func (s *Service) ChangeRole(ctx context.Context, actor Actor, id int64, in RoleInput) (*Employee, error) {
	if err := httpx.Validate(in); err != nil {
		return nil, err
	}
	role, err := staffRole(in.Role)
	if err != nil {
		return nil, err
	}
	if actor.ID == id {
		return nil, fmt.Errorf("%w: you cannot change your own role", httpx.ErrForbidden)
	}
	var out *Employee
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx RepositoryPort) error {
		target, err := tx.GetEmployeeForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if (role == rbac.RoleSuperAdmin || target.Role == rbac.RoleSuperAdmin) && actor.Role != rbac.RoleSuperAdmin {
			return fmt.Errorf("%w: only a superadmin can grant or revoke SUPERADMIN", httpx.ErrForbidden)
		}
		from := target.Role
		out = target
		if from == role {
			return nil
		}
		if err := tx.SetEmployeeRole(ctx, id, role); err != nil {
			return err
		}
		out.Role = role
		return tx.Audit(ctx, shared.AuditLog{
			ActorID:  actor.ID,
			Action:   "employee.role",
			Entity:   "admin_user",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"from": from.String(), "to": role.String()},
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) ListCustomers(ctx context.Context, search string, page shared.PageRequest) (*CustomerPage, error) {
	items, total, err := s.repo.ListCustomers(ctx, search, page.PerPage, page.Offset())
	if err != nil {
		return nil, err
	}
	return &CustomerPage{Items: items, Pagination: shared.NewPagination(page.Page, page.PerPage, total)}, nil
}

func (s *Service) GetCustomer(ctx context.Context, id int64) (*Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

// PatchCustomer toggles whether the customer may sign in.
func (s *Service) PatchCustomer(ctx context.Context, actorID, id int64, in CustomerPatch) (*Customer, error) {
	if err := httpx.Validate(in); err != nil {
		return nil, err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx RepositoryPort) error {
		if err := tx.SetCustomerActive(ctx, id, *in.IsActive); err != nil {
			return err
		}
		return tx.Audit(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "customer.active",
			Entity:   "customer",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"isActive": *in.IsActive},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetCustomer(ctx, id)
}
