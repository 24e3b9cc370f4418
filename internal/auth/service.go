package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/shared"
)

// dummyHash is compared against when no account matches, so unknown emails cost the same as
// wrong passwords.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("storefront-placeholder"), bcrypt.DefaultCost)

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Service wraps authentication business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates a customer account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Account, error) {
	if err := httpx.Validate(in); err != nil {
		return nil, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	return s.repo.CreateCustomer(ctx, in.Name, in.Email, hash)
}

// AuthenticateCustomer validates customer credentials.
func (s *Service) AuthenticateCustomer(ctx context.Context, email, password string) (*Account, error) {
	return authenticate(s.repo.FindCustomerByEmail(ctx, email))(password)
}

// AuthenticateAdmin validates staff credentials.
func (s *Service) AuthenticateAdmin(ctx context.Context, email, password string) (*Account, error) {
	return authenticate(s.repo.FindAdminByEmail(ctx, email))(password)
}

func authenticate(acc *Account, lookupErr error) func(string) (*Account, error) {
	return func(password string) (*Account, error) {
		if lookupErr != nil {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			if errors.Is(lookupErr, httpx.ErrNotFound) {
				return nil, shared.ErrInvalidCredentials
			}
			return nil, lookupErr
		}
		if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
			return nil, shared.ErrInvalidCredentials
		}
		if !acc.IsActive {
			return nil, shared.ErrInvalidCredentials
		}
		return acc, nil
	}
}

// Customer reloads an active customer, used by /me.
func (s *Service) Customer(ctx context.Context, id int64) (*Account, error) {
	return active(s.repo.FindCustomerByID(ctx, id))
}

// Admin reloads an active staff account.
func (s *Service) Admin(ctx context.Context, id int64) (*Account, error) {
	return active(s.repo.FindAdminByID(ctx, id))
}

func active(acc *Account, err error) (*Account, error) {
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, httpx.ErrUnauthorized
		}
		return nil, err
	}
	if !acc.IsActive {
		return nil, httpx.ErrUnauthorized
	}
	return acc, nil
}
