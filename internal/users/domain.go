package users

import (
	"time"

	"github.com/odyssey-commerce/storefront/internal/rbac"
	"github.com/odyssey-commerce/storefront/internal/shared"
)

// Employee is a back-office account.
type Employee struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      rbac.Role `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Customer is a storefront account as seen by the back office.
type Customer struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	IsActive   bool      `json:"isActive"`
	OrderCount int       `json:"orderCount"`
	SpentCents int64     `json:"spentCents"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type CreateEmployeeInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required"`
}

type RoleInput struct {
	Role string `json:"role" validate:"required"`
}

type CustomerPatch struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

type CustomerPage struct {
	Items      []Customer        `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}
