package promotions

import (
	"fmt"
	"time"

	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusActive   Status = "ACTIVE"
	StatusExpired  Status = "EXPIRED"
	StatusDisabled Status = "DISABLED"
)

func ParseStatus(v string) (Status, error) {
	switch s := Status(v); s {
	case StatusPending, StatusActive, StatusExpired, StatusDisabled:
		return s, nil
	}
	return "", fmt.Errorf("%w: unknown promotion status %q", httpx.ErrValidation, v)
}

// PromoCode is a personal discount owned by one customer.
type PromoCode struct {
	ID              int64      `json:"id"`
	Code            string     `json:"code"`
	CustomerID      int64      `json:"customerId"`
	DiscountPercent int        `json:"discountPercent"`
	Status          Status     `json:"status"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
	ActivatedAt     *time.Time `json:"activatedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type CreateInput struct {
	Code            string     `json:"code" validate:"required,min=3,max=64,alphanum"`
	CustomerID      int64      `json:"customerId" validate:"required,gt=0"`
	DiscountPercent int        `json:"discountPercent" validate:"required,min=1,max=90"`
	ExpiresAt       *time.Time `json:"expiresAt"`
}

type StatusInput struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE DISABLED"`
}

type ListFilter struct {
	CustomerID *int64
	Status     *Status
	Limit      int
	Offset     int
}
