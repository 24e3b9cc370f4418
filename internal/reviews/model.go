package reviews

import (
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/shared"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

func ParseStatus(v string) (Status, error) {
	switch s := Status(strings.ToUpper(v)); s {
	case StatusPending, StatusApproved, StatusRejected:
		return s, nil
	}
	return "", fmt.Errorf("%w: unknown review status %q", httpx.ErrValidation, v)
}

type Review struct {
	ID           int64     `json:"id"`
	ProductID    int64     `json:"productId"`
	CustomerID   int64     `json:"customerId,omitempty"`
	CustomerName string    `json:"customerName"`
	Rating       int       `json:"rating"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

type CreateInput struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Title  string `json:"title" validate:"max=120"`
	Body   string `json:"body" validate:"max=4000"`
}

type ModerateInput struct {
	Status string `json:"status" validate:"required,oneof=APPROVED REJECTED"`
}

type ListFilter struct {
	ProductID *int64
	Status    *Status
	Limit     int
	Offset    int
}

// ProductReviews is the public view of a product's approved reviews.
type ProductReviews struct {
	Items         []Review          `json:"items"`
	AverageRating float64           `json:"averageRating"`
	Count         int               `json:"count"`
	Pagination    shared.Pagination `json:"pagination"`
}

type Page struct {
	Items      []Review          `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}
