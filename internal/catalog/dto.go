package catalog

import "github.com/odyssey-commerce/storefront/internal/shared"

// ProductInput is the body of product create and update requests.
type ProductInput struct {
	Slug        string `json:"slug" validate:"required,max=120"`
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Category    string `json:"category" validate:"max=60"`
	PriceCents  int64  `json:"priceCents" validate:"gte=0"`
	Stock       int    `json:"stock" validate:"gte=0"`
	ImageURL    string `json:"imageUrl" validate:"omitempty,url,max=500"`
	IsActive    *bool  `json:"isActive"`
}

// ProductPage is a paginated product listing.
type ProductPage struct {
	Items      []Product         `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}
