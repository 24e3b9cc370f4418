package catalog

import "time"

// Product is a sellable catalog entry. Prices are integer cents.
type Product struct {
	ID          int64     `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	PriceCents  int64     `json:"priceCents"`
	Stock       int       `json:"stock"`
	ImageURL    string    `json:"imageUrl"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ListFilter narrows product listings.
type ListFilter struct {
	Search          string
	Category        string
	IncludeInactive bool
	Limit           int
	Offset          int
}
