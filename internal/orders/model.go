package orders

import "time"

// Order is a placed order with its shipping snapshot.
type Order struct {
	ID            int64      `json:"id"`
	CustomerID    int64      `json:"customerId"`
	Status        Status     `json:"status"`
	SubtotalCents int64      `json:"subtotalCents"`
	DiscountCents int64      `json:"discountCents"`
	TotalCents    int64      `json:"totalCents"`
	PromoCodeID   *int64     `json:"promoCodeId,omitempty"`
	Shipping      Shipping   `json:"shipping"`
	Items         []Item     `json:"items,omitempty"`
	CancelledAt   *time.Time `json:"cancelledAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Shipping is copied from the customer's address at checkout.
type Shipping struct {
	Recipient  string `json:"recipient"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

// Item is one order line.
type Item struct {
	ID             int64  `json:"id"`
	OrderID        int64  `json:"-"`
	ProductID      int64  `json:"productId"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	Quantity       int    `json:"quantity"`
	LineTotalCents int64  `json:"lineTotalCents"`
}

// CartLine is a locked cart row joined with its product.
type CartLine struct {
	ProductID  int64
	Name       string
	Quantity   int
	PriceCents int64
	Stock      int
	IsActive   bool
}

// ListFilter narrows order listings.
type ListFilter struct {
	CustomerID *int64
	Status     *Status
	Limit      int
	Offset     int
}
