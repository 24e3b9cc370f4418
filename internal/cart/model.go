package cart

// Item is one cart line joined with its product.
type Item struct {
	ProductID      int64  `json:"productId"`
	Slug           string `json:"slug"`
	Name           string `json:"name"`
	ImageURL       string `json:"imageUrl"`
	Quantity       int    `json:"quantity"`
	ListPriceCents int64  `json:"listPriceCents"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	LineTotalCents int64  `json:"lineTotalCents"`
	Stock          int    `json:"stock"`
}

// Cart is the priced content of a customer's cart.
type Cart struct {
	Items           []Item `json:"items"`
	DiscountPercent int    `json:"discountPercent"`
	SubtotalCents   int64  `json:"subtotalCents"`
	DiscountCents   int64  `json:"discountCents"`
	TotalCents      int64  `json:"totalCents"`
}

// ProductInfo is what the cart needs to know about a product before adding it.
type ProductInfo struct {
	ID         int64
	PriceCents int64
	Stock      int
	IsActive   bool
}

// MaxLineQuantity bounds a single cart line.
const MaxLineQuantity = 99

type AddItemInput struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0,lte=99"`
}

type SetQuantityInput struct {
	Quantity *int `json:"quantity" validate:"required,gte=0,lte=99"`
}
