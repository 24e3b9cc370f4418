package orders

import "github.com/odyssey-commerce/storefront/internal/shared"

type CheckoutInput struct {
	AddressID int64  `json:"addressId" validate:"required,gt=0"`
	PromoCode string `json:"promoCode" validate:"omitempty,max=64"`
}

type StatusInput struct {
	Status Status `json:"status" validate:"required"`
}

type OrderPage struct {
	Items      []Order           `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}
