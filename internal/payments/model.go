package payments

import "time"

// Method is a saved card reference. Only the brand and last four digits are stored.
type Method struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"-"`
	Brand      string    `json:"brand"`
	Last4      string    `json:"last4"`
	ExpMonth   int       `json:"expMonth"`
	ExpYear    int       `json:"expYear"`
	Holder     string    `json:"holder"`
	IsDefault  bool      `json:"isDefault"`
	CreatedAt  time.Time `json:"createdAt"`
}

type MethodInput struct {
	Brand     string `json:"brand" validate:"required,oneof=visa mastercard amex discover"`
	Last4     string `json:"last4" validate:"required,len=4,numeric"`
	ExpMonth  int    `json:"expMonth" validate:"required,min=1,max=12"`
	ExpYear   int    `json:"expYear" validate:"required,min=2000,max=2100"`
	Holder    string `json:"holder" validate:"required,max=120"`
	IsDefault bool   `json:"isDefault"`
}

// WebhookEvent is the payment provider callback confirming a promo purchase.
type WebhookEvent struct {
	EventID string `json:"eventId" validate:"required,max=128"`
	PromoID int64  `json:"promoId" validate:"required,gt=0"`
	Status  string `json:"status" validate:"required"`
}

// StatusSuccess is the only webhook status that activates a code.
const StatusSuccess = "SUCCESS"
