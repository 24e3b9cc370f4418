package addresses

import "time"

type Address struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"-"`
	Label      string    `json:"label"`
	Recipient  string    `json:"recipient"`
	Line1      string    `json:"line1"`
	Line2      string    `json:"line2"`
	City       string    `json:"city"`
	PostalCode string    `json:"postalCode"`
	Country    string    `json:"country"`
	Phone      string    `json:"phone"`
	IsDefault  bool      `json:"isDefault"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type Input struct {
	Label      string `json:"label" validate:"max=60"`
	Recipient  string `json:"recipient" validate:"required,max=120"`
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2" validate:"max=200"`
	City       string `json:"city" validate:"required,max=120"`
	PostalCode string `json:"postalCode" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,len=2,alpha"`
	Phone      string `json:"phone" validate:"omitempty,max=32"`
	IsDefault  bool   `json:"isDefault"`
}

func (in Input) apply(a *Address) {
	a.Label = in.Label
	a.Recipient = in.Recipient
	a.Line1 = in.Line1
	a.Line2 = in.Line2
	a.City = in.City
	a.PostalCode = in.PostalCode
	a.Country = in.Country
	a.Phone = in.Phone
}
