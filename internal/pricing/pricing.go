// Package pricing holds the money arithmetic shared by cart, checkout and promotions.
// Amounts are integer cents.
package pricing

import "fmt"

// MaxDiscountPercent bounds promo discounts.
const MaxDiscountPercent = 90

// Discounted applies pct percent off price, rounding the result down to a whole cent.
func Discounted(price int64, pct int) int64 {
	if pct <= 0 {
		return price
	}
	if pct > 100 {
		pct = 100
	}
	return price * int64(100-pct) / 100
}

// LineTotal multiplies a unit price by quantity.
func LineTotal(unit int64, qty int) int64 {
	return unit * int64(qty)
}

// Line is one priced row of a cart or order.
type Line struct {
	UnitPrice int64
	Quantity  int
}

// Totals summarises priced lines.
type Totals struct {
	Subtotal int64 `json:"subtotalCents"`
	Discount int64 `json:"discountCents"`
	Total    int64 `json:"totalCents"`
}

// Compute prices list-priced lines with pct off each unit price.
func Compute(lines []Line, pct int) Totals {
	var t Totals
	for _, l := range lines {
		t.Subtotal += LineTotal(l.UnitPrice, l.Quantity)
		t.Total += LineTotal(Discounted(l.UnitPrice, pct), l.Quantity)
	}
	t.Discount = t.Subtotal - t.Total
	return t
}

// FormatCents renders cents as a decimal string with two fraction digits.
func FormatCents(c int64) string {
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}
