// Package pricing computes booking totals.
package pricing

import "strings"

const (
	DefaultDiscountCode    = "SAVE10"
	DefaultDiscountPercent = 10
)

// Quote is the priced outcome of a booking.
type Quote struct {
	Subtotal        int64  `json:"subtotal"`
	Discount        int64  `json:"discount"`
	Total           int64  `json:"total"`
	DiscountApplied bool   `json:"discount_applied"`
	Code            string `json:"code,omitempty"`
}

// Calculator applies a single percentage code to a per-person price list.
type Calculator struct {
	Code    string
	Percent int64
}

func NewCalculator(code string, percent int) Calculator {
	if code == "" {
		code = DefaultDiscountCode
	}
	if percent < 0 || percent > 100 {
		percent = DefaultDiscountPercent
	}
	return Calculator{Code: code, Percent: int64(percent)}
}

// Calculate returns subtotal = Σprices × people, the discount when code matches
// (case-insensitive) and total = subtotal − discount. people below 1 yields a zero quote.
func (c Calculator) Calculate(prices []int64, people int, code string) Quote {
	if people < 1 {
		return Quote{}
	}

	var perPerson int64
	for _, p := range prices {
		perPerson += p
	}
	subtotal := perPerson * int64(people)

	q := Quote{Subtotal: subtotal, Total: subtotal}
	if c.Matches(code) {
		q.Discount = subtotal * c.Percent / 100
		q.Total = subtotal - q.Discount
		q.DiscountApplied = true
		q.Code = strings.ToUpper(strings.TrimSpace(code))
	}
	return q
}

// Matches reports whether code is this calculator's discount code.
func (c Calculator) Matches(code string) bool {
	code = strings.TrimSpace(code)
	return code != "" && strings.EqualFold(code, c.Code)
}

var defaultCalculator = NewCalculator(DefaultDiscountCode, DefaultDiscountPercent)

// Calculate prices a booking with the default SAVE10 rule.
func Calculate(prices []int64, people int, code string) Quote {
	return defaultCalculator.Calculate(prices, people, code)
}
