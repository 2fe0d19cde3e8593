package utils

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var nairaPrinter = message.NewPrinter(language.English)

// FormatNaira renders a whole-Naira amount as ₦8,000.
func FormatNaira(amount int64) string {
	if amount < 0 {
		return "-₦" + nairaPrinter.Sprintf("%d", -amount)
	}
	return "₦" + nairaPrinter.Sprintf("%d", amount)
}

// ToKobo converts Naira to the gateway's minor unit.
func ToKobo(amount int64) int64 {
	return amount * 100
}
