package common

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.English)

// FormatMoney renders an amount as dollars with thousands separators, e.g. $1,234.50
func FormatMoney(v float64) string {
	return moneyPrinter.Sprintf("$%.2f", v)
}
