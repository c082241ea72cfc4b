package utils

import (
	"math"
	"strings"

	"github.com/Rhymond/go-money"
)

// DefaultCurrency is used when a history carries no currency or an unknown one.
const DefaultCurrency = money.USD

// FormatMoney renders amount in the currency's own format, e.g. "$1,234.57".
// Amounts are rounded half away from zero to the minor unit. Non-finite
// amounts render as "n/a".
func FormatMoney(amount float64, currency string) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "n/a"
	}
	code := strings.ToUpper(strings.TrimSpace(currency))
	cur := money.GetCurrency(code)
	if cur == nil {
		code = DefaultCurrency
		cur = money.GetCurrency(code)
	}
	minor := math.Round(amount * math.Pow10(cur.Fraction))
	return money.New(int64(minor), code).Display()
}
