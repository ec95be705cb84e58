package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatCurrency formats an amount in rupees with thousands separators.
// Example: 1234.5 -> "₹1,234.50"
func FormatCurrency(amount float64) string {
	d := decimal.NewFromFloat(amount).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	parts := strings.SplitN(d.StringFixed(2), ".", 2)
	integerPart := parts[0]

	var groups []string
	for i := len(integerPart); i > 0; i -= 3 {
		start := i - 3
		if start < 0 {
			start = 0
		}
		groups = append([]string{integerPart[start:i]}, groups...)
	}

	return sign + "₹" + strings.Join(groups, ",") + "." + parts[1]
}

// RoundMoney rounds to paise.
func RoundMoney(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(2).InexactFloat64()
}
