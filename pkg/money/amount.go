package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PenceScale is the number of decimal places a currency amount is settled in.
const PenceScale = 2

// Materiality is the smallest absolute amount treated as non-zero when
// comparing or reporting balances (one penny).
var Materiality = decimal.New(1, -PenceScale)

// Parse converts a human-readable amount string to a decimal.
// Thousands separators and a leading currency symbol are accepted:
// "£1,250.50" → 1250.50
func Parse(amountStr string) (decimal.Decimal, error) {
	s := strings.TrimSpace(amountStr)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount is required")
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	s = strings.TrimPrefix(s, "£")
	s = strings.ReplaceAll(s, ",", "")

	// Parenthesised amounts are negative in statutory reports: "(12.00)"
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = !negative
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount format %q: %w", amountStr, err)
	}

	if negative {
		d = d.Neg()
	}
	return d, nil
}

// ToPence rounds an amount half away from zero to whole pence.
func ToPence(d decimal.Decimal) decimal.Decimal {
	return d.Round(PenceScale)
}

// IsMaterial reports whether |d| exceeds the materiality threshold.
func IsMaterial(d decimal.Decimal) bool {
	return d.Abs().GreaterThan(Materiality)
}

// WithinTolerance reports whether a and b differ by no more than one penny.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Materiality)
}

// Sum adds up a list of amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
