package money

import (
	"fmt"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is the ISO 4217 code used for case accounts.
const DefaultCurrency = gomoney.GBP

// Display renders an amount with its currency symbol, e.g. "£1,250.50".
// The amount is rounded to pence first.
func Display(amount decimal.Decimal, currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	pence := ToPence(amount).Shift(PenceScale).IntPart()
	return gomoney.New(pence, currency).Display()
}

// Statutory renders an amount the way receipts-and-payments accounts show
// it: negatives in parentheses, no currency symbol. "-12.5" → "(12.50)"
func Statutory(amount decimal.Decimal) string {
	rounded := ToPence(amount)
	if rounded.IsNegative() {
		return fmt.Sprintf("(%s)", rounded.Abs().StringFixed(PenceScale))
	}
	return rounded.StringFixed(PenceScale)
}

// PenceInPoundLabel formats a creditor dividend rate, e.g. "100.00p".
func PenceInPoundLabel(rate decimal.Decimal) string {
	return rate.StringFixed(PenceScale) + "p"
}

// PerShareLabel formats a members' rate, e.g. "£4.00 per share".
func PerShareLabel(rate decimal.Decimal, currency string) string {
	return Display(rate, currency) + " per share"
}
