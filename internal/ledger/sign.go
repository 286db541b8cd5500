package ledger

import "github.com/shopspring/decimal"

// Sign is the netting convention for an account's postings
type Sign int

const (
	// CreditNormal nets as credit − debit (realisations, costs, expenses, liabilities)
	CreditNormal Sign = iota
	// DebitNormal nets as debit − credit (bank and other asset representation)
	DebitNormal
)

// Apply nets a debit/credit pair under the convention
func (s Sign) Apply(debit, credit decimal.Decimal) decimal.Decimal {
	if s == DebitNormal {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// String implements fmt.Stringer
func (s Sign) String() string {
	if s == DebitNormal {
		return "debit-normal"
	}
	return "credit-normal"
}

// SignFunc picks a convention per account type
type SignFunc func(AccountType) Sign

// DefaultSign follows the account's semantic role: representation accounts
// are debit-normal, everything else is credit-normal.
func DefaultSign(t AccountType) Sign {
	if t.IsRepresentation() {
		return DebitNormal
	}
	return CreditNormal
}

// Always returns a SignFunc that applies one convention to every account
func Always(s Sign) SignFunc {
	return func(AccountType) Sign { return s }
}
