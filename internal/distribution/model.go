package distribution

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreditorType is the class a claim ranks in. It doubles as the
// distribution type: a declaration pays one class at a time.
type CreditorType string

const (
	CreditorSecured               CreditorType = "secured"
	CreditorPreferential          CreditorType = "preferential"
	CreditorSecondaryPreferential CreditorType = "secondary_preferential"
	CreditorUnsecured             CreditorType = "unsecured"
	CreditorMembers               CreditorType = "members"
)

// AllCreditorTypes returns every class in order of ranking
func AllCreditorTypes() []CreditorType {
	return []CreditorType{
		CreditorSecured,
		CreditorPreferential,
		CreditorSecondaryPreferential,
		CreditorUnsecured,
		CreditorMembers,
	}
}

// IsValid checks if the creditor type is known
func (c CreditorType) IsValid() bool {
	for _, known := range AllCreditorTypes() {
		if c == known {
			return true
		}
	}
	return false
}

// Label returns a human-readable label for the class
func (c CreditorType) Label() string {
	switch c {
	case CreditorSecured:
		return "Secured Creditors"
	case CreditorPreferential:
		return "Preferential Creditors"
	case CreditorSecondaryPreferential:
		return "Secondary Preferential Creditors"
	case CreditorUnsecured:
		return "Unsecured Creditors"
	case CreditorMembers:
		return "Members"
	default:
		return "Unknown"
	}
}

// IsMembers reports whether the class is paid per share rather than in the pound
func (c CreditorType) IsMembers() bool {
	return c == CreditorMembers
}

// Claim is a creditor's or member's agreed entitlement
type Claim struct {
	ID               uuid.UUID       `json:"id"`
	CreditorType     CreditorType    `json:"creditor_type"`
	CreditorName     string          `json:"creditor_name"`
	BalanceSubmitted decimal.Decimal `json:"balance_submitted"`
}

// IsEligible is true only for a strictly positive agreed balance
func (c Claim) IsEligible() bool {
	return c.BalanceSubmitted.IsPositive()
}

// OfType returns the claims ranking in the given class, preserving order
func OfType(claims []Claim, t CreditorType) []Claim {
	out := make([]Claim, 0, len(claims))
	for _, c := range claims {
		if c.CreditorType == t {
			out = append(out, c)
		}
	}
	return out
}

// Line is one eligible claim's share of a distribution
type Line struct {
	ClaimID     uuid.UUID       `json:"claim_id"`
	ClaimName   string          `json:"claim_name"`
	ClaimAmount decimal.Decimal `json:"claim_amount"`
	// DistributionAmount is the exact proportional share
	DistributionAmount decimal.Decimal `json:"distribution_amount"`
	// Payment is DistributionAmount settled to pence; payments sum to the
	// net distribution rounded to pence.
	Payment decimal.Decimal `json:"payment"`
}

// Result is a computed but not yet declared distribution
type Result struct {
	DistributionType  CreditorType    `json:"distribution_type"`
	SumToDistribute   decimal.Decimal `json:"sum_to_distribute"`
	SumToRetain       decimal.Decimal `json:"sum_to_retain"`
	NetDistribution   decimal.Decimal `json:"net_distribution"`
	TotalClaims       decimal.Decimal `json:"total_claims"`
	DividendRate      decimal.Decimal `json:"dividend_rate"`
	DividendRateLabel string          `json:"dividend_rate_label"`
	Lines             []Line          `json:"per_claim_distributions"`
	// Inactive lists claims with no positive agreed balance. They take no
	// part in the calculation and are shown for audit only.
	Inactive []Claim `json:"inactive_claims"`
}

// TotalPayments sums the pence-settled payments
func (r *Result) TotalPayments() decimal.Decimal {
	total := decimal.Zero
	for _, l := range r.Lines {
		total = total.Add(l.Payment)
	}
	return total
}

// Declaration is a persisted distribution. It is never updated; a correction
// is a delete followed by a fresh declaration.
type Declaration struct {
	ID           uuid.UUID `json:"id"`
	CaseID       uuid.UUID `json:"case_id"`
	DeclaredDate time.Time `json:"declared_date"`
	DeclaredBy   string    `json:"declared_by,omitempty"`
	Result
}

// NewDeclaration snapshots a result for a case
func NewDeclaration(caseID uuid.UUID, result *Result, declaredBy string, now time.Time) *Declaration {
	return &Declaration{
		ID:           uuid.New(),
		CaseID:       caseID,
		DeclaredDate: now.UTC(),
		DeclaredBy:   declaredBy,
		Result:       *result,
	}
}
