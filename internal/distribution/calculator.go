package distribution

import (
	"github.com/shopspring/decimal"

	"github.com/kislikjeka/caseledger/pkg/money"
)

var hundred = decimal.NewFromInt(100)

// Calculate computes a pro-rata distribution of sumToDistribute less
// sumToRetain across claims.
//
// Claims without a positive agreed balance are reported as inactive and
// excluded from the denominator. Each eligible claim's share is
// claim × net ÷ total, computed independently. Payments are the same shares
// settled to pence by largest remainder.
//
// Members are paid a rate per share; every other class is paid in pence in
// the pound.
func Calculate(claims []Claim, sumToDistribute, sumToRetain decimal.Decimal, mode CreditorType) (*Result, error) {
	if !mode.IsValid() {
		return nil, ErrInvalidDistributionType
	}

	net := sumToDistribute.Sub(sumToRetain)
	if !net.IsPositive() {
		return nil, ErrInvalidDistribution
	}

	eligible := make([]Claim, 0, len(claims))
	inactive := make([]Claim, 0)
	total := decimal.Zero
	for _, c := range claims {
		if !c.IsEligible() {
			inactive = append(inactive, c)
			continue
		}
		eligible = append(eligible, c)
		total = total.Add(c.BalanceSubmitted)
	}
	if total.IsZero() {
		return nil, ErrNoEligibleClaims
	}

	rate := net.Div(total)
	label := money.PerShareLabel(rate, money.DefaultCurrency)
	if !mode.IsMembers() {
		rate = rate.Mul(hundred)
		label = money.PenceInPoundLabel(rate)
	}

	weights := make([]decimal.Decimal, len(eligible))
	for i, c := range eligible {
		weights[i] = c.BalanceSubmitted
	}
	payments := money.Apportion(net, weights)

	lines := make([]Line, len(eligible))
	for i, c := range eligible {
		lines[i] = Line{
			ClaimID:            c.ID,
			ClaimName:          c.CreditorName,
			ClaimAmount:        c.BalanceSubmitted,
			DistributionAmount: c.BalanceSubmitted.Mul(net).Div(total),
			Payment:            payments[i],
		}
	}

	return &Result{
		DistributionType:  mode,
		SumToDistribute:   sumToDistribute,
		SumToRetain:       sumToRetain,
		NetDistribution:   net,
		TotalClaims:       total,
		DividendRate:      rate,
		DividendRateLabel: label,
		Lines:             lines,
		Inactive:          inactive,
	}, nil
}
