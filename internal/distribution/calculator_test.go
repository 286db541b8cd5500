package distribution_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/caseledger/internal/distribution"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func claim(t distribution.CreditorType, name, balance string) distribution.Claim {
	return distribution.Claim{
		ID:               uuid.New(),
		CreditorType:     t,
		CreditorName:     name,
		BalanceSubmitted: dec(balance),
	}
}

// =============================================================================
// Scenarios
// =============================================================================

func TestCalculate_ProRataUnsecured(t *testing.T) {
	claims := []distribution.Claim{
		claim(distribution.CreditorUnsecured, "A", "600"),
		claim(distribution.CreditorUnsecured, "B", "400"),
	}

	result, err := distribution.Calculate(claims, dec("1000"), dec("0"), distribution.CreditorUnsecured)
	require.NoError(t, err)

	assert.Equal(t, "1000", result.NetDistribution.String())
	assert.Equal(t, "1000", result.TotalClaims.String())
	assert.Equal(t, "100", result.DividendRate.String())
	assert.Equal(t, "100.00p", result.DividendRateLabel)

	require.Len(t, result.Lines, 2)
	assert.Equal(t, "A", result.Lines[0].ClaimName)
	assert.Equal(t, "600", result.Lines[0].DistributionAmount.String())
	assert.Equal(t, "600", result.Lines[0].Payment.String())
	assert.Equal(t, "B", result.Lines[1].ClaimName)
	assert.Equal(t, "400", result.Lines[1].DistributionAmount.String())
	assert.Equal(t, claims[1].ID, result.Lines[1].ClaimID)
	assert.Empty(t, result.Inactive)
}

func TestCalculate_MembersPerShare(t *testing.T) {
	claims := []distribution.Claim{claim(distribution.CreditorMembers, "X", "10")}

	result, err := distribution.Calculate(claims, dec("50"), dec("10"), distribution.CreditorMembers)
	require.NoError(t, err)

	assert.Equal(t, "40", result.NetDistribution.String())
	assert.Equal(t, "10", result.TotalClaims.String())
	assert.Equal(t, "4", result.DividendRate.String())
	assert.Equal(t, "£4.00 per share", result.DividendRateLabel)
	require.Len(t, result.Lines, 1)
	assert.Equal(t, "40", result.Lines[0].DistributionAmount.String())
	assert.Equal(t, "40", result.Lines[0].Payment.String())
}

func TestCalculate_RetainExceedsDistribute(t *testing.T) {
	claims := []distribution.Claim{claim(distribution.CreditorUnsecured, "A", "100")}

	result, err := distribution.Calculate(claims, dec("100"), dec("150"), distribution.CreditorUnsecured)

	assert.ErrorIs(t, err, distribution.ErrInvalidDistribution)
	assert.Nil(t, result)
}

func TestCalculate_ZeroNetIsInvalid(t *testing.T) {
	claims := []distribution.Claim{claim(distribution.CreditorUnsecured, "A", "100")}

	_, err := distribution.Calculate(claims, dec("250"), dec("250"), distribution.CreditorUnsecured)
	assert.ErrorIs(t, err, distribution.ErrInvalidDistribution)
}

func TestCalculate_NoEligibleClaims(t *testing.T) {
	tests := []struct {
		name   string
		claims []distribution.Claim
	}{
		{"no claims", nil},
		{"zero balances", []distribution.Claim{
			claim(distribution.CreditorPreferential, "HMRC", "0"),
			claim(distribution.CreditorPreferential, "Staff", "0.00"),
		}},
		{"negative balance", []distribution.Claim{claim(distribution.CreditorPreferential, "Disputed", "-50")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := distribution.Calculate(tt.claims, dec("500"), dec("0"), distribution.CreditorPreferential)
			assert.ErrorIs(t, err, distribution.ErrNoEligibleClaims)
			assert.Nil(t, result)
		})
	}
}

func TestCalculate_RejectsBadInput(t *testing.T) {
	claims := []distribution.Claim{claim(distribution.CreditorUnsecured, "A", "100")}

	_, err := distribution.Calculate(claims, dec("100"), dec("0"), "landlords")
	assert.ErrorIs(t, err, distribution.ErrInvalidDistributionType)

	_, err = distribution.Calculate(claims, dec("-10"), dec("0"), distribution.CreditorUnsecured)
	assert.ErrorIs(t, err, distribution.ErrInvalidDistribution)
}

func TestCalculate_NetDecidesValidity(t *testing.T) {
	claims := []distribution.Claim{claim(distribution.CreditorUnsecured, "A", "100")}

	tests := []struct {
		name       string
		distribute string
		retain     string
		err        error
		net        string
	}{
		{name: "negative distribute", distribute: "-10", retain: "0", err: distribution.ErrInvalidDistribution},
		{name: "both negative", distribute: "-10", retain: "-5", err: distribution.ErrInvalidDistribution},
		{name: "zero net", distribute: "50", retain: "50", err: distribution.ErrInvalidDistribution},
		{name: "negative retain leaves positive net", distribute: "100", retain: "-10", net: "110"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := distribution.Calculate(claims, dec(tt.distribute), dec(tt.retain), distribution.CreditorUnsecured)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.Nil(t, result)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.net, result.NetDistribution.String())
		})
	}
}

func TestCalculate_InactiveClaimsShownNotPaid(t *testing.T) {
	claims := []distribution.Claim{
		claim(distribution.CreditorUnsecured, "Paid", "300"),
		claim(distribution.CreditorUnsecured, "Rejected", "0"),
		claim(distribution.CreditorUnsecured, "Withdrawn", "-20"),
	}

	result, err := distribution.Calculate(claims, dec("150"), dec("0"), distribution.CreditorUnsecured)
	require.NoError(t, err)

	assert.Equal(t, "300", result.TotalClaims.String())
	assert.Equal(t, "50.00p", result.DividendRateLabel)
	require.Len(t, result.Lines, 1)
	require.Len(t, result.Inactive, 2)
	assert.Equal(t, "Rejected", result.Inactive[0].CreditorName)
	assert.Equal(t, "Withdrawn", result.Inactive[1].CreditorName)
}

func TestCalculate_PaymentsArePennyExact(t *testing.T) {
	claims := []distribution.Claim{
		claim(distribution.CreditorUnsecured, "A", "1"),
		claim(distribution.CreditorUnsecured, "B", "1"),
		claim(distribution.CreditorUnsecured, "C", "1"),
	}

	result, err := distribution.Calculate(claims, dec("100"), dec("0"), distribution.CreditorUnsecured)
	require.NoError(t, err)

	assert.Equal(t, "33.34", result.Lines[0].Payment.StringFixed(2))
	assert.Equal(t, "33.33", result.Lines[1].Payment.StringFixed(2))
	assert.Equal(t, "33.33", result.Lines[2].Payment.StringFixed(2))
	assert.True(t, result.TotalPayments().Equal(dec("100")))
	assert.Equal(t, "3333.33p", result.DividendRateLabel)
}

// =============================================================================
// Properties
// =============================================================================

func TestCalculate_SumEqualsNetDistribution(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tolerance := dec("0.000001")

	for i := 0; i < 200; i++ {
		n := 1 + rng.Intn(40)
		claims := make([]distribution.Claim, n)
		for j := range claims {
			claims[j] = claim(distribution.CreditorUnsecured, fmt.Sprintf("C%d", j),
				decimal.New(1+rng.Int63n(5_000_000), -2).String())
		}
		distribute := decimal.New(1+rng.Int63n(10_000_000), -2)

		result, err := distribution.Calculate(claims, distribute, decimal.Zero, distribution.CreditorUnsecured)
		require.NoError(t, err)

		sum := decimal.Zero
		for _, l := range result.Lines {
			sum = sum.Add(l.DistributionAmount)
		}
		relative := sum.Sub(result.NetDistribution).Abs().Div(result.NetDistribution)
		assert.True(t, relative.LessThanOrEqual(tolerance), "iteration %d: sum %s net %s", i, sum, result.NetDistribution)
		assert.True(t, result.TotalPayments().Equal(result.NetDistribution.Round(2)), "iteration %d: payments %s", i, result.TotalPayments())
	}
}

func TestCalculate_Proportionality(t *testing.T) {
	tests := []struct{ b1, b2, net string }{
		{"600", "400", "1000"},
		{"1234.56", "789.01", "333.33"},
		{"0.01", "99999.99", "17"},
		{"7", "3", "0.05"},
	}

	for _, tt := range tests {
		t.Run(tt.b1+"/"+tt.b2, func(t *testing.T) {
			claims := []distribution.Claim{
				claim(distribution.CreditorUnsecured, "one", tt.b1),
				claim(distribution.CreditorUnsecured, "two", tt.b2),
			}
			result, err := distribution.Calculate(claims, dec(tt.net), decimal.Zero, distribution.CreditorUnsecured)
			require.NoError(t, err)

			got := result.Lines[0].DistributionAmount.Div(result.Lines[1].DistributionAmount)
			want := dec(tt.b1).Div(dec(tt.b2))
			diff := got.Sub(want).Abs().Div(want)
			assert.True(t, diff.LessThan(dec("0.000001")), "ratio %s want %s", got, want)
		})
	}
}

func TestOfType(t *testing.T) {
	claims := []distribution.Claim{
		claim(distribution.CreditorPreferential, "Staff", "10"),
		claim(distribution.CreditorUnsecured, "Trade", "20"),
		claim(distribution.CreditorPreferential, "HMRC", "30"),
	}

	prefs := distribution.OfType(claims, distribution.CreditorPreferential)
	require.Len(t, prefs, 2)
	assert.Equal(t, "Staff", prefs[0].CreditorName)
	assert.Equal(t, "HMRC", prefs[1].CreditorName)
	assert.Empty(t, distribution.OfType(claims, distribution.CreditorMembers))
}
