package money

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Apportion splits total (rounded to pence) across weights in proportion to
// each weight, using the largest-remainder method so the returned pence
// amounts add up exactly to the rounded total.
//
// Every share is first floored to a whole penny; the pennies left over are
// handed out one at a time to the shares with the largest discarded
// fraction. Ties go to the earlier weight. Non-positive weights receive zero.
func Apportion(total decimal.Decimal, weights []decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(weights))
	for i := range out {
		out[i] = decimal.Zero
	}

	weightSum := decimal.Zero
	for _, w := range weights {
		if w.IsPositive() {
			weightSum = weightSum.Add(w)
		}
	}
	if weightSum.IsZero() {
		return out
	}

	target := ToPence(total)
	targetPence := target.Shift(PenceScale).IntPart()

	type remainder struct {
		index    int
		fraction decimal.Decimal
	}
	remainders := make([]remainder, 0, len(weights))

	var allocated int64
	for i, w := range weights {
		if !w.IsPositive() {
			continue
		}
		exact := w.Mul(target).Div(weightSum).Shift(PenceScale)
		floor := exact.Floor()
		out[i] = floor
		allocated += floor.IntPart()
		remainders = append(remainders, remainder{index: i, fraction: exact.Sub(floor)})
	}

	sort.SliceStable(remainders, func(a, b int) bool {
		return remainders[a].fraction.GreaterThan(remainders[b].fraction)
	})

	leftover := targetPence - allocated
	for k := 0; int64(k) < leftover && k < len(remainders); k++ {
		idx := remainders[k].index
		out[idx] = out[idx].Add(decimal.NewFromInt(1))
	}
	// Division is rounded at decimal.DivisionPrecision, so a floor can land
	// one penny high; take it back from the smallest remainders.
	for k := len(remainders) - 1; leftover < 0 && k >= 0; k-- {
		idx := remainders[k].index
		out[idx] = out[idx].Sub(decimal.NewFromInt(1))
		leftover++
	}

	for i := range out {
		out[i] = out[i].Shift(-PenceScale)
	}
	return out
}
