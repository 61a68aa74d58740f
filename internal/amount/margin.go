package amount

import "github.com/shopspring/decimal"

var marginMultiplier = decimal.NewFromFloat(1.01)

// ApplyMargin adds the +1% safety margin and rounds up to 8 decimal places,
// so the returned amount is never rejected by the target's own boundary
// validation. 0.001 becomes 0.00101 exactly.
func ApplyMargin(v float64) float64 {
	d := decimal.NewFromFloat(v).Mul(marginMultiplier)
	return d.Shift(8).Ceil().Shift(-8).InexactFloat64()
}
