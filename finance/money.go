package finance

import "github.com/shopspring/decimal"

// =============================================================================
// MONEY HELPERS - fixed-point rounding rules
// =============================================================================

// All monetary outputs round to 2 decimals; scenario prices round to
// the commodity tick. Rounding happens at the edges - intermediate
// arithmetic keeps full decimal precision.

var (
	daysPerYear = decimal.NewFromInt(365)
	twelve      = decimal.NewFromInt(12)
)

// round2 rounds to cents, half away from zero.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// roundToStep rounds to the nearest multiple of step (e.g. $0.05).
func roundToStep(d, step decimal.Decimal) decimal.Decimal {
	if step.IsZero() {
		return d
	}
	return d.Div(step).Round(0).Mul(step)
}

// safeDiv returns a/b, or zero when b is zero.
func safeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}
