/*
scenario.go - Yield and price scenario axes

PURPOSE:
  Generates the two axes of the profit matrix. Defaults center on the
  farm's history (APH) and the policy's projected price; explicit
  min/max overrides replace the percentage spreads.

ROUNDING:
  Yields round to whole bushels. Prices round to the commodity tick:
  $0.05 for corn and wheat, $0.10 for soybeans. Ticks apply to
  overridden ranges too.
*/
package finance

import (
	"github.com/shopspring/decimal"

	"github.com/agrimark/farm-engine/farm"
)

// =============================================================================
// GRID OPTIONS - caller overrides
// =============================================================================

// GridOptions tunes the scenario grid. Zero values mean defaults; nil
// bounds mean the percentage spreads apply.
type GridOptions struct {
	YieldSteps int
	PriceSteps int

	YieldMin *decimal.Decimal
	YieldMax *decimal.Decimal
	PriceMin *decimal.Decimal
	PriceMax *decimal.Decimal

	// Basis is added to the scenario price for unmarketed bushels.
	Basis decimal.Decimal

	// CountyYield feeds area-based (SCO/ECO) indemnity simulation.
	CountyYield *decimal.Decimal
}

const defaultSteps = 7

// Yield axis spread: 50%-120% of APH.
var (
	yieldLowFactor  = decimal.NewFromFloat(0.50)
	yieldHighFactor = decimal.NewFromFloat(1.20)

	// Price axis spread: +/-40% of the base price.
	priceSpread = decimal.NewFromFloat(0.40)

	// Fallback yield sequence when APH is unknown: 100, 120, 140, ...
	fallbackYieldStart = decimal.NewFromInt(100)
	fallbackYieldStep  = decimal.NewFromInt(20)
)

// Commodity base prices used when no policy projected price exists.
var commodityBasePrice = map[farm.Commodity]decimal.Decimal{
	farm.CommodityCorn:     decimal.NewFromFloat(4.66),
	farm.CommoditySoybeans: decimal.NewFromFloat(11.20),
	farm.CommodityWheat:    decimal.NewFromFloat(5.50),
}

var defaultBasePrice = decimal.NewFromFloat(5.00)

// priceTick returns the rounding step for a commodity's prices.
func priceTick(c farm.Commodity) decimal.Decimal {
	if c == farm.CommoditySoybeans {
		return decimal.NewFromFloat(0.10)
	}
	return decimal.NewFromFloat(0.05)
}

// BasePrice resolves the price axis center: the policy's projected
// price when present and positive, else the commodity default.
func BasePrice(c farm.Commodity, policy *farm.InsurancePolicy) decimal.Decimal {
	if policy != nil && policy.ProjectedPrice.IsPositive() {
		return policy.ProjectedPrice
	}
	if base, ok := commodityBasePrice[c]; ok {
		return base
	}
	return defaultBasePrice
}

// =============================================================================
// AXIS BUILDERS
// =============================================================================

// YieldAxis builds the yield scenarios. Default: evenly spaced points
// from 50% to 120% of APH; explicit bounds space linearly between
// them; unknown APH falls back to an arithmetic sequence from 100 in
// steps of 20. Points round to whole bushels.
func YieldAxis(aph decimal.Decimal, opts GridOptions) ([]decimal.Decimal, error) {
	steps, err := stepCount(opts.YieldSteps, "yieldSteps")
	if err != nil {
		return nil, err
	}

	if opts.YieldMin != nil && opts.YieldMax != nil {
		if opts.YieldMax.LessThan(*opts.YieldMin) {
			return nil, &GridError{Field: "yieldMax", Reason: "below yieldMin"}
		}
		return linspace(*opts.YieldMin, *opts.YieldMax, steps, decimal.NewFromInt(1)), nil
	}

	if !aph.IsPositive() {
		axis := make([]decimal.Decimal, steps)
		for i := range axis {
			axis[i] = fallbackYieldStart.Add(fallbackYieldStep.Mul(decimal.NewFromInt(int64(i))))
		}
		return axis, nil
	}

	return linspace(aph.Mul(yieldLowFactor), aph.Mul(yieldHighFactor), steps, decimal.NewFromInt(1)), nil
}

// PriceAxis builds the price scenarios around the base price. Explicit
// bounds bypass the percentage spread; the commodity tick applies
// either way.
func PriceAxis(c farm.Commodity, base decimal.Decimal, opts GridOptions) ([]decimal.Decimal, error) {
	steps, err := stepCount(opts.PriceSteps, "priceSteps")
	if err != nil {
		return nil, err
	}

	lo, hi := base.Mul(decimal.NewFromInt(1).Sub(priceSpread)), base.Mul(decimal.NewFromInt(1).Add(priceSpread))
	if opts.PriceMin != nil && opts.PriceMax != nil {
		if opts.PriceMax.LessThan(*opts.PriceMin) {
			return nil, &GridError{Field: "priceMax", Reason: "below priceMin"}
		}
		lo, hi = *opts.PriceMin, *opts.PriceMax
	}

	return linspace(lo, hi, steps, priceTick(c)), nil
}

func stepCount(requested int, field string) (int, error) {
	if requested == 0 {
		return defaultSteps, nil
	}
	if requested < 2 {
		return 0, &GridError{Field: field, Reason: "must be at least 2"}
	}
	return requested, nil
}

// linspace spaces n points evenly over [lo, hi], rounding each to the
// given step. n >= 2 is guaranteed by stepCount.
func linspace(lo, hi decimal.Decimal, n int, tick decimal.Decimal) []decimal.Decimal {
	span := hi.Sub(lo)
	denom := decimal.NewFromInt(int64(n - 1))

	axis := make([]decimal.Decimal, n)
	for i := range axis {
		point := lo.Add(span.Mul(decimal.NewFromInt(int64(i))).Div(denom))
		axis[i] = roundToStep(point, tick)
	}
	return axis
}
