/*
costbasis.go - Per-acre cost basis for a crop-year farm

PURPOSE:
  Sums a farm's input costs (fertilizer, chemical, seed, land rent,
  other) with its allocated loan costs into a total and a per-category
  per-acre breakdown.

RULES:
  - Insurance-typed other-cost records are excluded: the policy premium
    is applied per-scenario by the matrix engine, and counting it here
    would double it.
  - Operating-loan PRINCIPAL is excluded from loan cost: operating
    lines are revolving, not amortizing.
  - Trucking is excluded: it is yield-dependent and belongs to the
    scenario, not the basis.
  - Each per-acre category rounds to cents; zero acres short-circuits
    to an all-zero breakdown.
*/
package finance

import (
	"github.com/shopspring/decimal"

	"github.com/agrimark/farm-engine/farm"
)

// CostBreakdown is the per-acre cost by category, rounded to cents.
type CostBreakdown struct {
	Fertilizer decimal.Decimal
	Chemical   decimal.Decimal
	Seed       decimal.Decimal
	LandRent   decimal.Decimal
	OtherCosts decimal.Decimal
	LoanCost   decimal.Decimal
}

// CostBasis is the builder's result.
type CostBasis struct {
	TotalCostPerAcre decimal.Decimal
	Breakdown        CostBreakdown
}

// BuildCostBasis computes the farm's cost basis from its loaded usage
// records and loan allocation. Pure function.
func BuildCostBasis(f *farm.Farm, alloc FarmInterestAllocation) CostBasis {
	fertilizer := inputTotal(f.Fertilizer)
	chemical := inputTotal(f.Chemicals)

	seed := decimal.Zero
	for _, s := range f.Seed {
		seed = seed.Add(s.BagsUsed.Mul(s.PricePerBag))
	}

	landRent, other := decimal.Zero, decimal.Zero
	for _, c := range f.OtherCosts {
		if c.CostType == farm.CostInsurance {
			continue
		}
		amount := c.Amount
		if c.PerAcre {
			amount = amount.Mul(f.Acres)
		}
		if c.CostType == farm.CostLandRent {
			landRent = landRent.Add(amount)
		} else {
			other = other.Add(amount)
		}
	}

	// Revolving operating principal is not a cost of production.
	loanCost := alloc.EquipmentLoanInterest.
		Add(alloc.EquipmentLoanPrincipal).
		Add(alloc.LandLoanInterest).
		Add(alloc.LandLoanPrincipal).
		Add(alloc.OperatingLoanInterest)

	if !f.Acres.IsPositive() {
		return CostBasis{}
	}

	breakdown := CostBreakdown{
		Fertilizer: round2(fertilizer.Div(f.Acres)),
		Chemical:   round2(chemical.Div(f.Acres)),
		Seed:       round2(seed.Div(f.Acres)),
		LandRent:   round2(landRent.Div(f.Acres)),
		OtherCosts: round2(other.Div(f.Acres)),
		LoanCost:   round2(loanCost.Div(f.Acres)),
	}

	total := fertilizer.Add(chemical).Add(seed).Add(landRent).Add(other).Add(loanCost)
	return CostBasis{
		TotalCostPerAcre: round2(total.Div(f.Acres)),
		Breakdown:        breakdown,
	}
}

func inputTotal(usages []farm.InputUsage) decimal.Decimal {
	total := decimal.Zero
	for _, u := range usages {
		total = total.Add(u.AmountUsed.Mul(u.PricePerUnit))
	}
	return total
}
