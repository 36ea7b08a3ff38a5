/*
Package finance computes loan cost allocations and profit scenarios for
crop-year farms.

PURPOSE:
  This package is the numerical core of the platform. It converts
  heterogeneous debt instruments (land notes, operating credit lines,
  equipment loans and leases) and input costs into a per-acre cost
  basis, then simulates profit across a grid of yield and price
  outcomes with crop-insurance indemnities and marketed-grain pricing
  folded in.

COMPONENTS (leaf first):
  costalloc.go  - annual interest/principal for a single loan
  allocation.go - business-wide aggregation and farm-level allocation
  costbasis.go  - input costs + loan costs -> per-acre breakdown
  scenario.go   - yield and price scenario axes
  matrix.go     - the profit matrix and break-even price

DESIGN PRINCIPLES:
  1. Pure computation: engines hold repository references and an
     explicit as-of date, never mutable state. Repeated calls with
     unchanged inputs produce identical output.
  2. Precision: decimal.Decimal end to end, rounding only at the edges.
  3. Tolerance: missing optional data (loans, policies, contracts) is a
     zero contribution, never an error.
*/
package finance

import (
	"github.com/shopspring/decimal"

	"github.com/agrimark/farm-engine/farm"
)

// =============================================================================
// COST ALLOCATOR - annual interest/principal for one loan
// =============================================================================

// Simple-mode heuristic: an annual payment splits 40% interest,
// 60% principal. No amortization schedule is computed.
var (
	simpleInterestShare  = decimal.NewFromFloat(0.4)
	simplePrincipalShare = decimal.NewFromFloat(0.6)
)

// LoanCost is one loan's annual cost split.
type LoanCost struct {
	Interest  decimal.Decimal
	Principal decimal.Decimal
}

// LandLoanCost computes the annual interest/principal split for a land
// loan. Simple-mode loans use the 40/60 heuristic; amortized loans
// derive interest from the remaining balance. Zero-valued inputs yield
// zero cost - division is never involved.
func LandLoanCost(l farm.LandLoan) LoanCost {
	if l.UseSimpleMode {
		return simpleSplit(l.AnnualPayment)
	}
	return amortizedSplit(l.RemainingBalance, l.InterestRate, l.MonthlyPayment)
}

// EquipmentLoanCost computes the annual split for an equipment loan.
// Manual overrides win over everything; leases always take the simple
// split of the annual payment.
func EquipmentLoanCost(l farm.EquipmentLoan) LoanCost {
	var cost LoanCost
	switch {
	case l.UseSimpleMode || l.FinancingType == farm.FinancingLease:
		cost = simpleSplit(l.AnnualPayment)
	default:
		cost = amortizedSplit(l.RemainingBalance, l.InterestRate, l.MonthlyPayment)
	}

	if l.AnnualInterestOverride != nil {
		cost.Interest = *l.AnnualInterestOverride
	}
	if l.AnnualPrincipalOverride != nil {
		cost.Principal = *l.AnnualPrincipalOverride
	}
	return cost
}

func simpleSplit(annualPayment decimal.Decimal) LoanCost {
	return LoanCost{
		Interest:  annualPayment.Mul(simpleInterestShare),
		Principal: annualPayment.Mul(simplePrincipalShare),
	}
}

func amortizedSplit(remaining, rate, monthlyPayment decimal.Decimal) LoanCost {
	interest := remaining.Mul(rate)
	principal := monthlyPayment.Mul(twelve).Sub(interest)
	if principal.IsNegative() {
		principal = decimal.Zero
	}
	return LoanCost{Interest: interest, Principal: principal}
}
