/*
allocation.go - Loan interest/principal allocation engine

PURPOSE:
  Aggregates per-loan costs across a business's land parcels, operating
  credit lines and equipment, and allocates them to a specific crop-year
  farm.

ALLOCATION POLICY:
  Land:      the parcel's entire annual loan cost goes to the one farm
             associated with it. No acreage proration. (Earlier product
             revisions prorated by acreage ratio; full attribution is
             the canonical behavior.)
  Operating: prorated by the farm's share of the grain entity's total
             acres for the year. Interest is a daily accrual on the
             current balance (rate/365 per day), year to date.
  Equipment: a business-wide per-acre rate times the farm's acres. Only
             loans flagged for break-even inclusion participate.

DAY COUNT:
  For a past or future year the full 365 days accrue (projected). For
  the current year, days from Jan 1 through the as-of date inclusive,
  so Jan 1 accrues exactly one day: balance x rate / 365.

TOLERANCE:
  A missing farm, parcel or entity yields an all-zero allocation, never
  an error.
*/
package finance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrimark/farm-engine/farm"
)

// =============================================================================
// FARM INTEREST ALLOCATION - the engine's output
// =============================================================================

// FarmInterestAllocation is a farm's share of the business's annual
// loan costs, by category.
type FarmInterestAllocation struct {
	FarmID farm.FarmID
	Year   int

	LandLoanInterest       decimal.Decimal
	LandLoanPrincipal      decimal.Decimal
	OperatingLoanInterest  decimal.Decimal
	EquipmentLoanInterest  decimal.Decimal
	EquipmentLoanPrincipal decimal.Decimal

	TotalInterest  decimal.Decimal
	TotalPrincipal decimal.Decimal
	TotalLoanCost  decimal.Decimal
}

func (a *FarmInterestAllocation) sum() {
	a.TotalInterest = a.LandLoanInterest.Add(a.OperatingLoanInterest).Add(a.EquipmentLoanInterest)
	a.TotalPrincipal = a.LandLoanPrincipal.Add(a.EquipmentLoanPrincipal)
	a.TotalLoanCost = a.TotalInterest.Add(a.TotalPrincipal)
}

// EquipmentRates is the business-wide per-acre equipment cost.
type EquipmentRates struct {
	InterestPerAcre  decimal.Decimal
	PrincipalPerAcre decimal.Decimal
}

// =============================================================================
// ALLOCATION ENGINE
// =============================================================================

// AllocationEngine computes farm-level loan cost allocations. It is
// stateless: every call re-reads the repository and computes against
// the supplied as-of date.
type AllocationEngine struct {
	repo farm.Repository
}

func NewAllocationEngine(repo farm.Repository) *AllocationEngine {
	return &AllocationEngine{repo: repo}
}

// FarmAllocation returns the farm's loan cost allocation for a fiscal
// year. asOf anchors the operating-loan day count.
func (e *AllocationEngine) FarmAllocation(ctx context.Context, farmID farm.FarmID,
	businessID farm.BusinessID, year int, asOf time.Time) (FarmInterestAllocation, error) {

	alloc := FarmInterestAllocation{FarmID: farmID, Year: year}

	f, err := e.repo.FindFarm(ctx, farmID, businessID)
	if err != nil {
		return alloc, err
	}
	if f == nil {
		alloc.sum()
		return alloc, nil
	}

	// Land: full attribution of the parcel's annual loan cost.
	if f.ParcelID != nil {
		parcel, err := e.repo.FindParcel(ctx, *f.ParcelID)
		if err != nil {
			return alloc, err
		}
		if parcel != nil {
			for _, loan := range parcel.Loans {
				if !loan.Active {
					continue
				}
				cost := LandLoanCost(loan)
				alloc.LandLoanInterest = alloc.LandLoanInterest.Add(cost.Interest)
				alloc.LandLoanPrincipal = alloc.LandLoanPrincipal.Add(cost.Principal)
			}
		}
	}

	// Operating: entity YTD interest prorated by acreage share.
	entityInterest, err := e.entityOperatingInterest(ctx, f.EntityID, year, asOf)
	if err != nil {
		return alloc, err
	}
	if entityInterest.IsPositive() {
		entityAcres, err := e.repo.SumEntityAcres(ctx, f.EntityID, year)
		if err != nil {
			return alloc, err
		}
		if entityAcres.IsPositive() {
			share := f.Acres.Div(entityAcres)
			alloc.OperatingLoanInterest = entityInterest.Mul(share)
		}
	}

	// Equipment: business per-acre rate times farm acres.
	rates, err := e.EquipmentCostPerAcre(ctx, f.BusinessID, year)
	if err != nil {
		return alloc, err
	}
	alloc.EquipmentLoanInterest = rates.InterestPerAcre.Mul(f.Acres)
	alloc.EquipmentLoanPrincipal = rates.PrincipalPerAcre.Mul(f.Acres)

	alloc.sum()
	return alloc, nil
}

// EquipmentCostPerAcre sums the annual cost of every break-even-flagged
// equipment loan and divides by the business's total farmed acres for
// the year. Zero acres means zero rates.
func (e *AllocationEngine) EquipmentCostPerAcre(ctx context.Context, businessID farm.BusinessID, year int) (EquipmentRates, error) {
	loans, err := e.repo.EquipmentLoans(ctx, businessID, year)
	if err != nil {
		return EquipmentRates{}, err
	}

	totalInterest, totalPrincipal := decimal.Zero, decimal.Zero
	for _, loan := range loans {
		if !loan.IncludeInBreakeven {
			continue
		}
		cost := EquipmentLoanCost(loan)
		totalInterest = totalInterest.Add(cost.Interest)
		totalPrincipal = totalPrincipal.Add(cost.Principal)
	}

	acres, err := e.repo.SumBusinessAcres(ctx, businessID, year)
	if err != nil {
		return EquipmentRates{}, err
	}

	return EquipmentRates{
		InterestPerAcre:  safeDiv(totalInterest, acres),
		PrincipalPerAcre: safeDiv(totalPrincipal, acres),
	}, nil
}

// entityOperatingInterest sums YTD interest across the entity's active
// operating loans for the year.
func (e *AllocationEngine) entityOperatingInterest(ctx context.Context, entityID farm.EntityID, year int, asOf time.Time) (decimal.Decimal, error) {
	loans, err := e.repo.OperatingLoans(ctx, entityID, year)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, loan := range loans {
		total = total.Add(operatingInterestYTD(loan, year, asOf))
	}
	return total, nil
}

// operatingInterestYTD accrues daily interest on the current balance.
func operatingInterestYTD(loan farm.OperatingLoan, year int, asOf time.Time) decimal.Decimal {
	dailyRate := loan.InterestRate.Div(daysPerYear)
	days := decimal.NewFromInt(int64(daysToUse(year, asOf)))
	return loan.CurrentBalance.Mul(dailyRate).Mul(days)
}

// daysToUse returns 365 for past and future (projected) years; for the
// current year, the days elapsed since Jan 1 inclusive.
func daysToUse(year int, asOf time.Time) int {
	if asOf.Year() != year {
		return 365
	}
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	elapsed := int(asOf.UTC().Sub(jan1).Hours()/24) + 1
	if elapsed < 1 {
		return 1
	}
	if elapsed > 365 {
		return 365
	}
	return elapsed
}

// =============================================================================
// INTEREST SUMMARY - business-wide rollup for reports
// =============================================================================

// ParcelInterest is one parcel's annual land-loan cost, directly
// summed (no farm apportionment).
type ParcelInterest struct {
	ParcelID   farm.ParcelID
	ParcelName string
	Interest   decimal.Decimal
	Principal  decimal.Decimal
}

// EntityInterest is one grain entity's YTD operating-loan interest.
type EntityInterest struct {
	EntityID   farm.EntityID
	EntityName string
	Interest   decimal.Decimal
}

// InterestSummary is the business-wide rollup shown in reports.
type InterestSummary struct {
	BusinessID farm.BusinessID
	Year       int

	Parcels  []ParcelInterest
	Entities []EntityInterest

	TotalLandInterest      decimal.Decimal
	TotalLandPrincipal     decimal.Decimal
	TotalOperatingInterest decimal.Decimal
}

// InterestSummary aggregates per-parcel land interest and per-entity
// operating interest for a business. Same per-loan formulas as the
// farm allocation, without the allocation step.
func (e *AllocationEngine) InterestSummary(ctx context.Context, businessID farm.BusinessID, year int, asOf time.Time) (InterestSummary, error) {
	summary := InterestSummary{BusinessID: businessID, Year: year}

	parcels, err := e.repo.ParcelsByBusiness(ctx, businessID)
	if err != nil {
		return summary, err
	}
	for _, p := range parcels {
		pi := ParcelInterest{ParcelID: p.ID, ParcelName: p.Name}
		for _, loan := range p.Loans {
			if !loan.Active {
				continue
			}
			cost := LandLoanCost(loan)
			pi.Interest = pi.Interest.Add(cost.Interest)
			pi.Principal = pi.Principal.Add(cost.Principal)
		}
		summary.Parcels = append(summary.Parcels, pi)
		summary.TotalLandInterest = summary.TotalLandInterest.Add(pi.Interest)
		summary.TotalLandPrincipal = summary.TotalLandPrincipal.Add(pi.Principal)
	}

	entities, err := e.repo.EntitiesByBusiness(ctx, businessID)
	if err != nil {
		return summary, err
	}
	for _, ent := range entities {
		interest, err := e.entityOperatingInterest(ctx, ent.ID, year, asOf)
		if err != nil {
			return summary, err
		}
		summary.Entities = append(summary.Entities, EntityInterest{
			EntityID:   ent.ID,
			EntityName: ent.Name,
			Interest:   interest,
		})
		summary.TotalOperatingInterest = summary.TotalOperatingInterest.Add(interest)
	}

	return summary, nil
}
