package finance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrimark/farm-engine/farm"
	"github.com/agrimark/farm-engine/farm/store"
	"github.com/agrimark/farm-engine/finance"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// newTwoFarmBusiness seeds one business with one entity and two farms
// (100 and 300 acres). Returns the store and engine.
func newTwoFarmBusiness(t *testing.T) (*store.Memory, *finance.AllocationEngine) {
	t.Helper()
	s := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, s.SaveBusiness(ctx, farm.Business{ID: "biz", Name: "Test Farms"}))
	require.NoError(t, s.SaveEntity(ctx, farm.GrainEntity{ID: "ent", BusinessID: "biz", Name: "Main"}))
	require.NoError(t, s.SaveFarm(ctx, farm.Farm{
		ID: "farm-a", BusinessID: "biz", EntityID: "ent",
		Name: "A", Year: 2024, Commodity: farm.CommodityCorn, Acres: dec("100"),
	}))
	require.NoError(t, s.SaveFarm(ctx, farm.Farm{
		ID: "farm-b", BusinessID: "biz", EntityID: "ent",
		Name: "B", Year: 2024, Commodity: farm.CommodityCorn, Acres: dec("300"),
	}))

	return s, finance.NewAllocationEngine(s)
}

// =============================================================================
// OPERATING LOAN PRORATION
// =============================================================================

func TestFarmAllocation_OperatingInterest_ProratedByAcres(t *testing.T) {
	// GIVEN: An entity with 400 total acres and a full-year operating
	// balance accruing 7300 of interest
	// WHEN: Allocating to a 100-acre farm and a 300-acre farm
	// THEN: Each farm gets its acreage share; the shares sum to the whole

	s, engine := newTwoFarmBusiness(t)
	ctx := context.Background()

	// 100000 * 0.073 / 365 = 20/day; past year means 365 days = 7300.
	require.NoError(t, s.SaveOperatingLoan(ctx, farm.OperatingLoan{
		ID: "op", EntityID: "ent", Year: 2024,
		InterestRate: dec("0.073"), CurrentBalance: dec("100000"), Active: true,
	}))

	asOf := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	a, err := engine.FarmAllocation(ctx, "farm-a", "biz", 2024, asOf)
	require.NoError(t, err)
	b, err := engine.FarmAllocation(ctx, "farm-b", "biz", 2024, asOf)
	require.NoError(t, err)

	assert.Equal(t, "1825", a.OperatingLoanInterest.String(), "100/400 of 7300")
	assert.Equal(t, "5475", b.OperatingLoanInterest.String(), "300/400 of 7300")
	assert.Equal(t, "7300", a.OperatingLoanInterest.Add(b.OperatingLoanInterest).String(),
		"shares must sum to the entity total")
}

func TestFarmAllocation_CurrentYear_DayCountFromJanFirst(t *testing.T) {
	// GIVEN: A current-year loan accruing 100/day
	// WHEN: Allocating as of Jan 1 and as of Jan 10
	// THEN: 1 and 10 days of interest accrue respectively

	s, engine := newTwoFarmBusiness(t)
	ctx := context.Background()

	// 500000 * 0.073 / 365 = 100/day.
	require.NoError(t, s.SaveOperatingLoan(ctx, farm.OperatingLoan{
		ID: "op", EntityID: "ent", Year: 2024,
		InterestRate: dec("0.073"), CurrentBalance: dec("500000"), Active: true,
	}))

	jan1 := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	a, err := engine.FarmAllocation(ctx, "farm-a", "biz", 2024, jan1)
	require.NoError(t, err)
	assert.Equal(t, "25", a.OperatingLoanInterest.String(), "1 day, quarter share")

	jan10 := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	a, err = engine.FarmAllocation(ctx, "farm-a", "biz", 2024, jan10)
	require.NoError(t, err)
	assert.Equal(t, "250", a.OperatingLoanInterest.String(), "10 days, quarter share")
}

func TestFarmAllocation_OtherYear_FullYearProjection(t *testing.T) {
	// GIVEN: A loan for a year other than the as-of year
	// WHEN: Allocating
	// THEN: A full 365 days of interest is projected

	s, engine := newTwoFarmBusiness(t)
	ctx := context.Background()

	require.NoError(t, s.SaveOperatingLoan(ctx, farm.OperatingLoan{
		ID: "op", EntityID: "ent", Year: 2024,
		InterestRate: dec("0.073"), CurrentBalance: dec("500000"), Active: true,
	}))

	// As-of in 2023: 2024 is a projection.
	asOf := time.Date(2023, time.November, 1, 0, 0, 0, 0, time.UTC)
	a, err := engine.FarmAllocation(ctx, "farm-a", "biz", 2024, asOf)
	require.NoError(t, err)
	assert.Equal(t, "9125", a.OperatingLoanInterest.String(), "36500 * 100/400")
}

// =============================================================================
// LAND LOANS
// =============================================================================

func TestFarmAllocation_LandLoans_FullyAttributedToParcelFarm(t *testing.T) {
	// GIVEN: A farm on a parcel with one active and one inactive note
	// WHEN: Allocating
	// THEN: The active note's full annual cost lands on the farm; the
	// inactive note contributes nothing

	s, engine := newTwoFarmBusiness(t)
	ctx := context.Background()

	require.NoError(t, s.SaveParcel(ctx, farm.LandParcel{
		ID: "parcel", BusinessID: "biz", Name: "Home", TotalAcres: dec("100"),
		Loans: []farm.LandLoan{
			{ID: "l1", Active: true, RemainingBalance: dec("100000"),
				InterestRate: dec("0.05"), MonthlyPayment: dec("1000")},
			{ID: "l2", Active: false, RemainingBalance: dec("500000"),
				InterestRate: dec("0.09"), MonthlyPayment: dec("9000")},
		},
	}))

	parcelID := farm.ParcelID("parcel")
	require.NoError(t, s.SaveFarm(ctx, farm.Farm{
		ID: "farm-a", BusinessID: "biz", EntityID: "ent", ParcelID: &parcelID,
		Name: "A", Year: 2024, Commodity: farm.CommodityCorn, Acres: dec("100"),
	}))

	a, err := engine.FarmAllocation(ctx, "farm-a", "biz", 2024, time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, "5000", a.LandLoanInterest.String())
	assert.Equal(t, "7000", a.LandLoanPrincipal.String())
}

// =============================================================================
// EQUIPMENT
// =============================================================================

func TestFarmAllocation_Equipment_BusinessWidePerAcreRate(t *testing.T) {
	// GIVEN: A business with 400 acres and an equipment loan costing
	// 6000 interest / 18000 principal, plus an excluded pickup loan
	// WHEN: Allocating to the 100-acre farm
	// THEN: The farm carries 100 acres at the business per-acre rate;
	// the excluded loan never enters the pool

	s, engine := newTwoFarmBusiness(t)
	ctx := context.Background()

	require.NoError(t, s.SaveEquipmentLoan(ctx, farm.EquipmentLoan{
		ID: "eq1", BusinessID: "biz", Year: 2024, FinancingType: farm.FinancingLoan,
		Active: true, IncludeInBreakeven: true,
		RemainingBalance: dec("100000"), InterestRate: dec("0.06"), MonthlyPayment: dec("2000"),
	}))
	require.NoError(t, s.SaveEquipmentLoan(ctx, farm.EquipmentLoan{
		ID: "eq2", BusinessID: "biz", Year: 2024, FinancingType: farm.FinancingLoan,
		Active: true, IncludeInBreakeven: false,
		RemainingBalance: dec("50000"), InterestRate: dec("0.07"), MonthlyPayment: dec("1200"),
	}))

	rates, err := engine.EquipmentCostPerAcre(ctx, "biz", 2024)
	require.NoError(t, err)
	assert.Equal(t, "15", rates.InterestPerAcre.String(), "6000 / 400 acres")
	assert.Equal(t, "45", rates.PrincipalPerAcre.String(), "18000 / 400 acres")

	a, err := engine.FarmAllocation(ctx, "farm-a", "biz", 2024, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, "1500", a.EquipmentLoanInterest.String())
	assert.Equal(t, "4500", a.EquipmentLoanPrincipal.String())
}

func TestEquipmentCostPerAcre_ZeroAcres_ZeroRates(t *testing.T) {
	// GIVEN: Equipment debt but no farmed acres recorded for the year
	// WHEN: Computing the per-acre rate
	// THEN: Rates are zero rather than dividing by zero

	s := store.NewMemory()
	ctx := context.Background()
	engine := finance.NewAllocationEngine(s)

	require.NoError(t, s.SaveEquipmentLoan(ctx, farm.EquipmentLoan{
		ID: "eq1", BusinessID: "biz", Year: 2024, FinancingType: farm.FinancingLoan,
		Active: true, IncludeInBreakeven: true,
		RemainingBalance: dec("100000"), InterestRate: dec("0.06"), MonthlyPayment: dec("2000"),
	}))

	rates, err := engine.EquipmentCostPerAcre(ctx, "biz", 2024)
	require.NoError(t, err)
	assert.True(t, rates.InterestPerAcre.IsZero())
	assert.True(t, rates.PrincipalPerAcre.IsZero())
}

// =============================================================================
// TOTALS AND EDGE CASES
// =============================================================================

func TestFarmAllocation_Totals_SumComponents(t *testing.T) {
	s, engine := newTwoFarmBusiness(t)
	ctx := context.Background()

	require.NoError(t, s.SaveOperatingLoan(ctx, farm.OperatingLoan{
		ID: "op", EntityID: "ent", Year: 2024,
		InterestRate: dec("0.073"), CurrentBalance: dec("100000"), Active: true,
	}))
	require.NoError(t, s.SaveEquipmentLoan(ctx, farm.EquipmentLoan{
		ID: "eq1", BusinessID: "biz", Year: 2024, FinancingType: farm.FinancingLoan,
		Active: true, IncludeInBreakeven: true,
		RemainingBalance: dec("100000"), InterestRate: dec("0.06"), MonthlyPayment: dec("2000"),
	}))

	asOf := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	a, err := engine.FarmAllocation(ctx, "farm-a", "biz", 2024, asOf)
	require.NoError(t, err)

	wantInterest := a.LandLoanInterest.Add(a.OperatingLoanInterest).Add(a.EquipmentLoanInterest)
	wantPrincipal := a.LandLoanPrincipal.Add(a.EquipmentLoanPrincipal)

	assert.True(t, a.TotalInterest.Equal(wantInterest))
	assert.True(t, a.TotalPrincipal.Equal(wantPrincipal))
	assert.True(t, a.TotalLoanCost.Equal(wantInterest.Add(wantPrincipal)))
}

func TestFarmAllocation_MissingFarm_ZeroAllocation(t *testing.T) {
	// GIVEN: A farm ID that doesn't exist for the business
	// WHEN: Allocating
	// THEN: A zero allocation comes back without error - allocation is a
	// supporting computation, not a report

	_, engine := newTwoFarmBusiness(t)

	a, err := engine.FarmAllocation(context.Background(), "nope", "biz", 2024, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, a.TotalLoanCost.IsZero())
}

// =============================================================================
// INTEREST SUMMARY
// =============================================================================

func TestInterestSummary_RollsUpParcelsAndEntities(t *testing.T) {
	// GIVEN: One mortgaged parcel and one entity with an operating line
	// WHEN: Building the business summary
	// THEN: Parcel costs are summed directly (no allocation) and entity
	// operating interest is rolled up

	s, engine := newTwoFarmBusiness(t)
	ctx := context.Background()

	require.NoError(t, s.SaveParcel(ctx, farm.LandParcel{
		ID: "parcel", BusinessID: "biz", Name: "Home", TotalAcres: dec("100"),
		Loans: []farm.LandLoan{{
			ID: "l1", Active: true, RemainingBalance: dec("100000"),
			InterestRate: dec("0.05"), MonthlyPayment: dec("1000"),
		}},
	}))
	require.NoError(t, s.SaveOperatingLoan(ctx, farm.OperatingLoan{
		ID: "op", EntityID: "ent", Year: 2024,
		InterestRate: dec("0.073"), CurrentBalance: dec("100000"), Active: true,
	}))

	asOf := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	summary, err := engine.InterestSummary(ctx, "biz", 2024, asOf)
	require.NoError(t, err)

	require.Len(t, summary.Parcels, 1)
	assert.Equal(t, "5000", summary.Parcels[0].Interest.String())
	assert.Equal(t, "7000", summary.Parcels[0].Principal.String())

	require.Len(t, summary.Entities, 1)
	assert.Equal(t, "7300", summary.Entities[0].Interest.String())

	assert.Equal(t, "5000", summary.TotalLandInterest.String())
	assert.Equal(t, "7000", summary.TotalLandPrincipal.String())
	assert.Equal(t, "7300", summary.TotalOperatingInterest.String())
}
