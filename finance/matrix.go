/*
matrix.go - Profit matrix engine

PURPOSE:
  Orchestrates the cost basis, scenario axes, marketed-grain valuation
  and insurance indemnities into a yield x price profit matrix with a
  break-even price.

REVENUE MODEL PER CELL:
  Bushels already marketed sell at the contracts' weighted average
  price, capped at the scenario yield (you cannot deliver grain that
  did not grow). Everything above the marketed volume sells at the
  scenario price plus any flat basis adjustment.

FAILURE SEMANTICS:
  A missing farm is a hard error. A missing policy, missing loans or
  missing contracts contribute zero and never fail the call.
*/
package finance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrimark/farm-engine/farm"
)

// =============================================================================
// INDEMNITY COLLABORATOR - external crop-insurance formula
// =============================================================================

// Indemnity is a per-acre insurance payout split by coverage layer.
type Indemnity struct {
	Base decimal.Decimal
	SCO  decimal.Decimal
	ECO  decimal.Decimal
}

func (i Indemnity) Total() decimal.Decimal {
	return i.Base.Add(i.SCO).Add(i.ECO)
}

// IndemnityCalculator computes scenario indemnities. The actual RMA
// formulas live outside this module; countyYield is nil when no
// area-yield simulation input was supplied.
type IndemnityCalculator interface {
	CalculateIndemnity(policy *farm.InsurancePolicy, aph, yield, price decimal.Decimal,
		countyYield *decimal.Decimal) Indemnity
}

// ZeroIndemnity is the default collaborator: no payouts. Useful when
// no insurance integration is configured.
type ZeroIndemnity struct{}

func (ZeroIndemnity) CalculateIndemnity(*farm.InsurancePolicy, decimal.Decimal, decimal.Decimal,
	decimal.Decimal, *decimal.Decimal) Indemnity {
	return Indemnity{}
}

// =============================================================================
// MATRIX OUTPUT
// =============================================================================

// MarketedPosition summarizes the farm's contracted grain.
type MarketedPosition struct {
	MarketedBushels     decimal.Decimal
	MarketedValue       decimal.Decimal
	MarketedBuPerAcre   decimal.Decimal
	MarketedAvgPrice    decimal.Decimal
	UnmarketedBuPerAcre decimal.Decimal
}

// Cell is one (yield, price) outcome. All money fields are per acre
// and rounded to cents.
type Cell struct {
	Yield decimal.Decimal `json:"yield"`
	Price decimal.Decimal `json:"price"`

	GrossRevenue     decimal.Decimal `json:"grossRevenue"`
	InsurancePayout  decimal.Decimal `json:"insurancePayout"`
	InsurancePremium decimal.Decimal `json:"insurancePremium"`
	TruckingCost     decimal.Decimal `json:"truckingCost"`
	TotalCost        decimal.Decimal `json:"totalCost"`
	NetProfit        decimal.Decimal `json:"netProfit"`
}

// ProfitMatrix is the engine's full response.
type ProfitMatrix struct {
	FarmID    farm.FarmID
	FarmName  string
	Commodity farm.Commodity
	Year      int

	Acres          decimal.Decimal
	APH            decimal.Decimal
	ProjectedYield decimal.Decimal

	CostBasis            CostBasis
	TruckingFeePerBushel decimal.Decimal
	Marketed             MarketedPosition

	YieldAxis []decimal.Decimal
	PriceAxis []decimal.Decimal
	Cells     [][]Cell // Cells[i][j] pairs YieldAxis[i] with PriceAxis[j]

	BreakEvenPrice decimal.Decimal
}

// =============================================================================
// MATRIX ENGINE
// =============================================================================

// MatrixEngine computes profit matrices. Stateless per invocation.
type MatrixEngine struct {
	repo      farm.Repository
	alloc     *AllocationEngine
	indemnity IndemnityCalculator
}

func NewMatrixEngine(repo farm.Repository, alloc *AllocationEngine, indemnity IndemnityCalculator) *MatrixEngine {
	if indemnity == nil {
		indemnity = ZeroIndemnity{}
	}
	return &MatrixEngine{repo: repo, alloc: alloc, indemnity: indemnity}
}

// ProfitMatrix builds the full matrix for a farm. asOf anchors the
// operating-loan day count in the underlying allocation.
func (m *MatrixEngine) ProfitMatrix(ctx context.Context, farmID farm.FarmID,
	businessID farm.BusinessID, opts GridOptions, asOf time.Time) (*ProfitMatrix, error) {

	f, err := m.repo.FindFarm(ctx, farmID, businessID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, farm.ErrFarmNotFound
	}

	alloc, err := m.alloc.FarmAllocation(ctx, farmID, businessID, f.Year, asOf)
	if err != nil {
		return nil, err
	}
	basis := BuildCostBasis(f, alloc)

	truckingFee, err := m.resolveTruckingFee(ctx, f)
	if err != nil {
		return nil, err
	}

	policy, err := m.repo.FindInsurancePolicy(ctx, farmID, businessID)
	if err != nil {
		return nil, err
	}

	marketed := marketedPosition(f)

	yieldAxis, err := YieldAxis(f.APH, opts)
	if err != nil {
		return nil, err
	}
	priceAxis, err := PriceAxis(f.Commodity, BasePrice(f.Commodity, policy), opts)
	if err != nil {
		return nil, err
	}

	premium := decimal.Zero
	if policy != nil {
		premium = policy.PremiumTotalPerAcre()
	}

	cells := make([][]Cell, len(yieldAxis))
	for i, y := range yieldAxis {
		row := make([]Cell, len(priceAxis))
		for j, p := range priceAxis {
			row[j] = m.buildCell(f, policy, basis, marketed, truckingFee, premium, y, p, opts)
		}
		cells[i] = row
	}

	return &ProfitMatrix{
		FarmID:               f.ID,
		FarmName:             f.Name,
		Commodity:            f.Commodity,
		Year:                 f.Year,
		Acres:                f.Acres,
		APH:                  f.APH,
		ProjectedYield:       f.ProjectedYield,
		CostBasis:            basis,
		TruckingFeePerBushel: truckingFee,
		Marketed:             marketed,
		YieldAxis:            yieldAxis,
		PriceAxis:            priceAxis,
		Cells:                cells,
		BreakEvenPrice:       breakEvenPrice(basis.TotalCostPerAcre, f.ProjectedYield, truckingFee),
	}, nil
}

func (m *MatrixEngine) buildCell(f *farm.Farm, policy *farm.InsurancePolicy, basis CostBasis,
	marketed MarketedPosition, truckingFee, premium, scenarioYield, scenarioPrice decimal.Decimal,
	opts GridOptions) Cell {

	// Marketed bushels cap at what actually grew; the rest floats.
	actualMarketed := decimal.Min(marketed.MarketedBuPerAcre, scenarioYield)
	actualUnmarketed := scenarioYield.Sub(marketed.MarketedBuPerAcre)
	if actualUnmarketed.IsNegative() {
		actualUnmarketed = decimal.Zero
	}

	floatPrice := scenarioPrice.Add(opts.Basis)
	gross := actualMarketed.Mul(marketed.MarketedAvgPrice).Add(actualUnmarketed.Mul(floatPrice))

	payout := decimal.Zero
	if policy != nil {
		payout = m.indemnity.CalculateIndemnity(policy, f.APH, scenarioYield, scenarioPrice, opts.CountyYield).Total()
	}

	trucking := truckingFee.Mul(scenarioYield)
	totalCost := basis.TotalCostPerAcre.Add(trucking)
	net := gross.Sub(totalCost).Sub(premium).Add(payout)

	return Cell{
		Yield:            scenarioYield,
		Price:            scenarioPrice,
		GrossRevenue:     round2(gross),
		InsurancePayout:  round2(payout),
		InsurancePremium: round2(premium),
		TruckingCost:     round2(trucking),
		TotalCost:        round2(totalCost),
		NetProfit:        round2(net),
	}
}

func (m *MatrixEngine) resolveTruckingFee(ctx context.Context, f *farm.Farm) (decimal.Decimal, error) {
	if f.TruckingFeePerBushel != nil {
		return *f.TruckingFeePerBushel, nil
	}
	b, err := m.repo.FindBusiness(ctx, f.BusinessID)
	if err != nil {
		return decimal.Zero, err
	}
	if b == nil {
		return decimal.Zero, nil
	}
	return b.DefaultTruckingFeePerBushel, nil
}

// marketedPosition accumulates the farm's priced contract allocations.
// Unpriced accumulators (effective price <= 0) are skipped so they do
// not drag down the weighted average.
func marketedPosition(f *farm.Farm) MarketedPosition {
	bushels, value := decimal.Zero, decimal.Zero
	for _, c := range f.Contracts {
		if c.Deleted || !c.Active || c.Year != f.Year || c.Commodity != f.Commodity {
			continue
		}
		price := c.EffectivePrice()
		if !price.IsPositive() {
			continue
		}
		bushels = bushels.Add(c.AllocatedBushels)
		value = value.Add(c.AllocatedBushels.Mul(price))
	}

	perAcre := safeDiv(bushels, f.Acres)
	unmarketed := f.ProjectedYield.Sub(perAcre)
	if unmarketed.IsNegative() {
		unmarketed = decimal.Zero
	}

	return MarketedPosition{
		MarketedBushels:     bushels,
		MarketedValue:       value,
		MarketedBuPerAcre:   perAcre,
		MarketedAvgPrice:    safeDiv(value, bushels),
		UnmarketedBuPerAcre: unmarketed,
	}
}

// breakEvenPrice is the price per bushel that covers the cost basis at
// the projected yield, plus hauling.
func breakEvenPrice(totalCostPerAcre, projectedYield, truckingFee decimal.Decimal) decimal.Decimal {
	if !projectedYield.IsPositive() {
		return decimal.Zero
	}
	return round2(totalCostPerAcre.Div(projectedYield).Add(truckingFee))
}
