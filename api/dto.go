/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Allocation:
    AllocationDTO, InterestSummaryDTO, ParcelInterestDTO, EntityInterestDTO

  Profit matrix:
    ProfitMatrixRequest, ProfitMatrixDTO, MatrixCellDTO

  Loan ledger:
    RecordTransactionRequest, TransactionDTO

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

MONEY IN JSON:
  Internally everything is decimal.Decimal; at the boundary money and
  bushel figures are emitted as float64 after the engines have already
  rounded them, so clients see plain JSON numbers.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - finance package: The engine outputs these DTOs mirror
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/agrimark/farm-engine/finance"
)

// =============================================================================
// ALLOCATION TYPES
// =============================================================================

// AllocationDTO is a farm's loan cost allocation for a year.
type AllocationDTO struct {
	FarmID string `json:"farm_id"`
	Year   int    `json:"year"`

	LandLoanInterest       float64 `json:"land_loan_interest"`
	LandLoanPrincipal      float64 `json:"land_loan_principal"`
	OperatingLoanInterest  float64 `json:"operating_loan_interest"`
	EquipmentLoanInterest  float64 `json:"equipment_loan_interest"`
	EquipmentLoanPrincipal float64 `json:"equipment_loan_principal"`

	TotalInterest  float64 `json:"total_interest"`
	TotalPrincipal float64 `json:"total_principal"`
	TotalLoanCost  float64 `json:"total_loan_cost"`
}

func toAllocationDTO(a finance.FarmInterestAllocation) AllocationDTO {
	return AllocationDTO{
		FarmID:                 string(a.FarmID),
		Year:                   a.Year,
		LandLoanInterest:       money(a.LandLoanInterest),
		LandLoanPrincipal:      money(a.LandLoanPrincipal),
		OperatingLoanInterest:  money(a.OperatingLoanInterest),
		EquipmentLoanInterest:  money(a.EquipmentLoanInterest),
		EquipmentLoanPrincipal: money(a.EquipmentLoanPrincipal),
		TotalInterest:          money(a.TotalInterest),
		TotalPrincipal:         money(a.TotalPrincipal),
		TotalLoanCost:          money(a.TotalLoanCost),
	}
}

// ParcelInterestDTO is one parcel's annual land-loan cost.
type ParcelInterestDTO struct {
	ParcelID   string  `json:"parcel_id"`
	ParcelName string  `json:"parcel_name"`
	Interest   float64 `json:"interest"`
	Principal  float64 `json:"principal"`
}

// EntityInterestDTO is one grain entity's YTD operating interest.
type EntityInterestDTO struct {
	EntityID   string  `json:"entity_id"`
	EntityName string  `json:"entity_name"`
	Interest   float64 `json:"interest"`
}

// InterestSummaryDTO is the business-wide interest rollup.
type InterestSummaryDTO struct {
	BusinessID string `json:"business_id"`
	Year       int    `json:"year"`

	Parcels  []ParcelInterestDTO `json:"parcels"`
	Entities []EntityInterestDTO `json:"entities"`

	TotalLandInterest      float64 `json:"total_land_interest"`
	TotalLandPrincipal     float64 `json:"total_land_principal"`
	TotalOperatingInterest float64 `json:"total_operating_interest"`
}

func toInterestSummaryDTO(s finance.InterestSummary) InterestSummaryDTO {
	dto := InterestSummaryDTO{
		BusinessID:             string(s.BusinessID),
		Year:                   s.Year,
		Parcels:                make([]ParcelInterestDTO, 0, len(s.Parcels)),
		Entities:               make([]EntityInterestDTO, 0, len(s.Entities)),
		TotalLandInterest:      money(s.TotalLandInterest),
		TotalLandPrincipal:     money(s.TotalLandPrincipal),
		TotalOperatingInterest: money(s.TotalOperatingInterest),
	}
	for _, p := range s.Parcels {
		dto.Parcels = append(dto.Parcels, ParcelInterestDTO{
			ParcelID:   string(p.ParcelID),
			ParcelName: p.ParcelName,
			Interest:   money(p.Interest),
			Principal:  money(p.Principal),
		})
	}
	for _, e := range s.Entities {
		dto.Entities = append(dto.Entities, EntityInterestDTO{
			EntityID:   string(e.EntityID),
			EntityName: e.EntityName,
			Interest:   money(e.Interest),
		})
	}
	return dto
}

// =============================================================================
// PROFIT MATRIX TYPES
// =============================================================================

// ProfitMatrixRequest tunes the scenario grid. Zero values mean
// defaults; omitted bounds mean the percentage spreads apply.
type ProfitMatrixRequest struct {
	YieldSteps int `json:"yield_steps,omitempty"`
	PriceSteps int `json:"price_steps,omitempty"`

	YieldMin *float64 `json:"yield_min,omitempty"`
	YieldMax *float64 `json:"yield_max,omitempty"`
	PriceMin *float64 `json:"price_min,omitempty"`
	PriceMax *float64 `json:"price_max,omitempty"`

	Basis       float64  `json:"basis,omitempty"`
	CountyYield *float64 `json:"county_yield,omitempty"`

	// AsOf anchors the operating-loan day count (YYYY-MM-DD). Empty
	// means today.
	AsOf string `json:"as_of,omitempty"`
}

// GridOptions converts the request into engine options.
func (r ProfitMatrixRequest) GridOptions() finance.GridOptions {
	return finance.GridOptions{
		YieldSteps:  r.YieldSteps,
		PriceSteps:  r.PriceSteps,
		YieldMin:    decPtr(r.YieldMin),
		YieldMax:    decPtr(r.YieldMax),
		PriceMin:    decPtr(r.PriceMin),
		PriceMax:    decPtr(r.PriceMax),
		Basis:       decimal.NewFromFloat(r.Basis),
		CountyYield: decPtr(r.CountyYield),
	}
}

// MatrixCellDTO is one (yield, price) outcome, per acre.
type MatrixCellDTO struct {
	Yield float64 `json:"yield"`
	Price float64 `json:"price"`

	GrossRevenue     float64 `json:"gross_revenue"`
	InsurancePayout  float64 `json:"insurance_payout"`
	InsurancePremium float64 `json:"insurance_premium"`
	TruckingCost     float64 `json:"trucking_cost"`
	TotalCost        float64 `json:"total_cost"`
	NetProfit        float64 `json:"net_profit"`
}

// CostBreakdownDTO is the per-acre cost by category.
type CostBreakdownDTO struct {
	Fertilizer float64 `json:"fertilizer"`
	Chemical   float64 `json:"chemical"`
	Seed       float64 `json:"seed"`
	LandRent   float64 `json:"land_rent"`
	OtherCosts float64 `json:"other_costs"`
	LoanCost   float64 `json:"loan_cost"`
}

// ProfitMatrixDTO is the full matrix response.
type ProfitMatrixDTO struct {
	FarmID    string `json:"farm_id"`
	FarmName  string `json:"farm_name"`
	Commodity string `json:"commodity"`
	Year      int    `json:"year"`

	Acres          float64 `json:"acres"`
	APH            float64 `json:"aph"`
	ProjectedYield float64 `json:"projected_yield"`

	TotalCostPerAcre     float64          `json:"total_cost_per_acre"`
	CostBreakdown        CostBreakdownDTO `json:"cost_breakdown"`
	TruckingFeePerBushel float64          `json:"trucking_fee_per_bushel"`
	BreakEvenPrice       float64          `json:"break_even_price"`

	MarketedBushels   float64 `json:"marketed_bushels"`
	MarketedAvgPrice  float64 `json:"marketed_avg_price"`
	MarketedBuPerAcre float64 `json:"marketed_bu_per_acre"`

	YieldAxis []float64         `json:"yield_axis"`
	PriceAxis []float64         `json:"price_axis"`
	Cells     [][]MatrixCellDTO `json:"cells"`
}

func toProfitMatrixDTO(m *finance.ProfitMatrix) ProfitMatrixDTO {
	dto := ProfitMatrixDTO{
		FarmID:               string(m.FarmID),
		FarmName:             m.FarmName,
		Commodity:            string(m.Commodity),
		Year:                 m.Year,
		Acres:                m.Acres.InexactFloat64(),
		APH:                  m.APH.InexactFloat64(),
		ProjectedYield:       m.ProjectedYield.InexactFloat64(),
		TotalCostPerAcre:     money(m.CostBasis.TotalCostPerAcre),
		TruckingFeePerBushel: money(m.TruckingFeePerBushel),
		BreakEvenPrice:       money(m.BreakEvenPrice),
		MarketedBushels:      m.Marketed.MarketedBushels.InexactFloat64(),
		MarketedAvgPrice:     money(m.Marketed.MarketedAvgPrice),
		MarketedBuPerAcre:    m.Marketed.MarketedBuPerAcre.InexactFloat64(),
		CostBreakdown: CostBreakdownDTO{
			Fertilizer: money(m.CostBasis.Breakdown.Fertilizer),
			Chemical:   money(m.CostBasis.Breakdown.Chemical),
			Seed:       money(m.CostBasis.Breakdown.Seed),
			LandRent:   money(m.CostBasis.Breakdown.LandRent),
			OtherCosts: money(m.CostBasis.Breakdown.OtherCosts),
			LoanCost:   money(m.CostBasis.Breakdown.LoanCost),
		},
	}

	dto.YieldAxis = make([]float64, len(m.YieldAxis))
	for i, y := range m.YieldAxis {
		dto.YieldAxis[i] = y.InexactFloat64()
	}
	dto.PriceAxis = make([]float64, len(m.PriceAxis))
	for j, p := range m.PriceAxis {
		dto.PriceAxis[j] = p.InexactFloat64()
	}

	dto.Cells = make([][]MatrixCellDTO, len(m.Cells))
	for i, row := range m.Cells {
		out := make([]MatrixCellDTO, len(row))
		for j, c := range row {
			out[j] = MatrixCellDTO{
				Yield:            c.Yield.InexactFloat64(),
				Price:            c.Price.InexactFloat64(),
				GrossRevenue:     money(c.GrossRevenue),
				InsurancePayout:  money(c.InsurancePayout),
				InsurancePremium: money(c.InsurancePremium),
				TruckingCost:     money(c.TruckingCost),
				TotalCost:        money(c.TotalCost),
				NetProfit:        money(c.NetProfit),
			}
		}
		dto.Cells[i] = out
	}
	return dto
}

// =============================================================================
// LOAN LEDGER TYPES
// =============================================================================

// RecordTransactionRequest is a draw or payment against an operating loan.
type RecordTransactionRequest struct {
	Type        string  `json:"type"` // DRAW or PAYMENT
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"` // YYYY-MM-DD, empty means today
	Description string  `json:"description,omitempty"`
}

// TransactionDTO is one ledger entry.
type TransactionDTO struct {
	ID           string  `json:"id"`
	LoanID       string  `json:"loan_id"`
	Type         string  `json:"type"`
	Amount       float64 `json:"amount"`
	Date         string  `json:"date"`
	Description  string  `json:"description,omitempty"`
	BalanceAfter float64 `json:"balance_after"`
	CreatedAt    string  `json:"created_at"`
}

// =============================================================================
// SCENARIO TYPES
// =============================================================================

// ScenarioDTO describes a loadable demo dataset.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects the scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func money(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func decPtr(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}
