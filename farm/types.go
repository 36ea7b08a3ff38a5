/*
Package farm defines the value objects of the farm-business domain.

PURPOSE:
  This package contains the plain records the financial engines compute
  over: businesses and their grain entities, land parcels with their
  loans, operating credit lines, financed equipment, and the crop-year
  farms themselves with their nested input costs and grain contracts.

KEY CONCEPTS IN THIS FILE (types.go):
  - Business/GrainEntity: ownership hierarchy (a business has entities,
    an entity has farms)
  - LandParcel/LandLoan: ground and the notes against it
  - OperatingLoan: a revolving credit line with a draw/payment ledger
  - EquipmentLoan: amortized or leased machinery financing
  - Farm: one crop-year planting with acres, APH and projected yield

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for every dollar and bushel figure
  2. Plain data: no persistence hooks, no lazy loading - repositories
     return fully populated values
  3. Soft deletion: records carry a Deleted flag; engines skip them

SEE ALSO:
  - repository.go: How these records are fetched
  - ledger.go: The one mutable record (operating loan balance)
  - finance package: The computations consuming these records
*/
package farm

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type BusinessID string
type EntityID string
type FarmID string
type ParcelID string
type LoanID string

// =============================================================================
// COMMODITIES
// =============================================================================

type Commodity string

const (
	CommodityCorn     Commodity = "CORN"
	CommoditySoybeans Commodity = "SOYBEANS"
	CommodityWheat    Commodity = "WHEAT"
)

// =============================================================================
// OWNERSHIP HIERARCHY
// =============================================================================

// Business is the top-level operation. Farm-level settings fall back to
// the business defaults when unset.
type Business struct {
	ID   BusinessID
	Name string

	// Default hauling cost applied when a farm has no explicit fee.
	DefaultTruckingFeePerBushel decimal.Decimal
}

// GrainEntity is a sub-unit of a business (an LLC, a partnership share).
// Operating loans and farms hang off entities, not the business itself.
type GrainEntity struct {
	ID         EntityID
	BusinessID BusinessID
	Name       string
}

// =============================================================================
// LAND
// =============================================================================

// LandParcel is owned ground. A parcel carries zero or more loans; a
// farm is associated with at most one parcel.
type LandParcel struct {
	ID         ParcelID
	BusinessID BusinessID
	Name       string
	TotalAcres decimal.Decimal
	Loans      []LandLoan
}

// LandLoan is a note against a parcel. Two financing modes:
//
//	Full amortization: principal, rate, term and payment are known;
//	annual interest derives from the remaining balance.
//	Simple mode: only an annual payment is known; a fixed 40/60
//	interest/principal split is applied.
type LandLoan struct {
	ID     LoanID
	Lender string
	Active bool

	UseSimpleMode bool

	// Full-amortization fields. Zero values yield zero interest.
	Principal        decimal.Decimal
	InterestRate     decimal.Decimal // annual, e.g. 0.065
	TermMonths       int
	MonthlyPayment   decimal.Decimal
	RemainingBalance decimal.Decimal

	// Simple-mode field.
	AnnualPayment decimal.Decimal

	// Ordered payment history, oldest first.
	Payments []LandLoanPayment
}

// LandLoanPayment is one recorded payment. Each payment splits into
// principal and interest and decrements the loan's remaining balance.
type LandLoanPayment struct {
	Date             time.Time
	Principal        decimal.Decimal
	Interest         decimal.Decimal
	RemainingBalance decimal.Decimal // after this payment, clamped at zero
}

// ApplyPayment records a payment against the loan, splitting the amount
// and clamping the remaining balance at zero.
func (l *LandLoan) ApplyPayment(date time.Time, principal, interest decimal.Decimal) LandLoanPayment {
	remaining := l.RemainingBalance.Sub(principal)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	l.RemainingBalance = remaining

	p := LandLoanPayment{
		Date:             date,
		Principal:        principal,
		Interest:         interest,
		RemainingBalance: remaining,
	}
	l.Payments = append(l.Payments, p)
	return p
}

// =============================================================================
// OPERATING CREDIT
// =============================================================================

// OperatingLoan is a revolving line of credit for a grain entity in a
// given crop year. The balance moves with draws and payments; interest
// accrues daily on the current balance.
type OperatingLoan struct {
	ID             LoanID
	EntityID       EntityID
	Year           int
	CreditLimit    decimal.Decimal
	InterestRate   decimal.Decimal
	CurrentBalance decimal.Decimal
	Active         bool
}

type LoanTransactionType string

const (
	LoanDraw    LoanTransactionType = "DRAW"
	LoanPayment LoanTransactionType = "PAYMENT"
)

// OperatingLoanTransaction is an immutable ledger entry. BalanceAfter
// records the loan balance at the time of the entry; the owning loan's
// CurrentBalance is updated in the same atomic unit as the insert.
type OperatingLoanTransaction struct {
	ID           string
	LoanID       LoanID
	Type         LoanTransactionType
	Amount       decimal.Decimal
	Date         time.Time
	Description  string
	BalanceAfter decimal.Decimal
	CreatedAt    time.Time
}

// =============================================================================
// EQUIPMENT
// =============================================================================

type FinancingType string

const (
	FinancingLoan  FinancingType = "LOAN"
	FinancingLease FinancingType = "LEASE"
)

// EquipmentLoan finances a piece of machinery. Leases never amortize;
// they use the simple 40/60 split of the annual payment. Manual
// overrides, when present, supersede any computed figure.
type EquipmentLoan struct {
	ID            LoanID
	BusinessID    BusinessID
	EquipmentName string
	Year          int
	FinancingType FinancingType
	Active        bool
	Deleted       bool

	// Only flagged loans contribute to the per-acre break-even cost.
	IncludeInBreakeven bool

	UseSimpleMode    bool
	AnnualPayment    decimal.Decimal
	InterestRate     decimal.Decimal
	MonthlyPayment   decimal.Decimal
	RemainingBalance decimal.Decimal

	// Manual overrides always win over computed values.
	AnnualInterestOverride  *decimal.Decimal
	AnnualPrincipalOverride *decimal.Decimal
}

// =============================================================================
// FARM - one crop-year planting
// =============================================================================

// Farm is a planted field for a crop year. It belongs to one grain
// entity and optionally one land parcel.
type Farm struct {
	ID         FarmID
	BusinessID BusinessID
	EntityID   EntityID
	ParcelID   *ParcelID
	Name       string
	Year       int
	Commodity  Commodity
	Deleted    bool

	Acres          decimal.Decimal
	APH            decimal.Decimal // Actual Production History yield
	ProjectedYield decimal.Decimal

	// Per-farm hauling fee; nil falls back to the business default.
	TruckingFeePerBushel *decimal.Decimal

	Fertilizer []InputUsage
	Chemicals  []InputUsage
	Seed       []SeedUsage
	OtherCosts []OtherCost
	Contracts  []ContractAllocation
}

// InputUsage is a fertilizer or chemical application.
type InputUsage struct {
	Product      string
	AmountUsed   decimal.Decimal
	PricePerUnit decimal.Decimal
}

// SeedUsage is seed purchased by the bag.
type SeedUsage struct {
	Variety     string
	BagsUsed    decimal.Decimal
	PricePerBag decimal.Decimal
}

type CostType string

const (
	CostLandRent  CostType = "LAND_RENT"
	CostInsurance CostType = "INSURANCE"
	CostGeneral   CostType = "GENERAL"
)

// OtherCost is a miscellaneous cost record. PerAcre amounts are
// multiplied by farm acres; otherwise Amount is a lump total.
// Insurance-typed records are excluded from the cost basis - the
// policy premium is carried separately to avoid double counting.
type OtherCost struct {
	Name     string
	CostType CostType
	Amount   decimal.Decimal
	PerAcre  bool
}

// ContractAllocation links a farm to a grain contract. Pricing
// components may be partially present; see EffectivePrice.
type ContractAllocation struct {
	ID               string
	ContractNumber   string
	Year             int
	Commodity        Commodity
	AllocatedBushels decimal.Decimal
	CashPrice        *decimal.Decimal
	FuturesPrice     *decimal.Decimal
	BasisPrice       *decimal.Decimal
	Active           bool
	Deleted          bool
}

// EffectivePrice resolves the allocation's price with priority
// cash > futures+basis > futures > basis. A non-positive result marks
// an unpriced accumulator and must be skipped by callers.
func (c ContractAllocation) EffectivePrice() decimal.Decimal {
	if c.CashPrice != nil && c.CashPrice.IsPositive() {
		return *c.CashPrice
	}
	if c.FuturesPrice != nil && c.BasisPrice != nil {
		return c.FuturesPrice.Add(*c.BasisPrice)
	}
	if c.FuturesPrice != nil {
		return *c.FuturesPrice
	}
	if c.BasisPrice != nil {
		return *c.BasisPrice
	}
	return decimal.Zero
}

// =============================================================================
// CROP INSURANCE (consumed, not computed here)
// =============================================================================

// InsurancePolicy is a farm's crop-insurance policy. The indemnity
// formula lives behind finance.IndemnityCalculator; this record only
// carries the inputs the matrix engine needs.
type InsurancePolicy struct {
	FarmID         FarmID
	BusinessID     BusinessID
	ProjectedPrice decimal.Decimal
	PremiumPerAcre decimal.Decimal

	HasSCO            bool
	HasECO            bool
	SCOPremiumPerAcre decimal.Decimal
	ECOPremiumPerAcre decimal.Decimal

	CoverageLevel decimal.Decimal // e.g. 0.85
}

// PremiumTotalPerAcre sums the base premium with any elected SCO/ECO
// rider premiums.
func (p InsurancePolicy) PremiumTotalPerAcre() decimal.Decimal {
	total := p.PremiumPerAcre
	if p.HasSCO {
		total = total.Add(p.SCOPremiumPerAcre)
	}
	if p.HasECO {
		total = total.Add(p.ECOPremiumPerAcre)
	}
	return total
}
