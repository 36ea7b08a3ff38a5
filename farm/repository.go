/*
repository.go - Persistence interfaces for the domain

PURPOSE:
  Defines the boundary between the computation engines and whatever
  stores the records. Engines only ever see these interfaces and plain
  value objects; the query technology behind them is interchangeable.

KEY INTERFACES:
  Repository: Read access to farms, parcels, loans and policies
  LoanLedger: The single write path (operating loan draws/payments)

CONVENTIONS:
  - Find* methods return (nil, nil) when the record is absent: missing
    optional data is a zero contribution, not an error. Callers that
    REQUIRE the record translate nil into ErrFarmNotFound etc.
  - List methods exclude soft-deleted records.
  - All blocking calls take a context.

IMPLEMENTATIONS:
  - farm/store: in-memory, for tests and demo scenarios
  - store/sqlite: production SQLite
*/
package farm

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// REPOSITORY - read side
// =============================================================================

// Repository loads domain records. Implementations return fully
// populated values (a Farm arrives with its inputs, costs and contract
// allocations attached).
type Repository interface {
	// FindFarm returns the farm only if it exists, is not soft-deleted,
	// and belongs to the business. Absent -> (nil, nil).
	FindFarm(ctx context.Context, farmID FarmID, businessID BusinessID) (*Farm, error)

	// FarmsByEntity returns the entity's non-deleted farms for a year.
	FarmsByEntity(ctx context.Context, entityID EntityID, year int) ([]Farm, error)

	// SumEntityAcres totals Farm.Acres across the entity for a year.
	SumEntityAcres(ctx context.Context, entityID EntityID, year int) (decimal.Decimal, error)

	// SumBusinessAcres totals Farm.Acres across every entity of the
	// business for a year.
	SumBusinessAcres(ctx context.Context, businessID BusinessID, year int) (decimal.Decimal, error)

	// FindParcel returns the parcel with its loans. Absent -> (nil, nil).
	FindParcel(ctx context.Context, parcelID ParcelID) (*LandParcel, error)

	// ParcelsByBusiness returns all parcels of a business.
	ParcelsByBusiness(ctx context.Context, businessID BusinessID) ([]LandParcel, error)

	// OperatingLoans returns the entity's active operating loans for a year.
	OperatingLoans(ctx context.Context, entityID EntityID, year int) ([]OperatingLoan, error)

	// EntitiesByBusiness returns the business's grain entities.
	EntitiesByBusiness(ctx context.Context, businessID BusinessID) ([]GrainEntity, error)

	// EquipmentLoans returns active, non-deleted equipment loans for a
	// business and year.
	EquipmentLoans(ctx context.Context, businessID BusinessID, year int) ([]EquipmentLoan, error)

	// FindBusiness returns the business record. Absent -> (nil, nil).
	FindBusiness(ctx context.Context, businessID BusinessID) (*Business, error)

	// FindInsurancePolicy returns the farm's policy. Absent -> (nil, nil).
	FindInsurancePolicy(ctx context.Context, farmID FarmID, businessID BusinessID) (*InsurancePolicy, error)
}

// =============================================================================
// LOAN LEDGER - the one write path
// =============================================================================

// LoanLedger records operating-loan draws and payments.
//
// INVARIANTS:
//   - The ledger row and the loan's CurrentBalance update are applied
//     as a single atomic unit, or not at all (ErrPersistence).
//   - Writes to the same loan serialize: concurrent draws/payments
//     must not race the balance.
//   - Payments clamp the balance at zero; draws are not capped by the
//     credit limit.
type LoanLedger interface {
	// RecordTransaction applies a draw or payment and returns the
	// entry, including the balance after.
	RecordTransaction(ctx context.Context, loanID LoanID, txType LoanTransactionType,
		amount decimal.Decimal, date time.Time, description string) (*OperatingLoanTransaction, error)

	// Transactions returns the loan's ledger, oldest first.
	Transactions(ctx context.Context, loanID LoanID) ([]OperatingLoanTransaction, error)

	// FindOperatingLoan returns the loan record. Absent -> (nil, nil).
	FindOperatingLoan(ctx context.Context, loanID LoanID) (*OperatingLoan, error)
}

// NextBalance computes the balance that results from applying a ledger
// entry to the given balance. Payments clamp at zero.
func NextBalance(balance decimal.Decimal, txType LoanTransactionType, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	switch txType {
	case LoanDraw:
		return balance.Add(amount), nil
	case LoanPayment:
		next := balance.Sub(amount)
		if next.IsNegative() {
			next = decimal.Zero
		}
		return next, nil
	default:
		return decimal.Zero, ErrInvalidTransactionType
	}
}
