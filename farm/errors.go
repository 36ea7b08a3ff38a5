/*
errors.go - Centralized error types for the farm domain

PURPOSE:
  All domain error values in one place. Engines and stores wrap these
  with context; HTTP mapping keys off the sentinels.

ERROR CATEGORIES:
  1. NotFound - a record the caller explicitly asked for is absent
  2. InvalidInput - malformed arguments (bad amounts, bad ranges)
  3. PersistenceFailure - the ledger write could not be applied

Missing OPTIONAL data (loans, policies, contracts) is never an error:
engines treat it as a zero contribution.
*/
package farm

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrFarmNotFound is returned when a farm is missing, soft-deleted,
	// or not owned by the requesting business.
	ErrFarmNotFound = errors.New("farm not found or access denied")

	// ErrLoanNotFound is returned when a referenced loan doesn't exist.
	ErrLoanNotFound = errors.New("loan not found")

	// ErrInvalidAmount is returned for non-positive ledger amounts.
	ErrInvalidAmount = errors.New("transaction amount must be positive")

	// ErrInvalidTransactionType is returned for ledger types other than
	// DRAW or PAYMENT.
	ErrInvalidTransactionType = errors.New("invalid loan transaction type")

	// ErrPersistence is returned when the ledger insert and balance
	// update could not be applied as a single atomic unit.
	ErrPersistence = errors.New("persistence failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// LedgerError wraps a failed ledger write with the loan and amount
// involved.
type LedgerError struct {
	LoanID LoanID
	Type   LoanTransactionType
	Amount decimal.Decimal
	Err    error
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("loan %s %s of %s: %v", e.LoanID, e.Type, e.Amount.StringFixed(2), e.Err)
}

func (e *LedgerError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrFarmNotFound) || errors.Is(err, ErrLoanNotFound)
}

// IsClientError reports whether the error is due to invalid input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) || errors.Is(err, ErrInvalidTransactionType)
}
