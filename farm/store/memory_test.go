package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrimark/farm-engine/farm"
	"github.com/agrimark/farm-engine/farm/store"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newLedgerStore(t *testing.T) *store.Memory {
	t.Helper()
	s := store.NewMemory()
	require.NoError(t, s.SaveOperatingLoan(context.Background(), farm.OperatingLoan{
		ID: "loan-1", EntityID: "ent", Year: 2025,
		CreditLimit: dec("500000"), CurrentBalance: dec("100000"),
		InterestRate: dec("0.08"), Active: true,
	}))
	return s
}

// =============================================================================
// LEDGER BALANCE MATH
// =============================================================================

func TestRecordTransaction_DrawIncreasesBalance(t *testing.T) {
	s := newLedgerStore(t)
	ctx := context.Background()

	tx, err := s.RecordTransaction(ctx, "loan-1", farm.LoanDraw, dec("25000"),
		time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), "spring inputs")
	require.NoError(t, err)

	assert.Equal(t, "125000", tx.BalanceAfter.String())
	assert.NotEmpty(t, tx.ID)

	loan, err := s.FindOperatingLoan(ctx, "loan-1")
	require.NoError(t, err)
	require.NotNil(t, loan)
	assert.Equal(t, "125000", loan.CurrentBalance.String(), "stored balance tracks the ledger")
}

func TestRecordTransaction_PaymentDecreasesBalance(t *testing.T) {
	s := newLedgerStore(t)

	tx, err := s.RecordTransaction(context.Background(), "loan-1", farm.LoanPayment,
		dec("40000"), time.Now(), "grain check")
	require.NoError(t, err)

	assert.Equal(t, "60000", tx.BalanceAfter.String())
}

func TestRecordTransaction_PaymentClampsAtZero(t *testing.T) {
	// GIVEN: A payment larger than the outstanding balance
	// WHEN: Recording it
	// THEN: The balance floors at zero instead of going negative

	s := newLedgerStore(t)

	tx, err := s.RecordTransaction(context.Background(), "loan-1", farm.LoanPayment,
		dec("150000"), time.Now(), "payoff")
	require.NoError(t, err)

	assert.True(t, tx.BalanceAfter.IsZero())
}

// =============================================================================
// LEDGER ERRORS
// =============================================================================

func TestRecordTransaction_UnknownLoan(t *testing.T) {
	s := newLedgerStore(t)

	_, err := s.RecordTransaction(context.Background(), "nope", farm.LoanDraw,
		dec("1000"), time.Now(), "")

	assert.True(t, errors.Is(err, farm.ErrLoanNotFound))
}

func TestRecordTransaction_NonPositiveAmount(t *testing.T) {
	s := newLedgerStore(t)

	_, err := s.RecordTransaction(context.Background(), "loan-1", farm.LoanDraw,
		dec("0"), time.Now(), "")

	require.Error(t, err)
	assert.True(t, errors.Is(err, farm.ErrInvalidAmount))

	var lerr *farm.LedgerError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, farm.LoanID("loan-1"), lerr.LoanID)
}

func TestRecordTransaction_RejectedTransactionLeavesNoTrace(t *testing.T) {
	// GIVEN: A rejected amount
	// WHEN: Listing the ledger afterwards
	// THEN: Neither the balance nor the history changed

	s := newLedgerStore(t)
	ctx := context.Background()

	_, err := s.RecordTransaction(ctx, "loan-1", farm.LoanDraw, dec("-5"), time.Now(), "")
	require.Error(t, err)

	loan, err := s.FindOperatingLoan(ctx, "loan-1")
	require.NoError(t, err)
	assert.Equal(t, "100000", loan.CurrentBalance.String())

	txs, err := s.Transactions(ctx, "loan-1")
	require.NoError(t, err)
	assert.Empty(t, txs)
}

// =============================================================================
// LEDGER HISTORY
// =============================================================================

func TestTransactions_ReturnsCopies(t *testing.T) {
	s := newLedgerStore(t)
	ctx := context.Background()

	_, err := s.RecordTransaction(ctx, "loan-1", farm.LoanDraw, dec("1000"), time.Now(), "a")
	require.NoError(t, err)

	first, err := s.Transactions(ctx, "loan-1")
	require.NoError(t, err)
	first[0].Description = "mutated"

	again, err := s.Transactions(ctx, "loan-1")
	require.NoError(t, err)
	assert.Equal(t, "a", again[0].Description, "callers cannot reach into the store")
}

func TestRecordTransaction_ConcurrentDraws(t *testing.T) {
	// GIVEN: 50 goroutines each drawing 100
	// WHEN: All complete
	// THEN: The balance reflects every draw exactly once

	s := newLedgerStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.RecordTransaction(ctx, "loan-1", farm.LoanDraw, dec("100"), time.Now(), "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	loan, err := s.FindOperatingLoan(ctx, "loan-1")
	require.NoError(t, err)
	assert.Equal(t, "105000", loan.CurrentBalance.String())

	txs, err := s.Transactions(ctx, "loan-1")
	require.NoError(t, err)
	assert.Len(t, txs, 50)
}

// =============================================================================
// REPOSITORY LOOKUPS
// =============================================================================

func TestFindFarm_ScopedToBusiness(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, s.SaveFarm(ctx, farm.Farm{
		ID: "farm-1", BusinessID: "biz-a", EntityID: "ent",
		Name: "Home 80", Year: 2025, Commodity: farm.CommodityCorn, Acres: dec("80"),
	}))

	f, err := s.FindFarm(ctx, "farm-1", "biz-a")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "Home 80", f.Name)

	other, err := s.FindFarm(ctx, "farm-1", "biz-b")
	require.NoError(t, err)
	assert.Nil(t, other, "another business cannot see the farm")
}

func TestFindFarm_DeletedHidden(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, s.SaveFarm(ctx, farm.Farm{
		ID: "farm-1", BusinessID: "biz", EntityID: "ent",
		Name: "Gone", Year: 2025, Commodity: farm.CommodityCorn,
		Acres: dec("80"), Deleted: true,
	}))

	f, err := s.FindFarm(ctx, "farm-1", "biz")
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestSumAcres_EntityAndBusiness(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	for _, f := range []farm.Farm{
		{ID: "a", BusinessID: "biz", EntityID: "ent-1", Year: 2025, Commodity: farm.CommodityCorn, Acres: dec("120.5")},
		{ID: "b", BusinessID: "biz", EntityID: "ent-1", Year: 2025, Commodity: farm.CommoditySoybeans, Acres: dec("79.5")},
		{ID: "c", BusinessID: "biz", EntityID: "ent-2", Year: 2025, Commodity: farm.CommodityCorn, Acres: dec("300")},
		{ID: "d", BusinessID: "biz", EntityID: "ent-1", Year: 2024, Commodity: farm.CommodityCorn, Acres: dec("999")},
	} {
		require.NoError(t, s.SaveFarm(ctx, f))
	}

	ent, err := s.SumEntityAcres(ctx, "ent-1", 2025)
	require.NoError(t, err)
	assert.Equal(t, "200", ent.String(), "other years excluded")

	biz, err := s.SumBusinessAcres(ctx, "biz", 2025)
	require.NoError(t, err)
	assert.Equal(t, "500", biz.String())
}

func TestReset_ClearsEverything(t *testing.T) {
	s := newLedgerStore(t)
	ctx := context.Background()

	_, err := s.RecordTransaction(ctx, "loan-1", farm.LoanDraw, dec("100"), time.Now(), "")
	require.NoError(t, err)

	require.NoError(t, s.Reset(ctx))

	loan, err := s.FindOperatingLoan(ctx, "loan-1")
	require.NoError(t, err)
	assert.Nil(t, loan)

	txs, err := s.Transactions(ctx, "loan-1")
	require.NoError(t, err)
	assert.Empty(t, txs)
}
