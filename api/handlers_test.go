package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrimark/farm-engine/api"
	"github.com/agrimark/farm-engine/farm"
	"github.com/agrimark/farm-engine/farm/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*store.Memory, http.Handler) {
	t.Helper()
	s := store.NewMemory()
	h := api.NewHandler(s, zerolog.Nop())
	return s, api.NewRouter(h)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func seedFarm(t *testing.T, s *store.Memory) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.SaveBusiness(ctx, farm.Business{
		ID: "biz", Name: "Test Farms",
		DefaultTruckingFeePerBushel: decimal.RequireFromString("0.10"),
	}))
	require.NoError(t, s.SaveEntity(ctx, farm.GrainEntity{ID: "ent", BusinessID: "biz", Name: "Main"}))
	require.NoError(t, s.SaveFarm(ctx, farm.Farm{
		ID: "farm-1", BusinessID: "biz", EntityID: "ent",
		Name: "East 200", Year: 2025, Commodity: farm.CommodityCorn,
		Acres:          decimal.RequireFromString("200"),
		APH:            decimal.RequireFromString("200"),
		ProjectedYield: decimal.RequireFromString("210"),
	}))
}

// =============================================================================
// HEALTH
// =============================================================================

func TestHealth(t *testing.T) {
	_, router := newTestServer(t)

	rec := doJSON(t, router, http.MethodGet, "/api/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestListScenarios(t *testing.T) {
	_, router := newTestServer(t)

	rec := doJSON(t, router, http.MethodGet, "/api/scenarios", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body []api.ScenarioDTO
	decode(t, rec, &body)
	require.Len(t, body, 3)
	assert.Equal(t, "corn-belt", body[0].ID)
}

func TestLoadScenario_ThenReportWorks(t *testing.T) {
	// GIVEN: The corn-belt demo scenario
	// WHEN: Loading it and requesting the interest summary
	// THEN: The report sees the seeded parcels and entities

	_, router := newTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/scenarios/load",
		api.LoadScenarioRequest{ScenarioID: "corn-belt"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/scenarios/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var current api.ScenarioDTO
	decode(t, rec, &current)
	assert.Equal(t, "corn-belt", current.ID)

	rec = doJSON(t, router, http.MethodGet,
		"/api/businesses/biz-cornbelt/interest-summary?year=2025", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary api.InterestSummaryDTO
	decode(t, rec, &summary)
	assert.Equal(t, "biz-cornbelt", summary.BusinessID)
	assert.NotEmpty(t, summary.Parcels)
	assert.NotEmpty(t, summary.Entities)
	assert.Greater(t, summary.TotalOperatingInterest, 0.0)
}

func TestLoadScenario_Unknown(t *testing.T) {
	_, router := newTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/scenarios/load",
		api.LoadScenarioRequest{ScenarioID: "nope"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetDatabase(t *testing.T) {
	s, router := newTestServer(t)
	seedFarm(t, s)

	rec := doJSON(t, router, http.MethodPost, "/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet,
		"/api/businesses/biz/farms/farm-1/interest-allocation", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// REPORTS
// =============================================================================

func TestGetInterestAllocation_UnknownFarm(t *testing.T) {
	_, router := newTestServer(t)

	rec := doJSON(t, router, http.MethodGet,
		"/api/businesses/biz/farms/ghost/interest-allocation", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body api.ErrorResponse
	decode(t, rec, &body)
	assert.Equal(t, "farm not found or access denied", body.Error)
}

func TestGetInterestAllocation_InvalidYear(t *testing.T) {
	s, router := newTestServer(t)
	seedFarm(t, s)

	rec := doJSON(t, router, http.MethodGet,
		"/api/businesses/biz/farms/farm-1/interest-allocation?year=123", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetInterestAllocation_EmptyBook(t *testing.T) {
	// GIVEN: A farm with no loans anywhere in the business
	// WHEN: Requesting its allocation
	// THEN: 200 with all-zero shares, not an error

	s, router := newTestServer(t)
	seedFarm(t, s)

	rec := doJSON(t, router, http.MethodGet,
		"/api/businesses/biz/farms/farm-1/interest-allocation?year=2025", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body api.AllocationDTO
	decode(t, rec, &body)
	assert.Equal(t, "farm-1", body.FarmID)
	assert.Equal(t, 2025, body.Year)
	assert.Zero(t, body.TotalLoanCost)
}

// =============================================================================
// PROFIT MATRIX
// =============================================================================

func TestBuildProfitMatrix_DefaultGrid(t *testing.T) {
	s, router := newTestServer(t)
	seedFarm(t, s)

	rec := doJSON(t, router, http.MethodPost,
		"/api/businesses/biz/farms/farm-1/profit-matrix", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body api.ProfitMatrixDTO
	decode(t, rec, &body)
	assert.Equal(t, "East 200", body.FarmName)
	require.Len(t, body.YieldAxis, 7)
	require.Len(t, body.PriceAxis, 7)
	require.Len(t, body.Cells, 7)
	require.Len(t, body.Cells[0], 7)
	assert.Equal(t, 100.0, body.YieldAxis[0], "half of APH")
	assert.Equal(t, 240.0, body.YieldAxis[6])
}

func TestBuildProfitMatrix_CustomGrid(t *testing.T) {
	s, router := newTestServer(t)
	seedFarm(t, s)

	rec := doJSON(t, router, http.MethodPost,
		"/api/businesses/biz/farms/farm-1/profit-matrix",
		api.ProfitMatrixRequest{YieldSteps: 3, PriceSteps: 5, AsOf: "2025-06-15"})

	require.Equal(t, http.StatusOK, rec.Code)
	var body api.ProfitMatrixDTO
	decode(t, rec, &body)
	assert.Len(t, body.YieldAxis, 3)
	assert.Len(t, body.PriceAxis, 5)
}

func TestBuildProfitMatrix_UnknownFarm(t *testing.T) {
	_, router := newTestServer(t)

	rec := doJSON(t, router, http.MethodPost,
		"/api/businesses/biz/farms/ghost/profit-matrix", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBuildProfitMatrix_DegenerateGrid(t *testing.T) {
	s, router := newTestServer(t)
	seedFarm(t, s)

	rec := doJSON(t, router, http.MethodPost,
		"/api/businesses/biz/farms/farm-1/profit-matrix",
		api.ProfitMatrixRequest{PriceSteps: 1})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBuildProfitMatrix_BadAsOf(t *testing.T) {
	s, router := newTestServer(t)
	seedFarm(t, s)

	rec := doJSON(t, router, http.MethodPost,
		"/api/businesses/biz/farms/farm-1/profit-matrix",
		api.ProfitMatrixRequest{AsOf: "June 15th"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// LOAN LEDGER
// =============================================================================

func seedLoan(t *testing.T, s *store.Memory) {
	t.Helper()
	require.NoError(t, s.SaveOperatingLoan(context.Background(), farm.OperatingLoan{
		ID: "op-1", EntityID: "ent", Year: 2025,
		CreditLimit:    decimal.RequireFromString("500000"),
		InterestRate:   decimal.RequireFromString("0.085"),
		CurrentBalance: decimal.RequireFromString("100000"),
		Active:         true,
	}))
}

func TestRecordLoanTransaction_Draw(t *testing.T) {
	s, router := newTestServer(t)
	seedLoan(t, s)

	rec := doJSON(t, router, http.MethodPost, "/api/loans/op-1/transactions",
		api.RecordTransactionRequest{Type: "DRAW", Amount: 25000, Date: "2025-04-01", Description: "seed"})

	require.Equal(t, http.StatusCreated, rec.Code)
	var body api.TransactionDTO
	decode(t, rec, &body)
	assert.Equal(t, "DRAW", body.Type)
	assert.Equal(t, 125000.0, body.BalanceAfter)
	assert.Equal(t, "2025-04-01", body.Date)
}

func TestRecordLoanTransaction_BadType(t *testing.T) {
	s, router := newTestServer(t)
	seedLoan(t, s)

	rec := doJSON(t, router, http.MethodPost, "/api/loans/op-1/transactions",
		api.RecordTransactionRequest{Type: "TRANSFER", Amount: 100})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordLoanTransaction_InvalidAmount(t *testing.T) {
	s, router := newTestServer(t)
	seedLoan(t, s)

	rec := doJSON(t, router, http.MethodPost, "/api/loans/op-1/transactions",
		api.RecordTransactionRequest{Type: "DRAW", Amount: 0})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordLoanTransaction_UnknownLoan(t *testing.T) {
	_, router := newTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/loans/ghost/transactions",
		api.RecordTransactionRequest{Type: "DRAW", Amount: 100})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListLoanTransactions(t *testing.T) {
	s, router := newTestServer(t)
	seedLoan(t, s)

	for _, req := range []api.RecordTransactionRequest{
		{Type: "DRAW", Amount: 50000, Date: "2025-03-01"},
		{Type: "PAYMENT", Amount: 20000, Date: "2025-05-01"},
	} {
		rec := doJSON(t, router, http.MethodPost, "/api/loans/op-1/transactions", req)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/loans/op-1/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		LoanID         string               `json:"loan_id"`
		CurrentBalance float64              `json:"current_balance"`
		Transactions   []api.TransactionDTO `json:"transactions"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "op-1", body.LoanID)
	assert.Equal(t, 130000.0, body.CurrentBalance)
	require.Len(t, body.Transactions, 2)
	assert.Equal(t, 150000.0, body.Transactions[0].BalanceAfter)
	assert.Equal(t, 130000.0, body.Transactions[1].BalanceAfter)
}

func TestListLoanTransactions_UnknownLoan(t *testing.T) {
	_, router := newTestServer(t)

	rec := doJSON(t, router, http.MethodGet, "/api/loans/ghost/transactions", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
