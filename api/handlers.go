/*
handlers.go - HTTP API handlers for the farm financial engine

PURPOSE:
  Exposes the allocation and profit-matrix engines via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  the finance package.

ENDPOINTS:
  Reports:
    GET  /api/businesses/{businessID}/interest-summary?year=YYYY
    GET  /api/businesses/{businessID}/farms/{farmID}/interest-allocation?year=YYYY
    POST /api/businesses/{businessID}/farms/{farmID}/profit-matrix

  Loan ledger:
    POST /api/loans/{loanID}/transactions   Record draw/payment
    GET  /api/loans/{loanID}/transactions   Ledger history

  Scenarios:
    GET  /api/scenarios              List demo scenarios
    POST /api/scenarios/load         Load a demo scenario
    POST /api/scenarios/reset        Clear all data

  Health:
    GET  /api/health

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Repository + ledger + scenario writers
  - Alloc/Matrix: The computation engines
  - Log: Structured logger

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, degenerate grids
  - 404: Farm or loan not found
  - 500: Internal/persistence errors

SECURITY NOTE:
  Currently NO authentication or authorization. The businessID path
  segment is the only scoping; a real deployment puts an auth
  middleware in front and derives it from the session.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/agrimark/farm-engine/farm"
	"github.com/agrimark/farm-engine/finance"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is what the handlers need from persistence: the read
// repository, the loan ledger, and the writers the scenario loaders
// use. Both store/sqlite.Store and farm/store.Memory satisfy it.
type Store interface {
	farm.Repository
	farm.LoanLedger

	Reset(ctx context.Context) error
	SaveBusiness(ctx context.Context, b farm.Business) error
	SaveEntity(ctx context.Context, e farm.GrainEntity) error
	SaveFarm(ctx context.Context, f farm.Farm) error
	SaveParcel(ctx context.Context, p farm.LandParcel) error
	SavePolicy(ctx context.Context, p farm.InsurancePolicy) error
	SaveOperatingLoan(ctx context.Context, l farm.OperatingLoan) error
	SaveEquipmentLoan(ctx context.Context, l farm.EquipmentLoan) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  Store
	Alloc  *finance.AllocationEngine
	Matrix *finance.MatrixEngine
	Log    zerolog.Logger

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store Store, log zerolog.Logger) *Handler {
	alloc := finance.NewAllocationEngine(store)
	return &Handler{
		Store:  store,
		Alloc:  alloc,
		Matrix: finance.NewMatrixEngine(store, alloc, nil),
		Log:    log,
	}
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// GetInterestSummary returns the business-wide interest rollup.
// GET /api/businesses/{businessID}/interest-summary?year=YYYY
func (h *Handler) GetInterestSummary(w http.ResponseWriter, r *http.Request) {
	businessID := farm.BusinessID(chi.URLParam(r, "businessID"))
	year, ok := parseYear(w, r)
	if !ok {
		return
	}

	summary, err := h.Alloc.InterestSummary(r.Context(), businessID, year, time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build interest summary", err)
		return
	}

	writeJSON(w, http.StatusOK, toInterestSummaryDTO(summary))
}

// GetInterestAllocation returns one farm's loan cost allocation.
// GET /api/businesses/{businessID}/farms/{farmID}/interest-allocation?year=YYYY
func (h *Handler) GetInterestAllocation(w http.ResponseWriter, r *http.Request) {
	businessID := farm.BusinessID(chi.URLParam(r, "businessID"))
	farmID := farm.FarmID(chi.URLParam(r, "farmID"))
	year, ok := parseYear(w, r)
	if !ok {
		return
	}

	// The allocation itself tolerates a missing farm (zero shares), but
	// the report endpoint treats it as not found.
	f, err := h.Store.FindFarm(r.Context(), farmID, businessID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load farm", err)
		return
	}
	if f == nil {
		writeError(w, http.StatusNotFound, farm.ErrFarmNotFound.Error(), nil)
		return
	}

	alloc, err := h.Alloc.FarmAllocation(r.Context(), farmID, businessID, year, time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute allocation", err)
		return
	}

	writeJSON(w, http.StatusOK, toAllocationDTO(alloc))
}

// BuildProfitMatrix computes the yield/price profit matrix for a farm.
// POST /api/businesses/{businessID}/farms/{farmID}/profit-matrix
func (h *Handler) BuildProfitMatrix(w http.ResponseWriter, r *http.Request) {
	businessID := farm.BusinessID(chi.URLParam(r, "businessID"))
	farmID := farm.FarmID(chi.URLParam(r, "farmID"))

	var req ProfitMatrixRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	asOf := time.Now().UTC()
	if req.AsOf != "" {
		parsed, err := time.Parse("2006-01-02", req.AsOf)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of date (use YYYY-MM-DD)", err)
			return
		}
		asOf = parsed
	}

	matrix, err := h.Matrix.ProfitMatrix(r.Context(), farmID, businessID, req.GridOptions(), asOf)
	if err != nil {
		switch {
		case errors.Is(err, farm.ErrFarmNotFound):
			writeError(w, http.StatusNotFound, farm.ErrFarmNotFound.Error(), nil)
		case errors.Is(err, finance.ErrInvalidGrid):
			writeError(w, http.StatusBadRequest, "Invalid grid options", err)
		default:
			writeError(w, http.StatusInternalServerError, "Failed to build profit matrix", err)
		}
		return
	}

	h.Log.Info().
		Str("farm_id", string(farmID)).
		Int("yield_steps", len(matrix.YieldAxis)).
		Int("price_steps", len(matrix.PriceAxis)).
		Msg("profit matrix built")

	writeJSON(w, http.StatusOK, toProfitMatrixDTO(matrix))
}

// =============================================================================
// LOAN LEDGER HANDLERS
// =============================================================================

// RecordLoanTransaction applies a draw or payment to an operating loan.
// POST /api/loans/{loanID}/transactions
func (h *Handler) RecordLoanTransaction(w http.ResponseWriter, r *http.Request) {
	loanID := farm.LoanID(chi.URLParam(r, "loanID"))

	var req RecordTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	txType := farm.LoanTransactionType(req.Type)
	if txType != farm.LoanDraw && txType != farm.LoanPayment {
		writeError(w, http.StatusBadRequest, "type must be DRAW or PAYMENT", nil)
		return
	}

	date := time.Now().UTC()
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
			return
		}
		date = parsed
	}

	tx, err := h.Store.RecordTransaction(r.Context(), loanID, txType,
		decimal.NewFromFloat(req.Amount), date, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, farm.ErrLoanNotFound):
			writeError(w, http.StatusNotFound, "Loan not found", nil)
		case farm.IsClientError(err):
			writeError(w, http.StatusBadRequest, "Invalid transaction", err)
		default:
			writeError(w, http.StatusInternalServerError, "Failed to record transaction", err)
		}
		return
	}

	h.Log.Info().
		Str("loan_id", string(loanID)).
		Str("type", string(txType)).
		Str("amount", tx.Amount.String()).
		Str("balance_after", tx.BalanceAfter.String()).
		Msg("loan transaction recorded")

	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

// ListLoanTransactions returns a loan's ledger, oldest first.
// GET /api/loans/{loanID}/transactions
func (h *Handler) ListLoanTransactions(w http.ResponseWriter, r *http.Request) {
	loanID := farm.LoanID(chi.URLParam(r, "loanID"))

	loan, err := h.Store.FindOperatingLoan(r.Context(), loanID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load loan", err)
		return
	}
	if loan == nil {
		writeError(w, http.StatusNotFound, "Loan not found", nil)
		return
	}

	txs, err := h.Store.Transactions(r.Context(), loanID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load transactions", err)
		return
	}

	dtos := make([]TransactionDTO, 0, len(txs))
	for _, tx := range txs {
		dtos = append(dtos, toTransactionDTO(tx))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"loan_id":         string(loanID),
		"current_balance": money(loan.CurrentBalance),
		"transactions":    dtos,
	})
}

func toTransactionDTO(tx farm.OperatingLoanTransaction) TransactionDTO {
	return TransactionDTO{
		ID:           tx.ID,
		LoanID:       string(tx.LoanID),
		Type:         string(tx.Type),
		Amount:       money(tx.Amount),
		Date:         tx.Date.Format("2006-01-02"),
		Description:  tx.Description,
		BalanceAfter: money(tx.BalanceAfter),
		CreatedAt:    tx.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// HEALTH
// =============================================================================

// Health reports liveness.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func parseYear(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return time.Now().UTC().Year(), true
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1900 || year > 2200 {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return 0, false
	}
	return year, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
