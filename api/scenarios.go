/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates a business, grain
	entities, parcels with land loans, operating and equipment loans,
	farms with input costs, contracts and insurance policies.

AVAILABLE SCENARIOS:

	corn-belt:       Two-entity corn/soybean operation, moderate debt
	high-leverage:   Heavy land and equipment debt, thin margins
	marketed-heavy:  Most of projected production already contracted

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create business and entities
 3. Create parcels with land loans
 4. Create operating and equipment loans
 5. Create farms with inputs, costs, contracts
 6. Attach insurance policies

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "corn-belt"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: LoadScenario, ListScenarios handlers
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrimark/farm-engine/farm"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "corn-belt",
		Name:        "Corn Belt Baseline",
		Description: "Two-entity corn/soybean operation with moderate debt",
	},
	{
		ID:          "high-leverage",
		Name:        "High Leverage",
		Description: "Heavy land and equipment debt, thin margins",
	},
	{
		ID:          "marketed-heavy",
		Name:        "Marketed Heavy",
		Description: "Most of projected production already under contract",
	},
}

// demoYear is the crop year every scenario populates.
const demoYear = 2025

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	// Reset first
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	var err error
	switch req.ScenarioID {
	case "corn-belt":
		err = h.loadCornBeltScenario(ctx)
	case "high-leverage":
		err = h.loadHighLeverageScenario(ctx)
	case "marketed-heavy":
		err = h.loadMarketedHeavyScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario: "+req.ScenarioID, nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	h.Log.Info().Str("scenario", req.ScenarioID).Msg("scenario loaded")

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
	})
}

// ResetDatabase clears everything.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }
func dp(f float64) *decimal.Decimal {
	v := decimal.NewFromFloat(f)
	return &v
}

// loadCornBeltScenario is the baseline: a two-entity operation with a
// mortgaged home parcel, one operating line per entity, and a couple
// of financed machines.
func (h *Handler) loadCornBeltScenario(ctx context.Context) error {
	if err := h.Store.SaveBusiness(ctx, farm.Business{
		ID:                          "biz-cornbelt",
		Name:                        "Meridian Grain Farms",
		DefaultTruckingFeePerBushel: d(0.18),
	}); err != nil {
		return err
	}

	for _, e := range []farm.GrainEntity{
		{ID: "ent-home", BusinessID: "biz-cornbelt", Name: "Meridian Home Farm LLC"},
		{ID: "ent-river", BusinessID: "biz-cornbelt", Name: "River Bottom Partnership"},
	} {
		if err := h.Store.SaveEntity(ctx, e); err != nil {
			return err
		}
	}

	// Home parcel carries a fully amortized note.
	if err := h.Store.SaveParcel(ctx, farm.LandParcel{
		ID:         "parcel-home",
		BusinessID: "biz-cornbelt",
		Name:       "Home 320",
		TotalAcres: d(320),
		Loans: []farm.LandLoan{{
			ID:               "land-home-1",
			Lender:           "Farm Credit Services",
			Active:           true,
			Principal:        d(1200000),
			InterestRate:     d(0.0525),
			TermMonths:       240,
			MonthlyPayment:   d(8090),
			RemainingBalance: d(965000),
		}},
	}); err != nil {
		return err
	}

	// Rented river ground has no note, only rent.
	if err := h.Store.SaveParcel(ctx, farm.LandParcel{
		ID:         "parcel-river",
		BusinessID: "biz-cornbelt",
		Name:       "River Bottom 480",
		TotalAcres: d(480),
	}); err != nil {
		return err
	}

	for _, l := range []farm.OperatingLoan{
		{ID: "op-home", EntityID: "ent-home", Year: demoYear, CreditLimit: d(500000),
			InterestRate: d(0.085), CurrentBalance: d(310000), Active: true},
		{ID: "op-river", EntityID: "ent-river", Year: demoYear, CreditLimit: d(750000),
			InterestRate: d(0.0825), CurrentBalance: d(420000), Active: true},
	} {
		if err := h.Store.SaveOperatingLoan(ctx, l); err != nil {
			return err
		}
	}

	for _, l := range []farm.EquipmentLoan{
		{ID: "eq-combine", BusinessID: "biz-cornbelt", EquipmentName: "Combine", Year: demoYear,
			FinancingType: farm.FinancingLoan, Active: true, IncludeInBreakeven: true,
			InterestRate: d(0.069), MonthlyPayment: d(9800), RemainingBalance: d(410000)},
		{ID: "eq-planter", BusinessID: "biz-cornbelt", EquipmentName: "Planter lease", Year: demoYear,
			FinancingType: farm.FinancingLease, Active: true, IncludeInBreakeven: true,
			AnnualPayment: d(48000)},
	} {
		if err := h.Store.SaveEquipmentLoan(ctx, l); err != nil {
			return err
		}
	}

	homeParcel := farm.ParcelID("parcel-home")
	if err := h.Store.SaveFarm(ctx, farm.Farm{
		ID: "farm-home-corn", BusinessID: "biz-cornbelt", EntityID: "ent-home",
		ParcelID: &homeParcel, Name: "Home Corn", Year: demoYear,
		Commodity: farm.CommodityCorn,
		Acres:     d(320), APH: d(205), ProjectedYield: d(210),
		Fertilizer: []farm.InputUsage{
			{Product: "Anhydrous", AmountUsed: d(48), PricePerUnit: d(725)},
			{Product: "MAP", AmountUsed: d(32), PricePerUnit: d(705)},
		},
		Chemicals: []farm.InputUsage{
			{Product: "Pre-emerge program", AmountUsed: d(320), PricePerUnit: d(38.50)},
		},
		Seed: []farm.SeedUsage{
			{Variety: "DKC62-89", BagsUsed: d(112), PricePerBag: d(289)},
		},
		OtherCosts: []farm.OtherCost{
			{Name: "Drying", CostType: farm.CostGeneral, Amount: d(22), PerAcre: true},
			{Name: "Crop insurance premium", CostType: farm.CostInsurance, Amount: d(18.40), PerAcre: true},
		},
		Contracts: []farm.ContractAllocation{{
			ID: "con-corn-1", ContractNumber: "HTA-4411", Year: demoYear,
			Commodity: farm.CommodityCorn, AllocatedBushels: d(25000),
			FuturesPrice: dp(4.85), BasisPrice: dp(-0.25), Active: true,
		}},
	}); err != nil {
		return err
	}

	riverParcel := farm.ParcelID("parcel-river")
	if err := h.Store.SaveFarm(ctx, farm.Farm{
		ID: "farm-river-beans", BusinessID: "biz-cornbelt", EntityID: "ent-river",
		ParcelID: &riverParcel, Name: "River Beans", Year: demoYear,
		Commodity: farm.CommoditySoybeans,
		Acres:     d(480), APH: d(62), ProjectedYield: d(60),
		Fertilizer: []farm.InputUsage{
			{Product: "Potash", AmountUsed: d(43), PricePerUnit: d(445)},
		},
		Chemicals: []farm.InputUsage{
			{Product: "Bean program", AmountUsed: d(480), PricePerUnit: d(29.75)},
		},
		Seed: []farm.SeedUsage{
			{Variety: "AG27XF2", BagsUsed: d(336), PricePerBag: d(62)},
		},
		OtherCosts: []farm.OtherCost{
			{Name: "Cash rent", CostType: farm.CostLandRent, Amount: d(285), PerAcre: true},
		},
		Contracts: []farm.ContractAllocation{{
			ID: "con-bean-1", ContractNumber: "CSH-2208", Year: demoYear,
			Commodity: farm.CommoditySoybeans, AllocatedBushels: d(10000),
			CashPrice: dp(11.45), Active: true,
		}},
	}); err != nil {
		return err
	}

	return h.Store.SavePolicy(ctx, farm.InsurancePolicy{
		FarmID: "farm-home-corn", BusinessID: "biz-cornbelt",
		ProjectedPrice: d(4.66), PremiumPerAcre: d(18.40),
		CoverageLevel:  d(0.80),
	})
}

// loadHighLeverageScenario stresses the allocators: every parcel is
// mortgaged, simple-mode and override loans are mixed in, and the
// operating line runs near its limit.
func (h *Handler) loadHighLeverageScenario(ctx context.Context) error {
	if err := h.Store.SaveBusiness(ctx, farm.Business{
		ID:                          "biz-leverage",
		Name:                        "Straightline Ag",
		DefaultTruckingFeePerBushel: d(0.22),
	}); err != nil {
		return err
	}

	if err := h.Store.SaveEntity(ctx, farm.GrainEntity{
		ID: "ent-main", BusinessID: "biz-leverage", Name: "Straightline Main",
	}); err != nil {
		return err
	}

	if err := h.Store.SaveParcel(ctx, farm.LandParcel{
		ID: "parcel-north", BusinessID: "biz-leverage", Name: "North 640",
		TotalAcres: d(640),
		Loans: []farm.LandLoan{
			{
				ID: "land-north-1", Lender: "AgriBank", Active: true,
				Principal: d(3800000), InterestRate: d(0.0675), TermMonths: 300,
				MonthlyPayment: d(26250), RemainingBalance: d(3520000),
			},
			{
				// Contract-for-deed with the prior owner; only the
				// annual payment is known.
				ID: "land-north-2", Lender: "Seller note", Active: true,
				UseSimpleMode: true, AnnualPayment: d(95000),
			},
		},
	}); err != nil {
		return err
	}

	if err := h.Store.SaveOperatingLoan(ctx, farm.OperatingLoan{
		ID: "op-main", EntityID: "ent-main", Year: demoYear,
		CreditLimit: d(1500000), InterestRate: d(0.0915),
		CurrentBalance: d(1410000), Active: true,
	}); err != nil {
		return err
	}

	for _, l := range []farm.EquipmentLoan{
		{ID: "eq-fleet", BusinessID: "biz-leverage", EquipmentName: "Tractor fleet", Year: demoYear,
			FinancingType: farm.FinancingLoan, Active: true, IncludeInBreakeven: true,
			InterestRate: d(0.078), MonthlyPayment: d(21400), RemainingBalance: d(1180000)},
		{ID: "eq-sprayer", BusinessID: "biz-leverage", EquipmentName: "Sprayer", Year: demoYear,
			FinancingType: farm.FinancingLoan, Active: true, IncludeInBreakeven: true,
			InterestRate: d(0.072), MonthlyPayment: d(6900), RemainingBalance: d(365000),
			// Lender statement figures override the computed split.
			AnnualInterestOverride:  dp(25300),
			AnnualPrincipalOverride: dp(57500)},
		{ID: "eq-pickup", BusinessID: "biz-leverage", EquipmentName: "Pickup", Year: demoYear,
			FinancingType: farm.FinancingLoan, Active: true, IncludeInBreakeven: false,
			InterestRate: d(0.065), MonthlyPayment: d(1150), RemainingBalance: d(52000)},
	} {
		if err := h.Store.SaveEquipmentLoan(ctx, l); err != nil {
			return err
		}
	}

	northParcel := farm.ParcelID("parcel-north")
	return h.Store.SaveFarm(ctx, farm.Farm{
		ID: "farm-north-corn", BusinessID: "biz-leverage", EntityID: "ent-main",
		ParcelID: &northParcel, Name: "North Corn", Year: demoYear,
		Commodity: farm.CommodityCorn,
		Acres:     d(640), APH: d(192), ProjectedYield: d(195),
		TruckingFeePerBushel: dp(0.30),
		Fertilizer: []farm.InputUsage{
			{Product: "Anhydrous", AmountUsed: d(102), PricePerUnit: d(740)},
		},
		Chemicals: []farm.InputUsage{
			{Product: "Full program", AmountUsed: d(640), PricePerUnit: d(44)},
		},
		Seed: []farm.SeedUsage{
			{Variety: "P1185AM", BagsUsed: d(224), PricePerBag: d(305)},
		},
	})
}

// loadMarketedHeavyScenario has most of projected production priced,
// so matrix cells are dominated by contract prices rather than the
// scenario price.
func (h *Handler) loadMarketedHeavyScenario(ctx context.Context) error {
	if err := h.Store.SaveBusiness(ctx, farm.Business{
		ID:                          "biz-marketed",
		Name:                        "Forward Sold Farms",
		DefaultTruckingFeePerBushel: d(0.15),
	}); err != nil {
		return err
	}

	if err := h.Store.SaveEntity(ctx, farm.GrainEntity{
		ID: "ent-fs", BusinessID: "biz-marketed", Name: "Forward Sold LLC",
	}); err != nil {
		return err
	}

	if err := h.Store.SaveOperatingLoan(ctx, farm.OperatingLoan{
		ID: "op-fs", EntityID: "ent-fs", Year: demoYear,
		CreditLimit: d(400000), InterestRate: d(0.0795),
		CurrentBalance: d(120000), Active: true,
	}); err != nil {
		return err
	}

	if err := h.Store.SaveFarm(ctx, farm.Farm{
		ID: "farm-fs-corn", BusinessID: "biz-marketed", EntityID: "ent-fs",
		Name: "Section 14 Corn", Year: demoYear,
		Commodity: farm.CommodityCorn,
		Acres:     d(400), APH: d(200), ProjectedYield: d(200),
		Fertilizer: []farm.InputUsage{
			{Product: "Blend", AmountUsed: d(60), PricePerUnit: d(690)},
		},
		Seed: []farm.SeedUsage{
			{Variety: "DKC65-99", BagsUsed: d(140), PricePerBag: d(295)},
		},
		OtherCosts: []farm.OtherCost{
			{Name: "Cash rent", CostType: farm.CostLandRent, Amount: d(102000), PerAcre: false},
		},
		Contracts: []farm.ContractAllocation{
			{ID: "con-fs-1", ContractNumber: "CSH-9001", Year: demoYear,
				Commodity: farm.CommodityCorn, AllocatedBushels: d(40000),
				CashPrice: dp(4.92), Active: true},
			{ID: "con-fs-2", ContractNumber: "HTA-9002", Year: demoYear,
				Commodity: farm.CommodityCorn, AllocatedBushels: d(24000),
				FuturesPrice: dp(5.05), BasisPrice: dp(-0.30), Active: true},
			// Unpriced basis accumulator: skipped until priced.
			{ID: "con-fs-3", ContractNumber: "BAS-9003", Year: demoYear,
				Commodity: farm.CommodityCorn, AllocatedBushels: d(8000),
				BasisPrice: dp(-0.28), Active: true},
		},
	}); err != nil {
		return err
	}

	if err := h.Store.SavePolicy(ctx, farm.InsurancePolicy{
		FarmID: "farm-fs-corn", BusinessID: "biz-marketed",
		ProjectedPrice: d(4.70), PremiumPerAcre: d(21.10),
		HasSCO: true, SCOPremiumPerAcre: d(9.80),
		CoverageLevel: d(0.85),
	}); err != nil {
		return err
	}

	// A bit of ledger history on the operating line.
	dates := []time.Time{
		time.Date(demoYear, time.March, 10, 0, 0, 0, 0, time.UTC),
		time.Date(demoYear, time.April, 22, 0, 0, 0, 0, time.UTC),
		time.Date(demoYear, time.July, 2, 0, 0, 0, 0, time.UTC),
	}
	if _, err := h.Store.RecordTransaction(ctx, "op-fs", farm.LoanDraw, d(90000), dates[0], "Spring inputs"); err != nil {
		return err
	}
	if _, err := h.Store.RecordTransaction(ctx, "op-fs", farm.LoanDraw, d(60000), dates[1], "Seed invoice"); err != nil {
		return err
	}
	_, err := h.Store.RecordTransaction(ctx, "op-fs", farm.LoanPayment, d(30000), dates[2], "Old-crop sale proceeds")
	return err
}
