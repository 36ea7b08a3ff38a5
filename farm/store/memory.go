// Package store provides an in-memory implementation of the farm
// repository and loan ledger, for tests, demos and development.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrimark/farm-engine/farm"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	businesses map[farm.BusinessID]farm.Business
	entities   map[farm.EntityID]farm.GrainEntity
	farms      map[farm.FarmID]farm.Farm
	parcels    map[farm.ParcelID]farm.LandParcel
	policies   map[farm.FarmID]farm.InsurancePolicy

	operatingLoans map[farm.LoanID]farm.OperatingLoan
	equipmentLoans map[farm.LoanID]farm.EquipmentLoan
	loanTxs        map[farm.LoanID][]farm.OperatingLoanTransaction
}

func NewMemory() *Memory {
	m := &Memory{}
	m.reset()
	return m
}

func (m *Memory) reset() {
	m.businesses = make(map[farm.BusinessID]farm.Business)
	m.entities = make(map[farm.EntityID]farm.GrainEntity)
	m.farms = make(map[farm.FarmID]farm.Farm)
	m.parcels = make(map[farm.ParcelID]farm.LandParcel)
	m.policies = make(map[farm.FarmID]farm.InsurancePolicy)
	m.operatingLoans = make(map[farm.LoanID]farm.OperatingLoan)
	m.equipmentLoans = make(map[farm.LoanID]farm.EquipmentLoan)
	m.loanTxs = make(map[farm.LoanID][]farm.OperatingLoanTransaction)
}

// Reset clears all data. Demo scenarios call this before loading.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
	return nil
}

// =============================================================================
// WRITERS (scenario/seed helpers)
// =============================================================================

func (m *Memory) SaveBusiness(_ context.Context, b farm.Business) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.businesses[b.ID] = b
	return nil
}

func (m *Memory) SaveEntity(_ context.Context, e farm.GrainEntity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[e.ID] = e
	return nil
}

func (m *Memory) SaveFarm(_ context.Context, f farm.Farm) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.farms[f.ID] = f
	return nil
}

func (m *Memory) SaveParcel(_ context.Context, p farm.LandParcel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parcels[p.ID] = p
	return nil
}

func (m *Memory) SavePolicy(_ context.Context, p farm.InsurancePolicy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies[p.FarmID] = p
	return nil
}

func (m *Memory) SaveOperatingLoan(_ context.Context, l farm.OperatingLoan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operatingLoans[l.ID] = l
	return nil
}

func (m *Memory) SaveEquipmentLoan(_ context.Context, l farm.EquipmentLoan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.equipmentLoans[l.ID] = l
	return nil
}

// =============================================================================
// REPOSITORY (farm.Repository interface)
// =============================================================================

func (m *Memory) FindFarm(_ context.Context, farmID farm.FarmID, businessID farm.BusinessID) (*farm.Farm, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.farms[farmID]
	if !ok || f.Deleted || f.BusinessID != businessID {
		return nil, nil
	}
	return &f, nil
}

func (m *Memory) FarmsByEntity(_ context.Context, entityID farm.EntityID, year int) ([]farm.Farm, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []farm.Farm
	for _, f := range m.farms {
		if f.EntityID == entityID && f.Year == year && !f.Deleted {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SumEntityAcres(_ context.Context, entityID farm.EntityID, year int) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := decimal.Zero
	for _, f := range m.farms {
		if f.EntityID == entityID && f.Year == year && !f.Deleted {
			total = total.Add(f.Acres)
		}
	}
	return total, nil
}

func (m *Memory) SumBusinessAcres(_ context.Context, businessID farm.BusinessID, year int) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := decimal.Zero
	for _, f := range m.farms {
		if f.BusinessID == businessID && f.Year == year && !f.Deleted {
			total = total.Add(f.Acres)
		}
	}
	return total, nil
}

func (m *Memory) FindParcel(_ context.Context, parcelID farm.ParcelID) (*farm.LandParcel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.parcels[parcelID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) ParcelsByBusiness(_ context.Context, businessID farm.BusinessID) ([]farm.LandParcel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []farm.LandParcel
	for _, p := range m.parcels {
		if p.BusinessID == businessID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) OperatingLoans(_ context.Context, entityID farm.EntityID, year int) ([]farm.OperatingLoan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []farm.OperatingLoan
	for _, l := range m.operatingLoans {
		if l.EntityID == entityID && l.Year == year && l.Active {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) EntitiesByBusiness(_ context.Context, businessID farm.BusinessID) ([]farm.GrainEntity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []farm.GrainEntity
	for _, e := range m.entities {
		if e.BusinessID == businessID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) EquipmentLoans(_ context.Context, businessID farm.BusinessID, year int) ([]farm.EquipmentLoan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []farm.EquipmentLoan
	for _, l := range m.equipmentLoans {
		if l.BusinessID == businessID && l.Year == year && l.Active && !l.Deleted {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) FindBusiness(_ context.Context, businessID farm.BusinessID) (*farm.Business, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.businesses[businessID]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m *Memory) FindInsurancePolicy(_ context.Context, farmID farm.FarmID, businessID farm.BusinessID) (*farm.InsurancePolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.policies[farmID]
	if !ok || p.BusinessID != businessID {
		return nil, nil
	}
	return &p, nil
}

// =============================================================================
// LOAN LEDGER (farm.LoanLedger interface)
// =============================================================================

// RecordTransaction applies a draw or payment under the store lock, so
// writes to the same loan cannot race the balance.
func (m *Memory) RecordTransaction(_ context.Context, loanID farm.LoanID, txType farm.LoanTransactionType,
	amount decimal.Decimal, date time.Time, description string) (*farm.OperatingLoanTransaction, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	loan, ok := m.operatingLoans[loanID]
	if !ok {
		return nil, farm.ErrLoanNotFound
	}

	next, err := farm.NextBalance(loan.CurrentBalance, txType, amount)
	if err != nil {
		return nil, &farm.LedgerError{LoanID: loanID, Type: txType, Amount: amount, Err: err}
	}

	tx := farm.OperatingLoanTransaction{
		ID:           uuid.NewString(),
		LoanID:       loanID,
		Type:         txType,
		Amount:       amount,
		Date:         date,
		Description:  description,
		BalanceAfter: next,
		CreatedAt:    time.Now().UTC(),
	}

	// Ledger row and balance update land together or not at all.
	m.loanTxs[loanID] = append(m.loanTxs[loanID], tx)
	loan.CurrentBalance = next
	m.operatingLoans[loanID] = loan

	return &tx, nil
}

func (m *Memory) Transactions(_ context.Context, loanID farm.LoanID) ([]farm.OperatingLoanTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	txs := m.loanTxs[loanID]
	out := make([]farm.OperatingLoanTransaction, len(txs))
	copy(out, txs)
	return out, nil
}

func (m *Memory) FindOperatingLoan(_ context.Context, loanID farm.LoanID) (*farm.OperatingLoan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.operatingLoans[loanID]
	if !ok {
		return nil, nil
	}
	return &l, nil
}
