/*
Package sqlite provides a SQLite-backed implementation of the farm
repository and loan ledger.

PURPOSE:
  Implements farm.Repository and farm.LoanLedger using SQLite. In
  production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  businesses, grain_entities, farms:   the ownership hierarchy
  land_parcels, land_loans:            ground and the notes against it
  operating_loans:                     revolving credit lines
  operating_loan_transactions:         immutable draw/payment ledger
  equipment_loans, insurance_policies
  farm_inputs, farm_other_costs, contract_allocations: per-farm records

DECIMAL STORAGE:
  All money and bushel figures are stored as TEXT and parsed through
  shopspring/decimal, never as REAL, so values round-trip exactly.

LEDGER ATOMICITY:
  RecordTransaction inserts the ledger row and updates the loan's
  current balance inside one database transaction; the store mutex
  serializes writers so two concurrent draws cannot race the balance.
  Ledger rows are never updated or deleted.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better
  concurrency: readers don't block, single writer, better crash
  recovery.

USAGE:
  s, err := sqlite.New("./data/farm.db")
  if err != nil {
      log.Fatal(err)
  }
  defer s.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - farm/repository.go: Interface definitions
  - farm/store/memory.go: In-memory equivalent used in tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/agrimark/farm-engine/farm"
)

// Store implements farm.Repository and farm.LoanLedger using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One pool connection only: with a ":memory:" DSN every new
	// connection is its own empty database.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS businesses (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		default_trucking_fee TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS grain_entities (
		id TEXT PRIMARY KEY,
		business_id TEXT NOT NULL,
		name TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_entities_business ON grain_entities(business_id);

	CREATE TABLE IF NOT EXISTS farms (
		id TEXT PRIMARY KEY,
		business_id TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		parcel_id TEXT,
		name TEXT NOT NULL,
		year INTEGER NOT NULL,
		commodity TEXT NOT NULL,
		acres TEXT NOT NULL,
		aph TEXT NOT NULL DEFAULT '0',
		projected_yield TEXT NOT NULL DEFAULT '0',
		trucking_fee TEXT,
		deleted INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_farms_entity_year ON farms(entity_id, year);
	CREATE INDEX IF NOT EXISTS idx_farms_business_year ON farms(business_id, year);

	CREATE TABLE IF NOT EXISTS land_parcels (
		id TEXT PRIMARY KEY,
		business_id TEXT NOT NULL,
		name TEXT NOT NULL,
		total_acres TEXT NOT NULL DEFAULT '0'
	);
	CREATE INDEX IF NOT EXISTS idx_parcels_business ON land_parcels(business_id);

	CREATE TABLE IF NOT EXISTS land_loans (
		id TEXT PRIMARY KEY,
		parcel_id TEXT NOT NULL,
		lender TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		use_simple_mode INTEGER NOT NULL DEFAULT 0,
		principal TEXT NOT NULL DEFAULT '0',
		interest_rate TEXT NOT NULL DEFAULT '0',
		term_months INTEGER NOT NULL DEFAULT 0,
		monthly_payment TEXT NOT NULL DEFAULT '0',
		remaining_balance TEXT NOT NULL DEFAULT '0',
		annual_payment TEXT NOT NULL DEFAULT '0'
	);
	CREATE INDEX IF NOT EXISTS idx_land_loans_parcel ON land_loans(parcel_id);

	CREATE TABLE IF NOT EXISTS land_loan_payments (
		id TEXT PRIMARY KEY,
		loan_id TEXT NOT NULL,
		paid_at TEXT NOT NULL,
		principal TEXT NOT NULL,
		interest TEXT NOT NULL,
		remaining_balance TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_land_payments_loan ON land_loan_payments(loan_id, paid_at);

	CREATE TABLE IF NOT EXISTS operating_loans (
		id TEXT PRIMARY KEY,
		entity_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		credit_limit TEXT NOT NULL DEFAULT '0',
		interest_rate TEXT NOT NULL DEFAULT '0',
		current_balance TEXT NOT NULL DEFAULT '0',
		active INTEGER NOT NULL DEFAULT 1
	);
	CREATE INDEX IF NOT EXISTS idx_operating_loans_entity_year ON operating_loans(entity_id, year);

	-- Immutable ledger: rows are inserted, never updated or deleted.
	CREATE TABLE IF NOT EXISTS operating_loan_transactions (
		id TEXT PRIMARY KEY,
		loan_id TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		tx_date TEXT NOT NULL,
		description TEXT,
		balance_after TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_loan_txs_loan_date ON operating_loan_transactions(loan_id, tx_date, created_at);

	CREATE TABLE IF NOT EXISTS equipment_loans (
		id TEXT PRIMARY KEY,
		business_id TEXT NOT NULL,
		equipment_name TEXT,
		year INTEGER NOT NULL,
		financing_type TEXT NOT NULL DEFAULT 'LOAN',
		active INTEGER NOT NULL DEFAULT 1,
		deleted INTEGER NOT NULL DEFAULT 0,
		include_in_breakeven INTEGER NOT NULL DEFAULT 1,
		use_simple_mode INTEGER NOT NULL DEFAULT 0,
		annual_payment TEXT NOT NULL DEFAULT '0',
		interest_rate TEXT NOT NULL DEFAULT '0',
		monthly_payment TEXT NOT NULL DEFAULT '0',
		remaining_balance TEXT NOT NULL DEFAULT '0',
		annual_interest_override TEXT,
		annual_principal_override TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_equipment_loans_business_year ON equipment_loans(business_id, year);

	CREATE TABLE IF NOT EXISTS insurance_policies (
		farm_id TEXT PRIMARY KEY,
		business_id TEXT NOT NULL,
		projected_price TEXT NOT NULL DEFAULT '0',
		premium_per_acre TEXT NOT NULL DEFAULT '0',
		has_sco INTEGER NOT NULL DEFAULT 0,
		has_eco INTEGER NOT NULL DEFAULT 0,
		sco_premium_per_acre TEXT NOT NULL DEFAULT '0',
		eco_premium_per_acre TEXT NOT NULL DEFAULT '0',
		coverage_level TEXT NOT NULL DEFAULT '0'
	);

	-- kind is FERTILIZER, CHEMICAL or SEED; seed rows reuse
	-- amount_used/price_per_unit as bags and price-per-bag.
	CREATE TABLE IF NOT EXISTS farm_inputs (
		id TEXT PRIMARY KEY,
		farm_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		product TEXT,
		amount_used TEXT NOT NULL DEFAULT '0',
		price_per_unit TEXT NOT NULL DEFAULT '0'
	);
	CREATE INDEX IF NOT EXISTS idx_farm_inputs_farm ON farm_inputs(farm_id, kind);

	CREATE TABLE IF NOT EXISTS farm_other_costs (
		id TEXT PRIMARY KEY,
		farm_id TEXT NOT NULL,
		name TEXT,
		cost_type TEXT NOT NULL,
		amount TEXT NOT NULL DEFAULT '0',
		per_acre INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_farm_other_costs_farm ON farm_other_costs(farm_id);

	CREATE TABLE IF NOT EXISTS contract_allocations (
		id TEXT PRIMARY KEY,
		farm_id TEXT NOT NULL,
		contract_number TEXT,
		year INTEGER NOT NULL,
		commodity TEXT NOT NULL,
		allocated_bushels TEXT NOT NULL DEFAULT '0',
		cash_price TEXT,
		futures_price TEXT,
		basis_price TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		deleted INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_contract_allocations_farm ON contract_allocations(farm_id, year);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Reset clears every table. Demo scenarios call this before loading.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"businesses", "grain_entities", "farms", "land_parcels", "land_loans",
		"land_loan_payments", "operating_loans", "operating_loan_transactions",
		"equipment_loans", "insurance_policies", "farm_inputs",
		"farm_other_costs", "contract_allocations",
	}
	for _, t := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return fmt.Errorf("failed to reset %s: %w", t, err)
		}
	}
	return nil
}

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decPtr(ns sql.NullString) *decimal.Decimal {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	d := dec(ns.String)
	return &d
}

func nullDec(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// =============================================================================
// WRITERS (seed/scenario helpers)
// =============================================================================

func (s *Store) SaveBusiness(ctx context.Context, b farm.Business) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO businesses (id, name, default_trucking_fee, created_at)
		VALUES (?, ?, ?, ?)`,
		b.ID, b.Name, b.DefaultTruckingFeePerBushel.String(), time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *Store) SaveEntity(ctx context.Context, e farm.GrainEntity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO grain_entities (id, business_id, name) VALUES (?, ?, ?)`,
		e.ID, e.BusinessID, e.Name)
	return err
}

// SaveFarm persists the farm and its nested inputs, costs and contract
// allocations in one database transaction.
func (s *Store) SaveFarm(ctx context.Context, f farm.Farm) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var parcelID any
	if f.ParcelID != nil {
		parcelID = string(*f.ParcelID)
	}
	var truckingFee any
	if f.TruckingFeePerBushel != nil {
		truckingFee = f.TruckingFeePerBushel.String()
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO farms
		(id, business_id, entity_id, parcel_id, name, year, commodity, acres, aph,
		 projected_yield, trucking_fee, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.BusinessID, f.EntityID, parcelID, f.Name, f.Year, f.Commodity,
		f.Acres.String(), f.APH.String(), f.ProjectedYield.String(), truckingFee,
		boolInt(f.Deleted)); err != nil {
		return err
	}

	for _, table := range []string{"farm_inputs", "farm_other_costs", "contract_allocations"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE farm_id = ?", f.ID); err != nil {
			return err
		}
	}

	insertInput := func(kind, product string, amount, price decimal.Decimal) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO farm_inputs (id, farm_id, kind, product, amount_used, price_per_unit)
			VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), f.ID, kind, product, amount.String(), price.String())
		return err
	}
	for _, u := range f.Fertilizer {
		if err := insertInput("FERTILIZER", u.Product, u.AmountUsed, u.PricePerUnit); err != nil {
			return err
		}
	}
	for _, u := range f.Chemicals {
		if err := insertInput("CHEMICAL", u.Product, u.AmountUsed, u.PricePerUnit); err != nil {
			return err
		}
	}
	for _, u := range f.Seed {
		if err := insertInput("SEED", u.Variety, u.BagsUsed, u.PricePerBag); err != nil {
			return err
		}
	}

	for _, c := range f.OtherCosts {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO farm_other_costs (id, farm_id, name, cost_type, amount, per_acre)
			VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), f.ID, c.Name, c.CostType, c.Amount.String(), boolInt(c.PerAcre)); err != nil {
			return err
		}
	}

	for _, c := range f.Contracts {
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO contract_allocations
			(id, farm_id, contract_number, year, commodity, allocated_bushels,
			 cash_price, futures_price, basis_price, active, deleted)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, f.ID, c.ContractNumber, c.Year, c.Commodity, c.AllocatedBushels.String(),
			nullDec(c.CashPrice), nullDec(c.FuturesPrice), nullDec(c.BasisPrice),
			boolInt(c.Active), boolInt(c.Deleted)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveParcel persists the parcel with its loans and payment history.
func (s *Store) SaveParcel(ctx context.Context, p farm.LandParcel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO land_parcels (id, business_id, name, total_acres)
		VALUES (?, ?, ?, ?)`,
		p.ID, p.BusinessID, p.Name, p.TotalAcres.String()); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM land_loan_payments WHERE loan_id IN
		(SELECT id FROM land_loans WHERE parcel_id = ?)`, p.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM land_loans WHERE parcel_id = ?", p.ID); err != nil {
		return err
	}

	for _, l := range p.Loans {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO land_loans
			(id, parcel_id, lender, active, use_simple_mode, principal, interest_rate,
			 term_months, monthly_payment, remaining_balance, annual_payment)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			l.ID, p.ID, l.Lender, boolInt(l.Active), boolInt(l.UseSimpleMode),
			l.Principal.String(), l.InterestRate.String(), l.TermMonths,
			l.MonthlyPayment.String(), l.RemainingBalance.String(), l.AnnualPayment.String()); err != nil {
			return err
		}
		for _, pay := range l.Payments {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO land_loan_payments (id, loan_id, paid_at, principal, interest, remaining_balance)
				VALUES (?, ?, ?, ?, ?, ?)`,
				uuid.NewString(), l.ID, pay.Date.UTC().Format(time.RFC3339),
				pay.Principal.String(), pay.Interest.String(), pay.RemainingBalance.String()); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func (s *Store) SaveOperatingLoan(ctx context.Context, l farm.OperatingLoan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO operating_loans
		(id, entity_id, year, credit_limit, interest_rate, current_balance, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.EntityID, l.Year, l.CreditLimit.String(), l.InterestRate.String(),
		l.CurrentBalance.String(), boolInt(l.Active))
	return err
}

func (s *Store) SaveEquipmentLoan(ctx context.Context, l farm.EquipmentLoan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO equipment_loans
		(id, business_id, equipment_name, year, financing_type, active, deleted,
		 include_in_breakeven, use_simple_mode, annual_payment, interest_rate,
		 monthly_payment, remaining_balance, annual_interest_override, annual_principal_override)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.BusinessID, l.EquipmentName, l.Year, l.FinancingType,
		boolInt(l.Active), boolInt(l.Deleted), boolInt(l.IncludeInBreakeven),
		boolInt(l.UseSimpleMode), l.AnnualPayment.String(), l.InterestRate.String(),
		l.MonthlyPayment.String(), l.RemainingBalance.String(),
		nullDec(l.AnnualInterestOverride), nullDec(l.AnnualPrincipalOverride))
	return err
}

func (s *Store) SavePolicy(ctx context.Context, p farm.InsurancePolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO insurance_policies
		(farm_id, business_id, projected_price, premium_per_acre, has_sco, has_eco,
		 sco_premium_per_acre, eco_premium_per_acre, coverage_level)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.FarmID, p.BusinessID, p.ProjectedPrice.String(), p.PremiumPerAcre.String(),
		boolInt(p.HasSCO), boolInt(p.HasECO), p.SCOPremiumPerAcre.String(),
		p.ECOPremiumPerAcre.String(), p.CoverageLevel.String())
	return err
}

// =============================================================================
// REPOSITORY (farm.Repository interface)
// =============================================================================

func (s *Store) FindFarm(ctx context.Context, farmID farm.FarmID, businessID farm.BusinessID) (*farm.Farm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, business_id, entity_id, parcel_id, name, year, commodity, acres,
		       aph, projected_yield, trucking_fee, deleted
		FROM farms WHERE id = ? AND business_id = ? AND deleted = 0`,
		farmID, businessID)

	f, err := scanFarm(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadFarmChildren(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanFarm(r rowScanner) (*farm.Farm, error) {
	var (
		f                          farm.Farm
		parcelID, truckingFee      sql.NullString
		acres, aph, projectedYield string
		deleted                    int
	)
	if err := r.Scan(&f.ID, &f.BusinessID, &f.EntityID, &parcelID, &f.Name, &f.Year,
		&f.Commodity, &acres, &aph, &projectedYield, &truckingFee, &deleted); err != nil {
		return nil, err
	}
	if parcelID.Valid {
		pid := farm.ParcelID(parcelID.String)
		f.ParcelID = &pid
	}
	f.Acres = dec(acres)
	f.APH = dec(aph)
	f.ProjectedYield = dec(projectedYield)
	f.TruckingFeePerBushel = decPtr(truckingFee)
	f.Deleted = deleted != 0
	return &f, nil
}

func (s *Store) loadFarmChildren(ctx context.Context, f *farm.Farm) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, product, amount_used, price_per_unit
		FROM farm_inputs WHERE farm_id = ? ORDER BY id`, f.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var kind, product, amount, price string
		if err := rows.Scan(&kind, &product, &amount, &price); err != nil {
			return err
		}
		switch kind {
		case "FERTILIZER":
			f.Fertilizer = append(f.Fertilizer, farm.InputUsage{Product: product, AmountUsed: dec(amount), PricePerUnit: dec(price)})
		case "CHEMICAL":
			f.Chemicals = append(f.Chemicals, farm.InputUsage{Product: product, AmountUsed: dec(amount), PricePerUnit: dec(price)})
		case "SEED":
			f.Seed = append(f.Seed, farm.SeedUsage{Variety: product, BagsUsed: dec(amount), PricePerBag: dec(price)})
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	costRows, err := s.db.QueryContext(ctx, `
		SELECT name, cost_type, amount, per_acre
		FROM farm_other_costs WHERE farm_id = ? ORDER BY id`, f.ID)
	if err != nil {
		return err
	}
	defer costRows.Close()
	for costRows.Next() {
		var (
			c       farm.OtherCost
			amount  string
			perAcre int
		)
		if err := costRows.Scan(&c.Name, &c.CostType, &amount, &perAcre); err != nil {
			return err
		}
		c.Amount = dec(amount)
		c.PerAcre = perAcre != 0
		f.OtherCosts = append(f.OtherCosts, c)
	}
	if err := costRows.Err(); err != nil {
		return err
	}

	contractRows, err := s.db.QueryContext(ctx, `
		SELECT id, contract_number, year, commodity, allocated_bushels,
		       cash_price, futures_price, basis_price, active, deleted
		FROM contract_allocations WHERE farm_id = ? ORDER BY id`, f.ID)
	if err != nil {
		return err
	}
	defer contractRows.Close()
	for contractRows.Next() {
		var (
			c                    farm.ContractAllocation
			bushels              string
			cash, futures, basis sql.NullString
			active, deleted      int
		)
		if err := contractRows.Scan(&c.ID, &c.ContractNumber, &c.Year, &c.Commodity,
			&bushels, &cash, &futures, &basis, &active, &deleted); err != nil {
			return err
		}
		c.AllocatedBushels = dec(bushels)
		c.CashPrice = decPtr(cash)
		c.FuturesPrice = decPtr(futures)
		c.BasisPrice = decPtr(basis)
		c.Active = active != 0
		c.Deleted = deleted != 0
		f.Contracts = append(f.Contracts, c)
	}
	return contractRows.Err()
}

func (s *Store) FarmsByEntity(ctx context.Context, entityID farm.EntityID, year int) ([]farm.Farm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, business_id, entity_id, parcel_id, name, year, commodity, acres,
		       aph, projected_yield, trucking_fee, deleted
		FROM farms WHERE entity_id = ? AND year = ? AND deleted = 0 ORDER BY id`,
		entityID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []farm.Farm
	for rows.Next() {
		f, err := scanFarm(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func (s *Store) sumAcres(ctx context.Context, query string, args ...any) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()

	// Acres are TEXT; sum in decimal, not SQL, to avoid float drift.
	total := decimal.Zero
	for rows.Next() {
		var acres string
		if err := rows.Scan(&acres); err != nil {
			return decimal.Zero, err
		}
		total = total.Add(dec(acres))
	}
	return total, rows.Err()
}

func (s *Store) SumEntityAcres(ctx context.Context, entityID farm.EntityID, year int) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sumAcres(ctx, "SELECT acres FROM farms WHERE entity_id = ? AND year = ? AND deleted = 0", entityID, year)
}

func (s *Store) SumBusinessAcres(ctx context.Context, businessID farm.BusinessID, year int) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sumAcres(ctx, "SELECT acres FROM farms WHERE business_id = ? AND year = ? AND deleted = 0", businessID, year)
}

func (s *Store) FindParcel(ctx context.Context, parcelID farm.ParcelID) (*farm.LandParcel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findParcelLocked(ctx, parcelID)
}

func (s *Store) findParcelLocked(ctx context.Context, parcelID farm.ParcelID) (*farm.LandParcel, error) {
	var (
		p          farm.LandParcel
		totalAcres string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, business_id, name, total_acres FROM land_parcels WHERE id = ?", parcelID).
		Scan(&p.ID, &p.BusinessID, &p.Name, &totalAcres)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.TotalAcres = dec(totalAcres)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, lender, active, use_simple_mode, principal, interest_rate,
		       term_months, monthly_payment, remaining_balance, annual_payment
		FROM land_loans WHERE parcel_id = ? ORDER BY id`, parcelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// Drain the loan rows before issuing the payment queries so the
	// connection is free again.
	for rows.Next() {
		var (
			l                        farm.LandLoan
			active, simpleMode       int
			principal, rate, monthly string
			remaining, annual        string
		)
		if err := rows.Scan(&l.ID, &l.Lender, &active, &simpleMode, &principal, &rate,
			&l.TermMonths, &monthly, &remaining, &annual); err != nil {
			return nil, err
		}
		l.Active = active != 0
		l.UseSimpleMode = simpleMode != 0
		l.Principal = dec(principal)
		l.InterestRate = dec(rate)
		l.MonthlyPayment = dec(monthly)
		l.RemainingBalance = dec(remaining)
		l.AnnualPayment = dec(annual)
		p.Loans = append(p.Loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range p.Loans {
		if err := s.loadLoanPayments(ctx, &p.Loans[i]); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func (s *Store) loadLoanPayments(ctx context.Context, l *farm.LandLoan) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT paid_at, principal, interest, remaining_balance
		FROM land_loan_payments WHERE loan_id = ? ORDER BY paid_at`, l.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p                              farm.LandLoanPayment
			paidAt, prin, inter, remaining string
		)
		if err := rows.Scan(&paidAt, &prin, &inter, &remaining); err != nil {
			return err
		}
		p.Date, _ = time.Parse(time.RFC3339, paidAt)
		p.Principal = dec(prin)
		p.Interest = dec(inter)
		p.RemainingBalance = dec(remaining)
		l.Payments = append(l.Payments, p)
	}
	return rows.Err()
}

func (s *Store) ParcelsByBusiness(ctx context.Context, businessID farm.BusinessID) ([]farm.LandParcel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM land_parcels WHERE business_id = ? ORDER BY id", businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []farm.ParcelID
	for rows.Next() {
		var id farm.ParcelID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []farm.LandParcel
	for _, id := range ids {
		p, err := s.findParcelLocked(ctx, id)
		if err != nil {
			return nil, err
		}
		if p != nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *Store) OperatingLoans(ctx context.Context, entityID farm.EntityID, year int) ([]farm.OperatingLoan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_id, year, credit_limit, interest_rate, current_balance, active
		FROM operating_loans WHERE entity_id = ? AND year = ? AND active = 1 ORDER BY id`,
		entityID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []farm.OperatingLoan
	for rows.Next() {
		l, err := scanOperatingLoan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func scanOperatingLoan(r rowScanner) (*farm.OperatingLoan, error) {
	var (
		l                    farm.OperatingLoan
		limit, rate, balance string
		active               int
	)
	if err := r.Scan(&l.ID, &l.EntityID, &l.Year, &limit, &rate, &balance, &active); err != nil {
		return nil, err
	}
	l.CreditLimit = dec(limit)
	l.InterestRate = dec(rate)
	l.CurrentBalance = dec(balance)
	l.Active = active != 0
	return &l, nil
}

func (s *Store) EntitiesByBusiness(ctx context.Context, businessID farm.BusinessID) ([]farm.GrainEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, business_id, name FROM grain_entities WHERE business_id = ? ORDER BY id", businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []farm.GrainEntity
	for rows.Next() {
		var e farm.GrainEntity
		if err := rows.Scan(&e.ID, &e.BusinessID, &e.Name); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) EquipmentLoans(ctx context.Context, businessID farm.BusinessID, year int) ([]farm.EquipmentLoan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, business_id, equipment_name, year, financing_type, active, deleted,
		       include_in_breakeven, use_simple_mode, annual_payment, interest_rate,
		       monthly_payment, remaining_balance, annual_interest_override, annual_principal_override
		FROM equipment_loans
		WHERE business_id = ? AND year = ? AND active = 1 AND deleted = 0 ORDER BY id`,
		businessID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []farm.EquipmentLoan
	for rows.Next() {
		var (
			l                                      farm.EquipmentLoan
			active, deleted, breakeven, simpleMode int
			annual, rate, monthly, remaining       string
			interestOverride, principalOverride    sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.BusinessID, &l.EquipmentName, &l.Year, &l.FinancingType,
			&active, &deleted, &breakeven, &simpleMode, &annual, &rate, &monthly, &remaining,
			&interestOverride, &principalOverride); err != nil {
			return nil, err
		}
		l.Active = active != 0
		l.Deleted = deleted != 0
		l.IncludeInBreakeven = breakeven != 0
		l.UseSimpleMode = simpleMode != 0
		l.AnnualPayment = dec(annual)
		l.InterestRate = dec(rate)
		l.MonthlyPayment = dec(monthly)
		l.RemainingBalance = dec(remaining)
		l.AnnualInterestOverride = decPtr(interestOverride)
		l.AnnualPrincipalOverride = decPtr(principalOverride)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) FindBusiness(ctx context.Context, businessID farm.BusinessID) (*farm.Business, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		b   farm.Business
		fee string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, default_trucking_fee FROM businesses WHERE id = ?", businessID).
		Scan(&b.ID, &b.Name, &fee)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	b.DefaultTruckingFeePerBushel = dec(fee)
	return &b, nil
}

func (s *Store) FindInsurancePolicy(ctx context.Context, farmID farm.FarmID, businessID farm.BusinessID) (*farm.InsurancePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		p                                  farm.InsurancePolicy
		projected, premium, scoP, ecoP, cl string
		hasSCO, hasECO                     int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT farm_id, business_id, projected_price, premium_per_acre, has_sco, has_eco,
		       sco_premium_per_acre, eco_premium_per_acre, coverage_level
		FROM insurance_policies WHERE farm_id = ? AND business_id = ?`, farmID, businessID).
		Scan(&p.FarmID, &p.BusinessID, &projected, &premium, &hasSCO, &hasECO, &scoP, &ecoP, &cl)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.ProjectedPrice = dec(projected)
	p.PremiumPerAcre = dec(premium)
	p.HasSCO = hasSCO != 0
	p.HasECO = hasECO != 0
	p.SCOPremiumPerAcre = dec(scoP)
	p.ECOPremiumPerAcre = dec(ecoP)
	p.CoverageLevel = dec(cl)
	return &p, nil
}

// =============================================================================
// LOAN LEDGER (farm.LoanLedger interface)
// =============================================================================

// RecordTransaction applies a draw or payment against an operating
// loan. The ledger insert and the balance update commit together or
// roll back together; the store mutex serializes writers so same-loan
// writes cannot interleave.
func (s *Store) RecordTransaction(ctx context.Context, loanID farm.LoanID, txType farm.LoanTransactionType,
	amount decimal.Decimal, date time.Time, description string) (*farm.OperatingLoanTransaction, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	var balance string
	err := s.db.QueryRowContext(ctx,
		"SELECT current_balance FROM operating_loans WHERE id = ?", loanID).Scan(&balance)
	if err == sql.ErrNoRows {
		return nil, farm.ErrLoanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", farm.ErrPersistence, err)
	}

	next, err := farm.NextBalance(dec(balance), txType, amount)
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

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", farm.ErrPersistence, err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `
		INSERT INTO operating_loan_transactions
		(id, loan_id, tx_type, amount, tx_date, description, balance_after, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.LoanID, tx.Type, tx.Amount.String(), tx.Date.UTC().Format(time.RFC3339),
		tx.Description, tx.BalanceAfter.String(), tx.CreatedAt.Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("%w: %v", farm.ErrPersistence, err)
	}

	if _, err := dbTx.ExecContext(ctx,
		"UPDATE operating_loans SET current_balance = ? WHERE id = ?",
		next.String(), loanID); err != nil {
		return nil, fmt.Errorf("%w: %v", farm.ErrPersistence, err)
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", farm.ErrPersistence, err)
	}
	return &tx, nil
}

func (s *Store) Transactions(ctx context.Context, loanID farm.LoanID) ([]farm.OperatingLoanTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, loan_id, tx_type, amount, tx_date, description, balance_after, created_at
		FROM operating_loan_transactions WHERE loan_id = ?
		ORDER BY tx_date ASC, created_at ASC`, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []farm.OperatingLoanTransaction
	for rows.Next() {
		var (
			tx                farm.OperatingLoanTransaction
			amount, balance   string
			txDate, createdAt string
		)
		if err := rows.Scan(&tx.ID, &tx.LoanID, &tx.Type, &amount, &txDate,
			&tx.Description, &balance, &createdAt); err != nil {
			return nil, err
		}
		tx.Amount = dec(amount)
		tx.BalanceAfter = dec(balance)
		tx.Date, _ = time.Parse(time.RFC3339, txDate)
		tx.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *Store) FindOperatingLoan(ctx context.Context, loanID farm.LoanID) (*farm.OperatingLoan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, entity_id, year, credit_limit, interest_rate, current_balance, active
		FROM operating_loans WHERE id = ?`, loanID)

	l, err := scanOperatingLoan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}
