/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements loan.ScheduleStore and the holiday-aware business calendar
  using SQLite. The same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  loans:            One row per loan: terms, current frequency, payment
  schedule_entries: The amortization table, (loan_id, num) keyed
  holidays:         Dates the business calendar skips in addition to
                    weekends

REPLACE SEMANTICS:
  A ledger is saved as a whole: the loan row is upserted and the entry
  rows are deleted and re-inserted inside one transaction. The ledger is
  the unit of consistency; partial entry updates are never written.

MONEY COLUMNS:
  Decimals are stored as TEXT and parsed back through
  decimal.NewFromString, never through float64.

CONCURRENCY:
  WAL mode plus a sync.RWMutex. Per-loan write serialization is the
  caller's job (see api.Handler).

USAGE:
  store, err := sqlite.New("./data/loans.db")
  defer store.Close()
  err = store.SaveSchedule(ctx, "loan-123", ledger)
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/apr-engine/apr"
	"github.com/warp/apr-engine/loan"
)

// Store implements loan.ScheduleStore and backs the business calendar.
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
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS loans (
		id TEXT PRIMARY KEY,
		principal TEXT NOT NULL,
		annual_rate TEXT NOT NULL,
		original_frequency TEXT NOT NULL,
		current_frequency TEXT NOT NULL,
		disbursed_at TEXT NOT NULL,
		first_payment_at TEXT NOT NULL,
		end_at TEXT,
		payment TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS schedule_entries (
		loan_id TEXT NOT NULL REFERENCES loans(id) ON DELETE CASCADE,
		num INTEGER NOT NULL,
		due_date TEXT NOT NULL,
		days INTEGER NOT NULL,
		due_payment TEXT NOT NULL,
		new_interest TEXT NOT NULL,
		matured_interest TEXT NOT NULL,
		fees TEXT NOT NULL,
		paid_interest TEXT NOT NULL,
		unpaid_interest TEXT NOT NULL,
		paid_fees TEXT NOT NULL,
		unpaid_fees TEXT NOT NULL,
		principal_reduction TEXT NOT NULL,
		balance TEXT NOT NULL,
		paid_date TEXT,
		amount_paid TEXT NOT NULL,
		PRIMARY KEY (loan_id, num)
	);

	CREATE INDEX IF NOT EXISTS idx_entries_loan_due
		ON schedule_entries(loan_id, due_date);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_date_name
		ON holidays(date, name);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SCHEDULE STORE
// =============================================================================

func (s *Store) SaveSchedule(ctx context.Context, loanID string, ledger *loan.Ledger) error {
	if loanID == "" {
		return loan.ErrMissingScheduleID
	}
	if ledger == nil || len(ledger.Entries) == 0 {
		return loan.ErrEmptyAmortizationTable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &loan.PersistenceError{ScheduleID: loanID, Err: err}
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	var endAt sql.NullString
	if ledger.Terms.End != nil {
		endAt = sql.NullString{String: ledger.Terms.End.String(), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO loans (id, principal, annual_rate, original_frequency,
			current_frequency, disbursed_at, first_payment_at, end_at,
			payment, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			principal = excluded.principal,
			annual_rate = excluded.annual_rate,
			original_frequency = excluded.original_frequency,
			current_frequency = excluded.current_frequency,
			disbursed_at = excluded.disbursed_at,
			first_payment_at = excluded.first_payment_at,
			end_at = excluded.end_at,
			payment = excluded.payment,
			updated_at = excluded.updated_at`,
		loanID, ledger.Terms.Principal.String(), ledger.Terms.AnnualRate.String(),
		ledger.Terms.Frequency.String(), ledger.Frequency.String(),
		ledger.Terms.Disbursed.String(), ledger.Terms.FirstPayment.String(),
		endAt, ledger.Payment.String(), now, now)
	if err != nil {
		return &loan.PersistenceError{ScheduleID: loanID, Err: err}
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM schedule_entries WHERE loan_id = ?`, loanID); err != nil {
		return &loan.PersistenceError{ScheduleID: loanID, Err: err}
	}

	insert, err := tx.PrepareContext(ctx, `
		INSERT INTO schedule_entries (loan_id, num, due_date, days,
			due_payment, new_interest, matured_interest, fees,
			paid_interest, unpaid_interest, paid_fees, unpaid_fees,
			principal_reduction, balance, paid_date, amount_paid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return &loan.PersistenceError{ScheduleID: loanID, Err: err}
	}
	defer insert.Close()

	for _, e := range ledger.Entries {
		var paidDate sql.NullString
		if e.PaidDate != nil {
			paidDate = sql.NullString{String: e.PaidDate.String(), Valid: true}
		}
		_, err = insert.ExecContext(ctx, loanID, e.Num, e.DueDate.String(), e.Days,
			e.DuePayment.String(), e.NewInterest.String(), e.MaturedInterest.String(),
			e.Fees.String(), e.PaidInterest.String(), e.UnpaidInterest.String(),
			e.PaidFees.String(), e.UnpaidFees.String(),
			e.PrincipalReduction.String(), e.Balance.String(),
			paidDate, e.AmountPaid.String())
		if err != nil {
			return &loan.PersistenceError{ScheduleID: loanID, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &loan.PersistenceError{ScheduleID: loanID, Err: err}
	}
	return nil
}

func (s *Store) LoadSchedule(ctx context.Context, loanID string) (*loan.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT principal, annual_rate, original_frequency, current_frequency,
			disbursed_at, first_payment_at, end_at, payment
		FROM loans WHERE id = ?`, loanID)

	var principal, rate, origFreq, curFreq, disbursed, firstPayment, payment string
	var endAt sql.NullString
	err := row.Scan(&principal, &rate, &origFreq, &curFreq, &disbursed, &firstPayment, &endAt, &payment)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &loan.PersistenceError{ScheduleID: loanID, Err: err}
	}

	ledger := &loan.Ledger{Frequency: apr.Frequency(curFreq)}
	if ledger.Terms, err = scanTerms(principal, rate, origFreq, disbursed, firstPayment, endAt); err != nil {
		return nil, &loan.PersistenceError{ScheduleID: loanID, Err: err}
	}
	if ledger.Payment, err = decimal.NewFromString(payment); err != nil {
		return nil, &loan.PersistenceError{ScheduleID: loanID, Err: err}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT num, due_date, days, due_payment, new_interest,
			matured_interest, fees, paid_interest, unpaid_interest,
			paid_fees, unpaid_fees, principal_reduction, balance,
			paid_date, amount_paid
		FROM schedule_entries WHERE loan_id = ? ORDER BY num`, loanID)
	if err != nil {
		return nil, &loan.PersistenceError{ScheduleID: loanID, Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, &loan.PersistenceError{ScheduleID: loanID, Err: err}
		}
		ledger.Entries = append(ledger.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &loan.PersistenceError{ScheduleID: loanID, Err: err}
	}
	return ledger, nil
}

func (s *Store) ListLoanIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM loans ORDER BY id`)
	if err != nil {
		return nil, &loan.PersistenceError{Err: err}
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, &loan.PersistenceError{Err: err}
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanTerms(principal, rate, freq, disbursed, firstPayment string, endAt sql.NullString) (loan.Terms, error) {
	var terms loan.Terms
	var err error
	if terms.Principal, err = decimal.NewFromString(principal); err != nil {
		return terms, err
	}
	if terms.AnnualRate, err = decimal.NewFromString(rate); err != nil {
		return terms, err
	}
	terms.Frequency = apr.Frequency(freq)
	if terms.Disbursed, err = apr.ParseDate(disbursed); err != nil {
		return terms, err
	}
	if terms.FirstPayment, err = apr.ParseDate(firstPayment); err != nil {
		return terms, err
	}
	if endAt.Valid {
		end, err := apr.ParseDate(endAt.String)
		if err != nil {
			return terms, err
		}
		terms.End = &end
	}
	return terms, nil
}

func scanEntry(rows *sql.Rows) (loan.Entry, error) {
	var e loan.Entry
	var due string
	var paidDate sql.NullString
	var duePayment, newInterest, matured, fees, paidInterest, unpaidInterest,
		paidFees, unpaidFees, reduction, balance, amountPaid string

	err := rows.Scan(&e.Num, &due, &e.Days, &duePayment, &newInterest,
		&matured, &fees, &paidInterest, &unpaidInterest, &paidFees,
		&unpaidFees, &reduction, &balance, &paidDate, &amountPaid)
	if err != nil {
		return e, err
	}
	if e.DueDate, err = apr.ParseDate(due); err != nil {
		return e, err
	}
	for _, field := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&e.DuePayment, duePayment}, {&e.NewInterest, newInterest},
		{&e.MaturedInterest, matured}, {&e.Fees, fees},
		{&e.PaidInterest, paidInterest}, {&e.UnpaidInterest, unpaidInterest},
		{&e.PaidFees, paidFees}, {&e.UnpaidFees, unpaidFees},
		{&e.PrincipalReduction, reduction}, {&e.Balance, balance},
		{&e.AmountPaid, amountPaid},
	} {
		if *field.dst, err = decimal.NewFromString(field.src); err != nil {
			return e, err
		}
	}
	if paidDate.Valid {
		d, err := apr.ParseDate(paidDate.String)
		if err != nil {
			return e, err
		}
		e.PaidDate = &d
	}
	return e, nil
}

// =============================================================================
// HOLIDAYS + BUSINESS CALENDAR
// =============================================================================

type Holiday struct {
	ID   string
	Date apr.Date
	Name string
}

func (s *Store) AddHoliday(ctx context.Context, h Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO holidays (id, date, name, created_at) VALUES (?, ?, ?, ?)`,
		h.ID, h.Date.String(), h.Name, time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM holidays WHERE id = ?`, id)
	return err
}

func (s *Store) ListHolidays(ctx context.Context) ([]Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, date, name FROM holidays ORDER BY date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []Holiday
	for rows.Next() {
		var h Holiday
		var date string
		if err := rows.Scan(&h.ID, &date, &h.Name); err != nil {
			return nil, err
		}
		if h.Date, err = apr.ParseDate(date); err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

func (s *Store) isHoliday(date apr.Date) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM holidays WHERE date = ?`, date.String()).Scan(&n)
	return err == nil && n > 0
}

// Calendar is the holiday-aware apr.BusinessCalendar backed by this
// store: weekends plus every row in the holidays table are skipped.
type Calendar struct {
	store *Store
}

func (s *Store) Calendar() *Calendar { return &Calendar{store: s} }

func (c *Calendar) NextBusinessDay(date apr.Date, dir apr.Direction) apr.Date {
	step := 1
	if dir == apr.Backward {
		step = -1
	}
	for date.IsWeekend() || c.store.isHoliday(date) {
		date = date.AddDays(step)
	}
	return date
}
