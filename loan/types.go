/*
Package loan maintains the mutable amortization ledger for one loan.

PURPOSE:
  Builds the initial repayment schedule from loan terms, refines the
  level payment so rounding lands entirely in the final period, and
  applies servicing events over the life of the loan: posted payments,
  interest accrual as of an evaluation date, and mid-term payment
  frequency changes.

OWNERSHIP:
  A Ledger belongs to exactly one loan. Entries are mutated in place,
  never reordered; the tail may be rebuilt (frequency change) but the
  posted prefix is preserved. Callers must serialize mutating operations
  per loan - the ledger has no internal locking.

PRECISION:
  All money is decimal.Decimal rounded to cents at entry boundaries.
  Running balances carry full precision between periods and the final
  period absorbs the residual so principal reductions sum exactly to
  the original principal.

SEE ALSO:
  - apr: date schedules, interest math, and the APR solver
  - store/sqlite: durable storage for ledgers
*/
package loan

import (
	"github.com/shopspring/decimal"

	"github.com/warp/apr-engine/apr"
)

// =============================================================================
// TERMS - Immutable origination inputs
// =============================================================================

// Terms captures everything fixed at origination. Once a schedule is
// generated the terms never change; a frequency migration updates the
// ledger's current frequency but the original terms stay on record.
type Terms struct {
	Principal    decimal.Decimal
	AnnualRate   decimal.Decimal
	Frequency    apr.Frequency
	Disbursed    apr.Date
	FirstPayment apr.Date

	// End truncates the schedule before the standard two-year term.
	// Nil means disbursement + 2 years.
	End *apr.Date
}

// Validate checks every origination precondition eagerly, in the same
// order the operations that consume Terms would trip over them.
func (t Terms) Validate() error {
	if !t.AnnualRate.IsPositive() {
		return apr.ErrInvalidAnnualInterestRate
	}
	if !t.Principal.IsPositive() {
		return apr.ErrInvalidPrincipal
	}
	if !t.Frequency.Valid() {
		return apr.ErrInvalidFrequency
	}
	if !t.Disbursed.Valid() || !t.FirstPayment.Valid() {
		return apr.ErrInvalidDate
	}
	if _, err := apr.DateDiff(t.Disbursed, t.FirstPayment); err != nil {
		return err
	}
	if t.End != nil && !t.End.Valid() {
		return apr.ErrInvalidDate
	}
	return nil
}

// =============================================================================
// ENTRY - One repayment period
// =============================================================================

// Entry is one row of the amortization table. Scheduled fields are set
// at build time; the actual-payment fields (PaidInterest, PaidFees,
// PaidDate, AmountPaid) start zeroed and are mutated by servicing.
type Entry struct {
	// Num is the 1-based sequence number; Num and DueDate are both
	// strictly increasing and in 1:1 correspondence.
	Num     int
	DueDate apr.Date

	// Days covered since the previous entry (or since disbursement for
	// the first entry).
	Days int

	DuePayment      decimal.Decimal
	NewInterest     decimal.Decimal
	MaturedInterest decimal.Decimal
	Fees            decimal.Decimal

	PaidInterest   decimal.Decimal
	UnpaidInterest decimal.Decimal
	PaidFees       decimal.Decimal
	UnpaidFees     decimal.Decimal

	PrincipalReduction decimal.Decimal

	// Balance is the principal remaining after this period. Zero on the
	// final entry, exactly.
	Balance decimal.Decimal

	PaidDate   *apr.Date
	AmountPaid decimal.Decimal
}

// Paid reports whether a payment has been recorded against this entry.
func (e *Entry) Paid() bool { return e.PaidDate != nil }
