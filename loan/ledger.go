/*
ledger.go - Amortization ledger lifecycle

PURPOSE:
  One mutable sequence of schedule entries per loan, driven through a
  small state machine:

    Build            initial table from terms and a level payment
    Refine           iterate the payment until rounding lands in the
                     final period only
    Initialize       reset actual-payment fields for history replay
    AccrueInterest   mature overdue interest as of an evaluation date
    ApplyPayment     allocate a posted payment (interest, fees,
                     principal - oldest first)
    FindEntry        locate the period covering a date
    ChangeFrequency  rebuild the unpaid tail on a new cadence

ALLOCATION ORDER:
  Payments retire unpaid interest oldest-first, then unpaid fees, then
  principal on the located entry. Partial payments leave the remainder
  in the unpaid buckets for the next accrual pass.

FAILURE CONTRACT:
  Every operation validates all inputs before touching an entry. A
  returned error means the ledger is exactly as it was.
*/
package loan

import (
	"github.com/shopspring/decimal"

	"github.com/warp/apr-engine/apr"
)

// refineCap bounds the payment refinement loop. The cent-rounded
// adjustment reaches zero in a handful of passes; the cap is a guard,
// not a tuning knob.
const refineCap = 50

// =============================================================================
// LEDGER
// =============================================================================

// Ledger is the amortization table plus the terms it was built from.
// Frequency and Payment track the current servicing state, which can
// drift from Terms after a mid-term frequency change.
type Ledger struct {
	Terms     Terms
	Frequency apr.Frequency
	Payment   decimal.Decimal
	Entries   []Entry
}

// Build creates the initial amortization table: scheduled fields
// populated, actual-payment fields zeroed. Each period accrues simple
// interest over its day count on the running balance; the payment in
// excess of interest reduces principal. The final period is forced to
// close the balance exactly, absorbing rounding. If the payment
// overpays, the table closes early with fewer periods.
func Build(terms Terms, payment decimal.Decimal) (*Ledger, error) {
	if err := terms.Validate(); err != nil {
		return nil, err
	}
	if !payment.IsPositive() {
		return nil, ErrInvalidRepaymentAmount
	}

	end := terms.Disbursed.AddYears(2)
	if terms.End != nil {
		end = *terms.End
	}
	dates, err := apr.GenerateDueDates(terms.FirstPayment, terms.Frequency, false, &end, nil)
	if err != nil {
		return nil, err
	}
	total, _ := apr.Periods(terms.Frequency, apr.Total)
	if len(dates) > total {
		dates = dates[:total]
	}

	payment = payment.Round(2)
	balance := terms.Principal
	matured := decimal.Zero
	previous := terms.Disbursed
	entries := make([]Entry, 0, len(dates))

	for i, due := range dates {
		days := apr.DaysBetween(previous, due)
		interest, err := apr.AccruedInterest(days, balance, terms.AnnualRate)
		if err != nil {
			return nil, err
		}
		interest = interest.Round(2)

		reduction := payment.Sub(interest)
		duePayment := payment
		last := i == len(dates)-1
		if last || balance.Sub(reduction).Round(2).LessThanOrEqual(decimal.Zero) {
			// Forced closure: the remaining balance is the reduction,
			// whatever rounding has accumulated.
			reduction = balance
			duePayment = interest.Add(balance).Round(2)
			last = true
		}

		balance = balance.Sub(reduction)
		matured = matured.Add(interest)
		entries = append(entries, Entry{
			Num:                i + 1,
			DueDate:            due,
			Days:               days,
			DuePayment:         duePayment,
			NewInterest:        interest,
			MaturedInterest:    matured,
			UnpaidInterest:     interest,
			PrincipalReduction: reduction,
			Balance:            balance,
		})
		previous = due
		if last {
			break
		}
	}

	return &Ledger{
		Terms:     terms,
		Frequency: terms.Frequency,
		Payment:   payment,
		Entries:   entries,
	}, nil
}

// Refine adjusts an estimated level payment until the final period's
// forced closure differs from a regular period's principal share by
// less than the amount a one-cent payment change could fix. The
// residual that remains is absorbed entirely by the last period.
// Returns the refined payment and the ledger built with it.
func Refine(terms Terms, estimatedFirstPayment decimal.Decimal) (decimal.Decimal, *Ledger, error) {
	if err := terms.Validate(); err != nil {
		return decimal.Zero, nil, err
	}
	if !estimatedFirstPayment.IsPositive() {
		return decimal.Zero, nil, apr.ErrInvalidEstimatedFirstPayment
	}

	payment := estimatedFirstPayment.Round(2)
	var ledger *Ledger
	for i := 0; i < refineCap; i++ {
		var err error
		ledger, err = Build(terms, payment)
		if err != nil {
			return decimal.Zero, nil, err
		}
		n := len(ledger.Entries)
		if n == 0 {
			return decimal.Zero, nil, ErrEmptyAmortizationTable
		}
		last := ledger.Entries[n-1]

		// How far the forced closure sits from what a level period
		// would have retired. Positive means the payment is light.
		residual := last.PrincipalReduction.Sub(payment.Sub(last.NewInterest))
		adjust := residual.Div(decimal.NewFromInt(int64(n))).Round(2)
		if adjust.IsZero() {
			break
		}
		payment = payment.Add(adjust)
	}
	return payment, ledger, nil
}

// Initialize resets every actual-payment field (paid interest, paid
// fees, paid date, amount paid) without touching the scheduled fields,
// so real payment history can be replayed from scratch. Idempotent.
func (l *Ledger) Initialize() error {
	if len(l.Entries) == 0 {
		return ErrEmptyAmortizationTable
	}
	matured := decimal.Zero
	for i := range l.Entries {
		e := &l.Entries[i]
		matured = matured.Add(e.NewInterest)
		e.MaturedInterest = matured
		e.PaidInterest = decimal.Zero
		e.UnpaidInterest = e.NewInterest
		e.PaidFees = decimal.Zero
		e.UnpaidFees = e.Fees
		e.PaidDate = nil
		e.AmountPaid = decimal.Zero
	}
	return nil
}

// AccrueInterest recomputes matured interest as of an evaluation date.
// Every unpaid entry due on or before asOf accrues additional simple
// interest on its balance for the days it has been overdue; entries
// already marked paid are never altered. Deterministic in asOf: calling
// twice with the same date yields the same ledger.
func (l *Ledger) AccrueInterest(asOf apr.Date) error {
	if !asOf.Valid() {
		return apr.ErrInvalidDate
	}
	if !l.Terms.AnnualRate.IsPositive() {
		return apr.ErrInvalidAnnualInterestRate
	}
	if len(l.Entries) == 0 {
		return ErrEmptyAmortizationTable
	}

	matured := decimal.Zero
	for i := range l.Entries {
		e := &l.Entries[i]
		if e.Paid() || e.DueDate.After(asOf) {
			continue
		}
		overdue := apr.DaysBetween(e.DueDate, asOf)
		extra, err := apr.AccruedInterest(overdue, e.Balance, l.Terms.AnnualRate)
		if err != nil {
			return err
		}
		matured = matured.Add(e.UnpaidInterest).Add(extra.Round(2))
		e.MaturedInterest = matured
	}
	return nil
}

// ApplyPayment posts a real payment dated paymentDate. The amount
// retires unpaid interest oldest-first across every entry up to and
// including the one the payment lands on, then unpaid fees, and the
// remainder is recorded as principal on the located entry. The entry
// gets the paid date and the cumulative amount paid.
func (l *Ledger) ApplyPayment(paymentDate apr.Date, amount decimal.Decimal) error {
	if !paymentDate.Valid() {
		return apr.ErrInvalidDate
	}
	if !amount.IsPositive() {
		return ErrInvalidRepaymentAmount
	}
	num, ok, err := l.FindEntry(paymentDate)
	if err != nil {
		return err
	}
	if !ok {
		return ErrEntryNotFound
	}

	remaining := amount
	// Oldest matured interest first.
	for i := 0; i < num && remaining.IsPositive(); i++ {
		e := &l.Entries[i]
		if e.Paid() {
			continue
		}
		pay := decimal.Min(remaining, e.UnpaidInterest)
		if pay.IsPositive() {
			e.PaidInterest = e.PaidInterest.Add(pay)
			e.UnpaidInterest = e.UnpaidInterest.Sub(pay)
			remaining = remaining.Sub(pay)
		}
	}
	// Then fees.
	for i := 0; i < num && remaining.IsPositive(); i++ {
		e := &l.Entries[i]
		if e.Paid() {
			continue
		}
		pay := decimal.Min(remaining, e.UnpaidFees)
		if pay.IsPositive() {
			e.PaidFees = e.PaidFees.Add(pay)
			e.UnpaidFees = e.UnpaidFees.Sub(pay)
			remaining = remaining.Sub(pay)
		}
	}

	// Whatever is left counts against principal on the located entry.
	target := &l.Entries[num-1]
	d := paymentDate
	target.PaidDate = &d
	target.AmountPaid = target.AmountPaid.Add(amount)
	return nil
}

// FindEntry returns the sequence number of the first entry whose due
// date is on or after the given date. A date past the final due date is
// a normal not-found outcome, reported as (0, false, nil) - only
// malformed input or an empty ledger produce an error.
func (l *Ledger) FindEntry(date apr.Date) (int, bool, error) {
	if !date.Valid() {
		return 0, false, apr.ErrInvalidDate
	}
	if len(l.Entries) == 0 {
		return 0, false, ErrEmptyAmortizationTable
	}
	for _, e := range l.Entries {
		if e.DueDate.AfterOrEqual(date) {
			return e.Num, true, nil
		}
	}
	return 0, false, nil
}

// ChangeFrequency migrates the loan to a new payment cadence from the
// given date forward. Entries due before the date are preserved
// untouched; the rest are discarded and regenerated on the new
// frequency, using the balance as of the migration point as the tail's
// principal. The tail payment is re-derived through Refine. Returns the
// new level payment.
func (l *Ledger) ChangeFrequency(effective apr.Date, newFrequency apr.Frequency) (decimal.Decimal, error) {
	if !effective.Valid() {
		return decimal.Zero, apr.ErrInvalidDate
	}
	if !newFrequency.Valid() {
		return decimal.Zero, apr.ErrInvalidFrequency
	}
	num, ok, err := l.FindEntry(effective)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return decimal.Zero, ErrEntryNotFound
	}

	balance := l.Terms.Principal
	if num > 1 {
		balance = l.Entries[num-2].Balance
	}

	estimate, err := apr.LevelPayment(balance, l.Terms.AnnualRate, newFrequency)
	if err != nil {
		return decimal.Zero, err
	}
	tailTerms := Terms{
		Principal:    balance,
		AnnualRate:   l.Terms.AnnualRate,
		Frequency:    newFrequency,
		Disbursed:    effective,
		FirstPayment: apr.AdvancePeriods(effective, newFrequency, 1),
	}
	payment, tail, err := Refine(tailTerms, estimate)
	if err != nil {
		return decimal.Zero, err
	}

	entries := make([]Entry, 0, num-1+len(tail.Entries))
	entries = append(entries, l.Entries[:num-1]...)
	for i := range tail.Entries {
		tail.Entries[i].Num = len(entries) + i + 1
	}
	entries = append(entries, tail.Entries...)

	l.Entries = entries
	l.Frequency = newFrequency
	l.Payment = payment
	return payment, nil
}

// TotalPrincipal sums principal reductions across the ledger. For a
// freshly built table this equals the original principal exactly.
func (l *Ledger) TotalPrincipal() decimal.Decimal {
	sum := decimal.Zero
	for _, e := range l.Entries {
		sum = sum.Add(e.PrincipalReduction)
	}
	return sum
}
