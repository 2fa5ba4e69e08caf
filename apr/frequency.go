/*
Package apr computes repayment calendars, level payments, and the
Regulation Z Appendix J Annual Percentage Rate for closed-end consumer
loans.

PURPOSE:
  This package is the computational core shared by the loan ledger and
  the API layer. It knows nothing about persistence or HTTP: every
  function takes explicit inputs and either returns its result or fails
  with one of the sentinel errors in errors.go.

KEY CONCEPTS:
  - Frequency: one of six payment cadences, each with a fixed number of
    unit-periods per year
  - Date: an explicit year/month/day value (date.go)
  - Level payment: the annuity amount that amortizes a loan over its
    fixed two-year maximum term (interest.go)
  - APR solver: iteration + interpolation over the Appendix J General
    Equation (solver.go)

PRECISION:
  Money and disclosed rates are decimal.Decimal throughout. The solver's
  internal root search runs on float64 (see solver.go for why).

SEE ALSO:
  - loan: the mutable amortization ledger built on these primitives
*/
package apr

import "fmt"

// =============================================================================
// FREQUENCY TABLE - Payment cadences and their unit-periods per year
// =============================================================================

// Frequency identifies a payment cadence by its two-letter wire code.
// The codes are the ones loan servicing has always used; they appear in
// API payloads and the loans table, so they are part of the contract.
type Frequency string

const (
	Daily       Frequency = "DA"
	Weekly      Frequency = "WE"
	BiWeekly    Frequency = "BW"
	SemiMonthly Frequency = "SM"
	Monthly     Frequency = "MO"
	BiMonthly   Frequency = "BM"
)

// loanYears is the fixed maximum loan term. A product invariant, not a
// tunable: every schedule runs at most two years.
const loanYears = 2

var periodsPerYear = map[Frequency]int{
	Daily:       365,
	Weekly:      52,
	BiWeekly:    26,
	SemiMonthly: 24,
	Monthly:     12,
	BiMonthly:   6,
}

// Valid reports whether the frequency is one of the six known cadences.
func (f Frequency) Valid() bool {
	_, ok := periodsPerYear[f]
	return ok
}

func (f Frequency) String() string { return string(f) }

// ParseFrequency converts a wire code to a Frequency.
func ParseFrequency(code string) (Frequency, error) {
	f := Frequency(code)
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, code)
	}
	return f, nil
}

// AllFrequencies returns the catalog in descending periods-per-year order.
func AllFrequencies() []Frequency {
	return []Frequency{Daily, Weekly, BiWeekly, SemiMonthly, Monthly, BiMonthly}
}

// PeriodMode selects what Periods counts.
type PeriodMode int

const (
	// PerYear counts unit-periods in one year.
	PerYear PeriodMode = iota
	// Total counts unit-periods over the full two-year maximum term.
	Total
)

// Periods returns the number of unit-periods for a frequency, either per
// year or over the whole term.
func Periods(f Frequency, mode PeriodMode) (int, error) {
	ppy, ok := periodsPerYear[f]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFrequency, f)
	}
	if mode == Total {
		return ppy * loanYears, nil
	}
	return ppy, nil
}

// unitPeriodDays is the average length of one unit-period in days,
// used for odd-days fractions (Appendix J measures time in unit-periods).
func unitPeriodDays(f Frequency) float64 {
	return 365.0 / float64(periodsPerYear[f])
}
