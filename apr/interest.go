package apr

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// INTEREST & PAYMENT MATH
// =============================================================================

var (
	one         = decimal.NewFromInt(1)
	daysPerYear = decimal.NewFromInt(365)
)

// RatePerPeriod converts an annual rate to the rate for one unit-period
// of the given frequency. 0.24 annual at BiWeekly is 0.24/26.
func RatePerPeriod(annualRate decimal.Decimal, f Frequency) (decimal.Decimal, error) {
	ppy, err := Periods(f, PerYear)
	if err != nil {
		return decimal.Zero, err
	}
	if !annualRate.IsPositive() {
		return decimal.Zero, ErrInvalidAnnualInterestRate
	}
	return annualRate.Div(decimal.NewFromInt(int64(ppy))), nil
}

// AccruedInterest returns simple interest earned on a principal over a
// day count: principal * annualRate * days / 365 (actual/365 fixed).
// Zero days, zero principal, and zero rate are all permitted and yield
// zero; only negative inputs are rejected.
func AccruedInterest(days int, principal, annualRate decimal.Decimal) (decimal.Decimal, error) {
	if annualRate.IsNegative() {
		return decimal.Zero, ErrInvalidDailyInterestRate
	}
	if days < 0 {
		return decimal.Zero, ErrInvalidDays
	}
	// Sub-cent dust from upstream arithmetic is tolerated; a balance
	// that is negative at cent precision is a caller bug.
	if principal.Round(2).IsNegative() {
		return decimal.Zero, ErrInvalidPrincipal
	}
	return principal.Mul(annualRate).Mul(decimal.NewFromInt(int64(days))).Div(daysPerYear), nil
}

// LevelPayment returns the standard annuity payment that amortizes
// loanAmount over the frequency's full two-year term:
//
//	A = P * r * (1+r)^n / ((1+r)^n - 1)
//
// where r is the periodic rate and n the total number of periods.
// This is an estimate: the ledger's refinement step nudges it so the
// rounding residual lands entirely in the final period.
func LevelPayment(loanAmount, annualRate decimal.Decimal, f Frequency) (decimal.Decimal, error) {
	if !annualRate.IsPositive() {
		return decimal.Zero, ErrInvalidAnnualInterestRate
	}
	if !loanAmount.IsPositive() {
		return decimal.Zero, ErrInvalidLoanAmount
	}
	r, err := RatePerPeriod(annualRate, f)
	if err != nil {
		return decimal.Zero, err
	}
	n, err := Periods(f, Total)
	if err != nil {
		return decimal.Zero, err
	}
	compound := one.Add(r).Pow(decimal.NewFromInt(int64(n)))
	numerator := loanAmount.Mul(r).Mul(compound)
	denominator := compound.Sub(one)
	return numerator.Div(denominator), nil
}
