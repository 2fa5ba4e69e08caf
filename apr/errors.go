/*
errors.go - Centralized error types for the calculation core

PURPOSE:
  One sentinel per distinct precondition, all in one place. Every public
  function in this package validates eagerly and returns exactly one of
  these before doing any work, so callers can rely on errors.Is.

ERROR CATEGORIES:
  1. Input validation - bad dates, frequencies, amounts, rates
  2. Solver errors - General Equation preconditions, non-convergence

USAGE:
  if errors.Is(err, apr.ErrInvalidFrequency) {
      // 400 to the client
  }

SEE ALSO:
  - loan/errors.go: ledger-level errors (empty table, persistence)
*/
package apr

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDate is returned for malformed calendar dates or
	// inverted date ranges.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidFrequency is returned for an unrecognized payment
	// frequency code.
	ErrInvalidFrequency = errors.New("invalid payment frequency")

	// ErrInvalidAnnualInterestRate is returned when an annual rate is
	// not strictly positive.
	ErrInvalidAnnualInterestRate = errors.New("invalid annual interest rate")

	// ErrInvalidLoanAmount is returned when a loan amount is not
	// strictly positive.
	ErrInvalidLoanAmount = errors.New("invalid loan amount")

	// ErrInvalidPrincipal is returned when a principal balance is
	// negative at two-decimal rounding.
	ErrInvalidPrincipal = errors.New("invalid principal amount")

	// ErrInvalidDays is returned for a negative day count.
	ErrInvalidDays = errors.New("invalid number of days")

	// ErrInvalidDailyInterestRate is returned when a daily accrual rate
	// is negative.
	ErrInvalidDailyInterestRate = errors.New("invalid daily interest rate")

	// General Equation preconditions.
	ErrInvalidPeriod                = errors.New("invalid total periods")
	ErrInvalidEstimatedFirstPayment = errors.New("invalid estimated first payment")
	ErrInvalidInitialPeriod         = errors.New("invalid initial period count")
	ErrInvalidFraction              = errors.New("invalid unit-period fraction")
	ErrInvalidRate                  = errors.New("invalid periodic rate")

	// APR solver preconditions.
	ErrInvalidAPRAmount          = errors.New("invalid APR disbursed amount")
	ErrInvalidAPRPeriodicPayment = errors.New("invalid APR periodic payment")
	ErrInvalidAPRInitialGuess    = errors.New("invalid APR initial guess")
	ErrInvalidAPRPartialPeriod   = errors.New("invalid APR partial period")
	ErrInvalidAPRFullPeriods     = errors.New("invalid APR full period count")

	// ErrAPRNotConverged is returned when the iteration cap is exhausted
	// before the residual meets tolerance. The wrapping ConvergenceError
	// still carries the best rate achieved.
	ErrAPRNotConverged = errors.New("APR iteration did not converge")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ConvergenceError reports a solver run that hit the iteration cap.
// The embedded result is the best rate achieved; callers decide whether
// a near-miss is acceptable for disclosure.
type ConvergenceError struct {
	Result   APRResult
	Residual float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("APR did not converge after %d iterations (best residual %g)",
		e.Result.Iterations, e.Residual)
}

func (e *ConvergenceError) Unwrap() error { return ErrAPRNotConverged }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidationError reports whether the error is a rejected input rather
// than a computational failure. The API layer maps these to 400.
func IsValidationError(err error) bool {
	for _, sentinel := range []error{
		ErrInvalidDate, ErrInvalidFrequency, ErrInvalidAnnualInterestRate,
		ErrInvalidLoanAmount, ErrInvalidPrincipal, ErrInvalidDays,
		ErrInvalidDailyInterestRate, ErrInvalidPeriod,
		ErrInvalidEstimatedFirstPayment, ErrInvalidInitialPeriod,
		ErrInvalidFraction, ErrInvalidRate, ErrInvalidAPRAmount,
		ErrInvalidAPRPeriodicPayment, ErrInvalidAPRInitialGuess,
		ErrInvalidAPRPartialPeriod, ErrInvalidAPRFullPeriods,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
