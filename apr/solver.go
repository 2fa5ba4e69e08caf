/*
solver.go - Regulation Z Appendix J APR computation

PURPOSE:
  Implements the "General Equation" special form and the
  iteration-plus-interpolation search for the periodic rate that zeroes
  the discounted cash-flow residual of a level-payment loan:

                       Pj
      A  =  ------------------------
            (1 + f*i) * (1 + i)^t

  A   present value of the jth payment
  Pj  amount of the jth payment
  f   fraction of a unit-period from term start to the jth payment
  i   periodic rate candidate
  t   whole unit-periods from term start to the jth payment

  The solver seeks i such that
      disbursed = sum over j of discounted payments
  and annualizes the root by periods-per-year to obtain the disclosed
  APR.

PRECISION:
  The root search runs on float64. IEEE doubles carry ~15 significant
  digits against a 1e-10 relative tolerance, and (1+i)^t for t up to 730
  is a single math.Pow instead of an arbitrary-precision blowup.
  Disclosed values are converted back to decimal at the boundary.

TERMINATION:
  Hard cap of 100 secant iterations. On cap exhaustion the best rate
  achieved is returned together with a ConvergenceError; there is no
  silent divergence.
*/
package apr

import (
	"math"

	"github.com/shopspring/decimal"
)

const (
	// maxIterations bounds the secant search deterministically.
	maxIterations = 100

	// relativeTolerance is applied to the disbursed amount: the search
	// stops when |residual| <= amount * 1e-10.
	relativeTolerance = 1e-10

	// minRate keeps interpolation from wandering into non-positive
	// territory where the discount factor is undefined.
	minRate = 1e-12
)

// APRResult is the outcome of one CalculateFinalAPR run. It exists only
// for the duration of the call; nothing here is persisted.
type APRResult struct {
	// PeriodicRate is the unit-period rate the search settled on.
	PeriodicRate decimal.Decimal
	// APR is PeriodicRate annualized by periods-per-year.
	APR decimal.Decimal
	// Iterations actually performed.
	Iterations int
	// Converged is false when the iteration cap bound first.
	Converged bool
}

// GeneralEquation evaluates the Appendix J discount factor for a single
// payment. totalPeriods is validated for contract parity with the
// summation callers even though a single payment's present value does
// not depend on it.
func GeneralEquation(totalPeriods int, paymentAmount decimal.Decimal, initialWholePeriods int, partialPeriodFraction, periodicRate decimal.Decimal) (decimal.Decimal, error) {
	if totalPeriods <= 0 {
		return decimal.Zero, ErrInvalidPeriod
	}
	if !paymentAmount.IsPositive() {
		return decimal.Zero, ErrInvalidEstimatedFirstPayment
	}
	if initialWholePeriods <= 0 {
		return decimal.Zero, ErrInvalidInitialPeriod
	}
	if partialPeriodFraction.IsNegative() {
		return decimal.Zero, ErrInvalidFraction
	}
	if !periodicRate.IsPositive() {
		return decimal.Zero, ErrInvalidRate
	}
	v := discount(paymentAmount.InexactFloat64(), initialWholePeriods,
		partialPeriodFraction.InexactFloat64(), periodicRate.InexactFloat64())
	return decimal.NewFromFloat(v), nil
}

// discount is the unguarded single-payment present value. t may be zero
// here: the first payment of a fraction-only interval discounts by the
// partial-period factor alone.
func discount(payment float64, t int, fraction, rate float64) float64 {
	return payment / ((1 + fraction*rate) * math.Pow(1+rate, float64(t)))
}

// residual is the General Equation summed across the whole stream:
// present value of all payments minus the disbursed amount. The APR is
// the rate at which this crosses zero.
func residual(amount, payment float64, totalPeriods, fullPeriods int, fraction, rate float64) float64 {
	var pv float64
	for j := 0; j < totalPeriods; j++ {
		pv += discount(payment, fullPeriods+j, fraction, rate)
	}
	return pv - amount
}

// CalculateFinalAPR runs the iteration + interpolation procedure.
//
// disbursedAmount is the cash actually advanced; refinedPayment the
// level payment from the ledger refinement step; initialGuess an annual
// rate to seed the search (the note rate is a fine guess);
// partialPeriodFraction and fullPeriodsBeforeFirstPayment come from
// UnitPeriods. The returned APR is the annualized root.
//
// On cap exhaustion the best achieved result is still returned, wrapped
// in a ConvergenceError so the caller can decide whether to disclose it.
func CalculateFinalAPR(disbursedAmount, refinedPayment decimal.Decimal, f Frequency, initialGuess, partialPeriodFraction decimal.Decimal, fullPeriodsBeforeFirstPayment int) (APRResult, error) {
	if !disbursedAmount.IsPositive() {
		return APRResult{}, ErrInvalidAPRAmount
	}
	if !refinedPayment.IsPositive() {
		return APRResult{}, ErrInvalidAPRPeriodicPayment
	}
	if !initialGuess.IsPositive() {
		return APRResult{}, ErrInvalidAPRInitialGuess
	}
	if partialPeriodFraction.IsNegative() {
		return APRResult{}, ErrInvalidAPRPartialPeriod
	}
	if fullPeriodsBeforeFirstPayment < 0 {
		return APRResult{}, ErrInvalidAPRFullPeriods
	}
	total, err := Periods(f, Total)
	if err != nil {
		return APRResult{}, err
	}
	ppy, _ := Periods(f, PerYear)

	amount := disbursedAmount.InexactFloat64()
	payment := refinedPayment.InexactFloat64()
	fraction := partialPeriodFraction.InexactFloat64()
	tolerance := amount * relativeTolerance

	eval := func(rate float64) float64 {
		return residual(amount, payment, total, fullPeriodsBeforeFirstPayment, fraction, rate)
	}

	// Two starting points bracket-ish around the guess; the secant update
	// interpolates linearly between the last two (rate, residual) pairs.
	r1 := initialGuess.InexactFloat64() / float64(ppy)
	r2 := r1 * 1.1
	f1 := eval(r1)
	f2 := eval(r2)

	best, bestResidual := r1, math.Abs(f1)
	if math.Abs(f2) < bestResidual {
		best, bestResidual = r2, math.Abs(f2)
	}

	iterations := 0
	for ; iterations < maxIterations; iterations++ {
		if bestResidual <= tolerance {
			break
		}
		if f2 == f1 {
			// Flat residual: interpolation is undefined, stop at best.
			break
		}
		next := r2 - f2*(r2-r1)/(f2-f1)
		if next < minRate || math.IsNaN(next) || math.IsInf(next, 0) {
			next = minRate
		}
		r1, f1 = r2, f2
		r2 = next
		f2 = eval(r2)
		if math.Abs(f2) < bestResidual {
			best, bestResidual = r2, math.Abs(f2)
		}
	}

	result := APRResult{
		PeriodicRate: decimal.NewFromFloat(best),
		APR:          decimal.NewFromFloat(best * float64(ppy)),
		Iterations:   iterations,
		Converged:    bestResidual <= tolerance,
	}
	if !result.Converged {
		return result, &ConvergenceError{Result: result, Residual: bestResidual}
	}
	return result, nil
}
