package loan

import (
	"errors"
	"fmt"

	"github.com/warp/apr-engine/apr"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRepaymentAmount is returned when a scheduled or posted
	// payment amount is not strictly positive.
	ErrInvalidRepaymentAmount = errors.New("invalid repayment amount")

	// ErrEmptyAmortizationTable is returned when an operation needs at
	// least one schedule entry and there are none.
	ErrEmptyAmortizationTable = errors.New("empty amortization table")

	// ErrEntryNotFound is returned when a date falls past the final due
	// date of the schedule. Lookup itself reports this as a normal
	// (0, false) outcome; mutating operations surface it as an error.
	ErrEntryNotFound = errors.New("no schedule entry on or after date")

	// ErrMissingScheduleID is returned when persistence is asked to save
	// a ledger without an identifier.
	ErrMissingScheduleID = errors.New("missing amortization schedule identifier")

	// ErrPersistenceFailure wraps storage-level failures. The ledger
	// itself is already valid when this occurs; the caller decides
	// whether to retry.
	ErrPersistenceFailure = errors.New("failed to persist amortization schedule")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// PersistenceError carries the schedule identifier alongside the
// underlying storage error.
type PersistenceError struct {
	ScheduleID string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting schedule %q: %v", e.ScheduleID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return ErrPersistenceFailure }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is due to invalid caller input
// (either ledger-level or from the calculation core underneath).
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRepaymentAmount) ||
		errors.Is(err, ErrEmptyAmortizationTable) ||
		errors.Is(err, ErrMissingScheduleID) ||
		apr.IsValidationError(err)
}

// IsNotFound reports whether the error indicates a date past the end of
// the schedule.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntryNotFound)
}
