package loan

import "context"

// =============================================================================
// SCHEDULE STORE - Persistence collaborator
// =============================================================================

// ScheduleStore durably stores ledgers keyed by a caller-chosen loan
// identifier. The ledger is already validated when it is handed over;
// implementations wrap storage failures in PersistenceError and never
// swallow them. They do not retry - that is the caller's call.
type ScheduleStore interface {
	// SaveSchedule stores or replaces the ledger for a loan.
	// Fails with ErrMissingScheduleID on an empty identifier and
	// ErrEmptyAmortizationTable on a ledger with no entries.
	SaveSchedule(ctx context.Context, loanID string, ledger *Ledger) error

	// LoadSchedule returns the stored ledger, or (nil, nil) if the loan
	// is unknown.
	LoadSchedule(ctx context.Context, loanID string) (*Ledger, error)

	// ListLoanIDs returns every stored loan identifier, sorted.
	ListLoanIDs(ctx context.Context) ([]string, error)
}
