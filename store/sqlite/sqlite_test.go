package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/apr-engine/apr"
	"github.com/warp/apr-engine/loan"
	"github.com/warp/apr-engine/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestLedger(t *testing.T) *loan.Ledger {
	t.Helper()
	terms := loan.Terms{
		Principal:    decimal.NewFromInt(1000),
		AnnualRate:   decimal.NewFromFloat(0.24),
		Frequency:    apr.BiWeekly,
		Disbursed:    apr.NewDate(2025, time.January, 15),
		FirstPayment: apr.NewDate(2025, time.January, 29),
	}
	estimate, err := apr.LevelPayment(terms.Principal, terms.AnnualRate, terms.Frequency)
	require.NoError(t, err)
	_, ledger, err := loan.Refine(terms, estimate)
	require.NoError(t, err)
	return ledger
}

// =============================================================================
// SCHEDULE ROUNDTRIP
// =============================================================================

func TestSaveLoadSchedule(t *testing.T) {
	// GIVEN: A refined ledger with one posted payment
	store := newTestStore(t)
	ctx := context.Background()
	ledger := newTestLedger(t)
	first := ledger.Entries[0]
	require.NoError(t, ledger.ApplyPayment(first.DueDate, first.DuePayment))

	// WHEN: Saving and loading
	require.NoError(t, store.SaveSchedule(ctx, "loan-123", ledger))
	loaded, err := store.LoadSchedule(ctx, "loan-123")
	require.NoError(t, err)
	require.NotNil(t, loaded)

	// THEN: Terms, servicing state, and every entry survive intact
	assert.True(t, loaded.Terms.Principal.Equal(ledger.Terms.Principal))
	assert.True(t, loaded.Terms.AnnualRate.Equal(ledger.Terms.AnnualRate))
	assert.Equal(t, ledger.Terms.Frequency, loaded.Terms.Frequency)
	assert.True(t, loaded.Terms.Disbursed.Equal(ledger.Terms.Disbursed))
	assert.True(t, loaded.Terms.FirstPayment.Equal(ledger.Terms.FirstPayment))
	assert.Nil(t, loaded.Terms.End)
	assert.Equal(t, ledger.Frequency, loaded.Frequency)
	assert.True(t, loaded.Payment.Equal(ledger.Payment))

	require.Len(t, loaded.Entries, len(ledger.Entries))
	for i, want := range ledger.Entries {
		got := loaded.Entries[i]
		assert.Equal(t, want.Num, got.Num)
		assert.True(t, got.DueDate.Equal(want.DueDate))
		assert.Equal(t, want.Days, got.Days)
		assert.True(t, got.DuePayment.Equal(want.DuePayment), "entry %d due payment", want.Num)
		assert.True(t, got.NewInterest.Equal(want.NewInterest), "entry %d interest", want.Num)
		assert.True(t, got.Balance.Equal(want.Balance), "entry %d balance", want.Num)
	}

	// The paid entry kept its date; the rest stayed null.
	require.NotNil(t, loaded.Entries[0].PaidDate)
	assert.True(t, loaded.Entries[0].PaidDate.Equal(first.DueDate))
	assert.True(t, loaded.Entries[0].AmountPaid.Equal(first.DuePayment))
	assert.Nil(t, loaded.Entries[1].PaidDate)
}

func TestSaveSchedule_ReplacesEntries(t *testing.T) {
	// GIVEN: A saved ledger
	store := newTestStore(t)
	ctx := context.Background()
	ledger := newTestLedger(t)
	require.NoError(t, store.SaveSchedule(ctx, "loan-123", ledger))

	// WHEN: Migrating frequency and saving again
	_, err := ledger.ChangeFrequency(ledger.Entries[0].DueDate, apr.Monthly)
	require.NoError(t, err)
	require.NoError(t, store.SaveSchedule(ctx, "loan-123", ledger))

	// THEN: The stored table is fully replaced, not appended
	loaded, err := store.LoadSchedule(ctx, "loan-123")
	require.NoError(t, err)
	totalMonthly, _ := apr.Periods(apr.Monthly, apr.Total)
	assert.Len(t, loaded.Entries, totalMonthly)
	assert.Equal(t, apr.Monthly, loaded.Frequency)
	assert.Equal(t, apr.BiWeekly, loaded.Terms.Frequency, "original terms are preserved")
}

func TestSaveSchedule_PersistsEndDate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	terms := newTestLedger(t).Terms
	end := terms.Disbursed.AddMonths(6)
	terms.End = &end
	estimate, err := apr.LevelPayment(terms.Principal, terms.AnnualRate, terms.Frequency)
	require.NoError(t, err)
	_, ledger, err := loan.Refine(terms, estimate)
	require.NoError(t, err)

	require.NoError(t, store.SaveSchedule(ctx, "loan-capped", ledger))
	loaded, err := store.LoadSchedule(ctx, "loan-capped")
	require.NoError(t, err)
	require.NotNil(t, loaded.Terms.End)
	assert.True(t, loaded.Terms.End.Equal(end))
}

func TestSaveSchedule_Validation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.SaveSchedule(ctx, "", newTestLedger(t))
	assert.ErrorIs(t, err, loan.ErrMissingScheduleID)

	err = store.SaveSchedule(ctx, "loan-123", &loan.Ledger{})
	assert.ErrorIs(t, err, loan.ErrEmptyAmortizationTable)
}

func TestLoadSchedule_UnknownIsNilNil(t *testing.T) {
	store := newTestStore(t)
	loaded, err := store.LoadSchedule(context.Background(), "no-such-loan")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestListLoanIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ledger := newTestLedger(t)

	require.NoError(t, store.SaveSchedule(ctx, "loan-b", ledger))
	require.NoError(t, store.SaveSchedule(ctx, "loan-a", ledger))

	ids, err := store.ListLoanIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"loan-a", "loan-b"}, ids)
}

// =============================================================================
// HOLIDAYS + BUSINESS CALENDAR
// =============================================================================

func TestHolidays_CRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	july4 := sqlite.Holiday{ID: "hol-1", Date: apr.NewDate(2025, time.July, 4), Name: "Independence Day"}
	require.NoError(t, store.AddHoliday(ctx, july4))

	holidays, err := store.ListHolidays(ctx)
	require.NoError(t, err)
	require.Len(t, holidays, 1)
	assert.Equal(t, "hol-1", holidays[0].ID)
	assert.True(t, holidays[0].Date.Equal(july4.Date))
	assert.Equal(t, "Independence Day", holidays[0].Name)

	require.NoError(t, store.DeleteHoliday(ctx, "hol-1"))
	holidays, err = store.ListHolidays(ctx)
	require.NoError(t, err)
	assert.Empty(t, holidays)
}

func TestCalendar_SkipsHolidaysAndWeekends(t *testing.T) {
	// GIVEN: July 4 2025 is a Friday holiday
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddHoliday(ctx, sqlite.Holiday{
		ID: "hol-1", Date: apr.NewDate(2025, time.July, 4), Name: "Independence Day",
	}))
	cal := store.Calendar()

	// WHEN: Asking for the next business day from the holiday
	// THEN: Friday is skipped, the weekend follows, Monday wins
	got := cal.NextBusinessDay(apr.NewDate(2025, time.July, 4), apr.Forward)
	assert.True(t, got.Equal(apr.NewDate(2025, time.July, 7)))

	// Backward lands on Thursday.
	got = cal.NextBusinessDay(apr.NewDate(2025, time.July, 4), apr.Backward)
	assert.True(t, got.Equal(apr.NewDate(2025, time.July, 3)))

	// A plain weekday passes through.
	tuesday := apr.NewDate(2025, time.July, 8)
	assert.True(t, cal.NextBusinessDay(tuesday, apr.Forward).Equal(tuesday))
}

func TestCalendar_DrivesDueDateGeneration(t *testing.T) {
	// The store-backed calendar plugs straight into the schedule
	// generator.
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddHoliday(ctx, sqlite.Holiday{
		ID: "hol-1", Date: apr.NewDate(2025, time.January, 29), Name: "Observed",
	}))

	start := apr.NewDate(2025, time.January, 15)
	dates, err := apr.GenerateDueDates(start, apr.BiWeekly, true, nil, store.Calendar())
	require.NoError(t, err)

	// Jan 29 (Wednesday) is a holiday, so the first due date moves to
	// Jan 30.
	assert.True(t, dates[1].Equal(apr.NewDate(2025, time.January, 30)))
}
