package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/apr-engine/apr"
	"github.com/warp/apr-engine/loan"
	"github.com/warp/apr-engine/loan/store"
)

func newLedger(t *testing.T) *loan.Ledger {
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

func TestMemory_SaveLoad(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	ledger := newLedger(t)

	require.NoError(t, m.SaveSchedule(ctx, "loan-1", ledger))

	loaded, err := m.LoadSchedule(ctx, "loan-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, len(ledger.Entries), len(loaded.Entries))
	assert.True(t, loaded.Payment.Equal(ledger.Payment))
	assert.Equal(t, ledger.Frequency, loaded.Frequency)
}

func TestMemory_LoadUnknownIsNilNil(t *testing.T) {
	m := store.NewMemory()
	loaded, err := m.LoadSchedule(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestMemory_SaveValidation(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	err := m.SaveSchedule(ctx, "", newLedger(t))
	assert.ErrorIs(t, err, loan.ErrMissingScheduleID)

	err = m.SaveSchedule(ctx, "loan-1", &loan.Ledger{})
	assert.ErrorIs(t, err, loan.ErrEmptyAmortizationTable)
}

func TestMemory_ReturnsIsolatedCopies(t *testing.T) {
	// GIVEN: A saved ledger
	m := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.SaveSchedule(ctx, "loan-1", newLedger(t)))

	// WHEN: Mutating a loaded copy
	first, err := m.LoadSchedule(ctx, "loan-1")
	require.NoError(t, err)
	require.NoError(t, first.ApplyPayment(first.Entries[0].DueDate, first.Entries[0].DuePayment))

	// THEN: The stored ledger is unaffected
	second, err := m.LoadSchedule(ctx, "loan-1")
	require.NoError(t, err)
	assert.Nil(t, second.Entries[0].PaidDate)
	assert.True(t, second.Entries[0].AmountPaid.IsZero())
}

func TestMemory_ListLoanIDs(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	ledger := newLedger(t)
	require.NoError(t, m.SaveSchedule(ctx, "loan-b", ledger))
	require.NoError(t, m.SaveSchedule(ctx, "loan-a", ledger))

	ids, err := m.ListLoanIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"loan-a", "loan-b"}, ids)
}
