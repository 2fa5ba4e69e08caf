package apr_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/apr-engine/apr"
)

// =============================================================================
// DUE-DATE GENERATION
// =============================================================================

func TestGenerateDueDates_StartsAtStart(t *testing.T) {
	// GIVEN: A mid-month start on every frequency
	// THEN: The first element is always the start date itself

	start := apr.NewDate(2025, time.January, 15)
	for _, f := range apr.AllFrequencies() {
		dates, err := apr.GenerateDueDates(start, f, false, nil, nil)
		require.NoError(t, err)
		require.NotEmpty(t, dates)
		assert.Equal(t, start, dates[0], "frequency %s", f)
	}
}

func TestGenerateDueDates_BiWeekly(t *testing.T) {
	// GIVEN: A bi-weekly schedule over the default two-year window
	start := apr.NewDate(2025, time.January, 15)
	dates, err := apr.GenerateDueDates(start, apr.BiWeekly, false, nil, nil)
	require.NoError(t, err)

	// THEN: Start plus all 52 periods fit inside two years
	total, _ := apr.Periods(apr.BiWeekly, apr.Total)
	assert.Len(t, dates, total+1)

	// Consecutive dates are exactly 14 days apart.
	for i := 1; i < len(dates); i++ {
		assert.Equal(t, 14, apr.DaysBetween(dates[i-1], dates[i]), "gap before element %d", i)
	}
}

func TestGenerateDueDates_Monthly(t *testing.T) {
	start := apr.NewDate(2025, time.January, 31)
	dates, err := apr.GenerateDueDates(start, apr.Monthly, false, nil, nil)
	require.NoError(t, err)

	total, _ := apr.Periods(apr.Monthly, apr.Total)
	require.Len(t, dates, total+1)

	// Month-end anchor clamps in short months and recovers in long ones.
	assert.Equal(t, apr.NewDate(2025, time.February, 28), dates[1])
	assert.Equal(t, apr.NewDate(2025, time.March, 31), dates[2])
	assert.Equal(t, apr.NewDate(2025, time.April, 30), dates[3])
	assert.Equal(t, apr.NewDate(2027, time.January, 31), dates[total])
}

func TestGenerateDueDates_SemiMonthly(t *testing.T) {
	// GIVEN: A semi-monthly schedule anchored on the 15th
	start := apr.NewDate(2025, time.January, 15)
	dates, err := apr.GenerateDueDates(start, apr.SemiMonthly, false, nil, nil)
	require.NoError(t, err)
	require.True(t, len(dates) > 4)

	// THEN: Odd steps land on anchor + 15 days, even steps back on the anchor
	assert.Equal(t, apr.NewDate(2025, time.January, 30), dates[1])
	assert.Equal(t, apr.NewDate(2025, time.February, 15), dates[2])
	assert.Equal(t, apr.NewDate(2025, time.March, 2), dates[3])
	assert.Equal(t, apr.NewDate(2025, time.March, 15), dates[4])
}

func TestGenerateDueDates_EndDateTruncates(t *testing.T) {
	start := apr.NewDate(2025, time.January, 15)
	end := apr.NewDate(2025, time.March, 15)
	dates, err := apr.GenerateDueDates(start, apr.Monthly, false, &end, nil)
	require.NoError(t, err)

	// Start, Feb 15, Mar 15 - nothing beyond the end date.
	require.Len(t, dates, 3)
	assert.Equal(t, end, dates[2])
}

func TestGenerateDueDates_SkipsNonBusinessDays(t *testing.T) {
	// GIVEN: A weekly schedule starting on a Saturday
	// WHEN: Business-day adjustment is on with the default calendar
	// THEN: Every generated date lands on a weekday (the start is exempt)

	start := apr.NewDate(2025, time.January, 4)
	dates, err := apr.GenerateDueDates(start, apr.Weekly, true, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, start, dates[0], "the start date is never adjusted")
	for _, d := range dates[1:] {
		assert.False(t, d.IsWeekend(), "date %s fell on a weekend", d)
	}
	// Saturday Jan 11 pushes to Monday Jan 13.
	assert.Equal(t, apr.NewDate(2025, time.January, 13), dates[1])
}

func TestGenerateDueDates_InvalidInputs(t *testing.T) {
	_, err := apr.GenerateDueDates(apr.Date{}, apr.Monthly, false, nil, nil)
	assert.ErrorIs(t, err, apr.ErrInvalidDate)

	_, err = apr.GenerateDueDates(apr.NewDate(2025, time.January, 15), apr.Frequency("XX"), false, nil, nil)
	assert.ErrorIs(t, err, apr.ErrInvalidFrequency)

	bad := apr.NewDate(2025, time.February, 30)
	_, err = apr.GenerateDueDates(apr.NewDate(2025, time.January, 15), apr.Monthly, false, &bad, nil)
	assert.ErrorIs(t, err, apr.ErrInvalidDate)
}

// =============================================================================
// UNIT-PERIOD MEASUREMENT
// =============================================================================

func TestUnitPeriods_ExactPeriod(t *testing.T) {
	// First payment exactly one period after disbursement: one full
	// period, no odd days.
	full, fraction, err := apr.UnitPeriods(
		apr.NewDate(2025, time.January, 15),
		apr.NewDate(2025, time.January, 29),
		apr.BiWeekly)
	require.NoError(t, err)
	assert.Equal(t, 1, full)
	assert.Zero(t, fraction)
}

func TestUnitPeriods_OddDays(t *testing.T) {
	// GIVEN: A first payment 19 days out on a 14-day cadence
	// THEN: One full period plus 5 odd days as a fraction of the
	//       365/26-day unit period

	full, fraction, err := apr.UnitPeriods(
		apr.NewDate(2025, time.January, 15),
		apr.NewDate(2025, time.February, 3),
		apr.BiWeekly)
	require.NoError(t, err)
	assert.Equal(t, 1, full)
	assert.InDelta(t, 5/(365.0/26.0), fraction, 1e-12)
}

func TestUnitPeriods_MonthEndClamp(t *testing.T) {
	// A monthly period from Jan 31 lands on Feb 28 by the clamping
	// convention, so Feb 28 is exactly one period with no odd days.
	full, fraction, err := apr.UnitPeriods(
		apr.NewDate(2025, time.January, 31),
		apr.NewDate(2025, time.February, 28),
		apr.Monthly)
	require.NoError(t, err)
	assert.Equal(t, 1, full)
	assert.Zero(t, fraction)
}

func TestUnitPeriods_FractionOnly(t *testing.T) {
	// A first payment closer than one period yields zero full periods and
	// a positive fraction.
	full, fraction, err := apr.UnitPeriods(
		apr.NewDate(2025, time.January, 15),
		apr.NewDate(2025, time.January, 20),
		apr.BiWeekly)
	require.NoError(t, err)
	assert.Equal(t, 0, full)
	assert.InDelta(t, 5/(365.0/26.0), fraction, 1e-12)
}

func TestUnitPeriods_InvalidInputs(t *testing.T) {
	_, _, err := apr.UnitPeriods(
		apr.NewDate(2025, time.February, 15),
		apr.NewDate(2025, time.January, 15),
		apr.BiWeekly)
	assert.ErrorIs(t, err, apr.ErrInvalidDate)

	_, _, err = apr.UnitPeriods(
		apr.NewDate(2025, time.January, 15),
		apr.NewDate(2025, time.January, 29),
		apr.Frequency("XX"))
	assert.ErrorIs(t, err, apr.ErrInvalidFrequency)
}
