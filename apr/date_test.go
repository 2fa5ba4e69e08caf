package apr_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/apr-engine/apr"
)

// =============================================================================
// VALIDITY
// =============================================================================

func TestDate_Valid(t *testing.T) {
	// GIVEN: A mix of real and impossible calendar dates
	// THEN: Only the real ones validate

	assert.True(t, apr.NewDate(2025, time.January, 15).Valid())
	assert.True(t, apr.NewDate(2024, time.February, 29).Valid(), "leap day in a leap year")

	assert.False(t, apr.NewDate(2025, time.February, 29).Valid(), "2025 is not a leap year")
	assert.False(t, apr.NewDate(2025, time.February, 30).Valid())
	assert.False(t, apr.NewDate(2025, time.April, 31).Valid())
	assert.False(t, apr.NewDate(0, time.January, 1).Valid())
	assert.False(t, apr.NewDate(2025, time.January, 0).Valid())
	assert.False(t, apr.Date{}.Valid())
}

func TestParseDate(t *testing.T) {
	d, err := apr.ParseDate("2025-03-15")
	require.NoError(t, err)
	assert.Equal(t, apr.NewDate(2025, time.March, 15), d)
	assert.Equal(t, "2025-03-15", d.String())

	for _, bad := range []string{"", "15/03/2025", "2025-13-01", "2025-02-30", "not-a-date"} {
		_, err := apr.ParseDate(bad)
		assert.ErrorIs(t, err, apr.ErrInvalidDate, "input %q", bad)
	}
}

// =============================================================================
// ARITHMETIC
// =============================================================================

func TestDate_AddMonths_ClampsToMonthEnd(t *testing.T) {
	// GIVEN: A month-end anchor day
	// WHEN: Advancing into shorter months
	// THEN: The day clamps to the last day instead of spilling over

	jan31 := apr.NewDate(2025, time.January, 31)
	assert.Equal(t, apr.NewDate(2025, time.February, 28), jan31.AddMonths(1))
	assert.Equal(t, apr.NewDate(2025, time.March, 31), jan31.AddMonths(2))
	assert.Equal(t, apr.NewDate(2025, time.April, 30), jan31.AddMonths(3))

	// Leap year keeps the 29th.
	assert.Equal(t, apr.NewDate(2024, time.February, 29),
		apr.NewDate(2024, time.January, 31).AddMonths(1))

	// Mid-month days are unaffected.
	assert.Equal(t, apr.NewDate(2025, time.February, 15),
		apr.NewDate(2025, time.January, 15).AddMonths(1))
}

func TestDate_AddDays(t *testing.T) {
	d := apr.NewDate(2025, time.December, 30)
	assert.Equal(t, apr.NewDate(2026, time.January, 1), d.AddDays(2))
	assert.Equal(t, apr.NewDate(2025, time.December, 28), d.AddDays(-2))
}

func TestDaysBetween(t *testing.T) {
	a := apr.NewDate(2025, time.January, 15)
	b := apr.NewDate(2025, time.January, 29)
	assert.Equal(t, 14, apr.DaysBetween(a, b))
	assert.Equal(t, -14, apr.DaysBetween(b, a))
	assert.Equal(t, 0, apr.DaysBetween(a, a))

	// Across a leap day.
	assert.Equal(t, 366, apr.DaysBetween(
		apr.NewDate(2024, time.January, 1),
		apr.NewDate(2025, time.January, 1)))
}

func TestDateDiff(t *testing.T) {
	// GIVEN: Ordered valid dates
	days, err := apr.DateDiff(
		apr.NewDate(2025, time.January, 15),
		apr.NewDate(2025, time.February, 15))
	require.NoError(t, err)
	assert.Equal(t, 31, days)

	// WHEN: The dates are inverted
	// THEN: InvalidDate, not a negative count
	_, err = apr.DateDiff(
		apr.NewDate(2025, time.February, 15),
		apr.NewDate(2025, time.January, 15))
	assert.ErrorIs(t, err, apr.ErrInvalidDate)

	_, err = apr.DateDiff(apr.Date{}, apr.NewDate(2025, time.January, 15))
	assert.ErrorIs(t, err, apr.ErrInvalidDate)
}

// =============================================================================
// BUSINESS CALENDAR
// =============================================================================

func TestWeekendCalendar(t *testing.T) {
	cal := apr.WeekendCalendar{}

	// A weekday is returned unchanged.
	friday := apr.NewDate(2025, time.January, 3)
	assert.Equal(t, friday, cal.NextBusinessDay(friday, apr.Forward))

	// Saturday rolls forward to Monday, backward to Friday.
	saturday := apr.NewDate(2025, time.January, 4)
	assert.Equal(t, apr.NewDate(2025, time.January, 6), cal.NextBusinessDay(saturday, apr.Forward))
	assert.Equal(t, friday, cal.NextBusinessDay(saturday, apr.Backward))

	sunday := apr.NewDate(2025, time.January, 5)
	assert.Equal(t, apr.NewDate(2025, time.January, 6), cal.NextBusinessDay(sunday, apr.Forward))
}
