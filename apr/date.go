package apr

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar-date value type (day granularity, no timezone ambiguity)
// =============================================================================

// Date is an explicit year/month/day value. It deliberately carries no
// time-of-day and no location: schedule math must not depend on the host
// clock or locale. Construct with NewDate or ParseDate and check Valid()
// before trusting user input - NewDate does not reject Feb 30.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

func Today() Date {
	now := time.Now().UTC()
	return Date{Year: now.Year(), Month: now.Month(), Day: now.Day()}
}

// Valid reports whether the date names a real calendar day.
// time.Date normalizes out-of-range components (Feb 30 becomes Mar 1/2),
// so a round-trip mismatch means the input was malformed.
func (d Date) Valid() bool {
	if d.Year <= 0 || d.Month < time.January || d.Month > time.December || d.Day < 1 {
		return false
	}
	t := d.Time()
	return t.Year() == d.Year && t.Month() == d.Month && t.Day() == d.Day
}

func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) IsZero() bool { return d == Date{} }

// Comparison
func (d Date) Before(other Date) bool        { return d.Time().Before(other.Time()) }
func (d Date) After(other Date) bool         { return d.Time().After(other.Time()) }
func (d Date) Equal(other Date) bool         { return d.Time().Equal(other.Time()) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date {
	t := d.Time().AddDate(0, 0, n)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// AddMonths advances by calendar months, clamping to the last day of the
// target month. Jan 31 + 1 month is Feb 28/29, not Mar 2. time.AddDate
// normalizes instead of clamping, which is wrong for due dates.
func (d Date) AddMonths(n int) Date {
	first := time.Date(d.Year, d.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	day := d.Day
	if last := daysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return Date{Year: first.Year(), Month: first.Month(), Day: day}
}

func (d Date) AddYears(n int) Date { return d.AddMonths(12 * n) }

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Properties
func (d Date) Weekday() time.Weekday { return d.Time().Weekday() }
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Date) String() string { return d.Time().Format("2006-01-02") }

// DaysBetween returns the number of days from one date to another.
// The result is negative when from is after to; use DateDiff for the
// validated variant.
func DaysBetween(from, to Date) int {
	return int(to.Time().Sub(from.Time()).Hours() / 24)
}

// DateDiff returns the day count between two valid, ordered dates.
func DateDiff(earlier, later Date) (int, error) {
	if !earlier.Valid() || !later.Valid() {
		return 0, ErrInvalidDate
	}
	if earlier.After(later) {
		return 0, fmt.Errorf("%w: %s is after %s", ErrInvalidDate, earlier, later)
	}
	return DaysBetween(earlier, later), nil
}

// =============================================================================
// BUSINESS CALENDAR - External collaborator for due-date adjustment
// =============================================================================

type Direction int

const (
	Forward Direction = iota
	Backward
)

// BusinessCalendar answers "what is the nearest business day?". The engine
// treats it as opaque: holiday lists live wherever the host keeps them
// (see store/sqlite for the holiday-aware implementation).
type BusinessCalendar interface {
	// NextBusinessDay returns date unchanged if it already falls on a
	// business day, otherwise the closest business day in the given
	// direction.
	NextBusinessDay(date Date, dir Direction) Date
}

// WeekendCalendar is the default calendar: weekends only, no holidays.
// Saturday and Sunday move forward to Monday or backward to Friday.
type WeekendCalendar struct{}

func (WeekendCalendar) NextBusinessDay(date Date, dir Direction) Date {
	step := 1
	if dir == Backward {
		step = -1
	}
	for date.IsWeekend() {
		date = date.AddDays(step)
	}
	return date
}
