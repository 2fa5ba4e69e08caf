package apr

// =============================================================================
// DATE SCHEDULE GENERATOR - Ordered due dates for a loan
// =============================================================================

// GenerateDueDates produces the repayment calendar for a loan. The first
// element is always start itself (the day the funds went out); each
// subsequent element is start advanced by k frequency periods, for
// k = 1..TotalPeriods, truncated at endDate (default start + 2 years).
//
// Period advancement convention (this is a documented product decision,
// applied consistently everywhere including the APR odd-days math):
//   - Daily / Weekly / BiWeekly advance by exact day counts (1, 7, 14)
//   - Monthly and BiMonthly advance by calendar months (1, 2), clamped
//     to the last day of shorter months
//   - SemiMonthly alternates between the anchor day and anchor day + 15
//     within the advancing month
//
// When skipNonBusinessDays is set, every generated date (not the start)
// is pushed forward to the next business day by the calendar
// collaborator. A nil calendar falls back to WeekendCalendar, which
// knows weekends but no holidays.
func GenerateDueDates(start Date, f Frequency, skipNonBusinessDays bool, endDate *Date, cal BusinessCalendar) ([]Date, error) {
	if !start.Valid() {
		return nil, ErrInvalidDate
	}
	total, err := Periods(f, Total)
	if err != nil {
		return nil, err
	}

	end := start.AddYears(loanYears)
	if endDate != nil {
		if !endDate.Valid() {
			return nil, ErrInvalidDate
		}
		end = *endDate
	}
	if cal == nil {
		cal = WeekendCalendar{}
	}

	dates := []Date{start}
	for k := 1; k <= total; k++ {
		d := AdvancePeriods(start, f, k)
		if d.After(end) {
			break
		}
		if skipNonBusinessDays {
			d = cal.NextBusinessDay(d, Forward)
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// AdvancePeriods returns start moved forward by k unit-periods of the
// given frequency, following the convention documented on
// GenerateDueDates. k = 0 returns start unchanged.
func AdvancePeriods(start Date, f Frequency, k int) Date {
	switch f {
	case Daily:
		return start.AddDays(k)
	case Weekly:
		return start.AddDays(7 * k)
	case BiWeekly:
		return start.AddDays(14 * k)
	case Monthly:
		return start.AddMonths(k)
	case BiMonthly:
		return start.AddMonths(2 * k)
	case SemiMonthly:
		// Two periods per month: even steps land on the anchor day,
		// odd steps on anchor day + 15 within the same advanced month.
		d := start.AddMonths(k / 2)
		if k%2 != 0 {
			d = d.AddDays(15)
		}
		return d
	default:
		return start
	}
}

// UnitPeriods measures the interval from disbursement to the first
// payment in Appendix J terms: whole unit-periods plus a fraction of
// one. A first payment exactly one period out yields (1, 0); odd days
// show up as a positive fraction. These are the solver's time inputs.
func UnitPeriods(disbursed, firstPayment Date, f Frequency) (full int, fraction float64, err error) {
	days, err := DateDiff(disbursed, firstPayment)
	if err != nil {
		return 0, 0, err
	}
	if !f.Valid() {
		return 0, 0, ErrInvalidFrequency
	}

	// Count whole periods by walking the same advancement convention the
	// schedule generator uses, so calendars and APR math agree.
	for AdvancePeriods(disbursed, f, full+1).BeforeOrEqual(firstPayment) {
		full++
	}
	remainder := days - DaysBetween(disbursed, AdvancePeriods(disbursed, f, full))
	if remainder > 0 {
		fraction = float64(remainder) / unitPeriodDays(f)
	}
	return full, fraction, nil
}
