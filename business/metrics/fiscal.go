package metrics

import (
	"fmt"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

// Reporting periods follow the US federal fiscal calendar: the fiscal year starts October 1
// and is numbered for the calendar year it ends in.

// FiscalYearQuarter returns the federal fiscal year and quarter a service date falls in
func FiscalYearQuarter(at time.Time) (int, int) {
	switch at.Month() {
	case time.October, time.November, time.December:
		return at.Year() + 1, 1
	case time.January, time.February, time.March:
		return at.Year(), 2
	case time.April, time.May, time.June:
		return at.Year(), 3
	default:
		return at.Year(), 4
	}
}

// FormatYearQuarter renders a fiscal year and quarter in the <year>Q<quarter> reporting
// format, e.g. 2024Q3
func FormatYearQuarter(fiscalYear, fiscalQuarter int) string {
	return fmt.Sprintf("%dQ%d", fiscalYear, fiscalQuarter)
}

// QuarterEnd returns the last day of a fiscal quarter in UTC
func QuarterEnd(fiscalYear, fiscalQuarter int) time.Time {
	var month time.Month
	year := fiscalYear
	switch fiscalQuarter {
	case 1:
		month = time.December
		year = fiscalYear - 1
	case 2:
		month = time.March
	case 3:
		month = time.June
	default:
		month = time.September
	}
	firstOfNext := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1)
}

// reportingCalendar holds the holidays observed for quarterly filing deadlines
type reportingCalendar struct {
	calendar *cal.BusinessCalendar
}

// makeReportingCalendar builds reportingCalendar with the federal holidays observed
func makeReportingCalendar() *reportingCalendar {
	calendar := cal.NewBusinessCalendar()
	calendar.AddHoliday(
		us.NewYear,
		us.MlkDay,
		us.PresidentsDay,
		us.MemorialDay,
		us.Juneteenth,
		us.IndependenceDay,
		us.LaborDay,
		us.ColumbusDay,
		us.VeteransDay,
		us.ThanksgivingDay,
		us.ChristmasDay,
	)
	return &reportingCalendar{calendar: calendar}
}

// FilingDeadline returns the quarterly report filing date: 30 days after the fiscal quarter
// ends, rolled forward to the next business day when it lands on a weekend or federal holiday
func FilingDeadline(fiscalYear, fiscalQuarter int) time.Time {
	deadline := QuarterEnd(fiscalYear, fiscalQuarter).AddDate(0, 0, 30)
	reporting := makeReportingCalendar()
	for !reporting.calendar.IsWorkday(deadline) {
		deadline = deadline.AddDate(0, 0, 1)
	}
	return deadline
}
