package shared

import (
	"fmt"
	"time"
)

// FiscalPeriod returns the YYYY-MM bucket for a transaction date.
func FiscalPeriod(date time.Time) string {
	return date.Format("2006-01")
}

// FiscalYear returns the fiscal year label for date. Fiscal years are labelled by the
// calendar year in which they start; startMonth 1 yields the calendar year.
func FiscalYear(date time.Time, startMonth int) int {
	if startMonth < 1 || startMonth > 12 {
		startMonth = 1
	}
	if int(date.Month()) < startMonth {
		return date.Year() - 1
	}
	return date.Year()
}

// FormatFiscalYear renders a fiscal year label.
func FormatFiscalYear(year int) string {
	return fmt.Sprintf("%04d", year)
}
