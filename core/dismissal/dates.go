package dismissal

import (
	"regexp"
	"time"
)

const dateLayout = "2006-01-02"

var dateFormatRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// CalendarDay returns the UTC calendar day (YYYY-MM-DD) of a unix ms timestamp.
func CalendarDay(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(dateLayout)
}

// IsValidDateFormat only checks the YYYY-MM-DD shape, not that the date exists.
func IsValidDateFormat(date string) bool {
	return dateFormatRegex.MatchString(date)
}

// Month returns the YYYY-MM month an event belongs to: its date when well formed,
// else the calendar month of its completion.
func (e Event) Month() string {
	if IsValidDateFormat(e.Date) {
		return e.Date[:7]
	}
	return CalendarDay(e.CompletedAt)[:7]
}

// Day returns the day an event belongs to: its date when well formed, else the calendar day of its completion.
func (e Event) Day() string {
	if IsValidDateFormat(e.Date) {
		return e.Date
	}
	return CalendarDay(e.CompletedAt)
}
