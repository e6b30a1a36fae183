package utils

import (
	"fmt"
	"time"

	"github.com/jinzhu/now"
)

// DateLayout is the wire format for stay dates.
const DateLayout = "2006-01-02"

// ParseDate converts a yyyy-mm-dd string into a UTC calendar date
func ParseDate(dateStr string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, dateStr, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected yyyy-mm-dd", dateStr)
	}
	return t, nil
}

// NormalizeDate drops the time of day, keeping the UTC calendar date.
func NormalizeDate(t time.Time) time.Time {
	return now.With(t.UTC()).BeginningOfDay()
}

// Today returns the UTC calendar date containing ts.
func Today(ts time.Time) time.Time {
	return NormalizeDate(ts)
}

// FormatDate renders a calendar date in DateLayout.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
