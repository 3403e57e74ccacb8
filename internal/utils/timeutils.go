package utils

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date format accepted alongside RFC3339.
const DateLayout = "2006-01-02"

// ParseDate accepts RFC3339 timestamps or YYYY-MM-DD dates, returned in UTC.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: want RFC3339 or %s", value, DateLayout)
	}
	return t, nil
}

// FormatDate renders t as YYYY-MM-DD, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}
