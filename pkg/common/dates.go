package common

import "time"

// DateLayout is the layout of business dates stored on register sessions.
const DateLayout = "2006-01-02"

// BusinessDate formats t as a calendar date in t's location.
func BusinessDate(t time.Time) string {
	return t.Format(DateLayout)
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last nanosecond of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
