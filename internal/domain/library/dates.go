package library

import "time"

// Today truncates t to its UTC calendar date. Every date column holds
// midnight UTC.
func Today(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// AddDays moves a calendar date forward by n days.
func AddDays(d time.Time, n int) time.Time {
	return Today(d).AddDate(0, 0, n)
}
