package cohort

import "time"

const week = 7 * 24 * time.Hour

// beginningOfWeek truncates t to Monday 00:00:00 of its calendar week.
func beginningOfWeek(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	// time.Weekday counts Sunday as 0; weeks here start on Monday.
	if weekday == 0 {
		weekday = 7
	}
	day := t.AddDate(0, 0, -(weekday - 1))
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}

// endOfWeek returns the last representable instant of t's calendar
// week (Sunday 23:59:59.999).
func endOfWeek(t time.Time) time.Time {
	return beginningOfWeek(t).Add(week - time.Millisecond)
}

// periodCount is the number of whole-or-partial weeks between start
// and end, rounded up.
func periodCount(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}
	span := end.Sub(start)
	n := int(span / week)
	if span%week != 0 {
		n++
	}
	return n
}

// periodBounds returns the inclusive [start, end] bounds of the i-th
// period (zero-based) of a cohort beginning at start.
func periodBounds(start time.Time, i int) (time.Time, time.Time) {
	ps := start.Add(time.Duration(i) * week)
	return ps, ps.Add(week - time.Millisecond)
}
