// Package calendar implements the date arithmetic used by the scheduler:
// inclusive day ranges, weekend-skipping business days, and the conversion
// between a (start, duration) pair and an end date.
package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Layout is the wire format for dates in project files and snapshots.
const Layout = "2006-01-02"

const day = 24 * time.Hour

// DurationType selects the unit a task's duration is counted in.
type DurationType string

const (
	// CalendarDays counts every day, weekends included.
	CalendarDays DurationType = "calendar-days"
	// BusinessDays counts Monday through Friday only.
	BusinessDays DurationType = "business-days"
)

// ParseDurationType maps the accepted spellings onto a DurationType. The
// empty string means CalendarDays.
func ParseDurationType(s string) (DurationType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "calendar", "days", string(CalendarDays):
		return CalendarDays, nil
	case "business", "workdays", string(BusinessDays):
		return BusinessDays, nil
	}
	return "", fmt.Errorf("unknown duration type %q", s)
}

// Date truncates t to midnight UTC of the same calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string. A full RFC 3339 timestamp is also
// accepted and truncated to its date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(Layout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want %s", s, Layout)
	}
	return Date(t), nil
}

// FormatDate renders t in Layout.
func FormatDate(t time.Time) string {
	return t.Format(Layout)
}

// AddDays returns d shifted by n calendar days.
func AddDays(d time.Time, n int) time.Time {
	return Date(d).AddDate(0, 0, n)
}

// DaysBetween returns the signed number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Date(b).Sub(Date(a)) / day)
}

// IsWeekend reports whether d falls on a Saturday or Sunday.
func IsWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// NextBusinessDay returns d itself when it is a weekday, otherwise the
// following Monday.
func NextBusinessDay(d time.Time) time.Time {
	d = Date(d)
	for IsWeekend(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// AddBusinessDays advances start by n weekdays. A weekend start is first
// moved to the next business day before counting. n <= 0 returns that
// adjusted start.
func AddBusinessDays(start time.Time, n int) time.Time {
	d := NextBusinessDay(start)
	for n > 0 {
		d = d.AddDate(0, 0, 1)
		if !IsWeekend(d) {
			n--
		}
	}
	return d
}

// BusinessDaysBetween counts the weekdays in [d1, d2], inclusive of both
// endpoints. It returns 0 when d2 is before d1.
func BusinessDaysBetween(d1, d2 time.Time) int {
	d1, d2 = Date(d1), Date(d2)
	count := 0
	for d := d1; !d.After(d2); d = d.AddDate(0, 0, 1) {
		if !IsWeekend(d) {
			count++
		}
	}
	return count
}

// ComputeEndDate returns the inclusive end date of a task that starts on
// start and lasts duration units. A duration of zero or less yields start.
func ComputeEndDate(start time.Time, duration int, dt DurationType) time.Time {
	start = Date(start)
	if duration <= 0 {
		return start
	}
	if dt == BusinessDays {
		return AddBusinessDays(start, duration-1)
	}
	return start.AddDate(0, 0, duration-1)
}

// CalculateDuration is the inverse of ComputeEndDate for durations >= 1.
func CalculateDuration(start, end time.Time, dt DurationType) int {
	if dt == BusinessDays {
		return BusinessDaysBetween(start, end)
	}
	n := DaysBetween(start, end) + 1
	if n < 0 {
		return 0
	}
	return n
}
