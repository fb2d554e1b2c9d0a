// Package dates holds the calendar helpers the booking flow relies on.
// Everything works on local calendar fields of zero-padded YYYY-MM-DD
// strings; there is deliberately no timezone conversion.
package dates

import "time"

// Layout is the wire format for all travel dates.
const Layout = "2006-01-02"

// Format renders t's local calendar date as YYYY-MM-DD, zero-padded.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Parse parses a YYYY-MM-DD string.
func Parse(s string) (time.Time, error) {
	return time.ParseInLocation(Layout, s, time.Local)
}

// Tomorrow returns now's local date plus one day, formatted.
func Tomorrow(now time.Time) string {
	return Format(now.AddDate(0, 0, 1))
}

// IsFuture reports whether s parses as a date strictly after now's calendar
// day. Unparseable input is never in the future.
func IsFuture(s string, now time.Time) bool {
	d, err := Parse(s)
	if err != nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	return d.After(today)
}

// EnsureFuture pushes s into the future by advancing whole years, keeping the
// caller's month and day intact. Input that does not parse is returned as-is.
func EnsureFuture(s string, now time.Time) string {
	d, err := Parse(s)
	if err != nil {
		return s
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	for !d.After(today) {
		d = d.AddDate(1, 0, 0)
	}
	return Format(d)
}

// WithYear rewrites the year of s, preserving month and day. Used to keep a
// return date in the same travel year as a corrected departure date.
func WithYear(s string, year int) string {
	d, err := Parse(s)
	if err != nil {
		return s
	}
	return Format(time.Date(year, d.Month(), d.Day(), 0, 0, 0, 0, time.Local))
}
