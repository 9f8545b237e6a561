// Package clock supplies the current calendar date to the ledger so due
// dates and overdue checks can be driven deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

type Clock interface {
	Now() time.Time
}

// Today returns the calendar date of c's current time, as midnight UTC.
func Today(c Clock) time.Time {
	return Date(c.Now())
}

// Date truncates t to its calendar date (in t's own location) and expresses
// it as midnight UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from a to b. It is
// negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(Date(b).Sub(Date(a)).Hours() / 24)
}

// AddDays returns the calendar date n days after t.
func AddDays(t time.Time, n int) time.Time {
	return Date(t).AddDate(0, 0, n)
}

// ParseDate parses a YYYY-MM-DD string into a calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

type system struct{}

// System returns a Clock backed by the local wall clock.
func System() Clock {
	return system{}
}

func (system) Now() time.Time {
	return time.Now()
}

// Fixed is a settable Clock for tests.
type Fixed struct {
	mu  sync.RWMutex
	now time.Time
}

func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now}
}

func (f *Fixed) Now() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.now
}

func (f *Fixed) Set(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

// Advance moves the clock forward by d days.
func (f *Fixed) Advance(days int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.AddDate(0, 0, days)
}
