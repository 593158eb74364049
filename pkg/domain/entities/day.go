package entities

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for planning dates
const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar date
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD date
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Window is an inclusive range of planning days
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow returns the window [start, start+horizonDays]
func NewWindow(start time.Time, horizonDays int) Window {
	s := Day(start)
	return Window{Start: s, End: s.AddDate(0, 0, horizonDays)}
}

// Contains reports whether t falls on a day inside the window
func (w Window) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(w.Start) && !d.After(w.End)
}
