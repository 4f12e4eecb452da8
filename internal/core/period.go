package core

import (
	"fmt"
	"strings"
	"time"
)

// Period is a calendar month identified by its first and last day.
type Period struct {
	Start Date
	End   Date
}

// MonthPeriod returns the period covering the given calendar month.
func MonthPeriod(year, month int) Period {
	start := NewDate(year, month, 1)
	// Day 0 of the next month is the last day of this one.
	end := Date{Time: time.Date(start.Year(), start.Month()+1, 0, 0, 0, 0, 0, time.UTC)}
	return Period{Start: start, End: end}
}

// PeriodOf returns the calendar month containing t (evaluated in UTC).
func PeriodOf(t time.Time) Period {
	t = t.UTC()
	return MonthPeriod(t.Year(), int(t.Month()))
}

// ParsePeriod accepts "YYYY-MM" or any "YYYY-MM-DD" inside the month.
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01", s); err == nil {
		return PeriodOf(t), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return PeriodOf(t), nil
	}
	return Period{}, fmt.Errorf("invalid period %q: want YYYY-MM", s)
}

// Contains reports whether d falls inside the period, bounds included.
func (p Period) Contains(d Date) bool {
	return !d.Before(p.Start.Time) && !d.After(p.End.Time)
}

// Key is the YYYY-MM form used for lock names, cache keys and logs.
func (p Period) Key() string {
	return p.Start.Format("2006-01")
}

func (p Period) String() string {
	return p.Key()
}
