package core

import (
	"testing"
	"time"
)

func TestMonthPeriod(t *testing.T) {
	tests := []struct {
		year, month int
		end         string
	}{
		{2025, 1, "2025-01-31"},
		{2024, 2, "2024-02-29"},
		{2025, 2, "2025-02-28"},
		{2025, 4, "2025-04-30"},
		{2025, 12, "2025-12-31"},
	}
	for _, tt := range tests {
		p := MonthPeriod(tt.year, tt.month)
		if p.Start.Day() != 1 || int(p.Start.Month()) != tt.month {
			t.Errorf("%d-%d: bad start %s", tt.year, tt.month, p.Start)
		}
		if p.End.String() != tt.end {
			t.Errorf("%d-%d: end = %s, want %s", tt.year, tt.month, p.End, tt.end)
		}
	}
}

func TestParsePeriod(t *testing.T) {
	for _, in := range []string{"2025-03", "2025-03-01", "2025-03-31", " 2025-03 "} {
		p, err := ParsePeriod(in)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", in, err)
		}
		if p.Key() != "2025-03" || p.End.String() != "2025-03-31" {
			t.Fatalf("%q: got %s..%s", in, p.Start, p.End)
		}
	}
	for _, in := range []string{"", "2025", "2025-13", "march"} {
		if _, err := ParsePeriod(in); err == nil {
			t.Fatalf("%q: expected error", in)
		}
	}
}

func TestPeriodContains(t *testing.T) {
	p := MonthPeriod(2025, 3)
	if !p.Contains(NewDate(2025, 3, 1)) || !p.Contains(NewDate(2025, 3, 31)) {
		t.Fatalf("bounds must be inclusive")
	}
	if p.Contains(NewDate(2025, 2, 28)) || p.Contains(NewDate(2025, 4, 1)) {
		t.Fatalf("neighbouring months must be excluded")
	}
	if got := PeriodOf(time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC)); got != p {
		t.Fatalf("PeriodOf = %v, want %v", got, p)
	}
}
