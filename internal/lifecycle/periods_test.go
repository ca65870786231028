package lifecycle

import (
	"testing"

	"github.com/MF0323/cransurv/internal/cran"
)

func TestNewPeriods(t *testing.T) {
	ps, err := NewPeriods(DefaultBreaks)
	if err != nil {
		t.Fatalf("NewPeriods() failed: %v", err)
	}
	if len(ps) != len(DefaultBreaks)-1 {
		t.Fatalf("got %d periods, want %d", len(ps), len(DefaultBreaks)-1)
	}
	for i := 1; i < len(ps); i++ {
		if !ps[i].Start.Equal(ps[i-1].End) {
			t.Errorf("period %d does not start where period %d ends", i, i-1)
		}
	}
	if ps[0].Label() != "[1997,2005)" {
		t.Errorf("Label() = %q, want [1997,2005)", ps[0].Label())
	}
}

func TestNewPeriods_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		breaks []int
	}{
		{"too few", []int{2000}},
		{"not increasing", []int{2000, 2010, 2010}},
		{"decreasing", []int{2010, 2000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPeriods(tt.breaks); err == nil {
				t.Errorf("NewPeriods(%v) should fail", tt.breaks)
			}
		})
	}
}

func TestPeriodsAssign(t *testing.T) {
	ps, err := NewPeriods([]int{2000, 2005, 2010})
	if err != nil {
		t.Fatalf("NewPeriods() failed: %v", err)
	}

	tests := []struct {
		name      string
		date      cran.Date
		wantIndex int
		wantOK    bool
	}{
		{"first day", cran.MustDate("2000-01-01"), 0, true},
		{"inside first", cran.MustDate("2003-07-15"), 0, true},
		{"last day of first", cran.MustDate("2004-12-31"), 0, true},
		{"boundary goes to later", cran.MustDate("2005-01-01"), 1, true},
		{"last day", cran.MustDate("2009-12-31"), 1, true},
		{"upper bound excluded", cran.MustDate("2010-01-01"), 0, false},
		{"before range", cran.MustDate("1999-12-31"), 0, false},
		{"absent", cran.Absent(), 0, false},
		{"unbounded", cran.NegInf(), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := ps.Assign(tt.date)
			if ok != tt.wantOK {
				t.Fatalf("Assign(%q) ok = %v, want %v", tt.date, ok, tt.wantOK)
			}
			if ok && p.Index != tt.wantIndex {
				t.Errorf("Assign(%q) = period %d, want %d", tt.date, p.Index, tt.wantIndex)
			}
		})
	}
}

func TestAssignPeriods_ExhaustiveAndDisjoint(t *testing.T) {
	ps, err := NewPeriods([]int{2000, 2005, 2010})
	if err != nil {
		t.Fatalf("NewPeriods() failed: %v", err)
	}

	records := []Record{
		{LifecycleRecord: cran.LifecycleRecord{Pkg: "a", First: cran.MustDate("2001-01-01")}},
		{LifecycleRecord: cran.LifecycleRecord{Pkg: "b", First: cran.MustDate("2005-01-01")}},
		{LifecycleRecord: cran.LifecycleRecord{Pkg: "c", First: cran.MustDate("2011-01-01")}},
		{LifecycleRecord: cran.LifecycleRecord{Pkg: "d"}},
	}

	assigned, excluded := AssignPeriods(records, ps)
	if len(assigned)+len(excluded) != len(records) {
		t.Fatalf("lost records: %d assigned + %d excluded != %d", len(assigned), len(excluded), len(records))
	}

	seen := make(map[string]int)
	for _, r := range assigned {
		seen[r.Pkg]++
		if r.StartPeriod == nil {
			t.Errorf("%s assigned without a period", r.Pkg)
			continue
		}
		if !r.StartPeriod.Contains(r.First.Time()) {
			t.Errorf("%s placed in %s which does not contain %s", r.Pkg, r.StartPeriod.Label(), r.First)
		}
	}
	for _, r := range excluded {
		seen[r.Pkg]++
		if r.StartPeriod != nil {
			t.Errorf("%s excluded but has a period", r.Pkg)
		}
	}
	for pkg, n := range seen {
		if n != 1 {
			t.Errorf("%s appears %d times", pkg, n)
		}
	}
	if len(excluded) != 2 {
		t.Errorf("excluded %d records, want 2 (out of range and absent)", len(excluded))
	}
}
