package lifecycle

import (
	"fmt"
	"sort"
	"time"

	"github.com/MF0323/cransurv/internal/cran"
)

// DefaultBreaks are the calendar years separating first-appearance cohorts.
// The last year is the exclusive upper bound.
var DefaultBreaks = []int{1997, 2005, 2010, 2015, 2021}

// Period is a half-open interval [Start, End) of calendar dates.
type Period struct {
	Index int
	Start time.Time
	End   time.Time
}

// Label renders the period as "[1997,2005)".
func (p Period) Label() string {
	return fmt.Sprintf("[%d,%d)", p.Start.Year(), p.End.Year())
}

// Contains reports whether t falls in the period. Start is inclusive and
// End exclusive.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Periods is an ordered, contiguous set of cohort intervals.
type Periods []Period

// NewPeriods builds contiguous periods from strictly increasing years.
// Each period starts on January 1 of one break and ends on January 1 of the
// next.
func NewPeriods(breaks []int) (Periods, error) {
	if len(breaks) < 2 {
		return nil, fmt.Errorf("need at least two period breaks, got %d", len(breaks))
	}
	for i := 1; i < len(breaks); i++ {
		if breaks[i] <= breaks[i-1] {
			return nil, fmt.Errorf("period breaks must be strictly increasing: %d follows %d", breaks[i], breaks[i-1])
		}
	}

	ps := make(Periods, 0, len(breaks)-1)
	for i := 0; i < len(breaks)-1; i++ {
		ps = append(ps, Period{
			Index: i,
			Start: time.Date(breaks[i], time.January, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(breaks[i+1], time.January, 1, 0, 0, 0, 0, time.UTC),
		})
	}
	return ps, nil
}

// Assign returns the period containing d. It returns false for absent or
// unbounded dates and for dates outside every period.
func (ps Periods) Assign(d cran.Date) (Period, bool) {
	if !d.IsFinite() || len(ps) == 0 {
		return Period{}, false
	}
	t := d.Time()
	// First period whose End is after t; boundaries go to the later period.
	i := sort.Search(len(ps), func(i int) bool { return t.Before(ps[i].End) })
	if i < len(ps) && ps[i].Contains(t) {
		return ps[i], true
	}
	return Period{}, false
}

// Labels returns the period labels in order.
func (ps Periods) Labels() []string {
	labels := make([]string, len(ps))
	for i, p := range ps {
		labels[i] = p.Label()
	}
	return labels
}

// AssignPeriods places every record in its first-appearance cohort. Records
// whose First cannot be placed are returned separately, so every input
// record appears in exactly one of the two slices.
func AssignPeriods(records []Record, ps Periods) (assigned, excluded []Record) {
	for _, r := range records {
		p, ok := ps.Assign(r.First)
		if !ok {
			r.StartPeriod = nil
			excluded = append(excluded, r)
			continue
		}
		r.StartPeriod = &p
		assigned = append(assigned, r)
	}
	return assigned, excluded
}
