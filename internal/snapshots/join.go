// Package snapshots compares two point-in-time CRAN listings and joins the
// result with lifecycle records.
package snapshots

import (
	"github.com/MF0323/cransurv/internal/cran"
	"github.com/MF0323/cransurv/internal/features"
	"github.com/MF0323/cransurv/internal/lifecycle"
)

// Entry is an earlier-listing entry with its survival flag and features.
type Entry struct {
	cran.ListingEntry
	features.Features

	Survived bool // present in the later listing
}

// CombinedRecord is an Entry joined with the package's lifecycle record.
type CombinedRecord struct {
	Entry

	Lifecycle *lifecycle.Record // nil when the package has no lifecycle record
}

// JoinStats summarizes a FlagSurvival and Combine pass.
type JoinStats struct {
	Earlier     int
	Later       int
	Duplicates  int // repeated keys in the earlier listing, skipped
	Survived    int
	Died        int
	NoLifecycle int // set from Combine
}

// FlagSurvival marks every entry of the earlier listing with whether the
// package is still present in the later listing. Only the earlier listing's
// keys are iterated; packages that only exist later never appear. Repeated
// keys keep their first occurrence.
func FlagSurvival(later, earlier cran.Listing, g *features.LicenseGrouper) ([]Entry, JoinStats) {
	stats := JoinStats{Earlier: len(earlier.Entries), Later: len(later.Entries)}
	present := later.Keys()

	seen := make(map[string]bool, len(earlier.Entries))
	out := make([]Entry, 0, len(earlier.Entries))
	for _, e := range earlier.Entries {
		if seen[e.Package] {
			stats.Duplicates++
			continue
		}
		seen[e.Package] = true

		_, ok := present[e.Package]
		if ok {
			stats.Survived++
		} else {
			stats.Died++
		}
		out = append(out, Entry{
			ListingEntry: e,
			Features:     features.Extract(e, g),
			Survived:     ok,
		})
	}
	return out, stats
}

// Combine joins flagged entries with lifecycle records on the package key.
// Every entry is kept, so the result is restricted to packages with a
// defined survival flag; lifecycle records without an entry are dropped.
func Combine(entries []Entry, records []lifecycle.Record) ([]CombinedRecord, int) {
	byPkg := make(map[string]*lifecycle.Record, len(records))
	for i := range records {
		byPkg[records[i].Pkg] = &records[i]
	}

	missing := 0
	out := make([]CombinedRecord, 0, len(entries))
	for _, e := range entries {
		rec, ok := byPkg[e.Package]
		if !ok {
			missing++
		}
		out = append(out, CombinedRecord{Entry: e, Lifecycle: rec})
	}
	return out, missing
}

// Elapsed returns the days from since to the package's EndDate. It is
// defined only when the lifecycle record exists, its EndDate is finite and
// not before since.
func (c CombinedRecord) Elapsed(since cran.Date) (float64, bool) {
	if c.Lifecycle == nil {
		return 0, false
	}
	days, ok := c.Lifecycle.EndDate.DaysSince(since)
	if !ok || days < 0 {
		return 0, false
	}
	return days, true
}

// Died reports the event indicator for the subsequent-survival model.
func (c CombinedRecord) Died() bool {
	return !c.Survived
}
