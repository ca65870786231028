// Package lifecycle cleans raw CRAN lifecycle records and groups them into
// first-appearance cohorts.
package lifecycle

import (
	"github.com/MF0323/cransurv/internal/cran"
)

// Record is a cleaned lifecycle record with its derived fields.
type Record struct {
	cran.LifecycleRecord

	EndDate     cran.Date // Latest when removed, else the reference date
	Removed     bool      // CRANDate absent
	StartPeriod *Period   // nil until AssignPeriods places the record
}

// Options control record normalization.
type Options struct {
	// ReferenceDate is the data collection date; live packages are censored
	// there.
	ReferenceDate cran.Date

	// SentinelException names the one package whose unbounded archive dates
	// are nulled instead of dropped. Empty means no exception.
	SentinelException string
}

// NormalizeStats summarizes what Normalize discarded.
type NormalizeStats struct {
	Input            int
	Dropped          int  // records removed for an unbounded First
	ExceptionApplied bool // the sentinel exception was found
	RemovedPackages  int
	CensoredPackages int
	NeverArchived    int // live packages with no archive entries
	AbsentEndDate    int // removed packages without a usable Latest
}

// Normalize cleans raw lifecycle records. The input is not modified.
//
// The sentinel exception keeps its record with First and Latest absent.
// Every other record with an unbounded First is dropped. EndDate is Latest
// for removed packages and the reference date for live ones.
func Normalize(raw []cran.LifecycleRecord, opts Options) ([]Record, NormalizeStats) {
	stats := NormalizeStats{Input: len(raw)}
	out := make([]Record, 0, len(raw))

	for _, r := range raw {
		if opts.SentinelException != "" && r.Pkg == opts.SentinelException {
			r.First = cran.Absent()
			r.Latest = cran.Absent()
			stats.ExceptionApplied = true
		} else if r.First.IsUnbounded() {
			stats.Dropped++
			continue
		}

		rec := Record{LifecycleRecord: r, Removed: r.CRANDate.IsAbsent()}
		if rec.Removed {
			rec.EndDate = endOfArchive(r.Latest)
			stats.RemovedPackages++
			if rec.EndDate.IsAbsent() {
				stats.AbsentEndDate++
			}
		} else {
			rec.EndDate = opts.ReferenceDate
			stats.CensoredPackages++
			if r.First.IsAbsent() && r.Latest.IsAbsent() {
				stats.NeverArchived++
			}
		}
		out = append(out, rec)
	}

	return out, stats
}

// endOfArchive returns Latest when it is finite. An unbounded Latest
// becomes absent.
func endOfArchive(latest cran.Date) cran.Date {
	if latest.IsFinite() {
		return latest
	}
	return cran.Absent()
}

// Duration returns the days from First to EndDate. It is defined only when
// both dates are finite and EndDate is not before First.
func (r Record) Duration() (float64, bool) {
	days, ok := r.EndDate.DaysSince(r.First)
	if !ok || days < 0 {
		return 0, false
	}
	return days, true
}
