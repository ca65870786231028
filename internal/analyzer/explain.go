package analyzer

import (
	"errors"
	"fmt"

	"github.com/MF0323/cransurv/internal/cran"
	"github.com/MF0323/cransurv/internal/features"
	"github.com/MF0323/cransurv/internal/lifecycle"
	"github.com/MF0323/cransurv/internal/snapshots"
	"github.com/MF0323/cransurv/internal/store"
)

// Explanation lists every derived field of one package.
type Explanation struct {
	Pkg string

	Raw     *cran.LifecycleRecord // nil without a lifecycle record
	Record  *lifecycle.Record     // nil when dropped or without a lifecycle record
	Dropped bool                  // removed by the normalizer
	Period  *lifecycle.Period

	Duration    float64
	HasDuration bool

	Earlier  *cran.ListingEntry
	Later    *cran.ListingEntry
	Features *features.Features // features of the earlier entry
	Survived bool               // meaningful only when Earlier is set

	Elapsed    float64
	HasElapsed bool
}

// Explain runs the cleaning and feature steps for a single package.
func (a *Analyzer) Explain(pkg string) (*Explanation, error) {
	opts, err := a.settings.NormalizeOptions()
	if err != nil {
		return nil, err
	}
	periods, err := a.settings.Periods()
	if err != nil {
		return nil, err
	}

	ex := &Explanation{Pkg: pkg}

	raw, err := a.store.GetLifecycle(pkg)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to get lifecycle: %w", err)
	default:
		ex.Raw = raw
		records, _ := lifecycle.Normalize([]cran.LifecycleRecord{*raw}, opts)
		if len(records) == 0 {
			ex.Dropped = true
			break
		}
		rec := records[0]
		if p, ok := periods.Assign(rec.First); ok {
			rec.StartPeriod = &p
			ex.Period = &p
		}
		ex.Record = &rec
		ex.Duration, ex.HasDuration = rec.Duration()
	}

	found, err := a.store.FindEntries(pkg)
	if err != nil {
		return nil, fmt.Errorf("failed to find listing entries: %w", err)
	}
	if e, ok := found[a.settings.Listings.Earlier.Label]; ok {
		ex.Earlier = &e
	}
	if e, ok := found[a.settings.Listings.Later.Label]; ok {
		ex.Later = &e
	}

	if ex.Earlier != nil {
		f := features.Extract(*ex.Earlier, a.settings.LicenseGrouper())
		ex.Features = &f
		ex.Survived = ex.Later != nil

		earlier, err := a.store.GetListing(a.settings.Listings.Earlier.Label)
		if err != nil {
			return nil, fmt.Errorf("failed to load earlier listing: %w", err)
		}
		c := snapshots.CombinedRecord{
			Entry:     snapshots.Entry{ListingEntry: *ex.Earlier, Features: f, Survived: ex.Survived},
			Lifecycle: ex.Record,
		}
		ex.Elapsed, ex.HasElapsed = c.Elapsed(cran.NewDate(earlier.Date))
	}

	return ex, nil
}
