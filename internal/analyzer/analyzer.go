// Package analyzer runs the CRAN survival pipeline over the stored inputs:
// lifecycle cleaning, cohort assignment, survival flags and the three
// model fits.
package analyzer

import (
	"fmt"
	"log/slog"

	"github.com/MF0323/cransurv/internal/config"
	"github.com/MF0323/cransurv/internal/cran"
	"github.com/MF0323/cransurv/internal/features"
	"github.com/MF0323/cransurv/internal/lifecycle"
	"github.com/MF0323/cransurv/internal/metrics"
	"github.com/MF0323/cransurv/internal/snapshots"
	"github.com/MF0323/cransurv/internal/store"
)

// Analyzer fits the survival models over a store's contents.
type Analyzer struct {
	store    *store.Store
	settings *config.Settings
	metrics  *metrics.Recorder
}

// New creates a new Analyzer. rec may be nil.
func New(s *store.Store, settings *config.Settings, rec *metrics.Recorder) *Analyzer {
	return &Analyzer{store: s, settings: settings, metrics: rec}
}

// Dataset is the cleaned and joined input of the models.
type Dataset struct {
	Earlier cran.Listing
	Later   cran.Listing

	// Since is the capture date of the earlier listing, the origin of the
	// subsequent-survival time scale.
	Since cran.Date

	Records  []lifecycle.Record // normalized lifecycle records
	Cohorts  []lifecycle.Record // records placed in a start period
	Excluded []lifecycle.Record // records with no start period
	Periods  lifecycle.Periods

	Entries  []snapshots.Entry
	Combined []snapshots.CombinedRecord
	Grouper  *features.LicenseGrouper

	RawLifecycle   int
	NormalizeStats lifecycle.NormalizeStats
	JoinStats      snapshots.JoinStats
}

// Prepare loads the stored inputs and runs the cleaning and joining steps.
func (a *Analyzer) Prepare() (*Dataset, error) {
	if err := a.settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	opts, err := a.settings.NormalizeOptions()
	if err != nil {
		return nil, err
	}
	periods, err := a.settings.Periods()
	if err != nil {
		return nil, err
	}

	raw, err := a.store.ListLifecycle()
	if err != nil {
		return nil, fmt.Errorf("failed to load lifecycle: %w", err)
	}
	earlier, err := a.store.GetListing(a.settings.Listings.Earlier.Label)
	if err != nil {
		return nil, fmt.Errorf("failed to load earlier listing: %w", err)
	}
	later, err := a.store.GetListing(a.settings.Listings.Later.Label)
	if err != nil {
		return nil, fmt.Errorf("failed to load later listing: %w", err)
	}

	ds := &Dataset{
		Earlier:      earlier,
		Later:        later,
		Since:        cran.NewDate(earlier.Date),
		Periods:      periods,
		Grouper:      a.settings.LicenseGrouper(),
		RawLifecycle: len(raw),
	}

	ds.Records, ds.NormalizeStats = lifecycle.Normalize(raw, opts)
	ds.Cohorts, ds.Excluded = lifecycle.AssignPeriods(ds.Records, periods)

	ds.Entries, ds.JoinStats = snapshots.FlagSurvival(later, earlier, ds.Grouper)
	ds.Combined, ds.JoinStats.NoLifecycle = snapshots.Combine(ds.Entries, ds.Records)

	ns := ds.NormalizeStats
	slog.Debug("normalized lifecycle",
		"input", ns.Input,
		"dropped", ns.Dropped,
		"exception_applied", ns.ExceptionApplied,
		"removed", ns.RemovedPackages,
		"never_archived", ns.NeverArchived)
	if opts.SentinelException != "" && !ns.ExceptionApplied {
		slog.Debug("sentinel exception not present in lifecycle data", "pkg", opts.SentinelException)
	}
	slog.Debug("assigned start periods", "assigned", len(ds.Cohorts), "excluded", len(ds.Excluded))
	js := ds.JoinStats
	slog.Debug("flagged survival",
		"earlier", js.Earlier,
		"later", js.Later,
		"survived", js.Survived,
		"died", js.Died,
		"duplicates", js.Duplicates,
		"no_lifecycle", js.NoLifecycle)

	a.metrics.RecordDropped("unbounded_first", ns.Dropped)
	a.metrics.RecordDropped("no_start_period", len(ds.Excluded))
	a.metrics.RecordDropped("duplicate_listing_key", js.Duplicates)
	a.metrics.RecordDropped("no_lifecycle", js.NoLifecycle)

	return ds, nil
}
