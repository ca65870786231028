package analyzer

import (
	"fmt"
	"log/slog"

	"github.com/MF0323/cransurv/internal/features"
	"github.com/MF0323/cransurv/internal/lifecycle"
	"github.com/MF0323/cransurv/internal/model"
	"github.com/MF0323/cransurv/internal/snapshots"
)

// Model names used in stored runs and metrics.
const (
	ModelPeriod     = "period"
	ModelSurvival   = "survival"
	ModelSubsequent = "subsequent"
)

// Covariate names. Boolean covariates get a "TRUE" suffix in term names.
const (
	covStartPeriod      = "start_period"
	covVersion          = "version"
	covDependsVersioned = "depends_versioned"
	covDependencyCount  = "dependency_count"
	covLicense          = "license"
	covLicenseAlt       = "license_alternative"
)

// PeriodCurve is the Kaplan-Meier curve of one start period.
type PeriodCurve struct {
	Period  lifecycle.Period
	Curve   model.Curve
	Removed int
}

// PeriodResult is the cohort model: time on CRAN by start period.
type PeriodResult struct {
	Cox      *model.CoxResult
	Curves   []PeriodCurve
	Excluded int // cohort records without a usable duration
}

// PeriodModel fits Surv(duration, removed) ~ start_period over the cohort
// records and estimates one Kaplan-Meier curve per period.
func (a *Analyzer) PeriodModel(ds *Dataset) (*PeriodResult, error) {
	var (
		times   []float64
		events  []bool
		periods []string
	)
	res := &PeriodResult{}
	byPeriod := make(map[int][]int)

	for _, r := range ds.Cohorts {
		d, ok := r.Duration()
		if !ok || r.StartPeriod == nil {
			res.Excluded++
			continue
		}
		byPeriod[r.StartPeriod.Index] = append(byPeriod[r.StartPeriod.Index], len(times))
		times = append(times, d)
		events = append(events, r.Removed)
		periods = append(periods, r.StartPeriod.Label())
	}

	for _, p := range ds.Periods {
		idx := byPeriod[p.Index]
		if len(idx) == 0 {
			continue
		}
		t := make([]float64, len(idx))
		e := make([]bool, len(idx))
		removed := 0
		for k, i := range idx {
			t[k], e[k] = times[i], events[i]
			if e[k] {
				removed++
			}
		}
		res.Curves = append(res.Curves, PeriodCurve{Period: p, Curve: model.KaplanMeier(t, e), Removed: removed})
	}

	design, err := model.NewDesign(model.Categorical(covStartPeriod, periods, ds.Periods.Labels()))
	if err != nil {
		return res, fmt.Errorf("period model design: %w", err)
	}
	res.Cox, err = model.FitCox(times, events, design)
	if err != nil {
		return res, fmt.Errorf("period model: %w", err)
	}

	a.recordFit(ModelPeriod, res.Cox.LogLik, res.Cox.N, res.Cox.Converged, res.Cox.Iterations)
	return res, nil
}

// SurvivalResult is the binary 2015 to 2020 survival model.
type SurvivalResult struct {
	GLM        *model.GLMResult
	Simplified bool
}

// SurvivalModel fits a logistic regression of Survived on the listing
// features of the earlier listing. The simplified variant merges version
// buckets 1 to 4.
func (a *Analyzer) SurvivalModel(ds *Dataset, simplified bool) (*SurvivalResult, error) {
	y := make([]bool, len(ds.Entries))
	for i, e := range ds.Entries {
		y[i] = e.Survived
	}

	design, err := featureDesign(ds.Entries, ds.Grouper, simplified)
	if err != nil {
		return nil, fmt.Errorf("survival model design: %w", err)
	}
	glm, err := model.FitLogistic(y, design)
	if err != nil {
		return nil, fmt.Errorf("survival model: %w", err)
	}

	a.recordFit(modelName(ModelSurvival, simplified), -glm.Deviance/2, glm.N, glm.Converged, glm.Iterations)
	return &SurvivalResult{GLM: glm, Simplified: simplified}, nil
}

// SubsequentResult is the time-to-removal model for earlier-listing
// packages.
type SubsequentResult struct {
	Cox        *model.CoxResult
	Simplified bool
	Excluded   int // combined records without a usable elapsed time
}

// SubsequentModel fits a Cox model of the time from the earlier listing
// date to the end date, with removal from the later listing as the event.
func (a *Analyzer) SubsequentModel(ds *Dataset, simplified bool) (*SubsequentResult, error) {
	res := &SubsequentResult{Simplified: simplified}

	var (
		times   []float64
		events  []bool
		entries []snapshots.Entry
	)
	for _, c := range ds.Combined {
		t, ok := c.Elapsed(ds.Since)
		if !ok {
			res.Excluded++
			continue
		}
		times = append(times, t)
		events = append(events, c.Died())
		entries = append(entries, c.Entry)
	}
	a.metrics.RecordDropped("no_elapsed_time", res.Excluded)

	design, err := featureDesign(entries, ds.Grouper, simplified)
	if err != nil {
		return res, fmt.Errorf("subsequent model design: %w", err)
	}
	res.Cox, err = model.FitCox(times, events, design)
	if err != nil {
		return res, fmt.Errorf("subsequent model: %w", err)
	}

	a.recordFit(modelName(ModelSubsequent, simplified), res.Cox.LogLik, res.Cox.N, res.Cox.Converged, res.Cox.Iterations)
	return res, nil
}

// featureDesign builds the shared covariates of the survival and
// subsequent models.
func featureDesign(entries []snapshots.Entry, g *features.LicenseGrouper, simplified bool) (*model.Design, error) {
	n := len(entries)
	version := make([]string, n)
	versioned := make([]bool, n)
	count := make([]float64, n)
	license := make([]string, n)
	alt := make([]bool, n)

	levels := features.VersionBuckets
	if simplified {
		levels = features.ConsolidatedVersionBuckets
	}

	for i, e := range entries {
		version[i] = e.VersionBucket
		if simplified {
			version[i] = features.ConsolidatedVersionBucket(e.VersionBucket)
		}
		versioned[i] = e.DependsOnVersionedPkg
		count[i] = float64(e.DependencyCount)
		license[i] = e.LicenseGroup
		alt[i] = e.LicenseHasAlternative
	}

	return model.NewDesign(
		model.Categorical(covVersion, version, levels),
		model.Bool(covDependsVersioned, versioned),
		model.Numeric(covDependencyCount, count),
		model.Categorical(covLicense, license, g.Levels()),
		model.Bool(covLicenseAlt, alt),
	)
}

func modelName(base string, simplified bool) string {
	if simplified {
		return base + "-simplified"
	}
	return base
}

func (a *Analyzer) recordFit(name string, logLik float64, n int, converged bool, iterations int) {
	if !converged {
		slog.Warn("model did not converge", "model", name, "iterations", iterations)
	} else {
		slog.Debug("model converged", "model", name, "iterations", iterations, "loglik", logLik)
	}
	a.metrics.RecordFit(name, logLik, n)
}
