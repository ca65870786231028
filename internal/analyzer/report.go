package analyzer

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/MF0323/cransurv/internal/model"
	"github.com/MF0323/cransurv/internal/store"
)

// Report holds every model of one pipeline run. A model that failed to
// fit has a nil result and its error set.
type Report struct {
	Dataset *Dataset

	Period    *PeriodResult
	PeriodErr error

	Survival    *SurvivalResult
	SurvivalErr error

	Subsequent    *SubsequentResult
	SubsequentErr error

	CrossTabs []CrossTab
}

// Failed reports whether every model failed.
func (r *Report) Failed() bool {
	return r.Period == nil && r.Survival == nil && r.Subsequent == nil
}

// Run prepares the dataset and fits all three models. Model failures are
// kept on the report; only a failure to prepare the data is returned.
func (a *Analyzer) Run(simplified bool) (*Report, error) {
	ds, err := a.Prepare()
	if err != nil {
		return nil, err
	}

	r := &Report{Dataset: ds, CrossTabs: CrossTabs(ds)}

	r.Period, r.PeriodErr = a.PeriodModel(ds)
	if r.PeriodErr != nil {
		r.Period = nil
		slog.Warn("period model failed", "error", r.PeriodErr)
	}
	r.Survival, r.SurvivalErr = a.SurvivalModel(ds, simplified)
	if r.SurvivalErr != nil {
		slog.Warn("survival model failed", "error", r.SurvivalErr)
	}
	r.Subsequent, r.SubsequentErr = a.SubsequentModel(ds, simplified)
	if r.SubsequentErr != nil {
		r.Subsequent = nil
		slog.Warn("subsequent model failed", "error", r.SubsequentErr)
	}

	a.metrics.MarkRun(time.Now())
	return r, nil
}

// Save persists each fitted model of r as a model run and returns the run
// IDs in model order.
func (a *Analyzer) Save(r *Report) ([]string, error) {
	var ids []string
	save := func(run *store.ModelRun, coefs []model.Coefficient) error {
		id, err := a.store.SaveModelRun(run, coefs)
		if err != nil {
			return fmt.Errorf("failed to save %s run: %w", run.Model, err)
		}
		ids = append(ids, id)
		return nil
	}

	if r.Period != nil {
		if err := save(coxRun(ModelPeriod, r.Period.Cox), r.Period.Cox.Coefficients); err != nil {
			return ids, err
		}
	}
	if r.Survival != nil {
		g := r.Survival.GLM
		run := &store.ModelRun{
			Model:     modelName(ModelSurvival, r.Survival.Simplified),
			N:         g.N,
			Events:    g.Successes,
			LogLik:    -g.Deviance / 2,
			LRStat:    g.LR.Stat,
			LRDF:      g.LR.DF,
			LRP:       g.LR.P,
			Converged: g.Converged,
		}
		if err := save(run, g.Coefficients); err != nil {
			return ids, err
		}
	}
	if r.Subsequent != nil {
		name := modelName(ModelSubsequent, r.Subsequent.Simplified)
		if err := save(coxRun(name, r.Subsequent.Cox), r.Subsequent.Cox.Coefficients); err != nil {
			return ids, err
		}
	}
	return ids, nil
}

func coxRun(name string, c *model.CoxResult) *store.ModelRun {
	return &store.ModelRun{
		Model:     name,
		N:         c.N,
		Events:    c.Events,
		LogLik:    c.LogLik,
		LRStat:    c.LR.Stat,
		LRDF:      c.LR.DF,
		LRP:       c.LR.P,
		Converged: c.Converged,
	}
}
