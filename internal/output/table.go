// Package output renders cransurv results for the terminal.
//
// This package includes:
//   - Coefficient tables with significance codes for Cox and logistic fits
//   - Kaplan-Meier step and summary tables
//   - Contingency tables of survival against listing features
//   - Dataset summaries and the model run history
//   - Progress bars and spinners for long steps
//
// Tables use box-drawing separators. Color is applied through fatih/color
// only when stdout is a terminal and NO_COLOR is unset.
package output

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/MF0323/cransurv/internal/analyzer"
	"github.com/MF0323/cransurv/internal/model"
	"github.com/MF0323/cransurv/internal/store"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	gray   = color.New(color.FgHiBlack)
	bold   = color.New(color.Bold)
)

// IsColorEnabled returns true if color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// paint applies c to text when color is enabled.
func paint(c *color.Color, text string) string {
	if !IsColorEnabled() {
		return text
	}
	c.EnableColor()
	return c.Sprint(text)
}

// RenderCoefficientTable renders a fitted coefficient table. expLabel
// names the exponentiated column ("HR" for Cox, "OR" for logistic); an
// empty label omits it.
func RenderCoefficientTable(coefs []model.Coefficient, expLabel string) string {
	if len(coefs) == 0 {
		return "No coefficients.\n"
	}

	var sb strings.Builder
	width := 30
	sb.WriteString(fmt.Sprintf("%-30s %10s", "Term", "Estimate"))
	if expLabel != "" {
		sb.WriteString(fmt.Sprintf(" %10s", expLabel))
		width += 11
	}
	sb.WriteString(fmt.Sprintf(" %9s %8s %10s\n", "Std.Err", "z", "Pr(>|z|)"))
	width += 11 + 10 + 9 + 11 + 4
	sb.WriteString(strings.Repeat("─", width))
	sb.WriteString("\n")

	for _, c := range coefs {
		if c.Aliased {
			sb.WriteString(fmt.Sprintf("%-30s %10s", truncate(c.Term, 30), "NA"))
			if expLabel != "" {
				sb.WriteString(fmt.Sprintf(" %10s", "NA"))
			}
			sb.WriteString(fmt.Sprintf(" %9s %8s %10s\n", "NA", "NA", "NA"))
			continue
		}
		sb.WriteString(fmt.Sprintf("%-30s %10.4f", truncate(c.Term, 30), c.Estimate))
		if expLabel != "" {
			sb.WriteString(fmt.Sprintf(" %10.4f", c.Exp()))
		}
		stars := Significance(c.P)
		sb.WriteString(fmt.Sprintf(" %9.4f %8.3f %10s %s\n", c.StdErr, c.Z, FormatP(c.P), colorStars(stars)))
	}
	sb.WriteString(paint(gray, "Signif. codes: 0 '***' 0.001 '**' 0.01 '*' 0.05 '.' 0.1 ' ' 1"))
	sb.WriteString("\n")
	if n := countAliased(coefs); n > 0 {
		sb.WriteString(fmt.Sprintf("(%d not defined because of singularities)\n", n))
	}
	return sb.String()
}

func countAliased(coefs []model.Coefficient) int {
	n := 0
	for _, c := range coefs {
		if c.Aliased {
			n++
		}
	}
	return n
}

// Significance returns the conventional significance code of a p-value.
func Significance(p float64) string {
	switch {
	case math.IsNaN(p):
		return ""
	case p < 0.001:
		return "***"
	case p < 0.01:
		return "**"
	case p < 0.05:
		return "*"
	case p < 0.1:
		return "."
	}
	return ""
}

func colorStars(s string) string {
	switch s {
	case "***", "**":
		return paint(green, s)
	case "*", ".":
		return paint(yellow, s)
	}
	return s
}

// FormatP renders a p-value, switching to scientific notation for small
// values.
func FormatP(p float64) string {
	switch {
	case math.IsNaN(p):
		return "NA"
	case p < 2e-16:
		return "<2e-16"
	case p < 1e-4:
		return fmt.Sprintf("%.2e", p)
	}
	return fmt.Sprintf("%.4f", p)
}

// RenderCoxFooter renders the fit statistics of a Cox model.
func RenderCoxFooter(c *model.CoxResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("n = %d, events = %d\n", c.N, c.Events))
	sb.WriteString(fmt.Sprintf("Log-likelihood: %.3f (null %.3f)\n", c.LogLik, c.NullLogLik))
	sb.WriteString(fmt.Sprintf("Likelihood ratio test: %.2f on %d df, p = %s\n", c.LR.Stat, c.LR.DF, FormatP(c.LR.P)))
	if !c.Converged {
		sb.WriteString(paint(red, fmt.Sprintf("⚠ did not converge after %d iterations", c.Iterations)))
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderGLMFooter renders the fit statistics of a logistic model.
func RenderGLMFooter(g *model.GLMResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("n = %d, survived = %d\n", g.N, g.Successes))
	sb.WriteString(fmt.Sprintf("Null deviance: %.2f on %d df\n", g.NullDeviance, g.N-1))
	sb.WriteString(fmt.Sprintf("Residual deviance: %.2f on %d df\n", g.Deviance, g.ResidualDF()))
	sb.WriteString(fmt.Sprintf("AIC: %.2f\n", g.AIC))
	if !g.Converged {
		sb.WriteString(paint(red, fmt.Sprintf("⚠ did not converge after %d iterations", g.Iterations)))
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderCurveSummary renders one line per start period: size, removals,
// median time on CRAN and survival at fixed horizons in years.
func RenderCurveSummary(curves []analyzer.PeriodCurve) string {
	if len(curves) == 0 {
		return "No survival curves.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-14s %6s %8s %12s %8s %8s %8s\n",
		"Period", "N", "Removed", "Median (y)", "S(1y)", "S(5y)", "S(10y)"))
	sb.WriteString(strings.Repeat("─", 70))
	sb.WriteString("\n")

	for _, pc := range curves {
		median := "—"
		if m, ok := pc.Curve.Median(); ok {
			median = fmt.Sprintf("%.1f", m/daysPerYear)
		}
		sb.WriteString(fmt.Sprintf("%-14s %6d %8d %12s %8.3f %8.3f %8.3f\n",
			pc.Period.Label(),
			pc.Curve.N,
			pc.Removed,
			median,
			pc.Curve.At(1*daysPerYear),
			pc.Curve.At(5*daysPerYear),
			pc.Curve.At(10*daysPerYear)))
	}
	return sb.String()
}

const daysPerYear = 365.25

// RenderKMSteps renders the steps of a curve at which events occurred.
func RenderKMSteps(c model.Curve) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%10s %8s %7s %9s %9s\n", "Days", "At risk", "Events", "Survival", "Std.Err"))
	sb.WriteString(strings.Repeat("─", 47))
	sb.WriteString("\n")

	rows := 0
	for _, s := range c.Steps {
		if s.Events == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("%10.0f %8d %7d %9.4f %9.4f\n", s.Time, s.AtRisk, s.Events, s.Survival, s.StdErr))
		rows++
	}
	if rows == 0 {
		sb.WriteString("(no events)\n")
	}
	return sb.String()
}

// RenderCrossTab renders a survived/removed contingency table with the
// survival rate of each level.
func RenderCrossTab(tab analyzer.CrossTab) string {
	var sb strings.Builder
	sb.WriteString(paint(bold, tab.Variable))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%-28s %9s %9s %7s %9s\n", "Level", "Survived", "Removed", "Total", "Rate"))
	sb.WriteString(strings.Repeat("─", 66))
	sb.WriteString("\n")

	var surv, died int
	for i, level := range tab.Levels {
		surv += tab.Survived[i]
		died += tab.Died[i]
		sb.WriteString(fmt.Sprintf("%-28s %9d %9d %7d %8.1f%%\n",
			truncate(level, 28), tab.Survived[i], tab.Died[i], tab.Total(i), 100*tab.SurvivalRate(i)))
	}
	rate := 0.0
	if surv+died > 0 {
		rate = 100 * float64(surv) / float64(surv+died)
	}
	sb.WriteString(fmt.Sprintf("%-28s %9d %9d %7d %8.1f%%\n", "Total", surv, died, surv+died, rate))
	return sb.String()
}

// RenderDatasetSummary renders the record counts of a prepared dataset.
func RenderDatasetSummary(ds *analyzer.Dataset) string {
	ns, js := ds.NormalizeStats, ds.JoinStats

	rows := []struct {
		label string
		value string
	}{
		{"Lifecycle records", fmt.Sprintf("%d", ds.RawLifecycle)},
		{"  dropped (unbounded first)", fmt.Sprintf("%d", ns.Dropped)},
		{"  removed from CRAN", fmt.Sprintf("%d", ns.RemovedPackages)},
		{"  still on CRAN", fmt.Sprintf("%d", ns.CensoredPackages)},
		{"  never archived", fmt.Sprintf("%d", ns.NeverArchived)},
		{"  without start period", fmt.Sprintf("%d", len(ds.Excluded))},
		{fmt.Sprintf("Listing %s (%s)", ds.Earlier.Label, ds.Earlier.Date.Format("2006-01-02")), fmt.Sprintf("%d", js.Earlier)},
		{fmt.Sprintf("Listing %s (%s)", ds.Later.Label, ds.Later.Date.Format("2006-01-02")), fmt.Sprintf("%d", js.Later)},
		{"  survived", fmt.Sprintf("%d", js.Survived)},
		{"  removed", fmt.Sprintf("%d", js.Died)},
		{"  duplicate keys skipped", fmt.Sprintf("%d", js.Duplicates)},
		{"  without lifecycle record", fmt.Sprintf("%d", js.NoLifecycle)},
	}

	var sb strings.Builder
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%-34s %8s\n", r.label, r.value))
	}
	return sb.String()
}

// RenderRunTable renders the stored model runs, newest first.
func RenderRunTable(runs []*store.ModelRun) string {
	if len(runs) == 0 {
		return "No model runs saved.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-10s %-22s %6s %7s %12s %10s %-14s\n",
		"ID", "Model", "N", "Events", "LogLik", "LR p", "Saved"))
	sb.WriteString(strings.Repeat("─", 88))
	sb.WriteString("\n")

	for _, r := range runs {
		saved := formatRelativeTime(r.CreatedAt)
		if !r.Converged {
			saved += " " + paint(yellow, "⚠")
		}
		sb.WriteString(fmt.Sprintf("%-10s %-22s %6d %7d %12.3f %10s %-14s\n",
			ShortID(r.ID),
			truncate(r.Model, 22),
			r.N,
			r.Events,
			r.LogLik,
			FormatP(r.LRP),
			saved))
	}
	return sb.String()
}

// ShortID returns the first eight characters of a run ID.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := time.Since(t)
	plural := func(n int, unit string) string {
		if n == 1 {
			return "1 " + unit + " ago"
		}
		return fmt.Sprintf("%d %ss ago", n, unit)
	}

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 30*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	case diff < 365*24*time.Hour:
		return plural(int(diff.Hours()/24/30), "month")
	}
	return plural(int(diff.Hours()/24/365), "year")
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
