package app

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/MF0323/cransurv/internal/analyzer"
	"github.com/MF0323/cransurv/internal/output"
)

var (
	reportSimplified bool
	reportSave       bool

	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Fit all models and print the results",
		Long: `Run the full pipeline over the stored inputs and print the three models.

  • Period model:     Surv(duration, removed) ~ start period, with one
                      Kaplan-Meier curve per period
  • Survival model:   survived ~ listing features (logistic regression)
  • Subsequent model: Surv(days since the earlier listing, removed) ~ listing
                      features (Cox)

A model that cannot be fitted is reported and the others still run. With
--simplified the version buckets 1 to 4 are merged in the feature models.
With --save the fitted coefficients are stored for later comparison.`,
		Example: `  # Fit and print everything
  cransurv report

  # Merge version buckets and keep the results
  cransurv report --simplified --save`,
		RunE: runReport,
	}
)

func init() {
	reportCmd.Flags().BoolVar(&reportSimplified, "simplified", false, "merge version buckets 1-4 in the feature models")
	reportCmd.Flags().BoolVar(&reportSave, "save", false, "store the fitted models")
	RootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	st, err := openStore(false)
	if err != nil {
		return err
	}
	defer st.Close()

	a, err := newAnalyzer(st)
	if err != nil {
		return err
	}

	spinner := output.NewSpinner("Fitting models...")
	spinner.SetWriter(cmd.ErrOrStderr())
	spinner.Start()
	r, err := a.Run(reportSimplified)
	spinner.Stop()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printReport(out, r)

	if reportSave {
		ids, err := a.Save(r)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintf(out, "✓ Saved run %s\n", output.ShortID(id))
		}
	}

	if r.Failed() {
		return errors.New("no model could be fitted")
	}
	return nil
}

// printReport writes every section of r.
func printReport(out io.Writer, r *analyzer.Report) {
	printSection(out, "Data")
	fmt.Fprint(out, output.RenderDatasetSummary(r.Dataset))

	printSection(out, "Period model: time on CRAN by start period")
	if r.PeriodErr != nil {
		printModelError(out, r.PeriodErr)
	} else {
		printPeriodModel(out, r.Period)
	}

	title := "Survival model: presence in the later listing"
	if r.Survival != nil && r.Survival.Simplified {
		title += " (simplified)"
	}
	printSection(out, title)
	if r.SurvivalErr != nil {
		printModelError(out, r.SurvivalErr)
	} else {
		fmt.Fprint(out, output.RenderCoefficientTable(r.Survival.GLM.Coefficients, "OR"))
		fmt.Fprintln(out)
		fmt.Fprint(out, output.RenderGLMFooter(r.Survival.GLM))
	}

	title = "Subsequent model: time to removal after the earlier listing"
	if r.Subsequent != nil && r.Subsequent.Simplified {
		title += " (simplified)"
	}
	printSection(out, title)
	if r.SubsequentErr != nil {
		printModelError(out, r.SubsequentErr)
	} else {
		fmt.Fprint(out, output.RenderCoefficientTable(r.Subsequent.Cox.Coefficients, "HR"))
		fmt.Fprintln(out)
		fmt.Fprint(out, output.RenderCoxFooter(r.Subsequent.Cox))
		if r.Subsequent.Excluded > 0 {
			fmt.Fprintf(out, "%d packages without a usable elapsed time were excluded\n", r.Subsequent.Excluded)
		}
	}
	fmt.Fprintln(out)
}

func printPeriodModel(out io.Writer, p *analyzer.PeriodResult) {
	fmt.Fprint(out, output.RenderCurveSummary(p.Curves))
	fmt.Fprintln(out)
	fmt.Fprint(out, output.RenderCoefficientTable(p.Cox.Coefficients, "HR"))
	fmt.Fprintln(out)
	fmt.Fprint(out, output.RenderCoxFooter(p.Cox))
	if p.Excluded > 0 {
		fmt.Fprintf(out, "%d records without a usable duration were excluded\n", p.Excluded)
	}
}

func printSection(out io.Writer, title string) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, title)
	fmt.Fprintln(out)
}

func printModelError(out io.Writer, err error) {
	fmt.Fprintf(out, "✗ Model could not be fitted: %v\n", err)
}
