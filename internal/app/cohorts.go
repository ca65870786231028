package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MF0323/cransurv/internal/output"
)

var (
	cohortsSteps bool

	cohortsCmd = &cobra.Command{
		Use:   "cohorts",
		Short: "Show start-period cohorts and their survival curves",
		Long: `Group packages by the period of their first release and compare how long
each cohort stays on CRAN.

Prints the cohort sizes, a Kaplan-Meier summary per period and the Cox model
of time on CRAN by start period. Packages first released outside every period
are listed as excluded.`,
		Example: `  # Cohort summary
  cransurv cohorts

  # Include the Kaplan-Meier steps of each period
  cransurv cohorts --steps`,
		RunE: runCohorts,
	}
)

func init() {
	cohortsCmd.Flags().BoolVar(&cohortsSteps, "steps", false, "print the Kaplan-Meier steps of each period")
	RootCmd.AddCommand(cohortsCmd)
}

func runCohorts(cmd *cobra.Command, args []string) error {
	st, err := openStore(false)
	if err != nil {
		return err
	}
	defer st.Close()

	a, err := newAnalyzer(st)
	if err != nil {
		return err
	}
	ds, err := a.Prepare()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	counts := make(map[string]int)
	for _, r := range ds.Cohorts {
		counts[r.StartPeriod.Label()]++
	}
	fmt.Fprintf(out, "%-14s %8s\n", "Period", "Packages")
	for _, label := range ds.Periods.Labels() {
		fmt.Fprintf(out, "%-14s %8s\n", label, formatNumber(counts[label]))
	}
	fmt.Fprintf(out, "%-14s %8s\n", "excluded", formatNumber(len(ds.Excluded)))

	res, err := a.PeriodModel(ds)
	if err != nil {
		fmt.Fprintln(out)
		printModelError(out, err)
		return nil
	}

	fmt.Fprintln(out)
	printPeriodModel(out, res)

	if cohortsSteps {
		for _, pc := range res.Curves {
			printSection(out, "Kaplan-Meier steps: "+pc.Period.Label())
			fmt.Fprint(out, output.RenderKMSteps(pc.Curve))
		}
	}
	return nil
}
