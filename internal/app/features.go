package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MF0323/cransurv/internal/analyzer"
	"github.com/MF0323/cransurv/internal/output"
)

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Show listing features against survival",
	Long: `Cross-tabulate each listing feature of the earlier listing against
presence in the later listing.

Features:
  • Version bucket (0, 1, 2, 3, 4, others) and its consolidated form
  • Whether Depends carries a versioned requirement other than R
  • Number of dependencies
  • License group and whether the license offers alternatives`,
	Example: `  cransurv features`,
	RunE:    runFeatures,
}

func init() {
	RootCmd.AddCommand(featuresCmd)
}

func runFeatures(cmd *cobra.Command, args []string) error {
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
	fmt.Fprintf(out, "%s packages in listing %s, %s survived to listing %s\n",
		formatNumber(ds.JoinStats.Earlier), ds.Earlier.Label,
		formatNumber(ds.JoinStats.Survived), ds.Later.Label)

	for _, tab := range analyzer.CrossTabs(ds) {
		fmt.Fprintln(out)
		fmt.Fprint(out, output.RenderCrossTab(tab))
	}
	return nil
}
