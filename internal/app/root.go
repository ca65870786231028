package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MF0323/cransurv/internal/metrics"
)

var (
	dbPath      string
	configPath  string
	verbose     bool
	metricsFile string

	// recorder collects the metrics of the current invocation.
	recorder = metrics.New()

	// RootCmd is the root command for cransurv
	RootCmd = &cobra.Command{
		Use:   "cransurv",
		Short: "Survival analysis of CRAN package lifecycles",
		Long: `cransurv measures how long R packages stay on CRAN and which listing
features predict that a package survives from one listing to the next.

It loads a package lifecycle dataset and two point-in-time CRAN listings into
a local SQLite store, then fits three models:

  • Period model: time on CRAN by the period of the first release (Cox + Kaplan-Meier)
  • Survival model: presence in the later listing by listing features (logistic)
  • Subsequent model: time to removal after the earlier listing (Cox)

Quick Start:
  1. cransurv load --lifecycle pkgs.csv --earlier cran2015.csv --later cran2020.csv
  2. cransurv report
  3. cransurv explain ggplot2

Examples:
  # Check what is loaded
  cransurv status

  # Fit all models with merged version buckets and keep the results
  cransurv report --simplified --save

  # Re-run the report whenever an input file changes
  cransurv watch --lifecycle pkgs.csv --earlier cran2015.csv --later cran2020.csv`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupLogging,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return writeMetrics()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			dbPath, _ := getDBPath()
			fmt.Fprintln(out, "cransurv: survival analysis of CRAN package lifecycles")
			fmt.Fprintln(out)
			if _, err := os.Stat(dbPath); os.IsNotExist(err) {
				fmt.Fprintln(out, "Run 'cransurv load' to import the input files.")
				fmt.Fprintln(out, "Run 'cransurv --help' for the full reference.")
			} else {
				fmt.Fprintln(out, "Tip: Run 'cransurv status' to see what is loaded.")
				fmt.Fprintln(out, "     Run 'cransurv report' to fit the models.")
				fmt.Fprintln(out, "     Run 'cransurv --help' for all commands.")
			}
			return nil
		},
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: ~/.cransurv/cransurv.db)")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "settings file (default: $XDG_CONFIG_HOME/cransurv/config.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	RootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after the command")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// setupLogging installs the default slog logger on stderr.
func setupLogging(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
	return nil
}
