package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MF0323/cransurv/internal/analyzer"
	"github.com/MF0323/cransurv/internal/config"
	"github.com/MF0323/cransurv/internal/output"
	"github.com/MF0323/cransurv/internal/store"
	"github.com/MF0323/cransurv/internal/watcher"
)

// ErrWarnings is returned by doctor when only warning-level checks failed.
var ErrWarnings = errors.New("diagnostics found warnings")

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose configuration and store problems",
	Long: `Runs diagnostic checks on your cransurv setup.

Checks:
  • Settings file parses and validates
  • Database exists and is initialized
  • Lifecycle records and both configured listings are loaded
  • The dataset prepares and has events for the models
  • Watch daemon state

Exits with status 1 on critical issues and 2 when only warnings remain.`,
	RunE: runDoctor,
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Running cransurv diagnostics...")
	fmt.Fprintln(out)

	criticalIssues := 0
	warningIssues := 0

	// Check 1: Settings
	var settings *config.Settings
	cfgPath, err := getConfigPath()
	if err != nil {
		fmt.Fprintln(out, "✗ Settings path error:", err)
		criticalIssues++
	} else if s, err := config.Load(cfgPath); err != nil {
		fmt.Fprintln(out, "✗ Cannot read settings:", err)
		criticalIssues++
	} else if err := s.Validate(); err != nil {
		fmt.Fprintln(out, "✗ Invalid settings:", err)
		fmt.Fprintln(out, "  Action: Fix", cfgPath)
		criticalIssues++
	} else {
		settings = s
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			fmt.Fprintln(out, "✓ Using default settings (no file at", cfgPath+")")
		} else {
			fmt.Fprintln(out, "✓ Settings valid:", cfgPath)
		}
	}

	// Check 2: Database
	var st *store.Store
	resolvedDBPath, err := getDBPath()
	if err != nil {
		fmt.Fprintln(out, "✗ Database path error:", err)
		criticalIssues++
	} else if _, err := os.Stat(resolvedDBPath); os.IsNotExist(err) {
		fmt.Fprintln(out, "✗ Database not found at:", resolvedDBPath)
		fmt.Fprintln(out, "  Action: Run 'cransurv load' to create it")
		criticalIssues++
	} else if db, err := store.New(resolvedDBPath); err != nil {
		fmt.Fprintln(out, "✗ Cannot open database:", err)
		criticalIssues++
	} else {
		st = db
		defer st.Close()
		fmt.Fprintln(out, "✓ Database found:", resolvedDBPath)
	}

	// Check 3: Inputs loaded
	if st != nil {
		counts, err := st.GetCounts()
		switch {
		case errors.Is(err, store.ErrNotInitialized):
			fmt.Fprintln(out, "✗ Database is not initialized")
			fmt.Fprintln(out, "  Action: Run 'cransurv load'")
			criticalIssues++
		case err != nil:
			fmt.Fprintln(out, "✗ Cannot read database:", err)
			criticalIssues++
		case counts.Lifecycle == 0:
			fmt.Fprintln(out, "✗ No lifecycle records")
			fmt.Fprintln(out, "  Action: Run 'cransurv load --lifecycle FILE'")
			criticalIssues++
		default:
			fmt.Fprintf(out, "✓ %s lifecycle records\n", formatNumber(counts.Lifecycle))
		}

		if err == nil && settings != nil {
			for _, l := range []config.ListingConfig{settings.Listings.Earlier, settings.Listings.Later} {
				listing, err := st.GetListing(l.Label)
				switch {
				case errors.Is(err, store.ErrNotFound):
					fmt.Fprintf(out, "✗ Listing %s not loaded\n", l.Label)
					fmt.Fprintln(out, "  Action: Run 'cransurv load --earlier FILE --later FILE'")
					criticalIssues++
				case err != nil:
					fmt.Fprintf(out, "✗ Cannot read listing %s: %v\n", l.Label, err)
					criticalIssues++
				default:
					fmt.Fprintf(out, "✓ Listing %s: %s entries\n", l.Label, formatNumber(len(listing.Entries)))
					if got := listing.Date.Format("2006-01-02"); got != l.Date {
						fmt.Fprintf(out, "⚠ Listing %s was loaded with date %s, settings say %s\n", l.Label, got, l.Date)
						fmt.Fprintln(out, "  Action: Reload it with 'cransurv load'")
						warningIssues++
					}
				}
			}
		}
	}

	// Check 4: Dataset prepares and has events (only when no critical issues)
	if criticalIssues == 0 {
		start := time.Now()
		spinner := output.NewSpinner("Preparing dataset...")
		spinner.SetWriter(cmd.ErrOrStderr())
		spinner.Start()
		ds, err := analyzer.New(st, settings, nil).Prepare()
		elapsed := time.Since(start).Round(time.Millisecond)
		spinner.Stop()
		if err != nil {
			fmt.Fprintf(out, "✗ Dataset: fail (%v)\n", elapsed)
			fmt.Fprintf(out, "  %v\n", err)
			criticalIssues++
		} else {
			fmt.Fprintf(out, "✓ Dataset: pass (%v)\n", elapsed)
			if len(ds.Cohorts) == 0 {
				fmt.Fprintln(out, "⚠ No packages fall into a start period")
				fmt.Fprintln(out, "  Action: Check period_breaks in the settings")
				warningIssues++
			}
			if ds.JoinStats.Died == 0 {
				fmt.Fprintln(out, "⚠ No package was removed between the listings; feature models have no events")
				warningIssues++
			}
			if ds.JoinStats.NoLifecycle > 0 {
				fmt.Fprintf(out, "⚠ %d listed packages have no lifecycle record\n", ds.JoinStats.NoLifecycle)
				warningIssues++
			}
		}
	}

	// Check 5: Watch daemon, reported only when a PID file exists
	if pidFile, err := getDefaultPIDFile(); err == nil {
		if _, statErr := os.Stat(pidFile); statErr == nil {
			running, err := watcher.IsDaemonRunning(pidFile)
			switch {
			case err != nil:
				fmt.Fprintln(out, "⚠ Failed to check watch daemon:", err)
				warningIssues++
			case running:
				fmt.Fprintln(out, "✓ Watch daemon running")
			default:
				fmt.Fprintln(out, "⚠ Watch daemon not running (stale PID file removed)")
				warningIssues++
			}
		}
	}

	fmt.Fprintln(out)
	if criticalIssues == 0 && warningIssues == 0 {
		fmt.Fprintln(out, "✓ All checks passed!")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Next steps:")
		fmt.Fprintln(out, "  • Fit the models: cransurv report")
		fmt.Fprintln(out, "  • Trace a package: cransurv explain PKG")
		return nil
	}

	if criticalIssues > 0 {
		fmt.Fprintf(out, "Found %d critical issue(s) and %d warning(s).\n", criticalIssues, warningIssues)
		return fmt.Errorf("diagnostics failed")
	}

	fmt.Fprintf(out, "Found %d warning(s). The models can run but the results may be limited.\n", warningIssues)
	return ErrWarnings
}
