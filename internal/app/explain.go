package app

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/MF0323/cransurv/internal/analyzer"
	"github.com/MF0323/cransurv/internal/cran"
)

var explainCmd = &cobra.Command{
	Use:   "explain [package]",
	Short: "Show every derived field for a package",
	Long: `Trace one package through the pipeline.

Shows the raw lifecycle dates, the cleaned record (end date, removal flag,
duration and start period), the entries in both listings, the listing
features and the elapsed time used by the subsequent model.`,
	Example: `  # Explain a package
  cransurv explain ggplot2`,
	Args: func(cmd *cobra.Command, args []string) error {
		switch len(args) {
		case 0:
			return errors.New("missing package name")
		case 1:
			return nil
		}
		return fmt.Errorf("expected one package name, got %d", len(args))
	},
	RunE: runExplain,
}

func init() {
	RootCmd.AddCommand(explainCmd)
}

func runExplain(cmd *cobra.Command, args []string) error {
	pkg := args[0]

	st, err := openStore(false)
	if err != nil {
		return err
	}
	defer st.Close()

	a, err := newAnalyzer(st)
	if err != nil {
		return err
	}

	ex, err := a.Explain(pkg)
	if err != nil {
		return err
	}
	if ex.Raw == nil && ex.Earlier == nil && ex.Later == nil {
		return fmt.Errorf("package not found: %s\nRun 'cransurv load' to import the input files", pkg)
	}

	renderExplanation(cmd.OutOrStdout(), ex)
	return nil
}

func renderExplanation(out io.Writer, ex *analyzer.Explanation) {
	const label = "  %-22s %s\n"

	fmt.Fprintf(out, "\nPackage: %s\n", ex.Pkg)

	fmt.Fprintln(out, "\nLifecycle:")
	switch {
	case ex.Raw == nil:
		fmt.Fprintln(out, "  (no lifecycle record)")
	default:
		fmt.Fprintf(out, label, "CRAN date", ex.Raw.CRANDate.Display())
		fmt.Fprintf(out, label, "First archived", ex.Raw.First.Display())
		fmt.Fprintf(out, label, "Latest archived", ex.Raw.Latest.Display())
		if ex.Dropped {
			fmt.Fprintln(out, "  ✗ dropped: first archive date is unbounded")
			break
		}
		r := ex.Record
		fmt.Fprintf(out, label, "Removed", yesNo(r.Removed))
		fmt.Fprintf(out, label, "End date", r.EndDate.Display())
		if ex.HasDuration {
			fmt.Fprintf(out, label, "Duration", fmt.Sprintf("%.0f days", ex.Duration))
		} else {
			fmt.Fprintf(out, label, "Duration", "—")
		}
		if ex.Period != nil {
			fmt.Fprintf(out, label, "Start period", ex.Period.Label())
		} else {
			fmt.Fprintf(out, label, "Start period", "— (excluded from cohorts)")
		}
	}

	fmt.Fprintln(out, "\nListings:")
	printEntry(out, "Earlier", ex.Earlier)
	printEntry(out, "Later", ex.Later)

	if ex.Features == nil {
		fmt.Fprintln(out)
		return
	}

	f := ex.Features
	fmt.Fprintln(out, "\nFeatures (earlier listing):")
	fmt.Fprintf(out, label, "Version bucket", f.VersionBucket)
	fmt.Fprintf(out, label, "Versioned dependency", yesNo(f.DependsOnVersionedPkg))
	fmt.Fprintf(out, label, "Dependency count", fmt.Sprintf("%d", f.DependencyCount))
	fmt.Fprintf(out, label, "License group", f.LicenseGroup)
	fmt.Fprintf(out, label, "License alternative", yesNo(f.LicenseHasAlternative))

	fmt.Fprintln(out, "\nOutcome:")
	fmt.Fprintf(out, label, "Survived", yesNo(ex.Survived))
	if ex.HasElapsed {
		fmt.Fprintf(out, label, "Elapsed", fmt.Sprintf("%.0f days", ex.Elapsed))
	} else {
		fmt.Fprintf(out, label, "Elapsed", "— (excluded from subsequent model)")
	}
	fmt.Fprintln(out)
}

func printEntry(out io.Writer, name string, e *cran.ListingEntry) {
	if e == nil {
		fmt.Fprintf(out, "  %-22s %s\n", name, "(not listed)")
		return
	}
	fmt.Fprintf(out, "  %-22s %s\n", name, e.Version)
	if e.Depends != "" {
		fmt.Fprintf(out, "  %-22s %s\n", "  Depends", e.Depends)
	}
	if e.License != "" {
		fmt.Fprintf(out, "  %-22s %s\n", "  License", e.License)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
