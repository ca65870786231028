package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MF0323/cransurv/internal/config"
	"github.com/MF0323/cransurv/internal/cran"
	"github.com/MF0323/cransurv/internal/output"
	"github.com/MF0323/cransurv/internal/store"
)

// inputFiles names the three pipeline inputs. Empty paths are skipped.
type inputFiles struct {
	Lifecycle string
	Earlier   string
	Later     string
}

func (f inputFiles) paths() []string {
	var paths []string
	for _, p := range []string{f.Lifecycle, f.Earlier, f.Later} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

func (f inputFiles) empty() bool {
	return len(f.paths()) == 0
}

func addInputFlags(cmd *cobra.Command, f *inputFiles) {
	cmd.Flags().StringVar(&f.Lifecycle, "lifecycle", "", "package lifecycle file (.csv, .txt or .dta)")
	cmd.Flags().StringVar(&f.Earlier, "earlier", "", "earlier CRAN listing file")
	cmd.Flags().StringVar(&f.Later, "later", "", "later CRAN listing file")
}

// loadSummary counts what loadInputs stored.
type loadSummary struct {
	Lifecycle int
	Earlier   int
	Later     int
}

var (
	loadFiles inputFiles

	loadCmd = &cobra.Command{
		Use:   "load",
		Short: "Import the lifecycle dataset and CRAN listings",
		Long: `Parse the input files and replace their contents in the store.

Inputs:
  • --lifecycle: one row per package with Package, cran_date, first, latest
  • --earlier:   the earlier CRAN listing (Package, Version, Depends, License)
  • --later:     the later CRAN listing

Files may be comma-separated (.csv, .txt) or Stata (.dta). Listings are stored
under the labels and dates configured in the settings file, so loading a new
file for a label replaces the old one. Any subset of the inputs may be given.`,
		Example: `  # Load everything
  cransurv load --lifecycle pkgs.csv --earlier cran2015.csv --later cran2020.csv

  # Replace only the later listing
  cransurv load --later cran2020.csv`,
		RunE: runLoad,
	}
)

func init() {
	addInputFlags(loadCmd, &loadFiles)
	RootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	if loadFiles.empty() {
		return fmt.Errorf("nothing to load: pass at least one of --lifecycle, --earlier, --later")
	}

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	st, err := openStore(true)
	if err != nil {
		return err
	}
	defer st.Close()

	sum, err := loadInputs(st, settings, loadFiles, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	if loadFiles.Lifecycle != "" {
		fmt.Fprintf(out, "✓ %s lifecycle records\n", formatNumber(sum.Lifecycle))
	}
	if loadFiles.Earlier != "" {
		fmt.Fprintf(out, "✓ %s entries in listing %s\n", formatNumber(sum.Earlier), settings.Listings.Earlier.Label)
	}
	if loadFiles.Later != "" {
		fmt.Fprintf(out, "✓ %s entries in listing %s\n", formatNumber(sum.Later), settings.Listings.Later.Label)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next: run 'cransurv report' to fit the models.")
	return nil
}

// loadInputs parses each given file and replaces its table in st. Progress
// is written to progressOut.
func loadInputs(st *store.Store, settings *config.Settings, files inputFiles, progressOut io.Writer) (loadSummary, error) {
	var sum loadSummary

	progress := output.NewProgress(len(files.paths()), "Loading inputs")
	progress.SetWriter(progressOut)
	defer progress.Finish()

	if files.Lifecycle != "" {
		progress.Step("Loading lifecycle")
		records, err := cran.LoadLifecycle(files.Lifecycle)
		if err != nil {
			return sum, fmt.Errorf("failed to load lifecycle file: %w", err)
		}
		if err := st.ReplaceLifecycle(records); err != nil {
			return sum, err
		}
		sum.Lifecycle = len(records)
		recorder.RecordLoaded("lifecycle", len(records))
		slog.Debug("lifecycle loaded", "path", files.Lifecycle, "records", len(records))
	}

	for _, in := range []struct {
		path  string
		cfg   config.ListingConfig
		count *int
	}{
		{files.Earlier, settings.Listings.Earlier, &sum.Earlier},
		{files.Later, settings.Listings.Later, &sum.Later},
	} {
		if in.path == "" {
			continue
		}
		progress.Step("Loading listing " + in.cfg.Label)
		date, err := in.cfg.Time()
		if err != nil {
			return sum, fmt.Errorf("listing %s: invalid date: %w", in.cfg.Label, err)
		}
		listing, err := cran.LoadListing(in.path, in.cfg.Label, date)
		if err != nil {
			return sum, fmt.Errorf("failed to load listing %s: %w", in.cfg.Label, err)
		}
		if err := st.ReplaceListing(listing); err != nil {
			return sum, err
		}
		*in.count = len(listing.Entries)
		recorder.RecordLoaded("listing_entries", len(listing.Entries))
		slog.Debug("listing loaded", "label", in.cfg.Label, "path", in.path, "entries", len(listing.Entries))
	}

	return sum, nil
}
