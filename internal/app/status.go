package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MF0323/cransurv/internal/output"
	"github.com/MF0323/cransurv/internal/store"
	"github.com/MF0323/cransurv/internal/watcher"
)

var (
	statusRuns int

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show what is loaded and the latest model runs",
		Long: `Display the contents of the store and the state of the watch daemon.

Shows:
  • Database location and size
  • Lifecycle records and stored listings
  • Saved model runs, newest first
  • Watch daemon running status and PID`,
		Example: `  # Check status
  cransurv status

  # Show the last 20 saved runs
  cransurv status --runs 20`,
		RunE: runStatus,
	}
)

func init() {
	statusCmd.Flags().IntVar(&statusRuns, "runs", 5, "number of saved model runs to show")
	RootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	path, err := getDBPath()
	if err != nil {
		return fmt.Errorf("failed to get database path: %w", err)
	}

	st, err := openStore(false)
	if errors.Is(err, store.ErrNotInitialized) {
		fmt.Fprintln(out, "cransurv is not set up. Run 'cransurv load' to get started.")
		return nil
	}
	if err != nil {
		return err
	}
	defer st.Close()

	counts, err := st.GetCounts()
	if errors.Is(err, store.ErrNotInitialized) {
		fmt.Fprintln(out, "cransurv is not set up. Run 'cransurv load' to get started.")
		return nil
	}
	if err != nil {
		return err
	}

	const label = "%-14s"
	fmt.Fprintln(out)

	size := "unknown"
	if fi, err := os.Stat(path); err == nil {
		size = formatSize(fi.Size())
	}
	fmt.Fprintf(out, label+"%s (%s)\n", "Database:", path, size)
	fmt.Fprintf(out, label+"%s records\n", "Lifecycle:", formatNumber(counts.Lifecycle))

	listings, err := st.ListListings()
	if err != nil {
		return err
	}
	if len(listings) == 0 {
		fmt.Fprintf(out, label+"none (run 'cransurv load --earlier F --later F')\n", "Listings:")
	}
	for i, l := range listings {
		name := ""
		if i == 0 {
			name = "Listings:"
		}
		fmt.Fprintf(out, label+"%s · %s · %s entries · loaded %s\n", name,
			l.Label, l.Date.Format("2006-01-02"), formatNumber(l.Entries), formatDuration(time.Since(l.LoadedAt)))
	}

	pidFile, err := getDefaultPIDFile()
	if err != nil {
		return fmt.Errorf("failed to get PID file path: %w", err)
	}
	running, err := watcher.IsDaemonRunning(pidFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running {
		fmt.Fprintf(out, label+"running (PID file %s)\n", "Watch:", pidFile)
	} else {
		fmt.Fprintf(out, label+"stopped\n", "Watch:")
	}

	fmt.Fprintf(out, label+"%s saved\n", "Model runs:", formatNumber(counts.ModelRuns))
	if counts.ModelRuns > 0 && statusRuns > 0 {
		runs, err := st.ListModelRuns(statusRuns)
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		fmt.Fprint(out, output.RenderRunTable(runs))
	}

	fmt.Fprintln(out)
	return nil
}
