package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/MF0323/cransurv/internal/output"
	"github.com/MF0323/cransurv/internal/watcher"
)

var (
	watchFiles       inputFiles
	watchDaemon      bool
	watchDaemonChild bool
	watchPIDFile     string
	watchLogFile     string
	watchStop        bool
	watchDebounce    time.Duration
	watchSimplified  bool
	watchSave        bool

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Reload inputs and re-run the report when they change",
		Long: `Watch the input files and re-run the pipeline whenever one of them changes.

On start the given files are loaded and the report is printed once. After
that, each change reloads only the files that changed and prints a fresh
report. Bursts of writes are collapsed into one run.

Watch modes:
  • Foreground (default): Run in current terminal with Ctrl+C to stop
  • Daemon: Run as a background process, writing reports to the log file
  • Stop: Stop a running daemon`,
		Example: `  # Run in foreground (Ctrl+C to stop)
  cransurv watch --lifecycle pkgs.csv --earlier cran2015.csv --later cran2020.csv

  # Run as background daemon and keep every run
  cransurv watch --daemon --save --lifecycle pkgs.csv --later cran2020.csv

  # Stop running daemon
  cransurv watch --stop`,
		RunE: runWatch,
	}
)

func init() {
	addInputFlags(watchCmd, &watchFiles)
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "run as background daemon")
	watchCmd.Flags().BoolVar(&watchDaemonChild, "daemon-child", false, "internal flag for daemon child process")
	watchCmd.Flags().StringVar(&watchPIDFile, "pid-file", "", "PID file path (default: ~/.cransurv/watch.pid)")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "log file path (default: ~/.cransurv/watch.log)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "stop running daemon")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "quiet period before a re-run")
	watchCmd.Flags().BoolVar(&watchSimplified, "simplified", false, "merge version buckets 1-4 in the feature models")
	watchCmd.Flags().BoolVar(&watchSave, "save", false, "store the fitted models of every run")

	// Hide the internal daemon-child flag from help
	watchCmd.Flags().MarkHidden("daemon-child")

	RootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchPIDFile == "" {
		defaultPID, err := getDefaultPIDFile()
		if err != nil {
			return fmt.Errorf("failed to get default PID file path: %w", err)
		}
		watchPIDFile = defaultPID
	}
	if watchLogFile == "" {
		defaultLog, err := getDefaultLogFile()
		if err != nil {
			return fmt.Errorf("failed to get default log file path: %w", err)
		}
		watchLogFile = defaultLog
	}

	if watchStop {
		return stopWatchDaemon(cmd.OutOrStdout())
	}

	if watchFiles.empty() {
		return fmt.Errorf("nothing to watch: pass at least one of --lifecycle, --earlier, --later")
	}

	if watchDaemon {
		return startWatchDaemon(cmd.OutOrStdout())
	}

	out := cmd.OutOrStdout()
	if err := rerun(watchFiles, out); err != nil {
		return err
	}

	w, err := watcher.New(watchFiles.paths(), watchDebounce, func(changed []string) error {
		return rerun(changedInputs(watchFiles, changed), out)
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if watchDaemonChild {
		// stdout and stderr are the log file here
		slog.Info("watch daemon started", "pid", os.Getpid(), "files", watchFiles.paths())
		return watcher.Run(ctx, w, watchPIDFile)
	}

	fmt.Fprintf(out, "Watching %d file(s) (press Ctrl+C to stop)...\n", len(watchFiles.paths()))
	if err := watcher.Run(ctx, w, ""); err != nil {
		return err
	}
	fmt.Fprintln(out, "Watch stopped")
	return nil
}

// rerun loads files, fits the models and prints the report.
func rerun(files inputFiles, out io.Writer) error {
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

	if !files.empty() {
		if _, err := loadInputs(st, settings, files, io.Discard); err != nil {
			return err
		}
	}

	a := newAnalyzerWith(st, settings)
	r, err := a.Run(watchSimplified)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n=== Run at %s ===\n", time.Now().Format("2006-01-02 15:04:05"))
	printReport(out, r)

	if watchSave {
		ids, err := a.Save(r)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintf(out, "✓ Saved run %s\n", output.ShortID(id))
		}
	}

	if err := writeMetrics(); err != nil {
		slog.Warn("failed to write metrics", "error", err)
	}
	return nil
}

// changedInputs keeps only the inputs whose absolute path is in changed.
func changedInputs(files inputFiles, changed []string) inputFiles {
	set := make(map[string]bool, len(changed))
	for _, c := range changed {
		set[c] = true
	}
	keep := func(p string) string {
		if p == "" {
			return ""
		}
		abs, err := filepath.Abs(p)
		if err != nil || !set[abs] {
			return ""
		}
		return p
	}
	return inputFiles{
		Lifecycle: keep(files.Lifecycle),
		Earlier:   keep(files.Earlier),
		Later:     keep(files.Later),
	}
}

func stopWatchDaemon(out io.Writer) error {
	running, err := watcher.IsDaemonRunning(watchPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if !running {
		fmt.Fprintln(out, "Daemon is not running")
		return nil
	}

	spinner := output.NewSpinner("Stopping daemon...")
	if err := watcher.StopDaemon(watchPIDFile); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon stopped")
	return nil
}

func startWatchDaemon(out io.Writer) error {
	args := daemonArgs(os.Args[1:])

	spinner := output.NewSpinner("Starting daemon...")
	if err := watcher.StartDaemon(watchPIDFile, watchLogFile, args); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon started")

	fmt.Fprintf(out, "\nWatch daemon started\n")
	fmt.Fprintf(out, "  PID file: %s\n", watchPIDFile)
	fmt.Fprintf(out, "  Log file: %s\n", watchLogFile)
	fmt.Fprintf(out, "\nTo stop: cransurv watch --stop\n")
	return nil
}

// daemonArgs drops --daemon from the command line of the parent so the
// child runs the watch loop itself.
func daemonArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--daemon" || a == "--daemon=true" {
			continue
		}
		out = append(out, a)
	}
	return out
}
