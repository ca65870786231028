package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/MF0323/cransurv/internal/analyzer"
	"github.com/MF0323/cransurv/internal/config"
	"github.com/MF0323/cransurv/internal/store"
)

// getDataDir returns ~/.cransurv, creating it if needed.
func getDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	dir := filepath.Join(home, ".cransurv")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cransurv directory: %w", err)
	}
	return dir, nil
}

// getDBPath returns the database path, using the flag value or default
func getDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	dir, err := getDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cransurv.db"), nil
}

// getDefaultPIDFile returns the default PID file path
func getDefaultPIDFile() (string, error) {
	dir, err := getDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "watch.pid"), nil
}

// getDefaultLogFile returns the default log file path
func getDefaultLogFile() (string, error) {
	dir, err := getDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "watch.log"), nil
}

// getConfigPath returns the settings path, using the flag value or default.
func getConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.DefaultPath()
}

// loadSettings reads the settings file. A missing file yields defaults.
func loadSettings() (*config.Settings, error) {
	path, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	settings, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	slog.Debug("settings loaded", "path", path, "reference_date", settings.ReferenceDate)
	return settings, nil
}

// openStore opens the database. Unless create is set, a missing database
// file is reported as store.ErrNotInitialized instead of being created.
func openStore(create bool) (*store.Store, error) {
	path, err := getDBPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get database path: %w", err)
	}
	if !create {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, store.ErrNotInitialized
		}
	}

	st, err := store.New(path)
	if err != nil {
		return nil, err
	}
	if create {
		if err := st.CreateSchema(); err != nil {
			st.Close()
			return nil, err
		}
	}
	return st, nil
}

// newAnalyzer loads the settings and wires an analyzer over st.
func newAnalyzer(st *store.Store) (*analyzer.Analyzer, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	return newAnalyzerWith(st, settings), nil
}

func newAnalyzerWith(st *store.Store, settings *config.Settings) *analyzer.Analyzer {
	return analyzer.New(st, settings, recorder)
}

// writeMetrics writes the recorder, plus the store row counts when a
// database exists, to the --metrics-file path.
func writeMetrics() error {
	if metricsFile == "" {
		return nil
	}

	if st, err := openStore(false); err == nil {
		defer st.Close()
		unwatch, err := recorder.WatchStore(st)
		if err != nil {
			return fmt.Errorf("failed to register store metrics: %w", err)
		}
		defer unwatch()
	}

	if err := recorder.WriteTextfile(metricsFile); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	slog.Debug("metrics written", "path", metricsFile)
	return nil
}

// formatSize converts bytes to human-readable size.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.0f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.0f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// formatNumber adds thousands separators.
func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", formatNumber(n/1000), n%1000)
}

// formatDuration formats an age in human-readable form
func formatDuration(d time.Duration) string {
	if d < 5*time.Second {
		return "just now"
	}
	if d < time.Minute {
		return fmt.Sprintf("%d seconds ago", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day ago"
	}
	return fmt.Sprintf("%d days ago", days)
}
