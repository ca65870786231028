package app

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MF0323/cransurv/internal/metrics"
	"github.com/MF0323/cransurv/internal/watcher"
)

var testLicenses = []string{
	"GPL-2", "GPL-3", "MIT + file LICENSE", "Unlimited",
	"GPL-2 | GPL-3", "file LICENSE | Unlimited", "GPL (>= 2)",
}

var testDepends = []string{"", "R (>= 3.0.0), methods", "utils, stats, grid"}

// testEnv is an isolated HOME with input files and captured output.
type testEnv struct {
	dir       string
	lifecycle string
	earlier   string
	later     string
	stdout    *bytes.Buffer
	stderr    *bytes.Buffer
}

func resetFlags() {
	configPath = ""
	verbose = false
	metricsFile = ""
	loadFiles = inputFiles{}
	reportSimplified = false
	reportSave = false
	cohortsSteps = false
	statusRuns = 5
	watchFiles = inputFiles{}
	watchDaemon = false
	watchDaemonChild = false
	watchPIDFile = ""
	watchLogFile = ""
	watchStop = false
	watchDebounce = watcher.DefaultDebounce
	watchSimplified = false
	watchSave = false
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("NO_COLOR", "1")

	oldDBPath := dbPath
	dbPath = filepath.Join(dir, "cransurv.db")
	t.Cleanup(func() {
		dbPath = oldDBPath
		resetFlags()
		RootCmd.SetOut(nil)
		RootCmd.SetErr(nil)
		RootCmd.SetArgs(nil)
	})

	e := &testEnv{
		dir:       dir,
		lifecycle: filepath.Join(dir, "pkgs.csv"),
		earlier:   filepath.Join(dir, "cran2015.csv"),
		later:     filepath.Join(dir, "cran2020.csv"),
		stdout:    &bytes.Buffer{},
		stderr:    &bytes.Buffer{},
	}
	e.writeInputs(t)
	return e
}

func survives(i int) bool { return (i*7)%5 != 0 }

// writeInputs writes 120 listed packages, 88 archive-only packages, one
// package new in the later listing and one record with an unbounded first
// date. 96 of the listed packages survive.
func (e *testEnv) writeInputs(t *testing.T) {
	t.Helper()

	since := time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)
	day := func(t time.Time) string { return t.Format("2006-01-02") }

	lifecycle := [][]string{{"pkg", "cran_date", "first", "latest"}}
	earlier := [][]string{{"Package", "Version", "Depends", "License"}}
	later := [][]string{{"Package", "Version", "Depends", "License"}}

	for i := 0; i < 120; i++ {
		name := fmt.Sprintf("pkg%03d", i)
		entry := []string{name, fmt.Sprintf("%d.%d", i%6, i%3), testDepends[(i+i/6)%3], testLicenses[i%7]}
		earlier = append(earlier, entry)

		first := time.Date(1998+i%17, time.March, 15, 0, 0, 0, 0, time.UTC)
		if survives(i) {
			later = append(later, entry)
			lifecycle = append(lifecycle, []string{name, "2019-01-01", day(first), day(first.AddDate(0, 0, 200))})
		} else {
			lifecycle = append(lifecycle, []string{name, "NA", day(first), day(since.AddDate(0, 0, 30+(i*13)%1500))})
		}
	}
	for j := 0; j < 88; j++ {
		first := time.Date(1998+j%22, time.July, 1, 0, 0, 0, 0, time.UTC)
		cranDate := "NA"
		if (j/22)%2 == 1 {
			cranDate = "2020-01-01"
		}
		lifecycle = append(lifecycle, []string{fmt.Sprintf("old%03d", j), cranDate, day(first), day(first.AddDate(0, 0, 100+(j*37)%2000))})
	}
	later = append(later, []string{"newpkg", "0.1", "NA", "MIT + file LICENSE"})
	lifecycle = append(lifecycle, []string{"bad", "NA", "-Inf", "2010-01-01"})

	writeCSV(t, e.lifecycle, lifecycle)
	writeCSV(t, e.earlier, earlier)
	writeCSV(t, e.later, later)
}

func writeCSV(t *testing.T, path string, rows [][]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// run executes the root command with args and captures its output.
func (e *testEnv) run(args ...string) error {
	resetFlags()
	recorder = metrics.New()
	e.stdout.Reset()
	e.stderr.Reset()
	RootCmd.SetOut(e.stdout)
	RootCmd.SetErr(e.stderr)
	if args == nil {
		args = []string{}
	}
	RootCmd.SetArgs(args)
	return RootCmd.Execute()
}

// load imports all three input files.
func (e *testEnv) load(t *testing.T) {
	t.Helper()
	if err := e.run("load", "--lifecycle", e.lifecycle, "--earlier", e.earlier, "--later", e.later); err != nil {
		t.Fatalf("load failed: %v\nstderr:\n%s", err, e.stderr.String())
	}
}
