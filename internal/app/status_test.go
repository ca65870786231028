package app

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestRunStatus_NotSetUp(t *testing.T) {
	e := setupEnv(t)

	if err := e.run("status"); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(e.stdout.String(), "not set up") {
		t.Errorf("expected a setup hint, got:\n%s", e.stdout.String())
	}
}

func TestRunStatus_Loaded(t *testing.T) {
	e := setupEnv(t)
	e.load(t)

	if err := e.run("status"); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	out := e.stdout.String()
	for _, want := range []string{
		"Database:",
		"Lifecycle:    209 records",
		"2015 · 2015-06-01 · 120 entries",
		"2020 · 2020-06-01 · 97 entries",
		"Watch:        stopped",
		"Model runs:   0 saved",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("status missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "LogLik") {
		t.Error("run table should be hidden without saved runs")
	}
}

func TestRunStatus_ShowsSavedRuns(t *testing.T) {
	e := setupEnv(t)
	e.load(t)
	if err := e.run("report", "--save"); err != nil {
		t.Fatalf("report failed: %v", err)
	}

	if err := e.run("status", "--runs", "2"); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	out := e.stdout.String()
	if !strings.Contains(out, "Model runs:   3 saved") {
		t.Errorf("status should count 3 runs:\n%s", out)
	}
	if !strings.Contains(out, "LogLik") {
		t.Errorf("status should list saved runs:\n%s", out)
	}
}

func TestRunStatus_DaemonRunning(t *testing.T) {
	e := setupEnv(t)
	e.load(t)

	pidDir := filepath.Join(e.dir, ".cransurv")
	if err := os.MkdirAll(pidDir, 0755); err != nil {
		t.Fatal(err)
	}
	pidFile := filepath.Join(pidDir, "watch.pid")
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := e.run("status"); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(e.stdout.String(), "Watch:        running") {
		t.Errorf("expected a running watch line:\n%s", e.stdout.String())
	}
}
