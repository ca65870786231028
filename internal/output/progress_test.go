package output

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func TestProgressBar_Steps(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgress(3, "Loading")
	p.SetWriter(buf)

	p.Step("lifecycle")
	p.Step("listing 2015")
	p.Step("listing 2020")
	p.Finish()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want one per step:\n%s", len(lines), buf.String())
	}
	for i, want := range []string{"1/3 lifecycle", "2/3 listing 2015", "3/3 listing 2020"} {
		if !strings.Contains(lines[i], want) {
			t.Errorf("line %d = %q, want it to contain %q", i, lines[i], want)
		}
	}
	if !strings.Contains(lines[2], "[==============================]") {
		t.Errorf("final line should show a full bar, got %q", lines[2])
	}
}

func TestProgressBar_FinishEarly(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgress(4, "Loading")
	p.SetWriter(buf)

	p.Step("")
	p.Finish()

	out := buf.String()
	if !strings.Contains(out, "1/4 Loading") || !strings.Contains(out, "4/4 Loading") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestProgressBar_OverLimit(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgress(1, "x")
	p.SetWriter(buf)

	p.Step("")
	p.Step("")
	if strings.Contains(buf.String(), "2/1") {
		t.Errorf("progress should not pass its total: %q", buf.String())
	}
}

func TestProgressBar_ZeroTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgress(0, "nothing")
	p.SetWriter(buf)
	p.Finish()

	if !strings.Contains(buf.String(), "0/0 nothing") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestSpinner_NonTTY(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSpinner("Fitting models")
	s.SetWriter(buf)

	s.Start()
	s.Start() // no-op while running
	s.StopWithMessage("✓ done")
	s.Stop() // no-op when stopped

	want := "Fitting models...\n✓ done\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestSpinner_Restart(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSpinner("one")
	s.SetWriter(buf)

	s.Start()
	s.Stop()
	s.UpdateMessage("two")
	s.Start()
	s.Stop()

	if got := strings.Count(buf.String(), "..."); got != 2 {
		t.Errorf("expected two start messages, got %q", buf.String())
	}
}

func TestSpinner_Concurrent(t *testing.T) {
	s := NewSpinner("busy")
	s.SetWriter(&bytes.Buffer{})
	s.Start()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.UpdateMessage("still busy")
		}()
	}
	wg.Wait()
	s.Stop()
}
