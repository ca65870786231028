package model

import (
	"math"
	"testing"
)

func TestKaplanMeier(t *testing.T) {
	times := []float64{3, 1, 2, 2, 4}
	events := []bool{true, true, true, false, false}

	c := KaplanMeier(times, events)
	if c.N != 5 || c.Events != 3 {
		t.Fatalf("N=%d Events=%d, want 5 and 3", c.N, c.Events)
	}

	want := []struct {
		time     float64
		atRisk   int
		survival float64
	}{
		{1, 5, 0.8},
		{2, 4, 0.6},
		{3, 2, 0.3},
		{4, 1, 0.3},
	}
	if len(c.Steps) != len(want) {
		t.Fatalf("got %d steps, want %d", len(c.Steps), len(want))
	}
	for i, w := range want {
		s := c.Steps[i]
		if s.Time != w.time || s.AtRisk != w.atRisk || math.Abs(s.Survival-w.survival) > 1e-12 {
			t.Errorf("step %d = %+v, want time %v at risk %d survival %v", i, s, w.time, w.atRisk, w.survival)
		}
	}
}

func TestCurveAtAndMedian(t *testing.T) {
	c := KaplanMeier([]float64{1, 2, 2, 3, 4}, []bool{true, true, false, true, false})

	if got := c.At(0.5); got != 1 {
		t.Errorf("At(0.5) = %v, want 1", got)
	}
	if got := c.At(2.5); math.Abs(got-0.6) > 1e-12 {
		t.Errorf("At(2.5) = %v, want 0.6", got)
	}
	if m, ok := c.Median(); !ok || m != 3 {
		t.Errorf("Median() = %v, %v; want 3, true", m, ok)
	}

	prev := 1.0
	for _, s := range c.Steps {
		if s.Survival > prev {
			t.Errorf("survival increased at t=%v", s.Time)
		}
		prev = s.Survival
	}
}

func TestCurveMedian_NotReached(t *testing.T) {
	c := KaplanMeier([]float64{1, 2, 3}, []bool{true, false, false})
	if _, ok := c.Median(); ok {
		t.Error("median should not be reached when survival stays above 0.5")
	}
}
