package model

import (
	"errors"
	"math"
	"testing"
)

// groupData has x=1 failing earlier than x=0, with overlap so the estimate
// is finite.
func groupData() ([]float64, []bool, []bool) {
	times := []float64{1, 2, 3, 5, 7, 4, 6, 8, 9, 10}
	events := []bool{true, true, true, true, true, true, true, true, true, false}
	group := []bool{true, true, true, true, true, false, false, false, false, false}
	return times, events, group
}

func fitGroups(t *testing.T, times []float64, events, group []bool) *CoxResult {
	t.Helper()
	d, err := NewDesign(Bool("g", group))
	if err != nil {
		t.Fatalf("NewDesign() failed: %v", err)
	}
	res, err := FitCox(times, events, d)
	if err != nil {
		t.Fatalf("FitCox() failed: %v", err)
	}
	return res
}

func TestFitCox_Direction(t *testing.T) {
	times, events, group := groupData()
	res := fitGroups(t, times, events, group)

	if !res.Converged {
		t.Error("fit did not converge")
	}
	if len(res.Coefficients) != 1 || res.Coefficients[0].Term != "gTRUE" {
		t.Fatalf("Coefficients = %+v", res.Coefficients)
	}
	c := res.Coefficients[0]
	if c.Estimate <= 0 || c.Exp() <= 1 {
		t.Errorf("early-failing group should have hazard ratio > 1, got %v", c.Exp())
	}
	if c.StdErr <= 0 || c.P <= 0 || c.P >= 1 {
		t.Errorf("implausible Wald statistics: %+v", c)
	}
	if res.LogLik < res.NullLogLik {
		t.Errorf("LogLik %v below null %v", res.LogLik, res.NullLogLik)
	}
	if res.LR.DF != 1 || res.LR.Stat < 0 {
		t.Errorf("LR = %+v", res.LR)
	}
	if res.N != 10 || res.Events != 9 {
		t.Errorf("N=%d Events=%d", res.N, res.Events)
	}
}

func TestFitCox_RankInvariant(t *testing.T) {
	times, events, group := groupData()
	a := fitGroups(t, times, events, group)

	shifted := make([]float64, len(times))
	for i, v := range times {
		shifted[i] = 3*v + 100
	}
	b := fitGroups(t, shifted, events, group)

	if math.Abs(a.Coefficients[0].Estimate-b.Coefficients[0].Estimate) > 1e-8 {
		t.Errorf("monotone time transform changed the estimate: %v vs %v",
			a.Coefficients[0].Estimate, b.Coefficients[0].Estimate)
	}
}

func TestFitCox_FlippedCovariate(t *testing.T) {
	times, events, group := groupData()
	a := fitGroups(t, times, events, group)

	flipped := make([]bool, len(group))
	for i, g := range group {
		flipped[i] = !g
	}
	b := fitGroups(t, times, events, flipped)

	if math.Abs(a.Coefficients[0].Estimate+b.Coefficients[0].Estimate) > 1e-8 {
		t.Errorf("flipping the covariate should negate the estimate: %v vs %v",
			a.Coefficients[0].Estimate, b.Coefficients[0].Estimate)
	}
}

func TestFitCox_Errors(t *testing.T) {
	d, err := NewDesign(Bool("g", []bool{true, false}))
	if err != nil {
		t.Fatalf("NewDesign() failed: %v", err)
	}

	if _, err := FitCox([]float64{1, 2}, []bool{false, false}, d); !errors.Is(err, ErrNoEvents) {
		t.Errorf("no events: err = %v, want ErrNoEvents", err)
	}
	if _, err := FitCox([]float64{1}, []bool{true}, d); !errors.Is(err, ErrLength) {
		t.Errorf("short input: err = %v, want ErrLength", err)
	}
	if _, err := FitCox(nil, nil, nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("nil design: err = %v, want ErrEmpty", err)
	}
}

func TestFitCox_AliasedColumnIsNA(t *testing.T) {
	times := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	events := []bool{true, true, false, true, true, true, false, true}
	x := []float64{3, 1, 4, 1, 5, 9, 2, 6}
	shifted := make([]float64, len(x))
	for i, v := range x {
		shifted[i] = v + 10
	}

	base, err := NewDesign(Numeric("a", x))
	if err != nil {
		t.Fatalf("NewDesign() failed: %v", err)
	}
	want, err := FitCox(times, events, base)
	if err != nil {
		t.Fatalf("FitCox() failed: %v", err)
	}

	d, err := NewDesign(Numeric("a", x), Numeric("shifted", shifted))
	if err != nil {
		t.Fatalf("NewDesign() failed: %v", err)
	}
	got, err := FitCox(times, events, d)
	if err != nil {
		t.Fatalf("FitCox() with aliased column failed: %v", err)
	}

	if len(got.Coefficients) != 2 {
		t.Fatalf("got %d coefficients, want 2", len(got.Coefficients))
	}
	if got.Coefficients[0].Aliased || math.Abs(got.Coefficients[0].Estimate-want.Coefficients[0].Estimate) > 1e-8 {
		t.Errorf("a = %+v, want estimate %v", got.Coefficients[0], want.Coefficients[0].Estimate)
	}
	if c := got.Coefficients[1]; !c.Aliased || c.Term != "shifted" || !math.IsNaN(c.P) {
		t.Errorf("shifted = %+v, want NA", c)
	}
	if got.LR.DF != 1 {
		t.Errorf("LR df = %d, want 1", got.LR.DF)
	}
}
