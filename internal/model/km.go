package model

import (
	"math"
	"sort"
)

// Step is one distinct time of a Kaplan-Meier curve.
type Step struct {
	Time     float64
	AtRisk   int
	Events   int
	Censored int
	Survival float64
	StdErr   float64 // Greenwood
}

// Curve is a Kaplan-Meier product-limit estimate.
type Curve struct {
	Steps  []Step
	N      int
	Events int
}

// KaplanMeier estimates the survival function of right-censored times.
func KaplanMeier(times []float64, events []bool) Curve {
	n := len(times)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return times[order[a]] < times[order[b]] })

	c := Curve{N: n}
	surv := 1.0
	var greenwood float64
	atRisk := n

	for i := 0; i < n; {
		t := times[order[i]]
		d, cens := 0, 0
		j := i
		for ; j < n && times[order[j]] == t; j++ {
			if events[order[j]] {
				d++
			} else {
				cens++
			}
		}

		if d > 0 {
			surv *= 1 - float64(d)/float64(atRisk)
			if atRisk > d {
				greenwood += float64(d) / (float64(atRisk) * float64(atRisk-d))
			}
		}
		c.Steps = append(c.Steps, Step{
			Time:     t,
			AtRisk:   atRisk,
			Events:   d,
			Censored: cens,
			Survival: surv,
			StdErr:   surv * math.Sqrt(greenwood),
		})
		c.Events += d
		atRisk -= d + cens
		i = j
	}
	return c
}

// At returns the estimated survival probability at time t.
func (c Curve) At(t float64) float64 {
	s := 1.0
	for _, st := range c.Steps {
		if st.Time > t {
			break
		}
		s = st.Survival
	}
	return s
}

// Median returns the first time at which survival drops to 0.5 or below.
func (c Curve) Median() (float64, bool) {
	for _, st := range c.Steps {
		if st.Survival <= 0.5 {
			return st.Time, true
		}
	}
	return 0, false
}
