package model

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

const (
	coxMaxIter = 30
	coxEps     = 1e-9
	maxHalving = 20
)

// CoxResult is a fitted proportional-hazards model.
type CoxResult struct {
	Coefficients []Coefficient
	LogLik       float64
	NullLogLik   float64
	LR           LRTest
	N            int
	Events       int
	Iterations   int
	Converged    bool
}

// FitCox fits a Cox proportional-hazards model by Newton-Raphson on the
// partial likelihood. Tied event times use the Breslow approximation.
func FitCox(times []float64, events []bool, d *Design) (*CoxResult, error) {
	if d == nil || d.Rows() == 0 {
		return nil, ErrEmpty
	}
	n, p := d.X.Dims()
	if len(times) != n || len(events) != n {
		return nil, fmt.Errorf("cox: %d times, %d events, %d rows: %w", len(times), len(events), n, ErrLength)
	}

	nEvents := 0
	for _, e := range events {
		if e {
			nEvents++
		}
	}
	if nEvents == 0 {
		return nil, ErrNoEvents
	}

	f := newCoxFit(times, events, d.X)

	beta := make([]float64, p)
	ll, grad, info := f.evaluate(beta)
	nullLL := ll

	var cov *mat.SymDense
	res := &CoxResult{N: n, Events: nEvents, NullLogLik: nullLL}

	for iter := 1; iter <= coxMaxIter; iter++ {
		res.Iterations = iter
		step, _, err := solve(info, grad)
		if err != nil {
			return nil, fmt.Errorf("cox: iteration %d: %w", iter, err)
		}

		next := make([]float64, p)
		var nextLL float64
		var nextGrad []float64
		var nextInfo *mat.SymDense
		for h := 0; ; h++ {
			for j := range next {
				next[j] = beta[j] + step[j]
			}
			nextLL, nextGrad, nextInfo = f.evaluate(next)
			if !math.IsNaN(nextLL) && nextLL >= ll-coxEps || h == maxHalving {
				break
			}
			for j := range step {
				step[j] /= 2
			}
		}

		done := converged(ll, nextLL, coxEps)
		beta, ll, grad, info = next, nextLL, nextGrad, nextInfo
		if done {
			res.Converged = true
			break
		}
	}

	_, cov, err := solve(info, grad)
	if err != nil {
		return nil, fmt.Errorf("cox: final information: %w", err)
	}

	res.LogLik = ll
	res.Coefficients = d.withAliased(coefficients(d.Terms, beta, cov))
	res.LR = newLRTest(2*(ll-nullLL), p)
	return res, nil
}

// coxFit holds the data sorted by descending time with centered covariates.
type coxFit struct {
	times  []float64
	events []bool
	x      [][]float64
	p      int
}

func newCoxFit(times []float64, events []bool, x *mat.Dense) *coxFit {
	n, p := x.Dims()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return times[order[a]] > times[order[b]] })

	means := make([]float64, p)
	for j := 0; j < p; j++ {
		for i := 0; i < n; i++ {
			means[j] += x.At(i, j)
		}
		means[j] /= float64(n)
	}

	f := &coxFit{
		times:  make([]float64, n),
		events: make([]bool, n),
		x:      make([][]float64, n),
		p:      p,
	}
	for k, i := range order {
		f.times[k] = times[i]
		f.events[k] = events[i]
		row := make([]float64, p)
		for j := 0; j < p; j++ {
			row[j] = x.At(i, j) - means[j]
		}
		f.x[k] = row
	}
	return f
}

// evaluate returns the Breslow partial log-likelihood, its gradient and the
// observed information at beta.
func (f *coxFit) evaluate(beta []float64) (float64, []float64, *mat.SymDense) {
	p := f.p
	grad := make([]float64, p)
	info := make([]float64, p*p)

	s1 := make([]float64, p)
	s2 := make([]float64, p*p)
	var s0, ll float64

	n := len(f.times)
	for i := 0; i < n; {
		t := f.times[i]
		deaths := 0
		var etaDeaths float64
		xDeaths := make([]float64, p)

		j := i
		for ; j < n && f.times[j] == t; j++ {
			x := f.x[j]
			eta := dot(x, beta)
			w := math.Exp(eta)
			s0 += w
			for a := 0; a < p; a++ {
				s1[a] += w * x[a]
				for b := a; b < p; b++ {
					s2[a*p+b] += w * x[a] * x[b]
				}
			}
			if f.events[j] {
				deaths++
				etaDeaths += eta
				for a := 0; a < p; a++ {
					xDeaths[a] += x[a]
				}
			}
		}

		if deaths > 0 {
			d := float64(deaths)
			ll += etaDeaths - d*math.Log(s0)
			for a := 0; a < p; a++ {
				mean := s1[a] / s0
				grad[a] += xDeaths[a] - d*mean
				for b := a; b < p; b++ {
					v := d * (s2[a*p+b]/s0 - mean*s1[b]/s0)
					info[a*p+b] += v
					if a != b {
						info[b*p+a] += v
					}
				}
			}
		}
		i = j
	}

	return ll, grad, mat.NewSymDense(p, info)
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
