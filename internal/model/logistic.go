package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	glmMaxIter = 25
	glmEps     = 1e-8
	muEpsilon  = 1e-10
)

// GLMResult is a fitted binomial logistic regression.
type GLMResult struct {
	Coefficients []Coefficient
	Deviance     float64
	NullDeviance float64
	AIC          float64
	LR           LRTest
	N            int
	Successes    int
	Iterations   int
	Converged    bool
}

// FitLogistic fits y ~ intercept + design by iteratively reweighted least
// squares.
func FitLogistic(y []bool, d *Design) (*GLMResult, error) {
	if d == nil || d.Rows() == 0 {
		return nil, ErrEmpty
	}
	x, terms := d.withIntercept()
	n, p := x.Dims()
	if len(y) != n {
		return nil, fmt.Errorf("logistic: %d responses, %d rows: %w", len(y), n, ErrLength)
	}

	yf := make([]float64, n)
	successes := 0
	for i, v := range y {
		if v {
			yf[i] = 1
			successes++
		}
	}

	res := &GLMResult{N: n, Successes: successes}
	res.NullDeviance = nullDeviance(yf)

	beta := make([]float64, p)
	dev := math.Inf(1)
	var cov *mat.SymDense

	for iter := 1; iter <= glmMaxIter; iter++ {
		res.Iterations = iter
		grad, info, _ := irlsTerms(x, yf, beta)
		step, c, err := solve(info, grad)
		if err != nil {
			return nil, fmt.Errorf("logistic: iteration %d: %w", iter, err)
		}
		cov = c

		for j := range beta {
			beta[j] += step[j]
		}
		_, _, nextDev := irlsTerms(x, yf, beta)
		done := converged(dev, nextDev, glmEps)
		dev = nextDev
		if done {
			res.Converged = true
			break
		}
	}

	// Covariance at the final estimates.
	grad, info, _ := irlsTerms(x, yf, beta)
	if _, c, err := solve(info, grad); err == nil {
		cov = c
	} else if cov == nil {
		return nil, fmt.Errorf("logistic: final information: %w", err)
	}

	res.Deviance = dev
	res.AIC = dev + 2*float64(p)
	res.Coefficients = d.withAliased(coefficients(terms, beta, cov))
	res.LR = newLRTest(res.NullDeviance-dev, p-1)
	return res, nil
}

// irlsTerms returns the score, the Fisher information and the deviance at
// beta.
func irlsTerms(x *mat.Dense, y, beta []float64) ([]float64, *mat.SymDense, float64) {
	n, p := x.Dims()
	grad := make([]float64, p)
	info := make([]float64, p*p)
	var dev float64

	row := make([]float64, p)
	for i := 0; i < n; i++ {
		mat.Row(row, i, x)
		mu := logistic(dot(row, beta))
		w := mu * (1 - mu)
		r := y[i] - mu
		for a := 0; a < p; a++ {
			grad[a] += row[a] * r
			for b := a; b < p; b++ {
				v := w * row[a] * row[b]
				info[a*p+b] += v
				if a != b {
					info[b*p+a] += v
				}
			}
		}
		dev += binomialDeviance(y[i], mu)
	}
	return grad, mat.NewSymDense(p, info), dev
}

func logistic(eta float64) float64 {
	mu := 1 / (1 + math.Exp(-eta))
	return math.Min(math.Max(mu, muEpsilon), 1-muEpsilon)
}

func binomialDeviance(y, mu float64) float64 {
	if y == 1 {
		return -2 * math.Log(mu)
	}
	return -2 * math.Log(1-mu)
}

// ResidualDF returns the residual degrees of freedom: observations minus
// estimated coefficients.
func (g *GLMResult) ResidualDF() int {
	df := g.N
	for _, c := range g.Coefficients {
		if !c.Aliased {
			df--
		}
	}
	return df
}

func nullDeviance(y []float64) float64 {
	var mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))
	mu := math.Min(math.Max(mean, muEpsilon), 1-muEpsilon)

	var dev float64
	for _, v := range y {
		dev += binomialDeviance(v, mu)
	}
	return dev
}
