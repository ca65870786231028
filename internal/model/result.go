package model

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Coefficient is one row of a fitted coefficient table.
type Coefficient struct {
	Term     string
	Estimate float64
	StdErr   float64
	Z        float64
	P        float64 // two-sided Wald p-value

	// Aliased is set for terms dropped from the fit; the numeric fields
	// are NaN.
	Aliased bool
}

func naCoefficient(term string) Coefficient {
	nan := math.NaN()
	return Coefficient{Term: term, Estimate: nan, StdErr: nan, Z: nan, P: nan, Aliased: true}
}

// Exp returns exp(Estimate): the hazard ratio for Cox models and the odds
// ratio for logistic models.
func (c Coefficient) Exp() float64 {
	return math.Exp(c.Estimate)
}

// LRTest is a likelihood-ratio test against the null model.
type LRTest struct {
	Stat float64
	DF   int
	P    float64
}

func newLRTest(stat float64, df int) LRTest {
	if stat < 0 {
		stat = 0
	}
	t := LRTest{Stat: stat, DF: df, P: 1}
	if df > 0 {
		t.P = distuv.ChiSquared{K: float64(df)}.Survival(stat)
	}
	return t
}

// coefficients builds a Wald table from estimates and their covariance.
func coefficients(terms []string, beta []float64, cov *mat.SymDense) []Coefficient {
	out := make([]Coefficient, len(terms))
	for j, term := range terms {
		se := math.Sqrt(cov.At(j, j))
		z := beta[j] / se
		out[j] = Coefficient{
			Term:     term,
			Estimate: beta[j],
			StdErr:   se,
			Z:        z,
			P:        2 * distuv.UnitNormal.Survival(math.Abs(z)),
		}
	}
	return out
}

// solve factorizes the information matrix and returns the Newton step and
// the inverse (the covariance of the estimates).
func solve(info *mat.SymDense, grad []float64) (step []float64, cov *mat.SymDense, err error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(info); !ok {
		return nil, nil, ErrSingular
	}

	var s mat.VecDense
	if err := chol.SolveVecTo(&s, mat.NewVecDense(len(grad), grad)); err != nil {
		if !isUsableCondition(err) {
			return nil, nil, ErrSingular
		}
	}

	cov = mat.NewSymDense(len(grad), nil)
	if err := chol.InverseTo(cov); err != nil {
		if !isUsableCondition(err) {
			return nil, nil, ErrSingular
		}
	}

	step = make([]float64, len(grad))
	for j := range step {
		step[j] = s.AtVec(j)
	}
	return step, cov, nil
}

// isUsableCondition reports whether err is only an ill-conditioning
// warning with a finite condition number.
func isUsableCondition(err error) bool {
	c, ok := err.(mat.Condition)
	return ok && !math.IsInf(float64(c), 1) && !math.IsNaN(float64(c))
}

// converged applies the relative log-likelihood criterion used by the
// standard fitters.
func converged(prev, cur, eps float64) bool {
	return math.Abs(cur-prev) <= eps*(math.Abs(cur)+0.1)
}
