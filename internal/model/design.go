// Package model fits the survival and regression models used by the
// report: Cox proportional hazards, binomial logistic regression and
// Kaplan-Meier curves.
package model

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// aliasTol is the relative residual norm below which a column counts as a
// linear combination of the intercept and the columns before it.
const aliasTol = 1e-7

var (
	// ErrEmpty is returned when there are no observations or no covariates.
	ErrEmpty = errors.New("model: no observations or covariates")

	// ErrNoEvents is returned when a survival fit has no events.
	ErrNoEvents = errors.New("model: no events")

	// ErrSingular is returned when the information matrix cannot be
	// factorized, usually because of collinear or constant covariates.
	ErrSingular = errors.New("model: information matrix is singular")

	// ErrLength is returned when inputs have mismatched lengths.
	ErrLength = errors.New("model: input length mismatch")
)

// Column is one covariate of a design.
type Column struct {
	Name string

	levels []string
	cat    []string
	num    []float64
}

// Categorical returns a treatment-coded factor. The first level with at
// least one observation is the reference. A nil levels slice uses the
// sorted distinct values.
func Categorical(name string, values []string, levels []string) Column {
	if levels == nil {
		seen := make(map[string]bool)
		for _, v := range values {
			if !seen[v] {
				seen[v] = true
				levels = append(levels, v)
			}
		}
		sort.Strings(levels)
	}
	return Column{Name: name, levels: levels, cat: values}
}

// Numeric returns a numeric covariate.
func Numeric(name string, values []float64) Column {
	return Column{Name: name, num: values}
}

// Bool returns a 0/1 covariate named name + "TRUE".
func Bool(name string, values []bool) Column {
	num := make([]float64, len(values))
	for i, v := range values {
		if v {
			num[i] = 1
		}
	}
	return Column{Name: name + "TRUE", num: num}
}

func (c Column) len() int {
	if c.num != nil {
		return len(c.num)
	}
	return len(c.cat)
}

// Design is a model matrix without an intercept column.
type Design struct {
	X     *mat.Dense
	Terms []string

	// Reference holds the reference level of each categorical column.
	Reference map[string]string

	// Aliased lists the terms dropped because they are constant or a linear
	// combination of earlier terms. Fits report them as NA.
	Aliased []string

	all []string
}

// Rows returns the number of observations.
func (d *Design) Rows() int {
	r, _ := d.X.Dims()
	return r
}

// NewDesign builds a treatment-coded design matrix. Levels with no
// observations are dropped, as are columns that are constant or a linear
// combination of earlier columns; those are listed in Aliased.
func NewDesign(cols ...Column) (*Design, error) {
	if len(cols) == 0 {
		return nil, ErrEmpty
	}
	n := cols[0].len()
	if n == 0 {
		return nil, ErrEmpty
	}

	type block struct {
		terms []string
		fill  func(row []float64, i int)
	}

	d := &Design{Reference: make(map[string]string)}
	var blocks []block
	width := 0

	for _, c := range cols {
		if c.len() != n {
			return nil, fmt.Errorf("column %s has %d rows, want %d: %w", c.Name, c.len(), n, ErrLength)
		}

		if c.num != nil {
			c := c
			offset := width
			blocks = append(blocks, block{
				terms: []string{c.Name},
				fill:  func(row []float64, i int) { row[offset] = c.num[i] },
			})
			width++
			continue
		}

		index := make(map[string]int, len(c.levels))
		counts := make([]int, len(c.levels))
		for i, l := range c.levels {
			if _, dup := index[l]; !dup {
				index[l] = i
			}
		}
		for _, v := range c.cat {
			i, ok := index[v]
			if !ok {
				return nil, fmt.Errorf("column %s: value %q is not a declared level", c.Name, v)
			}
			counts[i]++
		}

		var used []string
		for i, l := range c.levels {
			if counts[i] > 0 && index[l] == i {
				used = append(used, l)
			}
		}
		if len(used) < 2 {
			// single observed level: no columns
			continue
		}
		d.Reference[c.Name] = used[0]

		col := make(map[string]int, len(used)-1)
		var terms []string
		for k, l := range used[1:] {
			col[l] = width + k
			terms = append(terms, c.Name+l)
		}
		width += len(used) - 1

		values := c.cat
		blocks = append(blocks, block{
			terms: terms,
			fill: func(row []float64, i int) {
				if j, ok := col[values[i]]; ok {
					row[j] = 1
				}
			},
		})
	}

	if width == 0 {
		return nil, ErrEmpty
	}

	for _, b := range blocks {
		d.all = append(d.all, b.terms...)
	}

	x := mat.NewDense(n, width, nil)
	row := make([]float64, width)
	for i := 0; i < n; i++ {
		for j := range row {
			row[j] = 0
		}
		for _, b := range blocks {
			b.fill(row, i)
		}
		x.SetRow(i, row)
	}

	keep, aliased := independentColumns(x)
	if len(keep) == 0 {
		return nil, fmt.Errorf("all of %v are constant: %w", d.all, ErrEmpty)
	}
	for _, j := range aliased {
		d.Aliased = append(d.Aliased, d.all[j])
	}
	if len(aliased) > 0 {
		reduced := mat.NewDense(n, len(keep), nil)
		col := make([]float64, n)
		for k, j := range keep {
			reduced.SetCol(k, mat.Col(col, j, x))
		}
		x = reduced
	}
	for _, j := range keep {
		d.Terms = append(d.Terms, d.all[j])
	}
	d.X = x
	return d, nil
}

// independentColumns splits the columns of x into those that add rank to
// an intercept plus the kept columns before them, and those that do not.
// It is a modified Gram-Schmidt pass in column order.
func independentColumns(x *mat.Dense) (keep, aliased []int) {
	n, p := x.Dims()
	one := make([]float64, n)
	for i := range one {
		one[i] = 1 / math.Sqrt(float64(n))
	}
	basis := [][]float64{one}

	for j := 0; j < p; j++ {
		v := mat.Col(nil, j, x)
		scale := floats.Norm(v, 2)
		for _, q := range basis {
			floats.AddScaled(v, -floats.Dot(v, q), q)
		}
		r := floats.Norm(v, 2)
		if r <= aliasTol*scale {
			aliased = append(aliased, j)
			continue
		}
		floats.Scale(1/r, v)
		basis = append(basis, v)
		keep = append(keep, j)
	}
	return keep, aliased
}

// withAliased inserts NA rows for the aliased terms into coefs, which holds
// the fitted terms in design order with an optional leading intercept.
func (d *Design) withAliased(coefs []Coefficient) []Coefficient {
	if len(d.Aliased) == 0 {
		return coefs
	}
	dropped := make(map[string]bool, len(d.Aliased))
	for _, t := range d.Aliased {
		dropped[t] = true
	}

	out := make([]Coefficient, 0, len(coefs)+len(d.Aliased))
	k := 0
	if len(coefs) > len(d.Terms) {
		out = append(out, coefs[0])
		k = 1
	}
	for _, t := range d.all {
		if dropped[t] {
			out = append(out, naCoefficient(t))
			continue
		}
		out = append(out, coefs[k])
		k++
	}
	return out
}

// withIntercept returns X with a leading column of ones.
func (d *Design) withIntercept() (*mat.Dense, []string) {
	n, p := d.X.Dims()
	x := mat.NewDense(n, p+1, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, 1)
		for j := 0; j < p; j++ {
			x.Set(i, j+1, d.X.At(i, j))
		}
	}
	return x, append([]string{"(Intercept)"}, d.Terms...)
}
