// Copyright 2026 go-hls Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sched

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// ErrSolverUnavailable is returned when the named LP solver cannot be
// instantiated.
var ErrSolverUnavailable = errors.New("LP solver unavailable")

// DefaultSolver is the LP solver used when none is named.
const DefaultSolver = "simplex"

// lpVar indexes a variable of a linearProgram.
type lpVar int

type lpTerm struct {
	v     lpVar
	coeff float64
}

// linearProgram accumulates a general-form minimization problem: variables
// with individual bounds, rows of the form sum(coeff*var) <= upper, and a
// linear objective.
type linearProgram struct {
	varLower  []float64
	varUpper  []float64
	objective []float64
	rows      [][]lpTerm
	rowUpper  []float64
}

func newLinearProgram() *linearProgram { return &linearProgram{} }

// addVar adds a variable with bounds [lower, upper]; either bound may be
// infinite.
func (p *linearProgram) addVar(lower, upper float64) lpVar {
	p.varLower = append(p.varLower, lower)
	p.varUpper = append(p.varUpper, upper)
	p.objective = append(p.objective, 0)
	return lpVar(len(p.varLower) - 1)
}

// addRowLE adds the constraint sum(terms) <= upper.
func (p *linearProgram) addRowLE(upper float64, terms ...lpTerm) {
	p.rows = append(p.rows, terms)
	p.rowUpper = append(p.rowUpper, upper)
}

// setObjectiveCoefficient sets the objective coefficient of v.
func (p *linearProgram) setObjectiveCoefficient(v lpVar, coeff float64) {
	p.objective[v] = coeff
}

func (p *linearProgram) numVars() int { return len(p.varLower) }

// generalForm materializes the program as minimize c'x subject to Gx <= h,
// folding the finite variable bounds into rows of G.
func (p *linearProgram) generalForm() (c []float64, g *mat.Dense, h []float64) {
	n := p.numVars()

	rowCount := len(p.rows)
	for i := 0; i < n; i++ {
		if !math.IsInf(p.varLower[i], -1) {
			rowCount++
		}
		if !math.IsInf(p.varUpper[i], 1) {
			rowCount++
		}
	}

	g = mat.NewDense(rowCount, n, nil)
	h = make([]float64, rowCount)
	row := 0
	for i, terms := range p.rows {
		for _, t := range terms {
			g.Set(row, int(t.v), g.At(row, int(t.v))+t.coeff)
		}
		h[row] = p.rowUpper[i]
		row++
	}
	for i := 0; i < n; i++ {
		if !math.IsInf(p.varLower[i], -1) {
			// lower <= x  becomes  -x <= -lower.
			g.Set(row, i, -1)
			h[row] = -p.varLower[i]
			row++
		}
		if !math.IsInf(p.varUpper[i], 1) {
			g.Set(row, i, 1)
			h[row] = p.varUpper[i]
			row++
		}
	}

	c = make([]float64, n)
	copy(c, p.objective)
	return c, g, h
}

// lpSolver solves a linearProgram, returning one value per variable.
type lpSolver interface {
	solve(p *linearProgram) ([]float64, error)
}

// newSolver instantiates the named solver.
func newSolver(name string) (lpSolver, error) {
	switch name {
	case DefaultSolver:
		return simplexSolver{}, nil
	}
	return nil, fmt.Errorf("%w: no solver named %q", ErrSolverUnavailable, name)
}

// simplexSolver solves the program with gonum's simplex method after
// converting to standard form. Free variables are split into positive and
// negative parts by the conversion, so the k-th solved variable is
// reconstructed as x[k] - x[m+k], m being the number of solved variables.
// A variable that appears in no row and has no objective cost is left out
// of the solve (the simplex rejects all-zero columns) and reported as 0.
type simplexSolver struct{}

func (simplexSolver) solve(p *linearProgram) ([]float64, error) {
	c, g, h := p.generalForm()
	n := p.numVars()
	var cols []int
	for j := 0; j < n; j++ {
		if mat.Norm(g.ColView(j), 1) != 0 || c[j] != 0 {
			cols = append(cols, j)
		}
	}
	rows, _ := g.Dims()
	gUsed, cUsed := mat.NewDense(rows, len(cols), nil), make([]float64, len(cols))
	for k, j := range cols {
		gUsed.SetCol(k, mat.Col(nil, j, g))
		cUsed[k] = c[j]
	}
	cStd, aStd, bStd := lp.Convert(cUsed, gUsed, h, nil, nil)
	_, xStd, err := lp.Simplex(cStd, aStd, bStd, 1e-10, nil)
	if err != nil {
		return nil, err
	}
	x := make([]float64, n)
	for k, j := range cols {
		x[j] = xStd[k] - xStd[len(cols)+k]
	}
	return x, nil
}
