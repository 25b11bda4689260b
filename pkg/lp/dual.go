package lp

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// primalTolerance is the bound violation accepted on scaled rows.
	primalTolerance = 1e-7
	// residualTolerance is the drift between a scaled row and its logical
	// column that forces a basis reinversion.
	residualTolerance = 1e-6
	// refactorEvery bounds the pivots between basis reinversions.
	refactorEvery = 100
	// maxConditionNumber rejects a reinverted basis as singular.
	maxConditionNumber = 1e13
)

type varState uint8

const (
	atLower varState = iota
	atUpper
	basic
)

var errSingularBasis = errors.New("singular basis")

// dualSimplex keeps a dense tableau in a bounded-variable form. Every kept
// row i becomes a·x - r_i = 0 with a logical column r_i carrying the row
// bounds, so the logicals give an identity starting basis. Rows are scaled
// by their largest coefficient.
//
// The state survives between calls to solve. Changing column bounds keeps
// the basis dual feasible, so branch-and-bound children only repair the
// rows their new bound broke.
type dualSimplex struct {
	m, n, total int
	pivotTol    float64

	a     *mat.Dense // scaled rows with the -1 logical entries
	t     *mat.Dense // B^-1 a
	cost  []float64
	lower []float64
	upper []float64
	x     []float64
	d     []float64 // reduced costs
	state []varState
	basis []int

	labels        []string
	pivots        int
	sinceRefactor int
	nonzero       []int
}

// newDualSimplex builds the working state for p. Rows without coefficients
// are checked against zero activity and dropped; the label of a violated
// one is returned.
func newDualSimplex(p *Program, cost []float64, pivotTol float64, root bbNode) (*dualSimplex, string) {
	n := len(p.Variables)
	type row struct {
		label  string
		coefs  map[int]float64
		scale  float64
		lo, hi float64
	}
	var rows []row
	for _, c := range p.Constraints {
		coefs := make(map[int]float64, len(c.Terms))
		for _, t := range c.Terms {
			coefs[t.Col] += t.Coef
		}
		largest := 0.0
		for col, v := range coefs {
			if v == 0 {
				delete(coefs, col)
				continue
			}
			largest = math.Max(largest, math.Abs(v))
		}
		lo, hi := rowRange(c.Bound)
		if largest == 0 {
			if lo > primalTolerance*(1+math.Abs(lo)) || hi < -primalTolerance*(1+math.Abs(hi)) {
				return nil, c.Label
			}
			continue
		}
		scale := 1 / largest
		rows = append(rows, row{label: c.Label, coefs: coefs, scale: scale, lo: lo * scale, hi: hi * scale})
	}

	m := len(rows)
	total := n + m
	ds := &dualSimplex{
		m:        m,
		n:        n,
		total:    total,
		pivotTol: math.Max(pivotTol, 1e-11),
		cost:     make([]float64, total),
		lower:    make([]float64, total),
		upper:    make([]float64, total),
		x:        make([]float64, total),
		d:        make([]float64, total),
		state:    make([]varState, total),
		basis:    make([]int, m),
		labels:   make([]string, m),
		nonzero:  make([]int, 0, total),
	}
	copy(ds.cost, cost)
	copy(ds.lower, root.lower)
	copy(ds.upper, root.upper)
	if m > 0 {
		ds.a = mat.NewDense(m, total, nil)
		ds.t = mat.NewDense(m, total, nil)
	}
	for i, r := range rows {
		for col, v := range r.coefs {
			ds.a.Set(i, col, v*r.scale)
		}
		ds.a.Set(i, n+i, -1)
		ds.lower[n+i] = r.lo
		ds.upper[n+i] = r.hi
		ds.labels[i] = r.label
	}
	ds.reset()
	return ds, ""
}

func rowRange(b Bound) (float64, float64) {
	switch b.Type {
	case BoundFixed:
		return b.Lower, b.Lower
	case BoundLower:
		return b.Lower, math.Inf(1)
	case BoundUpper:
		return math.Inf(-1), b.Upper
	default:
		return b.Lower, b.Upper
	}
}

// reset returns to the logical basis with every structural column on the
// bound its cost prefers.
func (ds *dualSimplex) reset() {
	for i := 0; i < ds.m; i++ {
		row := ds.t.RawRowView(i)
		copy(row, ds.a.RawRowView(i))
		floats.Scale(-1, row)
		ds.basis[i] = ds.n + i
		ds.state[ds.n+i] = basic
	}
	for j := 0; j < ds.n; j++ {
		if ds.cost[j] < 0 {
			ds.state[j] = atUpper
			ds.x[j] = ds.upper[j]
		} else {
			ds.state[j] = atLower
			ds.x[j] = ds.lower[j]
		}
	}
	copy(ds.d, ds.cost)
	ds.sinceRefactor = 0
	ds.updateBasics()
}

// setBounds installs new structural bounds and moves every nonbasic column
// to the bound its reduced cost prefers. It fails when that bound is
// infinite.
func (ds *dualSimplex) setBounds(lower, upper []float64) bool {
	copy(ds.lower[:ds.n], lower)
	copy(ds.upper[:ds.n], upper)
	for j := 0; j < ds.total; j++ {
		if ds.state[j] == basic {
			continue
		}
		switch {
		case ds.d[j] > ds.pivotTol:
			ds.state[j] = atLower
		case ds.d[j] < -ds.pivotTol:
			ds.state[j] = atUpper
		case ds.state[j] == atUpper && math.IsInf(ds.upper[j], 1):
			ds.state[j] = atLower
		case ds.state[j] == atLower && math.IsInf(ds.lower[j], -1):
			ds.state[j] = atUpper
		}
		bound := ds.lower[j]
		if ds.state[j] == atUpper {
			bound = ds.upper[j]
		}
		if math.IsInf(bound, 0) {
			return false
		}
		ds.x[j] = bound
	}
	ds.updateBasics()
	return true
}

// solve optimises under the given structural bounds.
func (ds *dualSimplex) solve(lower, upper []float64) (Status, string) {
	if !ds.setBounds(lower, upper) {
		ds.reset()
	}
	status, reason := ds.iterate()

	// A stale factorization can fake both infeasibility and optimality.
	stale := status == StatusError ||
		(status == StatusInfeasible && ds.sinceRefactor > 0) ||
		(status == StatusOptimal && !ds.consistent())
	if stale {
		if err := ds.refactor(); err != nil {
			ds.reset()
		}
		if !ds.setBounds(lower, upper) {
			ds.reset()
		}
		status, reason = ds.iterate()
		if status == StatusOptimal && !ds.consistent() {
			status, reason = StatusError, "basis lost accuracy"
		}
	}
	if status == StatusError {
		ds.reset()
	}
	return status, reason
}

// iterate runs dual simplex pivots until the basis is primal feasible.
func (ds *dualSimplex) iterate() (Status, string) {
	bland := false
	degenerate := 0
	limit := 50*ds.total + 1000
	for iter := 0; iter < limit; iter++ {
		r, below := ds.leavingRow(bland)
		if r < 0 {
			return StatusOptimal, ""
		}
		q := ds.enteringColumn(r, below, bland)
		if q < 0 {
			return StatusInfeasible, fmt.Sprintf("row %s cannot be satisfied", ds.rowLabel(r))
		}
		if math.Abs(ds.d[q]/ds.t.At(r, q)) <= ds.pivotTol {
			degenerate++
			// Smallest-index rules stop cycling on long degenerate runs.
			if degenerate > ds.m+100 {
				bland = true
			}
		} else {
			degenerate = 0
		}
		ds.pivot(r, q, below)
		if ds.sinceRefactor >= refactorEvery {
			if err := ds.refactor(); err != nil {
				return StatusError, err.Error()
			}
		}
	}
	return StatusError, fmt.Sprintf("iteration limit %d reached", limit)
}

func (ds *dualSimplex) rowLabel(r int) string {
	v := ds.basis[r]
	if v >= ds.n {
		return ds.labels[v-ds.n]
	}
	return fmt.Sprintf("basic column %d", v)
}

func boundSlack(b float64) float64 {
	return primalTolerance * (1 + math.Abs(b))
}

// leavingRow picks the most violated basic variable, or the one with the
// smallest index in Bland mode. below reports a lower bound violation.
func (ds *dualSimplex) leavingRow(bland bool) (int, bool) {
	best, below := -1, false
	worst := 0.0
	for i, v := range ds.basis {
		var viol float64
		var under bool
		switch {
		case ds.x[v] < ds.lower[v]-boundSlack(ds.lower[v]):
			viol, under = ds.lower[v]-ds.x[v], true
		case ds.x[v] > ds.upper[v]+boundSlack(ds.upper[v]):
			viol = ds.x[v] - ds.upper[v]
		default:
			continue
		}
		if bland {
			if best < 0 || v < ds.basis[best] {
				best, below = i, under
			}
			continue
		}
		if viol > worst {
			best, below, worst = i, under, viol
		}
	}
	return best, below
}

// enteringColumn runs the dual ratio test on row r. Ties go to the larger
// pivot, or to the smaller index in Bland mode.
func (ds *dualSimplex) enteringColumn(r int, below, bland bool) int {
	row := ds.t.RawRowView(r)
	q := -1
	bestRatio, bestAlpha := math.Inf(1), 0.0
	for j, st := range ds.state {
		if st == basic || ds.upper[j]-ds.lower[j] <= ds.pivotTol {
			continue
		}
		alpha := row[j]
		if math.Abs(alpha) <= ds.pivotTol {
			continue
		}
		var eligible bool
		if below {
			eligible = (st == atLower && alpha < 0) || (st == atUpper && alpha > 0)
		} else {
			eligible = (st == atLower && alpha > 0) || (st == atUpper && alpha < 0)
		}
		if !eligible {
			continue
		}
		ratio := math.Abs(ds.d[j]) / math.Abs(alpha)
		switch {
		case q < 0 || ratio < bestRatio-1e-12:
		case ratio <= bestRatio+1e-12:
			if bland || math.Abs(alpha) <= bestAlpha {
				continue
			}
		default:
			continue
		}
		q, bestAlpha = j, math.Abs(alpha)
		bestRatio = math.Min(bestRatio, ratio)
	}
	return q
}

// pivot swaps column q into the basis at row r. The leaving variable rests
// on the bound it violated.
func (ds *dualSimplex) pivot(r, q int, below bool) {
	leaving := ds.basis[r]
	pivotRow := ds.t.RawRowView(r)
	floats.Scale(1/pivotRow[q], pivotRow)
	pivotRow[q] = 1
	for i := 0; i < ds.m; i++ {
		if i == r {
			continue
		}
		row := ds.t.RawRowView(i)
		f := row[q]
		if f == 0 {
			continue
		}
		floats.AddScaled(row, -f, pivotRow)
		row[q] = 0
	}
	ds.basis[r] = q
	ds.state[q] = basic
	if below {
		ds.state[leaving] = atLower
		ds.x[leaving] = ds.lower[leaving]
	} else {
		ds.state[leaving] = atUpper
		ds.x[leaving] = ds.upper[leaving]
	}
	ds.pivots++
	ds.sinceRefactor++
	ds.updateBasics()
	ds.updateDuals()
}

// updateBasics recomputes basic values from the nonbasic ones.
func (ds *dualSimplex) updateBasics() {
	nz := ds.nonzero[:0]
	for j, st := range ds.state {
		if st != basic && ds.x[j] != 0 {
			nz = append(nz, j)
		}
	}
	ds.nonzero = nz
	for i, v := range ds.basis {
		row := ds.t.RawRowView(i)
		sum := 0.0
		for _, j := range nz {
			sum += row[j] * ds.x[j]
		}
		ds.x[v] = -sum
	}
}

// updateDuals recomputes reduced costs from the basic costs.
func (ds *dualSimplex) updateDuals() {
	copy(ds.d, ds.cost)
	for i, v := range ds.basis {
		if cb := ds.cost[v]; cb != 0 {
			floats.AddScaled(ds.d, -cb, ds.t.RawRowView(i))
		}
	}
	for _, v := range ds.basis {
		ds.d[v] = 0
	}
}

// refactor rebuilds the tableau from the scaled rows with an LU
// factorization of the current basis.
func (ds *dualSimplex) refactor() error {
	ds.sinceRefactor = 0
	if ds.m == 0 {
		return nil
	}
	b := mat.NewDense(ds.m, ds.m, nil)
	for k, col := range ds.basis {
		for i := 0; i < ds.m; i++ {
			b.Set(i, k, ds.a.At(i, col))
		}
	}
	var lu mat.LU
	lu.Factorize(b)
	if cond := lu.Cond(); math.IsInf(cond, 1) || cond > maxConditionNumber {
		return fmt.Errorf("%w: condition number %g", errSingularBasis, cond)
	}
	if err := lu.SolveTo(ds.t, false, ds.a); err != nil {
		return fmt.Errorf("%w: %v", errSingularBasis, err)
	}
	ds.updateBasics()
	ds.updateDuals()
	return nil
}

// consistent reports whether the basic values still satisfy the scaled
// rows.
func (ds *dualSimplex) consistent() bool {
	for i := 0; i < ds.m; i++ {
		if math.Abs(floats.Dot(ds.a.RawRowView(i), ds.x)) > residualTolerance {
			return false
		}
	}
	return true
}

// structural returns the column values clamped into their bounds.
func (ds *dualSimplex) structural(lower, upper []float64) []float64 {
	out := make([]float64, ds.n)
	for j := range out {
		out[j] = math.Min(math.Max(ds.x[j], lower[j]), upper[j])
	}
	return out
}
