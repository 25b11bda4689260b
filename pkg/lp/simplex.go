package lp

import (
	"errors"
	"fmt"
	"math"

	"github.com/iwvelando/portion-planner/pkg/constants"
	"go.uber.org/zap"
)

const (
	// unboundedBox stands in for a missing upper bound on columns whose cost
	// pulls them upward. A relaxed value resting on the box means the
	// program is unbounded.
	unboundedBox = 1e7

	// integralSlack absorbs noise when rounding an integral objective bound.
	integralSlack = 1e-6
)

// Simplex solves programs with a bounded dual simplex method. Integer
// columns are handled with depth-first branch and bound over the LP
// relaxation; every node starts from the basis the previous node ended with.
type Simplex struct {
	logger       *zap.Logger
	tolerance    float64
	intTolerance float64
	maxNodes     int

	// node solves one search node; tests wrap it to inject failures.
	node func(ds *dualSimplex, cost []float64, boxed []bool, n bbNode) relaxation
}

// Option configures a Simplex backend.
type Option func(*Simplex)

// WithTolerance sets the simplex pivot tolerance.
func WithTolerance(tol float64) Option {
	return func(s *Simplex) {
		if tol > 0 {
			s.tolerance = tol
		}
	}
}

// WithIntegralityTolerance sets how close to an integer a relaxed value must
// be to count as integral.
func WithIntegralityTolerance(tol float64) Option {
	return func(s *Simplex) {
		if tol > 0 {
			s.intTolerance = tol
		}
	}
}

// WithMaxNodes caps the number of branch-and-bound nodes.
func WithMaxNodes(n int) Option {
	return func(s *Simplex) {
		if n > 0 {
			s.maxNodes = n
		}
	}
}

// NewSimplex constructs the backend.
func NewSimplex(logger *zap.Logger, opts ...Option) *Simplex {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Simplex{
		logger:       logger,
		tolerance:    constants.DefaultSolverTolerance,
		intTolerance: constants.DefaultIntegralityTolerance,
		maxNodes:     constants.DefaultMaxNodes,
	}
	s.node = s.solveNode
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// relaxation is the LP outcome at one search node, always in minimisation
// form.
type relaxation struct {
	status Status
	obj    float64
	x      []float64
	reason string
}

type bbNode struct {
	lower []float64
	upper []float64
}

// Solve implements Solver.
func (s *Simplex) Solve(p *Program) (Solution, error) {
	if p == nil {
		return Solution{}, errors.New("lp: nil program")
	}
	if err := p.Validate(); err != nil {
		return Solution{}, fmt.Errorf("lp: program %s: %w", p.Name, err)
	}

	sign := 1.0
	if p.Sense == Maximize {
		sign = -1.0
	}
	n := len(p.Variables)
	cost := make([]float64, n)
	boxed := make([]bool, n)
	root := bbNode{
		lower: make([]float64, n),
		upper: make([]float64, n),
	}
	for j, v := range p.Variables {
		cost[j] = sign * v.Cost
		root.lower[j] = v.Lower
		root.upper[j] = v.Upper
		if v.Integer {
			root.lower[j] = math.Ceil(v.Lower - s.intTolerance)
			if !math.IsInf(v.Upper, 1) {
				root.upper[j] = math.Floor(v.Upper + s.intTolerance)
			}
			if root.upper[j] < root.lower[j] {
				return Solution{Status: StatusInfeasible, Reason: fmt.Sprintf("integer column %s has an empty range", v.Label)}, nil
			}
		}
		if cost[j] < 0 && math.IsInf(root.upper[j], 1) {
			root.upper[j] = math.Max(unboundedBox, root.lower[j]+unboundedBox)
			boxed[j] = true
		}
	}

	ds, violated := newDualSimplex(p, cost, s.tolerance, root)
	if violated != "" {
		return Solution{Status: StatusInfeasible, Reason: "empty row " + violated + " violated"}, nil
	}
	integral := integralObjective(p)

	var (
		incumbent   []float64
		incumbentF  = math.Inf(1)
		nodes       int
		limitHit    bool
		lastFailure string
		stack       = []bbNode{root}
	)

	for len(stack) > 0 {
		if nodes >= s.maxNodes {
			limitHit = true
			break
		}
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		relax := s.node(ds, cost, boxed, node)
		switch relax.status {
		case StatusInfeasible:
			continue
		case StatusUnbounded:
			if nodes == 1 {
				return Solution{Status: StatusUnbounded, Nodes: nodes, Reason: relax.reason}, nil
			}
			continue
		case StatusError:
			lastFailure = relax.reason
			continue
		}

		if incumbent != nil && s.dominated(relax.obj, incumbentF, integral) {
			continue
		}

		branchCol := -1
		worst := 0.0
		for j, v := range p.Variables {
			if !v.Integer {
				continue
			}
			frac := math.Abs(relax.x[j] - math.Round(relax.x[j]))
			if frac > s.intTolerance && frac > worst {
				worst = frac
				branchCol = j
			}
		}

		if branchCol < 0 {
			incumbent = relax.x
			incumbentF = relax.obj
			if integral {
				incumbentF = math.Round(relax.obj)
			}
			continue
		}

		val := relax.x[branchCol]
		down := bbNode{lower: cloneFloats(node.lower), upper: cloneFloats(node.upper)}
		down.upper[branchCol] = math.Floor(val)
		up := bbNode{lower: cloneFloats(node.lower), upper: cloneFloats(node.upper)}
		up.lower[branchCol] = math.Ceil(val)

		// The branch nearer the relaxed value is explored first.
		if val-math.Floor(val) >= 0.5 {
			stack = append(stack, down, up)
		} else {
			stack = append(stack, up, down)
		}
	}

	s.logger.Debug("lp solve finished",
		zap.String("op", "lp.Simplex.Solve"),
		zap.String("program", p.Name),
		zap.Int("variables", n),
		zap.Int("constraints", len(p.Constraints)),
		zap.Int("nodes", nodes),
		zap.Int("pivots", ds.pivots),
		zap.Bool("nodeLimit", limitHit),
		zap.Bool("incumbent", incumbent != nil),
	)

	if incumbent == nil {
		switch {
		case limitHit:
			return Solution{Status: StatusError, Nodes: nodes, Reason: fmt.Sprintf("node limit %d reached without a feasible point", s.maxNodes)}, nil
		case lastFailure != "":
			return Solution{Status: StatusError, Nodes: nodes, Reason: lastFailure}, nil
		default:
			return Solution{Status: StatusInfeasible, Nodes: nodes}, nil
		}
	}

	values := make([]float64, len(incumbent))
	objective := 0.0
	for j, v := range p.Variables {
		values[j] = incumbent[j]
		if v.Integer {
			values[j] = math.Round(values[j])
		}
		objective += v.Cost * values[j]
	}

	// Unexplored subtrees mean the incumbent is not proven optimal.
	status := StatusOptimal
	reason := ""
	switch {
	case limitHit:
		status = StatusFeasible
		reason = fmt.Sprintf("node limit %d reached", s.maxNodes)
	case lastFailure != "":
		status = StatusFeasible
		reason = "subtree abandoned: " + lastFailure
	}
	return Solution{
		Status:    status,
		Objective: objective,
		Values:    values,
		Reason:    reason,
		Nodes:     nodes,
	}, nil
}

// solveNode runs the dual simplex under the node's column bounds.
func (s *Simplex) solveNode(ds *dualSimplex, cost []float64, boxed []bool, node bbNode) relaxation {
	status, reason := ds.solve(node.lower, node.upper)
	if status != StatusOptimal {
		return relaxation{status: status, reason: reason}
	}
	x := ds.structural(node.lower, node.upper)
	for j, b := range boxed {
		if b && x[j] >= unboundedBox*(1-1e-9) {
			return relaxation{status: StatusUnbounded, reason: "objective improves without limit"}
		}
	}
	obj := 0.0
	for j, c := range cost {
		obj += c * x[j]
	}
	return relaxation{status: StatusOptimal, obj: obj, x: x}
}

// dominated reports whether a node bounded by obj cannot beat the incumbent.
// With an integral objective a node must improve by at least one.
func (s *Simplex) dominated(obj, incumbent float64, integral bool) bool {
	if integral {
		return math.Ceil(obj-integralSlack) >= incumbent-integralSlack
	}
	return obj >= incumbent-s.tolerance*math.Max(1, math.Abs(incumbent))
}

// integralObjective reports whether every feasible integer point has an
// integral objective value.
func integralObjective(p *Program) bool {
	costed := false
	for _, v := range p.Variables {
		if v.Cost == 0 {
			continue
		}
		if !v.Integer || v.Cost != math.Trunc(v.Cost) {
			return false
		}
		costed = true
	}
	return costed
}

func cloneFloats(in []float64) []float64 {
	out := make([]float64, len(in))
	copy(out, in)
	return out
}
