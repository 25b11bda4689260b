package lp

import (
	"math"
	"strings"
	"testing"

	"go.uber.org/zap"
)

const testTol = 1e-6

func TestSimplexMinimize(t *testing.T) {
	p := NewProgram("min", Minimize)
	x := p.AddVariable("x", 0, math.Inf(1))
	y := p.AddVariable("y", 0, math.Inf(1))
	p.SetCost(x, 1)
	p.SetCost(y, 1)
	p.AddConstraint("a", AtLeast(4), Term{x, 1}, Term{y, 2})
	p.AddConstraint("b", AtLeast(6), Term{x, 3}, Term{y, 1})

	sol, err := NewSimplex(zap.NewNop()).Solve(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Status != StatusOptimal {
		t.Fatalf("expected optimal, got %s", sol.Describe())
	}
	if math.Abs(sol.Objective-2.8) > testTol {
		t.Errorf("expected objective 2.8, got %v", sol.Objective)
	}
	if math.Abs(sol.Value(x)-1.6) > testTol || math.Abs(sol.Value(y)-1.2) > testTol {
		t.Errorf("expected (1.6, 1.2), got (%v, %v)", sol.Value(x), sol.Value(y))
	}
}

func TestSimplexMaximizeWithColumnBounds(t *testing.T) {
	p := NewProgram("max", Maximize)
	x := p.AddVariable("x", 0, 3)
	y := p.AddVariable("y", 0, math.Inf(1))
	p.SetCost(x, 3)
	p.SetCost(y, 2)
	p.AddConstraint("sum", AtMost(4), Term{x, 1}, Term{y, 1})
	p.AddConstraint("weighted", AtMost(6), Term{x, 1}, Term{y, 3})

	sol, err := NewSimplex(nil).Solve(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Status != StatusOptimal {
		t.Fatalf("expected optimal, got %s", sol.Describe())
	}
	if math.Abs(sol.Objective-11) > testTol {
		t.Errorf("expected objective 11, got %v", sol.Objective)
	}
	if math.Abs(sol.Value(x)-3) > testTol || math.Abs(sol.Value(y)-1) > testTol {
		t.Errorf("expected (3, 1), got (%v, %v)", sol.Value(x), sol.Value(y))
	}
}

func TestSimplexFixedRowAndShiftedLowerBound(t *testing.T) {
	p := NewProgram("fixed", Minimize)
	x := p.AddVariable("x", 1, math.Inf(1))
	y := p.AddVariable("y", 2, 4)
	p.SetCost(x, 1)
	p.AddConstraint("total", Fixed(10), Term{x, 1}, Term{y, 1})

	sol, err := NewSimplex(nil).Solve(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Status != StatusOptimal {
		t.Fatalf("expected optimal, got %s", sol.Describe())
	}
	if math.Abs(sol.Value(x)-6) > testTol || math.Abs(sol.Value(y)-4) > testTol {
		t.Errorf("expected (6, 4), got (%v, %v)", sol.Value(x), sol.Value(y))
	}
}

func TestSimplexDoubleBound(t *testing.T) {
	p := NewProgram("double", Maximize)
	x := p.AddVariable("x", 0, math.Inf(1))
	p.SetCost(x, 1)
	p.AddConstraint("window", Between(2, 5), Term{x, 2})

	sol, err := NewSimplex(nil).Solve(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Status != StatusOptimal || math.Abs(sol.Value(x)-2.5) > testTol {
		t.Errorf("expected optimal x=2.5, got %s x=%v", sol.Describe(), sol.Value(x))
	}
}

func TestSimplexInfeasible(t *testing.T) {
	p := NewProgram("infeasible", Minimize)
	x := p.AddVariable("x", 0, 10)
	p.SetCost(x, 1)
	p.AddConstraint("low", AtLeast(5), Term{x, 1})
	p.AddConstraint("high", AtMost(3), Term{x, 1})

	sol, err := NewSimplex(nil).Solve(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Status != StatusInfeasible {
		t.Errorf("expected infeasible, got %s", sol.Describe())
	}
	if sol.HasPoint() {
		t.Errorf("infeasible solution should not carry values")
	}
}

func TestSimplexUnconstrainedColumnStaysAtLowerBound(t *testing.T) {
	p := NewProgram("loose", Minimize)
	x := p.AddVariable("x", 0, math.Inf(1))
	y := p.AddVariable("y", 0.5, math.Inf(1))
	p.SetCost(x, 1)
	p.SetCost(y, 1)
	p.AddConstraint("x", AtLeast(2), Term{x, 1})

	sol, err := NewSimplex(nil).Solve(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Status != StatusOptimal {
		t.Fatalf("expected optimal, got %s", sol.Describe())
	}
	if math.Abs(sol.Value(y)-0.5) > testTol {
		t.Errorf("expected y at its lower bound 0.5, got %v", sol.Value(y))
	}
	if math.Abs(sol.Objective-2.5) > testTol {
		t.Errorf("expected objective 2.5, got %v", sol.Objective)
	}
}

func TestSimplexUnbounded(t *testing.T) {
	p := NewProgram("unbounded", Maximize)
	x := p.AddVariable("x", 0, math.Inf(1))
	p.SetCost(x, 1)

	sol, err := NewSimplex(nil).Solve(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Status != StatusUnbounded {
		t.Errorf("expected unbounded, got %s", sol.Describe())
	}
}

func TestBranchAndBoundRoundsDownFractionalRelaxation(t *testing.T) {
	p := NewProgram("pick", Maximize)
	a := p.AddBinary("a")
	b := p.AddBinary("b")
	p.SetCost(a, 1)
	p.SetCost(b, 1)
	p.AddConstraint("capacity", AtMost(3), Term{a, 2}, Term{b, 2})

	sol, err := NewSimplex(nil).Solve(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Status != StatusOptimal {
		t.Fatalf("expected optimal, got %s", sol.Describe())
	}
	if math.Abs(sol.Objective-1) > testTol {
		t.Errorf("expected objective 1, got %v", sol.Objective)
	}
	if sol.Value(a)+sol.Value(b) != 1 {
		t.Errorf("expected exactly one pick, got a=%v b=%v", sol.Value(a), sol.Value(b))
	}
	if sol.Nodes < 2 {
		t.Errorf("expected branching, got %d nodes", sol.Nodes)
	}
}

func TestBranchAndBoundKnapsack(t *testing.T) {
	p := NewProgram("knapsack", Maximize)
	a := p.AddBinary("a")
	b := p.AddBinary("b")
	c := p.AddBinary("c")
	p.SetCost(a, 5)
	p.SetCost(b, 4)
	p.SetCost(c, 3)
	p.AddConstraint("r1", AtMost(5), Term{a, 2}, Term{b, 3}, Term{c, 1})
	p.AddConstraint("r2", AtMost(11), Term{a, 4}, Term{b, 1}, Term{c, 2})
	p.AddConstraint("r3", AtMost(8), Term{a, 3}, Term{b, 4}, Term{c, 2})

	sol, err := NewSimplex(nil).Solve(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Status != StatusOptimal {
		t.Fatalf("expected optimal, got %s", sol.Describe())
	}
	if math.Abs(sol.Objective-9) > testTol {
		t.Errorf("expected objective 9, got %v", sol.Objective)
	}
	for i, row := range p.Constraints {
		if !row.Satisfied(sol.Values, testTol) {
			t.Errorf("row %d (%s) violated", i, row.Label)
		}
	}
}

func TestBranchAndBoundNodeLimit(t *testing.T) {
	p := NewProgram("limited", Maximize)
	a := p.AddBinary("a")
	b := p.AddBinary("b")
	p.SetCost(a, 1)
	p.SetCost(b, 1)
	p.AddConstraint("capacity", AtMost(3), Term{a, 2}, Term{b, 2})

	sol, err := NewSimplex(nil, WithMaxNodes(1)).Solve(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Status != StatusError {
		t.Fatalf("expected error status, got %s", sol.Describe())
	}
	if !strings.Contains(sol.Reason, "node limit") {
		t.Errorf("expected node limit reason, got %q", sol.Reason)
	}
}

func TestSolveRejectsMalformedPrograms(t *testing.T) {
	tests := []struct {
		name  string
		build func() *Program
	}{
		{
			name: "inverted column bounds",
			build: func() *Program {
				p := NewProgram("bad", Minimize)
				p.AddVariable("x", 5, 1)
				return p
			},
		},
		{
			name: "infinite lower bound",
			build: func() *Program {
				p := NewProgram("bad", Minimize)
				p.AddVariable("x", math.Inf(-1), 1)
				return p
			},
		},
		{
			name: "column out of range",
			build: func() *Program {
				p := NewProgram("bad", Minimize)
				p.AddVariable("x", 0, 1)
				p.AddConstraint("row", AtMost(1), Term{3, 1})
				return p
			},
		},
		{
			name: "inverted row bounds",
			build: func() *Program {
				p := NewProgram("bad", Minimize)
				x := p.AddVariable("x", 0, 1)
				p.AddConstraint("row", Between(2, 1), Term{x, 1})
				return p
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSimplex(nil).Solve(tt.build()); err == nil {
				t.Errorf("expected an error")
			}
		})
	}

	if _, err := NewSimplex(nil).Solve(nil); err == nil {
		t.Errorf("expected an error for a nil program")
	}
}

func TestSolutionHelpers(t *testing.T) {
	sol := Solution{Status: StatusOptimal, Values: []float64{1, 2}}
	if sol.Value(5) != 0 || sol.Value(-1) != 0 {
		t.Errorf("out of range values should be zero")
	}
	if sol.Value(1) != 2 {
		t.Errorf("expected value 2, got %v", sol.Value(1))
	}
	if got := (Solution{Status: StatusError, Reason: "boom"}).Describe(); got != "error: boom" {
		t.Errorf("unexpected description %q", got)
	}
	if StatusInfeasible.String() != "infeasible" {
		t.Errorf("unexpected status string %q", StatusInfeasible.String())
	}
}

func TestAddConstraintDropsZeroCoefficients(t *testing.T) {
	p := NewProgram("zeros", Minimize)
	x := p.AddVariable("x", 0, 1)
	y := p.AddVariable("y", 0, 1)
	p.AddConstraint("row", AtMost(1), Term{x, 0}, Term{y, 2})
	if len(p.Constraints[0].Terms) != 1 || p.Constraints[0].Terms[0].Col != y {
		t.Errorf("expected only the y term to be kept, got %+v", p.Constraints[0].Terms)
	}
}

func TestBranchAndBoundFailedSubtreeDowngradesIncumbent(t *testing.T) {
	p := NewProgram("abandoned", Maximize)
	a := p.AddBinary("a")
	b := p.AddBinary("b")
	p.SetCost(a, 1)
	p.SetCost(b, 1)
	p.AddConstraint("capacity", AtMost(3), Term{a, 2}, Term{b, 2})

	s := NewSimplex(zap.NewNop())
	inner := s.node
	found := false
	// Every node after the first integral point fails.
	s.node = func(ds *dualSimplex, cost []float64, boxed []bool, n bbNode) relaxation {
		if found {
			return relaxation{status: StatusError, reason: "iteration limit 7 reached"}
		}
		r := inner(ds, cost, boxed, n)
		if r.status == StatusOptimal {
			integral := true
			for _, v := range r.x {
				if math.Abs(v-math.Round(v)) > testTol {
					integral = false
				}
			}
			found = integral
		}
		return r
	}

	sol, err := s.Solve(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Status != StatusFeasible {
		t.Fatalf("expected feasible, got %s", sol.Describe())
	}
	if !strings.Contains(sol.Reason, "iteration limit") {
		t.Errorf("expected the node failure in the reason, got %q", sol.Reason)
	}
	if !sol.HasPoint() || math.Abs(sol.Objective-1) > testTol {
		t.Errorf("expected the incumbent with objective 1, got %s objective %v", sol.Describe(), sol.Objective)
	}
}

func TestSimplexRepeatedEqualityRows(t *testing.T) {
	p := NewProgram("duplicates", Minimize)
	x := p.AddVariable("x", 0, math.Inf(1))
	y := p.AddVariable("y", 0, math.Inf(1))
	p.SetCost(x, 2)
	p.SetCost(y, 1)
	p.AddConstraint("sum", Fixed(4), Term{x, 1}, Term{y, 1})
	p.AddConstraint("sum again", Fixed(4), Term{x, 1}, Term{y, 1})
	p.AddConstraint("sum scaled", Fixed(400), Term{x, 100}, Term{y, 100})
	p.AddConstraint("floor", AtLeast(1), Term{x, 1})

	sol, err := NewSimplex(nil).Solve(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Status != StatusOptimal {
		t.Fatalf("expected optimal, got %s", sol.Describe())
	}
	if math.Abs(sol.Value(x)-1) > testTol || math.Abs(sol.Value(y)-3) > testTol {
		t.Errorf("expected (1, 3), got (%v, %v)", sol.Value(x), sol.Value(y))
	}
}

func TestSimplexEmptyRowOutsideBounds(t *testing.T) {
	p := NewProgram("empty", Minimize)
	x := p.AddVariable("x", 0, 1)
	p.SetCost(x, 1)
	p.AddConstraint("nothing", AtLeast(2), Term{x, 0})

	sol, err := NewSimplex(nil).Solve(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Status != StatusInfeasible || !strings.Contains(sol.Reason, "nothing") {
		t.Errorf("expected infeasible naming the empty row, got %s", sol.Describe())
	}
}

func TestSetBounds(t *testing.T) {
	p := NewProgram("bounds", Maximize)
	x := p.AddBinary("x")
	p.SetCost(x, 1)
	p.SetBounds(x, 0, 0)

	sol, err := NewSimplex(nil).Solve(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Status != StatusOptimal || sol.Value(x) != 0 {
		t.Errorf("expected x pinned at 0, got %s x=%v", sol.Describe(), sol.Value(x))
	}
}
