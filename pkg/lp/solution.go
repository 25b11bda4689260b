package lp

import "fmt"

// Status is the outcome of a solve.
type Status int

const (
	// StatusOptimal means a proven optimum was found.
	StatusOptimal Status = iota
	// StatusFeasible means the search stopped early with an incumbent.
	StatusFeasible
	// StatusInfeasible means no point satisfies the constraints.
	StatusInfeasible
	// StatusUnbounded means the objective can improve without limit.
	StatusUnbounded
	// StatusError means the backend could not reach a conclusion.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Solution is the typed result of a solve. Values is only populated for
// StatusOptimal and StatusFeasible.
type Solution struct {
	Status    Status
	Objective float64
	Values    []float64
	Reason    string
	Nodes     int
}

// HasPoint reports whether the solution carries column values.
func (s Solution) HasPoint() bool {
	return (s.Status == StatusOptimal || s.Status == StatusFeasible) && s.Values != nil
}

// Value returns the value of a column, or zero when absent.
func (s Solution) Value(col int) float64 {
	if col < 0 || col >= len(s.Values) {
		return 0
	}
	return s.Values[col]
}

// Describe returns the status with its reason, if any.
func (s Solution) Describe() string {
	if s.Reason == "" {
		return s.Status.String()
	}
	return s.Status.String() + ": " + s.Reason
}

// Solver solves programs. A returned error means the program itself was
// malformed or the backend failed to run; infeasibility is reported through
// Solution.Status.
type Solver interface {
	Solve(p *Program) (Solution, error)
}

// SolverFunc adapts a function to the Solver interface.
type SolverFunc func(p *Program) (Solution, error)

// Solve calls f(p).
func (f SolverFunc) Solve(p *Program) (Solution, error) { return f(p) }
