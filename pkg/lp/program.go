// Package lp models linear and mixed-integer programs and solves them.
//
// A Program is assembled column by column and row by row:
//
//	Minimize (or Maximize): sum(Cost_j * x_j)
//	Subject to:             Lower_i <= sum(a_ij * x_j) <= Upper_i
//	And:                    Lower_j <= x_j <= Upper_j, x_j integral when flagged
//
// Row bounds are expressed with a BoundType so that one-sided rows never
// need a sentinel infinity.
package lp

import (
	"fmt"
	"math"
)

// Sense selects the objective direction.
type Sense int

const (
	// Minimize the objective.
	Minimize Sense = iota
	// Maximize the objective.
	Maximize
)

func (s Sense) String() string {
	if s == Maximize {
		return "max"
	}
	return "min"
}

// BoundType describes which sides of a row are bounded.
type BoundType int

const (
	// BoundFixed requires the row activity to equal Lower (== Upper).
	BoundFixed BoundType = iota
	// BoundLower requires activity >= Lower.
	BoundLower
	// BoundUpper requires activity <= Upper.
	BoundUpper
	// BoundDouble requires Lower <= activity <= Upper.
	BoundDouble
)

func (b BoundType) String() string {
	switch b {
	case BoundFixed:
		return "fixed"
	case BoundLower:
		return "lower"
	case BoundUpper:
		return "upper"
	case BoundDouble:
		return "double"
	default:
		return fmt.Sprintf("BoundType(%d)", int(b))
	}
}

// Bound is the admissible range of a row's activity.
type Bound struct {
	Type  BoundType
	Lower float64
	Upper float64
}

// Fixed returns an equality bound.
func Fixed(v float64) Bound { return Bound{Type: BoundFixed, Lower: v, Upper: v} }

// AtLeast returns a lower bound.
func AtLeast(lb float64) Bound { return Bound{Type: BoundLower, Lower: lb} }

// AtMost returns an upper bound.
func AtMost(ub float64) Bound { return Bound{Type: BoundUpper, Upper: ub} }

// Between returns a double bound.
func Between(lb, ub float64) Bound { return Bound{Type: BoundDouble, Lower: lb, Upper: ub} }

// Term is one coefficient of a row.
type Term struct {
	Col  int
	Coef float64
}

// Variable is one column of the program.
type Variable struct {
	Label   string
	Lower   float64
	Upper   float64
	Integer bool
	Cost    float64
}

// Constraint is one row of the program. Label is only used in diagnostics.
type Constraint struct {
	Label string
	Terms []Term
	Bound Bound
}

// Program is a linear program with optional integrality.
type Program struct {
	Name        string
	Sense       Sense
	Variables   []Variable
	Constraints []Constraint
}

// NewProgram returns an empty program.
func NewProgram(name string, sense Sense) *Program {
	return &Program{Name: name, Sense: sense}
}

// AddVariable appends a continuous column and returns its index. Pass
// math.Inf(1) for an unbounded upper side.
func (p *Program) AddVariable(label string, lower, upper float64) int {
	p.Variables = append(p.Variables, Variable{Label: label, Lower: lower, Upper: upper})
	return len(p.Variables) - 1
}

// AddBinary appends a 0/1 integer column and returns its index.
func (p *Program) AddBinary(label string) int {
	p.Variables = append(p.Variables, Variable{Label: label, Lower: 0, Upper: 1, Integer: true})
	return len(p.Variables) - 1
}

// SetCost sets the objective coefficient of a column.
func (p *Program) SetCost(col int, cost float64) {
	p.Variables[col].Cost = cost
}

// SetBounds replaces the bounds of a column.
func (p *Program) SetBounds(col int, lower, upper float64) {
	p.Variables[col].Lower = lower
	p.Variables[col].Upper = upper
}

// AddConstraint appends a row. Zero coefficients are dropped.
func (p *Program) AddConstraint(label string, bound Bound, terms ...Term) {
	kept := make([]Term, 0, len(terms))
	for _, t := range terms {
		if t.Coef != 0 {
			kept = append(kept, t)
		}
	}
	p.Constraints = append(p.Constraints, Constraint{Label: label, Terms: kept, Bound: bound})
}

// NumVariables returns the number of columns.
func (p *Program) NumVariables() int { return len(p.Variables) }

// NumConstraints returns the number of rows.
func (p *Program) NumConstraints() int { return len(p.Constraints) }

// HasIntegers reports whether any column is integral.
func (p *Program) HasIntegers() bool {
	for _, v := range p.Variables {
		if v.Integer {
			return true
		}
	}
	return false
}

// Validate rejects malformed programs. Lower column bounds must be finite.
func (p *Program) Validate() error {
	for j, v := range p.Variables {
		if math.IsNaN(v.Lower) || math.IsNaN(v.Upper) || math.IsNaN(v.Cost) || math.IsInf(v.Cost, 0) {
			return fmt.Errorf("variable %d (%s): non-numeric bound or cost", j, v.Label)
		}
		if math.IsInf(v.Lower, 0) {
			return fmt.Errorf("variable %d (%s): lower bound must be finite", j, v.Label)
		}
		if v.Upper < v.Lower {
			return fmt.Errorf("variable %d (%s): upper bound %g below lower bound %g", j, v.Label, v.Upper, v.Lower)
		}
	}
	for i, c := range p.Constraints {
		for _, t := range c.Terms {
			if t.Col < 0 || t.Col >= len(p.Variables) {
				return fmt.Errorf("constraint %d (%s): column %d out of range", i, c.Label, t.Col)
			}
			if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
				return fmt.Errorf("constraint %d (%s): non-numeric coefficient for column %d", i, c.Label, t.Col)
			}
		}
		b := c.Bound
		switch b.Type {
		case BoundFixed, BoundLower:
			if math.IsNaN(b.Lower) || math.IsInf(b.Lower, 0) {
				return fmt.Errorf("constraint %d (%s): invalid lower bound", i, c.Label)
			}
		case BoundUpper:
			if math.IsNaN(b.Upper) || math.IsInf(b.Upper, 0) {
				return fmt.Errorf("constraint %d (%s): invalid upper bound", i, c.Label)
			}
		case BoundDouble:
			if math.IsNaN(b.Lower) || math.IsNaN(b.Upper) || math.IsInf(b.Lower, 0) || math.IsInf(b.Upper, 0) {
				return fmt.Errorf("constraint %d (%s): invalid double bound", i, c.Label)
			}
			if b.Upper < b.Lower {
				return fmt.Errorf("constraint %d (%s): upper bound %g below lower bound %g", i, c.Label, b.Upper, b.Lower)
			}
		default:
			return fmt.Errorf("constraint %d (%s): unknown bound type %v", i, c.Label, b.Type)
		}
	}
	return nil
}

// Activity evaluates a row at the given column values.
func (c Constraint) Activity(values []float64) float64 {
	var sum float64
	for _, t := range c.Terms {
		sum += t.Coef * values[t.Col]
	}
	return sum
}

// Satisfied reports whether the row holds at values within tol.
func (c Constraint) Satisfied(values []float64, tol float64) bool {
	a := c.Activity(values)
	switch c.Bound.Type {
	case BoundFixed:
		return math.Abs(a-c.Bound.Lower) <= tol
	case BoundLower:
		return a >= c.Bound.Lower-tol
	case BoundUpper:
		return a <= c.Bound.Upper+tol
	default:
		return a >= c.Bound.Lower-tol && a <= c.Bound.Upper+tol
	}
}
