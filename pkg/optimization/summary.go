// Package optimization provides shared data structures for optimization results.
package optimization

import (
	"github.com/iwvelando/portion-planner/internal/combination"
	"github.com/iwvelando/portion-planner/pkg/nutrition"
)

// Summary captures the headline numbers of one solved plan or batch.
type Summary struct {
	Scope       string  `json:"scope" yaml:"scope"`
	Name        string  `json:"name" yaml:"name"`
	ValidDays   int     `json:"validDays" yaml:"validDays"`
	TotalDays   int     `json:"totalDays" yaml:"totalDays"`
	DroppedDays []int   `json:"droppedDays,omitempty" yaml:"droppedDays,omitempty"`
	LockedMeals int     `json:"lockedMeals" yaml:"lockedMeals"`
	UsedMeals   int     `json:"usedMeals,omitempty" yaml:"usedMeals,omitempty"`
	Status      string  `json:"status,omitempty" yaml:"status,omitempty"`
	AvgCalories float64 `json:"avgCalories" yaml:"avgCalories"`
	AvgProtein  float64 `json:"avgProtein" yaml:"avgProtein"`
}

const (
	// ScopeSequence marks a summary of one ordering.
	ScopeSequence = "sequence"

	// ScopeCombination marks a summary of a batch solve.
	ScopeCombination = "combination"
)

// SummarizePlan reports one ordering's result. Averages cover valid days only.
func SummarizePlan(plan nutrition.PlanResult) Summary {
	s := Summary{
		Scope:       ScopeSequence,
		Name:        plan.Name,
		ValidDays:   plan.Result.ValidDays,
		TotalDays:   plan.Result.TotalDays,
		DroppedDays: append([]int(nil), plan.Result.DroppedDays...),
		LockedMeals: len(plan.Result.PortionedMeals),
	}
	for _, day := range plan.Result.ValidDayPlans {
		for _, meal := range day {
			s.AvgCalories += meal.TotalCalories
			s.AvgProtein += meal.TotalProtein
		}
	}
	if n := len(plan.Result.ValidDayPlans); n > 0 {
		s.AvgCalories /= float64(n)
		s.AvgProtein /= float64(n)
	}
	return s
}

// SummarizePlans reports every ordering in order.
func SummarizePlans(plans []nutrition.PlanResult) []Summary {
	summaries := make([]Summary, 0, len(plans))
	for _, plan := range plans {
		summaries = append(summaries, SummarizePlan(plan))
	}
	return summaries
}

// SummarizeCombination reports a batch result. Every decoded combination is
// a valid day.
func SummarizeCombination(result combination.Result) Summary {
	s := Summary{
		Scope:       ScopeCombination,
		Name:        "combinations",
		ValidDays:   len(result.ValidDays),
		TotalDays:   len(result.ValidDays),
		UsedMeals:   len(result.UsedMeals),
		Status:      result.Status,
	}
	for _, day := range result.ValidDays {
		s.AvgCalories += day.Totals.Calories
		s.AvgProtein += day.Totals.Protein
	}
	if n := len(result.ValidDays); n > 0 {
		s.AvgCalories /= float64(n)
		s.AvgProtein /= float64(n)
	}
	return s
}
