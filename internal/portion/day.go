package portion

import (
	"fmt"

	"github.com/iwvelando/portion-planner/pkg/lp"
	"github.com/iwvelando/portion-planner/pkg/nutrition"
	"go.uber.org/zap"
)

// Runner solves single days and orderings of days.
type Runner struct {
	logger *zap.Logger
	solver lp.Solver
	params Params
}

// NewRunner constructs a Runner. A nil solver selects the simplex backend.
func NewRunner(logger *zap.Logger, solver lp.Solver, params Params) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid portion parameters: %w", err)
	}
	if solver == nil {
		solver = lp.NewSimplex(logger)
	}
	return &Runner{logger: logger, solver: solver, params: params}, nil
}

// Params returns the runner's model parameters.
func (r *Runner) Params() Params {
	return r.params
}

// SolveDay portions the meals of one day. Meals present in locked are used
// verbatim; the rest are scaled so the day lands inside the tolerance
// window. A meal listed more than once shares one portioning. locked is
// never modified.
//
// Infeasibility is reported through Valid; an error means the solver itself
// failed.
func (r *Runner) SolveDay(meals []nutrition.Meal, targets nutrition.Targets, locked nutrition.LockedPortions) (nutrition.DayPortionResult, error) {
	var (
		unlocked       []nutrition.Meal
		counts         []int
		solvedAt       = make([]int, len(meals))
		lockedCalories float64
		lockedProtein  float64
	)
	index := make(map[string]int, len(meals))
	for k, meal := range meals {
		if pm, ok := locked[meal.ID]; ok {
			lockedCalories += pm.TotalCalories
			lockedProtein += pm.TotalProtein
			solvedAt[k] = -1
			continue
		}
		i, seen := index[meal.ID]
		if !seen || meal.ID == "" {
			i = len(unlocked)
			unlocked = append(unlocked, meal)
			counts = append(counts, 0)
			if meal.ID != "" {
				index[meal.ID] = i
			}
		}
		counts[i]++
		solvedAt[k] = i
	}

	if len(unlocked) == 0 {
		return r.validateLockedDay(meals, targets, locked, lockedCalories, lockedProtein), nil
	}

	remaining := nutrition.Targets{
		Calories: targets.Calories - lockedCalories,
		Protein:  targets.Protein - lockedProtein,
	}
	if remaining.Calories < 0 || remaining.Protein < 0 {
		r.logger.Debug("locked meals exceed the day's targets",
			zap.String("op", "portion.SolveDay"),
			zap.Float64("lockedCalories", lockedCalories),
			zap.Float64("lockedProtein", lockedProtein),
			zap.Float64("targetCalories", targets.Calories),
			zap.Float64("targetProtein", targets.Protein),
		)
		return nutrition.InvalidDay(), nil
	}

	model := r.buildDayModel(unlocked, counts, remaining)
	sol, err := r.solver.Solve(model.program)
	if err != nil {
		return nutrition.InvalidDay(), fmt.Errorf("solving day: %w", err)
	}
	if sol.Status == lp.StatusError {
		return nutrition.InvalidDay(), fmt.Errorf("solving day: %s", sol.Describe())
	}
	if !sol.HasPoint() {
		r.logger.Debug("no feasible portions for day",
			zap.String("op", "portion.SolveDay"),
			zap.String("status", sol.Describe()),
			zap.Int("unlockedMeals", len(unlocked)),
			zap.Float64("remainingCalories", remaining.Calories),
			zap.Float64("remainingProtein", remaining.Protein),
		)
		return nutrition.InvalidDay(), nil
	}

	solved := model.portion(sol)
	result := nutrition.DayPortionResult{Meals: make([]nutrition.PortionedMeal, 0, len(meals))}
	for k, meal := range meals {
		pm := locked[meal.ID]
		if solvedAt[k] >= 0 {
			pm = solved[solvedAt[k]]
		}
		result.Meals = append(result.Meals, pm)
		result.DayCalories += pm.TotalCalories
		result.DayProtein += pm.TotalProtein
	}
	result.Valid = r.params.Tolerances.Accepts(targets, result.DayCalories, result.DayProtein)
	if !result.Valid {
		r.logger.Warn("solved day falls outside the tolerance window",
			zap.String("op", "portion.SolveDay"),
			zap.Float64("dayCalories", result.DayCalories),
			zap.Float64("dayProtein", result.DayProtein),
			zap.Float64("targetCalories", targets.Calories),
			zap.Float64("targetProtein", targets.Protein),
		)
	}
	return result, nil
}

// validateLockedDay checks a day whose meals are all locked against the full
// tolerance window. No program is solved.
func (r *Runner) validateLockedDay(meals []nutrition.Meal, targets nutrition.Targets, locked nutrition.LockedPortions, calories, protein float64) nutrition.DayPortionResult {
	result := nutrition.DayPortionResult{
		Meals:       make([]nutrition.PortionedMeal, 0, len(meals)),
		DayCalories: calories,
		DayProtein:  protein,
	}
	for _, meal := range meals {
		result.Meals = append(result.Meals, locked[meal.ID])
	}
	result.Valid = r.params.Tolerances.Accepts(targets, calories, protein)
	r.logger.Debug("validated fully locked day",
		zap.String("op", "portion.validateLockedDay"),
		zap.Int("meals", len(meals)),
		zap.Float64("dayCalories", calories),
		zap.Float64("dayProtein", protein),
		zap.Bool("valid", result.Valid),
	)
	return result
}
