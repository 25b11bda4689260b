package portion

import (
	"errors"
	"fmt"

	"github.com/iwvelando/portion-planner/pkg/nutrition"
	"go.uber.org/zap"
)

var (
	// ErrUnknownMeal is returned when an ordering references a meal that is
	// not in the lookup.
	ErrUnknownMeal = errors.New("meal not found")

	// ErrMissingMealID is returned when an ordering resolves to a meal
	// without an id. Locked portions are keyed by id.
	ErrMissingMealID = errors.New("meal has no id")
)

// SolveSequence walks the days of an ordering in order. Each valid day locks
// the portions of any meal it introduced; later days reuse those portions
// unchanged. Invalid days are dropped and leave the locks untouched.
//
// Every meal reference is resolved before the first solve.
func (r *Runner) SolveSequence(ordering [][]string, mealLookup map[string]nutrition.Meal, targets nutrition.Targets) (nutrition.OrderingResult, error) {
	days, err := resolveDays(ordering, mealLookup)
	if err != nil {
		return nutrition.OrderingResult{}, err
	}

	r.logger.Info("solving ordering",
		zap.String("op", "portion.SolveSequence"),
		zap.Int("days", len(days)),
		zap.Float64("targetCalories", targets.Calories),
		zap.Float64("targetProtein", targets.Protein),
	)

	result := nutrition.OrderingResult{
		TotalDays:     len(days),
		ValidDayPlans: [][]nutrition.PortionedMeal{},
	}
	locked := make(nutrition.LockedPortions)

	for i, meals := range days {
		day, err := r.SolveDay(meals, targets, locked)
		if err != nil {
			return nutrition.OrderingResult{}, fmt.Errorf("day %d: %w", i+1, err)
		}
		if !day.Valid {
			result.DroppedDays = append(result.DroppedDays, i)
			r.logger.Warn("dropping day without a valid portioning",
				zap.String("op", "portion.SolveSequence"),
				zap.Int("day", i+1),
				zap.Strings("meals", ordering[i]),
			)
			continue
		}

		var added int
		locked, added = lockNewMeals(locked, day.Meals)
		result.ValidDays++
		result.ValidDayPlans = append(result.ValidDayPlans, day.Meals)

		r.logger.Debug("day accepted",
			zap.String("op", "portion.SolveSequence"),
			zap.Int("day", i+1),
			zap.Float64("dayCalories", day.DayCalories),
			zap.Float64("dayProtein", day.DayProtein),
			zap.Int("newlyLocked", added),
			zap.Int("locked", len(locked)),
		)
	}

	result.PortionedMeals = locked
	r.logger.Info("ordering solved",
		zap.String("op", "portion.SolveSequence"),
		zap.Int("validDays", result.ValidDays),
		zap.Int("totalDays", result.TotalDays),
		zap.Int("portionedMeals", len(locked)),
	)
	return result, nil
}

// SolvePlans solves several orderings one after another, each with its own
// empty lock map.
func (r *Runner) SolvePlans(orderings []nutrition.Ordering, mealLookup map[string]nutrition.Meal, targets nutrition.Targets) ([]nutrition.PlanResult, error) {
	results := make([]nutrition.PlanResult, 0, len(orderings))
	for i, ordering := range orderings {
		name := ordering.Name
		if name == "" {
			name = fmt.Sprintf("Plan %d", i+1)
		}
		res, err := r.SolveSequence(ordering.Days, mealLookup, targets)
		if err != nil {
			return nil, fmt.Errorf("ordering %s: %w", name, err)
		}
		results = append(results, nutrition.PlanResult{Name: name, Result: res})
	}
	return results, nil
}

// lockNewMeals adds every meal not yet locked. The first solved portion of
// a meal wins.
func lockNewMeals(locked nutrition.LockedPortions, meals []nutrition.PortionedMeal) (nutrition.LockedPortions, int) {
	added := 0
	for _, pm := range meals {
		if _, ok := locked[pm.MealID]; ok {
			continue
		}
		locked[pm.MealID] = pm
		added++
	}
	return locked, added
}

func resolveDays(ordering [][]string, mealLookup map[string]nutrition.Meal) ([][]nutrition.Meal, error) {
	days := make([][]nutrition.Meal, len(ordering))
	for i, names := range ordering {
		meals := make([]nutrition.Meal, len(names))
		for j, name := range names {
			meal, ok := mealLookup[name]
			if !ok {
				return nil, fmt.Errorf("day %d: %q: %w", i+1, name, ErrUnknownMeal)
			}
			if meal.ID == "" {
				return nil, fmt.Errorf("day %d: %q: %w", i+1, name, ErrMissingMealID)
			}
			meals[j] = meal
		}
		days[i] = meals
	}
	return days, nil
}
