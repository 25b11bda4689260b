// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/portion-planner/pkg/nutrition"
)

// FindPlan finds a plan by name in the results slice.
// Returns a pointer to the plan if found, nil otherwise.
func FindPlan(results []nutrition.PlanResult, name string) *nutrition.PlanResult {
	for i := range results {
		if results[i].Name == name {
			return &results[i]
		}
	}
	return nil
}

// FindMeal returns the first meal in a day with the given id, or nil.
func FindMeal(day []nutrition.PortionedMeal, mealID string) *nutrition.PortionedMeal {
	for i := range day {
		if day[i].MealID == mealID {
			return &day[i]
		}
	}
	return nil
}

// FindIngredient returns the named ingredient of a portioned meal, or nil.
func FindIngredient(meal nutrition.PortionedMeal, name string) *nutrition.PortionedIngredient {
	for i := range meal.Ingredients {
		if meal.Ingredients[i].Name == name {
			return &meal.Ingredients[i]
		}
	}
	return nil
}

// DayTotals sums the calories and protein of a day.
func DayTotals(day []nutrition.PortionedMeal) (calories, protein float64) {
	for _, meal := range day {
		calories += meal.TotalCalories
		protein += meal.TotalProtein
	}
	return calories, protein
}
