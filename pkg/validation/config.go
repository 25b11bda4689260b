package validation

import (
	"fmt"
	"math"
)

// ValidateTargets checks that the daily targets are usable.
func ValidateTargets(calories, protein float64) error {
	if math.IsNaN(calories) || calories <= 0 {
		return fmt.Errorf("target calories must be positive, got %v", calories)
	}
	if math.IsNaN(protein) || protein < 0 {
		return fmt.Errorf("target protein must not be negative, got %v", protein)
	}
	return nil
}

// ValidateTolerance checks a single tolerance value.
func ValidateTolerance(name string, value float64) error {
	if math.IsNaN(value) || value < 0 {
		return fmt.Errorf("%s tolerance must not be negative, got %v", name, value)
	}
	return nil
}

// ValidateShare checks a fraction that must lie within [0, 1].
func ValidateShare(name string, value float64) error {
	if math.IsNaN(value) || value < 0 || value > 1 {
		return fmt.Errorf("%s must be within [0, 1], got %v", name, value)
	}
	return nil
}

// ValidateMealsPerDay checks that a day can be drawn from the configured meals.
func ValidateMealsPerDay(mealsPerDay, meals int) error {
	if mealsPerDay < 1 {
		return fmt.Errorf("mealsPerDay must be at least 1, got %d", mealsPerDay)
	}
	if mealsPerDay > meals {
		return fmt.Errorf("mealsPerDay %d exceeds the %d configured meals", mealsPerDay, meals)
	}
	return nil
}

// ValidateUniqueMealIDs reports the first repeated meal id.
func ValidateUniqueMealIDs(ids []string) error {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" {
			return fmt.Errorf("meal id must not be empty")
		}
		if seen[id] {
			return fmt.Errorf("duplicate meal id %q", id)
		}
		seen[id] = true
	}
	return nil
}
