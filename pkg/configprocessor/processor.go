// Package configprocessor provides shared configuration processing utilities.
package configprocessor

import "fmt"

// IngredientInfo represents ingredient configuration information
type IngredientInfo struct {
	Name        string
	Grams       float64
	MainProtein bool
}

// MealInfo represents meal configuration information
type MealInfo struct {
	ID          string
	Name        string
	Ingredients []IngredientInfo
}

// OrderingInfo represents ordering configuration information
type OrderingInfo struct {
	Name string
	Days [][]string
}

// Processor handles configuration processing and validation
type Processor struct{}

// NewProcessor creates a new configuration processor
func NewProcessor() *Processor {
	return &Processor{}
}

// ValidateConfiguration validates the configuration and returns warnings.
// Problems that make a solve impossible are left to the solvers, which
// report them as errors.
func (p *Processor) ValidateConfiguration(mealsPerDay int, meals []MealInfo, orderings []OrderingInfo) []string {
	var warnings []string

	known := make(map[string]bool, 2*len(meals))
	for _, meal := range meals {
		label := meal.Name
		if label == "" {
			label = meal.ID
		}
		if meal.ID != "" {
			known[meal.ID] = true
		}
		if meal.Name != "" {
			known[meal.Name] = true
		}

		if len(meal.Ingredients) == 0 {
			warnings = append(warnings, fmt.Sprintf("Meal '%s' has no ingredients", label))
			continue
		}
		hasMain := false
		for _, ing := range meal.Ingredients {
			if ing.MainProtein {
				hasMain = true
			}
			if ing.Grams <= 0 {
				warnings = append(warnings, fmt.Sprintf("Meal '%s' ingredient '%s' has no positive gram amount and will be skipped", label, ing.Name))
			}
		}
		if !hasMain {
			warnings = append(warnings, fmt.Sprintf("Meal '%s' has no main-protein ingredient; only its overall scale can change", label))
		}
	}

	for _, ordering := range orderings {
		for d, day := range ordering.Days {
			if mealsPerDay > 0 && len(day) != mealsPerDay {
				warnings = append(warnings, fmt.Sprintf("Ordering '%s' day %d has %d meals, expected %d", ordering.Name, d+1, len(day), mealsPerDay))
			}
			seen := make(map[string]bool, len(day))
			for _, ref := range day {
				if !known[ref] {
					warnings = append(warnings, fmt.Sprintf("Ordering '%s' day %d references unknown meal '%s'", ordering.Name, d+1, ref))
				}
				if seen[ref] {
					warnings = append(warnings, fmt.Sprintf("Ordering '%s' day %d uses meal '%s' more than once", ordering.Name, d+1, ref))
				}
				seen[ref] = true
			}
		}
	}

	if mealsPerDay > len(meals) {
		warnings = append(warnings, fmt.Sprintf("mealsPerDay %d exceeds the %d configured meals", mealsPerDay, len(meals)))
	}

	if len(warnings) == 0 {
		return nil
	}
	return warnings
}
