package config

import (
	"fmt"
	"path/filepath"

	"github.com/iwvelando/portion-planner/internal/combination"
	"github.com/iwvelando/portion-planner/internal/portion"
	"github.com/iwvelando/portion-planner/pkg/lp"
	"github.com/iwvelando/portion-planner/pkg/macrotable"
	"github.com/iwvelando/portion-planner/pkg/nutrition"
)

// NutritionTargets returns the configured daily targets.
func (c *Configuration) NutritionTargets() nutrition.Targets {
	return nutrition.Targets{Calories: c.Targets.Calories, Protein: c.Targets.Protein}
}

// NutritionTolerances returns the configured day window.
func (c *Configuration) NutritionTolerances() nutrition.Tolerances {
	c.ensureNormalized()
	return nutrition.Tolerances{
		CalorieUpper: *c.Tolerances.CalorieUpper,
		CalorieLower: *c.Tolerances.CalorieLower,
		ProteinUpper: *c.Tolerances.ProteinUpper,
		ProteinLower: *c.Tolerances.ProteinLower,
	}
}

// PortionParams returns the day model parameters.
func (c *Configuration) PortionParams() portion.Params {
	c.ensureNormalized()
	return portion.Params{
		Tolerances:          c.NutritionTolerances(),
		MealShareTolerance:  *c.Constraints.MealShareTolerance,
		MainProteinShare:    *c.Constraints.MainProteinShare,
		ScaleMax:            *c.Constraints.ScaleMax,
		MainProteinScaleMax: *c.Constraints.MainProteinScaleMax,
	}
}

// CombinationParams returns the batch model parameters.
func (c *Configuration) CombinationParams() combination.Params {
	c.ensureNormalized()
	return combination.Params{
		Tolerances:          c.NutritionTolerances(),
		MainProteinShare:    *c.Constraints.MainProteinShare,
		PortionMin:          *c.Combination.PortionMin,
		PortionMax:          *c.Combination.PortionMax,
		MealCalorieMinShare: *c.Combination.MealCalorieMinShare,
		MealCalorieMaxShare: *c.Combination.MealCalorieMaxShare,
		MealProteinMinShare: *c.Combination.MealProteinMinShare,
		MealProteinMaxShare: *c.Combination.MealProteinMaxShare,
		MaxCombinations:     *c.Combination.MaxCombinations,
	}
}

// SolverOptions returns the LP backend options.
func (c *Configuration) SolverOptions() []lp.Option {
	c.ensureNormalized()
	return []lp.Option{
		lp.WithTolerance(*c.Solver.Tolerance),
		lp.WithIntegralityTolerance(*c.Solver.IntegralityTolerance),
		lp.WithMaxNodes(*c.Solver.MaxNodes),
	}
}

// TemplateMeals converts the configured meals without consulting the macro
// table.
func (c *Configuration) TemplateMeals() []nutrition.Meal {
	meals := make([]nutrition.Meal, 0, len(c.Meals))
	for _, m := range c.Meals {
		meal := nutrition.Meal{ID: m.ID, Name: m.Name, Ingredients: make([]nutrition.Ingredient, 0, len(m.Ingredients))}
		for _, ing := range m.Ingredients {
			meal.Ingredients = append(meal.Ingredients, nutrition.Ingredient{
				Name:            ing.Name,
				Grams:           ing.Grams,
				Calories:        ing.Calories,
				Protein:         ing.Protein,
				CaloriesPerGram: ing.CaloriesPerGram,
				ProteinPerGram:  ing.ProteinPerGram,
				MainProtein:     ing.MainProtein,
				Amount:          ing.Amount,
				GramsPerUnit:    ing.GramsPerUnit,
				RecommendedUnit: ing.RecommendedUnit,
			})
		}
		meals = append(meals, meal)
	}
	return meals
}

// MacroTable merges the CSV file, if any, with the inline rows. Inline rows
// override the file. When neither is configured the table is derived from
// the meals' own rates.
func (c *Configuration) MacroTable() (nutrition.MacroTable, error) {
	table := make(nutrition.MacroTable)
	if c.IngredientMacrosFile != "" {
		path := c.IngredientMacrosFile
		if !filepath.IsAbs(path) && c.baseDir != "" {
			path = filepath.Join(c.baseDir, path)
		}
		loaded, err := macrotable.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading ingredient macros: %w", err)
		}
		table = loaded
	}
	for _, row := range c.IngredientMacros {
		table.Set(row.Name, nutrition.Macros{CaloriesPerGram: row.CaloriesPerGram, ProteinPerGram: row.ProteinPerGram})
	}
	if len(table) == 0 {
		return nutrition.MacrosFromMeals(c.TemplateMeals()), nil
	}
	return table, nil
}

// ResolvedMeals returns the meals with every ingredient rate taken from the
// macro table. Without a configured table the meals keep their inline rates.
func (c *Configuration) ResolvedMeals() ([]nutrition.Meal, error) {
	if c.IngredientMacrosFile == "" && len(c.IngredientMacros) == 0 {
		return c.TemplateMeals(), nil
	}
	table, err := c.MacroTable()
	if err != nil {
		return nil, err
	}
	return table.Apply(c.TemplateMeals())
}

// NutritionOrderings converts the configured orderings.
func (c *Configuration) NutritionOrderings() []nutrition.Ordering {
	orderings := make([]nutrition.Ordering, 0, len(c.Orderings))
	for _, o := range c.Orderings {
		orderings = append(orderings, nutrition.Ordering{Name: o.Name, Days: o.Days})
	}
	return orderings
}

// CombinationInput assembles a batch request from the configuration.
func (c *Configuration) CombinationInput() (combination.Input, error) {
	table, err := c.MacroTable()
	if err != nil {
		return combination.Input{}, err
	}
	return combination.Input{
		Meals:            c.TemplateMeals(),
		IngredientMacros: table,
		MealsPerDay:      c.MealsPerDay,
		Targets:          c.NutritionTargets(),
	}, nil
}

func (c *Configuration) ensureNormalized() {
	if c.Tolerances.CalorieUpper == nil || c.Constraints.MainProteinShare == nil ||
		c.Combination.MaxCombinations == nil || c.Solver.MaxNodes == nil {
		c.Normalize()
	}
}
