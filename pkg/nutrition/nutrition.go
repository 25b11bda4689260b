// Package nutrition defines the meal templates, portioned meals and macro
// targets exchanged between the portion solvers and their callers.
package nutrition

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/iwvelando/portion-planner/pkg/constants"
	"github.com/iwvelando/portion-planner/pkg/mathutil"
)

// ErrUnknownIngredient is returned when a meal references an ingredient that
// has no entry in the macro table.
var ErrUnknownIngredient = errors.New("ingredient not found in macro table")

// Ingredient is one line of a meal template at its reference portion.
type Ingredient struct {
	Name            string  `json:"name" yaml:"name"`
	Grams           float64 `json:"grams" yaml:"grams"`
	Calories        float64 `json:"calories,omitempty" yaml:"calories,omitempty"`
	Protein         float64 `json:"protein,omitempty" yaml:"protein,omitempty"`
	CaloriesPerGram float64 `json:"caloriesPerGram,omitempty" yaml:"caloriesPerGram,omitempty"`
	ProteinPerGram  float64 `json:"proteinPerGram,omitempty" yaml:"proteinPerGram,omitempty"`
	MainProtein     bool    `json:"mainProtein,omitempty" yaml:"mainProtein,omitempty"`
	Amount          string  `json:"amount,omitempty" yaml:"amount,omitempty"`
	GramsPerUnit    float64 `json:"gramsPerUnit,omitempty" yaml:"gramsPerUnit,omitempty"`
	RecommendedUnit string  `json:"recommendedUnit,omitempty" yaml:"recommendedUnit,omitempty"`

	// tabulated marks rates set from a macro table; a zero rate is then
	// authoritative.
	tabulated bool
}

// CalorieRate returns kcal per gram, derived from the reference portion when
// no rate was supplied.
func (i Ingredient) CalorieRate() float64 {
	if i.tabulated || i.CaloriesPerGram > 0 {
		return i.CaloriesPerGram
	}
	return mathutil.SafeDivide(i.Calories, i.Grams)
}

// ProteinRate returns grams of protein per gram, derived from the reference
// portion when no rate was supplied.
func (i Ingredient) ProteinRate() float64 {
	if i.tabulated || i.ProteinPerGram > 0 {
		return i.ProteinPerGram
	}
	return mathutil.SafeDivide(i.Protein, i.Grams)
}

// Portion resolves the ingredient at the given gram amount.
func (i Ingredient) Portion(grams float64) PortionedIngredient {
	calRate := i.CalorieRate()
	protRate := i.ProteinRate()
	return PortionedIngredient{
		Name:            i.Name,
		Grams:           grams,
		Calories:        grams * calRate,
		Protein:         grams * protRate,
		CaloriesPerGram: calRate,
		ProteinPerGram:  protRate,
		MainProtein:     i.MainProtein,
		Amount:          i.FormatAmount(grams),
	}
}

// FormatAmount renders grams in the ingredient's recommended unit, falling
// back to the template's amount text when no unit conversion is known.
func (i Ingredient) FormatAmount(grams float64) string {
	if i.GramsPerUnit <= 0 || i.RecommendedUnit == "" {
		return i.Amount
	}
	units := grams / i.GramsPerUnit
	rounded := math.Round(units)
	var display string
	if math.Abs(rounded-units) < 0.05 {
		display = strconv.FormatFloat(rounded, 'f', -1, 64)
	} else {
		display = strconv.FormatFloat(units, 'f', 2, 64)
	}
	return display + " " + i.RecommendedUnit
}

// Meal is an immutable template. Portioning produces a PortionedMeal and
// never modifies the template.
type Meal struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Ingredients []Ingredient `json:"ingredients" yaml:"ingredients"`
}

// HasMainProtein reports whether any ingredient is flagged as main protein.
func (m Meal) HasMainProtein() bool {
	for _, ing := range m.Ingredients {
		if ing.MainProtein {
			return true
		}
	}
	return false
}

// PortionedIngredient is an ingredient resolved to concrete grams.
type PortionedIngredient struct {
	Name            string  `json:"name" yaml:"name"`
	Grams           float64 `json:"grams" yaml:"grams"`
	Calories        float64 `json:"calories" yaml:"calories"`
	Protein         float64 `json:"protein" yaml:"protein"`
	CaloriesPerGram float64 `json:"caloriesPerGram" yaml:"caloriesPerGram"`
	ProteinPerGram  float64 `json:"proteinPerGram" yaml:"proteinPerGram"`
	MainProtein     bool    `json:"mainProtein,omitempty" yaml:"mainProtein,omitempty"`
	Amount          string  `json:"amount,omitempty" yaml:"amount,omitempty"`
}

// PortionedMeal is a meal with every ingredient resolved to grams.
type PortionedMeal struct {
	MealID        string                `json:"mealId" yaml:"mealId"`
	MealName      string                `json:"mealName" yaml:"mealName"`
	Ingredients   []PortionedIngredient `json:"ingredients" yaml:"ingredients"`
	TotalCalories float64               `json:"totalCalories" yaml:"totalCalories"`
	TotalProtein  float64               `json:"totalProtein" yaml:"totalProtein"`
}

// NewPortionedMeal builds a PortionedMeal and sums its totals.
func NewPortionedMeal(meal Meal, ingredients []PortionedIngredient) PortionedMeal {
	pm := PortionedMeal{
		MealID:      meal.ID,
		MealName:    meal.Name,
		Ingredients: ingredients,
	}
	for _, ing := range ingredients {
		pm.TotalCalories += ing.Calories
		pm.TotalProtein += ing.Protein
	}
	return pm
}

// MainProteinSplit returns the protein supplied by main-protein ingredients
// and by everything else.
func (pm PortionedMeal) MainProteinSplit() (main, other float64) {
	for _, ing := range pm.Ingredients {
		if ing.MainProtein {
			main += ing.Protein
		} else {
			other += ing.Protein
		}
	}
	return main, other
}

// LockedPortions maps a meal id to the portion frozen for the rest of a
// sequence.
type LockedPortions map[string]PortionedMeal

// Clone returns a shallow copy of the lock map.
func (l LockedPortions) Clone() LockedPortions {
	out := make(LockedPortions, len(l))
	for id, pm := range l {
		out[id] = pm
	}
	return out
}

// Targets is the daily calorie and protein goal.
type Targets struct {
	Calories float64 `json:"calories" yaml:"calories"`
	Protein  float64 `json:"protein" yaml:"protein"`
}

// Tolerances bound how far a day may stray from its targets.
type Tolerances struct {
	CalorieUpper float64 `json:"calorieUpper" yaml:"calorieUpper"`
	CalorieLower float64 `json:"calorieLower" yaml:"calorieLower"`
	ProteinUpper float64 `json:"proteinUpper" yaml:"proteinUpper"`
	ProteinLower float64 `json:"proteinLower" yaml:"proteinLower"`
}

// DefaultTolerances returns +-100 kcal and -10/+30 g protein.
func DefaultTolerances() Tolerances {
	return Tolerances{
		CalorieUpper: constants.DefaultCalorieUpperTolerance,
		CalorieLower: constants.DefaultCalorieLowerTolerance,
		ProteinUpper: constants.DefaultProteinUpperTolerance,
		ProteinLower: constants.DefaultProteinLowerTolerance,
	}
}

// Window is a closed [Lower, Upper] interval.
type Window struct {
	Lower float64
	Upper float64
}

// Contains reports whether val lies in the window, absorbing solver noise.
func (w Window) Contains(val float64) bool {
	return mathutil.InWindow(val, w.Lower, w.Upper, constants.AcceptanceEpsilon)
}

// CalorieWindow returns the accepted calorie range around target.
func (t Tolerances) CalorieWindow(target float64) Window {
	return Window{Lower: target - t.CalorieLower, Upper: target + t.CalorieUpper}
}

// ProteinWindow returns the accepted protein range around target.
func (t Tolerances) ProteinWindow(target float64) Window {
	return Window{Lower: target - t.ProteinLower, Upper: target + t.ProteinUpper}
}

// Accepts reports whether day totals fall inside both windows.
func (t Tolerances) Accepts(targets Targets, calories, protein float64) bool {
	return t.CalorieWindow(targets.Calories).Contains(calories) &&
		t.ProteinWindow(targets.Protein).Contains(protein)
}

// Macros is one macro table row.
type Macros struct {
	CaloriesPerGram float64 `json:"caloriesPerGram" yaml:"caloriesPerGram"`
	ProteinPerGram  float64 `json:"proteinPerGram" yaml:"proteinPerGram"`
}

// MacroTable maps ingredient names to per-gram macros. Lookups ignore case
// and surrounding whitespace.
type MacroTable map[string]Macros

// NormalizeName returns the lookup key for an ingredient name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NewMacroTable builds a table keyed by normalized names.
func NewMacroTable(entries map[string]Macros) MacroTable {
	table := make(MacroTable, len(entries))
	for name, macros := range entries {
		table[NormalizeName(name)] = macros
	}
	return table
}

// Set stores macros for an ingredient.
func (t MacroTable) Set(name string, macros Macros) {
	t[NormalizeName(name)] = macros
}

// Lookup returns the macros for an ingredient.
func (t MacroTable) Lookup(name string) (Macros, bool) {
	macros, ok := t[NormalizeName(name)]
	return macros, ok
}

// Apply returns copies of meals whose ingredient rates come from the table.
// Every ingredient must be present.
func (t MacroTable) Apply(meals []Meal) ([]Meal, error) {
	out := make([]Meal, len(meals))
	for m, meal := range meals {
		ings := make([]Ingredient, len(meal.Ingredients))
		for i, ing := range meal.Ingredients {
			macros, ok := t.Lookup(ing.Name)
			if !ok {
				return nil, fmt.Errorf("meal %q ingredient %q: %w", meal.Name, ing.Name, ErrUnknownIngredient)
			}
			ing.CaloriesPerGram = macros.CaloriesPerGram
			ing.ProteinPerGram = macros.ProteinPerGram
			ing.tabulated = true
			ings[i] = ing
		}
		meal.Ingredients = ings
		out[m] = meal
	}
	return out, nil
}

// MacrosFromMeals derives a table from the rates carried by the meals
// themselves. The first occurrence of an ingredient wins.
func MacrosFromMeals(meals []Meal) MacroTable {
	table := make(MacroTable)
	for _, meal := range meals {
		for _, ing := range meal.Ingredients {
			if _, ok := table.Lookup(ing.Name); ok {
				continue
			}
			table.Set(ing.Name, Macros{CaloriesPerGram: ing.CalorieRate(), ProteinPerGram: ing.ProteinRate()})
		}
	}
	return table
}
