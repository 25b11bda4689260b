package nutrition

import (
	"errors"
	"math"
	"testing"
)

func TestIngredientRates(t *testing.T) {
	tests := []struct {
		name     string
		ing      Ingredient
		calories float64
		protein  float64
	}{
		{
			name:     "explicit rates win",
			ing:      Ingredient{Grams: 100, Calories: 500, Protein: 10, CaloriesPerGram: 1.5, ProteinPerGram: 0.2},
			calories: 1.5,
			protein:  0.2,
		},
		{
			name:     "derived from reference",
			ing:      Ingredient{Grams: 200, Calories: 220, Protein: 62},
			calories: 1.1,
			protein:  0.31,
		},
		{
			name:     "zero grams",
			ing:      Ingredient{Grams: 0, Calories: 100, Protein: 10},
			calories: 0,
			protein:  0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ing.CalorieRate(); math.Abs(got-tt.calories) > 1e-12 {
				t.Fatalf("CalorieRate = %v, want %v", got, tt.calories)
			}
			if got := tt.ing.ProteinRate(); math.Abs(got-tt.protein) > 1e-12 {
				t.Fatalf("ProteinRate = %v, want %v", got, tt.protein)
			}
		})
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		name  string
		ing   Ingredient
		grams float64
		want  string
	}{
		{name: "whole units", ing: Ingredient{GramsPerUnit: 50, RecommendedUnit: "egg"}, grams: 100, want: "2 egg"},
		{name: "near whole", ing: Ingredient{GramsPerUnit: 100, RecommendedUnit: "cup"}, grams: 204, want: "2 cup"},
		{name: "fractional", ing: Ingredient{GramsPerUnit: 100, RecommendedUnit: "cup"}, grams: 150, want: "1.50 cup"},
		{name: "no unit falls back", ing: Ingredient{Amount: "1 handful"}, grams: 30, want: "1 handful"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ing.FormatAmount(tt.grams); got != tt.want {
				t.Fatalf("FormatAmount(%v) = %q, want %q", tt.grams, got, tt.want)
			}
		})
	}
}

func TestNewPortionedMealSumsTotals(t *testing.T) {
	meal := Meal{
		ID:   "bowl",
		Name: "Bowl",
		Ingredients: []Ingredient{
			{Name: "Chicken", Grams: 200, CaloriesPerGram: 1.1, ProteinPerGram: 0.31, MainProtein: true},
			{Name: "Rice", Grams: 150, CaloriesPerGram: 1.3, ProteinPerGram: 0.03},
		},
	}
	pm := NewPortionedMeal(meal, []PortionedIngredient{
		meal.Ingredients[0].Portion(100),
		meal.Ingredients[1].Portion(200),
	})

	if math.Abs(pm.TotalCalories-370) > 1e-9 {
		t.Fatalf("expected 370 kcal, got %v", pm.TotalCalories)
	}
	if math.Abs(pm.TotalProtein-37) > 1e-9 {
		t.Fatalf("expected 37 g protein, got %v", pm.TotalProtein)
	}
	main, other := pm.MainProteinSplit()
	if math.Abs(main-31) > 1e-9 || math.Abs(other-6) > 1e-9 {
		t.Fatalf("unexpected split %v / %v", main, other)
	}
	if meal.Ingredients[0].Grams != 200 {
		t.Fatal("portioning must not modify the template")
	}
}

func TestTolerancesAccepts(t *testing.T) {
	tol := DefaultTolerances()
	targets := Targets{Calories: 2000, Protein: 150}

	tests := []struct {
		name     string
		calories float64
		protein  float64
		want     bool
	}{
		{name: "on target", calories: 2000, protein: 150, want: true},
		{name: "calorie upper edge", calories: 2100, protein: 150, want: true},
		{name: "calorie lower edge", calories: 1900, protein: 150, want: true},
		{name: "protein surplus edge", calories: 2000, protein: 180, want: true},
		{name: "protein deficit edge", calories: 2000, protein: 140, want: true},
		{name: "too many calories", calories: 2100.01, protein: 150, want: false},
		{name: "protein deficit", calories: 2000, protein: 139.9, want: false},
		{name: "protein surplus", calories: 2000, protein: 180.1, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tol.Accepts(targets, tt.calories, tt.protein); got != tt.want {
				t.Fatalf("Accepts(%v, %v) = %v, want %v", tt.calories, tt.protein, got, tt.want)
			}
		})
	}
}

func TestMacroTableApply(t *testing.T) {
	table := NewMacroTable(map[string]Macros{" Chicken ": {CaloriesPerGram: 1.65, ProteinPerGram: 0.31}})
	meals := []Meal{{Name: "Plate", Ingredients: []Ingredient{{Name: "chicken", Grams: 100}}}}

	applied, err := table.Apply(meals)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if applied[0].Ingredients[0].CaloriesPerGram != 1.65 {
		t.Fatalf("expected table rate, got %+v", applied[0].Ingredients[0])
	}
	if meals[0].Ingredients[0].CaloriesPerGram != 0 {
		t.Fatal("Apply must not modify its input")
	}

	meals[0].Ingredients = append(meals[0].Ingredients, Ingredient{Name: "Tofu", Grams: 50})
	if _, err := table.Apply(meals); !errors.Is(err, ErrUnknownIngredient) {
		t.Fatalf("expected ErrUnknownIngredient, got %v", err)
	}
}

func TestMacroTableZeroRateIsAuthoritative(t *testing.T) {
	table := NewMacroTable(map[string]Macros{
		"Olive Oil": {CaloriesPerGram: 8.84, ProteinPerGram: 0},
		"Water":     {CaloriesPerGram: 0, ProteinPerGram: 0},
	})
	meals := []Meal{{Name: "Dressing", Ingredients: []Ingredient{
		{Name: "Olive Oil", Grams: 10, Calories: 90, Protein: 5},
		{Name: "Water", Grams: 100, Calories: 40, Protein: 2},
	}}}

	applied, err := table.Apply(meals)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	oil, water := applied[0].Ingredients[0], applied[0].Ingredients[1]
	if oil.ProteinRate() != 0 || oil.CalorieRate() != 8.84 {
		t.Fatalf("expected table rates 8.84/0 for oil, got %v/%v", oil.CalorieRate(), oil.ProteinRate())
	}
	if water.CalorieRate() != 0 || water.ProteinRate() != 0 {
		t.Fatalf("expected zero table rates for water, got %v/%v", water.CalorieRate(), water.ProteinRate())
	}
	if p := oil.Portion(20); p.Protein != 0 || p.Calories != 20*8.84 {
		t.Fatalf("unexpected portion %+v", p)
	}

	// Without a table the reference amounts still supply the rate.
	if got := meals[0].Ingredients[0].ProteinRate(); got != 0.5 {
		t.Fatalf("expected reference protein rate 0.5, got %v", got)
	}
}

func TestMacrosFromMeals(t *testing.T) {
	meals := []Meal{
		{Ingredients: []Ingredient{{Name: "Rice", Grams: 100, Calories: 130, Protein: 2.7}}},
		{Ingredients: []Ingredient{{Name: "rice", Grams: 100, Calories: 999, Protein: 1}}},
	}
	table := MacrosFromMeals(meals)
	if len(table) != 1 {
		t.Fatalf("expected one entry, got %d", len(table))
	}
	macros, _ := table.Lookup("RICE")
	if math.Abs(macros.CaloriesPerGram-1.3) > 1e-12 {
		t.Fatalf("expected the first occurrence to win, got %+v", macros)
	}
}

func TestIndexMealsPrefersIDs(t *testing.T) {
	meals := []Meal{
		{ID: "a", Name: "b"},
		{ID: "b", Name: "Second"},
	}
	index := IndexMeals(meals)
	if index["b"].Name != "Second" {
		t.Fatalf("expected id to win over name, got %+v", index["b"])
	}
	if index["a"].Name != "b" {
		t.Fatalf("expected lookup by id, got %+v", index["a"])
	}
}

func TestLockedPortionsClone(t *testing.T) {
	locked := LockedPortions{"a": {MealID: "a"}}
	clone := locked.Clone()
	clone["b"] = PortionedMeal{MealID: "b"}
	if len(locked) != 1 {
		t.Fatal("clone must not share the underlying map")
	}
}
