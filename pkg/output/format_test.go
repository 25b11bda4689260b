package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/iwvelando/portion-planner/internal/combination"
	"github.com/iwvelando/portion-planner/pkg/nutrition"
	"gopkg.in/yaml.v3"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

func testPlans() []nutrition.PlanResult {
	bowl := nutrition.PortionedMeal{
		MealID:   "bowl",
		MealName: "Chicken Bowl",
		Ingredients: []nutrition.PortionedIngredient{
			{Name: "Chicken Breast", Grams: 231.4, Calories: 381.8, Protein: 71.7, Amount: "8 oz"},
			{Name: "Rice", Grams: 1200, Calories: 1560, Protein: 32.4},
		},
		TotalCalories: 1941.8,
		TotalProtein:  104.1,
	}
	oats := nutrition.PortionedMeal{
		MealID:   "oats",
		MealName: "Oats",
		Ingredients: []nutrition.PortionedIngredient{
			{Name: "Oats, rolled", Grams: 80, Calories: 311, Protein: 13.5},
		},
		TotalCalories: 311,
		TotalProtein:  13.5,
	}
	return []nutrition.PlanResult{
		{
			Name: "Week A",
			Result: nutrition.OrderingResult{
				ValidDays:     1,
				TotalDays:     2,
				ValidDayPlans: [][]nutrition.PortionedMeal{{oats, bowl}},
				DroppedDays:   []int{1},
			},
		},
		{
			Name:   "Week B",
			Result: nutrition.OrderingResult{TotalDays: 1},
		},
	}
}

func testCombination() combination.Result {
	zero, one := 0, 1
	return combination.Result{
		Status:    "optimal",
		Objective: 1,
		UsedMeals: []string{"A", "B"},
		ValidDays: []combination.Day{
			{
				Meals:     []string{"A", "B"},
				Positions: map[string]*int{"A": &zero, "B": &one},
				Totals:    combination.Totals{Calories: 1000, Protein: 80},
				MealsDetailed: map[string]combination.MealDetail{
					"A": {
						Ingredients:   []combination.IngredientPortion{{Name: "Rice", Grams: 250, Calories: 325, Protein: 6.8}},
						TotalCalories: 325,
						TotalProtein:  6.8,
					},
					"B": {
						Ingredients:   []combination.IngredientPortion{{Name: "Chicken", Grams: 409.2, Calories: 675, Protein: 73.2}},
						TotalCalories: 675,
						TotalProtein:  73.2,
					},
				},
			},
		},
		PositionAssignments: map[string]string{"0": "A", "1": "B"},
	}
}

func TestPrettyPlans(t *testing.T) {
	output := captureStdout(t, func() { PrettyPlans(testPlans()) })

	expected := []string{
		"--- Results for plan Week A ---",
		"Valid days: 1 of 2",
		"Dropped days: 2",
		"Average day: 2,253 kcal / 117.6 g protein",
		"Day 1 | 2,253 kcal / 117.6 g protein",
		"11:00 Oats | 311 kcal / 13.5 g protein",
		"17:00 Chicken Bowl | 1,942 kcal / 104.1 g protein",
		"Chicken Breast | 231.4 g | 8 oz",
		"Rice | 1,200.0 g |",
		"--- Results for plan Week B ---",
		"Valid days: 0 of 1",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("PrettyPlans output missing %q\n%s", want, output)
		}
	}
	if strings.Count(output, "Average day") != 1 {
		t.Errorf("expected no average for a plan without valid days\n%s", output)
	}
}

func TestCsvPlans(t *testing.T) {
	output := captureStdout(t, func() {
		if err := CsvPlans(testPlans()); err != nil {
			t.Errorf("CsvPlans returned error: %v", err)
		}
	})

	records, err := csv.NewReader(strings.NewReader(output)).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid csv: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header plus 3 ingredient rows, got %d", len(records))
	}
	if records[0][0] != "plan" || records[0][9] != "amount" {
		t.Errorf("unexpected header %v", records[0])
	}
	if records[1][5] != "Oats, rolled" {
		t.Errorf("expected quoted ingredient name to survive, got %q", records[1][5])
	}
	if records[2][2] != "17:00" || records[2][6] != "231.4" || records[2][9] != "8 oz" {
		t.Errorf("unexpected chicken row %v", records[2])
	}

	if CsvPlansString(testPlans()) != output {
		t.Error("CsvPlansString should match CsvPlans output")
	}
}

func TestPrettyCombination(t *testing.T) {
	output := captureStdout(t, func() { PrettyCombination(testCombination()) })

	expected := []string{
		"--- Combination results (status optimal) ---",
		"Valid combinations: 1",
		"Meals used: 2",
		"Combination 1: A + B | 1,000 kcal / 80.0 g protein",
		"[slot 1] A | 325 kcal / 6.8 g protein",
		"[slot 2] B | 675 kcal / 73.2 g protein",
		"Chicken | 409.2 g | 675 kcal | 73.2 g protein",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("PrettyCombination output missing %q\n%s", want, output)
		}
	}
}

func TestPrettyCombinationEmpty(t *testing.T) {
	empty := combination.Result{Status: "infeasible"}
	output := captureStdout(t, func() { PrettyCombination(empty) })

	if !strings.Contains(output, "status infeasible") || !strings.Contains(output, "Valid combinations: 0") {
		t.Errorf("unexpected output for an empty result\n%s", output)
	}
	if strings.Contains(output, "Combination 1") {
		t.Errorf("expected no combinations listed\n%s", output)
	}
}

func TestCsvCombination(t *testing.T) {
	result := testCombination()
	result.ValidDays[0].Positions["B"] = nil

	output := captureStdout(t, func() {
		if err := CsvCombination(result); err != nil {
			t.Errorf("CsvCombination returned error: %v", err)
		}
	})

	records, err := csv.NewReader(strings.NewReader(output)).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(records))
	}
	if records[1][2] != "1" {
		t.Errorf("expected slot 1 for A, got %q", records[1][2])
	}
	if records[2][2] != "-" {
		t.Errorf("expected unplaced marker for B, got %q", records[2][2])
	}
}

func TestJSONFormat(t *testing.T) {
	output := captureStdout(t, func() {
		if err := JSONFormat(testCombination()); err != nil {
			t.Errorf("JSONFormat returned error: %v", err)
		}
	})

	var decoded combination.Result
	if err := json.Unmarshal([]byte(output), &decoded); err != nil {
		t.Fatalf("output is not valid json: %v", err)
	}
	if *decoded.ValidDays[0].Positions["A"] != 0 {
		t.Errorf("expected position 0 to survive encoding, got %v", decoded.ValidDays[0].Positions["A"])
	}
}

func TestYAMLFormat(t *testing.T) {
	output := captureStdout(t, func() {
		if err := YAMLFormat(testPlans()); err != nil {
			t.Errorf("YAMLFormat returned error: %v", err)
		}
	})

	var decoded []map[string]interface{}
	if err := yaml.Unmarshal([]byte(output), &decoded); err != nil {
		t.Fatalf("output is not valid yaml: %v", err)
	}
	if len(decoded) != 2 || decoded[0]["name"] != "Week A" {
		t.Fatalf("unexpected decoded plans %v", decoded)
	}
}
