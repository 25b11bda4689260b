// Package output provides utilities for formatting and displaying portion plans.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/iwvelando/portion-planner/internal/combination"
	"github.com/iwvelando/portion-planner/pkg/format"
	"github.com/iwvelando/portion-planner/pkg/nutrition"
	"github.com/iwvelando/portion-planner/pkg/optimization"
	"github.com/iwvelando/portion-planner/pkg/schedule"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// PrettyPlans outputs a human-readable rather than machine-readable listing
// of every ordering.
func PrettyPlans(plans []nutrition.PlanResult) {
	p := message.NewPrinter(language.English)
	for i, plan := range plans {
		summary := optimization.SummarizePlan(plan)
		fmt.Printf("--- Results for plan %s ---\n", plan.Name)
		_, _ = p.Printf("Valid days: %d of %d\n", summary.ValidDays, summary.TotalDays)
		if len(summary.DroppedDays) > 0 {
			fmt.Printf("Dropped days: %s\n", joinDays(summary.DroppedDays))
		}
		if summary.ValidDays > 0 {
			fmt.Printf("Average day: %s\n", format.Macros(summary.AvgCalories, summary.AvgProtein))
		}

		for _, day := range schedule.Build(i+1, plan.Result) {
			fmt.Printf("\nDay %d | %s\n", day.PlanNumber, format.Macros(day.DayCalories, day.DayProtein))
			for _, meal := range day.Meals {
				fmt.Printf("  %s %s | %s\n", meal.MealTime, meal.MealName, format.Macros(meal.TotalCalories, meal.TotalProtein))
				for _, ing := range meal.Ingredients {
					_, _ = p.Printf("        %s | %.1f g | %s\n", ing.Name, ing.Grams, ing.Amount)
				}
			}
		}
		if len(plans) > 1 {
			fmt.Printf("\n")
		}
	}
}

// CsvPlans outputs one row per ingredient of every valid day.
func CsvPlans(plans []nutrition.PlanResult) error {
	return writeCSV(os.Stdout, plansRecords(plans))
}

// CsvPlansString renders CsvPlans output into a string.
func CsvPlansString(plans []nutrition.PlanResult) string {
	var b strings.Builder
	_ = writeCSV(&b, plansRecords(plans))
	return b.String()
}

func plansRecords(plans []nutrition.PlanResult) [][]string {
	records := [][]string{{"plan", "day", "meal_time", "meal_id", "meal", "ingredient", "grams", "calories", "protein", "amount"}}
	for i, plan := range plans {
		for _, day := range schedule.Build(i+1, plan.Result) {
			for _, meal := range day.Meals {
				for _, ing := range meal.Ingredients {
					records = append(records, []string{
						plan.Name,
						strconv.Itoa(day.PlanNumber),
						meal.MealTime,
						meal.MealID,
						meal.MealName,
						ing.Name,
						decimal(ing.Grams),
						decimal(ing.Calories),
						decimal(ing.Protein),
						ing.Amount,
					})
				}
			}
		}
	}
	return records
}

// PrettyCombination outputs a human-readable listing of a batch result.
func PrettyCombination(result combination.Result) {
	p := message.NewPrinter(language.English)
	summary := optimization.SummarizeCombination(result)
	fmt.Printf("--- Combination results (status %s) ---\n", result.Status)
	_, _ = p.Printf("Valid combinations: %d\n", summary.ValidDays)
	if summary.ValidDays == 0 {
		return
	}
	_, _ = p.Printf("Meals used: %d\n", summary.UsedMeals)
	fmt.Printf("Average day: %s\n", format.Macros(summary.AvgCalories, summary.AvgProtein))

	for i, day := range result.ValidDays {
		fmt.Printf("\nCombination %d: %s | %s\n", i+1, strings.Join(day.Meals, " + "), format.Macros(day.Totals.Calories, day.Totals.Protein))
		for _, name := range day.Meals {
			detail := day.MealsDetailed[name]
			fmt.Printf("  [slot %s] %s | %s\n", slot(day.Positions[name]), name, format.Macros(detail.TotalCalories, detail.TotalProtein))
			for _, ing := range detail.Ingredients {
				_, _ = p.Printf("        %s | %.1f g | %.0f kcal | %.1f g protein\n", ing.Name, ing.Grams, ing.Calories, ing.Protein)
			}
		}
	}
}

// CsvCombination outputs one row per ingredient of every valid combination.
func CsvCombination(result combination.Result) error {
	records := [][]string{{"combination", "meal", "slot", "ingredient", "grams", "calories", "protein"}}
	for i, day := range result.ValidDays {
		for _, name := range day.Meals {
			for _, ing := range day.MealsDetailed[name].Ingredients {
				records = append(records, []string{
					strconv.Itoa(i + 1),
					name,
					slot(day.Positions[name]),
					ing.Name,
					decimal(ing.Grams),
					decimal(ing.Calories),
					decimal(ing.Protein),
				})
			}
		}
	}
	return writeCSV(os.Stdout, records)
}

// JSONFormat outputs v as indented JSON.
func JSONFormat(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// YAMLFormat outputs v as YAML.
func YAMLFormat(v interface{}) error {
	encoder := yaml.NewEncoder(os.Stdout)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}

func writeCSV(w io.Writer, records [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.WriteAll(records); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}

func decimal(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// slot renders a 1-based slot number, or "-" for an unplaced meal.
func slot(pos *int) string {
	if pos == nil {
		return "-"
	}
	return strconv.Itoa(*pos + 1)
}

func joinDays(days []int) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(d + 1)
	}
	return strings.Join(parts, ", ")
}
