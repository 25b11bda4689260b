package integration

import (
	"fmt"
	"testing"
	"time"

	"github.com/iwvelando/portion-planner/internal/portion"
	"github.com/iwvelando/portion-planner/pkg/lp"
	"github.com/iwvelando/portion-planner/pkg/nutrition"
	"go.uber.org/zap"
)

func longOrdering(days int) [][]string {
	ids := []string{"A", "B", "C"}
	ordering := make([][]string, days)
	for d := range ordering {
		ordering[d] = []string{ids[d%3], ids[(d+1)%3]}
	}
	return ordering
}

// TestLongSequence walks a few months of days. Once every meal is locked the
// remaining days are validated without solving.
func TestLongSequence(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping long sequence in short mode")
	}

	conf := loadConfig(t, sequenceConfig)
	meals, err := conf.ResolvedMeals()
	if err != nil {
		t.Fatalf("ResolvedMeals() error = %v", err)
	}
	logger := zap.NewNop()
	runner, err := portion.NewRunner(logger, lp.NewSimplex(logger, conf.SolverOptions()...), conf.PortionParams())
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	start := time.Now()
	result, err := runner.SolveSequence(longOrdering(120), nutrition.IndexMeals(meals), conf.NutritionTargets())
	if err != nil {
		t.Fatalf("SolveSequence() error = %v", err)
	}
	elapsed := time.Since(start)

	if result.TotalDays != 120 {
		t.Fatalf("expected 120 days, got %d", result.TotalDays)
	}
	if result.ValidDays+len(result.DroppedDays) != result.TotalDays {
		t.Fatalf("valid %d plus dropped %d does not cover %d days", result.ValidDays, len(result.DroppedDays), result.TotalDays)
	}
	if len(result.PortionedMeals) > 3 {
		t.Fatalf("expected at most 3 locked meals, got %d", len(result.PortionedMeals))
	}
	if elapsed > 10*time.Second {
		t.Errorf("long sequence took %v", elapsed)
	}
	t.Logf("solved %d days (%d valid) in %v", result.TotalDays, result.ValidDays, elapsed)
}

func BenchmarkSolveDay(b *testing.B) {
	conf := loadConfig(b, sequenceConfig)
	meals, err := conf.ResolvedMeals()
	if err != nil {
		b.Fatalf("ResolvedMeals() error = %v", err)
	}
	runner, err := portion.NewRunner(zap.NewNop(), nil, conf.PortionParams())
	if err != nil {
		b.Fatalf("NewRunner() error = %v", err)
	}
	targets := conf.NutritionTargets()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := runner.SolveDay(meals[:2], targets, nil); err != nil {
			b.Fatalf("SolveDay() error = %v", err)
		}
	}
}

func BenchmarkSolveSequence(b *testing.B) {
	conf := loadConfig(b, sequenceConfig)
	meals, err := conf.ResolvedMeals()
	if err != nil {
		b.Fatalf("ResolvedMeals() error = %v", err)
	}
	runner, err := portion.NewRunner(zap.NewNop(), nil, conf.PortionParams())
	if err != nil {
		b.Fatalf("NewRunner() error = %v", err)
	}
	lookup := nutrition.IndexMeals(meals)
	targets := conf.NutritionTargets()

	for _, days := range []int{7, 30, 90} {
		ordering := longOrdering(days)
		b.Run(fmt.Sprintf("days=%d", days), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := runner.SolveSequence(ordering, lookup, targets); err != nil {
					b.Fatalf("SolveSequence() error = %v", err)
				}
			}
		})
	}
}
