package combination

import (
	"errors"
	"fmt"
	"math"

	"github.com/iwvelando/portion-planner/pkg/lp"
	"github.com/iwvelando/portion-planner/pkg/nutrition"
	"go.uber.org/zap"
)

var (
	// ErrNoCombinations is returned when no combination of the requested size
	// can be drawn from the meals.
	ErrNoCombinations = errors.New("no meal combinations possible")

	// ErrTooManyCombinations is returned when the enumeration exceeds the
	// configured cap.
	ErrTooManyCombinations = errors.New("too many meal combinations")

	// ErrDuplicateMeal is returned when two meals share a name.
	ErrDuplicateMeal = errors.New("duplicate meal name")
)

// Input is one batch request.
type Input struct {
	Meals            []nutrition.Meal     `json:"meals" yaml:"meals"`
	IngredientMacros nutrition.MacroTable `json:"ingredientMacros" yaml:"ingredientMacros"`
	MealsPerDay      int                  `json:"mealsPerDay" yaml:"mealsPerDay"`
	Targets          nutrition.Targets    `json:"targets" yaml:"targets"`
}

// IngredientPortion is one decoded ingredient line.
type IngredientPortion struct {
	Name     string  `json:"name" yaml:"name"`
	Grams    float64 `json:"grams" yaml:"grams"`
	Calories float64 `json:"calories" yaml:"calories"`
	Protein  float64 `json:"protein" yaml:"protein"`
}

// MealDetail lists a meal's decoded ingredients and totals.
type MealDetail struct {
	Ingredients   []IngredientPortion `json:"ingredients" yaml:"ingredients"`
	TotalCalories float64             `json:"totalCalories" yaml:"totalCalories"`
	TotalProtein  float64             `json:"totalProtein" yaml:"totalProtein"`
}

// Totals are the summed macros of a combination.
type Totals struct {
	Calories float64 `json:"calories" yaml:"calories"`
	Protein  float64 `json:"protein" yaml:"protein"`
}

// Day is one combination the solver marked valid.
type Day struct {
	Meals              []string                                `json:"meals" yaml:"meals"`
	Positions          map[string]*int                         `json:"positions" yaml:"positions"`
	Totals             Totals                                  `json:"totals" yaml:"totals"`
	MealsDetailed      map[string]MealDetail                   `json:"mealsDetailed" yaml:"mealsDetailed"`
	IngredientPortions map[string]map[string]IngredientPortion `json:"ingredientPortions" yaml:"ingredientPortions"`
}

// Result is the decoded batch solution. A non-optimal solve yields an empty
// result carrying the solver status.
type Result struct {
	Status              string            `json:"status" yaml:"status"`
	Objective           float64           `json:"objective" yaml:"objective"`
	UsedMeals           []string          `json:"usedMeals" yaml:"usedMeals"`
	ValidDays           []Day             `json:"validDays" yaml:"validDays"`
	PositionAssignments map[string]string `json:"positionAssignments" yaml:"positionAssignments"`
}

func emptyResult(status string) Result {
	return Result{
		Status:              status,
		UsedMeals:           []string{},
		ValidDays:           []Day{},
		PositionAssignments: map[string]string{},
	}
}

// Runner solves batch requests.
type Runner struct {
	logger *zap.Logger
	solver lp.Solver
	params Params
}

// NewRunner constructs a Runner. A nil solver selects the simplex backend.
func NewRunner(logger *zap.Logger, solver lp.Solver, params Params) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid combination parameters: %w", err)
	}
	if solver == nil {
		solver = lp.NewSimplex(logger)
	}
	return &Runner{logger: logger, solver: solver, params: params}, nil
}

// Solve builds and solves the batch program for in. Errors are reserved for
// invalid input and solver runtime failures.
func (r *Runner) Solve(in Input) (Result, error) {
	meals, err := in.IngredientMacros.Apply(in.Meals)
	if err != nil {
		return Result{}, err
	}
	if err := checkNames(meals); err != nil {
		return Result{}, err
	}
	if in.MealsPerDay < 1 || in.MealsPerDay > len(meals) {
		return Result{}, fmt.Errorf("choosing %d of %d meals: %w", in.MealsPerDay, len(meals), ErrNoCombinations)
	}
	combos, err := Enumerate(len(meals), in.MealsPerDay, r.params.MaxCombinations)
	if err != nil {
		return Result{}, err
	}

	r.logger.Info("starting combination solve",
		zap.String("op", "combination.Solve"),
		zap.Int("meals", len(meals)),
		zap.Int("mealsPerDay", in.MealsPerDay),
		zap.Int("combinations", len(combos)),
		zap.Float64("targetCalories", in.Targets.Calories),
		zap.Float64("targetProtein", in.Targets.Protein),
	)

	model := r.build(meals, combos, in.MealsPerDay, in.Targets)
	sol, err := r.solver.Solve(model.program)
	if err != nil {
		return Result{}, fmt.Errorf("solving combinations: %w", err)
	}
	if sol.Status != lp.StatusOptimal {
		r.logger.Warn("combination solve did not reach an optimum",
			zap.String("op", "combination.Solve"),
			zap.String("status", sol.Describe()),
			zap.Int("nodes", sol.Nodes),
		)
		return emptyResult(sol.Status.String()), nil
	}

	result := model.decode(sol)
	r.logger.Info("combination solve finished",
		zap.String("op", "combination.Solve"),
		zap.Float64("objective", result.Objective),
		zap.Int("validCombinations", len(result.ValidDays)),
		zap.Strings("usedMeals", result.UsedMeals),
		zap.Int("nodes", sol.Nodes),
	)
	return result, nil
}

// Enumerate lists every k-subset of n indices in lexicographic order.
func Enumerate(n, k, limit int) ([][]int, error) {
	if k < 1 || k > n {
		return nil, fmt.Errorf("choosing %d of %d: %w", k, n, ErrNoCombinations)
	}
	if count := binomial(n, k); count > float64(limit) {
		return nil, fmt.Errorf("%.0f combinations exceed the limit of %d: %w", count, limit, ErrTooManyCombinations)
	}

	var combos [][]int
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		combos = append(combos, append([]int(nil), idx...))
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return combos, nil
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

func binomial(n, k int) float64 {
	if k > n-k {
		k = n - k
	}
	out := 1.0
	for i := 1; i <= k; i++ {
		out = out * float64(n-k+i) / float64(i)
	}
	return math.Round(out)
}

func checkNames(meals []nutrition.Meal) error {
	seen := make(map[string]bool, len(meals))
	for _, meal := range meals {
		name := mealKey(meal)
		if seen[name] {
			return fmt.Errorf("%q: %w", name, ErrDuplicateMeal)
		}
		seen[name] = true
	}
	return nil
}

// mealKey names a meal in results.
func mealKey(meal nutrition.Meal) string {
	if meal.Name != "" {
		return meal.Name
	}
	return meal.ID
}
