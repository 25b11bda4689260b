package nutrition

// DayPortionResult is the outcome of portioning one day.
type DayPortionResult struct {
	Meals       []PortionedMeal `json:"meals" yaml:"meals"`
	DayCalories float64         `json:"dayCalories" yaml:"dayCalories"`
	DayProtein  float64         `json:"dayProtein" yaml:"dayProtein"`
	Valid       bool            `json:"valid" yaml:"valid"`
}

// InvalidDay is the empty result used for infeasible days.
func InvalidDay() DayPortionResult {
	return DayPortionResult{Meals: []PortionedMeal{}}
}

// OrderingResult is the outcome of walking one ordering of days.
type OrderingResult struct {
	ValidDays      int               `json:"validDays" yaml:"validDays"`
	TotalDays      int               `json:"totalDays" yaml:"totalDays"`
	ValidDayPlans  [][]PortionedMeal `json:"validDayPlans" yaml:"validDayPlans"`
	DroppedDays    []int             `json:"droppedDays,omitempty" yaml:"droppedDays,omitempty"`
	PortionedMeals LockedPortions    `json:"portionedMeals" yaml:"portionedMeals"`
}

// Ordering is a named list of days, each a list of meal ids or names.
type Ordering struct {
	Name string     `json:"name" yaml:"name"`
	Days [][]string `json:"days" yaml:"days"`
}

// PlanResult pairs an ordering name with its result.
type PlanResult struct {
	Name   string         `json:"name" yaml:"name"`
	Result OrderingResult `json:"result" yaml:"result"`
}

// IndexMeals keys meals by id and by name. Ids win on collision.
func IndexMeals(meals []Meal) map[string]Meal {
	index := make(map[string]Meal, 2*len(meals))
	for _, meal := range meals {
		if meal.Name != "" {
			index[meal.Name] = meal
		}
	}
	for _, meal := range meals {
		if meal.ID != "" {
			index[meal.ID] = meal
		}
	}
	return index
}
