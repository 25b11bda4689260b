package combination

import (
	"fmt"
	"math"
	"strconv"

	"github.com/iwvelando/portion-planner/pkg/constants"
	"github.com/iwvelando/portion-planner/pkg/lp"
	"github.com/iwvelando/portion-planner/pkg/mathutil"
	"github.com/iwvelando/portion-planner/pkg/nutrition"
	"go.uber.org/zap"
)

// portionCol ties a scalable ingredient to its column.
type portionCol struct {
	ingredient int
	col        int
}

// mealCols records the columns owned by one meal.
type mealCols struct {
	used      int
	positions []int
	portions  []portionCol
}

// mealMacros holds a meal's fixed contribution when it is used.
type mealMacros struct {
	fixedCalories float64
	fixedProtein  float64
	// The ranges bound the meal's macros over every feasible portion.
	minCalories float64
	maxCalories float64
	minProtein  float64
	maxProtein  float64
}

// usable reports whether some portion keeps the meal inside its calorie
// window.
func (mm mealMacros) usable() bool {
	return mm.minCalories <= mm.maxCalories+constants.AcceptanceEpsilon
}

type batchModel struct {
	logger  *zap.Logger
	program *lp.Program
	meals   []nutrition.Meal
	combos  [][]int
	cols    []mealCols
	macros  []mealMacros
	valid   []int
}

// mealTerms returns the calorie and protein terms of meal m with the fixed
// part carried by its used column.
func (b *batchModel) mealTerms(m int) (calories, protein []lp.Term) {
	meal := b.meals[m]
	c := b.cols[m]
	for _, pc := range c.portions {
		ing := meal.Ingredients[pc.ingredient]
		calories = append(calories, lp.Term{Col: pc.col, Coef: ing.CalorieRate()})
		protein = append(protein, lp.Term{Col: pc.col, Coef: ing.ProteinRate()})
	}
	calories = append(calories, lp.Term{Col: c.used, Coef: b.macros[m].fixedCalories})
	protein = append(protein, lp.Term{Col: c.used, Coef: b.macros[m].fixedProtein})
	return calories, protein
}

func (r *Runner) build(meals []nutrition.Meal, combos [][]int, mealsPerDay int, targets nutrition.Targets) *batchModel {
	p := r.params
	b := &batchModel{
		logger:  r.logger,
		program: lp.NewProgram("combinations", lp.Maximize),
		meals:   meals,
		combos:  combos,
		cols:    make([]mealCols, len(meals)),
		macros:  make([]mealMacros, len(meals)),
		valid:   make([]int, len(combos)),
	}

	avgMealCalories := targets.Calories / float64(mealsPerDay)
	mealMinCalories := avgMealCalories * p.MealCalorieMinShare
	mealMaxCalories := avgMealCalories * p.MealCalorieMaxShare

	for m, meal := range meals {
		c := mealCols{positions: make([]int, mealsPerDay)}
		var mm mealMacros
		var scalableCalories, scalableProtein, leastCalories, leastProtein float64
		for i, ing := range meal.Ingredients {
			if ing.MainProtein {
				col := b.program.AddVariable(fmt.Sprintf("portion_%d_%d", m, i), 0, math.Inf(1))
				c.portions = append(c.portions, portionCol{ingredient: i, col: col})
				scalableCalories += ing.CalorieRate() * p.PortionMax
				scalableProtein += ing.ProteinRate() * p.PortionMax
				leastCalories += ing.CalorieRate() * p.PortionMin
				leastProtein += ing.ProteinRate() * p.PortionMin
				continue
			}
			if ing.Grams <= 0 {
				r.logger.Warn("fixed ingredient without a positive amount",
					zap.String("op", "combination.build"),
					zap.String("meal", meal.Name),
					zap.String("ingredient", ing.Name),
				)
				continue
			}
			mm.fixedCalories += ing.Grams * ing.CalorieRate()
			mm.fixedProtein += ing.Grams * ing.ProteinRate()
		}
		mm.minCalories = math.Max(mm.fixedCalories+leastCalories, mealMinCalories)
		mm.maxCalories = math.Min(mm.fixedCalories+scalableCalories, mealMaxCalories)
		mm.minProtein = mm.fixedProtein + leastProtein
		mm.maxProtein = mm.fixedProtein + scalableProtein
		c.used = b.program.AddBinary(fmt.Sprintf("used_%d", m))
		for pos := range c.positions {
			c.positions[pos] = b.program.AddBinary(fmt.Sprintf("position_%d_%d", m, pos))
		}
		b.cols[m] = c
		b.macros[m] = mm

		r.logger.Debug("meal prepared",
			zap.String("op", "combination.build"),
			zap.String("meal", meal.Name),
			zap.Int("scalable", len(c.portions)),
			zap.Float64("fixedCalories", mm.fixedCalories),
			zap.Float64("fixedProtein", mm.fixedProtein),
		)
	}

	for ci := range combos {
		b.valid[ci] = b.program.AddBinary(fmt.Sprintf("valid_%d", ci))
		b.program.SetCost(b.valid[ci], 1)
	}

	b.presolve(dayWindows(p, targets))

	ratio := p.mainProteinRatio()
	for m := range meals {
		c := b.cols[m]
		mm := b.macros[m]

		for _, pc := range c.portions {
			b.program.AddConstraint(fmt.Sprintf("portion_upper_%d_%d", m, pc.ingredient), lp.AtMost(0),
				lp.Term{Col: pc.col, Coef: 1}, lp.Term{Col: c.used, Coef: -p.PortionMax})
			b.program.AddConstraint(fmt.Sprintf("portion_lower_%d_%d", m, pc.ingredient), lp.AtLeast(0),
				lp.Term{Col: pc.col, Coef: 1}, lp.Term{Col: c.used, Coef: -p.PortionMin})
		}

		single := make([]lp.Term, 0, len(c.positions))
		usedIff := []lp.Term{{Col: c.used, Coef: 1}}
		for _, col := range c.positions {
			single = append(single, lp.Term{Col: col, Coef: 1})
			usedIff = append(usedIff, lp.Term{Col: col, Coef: -1})
		}
		b.program.AddConstraint(fmt.Sprintf("single_position_%d", m), lp.AtMost(1), single...)
		b.program.AddConstraint(fmt.Sprintf("used_iff_positioned_%d", m), lp.Fixed(0), usedIff...)

		// Calorie window while used: fixed*used + sum(rate*portion) in [min, max]*used.
		calLower := []lp.Term{{Col: c.used, Coef: mm.fixedCalories - mealMinCalories}}
		calUpper := []lp.Term{{Col: c.used, Coef: mm.fixedCalories - mealMaxCalories}}
		protLower := []lp.Term{{Col: c.used, Coef: constants.CaloriesPerGramProtein*mm.fixedProtein - p.MealProteinMinShare*mm.fixedCalories}}
		protUpper := []lp.Term{{Col: c.used, Coef: constants.CaloriesPerGramProtein*mm.fixedProtein - p.MealProteinMaxShare*mm.fixedCalories}}
		mainRatio := []lp.Term{{Col: c.used, Coef: -ratio * mm.fixedProtein}}
		for _, pc := range c.portions {
			ing := b.meals[m].Ingredients[pc.ingredient]
			cr, pr := ing.CalorieRate(), ing.ProteinRate()
			calLower = append(calLower, lp.Term{Col: pc.col, Coef: cr})
			calUpper = append(calUpper, lp.Term{Col: pc.col, Coef: cr})
			protLower = append(protLower, lp.Term{Col: pc.col, Coef: constants.CaloriesPerGramProtein*pr - p.MealProteinMinShare*cr})
			protUpper = append(protUpper, lp.Term{Col: pc.col, Coef: constants.CaloriesPerGramProtein*pr - p.MealProteinMaxShare*cr})
			mainRatio = append(mainRatio, lp.Term{Col: pc.col, Coef: pr})
		}
		b.program.AddConstraint(fmt.Sprintf("meal_calories_lower_%d", m), lp.AtLeast(0), calLower...)
		b.program.AddConstraint(fmt.Sprintf("meal_calories_upper_%d", m), lp.AtMost(0), calUpper...)
		b.program.AddConstraint(fmt.Sprintf("meal_protein_share_lower_%d", m), lp.AtLeast(0), protLower...)
		b.program.AddConstraint(fmt.Sprintf("meal_protein_share_upper_%d", m), lp.AtMost(0), protUpper...)
		if len(c.portions) > 0 {
			b.program.AddConstraint(fmt.Sprintf("meal_main_protein_ratio_%d", m), lp.AtLeast(0), mainRatio...)
		}
	}

	calWindow, protWindow := dayWindows(p, targets)
	for ci, combo := range combos {
		valid := b.valid[ci]
		var calories, protein []lp.Term
		var maxCalories, maxProtein float64
		for pos, m := range combo {
			b.program.AddConstraint(fmt.Sprintf("combination_position_%d_%d", ci, pos), lp.AtMost(0),
				lp.Term{Col: valid, Coef: 1}, lp.Term{Col: b.cols[m].positions[pos], Coef: -1})
			cal, prot := b.mealTerms(m)
			calories = append(calories, cal...)
			protein = append(protein, prot...)
			maxCalories += math.Max(b.macros[m].maxCalories, 0)
			maxProtein += b.macros[m].maxProtein
		}

		// Lower windows need no relaxation since totals are non-negative.
		b.program.AddConstraint(fmt.Sprintf("combination_calories_lower_%d", ci), lp.AtLeast(0),
			append(calories, lp.Term{Col: valid, Coef: -calWindow.Lower})...)
		b.program.AddConstraint(fmt.Sprintf("combination_protein_lower_%d", ci), lp.AtLeast(0),
			append(protein, lp.Term{Col: valid, Coef: -protWindow.Lower})...)

		calM := math.Max(maxCalories-calWindow.Upper, 0)
		protM := math.Max(maxProtein-protWindow.Upper, 0)
		b.program.AddConstraint(fmt.Sprintf("combination_calories_upper_%d", ci), lp.AtMost(calWindow.Upper+calM),
			append(calories, lp.Term{Col: valid, Coef: calM})...)
		b.program.AddConstraint(fmt.Sprintf("combination_protein_upper_%d", ci), lp.AtMost(protWindow.Upper+protM),
			append(protein, lp.Term{Col: valid, Coef: protM})...)
	}

	r.logger.Debug("batch program built",
		zap.String("op", "combination.build"),
		zap.Int("variables", b.program.NumVariables()),
		zap.Int("constraints", b.program.NumConstraints()),
	)
	return b
}

func dayWindows(p Params, targets nutrition.Targets) (nutrition.Window, nutrition.Window) {
	return p.Tolerances.CalorieWindow(targets.Calories), p.Tolerances.ProteinWindow(targets.Protein)
}

// presolve pins to zero the columns of meals no portion can make usable and
// of combinations whose macro ranges cannot meet the day windows.
func (b *batchModel) presolve(calWindow, protWindow nutrition.Window) {
	for m, mm := range b.macros {
		if mm.usable() {
			continue
		}
		b.program.SetBounds(b.cols[m].used, 0, 0)
		for _, col := range b.cols[m].positions {
			b.program.SetBounds(col, 0, 0)
		}
	}
	pinned := 0
	for ci, combo := range b.combos {
		var minCal, maxCal, minProt, maxProt float64
		usable := true
		for _, m := range combo {
			mm := b.macros[m]
			usable = usable && mm.usable()
			minCal += mm.minCalories
			maxCal += mm.maxCalories
			minProt += mm.minProtein
			maxProt += mm.maxProtein
		}
		eps := constants.AcceptanceEpsilon
		if usable && minCal <= calWindow.Upper+eps && maxCal >= calWindow.Lower-eps &&
			minProt <= protWindow.Upper+eps && maxProt >= protWindow.Lower-eps {
			continue
		}
		b.program.SetBounds(b.valid[ci], 0, 0)
		pinned++
	}
	if pinned > 0 {
		b.logger.Debug("combinations ruled out before solving",
			zap.String("op", "combination.presolve"),
			zap.Int("pinned", pinned),
			zap.Int("combinations", len(b.combos)),
		)
	}
}

func (b *batchModel) selected(sol lp.Solution, col int) bool {
	return sol.Value(col) > constants.SelectionThreshold
}

// decode reads an optimal solution back into a Result.
func (b *batchModel) decode(sol lp.Solution) Result {
	out := emptyResult(sol.Status.String())
	out.Objective = math.Round(sol.Objective)

	positions := make(map[int]int, len(b.meals))
	for m, meal := range b.meals {
		c := b.cols[m]
		if !b.selected(sol, c.used) {
			continue
		}
		out.UsedMeals = append(out.UsedMeals, mealKey(meal))
		for pos, col := range c.positions {
			if b.selected(sol, col) {
				positions[m] = pos
				out.PositionAssignments[strconv.Itoa(pos)] = mealKey(meal)
				break
			}
		}
	}

	for ci, combo := range b.combos {
		if !b.selected(sol, b.valid[ci]) {
			continue
		}
		day := Day{
			Meals:              make([]string, 0, len(combo)),
			Positions:          make(map[string]*int, len(combo)),
			MealsDetailed:      make(map[string]MealDetail, len(combo)),
			IngredientPortions: make(map[string]map[string]IngredientPortion, len(combo)),
		}
		var totalCalories, totalProtein float64
		for _, m := range combo {
			name := mealKey(b.meals[m])
			day.Meals = append(day.Meals, name)
			if pos, ok := positions[m]; ok {
				pos := pos
				day.Positions[name] = &pos
			} else {
				day.Positions[name] = nil
			}

			detail, portions, calories, protein := b.mealDetail(m, sol)
			day.MealsDetailed[name] = detail
			day.IngredientPortions[name] = portions
			totalCalories += calories
			totalProtein += protein
		}
		day.Totals = Totals{Calories: mathutil.Round(totalCalories), Protein: mathutil.Round(totalProtein)}
		out.ValidDays = append(out.ValidDays, day)
	}
	return out
}

// mealDetail decodes meal m. Fixed ingredients appear at their reference
// grams; scalable ingredients the solver left empty are omitted.
func (b *batchModel) mealDetail(m int, sol lp.Solution) (MealDetail, map[string]IngredientPortion, float64, float64) {
	meal := b.meals[m]
	portionOf := make(map[int]int, len(b.cols[m].portions))
	for _, pc := range b.cols[m].portions {
		portionOf[pc.ingredient] = pc.col
	}

	detail := MealDetail{Ingredients: []IngredientPortion{}}
	portions := make(map[string]IngredientPortion)
	var calories, protein float64
	for i, ing := range meal.Ingredients {
		grams := ing.Grams
		if col, ok := portionOf[i]; ok {
			grams = sol.Value(col)
			if grams <= constants.MinReportedGrams {
				continue
			}
		} else if grams <= 0 {
			continue
		}
		cal := grams * ing.CalorieRate()
		prot := grams * ing.ProteinRate()
		calories += cal
		protein += prot
		line := IngredientPortion{
			Name:     ing.Name,
			Grams:    mathutil.Round(grams),
			Calories: mathutil.Round(cal),
			Protein:  mathutil.Round(prot),
		}
		detail.Ingredients = append(detail.Ingredients, line)
		portions[ing.Name] = line
	}
	detail.TotalCalories = mathutil.Round(calories)
	detail.TotalProtein = mathutil.Round(protein)
	return detail, portions, calories, protein
}
