package portion

import (
	"fmt"
	"math"

	"github.com/iwvelando/portion-planner/pkg/lp"
	"github.com/iwvelando/portion-planner/pkg/nutrition"
	"go.uber.org/zap"
)

// MacroSplit sums a meal's reference calories and protein separately for
// its main-protein ingredients and everything else.
type MacroSplit struct {
	MainCalories    float64
	MainProtein     float64
	NonMainCalories float64
	NonMainProtein  float64
	HasMain         bool
	Skipped         []string
}

// SplitMacros groups a meal's ingredients. Ingredients without a positive
// reference gram amount contribute nothing and are listed in Skipped.
func SplitMacros(meal nutrition.Meal) MacroSplit {
	var split MacroSplit
	for _, ing := range meal.Ingredients {
		if ing.Grams <= 0 {
			split.Skipped = append(split.Skipped, ing.Name)
			continue
		}
		cal := ing.Grams * ing.CalorieRate()
		prot := ing.Grams * ing.ProteinRate()
		if ing.MainProtein {
			split.HasMain = true
			split.MainCalories += cal
			split.MainProtein += prot
		} else {
			split.NonMainCalories += cal
			split.NonMainProtein += prot
		}
	}
	return split
}

// mealVars records the columns owned by one unlocked meal. mainProtein is -1
// when the meal has no main-protein ingredient.
type mealVars struct {
	scale       int
	mainProtein int
}

// dayModel is the program for the unlocked meals of one day together with
// the registry needed to read the solution back. counts holds how often
// each meal appears in the day.
type dayModel struct {
	program *lp.Program
	meals   []nutrition.Meal
	counts  []int
	vars    []mealVars
	splits  []MacroSplit
}

func (d *dayModel) count(m int) float64 {
	if m < len(d.counts) && d.counts[m] > 0 {
		return float64(d.counts[m])
	}
	return 1
}

// terms returns the calorie and protein terms of meal m.
func (d *dayModel) terms(m int) (calories, protein []lp.Term) {
	v := d.vars[m]
	s := d.splits[m]
	calories = []lp.Term{{Col: v.scale, Coef: s.NonMainCalories}}
	protein = []lp.Term{{Col: v.scale, Coef: s.NonMainProtein}}
	if v.mainProtein >= 0 {
		calories = append(calories, lp.Term{Col: v.mainProtein, Coef: s.MainCalories})
		protein = append(protein, lp.Term{Col: v.mainProtein, Coef: s.MainProtein})
	}
	return calories, protein
}

// buildDayModel translates the distinct unlocked meals of a day into a
// program against the remaining targets. A nil counts means every meal
// appears once.
func (r *Runner) buildDayModel(meals []nutrition.Meal, counts []int, remaining nutrition.Targets) *dayModel {
	d := &dayModel{
		program: lp.NewProgram("day", lp.Minimize),
		meals:   meals,
		counts:  counts,
		vars:    make([]mealVars, len(meals)),
		splits:  make([]MacroSplit, len(meals)),
	}

	for m, meal := range meals {
		split := SplitMacros(meal)
		for _, name := range split.Skipped {
			r.logger.Warn("skipping ingredient without a positive reference amount",
				zap.String("op", "portion.buildDayModel"),
				zap.String("meal", meal.Name),
				zap.String("ingredient", name),
			)
		}
		d.splits[m] = split

		v := mealVars{mainProtein: -1}
		v.scale = d.program.AddVariable(fmt.Sprintf("s_%d", m), 0, r.params.ScaleMax)
		d.program.SetCost(v.scale, 1)
		if split.HasMain {
			v.mainProtein = d.program.AddVariable(fmt.Sprintf("mp_%d", m), 0, r.params.MainProteinScaleMax)
			d.program.SetCost(v.mainProtein, 1)
		}
		d.vars[m] = v
	}

	var dayCalories, dayProtein []lp.Term
	occurrences := 0
	for m := range meals {
		cal, prot := d.terms(m)
		n := d.count(m)
		for i := range cal {
			dayCalories = append(dayCalories, lp.Term{Col: cal[i].Col, Coef: n * cal[i].Coef})
		}
		for i := range prot {
			dayProtein = append(dayProtein, lp.Term{Col: prot[i].Col, Coef: n * prot[i].Coef})
		}
		occurrences += int(n)
	}

	tol := r.params.Tolerances
	calWindow := tol.CalorieWindow(remaining.Calories)
	protWindow := tol.ProteinWindow(remaining.Protein)
	d.program.AddConstraint("day_calories", lp.Between(calWindow.Lower, calWindow.Upper), dayCalories...)
	d.program.AddConstraint("day_protein", lp.Between(protWindow.Lower, protWindow.Upper), dayProtein...)

	lowerShare, upperShare := r.params.shareBounds(occurrences)
	for m := range meals {
		cal, _ := d.terms(m)
		d.program.AddConstraint(fmt.Sprintf("meal_%d_calorie_share", m),
			lp.Between(lowerShare*remaining.Calories, upperShare*remaining.Calories), cal...)
	}

	ratio := r.params.MainProteinRatio()
	for m := range meals {
		v := d.vars[m]
		if v.mainProtein < 0 {
			continue
		}
		s := d.splits[m]
		d.program.AddConstraint(fmt.Sprintf("meal_%d_main_protein_ratio", m), lp.AtLeast(0),
			lp.Term{Col: v.mainProtein, Coef: s.MainProtein},
			lp.Term{Col: v.scale, Coef: -ratio * s.NonMainProtein},
		)
	}

	return d
}

// portion reads the solved multipliers back into portioned meals.
func (d *dayModel) portion(sol lp.Solution) []nutrition.PortionedMeal {
	out := make([]nutrition.PortionedMeal, len(d.meals))
	for m, meal := range d.meals {
		v := d.vars[m]
		scale := clampNonNegative(sol.Value(v.scale))
		mainScale := 0.0
		if v.mainProtein >= 0 {
			mainScale = clampNonNegative(sol.Value(v.mainProtein))
		}
		ings := make([]nutrition.PortionedIngredient, len(meal.Ingredients))
		for i, ing := range meal.Ingredients {
			grams := 0.0
			if ing.Grams > 0 {
				if ing.MainProtein {
					grams = ing.Grams * mainScale
				} else {
					grams = ing.Grams * scale
				}
			}
			ings[i] = ing.Portion(grams)
		}
		out[m] = nutrition.NewPortionedMeal(meal, ings)
	}
	return out
}

func clampNonNegative(v float64) float64 {
	return math.Max(0, v)
}
