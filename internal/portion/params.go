// Package portion scales meal ingredients so each day lands inside its
// calorie and protein windows, and walks orderings of days while keeping
// every meal's portion fixed once it has been solved.
package portion

import (
	"fmt"

	"github.com/iwvelando/portion-planner/pkg/constants"
	"github.com/iwvelando/portion-planner/pkg/nutrition"
)

// Params holds the tunable constants of the day model.
type Params struct {
	Tolerances          nutrition.Tolerances
	MealShareTolerance  float64
	MainProteinShare    float64
	ScaleMax            float64
	MainProteinScaleMax float64
}

// DefaultParams returns the production defaults.
func DefaultParams() Params {
	return Params{
		Tolerances:          nutrition.DefaultTolerances(),
		MealShareTolerance:  constants.DefaultMealShareTolerance,
		MainProteinShare:    constants.DefaultMainProteinShare,
		ScaleMax:            constants.DefaultScaleMax,
		MainProteinScaleMax: constants.DefaultMainProteinScaleMax,
	}
}

// Validate checks that the parameters describe a usable model.
func (p Params) Validate() error {
	t := p.Tolerances
	if t.CalorieUpper < 0 || t.CalorieLower < 0 || t.ProteinUpper < 0 || t.ProteinLower < 0 {
		return fmt.Errorf("tolerances must be non-negative, got %+v", t)
	}
	if p.MealShareTolerance < 0 || p.MealShareTolerance > 1 {
		return fmt.Errorf("meal share tolerance must be within [0, 1], got %v", p.MealShareTolerance)
	}
	if p.MainProteinShare < 0 || p.MainProteinShare >= 1 {
		return fmt.Errorf("main protein share must be within [0, 1), got %v", p.MainProteinShare)
	}
	if p.ScaleMax <= 0 {
		return fmt.Errorf("scale max must be positive, got %v", p.ScaleMax)
	}
	if p.MainProteinScaleMax <= 0 {
		return fmt.Errorf("main protein scale max must be positive, got %v", p.MainProteinScaleMax)
	}
	return nil
}

// MainProteinRatio is p/(1-p): the main-protein protein required per gram of
// other protein.
func (p Params) MainProteinRatio() float64 {
	return p.MainProteinShare / (1 - p.MainProteinShare)
}

// shareBounds returns the per-meal calorie share window for n meals.
func (p Params) shareBounds(n int) (lower, upper float64) {
	base := 1 / float64(n)
	lower = base - p.MealShareTolerance
	if lower < 0 {
		lower = 0
	}
	upper = base + p.MealShareTolerance
	if upper > 1 {
		upper = 1
	}
	return lower, upper
}
