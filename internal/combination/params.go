// Package combination searches every meal combination of a fixed size in a
// single mixed-integer program, choosing which meals to cook, the slot each
// one fills and the grams of their main-protein ingredients so that as many
// combinations as possible hit the day's targets.
package combination

import (
	"fmt"

	"github.com/iwvelando/portion-planner/pkg/constants"
	"github.com/iwvelando/portion-planner/pkg/nutrition"
)

// Params holds the tunable constants of the batch model.
type Params struct {
	Tolerances          nutrition.Tolerances
	MainProteinShare    float64
	PortionMin          float64
	PortionMax          float64
	MealCalorieMinShare float64
	MealCalorieMaxShare float64
	MealProteinMinShare float64
	MealProteinMaxShare float64
	MaxCombinations     int
}

// DefaultParams returns the production defaults.
func DefaultParams() Params {
	return Params{
		Tolerances:          nutrition.DefaultTolerances(),
		MainProteinShare:    constants.DefaultMainProteinShare,
		PortionMin:          constants.DefaultPortionMinGrams,
		PortionMax:          constants.DefaultPortionMaxGrams,
		MealCalorieMinShare: constants.DefaultMealCalorieMinShare,
		MealCalorieMaxShare: constants.DefaultMealCalorieMaxShare,
		MealProteinMinShare: constants.DefaultMealProteinMinShare,
		MealProteinMaxShare: constants.DefaultMealProteinMaxShare,
		MaxCombinations:     constants.DefaultMaxCombinations,
	}
}

// Validate checks that the parameters describe a usable model.
func (p Params) Validate() error {
	t := p.Tolerances
	if t.CalorieUpper < 0 || t.CalorieLower < 0 || t.ProteinUpper < 0 || t.ProteinLower < 0 {
		return fmt.Errorf("tolerances must be non-negative, got %+v", t)
	}
	if p.MainProteinShare < 0 || p.MainProteinShare >= 1 {
		return fmt.Errorf("main protein share must be within [0, 1), got %v", p.MainProteinShare)
	}
	if p.PortionMin < 0 || p.PortionMax <= 0 || p.PortionMin > p.PortionMax {
		return fmt.Errorf("portion range [%v, %v] is invalid", p.PortionMin, p.PortionMax)
	}
	if p.MealCalorieMinShare < 0 || p.MealCalorieMinShare > p.MealCalorieMaxShare {
		return fmt.Errorf("meal calorie share range [%v, %v] is invalid", p.MealCalorieMinShare, p.MealCalorieMaxShare)
	}
	if p.MealProteinMinShare < 0 || p.MealProteinMinShare > p.MealProteinMaxShare || p.MealProteinMaxShare > 1 {
		return fmt.Errorf("meal protein share range [%v, %v] is invalid", p.MealProteinMinShare, p.MealProteinMaxShare)
	}
	if p.MaxCombinations <= 0 {
		return fmt.Errorf("max combinations must be positive, got %d", p.MaxCombinations)
	}
	return nil
}

func (p Params) mainProteinRatio() float64 {
	return p.MainProteinShare / (1 - p.MainProteinShare)
}
