package validation

import (
	"math"
	"testing"
)

func TestValidateTargets(t *testing.T) {
	tests := []struct {
		name      string
		calories  float64
		protein   float64
		expectErr bool
	}{
		{name: "Valid targets", calories: 2000, protein: 150},
		{name: "Zero protein allowed", calories: 2000, protein: 0},
		{name: "Zero calories", calories: 0, protein: 150, expectErr: true},
		{name: "Negative protein", calories: 2000, protein: -1, expectErr: true},
		{name: "NaN calories", calories: math.NaN(), protein: 150, expectErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTargets(tt.calories, tt.protein)
			if (err != nil) != tt.expectErr {
				t.Errorf("ValidateTargets(%v, %v) error = %v, expectErr %v", tt.calories, tt.protein, err, tt.expectErr)
			}
		})
	}
}

func TestValidateToleranceAndShare(t *testing.T) {
	if err := ValidateTolerance("calorie upper", 0); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateTolerance("calorie upper", -5); err == nil {
		t.Error("expected error for negative tolerance")
	}
	if err := ValidateShare("main protein share", 0.5); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateShare("main protein share", 1.5); err == nil {
		t.Error("expected error for share above 1")
	}
}

func TestValidateMealsPerDay(t *testing.T) {
	tests := []struct {
		name        string
		mealsPerDay int
		meals       int
		expectErr   bool
	}{
		{name: "Within range", mealsPerDay: 3, meals: 5},
		{name: "All meals", mealsPerDay: 5, meals: 5},
		{name: "Zero", mealsPerDay: 0, meals: 5, expectErr: true},
		{name: "Too many", mealsPerDay: 6, meals: 5, expectErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMealsPerDay(tt.mealsPerDay, tt.meals)
			if (err != nil) != tt.expectErr {
				t.Errorf("ValidateMealsPerDay(%d, %d) error = %v, expectErr %v", tt.mealsPerDay, tt.meals, err, tt.expectErr)
			}
		})
	}
}

func TestValidateUniqueMealIDs(t *testing.T) {
	if err := ValidateUniqueMealIDs([]string{"a", "b"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateUniqueMealIDs([]string{"a", "a"}); err == nil {
		t.Error("expected duplicate error")
	}
	if err := ValidateUniqueMealIDs([]string{""}); err == nil {
		t.Error("expected empty id error")
	}
}
