// Package schedule turns solved orderings into calendar-ready day plans.
package schedule

import (
	"fmt"
	"math"
	"time"

	"github.com/iwvelando/portion-planner/pkg/nutrition"
)

const (
	// ClockLayout is the format of meal times.
	ClockLayout = "15:04"

	// FallbackMealTime is used when a slot has no default time.
	FallbackMealTime = "12:00"

	firstMealMinute = 7 * 60
	lastMealMinute  = 19 * 60
)

var fixedMealTimes = map[int][]string{
	1: {"15:00"},
	2: {"11:00", "17:00"},
	3: {"07:00", "12:00", "18:00"},
	4: {"07:00", "11:30", "15:00", "19:00"},
}

// ScheduledMeal is a portioned meal with its time of day.
type ScheduledMeal struct {
	nutrition.PortionedMeal `yaml:",inline"`
	MealTime                string `json:"mealTime" yaml:"mealTime"`
}

// DayPlan is one solved day ready for a calendar.
type DayPlan struct {
	ID          string          `json:"id" yaml:"id"`
	PlanNumber  int             `json:"planNumber" yaml:"planNumber"`
	Meals       []ScheduledMeal `json:"meals" yaml:"meals"`
	DayCalories float64         `json:"dayCalories" yaml:"dayCalories"`
	DayProtein  float64         `json:"dayProtein" yaml:"dayProtein"`
	IsCheatDay  bool            `json:"isCheatDay" yaml:"isCheatDay"`
}

// MealTimes returns the default times for a day with count meals. Five or
// more meals are spread evenly between 07:00 and 19:00.
func MealTimes(count int) []string {
	if count <= 0 {
		return nil
	}
	if fixed, ok := fixedMealTimes[count]; ok {
		return append([]string(nil), fixed...)
	}

	interval := float64(lastMealMinute-firstMealMinute) / float64(count-1)
	times := make([]string, count)
	for i := range times {
		minutes := firstMealMinute + int(math.Round(float64(i)*interval))
		times[i] = clock(minutes)
	}
	return times
}

func clock(minutes int) string {
	return time.Date(0, 1, 1, 0, minutes, 0, 0, time.UTC).Format(ClockLayout)
}

// ParseMealTime parses an HH:MM meal time into minutes after midnight.
func ParseMealTime(value string) (int, error) {
	t, err := time.Parse(ClockLayout, value)
	if err != nil {
		return 0, fmt.Errorf("invalid meal time %q: %w", value, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Build assembles the valid days of one ordering. planNumber is 1-based and
// appears in every day id as plan<N>-day<M>.
func Build(planNumber int, result nutrition.OrderingResult) []DayPlan {
	plans := make([]DayPlan, 0, len(result.ValidDayPlans))
	for i, meals := range result.ValidDayPlans {
		times := MealTimes(len(meals))
		day := DayPlan{
			ID:         fmt.Sprintf("plan%d-day%d", planNumber, i+1),
			PlanNumber: i + 1,
			Meals:      make([]ScheduledMeal, 0, len(meals)),
		}
		for idx, meal := range meals {
			mealTime := FallbackMealTime
			if idx < len(times) {
				mealTime = times[idx]
			}
			day.Meals = append(day.Meals, ScheduledMeal{PortionedMeal: meal, MealTime: mealTime})
			day.DayCalories += meal.TotalCalories
			day.DayProtein += meal.TotalProtein
		}
		plans = append(plans, day)
	}
	return plans
}

// BuildAll assembles the day plans of every ordering, numbered in order.
func BuildAll(results []nutrition.PlanResult) [][]DayPlan {
	all := make([][]DayPlan, len(results))
	for i, plan := range results {
		all[i] = Build(i+1, plan.Result)
	}
	return all
}
