// Package config defines the data structures related to configuration and
// includes functions for loading, normalizing and validating the config.
package config

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/iwvelando/portion-planner/pkg/configprocessor"
	"github.com/iwvelando/portion-planner/pkg/constants"
	"github.com/iwvelando/portion-planner/pkg/validation"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for portion-planner.
type Configuration struct {
	Logging              LoggingConfig     `yaml:"logging,omitempty" mapstructure:"logging"`
	Output               OutputConfig      `yaml:"output,omitempty" mapstructure:"output"`
	Targets              TargetsConfig     `yaml:"targets" mapstructure:"targets"`
	MealsPerDay          int               `yaml:"mealsPerDay,omitempty" mapstructure:"mealsPerDay"`
	Tolerances           TolerancesConfig  `yaml:"tolerances,omitempty" mapstructure:"tolerances"`
	Constraints          ConstraintsConfig `yaml:"constraints,omitempty" mapstructure:"constraints"`
	Combination          CombinationConfig `yaml:"combination,omitempty" mapstructure:"combination"`
	Solver               SolverConfig      `yaml:"solver,omitempty" mapstructure:"solver"`
	IngredientMacros     []IngredientMacro `yaml:"ingredientMacros,omitempty" mapstructure:"ingredientMacros"`
	IngredientMacrosFile string            `yaml:"ingredientMacrosFile,omitempty" mapstructure:"ingredientMacrosFile"`
	Meals                []Meal            `yaml:"meals" mapstructure:"meals"`
	Orderings            []Ordering        `yaml:"orderings,omitempty" mapstructure:"orderings"`

	// baseDir resolves relative file references against the config file.
	baseDir string
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" mapstructure:"level"`           // debug, info, warn, error
	Format     string `yaml:"format,omitempty" mapstructure:"format"`         // json, console
	OutputFile string `yaml:"outputFile,omitempty" mapstructure:"outputFile"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty" mapstructure:"format"` // pretty, csv, json, yaml
}

// TargetsConfig holds the daily targets.
type TargetsConfig struct {
	Calories float64 `yaml:"calories" mapstructure:"calories"`
	Protein  float64 `yaml:"protein" mapstructure:"protein"`
}

// TolerancesConfig overrides the day window. Unset values take the defaults.
type TolerancesConfig struct {
	CalorieUpper *float64 `yaml:"calorieUpper,omitempty" mapstructure:"calorieUpper"`
	CalorieLower *float64 `yaml:"calorieLower,omitempty" mapstructure:"calorieLower"`
	ProteinUpper *float64 `yaml:"proteinUpper,omitempty" mapstructure:"proteinUpper"`
	ProteinLower *float64 `yaml:"proteinLower,omitempty" mapstructure:"proteinLower"`
}

// ConstraintsConfig overrides the day model constants.
type ConstraintsConfig struct {
	MealShareTolerance  *float64 `yaml:"mealShareTolerance,omitempty" mapstructure:"mealShareTolerance"`
	MainProteinShare    *float64 `yaml:"mainProteinShare,omitempty" mapstructure:"mainProteinShare"`
	ScaleMax            *float64 `yaml:"scaleMax,omitempty" mapstructure:"scaleMax"`
	MainProteinScaleMax *float64 `yaml:"mainProteinScaleMax,omitempty" mapstructure:"mainProteinScaleMax"`
}

// CombinationConfig overrides the batch model constants.
type CombinationConfig struct {
	PortionMin          *float64 `yaml:"portionMin,omitempty" mapstructure:"portionMin"`
	PortionMax          *float64 `yaml:"portionMax,omitempty" mapstructure:"portionMax"`
	MealCalorieMinShare *float64 `yaml:"mealCalorieMinShare,omitempty" mapstructure:"mealCalorieMinShare"`
	MealCalorieMaxShare *float64 `yaml:"mealCalorieMaxShare,omitempty" mapstructure:"mealCalorieMaxShare"`
	MealProteinMinShare *float64 `yaml:"mealProteinMinShare,omitempty" mapstructure:"mealProteinMinShare"`
	MealProteinMaxShare *float64 `yaml:"mealProteinMaxShare,omitempty" mapstructure:"mealProteinMaxShare"`
	MaxCombinations     *int     `yaml:"maxCombinations,omitempty" mapstructure:"maxCombinations"`
}

// SolverConfig overrides the LP backend settings.
type SolverConfig struct {
	Tolerance            *float64 `yaml:"tolerance,omitempty" mapstructure:"tolerance"`
	IntegralityTolerance *float64 `yaml:"integralityTolerance,omitempty" mapstructure:"integralityTolerance"`
	MaxNodes             *int     `yaml:"maxNodes,omitempty" mapstructure:"maxNodes"`
}

// IngredientMacro is one macro table row. The table is a list because viper
// lowercases map keys.
type IngredientMacro struct {
	Name            string  `yaml:"name" mapstructure:"name"`
	CaloriesPerGram float64 `yaml:"caloriesPerGram" mapstructure:"caloriesPerGram"`
	ProteinPerGram  float64 `yaml:"proteinPerGram" mapstructure:"proteinPerGram"`
}

// Meal is a meal template as written in the config file.
type Meal struct {
	ID          string       `yaml:"id" mapstructure:"id"`
	Name        string       `yaml:"name" mapstructure:"name"`
	Ingredients []Ingredient `yaml:"ingredients" mapstructure:"ingredients"`
}

// Ingredient is one line of a configured meal.
type Ingredient struct {
	Name            string  `yaml:"name" mapstructure:"name"`
	Grams           float64 `yaml:"grams" mapstructure:"grams"`
	Calories        float64 `yaml:"calories,omitempty" mapstructure:"calories"`
	Protein         float64 `yaml:"protein,omitempty" mapstructure:"protein"`
	CaloriesPerGram float64 `yaml:"caloriesPerGram,omitempty" mapstructure:"caloriesPerGram"`
	ProteinPerGram  float64 `yaml:"proteinPerGram,omitempty" mapstructure:"proteinPerGram"`
	MainProtein     bool    `yaml:"mainProtein,omitempty" mapstructure:"mainProtein"`
	Amount          string  `yaml:"amount,omitempty" mapstructure:"amount"`
	GramsPerUnit    float64 `yaml:"gramsPerUnit,omitempty" mapstructure:"gramsPerUnit"`
	RecommendedUnit string  `yaml:"recommendedUnit,omitempty" mapstructure:"recommendedUnit"`
}

// Ordering is a named sequence of days, each listing meal ids or names.
type Ordering struct {
	Name string     `yaml:"name" mapstructure:"name"`
	Days [][]string `yaml:"days" mapstructure:"days"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigType("yml")
	return v
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	conf, err := decode(v)
	if err != nil {
		return nil, err
	}
	conf.baseDir = filepath.Dir(configPath)
	return conf, nil
}

// LoadConfigurationFromReader loads a YAML-formatted configuration from r.
// Relative file references resolve against the working directory.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config, %s", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	configuration.Normalize()
	return &configuration, nil
}

func floatOr(v *float64, def float64) *float64 {
	if v != nil {
		return v
	}
	return &def
}

func intOr(v *int, def int) *int {
	if v != nil {
		return v
	}
	return &def
}

// Normalize fills unset values with their defaults.
func (c *Configuration) Normalize() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	if c.Output.Format == "" {
		c.Output.Format = constants.OutputFormatPretty
	}

	t := &c.Tolerances
	t.CalorieUpper = floatOr(t.CalorieUpper, constants.DefaultCalorieUpperTolerance)
	t.CalorieLower = floatOr(t.CalorieLower, constants.DefaultCalorieLowerTolerance)
	t.ProteinUpper = floatOr(t.ProteinUpper, constants.DefaultProteinUpperTolerance)
	t.ProteinLower = floatOr(t.ProteinLower, constants.DefaultProteinLowerTolerance)

	k := &c.Constraints
	k.MealShareTolerance = floatOr(k.MealShareTolerance, constants.DefaultMealShareTolerance)
	k.MainProteinShare = floatOr(k.MainProteinShare, constants.DefaultMainProteinShare)
	k.ScaleMax = floatOr(k.ScaleMax, constants.DefaultScaleMax)
	k.MainProteinScaleMax = floatOr(k.MainProteinScaleMax, constants.DefaultMainProteinScaleMax)

	b := &c.Combination
	b.PortionMin = floatOr(b.PortionMin, constants.DefaultPortionMinGrams)
	b.PortionMax = floatOr(b.PortionMax, constants.DefaultPortionMaxGrams)
	b.MealCalorieMinShare = floatOr(b.MealCalorieMinShare, constants.DefaultMealCalorieMinShare)
	b.MealCalorieMaxShare = floatOr(b.MealCalorieMaxShare, constants.DefaultMealCalorieMaxShare)
	b.MealProteinMinShare = floatOr(b.MealProteinMinShare, constants.DefaultMealProteinMinShare)
	b.MealProteinMaxShare = floatOr(b.MealProteinMaxShare, constants.DefaultMealProteinMaxShare)
	b.MaxCombinations = intOr(b.MaxCombinations, constants.DefaultMaxCombinations)

	s := &c.Solver
	s.Tolerance = floatOr(s.Tolerance, constants.DefaultSolverTolerance)
	s.IntegralityTolerance = floatOr(s.IntegralityTolerance, constants.DefaultIntegralityTolerance)
	s.MaxNodes = intOr(s.MaxNodes, constants.DefaultMaxNodes)

	for i := range c.Meals {
		m := &c.Meals[i]
		m.ID = strings.TrimSpace(m.ID)
		m.Name = strings.TrimSpace(m.Name)
		if m.ID == "" {
			m.ID = m.Name
		}
	}
	for i := range c.Orderings {
		if strings.TrimSpace(c.Orderings[i].Name) == "" {
			c.Orderings[i].Name = fmt.Sprintf("Plan %d", i+1)
		}
	}
}

// Validate returns an error for settings no solve can work with.
func (c *Configuration) Validate() error {
	if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
		return err
	}
	if err := validation.ValidateTargets(c.Targets.Calories, c.Targets.Protein); err != nil {
		return err
	}
	if len(c.Meals) == 0 {
		return fmt.Errorf("at least one meal is required")
	}

	ids := make([]string, len(c.Meals))
	for i, m := range c.Meals {
		ids[i] = m.ID
	}
	if err := validation.ValidateUniqueMealIDs(ids); err != nil {
		return err
	}

	c.ensureNormalized()
	tolerances := map[string]*float64{
		"calorie upper": c.Tolerances.CalorieUpper,
		"calorie lower": c.Tolerances.CalorieLower,
		"protein upper": c.Tolerances.ProteinUpper,
		"protein lower": c.Tolerances.ProteinLower,
	}
	for name, v := range tolerances {
		if err := validation.ValidateTolerance(name, *v); err != nil {
			return err
		}
	}
	if err := validation.ValidateShare("meal share tolerance", *c.Constraints.MealShareTolerance); err != nil {
		return err
	}
	if err := validation.ValidateShare("main protein share", *c.Constraints.MainProteinShare); err != nil {
		return err
	}
	if *c.Solver.MaxNodes <= 0 {
		return fmt.Errorf("solver maxNodes must be positive, got %d", *c.Solver.MaxNodes)
	}
	return nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	meals := make([]configprocessor.MealInfo, 0, len(c.Meals))
	for _, m := range c.Meals {
		info := configprocessor.MealInfo{ID: m.ID, Name: m.Name}
		for _, ing := range m.Ingredients {
			info.Ingredients = append(info.Ingredients, configprocessor.IngredientInfo{
				Name:        ing.Name,
				Grams:       ing.Grams,
				MainProtein: ing.MainProtein,
			})
		}
		meals = append(meals, info)
	}

	orderings := make([]configprocessor.OrderingInfo, 0, len(c.Orderings))
	for _, o := range c.Orderings {
		orderings = append(orderings, configprocessor.OrderingInfo{Name: o.Name, Days: o.Days})
	}

	processor := configprocessor.NewProcessor()
	return processor.ValidateConfiguration(c.MealsPerDay, meals, orderings)
}
