// Package constants provides shared constants for the portion-planner application.
package constants

// Day tolerance window defaults. The protein window is deliberately
// asymmetric and favours a surplus.
const (
	// DefaultCalorieUpperTolerance is the allowed calorie surplus per day (kcal)
	DefaultCalorieUpperTolerance = 100.0

	// DefaultCalorieLowerTolerance is the allowed calorie deficit per day (kcal)
	DefaultCalorieLowerTolerance = 100.0

	// DefaultProteinUpperTolerance is the allowed protein surplus per day (g)
	DefaultProteinUpperTolerance = 30.0

	// DefaultProteinLowerTolerance is the allowed protein deficit per day (g)
	DefaultProteinLowerTolerance = 10.0
)

// Day constraint defaults
const (
	// DefaultMealShareTolerance widens each meal's 1/N share of the day's calories
	DefaultMealShareTolerance = 0.10

	// DefaultMainProteinShare is the minimum fraction of a meal's protein
	// supplied by its main-protein ingredients
	DefaultMainProteinShare = 0.5

	// DefaultScaleMax bounds the non-main scaling multiplier
	DefaultScaleMax = 100.0

	// DefaultMainProteinScaleMax bounds the main-protein multiplier
	DefaultMainProteinScaleMax = 10.0
)

// Combination (batch) constraint defaults
const (
	// DefaultPortionMinGrams is the smallest portion of a scalable ingredient in a used meal
	DefaultPortionMinGrams = 5.0

	// DefaultPortionMaxGrams is the largest portion of a scalable ingredient in a used meal
	DefaultPortionMaxGrams = 500.0

	// DefaultMealCalorieMinShare is the lower per-meal calorie bound relative to target/mealsPerDay
	DefaultMealCalorieMinShare = 0.6

	// DefaultMealCalorieMaxShare is the upper per-meal calorie bound relative to target/mealsPerDay
	DefaultMealCalorieMaxShare = 1.4

	// DefaultMealProteinMinShare is the minimum share of a meal's calories coming from protein
	DefaultMealProteinMinShare = 0.10

	// DefaultMealProteinMaxShare is the maximum share of a meal's calories coming from protein
	DefaultMealProteinMaxShare = 0.45

	// CaloriesPerGramProtein converts protein grams to kcal
	CaloriesPerGramProtein = 4.0

	// SelectionThreshold decides whether a relaxed binary counts as set
	SelectionThreshold = 0.5

	// MinReportedGrams hides scalable ingredients the solver left empty
	MinReportedGrams = 0.1

	// DefaultMaxCombinations caps the number of meal combinations in one program
	DefaultMaxCombinations = 2000
)

// Solver defaults
const (
	// DefaultSolverTolerance is the simplex pivot tolerance
	DefaultSolverTolerance = 1e-9

	// DefaultIntegralityTolerance decides when a relaxed value counts as integral
	DefaultIntegralityTolerance = 1e-6

	// DefaultMaxNodes caps the branch-and-bound search
	DefaultMaxNodes = 20000

	// AcceptanceEpsilon absorbs floating point noise in the final day gate
	AcceptanceEpsilon = 1e-6
)

// Rounding constants
const (
	// DecimalPrecision rounds reported grams and macros to one decimal place
	DecimalPrecision = 10
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"

	// OutputFormatYAML is the YAML output format
	OutputFormatYAML = "yaml"
)

// Run modes
const (
	// ModeSequence solves the configured orderings day by day
	ModeSequence = "sequence"

	// ModeCombinations solves every meal combination jointly
	ModeCombinations = "combinations"

	// ModeServe starts the HTTP API
	ModeServe = "serve"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// DefaultEnvFile is the default dotenv file name
	DefaultEnvFile = ".env"

	// EnvPrefix namespaces environment overrides
	EnvPrefix = "PORTION"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum request body size (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024
)
