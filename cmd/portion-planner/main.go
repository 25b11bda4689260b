package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/iwvelando/portion-planner/internal/combination"
	"github.com/iwvelando/portion-planner/internal/config"
	"github.com/iwvelando/portion-planner/internal/portion"
	"github.com/iwvelando/portion-planner/internal/server"
	"github.com/iwvelando/portion-planner/pkg/constants"
	"github.com/iwvelando/portion-planner/pkg/lp"
	"github.com/iwvelando/portion-planner/pkg/nutrition"
	"github.com/iwvelando/portion-planner/pkg/optimization"
	"github.com/iwvelando/portion-planner/pkg/output"
	"github.com/iwvelando/portion-planner/pkg/validation"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 10 * time.Second

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// Determine log level (CLI override takes precedence)
	level := strings.ToLower(loggingConfig.Level)
	if logLevelOverride != "" {
		level = strings.ToLower(logLevelOverride)
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := strings.ToLower(loggingConfig.Format)
	if format == "" {
		format = "json"
	}

	var config zap.Config
	switch format {
	case "console":
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zapLevel)
	case "json":
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapLevel)
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}

	// Plan output goes to stdout, so logs default to stderr.
	config.OutputPaths = []string{"stderr"}

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		}
		_ = file.Close()

		config.OutputPaths = []string{loggingConfig.OutputFile}
		config.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return config.Build()
}

// loadEnvFile loads a dotenv file. A missing default file is not an error.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("env file %s: %w", path, err)
	}
	return godotenv.Load(path)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \""+format+"\"}\n", args...)
	os.Exit(1)
}

func main() {
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to plan configuration file")
	mode := flag.String("mode", constants.ModeSequence, "run mode: sequence, combinations, serve")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv, json, yaml")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	serverConfig := flag.String("server-config", constants.DefaultServerConfigFile, "path to server configuration file (serve mode)")
	envFile := flag.String("env-file", constants.DefaultEnvFile, "path to a dotenv file with PORTION_ overrides")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	envExplicit := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "env-file" {
			envExplicit = true
		}
	})
	if err := loadEnvFile(*envFile, envExplicit); err != nil {
		fatalf("failed to load env file: %v", err)
	}

	runMode := strings.ToLower(strings.TrimSpace(*mode))
	if err := validation.ValidateMode(runMode); err != nil {
		fatalf("%v", err)
	}

	if runMode == constants.ModeServe {
		serve(*serverConfig, *logLevel)
		return
	}

	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fatalf("failed to load configuration at %s: %v", *configLocation, err)
	}

	logger, err := initializeLogger(conf.Logging, *logLevel)
	if err != nil {
		fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = strings.ToLower(*outputFormatFlag)
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Fatal(err.Error(), zap.String("op", "main"))
	}

	if err := conf.Validate(); err != nil {
		logger.Fatal("invalid configuration",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	solver := lp.NewSimplex(logger, conf.SolverOptions()...)

	switch runMode {
	case constants.ModeSequence:
		plans, err := runSequence(logger, solver, conf)
		if err != nil {
			logger.Fatal("failed to solve orderings",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
		for _, summary := range optimization.SummarizePlans(plans) {
			logger.Info("plan solved",
				zap.String("op", "main"),
				zap.String("plan", summary.Name),
				zap.Int("validDays", summary.ValidDays),
				zap.Int("totalDays", summary.TotalDays),
			)
		}
		err = writePlans(outputFormat, plans)
		if err != nil {
			logger.Fatal("failed to write output", zap.String("op", "main"), zap.Error(err))
		}
	case constants.ModeCombinations:
		result, err := runCombinations(logger, solver, conf)
		if err != nil {
			logger.Fatal("failed to solve combinations",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
		err = writeCombination(outputFormat, result)
		if err != nil {
			logger.Fatal("failed to write output", zap.String("op", "main"), zap.Error(err))
		}
	}
}

func runSequence(logger *zap.Logger, solver lp.Solver, conf *config.Configuration) ([]nutrition.PlanResult, error) {
	if len(conf.Orderings) == 0 {
		return nil, fmt.Errorf("no orderings configured")
	}
	meals, err := conf.ResolvedMeals()
	if err != nil {
		return nil, err
	}
	runner, err := portion.NewRunner(logger, solver, conf.PortionParams())
	if err != nil {
		return nil, err
	}
	return runner.SolvePlans(conf.NutritionOrderings(), nutrition.IndexMeals(meals), conf.NutritionTargets())
}

func runCombinations(logger *zap.Logger, solver lp.Solver, conf *config.Configuration) (combination.Result, error) {
	in, err := conf.CombinationInput()
	if err != nil {
		return combination.Result{}, err
	}
	runner, err := combination.NewRunner(logger, solver, conf.CombinationParams())
	if err != nil {
		return combination.Result{}, err
	}
	return runner.Solve(in)
}

func writePlans(format string, plans []nutrition.PlanResult) error {
	switch format {
	case constants.OutputFormatCSV:
		return output.CsvPlans(plans)
	case constants.OutputFormatJSON:
		return output.JSONFormat(plans)
	case constants.OutputFormatYAML:
		return output.YAMLFormat(plans)
	default:
		output.PrettyPlans(plans)
		return nil
	}
}

func writeCombination(format string, result combination.Result) error {
	switch format {
	case constants.OutputFormatCSV:
		return output.CsvCombination(result)
	case constants.OutputFormatJSON:
		return output.JSONFormat(result)
	case constants.OutputFormatYAML:
		return output.YAMLFormat(result)
	default:
		output.PrettyCombination(result)
		return nil
	}
}

func serve(serverConfigPath, logLevel string) {
	cfg, err := server.LoadConfig(serverConfigPath)
	if err != nil {
		fatalf("failed to load server configuration at %s: %v", serverConfigPath, err)
	}

	logger, err := initializeLogger(cfg.Logging, logLevel)
	if err != nil {
		fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	defaults, err := cfg.PlanDefaults()
	if err != nil {
		logger.Fatal("failed to load plan defaults",
			zap.String("op", "main.serve"),
			zap.Error(err),
		)
	}

	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           server.NewHandler(logger, cfg.UploadSizeBytes(), version, defaults),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening",
			zap.String("op", "main.serve"),
			zap.String("address", cfg.Address),
			zap.String("version", version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed",
				zap.String("op", "main.serve"),
				zap.Error(err),
			)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server", zap.String("op", "main.serve"))

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown",
			zap.String("op", "main.serve"),
			zap.Error(err),
		)
	}
}
