package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/portion-planner/internal/combination"
	"github.com/iwvelando/portion-planner/internal/config"
	"github.com/iwvelando/portion-planner/internal/portion"
	"github.com/iwvelando/portion-planner/pkg/constants"
	"github.com/iwvelando/portion-planner/pkg/lp"
	"github.com/iwvelando/portion-planner/pkg/nutrition"
	"github.com/iwvelando/portion-planner/pkg/schedule"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const requestIDHeader = "X-Request-ID"

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string
	defaults      *config.Configuration
}

// NewHandler constructs the HTTP handler that serves the portion API.
// Model parameters not carried by a request come from defaults.
func NewHandler(logger *zap.Logger, maxUploadSize int64, version string, defaults *config.Configuration) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	if defaults == nil {
		defaults = &config.Configuration{}
	}
	defaults.Normalize()

	h := &handler{logger: logger, maxUploadSize: maxUploadSize, version: trimmedVersion, defaults: defaults}

	mux := http.NewServeMux()

	// Plan file upload, solved in the requested mode
	mux.HandleFunc("/api/plan", h.handlePlan)

	// Batch combination solve
	mux.HandleFunc("/api/optimize-days", h.handleOptimizeDays)

	// Ordered day sequences
	mux.HandleFunc("/api/solve-sequence", h.handleSolveSequence)

	// Config serialization endpoint for plan downloads
	mux.HandleFunc("/api/export", h.handleConfigExport)

	// Version endpoint for UI metadata
	mux.HandleFunc("/api/version", h.handleVersion)

	return h.withRequestID(mux)
}

// withRequestID tags every request with an id. A valid incoming id is kept.
func (h *handler) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		h.logger.Debug("request received",
			zap.String("op", "server.withRequestID"),
			zap.String("requestId", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		next.ServeHTTP(w, r)
	})
}

type macroRow struct {
	CaloriesPerGram float64 `json:"calories_per_gram"`
	ProteinPerGram  float64 `json:"protein_per_gram"`
}

type optimizeDaysRequest struct {
	Meals            []nutrition.Meal    `json:"meals"`
	IngredientMacros map[string]macroRow `json:"ingredientMacros"`
	MealsPerDay      int                 `json:"mealsPerDay"`
	TargetCalories   float64             `json:"targetCalories"`
	TargetProtein    float64             `json:"targetProtein"`
}

type solveSequenceRequest struct {
	Meals            []nutrition.Meal     `json:"meals"`
	IngredientMacros map[string]macroRow  `json:"ingredientMacros,omitempty"`
	TargetCalories   float64              `json:"targetCalories"`
	TargetProtein    float64              `json:"targetProtein"`
	Ordering         [][]string           `json:"ordering,omitempty"`
	Orderings        []nutrition.Ordering `json:"orderings,omitempty"`
}

type sequenceResponse struct {
	Plans    []nutrition.PlanResult `json:"plans"`
	DayPlans []schedule.DayPlan     `json:"dayPlans"`
}

type planResponse struct {
	Mode        string              `json:"mode"`
	Sequence    *sequenceResponse   `json:"sequence,omitempty"`
	Combination *combination.Result `json:"combination,omitempty"`
	Warnings    []string            `json:"warnings,omitempty"`
	Duration    string              `json:"duration"`
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handlePlan(w http.ResponseWriter, r *http.Request) {
	const op = "server.handlePlan"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
			return
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing plan file", op)
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to read plan: %v", err), op)
		return
	}

	cfg, err := config.LoadConfigurationFromReader(&buf)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	if err := cfg.Validate(); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid plan: %v", err), op)
		return
	}

	mode := strings.ToLower(strings.TrimSpace(r.FormValue("mode")))
	if mode == "" {
		mode = constants.ModeSequence
	}

	response := planResponse{Mode: mode, Warnings: cfg.ValidateConfiguration()}
	switch mode {
	case constants.ModeSequence:
		meals, err := cfg.ResolvedMeals()
		if err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
			return
		}
		seq, err := h.solveSequences(cfg, meals, cfg.NutritionTargets(), cfg.NutritionOrderings())
		if err != nil {
			h.respondErrorWithOp(w, statusFor(err), err.Error(), op)
			return
		}
		response.Sequence = seq
	case constants.ModeCombinations:
		in, err := cfg.CombinationInput()
		if err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
			return
		}
		result, err := h.solveCombinations(cfg, in)
		if err != nil {
			h.respondErrorWithOp(w, statusFor(err), err.Error(), op)
			return
		}
		response.Combination = &result
	default:
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("unsupported mode %q", mode), op)
		return
	}

	elapsed := time.Since(start)
	response.Duration = elapsed.String()
	h.logger.Info("plan computed",
		zap.String("op", op),
		zap.String("requestId", w.Header().Get(requestIDHeader)),
		zap.String("mode", mode),
		zap.Duration("duration", elapsed),
	)
	h.writeJSON(w, http.StatusOK, response)
}

func (h *handler) handleOptimizeDays(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleOptimizeDays"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	var req optimizeDaysRequest
	if !h.decodeJSON(w, r, &req, op) {
		return
	}
	if len(req.IngredientMacros) == 0 {
		h.respondErrorWithOp(w, http.StatusBadRequest, "ingredientMacros is required", op)
		return
	}

	in := combination.Input{
		Meals:            req.Meals,
		IngredientMacros: toMacroTable(req.IngredientMacros),
		MealsPerDay:      req.MealsPerDay,
		Targets:          nutrition.Targets{Calories: req.TargetCalories, Protein: req.TargetProtein},
	}
	result, err := h.solveCombinations(h.defaults, in)
	if err != nil {
		h.respondErrorWithOp(w, statusFor(err), err.Error(), op)
		return
	}

	h.logger.Info("combinations solved",
		zap.String("op", op),
		zap.String("requestId", w.Header().Get(requestIDHeader)),
		zap.String("status", result.Status),
		zap.Int("validDays", len(result.ValidDays)),
	)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *handler) handleSolveSequence(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSolveSequence"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	var req solveSequenceRequest
	if !h.decodeJSON(w, r, &req, op) {
		return
	}

	orderings := req.Orderings
	if len(req.Ordering) > 0 {
		orderings = append([]nutrition.Ordering{{Days: req.Ordering}}, orderings...)
	}
	if len(orderings) == 0 {
		h.respondErrorWithOp(w, http.StatusBadRequest, "at least one ordering is required", op)
		return
	}

	// Locked portions are keyed by id; an id-less meal goes by its name.
	meals := req.Meals
	for i := range meals {
		meals[i].ID = strings.TrimSpace(meals[i].ID)
		if meals[i].ID == "" {
			meals[i].ID = meals[i].Name
		}
	}
	if len(req.IngredientMacros) > 0 {
		applied, err := toMacroTable(req.IngredientMacros).Apply(meals)
		if err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
			return
		}
		meals = applied
	}

	targets := nutrition.Targets{Calories: req.TargetCalories, Protein: req.TargetProtein}
	seq, err := h.solveSequences(h.defaults, meals, targets, orderings)
	if err != nil {
		h.respondErrorWithOp(w, statusFor(err), err.Error(), op)
		return
	}

	h.logger.Info("sequences solved",
		zap.String("op", op),
		zap.String("requestId", w.Header().Get(requestIDHeader)),
		zap.Int("plans", len(seq.Plans)),
	)
	h.writeJSON(w, http.StatusOK, seq)
}

func (h *handler) solveSequences(cfg *config.Configuration, meals []nutrition.Meal, targets nutrition.Targets, orderings []nutrition.Ordering) (*sequenceResponse, error) {
	if targets.Calories <= 0 {
		return nil, errInvalidTargets
	}
	solver := lp.NewSimplex(h.logger, cfg.SolverOptions()...)
	runner, err := portion.NewRunner(h.logger, solver, cfg.PortionParams())
	if err != nil {
		return nil, err
	}
	plans, err := runner.SolvePlans(orderings, nutrition.IndexMeals(meals), targets)
	if err != nil {
		return nil, err
	}

	resp := &sequenceResponse{Plans: plans, DayPlans: []schedule.DayPlan{}}
	for i, plan := range plans {
		resp.DayPlans = append(resp.DayPlans, schedule.Build(i+1, plan.Result)...)
	}
	return resp, nil
}

func (h *handler) solveCombinations(cfg *config.Configuration, in combination.Input) (combination.Result, error) {
	if in.Targets.Calories <= 0 {
		return combination.Result{}, errInvalidTargets
	}
	solver := lp.NewSimplex(h.logger, cfg.SolverOptions()...)
	runner, err := combination.NewRunner(h.logger, solver, cfg.CombinationParams())
	if err != nil {
		return combination.Result{}, err
	}
	return runner.Solve(in)
}

var errInvalidTargets = errors.New("targetCalories must be positive")

// statusFor maps input errors to 400 and everything else to 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errInvalidTargets),
		errors.Is(err, nutrition.ErrUnknownIngredient),
		errors.Is(err, portion.ErrUnknownMeal),
		errors.Is(err, portion.ErrMissingMealID),
		errors.Is(err, combination.ErrNoCombinations),
		errors.Is(err, combination.ErrTooManyCombinations),
		errors.Is(err, combination.ErrDuplicateMeal):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func toMacroTable(rows map[string]macroRow) nutrition.MacroTable {
	table := make(nutrition.MacroTable, len(rows))
	for name, row := range rows {
		table.Set(name, nutrition.Macros{CaloriesPerGram: row.CaloriesPerGram, ProteinPerGram: row.ProteinPerGram})
	}
	return table
}

func (h *handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, op string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds limit of %d bytes", h.maxUploadSize), op)
			return false
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return false
	}
	return true
}

func (h *handler) handleConfigExport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleConfigExport"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	var payload map[string]interface{}
	if !h.decodeJSON(w, r, &payload, op) {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}

	yamlBytes, err := marshalOrderedConfigYAML(payload)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to encode configuration: %v", err), op)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"configYaml": string(yamlBytes),
	})
}

// leadingConfigKeys are written first, in this order. Other keys follow
// alphabetically.
var leadingConfigKeys = []string{"logging", "output", "targets", "mealsPerDay", "tolerances", "constraints"}

func marshalOrderedConfigYAML(payload map[string]interface{}) ([]byte, error) {
	items := make([]orderedItem, 0, len(payload))
	seen := make(map[string]struct{})

	for _, key := range leadingConfigKeys {
		if value, ok := payload[key]; ok {
			items = append(items, orderedItem{key: key, value: value})
			seen[key] = struct{}{}
		}
	}

	remainingKeys := make([]string, 0, len(payload))
	for key := range payload {
		if _, already := seen[key]; already {
			continue
		}
		remainingKeys = append(remainingKeys, key)
	}
	sort.Strings(remainingKeys)
	for _, key := range remainingKeys {
		items = append(items, orderedItem{key: key, value: payload[key]})
	}

	ordered := orderedConfig{items: items}
	return yaml.Marshal(ordered)
}

type orderedConfig struct {
	items []orderedItem
}

type orderedItem struct {
	key   string
	value interface{}
}

func (o orderedConfig) MarshalYAML() (interface{}, error) {
	mapNode := &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!!map",
	}

	for _, item := range o.items {
		keyNode := &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!str",
			Value: item.key,
		}
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(item.value); err != nil {
			return nil, err
		}
		mapNode.Content = append(mapNode.Content, keyNode, valueNode)
	}

	return mapNode, nil
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("portion request failed",
		zap.String("op", op),
		zap.String("requestId", w.Header().Get(requestIDHeader)),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
