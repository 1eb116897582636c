package planner

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"time"

	"balanced-meal-planner/internal/ingredient"
	"balanced-meal-planner/internal/recipe"

	"go.uber.org/zap"
)

// Default per-meal calorie window.
const (
	DefaultCaloriesPerMealMin = 500
	DefaultCaloriesPerMealMax = 700
)

// IngredientSource supplies the ingredients a user can cook with on a given day.
type IngredientSource interface {
	FindAvailable(ctx context.Context, userID string, asOf time.Time) ([]ingredient.Ingredient, error)
}

// RecipeSource supplies the recipes a user may schedule.
type RecipeSource interface {
	FindActive(ctx context.Context, userID string) ([]recipe.Recipe, error)
}

// Request describes the plan to generate.
type Request struct {
	UserID             string
	StartDate          time.Time
	CaloriesPerMealMin *int
	CaloriesPerMealMax *int
	Layout             string
	Name               string
	Notes              string

	// Seed fixes the shuffle order. A nil seed draws one from crypto/rand.
	Seed *uint64
}

func (r Request) window() (Window, error) {
	w := Window{Min: DefaultCaloriesPerMealMin, Max: DefaultCaloriesPerMealMax}
	if r.CaloriesPerMealMin != nil {
		w.Min = *r.CaloriesPerMealMin
	}
	if r.CaloriesPerMealMax != nil {
		w.Max = *r.CaloriesPerMealMax
	}
	if w.Min < 0 || w.Max < 0 {
		return Window{}, fmt.Errorf("%w: calorie limits must not be negative", ErrInvalidRequest)
	}
	if w.Min > w.Max {
		return Window{}, fmt.Errorf("%w: calories_per_meal_min exceeds calories_per_meal_max", ErrInvalidRequest)
	}
	return w, nil
}

// Stats describes how a generation went, for metrics.
type Stats struct {
	Layout               string
	AvailableIngredients int
	CandidateRecipes     int
	FeasibleRecipes      int
	Latency              time.Duration
}

// Planner assembles menu plans from a user's ingredients and recipes.
type Planner struct {
	ingredients   IngredientSource
	recipes       RecipeSource
	layouts       Layouts
	defaultLayout string
	now           func() time.Time
	log           *zap.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithClock replaces the wall clock used to decide what is available today.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

// WithLayouts replaces the built-in layouts and sets the default one.
func WithLayouts(layouts Layouts, defaultLayout string) Option {
	return func(p *Planner) {
		p.layouts = layouts
		p.defaultLayout = defaultLayout
	}
}

// NewPlanner creates a new Planner instance.
func NewPlanner(ingredients IngredientSource, recipes RecipeSource, log *zap.Logger, opts ...Option) *Planner {
	p := &Planner{
		ingredients:   ingredients,
		recipes:       recipes,
		layouts:       DefaultLayouts(),
		defaultLayout: CoursesLayout.Name,
		now:           time.Now,
		log:           log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Layouts returns the layouts the planner knows.
func (p *Planner) Layouts() Layouts {
	return p.layouts
}

// GeneratePlan builds a DRAFT plan. Nothing is persisted.
func (p *Planner) GeneratePlan(ctx context.Context, req Request) (*MenuPlan, error) {
	plan, _, err := p.Generate(ctx, req)
	return plan, err
}

// Generate is GeneratePlan that also reports generation statistics,
// which are filled in as far as generation got even on failure.
func (p *Planner) Generate(ctx context.Context, req Request) (plan *MenuPlan, stats Stats, err error) {
	started := time.Now()
	defer func() { stats.Latency = time.Since(started) }()

	if req.UserID == "" {
		return nil, stats, fmt.Errorf("%w: user id is required", ErrInvalidRequest)
	}
	if req.StartDate.IsZero() {
		return nil, stats, fmt.Errorf("%w: start date is required", ErrInvalidRequest)
	}
	window, err := req.window()
	if err != nil {
		return nil, stats, err
	}

	layoutName := req.Layout
	if layoutName == "" {
		layoutName = p.defaultLayout
	}
	layout, ok := p.layouts.Get(layoutName)
	if !ok {
		return nil, stats, fmt.Errorf("%w: %q", ErrUnknownLayout, layoutName)
	}
	stats.Layout = layout.Name

	start := truncateDay(req.StartDate)
	if layout.SnapToMonday {
		start = SnapToMonday(start)
	}

	today := truncateDay(p.now())
	available, err := p.ingredients.FindAvailable(ctx, req.UserID, today)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to load available ingredients: %w", err)
	}
	stats.AvailableIngredients = len(available)
	if len(available) == 0 {
		return nil, stats, ErrNoAvailableIngredients
	}

	candidates, err := p.recipes.FindActive(ctx, req.UserID)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to load recipes: %w", err)
	}
	stats.CandidateRecipes = len(candidates)

	feasible := recipe.FilterFeasible(candidates, available)
	stats.FeasibleRecipes = len(feasible)
	if len(feasible) == 0 {
		return nil, stats, ErrNoFeasibleRecipes
	}

	seed := seedFor(req)
	rng := rand.New(rand.NewPCG(seed, seed))
	days, err := Select(layout, Bucket(layout, feasible), start, window, rng)
	if err != nil {
		return nil, stats, err
	}

	plan = assemble(req, layout, start, window, days)
	plan.Seed = seed
	plan.CreatedAt = p.now().UTC()
	plan.UpdatedAt = plan.CreatedAt

	p.log.Info("Generated menu plan",
		zap.String("user_id", req.UserID),
		zap.String("layout", layout.Name),
		zap.Int("feasible_recipes", len(feasible)),
		zap.Float64("balance_score", plan.BalanceScore),
		zap.Bool("balanced", plan.IsBalanced),
		zap.Uint64("seed", seed))
	return plan, stats, nil
}

func assemble(req Request, layout Layout, start time.Time, window Window, days []DailyMealSlot) *MenuPlan {
	end := start.AddDate(0, 0, len(days)-1)
	total := 0
	for _, d := range days {
		total += d.TotalCalories
	}
	average := 0
	if len(days) > 0 {
		average = total / len(days)
	}
	score, breakdown := Score(days)

	name := req.Name
	if name == "" {
		name = fmt.Sprintf("Menu %s to %s", start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	return &MenuPlan{
		UserID:             req.UserID,
		Name:               name,
		Description:        fmt.Sprintf("%d-day %s menu", len(days), layout.Name),
		Notes:              req.Notes,
		Layout:             layout.Name,
		StartDate:          start,
		EndDate:            end,
		Days:               days,
		Status:             StatusDraft,
		CaloriesPerMealMin: window.Min,
		CaloriesPerMealMax: window.Max,
		TotalCalories:      total,
		AverageCalories:    average,
		BalanceScore:       score,
		Scores:             breakdown,
		IsBalanced:         IsBalanced(score),
	}
}

func seedFor(req Request) uint64 {
	if req.Seed != nil {
		return *req.Seed
	}
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}
