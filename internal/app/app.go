package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"balanced-meal-planner/internal/config"
	"balanced-meal-planner/internal/metrics"
	"balanced-meal-planner/internal/nutrition"
	"balanced-meal-planner/internal/planner"
	"balanced-meal-planner/internal/recipe"
	"balanced-meal-planner/internal/shopping"

	"go.uber.org/zap"
)

// App holds the application's dependencies.
type App struct {
	ingredients IngredientStore
	recipes     RecipeStore
	plans       planner.PlanStore
	shopping    ShoppingStore
	metrics     MetricsStore
	mealPlanner *planner.Planner
	calculator  *nutrition.Calculator
	cfg         *config.Config
	log         *zap.Logger
}

// NewApp creates and initializes a new App instance. Planner options such as
// custom layouts or a fixed clock are passed through to the menu planner.
func NewApp(stores Stores, cfg *config.Config, log *zap.Logger, opts ...planner.Option) *App {
	return &App{
		ingredients: stores.Ingredients,
		recipes:     stores.Recipes,
		plans:       stores.Plans,
		shopping:    stores.Shopping,
		metrics:     stores.Metrics,
		mealPlanner: planner.NewPlanner(stores.Ingredients, stores.Recipes, log, opts...),
		calculator:  nutrition.NewCalculator(stores.Ingredients, log),
		cfg:         cfg,
		log:         log,
	}
}

// Config returns the application configuration.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Layouts returns the menu layouts the planner accepts.
func (a *App) Layouts() planner.Layouts {
	return a.mealPlanner.Layouts()
}

// GenerateMenuPlan generates a plan, saves it as a DRAFT together with its
// shopping list, and records a generation metric whatever the outcome.
// Unset request fields fall back to the configured defaults.
func (a *App) GenerateMenuPlan(ctx context.Context, req planner.Request) (*planner.MenuPlan, *shopping.ShoppingList, error) {
	if req.Layout == "" {
		req.Layout = a.cfg.MenuLayout
	}
	if req.CaloriesPerMealMin == nil && req.CaloriesPerMealMax == nil {
		low, high := a.cfg.CaloriesPerMealMin, a.cfg.CaloriesPerMealMax
		req.CaloriesPerMealMin, req.CaloriesPerMealMax = &low, &high
	}

	plan, stats, err := a.mealPlanner.Generate(ctx, req)
	a.recordGeneration(ctx, req, plan, stats, err)
	if err != nil {
		return nil, nil, err
	}

	if err := a.plans.Save(ctx, plan); err != nil {
		return nil, nil, fmt.Errorf("failed to save menu plan: %w", err)
	}

	list, err := a.buildShoppingList(ctx, plan)
	if err != nil {
		return nil, nil, err
	}

	a.log.Info("Menu plan saved",
		zap.Int64("plan_id", plan.ID),
		zap.String("user_id", plan.UserID),
		zap.Int("shopping_items", len(list.Items)))
	return plan, list, nil
}

func (a *App) buildShoppingList(ctx context.Context, plan *planner.MenuPlan) (*shopping.ShoppingList, error) {
	recipes, err := a.recipes.GetByIDs(ctx, plan.RecipeIDs())
	if err != nil {
		return nil, fmt.Errorf("failed to load plan recipes: %w", err)
	}
	list := shopping.Build(plan, recipe.ByID(recipes))
	if _, err := a.shopping.Save(ctx, list); err != nil {
		return nil, fmt.Errorf("failed to save shopping list: %w", err)
	}
	return list, nil
}

func (a *App) recordGeneration(ctx context.Context, req planner.Request, plan *planner.MenuPlan, stats planner.Stats, genErr error) {
	m := metrics.GenerationMetric{
		UserID:           req.UserID,
		Layout:           stats.Layout,
		Outcome:          outcomeOf(genErr),
		CandidateRecipes: stats.CandidateRecipes,
		FeasibleRecipes:  stats.FeasibleRecipes,
		LatencyMS:        stats.Latency.Milliseconds(),
	}
	if m.Layout == "" {
		m.Layout = req.Layout
	}
	if plan != nil {
		m.BalanceScore = plan.BalanceScore
	}
	if err := a.metrics.Record(ctx, m); err != nil {
		a.log.Warn("Failed to record generation metric", zap.Error(err))
	}
}

func outcomeOf(err error) metrics.Outcome {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, planner.ErrNoAvailableIngredients):
		return metrics.OutcomeNoIngredients
	case errors.Is(err, planner.ErrNoFeasibleRecipes):
		return metrics.OutcomeNoRecipes
	case errors.Is(err, planner.ErrInsufficientCategoryCoverage):
		return metrics.OutcomeCoverage
	case errors.Is(err, planner.ErrInvalidRequest), errors.Is(err, planner.ErrUnknownLayout):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}

// GetPlan returns one of the user's plans.
func (a *App) GetPlan(ctx context.Context, userID string, id int64) (*planner.MenuPlan, error) {
	plan, err := a.plans.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan.UserID != userID {
		return nil, planner.ErrPlanNotFound
	}
	return plan, nil
}

// ListPlans returns a page of the user's plans, newest first.
func (a *App) ListPlans(ctx context.Context, userID string, limit, offset int) ([]planner.MenuPlan, error) {
	return a.plans.ListByUser(ctx, userID, limit, offset)
}

// ListPlansByStatus returns the user's plans in one status.
func (a *App) ListPlansByStatus(ctx context.Context, userID string, status planner.PlanStatus) ([]planner.MenuPlan, error) {
	return a.plans.ListByStatus(ctx, userID, status)
}

// ListBalancedPlans returns the user's balanced plans, best first.
func (a *App) ListBalancedPlans(ctx context.Context, userID string) ([]planner.MenuPlan, error) {
	return a.plans.ListBalanced(ctx, userID)
}

// ListPlansBetween returns the user's plans lying entirely within [from, to].
func (a *App) ListPlansBetween(ctx context.Context, userID string, from, to time.Time) ([]planner.MenuPlan, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range end is before its start", planner.ErrInvalidRequest)
	}
	return a.plans.ListBetween(ctx, userID, from, to)
}

// CurrentMenu returns the user's active plan, or planner.ErrPlanNotFound.
func (a *App) CurrentMenu(ctx context.Context, userID string) (*planner.MenuPlan, error) {
	return a.plans.FindActive(ctx, userID)
}

// MenuOn returns the user's plans covering day.
func (a *App) MenuOn(ctx context.Context, userID string, day time.Time) ([]planner.MenuPlan, error) {
	return a.plans.ListCovering(ctx, userID, day)
}

// ActivatePlan makes one of the user's plans the active one.
func (a *App) ActivatePlan(ctx context.Context, userID string, id int64) (*planner.MenuPlan, error) {
	if _, err := a.GetPlan(ctx, userID, id); err != nil {
		return nil, err
	}
	plan, err := a.plans.Activate(ctx, id)
	if err != nil {
		return nil, err
	}
	a.log.Info("Menu plan activated", zap.Int64("plan_id", id), zap.String("user_id", userID))
	return plan, nil
}

// UpdatePlanStatus sets the status of one of the user's plans.
func (a *App) UpdatePlanStatus(ctx context.Context, userID string, id int64, status planner.PlanStatus) (*planner.MenuPlan, error) {
	if _, err := a.GetPlan(ctx, userID, id); err != nil {
		return nil, err
	}
	return a.plans.UpdateStatus(ctx, id, status)
}

// DeletePlan removes one of the user's plans and its shopping list.
func (a *App) DeletePlan(ctx context.Context, userID string, id int64) error {
	if _, err := a.GetPlan(ctx, userID, id); err != nil {
		return err
	}
	return a.plans.Delete(ctx, id)
}

// ShoppingList returns the shopping list of one of the user's plans,
// rebuilding it when none was stored.
func (a *App) ShoppingList(ctx context.Context, userID string, planID int64) (*shopping.ShoppingList, error) {
	plan, err := a.GetPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	list, err := a.shopping.GetByMenuPlanID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if list != nil {
		return list, nil
	}
	return a.buildShoppingList(ctx, plan)
}

// DailyUsage returns generation statistics for the last days.
func (a *App) DailyUsage(ctx context.Context, days int) ([]metrics.DailyUsage, error) {
	return a.metrics.GetDailyUsage(ctx, days)
}

// CleanupMetrics removes generation metrics older than the given number of days.
func (a *App) CleanupMetrics(ctx context.Context, olderThanDays int) (int64, error) {
	return a.metrics.Cleanup(ctx, olderThanDays)
}
