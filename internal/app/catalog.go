package app

import (
	"context"
	"fmt"
	"time"

	"balanced-meal-planner/internal/ingredient"
	"balanced-meal-planner/internal/nutrition"
	"balanced-meal-planner/internal/recipe"

	"go.uber.org/zap"
)

// CreateIngredient adds an ingredient to the user's pantry.
func (a *App) CreateIngredient(ctx context.Context, ing *ingredient.Ingredient) error {
	return a.ingredients.Create(ctx, ing)
}

// GetIngredient returns one of the user's ingredients.
func (a *App) GetIngredient(ctx context.Context, userID string, id int64) (*ingredient.Ingredient, error) {
	ing, err := a.ingredients.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ing.UserID != userID {
		return nil, ingredient.ErrNotFound
	}
	return ing, nil
}

// ListIngredients returns the user's ingredients, optionally of one category.
func (a *App) ListIngredients(ctx context.Context, userID string, category ingredient.Category) ([]ingredient.Ingredient, error) {
	return a.ingredients.List(ctx, userID, category)
}

// AvailableIngredients returns what the user can cook with today.
func (a *App) AvailableIngredients(ctx context.Context, userID string) ([]ingredient.Ingredient, error) {
	return a.ingredients.FindAvailable(ctx, userID, time.Now())
}

// ExpiringIngredients returns available ingredients expiring within the next days.
func (a *App) ExpiringIngredients(ctx context.Context, userID string, days int) ([]ingredient.Ingredient, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	return a.ingredients.FindExpiring(ctx, userID, today, today.AddDate(0, 0, days))
}

// UpdateIngredient overwrites one of the user's ingredients.
func (a *App) UpdateIngredient(ctx context.Context, ing *ingredient.Ingredient) error {
	if _, err := a.GetIngredient(ctx, ing.UserID, ing.ID); err != nil {
		return err
	}
	return a.ingredients.Update(ctx, ing)
}

// SetIngredientAvailability toggles whether the planner may use an ingredient.
func (a *App) SetIngredientAvailability(ctx context.Context, userID string, id int64, available bool) error {
	if _, err := a.GetIngredient(ctx, userID, id); err != nil {
		return err
	}
	return a.ingredients.SetAvailability(ctx, id, available)
}

// DeleteIngredient removes one of the user's ingredients.
func (a *App) DeleteIngredient(ctx context.Context, userID string, id int64) error {
	if _, err := a.GetIngredient(ctx, userID, id); err != nil {
		return err
	}
	return a.ingredients.Delete(ctx, id)
}

// SaveNutrition stores the nutrition record of one of the user's ingredients.
func (a *App) SaveNutrition(ctx context.Context, userID string, rec ingredient.NutritionRecord) error {
	if _, err := a.GetIngredient(ctx, userID, rec.IngredientID); err != nil {
		return err
	}
	return a.ingredients.SaveNutrition(ctx, rec)
}

// GetNutrition returns the nutrition record of one of the user's ingredients, or nil.
func (a *App) GetNutrition(ctx context.Context, userID string, ingredientID int64) (*ingredient.NutritionRecord, error) {
	if _, err := a.GetIngredient(ctx, userID, ingredientID); err != nil {
		return nil, err
	}
	return a.ingredients.FindNutrition(ctx, ingredientID)
}

// CreateRecipe stores a recipe. Recipes submitted without macros get them
// computed from their ingredients' nutrition records.
func (a *App) CreateRecipe(ctx context.Context, rec *recipe.Recipe) error {
	if _, err := a.calculator.FillMacros(ctx, rec); err != nil {
		return fmt.Errorf("failed to calculate recipe nutrition: %w", err)
	}
	return a.recipes.Create(ctx, rec)
}

// GetRecipe returns one of the user's recipes.
func (a *App) GetRecipe(ctx context.Context, userID string, id int64) (*recipe.Recipe, error) {
	rec, err := a.recipes.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, recipe.ErrNotFound
	}
	return rec, nil
}

// RecipeQuery selects which of a user's recipes ListRecipes returns.
// At most one filter is applied, in field order.
type RecipeQuery struct {
	Category          recipe.Category
	Search            string
	IngredientID      int64
	MaxCookingMinutes int
	ActiveOnly        bool
}

// ListRecipes returns the user's recipes matching q.
func (a *App) ListRecipes(ctx context.Context, userID string, q RecipeQuery) ([]recipe.Recipe, error) {
	switch {
	case q.Category != "":
		return a.recipes.List(ctx, userID, q.Category)
	case q.Search != "":
		return a.recipes.Search(ctx, userID, q.Search)
	case q.IngredientID != 0:
		return a.recipes.ListByIngredient(ctx, userID, q.IngredientID)
	case q.MaxCookingMinutes > 0:
		return a.recipes.ListByCookingTime(ctx, userID, q.MaxCookingMinutes)
	case q.ActiveOnly:
		return a.recipes.FindActive(ctx, userID)
	default:
		return a.recipes.List(ctx, userID, "")
	}
}

// UpdateRecipe overwrites one of the user's recipes.
func (a *App) UpdateRecipe(ctx context.Context, rec *recipe.Recipe) error {
	if _, err := a.GetRecipe(ctx, rec.UserID, rec.ID); err != nil {
		return err
	}
	if _, err := a.calculator.FillMacros(ctx, rec); err != nil {
		return fmt.Errorf("failed to calculate recipe nutrition: %w", err)
	}
	return a.recipes.Update(ctx, rec)
}

// DeleteRecipe removes one of the user's recipes.
func (a *App) DeleteRecipe(ctx context.Context, userID string, id int64) error {
	if _, err := a.GetRecipe(ctx, userID, id); err != nil {
		return err
	}
	return a.recipes.Delete(ctx, id)
}

// RecipeNutrition computes the per-serving nutrition of a recipe from its
// ingredients' records.
func (a *App) RecipeNutrition(ctx context.Context, userID string, id int64) (nutrition.Totals, error) {
	rec, err := a.GetRecipe(ctx, userID, id)
	if err != nil {
		return nutrition.Totals{}, err
	}
	return a.calculator.PerServing(ctx, *rec)
}

// DailyNutrition sums one serving of each chosen recipe and checks the
// result against the daily protein and carbohydrate bands. A recipe may be
// listed more than once.
func (a *App) DailyNutrition(ctx context.Context, userID string, recipeIDs []int64) (nutrition.DailyReport, error) {
	found, err := a.recipes.GetByIDs(ctx, recipeIDs)
	if err != nil {
		return nutrition.DailyReport{}, fmt.Errorf("failed to load recipes: %w", err)
	}
	byID := recipe.ByID(found)

	chosen := make([]recipe.Recipe, 0, len(recipeIDs))
	for _, id := range recipeIDs {
		r, ok := byID[id]
		if !ok || r.UserID != userID {
			return nutrition.DailyReport{}, fmt.Errorf("%w: %d", recipe.ErrNotFound, id)
		}
		chosen = append(chosen, r)
	}

	report := nutrition.Daily(nutrition.AggregateRecipesPerServing(chosen))
	a.log.Debug("Daily nutrition checked",
		zap.String("user_id", userID),
		zap.Int("recipes", len(chosen)),
		zap.Bool("valid", report.Valid),
		zap.Float64("balance_score", report.BalanceScore))
	return report, nil
}
