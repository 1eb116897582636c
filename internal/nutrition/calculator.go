package nutrition

import (
	"context"
	"fmt"

	"balanced-meal-planner/internal/ingredient"
	"balanced-meal-planner/internal/recipe"

	"go.uber.org/zap"
)

// RecordLookup resolves the nutrition record of an ingredient.
// It returns nil, nil when the ingredient has no record.
type RecordLookup interface {
	FindNutrition(ctx context.Context, ingredientID int64) (*ingredient.NutritionRecord, error)
}

// Calculator computes recipe nutrition from ingredient records.
type Calculator struct {
	records RecordLookup
	log     *zap.Logger
}

// NewCalculator creates a new Calculator.
func NewCalculator(records RecordLookup, log *zap.Logger) *Calculator {
	return &Calculator{records: records, log: log}
}

// ForRecipe aggregates the whole-recipe nutrition of every requirement,
// optional ones included. Ingredients without a record are skipped.
func (c *Calculator) ForRecipe(ctx context.Context, r recipe.Recipe) (Totals, error) {
	portions := make([]Portion, 0, len(r.Requirements))
	for _, req := range r.Requirements {
		rec, err := c.records.FindNutrition(ctx, req.IngredientID)
		if err != nil {
			return Totals{}, fmt.Errorf("failed to load nutrition for ingredient %d: %w", req.IngredientID, err)
		}
		if rec == nil {
			c.log.Debug("No nutrition record for ingredient",
				zap.Int64("ingredient_id", req.IngredientID),
				zap.String("recipe", r.Name))
		}
		portions = append(portions, Portion{Record: rec, Quantity: req.Quantity, Unit: req.Unit})
	}
	return AggregateIngredients(portions), nil
}

// PerServing is ForRecipe divided by the recipe's servings.
func (c *Calculator) PerServing(ctx context.Context, r recipe.Recipe) (Totals, error) {
	total, err := c.ForRecipe(ctx, r)
	if err != nil {
		return Totals{}, err
	}
	out := Totals{
		Calories:      r.PerServing(total.Calories),
		Protein:       r.PerServing(total.Protein),
		Carbohydrates: r.PerServing(total.Carbohydrates),
		Fat:           r.PerServing(total.Fat),
	}
	for name, v := range total.Micros {
		out.addMicro(name, r.PerServing(v))
	}
	return out, nil
}

// FillMacros computes and sets the macros of a recipe that has none recorded.
// It reports whether the recipe was changed.
func (c *Calculator) FillMacros(ctx context.Context, r *recipe.Recipe) (bool, error) {
	if !r.Macros.IsZero() {
		return false, nil
	}
	total, err := c.ForRecipe(ctx, *r)
	if err != nil {
		return false, err
	}
	r.Macros = total.Macros()
	return true, nil
}
