package app

import (
	"context"
	"database/sql"
	"time"

	"balanced-meal-planner/internal/ingredient"
	"balanced-meal-planner/internal/metrics"
	"balanced-meal-planner/internal/pgstore"
	"balanced-meal-planner/internal/planner"
	"balanced-meal-planner/internal/recipe"
	"balanced-meal-planner/internal/shopping"
)

// IngredientStore persists a user's ingredients and their nutrition records.
type IngredientStore interface {
	Create(ctx context.Context, ing *ingredient.Ingredient) error
	Get(ctx context.Context, id int64) (*ingredient.Ingredient, error)
	GetByName(ctx context.Context, userID, name string) (*ingredient.Ingredient, error)
	List(ctx context.Context, userID string, category ingredient.Category) ([]ingredient.Ingredient, error)
	FindAvailable(ctx context.Context, userID string, asOf time.Time) ([]ingredient.Ingredient, error)
	FindExpiring(ctx context.Context, userID string, from, to time.Time) ([]ingredient.Ingredient, error)
	Update(ctx context.Context, ing *ingredient.Ingredient) error
	SetAvailability(ctx context.Context, id int64, available bool) error
	Delete(ctx context.Context, id int64) error
	SaveNutrition(ctx context.Context, rec ingredient.NutritionRecord) error
	FindNutrition(ctx context.Context, ingredientID int64) (*ingredient.NutritionRecord, error)
}

// RecipeStore persists recipes.
type RecipeStore interface {
	Create(ctx context.Context, rec *recipe.Recipe) error
	Update(ctx context.Context, rec *recipe.Recipe) error
	Get(ctx context.Context, id int64) (*recipe.Recipe, error)
	GetByIDs(ctx context.Context, ids []int64) ([]recipe.Recipe, error)
	List(ctx context.Context, userID string, category recipe.Category) ([]recipe.Recipe, error)
	Search(ctx context.Context, userID, term string) ([]recipe.Recipe, error)
	ListByIngredient(ctx context.Context, userID string, ingredientID int64) ([]recipe.Recipe, error)
	ListByCookingTime(ctx context.Context, userID string, maxMinutes int) ([]recipe.Recipe, error)
	FindActive(ctx context.Context, userID string) ([]recipe.Recipe, error)
	Delete(ctx context.Context, id int64) error
}

// ShoppingStore persists the shopping list of each plan.
type ShoppingStore interface {
	Save(ctx context.Context, list *shopping.ShoppingList) (int64, error)
	GetByMenuPlanID(ctx context.Context, menuPlanID int64) (*shopping.ShoppingList, error)
}

// MetricsStore records generation metrics.
type MetricsStore interface {
	Record(ctx context.Context, m metrics.GenerationMetric) error
	GetDailyUsage(ctx context.Context, days int) ([]metrics.DailyUsage, error)
	Cleanup(ctx context.Context, olderThanDays int) (int64, error)
}

// Stores groups the persistence dependencies of the App.
type Stores struct {
	Ingredients IngredientStore
	Recipes     RecipeStore
	Plans       planner.PlanStore
	Shopping    ShoppingStore
	Metrics     MetricsStore
}

var (
	_ IngredientStore = (*ingredient.Repository)(nil)
	_ RecipeStore     = (*recipe.Repository)(nil)
	_ ShoppingStore   = (*shopping.Repository)(nil)
	_ MetricsStore    = (*metrics.Store)(nil)

	_ IngredientStore = (*pgstore.IngredientRepository)(nil)
	_ RecipeStore     = (*pgstore.RecipeRepository)(nil)
	_ ShoppingStore   = (*pgstore.ShoppingRepository)(nil)
	_ MetricsStore    = (*pgstore.MetricsStore)(nil)
)

// SQLiteStores builds the SQLite repositories over one database handle.
func SQLiteStores(db *sql.DB) Stores {
	return Stores{
		Ingredients: ingredient.NewRepository(db),
		Recipes:     recipe.NewRepository(db),
		Plans:       planner.NewPlanRepository(db),
		Shopping:    shopping.NewRepository(db),
		Metrics:     metrics.NewStore(db),
	}
}

// PostgresStores exposes every repository of a PostgreSQL store.
func PostgresStores(s *pgstore.Store) Stores {
	return Stores{
		Ingredients: s.Ingredients(),
		Recipes:     s.Recipes(),
		Plans:       s.Plans(),
		Shopping:    s.ShoppingLists(),
		Metrics:     s.Metrics(),
	}
}
