package pgstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"balanced-meal-planner/internal/ingredient"
	"balanced-meal-planner/internal/metrics"
	"balanced-meal-planner/internal/planner"
	"balanced-meal-planner/internal/recipe"
	"balanced-meal-planner/internal/shopping"
	"balanced-meal-planner/internal/units"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"
)

// openTestStore connects to TEST_DATABASE_URL and empties every table.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Skipping PostgreSQL integration test: TEST_DATABASE_URL is not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, url, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(s.Close)

	_, err = s.pool.Exec(ctx, `TRUNCATE ingredients, ingredient_nutrition, recipes, recipe_ingredients,
		menu_plans, shopping_lists, generation_metrics RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("Failed to truncate tables: %v", err)
	}
	return s
}

func TestMigrateURL(t *testing.T) {
	tests := map[string]string{
		"postgres://u@localhost/db":   "pgx5://u@localhost/db",
		"postgresql://u@localhost/db": "pgx5://u@localhost/db",
		"pgx5://u@localhost/db":       "pgx5://u@localhost/db",
	}
	for in, want := range tests {
		if got := migrateURL(in); got != want {
			t.Errorf("migrateURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Errorf("unexpected escape %q", got)
	}
}

func TestStore_Integration(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ingredients, recipes, plans := s.Ingredients(), s.Recipes(), s.Plans()

	expiry := time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)
	rice := &ingredient.Ingredient{
		UserID: "user1", Name: "Rice", Category: ingredient.CategoryGrains,
		Quantity: decimal.NewFromInt(1000), Unit: units.Gram, Available: true, ExpiryDate: &expiry,
	}
	if err := ingredients.Create(ctx, rice); err != nil {
		t.Fatalf("Create ingredient failed: %v", err)
	}
	dup := *rice
	if err := ingredients.Create(ctx, &dup); !errors.Is(err, ingredient.ErrDuplicateName) {
		t.Errorf("Expected ErrDuplicateName, got %v", err)
	}
	got, err := ingredients.GetByName(ctx, "user1", "RICE")
	if err != nil || got == nil || !got.Quantity.Equal(rice.Quantity) || !got.ExpiryDate.Equal(expiry) {
		t.Fatalf("Expected rice back, got %+v (%v)", got, err)
	}

	rec := ingredient.NutritionRecord{
		IngredientID: rice.ID, ServingSize: decimal.NewFromInt(100), ServingUnit: units.Gram,
		Calories: decimal.NewFromInt(130), Protein: decimal.RequireFromString("2.7"),
	}
	if err := ingredients.SaveNutrition(ctx, rec); err != nil {
		t.Fatalf("SaveNutrition failed: %v", err)
	}
	if found, err := ingredients.FindNutrition(ctx, rice.ID); err != nil || !found.Calories.Equal(rec.Calories) {
		t.Errorf("Expected the nutrition record back, got %+v (%v)", found, err)
	}

	pilaf := &recipe.Recipe{
		UserID: "user1", Name: "Rice Pilaf", Category: recipe.CategorySideDish, Servings: 2, Active: true,
		Requirements: []recipe.Requirement{{IngredientID: rice.ID, Quantity: decimal.NewFromInt(200), Unit: units.Gram}},
	}
	if err := recipes.Create(ctx, pilaf); err != nil {
		t.Fatalf("Create recipe failed: %v", err)
	}
	foreign := &recipe.Recipe{
		UserID: "user2", Name: "Stolen Pilaf", Category: recipe.CategorySideDish, Servings: 1,
		Requirements: []recipe.Requirement{{IngredientID: rice.ID, Quantity: decimal.NewFromInt(1), Unit: units.Gram}},
	}
	if err := recipes.Create(ctx, foreign); !errors.Is(err, recipe.ErrUnknownIngredient) {
		t.Errorf("Expected ErrUnknownIngredient, got %v", err)
	}
	if found, _ := recipes.ListByIngredient(ctx, "user1", rice.ID); len(found) != 1 {
		t.Errorf("Expected one recipe using rice, got %d", len(found))
	}
	if found, _ := recipes.Search(ctx, "user1", "pil"); len(found) != 1 {
		t.Errorf("Expected search to find the pilaf, got %d", len(found))
	}

	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	first := &planner.MenuPlan{UserID: "user1", StartDate: start, EndDate: start.AddDate(0, 0, 4), BalanceScore: 80, IsBalanced: true}
	second := &planner.MenuPlan{UserID: "user1", StartDate: start.AddDate(0, 0, 7), EndDate: start.AddDate(0, 0, 11)}
	for _, p := range []*planner.MenuPlan{first, second} {
		if err := plans.Save(ctx, p); err != nil {
			t.Fatalf("Save plan failed: %v", err)
		}
	}

	if _, err := plans.Activate(ctx, first.ID); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if _, err := plans.Activate(ctx, second.ID); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if p, _ := plans.Get(ctx, first.ID); p.Status != planner.StatusCompleted {
		t.Errorf("Expected the first plan to be completed, got %s", p.Status)
	}
	if active, err := plans.FindActive(ctx, "user1"); err != nil || active.ID != second.ID {
		t.Errorf("Expected the second plan active, got %+v (%v)", active, err)
	}
	if covering, _ := plans.ListCovering(ctx, "user1", start.AddDate(0, 0, 2)); len(covering) != 1 || covering[0].ID != first.ID {
		t.Errorf("Expected the first plan to cover Wednesday, got %+v", covering)
	}
	if page, _ := plans.ListByUser(ctx, "user1", 0, 0); len(page) != 2 {
		t.Errorf("Expected every plan without a limit, got %d", len(page))
	}

	lists := s.ShoppingLists()
	list := &shopping.ShoppingList{UserID: "user1", MenuPlanID: first.ID, Items: []shopping.Item{
		{IngredientID: rice.ID, Name: "Rice", Quantity: decimal.NewFromInt(400), Unit: "g/ml", Meals: 2},
	}}
	if _, err := lists.Save(ctx, list); err != nil {
		t.Fatalf("Save shopping list failed: %v", err)
	}
	if err := plans.Delete(ctx, first.ID); err != nil {
		t.Fatalf("Delete plan failed: %v", err)
	}
	if gone, err := lists.GetByMenuPlanID(ctx, first.ID); err != nil || gone != nil {
		t.Errorf("Expected the shopping list deleted with its plan, got %+v (%v)", gone, err)
	}

	m := s.Metrics()
	for _, outcome := range []metrics.Outcome{metrics.OutcomeSuccess, metrics.OutcomeCoverage} {
		if err := m.Record(ctx, metrics.GenerationMetric{UserID: "user1", Layout: "courses", Outcome: outcome, BalanceScore: 75, LatencyMS: 10}); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	usage, err := m.GetDailyUsage(ctx, 1)
	if err != nil || len(usage) != 1 || usage[0].Generations != 2 || usage[0].Successes != 1 || usage[0].AverageScore != 75 {
		t.Errorf("Unexpected daily usage %+v (%v)", usage, err)
	}
}
