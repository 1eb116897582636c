package shopping

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"balanced-meal-planner/internal/database"
	"balanced-meal-planner/internal/planner"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func TestRepository(t *testing.T) {
	ctx := context.Background()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	defer db.Close()

	plans := planner.NewPlanRepository(db.SQL)
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	plan := &planner.MenuPlan{UserID: "user1", Layout: "courses", StartDate: start, EndDate: start.AddDate(0, 0, 4)}
	if err := plans.Save(ctx, plan); err != nil {
		t.Fatalf("Failed to save plan: %v", err)
	}

	repo := NewRepository(db.SQL)

	if got, err := repo.GetByMenuPlanID(ctx, plan.ID); err != nil || got != nil {
		t.Fatalf("Expected no list yet, got %+v (%v)", got, err)
	}

	list := &ShoppingList{UserID: "user1", MenuPlanID: plan.ID, Items: []Item{
		{IngredientID: 1, Name: "Rice", Quantity: decimal.NewFromInt(500), Unit: "g/ml", Meals: 2},
	}}
	id, err := repo.Save(ctx, list)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	list.Items[0].Quantity = decimal.NewFromInt(750)
	again, err := repo.Save(ctx, list)
	if err != nil {
		t.Fatalf("Second save failed: %v", err)
	}
	if again != id {
		t.Errorf("Expected the list to be replaced in place, got ids %d and %d", id, again)
	}

	got, err := repo.GetByMenuPlanID(ctx, plan.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Items) != 1 || !got.Items[0].Quantity.Equal(decimal.NewFromInt(750)) {
		t.Errorf("Unexpected items: %+v", got.Items)
	}

	if err := plans.Delete(ctx, plan.ID); err != nil {
		t.Fatalf("Failed to delete plan: %v", err)
	}
	if got, _ := repo.GetByMenuPlanID(ctx, plan.ID); got != nil {
		t.Error("Expected the list to be deleted with its plan")
	}
}
