package planner

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"balanced-meal-planner/internal/database"
	"balanced-meal-planner/internal/recipe"

	"go.uber.org/zap"
)

func newTestPlanRepository(t *testing.T) *PlanRepository {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPlanRepository(db.SQL)
}

func storedPlan(userID string, start time.Time, score float64) *MenuPlan {
	days := make([]DailyMealSlot, 5)
	for i := range days {
		days[i] = DailyMealSlot{
			DayNumber:     i + 1,
			Date:          start.AddDate(0, 0, i),
			Meals:         []Meal{{Slot: "soup", Recipe: recipe.Summary{ID: int64(i + 1), Name: "Lentil Soup"}}},
			TotalCalories: 1800,
		}
	}
	return &MenuPlan{
		UserID:        userID,
		Name:          "Week",
		Layout:        "courses",
		StartDate:     start,
		EndDate:       start.AddDate(0, 0, 4),
		Days:          days,
		TotalCalories: 9000,
		BalanceScore:  score,
		IsBalanced:    IsBalanced(score),
	}
}

func TestPlanRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestPlanRepository(t)

	plan := storedPlan("user1", monday, 82.5)
	// Stored out of order; reads must restore day order.
	plan.Days[0], plan.Days[4] = plan.Days[4], plan.Days[0]
	if err := repo.Save(ctx, plan); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if plan.ID == 0 || plan.Status != StatusDraft {
		t.Fatalf("Expected id and DRAFT status, got id=%d status=%s", plan.ID, plan.Status)
	}

	got, err := repo.Get(ctx, plan.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	for i, d := range got.Days {
		if d.DayNumber != i+1 {
			t.Errorf("Days out of order: position %d holds day %d", i, d.DayNumber)
		}
	}
	if got.BalanceScore != 82.5 || !got.IsBalanced || got.TotalCalories != 9000 {
		t.Errorf("Unexpected plan: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("Expected created_at to be set")
	}

	if _, err := repo.Get(ctx, 999); !errors.Is(err, ErrPlanNotFound) {
		t.Errorf("Expected ErrPlanNotFound, got %v", err)
	}
}

func TestPlanRepository_Activate(t *testing.T) {
	ctx := context.Background()
	repo := newTestPlanRepository(t)

	first := storedPlan("user1", monday, 80)
	second := storedPlan("user1", monday.AddDate(0, 0, 7), 75)
	other := storedPlan("user2", monday, 90)
	for _, p := range []*MenuPlan{first, second, other} {
		if err := repo.Save(ctx, p); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	if _, err := repo.Activate(ctx, first.ID); err != nil {
		t.Fatalf("Activate first failed: %v", err)
	}
	if _, err := repo.Activate(ctx, other.ID); err != nil {
		t.Fatalf("Activate other user's plan failed: %v", err)
	}
	activated, err := repo.Activate(ctx, second.ID)
	if err != nil {
		t.Fatalf("Activate second failed: %v", err)
	}
	if activated.Status != StatusActive {
		t.Errorf("Expected ACTIVE, got %s", activated.Status)
	}

	got, _ := repo.Get(ctx, first.ID)
	if got.Status != StatusCompleted {
		t.Errorf("Expected previously active plan to be COMPLETED, got %s", got.Status)
	}
	active, err := repo.FindActive(ctx, "user1")
	if err != nil || active.ID != second.ID {
		t.Errorf("Expected plan %d active, got %+v (%v)", second.ID, active, err)
	}
	if got, _ := repo.Get(ctx, other.ID); got.Status != StatusActive {
		t.Errorf("Expected other user's plan to stay ACTIVE, got %s", got.Status)
	}

	t.Run("Idempotent", func(t *testing.T) {
		again, err := repo.Activate(ctx, second.ID)
		if err != nil || again.Status != StatusActive {
			t.Errorf("Expected re-activation to be a no-op, got %v", err)
		}
	})

	t.Run("CompletedCanBeReactivated", func(t *testing.T) {
		if _, err := repo.Activate(ctx, first.ID); err != nil {
			t.Fatalf("Activate completed plan failed: %v", err)
		}
		if got, _ := repo.Get(ctx, second.ID); got.Status != StatusCompleted {
			t.Errorf("Expected second plan COMPLETED, got %s", got.Status)
		}
	})

	t.Run("ArchivedIsRejected", func(t *testing.T) {
		if _, err := repo.UpdateStatus(ctx, second.ID, StatusArchived); err != nil {
			t.Fatalf("UpdateStatus failed: %v", err)
		}
		if _, err := repo.Activate(ctx, second.ID); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("Expected ErrInvalidTransition, got %v", err)
		}
		if got, _ := repo.Get(ctx, first.ID); got.Status != StatusActive {
			t.Errorf("Rejected activation must not touch the active plan, got %s", got.Status)
		}
	})

	t.Run("UpdateStatusToActiveForces", func(t *testing.T) {
		plan, err := repo.UpdateStatus(ctx, second.ID, StatusActive)
		if err != nil || plan.Status != StatusActive {
			t.Fatalf("Expected forced activation, got %v", err)
		}
		if got, _ := repo.Get(ctx, first.ID); got.Status != StatusCompleted {
			t.Errorf("Expected first plan COMPLETED, got %s", got.Status)
		}
	})

	t.Run("SaveCannotCreateSecondActive", func(t *testing.T) {
		dup := storedPlan("user1", monday, 70)
		dup.Status = StatusActive
		if err := repo.Save(ctx, dup); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("Expected ErrInvalidTransition, got %v", err)
		}
	})

	if _, err := repo.Activate(ctx, 999); !errors.Is(err, ErrPlanNotFound) {
		t.Errorf("Expected ErrPlanNotFound, got %v", err)
	}
	if _, err := repo.UpdateStatus(ctx, first.ID, PlanStatus("PAUSED")); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition for unknown status, got %v", err)
	}
}

func TestPlanRepository_Queries(t *testing.T) {
	ctx := context.Background()
	repo := newTestPlanRepository(t)

	march := storedPlan("user1", monday, 85)
	nextWeek := storedPlan("user1", monday.AddDate(0, 0, 7), 50)
	april := storedPlan("user1", monday.AddDate(0, 0, 28), 72)
	for _, p := range []*MenuPlan{march, nextWeek, april, storedPlan("user2", monday, 99)} {
		if err := repo.Save(ctx, p); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	t.Run("ListByUser", func(t *testing.T) {
		all, err := repo.ListByUser(ctx, "user1", 0, 0)
		if err != nil || len(all) != 3 {
			t.Fatalf("Expected 3 plans, got %d (%v)", len(all), err)
		}
		page, _ := repo.ListByUser(ctx, "user1", 2, 1)
		if len(page) != 2 || page[0].ID != nextWeek.ID {
			t.Errorf("Unexpected page: %+v", page)
		}
	})

	t.Run("ListBalanced", func(t *testing.T) {
		balanced, _ := repo.ListBalanced(ctx, "user1")
		if len(balanced) != 2 || balanced[0].ID != march.ID || balanced[1].ID != april.ID {
			t.Errorf("Expected march then april, got %+v", balanced)
		}
	})

	t.Run("ListBetween", func(t *testing.T) {
		plans, _ := repo.ListBetween(ctx, "user1", monday, monday.AddDate(0, 0, 11))
		if len(plans) != 2 {
			t.Errorf("Expected 2 plans within range, got %d", len(plans))
		}
		plans, _ = repo.ListBetween(ctx, "user1", monday.AddDate(0, 0, 1), monday.AddDate(0, 0, 11))
		if len(plans) != 1 || plans[0].ID != nextWeek.ID {
			t.Errorf("Expected only the fully contained plan, got %+v", plans)
		}
	})

	t.Run("ListCovering", func(t *testing.T) {
		plans, _ := repo.ListCovering(ctx, "user1", monday.AddDate(0, 0, 2))
		if len(plans) != 1 || plans[0].ID != march.ID {
			t.Errorf("Expected march plan, got %+v", plans)
		}
		plans, _ = repo.ListCovering(ctx, "user1", monday.AddDate(0, 0, 5))
		if len(plans) != 0 {
			t.Errorf("Expected no plan on the weekend, got %d", len(plans))
		}
	})

	t.Run("ListByStatus", func(t *testing.T) {
		if _, err := repo.Activate(ctx, april.ID); err != nil {
			t.Fatalf("Activate failed: %v", err)
		}
		drafts, _ := repo.ListByStatus(ctx, "user1", StatusDraft)
		if len(drafts) != 2 {
			t.Errorf("Expected 2 drafts, got %d", len(drafts))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := repo.Delete(ctx, march.ID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if err := repo.Delete(ctx, march.ID); !errors.Is(err, ErrPlanNotFound) {
			t.Errorf("Expected ErrPlanNotFound, got %v", err)
		}
	})

	if _, err := repo.FindActive(ctx, "nobody"); !errors.Is(err, ErrPlanNotFound) {
		t.Errorf("Expected ErrPlanNotFound, got %v", err)
	}
}
