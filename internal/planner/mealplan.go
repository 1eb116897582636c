package planner

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"balanced-meal-planner/internal/recipe"
)

// PlanStatus represents the lifecycle state of a menu plan.
type PlanStatus string

const (
	StatusDraft     PlanStatus = "DRAFT"
	StatusActive    PlanStatus = "ACTIVE"
	StatusCompleted PlanStatus = "COMPLETED"
	StatusArchived  PlanStatus = "ARCHIVED"
)

// Valid reports whether s is a known status.
func (s PlanStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

// ParseStatus normalizes user input into a PlanStatus.
func ParseStatus(s string) (PlanStatus, error) {
	st := PlanStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown plan status %q", s)
	}
	return st, nil
}

// CanActivate reports whether a plan in status s may be activated.
func (s PlanStatus) CanActivate() bool {
	return s == StatusDraft || s == StatusCompleted
}

// BalancedThreshold is the minimum composite score of a balanced plan.
const BalancedThreshold = 70.0

// Meal is the recipe chosen for one slot of one day.
type Meal struct {
	Slot   string         `json:"slot"`
	Recipe recipe.Summary `json:"recipe"`
}

// DailyMealSlot holds every meal of one planned day.
type DailyMealSlot struct {
	DayNumber     int       `json:"day_number"`
	Date          time.Time `json:"date"`
	Meals         []Meal    `json:"meals"`
	TotalCalories int       `json:"total_calories"`
}

// Meal returns the meal planned for slot, if any.
func (d DailyMealSlot) Meal(slot string) (Meal, bool) {
	for _, m := range d.Meals {
		if m.Slot == slot {
			return m, true
		}
	}
	return Meal{}, false
}

// ScoreBreakdown keeps the sub-scores the balance score was built from.
type ScoreBreakdown struct {
	Macro              float64 `json:"macro"`
	CalorieConsistency float64 `json:"calorie_consistency"`
	Variety            float64 `json:"variety"`
}

// MenuPlan is a multi-day schedule of recipes with its nutrition summary.
// Days are ordered by DayNumber; Days[i] is day i+1.
type MenuPlan struct {
	ID                 int64           `json:"id,omitempty"`
	UserID             string          `json:"user_id"`
	Name               string          `json:"name"`
	Description        string          `json:"description,omitempty"`
	Notes              string          `json:"notes,omitempty"`
	Layout             string          `json:"layout"`
	StartDate          time.Time       `json:"start_date"`
	EndDate            time.Time       `json:"end_date"`
	Days               []DailyMealSlot `json:"days"`
	Status             PlanStatus      `json:"status"`
	CaloriesPerMealMin int             `json:"calories_per_meal_min"`
	CaloriesPerMealMax int             `json:"calories_per_meal_max"`
	TotalCalories      int             `json:"total_calories"`
	AverageCalories    int             `json:"average_calories"`
	BalanceScore       float64         `json:"balance_score"`
	Scores             ScoreBreakdown  `json:"scores"`
	IsBalanced         bool            `json:"is_balanced"`
	Seed               uint64          `json:"seed"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// SortDays restores day order after the plan was decoded from storage.
func (p *MenuPlan) SortDays() {
	sort.SliceStable(p.Days, func(i, j int) bool {
		return p.Days[i].DayNumber < p.Days[j].DayNumber
	})
}

// RecipeIDs returns the distinct recipe ids used by the plan in first-use order.
func (p MenuPlan) RecipeIDs() []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, day := range p.Days {
		for _, m := range day.Meals {
			if _, ok := seen[m.Recipe.ID]; ok {
				continue
			}
			seen[m.Recipe.ID] = struct{}{}
			ids = append(ids, m.Recipe.ID)
		}
	}
	return ids
}
