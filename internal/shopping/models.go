package shopping

import (
	"sort"
	"strings"
	"time"

	"balanced-meal-planner/internal/planner"
	"balanced-meal-planner/internal/recipe"
	"balanced-meal-planner/internal/units"

	"github.com/shopspring/decimal"
)

// Item is the total amount of one ingredient needed by a plan.
type Item struct {
	IngredientID int64           `json:"ingredient_id"`
	Name         string          `json:"name"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit"`
	Meals        int             `json:"meals"`
}

// ShoppingList represents a shopping list for a menu plan.
type ShoppingList struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	MenuPlanID int64     `json:"menu_plan_id"`
	Items      []Item    `json:"items"`
	CreatedAt  time.Time `json:"created_at"`
}

// Build sums the non-optional requirements of every meal in the plan.
// Quantities are normalized to base units so the same ingredient measured in
// different units collapses into one line. Recipes missing from recipesByID
// are skipped.
func Build(plan *planner.MenuPlan, recipesByID map[int64]recipe.Recipe) *ShoppingList {
	byIngredient := make(map[int64]*Item)
	for _, day := range plan.Days {
		for _, meal := range day.Meals {
			r, ok := recipesByID[meal.Recipe.ID]
			if !ok {
				continue
			}
			for _, req := range r.Requirements {
				if req.Optional {
					continue
				}
				item, ok := byIngredient[req.IngredientID]
				if !ok {
					item = &Item{IngredientID: req.IngredientID, Name: req.IngredientName, Unit: units.BaseLabel}
					byIngredient[req.IngredientID] = item
				}
				item.Quantity = item.Quantity.Add(units.ToBase(req.Quantity, req.Unit))
				item.Meals++
			}
		}
	}

	items := make([]Item, 0, len(byIngredient))
	for _, item := range byIngredient {
		item.Quantity = item.Quantity.Round(2)
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool {
		a, b := strings.ToLower(items[i].Name), strings.ToLower(items[j].Name)
		if a != b {
			return a < b
		}
		return items[i].IngredientID < items[j].IngredientID
	})

	return &ShoppingList{
		UserID:     plan.UserID,
		MenuPlanID: plan.ID,
		Items:      items,
	}
}

// Lines renders the list as "Name: quantity unit" strings.
func (l *ShoppingList) Lines() []string {
	lines := make([]string, len(l.Items))
	for i, item := range l.Items {
		lines[i] = item.Name + ": " + item.Quantity.String() + " " + item.Unit
	}
	return lines
}
