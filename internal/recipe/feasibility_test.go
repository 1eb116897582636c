package recipe

import (
	"testing"

	"balanced-meal-planner/internal/ingredient"
	"balanced-meal-planner/internal/units"

	"github.com/shopspring/decimal"
)

func stock(id int64, qty string, unit units.Unit) ingredient.Ingredient {
	return ingredient.Ingredient{
		ID:        id,
		Name:      "ingredient",
		Quantity:  decimal.RequireFromString(qty),
		Unit:      unit,
		Available: true,
	}
}

func need(id int64, qty string, unit units.Unit, optional bool) Requirement {
	return Requirement{
		IngredientID: id,
		Quantity:     decimal.RequireFromString(qty),
		Unit:         unit,
		Optional:     optional,
	}
}

func TestIsFeasible(t *testing.T) {
	available := ingredient.ByID([]ingredient.Ingredient{
		stock(1, "500", units.Gram),
		stock(2, "1", units.Liter),
		stock(3, "2", units.Piece),
	})

	tests := []struct {
		name string
		reqs []Requirement
		want bool
	}{
		{"NoRequirements", nil, false},
		{"AllSatisfied", []Requirement{need(1, "500", units.Gram, false), need(3, "2", units.Piece, false)}, true},
		{"MissingIngredient", []Requirement{need(9, "1", units.Gram, false)}, false},
		{"UnitMismatchNotConverted", []Requirement{need(2, "500", units.Milliliter, false)}, false},
		{"UnderQuantity", []Requirement{need(1, "500.01", units.Gram, false)}, false},
		{"OptionalMissing", []Requirement{need(1, "100", units.Gram, false), need(9, "1", units.Gram, true)}, true},
		{"OptionalWrongUnit", []Requirement{need(1, "100", units.Gram, false), need(2, "1", units.Cup, true)}, true},
		{"OptionalUnderQuantity", []Requirement{need(3, "10", units.Piece, true)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Recipe{Name: tt.name, Requirements: tt.reqs}
			if got := IsFeasible(r, available); got != tt.want {
				t.Errorf("IsFeasible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterFeasible(t *testing.T) {
	available := []ingredient.Ingredient{stock(1, "300", units.Gram)}
	recipes := []Recipe{
		{ID: 1, Requirements: []Requirement{need(1, "200", units.Gram, false)}},
		{ID: 2, Requirements: []Requirement{need(1, "400", units.Gram, false)}},
		{ID: 3, Requirements: []Requirement{need(1, "300", units.Gram, false), need(5, "1", units.Piece, true)}},
		{ID: 4},
	}

	got := FilterFeasible(recipes, available)
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Errorf("Expected recipes [1 3], got %+v", got)
	}
}
