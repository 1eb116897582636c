package ingredient

import (
	"errors"
	"fmt"

	"balanced-meal-planner/internal/units"

	"github.com/shopspring/decimal"
)

// Micronutrient names an optional nutrient tracked beside the macros.
type Micronutrient string

const (
	Fiber        Micronutrient = "fiber"
	Sugar        Micronutrient = "sugar"
	Sodium       Micronutrient = "sodium"
	Cholesterol  Micronutrient = "cholesterol"
	SaturatedFat Micronutrient = "saturated_fat"
	TransFat     Micronutrient = "trans_fat"
	VitaminA     Micronutrient = "vitamin_a"
	VitaminC     Micronutrient = "vitamin_c"
	VitaminD     Micronutrient = "vitamin_d"
	Calcium      Micronutrient = "calcium"
	Iron         Micronutrient = "iron"
	Potassium    Micronutrient = "potassium"
)

// Micronutrients lists every tracked micronutrient in display order.
var Micronutrients = []Micronutrient{
	Fiber, Sugar, Sodium, Cholesterol, SaturatedFat, TransFat,
	VitaminA, VitaminC, VitaminD, Calcium, Iron, Potassium,
}

// NutritionRecord holds the nutrient content of one serving of an ingredient.
// A micronutrient missing from Micros is unknown, not zero.
type NutritionRecord struct {
	IngredientID  int64                             `json:"ingredient_id"`
	ServingSize   decimal.Decimal                   `json:"serving_size"`
	ServingUnit   units.Unit                        `json:"serving_unit"`
	Calories      decimal.Decimal                   `json:"calories"`
	Protein       decimal.Decimal                   `json:"protein"`
	Carbohydrates decimal.Decimal                   `json:"carbohydrates"`
	Fat           decimal.Decimal                   `json:"fat"`
	Micros        map[Micronutrient]decimal.Decimal `json:"micronutrients,omitempty"`
	Notes         string                            `json:"notes,omitempty"`
}

// Validate checks that every present nutrient value is non-negative.
func (r NutritionRecord) Validate() error {
	if !r.ServingUnit.Valid() {
		return fmt.Errorf("unknown serving unit %q", r.ServingUnit)
	}
	if r.ServingSize.IsNegative() {
		return errors.New("serving size must not be negative")
	}
	macros := map[string]decimal.Decimal{
		"calories":      r.Calories,
		"protein":       r.Protein,
		"carbohydrates": r.Carbohydrates,
		"fat":           r.Fat,
	}
	for name, v := range macros {
		if v.IsNegative() {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	for name, v := range r.Micros {
		if v.IsNegative() {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}
