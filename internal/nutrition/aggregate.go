// Package nutrition turns ingredient nutrition records and recipe macros into
// totals, and checks daily intake against target bands.
package nutrition

import (
	"balanced-meal-planner/internal/ingredient"
	"balanced-meal-planner/internal/recipe"
	"balanced-meal-planner/internal/units"

	"github.com/shopspring/decimal"
)

// Portion is a quantity of one ingredient together with its nutrition record.
// A nil Record contributes nothing.
type Portion struct {
	Record   *ingredient.NutritionRecord
	Quantity decimal.Decimal
	Unit     units.Unit
}

// Totals is the summed nutrient content of a set of portions or recipes.
// A micronutrient is present only when at least one input reported it.
type Totals struct {
	Calories      decimal.Decimal                              `json:"calories"`
	Protein       decimal.Decimal                              `json:"protein"`
	Carbohydrates decimal.Decimal                              `json:"carbohydrates"`
	Fat           decimal.Decimal                              `json:"fat"`
	Micros        map[ingredient.Micronutrient]decimal.Decimal `json:"micronutrients,omitempty"`
}

// Macros converts the totals into recipe macros, taking fiber from Micros.
func (t Totals) Macros() recipe.Macros {
	return recipe.Macros{
		Calories:      t.Calories,
		Protein:       t.Protein,
		Carbohydrates: t.Carbohydrates,
		Fat:           t.Fat,
		Fiber:         t.Micros[ingredient.Fiber],
	}
}

// Ratio is the number of servings quantity represents, rounded half-up to 4 places.
// A serving size that normalizes to zero yields a ratio of 1.
func Ratio(quantity decimal.Decimal, unit units.Unit, servingSize decimal.Decimal, servingUnit units.Unit) decimal.Decimal {
	serving := units.ToBase(servingSize, servingUnit)
	if serving.IsZero() {
		return decimal.NewFromInt(1)
	}
	return units.ToBase(quantity, unit).DivRound(serving, 4)
}

// AggregateIngredients scales every record by its portion ratio and sums the results.
// Outputs are rounded half-up to 2 places.
func AggregateIngredients(portions []Portion) Totals {
	var t Totals
	for _, p := range portions {
		if p.Record == nil {
			continue
		}
		rec := p.Record
		ratio := Ratio(p.Quantity, p.Unit, rec.ServingSize, rec.ServingUnit)

		t.Calories = t.Calories.Add(rec.Calories.Mul(ratio))
		t.Protein = t.Protein.Add(rec.Protein.Mul(ratio))
		t.Carbohydrates = t.Carbohydrates.Add(rec.Carbohydrates.Mul(ratio))
		t.Fat = t.Fat.Add(rec.Fat.Mul(ratio))
		for name, v := range rec.Micros {
			t.addMicro(name, v.Mul(ratio))
		}
	}
	return t.rounded()
}

// AggregateRecipesPerServing sums the per-serving values of the given recipes.
func AggregateRecipesPerServing(recipes []recipe.Recipe) Totals {
	var t Totals
	for _, r := range recipes {
		ps := r.PerServingMacros()
		t.Calories = t.Calories.Add(ps.Calories)
		t.Protein = t.Protein.Add(ps.Protein)
		t.Carbohydrates = t.Carbohydrates.Add(ps.Carbohydrates)
		t.Fat = t.Fat.Add(ps.Fat)
		t.addMicro(ingredient.Fiber, ps.Fiber)
	}
	return t.rounded()
}

// CaloriesFromMacros estimates energy at 4 kcal/g for protein and carbohydrate
// and 9 kcal/g for fat.
func CaloriesFromMacros(protein, carbohydrates, fat decimal.Decimal) decimal.Decimal {
	four := decimal.NewFromInt(4)
	return protein.Mul(four).
		Add(carbohydrates.Mul(four)).
		Add(fat.Mul(decimal.NewFromInt(9))).
		Round(2)
}

func (t *Totals) addMicro(name ingredient.Micronutrient, v decimal.Decimal) {
	if t.Micros == nil {
		t.Micros = make(map[ingredient.Micronutrient]decimal.Decimal)
	}
	t.Micros[name] = t.Micros[name].Add(v)
}

func (t Totals) rounded() Totals {
	out := Totals{
		Calories:      t.Calories.Round(2),
		Protein:       t.Protein.Round(2),
		Carbohydrates: t.Carbohydrates.Round(2),
		Fat:           t.Fat.Round(2),
	}
	if len(t.Micros) > 0 {
		out.Micros = make(map[ingredient.Micronutrient]decimal.Decimal, len(t.Micros))
		for k, v := range t.Micros {
			out.Micros[k] = v.Round(2)
		}
	}
	return out
}
