package recipe

import "balanced-meal-planner/internal/ingredient"

// IsFeasible reports whether every non-optional requirement of r can be met
// from the available ingredients. Units must match exactly; no conversion is
// attempted. A recipe without requirements is never feasible.
func IsFeasible(r Recipe, available map[int64]ingredient.Ingredient) bool {
	if len(r.Requirements) == 0 {
		return false
	}
	for _, req := range r.Requirements {
		if req.Optional {
			continue
		}
		ing, ok := available[req.IngredientID]
		if !ok {
			return false
		}
		if ing.Unit != req.Unit {
			return false
		}
		if ing.Quantity.LessThan(req.Quantity) {
			return false
		}
	}
	return true
}

// FilterFeasible keeps the recipes that IsFeasible accepts, preserving order.
func FilterFeasible(recipes []Recipe, available []ingredient.Ingredient) []Recipe {
	byID := ingredient.ByID(available)
	var out []Recipe
	for _, r := range recipes {
		if IsFeasible(r, byID) {
			out = append(out, r)
		}
	}
	return out
}
