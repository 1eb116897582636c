package recipe

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"balanced-meal-planner/internal/units"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("recipe not found")
	ErrDuplicateName     = errors.New("recipe with this name already exists for the user")
	ErrUnknownIngredient = errors.New("recipe references an unknown ingredient")
)

// Category is the meal role of a recipe. The planner maps slots to categories
// through its layout configuration, so any value is accepted here.
type Category string

const (
	CategoryMainCourse Category = "MAIN_COURSE"
	CategorySoup       Category = "SOUP"
	CategoryAppetizer  Category = "APPETIZER"
	CategoryDessert    Category = "DESSERT"
	CategorySideDish   Category = "SIDE_DISH"
	CategorySalad      Category = "SALAD"
	CategoryBreakfast  Category = "BREAKFAST"
	CategorySnack      Category = "SNACK"
	CategoryBeverage   Category = "BEVERAGE"
)

// NormalizeCategory upper-cases and trims a category name.
func NormalizeCategory(s string) Category {
	return Category(strings.ToUpper(strings.TrimSpace(s)))
}

// Requirement links a recipe to one of the user's ingredients.
type Requirement struct {
	IngredientID   int64           `json:"ingredient_id"`
	IngredientName string          `json:"ingredient_name,omitempty"`
	Quantity       decimal.Decimal `json:"quantity"`
	Unit           units.Unit      `json:"unit"`
	Optional       bool            `json:"optional,omitempty"`
	Notes          string          `json:"notes,omitempty"`
}

// Macros holds nutrient totals for a whole recipe or a single serving.
type Macros struct {
	Calories      decimal.Decimal `json:"calories"`
	Protein       decimal.Decimal `json:"protein"`
	Carbohydrates decimal.Decimal `json:"carbohydrates"`
	Fat           decimal.Decimal `json:"fat"`
	Fiber         decimal.Decimal `json:"fiber"`
}

// IsZero reports whether no macro value has been set.
func (m Macros) IsZero() bool {
	return m.Calories.IsZero() && m.Protein.IsZero() && m.Carbohydrates.IsZero() &&
		m.Fat.IsZero() && m.Fiber.IsZero()
}

// Recipe represents a dish that can be scheduled into a menu plan.
// Macro values are totals for the whole recipe.
type Recipe struct {
	ID                 int64         `json:"id"`
	UserID             string        `json:"user_id"`
	Name               string        `json:"name"`
	Description        string        `json:"description,omitempty"`
	Category           Category      `json:"category"`
	Requirements       []Requirement `json:"requirements"`
	Instructions       []string      `json:"instructions,omitempty"`
	CookingTimeMinutes int           `json:"cooking_time_minutes"`
	Servings           int           `json:"servings"`
	Macros
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the invariants a recipe must hold before it is stored.
func (r Recipe) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("recipe name is required")
	}
	if r.Category == "" {
		return errors.New("recipe category is required")
	}
	if r.Servings < 1 {
		return errors.New("recipe servings must be at least 1")
	}
	if r.CookingTimeMinutes < 0 {
		return errors.New("cooking time must not be negative")
	}
	for name, v := range map[string]decimal.Decimal{
		"calories": r.Calories, "protein": r.Protein, "carbohydrates": r.Carbohydrates,
		"fat": r.Fat, "fiber": r.Fiber,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	for i, req := range r.Requirements {
		if req.IngredientID <= 0 {
			return fmt.Errorf("requirement %d: ingredient id is required", i+1)
		}
		if !req.Quantity.IsPositive() {
			return fmt.Errorf("requirement %d: quantity must be positive", i+1)
		}
		if !req.Unit.Valid() {
			return fmt.Errorf("requirement %d: unknown unit %q", i+1, req.Unit)
		}
	}
	return nil
}

// PerServing divides a recipe total by the servings count, rounded half-up to 2 places.
func (r Recipe) PerServing(total decimal.Decimal) decimal.Decimal {
	servings := r.Servings
	if servings < 1 {
		servings = 1
	}
	return total.Div(decimal.NewFromInt(int64(servings))).Round(2)
}

// PerServingMacros returns every macro value divided by the servings count.
func (r Recipe) PerServingMacros() Macros {
	return Macros{
		Calories:      r.PerServing(r.Calories),
		Protein:       r.PerServing(r.Protein),
		Carbohydrates: r.PerServing(r.Carbohydrates),
		Fat:           r.PerServing(r.Fat),
		Fiber:         r.PerServing(r.Fiber),
	}
}

// CaloriesPerServing is the whole-calorie figure used for daily totals.
func (r Recipe) CaloriesPerServing() int {
	return int(r.PerServing(r.Calories).IntPart())
}

// IngredientIDs returns the distinct ingredient ids the recipe references.
func (r Recipe) IngredientIDs() []int64 {
	seen := make(map[int64]struct{}, len(r.Requirements))
	var ids []int64
	for _, req := range r.Requirements {
		if _, ok := seen[req.IngredientID]; ok {
			continue
		}
		seen[req.IngredientID] = struct{}{}
		ids = append(ids, req.IngredientID)
	}
	return ids
}

// Summary is the snapshot of a recipe embedded in a menu plan.
type Summary struct {
	ID                 int64    `json:"id"`
	Name               string   `json:"name"`
	Category           Category `json:"category"`
	CookingTimeMinutes int      `json:"cooking_time_minutes"`
	PerServing         Macros   `json:"per_serving"`
}

// Summarize captures the per-serving view of a recipe.
func (r Recipe) Summarize() Summary {
	return Summary{
		ID:                 r.ID,
		Name:               r.Name,
		Category:           r.Category,
		CookingTimeMinutes: r.CookingTimeMinutes,
		PerServing:         r.PerServingMacros(),
	}
}

// Calories is the whole-calorie per-serving figure of the summarized recipe.
func (s Summary) Calories() int {
	return int(s.PerServing.Calories.IntPart())
}

// ByID indexes recipes by their identifier.
func ByID(recipes []Recipe) map[int64]Recipe {
	out := make(map[int64]Recipe, len(recipes))
	for _, r := range recipes {
		out[r.ID] = r
	}
	return out
}
