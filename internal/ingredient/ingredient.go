package ingredient

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"balanced-meal-planner/internal/units"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = errors.New("ingredient not found")
	ErrDuplicateName = errors.New("ingredient with this name already exists for the user")
)

// Category groups ingredients for browsing.
type Category string

const (
	CategoryVegetables  Category = "VEGETABLES"
	CategoryFruits      Category = "FRUITS"
	CategoryMeat        Category = "MEAT"
	CategoryPoultry     Category = "POULTRY"
	CategoryFish        Category = "FISH"
	CategorySeafood     Category = "SEAFOOD"
	CategoryDairy       Category = "DAIRY"
	CategoryGrains      Category = "GRAINS"
	CategoryLegumes     Category = "LEGUMES"
	CategoryNutsSeeds   Category = "NUTS_SEEDS"
	CategoryHerbsSpices Category = "HERBS_SPICES"
	CategoryOilsFats    Category = "OILS_FATS"
	CategoryCondiments  Category = "CONDIMENTS"
	CategoryBeverages   Category = "BEVERAGES"
	CategoryOther       Category = "OTHER"
)

var categories = map[Category]struct{}{
	CategoryVegetables: {}, CategoryFruits: {}, CategoryMeat: {}, CategoryPoultry: {},
	CategoryFish: {}, CategorySeafood: {}, CategoryDairy: {}, CategoryGrains: {},
	CategoryLegumes: {}, CategoryNutsSeeds: {}, CategoryHerbsSpices: {}, CategoryOilsFats: {},
	CategoryCondiments: {}, CategoryBeverages: {}, CategoryOther: {},
}

// Valid reports whether c is a known ingredient category.
func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

// ParseCategory normalizes user input into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown ingredient category %q", s)
	}
	return c, nil
}

// Ingredient is a stock item a user has on hand.
type Ingredient struct {
	ID         int64           `json:"id"`
	UserID     string          `json:"user_id"`
	Name       string          `json:"name"`
	Category   Category        `json:"category"`
	Quantity   decimal.Decimal `json:"quantity"`
	Unit       units.Unit      `json:"unit"`
	ExpiryDate *time.Time      `json:"expiry_date,omitempty"`
	Notes      string          `json:"notes,omitempty"`
	Available  bool            `json:"available"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Validate checks the invariants an ingredient must hold before it is stored.
func (i Ingredient) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return errors.New("ingredient name is required")
	}
	if !i.Category.Valid() {
		return fmt.Errorf("unknown ingredient category %q", i.Category)
	}
	if !i.Quantity.IsPositive() {
		return errors.New("ingredient quantity must be positive")
	}
	if !i.Unit.Valid() {
		return fmt.Errorf("unknown unit %q", i.Unit)
	}
	return nil
}

// UsableOn reports whether the ingredient is available and not expired on day.
func (i Ingredient) UsableOn(day time.Time) bool {
	if !i.Available {
		return false
	}
	if i.ExpiryDate == nil {
		return true
	}
	return !truncateDay(*i.ExpiryDate).Before(truncateDay(day))
}

// ByID indexes ingredients by their identifier.
func ByID(ingredients []Ingredient) map[int64]Ingredient {
	out := make(map[int64]Ingredient, len(ingredients))
	for _, ing := range ingredients {
		out[ing.ID] = ing
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
