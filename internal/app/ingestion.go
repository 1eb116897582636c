package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"balanced-meal-planner/internal/database"
	"balanced-meal-planner/internal/ingredient"
	"balanced-meal-planner/internal/recipe"
	"balanced-meal-planner/internal/units"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Catalog is the YAML document accepted by ImportCatalog.
type Catalog struct {
	Ingredients []CatalogIngredient `yaml:"ingredients"`
	Recipes     []CatalogRecipe     `yaml:"recipes"`
}

// CatalogIngredient is one pantry entry of a catalog.
type CatalogIngredient struct {
	Name       string            `yaml:"name"`
	Category   string            `yaml:"category"`
	Quantity   string            `yaml:"quantity"`
	Unit       string            `yaml:"unit"`
	ExpiryDate string            `yaml:"expiry_date"`
	Notes      string            `yaml:"notes"`
	Available  *bool             `yaml:"available"`
	Nutrition  *CatalogNutrition `yaml:"nutrition"`
}

// CatalogNutrition is the per-serving nutrition of a catalog ingredient.
type CatalogNutrition struct {
	ServingSize    string            `yaml:"serving_size"`
	ServingUnit    string            `yaml:"serving_unit"`
	Calories       string            `yaml:"calories"`
	Protein        string            `yaml:"protein"`
	Carbohydrates  string            `yaml:"carbohydrates"`
	Fat            string            `yaml:"fat"`
	Micronutrients map[string]string `yaml:"micronutrients"`
}

// CatalogRecipe is one recipe of a catalog. Ingredients are referenced by name.
type CatalogRecipe struct {
	Name               string               `yaml:"name"`
	Description        string               `yaml:"description"`
	Category           string               `yaml:"category"`
	Servings           int                  `yaml:"servings"`
	CookingTimeMinutes int                  `yaml:"cooking_time_minutes"`
	Ingredients        []CatalogRequirement `yaml:"ingredients"`
	Instructions       []string             `yaml:"instructions"`
	Macros             map[string]string    `yaml:"macros"`
	Inactive           bool                 `yaml:"inactive"`
}

// CatalogRequirement is one ingredient line of a catalog recipe.
type CatalogRequirement struct {
	Name     string `yaml:"name"`
	Quantity string `yaml:"quantity"`
	Unit     string `yaml:"unit"`
	Optional bool   `yaml:"optional"`
	Notes    string `yaml:"notes"`
}

// ImportReport counts what ImportCatalog did.
type ImportReport struct {
	IngredientsCreated int `json:"ingredients_created"`
	IngredientsSkipped int `json:"ingredients_skipped"`
	RecipesCreated     int `json:"recipes_created"`
	RecipesSkipped     int `json:"recipes_skipped"`
	MacrosComputed     int `json:"macros_computed"`
}

// LoadCatalog reads a catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return &c, nil
}

// ImportCatalog adds a catalog's ingredients and recipes to the user's data.
// Names that already exist are skipped; recipes without macros get them
// computed from the nutrition records of their ingredients.
func (a *App) ImportCatalog(ctx context.Context, userID string, c *Catalog) (ImportReport, error) {
	var report ImportReport
	ids := make(map[string]int64)

	for _, ci := range c.Ingredients {
		existing, err := a.ingredients.GetByName(ctx, userID, ci.Name)
		if err != nil {
			return report, err
		}
		if existing != nil {
			a.log.Info("Ingredient already exists, skipping", zap.String("name", ci.Name))
			ids[strings.ToLower(ci.Name)] = existing.ID
			report.IngredientsSkipped++
			continue
		}

		ing, err := ci.toIngredient(userID)
		if err != nil {
			return report, fmt.Errorf("ingredient %q: %w", ci.Name, err)
		}
		if err := a.ingredients.Create(ctx, ing); err != nil {
			return report, fmt.Errorf("failed to create ingredient %q: %w", ci.Name, err)
		}
		ids[strings.ToLower(ing.Name)] = ing.ID
		report.IngredientsCreated++

		if ci.Nutrition != nil {
			rec, err := ci.Nutrition.toRecord(ing.ID)
			if err != nil {
				return report, fmt.Errorf("ingredient %q nutrition: %w", ci.Name, err)
			}
			if err := a.ingredients.SaveNutrition(ctx, rec); err != nil {
				return report, fmt.Errorf("failed to save nutrition for %q: %w", ci.Name, err)
			}
		}
	}

	for _, cr := range c.Recipes {
		rec, err := a.catalogRecipe(ctx, userID, cr, ids)
		if err != nil {
			return report, fmt.Errorf("recipe %q: %w", cr.Name, err)
		}
		computed, err := a.calculator.FillMacros(ctx, rec)
		if err != nil {
			return report, fmt.Errorf("recipe %q: %w", cr.Name, err)
		}
		if err := a.recipes.Create(ctx, rec); err != nil {
			if errors.Is(err, recipe.ErrDuplicateName) {
				a.log.Info("Recipe already exists, skipping", zap.String("name", cr.Name))
				report.RecipesSkipped++
				continue
			}
			return report, fmt.Errorf("failed to create recipe %q: %w", cr.Name, err)
		}
		report.RecipesCreated++
		if computed {
			report.MacrosComputed++
		}
	}

	a.log.Info("Catalog imported",
		zap.String("user_id", userID),
		zap.Int("ingredients_created", report.IngredientsCreated),
		zap.Int("recipes_created", report.RecipesCreated),
		zap.Int("macros_computed", report.MacrosComputed))
	return report, nil
}

func (a *App) catalogRecipe(ctx context.Context, userID string, cr CatalogRecipe, ids map[string]int64) (*recipe.Recipe, error) {
	rec := &recipe.Recipe{
		UserID:             userID,
		Name:               cr.Name,
		Description:        cr.Description,
		Category:           recipe.NormalizeCategory(cr.Category),
		Servings:           cr.Servings,
		CookingTimeMinutes: cr.CookingTimeMinutes,
		Instructions:       cr.Instructions,
		Active:             !cr.Inactive,
	}
	if rec.Servings == 0 {
		rec.Servings = 1
	}

	for _, line := range cr.Ingredients {
		id, ok := ids[strings.ToLower(line.Name)]
		if !ok {
			ing, err := a.ingredients.GetByName(ctx, userID, line.Name)
			if err != nil {
				return nil, err
			}
			if ing == nil {
				return nil, fmt.Errorf("%w: %s", recipe.ErrUnknownIngredient, line.Name)
			}
			id = ing.ID
			ids[strings.ToLower(line.Name)] = id
		}
		qty, err := parseDecimal(line.Quantity, "quantity")
		if err != nil {
			return nil, err
		}
		unit, err := units.Parse(line.Unit)
		if err != nil {
			return nil, err
		}
		rec.Requirements = append(rec.Requirements, recipe.Requirement{
			IngredientID:   id,
			IngredientName: line.Name,
			Quantity:       qty,
			Unit:           unit,
			Optional:       line.Optional,
			Notes:          line.Notes,
		})
	}

	if len(cr.Macros) > 0 {
		fields := map[string]*decimal.Decimal{
			"calories":      &rec.Calories,
			"protein":       &rec.Protein,
			"carbohydrates": &rec.Carbohydrates,
			"fat":           &rec.Fat,
			"fiber":         &rec.Fiber,
		}
		for name, raw := range cr.Macros {
			dst, ok := fields[strings.ToLower(name)]
			if !ok {
				return nil, fmt.Errorf("unknown macro %q", name)
			}
			v, err := parseDecimal(raw, name)
			if err != nil {
				return nil, err
			}
			*dst = v
		}
	}
	return rec, nil
}

func (ci CatalogIngredient) toIngredient(userID string) (*ingredient.Ingredient, error) {
	category, err := ingredient.ParseCategory(ci.Category)
	if err != nil {
		return nil, err
	}
	unit, err := units.Parse(ci.Unit)
	if err != nil {
		return nil, err
	}
	qty, err := parseDecimal(ci.Quantity, "quantity")
	if err != nil {
		return nil, err
	}
	ing := &ingredient.Ingredient{
		UserID:    userID,
		Name:      ci.Name,
		Category:  category,
		Quantity:  qty,
		Unit:      unit,
		Notes:     ci.Notes,
		Available: ci.Available == nil || *ci.Available,
	}
	if ci.ExpiryDate != "" {
		d, err := database.ParseDate(ci.ExpiryDate)
		if err != nil {
			return nil, err
		}
		ing.ExpiryDate = &d
	}
	return ing, nil
}

func (cn CatalogNutrition) toRecord(ingredientID int64) (ingredient.NutritionRecord, error) {
	rec := ingredient.NutritionRecord{IngredientID: ingredientID}
	unit, err := units.Parse(cn.ServingUnit)
	if err != nil {
		return rec, err
	}
	rec.ServingUnit = unit

	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"serving_size", cn.ServingSize, &rec.ServingSize},
		{"calories", cn.Calories, &rec.Calories},
		{"protein", cn.Protein, &rec.Protein},
		{"carbohydrates", cn.Carbohydrates, &rec.Carbohydrates},
		{"fat", cn.Fat, &rec.Fat},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		if *f.dst, err = parseDecimal(f.raw, f.name); err != nil {
			return rec, err
		}
	}

	for name, raw := range cn.Micronutrients {
		v, err := parseDecimal(raw, name)
		if err != nil {
			return rec, err
		}
		if rec.Micros == nil {
			rec.Micros = make(map[ingredient.Micronutrient]decimal.Decimal)
		}
		rec.Micros[ingredient.Micronutrient(strings.ToLower(name))] = v
	}
	return rec, nil
}

func parseDecimal(raw, field string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s %q", field, raw)
	}
	return v, nil
}
