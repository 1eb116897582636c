package api

import (
	"net/http"
	"strconv"

	"balanced-meal-planner/internal/app"
	"balanced-meal-planner/internal/recipe"
	"balanced-meal-planner/internal/units"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type requirementRequest struct {
	IngredientID int64           `json:"ingredient_id" binding:"required"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit" binding:"required"`
	Optional     bool            `json:"optional"`
	Notes        string          `json:"notes"`
}

type recipeRequest struct {
	Name               string               `json:"name" binding:"required"`
	Description        string               `json:"description"`
	Category           string               `json:"category" binding:"required"`
	Servings           int                  `json:"servings" binding:"min=0"`
	CookingTimeMinutes int                  `json:"cooking_time_minutes" binding:"min=0"`
	Requirements       []requirementRequest `json:"requirements" binding:"dive"`
	Instructions       []string             `json:"instructions"`
	Macros             recipe.Macros        `json:"macros"`
	Active             *bool                `json:"active"`
}

func (r recipeRequest) toRecipe(userID string) (*recipe.Recipe, error) {
	rec := &recipe.Recipe{
		UserID:             userID,
		Name:               r.Name,
		Description:        r.Description,
		Category:           recipe.NormalizeCategory(r.Category),
		Servings:           r.Servings,
		CookingTimeMinutes: r.CookingTimeMinutes,
		Instructions:       r.Instructions,
		Macros:             r.Macros,
		Active:             r.Active == nil || *r.Active,
	}
	if rec.Servings == 0 {
		rec.Servings = 1
	}
	for _, req := range r.Requirements {
		unit, err := units.Parse(req.Unit)
		if err != nil {
			return nil, err
		}
		rec.Requirements = append(rec.Requirements, recipe.Requirement{
			IngredientID: req.IngredientID,
			Quantity:     req.Quantity,
			Unit:         unit,
			Optional:     req.Optional,
			Notes:        req.Notes,
		})
	}
	return rec, rec.Validate()
}

func bindRecipe(c *gin.Context) (*recipe.Recipe, bool) {
	var body recipeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	rec, err := body.toRecipe(currentUser(c))
	if err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return rec, true
}

// listRecipes returns the user's recipes, filtered by at most one of
// category, search, ingredient_id, max_minutes or active.
// GET /api/recipes
func (s *Server) listRecipes(c *gin.Context) {
	q := app.RecipeQuery{
		Category:   recipe.NormalizeCategory(c.Query("category")),
		Search:     c.Query("search"),
		ActiveOnly: c.Query("active") == "true",
	}
	if raw := c.Query("ingredient_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			apiError(c, http.StatusBadRequest, "invalid ingredient_id")
			return
		}
		q.IngredientID = id
	}
	maxMinutes, ok := queryInt(c, "max_minutes", 0)
	if !ok {
		return
	}
	q.MaxCookingMinutes = maxMinutes

	recipes, err := s.app.ListRecipes(c, currentUser(c), q)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, recipes)
}

func (s *Server) createRecipe(c *gin.Context) {
	rec, ok := bindRecipe(c)
	if !ok {
		return
	}
	if err := s.app.CreateRecipe(c, rec); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) getRecipe(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rec, err := s.app.GetRecipe(c, currentUser(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) updateRecipe(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rec, ok := bindRecipe(c)
	if !ok {
		return
	}
	rec.ID = id
	if err := s.app.UpdateRecipe(c, rec); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) deleteRecipe(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.app.DeleteRecipe(c, currentUser(c), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// recipeNutrition computes per-serving nutrition from ingredient records.
// GET /api/recipes/:id/nutrition
func (s *Server) recipeNutrition(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	totals, err := s.app.RecipeNutrition(c, currentUser(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, totals)
}

// dailyNutrition checks one serving of each recipe against the daily bands.
// POST /api/nutrition/daily
func (s *Server) dailyNutrition(c *gin.Context) {
	var body struct {
		RecipeIDs []int64 `json:"recipe_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "recipe_ids must list at least one recipe")
		return
	}
	report, err := s.app.DailyNutrition(c, currentUser(c), body.RecipeIDs)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
