package api

import (
	"net/http"
	"strings"

	"balanced-meal-planner/internal/database"
	"balanced-meal-planner/internal/ingredient"
	"balanced-meal-planner/internal/units"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ingredientRequest struct {
	Name       string          `json:"name" binding:"required"`
	Category   string          `json:"category" binding:"required"`
	Quantity   decimal.Decimal `json:"quantity"`
	Unit       string          `json:"unit" binding:"required"`
	ExpiryDate string          `json:"expiry_date"`
	Notes      string          `json:"notes"`
	Available  *bool           `json:"available"`
}

func (r ingredientRequest) toIngredient(userID string) (*ingredient.Ingredient, error) {
	category, err := ingredient.ParseCategory(r.Category)
	if err != nil {
		return nil, err
	}
	unit, err := units.Parse(r.Unit)
	if err != nil {
		return nil, err
	}
	ing := &ingredient.Ingredient{
		UserID:    userID,
		Name:      strings.TrimSpace(r.Name),
		Category:  category,
		Quantity:  r.Quantity,
		Unit:      unit,
		Notes:     r.Notes,
		Available: r.Available == nil || *r.Available,
	}
	if r.ExpiryDate != "" {
		d, err := database.ParseDate(r.ExpiryDate)
		if err != nil {
			return nil, err
		}
		ing.ExpiryDate = &d
	}
	return ing, ing.Validate()
}

// bindIngredient reads an ingredient body, answering 400 when it is malformed.
func bindIngredient(c *gin.Context) (*ingredient.Ingredient, bool) {
	var body ingredientRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	ing, err := body.toIngredient(currentUser(c))
	if err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return ing, true
}

// listIngredients returns the user's ingredients. GET /api/ingredients?category=&available=true
func (s *Server) listIngredients(c *gin.Context) {
	var (
		items []ingredient.Ingredient
		err   error
	)
	if c.Query("available") == "true" {
		items, err = s.app.AvailableIngredients(c, currentUser(c))
	} else {
		category := ingredient.Category("")
		if raw := c.Query("category"); raw != "" {
			if category, err = ingredient.ParseCategory(raw); err != nil {
				apiError(c, http.StatusBadRequest, err.Error())
				return
			}
		}
		items, err = s.app.ListIngredients(c, currentUser(c), category)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) createIngredient(c *gin.Context) {
	ing, ok := bindIngredient(c)
	if !ok {
		return
	}
	if err := s.app.CreateIngredient(c, ing); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, ing)
}

// expiringIngredients returns ingredients expiring soon. GET /api/ingredients/expiring?days=3
func (s *Server) expiringIngredients(c *gin.Context) {
	days, ok := queryInt(c, "days", 3)
	if !ok {
		return
	}
	items, err := s.app.ExpiringIngredients(c, currentUser(c), days)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) getIngredient(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ing, err := s.app.GetIngredient(c, currentUser(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ing)
}

func (s *Server) updateIngredient(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ing, ok := bindIngredient(c)
	if !ok {
		return
	}
	ing.ID = id
	if err := s.app.UpdateIngredient(c, ing); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ing)
}

// setAvailability toggles an ingredient for planning. PATCH /api/ingredients/:id/availability
func (s *Server) setAvailability(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body struct {
		Available *bool `json:"available" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.app.SetIngredientAvailability(c, currentUser(c), id, *body.Available); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteIngredient(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.app.DeleteIngredient(c, currentUser(c), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getNutrition(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rec, err := s.app.GetNutrition(c, currentUser(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if rec == nil {
		apiError(c, http.StatusNotFound, "no nutrition record for this ingredient")
		return
	}
	c.JSON(http.StatusOK, rec)
}

// saveNutrition stores the per-serving nutrition of an ingredient.
// PUT /api/ingredients/:id/nutrition
func (s *Server) saveNutrition(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var rec ingredient.NutritionRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	unit, err := units.Parse(string(rec.ServingUnit))
	if err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}
	rec.IngredientID = id
	rec.ServingUnit = unit
	if err := rec.Validate(); err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.app.SaveNutrition(c, currentUser(c), rec); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
