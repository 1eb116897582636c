package api

import (
	"net/http"
	"strings"

	"balanced-meal-planner/internal/app"
	"balanced-meal-planner/internal/planner"

	"github.com/gin-gonic/gin"
)

type generateRequest struct {
	StartDate          string  `json:"start_date" binding:"required"`
	CaloriesPerMealMin *int    `json:"calories_per_meal_min" binding:"omitempty,min=0"`
	CaloriesPerMealMax *int    `json:"calories_per_meal_max" binding:"omitempty,min=0"`
	Layout             string  `json:"layout"`
	Name               string  `json:"name"`
	Notes              string  `json:"notes"`
	Seed               *uint64 `json:"seed"`
}

// bindGenerate reads a generation request, answering 400 when it is malformed.
func bindGenerate(c *gin.Context) (planner.Request, bool) {
	var body generateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return planner.Request{}, false
	}
	start, err := app.ParseMenuDate(body.StartDate)
	if err != nil {
		apiError(c, http.StatusBadRequest, "start_date must be dd.MM.yyyy or yyyy-MM-dd")
		return planner.Request{}, false
	}
	return planner.Request{
		UserID:             currentUser(c),
		StartDate:          start,
		CaloriesPerMealMin: body.CaloriesPerMealMin,
		CaloriesPerMealMax: body.CaloriesPerMealMax,
		Layout:             body.Layout,
		Name:               body.Name,
		Notes:              body.Notes,
		Seed:               body.Seed,
	}, true
}

// generatePlan builds and saves a new DRAFT plan with its shopping list.
// POST /api/menu-plans/generate
func (s *Server) generatePlan(c *gin.Context) {
	req, ok := bindGenerate(c)
	if !ok {
		return
	}
	plan, list, err := s.app.GenerateMenuPlan(c, req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"plan": plan, "shopping_list": list})
}

// listPlans returns a page of the user's plans. GET /api/menu-plans?limit=&offset=
func (s *Server) listPlans(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}
	plans, err := s.app.ListPlans(c, currentUser(c), limit, offset)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

func (s *Server) activePlan(c *gin.Context) {
	plan, err := s.app.CurrentMenu(c, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (s *Server) balancedPlans(c *gin.Context) {
	plans, err := s.app.ListBalancedPlans(c, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

// plansBetween returns plans lying within a date range. GET /api/menu-plans/range?from=&to=
func (s *Server) plansBetween(c *gin.Context) {
	from, err := app.ParseMenuDate(c.Query("from"))
	if err != nil {
		apiError(c, http.StatusBadRequest, "invalid from date")
		return
	}
	to, err := app.ParseMenuDate(c.Query("to"))
	if err != nil {
		apiError(c, http.StatusBadRequest, "invalid to date")
		return
	}
	plans, err := s.app.ListPlansBetween(c, currentUser(c), from, to)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

func (s *Server) plansByStatus(c *gin.Context) {
	status, err := planner.ParseStatus(c.Param("status"))
	if err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}
	plans, err := s.app.ListPlansByStatus(c, currentUser(c), status)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

func (s *Server) getPlan(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	plan, err := s.app.GetPlan(c, currentUser(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// activatePlan makes a plan the user's active one. POST /api/menu-plans/:id/activate
func (s *Server) activatePlan(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	plan, err := s.app.ActivatePlan(c, currentUser(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// updatePlanStatus sets a plan's status. PATCH /api/menu-plans/:id/status
func (s *Server) updatePlanStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	status, err := planner.ParseStatus(body.Status)
	if err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}
	plan, err := s.app.UpdatePlanStatus(c, currentUser(c), id, status)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (s *Server) deletePlan(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.app.DeletePlan(c, currentUser(c), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) shoppingList(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	list, err := s.app.ShoppingList(c, currentUser(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// generateMenu is generatePlan with the compact, localized response.
// POST /api/menu/generate?locale=tr
func (s *Server) generateMenu(c *gin.Context) {
	req, ok := bindGenerate(c)
	if !ok {
		return
	}
	plan, _, err := s.app.GenerateMenuPlan(c, req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.Simplify(plan, s.locale(c)))
}

// currentMenu returns the active plan in compact form. GET /api/menu/current?locale=tr
func (s *Server) currentMenu(c *gin.Context) {
	plan, err := s.app.CurrentMenu(c, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.Simplify(plan, s.locale(c)))
}

func (s *Server) layouts(c *gin.Context) {
	c.JSON(http.StatusOK, s.app.Layouts())
}

func (s *Server) locale(c *gin.Context) string {
	return strings.ToLower(c.DefaultQuery("locale", s.app.Config().MenuLocale))
}
