package api

import (
	"net/http"

	"balanced-meal-planner/internal/app"
	"balanced-meal-planner/internal/auth"
	"balanced-meal-planner/internal/metrics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server holds shared dependencies for all route handlers.
type Server struct {
	app      *app.App
	tokens   *auth.Tokens
	log      *zap.Logger
	dataPath string
}

// NewServer creates a Server. dataPath is the directory reported by /health.
func NewServer(a *app.App, tokens *auth.Tokens, log *zap.Logger, dataPath string) *Server {
	return &Server{app: a, tokens: tokens, log: log, dataPath: dataPath}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(s.log))
	s.registerRoutes(router)
	return router
}

func (s *Server) registerRoutes(router *gin.Engine) {
	// Public routes
	router.GET("/health", s.health)

	// Authenticated routes
	api := router.Group("/api", s.authMiddleware())

	api.POST("/menu-plans/generate", s.generatePlan)
	api.GET("/menu-plans", s.listPlans)
	api.GET("/menu-plans/active", s.activePlan)
	api.GET("/menu-plans/balanced", s.balancedPlans)
	api.GET("/menu-plans/range", s.plansBetween)
	api.GET("/menu-plans/status/:status", s.plansByStatus)
	api.GET("/menu-plans/:id", s.getPlan)
	api.POST("/menu-plans/:id/activate", s.activatePlan)
	api.PATCH("/menu-plans/:id/status", s.updatePlanStatus)
	api.DELETE("/menu-plans/:id", s.deletePlan)
	api.GET("/menu-plans/:id/shopping-list", s.shoppingList)

	api.POST("/menu/generate", s.generateMenu)
	api.GET("/menu/current", s.currentMenu)
	api.GET("/menu/layouts", s.layouts)

	api.GET("/ingredients", s.listIngredients)
	api.POST("/ingredients", s.createIngredient)
	api.GET("/ingredients/expiring", s.expiringIngredients)
	api.GET("/ingredients/:id", s.getIngredient)
	api.PUT("/ingredients/:id", s.updateIngredient)
	api.PATCH("/ingredients/:id/availability", s.setAvailability)
	api.DELETE("/ingredients/:id", s.deleteIngredient)
	api.GET("/ingredients/:id/nutrition", s.getNutrition)
	api.PUT("/ingredients/:id/nutrition", s.saveNutrition)

	api.GET("/recipes", s.listRecipes)
	api.POST("/recipes", s.createRecipe)
	api.GET("/recipes/:id", s.getRecipe)
	api.PUT("/recipes/:id", s.updateRecipe)
	api.DELETE("/recipes/:id", s.deleteRecipe)
	api.GET("/recipes/:id/nutrition", s.recipeNutrition)

	api.POST("/nutrition/daily", s.dailyNutrition)
}

// health reports process health. GET /health (public).
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"system": metrics.GetSysHealth(s.dataPath),
	})
}
