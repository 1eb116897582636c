package api

import (
	"errors"
	"net/http"
	"strconv"

	"balanced-meal-planner/internal/ingredient"
	"balanced-meal-planner/internal/planner"
	"balanced-meal-planner/internal/recipe"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// apiError returns a consistent JSON error response: {"error": "message"}.
func apiError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, planner.ErrInsufficientCategoryCoverage),
		errors.Is(err, planner.ErrNoFeasibleRecipes),
		errors.Is(err, planner.ErrInvalidRequest),
		errors.Is(err, planner.ErrUnknownLayout),
		errors.Is(err, recipe.ErrUnknownIngredient):
		return http.StatusBadRequest
	case errors.Is(err, planner.ErrNoAvailableIngredients),
		errors.Is(err, planner.ErrPlanNotFound),
		errors.Is(err, ingredient.ErrNotFound),
		errors.Is(err, recipe.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, planner.ErrInvalidTransition),
		errors.Is(err, ingredient.ErrDuplicateName),
		errors.Is(err, recipe.ErrDuplicateName):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error. Unexpected errors are logged and hidden
// behind a generic message.
func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		s.log.Error("Request error",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err))
		apiError(c, status, "internal server error")
		return
	}

	body := gin.H{"error": err.Error()}
	var coverage *planner.CoverageError
	if errors.As(err, &coverage) {
		body["missing_slots"] = coverage.Missing()
	}
	c.JSON(status, body)
}

// pathID parses the :id path parameter, answering 400 when it is malformed.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		apiError(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		apiError(c, http.StatusBadRequest, "invalid "+key)
		return 0, false
	}
	return v, true
}
