package planner

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoAvailableIngredients       = errors.New("no available ingredients")
	ErrNoFeasibleRecipes            = errors.New("no feasible recipes for the available ingredients")
	ErrInsufficientCategoryCoverage = errors.New("insufficient recipes to cover every meal slot")
	ErrPlanNotFound                 = errors.New("menu plan not found")
	ErrInvalidTransition            = errors.New("invalid menu plan status transition")
	ErrUnknownLayout                = errors.New("unknown menu layout")
	ErrInvalidRequest               = errors.New("invalid menu plan request")
)

// SlotCount is the number of feasible recipes found for one slot.
type SlotCount struct {
	Slot  string
	Count int
}

// CoverageError reports every slot together with its feasible recipe count.
type CoverageError struct {
	Counts []SlotCount
}

func (e *CoverageError) Error() string {
	parts := make([]string, len(e.Counts))
	for i, c := range e.Counts {
		parts[i] = fmt.Sprintf("%s=%d", c.Slot, c.Count)
	}
	return fmt.Sprintf("%s: %s", ErrInsufficientCategoryCoverage, strings.Join(parts, ", "))
}

func (e *CoverageError) Is(target error) bool {
	return target == ErrInsufficientCategoryCoverage
}

// Missing returns the slots with no feasible recipe.
func (e *CoverageError) Missing() []string {
	var out []string
	for _, c := range e.Counts {
		if c.Count == 0 {
			out = append(out, c.Slot)
		}
	}
	return out
}
