package planner

import (
	"math"

	"balanced-meal-planner/internal/recipe"

	"github.com/shopspring/decimal"
)

// macroBand is a target share of total energy for one macronutrient.
type macroBand struct {
	min, max float64
}

var (
	proteinBand      = macroBand{min: 0.20, max: 0.35}
	carbohydrateBand = macroBand{min: 0.45, max: 0.65}
)

const (
	macroWeight   = 0.4
	calorieWeight = 0.3
	varietyWeight = 0.3
)

func (b macroBand) score(ratio float64) float64 {
	switch {
	case ratio < b.min:
		return ratio / b.min * 100
	case ratio > b.max:
		return b.max / ratio * 100
	default:
		return 100
	}
}

// MacroScore rates how well protein and carbohydrate energy shares fit their
// bands. Zero calories score 0.
func MacroScore(calories, protein, carbohydrates decimal.Decimal) float64 {
	if !calories.IsPositive() {
		return 0
	}
	kcal := calories.InexactFloat64()
	proteinRatio := protein.InexactFloat64() * 4 / kcal
	carbRatio := carbohydrates.InexactFloat64() * 4 / kcal
	return (proteinBand.score(proteinRatio) + carbohydrateBand.score(carbRatio)) / 2
}

// RecipeMacroScore is MacroScore over a recipe's per-serving values.
func RecipeMacroScore(s recipe.Summary) float64 {
	return MacroScore(s.PerServing.Calories, s.PerServing.Protein, s.PerServing.Carbohydrates)
}

// DailyMacroScore averages the macro scores of a day's meals.
func DailyMacroScore(day DailyMealSlot) float64 {
	if len(day.Meals) == 0 {
		return 0
	}
	var sum float64
	for _, m := range day.Meals {
		sum += RecipeMacroScore(m.Recipe)
	}
	return sum / float64(len(day.Meals))
}

// PlanMacroScore averages the daily macro scores.
func PlanMacroScore(days []DailyMealSlot) float64 {
	if len(days) == 0 {
		return 0
	}
	var sum float64
	for _, d := range days {
		sum += DailyMacroScore(d)
	}
	return sum / float64(len(days))
}

// CalorieConsistencyScore buckets the coefficient of variation of daily totals.
// Fewer than two days, or a zero mean, count as perfectly consistent.
func CalorieConsistencyScore(days []DailyMealSlot) float64 {
	if len(days) < 2 {
		return 100
	}
	var sum float64
	for _, d := range days {
		sum += float64(d.TotalCalories)
	}
	mean := sum / float64(len(days))
	if mean == 0 {
		return 100
	}
	var sq float64
	for _, d := range days {
		diff := float64(d.TotalCalories) - mean
		sq += diff * diff
	}
	cv := math.Sqrt(sq/float64(len(days))) / mean * 100

	switch {
	case cv < 10:
		return 100
	case cv < 20:
		return 90
	case cv < 30:
		return 75
	default:
		return 50
	}
}

// VarietyScore is the share of filled slots holding a distinct recipe.
func VarietyScore(days []DailyMealSlot) float64 {
	distinct := make(map[int64]struct{})
	filled := 0
	for _, d := range days {
		for _, m := range d.Meals {
			distinct[m.Recipe.ID] = struct{}{}
			filled++
		}
	}
	if filled == 0 {
		return 0
	}
	return float64(len(distinct)) / float64(filled) * 100
}

// Score combines the three sub-scores into the plan's balance score,
// rounded to 2 places.
func Score(days []DailyMealSlot) (float64, ScoreBreakdown) {
	b := ScoreBreakdown{
		Macro:              round2(PlanMacroScore(days)),
		CalorieConsistency: CalorieConsistencyScore(days),
		Variety:            round2(VarietyScore(days)),
	}
	composite := macroWeight*PlanMacroScore(days) +
		calorieWeight*b.CalorieConsistency +
		varietyWeight*VarietyScore(days)
	return round2(composite), b
}

// IsBalanced reports whether a score reaches the balanced threshold.
func IsBalanced(score float64) bool {
	return score >= BalancedThreshold
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
