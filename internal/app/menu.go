package app

import (
	"time"

	"balanced-meal-planner/internal/planner"
)

// MenuDateLayout is the dd.MM.yyyy date format of simplified menus.
const MenuDateLayout = "02.01.2006"

var weekdayNames = map[string][7]string{
	"en": {"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
	"tr": {"Pazar", "Pazartesi", "Salı", "Çarşamba", "Perşembe", "Cuma", "Cumartesi"},
}

var slotLabels = map[string]map[string]string{
	"en": {
		"soup": "Soup", "main_course": "Main course", "side_dish": "Side dish",
		"breakfast": "Breakfast", "lunch": "Lunch", "dinner": "Dinner",
	},
	"tr": {
		"soup": "Çorba", "main_course": "Ana yemek", "side_dish": "Yardımcı yemek",
		"breakfast": "Kahvaltı", "lunch": "Öğle yemeği", "dinner": "Akşam yemeği",
	},
}

// SimpleMeal is one slot of a simplified menu day.
type SimpleMeal struct {
	Slot     string `json:"slot"`
	Label    string `json:"label"`
	Recipe   string `json:"recipe"`
	Calories int    `json:"calories"`
}

// SimpleDay is one day of a simplified menu.
type SimpleDay struct {
	Day           string       `json:"day"`
	Date          string       `json:"date"`
	Meals         []SimpleMeal `json:"meals"`
	TotalCalories int          `json:"total_calories"`
}

// SimpleMenu is the compact, localized rendering of a menu plan.
type SimpleMenu struct {
	PlanID          int64       `json:"plan_id"`
	Status          string      `json:"status"`
	StartDate       string      `json:"start_date"`
	EndDate         string      `json:"end_date"`
	Days            []SimpleDay `json:"days"`
	TotalCalories   int         `json:"total_calories"`
	AverageCalories int         `json:"average_calories"`
	BalanceScore    float64     `json:"balance_score"`
	IsBalanced      bool        `json:"is_balanced"`
}

// Simplify renders a plan with weekday names in the given locale ("en" or
// "tr"; anything else falls back to English) and dd.MM.yyyy dates.
func Simplify(plan *planner.MenuPlan, locale string) SimpleMenu {
	names, ok := weekdayNames[locale]
	if !ok {
		locale = "en"
		names = weekdayNames[locale]
	}
	labels := slotLabels[locale]

	menu := SimpleMenu{
		PlanID:          plan.ID,
		Status:          string(plan.Status),
		StartDate:       plan.StartDate.Format(MenuDateLayout),
		EndDate:         plan.EndDate.Format(MenuDateLayout),
		Days:            make([]SimpleDay, 0, len(plan.Days)),
		TotalCalories:   plan.TotalCalories,
		AverageCalories: plan.AverageCalories,
		BalanceScore:    plan.BalanceScore,
		IsBalanced:      plan.IsBalanced,
	}
	for _, d := range plan.Days {
		day := SimpleDay{
			Day:           names[d.Date.Weekday()],
			Date:          d.Date.Format(MenuDateLayout),
			Meals:         make([]SimpleMeal, 0, len(d.Meals)),
			TotalCalories: d.TotalCalories,
		}
		for _, m := range d.Meals {
			label, ok := labels[m.Slot]
			if !ok {
				label = m.Slot
			}
			day.Meals = append(day.Meals, SimpleMeal{
				Slot:     m.Slot,
				Label:    label,
				Recipe:   m.Recipe.Name,
				Calories: m.Recipe.Calories(),
			})
		}
		menu.Days = append(menu.Days, day)
	}
	return menu
}

// ParseMenuDate accepts dd.MM.yyyy as well as ISO yyyy-MM-dd dates.
func ParseMenuDate(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(MenuDateLayout, s, time.UTC); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}
