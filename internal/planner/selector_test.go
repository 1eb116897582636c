package planner

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"balanced-meal-planner/internal/recipe"

	"github.com/shopspring/decimal"
)

func dish(id int64, category recipe.Category, calories int64) recipe.Recipe {
	return recipe.Recipe{
		ID:       id,
		Name:     string(category) + "-" + decimal.NewFromInt(id).String(),
		Category: category,
		Servings: 1,
		Macros: recipe.Macros{
			Calories:      decimal.NewFromInt(calories),
			Protein:       decimal.NewFromInt(calories / 16),
			Carbohydrates: decimal.NewFromInt(calories / 7),
		},
	}
}

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

var monday = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func coursesCatalog() []recipe.Recipe {
	return []recipe.Recipe{
		dish(1, recipe.CategorySoup, 550), dish(2, recipe.CategorySoup, 600), dish(3, recipe.CategorySoup, 520),
		dish(4, recipe.CategoryMainCourse, 650), dish(5, recipe.CategoryMainCourse, 690),
		dish(6, recipe.CategorySideDish, 510), dish(7, recipe.CategorySideDish, 540), dish(8, recipe.CategorySideDish, 580),
		dish(9, recipe.CategoryDessert, 600),
	}
}

func TestBucket(t *testing.T) {
	buckets := Bucket(MealsLayout, []recipe.Recipe{
		dish(1, recipe.CategoryBreakfast, 400),
		dish(2, recipe.CategoryMainCourse, 600),
		dish(3, recipe.CategorySoup, 300),
		dish(4, recipe.CategoryDessert, 500),
	})

	if got := len(buckets["breakfast"]); got != 1 {
		t.Errorf("Expected 1 breakfast candidate, got %d", got)
	}
	if got := len(buckets["lunch"]); got != 2 {
		t.Errorf("Expected 2 lunch candidates (main course and soup), got %d", got)
	}
	if got := len(buckets["dinner"]); got != 1 {
		t.Errorf("Expected 1 dinner candidate, got %d", got)
	}
}

func TestSelect_NoConsecutiveRepeats(t *testing.T) {
	buckets := Bucket(CoursesLayout, coursesCatalog())

	for seed := uint64(0); seed < 200; seed++ {
		days, err := Select(CoursesLayout, buckets, monday, Window{Min: 500, Max: 700}, seeded(seed))
		if err != nil {
			t.Fatalf("seed %d: Select failed: %v", seed, err)
		}
		if len(days) != DefaultDays {
			t.Fatalf("seed %d: expected %d days, got %d", seed, DefaultDays, len(days))
		}
		for k := 1; k < len(days); k++ {
			for _, slot := range CoursesLayout.Slots {
				prev, _ := days[k-1].Meal(slot.Name)
				cur, _ := days[k].Meal(slot.Name)
				if prev.Recipe.ID == cur.Recipe.ID {
					t.Fatalf("seed %d: slot %s repeats recipe %d on days %d and %d",
						seed, slot.Name, cur.Recipe.ID, k, k+1)
				}
			}
		}
	}
}

func TestSelect_SingleCandidateRepeats(t *testing.T) {
	catalog := []recipe.Recipe{
		dish(1, recipe.CategorySoup, 550),
		dish(2, recipe.CategoryMainCourse, 650), dish(3, recipe.CategoryMainCourse, 600),
		dish(4, recipe.CategorySideDish, 510), dish(5, recipe.CategorySideDish, 540),
	}
	days, err := Select(CoursesLayout, Bucket(CoursesLayout, catalog), monday, Window{Min: 500, Max: 700}, seeded(7))
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	for _, d := range days {
		soup, ok := d.Meal("soup")
		if !ok || soup.Recipe.ID != 1 {
			t.Errorf("Day %d: expected the only soup every day, got %+v", d.DayNumber, soup)
		}
	}
}

func TestSelect_CalorieWindow(t *testing.T) {
	layout := Layout{Name: "single", Slots: []Slot{{Name: "main", Categories: []recipe.Category{recipe.CategoryMainCourse}}}, Days: 6}

	t.Run("PrefersCandidatesInWindow", func(t *testing.T) {
		catalog := []recipe.Recipe{
			dish(1, recipe.CategoryMainCourse, 550),
			dish(2, recipe.CategoryMainCourse, 650),
			dish(3, recipe.CategoryMainCourse, 1200),
			dish(4, recipe.CategoryMainCourse, 200),
		}
		for seed := uint64(0); seed < 50; seed++ {
			days, err := Select(layout, Bucket(layout, catalog), monday, Window{Min: 500, Max: 700}, seeded(seed))
			if err != nil {
				t.Fatalf("Select failed: %v", err)
			}
			for _, d := range days {
				if id := d.Meals[0].Recipe.ID; id != 1 && id != 2 {
					t.Fatalf("seed %d day %d: picked out-of-window recipe %d", seed, d.DayNumber, id)
				}
			}
		}
	})

	t.Run("FallsBackWhenWindowEmpty", func(t *testing.T) {
		catalog := []recipe.Recipe{
			dish(1, recipe.CategoryMainCourse, 1200),
			dish(2, recipe.CategoryMainCourse, 1300),
		}
		days, err := Select(layout, Bucket(layout, catalog), monday, Window{Min: 500, Max: 700}, seeded(1))
		if err != nil {
			t.Fatalf("Select failed: %v", err)
		}
		for k := 1; k < len(days); k++ {
			if days[k].Meals[0].Recipe.ID == days[k-1].Meals[0].Recipe.ID {
				t.Fatalf("day %d repeats the previous recipe", k+1)
			}
		}
	})

	t.Run("VarietyBeatsWindow", func(t *testing.T) {
		// Only recipe 1 fits the window, so every other day must take the other one.
		catalog := []recipe.Recipe{
			dish(1, recipe.CategoryMainCourse, 600),
			dish(2, recipe.CategoryMainCourse, 1500),
		}
		days, err := Select(layout, Bucket(layout, catalog), monday, Window{Min: 500, Max: 700}, seeded(3))
		if err != nil {
			t.Fatalf("Select failed: %v", err)
		}
		if days[0].Meals[0].Recipe.ID != 1 {
			t.Errorf("Expected day 1 to use the in-window recipe, got %d", days[0].Meals[0].Recipe.ID)
		}
		for k := 1; k < len(days); k++ {
			if days[k].Meals[0].Recipe.ID == days[k-1].Meals[0].Recipe.ID {
				t.Fatalf("day %d repeats the previous recipe", k+1)
			}
		}
	})
}

func TestSelect_DayTotalsAndDates(t *testing.T) {
	catalog := []recipe.Recipe{
		{ID: 1, Category: recipe.CategorySoup, Servings: 3, Macros: recipe.Macros{Calories: decimal.NewFromInt(1000)}},
		{ID: 2, Category: recipe.CategoryMainCourse, Servings: 2, Macros: recipe.Macros{Calories: decimal.RequireFromString("1301")}},
		{ID: 3, Category: recipe.CategorySideDish, Servings: 1, Macros: recipe.Macros{Calories: decimal.RequireFromString("250.99")}},
	}
	days, err := Select(CoursesLayout, Bucket(CoursesLayout, catalog), monday, Window{Min: 0, Max: 1000}, seeded(42))
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	for i, d := range days {
		if d.DayNumber != i+1 {
			t.Errorf("Expected day number %d, got %d", i+1, d.DayNumber)
		}
		if want := monday.AddDate(0, 0, i); !d.Date.Equal(want) {
			t.Errorf("Day %d: expected date %v, got %v", d.DayNumber, want, d.Date)
		}
		// 333 + 650 + 250
		if d.TotalCalories != 1233 {
			t.Errorf("Day %d: expected 1233 calories, got %d", d.DayNumber, d.TotalCalories)
		}
		sum := 0
		for _, m := range d.Meals {
			sum += m.Recipe.Calories()
		}
		if sum != d.TotalCalories {
			t.Errorf("Day %d: total %d does not match meals %d", d.DayNumber, d.TotalCalories, sum)
		}
	}
}

func TestSelect_DeterministicForSeed(t *testing.T) {
	buckets := Bucket(CoursesLayout, coursesCatalog())
	a, _ := Select(CoursesLayout, buckets, monday, Window{Min: 500, Max: 700}, seeded(99))
	b, _ := Select(CoursesLayout, buckets, monday, Window{Min: 500, Max: 700}, seeded(99))
	for i := range a {
		for j := range a[i].Meals {
			if a[i].Meals[j].Recipe.ID != b[i].Meals[j].Recipe.ID {
				t.Fatalf("Same seed produced different plans at day %d slot %d", i+1, j)
			}
		}
	}
}

func TestSelect_CoverageError(t *testing.T) {
	catalog := []recipe.Recipe{
		dish(1, recipe.CategorySoup, 550), dish(2, recipe.CategorySoup, 600),
		dish(3, recipe.CategoryMainCourse, 650),
	}
	_, err := Select(CoursesLayout, Bucket(CoursesLayout, catalog), monday, Window{Min: 500, Max: 700}, seeded(1))

	var coverage *CoverageError
	if !errors.As(err, &coverage) {
		t.Fatalf("Expected CoverageError, got %v", err)
	}
	if !errors.Is(err, ErrInsufficientCategoryCoverage) {
		t.Error("Expected error to match ErrInsufficientCategoryCoverage")
	}
	want := "insufficient recipes to cover every meal slot: soup=2, main_course=1, side_dish=0"
	if err.Error() != want {
		t.Errorf("Expected message %q, got %q", want, err.Error())
	}
	if missing := coverage.Missing(); len(missing) != 1 || missing[0] != "side_dish" {
		t.Errorf("Expected missing [side_dish], got %v", missing)
	}
}
