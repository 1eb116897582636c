package planner

import (
	"math/rand/v2"
	"time"

	"balanced-meal-planner/internal/recipe"
)

// Window is the preferred per-serving calorie range of a single meal.
type Window struct {
	Min int
	Max int
}

// Contains reports whether calories fall inside the window.
func (w Window) Contains(calories int) bool {
	return calories >= w.Min && calories <= w.Max
}

// Bucket assigns recipes to every slot whose categories include the recipe's category.
// Order within a bucket follows the input order.
func Bucket(layout Layout, recipes []recipe.Recipe) map[string][]recipe.Recipe {
	buckets := make(map[string][]recipe.Recipe, len(layout.Slots))
	for _, slot := range layout.Slots {
		accepts := make(map[recipe.Category]struct{}, len(slot.Categories))
		for _, c := range slot.Categories {
			accepts[c] = struct{}{}
		}
		seen := make(map[int64]struct{})
		bucket := []recipe.Recipe{}
		for _, r := range recipes {
			if _, ok := accepts[r.Category]; !ok {
				continue
			}
			if _, dup := seen[r.ID]; dup {
				continue
			}
			seen[r.ID] = struct{}{}
			bucket = append(bucket, r)
		}
		buckets[slot.Name] = bucket
	}
	return buckets
}

// slotCursor is the selection state of one slot carried from day to day.
type slotCursor struct {
	slot       string
	candidates []recipe.Recipe
	next       int
	prevID     int64
	picked     bool
}

func newSlotCursor(slot string, candidates []recipe.Recipe, rng *rand.Rand) slotCursor {
	shuffled := make([]recipe.Recipe, len(candidates))
	copy(shuffled, candidates)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return slotCursor{slot: slot, candidates: shuffled}
}

// eligible reports whether r may follow the previous pick. Repetition is only
// allowed when the slot has a single candidate.
func (c slotCursor) eligible(r recipe.Recipe) bool {
	return !c.picked || len(c.candidates) == 1 || r.ID != c.prevID
}

// pick chooses the next recipe, scanning from the cursor position. Candidates
// inside the calorie window win when any exist; otherwise any eligible one does.
func (c slotCursor) pick(window Window) (recipe.Recipe, slotCursor) {
	n := len(c.candidates)
	chosen := -1
	fallback := -1
	for step := 0; step < n; step++ {
		i := (c.next + step) % n
		r := c.candidates[i]
		if !c.eligible(r) {
			continue
		}
		if fallback < 0 {
			fallback = i
		}
		if window.Contains(r.CaloriesPerServing()) {
			chosen = i
			break
		}
	}
	if chosen < 0 {
		chosen = fallback
	}
	if chosen < 0 {
		// Unreachable while the candidate list has distinct ids.
		chosen = c.next % n
	}

	r := c.candidates[chosen]
	return r, slotCursor{
		slot:       c.slot,
		candidates: c.candidates,
		next:       (chosen + 1) % n,
		prevID:     r.ID,
		picked:     true,
	}
}

// Select builds days planned days starting at start, one recipe per slot per day.
// Each slot's candidates are shuffled once with rng. A slot never repeats the
// previous day's recipe unless it has only one candidate.
func Select(layout Layout, buckets map[string][]recipe.Recipe, start time.Time, window Window, rng *rand.Rand) ([]DailyMealSlot, error) {
	counts := make([]SlotCount, len(layout.Slots))
	short := false
	for i, slot := range layout.Slots {
		counts[i] = SlotCount{Slot: slot.Name, Count: len(buckets[slot.Name])}
		if counts[i].Count == 0 {
			short = true
		}
	}
	if short {
		return nil, &CoverageError{Counts: counts}
	}

	cursors := make([]slotCursor, len(layout.Slots))
	for i, slot := range layout.Slots {
		cursors[i] = newSlotCursor(slot.Name, buckets[slot.Name], rng)
	}

	horizon := layout.Horizon()
	days := make([]DailyMealSlot, horizon)
	for d := 0; d < horizon; d++ {
		day := DailyMealSlot{
			DayNumber: d + 1,
			Date:      start.AddDate(0, 0, d),
			Meals:     make([]Meal, 0, len(cursors)),
		}
		for i := range cursors {
			var r recipe.Recipe
			r, cursors[i] = cursors[i].pick(window)
			day.Meals = append(day.Meals, Meal{Slot: cursors[i].slot, Recipe: r.Summarize()})
			day.TotalCalories += r.CaloriesPerServing()
		}
		days[d] = day
	}
	return days, nil
}
