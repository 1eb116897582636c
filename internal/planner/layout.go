package planner

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"balanced-meal-planner/internal/recipe"

	"gopkg.in/yaml.v3"
)

// DefaultDays is the planning horizon used when a layout does not set one.
const DefaultDays = 5

// Slot is a named meal role filled once per day from recipes of the listed categories.
type Slot struct {
	Name       string            `yaml:"name" json:"name"`
	Categories []recipe.Category `yaml:"categories" json:"categories"`
}

// Layout describes the shape of a planned day.
type Layout struct {
	Name         string `yaml:"name" json:"name"`
	Slots        []Slot `yaml:"slots" json:"slots"`
	Days         int    `yaml:"days" json:"days"`
	SnapToMonday bool   `yaml:"snap_to_monday" json:"snap_to_monday"`
}

// Validate checks that the layout can drive the selector.
func (l Layout) Validate() error {
	if l.Name == "" {
		return errors.New("layout name is required")
	}
	if len(l.Slots) == 0 {
		return fmt.Errorf("layout %q has no slots", l.Name)
	}
	if l.Days < 0 {
		return fmt.Errorf("layout %q: days must not be negative", l.Name)
	}
	seen := make(map[string]struct{}, len(l.Slots))
	for _, s := range l.Slots {
		if s.Name == "" {
			return fmt.Errorf("layout %q has a slot without a name", l.Name)
		}
		if _, ok := seen[s.Name]; ok {
			return fmt.Errorf("layout %q repeats slot %q", l.Name, s.Name)
		}
		seen[s.Name] = struct{}{}
		if len(s.Categories) == 0 {
			return fmt.Errorf("layout %q: slot %q has no categories", l.Name, s.Name)
		}
	}
	return nil
}

// Horizon returns the number of days to plan.
func (l Layout) Horizon() int {
	if l.Days <= 0 {
		return DefaultDays
	}
	return l.Days
}

// Built-in layouts.
var (
	CoursesLayout = Layout{
		Name: "courses",
		Slots: []Slot{
			{Name: "soup", Categories: []recipe.Category{recipe.CategorySoup}},
			{Name: "main_course", Categories: []recipe.Category{recipe.CategoryMainCourse}},
			{Name: "side_dish", Categories: []recipe.Category{recipe.CategorySideDish}},
		},
		Days:         DefaultDays,
		SnapToMonday: true,
	}
	MealsLayout = Layout{
		Name: "meals",
		Slots: []Slot{
			{Name: "breakfast", Categories: []recipe.Category{recipe.CategoryBreakfast}},
			{Name: "lunch", Categories: []recipe.Category{recipe.CategoryMainCourse, recipe.CategorySoup}},
			{Name: "dinner", Categories: []recipe.Category{recipe.CategoryMainCourse}},
		},
		Days: DefaultDays,
	}
)

// Layouts is a set of named layouts.
type Layouts map[string]Layout

// DefaultLayouts returns the built-in layouts.
func DefaultLayouts() Layouts {
	return Layouts{
		CoursesLayout.Name: CoursesLayout,
		MealsLayout.Name:   MealsLayout,
	}
}

// Get looks up a layout by name.
func (ls Layouts) Get(name string) (Layout, bool) {
	l, ok := ls[name]
	return l, ok
}

// Names returns the layout names in sorted order.
func (ls Layouts) Names() []string {
	names := make([]string, 0, len(ls))
	for n := range ls {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type layoutFile struct {
	Layouts []Layout `yaml:"layouts"`
}

// LoadLayouts reads layouts from a YAML file and merges them over the built-ins.
// A file entry with a built-in name replaces it.
func LoadLayouts(path string) (Layouts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layouts file: %w", err)
	}
	return ParseLayouts(data)
}

// ParseLayouts decodes YAML layouts and merges them over the built-ins.
func ParseLayouts(data []byte) (Layouts, error) {
	var f layoutFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse layouts: %w", err)
	}
	out := DefaultLayouts()
	for _, l := range f.Layouts {
		for i := range l.Slots {
			for j, c := range l.Slots[i].Categories {
				l.Slots[i].Categories[j] = recipe.NormalizeCategory(string(c))
			}
		}
		if err := l.Validate(); err != nil {
			return nil, err
		}
		out[l.Name] = l
	}
	return out, nil
}
