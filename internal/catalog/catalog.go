// Package catalog holds the built-in exercise catalog and the workout
// configurations (presets and custom builds) a run can be started from.
package catalog

import "fmt"

// Category groups exercises for display and preset building.
type Category string

const (
	CategoryPush     Category = "push"
	CategoryPull     Category = "pull"
	CategoryLegs     Category = "legs"
	CategoryCore     Category = "core"
	CategoryFullBody Category = "full_body"
)

// Exercise is an immutable catalog entry. Rep count for round r is
// Multiplier * r.
type Exercise struct {
	Name       string
	Multiplier int
	Category   Category
}

// Exercises is the built-in catalog, defined once at process start.
var Exercises = []Exercise{
	{Name: "Pull-ups", Multiplier: 1, Category: CategoryPull},
	{Name: "Push-ups", Multiplier: 2, Category: CategoryPush},
	{Name: "Sit-ups", Multiplier: 3, Category: CategoryCore},
	{Name: "Air Squats", Multiplier: 3, Category: CategoryLegs},
	{Name: "Dips", Multiplier: 1, Category: CategoryPush},
	{Name: "Lunges", Multiplier: 2, Category: CategoryLegs},
	{Name: "Burpees", Multiplier: 1, Category: CategoryFullBody},
	{Name: "Ring Rows", Multiplier: 2, Category: CategoryPull},
}

var byName = func() map[string]Exercise {
	m := make(map[string]Exercise, len(Exercises))
	for _, e := range Exercises {
		m[normalizeName(e.Name)] = e
	}
	return m
}()

// Lookup finds a catalog exercise by name, case- and whitespace-insensitive.
func Lookup(name string) (Exercise, error) {
	e, ok := byName[normalizeName(name)]
	if !ok {
		return Exercise{}, fmt.Errorf("unknown exercise %q", name)
	}
	return e, nil
}
