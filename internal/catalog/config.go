package catalog

import (
	"fmt"
	"strings"

	"github.com/meltforce/ladderlog/internal/progression"
)

// Config is what a run is started from: either a named preset or a custom
// ordered exercise list with a progression mode.
type Config struct {
	// PresetKey is set for preset workouts and empty for custom ones.
	PresetKey string

	Exercises []Exercise
	Mode      progression.Mode

	// DisplayName is optional for custom workouts; presets carry their own.
	DisplayName string
}

// Preset is a fixed, named workout configuration.
type Preset struct {
	Key         string
	DisplayName string
	Exercises   []Exercise
	Mode        progression.Mode
}

// Presets are the built-in workout configurations, keyed by their ModeKey.
var Presets = []Preset{
	{
		Key:         "classic",
		DisplayName: "Classic Ladder",
		Exercises:   mustExercises("Pull-ups", "Push-ups", "Sit-ups"),
		Mode:        progression.Ascending,
	},
	{
		Key:         "pyramid",
		DisplayName: "Pyramid",
		Exercises:   mustExercises("Pull-ups", "Push-ups", "Air Squats"),
		Mode:        progression.Full,
	},
	{
		Key:         "descent",
		DisplayName: "The Descent",
		Exercises:   mustExercises("Burpees", "Lunges", "Sit-ups"),
		Mode:        progression.Descending,
	},
	{
		Key:         "pull_day",
		DisplayName: "Pull Day",
		Exercises:   mustExercises("Pull-ups", "Ring Rows"),
		Mode:        progression.Ascending,
	},
}

// FindPreset returns the preset with the given key.
func FindPreset(key string) (Preset, error) {
	for _, p := range Presets {
		if p.Key == key {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("unknown preset %q", key)
}

// FromPreset builds a Config from a preset.
func FromPreset(p Preset) Config {
	return Config{
		PresetKey:   p.Key,
		Exercises:   p.Exercises,
		Mode:        p.Mode,
		DisplayName: p.DisplayName,
	}
}

// Custom builds a Config from an explicit exercise list and mode.
func Custom(exercises []Exercise, mode progression.Mode, displayName string) Config {
	return Config{Exercises: exercises, Mode: mode, DisplayName: displayName}
}

// ModeKey returns the canonical identifier used to group sessions of the
// same workout type, e.g. for personal-best lookups. Presets use their
// fixed key. Custom workouts derive one from the sanitized exercise names
// plus the mode, so the same exercises in the same mode always collapse to
// the same key regardless of name casing or stray whitespace.
func (c Config) ModeKey() string {
	if c.PresetKey != "" {
		return c.PresetKey
	}
	parts := make([]string, 0, len(c.Exercises)+1)
	for _, e := range c.Exercises {
		parts = append(parts, sanitizeName(e.Name))
	}
	parts = append(parts, c.Mode.String())
	return strings.Join(parts, "_")
}

// Multipliers returns the configured exercises' multipliers in order.
func (c Config) Multipliers() []int {
	mults := make([]int, len(c.Exercises))
	for i, e := range c.Exercises {
		mults[i] = e.Multiplier
	}
	return mults
}

// TotalReps returns the rep total for completing the whole configuration.
func (c Config) TotalReps() int {
	return progression.TotalReps(c.Multipliers(), c.Mode)
}

// normalizeName is the lookup key form: lowercase, whitespace collapsed.
func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// sanitizeName is the mode-key form: lowercase, runs of whitespace and
// punctuation collapsed to single hyphens.
func sanitizeName(name string) string {
	var b strings.Builder
	lastHyphen := true // swallow leading separators
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

func mustExercises(names ...string) []Exercise {
	out := make([]Exercise, len(names))
	for i, n := range names {
		e, err := Lookup(n)
		if err != nil {
			panic(err)
		}
		out[i] = e
	}
	return out
}
