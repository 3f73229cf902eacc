// Package workout implements the ladder run state machine: round and
// exercise sequencing, rep and time accounting, and the one-time emission
// of a durable session record when a run ends.
package workout

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/ladderlog/internal/catalog"
	"github.com/meltforce/ladderlog/internal/models"
	"github.com/meltforce/ladderlog/internal/progression"
)

// Clock supplies wall-clock time to a run. Injected so tests can drive
// elapsed time deterministically; the tick that updates a visible timer
// belongs to the caller's event loop, never to this package.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real wall clock.
func SystemClock() Clock { return systemClock{} }

// State is the run lifecycle. Both terminal states are final; a new Run
// is required to go again.
type State int

const (
	StateNotStarted State = iota
	StateActive
	StateCompleted
	StateEndedEarly
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	case StateEndedEarly:
		return "ended_early"
	default:
		return "unknown"
	}
}

// Contract-violation errors. Reaching one through normal UI flow is a
// caller bug, not a recoverable condition.
var (
	ErrNoExercises    = errors.New("workout: configuration has no exercises")
	ErrAlreadyStarted = errors.New("workout: run already started")
	ErrNotActive      = errors.New("workout: run is not active")
	ErrNotFinished    = errors.New("workout: run has not finished")
)

// Run is the mutable state of one workout session. It has a single
// logical owner: all mutating calls must come from one serialized
// execution context (see the package doc on Clock for the timer tick).
type Run struct {
	cfg   catalog.Config
	clock Clock

	state       State
	round       int
	phase       progression.Phase
	exerciseIdx int

	completedRounds int
	totalReps       int
	exerciseReps    map[string]int
	exerciseSeconds map[string]int

	startedAt    time.Time
	endedAt      time.Time
	lastBoundary time.Time

	record *models.SessionRecord
}

// NewRun creates a run for the given configuration. A nil clock means the
// system clock.
func NewRun(cfg catalog.Config, clock Clock) *Run {
	if clock == nil {
		clock = SystemClock()
	}
	return &Run{cfg: cfg, clock: clock, state: StateNotStarted}
}

// Start begins the run: first round per the mode, all counters zeroed,
// elapsed time accruing from now.
func (r *Run) Start() error {
	if r.state != StateNotStarted {
		return ErrAlreadyStarted
	}
	if len(r.cfg.Exercises) == 0 {
		return ErrNoExercises
	}

	r.round = r.cfg.Mode.StartRound()
	r.phase = r.cfg.Mode.StartPhase()
	r.exerciseIdx = 0
	r.completedRounds = 0
	r.totalReps = 0
	r.exerciseReps = make(map[string]int, len(r.cfg.Exercises))
	r.exerciseSeconds = make(map[string]int, len(r.cfg.Exercises))
	r.startedAt = r.clock.Now()
	r.lastBoundary = r.startedAt
	r.state = StateActive
	return nil
}

// CompleteSet records the current exercise's reps for the current round
// and advances. Finishing the last exercise of a round advances the round;
// finishing the last round completes the run.
func (r *Run) CompleteSet() error {
	if r.state != StateActive {
		return ErrNotActive
	}

	now := r.clock.Now()
	ex := r.cfg.Exercises[r.exerciseIdx]
	reps := progression.RepsForRound(ex.Multiplier, r.round)
	r.totalReps += reps
	r.exerciseReps[ex.Name] += reps
	r.exerciseSeconds[ex.Name] += int(now.Sub(r.lastBoundary).Seconds())
	r.lastBoundary = now

	r.exerciseIdx++
	if r.exerciseIdx < len(r.cfg.Exercises) {
		return nil
	}

	// Round complete.
	r.completedRounds++
	r.exerciseIdx = 0
	next, phase, done := progression.Next(r.cfg.Mode, r.round, r.phase)
	if done {
		r.finish(StateCompleted, now)
		return nil
	}
	r.round, r.phase = next, phase
	return nil
}

// EndEarly terminates the run, keeping everything accumulated so far. The
// in-progress, uncompleted set contributes nothing.
func (r *Run) EndEarly() error {
	if r.state != StateActive {
		return ErrNotActive
	}
	r.finish(StateEndedEarly, r.clock.Now())
	return nil
}

func (r *Run) finish(terminal State, now time.Time) {
	r.endedAt = now
	r.state = terminal
}

// State returns the lifecycle state.
func (r *Run) State() State { return r.state }

// Round returns the current round number. Meaningful only while active.
func (r *Run) Round() int { return r.round }

// CurrentExercise returns the exercise the athlete is on.
func (r *Run) CurrentExercise() (catalog.Exercise, error) {
	if r.state != StateActive {
		return catalog.Exercise{}, ErrNotActive
	}
	return r.cfg.Exercises[r.exerciseIdx], nil
}

// CurrentReps returns the rep target for the current set.
func (r *Run) CurrentReps() (int, error) {
	ex, err := r.CurrentExercise()
	if err != nil {
		return 0, err
	}
	return progression.RepsForRound(ex.Multiplier, r.round), nil
}

// TotalReps returns the reps completed so far.
func (r *Run) TotalReps() int { return r.totalReps }

// CompletedRounds returns the rounds completed so far.
func (r *Run) CompletedRounds() int { return r.completedRounds }

// Progress returns the completion percentage, computed on demand from
// completed sets over the total sets in the configuration.
func (r *Run) Progress() float64 {
	total := r.cfg.Mode.TotalRounds() * len(r.cfg.Exercises)
	if total == 0 {
		return 0
	}
	done := r.completedRounds*len(r.cfg.Exercises) + r.exerciseIdx
	return float64(done) / float64(total) * 100
}

// ElapsedSeconds returns the wall-clock seconds since Start. It keeps
// accruing while active and freezes at the terminal transition.
func (r *Run) ElapsedSeconds() int {
	switch r.state {
	case StateNotStarted:
		return 0
	case StateActive:
		return int(r.clock.Now().Sub(r.startedAt).Seconds())
	default:
		return int(r.endedAt.Sub(r.startedAt).Seconds())
	}
}

// Record emits the durable session record for a finished run. The first
// call fixes the snapshot, owner included; later calls return the
// identical record, so emission is idempotent per run.
func (r *Run) Record(owner models.Owner) (models.SessionRecord, error) {
	if r.record != nil {
		return *r.record, nil
	}
	if r.state != StateCompleted && r.state != StateEndedEarly {
		return models.SessionRecord{}, ErrNotFinished
	}

	ended := r.endedAt
	rec := models.SessionRecord{
		ID:              uuid.New(),
		Owner:           owner,
		ModeKey:         r.cfg.ModeKey(),
		Completed:       r.state == StateCompleted,
		CompletedRounds: r.completedRounds,
		TotalReps:       r.totalReps,
		TotalSeconds:    int(r.endedAt.Sub(r.startedAt).Seconds()),
		ProgressPct:     r.Progress(),
		ExerciseReps:    copyMap(r.exerciseReps),
		ExerciseSeconds: copyMap(r.exerciseSeconds),
		StartedAt:       r.startedAt,
		EndedAt:         &ended,
		CreatedAt:       r.endedAt,
	}
	r.record = &rec
	return rec, nil
}

func copyMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
