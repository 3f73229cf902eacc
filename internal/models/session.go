// Package models defines the durable session record and its wire form.
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Owner identifies who a session belongs to: a signed-in user, or nobody
// yet (a guest record awaiting reassignment on login).
type Owner struct {
	id    uuid.UUID
	owned bool
}

// Guest returns the unattributed owner.
func Guest() Owner { return Owner{} }

// OwnedBy returns an owner for the given user.
func OwnedBy(id uuid.UUID) Owner { return Owner{id: id, owned: true} }

// IsGuest reports whether the record has no attributed user.
func (o Owner) IsGuest() bool { return !o.owned }

// UserID returns the owning user ID, if any.
func (o Owner) UserID() (uuid.UUID, bool) { return o.id, o.owned }

// SessionRecord is the durable result of a completed or abandoned run.
// It is immutable after creation except for Synced, which only the sync
// reconciler flips once the record has a confirmed remote mirror.
type SessionRecord struct {
	ID              uuid.UUID
	Owner           Owner
	ModeKey         string
	Completed       bool
	CompletedRounds int
	TotalReps       int
	TotalSeconds    int
	ProgressPct     float64
	ExerciseReps    map[string]int
	ExerciseSeconds map[string]int
	StartedAt       time.Time
	EndedAt         *time.Time

	CreatedAt time.Time

	// Synced is local-only metadata and never travels to the remote store.
	Synced bool
}

// wireSession is the persisted representation shared by the local store,
// the HTTP API, and the server database.
type wireSession struct {
	ID              uuid.UUID      `json:"id"`
	UserID          *uuid.UUID     `json:"user_id"`
	WorkoutMode     string         `json:"workout_mode"`
	Completed       bool           `json:"completed"`
	CompletedRounds int            `json:"completed_rounds"`
	TotalReps       int            `json:"total_completed_reps"`
	TotalSeconds    int            `json:"total_workout_time_seconds"`
	ProgressPct     float64        `json:"progress_percentage"`
	ExerciseReps    map[string]int `json:"exercise_reps"`
	ExerciseTiming  map[string]int `json:"exercise_timing"`
	StartedAt       time.Time      `json:"workout_started_at"`
	EndedAt         *time.Time     `json:"workout_ended_at"`
	CreatedAt       time.Time      `json:"created_at"`
}

// MarshalJSON encodes the wire form. Synced is deliberately dropped and
// nil maps are written as empty objects so the round trip is exact.
func (r SessionRecord) MarshalJSON() ([]byte, error) {
	w := wireSession{
		ID:              r.ID,
		WorkoutMode:     r.ModeKey,
		Completed:       r.Completed,
		CompletedRounds: r.CompletedRounds,
		TotalReps:       r.TotalReps,
		TotalSeconds:    r.TotalSeconds,
		ProgressPct:     r.ProgressPct,
		ExerciseReps:    orEmpty(r.ExerciseReps),
		ExerciseTiming:  orEmpty(r.ExerciseSeconds),
		StartedAt:       r.StartedAt,
		EndedAt:         r.EndedAt,
		CreatedAt:       r.CreatedAt,
	}
	if id, ok := r.Owner.UserID(); ok {
		w.UserID = &id
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the wire form. Records arriving off the wire are
// not synced until the reconciler says so.
func (r *SessionRecord) UnmarshalJSON(data []byte) error {
	var w wireSession
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = SessionRecord{
		ID:              w.ID,
		Owner:           Guest(),
		ModeKey:         w.WorkoutMode,
		Completed:       w.Completed,
		CompletedRounds: w.CompletedRounds,
		TotalReps:       w.TotalReps,
		TotalSeconds:    w.TotalSeconds,
		ProgressPct:     w.ProgressPct,
		ExerciseReps:    orEmpty(w.ExerciseReps),
		ExerciseSeconds: orEmpty(w.ExerciseTiming),
		StartedAt:       w.StartedAt,
		EndedAt:         w.EndedAt,
		CreatedAt:       w.CreatedAt,
	}
	if w.UserID != nil {
		r.Owner = OwnedBy(*w.UserID)
	}
	return nil
}

func orEmpty(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}
