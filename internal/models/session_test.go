package models

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

// TestSessionRoundTrip verifies a fully populated record survives the wire
// form exactly.
func TestSessionRoundTrip(t *testing.T) {
	userID := uuid.New()
	ended := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	rec := SessionRecord{
		ID:              uuid.New(),
		Owner:           OwnedBy(userID),
		ModeKey:         "classic",
		Completed:       true,
		CompletedRounds: 10,
		TotalReps:       330,
		TotalSeconds:    1845,
		ProgressPct:     100,
		ExerciseReps:    map[string]int{"Pull-ups": 55, "Push-ups": 110, "Sit-ups": 165},
		ExerciseSeconds: map[string]int{"Pull-ups": 600, "Push-ups": 620, "Sit-ups": 625},
		StartedAt:       ended.Add(-31 * time.Minute),
		EndedAt:         &ended,
		CreatedAt:       ended,
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}

	var back SessionRecord
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(rec, back) {
		t.Errorf("round trip diverged:\n got %+v\nwant %+v", back, rec)
	}
}

// TestSessionRoundTripEmpty verifies a guest record with zero completed
// exercises round-trips with empty (not nil) maps and a null user.
func TestSessionRoundTripEmpty(t *testing.T) {
	rec := SessionRecord{
		ID:              uuid.New(),
		Owner:           Guest(),
		ModeKey:         "descent",
		ExerciseReps:    map[string]int{},
		ExerciseSeconds: map[string]int{},
		StartedAt:       time.Date(2026, 1, 2, 7, 0, 0, 0, time.UTC),
		CreatedAt:       time.Date(2026, 1, 2, 7, 0, 5, 0, time.UTC),
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"user_id":null`) {
		t.Errorf("guest record should serialize a null user_id: %s", data)
	}
	if !strings.Contains(string(data), `"exercise_reps":{}`) {
		t.Errorf("empty reps map should serialize as {}: %s", data)
	}

	var back SessionRecord
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Owner.IsGuest() {
		t.Error("owner should round-trip as guest")
	}
	if back.ExerciseReps == nil || back.ExerciseSeconds == nil {
		t.Error("per-exercise maps should come back empty, not nil")
	}
	if back.EndedAt != nil {
		t.Error("unset end timestamp should round-trip as nil")
	}
}

// TestSyncedNotOnWire verifies the local-only synced flag never leaves
// the device.
func TestSyncedNotOnWire(t *testing.T) {
	rec := SessionRecord{ID: uuid.New(), Synced: true}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(strings.ToLower(string(data)), "synced") {
		t.Errorf("synced flag leaked into the wire form: %s", data)
	}
}

// TestOwnerVariant verifies the guest/owned distinction.
func TestOwnerVariant(t *testing.T) {
	if !Guest().IsGuest() {
		t.Error("Guest() should be a guest")
	}
	if _, ok := Guest().UserID(); ok {
		t.Error("Guest() should have no user ID")
	}
	id := uuid.New()
	o := OwnedBy(id)
	if o.IsGuest() {
		t.Error("OwnedBy should not be a guest")
	}
	if got, ok := o.UserID(); !ok || got != id {
		t.Errorf("UserID = %v/%v, want %v/true", got, ok, id)
	}
}
