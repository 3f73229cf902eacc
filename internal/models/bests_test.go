package models

import (
	"testing"

	"github.com/google/uuid"
)

// TestPersonalBests verifies aggregation per mode key and that abandoned
// runs never set a best time.
func TestPersonalBests(t *testing.T) {
	recs := []SessionRecord{
		{ID: uuid.New(), ModeKey: "classic", Completed: true, TotalSeconds: 1800, TotalReps: 330},
		{ID: uuid.New(), ModeKey: "classic", Completed: true, TotalSeconds: 1700, TotalReps: 330},
		{ID: uuid.New(), ModeKey: "classic", Completed: false, TotalSeconds: 300, TotalReps: 50},
		{ID: uuid.New(), ModeKey: "pyramid", Completed: false, TotalSeconds: 900, TotalReps: 120},
	}

	bests := PersonalBests(recs)
	if len(bests) != 2 {
		t.Fatalf("got %d modes, want 2", len(bests))
	}

	classic := bests[0]
	if classic.ModeKey != "classic" {
		t.Fatalf("modes out of order: %v", bests)
	}
	if classic.Sessions != 3 || classic.Completed != 2 {
		t.Errorf("classic = %+v, want 3 sessions / 2 completed", classic)
	}
	if classic.BestTimeSeconds == nil || *classic.BestTimeSeconds != 1700 {
		t.Errorf("classic best time = %v, want 1700 (abandoned 300s run must not count)", classic.BestTimeSeconds)
	}
	if classic.MostReps != 330 {
		t.Errorf("classic most reps = %d, want 330", classic.MostReps)
	}

	pyramid := bests[1]
	if pyramid.BestTimeSeconds != nil {
		t.Error("pyramid has no completed session, best time should be unset")
	}
	if pyramid.MostReps != 120 {
		t.Errorf("pyramid most reps = %d, want 120", pyramid.MostReps)
	}
}
