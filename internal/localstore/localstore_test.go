package localstore

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/ladderlog/internal/models"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleRecord(owner models.Owner) models.SessionRecord {
	ended := time.Date(2026, 4, 2, 7, 45, 0, 0, time.UTC)
	return models.SessionRecord{
		ID:              uuid.New(),
		Owner:           owner,
		ModeKey:         "classic",
		Completed:       true,
		CompletedRounds: 10,
		TotalReps:       330,
		TotalSeconds:    1700,
		ProgressPct:     100,
		ExerciseReps:    map[string]int{"Pull-ups": 55, "Push-ups": 110},
		ExerciseSeconds: map[string]int{"Pull-ups": 800, "Push-ups": 900},
		StartedAt:       ended.Add(-29 * time.Minute),
		EndedAt:         &ended,
		CreatedAt:       ended,
	}
}

// TestSaveFetchRoundTrip verifies a record survives storage exactly.
func TestSaveFetchRoundTrip(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	rec := sampleRecord(models.OwnedBy(uuid.New()))
	if err := db.Save(ctx, rec); err != nil {
		t.Fatal(err)
	}

	got, err := db.FetchByID(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(rec, got) {
		t.Errorf("round trip diverged:\n got %+v\nwant %+v", got, rec)
	}
}

// TestSaveUpsert verifies saving the same ID twice keeps one row with the
// latest values.
func TestSaveUpsert(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	rec := sampleRecord(models.Guest())
	if err := db.Save(ctx, rec); err != nil {
		t.Fatal(err)
	}
	rec.TotalReps = 999
	if err := db.Save(ctx, rec); err != nil {
		t.Fatal(err)
	}

	all, err := db.FetchAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d rows, want 1", len(all))
	}
	if all[0].TotalReps != 999 {
		t.Errorf("total reps = %d, want 999", all[0].TotalReps)
	}
}

// TestInsertFirstWriterWins verifies Insert never overwrites an existing
// row with the same ID.
func TestInsertFirstWriterWins(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	rec := sampleRecord(models.Guest())
	inserted, err := db.Insert(ctx, rec)
	if err != nil {
		t.Fatal(err)
	}
	if !inserted {
		t.Fatal("first insert should succeed")
	}

	divergent := rec
	divergent.TotalReps = 1
	inserted, err = db.Insert(ctx, divergent)
	if err != nil {
		t.Fatal(err)
	}
	if inserted {
		t.Error("second insert with same ID should be a no-op")
	}

	got, err := db.FetchByID(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalReps != rec.TotalReps {
		t.Errorf("total reps = %d, want original %d", got.TotalReps, rec.TotalReps)
	}
}

// TestFetchByIDNotFound verifies the sentinel for missing sessions.
func TestFetchByIDNotFound(t *testing.T) {
	db := openTest(t)
	_, err := db.FetchByID(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// TestFetchUnsyncedAndMarkSynced verifies the synced flag drives the
// retry queue and MarkSynced drains it.
func TestFetchUnsyncedAndMarkSynced(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	a := sampleRecord(models.Guest())
	b := sampleRecord(models.Guest())
	b.Synced = true
	for _, rec := range []models.SessionRecord{a, b} {
		if err := db.Save(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	unsynced, err := db.FetchUnsynced(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(unsynced) != 1 || unsynced[0].ID != a.ID {
		t.Fatalf("unsynced = %v, want just %s", unsynced, a.ID)
	}

	if err := db.MarkSynced(ctx, []uuid.UUID{a.ID}); err != nil {
		t.Fatal(err)
	}
	unsynced, err = db.FetchUnsynced(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(unsynced) != 0 {
		t.Errorf("unsynced after mark = %d rows, want 0", len(unsynced))
	}

	// MarkSynced must not alter anything else.
	got, err := db.FetchByID(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := a
	want.Synced = true
	if !reflect.DeepEqual(want, got) {
		t.Errorf("MarkSynced changed other fields:\n got %+v\nwant %+v", got, want)
	}
}

// TestFetchForUser verifies guest rows stay visible to a signed-in user
// and owned rows are invisible to guests and other users.
func TestFetchForUser(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	me := uuid.New()
	other := uuid.New()

	guest := sampleRecord(models.Guest())
	mine := sampleRecord(models.OwnedBy(me))
	theirs := sampleRecord(models.OwnedBy(other))
	for _, rec := range []models.SessionRecord{guest, mine, theirs} {
		if err := db.Save(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	got, err := db.FetchForUser(ctx, models.OwnedBy(me))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows for owner, want 2 (own + guest)", len(got))
	}

	got, err = db.FetchForUser(ctx, models.Guest())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != guest.ID {
		t.Fatalf("guest view = %v, want just the guest row", got)
	}
}

// TestReassignOwner verifies guest rows are attributed and forced
// unsynced while owned rows are untouched.
func TestReassignOwner(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	existing := uuid.New()

	guest := sampleRecord(models.Guest())
	guest.Synced = true
	owned := sampleRecord(models.OwnedBy(existing))
	owned.Synced = true
	for _, rec := range []models.SessionRecord{guest, owned} {
		if err := db.Save(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	me := uuid.New()
	n, err := db.ReassignOwner(ctx, me)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("reassigned %d rows, want 1", n)
	}

	got, err := db.FetchByID(ctx, guest.ID)
	if err != nil {
		t.Fatal(err)
	}
	if id, ok := got.Owner.UserID(); !ok || id != me {
		t.Errorf("owner = %v, want %v", got.Owner, me)
	}
	if got.Synced {
		t.Error("reassigned row should be unsynced")
	}

	got, err = db.FetchByID(ctx, owned.ID)
	if err != nil {
		t.Fatal(err)
	}
	if id, ok := got.Owner.UserID(); !ok || id != existing {
		t.Error("previously owned row should keep its owner")
	}
	if !got.Synced {
		t.Error("previously owned row should stay synced")
	}
}

// TestDelete verifies single and bulk deletion.
func TestDelete(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	a := sampleRecord(models.Guest())
	b := sampleRecord(models.Guest())
	for _, rec := range []models.SessionRecord{a, b} {
		if err := db.Save(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	if err := db.Delete(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := db.FetchByID(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted row still present: %v", err)
	}

	if err := db.DeleteAll(ctx); err != nil {
		t.Fatal(err)
	}
	all, err := db.FetchAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("store not empty after DeleteAll: %d rows", len(all))
	}
}
