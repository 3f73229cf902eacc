package syncer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/ladderlog/internal/models"
)

// fakeLocal is an in-memory LocalStore that records the order of
// mutating operations.
type fakeLocal struct {
	recs    map[uuid.UUID]models.SessionRecord
	ops     []string
	saveErr error
}

func newFakeLocal() *fakeLocal {
	return &fakeLocal{recs: map[uuid.UUID]models.SessionRecord{}}
}

func (f *fakeLocal) Save(_ context.Context, rec models.SessionRecord) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.ops = append(f.ops, "save")
	f.recs[rec.ID] = rec
	return nil
}

func (f *fakeLocal) Insert(_ context.Context, rec models.SessionRecord) (bool, error) {
	if _, ok := f.recs[rec.ID]; ok {
		return false, nil
	}
	f.ops = append(f.ops, "insert")
	f.recs[rec.ID] = rec
	return true, nil
}

func (f *fakeLocal) FetchUnsynced(context.Context) ([]models.SessionRecord, error) {
	f.ops = append(f.ops, "fetch_unsynced")
	var out []models.SessionRecord
	for _, rec := range f.recs {
		if !rec.Synced {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeLocal) MarkSynced(_ context.Context, ids []uuid.UUID) error {
	f.ops = append(f.ops, "mark_synced")
	for _, id := range ids {
		rec := f.recs[id]
		rec.Synced = true
		f.recs[id] = rec
	}
	return nil
}

func (f *fakeLocal) ReassignOwner(_ context.Context, userID uuid.UUID) (int, error) {
	f.ops = append(f.ops, "reassign")
	n := 0
	for id, rec := range f.recs {
		if rec.Owner.IsGuest() {
			rec.Owner = models.OwnedBy(userID)
			rec.Synced = false
			f.recs[id] = rec
			n++
		}
	}
	return n, nil
}

func (f *fakeLocal) Delete(_ context.Context, id uuid.UUID) error {
	f.ops = append(f.ops, "delete")
	delete(f.recs, id)
	return nil
}

// fakeRemote is an in-memory RemoteStore with per-ID failure injection.
type fakeRemote struct {
	recs      map[uuid.UUID]models.SessionRecord
	failIDs   map[uuid.UUID]bool
	down      bool
	inserts   int
	deleteErr error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{recs: map[uuid.UUID]models.SessionRecord{}, failIDs: map[uuid.UUID]bool{}}
}

func (f *fakeRemote) Insert(_ context.Context, rec models.SessionRecord) error {
	if f.down || f.failIDs[rec.ID] {
		return errors.New("remote unavailable")
	}
	f.inserts++
	f.recs[rec.ID] = rec
	return nil
}

func (f *fakeRemote) FetchForUser(_ context.Context, userID uuid.UUID) ([]models.SessionRecord, error) {
	if f.down {
		return nil, errors.New("remote unavailable")
	}
	var out []models.SessionRecord
	for _, rec := range f.recs {
		if id, ok := rec.Owner.UserID(); ok && id == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRemote) Delete(_ context.Context, id, _ uuid.UUID) error {
	if f.down || f.deleteErr != nil {
		return errors.New("remote unavailable")
	}
	delete(f.recs, id)
	return nil
}

func testReconciler(local *fakeLocal, remote *fakeRemote) *Reconciler {
	return New(local, remote, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func record(owner models.Owner, synced bool) models.SessionRecord {
	return models.SessionRecord{
		ID:        uuid.New(),
		Owner:     owner,
		ModeKey:   "classic",
		TotalReps: 42,
		CreatedAt: time.Now(),
		Synced:    synced,
	}
}

// TestSaveSessionRemoteDownDegrades verifies a remote failure never rolls
// back or blocks the local write.
func TestSaveSessionRemoteDownDegrades(t *testing.T) {
	local := newFakeLocal()
	remote := newFakeRemote()
	remote.down = true
	r := testReconciler(local, remote)

	rec := record(models.OwnedBy(uuid.New()), false)
	if err := r.SaveSession(context.Background(), rec, true); err != nil {
		t.Fatalf("remote failure surfaced as error: %v", err)
	}

	saved, ok := local.recs[rec.ID]
	if !ok {
		t.Fatal("record not saved locally")
	}
	if saved.Synced {
		t.Error("record should remain unsynced for later retry")
	}
}

// TestSaveSessionMarksSynced verifies a successful remote insert flips
// the synced flag.
func TestSaveSessionMarksSynced(t *testing.T) {
	local := newFakeLocal()
	remote := newFakeRemote()
	r := testReconciler(local, remote)

	rec := record(models.OwnedBy(uuid.New()), false)
	if err := r.SaveSession(context.Background(), rec, true); err != nil {
		t.Fatal(err)
	}
	if !local.recs[rec.ID].Synced {
		t.Error("record should be synced after successful upload")
	}
	if _, ok := remote.recs[rec.ID]; !ok {
		t.Error("record should be on the remote")
	}
}

// TestSaveSessionGuestStaysLocal verifies guest records never attempt a
// remote insert.
func TestSaveSessionGuestStaysLocal(t *testing.T) {
	local := newFakeLocal()
	remote := newFakeRemote()
	r := testReconciler(local, remote)

	if err := r.SaveSession(context.Background(), record(models.Guest(), false), true); err != nil {
		t.Fatal(err)
	}
	if remote.inserts != 0 {
		t.Errorf("guest save performed %d remote inserts, want 0", remote.inserts)
	}
}

// TestSaveSessionLocalFailureSurfaces verifies the durable write's
// failure is the returned error.
func TestSaveSessionLocalFailureSurfaces(t *testing.T) {
	local := newFakeLocal()
	local.saveErr = errors.New("disk full")
	r := testReconciler(local, newFakeRemote())

	err := r.SaveSession(context.Background(), record(models.Guest(), false), false)
	if err == nil {
		t.Fatal("local write failure should surface")
	}
}

// TestUploadUnsyncedIndependentFailures verifies one failing record does
// not block the rest and successes are marked immediately.
func TestUploadUnsyncedIndependentFailures(t *testing.T) {
	local := newFakeLocal()
	remote := newFakeRemote()
	r := testReconciler(local, remote)
	ctx := context.Background()
	userID := uuid.New()

	good1 := record(models.OwnedBy(userID), false)
	bad := record(models.OwnedBy(userID), false)
	good2 := record(models.OwnedBy(userID), false)
	for _, rec := range []models.SessionRecord{good1, bad, good2} {
		local.recs[rec.ID] = rec
	}
	remote.failIDs[bad.ID] = true

	stats, err := r.UploadUnsynced(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Uploaded != 2 || stats.Failed != 1 {
		t.Errorf("stats = %+v, want 2 uploaded / 1 failed", stats)
	}
	if !local.recs[good1.ID].Synced || !local.recs[good2.ID].Synced {
		t.Error("successful uploads should be marked synced")
	}
	if local.recs[bad.ID].Synced {
		t.Error("failed upload must not be marked synced")
	}
}

// TestUploadUnsyncedIdempotent verifies a second pass with no state
// change performs zero redundant uploads.
func TestUploadUnsyncedIdempotent(t *testing.T) {
	local := newFakeLocal()
	remote := newFakeRemote()
	r := testReconciler(local, remote)
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		rec := record(models.OwnedBy(userID), false)
		local.recs[rec.ID] = rec
	}

	if _, err := r.UploadUnsynced(ctx); err != nil {
		t.Fatal(err)
	}
	before := remote.inserts

	stats, err := r.UploadUnsynced(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if remote.inserts != before {
		t.Errorf("second pass performed %d redundant uploads", remote.inserts-before)
	}
	if stats.Uploaded != 0 {
		t.Errorf("second pass uploaded = %d, want 0", stats.Uploaded)
	}
}

// TestDownloadRemoteMergeSafety verifies an existing local record is
// never overwritten by a divergent remote record with the same ID.
func TestDownloadRemoteMergeSafety(t *testing.T) {
	local := newFakeLocal()
	remote := newFakeRemote()
	r := testReconciler(local, remote)
	ctx := context.Background()
	userID := uuid.New()

	shared := record(models.OwnedBy(userID), true)
	local.recs[shared.ID] = shared

	divergent := shared
	divergent.TotalReps = 9999
	remote.recs[shared.ID] = divergent

	fresh := record(models.OwnedBy(userID), false)
	remote.recs[fresh.ID] = fresh

	stats, err := r.DownloadRemote(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Downloaded != 1 || stats.Skipped != 1 {
		t.Errorf("stats = %+v, want 1 downloaded / 1 skipped", stats)
	}
	if local.recs[shared.ID].TotalReps != shared.TotalReps {
		t.Error("local record was overwritten by remote")
	}
	got, ok := local.recs[fresh.ID]
	if !ok {
		t.Fatal("new remote record was not merged")
	}
	if !got.Synced {
		t.Error("downloaded record should arrive marked synced")
	}
}

// TestDownloadRemoteUnavailable verifies an unreachable remote degrades
// to a no-op rather than an error.
func TestDownloadRemoteUnavailable(t *testing.T) {
	remote := newFakeRemote()
	remote.down = true
	r := testReconciler(newFakeLocal(), remote)

	stats, err := r.DownloadRemote(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unreachable remote surfaced as error: %v", err)
	}
	if stats.Downloaded != 0 {
		t.Errorf("stats = %+v, want zero downloads", stats)
	}
}

// TestSyncOnLogin verifies the strict reassign -> upload -> download
// sequence and that guest history ends up attributed and mirrored.
func TestSyncOnLogin(t *testing.T) {
	local := newFakeLocal()
	remote := newFakeRemote()
	r := testReconciler(local, remote)
	ctx := context.Background()
	userID := uuid.New()

	// A guest session on this device, and a session from another device
	// already on the remote.
	guest := record(models.Guest(), false)
	local.recs[guest.ID] = guest
	other := record(models.OwnedBy(userID), false)
	remote.recs[other.ID] = other

	stats, err := r.SyncOnLogin(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Reassigned != 1 || stats.Uploaded != 1 || stats.Downloaded != 1 {
		t.Errorf("stats = %+v, want 1 reassigned / 1 uploaded / 1 downloaded", stats)
	}

	// The guest session is now owned, uploaded, and synced.
	got := local.recs[guest.ID]
	if id, ok := got.Owner.UserID(); !ok || id != userID {
		t.Errorf("guest session owner = %v, want %v", got.Owner, userID)
	}
	if !got.Synced {
		t.Error("guest session should be synced after login")
	}
	if _, ok := remote.recs[guest.ID]; !ok {
		t.Error("guest session should be pushed to the remote")
	}

	// The other device's session arrived locally.
	if _, ok := local.recs[other.ID]; !ok {
		t.Error("remote session should be merged locally")
	}

	// Reassignment must happen before the upload fetch.
	var order []string
	for _, op := range local.ops {
		if op == "reassign" || op == "fetch_unsynced" {
			order = append(order, op)
		}
	}
	if len(order) < 2 || order[0] != "reassign" || order[1] != "fetch_unsynced" {
		t.Errorf("operation order = %v, want reassign before fetch_unsynced", local.ops)
	}
}

// TestDeleteSession verifies local deletion always happens and remote
// failures are tolerated.
func TestDeleteSession(t *testing.T) {
	local := newFakeLocal()
	remote := newFakeRemote()
	r := testReconciler(local, remote)
	ctx := context.Background()
	userID := uuid.New()

	rec := record(models.OwnedBy(userID), true)
	local.recs[rec.ID] = rec
	remote.recs[rec.ID] = rec
	remote.deleteErr = errors.New("remote unavailable")

	if err := r.DeleteSession(ctx, rec.ID, rec.Owner); err != nil {
		t.Fatalf("remote delete failure surfaced: %v", err)
	}
	if _, ok := local.recs[rec.ID]; ok {
		t.Error("record should be gone locally")
	}

	// Guest deletion never touches the remote.
	guest := record(models.Guest(), false)
	local.recs[guest.ID] = guest
	if err := r.DeleteSession(ctx, guest.ID, guest.Owner); err != nil {
		t.Fatal(err)
	}
}
