// Package syncer keeps the local store and the remote record store
// consistent. Local writes always come first; everything remote is
// best-effort, and the local synced flag is the retry queue for whatever
// the remote refused.
package syncer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/meltforce/ladderlog/internal/models"
)

// LocalStore is what the reconciler needs from the on-device store. The
// sqlite implementation lives in internal/localstore.
type LocalStore interface {
	Save(ctx context.Context, rec models.SessionRecord) error
	Insert(ctx context.Context, rec models.SessionRecord) (bool, error)
	FetchUnsynced(ctx context.Context) ([]models.SessionRecord, error)
	MarkSynced(ctx context.Context, ids []uuid.UUID) error
	ReassignOwner(ctx context.Context, userID uuid.UUID) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// RemoteStore is the eventually-consistent mirror. The HTTP client in
// internal/remote implements it; any failure here degrades to "retry on
// the next sync trigger", never to a user-visible error.
type RemoteStore interface {
	Insert(ctx context.Context, rec models.SessionRecord) error
	FetchForUser(ctx context.Context, userID uuid.UUID) ([]models.SessionRecord, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

// Stats counts what one reconciler pass did.
type Stats struct {
	Uploaded   int
	Failed     int
	Skipped    int
	Downloaded int
	Reassigned int
}

// Reconciler orchestrates dual writes between the stores. Both handles
// are injected; it holds no global state.
type Reconciler struct {
	local  LocalStore
	remote RemoteStore
	log    *slog.Logger
}

// New creates a Reconciler.
func New(local LocalStore, remote RemoteStore, log *slog.Logger) *Reconciler {
	return &Reconciler{local: local, remote: remote, log: log}
}

// SaveSession durably stores a freshly emitted record. The local write
// must succeed; its failure is the returned error, and the caller should
// retry with the same (cached) record rather than consider the run saved.
// The remote insert is opportunistic: attempted only when asked and when
// the record has an owner, and a failure just leaves the record unsynced.
func (r *Reconciler) SaveSession(ctx context.Context, rec models.SessionRecord, attemptRemote bool) error {
	rec.Synced = false
	if err := r.local.Save(ctx, rec); err != nil {
		return fmt.Errorf("local save: %w", err)
	}

	if !attemptRemote || rec.Owner.IsGuest() {
		return nil
	}

	if err := r.remote.Insert(ctx, rec); err != nil {
		r.log.Warn("remote insert failed, will retry on next sync",
			"session", rec.ID, "error", err)
		return nil
	}
	if err := r.local.MarkSynced(ctx, []uuid.UUID{rec.ID}); err != nil {
		return fmt.Errorf("marking synced: %w", err)
	}
	return nil
}

// UploadUnsynced pushes every unsynced owned record to the remote store.
// Each record is an independent unit of work: one failure never blocks
// the rest, and each success is marked synced immediately so partial
// progress survives a crash. Guest records are skipped: they have no
// identity to upload under until login reassigns them.
func (r *Reconciler) UploadUnsynced(ctx context.Context) (Stats, error) {
	var stats Stats

	pending, err := r.local.FetchUnsynced(ctx)
	if err != nil {
		return stats, fmt.Errorf("fetching unsynced: %w", err)
	}

	for _, rec := range pending {
		if rec.Owner.IsGuest() {
			stats.Skipped++
			continue
		}
		if err := r.remote.Insert(ctx, rec); err != nil {
			stats.Failed++
			r.log.Warn("upload failed", "session", rec.ID, "error", err)
			continue
		}
		if err := r.local.MarkSynced(ctx, []uuid.UUID{rec.ID}); err != nil {
			return stats, fmt.Errorf("marking synced: %w", err)
		}
		stats.Uploaded++
	}

	return stats, nil
}

// DownloadRemote merges the user's remote records into the local store.
// Remote is authoritative only for IDs the device has never seen; an
// existing local row is never overwritten (first writer wins; IDs are
// client-generated, so a divergent collision should not occur).
func (r *Reconciler) DownloadRemote(ctx context.Context, userID uuid.UUID) (Stats, error) {
	var stats Stats

	recs, err := r.remote.FetchForUser(ctx, userID)
	if err != nil {
		r.log.Warn("remote fetch failed, will retry on next sync",
			"user", userID, "error", err)
		return stats, nil
	}

	for _, rec := range recs {
		rec.Synced = true // it came from the mirror, so it is mirrored
		inserted, err := r.local.Insert(ctx, rec)
		if err != nil {
			return stats, fmt.Errorf("inserting downloaded session %s: %w", rec.ID, err)
		}
		if inserted {
			stats.Downloaded++
		} else {
			stats.Skipped++
		}
	}
	if stats.Skipped > 0 {
		r.log.Warn("skipped remote records already present locally", "count", stats.Skipped)
	}

	return stats, nil
}

// SyncOnLogin runs the login sequence in strict order: attribute guest
// history to the user, push it (and anything else pending) up, then pull
// down whatever other devices contributed. Reassignment must come first
// so guest records are uploadable; upload before download avoids
// re-fetching what was just pushed.
func (r *Reconciler) SyncOnLogin(ctx context.Context, userID uuid.UUID) (Stats, error) {
	reassigned, err := r.local.ReassignOwner(ctx, userID)
	if err != nil {
		return Stats{}, fmt.Errorf("reassigning guest sessions: %w", err)
	}
	if reassigned > 0 {
		r.log.Info("attributed guest sessions", "user", userID, "count", reassigned)
	}

	stats, err := r.UploadUnsynced(ctx)
	stats.Reassigned = reassigned
	if err != nil {
		return stats, err
	}

	down, err := r.DownloadRemote(ctx, userID)
	stats.Downloaded = down.Downloaded
	stats.Skipped += down.Skipped
	return stats, err
}

// DeleteSession removes a session locally and, for owned records,
// best-effort remotely. The local delete alone satisfies user intent; a
// remote failure is eventually-consistent debt, logged and left for the
// account's other devices to tolerate.
func (r *Reconciler) DeleteSession(ctx context.Context, id uuid.UUID, owner models.Owner) error {
	if err := r.local.Delete(ctx, id); err != nil {
		return fmt.Errorf("local delete: %w", err)
	}

	userID, ok := owner.UserID()
	if !ok {
		return nil
	}
	if err := r.remote.Delete(ctx, id, userID); err != nil {
		r.log.Warn("remote delete failed", "session", id, "error", err)
	}
	return nil
}
