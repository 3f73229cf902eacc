// Package localstore is the on-device session store. Writes land here
// first; the sync reconciler mirrors them to the remote store when it can
// and tracks what still needs mirroring through the synced column.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/ladderlog/internal/models"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a session ID is not in the store.
var ErrNotFound = errors.New("localstore: session not found")

// DB is the SQLite-backed local store.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the local store at dir/ladderlog.db.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "ladderlog.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}

	// A single connection serializes all writes, which is what gives the
	// store its atomic-mutation guarantee.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		id                         TEXT PRIMARY KEY,
		user_id                    TEXT,
		workout_mode               TEXT NOT NULL,
		completed                  INTEGER NOT NULL,
		completed_rounds           INTEGER NOT NULL,
		total_completed_reps       INTEGER NOT NULL,
		total_workout_time_seconds INTEGER NOT NULL,
		progress_percentage        REAL NOT NULL,
		exercise_reps              TEXT NOT NULL,
		exercise_timing            TEXT NOT NULL,
		workout_started_at         TEXT NOT NULL,
		workout_ended_at           TEXT,
		created_at                 TEXT NOT NULL,
		synced                     INTEGER NOT NULL DEFAULT 0
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sessions table: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the store.
func (s *DB) Close() error {
	return s.db.Close()
}

const sessionColumns = `id, user_id, workout_mode, completed, completed_rounds,
	total_completed_reps, total_workout_time_seconds, progress_percentage,
	exercise_reps, exercise_timing, workout_started_at, workout_ended_at,
	created_at, synced`

// Save upserts a record by ID.
func (s *DB) Save(ctx context.Context, rec models.SessionRecord) error {
	args, err := sessionArgs(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO sessions (`+sessionColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`, args...)
	if err != nil {
		return fmt.Errorf("saving session %s: %w", rec.ID, err)
	}
	return nil
}

// Insert inserts a record only if its ID is not already present. Returns
// true if inserted. Existing rows are never touched, so the first writer
// wins on an ID collision.
func (s *DB) Insert(ctx context.Context, rec models.SessionRecord) (bool, error) {
	args, err := sessionArgs(rec)
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO sessions (`+sessionColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`, args...)
	if err != nil {
		return false, fmt.Errorf("inserting session %s: %w", rec.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FetchAll returns every stored session, newest start first.
func (s *DB) FetchAll(ctx context.Context) ([]models.SessionRecord, error) {
	return s.query(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY workout_started_at DESC`)
}

// FetchByID returns one session or ErrNotFound.
func (s *DB) FetchByID(ctx context.Context, id uuid.UUID) (models.SessionRecord, error) {
	recs, err := s.query(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id.String())
	if err != nil {
		return models.SessionRecord{}, err
	}
	if len(recs) == 0 {
		return models.SessionRecord{}, ErrNotFound
	}
	return recs[0], nil
}

// FetchUnsynced returns sessions with no confirmed remote mirror, oldest
// first so retries drain in arrival order.
func (s *DB) FetchUnsynced(ctx context.Context) ([]models.SessionRecord, error) {
	return s.query(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE synced = 0 ORDER BY created_at ASC`)
}

// FetchForUser returns a user's visible history. Guest rows stay visible
// to everyone until reassignment so pre-login history doesn't vanish from
// the device; for the guest owner only guest rows come back.
func (s *DB) FetchForUser(ctx context.Context, owner models.Owner) ([]models.SessionRecord, error) {
	if id, ok := owner.UserID(); ok {
		return s.query(ctx, `SELECT `+sessionColumns+` FROM sessions
			WHERE user_id = ? OR user_id IS NULL
			ORDER BY workout_started_at DESC`, id.String())
	}
	return s.query(ctx, `SELECT `+sessionColumns+` FROM sessions
		WHERE user_id IS NULL ORDER BY workout_started_at DESC`)
}

// MarkSynced flips the synced flag on the given sessions. No other column
// is touched.
func (s *DB) MarkSynced(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimRight(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id.String()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET synced = 1 WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("marking synced: %w", err)
	}
	return nil
}

// ReassignOwner attributes every guest row to the given user and clears
// its synced flag, forcing a re-upload under the new identity. Returns
// how many rows were reassigned. Already-owned rows are untouched.
func (s *DB) ReassignOwner(ctx context.Context, userID uuid.UUID) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET user_id = ?, synced = 0 WHERE user_id IS NULL`,
		userID.String())
	if err != nil {
		return 0, fmt.Errorf("reassigning owner: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Delete removes one session.
func (s *DB) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	return nil
}

// DeleteAll wipes the store.
func (s *DB) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions`)
	if err != nil {
		return fmt.Errorf("deleting all sessions: %w", err)
	}
	return nil
}

func sessionArgs(rec models.SessionRecord) ([]any, error) {
	reps, err := json.Marshal(orEmpty(rec.ExerciseReps))
	if err != nil {
		return nil, fmt.Errorf("encoding exercise reps: %w", err)
	}
	timing, err := json.Marshal(orEmpty(rec.ExerciseSeconds))
	if err != nil {
		return nil, fmt.Errorf("encoding exercise timing: %w", err)
	}

	var userID any
	if id, ok := rec.Owner.UserID(); ok {
		userID = id.String()
	}
	var endedAt any
	if rec.EndedAt != nil {
		endedAt = rec.EndedAt.Format(time.RFC3339Nano)
	}

	return []any{
		rec.ID.String(), userID, rec.ModeKey,
		boolInt(rec.Completed), rec.CompletedRounds, rec.TotalReps,
		rec.TotalSeconds, rec.ProgressPct,
		string(reps), string(timing),
		rec.StartedAt.Format(time.RFC3339Nano), endedAt,
		rec.CreatedAt.Format(time.RFC3339Nano),
		boolInt(rec.Synced),
	}, nil
}

func (s *DB) query(ctx context.Context, q string, args ...any) ([]models.SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var out []models.SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanSession(rows *sql.Rows) (models.SessionRecord, error) {
	var (
		rec                           models.SessionRecord
		idStr, startStr, createdStr   string
		userID, endedStr              sql.NullString
		completed, synced             int
		repsJSON, timingJSON          string
	)
	err := rows.Scan(&idStr, &userID, &rec.ModeKey, &completed, &rec.CompletedRounds,
		&rec.TotalReps, &rec.TotalSeconds, &rec.ProgressPct,
		&repsJSON, &timingJSON, &startStr, &endedStr, &createdStr, &synced)
	if err != nil {
		return rec, fmt.Errorf("scanning session: %w", err)
	}

	if rec.ID, err = uuid.Parse(idStr); err != nil {
		return rec, fmt.Errorf("parsing session id: %w", err)
	}
	rec.Owner = models.Guest()
	if userID.Valid {
		uid, err := uuid.Parse(userID.String)
		if err != nil {
			return rec, fmt.Errorf("parsing user id: %w", err)
		}
		rec.Owner = models.OwnedBy(uid)
	}
	rec.Completed = completed != 0
	rec.Synced = synced != 0

	if err := json.Unmarshal([]byte(repsJSON), &rec.ExerciseReps); err != nil {
		return rec, fmt.Errorf("decoding exercise reps: %w", err)
	}
	if err := json.Unmarshal([]byte(timingJSON), &rec.ExerciseSeconds); err != nil {
		return rec, fmt.Errorf("decoding exercise timing: %w", err)
	}

	if rec.StartedAt, err = time.Parse(time.RFC3339Nano, startStr); err != nil {
		return rec, fmt.Errorf("parsing start time: %w", err)
	}
	if endedStr.Valid {
		t, err := time.Parse(time.RFC3339Nano, endedStr.String)
		if err != nil {
			return rec, fmt.Errorf("parsing end time: %w", err)
		}
		rec.EndedAt = &t
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdStr); err != nil {
		return rec, fmt.Errorf("parsing created time: %w", err)
	}
	return rec, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func orEmpty(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}
