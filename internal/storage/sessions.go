package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meltforce/ladderlog/internal/models"
)

// ErrNotFound is returned when a session ID is not in the store.
var ErrNotFound = errors.New("storage: session not found")

// SessionFilter narrows and orders a session query. Zero values mean
// "no constraint".
type SessionFilter struct {
	ModeKey   string
	Completed *bool
	OrderBy   string // one of sessionOrderColumns; default workout_started_at
	Ascending bool
	Limit     int
}

var sessionOrderColumns = map[string]bool{
	"workout_started_at":         true,
	"created_at":                 true,
	"total_completed_reps":       true,
	"total_workout_time_seconds": true,
}

const sessionColumns = `id, user_id, workout_mode, completed, completed_rounds,
	total_completed_reps, total_workout_time_seconds, progress_percentage,
	exercise_reps, exercise_timing, workout_started_at, workout_ended_at, created_at`

// InsertSession inserts a session row. Returns false without error when
// the ID already exists; the client retries uploads whose responses were
// lost, so duplicates are expected and the first write wins.
func (db *DB) InsertSession(ctx context.Context, rec models.SessionRecord, userID uuid.UUID) (bool, error) {
	reps, err := json.Marshal(rec.ExerciseReps)
	if err != nil {
		return false, fmt.Errorf("encoding exercise reps: %w", err)
	}
	timing, err := json.Marshal(rec.ExerciseSeconds)
	if err != nil {
		return false, fmt.Errorf("encoding exercise timing: %w", err)
	}

	tag, err := db.Pool.Exec(ctx,
		`INSERT INTO sessions (`+sessionColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		 ON CONFLICT DO NOTHING`,
		rec.ID, userID, rec.ModeKey, rec.Completed, rec.CompletedRounds,
		rec.TotalReps, rec.TotalSeconds, rec.ProgressPct,
		reps, timing, rec.StartedAt, rec.EndedAt, rec.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("inserting session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// QuerySessions retrieves a user's sessions per the filter.
func (db *DB) QuerySessions(ctx context.Context, userID uuid.UUID, f SessionFilter) ([]models.SessionRecord, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = $1`
	args := []any{userID}

	if f.ModeKey != "" {
		args = append(args, f.ModeKey)
		query += fmt.Sprintf(" AND workout_mode = $%d", len(args))
	}
	if f.Completed != nil {
		args = append(args, *f.Completed)
		query += fmt.Sprintf(" AND completed = $%d", len(args))
	}

	order := "workout_started_at"
	if sessionOrderColumns[f.OrderBy] {
		order = f.OrderBy
	}
	dir := "DESC"
	if f.Ascending {
		dir = "ASC"
	}
	query += " ORDER BY " + order + " " + dir

	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := db.Pool.Query(ctx, query, args...)
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

// GetSession retrieves one session scoped to its owner.
func (db *DB) GetSession(ctx context.Context, id, userID uuid.UUID) (models.SessionRecord, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return models.SessionRecord{}, fmt.Errorf("querying session: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return models.SessionRecord{}, err
		}
		return models.SessionRecord{}, ErrNotFound
	}
	return scanSession(rows)
}

// UpdateSession rewrites a session's mutable-on-the-mirror fields, scoped
// to its owner. Returns false when no row matched.
func (db *DB) UpdateSession(ctx context.Context, rec models.SessionRecord, userID uuid.UUID) (bool, error) {
	reps, err := json.Marshal(rec.ExerciseReps)
	if err != nil {
		return false, fmt.Errorf("encoding exercise reps: %w", err)
	}
	timing, err := json.Marshal(rec.ExerciseSeconds)
	if err != nil {
		return false, fmt.Errorf("encoding exercise timing: %w", err)
	}

	tag, err := db.Pool.Exec(ctx,
		`UPDATE sessions SET workout_mode = $3, completed = $4, completed_rounds = $5,
		 total_completed_reps = $6, total_workout_time_seconds = $7, progress_percentage = $8,
		 exercise_reps = $9, exercise_timing = $10, workout_started_at = $11,
		 workout_ended_at = $12
		 WHERE id = $1 AND user_id = $2`,
		rec.ID, userID, rec.ModeKey, rec.Completed, rec.CompletedRounds,
		rec.TotalReps, rec.TotalSeconds, rec.ProgressPct,
		reps, timing, rec.StartedAt, rec.EndedAt)
	if err != nil {
		return false, fmt.Errorf("updating session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteSession removes one session scoped to its owner.
func (db *DB) DeleteSession(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM sessions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("deleting session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteAllSessions erases a user's whole history. Returns the row count.
func (db *DB) DeleteAllSessions(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("deleting sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ModeStats is one workout type's aggregate line in the stats view.
type ModeStats struct {
	ModeKey       string `json:"workout_mode"`
	Sessions      int    `json:"sessions"`
	Completed     int    `json:"completed"`
	TotalReps     int64  `json:"total_reps"`
	BestTimeSecs  *int   `json:"best_time_seconds"`
	MostReps      int    `json:"most_reps"`
}

// SessionStats aggregates a user's history per workout type. Best time
// only considers completed sessions (a faster abandoned run is not a PR).
func (db *DB) SessionStats(ctx context.Context, userID uuid.UUID) ([]ModeStats, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT workout_mode,
		        COUNT(*),
		        COUNT(*) FILTER (WHERE completed),
		        COALESCE(SUM(total_completed_reps), 0),
		        MIN(total_workout_time_seconds) FILTER (WHERE completed),
		        COALESCE(MAX(total_completed_reps), 0)
		 FROM sessions WHERE user_id = $1
		 GROUP BY workout_mode
		 ORDER BY workout_mode`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying session stats: %w", err)
	}
	defer rows.Close()

	var out []ModeStats
	for rows.Next() {
		var s ModeStats
		if err := rows.Scan(&s.ModeKey, &s.Sessions, &s.Completed, &s.TotalReps, &s.BestTimeSecs, &s.MostReps); err != nil {
			return nil, fmt.Errorf("scanning session stats: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSession(rows pgx.Rows) (models.SessionRecord, error) {
	var (
		rec        models.SessionRecord
		userID     uuid.UUID
		reps       []byte
		timing     []byte
		endedAt    *time.Time
	)
	err := rows.Scan(&rec.ID, &userID, &rec.ModeKey, &rec.Completed, &rec.CompletedRounds,
		&rec.TotalReps, &rec.TotalSeconds, &rec.ProgressPct,
		&reps, &timing, &rec.StartedAt, &endedAt, &rec.CreatedAt)
	if err != nil {
		return rec, fmt.Errorf("scanning session: %w", err)
	}
	rec.Owner = models.OwnedBy(userID)
	rec.EndedAt = endedAt
	if err := json.Unmarshal(reps, &rec.ExerciseReps); err != nil {
		return rec, fmt.Errorf("decoding exercise reps: %w", err)
	}
	if err := json.Unmarshal(timing, &rec.ExerciseSeconds); err != nil {
		return rec, fmt.Errorf("decoding exercise timing: %w", err)
	}
	return rec, nil
}
