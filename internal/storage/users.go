package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrUnknownToken is returned for bearer tokens with no user.
var ErrUnknownToken = errors.New("storage: unknown token")

// GetOrCreateUser finds or creates a user by login name. Returns the
// user ID. Updates last_seen and display_name on each call.
func (db *DB) GetOrCreateUser(ctx context.Context, login, displayName string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO users (login, display_name)
		VALUES ($1, $2)
		ON CONFLICT (login) DO UPDATE
			SET last_seen = NOW(), display_name = COALESCE(NULLIF($2, ''), users.display_name)
		RETURNING id
	`, login, displayName).Scan(&id)
	return id, err
}

// CreateToken mints a bearer token for a user.
func (db *DB) CreateToken(ctx context.Context, userID uuid.UUID, token string) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO api_tokens (token, user_id) VALUES ($1, $2)`, token, userID)
	if err != nil {
		return fmt.Errorf("creating token: %w", err)
	}
	return nil
}

// UserForToken resolves a bearer token to its user ID.
func (db *DB) UserForToken(ctx context.Context, token string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.Pool.QueryRow(ctx,
		`SELECT user_id FROM api_tokens WHERE token = $1`, token).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrUnknownToken
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolving token: %w", err)
	}
	return id, nil
}
