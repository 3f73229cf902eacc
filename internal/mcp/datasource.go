package mcp

import (
	"context"

	"github.com/google/uuid"
	"github.com/meltforce/ladderlog/internal/localstore"
	"github.com/meltforce/ladderlog/internal/models"
)

// DataSource is the session history surface the MCP handlers read from.
// The on-device local store satisfies it directly; tests substitute an
// in-memory fake.
type DataSource interface {
	FetchAll(ctx context.Context) ([]models.SessionRecord, error)
	FetchByID(ctx context.Context, id uuid.UUID) (models.SessionRecord, error)
	FetchUnsynced(ctx context.Context) ([]models.SessionRecord, error)
}

var _ DataSource = (*localstore.DB)(nil)
