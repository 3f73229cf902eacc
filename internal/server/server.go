// Package server is the HTTP record-store API that mirrors on-device
// session history. Access control is enforced here: every request is
// resolved to a user via its bearer token, and every query is scoped to
// that user's rows.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/meltforce/ladderlog/internal/models"
	"github.com/meltforce/ladderlog/internal/storage"
)

// SessionStore is what the handlers need from the database. *storage.DB
// implements it; tests substitute a fake.
type SessionStore interface {
	InsertSession(ctx context.Context, rec models.SessionRecord, userID uuid.UUID) (bool, error)
	QuerySessions(ctx context.Context, userID uuid.UUID, f storage.SessionFilter) ([]models.SessionRecord, error)
	GetSession(ctx context.Context, id, userID uuid.UUID) (models.SessionRecord, error)
	UpdateSession(ctx context.Context, rec models.SessionRecord, userID uuid.UUID) (bool, error)
	DeleteSession(ctx context.Context, id, userID uuid.UUID) (bool, error)
	DeleteAllSessions(ctx context.Context, userID uuid.UUID) (int64, error)
	SessionStats(ctx context.Context, userID uuid.UUID) ([]storage.ModeStats, error)
	UserForToken(ctx context.Context, token string) (uuid.UUID, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	db     SessionStore
	log    *slog.Logger
	router chi.Router
}

// New creates a new Server with all routes configured.
func New(db SessionStore, log *slog.Logger) *Server {
	s := &Server{
		db:     db,
		log:    log,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(TokenAuth(s.db))

		r.Get("/me", s.handleMe)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleInsertSession)
			r.Get("/", s.handleQuerySessions)
			r.Get("/stats", s.handleSessionStats)
			r.Delete("/", s.handleDeleteAllSessions)
			r.Get("/{id}", s.handleGetSession)
			r.Put("/{id}", s.handleUpdateSession)
			r.Delete("/{id}", s.handleDeleteSession)
		})
	})
}
