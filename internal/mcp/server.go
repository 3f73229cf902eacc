// Package mcp exposes the local workout history to AI assistants over the
// Model Context Protocol.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("LadderLog", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("LadderLog ladder workout tracker. Query the athlete's session history, personal bests, sync status, and the built-in workout presets, or compute the round-by-round plan for a workout configuration."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolListSessions, Handler: h.listSessions},
		server.ServerTool{Tool: toolGetSession, Handler: h.getSession},
		server.ServerTool{Tool: toolGetPersonalBests, Handler: h.getPersonalBests},
		server.ServerTool{Tool: toolGetWorkoutPlan, Handler: h.getWorkoutPlan},
		server.ServerTool{Tool: toolGetSyncStatus, Handler: h.getSyncStatus},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resRecentSessions, Handler: h.recentSessions},
		server.ServerResource{Resource: resExerciseCatalog, Handler: h.exerciseCatalog},
		server.ServerResource{Resource: resPresets, Handler: h.presets},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resRecentSessions = mcp.NewResource(
	"ladderlog://recent_sessions",
	"Recent Sessions",
	mcp.WithResourceDescription("The 20 most recent workout sessions, newest first"),
	mcp.WithMIMEType("application/json"),
)

var resExerciseCatalog = mcp.NewResource(
	"ladderlog://exercise_catalog",
	"Exercise Catalog",
	mcp.WithResourceDescription("All built-in exercises with their per-round rep multipliers and categories"),
	mcp.WithMIMEType("application/json"),
)

var resPresets = mcp.NewResource(
	"ladderlog://presets",
	"Workout Presets",
	mcp.WithResourceDescription("The built-in workout presets with their exercises, progression modes, and rep totals"),
	mcp.WithMIMEType("application/json"),
)
