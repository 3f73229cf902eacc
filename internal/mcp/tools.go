package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/meltforce/ladderlog/internal/catalog"
	"github.com/meltforce/ladderlog/internal/localstore"
	"github.com/meltforce/ladderlog/internal/models"
	"github.com/meltforce/ladderlog/internal/progression"
)

// --- Tool definitions ---

var toolListSessions = mcp.NewTool("list_sessions",
	mcp.WithDescription("List workout sessions from the local history, newest first. Each session includes per-exercise rep and timing breakdowns."),
	mcp.WithString("mode", mcp.Description("Filter by workout mode key (e.g. 'classic', 'pyramid')")),
	mcp.WithString("completed", mcp.Description("Filter by completion: 'true' for finished workouts only, 'false' for abandoned ones"), mcp.Enum("true", "false")),
	mcp.WithString("limit", mcp.Description("Maximum number of sessions to return. Defaults to 50.")),
)

var toolGetSession = mcp.NewTool("get_session",
	mcp.WithDescription("Fetch a single workout session by ID."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Session UUID")),
)

var toolGetPersonalBests = mcp.NewTool("get_personal_bests",
	mcp.WithDescription("Personal bests per workout mode: best completion time, most reps in a session, and session counts. Best time only counts completed workouts."),
)

var toolGetWorkoutPlan = mcp.NewTool("get_workout_plan",
	mcp.WithDescription("Compute the round-by-round rep plan for a workout. Pass either a preset key or a custom exercise list with a progression mode."),
	mcp.WithString("preset", mcp.Description("Preset key (e.g. 'classic'). Mutually exclusive with 'exercises'.")),
	mcp.WithString("exercises", mcp.Description("Comma-separated exercise names from the catalog (e.g. 'Pull-ups, Push-ups')")),
	mcp.WithString("mode", mcp.Description("Progression mode for custom workouts. Defaults to 'ascending'."), mcp.Enum("ascending", "descending", "full")),
)

var toolGetSyncStatus = mcp.NewTool("get_sync_status",
	mcp.WithDescription("Summary of cloud sync state: how many local sessions are synced, pending upload, or guest-owned."),
)

// --- Tool handlers ---

func (h *handlers) listSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recs, err := h.ds.FetchAll(ctx)
	if err != nil {
		h.log.Error("mcp list_sessions", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	if mode := req.GetString("mode", ""); mode != "" {
		recs = filterSessions(recs, func(r models.SessionRecord) bool { return r.ModeKey == mode })
	}
	if c := req.GetString("completed", ""); c != "" {
		want, err := strconv.ParseBool(c)
		if err != nil {
			return mcp.NewToolResultError("completed must be 'true' or 'false'"), nil
		}
		recs = filterSessions(recs, func(r models.SessionRecord) bool { return r.Completed == want })
	}

	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.After(recs[j].CreatedAt) })

	limit := 50
	if l := req.GetString("limit", ""); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			return mcp.NewToolResultError("limit must be a positive integer"), nil
		}
		limit = n
	}
	if len(recs) > limit {
		recs = recs[:limit]
	}

	result, err := mcp.NewToolResultJSON(recs)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return mcp.NewToolResultError("id is not a valid UUID"), nil
	}

	rec, err := h.ds.FetchByID(ctx, id)
	if errors.Is(err, localstore.ErrNotFound) {
		return mcp.NewToolResultError("no session with id " + raw), nil
	}
	if err != nil {
		h.log.Error("mcp get_session", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(rec)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getPersonalBests(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recs, err := h.ds.FetchAll(ctx)
	if err != nil {
		h.log.Error("mcp get_personal_bests", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(models.PersonalBests(recs))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkoutPlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := planConfig(
		req.GetString("preset", ""),
		req.GetString("exercises", ""),
		req.GetString("mode", ""),
	)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(buildPlan(cfg))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSyncStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recs, err := h.ds.FetchAll(ctx)
	if err != nil {
		h.log.Error("mcp get_sync_status", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	status := struct {
		Total   int `json:"total"`
		Synced  int `json:"synced"`
		Pending int `json:"pending_upload"`
		Guest   int `json:"guest_owned"`
	}{Total: len(recs)}
	for _, rec := range recs {
		switch {
		case rec.Owner.IsGuest():
			status.Guest++
		case rec.Synced:
			status.Synced++
		default:
			status.Pending++
		}
	}

	result, err := mcp.NewToolResultJSON(status)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

// --- Plan computation ---

type planRound struct {
	Round int            `json:"round"`
	Reps  map[string]int `json:"reps"`
	Total int            `json:"total"`
}

type workoutPlan struct {
	ModeKey     string      `json:"workout_mode"`
	DisplayName string      `json:"display_name,omitempty"`
	Mode        string      `json:"mode"`
	TotalRounds int         `json:"total_rounds"`
	TotalReps   int         `json:"total_reps"`
	Rounds      []planRound `json:"rounds"`
}

// planConfig resolves tool parameters into a workout configuration. Exactly
// one of preset or exercises must be given.
func planConfig(preset, exercises, mode string) (catalog.Config, error) {
	switch {
	case preset != "" && exercises != "":
		return catalog.Config{}, fmt.Errorf("pass either 'preset' or 'exercises', not both")
	case preset != "":
		p, err := catalog.FindPreset(preset)
		if err != nil {
			return catalog.Config{}, err
		}
		return catalog.FromPreset(p), nil
	case exercises != "":
		var list []catalog.Exercise
		for _, name := range strings.Split(exercises, ",") {
			e, err := catalog.Lookup(strings.TrimSpace(name))
			if err != nil {
				return catalog.Config{}, err
			}
			list = append(list, e)
		}
		m := progression.Ascending
		if mode != "" {
			var err error
			if m, err = progression.ParseMode(mode); err != nil {
				return catalog.Config{}, err
			}
		}
		return catalog.Custom(list, m, ""), nil
	default:
		return catalog.Config{}, fmt.Errorf("pass a 'preset' key or an 'exercises' list")
	}
}

// buildPlan walks the full round sequence of a configuration.
func buildPlan(cfg catalog.Config) workoutPlan {
	plan := workoutPlan{
		ModeKey:     cfg.ModeKey(),
		DisplayName: cfg.DisplayName,
		Mode:        cfg.Mode.String(),
		TotalRounds: cfg.Mode.TotalRounds(),
		TotalReps:   cfg.TotalReps(),
	}

	round, phase := cfg.Mode.StartRound(), cfg.Mode.StartPhase()
	for {
		pr := planRound{Round: round, Reps: make(map[string]int, len(cfg.Exercises))}
		for _, e := range cfg.Exercises {
			reps := progression.RepsForRound(e.Multiplier, round)
			pr.Reps[e.Name] = reps
			pr.Total += reps
		}
		plan.Rounds = append(plan.Rounds, pr)

		next, nextPhase, done := progression.Next(cfg.Mode, round, phase)
		if done {
			return plan
		}
		round, phase = next, nextPhase
	}
}

func filterSessions(recs []models.SessionRecord, keep func(models.SessionRecord) bool) []models.SessionRecord {
	out := recs[:0]
	for _, rec := range recs {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}
