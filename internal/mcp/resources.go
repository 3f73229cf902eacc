package mcp

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/meltforce/ladderlog/internal/catalog"
)

const recentSessionLimit = 20

func (h *handlers) recentSessions(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	recs, err := h.ds.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.After(recs[j].CreatedAt) })
	if len(recs) > recentSessionLimit {
		recs = recs[:recentSessionLimit]
	}

	return jsonContents(req, recs)
}

func (h *handlers) exerciseCatalog(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	type entry struct {
		Name       string `json:"name"`
		Multiplier int    `json:"multiplier"`
		Category   string `json:"category"`
	}
	out := make([]entry, len(catalog.Exercises))
	for i, e := range catalog.Exercises {
		out[i] = entry{Name: e.Name, Multiplier: e.Multiplier, Category: string(e.Category)}
	}

	return jsonContents(req, out)
}

func (h *handlers) presets(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	type entry struct {
		Key         string   `json:"key"`
		DisplayName string   `json:"display_name"`
		Exercises   []string `json:"exercises"`
		Mode        string   `json:"mode"`
		TotalRounds int      `json:"total_rounds"`
		TotalReps   int      `json:"total_reps"`
	}
	out := make([]entry, len(catalog.Presets))
	for i, p := range catalog.Presets {
		cfg := catalog.FromPreset(p)
		names := make([]string, len(p.Exercises))
		for j, e := range p.Exercises {
			names[j] = e.Name
		}
		out[i] = entry{
			Key:         p.Key,
			DisplayName: p.DisplayName,
			Exercises:   names,
			Mode:        p.Mode.String(),
			TotalRounds: p.Mode.TotalRounds(),
			TotalReps:   cfg.TotalReps(),
		}
	}

	return jsonContents(req, out)
}

func jsonContents(req mcp.ReadResourceRequest, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
