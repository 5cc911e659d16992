package mcp

import (
	"context"
	"encoding/json"

	"github.com/claude/volleyplan/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

func (h *handlers) rulesets(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	d := h.engine.Defaults()
	return jsonResource(req.Params.URI, map[string]any{
		"rulesets": h.engine.Rulesets(),
		"defaults": map[string]any{
			"ruleset":               d.Ruleset,
			"periodPhase":           d.PeriodPhase,
			"intensityTarget":       d.IntensityTarget,
			"durationTotalMin":      d.DurationTotalMin,
			"maxHighIntensityInRow": d.MaxHighIntensityInRow,
		},
	})
}

func (h *handlers) skills(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(req.Params.URI, map[string]any{"skills": models.CanonicalSkills})
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
