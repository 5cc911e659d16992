package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/claude/volleyplan/internal/generator"
	"github.com/claude/volleyplan/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Tool definitions ---

var toolGenerateSession = mcp.NewTool("generate_session",
	mcp.WithDescription("Generate a volleyball practice session from the drill catalog. Returns ordered blocks with per-drill minutes, score breakdowns and checks (minutesOk, intensityProgressionOk, primaryFocusRatioOk, mustIncludeOk)."),
	mcp.WithString("request", mcp.Required(), mcp.Description(`Generation request as JSON, e.g. {"age":"14-16","level":"U16","periodPhase":"inseason","durationTotalMin":90,"mainFocus":"Reception","secondaryFocus":"Serve","intensityTarget":"medium","constraints":{"maxHighIntensityInRow":2}}. Use "{}" for defaults.`)),
	mcp.WithString("ruleset", mcp.Description("Override the ruleset named in the request."), mcp.Enum(generator.RulesetPeriodized, generator.RulesetPhased)),
)

var toolListDrills = mcp.NewTool("list_drills",
	mcp.WithDescription("List approved drills from the catalog, normalized the same way the generator sees them."),
	mcp.WithString("category", mcp.Description("Category filter, case-insensitive substring (e.g. 'Warm-up', 'Tactics')")),
	mcp.WithString("level", mcp.Description("Level filter; drills open to every level always match")),
	mcp.WithNumber("limit", mcp.Description("Maximum number of drills. Defaults to 50.")),
)

var toolRecentDrills = mcp.NewTool("recent_drills",
	mcp.WithDescription("Drill ids used in the coach's most recent saved trainings, most recent first. These feed the anti-repeat penalty."),
	mcp.WithNumber("sessions", mcp.Description("Number of recent trainings (1-3). Defaults to the server setting.")),
)

// --- Tool handlers ---

func (h *handlers) generateSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("request")
	if err != nil {
		return mcp.NewToolResultError("request parameter is required"), nil
	}
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}

	genReq, err := h.engine.ParseRequest([]byte(raw))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if rs := req.GetString("ruleset", ""); rs != "" {
		genReq.Ruleset = rs
	}

	cid := CoachIDFromContext(ctx)
	if len(genReq.RecentDrillIDsBySession) == 0 && h.opts.RecentSessions > 0 {
		buckets, err := h.ds.RecentDrillBuckets(ctx, cid, h.opts.RecentSessions)
		if err != nil {
			h.log.Warn("mcp generate_session: recent drills unavailable", "coach_id", cid, "error", err)
		} else {
			genReq.RecentDrillIDsBySession = buckets
		}
	}

	drills, err := h.ds.ListDrills(ctx, storage.DrillFilter{})
	if err != nil {
		h.log.Error("mcp generate_session", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	session, err := h.engine.Generate(drills, genReq)
	if errors.Is(err, generator.ErrInvalidRequest) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err != nil {
		h.log.Error("mcp generate_session", "error", err)
		return mcp.NewToolResultError("generation failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(session)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listDrills(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := storage.DrillFilter{
		Category: req.GetString("category", ""),
		Level:    req.GetString("level", ""),
		Limit:    req.GetInt("limit", 50),
	}
	if f.Limit < 0 {
		return mcp.NewToolResultError("limit must not be negative"), nil
	}

	drills, err := h.ds.ListDrills(ctx, f)
	if err != nil {
		h.log.Error("mcp list_drills", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(map[string]any{"drills": drills, "count": len(drills)})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) recentDrills(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n := req.GetInt("sessions", h.opts.RecentSessions)
	if n < 1 || n > 3 {
		return mcp.NewToolResultError("sessions must be between 1 and 3"), nil
	}

	cid := CoachIDFromContext(ctx)
	buckets, err := h.ds.RecentDrillBuckets(ctx, cid, n)
	if err != nil {
		h.log.Error("mcp recent_drills", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if buckets == nil {
		buckets = [][]int{}
	}

	result, err := mcp.NewToolResultJSON(map[string]any{
		"coachId":                 cid,
		"recentDrillIdsBySession": buckets,
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
