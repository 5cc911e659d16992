package mcp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/claude/volleyplan/internal/generator"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const coachIDKey contextKey = iota

// CoachIDFromContext extracts the coach ID injected by the transport layer.
func CoachIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(coachIDKey).(int); ok {
		return id
	}
	return 1
}

// WithCoachID returns a context with the given coach ID.
func WithCoachID(ctx context.Context, coachID int) context.Context {
	return context.WithValue(ctx, coachIDKey, coachID)
}

// CoachFromRequest is a streamable HTTP context func that carries the
// X-Coach-ID header into tool calls.
func CoachFromRequest(ctx context.Context, r *http.Request) context.Context {
	if id, err := strconv.Atoi(r.Header.Get("X-Coach-ID")); err == nil && id > 0 {
		return WithCoachID(ctx, id)
	}
	return ctx
}

// Options tune the tool handlers.
type Options struct {
	Version        string
	RecentSessions int
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, engine *generator.Engine, opts Options, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("volleyplan", opts.Version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("volleyplan builds volleyball practice sessions from a drill catalog. Generate sessions, browse drills, and look up the drills a coach used recently. All history is scoped to the calling coach."),
	)

	h := &handlers{ds: ds, engine: engine, opts: opts, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGenerateSession, Handler: h.generateSession},
		server.ServerTool{Tool: toolListDrills, Handler: h.listDrills},
		server.ServerTool{Tool: toolRecentDrills, Handler: h.recentDrills},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resRulesets, Handler: h.rulesets},
		server.ServerResource{Resource: resSkills, Handler: h.skills},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds     DataSource
	engine *generator.Engine
	opts   Options
	log    *slog.Logger
}

// --- Resource definitions ---

var resRulesets = mcp.NewResource(
	"volleyplan://rulesets",
	"Rulesets",
	mcp.WithResourceDescription("Registered session rulesets and the defaults applied to omitted request fields"),
	mcp.WithMIMEType("application/json"),
)

var resSkills = mcp.NewResource(
	"volleyplan://skills",
	"Canonical Skills",
	mcp.WithResourceDescription("The six canonical volleyball skills accepted as mainFocus and secondaryFocus"),
	mcp.WithMIMEType("application/json"),
)
