package mcp

import (
	"context"

	"github.com/claude/volleyplan/internal/models"
	"github.com/claude/volleyplan/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (local)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	ListDrills(ctx context.Context, f storage.DrillFilter) ([]models.Drill, error)
	RecentDrillBuckets(ctx context.Context, coachID, n int) ([][]int, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
