package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/volleyplan/internal/catalog"
	"github.com/claude/volleyplan/internal/models"
)

var (
	// ErrEmptyCatalog is returned when a payload holds no drill records at all.
	ErrEmptyCatalog = errors.New("catalog holds no drill records")

	// ErrMalformedCatalog wraps payloads that are not a catalog document.
	ErrMalformedCatalog = errors.New("malformed catalog")
)

// batchSize keeps each upsert batch well under the pgx batch limits.
const batchSize = 500

// DrillStore receives normalized drills.
type DrillStore interface {
	UpsertDrills(ctx context.Context, drills []models.Drill) (int64, error)
}

// LogStore records import runs. It is optional.
type LogStore interface {
	InsertImportLog(ctx context.Context, log models.ImportLog) (int64, error)
	UpdateImportLog(ctx context.Context, id int64, log models.ImportLog) error
}

// Stats tracks import progress.
type Stats struct {
	Received int      `json:"received"`
	Upserted int64    `json:"upserted"`
	Skipped  int      `json:"skipped"`
	Invalid  []string `json:"invalid,omitempty"`
}

// Importer normalizes drill catalogs and upserts them into a DrillStore.
type Importer struct {
	store  DrillStore
	logs   LogStore
	log    *slog.Logger
	dryRun bool
}

// New creates a new Importer. logs may be nil.
func New(store DrillStore, logs LogStore, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{store: store, logs: logs, log: log, dryRun: dryRun}
}

// ImportFile reads a catalog file (plain or gzip JSON) and imports it.
func (imp *Importer) ImportFile(ctx context.Context, path string) (*Stats, error) {
	data, err := ReadCatalogFile(path)
	if err != nil {
		return nil, err
	}
	return imp.Import(ctx, path, data)
}

// Import parses a catalog payload and upserts every record that normalizes.
// Records without a positive id and repeats of an id already seen are
// skipped and counted.
func (imp *Importer) Import(ctx context.Context, source string, data []byte) (*Stats, error) {
	start := time.Now()
	logID := imp.startLog(ctx, source)

	stats, err := imp.run(ctx, data)
	imp.finishLog(ctx, logID, source, stats, start, err)
	if err != nil {
		return stats, err
	}

	imp.log.Info("catalog import complete",
		"source", source,
		"received", stats.Received,
		"upserted", stats.Upserted,
		"skipped", stats.Skipped,
		"dry_run", imp.dryRun,
	)
	return stats, nil
}

func (imp *Importer) run(ctx context.Context, data []byte) (*Stats, error) {
	stats := &Stats{}
	data, err := Decompress(data)
	if err != nil {
		return stats, fmt.Errorf("%w: %w", ErrMalformedCatalog, err)
	}
	records, err := ParseRecords(data)
	if err != nil {
		return stats, err
	}
	stats.Received = len(records)

	drills := make([]models.Drill, 0, len(records))
	seen := make(map[int]bool, len(records))
	for i, rec := range records {
		d, ok := catalog.Normalize(rec)
		if !ok || seen[d.ID] {
			stats.Skipped++
			stats.Invalid = append(stats.Invalid, describe(i, rec))
			continue
		}
		seen[d.ID] = true
		drills = append(drills, d)
	}
	if len(stats.Invalid) > 0 {
		imp.log.Warn("skipped catalog records", "count", stats.Skipped, "records", stats.Invalid)
	}

	if imp.dryRun {
		stats.Upserted = int64(len(drills))
		return stats, nil
	}
	for i := 0; i < len(drills); i += batchSize {
		end := min(i+batchSize, len(drills))
		n, err := imp.store.UpsertDrills(ctx, drills[i:end])
		if err != nil {
			return stats, fmt.Errorf("upserting drills %d-%d: %w", i, end-1, err)
		}
		stats.Upserted += n
	}
	return stats, nil
}

func (imp *Importer) startLog(ctx context.Context, source string) int64 {
	if imp.logs == nil || imp.dryRun {
		return 0
	}
	id, err := imp.logs.InsertImportLog(ctx, models.ImportLog{Source: source, Status: "running"})
	if err != nil {
		imp.log.Warn("failed to create import log", "error", err)
		return 0
	}
	return id
}

func (imp *Importer) finishLog(ctx context.Context, id int64, source string, stats *Stats, start time.Time, runErr error) {
	if id == 0 {
		return
	}
	ms := int(time.Since(start).Milliseconds())
	entry := models.ImportLog{
		Source:     source,
		Status:     "success",
		Received:   stats.Received,
		Upserted:   stats.Upserted,
		Skipped:    stats.Skipped,
		DurationMs: &ms,
	}
	if runErr != nil {
		msg := runErr.Error()
		entry.Status = "error"
		entry.ErrorMessage = &msg
	}
	if err := imp.logs.UpdateImportLog(ctx, id, entry); err != nil {
		imp.log.Warn("failed to update import log", "id", id, "error", err)
	}
}

// ParseRecords accepts a JSON array of records or an object whose "drills"
// (or "items") field holds that array.
func ParseRecords(data []byte) ([]map[string]any, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyCatalog
	}

	var records []map[string]any
	if data[0] == '[' {
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("%w: decoding array: %w", ErrMalformedCatalog, err)
		}
	} else {
		var envelope struct {
			Drills []map[string]any `json:"drills"`
			Items  []map[string]any `json:"items"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			return nil, fmt.Errorf("%w: decoding envelope: %w", ErrMalformedCatalog, err)
		}
		records = envelope.Drills
		if len(records) == 0 {
			records = envelope.Items
		}
	}
	if len(records) == 0 {
		return nil, ErrEmptyCatalog
	}
	return records, nil
}

func describe(i int, rec map[string]any) string {
	if name, ok := rec["name"].(string); ok && name != "" {
		return fmt.Sprintf("#%d %q", i, name)
	}
	return fmt.Sprintf("#%d", i)
}
