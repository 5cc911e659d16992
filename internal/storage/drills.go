package storage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/claude/volleyplan/internal/catalog"
	"github.com/claude/volleyplan/internal/models"
	"github.com/jackc/pgx/v5"
)

const drillColumns = `id, name, category, level, age_min, age_max, skill_focus, skill_domains,
	game_phases, tactical_focus, technical_focus, zone_focus, position_focus, intensity_type, rpe,
	duration_min, duration_max, equipment, players, type_of_drill, training_goal, goal,
	description, video_urls`

// DrillFilter narrows ListDrills. Empty fields do not filter.
type DrillFilter struct {
	Category string
	Level    string
	Limit    int
}

// ListDrills returns approved drills ordered by id. Rows are collected as
// column maps and normalized like any other catalog record, so loosely typed
// legacy columns never fail a query.
func (db *DB) ListDrills(ctx context.Context, f DrillFilter) ([]models.Drill, error) {
	query := `SELECT ` + drillColumns + ` FROM drills WHERE status = 'approved'`
	var args []any
	if f.Category != "" {
		args = append(args, "%"+f.Category+"%")
		query += " AND category ILIKE $" + strconv.Itoa(len(args))
	}
	if f.Level != "" {
		args = append(args, f.Level)
		query += " AND (level IS NULL OR level = '' OR lower(level) = lower($" + strconv.Itoa(len(args)) + "))"
	}
	query += " ORDER BY id"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying drills: %w", err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("scanning drills: %w", err)
	}
	return catalog.NormalizeAll(records), nil
}

// UpsertDrills inserts or updates drills by id and marks them approved.
// Returns the number of rows written.
func (db *DB) UpsertDrills(ctx context.Context, drills []models.Drill) (int64, error) {
	if len(drills) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, d := range drills {
		batch.Queue(`INSERT INTO drills (`+drillColumns+`, status, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,'approved',NOW())
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, category = EXCLUDED.category, level = EXCLUDED.level,
				age_min = EXCLUDED.age_min, age_max = EXCLUDED.age_max,
				skill_focus = EXCLUDED.skill_focus, skill_domains = EXCLUDED.skill_domains,
				game_phases = EXCLUDED.game_phases, tactical_focus = EXCLUDED.tactical_focus,
				technical_focus = EXCLUDED.technical_focus, zone_focus = EXCLUDED.zone_focus,
				position_focus = EXCLUDED.position_focus, intensity_type = EXCLUDED.intensity_type,
				rpe = EXCLUDED.rpe, duration_min = EXCLUDED.duration_min, duration_max = EXCLUDED.duration_max,
				equipment = EXCLUDED.equipment, players = EXCLUDED.players,
				type_of_drill = EXCLUDED.type_of_drill, training_goal = EXCLUDED.training_goal,
				goal = EXCLUDED.goal, description = EXCLUDED.description, video_urls = EXCLUDED.video_urls,
				status = 'approved', updated_at = NOW()`,
			d.ID, d.Name, d.Category, d.Level, d.AgeMin, d.AgeMax, jsonList(d.SkillFocus), jsonList(d.SkillDomains),
			jsonList(d.GamePhases), jsonList(d.TacticalFocus), jsonList(d.TechnicalFocus), jsonList(d.ZoneFocus),
			jsonList(d.PositionFocus), string(d.Intensity), d.RPE, d.DurationMin, d.DurationMax,
			jsonList(d.Equipment), playersText(d), d.TypeOfDrill, d.TrainingGoal, d.Goal,
			d.Description, jsonList(d.VideoURLs))
	}

	br := db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	var written int64
	for _, d := range drills {
		tag, err := br.Exec()
		if err != nil {
			return written, fmt.Errorf("upserting drill %d: %w", d.ID, err)
		}
		written += tag.RowsAffected()
	}
	return written, nil
}

// jsonList keeps empty tag lists as JSON arrays rather than null.
func jsonList(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// playersText renders player bounds the way the normalizer reads them back.
func playersText(d models.Drill) string {
	switch {
	case d.PlayersMin != nil && d.PlayersMax != nil:
		return fmt.Sprintf("%d-%d", *d.PlayersMin, *d.PlayersMax)
	case d.PlayersMin != nil:
		return fmt.Sprintf("%d+", *d.PlayersMin)
	case d.PlayersMax != nil:
		return fmt.Sprintf("1-%d", *d.PlayersMax)
	}
	return "unknown"
}
