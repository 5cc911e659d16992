package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/volleyplan/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// InsertTraining saves a training. A zero ID is replaced with a new UUID;
// CreatedAt is set from the database clock.
func (db *DB) InsertTraining(ctx context.Context, t *models.Training) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO trainings (id, coach_id, title, status, period_phase, ruleset, request, session,
		 plan, selected_drill_ids, score_summary, model_version)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		 RETURNING created_at`,
		t.ID, t.CoachID, t.Title, t.Status, string(t.PeriodPhase), t.Ruleset, t.Request, t.Session,
		t.Plan, t.SelectedDrillIDs, t.ScoreSummary, t.ModelVersion,
	).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting training: %w", err)
	}
	return nil
}

// GetTraining retrieves one training of a coach.
func (db *DB) GetTraining(ctx context.Context, id uuid.UUID, coachID int) (*models.Training, error) {
	var t models.Training
	var period string
	err := db.Pool.QueryRow(ctx,
		`SELECT id, coach_id, title, status, period_phase, ruleset, request, session, plan,
		 selected_drill_ids, score_summary, model_version, created_at
		 FROM trainings
		 WHERE id = $1 AND coach_id = $2`,
		id, coachID,
	).Scan(&t.ID, &t.CoachID, &t.Title, &t.Status, &period, &t.Ruleset, &t.Request, &t.Session,
		&t.Plan, &t.SelectedDrillIDs, &t.ScoreSummary, &t.ModelVersion, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting training %s: %w", id, err)
	}
	t.PeriodPhase = models.PeriodPhase(period)
	return &t, nil
}

// RecentDrillBuckets returns the selected drill ids of a coach's last n
// trainings, most recent first.
func (db *DB) RecentDrillBuckets(ctx context.Context, coachID, n int) ([][]int, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT selected_drill_ids FROM trainings
		 WHERE coach_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		coachID, n)
	if err != nil {
		return nil, fmt.Errorf("querying recent trainings: %w", err)
	}
	buckets, err := pgx.CollectRows(rows, pgx.RowTo[[]int])
	if err != nil {
		return nil, fmt.Errorf("scanning recent trainings: %w", err)
	}
	return buckets, nil
}
