package storage

import (
	"context"
	"fmt"
	"time"
)

// CatalogStats holds aggregate statistics about the drill catalog and a
// coach's saved trainings.
type CatalogStats struct {
	ApprovedDrills   int64            `json:"approved_drills"`
	TotalTrainings   int64            `json:"total_trainings"`
	LatestTraining   *time.Time       `json:"latest_training"`
	DrillsByTier     map[string]int64 `json:"drills_by_intensity"`
	DrillsByCategory []CategoryStat   `json:"drills_by_category"`
}

// CategoryStat counts approved drills of one category.
type CategoryStat struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// GetCatalogStats returns catalog counts plus the training history size of a coach.
func (db *DB) GetCatalogStats(ctx context.Context, coachID int) (*CatalogStats, error) {
	stats := &CatalogStats{DrillsByTier: make(map[string]int64)}

	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM drills WHERE status = 'approved'`,
	).Scan(&stats.ApprovedDrills)
	if err != nil {
		return nil, fmt.Errorf("counting drills: %w", err)
	}

	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), MAX(created_at) FROM trainings WHERE coach_id = $1`, coachID,
	).Scan(&stats.TotalTrainings, &stats.LatestTraining)
	if err != nil {
		return nil, fmt.Errorf("counting trainings: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT COALESCE(NULLIF(intensity_type, ''), 'low'), COUNT(*)
		 FROM drills
		 WHERE status = 'approved'
		 GROUP BY 1`)
	if err != nil {
		return nil, fmt.Errorf("querying drills by intensity: %w", err)
	}
	for rows.Next() {
		var tier string
		var n int64
		if err := rows.Scan(&tier, &n); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning intensity stat: %w", err)
		}
		stats.DrillsByTier[tier] += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.Pool.Query(ctx,
		`SELECT COALESCE(category, ''), COUNT(*)
		 FROM drills
		 WHERE status = 'approved'
		 GROUP BY 1
		 ORDER BY COUNT(*) DESC, 1`)
	if err != nil {
		return nil, fmt.Errorf("querying drills by category: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s CategoryStat
		if err := rows.Scan(&s.Category, &s.Count); err != nil {
			return nil, fmt.Errorf("scanning category stat: %w", err)
		}
		stats.DrillsByCategory = append(stats.DrillsByCategory, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
