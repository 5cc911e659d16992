package storage

import (
	"math"

	"github.com/claude/volleyplan/internal/models"
)

// Plan keys the tactics block alternates between.
const (
	PlanKeyServeReceive = "serve_receive"
	PlanKeyAttackBlock  = "attack_block"
)

// BuildPlan condenses a session into its stored form: the plan, the flat
// list of selected ids and the score summary. Drills of tactics blocks are
// dealt alternately to serve_receive and attack_block.
func BuildPlan(s *models.GeneratedSession) (models.Plan, []int, models.ScoreSummary) {
	plan := models.Plan{}
	ids := []int{}
	scoreSum := 0.0
	for _, b := range s.Blocks {
		for i, d := range b.Drills {
			key := b.PlanKey
			if key == "" {
				key = b.BlockType
			}
			if key == "tactics" {
				key = PlanKeyServeReceive
				if i%2 == 1 {
					key = PlanKeyAttackBlock
				}
			}
			plan[key] = append(plan[key], d.DrillID)
			ids = append(ids, d.DrillID)
			scoreSum += d.Score
		}
	}

	summary := models.ScoreSummary{
		MinutesOK:              s.Checks.MinutesOK,
		IntensityProgressionOK: s.Checks.IntensityProgressionOK,
		PrimaryFocusRatioOK:    s.Checks.PrimaryFocusRatioOK,
		MustIncludeOK:          s.Checks.MustIncludeOK,
	}
	if len(ids) > 0 {
		summary.AverageScore = math.Round(scoreSum/float64(len(ids))*1000) / 1000
	}
	return plan, ids, summary
}
