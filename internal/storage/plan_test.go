package storage

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/claude/volleyplan/internal/models"
)

// TestBuildPlan verifies plan keys, the tactics split and the score summary.
func TestBuildPlan(t *testing.T) {
	s := &models.GeneratedSession{
		Blocks: []models.Block{
			{BlockType: "Warmup", PlanKey: "warmup", Drills: []models.SelectedDrill{{DrillID: 1, Score: 0.5}}},
			{BlockType: "Tactics", PlanKey: "tactics", Drills: []models.SelectedDrill{
				{DrillID: 2, Score: 0.75}, {DrillID: 3, Score: 0.25}, {DrillID: 4, Score: 0.5},
			}},
			{BlockType: "Extra", Drills: []models.SelectedDrill{{DrillID: 5, Score: 1}}},
		},
		Checks: models.Checks{MinutesOK: true, PrimaryFocusRatioOK: true},
	}

	plan, ids, summary := BuildPlan(s)

	wantPlan := models.Plan{
		"warmup":            {1},
		PlanKeyServeReceive: {2, 4},
		PlanKeyAttackBlock:  {3},
		"Extra":             {5},
	}
	if diff := cmp.Diff(wantPlan, plan); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 2, 3, 4, 5}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	want := models.ScoreSummary{AverageScore: 0.6, MinutesOK: true, PrimaryFocusRatioOK: true}
	if summary != want {
		t.Errorf("summary = %+v, want %+v", summary, want)
	}
}

// TestBuildPlanEmpty verifies an empty session yields an empty plan, not nil lists.
func TestBuildPlanEmpty(t *testing.T) {
	plan, ids, summary := BuildPlan(&models.GeneratedSession{})
	if len(plan) != 0 || ids == nil || len(ids) != 0 {
		t.Errorf("plan=%v ids=%v", plan, ids)
	}
	if summary.AverageScore != 0 {
		t.Errorf("averageScore = %v, want 0", summary.AverageScore)
	}
}
