package generator

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/claude/volleyplan/internal/models"
)

func plannedMinutes(planned []plannedBlock) []int {
	out := make([]int, len(planned))
	for i, pb := range planned {
		out[i] = pb.Minutes
	}
	return out
}

// TestPlanBlocks verifies rounded block targets and the remainder pass.
func TestPlanBlocks(t *testing.T) {
	tests := []struct {
		name   string
		rs     Ruleset
		period models.PeriodPhase
		total  int
		want   []int
	}{
		{"periodized inseason 90", PeriodizedRuleset(), models.PeriodInseason, 90, []int{11, 23, 20, 22, 7, 7}},
		{"periodized prep 60", PeriodizedRuleset(), models.PeriodPrep, 60, []int{6, 19, 11, 11, 8, 5}},
		{"phased 90", PhasedRuleset(), models.PeriodTaper, 90, []int{16, 29, 29, 16}},
		{"zero blocks dropped", PeriodizedRuleset(), models.PeriodInseason, 3, []int{1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			planned := PlanBlocks(tt.rs, tt.period, tt.total)
			if diff := cmp.Diff(tt.want, plannedMinutes(planned)); diff != "" {
				t.Errorf("PlanBlocks minutes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestPlanBlocks_SumsToTotal verifies the targets add up for every duration
// and period.
func TestPlanBlocks_SumsToTotal(t *testing.T) {
	for _, rs := range []Ruleset{PeriodizedRuleset(), PhasedRuleset()} {
		for _, period := range []models.PeriodPhase{models.PeriodPrep, models.PeriodInseason, models.PeriodTaper, models.PeriodOffseason} {
			for total := 1; total <= 180; total++ {
				sum := 0
				for _, pb := range PlanBlocks(rs, period, total) {
					if pb.Minutes <= 0 {
						t.Fatalf("%s/%s/%d: block %s has %d minutes", rs.Name, period, total, pb.Spec.Name, pb.Minutes)
					}
					sum += pb.Minutes
				}
				if sum != total {
					t.Fatalf("%s/%s/%d: sum = %d", rs.Name, period, total, sum)
				}
			}
		}
	}
}

// TestAllocateMinutes covers the natural-range, even-split and overflow
// paths.
func TestAllocateMinutes(t *testing.T) {
	tests := []struct {
		name   string
		target int
		bounds [][2]int
		want   []int
	}{
		{"within ranges", 12, [][2]int{{5, 10}, {5, 10}}, []int{6, 6}},
		{"respects maximum", 16, [][2]int{{4, 6}, {5, 15}}, []int{6, 10}},
		{"minimums exceed target", 8, [][2]int{{5, 10}, {5, 10}}, []int{4, 4}},
		{"uneven split", 7, [][2]int{{5, 10}, {5, 10}}, []int{4, 3}},
		{"past maximums", 30, [][2]int{{5, 10}, {5, 10}}, []int{15, 15}},
		{"single drill", 9, [][2]int{{10, 20}}, []int{9}},
		{"no drills", 10, nil, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := allocateMinutes(tt.target, tt.bounds)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("allocateMinutes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestDrillCount verifies block minutes map to drill counts within the
// ruleset bounds.
func TestDrillCount(t *testing.T) {
	periodized, phased := PeriodizedRuleset(), PhasedRuleset()
	tests := []struct {
		rs      Ruleset
		minutes int
		want    int
	}{
		{periodized, 1, 1},
		{periodized, 15, 2},
		{periodized, 20, 2},
		{periodized, 30, 3},
		{periodized, 42, 4},
		{periodized, 60, 5},
		{phased, 60, 4},
		{phased, 25, 3},
	}
	for _, tt := range tests {
		if got := tt.rs.drillCount(tt.minutes); got != tt.want {
			t.Errorf("%s drillCount(%d) = %d, want %d", tt.rs.Name, tt.minutes, got, tt.want)
		}
	}
}
