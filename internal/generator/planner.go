package generator

import (
	"math"

	"github.com/claude/volleyplan/internal/models"
)

// plannedBlock is a block of the session template with its minute budget.
type plannedBlock struct {
	Spec    BlockSpec
	Minutes int
}

// PlanBlocks splits total minutes across the ruleset's blocks using the
// ratios of the season phase. Rounding leftovers are handed out one minute at
// a time in block order, so the targets always sum to total. Blocks left
// with zero minutes are dropped.
func PlanBlocks(rs Ruleset, period models.PeriodPhase, total int) []plannedBlock {
	if total <= 0 || len(rs.Blocks) == 0 {
		return nil
	}
	minutes := make([]int, len(rs.Blocks))
	sum := 0
	for i, b := range rs.Blocks {
		minutes[i] = int(math.Round(float64(total) * b.Ratios[period]))
		sum += minutes[i]
	}

	for i := 0; sum != total; i = (i + 1) % len(minutes) {
		switch {
		case sum < total:
			minutes[i]++
			sum++
		case minutes[i] > 0:
			minutes[i]--
			sum--
		}
	}

	planned := make([]plannedBlock, 0, len(rs.Blocks))
	for i, b := range rs.Blocks {
		if minutes[i] > 0 {
			planned = append(planned, plannedBlock{Spec: b, Minutes: minutes[i]})
		}
	}
	return planned
}
