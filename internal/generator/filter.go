package generator

import (
	"strings"

	"github.com/claude/volleyplan/internal/models"
)

// Relaxation levels a block pool can end up at.
const (
	RelaxNone     = ""
	RelaxSoft     = "equipment_players"
	RelaxFallback = "age_level_only"
)

// filter applies the hard eligibility rules of one request.
type filter struct {
	req       models.GenerationRequest
	rs        Ruleset
	excluded  map[int]bool
	available map[string]bool
	anyLevel  bool
}

func newFilter(req models.GenerationRequest, rs Ruleset) *filter {
	f := &filter{
		req:       req,
		rs:        rs,
		excluded:  make(map[int]bool, len(req.Constraints.ExcludeDrillIDs)),
		available: make(map[string]bool, len(req.EquipmentAvailable)),
		anyLevel:  IsAnyLevel(req.Level),
	}
	for _, id := range req.Constraints.ExcludeDrillIDs {
		f.excluded[id] = true
	}
	for _, e := range req.EquipmentAvailable {
		f.available[strings.ToLower(strings.TrimSpace(e))] = true
	}
	return f
}

// ageOK rejects drills whose known bounds lie outside the requested range.
func (f *filter) ageOK(d models.Drill) bool {
	if d.AgeMin != nil && f.req.Age.Max < *d.AgeMin {
		return false
	}
	if d.AgeMax != nil && f.req.Age.Min > *d.AgeMax {
		return false
	}
	return true
}

func (f *filter) levelOK(d models.Drill) bool {
	if f.anyLevel || IsAnyLevel(d.Level) {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(d.Level), f.req.Level)
}

// baseOK holds the rules no relaxation drops: exclusion, age and level.
func (f *filter) baseOK(d models.Drill) bool {
	return !f.excluded[d.ID] && f.ageOK(d) && f.levelOK(d)
}

func (f *filter) intensityOK(d models.Drill, b BlockSpec) bool {
	if b.RejectHigh && d.Intensity == models.IntensityHigh {
		return false
	}
	ceiling := min(f.req.IntensityTarget.Tier(), b.IntensityCap.Tier())
	return d.Intensity.Tier() <= ceiling
}

// equipmentOK passes drills with unknown equipment. An empty available set
// means the coach did not say, so it constrains nothing.
func (f *filter) equipmentOK(d models.Drill) bool {
	if !d.EquipmentKnown || len(f.available) == 0 {
		return true
	}
	for _, e := range d.Equipment {
		if !f.available[e] {
			return false
		}
	}
	return true
}

func (f *filter) playersOK(d models.Drill) bool {
	if !d.PlayersKnown || f.req.PlayersCount <= 0 {
		return true
	}
	if d.PlayersMin != nil && f.req.PlayersCount < *d.PlayersMin {
		return false
	}
	if d.PlayersMax != nil && f.req.PlayersCount > *d.PlayersMax {
		return false
	}
	return true
}

// eligible applies the rules of a relaxation level.
func (f *filter) eligible(d models.Drill, b BlockSpec, level string) bool {
	if !f.baseOK(d) {
		return false
	}
	switch level {
	case RelaxFallback:
		return true
	case RelaxSoft:
		return f.intensityOK(d, b)
	default:
		return f.intensityOK(d, b) && f.equipmentOK(d) && f.playersOK(d)
	}
}

// pool returns the unused drills eligible for a block, relaxing the rules
// while fewer than MinPool drills qualify.
func (f *filter) pool(drills []models.Drill, b BlockSpec, used map[int]bool) ([]models.Drill, string) {
	var out []models.Drill
	level := RelaxNone
	for _, lvl := range relaxLevels {
		out = f.collect(drills, b, used, lvl, nil)
		level = lvl
		if len(out) >= f.rs.MinPool || (lvl != RelaxNone && len(out) > 0) {
			break
		}
	}
	return f.narrow(out, b), level
}

var relaxLevels = []string{RelaxNone, RelaxSoft, RelaxFallback}

func (f *filter) collect(drills []models.Drill, b BlockSpec, used map[int]bool, level string, match func(models.Drill) bool) []models.Drill {
	var out []models.Drill
	for _, d := range drills {
		if used[d.ID] || (match != nil && !match(d)) {
			continue
		}
		if f.eligible(d, b, level) {
			out = append(out, d)
		}
	}
	return out
}

// narrow keeps drills that match the ruleset's soft preferences, as long as
// enough remain.
func (f *filter) narrow(pool []models.Drill, b BlockSpec) []models.Drill {
	keep := func(pred func(models.Drill) bool) []models.Drill {
		var out []models.Drill
		for _, d := range pool {
			if pred(d) {
				out = append(out, d)
			}
		}
		if len(out) >= f.rs.MinPool {
			return out
		}
		return pool
	}
	if f.rs.PreferVideo {
		pool = keep(hasVideo)
	}
	if f.rs.PreferPhase && b.Phase != "" {
		pool = keep(func(d models.Drill) bool { return ClassifyPhase(d) == b.Phase })
	}
	return pool
}

// repairPool lists unused drills for a repair substitution, preferring drills
// that pass the block's full rules over the age/level-only fallback.
func (f *filter) repairPool(drills []models.Drill, b BlockSpec, used map[int]bool, match func(models.Drill) bool) []models.Drill {
	for _, lvl := range relaxLevels {
		if out := f.collect(drills, b, used, lvl, match); len(out) > 0 {
			return out
		}
	}
	return nil
}
