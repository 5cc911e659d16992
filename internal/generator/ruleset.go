package generator

import (
	"fmt"
	"sort"

	"github.com/claude/volleyplan/internal/models"
)

// Weights are the factor weights of the candidate score. They sum to 1.
type Weights struct {
	GoalMatch    float64 `yaml:"goal_match"`
	CoverageGain float64 `yaml:"coverage_gain"`
	IntensityFit float64 `yaml:"intensity_fit"`
	PeriodFit    float64 `yaml:"period_fit"`
	Diversity    float64 `yaml:"diversity"`
	DurationFit  float64 `yaml:"duration_fit"`
}

// DefaultWeights returns the standard factor weights.
func DefaultWeights() Weights {
	return Weights{
		GoalMatch:    0.28,
		CoverageGain: 0.20,
		IntensityFit: 0.18,
		PeriodFit:    0.12,
		Diversity:    0.12,
		DurationFit:  0.10,
	}
}

// Sum adds all weights.
func (w Weights) Sum() float64 {
	return w.GoalMatch + w.CoverageGain + w.IntensityFit + w.PeriodFit + w.Diversity + w.DurationFit
}

// BlockKind groups blocks that period and intensity heuristics treat alike.
type BlockKind string

const (
	KindWarmup    BlockKind = "warmup"
	KindTechnique BlockKind = "technique"
	KindTactics   BlockKind = "tactics"
	KindGame      BlockKind = "game"
	KindPhysical  BlockKind = "physical"
	KindCooldown  BlockKind = "cooldown"
)

// BlockSpec describes one block of a ruleset's session template.
type BlockSpec struct {
	Name string
	Kind BlockKind
	// Phase is the session phase whose category/format signals count as a
	// goal match for this block. Empty means keywords only.
	Phase   string
	PlanKey string
	Ratios  map[models.PeriodPhase]float64
	// DefaultMinutes bounds drills that declare no natural duration.
	DefaultMinutes    [2]int
	IntensityCap      models.Intensity
	RejectHigh        bool
	LowIntensityBonus float64
	Keywords          []string
}

// CountStep maps block minutes to a drill count: blocks of up to UpTo
// minutes get Drills drills.
type CountStep struct {
	UpTo   int
	Drills int
}

// Ruleset is the complete configuration of the engine: block taxonomy,
// weights and the constants of every heuristic.
type Ruleset struct {
	Name    string
	Weights Weights
	Blocks  []BlockSpec

	CountSteps []CountStep
	MinDrills  int
	MaxDrills  int
	// SelectionMargin widens the seeded draw beyond the target count.
	SelectionMargin int

	NameSimilarity    float64
	PrimaryFocusRatio float64
	// DomainBlocks names the preferred block for a mandatory domain repair.
	DomainBlocks map[string]string

	RecencyPenalties []float64
	NoveltyBonus     float64
	ProgressionBonus float64
	// SkillBaseSize caps the skills carried from one block into the next.
	SkillBaseSize int

	// PreferVideo narrows a pool to drills with a video when at least
	// MinPool of them qualify.
	PreferVideo bool
	// PreferPhase narrows a pool to drills whose classified phase equals the
	// block phase when at least MinPool of them qualify.
	PreferPhase bool
	MinPool     int
}

// Names of the built-in rulesets.
const (
	RulesetPeriodized = "periodized"
	RulesetPhased     = "phased"
)

func evenRatios(r float64) map[models.PeriodPhase]float64 {
	return map[models.PeriodPhase]float64{
		models.PeriodPrep:      r,
		models.PeriodInseason:  r,
		models.PeriodTaper:     r,
		models.PeriodOffseason: r,
	}
}

func periodRatios(prep, inseason, taper, offseason float64) map[models.PeriodPhase]float64 {
	return map[models.PeriodPhase]float64{
		models.PeriodPrep:      prep,
		models.PeriodInseason:  inseason,
		models.PeriodTaper:     taper,
		models.PeriodOffseason: offseason,
	}
}

// PeriodizedRuleset is the six-block template whose split follows the
// season phase.
func PeriodizedRuleset() Ruleset {
	return Ruleset{
		Name:    RulesetPeriodized,
		Weights: DefaultWeights(),
		Blocks: []BlockSpec{
			{
				Name:              "Warmup",
				Kind:              KindWarmup,
				Phase:             PhaseActivation,
				PlanKey:           "warmup",
				Ratios:            periodRatios(0.12, 0.12, 0.12, 0.12),
				DefaultMinutes:    [2]int{5, 10},
				IntensityCap:      models.IntensityMedium,
				RejectHigh:        true,
				LowIntensityBonus: 0.2,
				Keywords:          []string{"warm", "activation", "mobility", "загрявка"},
			},
			{
				Name:           "Technique",
				Kind:           KindTechnique,
				Phase:          PhaseBuild,
				PlanKey:        "technique",
				Ratios:         periodRatios(0.31, 0.26, 0.26, 0.30),
				DefaultMinutes: [2]int{7, 14},
				IntensityCap:   models.IntensityHigh,
				Keywords:       []string{"tech", "passing", "setting", "service", "serve", "техника"},
			},
			{
				Name:           "Tactics",
				Kind:           KindTactics,
				Phase:          PhaseIntegration,
				PlanKey:        "tactics",
				Ratios:         periodRatios(0.18, 0.22, 0.22, 0.18),
				DefaultMinutes: [2]int{8, 16},
				IntensityCap:   models.IntensityHigh,
				Keywords:       []string{"tactic", "system", "rotation", "block-defense", "тактика"},
			},
			{
				Name:           "Game",
				Kind:           KindGame,
				Phase:          PhaseCompetition,
				PlanKey:        "game",
				Ratios:         periodRatios(0.18, 0.24, 0.24, 0.20),
				DefaultMinutes: [2]int{8, 16},
				IntensityCap:   models.IntensityHigh,
				Keywords:       []string{"game", "scrimmage", "6v6", "rally", "игра"},
			},
			{
				Name:           "Physical",
				Kind:           KindPhysical,
				PlanKey:        "physical",
				Ratios:         periodRatios(0.13, 0.08, 0.04, 0.08),
				DefaultMinutes: [2]int{6, 12},
				IntensityCap:   models.IntensityHigh,
				Keywords:       []string{"physical", "conditioning", "jump", "strength", "кондиция"},
			},
			{
				Name:              "Cooldown",
				Kind:              KindCooldown,
				PlanKey:           "cooldown",
				Ratios:            periodRatios(0.08, 0.08, 0.12, 0.12),
				DefaultMinutes:    [2]int{4, 8},
				IntensityCap:      models.IntensityMedium,
				RejectHigh:        true,
				LowIntensityBonus: 0.25,
				Keywords:          []string{"cool", "recovery", "stretch", "разтягане"},
			},
		},
		CountSteps:        []CountStep{{UpTo: 20, Drills: 2}, {UpTo: 36, Drills: 3}, {UpTo: 42, Drills: 4}},
		MinDrills:         2,
		MaxDrills:         5,
		SelectionMargin:   2,
		NameSimilarity:    0.65,
		PrimaryFocusRatio: 0.8,
		DomainBlocks: map[string]string{
			models.SkillReception: "Technique",
			models.SkillSetting:   "Technique",
			models.SkillServe:     "Technique",
			models.SkillAttack:    "Tactics",
			models.SkillBlock:     "Tactics",
			models.SkillDefense:   "Tactics",
		},
		RecencyPenalties: []float64{0.40, 0.25, 0.15},
		NoveltyBonus:     0.12,
		ProgressionBonus: 0.15,
		SkillBaseSize:    3,
		MinPool:          2,
	}
}

// PhasedRuleset is the four-phase template with a fixed split regardless of
// the season phase.
func PhasedRuleset() Ruleset {
	rs := PeriodizedRuleset()
	rs.Name = RulesetPhased
	rs.Blocks = []BlockSpec{
		{
			Name:              PhaseActivation,
			Kind:              KindWarmup,
			Phase:             PhaseActivation,
			PlanKey:           "warmup",
			Ratios:            evenRatios(0.18),
			DefaultMinutes:    [2]int{5, 10},
			IntensityCap:      models.IntensityMedium,
			RejectHigh:        true,
			LowIntensityBonus: 0.2,
			Keywords:          []string{"warm", "activation", "загрявка", "ловкост"},
		},
		{
			Name:           PhaseBuild,
			Kind:           KindTechnique,
			Phase:          PhaseBuild,
			PlanKey:        "technique",
			Ratios:         evenRatios(0.32),
			DefaultMinutes: [2]int{7, 14},
			IntensityCap:   models.IntensityHigh,
			Keywords:       []string{"tech", "main phase 1", "основна фаза 1", "техническа"},
		},
		{
			Name:           PhaseIntegration,
			Kind:           KindTactics,
			Phase:          PhaseIntegration,
			PlanKey:        "tactics",
			Ratios:         evenRatios(0.32),
			DefaultMinutes: [2]int{7, 14},
			IntensityCap:   models.IntensityHigh,
			Keywords:       []string{"tactic", "main phase 2", "основна фаза 2", "тактика"},
		},
		{
			Name:           PhaseCompetition,
			Kind:           KindGame,
			Phase:          PhaseCompetition,
			PlanKey:        "game",
			Ratios:         evenRatios(0.18),
			DefaultMinutes: [2]int{10, 16},
			IntensityCap:   models.IntensityHigh,
			Keywords:       []string{"game", "closing", "игрова ситуация", "затваряне"},
		},
	}
	rs.MaxDrills = 4
	rs.DomainBlocks = map[string]string{
		models.SkillReception: PhaseBuild,
		models.SkillSetting:   PhaseBuild,
		models.SkillServe:     PhaseBuild,
		models.SkillAttack:    PhaseIntegration,
		models.SkillBlock:     PhaseIntegration,
		models.SkillDefense:   PhaseIntegration,
	}
	rs.PreferVideo = true
	rs.PreferPhase = true
	return rs
}

var builtinRulesets = map[string]func() Ruleset{
	RulesetPeriodized: PeriodizedRuleset,
	RulesetPhased:     PhasedRuleset,
}

// LookupRuleset returns a built-in ruleset by name.
func LookupRuleset(name string) (Ruleset, bool) {
	fn, ok := builtinRulesets[name]
	if !ok {
		return Ruleset{}, false
	}
	return fn(), true
}

// RulesetNames lists the built-in rulesets in sorted order.
func RulesetNames() []string {
	names := make([]string, 0, len(builtinRulesets))
	for n := range builtinRulesets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate checks that a ruleset is usable.
func (rs Ruleset) Validate() error {
	if len(rs.Blocks) == 0 {
		return fmt.Errorf("ruleset %q: no blocks", rs.Name)
	}
	if s := rs.Weights.Sum(); s < 0.999 || s > 1.001 {
		return fmt.Errorf("ruleset %q: weights sum to %.3f, want 1", rs.Name, s)
	}
	if rs.MinDrills < 1 || rs.MaxDrills < rs.MinDrills {
		return fmt.Errorf("ruleset %q: invalid drill count bounds %d-%d", rs.Name, rs.MinDrills, rs.MaxDrills)
	}
	for _, period := range []models.PeriodPhase{models.PeriodPrep, models.PeriodInseason, models.PeriodTaper, models.PeriodOffseason} {
		sum := 0.0
		for _, b := range rs.Blocks {
			sum += b.Ratios[period]
		}
		if sum < 0.999 || sum > 1.001 {
			return fmt.Errorf("ruleset %q: %s ratios sum to %.3f, want 1", rs.Name, period, sum)
		}
	}
	return nil
}

// drillCount is the number of drills a block of the given minutes gets.
func (rs Ruleset) drillCount(minutes int) int {
	n := rs.MaxDrills
	for _, step := range rs.CountSteps {
		if minutes <= step.UpTo {
			n = step.Drills
			break
		}
	}
	n = max(rs.MinDrills, min(rs.MaxDrills, n))
	// Never more drills than minutes, so every drill gets at least one.
	return max(1, min(n, minutes))
}
