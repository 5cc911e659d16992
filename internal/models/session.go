package models

// GeneratedSession is the engine output: ordered blocks with per-drill
// minutes, plus checks describing which global rules held.
type GeneratedSession struct {
	Ruleset         string      `json:"ruleset"`
	TotalMinutes    int         `json:"totalMinutes"`
	PeriodPhase     PeriodPhase `json:"periodPhase"`
	IntensityTarget Intensity   `json:"intensityTarget"`
	RandomSeed      *int64      `json:"randomSeed,omitempty"`
	Focus           Focus       `json:"focus"`
	Blocks          []Block     `json:"blocks"`
	Checks          Checks      `json:"checks"`
	Load            LoadSummary `json:"load"`
}

// Focus echoes the canonical primary and secondary skills of the request.
type Focus struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary,omitempty"`
}

// Block is one time-boxed segment of the session.
type Block struct {
	BlockType     string          `json:"blockType"`
	Phase         string          `json:"phase"`
	PlanKey       string          `json:"planKey,omitempty"`
	TargetMinutes int             `json:"targetMinutes"`
	Relaxation    string          `json:"relaxation,omitempty"`
	Drills        []SelectedDrill `json:"drills"`
}

// Minutes sums the minutes allocated to the block's drills.
func (b Block) Minutes() int {
	total := 0
	for _, d := range b.Drills {
		total += d.Minutes
	}
	return total
}

// SelectedDrill is a drill placed into a block.
type SelectedDrill struct {
	DrillID        int            `json:"drillId"`
	Name           string         `json:"name"`
	Minutes        int            `json:"minutes"`
	Intensity      Intensity      `json:"intensity"`
	Category       string         `json:"category"`
	Score          float64        `json:"score"`
	ScoreBreakdown ScoreBreakdown `json:"scoreBreakdown"`
	Why            []string       `json:"why"`
	PrimaryMatch   bool           `json:"primaryMatch"`
	SecondaryMatch bool           `json:"secondaryMatch"`
	Skills         []string       `json:"skills"`
}

// ScoreBreakdown holds the factor values behind a score. Factors are in
// [0,1]; the adjustments are in score units.
type ScoreBreakdown struct {
	GoalMatch    float64 `json:"goalMatch"`
	PeriodFit    float64 `json:"periodFit"`
	IntensityFit float64 `json:"intensityFit"`
	CoverageGain float64 `json:"coverageGain"`
	Diversity    float64 `json:"diversity"`
	DurationFit  float64 `json:"durationFit"`
	PhaseMatch   float64 `json:"phaseMatch"`
	Base         float64 `json:"base"`
	Recency      float64 `json:"recencyPenalty"`
	Novelty      float64 `json:"noveltyBonus"`
	Progression  float64 `json:"progressionBonus"`
}

// Checks reports the global rules the session satisfies.
type Checks struct {
	MinutesOK              bool     `json:"minutesOk"`
	IntensityProgressionOK bool     `json:"intensityProgressionOk"`
	PrimaryFocusRatio      float64  `json:"primaryFocusRatio"`
	PrimaryFocusRatioOK    bool     `json:"primaryFocusRatioOk"`
	MustIncludeOK          bool     `json:"mustIncludeOk"`
	MissingDomains         []string `json:"missingDomains,omitempty"`
	Coverage               Coverage `json:"coverage"`
}

// Coverage counts how many selected drills realize each skill domain and
// game phase.
type Coverage struct {
	SkillDomains map[string]int `json:"skillDomains"`
	GamePhases   map[string]int `json:"gamePhases"`
}

// LoadSummary describes the physical load of the session.
type LoadSummary struct {
	AverageRPE         *float64 `json:"averageRpe,omitempty"`
	AverageDuration    float64  `json:"averageDurationMin"`
	AverageSkillCount  float64  `json:"averageSkillCount"`
	HighIntensityCount int      `json:"highIntensityCount"`
}

// DrillIDs lists selected drill ids in session order.
func (s GeneratedSession) DrillIDs() []int {
	var ids []int
	for _, b := range s.Blocks {
		for _, d := range b.Drills {
			ids = append(ids, d.DrillID)
		}
	}
	return ids
}

// DrillCount is the number of selected drills.
func (s GeneratedSession) DrillCount() int {
	n := 0
	for _, b := range s.Blocks {
		n += len(b.Drills)
	}
	return n
}
