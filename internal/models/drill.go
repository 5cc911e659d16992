package models

import "strings"

// Intensity is the ordinal effort tier of a drill or a request target.
type Intensity string

const (
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
)

// Tier returns the numeric level: low=1, medium=2, high=3.
func (i Intensity) Tier() int {
	switch i {
	case IntensityHigh:
		return 3
	case IntensityMedium:
		return 2
	default:
		return 1
	}
}

// Valid reports whether i is one of the wire-stable values.
func (i Intensity) Valid() bool {
	return i == IntensityLow || i == IntensityMedium || i == IntensityHigh
}

// IntensityFromTier maps a numeric tier back to its label, clamping to [1,3].
func IntensityFromTier(tier int) Intensity {
	switch {
	case tier >= 3:
		return IntensityHigh
	case tier == 2:
		return IntensityMedium
	default:
		return IntensityLow
	}
}

// NormalizeIntensity maps free text to a tier label. Anything unrecognized is low.
func NormalizeIntensity(raw string) Intensity {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(s, "high"), strings.Contains(s, "hard"), strings.Contains(s, "intense"),
		strings.Contains(s, "висок"):
		return IntensityHigh
	case strings.Contains(s, "medium"), strings.Contains(s, "mid"), strings.Contains(s, "moderate"),
		strings.Contains(s, "средн"):
		return IntensityMedium
	default:
		return IntensityLow
	}
}

// Drill is the canonical catalog entry every pipeline stage works with.
// Values are produced by the catalog normalizer and never mutated afterwards.
type Drill struct {
	ID             int       `json:"id"`
	Name           string    `json:"name"`
	Category       string    `json:"category"`
	Level          string    `json:"level"`
	AgeMin         *int      `json:"ageMin,omitempty"`
	AgeMax         *int      `json:"ageMax,omitempty"`
	SkillFocus     []string  `json:"skillFocus"`
	SkillDomains   []string  `json:"skillDomains"`
	GamePhases     []string  `json:"gamePhases"`
	TacticalFocus  []string  `json:"tacticalFocus"`
	TechnicalFocus []string  `json:"technicalFocus"`
	ZoneFocus      []string  `json:"zoneFocus"`
	PositionFocus  []string  `json:"positionFocus"`
	Intensity      Intensity `json:"intensity"`
	RPE            *int      `json:"rpe,omitempty"`
	DurationMin    *int      `json:"durationMin,omitempty"`
	DurationMax    *int      `json:"durationMax,omitempty"`

	// Equipment is empty and EquipmentKnown false when the record says
	// nothing usable about equipment.
	Equipment      []string `json:"equipment"`
	EquipmentKnown bool     `json:"equipmentKnown"`

	PlayersMin   *int `json:"playersMin,omitempty"`
	PlayersMax   *int `json:"playersMax,omitempty"`
	PlayersKnown bool `json:"playersKnown"`

	TypeOfDrill  string   `json:"typeOfDrill,omitempty"`
	TrainingGoal string   `json:"trainingGoal,omitempty"`
	Goal         string   `json:"goal,omitempty"`
	Description  string   `json:"description,omitempty"`
	VideoURLs    []string `json:"videoUrls,omitempty"`
}

// Text joins the descriptive fields used by keyword heuristics, lower-cased.
func (d Drill) Text() string {
	parts := []string{d.Name, d.Category, d.TypeOfDrill, d.TrainingGoal, d.Goal, d.Description}
	parts = append(parts, d.SkillDomains...)
	parts = append(parts, d.TechnicalFocus...)
	parts = append(parts, d.TacticalFocus...)
	return strings.ToLower(strings.Join(parts, " "))
}
