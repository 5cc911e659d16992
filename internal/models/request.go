package models

import "encoding/json"

// PeriodPhase is the point in the season a session is planned for.
type PeriodPhase string

const (
	PeriodPrep      PeriodPhase = "prep"
	PeriodInseason  PeriodPhase = "inseason"
	PeriodTaper     PeriodPhase = "taper"
	PeriodOffseason PeriodPhase = "offseason"
)

// Valid reports whether p is one of the wire-stable values.
func (p PeriodPhase) Valid() bool {
	switch p {
	case PeriodPrep, PeriodInseason, PeriodTaper, PeriodOffseason:
		return true
	}
	return false
}

// AgeRange is an inclusive age interval.
type AgeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Constraints are the hard and soft knobs a coach can set on a request.
type Constraints struct {
	ExcludeDrillIDs         []int    `json:"excludeDrillIds"`
	MustIncludeDomains      []string `json:"mustIncludeDomains"`
	MaxHighIntensityInRow   int      `json:"maxHighIntensityInRow"`
	AvoidRepeatSameCategory bool     `json:"avoidRepeatSameCategory"`
}

// GenerationRequest is a validated request with every default applied.
type GenerationRequest struct {
	Age                     AgeRange    `json:"age"`
	Level                   string      `json:"level"`
	MainFocus               string      `json:"mainFocus"`
	SecondaryFocus          string      `json:"secondaryFocus,omitempty"`
	PeriodPhase             PeriodPhase `json:"periodPhase"`
	DurationTotalMin        int         `json:"durationTotalMin"`
	PlayersCount            int         `json:"playersCount"`
	EquipmentAvailable      []string    `json:"equipmentAvailable"`
	FocusSkills             []string    `json:"focusSkills"`
	FocusDomains            []string    `json:"focusDomains"`
	FocusGamePhases         []string    `json:"focusGamePhases"`
	IntensityTarget         Intensity   `json:"intensityTarget"`
	Constraints             Constraints `json:"constraints"`
	RandomSeed              *int64      `json:"randomSeed,omitempty"`
	RecentDrillIDsBySession [][]int     `json:"recentDrillIdsBySession,omitempty"`
	RecentDrillIDs          []int       `json:"recentDrillIds,omitempty"`
	Ruleset                 string      `json:"ruleset,omitempty"`
}

// RequestPayload is the tolerant wire form of a GenerationRequest. Loosely
// typed fields are resolved by the generator's request parser, which reports
// every invalid field at once.
type RequestPayload struct {
	Age                     json.RawMessage     `json:"age"`
	AgeMin                  json.RawMessage     `json:"ageMin"`
	AgeMax                  json.RawMessage     `json:"ageMax"`
	Level                   string              `json:"level"`
	MainFocus               string              `json:"mainFocus"`
	SecondaryFocus          string              `json:"secondaryFocus"`
	PeriodPhase             *string             `json:"periodPhase"`
	DurationTotalMin        *int                `json:"durationTotalMin"`
	PlayersCount            *int                `json:"playersCount"`
	EquipmentAvailable      []string            `json:"equipmentAvailable"`
	FocusSkills             []string            `json:"focusSkills"`
	FocusDomains            []string            `json:"focusDomains"`
	FocusGamePhases         []string            `json:"focusGamePhases"`
	IntensityTarget         *string             `json:"intensityTarget"`
	Constraints             *ConstraintsPayload `json:"constraints"`
	RandomSeed              *int64              `json:"randomSeed"`
	RecentDrillIDsBySession []json.RawMessage   `json:"recentDrillIdsBySession"`
	RecentDrillIDs          []any               `json:"recentDrillIds"`
	Ruleset                 string              `json:"ruleset"`
}

// ConstraintsPayload is the wire form of Constraints.
type ConstraintsPayload struct {
	ExcludeDrillIDs         []any    `json:"excludeDrillIds"`
	MustIncludeDomains      []string `json:"mustIncludeDomains"`
	MaxHighIntensityInRow   *int     `json:"maxHighIntensityInRow"`
	AvoidRepeatSameCategory *bool    `json:"avoidRepeatSameCategory"`
}
