package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Training statuses.
const (
	TrainingDraft   = "draft"
	TrainingPlanned = "planned"
)

// Training is a generated session saved for a coach.
type Training struct {
	ID               uuid.UUID         `json:"id"`
	CoachID          int               `json:"coachId"`
	Title            string            `json:"title"`
	Status           string            `json:"status"`
	PeriodPhase      PeriodPhase       `json:"periodPhase"`
	Ruleset          string            `json:"ruleset"`
	Request          json.RawMessage   `json:"request"`
	Session          *GeneratedSession `json:"session"`
	Plan             Plan              `json:"plan"`
	SelectedDrillIDs []int             `json:"selectedDrillIds"`
	ScoreSummary     ScoreSummary      `json:"scoreSummary"`
	ModelVersion     string            `json:"modelVersion"`
	CreatedAt        time.Time         `json:"createdAt"`
}

// Plan is the compact form of a session: plan key to drill ids, in block
// order within each key.
type Plan map[string][]int

// ScoreSummary condenses the session checks for listing and reporting.
type ScoreSummary struct {
	AverageScore           float64 `json:"averageScore"`
	MinutesOK              bool    `json:"minutesOk"`
	IntensityProgressionOK bool    `json:"intensityProgressionOk"`
	PrimaryFocusRatioOK    bool    `json:"primaryFocusRatioOk"`
	MustIncludeOK          bool    `json:"mustIncludeOk"`
}
