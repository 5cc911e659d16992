package generator

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/claude/volleyplan/internal/models"
)

// TestClassifyPhase covers category keywords, the text pass and the default.
func TestClassifyPhase(t *testing.T) {
	tests := []struct {
		name  string
		drill models.Drill
		want  string
	}{
		{"warm-up category", models.Drill{Category: "Warm-up"}, PhaseActivation},
		{"bulgarian warm-up", models.Drill{Category: "Загрявка"}, PhaseActivation},
		{"technical prep", models.Drill{Category: "Technical preparation"}, PhaseBuild},
		{"tactics", models.Drill{Category: "Tactics"}, PhaseIntegration},
		{"closing", models.Drill{Category: "Closing phase"}, PhaseCompetition},
		{"points language", models.Drill{Goal: "Play a game to 25 points"}, PhaseCompetition},
		{"pairs language", models.Drill{Description: "Work in pairs along the net"}, PhaseBuild},
		{"small-sided", models.Drill{Description: "3v3 on a narrow court"}, PhaseIntegration},
		{"no signal", models.Drill{Name: "Mystery"}, PhaseIntegration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyPhase(tt.drill); got != tt.want {
				t.Errorf("ClassifyPhase = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestGameContext verifies the playing format is read from drill text.
func TestGameContext(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"first to 15 points wins", ContextPoints},
		{"full 6v6 wash drill", Context6v6},
		{"4v4 cross court", ContextSmallGroup},
		{"partner passing", ContextPairs},
		{"solo wall work", ContextIndividual},
		{"rotating stations", ContextSmallGroup},
	}
	for _, tt := range tests {
		if got := GameContext(models.Drill{Description: tt.text}); got != tt.want {
			t.Errorf("GameContext(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

// TestPhaseMatch verifies category weights and text bonuses stay in [0,1].
func TestPhaseMatch(t *testing.T) {
	d := models.Drill{Category: "Closing", Goal: "6v6 scrimmage to 25 points"}
	if got := PhaseMatch(d, PhaseCompetition); got != 1 {
		t.Errorf("PhaseMatch competition = %v, want 1", got)
	}
	if got := PhaseMatch(d, PhaseActivation); got != 0 {
		t.Errorf("PhaseMatch activation = %v, want 0", got)
	}
}

// TestPhaseConstraintFit verifies the skill-count, context and duration
// parts add up.
func TestPhaseConstraintFit(t *testing.T) {
	d := models.Drill{Description: "partner passing", DurationMin: intp(6), DurationMax: intp(8)}
	if got := PhaseConstraintFit(d, PhaseActivation, []string{models.SkillReception}); got != 1 {
		t.Errorf("activation fit = %v, want 1", got)
	}
	if got := PhaseConstraintFit(d, PhaseCompetition, []string{models.SkillReception}); got != 0 {
		t.Errorf("competition fit = %v, want 0", got)
	}
}

// TestDrillSkills verifies tags from every focus field map to canonical
// skills in canonical order.
func TestDrillSkills(t *testing.T) {
	d := models.Drill{
		SkillDomains:   []string{"Attack"},
		TechnicalFocus: []string{"float serve", "forearm passing"},
		TacticalFocus:  []string{"read block"},
	}
	want := []string{models.SkillReception, models.SkillServe, models.SkillAttack, models.SkillBlock}
	if diff := cmp.Diff(want, DrillSkills(d)); diff != "" {
		t.Errorf("DrillSkills mismatch (-want +got):\n%s", diff)
	}
}

// TestNameTokens verifies similarity ignores short words but keeps numbers.
func TestNameTokens(t *testing.T) {
	a := nameTokens("Serve to zone 1")
	b := nameTokens("Serve to zone 5")
	if got := jaccard(a, b); got >= 0.65 {
		t.Errorf("jaccard(zone 1, zone 5) = %v, want < 0.65", got)
	}
	c := nameTokens("Serve-receive: 3 passers")
	d := nameTokens("serve receive 3 passers")
	if got := jaccard(c, d); got != 1 {
		t.Errorf("jaccard of punctuation variants = %v, want 1", got)
	}
}
