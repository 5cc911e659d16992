package generator

import (
	"strings"
	"unicode"

	"github.com/claude/volleyplan/internal/catalog"
	"github.com/claude/volleyplan/internal/models"
)

// Session phases a drill can be classified into, in session order.
const (
	PhaseActivation  = "Activation"
	PhaseBuild       = "Build"
	PhaseIntegration = "Integration"
	PhaseCompetition = "Competition"
)

var Phases = []string{PhaseActivation, PhaseBuild, PhaseIntegration, PhaseCompetition}

// Game contexts inferred from drill text.
const (
	ContextPoints     = "points"
	Context6v6        = "6v6"
	ContextSmallGroup = "small group"
	ContextPairs      = "pairs"
	ContextIndividual = "individual"
)

type phaseWeight struct {
	phase  string
	weight float64
}

// categoryPhaseKeywords maps category keywords to the phases they suggest.
// Each keyword may raise several phases; the maximum weight per phase wins.
var categoryPhaseKeywords = []struct {
	keywords []string
	weights  []phaseWeight
}{
	{[]string{"warm", "activation", "mobility", "загрявка", "ловкост"}, []phaseWeight{{PhaseActivation, 0.9}}},
	{[]string{"main phase 1", "основна фаза 1"}, []phaseWeight{{PhaseBuild, 0.8}}},
	{[]string{"main phase 2", "основна фаза 2"}, []phaseWeight{{PhaseIntegration, 0.7}}},
	{[]string{"game situation", "игрова ситуация"}, []phaseWeight{{PhaseIntegration, 0.6}, {PhaseCompetition, 0.4}}},
	{[]string{"closing", "затваряне", "scrimmage"}, []phaseWeight{{PhaseCompetition, 0.9}}},
	{[]string{"technique", "technical", "техническа подготовка", "техника"}, []phaseWeight{{PhaseBuild, 0.6}, {PhaseIntegration, 0.4}}},
	{[]string{"tactic", "тактика"}, []phaseWeight{{PhaseIntegration, 0.7}, {PhaseCompetition, 0.3}}},
}

var (
	competitiveKeywords = []string{"points", "sets", "score", "game to", "match", "competition",
		"точки", "гейм", "сет", "резултат", "състезание"}
	fullGameKeywords   = []string{"6v6", "6 v 6", "6 on 6", "6 срещу 6"}
	smallGameKeywords  = []string{"3v3", "4v4", "2v2", "small-sided", "small sided", "мини игра", "малка игра"}
	pairsKeywords      = []string{"pairs", "partner", "по двойки", "двойки"}
	individualKeywords = []string{"individual", "solo", "индивидуално"}
	controlKeywords    = []string{"control", "контрол"}
)

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// PhaseWeightsFromCategory scores each session phase from the category alone.
func PhaseWeightsFromCategory(category string) map[string]float64 {
	cat := strings.ToLower(category)
	weights := make(map[string]float64, len(Phases))
	for _, p := range Phases {
		weights[p] = 0
	}
	for _, entry := range categoryPhaseKeywords {
		if !containsAny(cat, entry.keywords) {
			continue
		}
		for _, w := range entry.weights {
			weights[w.phase] = max(weights[w.phase], w.weight)
		}
	}
	return weights
}

func goalText(d models.Drill) string {
	return strings.ToLower(strings.Join([]string{d.Goal, d.Description, d.TrainingGoal}, " "))
}

// PhaseMatch scores in [0,1] how well a drill fits a session phase, from its
// category plus game-format language in its goal and description.
func PhaseMatch(d models.Drill, phase string) float64 {
	weights := PhaseWeightsFromCategory(d.Category)
	score := weights[phase]
	text := goalText(d)

	if phase == PhaseCompetition && containsAny(text, competitiveKeywords) {
		score += 0.2
	}
	if containsAny(text, fullGameKeywords) && (phase == PhaseIntegration || phase == PhaseCompetition) {
		score += 0.15
	}
	if containsAny(text, smallGameKeywords) && phase == PhaseIntegration {
		score += 0.15
	}
	if containsAny(text, pairsKeywords) || containsAny(text, individualKeywords) || containsAny(text, controlKeywords) {
		preferred := PhaseActivation
		if weights[PhaseBuild] >= weights[PhaseActivation] {
			preferred = PhaseBuild
		}
		if phase == preferred {
			score += 0.15
		}
	}
	return clamp01(score)
}

// ClassifyPhase infers the single session phase a drill is meant for.
// Category keywords decide first; goal and description language break
// ambiguity. Drills with no signal default to Integration.
func ClassifyPhase(d models.Drill) string {
	weights := PhaseWeightsFromCategory(d.Category)
	best, bestWeight := "", 0.0
	tied := false
	for _, p := range Phases {
		switch w := weights[p]; {
		case w > bestWeight:
			best, bestWeight, tied = p, w, false
		case w > 0 && w == bestWeight:
			tied = true
		}
	}
	if best != "" && !tied {
		return best
	}

	text := goalText(d) + " " + strings.ToLower(d.Name+" "+d.TypeOfDrill)
	switch {
	case containsAny(text, competitiveKeywords), containsAny(text, fullGameKeywords):
		return PhaseCompetition
	case containsAny(text, pairsKeywords), containsAny(text, individualKeywords):
		return PhaseBuild
	case containsAny(text, smallGameKeywords):
		return PhaseIntegration
	}
	if best != "" {
		return best
	}
	return PhaseIntegration
}

// GameContext infers the playing format of a drill.
func GameContext(d models.Drill) string {
	text := strings.ToLower(strings.Join([]string{d.Name, d.Goal, d.Description, d.TypeOfDrill,
		strings.Join(d.GamePhases, " ")}, " "))
	switch {
	case containsAny(text, competitiveKeywords):
		return ContextPoints
	case containsAny(text, fullGameKeywords):
		return Context6v6
	case containsAny(text, smallGameKeywords):
		return ContextSmallGroup
	case containsAny(text, pairsKeywords):
		return ContextPairs
	case containsAny(text, individualKeywords):
		return ContextIndividual
	}
	return ContextSmallGroup
}

var phaseContexts = map[string][]string{
	PhaseActivation:  {ContextIndividual, ContextPairs},
	PhaseBuild:       {ContextPairs, ContextSmallGroup},
	PhaseIntegration: {ContextSmallGroup, Context6v6},
	PhaseCompetition: {Context6v6, ContextPoints},
}

// PhaseConstraintFit scores in [0,1] how well a drill's skill count, game
// context and natural duration suit a session phase.
func PhaseConstraintFit(d models.Drill, phase string, skills []string) float64 {
	n := len(skills)
	var skillOK bool
	switch phase {
	case PhaseActivation:
		skillOK = n == 1
	case PhaseBuild:
		skillOK = n == 1 || n == 2
	case PhaseIntegration:
		skillOK = n == 2 || n == 3
	default:
		skillOK = n >= 3
	}

	contextOK := false
	ctx := GameContext(d)
	for _, c := range phaseContexts[phase] {
		if c == ctx {
			contextOK = true
		}
	}

	durationOK := true
	if mid, ok := durationMidpoint(d); ok {
		switch phase {
		case PhaseActivation:
			durationOK = mid <= 8
		case PhaseBuild, PhaseIntegration:
			durationOK = mid >= 7 && mid <= 14
		default:
			durationOK = mid >= 10
		}
	}

	fit := 0.0
	if skillOK {
		fit += 0.4
	}
	if contextOK {
		fit += 0.4
	}
	if durationOK {
		fit += 0.2
	}
	return fit
}

func durationMidpoint(d models.Drill) (float64, bool) {
	switch {
	case d.DurationMin != nil && d.DurationMax != nil:
		return float64(*d.DurationMin+*d.DurationMax) / 2, true
	case d.DurationMin != nil:
		return float64(*d.DurationMin), true
	case d.DurationMax != nil:
		return float64(*d.DurationMax), true
	}
	return 0, false
}

// SkillsFromTags maps tag lists to canonical skills. Each tag is matched as a
// whole first, then word by word. The result is in canonical order.
func SkillsFromTags(tags ...[]string) []string {
	found := make(map[string]bool)
	for _, list := range tags {
		for _, tag := range list {
			if skill, ok := models.NormalizeSkill(tag); ok {
				found[skill] = true
				continue
			}
			for _, word := range strings.Fields(tag) {
				if skill, ok := models.NormalizeSkill(word); ok {
					found[skill] = true
				}
			}
		}
	}
	out := make([]string, 0, len(found))
	for _, s := range models.CanonicalSkills {
		if found[s] {
			out = append(out, s)
		}
	}
	return out
}

// DrillSkills returns the canonical skills a drill trains.
func DrillSkills(d models.Drill) []string {
	return SkillsFromTags(d.SkillFocus, d.SkillDomains, d.TechnicalFocus, d.TacticalFocus)
}

// DomainKey is the coverage key for a skill-domain tag: the canonical skill
// when the tag names one, else the lower-cased tag.
func DomainKey(tag string) string {
	if skill, ok := models.NormalizeSkill(tag); ok {
		return skill
	}
	return strings.ToLower(strings.TrimSpace(tag))
}

// PhaseKey is the coverage key for a game-phase tag.
func PhaseKey(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

func drillDomainKeys(d models.Drill) []string {
	return uniqueKeys(d.SkillDomains, DomainKey)
}

func drillPhaseKeys(d models.Drill) []string {
	return uniqueKeys(d.GamePhases, PhaseKey)
}

func uniqueKeys(tags []string, key func(string) string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, t := range tags {
		k := key(t)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

func lowerTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// nameTokens splits a name into lower-case words. Words of one or two letters
// are ignored; numbers are kept so "Drill 1" and "Drill 2" stay distinct.
func nameTokens(name string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		hasDigit := strings.IndexFunc(w, unicode.IsDigit) >= 0
		if len([]rune(w)) > 2 || hasDigit {
			out[w] = true
		}
	}
	return out
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func setOf(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, s := range items {
		out[s] = true
	}
	return out
}

// hasVideo reports whether the drill links at least one usable video.
func hasVideo(d models.Drill) bool {
	for _, u := range d.VideoURLs {
		if !catalog.IsUnknown(u) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	return min(1, max(0, v))
}
