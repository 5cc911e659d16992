package generator

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/claude/volleyplan/internal/models"
)

// candidate is a drill scored for one block.
type candidate struct {
	drill     models.Drill
	skills    []string
	score     float64
	breakdown models.ScoreBreakdown
	why       []string
	primary   bool
	secondary bool
}

// scorer computes candidate scores for one request.
type scorer struct {
	rs           Ruleset
	req          models.GenerationRequest
	recency      map[int]int
	focusDomains map[string]bool
	focusPhases  map[string]bool
	focusSkills  map[string]bool
	mustDomains  []string
}

func newScorer(req models.GenerationRequest, rs Ruleset) *scorer {
	sc := &scorer{
		rs:           rs,
		req:          req,
		recency:      RecencyRanks(req.RecentDrillIDsBySession, req.RecentDrillIDs),
		focusDomains: setOf(uniqueKeys(req.FocusDomains, DomainKey)),
		focusPhases:  setOf(uniqueKeys(req.FocusGamePhases, PhaseKey)),
		focusSkills:  setOf(SkillsFromTags(req.FocusSkills)),
		mustDomains:  uniqueKeys(req.Constraints.MustIncludeDomains, DomainKey),
	}
	if req.MainFocus != "" {
		sc.focusSkills[req.MainFocus] = true
	}
	if req.SecondaryFocus != "" {
		sc.focusSkills[req.SecondaryFocus] = true
	}
	return sc
}

// RecencyRanks maps drill ids to how many sessions ago they were used. The
// first bucket is rank 1; ids only in the flat list count as rank 3. The
// most recent rank wins.
func RecencyRanks(buckets [][]int, flat []int) map[int]int {
	ranks := make(map[int]int)
	for i, bucket := range buckets {
		if i >= recentBuckets {
			break
		}
		for _, id := range bucket {
			if _, seen := ranks[id]; !seen {
				ranks[id] = i + 1
			}
		}
	}
	for _, id := range flat {
		if _, seen := ranks[id]; !seen {
			ranks[id] = recentBuckets
		}
	}
	return ranks
}

func countIn(keys []string, set map[string]bool) []string {
	var hits []string
	for _, k := range keys {
		if set[k] {
			hits = append(hits, k)
		}
	}
	return hits
}

// durationBounds is the natural duration range of a drill, completed with
// the block defaults where the drill is silent.
func durationBounds(d models.Drill, b BlockSpec) (int, int) {
	lo, hi := b.DefaultMinutes[0], b.DefaultMinutes[1]
	switch {
	case d.DurationMin != nil && d.DurationMax != nil:
		lo, hi = *d.DurationMin, *d.DurationMax
	case d.DurationMin != nil:
		lo = *d.DurationMin
		hi = max(lo, hi)
	case d.DurationMax != nil:
		hi = *d.DurationMax
		lo = min(lo, hi)
	}
	return max(1, lo), max(1, lo, hi)
}

func (sc *scorer) periodFit(d models.Drill, b BlockSpec) float64 {
	fit := 0.6
	switch sc.req.PeriodPhase {
	case models.PeriodPrep:
		if b.Kind == KindTechnique || b.Kind == KindPhysical {
			fit += 0.25
		}
		if b.Kind == KindGame {
			fit -= 0.1
		}
	case models.PeriodInseason:
		if b.Kind == KindGame || b.Kind == KindTactics {
			fit += 0.2
		}
	case models.PeriodTaper:
		if d.Intensity == models.IntensityHigh {
			fit -= 0.25
		}
		if b.Kind == KindPhysical {
			fit -= 0.2
		}
	case models.PeriodOffseason:
		if d.Intensity == models.IntensityLow {
			fit += 0.2
		}
		cat := strings.ToLower(d.Category)
		if strings.Contains(cat, "fun") || strings.Contains(cat, "game") || strings.Contains(cat, "игра") {
			fit += 0.1
		}
	}
	return clamp01(fit)
}

// score rates a drill for a block given what the session already holds.
func (sc *scorer) score(d models.Drill, pb plannedBlock, st *selectionState) candidate {
	b := pb.Spec
	skills := DrillSkills(d)
	c := candidate{drill: d, skills: skills}
	c.primary = sc.req.MainFocus != "" && containsString(skills, sc.req.MainFocus)
	c.secondary = sc.req.SecondaryFocus != "" && containsString(skills, sc.req.SecondaryFocus)

	text := d.Text()
	keywordMatch := 0.25
	for _, kw := range b.Keywords {
		if strings.Contains(text, kw) {
			keywordMatch += 0.15
		}
	}
	blockMatch := clamp01(keywordMatch)
	var phaseMatch float64
	if b.Phase != "" {
		phaseMatch = PhaseMatch(d, b.Phase)
		blockMatch = max(blockMatch, 0.6*phaseMatch+0.4*PhaseConstraintFit(d, b.Phase, skills))
	}

	domains := drillDomainKeys(d)
	phases := drillPhaseKeys(d)
	domainHits := countIn(domains, sc.focusDomains)
	phaseHits := countIn(phases, sc.focusPhases)
	skillHits := countIn(skills, sc.focusSkills)
	goal := clamp01(blockMatch*0.5 +
		float64(min(len(domainHits), 2))*0.2 +
		float64(min(len(phaseHits), 2))*0.2 +
		float64(min(len(skillHits), 2))*0.1)

	intensityFit := 1 - math.Abs(float64(sc.req.IntensityTarget.Tier()-d.Intensity.Tier()))*0.35
	if d.Intensity == models.IntensityLow {
		intensityFit += b.LowIntensityBonus
	}
	intensityFit = clamp01(intensityFit)

	periodFit := sc.periodFit(d, b)

	var newDomains, newPhases, mustHits []string
	for _, k := range domains {
		if !st.domains[k] {
			newDomains = append(newDomains, k)
		}
	}
	for _, k := range phases {
		if !st.phases[k] {
			newPhases = append(newPhases, k)
		}
	}
	for _, k := range sc.mustDomains {
		if !st.domains[k] && containsString(domains, k) {
			mustHits = append(mustHits, k)
		}
	}
	coverage := clamp01(float64(min(len(newDomains), 3))*0.22 +
		float64(min(len(newPhases), 3))*0.14 +
		float64(min(len(mustHits), 2))*0.28)

	diversity := 1.0
	if st.avoidRepeatCategory && st.recentCategory(d.Category) {
		diversity -= 0.35
	}
	if overlaps(lowerTags(d.TechnicalFocus), lastN(st.techTags, tagWindow)) {
		diversity -= 0.18
	}
	if overlaps(lowerTags(d.TacticalFocus), lastN(st.tactTags, tagWindow)) {
		diversity -= 0.18
	}
	if overlaps(lowerTags(d.ZoneFocus), lastN(st.zoneTags, tagWindow)) {
		diversity -= 0.1
	}
	if st.used[d.ID] {
		diversity -= 0.8
	}
	if !d.PlayersKnown {
		diversity -= 0.08
	}
	diversity = clamp01(diversity)

	lo, hi := durationBounds(d, b)
	ideal := max(5, float64(pb.Minutes)/3)
	durationFit := 1.0
	switch {
	case ideal < float64(lo):
		durationFit = 1 - (float64(lo)-ideal)/float64(lo)
	case ideal > float64(hi):
		durationFit = 1 - (ideal-float64(hi))/ideal
	}
	if !d.EquipmentKnown {
		durationFit -= 0.05
	}
	durationFit = clamp01(durationFit)

	w := sc.rs.Weights
	base := goal*w.GoalMatch + periodFit*w.PeriodFit + intensityFit*w.IntensityFit +
		coverage*w.CoverageGain + diversity*w.Diversity + durationFit*w.DurationFit

	bd := models.ScoreBreakdown{
		GoalMatch:    round(goal, 4),
		PeriodFit:    round(periodFit, 4),
		IntensityFit: round(intensityFit, 4),
		CoverageGain: round(coverage, 4),
		Diversity:    round(diversity, 4),
		DurationFit:  round(durationFit, 4),
		PhaseMatch:   round(phaseMatch, 4),
		Base:         round(base, 6),
	}

	adjust := 0.0
	if rank, ok := sc.recency[d.ID]; ok {
		bd.Recency = sc.recencyPenalty(rank)
		adjust -= bd.Recency
	} else {
		bd.Novelty = sc.rs.NoveltyBonus
		adjust += bd.Novelty
	}
	if isStrictSuperset(skills, st.skillBase) {
		bd.Progression = sc.rs.ProgressionBonus
		adjust += bd.Progression
	}

	c.breakdown = bd
	c.score = round(max(0, base+adjust), 6)

	if len(domainHits) > 0 {
		c.why = append(c.why, "Matches focus domains: "+strings.Join(domainHits, ", "))
	}
	if len(phaseHits) > 0 {
		c.why = append(c.why, "Matches focus game phases: "+strings.Join(phaseHits, ", "))
	}
	if c.primary {
		c.why = append(c.why, "Trains the primary focus "+sc.req.MainFocus+".")
	} else if c.secondary {
		c.why = append(c.why, "Trains the secondary focus "+sc.req.SecondaryFocus+".")
	}
	if len(mustHits) > 0 {
		c.why = append(c.why, "Covers required domains: "+strings.Join(mustHits, ", "))
	}
	c.why = append(c.why, fmt.Sprintf("Fits the %s block at %s intensity.", b.Name, d.Intensity))
	if periodFit >= 0.75 {
		c.why = append(c.why, fmt.Sprintf("Suits the %s period.", sc.req.PeriodPhase))
	}
	if len(newDomains) > 0 {
		sorted := append([]string(nil), newDomains...)
		sort.Strings(sorted)
		c.why = append(c.why, "Adds domain coverage: "+strings.Join(sorted, ", "))
	}
	if bd.Progression > 0 {
		c.why = append(c.why, "Builds on the skills of the previous block.")
	}
	if bd.Recency > 0 {
		c.why = append(c.why, fmt.Sprintf("Used %d session(s) ago.", sc.recency[d.ID]))
	}
	return c
}

func (sc *scorer) recencyPenalty(rank int) float64 {
	p := sc.rs.RecencyPenalties
	if len(p) == 0 {
		return 0
	}
	return p[min(rank, len(p))-1]
}

// isStrictSuperset reports whether skills holds every base skill and more.
func isStrictSuperset(skills, base []string) bool {
	if len(base) == 0 || len(skills) <= len(base) {
		return false
	}
	for _, b := range base {
		if !containsString(skills, b) {
			return false
		}
	}
	return true
}

func containsString(items []string, s string) bool {
	for _, it := range items {
		if it == s {
			return true
		}
	}
	return false
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// sortCandidates orders by score, then phase/goal match, then lowest id.
func sortCandidates(cs []candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.breakdown.PhaseMatch != b.breakdown.PhaseMatch {
			return a.breakdown.PhaseMatch > b.breakdown.PhaseMatch
		}
		if a.breakdown.GoalMatch != b.breakdown.GoalMatch {
			return a.breakdown.GoalMatch > b.breakdown.GoalMatch
		}
		return a.drill.ID < b.drill.ID
	})
}
