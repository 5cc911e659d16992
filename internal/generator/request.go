package generator

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/claude/volleyplan/internal/catalog"
	"github.com/claude/volleyplan/internal/models"
)

// Defaults fill request fields the caller left out.
type Defaults struct {
	PeriodPhase           models.PeriodPhase
	IntensityTarget       models.Intensity
	DurationTotalMin      int
	MaxHighIntensityInRow int
	Ruleset               string
}

// DefaultDefaults returns the documented request defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		PeriodPhase:           models.PeriodInseason,
		IntensityTarget:       models.IntensityMedium,
		DurationTotalMin:      90,
		MaxHighIntensityInRow: 2,
		Ruleset:               RulesetPeriodized,
	}
}

const (
	defaultAgeMin = 0
	defaultAgeMax = 99
	// recentBuckets is how many past sessions feed the anti-repeat penalty.
	recentBuckets = 3
)

var (
	ageRangeRe  = regexp.MustCompile(`^\s*(\d+)\s*(?:-|–|to|\.\.)\s*(\d+)\s*$`)
	ageSingleRe = regexp.MustCompile(`^\s*(\d+)\s*$`)
	ageLevelRe  = regexp.MustCompile(`(?i)^\s*[uю]\s*(\d+)\s*$`)
)

var periodAliases = map[string]models.PeriodPhase{
	"prep":        models.PeriodPrep,
	"preparation": models.PeriodPrep,
	"preseason":   models.PeriodPrep,
	"pre-season":  models.PeriodPrep,
	"inseason":    models.PeriodInseason,
	"in-season":   models.PeriodInseason,
	"in season":   models.PeriodInseason,
	"taper":       models.PeriodTaper,
	"offseason":   models.PeriodOffseason,
	"off-season":  models.PeriodOffseason,
	"off season":  models.PeriodOffseason,
}

var anyLevels = map[string]bool{
	"":            true,
	"any":         true,
	"all":         true,
	"all levels":  true,
	"всички":      true,
	"всички нива": true,
}

// IsAnyLevel reports whether a level string places no level restriction.
func IsAnyLevel(level string) bool {
	return anyLevels[strings.ToLower(strings.TrimSpace(level))] || catalog.IsUnknown(level)
}

// ParseRequest decodes a JSON request body and applies defaults. Every
// invalid field is reported in a single *InvalidRequestError.
func ParseRequest(data []byte, defaults Defaults) (models.GenerationRequest, error) {
	var payload models.RequestPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		var p problems
		p.add("body", "malformed JSON: %v", err)
		return models.GenerationRequest{}, p.err()
	}
	return NormalizeRequest(payload, defaults)
}

// NormalizeRequest resolves a decoded payload into a GenerationRequest.
func NormalizeRequest(payload models.RequestPayload, defaults Defaults) (models.GenerationRequest, error) {
	var p problems
	req := models.GenerationRequest{
		Level:              strings.TrimSpace(payload.Level),
		EquipmentAvailable: lowerTags(payload.EquipmentAvailable),
		FocusSkills:        trimTags(payload.FocusSkills),
		FocusDomains:       trimTags(payload.FocusDomains),
		FocusGamePhases:    trimTags(payload.FocusGamePhases),
		RandomSeed:         payload.RandomSeed,
		RecentDrillIDs:     coerceIDs(payload.RecentDrillIDs),
	}

	age, ok := parseAge(payload, req.Level)
	if !ok {
		p.add("age", "cannot parse age %s", strings.TrimSpace(string(payload.Age)))
	}
	req.Age = age

	req.PeriodPhase = defaults.PeriodPhase
	if payload.PeriodPhase != nil {
		phase, ok := periodAliases[strings.ToLower(strings.TrimSpace(*payload.PeriodPhase))]
		if !ok {
			p.add("periodPhase", "unknown value %q", *payload.PeriodPhase)
		}
		req.PeriodPhase = phase
	}

	req.IntensityTarget = defaults.IntensityTarget
	if payload.IntensityTarget != nil {
		in := models.Intensity(strings.ToLower(strings.TrimSpace(*payload.IntensityTarget)))
		if !in.Valid() {
			p.add("intensityTarget", "unknown value %q", *payload.IntensityTarget)
		}
		req.IntensityTarget = in
	}

	req.DurationTotalMin = defaults.DurationTotalMin
	if payload.DurationTotalMin != nil {
		req.DurationTotalMin = *payload.DurationTotalMin
	}
	if req.DurationTotalMin <= 0 {
		p.add("durationTotalMin", "must be positive, got %d", req.DurationTotalMin)
	}

	if payload.PlayersCount != nil {
		req.PlayersCount = *payload.PlayersCount
		if req.PlayersCount < 0 {
			p.add("playersCount", "must not be negative, got %d", req.PlayersCount)
		}
	}

	req.MainFocus = resolveSkill(&p, "mainFocus", payload.MainFocus)
	req.SecondaryFocus = resolveSkill(&p, "secondaryFocus", payload.SecondaryFocus)
	if req.MainFocus == "" && strings.TrimSpace(payload.MainFocus) == "" {
		if skills := SkillsFromTags(req.FocusSkills); len(skills) > 0 {
			req.MainFocus = skills[0]
		}
	}

	req.Constraints = models.Constraints{
		MaxHighIntensityInRow:   defaults.MaxHighIntensityInRow,
		AvoidRepeatSameCategory: true,
	}
	if c := payload.Constraints; c != nil {
		req.Constraints.ExcludeDrillIDs = coerceIDs(c.ExcludeDrillIDs)
		req.Constraints.MustIncludeDomains = trimTags(c.MustIncludeDomains)
		if c.MaxHighIntensityInRow != nil {
			req.Constraints.MaxHighIntensityInRow = *c.MaxHighIntensityInRow
			if *c.MaxHighIntensityInRow < 1 {
				p.add("constraints.maxHighIntensityInRow", "must be at least 1, got %d", *c.MaxHighIntensityInRow)
			}
		}
		if c.AvoidRepeatSameCategory != nil {
			req.Constraints.AvoidRepeatSameCategory = *c.AvoidRepeatSameCategory
		}
	}

	for _, raw := range payload.RecentDrillIDsBySession {
		if len(req.RecentDrillIDsBySession) == recentBuckets {
			break
		}
		var bucket []any
		if err := json.Unmarshal(raw, &bucket); err != nil {
			var single any
			if err := json.Unmarshal(raw, &single); err != nil {
				continue
			}
			bucket = []any{single}
		}
		req.RecentDrillIDsBySession = append(req.RecentDrillIDsBySession, coerceIDs(bucket))
	}

	req.Ruleset = strings.ToLower(strings.TrimSpace(payload.Ruleset))
	if req.Ruleset == "" {
		req.Ruleset = defaults.Ruleset
	}

	if err := p.err(); err != nil {
		return models.GenerationRequest{}, err
	}
	return req, nil
}

// ValidateRequest checks a request built in code rather than parsed from JSON.
func ValidateRequest(req models.GenerationRequest) error {
	var p problems
	checkRequest(&p, req)
	return p.err()
}

func checkRequest(p *problems, req models.GenerationRequest) {
	if req.DurationTotalMin <= 0 {
		p.add("durationTotalMin", "must be positive, got %d", req.DurationTotalMin)
	}
	if req.Age.Min < 0 || req.Age.Max < req.Age.Min {
		p.add("age", "invalid range %d-%d", req.Age.Min, req.Age.Max)
	}
	if !req.PeriodPhase.Valid() {
		p.add("periodPhase", "unknown value %q", req.PeriodPhase)
	}
	if !req.IntensityTarget.Valid() {
		p.add("intensityTarget", "unknown value %q", req.IntensityTarget)
	}
	if req.PlayersCount < 0 {
		p.add("playersCount", "must not be negative, got %d", req.PlayersCount)
	}
	if req.Constraints.MaxHighIntensityInRow < 1 {
		p.add("constraints.maxHighIntensityInRow", "must be at least 1, got %d", req.Constraints.MaxHighIntensityInRow)
	}
}

func resolveSkill(p *problems, field, raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	skill, ok := models.NormalizeSkill(raw)
	if !ok {
		p.add(field, "unknown skill %q", raw)
	}
	return skill
}

// parseAge accepts an int, a "lo-hi" string, a {"min","max"} object, the
// separate ageMin/ageMax fields, or a "U16"-style level. Absent age means any
// age. ok is false only when a value is present but unusable.
func parseAge(payload models.RequestPayload, level string) (models.AgeRange, bool) {
	if raw := strings.TrimSpace(string(payload.Age)); raw != "" && raw != "null" {
		var v any
		if err := json.Unmarshal(payload.Age, &v); err != nil {
			return models.AgeRange{}, false
		}
		return ageFromValue(v)
	}

	lo, loErr := optionalAge(payload.AgeMin)
	hi, hiErr := optionalAge(payload.AgeMax)
	if loErr || hiErr {
		return models.AgeRange{}, false
	}
	if lo != nil || hi != nil {
		r := models.AgeRange{Min: defaultAgeMin, Max: defaultAgeMax}
		if lo != nil {
			r.Min = *lo
		}
		if hi != nil {
			r.Max = *hi
		}
		return r, r.Min <= r.Max
	}

	if r, ok := ageFromLevel(level); ok {
		return r, true
	}
	return models.AgeRange{Min: defaultAgeMin, Max: defaultAgeMax}, true
}

func ageFromValue(v any) (models.AgeRange, bool) {
	switch x := v.(type) {
	case float64:
		if x < 0 || x != math.Trunc(x) {
			return models.AgeRange{}, false
		}
		return models.AgeRange{Min: int(x), Max: int(x)}, true
	case string:
		if m := ageRangeRe.FindStringSubmatch(x); m != nil {
			lo, _ := strconv.Atoi(m[1])
			hi, _ := strconv.Atoi(m[2])
			if lo > hi {
				lo, hi = hi, lo
			}
			return models.AgeRange{Min: lo, Max: hi}, true
		}
		if m := ageSingleRe.FindStringSubmatch(x); m != nil {
			n, _ := strconv.Atoi(m[1])
			return models.AgeRange{Min: n, Max: n}, true
		}
		return ageFromLevel(x)
	case map[string]any:
		lo := catalog.ParseInt(x["min"])
		hi := catalog.ParseInt(x["max"])
		if lo == nil && hi == nil {
			return models.AgeRange{}, false
		}
		r := models.AgeRange{Min: defaultAgeMin, Max: defaultAgeMax}
		if lo != nil {
			r.Min = *lo
		}
		if hi != nil {
			r.Max = *hi
		}
		return r, r.Min >= 0 && r.Min <= r.Max
	}
	return models.AgeRange{}, false
}

// ageFromLevel reads youth categories such as "U16" as ages 14-16.
func ageFromLevel(level string) (models.AgeRange, bool) {
	m := ageLevelRe.FindStringSubmatch(level)
	if m == nil {
		return models.AgeRange{}, false
	}
	upper, _ := strconv.Atoi(m[1])
	return models.AgeRange{Min: max(0, upper-2), Max: upper}, true
}

func optionalAge(raw json.RawMessage) (*int, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, true
	}
	n := catalog.ParseInt(v)
	if n == nil || *n < 0 {
		return nil, true
	}
	return n, false
}

// coerceIDs keeps positive integer ids, dropping anything else.
func coerceIDs(raw []any) []int {
	var out []int
	for _, v := range raw {
		if f, ok := v.(float64); ok && f != math.Trunc(f) {
			continue
		}
		n := catalog.ParseInt(v)
		if n == nil || *n <= 0 {
			continue
		}
		out = append(out, *n)
	}
	return out
}

func trimTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
