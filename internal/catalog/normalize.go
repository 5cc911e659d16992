// Package catalog converts heterogeneous drill records into models.Drill.
//
// Records arrive as decoded JSON objects, database rows collected as maps, or
// arbitrary structs. Field names follow either the camelCase convention of
// the API ("durationMin") or the snake_case convention of the database
// ("duration_min"). Nothing in this package returns an error: unusable values
// fall back to empty defaults.
package catalog

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/claude/volleyplan/internal/models"
)

// unknownValues are textual markers meaning "no information".
var unknownValues = map[string]bool{
	"":           true,
	"unknown":    true,
	"n/a":        true,
	"na":         true,
	"none":       true,
	"null":       true,
	"-":          true,
	"?":          true,
	"няма данни": true,
	"неизвестно": true,
}

// IsUnknown reports whether s carries no usable information.
func IsUnknown(s string) bool {
	return unknownValues[strings.ToLower(strings.TrimSpace(s))]
}

var (
	listSplitRe = regexp.MustCompile(`[|;,/\n]+`)
	intRe       = regexp.MustCompile(`\d+`)
)

// Record looks up fields of one raw record under several candidate names.
type Record map[string]any

// Get returns the first non-nil value stored under any of names.
func (r Record) Get(names ...string) any {
	for _, n := range names {
		if v, ok := r[n]; ok && v != nil {
			return v
		}
	}
	return nil
}

// String returns the field as trimmed text, or "" when absent.
func (r Record) String(names ...string) string {
	switch v := r.Get(names...).(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case []byte:
		return strings.TrimSpace(string(v))
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return strings.Trim(string(b), `"`)
	}
}

// Int returns the field as an integer, or nil when absent or unparsable.
func (r Record) Int(names ...string) *int {
	return ParseInt(r.Get(names...))
}

// List returns the field as a list of trimmed, non-empty tags.
func (r Record) List(names ...string) []string {
	return ParseList(r.Get(names...))
}

// FromValue converts any record shape into a Record. Maps are used directly;
// anything else goes through its JSON representation.
func FromValue(v any) Record {
	switch m := v.(type) {
	case Record:
		return m
	case map[string]any:
		return Record(m)
	case nil:
		return Record{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return Record{}
	}
	out := Record{}
	if err := json.Unmarshal(b, &out); err != nil {
		return Record{}
	}
	return out
}

// Normalize converts one raw record. ok is false when the record has no
// positive integer id, since such a drill can never be referenced.
func Normalize(raw any) (models.Drill, bool) {
	r := FromValue(raw)

	id := r.Int("id", "drillId", "drill_id")
	if id == nil || *id <= 0 {
		return models.Drill{}, false
	}

	d := models.Drill{
		ID:             *id,
		Name:           r.String("name", "title"),
		Category:       r.String("category"),
		Level:          r.String("level"),
		AgeMin:         r.Int("ageMin", "age_min"),
		AgeMax:         r.Int("ageMax", "age_max"),
		SkillFocus:     r.List("skillFocus", "skill_focus"),
		SkillDomains:   r.List("skillDomains", "skill_domains"),
		GamePhases:     r.List("gamePhases", "game_phases"),
		TacticalFocus:  r.List("tacticalFocus", "tactical_focus"),
		TechnicalFocus: r.List("technicalFocus", "technical_focus"),
		ZoneFocus:      r.List("zoneFocus", "zone_focus"),
		PositionFocus:  r.List("positionFocus", "position_focus"),
		Intensity:      models.NormalizeIntensity(r.String("intensityType", "intensity_type", "intensity")),
		RPE:            r.Int("rpe"),
		DurationMin:    positive(r.Int("durationMin", "duration_min")),
		DurationMax:    positive(r.Int("durationMax", "duration_max")),
		TypeOfDrill:    r.String("typeOfDrill", "type_of_drill"),
		TrainingGoal:   r.String("trainingGoal", "training_goal"),
		Goal:           r.String("goal"),
		Description:    r.String("description"),
		VideoURLs:      r.List("videoUrls", "video_urls", "videoUrl", "video_url"),
	}
	if IsUnknown(d.Level) {
		d.Level = ""
	}
	if d.Name == "" {
		d.Name = "Drill " + strconv.Itoa(d.ID)
	}
	if d.DurationMin != nil && d.DurationMax != nil && *d.DurationMin > *d.DurationMax {
		d.DurationMin, d.DurationMax = d.DurationMax, d.DurationMin
	}
	if d.AgeMin != nil && d.AgeMax != nil && *d.AgeMin > *d.AgeMax {
		d.AgeMin, d.AgeMax = d.AgeMax, d.AgeMin
	}

	d.Equipment = r.List("equipment", "equipmentRequired", "equipment_required")
	d.EquipmentKnown = len(d.Equipment) > 0
	for i, e := range d.Equipment {
		d.Equipment[i] = strings.ToLower(e)
	}

	d.PlayersMin, d.PlayersMax, d.PlayersKnown = parsePlayers(r)
	return d, true
}

// NormalizeAll normalizes a batch, dropping records without an id and
// keeping only the first record for a repeated id.
func NormalizeAll[T any](raws []T) []models.Drill {
	seen := make(map[int]bool, len(raws))
	out := make([]models.Drill, 0, len(raws))
	for _, raw := range raws {
		d, ok := Normalize(raw)
		if !ok || seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		out = append(out, d)
	}
	return out
}

// ParseList accepts a JSON array, a JSON-array string, a delimiter-separated
// string or a single bare value. Unknown markers are dropped.
func ParseList(v any) []string {
	var items []string
	switch x := v.(type) {
	case nil:
		return nil
	case []string:
		items = x
	case []any:
		for _, e := range x {
			items = append(items, ParseList(e)...)
		}
	case string:
		s := strings.TrimSpace(x)
		if IsUnknown(s) {
			return nil
		}
		if strings.HasPrefix(s, "[") {
			var arr []any
			if err := json.Unmarshal([]byte(s), &arr); err == nil {
				return ParseList(arr)
			}
		}
		items = listSplitRe.Split(s, -1)
	case float64, int, int32, int64:
		items = []string{Record{"v": x}.String("v")}
	default:
		return nil
	}

	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		key := strings.ToLower(item)
		if IsUnknown(item) || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ParseInt reads an integer from JSON numbers, Go integers or digit strings.
func ParseInt(v any) *int {
	var n int
	switch x := v.(type) {
	case nil:
		return nil
	case int:
		n = x
	case int32:
		n = int(x)
	case int64:
		n = int(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		n = int(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil
		}
		n = int(f)
	case string:
		s := strings.TrimSpace(x)
		if IsUnknown(s) {
			return nil
		}
		parsed, err := strconv.Atoi(s)
		if err != nil {
			f, ferr := strconv.ParseFloat(s, 64)
			if ferr != nil {
				return nil
			}
			parsed = int(f)
		}
		n = parsed
	default:
		return nil
	}
	return &n
}

// ParseBounds extracts up to two integers from free text such as "10-14",
// "6+" or "12 players". A single number yields equal bounds.
func ParseBounds(s string) (lo, hi *int) {
	if IsUnknown(s) {
		return nil, nil
	}
	nums := intRe.FindAllString(s, 2)
	switch len(nums) {
	case 0:
		return nil, nil
	case 1:
		n, _ := strconv.Atoi(nums[0])
		if strings.Contains(s, "+") {
			return &n, nil
		}
		m := n
		return &n, &m
	default:
		a, _ := strconv.Atoi(nums[0])
		b, _ := strconv.Atoi(nums[1])
		if a > b {
			a, b = b, a
		}
		return &a, &b
	}
}

func parsePlayers(r Record) (lo, hi *int, known bool) {
	lo = r.Int("playersMin", "players_min", "minPlayers", "min_players")
	hi = r.Int("playersMax", "players_max", "maxPlayers", "max_players")

	switch v := r.Get("players", "playersCount", "players_count").(type) {
	case map[string]any:
		if lo == nil {
			lo = ParseInt(v["min"])
		}
		if hi == nil {
			hi = ParseInt(v["max"])
		}
	case string:
		if lo == nil && hi == nil {
			lo, hi = ParseBounds(v)
		}
	case nil:
	default:
		if lo == nil && hi == nil {
			lo = ParseInt(v)
			hi = ParseInt(v)
		}
	}
	lo, hi = positive(lo), positive(hi)
	if lo != nil && hi != nil && *lo > *hi {
		lo, hi = hi, lo
	}
	return lo, hi, lo != nil || hi != nil
}

func positive(n *int) *int {
	if n == nil || *n <= 0 {
		return nil
	}
	return n
}
