package generator

import (
	"strings"

	"github.com/claude/volleyplan/internal/models"
)

const (
	categoryWindow = 2
	tagWindow      = 4
)

// selectionState is the running record of one generation call. Only the
// selector mutates it, once per finished block.
type selectionState struct {
	used        map[int]bool
	categories  []string
	techTags    []string
	tactTags    []string
	zoneTags    []string
	domains     map[string]bool
	phases      map[string]bool
	intensities []models.Intensity
	skillBase   []string

	maxHighInRow        int
	avoidRepeatCategory bool
}

func newSelectionState(req models.GenerationRequest) *selectionState {
	return &selectionState{
		used:                make(map[int]bool),
		domains:             make(map[string]bool),
		phases:              make(map[string]bool),
		maxHighInRow:        req.Constraints.MaxHighIntensityInRow,
		avoidRepeatCategory: req.Constraints.AvoidRepeatSameCategory,
	}
}

func lastN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}

func overlaps(tags []string, window []string) bool {
	for _, t := range tags {
		for _, w := range window {
			if t == w {
				return true
			}
		}
	}
	return false
}

// recentCategory reports whether the category was used by one of the last
// two selections.
func (s *selectionState) recentCategory(category string) bool {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" {
		return false
	}
	for _, used := range lastN(s.categories, categoryWindow) {
		if used == c {
			return true
		}
	}
	return false
}

// highRun returns the length of the trailing run of high-intensity drills in
// seq.
func highRun(seq []models.Intensity) int {
	n := 0
	for i := len(seq) - 1; i >= 0 && seq[i] == models.IntensityHigh; i-- {
		n++
	}
	return n
}

// breaksHighRun reports whether appending in after the committed sequence
// plus pending would exceed the high-intensity run cap.
func (s *selectionState) breaksHighRun(pending []models.Intensity, in models.Intensity) bool {
	if in != models.IntensityHigh || s.maxHighInRow < 1 {
		return false
	}
	seq := append(append(append([]models.Intensity{}, s.intensities...), pending...), in)
	return highRun(seq) > s.maxHighInRow
}

// commit records a finished block.
func (s *selectionState) commit(picked []candidate, baseSize int) {
	skills := make(map[string]bool)
	for _, c := range picked {
		d := c.drill
		s.used[d.ID] = true
		if cat := strings.ToLower(strings.TrimSpace(d.Category)); cat != "" {
			s.categories = append(s.categories, cat)
		}
		s.techTags = append(s.techTags, lowerTags(d.TechnicalFocus)...)
		s.tactTags = append(s.tactTags, lowerTags(d.TacticalFocus)...)
		s.zoneTags = append(s.zoneTags, lowerTags(d.ZoneFocus)...)
		for _, k := range drillDomainKeys(d) {
			s.domains[k] = true
		}
		for _, k := range drillPhaseKeys(d) {
			s.phases[k] = true
		}
		s.intensities = append(s.intensities, d.Intensity)
		for _, sk := range c.skills {
			skills[sk] = true
		}
	}
	if len(picked) == 0 {
		return
	}
	s.skillBase = nil
	for _, sk := range models.CanonicalSkills {
		if skills[sk] && len(s.skillBase) < baseSize {
			s.skillBase = append(s.skillBase, sk)
		}
	}
}
