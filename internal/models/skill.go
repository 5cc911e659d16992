package models

import (
	"strings"
	"unicode/utf8"
)

// Canonical skill names. The order of CanonicalSkills is significant: it
// decides which skill wins a substring match and how skill bases are trimmed.
const (
	SkillReception = "Reception"
	SkillSetting   = "Setting"
	SkillServe     = "Serve"
	SkillAttack    = "Attack"
	SkillBlock     = "Block"
	SkillDefense   = "Defense"
)

var CanonicalSkills = []string{SkillReception, SkillSetting, SkillServe, SkillAttack, SkillBlock, SkillDefense}

// skillSynonyms lists lowercased labels per canonical skill. Covers English
// and Bulgarian, the two languages catalog entries are written in.
var skillSynonyms = map[string][]string{
	SkillReception: {
		"reception", "serve receive", "serve-receive", "receive", "receiving", "passing", "pass",
		"посрещане", "посрещане на сервис", "приемане", "прием",
	},
	SkillSetting: {
		"setting", "set", "setter", "sets",
		"разпределение", "разиграване", "подаване", "пас",
	},
	SkillServe: {
		"serve", "serving", "service", "jump serve", "float serve",
		"сервис", "начален удар",
	},
	SkillAttack: {
		"attack", "attacking", "spike", "spiking", "hitting", "hit",
		"атака", "нападение", "нападателен удар",
	},
	SkillBlock: {
		"block", "blocking",
		"блок", "блокиране",
	},
	SkillDefense: {
		"defense", "defence", "dig", "digging", "floor defense",
		"защита", "диг",
	},
}

// minSubstringRunes keeps short labels like "pass" inside "passing" matching
// only exactly, so "set" never matches "offset" or "пас" never matches "опасност".
const minSubstringRunes = 4

// NormalizeSkill maps a free-text label to its canonical skill. Exact matches
// win over substring matches; substring matches follow CanonicalSkills order.
// Returns "" and false when nothing matches.
func NormalizeSkill(raw string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if lower == "" {
		return "", false
	}
	for _, skill := range CanonicalSkills {
		if strings.EqualFold(lower, skill) {
			return skill, true
		}
		for _, syn := range skillSynonyms[skill] {
			if lower == syn {
				return skill, true
			}
		}
	}
	for _, skill := range CanonicalSkills {
		for _, syn := range skillSynonyms[skill] {
			if utf8.RuneCountInString(syn) < minSubstringRunes {
				continue
			}
			if strings.Contains(lower, syn) {
				return skill, true
			}
		}
	}
	return "", false
}

// SkillIndex returns the position of a canonical skill in CanonicalSkills, or
// len(CanonicalSkills) for anything else.
func SkillIndex(skill string) int {
	for i, s := range CanonicalSkills {
		if s == skill {
			return i
		}
	}
	return len(CanonicalSkills)
}
