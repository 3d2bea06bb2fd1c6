// Package casting scores synthesis voices against story characters and
// whole-story attributes, producing deterministic, explainable voice
// assignments.
package casting

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Traits are character attributes inferred from the character's display
// name. They are advisory input to scoring, never authoritative, and never
// mutated once built for a scoring pass. Absent traits are empty strings.
type Traits struct {
	Name   string
	Age    string // child, adult, elderly
	Gender string // male, female
	Role   string // hero, villain, royal, mentor
}

var ageKeywords = map[string][]string{
	"elderly": {"grandma", "grandmother", "grandpa", "grandfather", "granny", "elder", "old man", "old woman", "crone", "sage"},
	"child":   {"boy", "girl", "kid", "child", "little", "young "},
}

var genderKeywords = map[string][]string{
	"female": {"grandma", "grandmother", "granny", "queen", "princess", "lady", "mother", "mrs", "miss", "girl", "woman", "witch", "she"},
	"male":   {"grandpa", "grandfather", "king", "prince", "lord", "father", "mr ", "mr.", "boy", "man", "wizard", "sir"},
}

var roleKeywords = map[string][]string{
	"villain": {"villain", "witch", "dark", "evil", "dragon", "shadow"},
	"royal":   {"king", "queen", "prince", "princess", "emperor", "empress"},
	"mentor":  {"wizard", "sage", "teacher", "master", "elder", "oracle"},
	"hero":    {"hero", "knight", "captain", "champion"},
}

// InferTraits guesses a character's traits from substrings of its display
// name. It is a pure best-effort heuristic: names that don't follow the
// convention simply yield empty traits, never an error.
func InferTraits(name string) Traits {
	t := Traits{Name: strings.TrimSpace(name)}
	lower := strings.ToLower(t.Name)

	t.Age = matchKeyword(lower, ageKeywords, []string{"elderly", "child"})
	t.Gender = matchKeyword(lower, genderKeywords, []string{"female", "male"})
	t.Role = matchKeyword(lower, roleKeywords, []string{"villain", "royal", "mentor", "hero"})

	return t
}

// matchKeyword checks categories in a fixed order so inference stays
// deterministic when several keywords match.
func matchKeyword(name string, table map[string][]string, order []string) string {
	for _, category := range order {
		for _, kw := range table[category] {
			if strings.Contains(name, kw) {
				return category
			}
		}
	}
	return ""
}

// DisplayName renders a trait category for reasoning strings.
func DisplayName(category string) string {
	if category == "" {
		return "unknown"
	}
	return cases.Title(language.English).String(category)
}
