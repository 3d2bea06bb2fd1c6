package casting

import (
	"fmt"
	"strings"

	"github.com/fablecast/fablecast/internal/synth"
)

// Strategy rates a single voice's fit against one character attribute.
// Score returns 0 when the attribute is absent from the traits and a small
// bounded positive value (0-3) on a match; Explain returns a short
// human-readable justification for the same inputs.
type Strategy interface {
	Name() string
	Score(voice synth.Voice, traits Traits) float64
	Explain(voice synth.Voice, traits Traits) string
}

// voiceLabel is the text scoring strategies match keywords against.
func voiceLabel(v synth.Voice) string {
	return strings.ToLower(v.Name + " " + v.Description)
}

func containsAny(label string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(label, kw) {
			return true
		}
	}
	return false
}

// AgeStrategy matches a character's inferred age bracket against voice
// labels. A specific match ("elderly" + "old") outranks a generic adult fit.
type AgeStrategy struct{}

func (AgeStrategy) Name() string { return "age" }

func (AgeStrategy) Score(voice synth.Voice, traits Traits) float64 {
	if traits.Age == "" {
		return 0
	}
	label := voiceLabel(voice)
	switch traits.Age {
	case "elderly":
		if containsAny(label, "old", "elder", "deep", "grave") {
			return 3
		}
		if containsAny(label, "mature", "dark") {
			return 2
		}
	case "child":
		if containsAny(label, "young", "bright", "light", "child") {
			return 3
		}
		if containsAny(label, "soft", "warm") {
			return 1
		}
	default:
		if containsAny(label, "adult", "neutral") {
			return 1
		}
	}
	return 0
}

func (s AgeStrategy) Explain(voice synth.Voice, traits Traits) string {
	score := s.Score(voice, traits)
	if traits.Age == "" {
		return "no age trait inferred"
	}
	if score == 0 {
		return fmt.Sprintf("voice %q does not suggest a %s speaker", voice.Name, traits.Age)
	}
	return fmt.Sprintf("voice %q fits %s character (+%.0f)", voice.Name, traits.Age, score)
}

// GenderStrategy matches inferred gender against voice metadata, preferring
// the provider-reported gender over label keywords when present.
type GenderStrategy struct{}

func (GenderStrategy) Name() string { return "gender" }

func (GenderStrategy) Score(voice synth.Voice, traits Traits) float64 {
	if traits.Gender == "" {
		return 0
	}
	if voice.Gender != "" {
		if strings.EqualFold(voice.Gender, traits.Gender) {
			return 3
		}
		return 0
	}
	label := voiceLabel(voice)
	switch traits.Gender {
	case "female":
		if containsAny(label, "female", "woman", "her") {
			return 2
		}
	case "male":
		// "female" and "woman" contain "male"/"man" as substrings.
		if containsAny(label, "female", "woman") {
			return 0
		}
		if containsAny(label, "male", "man", "his") {
			return 2
		}
	}
	return 0
}

func (s GenderStrategy) Explain(voice synth.Voice, traits Traits) string {
	score := s.Score(voice, traits)
	if traits.Gender == "" {
		return "no gender trait inferred"
	}
	if score == 0 {
		return fmt.Sprintf("voice %q does not match %s character", voice.Name, traits.Gender)
	}
	return fmt.Sprintf("voice %q matches %s character (+%.0f)", voice.Name, traits.Gender, score)
}

// RoleStrategy matches a character's narrative role against voice labels.
type RoleStrategy struct{}

func (RoleStrategy) Name() string { return "role" }

var roleVoiceKeywords = map[string][]string{
	"villain": {"dark", "onyx", "deep", "menacing", "grave"},
	"royal":   {"regal", "formal", "noble", "stately", "fable"},
	"mentor":  {"warm", "wise", "calm", "deep"},
	"hero":    {"bright", "bold", "clear", "strong"},
}

func (RoleStrategy) Score(voice synth.Voice, traits Traits) float64 {
	if traits.Role == "" {
		return 0
	}
	label := voiceLabel(voice)
	keywords, ok := roleVoiceKeywords[traits.Role]
	if !ok {
		return 0
	}
	matches := 0
	for _, kw := range keywords {
		if strings.Contains(label, kw) {
			matches++
		}
	}
	switch {
	case matches >= 2:
		return 3
	case matches == 1:
		return 2
	default:
		return 0
	}
}

func (s RoleStrategy) Explain(voice synth.Voice, traits Traits) string {
	score := s.Score(voice, traits)
	if traits.Role == "" {
		return "no role trait inferred"
	}
	if score == 0 {
		return fmt.Sprintf("voice %q does not suggest a %s", voice.Name, traits.Role)
	}
	return fmt.Sprintf("voice %q suits a %s (+%.0f)", voice.Name, traits.Role, score)
}

// DefaultStrategies returns the built-in character scoring strategies. The
// engine treats the slice as an unordered set and sums contributions.
func DefaultStrategies() []Strategy {
	return []Strategy{AgeStrategy{}, GenderStrategy{}, RoleStrategy{}}
}
