package casting

import (
	"fmt"
	"strings"

	"github.com/fablecast/fablecast/internal/synth"
)

// StoryAttributes are the whole-story inputs to narrator scoring, taken from
// the generation options rather than any individual character.
type StoryAttributes struct {
	Tone   string // formal, casual, dramatic, whimsical
	Length string // short, medium, long
	Genre  string
}

var toneVoiceKeywords = map[string][]string{
	"formal":    {"fable", "stately", "refined", "deep"},
	"casual":    {"alloy", "nova", "friendly", "warm"},
	"dramatic":  {"onyx", "dark", "deep", "bold"},
	"whimsical": {"shimmer", "bright", "light", "playful"},
}

var genreVoiceKeywords = map[string][]string{
	"fantasy":   {"fable", "shimmer", "mystic"},
	"mystery":   {"onyx", "dark", "hushed"},
	"romance":   {"warm", "soft", "nova"},
	"adventure": {"bold", "echo", "bright"},
	"horror":    {"dark", "deep", "grave"},
}

// NarratorStrategy scores a voice against whole-story attributes. A primary
// tone match is worth up to 1.0; length and genre bonuses add up to another
// 0.8, but the total is capped at 1.0 so multi-factor voices cannot dominate
// ties unfairly.
type NarratorStrategy struct {
	Attrs StoryAttributes
}

func (NarratorStrategy) Name() string { return "narrator" }

func (s NarratorStrategy) Score(voice synth.Voice, _ Traits) float64 {
	label := voiceLabel(voice)
	score := s.toneScore(label)

	// Length bonus: longer stories favor voices labelled easy on the ear.
	if s.Attrs.Length == "long" && containsAny(label, "warm", "calm", "smooth") {
		score += 0.4
	} else if s.Attrs.Length == "short" && containsAny(label, "bright", "crisp") {
		score += 0.2
	}

	if kws, ok := genreVoiceKeywords[strings.ToLower(s.Attrs.Genre)]; ok && containsAny(label, kws...) {
		score += 0.4
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func (s NarratorStrategy) toneScore(label string) float64 {
	kws, ok := toneVoiceKeywords[strings.ToLower(s.Attrs.Tone)]
	if !ok {
		return 0
	}
	matched := 0
	for _, kw := range kws {
		if strings.Contains(label, kw) {
			matched++
		}
	}
	switch {
	case matched >= 2:
		return 1.0
	case matched == 1:
		return 0.6
	default:
		return 0
	}
}

func (s NarratorStrategy) Explain(voice synth.Voice, _ Traits) string {
	score := s.Score(voice, Traits{})
	if score == 0 {
		return fmt.Sprintf("voice %q has no affinity with a %s %s story", voice.Name, s.Attrs.Tone, s.Attrs.Genre)
	}
	return fmt.Sprintf("voice %q suits %s narration of a %s story (%.1f)", voice.Name, s.Attrs.Tone, s.Attrs.Genre, score)
}
