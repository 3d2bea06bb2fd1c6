package casting

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fablecast/fablecast/internal/synth"
)

// confidenceCeiling normalizes raw strategy sums into [0,1]. It is a fixed,
// deliberately coarse denominator so confidence stays explainable rather
// than probabilistic.
const confidenceCeiling = 10.0

// Recommendation is a ranked voice pick with its justification. Alternatives
// holds at most the next two ranked voices.
type Recommendation struct {
	VoiceID      string
	VoiceName    string
	Confidence   float64
	Reasoning    string
	Alternatives []Recommendation
}

// Engine aggregates strategy scores across a voice list. Strategies are
// treated as an unordered set; each contributes independently to a voice's
// total.
type Engine struct {
	strategies []Strategy
}

// NewEngine builds an engine over the given strategies, defaulting to the
// built-in age/gender/role set when none are supplied.
func NewEngine(strategies ...Strategy) *Engine {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Engine{strategies: strategies}
}

type scoredVoice struct {
	voice   synth.Voice
	score   float64
	reasons []string
}

// RecommendVoice ranks all voices against one character's traits. With zero
// voices it returns an empty recommendation with an explicit reason rather
// than an error. A trait-less character scores 0 everywhere and the first
// voice in the list wins by stable order; that is expected behavior, not a
// failure.
func (e *Engine) RecommendVoice(traits Traits, voices []synth.Voice) Recommendation {
	if len(voices) == 0 {
		return Recommendation{Reasoning: "No voices available"}
	}

	scored := make([]scoredVoice, 0, len(voices))
	for _, v := range voices {
		sv := scoredVoice{voice: v}
		for _, s := range e.strategies {
			if pts := s.Score(v, traits); pts > 0 {
				sv.score += pts
				sv.reasons = append(sv.reasons, s.Explain(v, traits))
			}
		}
		scored = append(scored, sv)
	}

	// Stable sort keeps original list order as the tiebreaker, which makes
	// recommendations deterministic for identical inputs.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	primary := toRecommendation(scored[0], traits)
	for _, alt := range scored[1:] {
		if len(primary.Alternatives) == 2 {
			break
		}
		primary.Alternatives = append(primary.Alternatives, toRecommendation(alt, traits))
	}

	log.Debug().
		Str("character", traits.Name).
		Str("voice", primary.VoiceID).
		Float64("confidence", primary.Confidence).
		Msg("voice recommended")

	return primary
}

func toRecommendation(sv scoredVoice, traits Traits) Recommendation {
	reasoning := strings.Join(sv.reasons, "; ")
	if reasoning == "" {
		reasoning = fmt.Sprintf("no trait signals for %q; ranked by list order", traits.Name)
	}
	return Recommendation{
		VoiceID:    sv.voice.ID,
		VoiceName:  sv.voice.Name,
		Confidence: clamp01(sv.score / confidenceCeiling),
		Reasoning:  reasoning,
	}
}

// RecommendNarrator picks the narrator voice for whole-story attributes.
// The narrator score already lives in [0,1], so it doubles as confidence.
func (e *Engine) RecommendNarrator(attrs StoryAttributes, voices []synth.Voice) Recommendation {
	if len(voices) == 0 {
		return Recommendation{Reasoning: "No voices available"}
	}

	strategy := NarratorStrategy{Attrs: attrs}
	scored := make([]scoredVoice, 0, len(voices))
	for _, v := range voices {
		scored = append(scored, scoredVoice{
			voice:   v,
			score:   strategy.Score(v, Traits{}),
			reasons: []string{strategy.Explain(v, Traits{})},
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	primary := Recommendation{
		VoiceID:    scored[0].voice.ID,
		VoiceName:  scored[0].voice.Name,
		Confidence: clamp01(scored[0].score),
		Reasoning:  scored[0].reasons[0],
	}
	for _, alt := range scored[1:] {
		if len(primary.Alternatives) == 2 {
			break
		}
		primary.Alternatives = append(primary.Alternatives, Recommendation{
			VoiceID:    alt.voice.ID,
			VoiceName:  alt.voice.Name,
			Confidence: clamp01(alt.score),
			Reasoning:  alt.reasons[0],
		})
	}
	return primary
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
