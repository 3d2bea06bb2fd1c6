package casting

import (
	"github.com/rs/zerolog/log"

	"github.com/fablecast/fablecast/internal/story"
	"github.com/fablecast/fablecast/internal/synth"
)

// Plan is the complete casting outcome for one story: a character→voice id
// map (last write wins on duplicate characters) and the narrator assignment.
// Recommendations keeps the full reasoning per character for display.
type Plan struct {
	Assignments     map[string]string
	Narrator        synth.NarratorVoice
	Recommendations map[string]Recommendation
	NarratorPick    Recommendation
}

// BuildPlan casts every speaking character in the parsed story and selects a
// narrator. Characters whose recommendation has an empty voice id (no voices
// available) are left out of Assignments, so synthesis will skip their
// dialogue. A failed narrator pick falls back to the fixed default narrator.
func BuildPlan(engine *Engine, parsed *story.ParsedStory, attrs StoryAttributes, voices []synth.Voice) Plan {
	plan := Plan{
		Assignments:     make(map[string]string, len(parsed.Characters)),
		Recommendations: make(map[string]Recommendation, len(parsed.Characters)),
	}

	for _, name := range parsed.CharacterNames() {
		rec := engine.RecommendVoice(InferTraits(name), voices)
		plan.Recommendations[name] = rec
		if rec.VoiceID == "" {
			log.Warn().Str("character", name).Msg("no voice assigned")
			continue
		}
		plan.Assignments[name] = rec.VoiceID
	}

	plan.NarratorPick = engine.RecommendNarrator(attrs, voices)
	if plan.NarratorPick.VoiceID != "" {
		plan.Narrator = synth.NarratorVoice{ID: plan.NarratorPick.VoiceID, Name: plan.NarratorPick.VoiceName}
	} else {
		plan.Narrator = synth.DefaultNarrator
	}

	log.Debug().
		Int("characters", len(plan.Assignments)).
		Str("narrator", plan.Narrator.ID).
		Msg("casting plan built")

	return plan
}
