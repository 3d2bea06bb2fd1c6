package casting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fablecast/fablecast/internal/synth"
)

func TestEngine_RecommendVoice(t *testing.T) {
	engine := NewEngine()

	t.Run("elderly character prefers old voice", func(t *testing.T) {
		voices := []synth.Voice{
			{ID: "1", Name: "Old Voice"},
			{ID: "2", Name: "Young Voice"},
		}

		rec := engine.RecommendVoice(Traits{Name: "Grandma", Age: "elderly"}, voices)

		assert.Equal(t, "1", rec.VoiceID)
		assert.Greater(t, rec.Confidence, 0.0)
		assert.NotEmpty(t, rec.Reasoning)
	})

	t.Run("no voices yields explicit empty recommendation", func(t *testing.T) {
		rec := engine.RecommendVoice(Traits{Name: "Grandma", Age: "elderly"}, nil)

		assert.Equal(t, Recommendation{Reasoning: "No voices available"}, rec)
		assert.Empty(t, rec.VoiceID)
		assert.Zero(t, rec.Confidence)
	})

	t.Run("trait-less character falls back to list order", func(t *testing.T) {
		voices := []synth.Voice{
			{ID: "a", Name: "Alloy"},
			{ID: "b", Name: "Echo Deep"},
		}

		rec := engine.RecommendVoice(Traits{Name: "Elara"}, voices)

		assert.Equal(t, "a", rec.VoiceID)
		assert.Zero(t, rec.Confidence)
		assert.Contains(t, rec.Reasoning, "ranked by list order")
	})

	t.Run("exposes at most two alternatives", func(t *testing.T) {
		voices := []synth.Voice{
			{ID: "1", Name: "Old Voice"},
			{ID: "2", Name: "Elder Deep"},
			{ID: "3", Name: "Young Voice"},
			{ID: "4", Name: "Nova Bright"},
		}

		rec := engine.RecommendVoice(Traits{Name: "Grandpa", Age: "elderly", Gender: "male"}, voices)

		require.Len(t, rec.Alternatives, 2)
		for _, alt := range rec.Alternatives {
			assert.NotEqual(t, rec.VoiceID, alt.VoiceID)
			assert.NotEmpty(t, alt.Reasoning)
		}
	})

	t.Run("confidence is clamped to one", func(t *testing.T) {
		// Gender metadata plus age and role label hits push the raw sum
		// toward the ceiling; confidence must stay within [0,1].
		voices := []synth.Voice{
			{ID: "v", Name: "Old Onyx Dark", Gender: "male", Description: "Deep menacing grave"},
		}
		traits := Traits{Name: "Dark Lord", Age: "elderly", Gender: "male", Role: "villain"}

		rec := engine.RecommendVoice(traits, voices)
		assert.LessOrEqual(t, rec.Confidence, 1.0)
		assert.Greater(t, rec.Confidence, 0.0)
	})
}

func TestEngine_RecommendVoice_Deterministic(t *testing.T) {
	engine := NewEngine()
	voices := []synth.Voice{
		{ID: "1", Name: "Old Voice"},
		{ID: "2", Name: "Elder Voice"},
		{ID: "3", Name: "Young Voice"},
	}
	traits := Traits{Name: "Grandma Willow", Age: "elderly", Gender: "female"}

	first := engine.RecommendVoice(traits, voices)
	for i := 0; i < 25; i++ {
		assert.Equal(t, first, engine.RecommendVoice(traits, voices))
	}
}

func TestEngine_RecommendVoice_TieBreaksByListOrder(t *testing.T) {
	engine := NewEngine()
	// Both voices score identically for an elderly character; the earlier
	// one must win.
	voices := []synth.Voice{
		{ID: "first", Name: "Old Voice"},
		{ID: "second", Name: "Elder Voice"},
	}

	rec := engine.RecommendVoice(Traits{Name: "Sage", Age: "elderly"}, voices)
	assert.Equal(t, "first", rec.VoiceID)
}

func TestEngine_RecommendNarrator(t *testing.T) {
	engine := NewEngine()

	t.Run("tone match wins", func(t *testing.T) {
		voices := []synth.Voice{
			{ID: "alloy", Name: "Alloy"},
			{ID: "onyx", Name: "Onyx Dark"},
		}

		rec := engine.RecommendNarrator(StoryAttributes{Tone: "dramatic", Genre: "mystery"}, voices)

		assert.Equal(t, "onyx", rec.VoiceID)
		assert.Equal(t, 1.0, rec.Confidence)
	})

	t.Run("no voices yields explicit empty recommendation", func(t *testing.T) {
		rec := engine.RecommendNarrator(StoryAttributes{Tone: "formal"}, nil)
		assert.Empty(t, rec.VoiceID)
		assert.Equal(t, "No voices available", rec.Reasoning)
	})

	t.Run("confidence never exceeds one", func(t *testing.T) {
		voices := []synth.Voice{
			{ID: "fable", Name: "Fable", Description: "Deep warm storyteller"},
		}
		rec := engine.RecommendNarrator(StoryAttributes{Tone: "formal", Length: "long", Genre: "fantasy"}, voices)
		assert.Equal(t, 1.0, rec.Confidence)
	})
}
