// Package synth turns parsed story segments into an ordered stream of
// synthesized audio chunks using pluggable text-to-speech providers.
package synth

import (
	"context"
	"io"
)

// Provider is a text-to-speech transport: one synthesis request per
// segment, plus an optional voice catalog.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// ListVoices returns the catalog of voices this provider offers.
	ListVoices(ctx context.Context) ([]Voice, error)

	// Synthesize generates audio for text under the given options and
	// returns the raw audio stream.
	Synthesize(ctx context.Context, text string, options Options) (io.ReadCloser, error)

	// IsAvailable reports whether the provider can be used (credentials
	// present, service reachable).
	IsAvailable(ctx context.Context) bool
}

// Voice is an opaque synthesis identity with a display label. The label is
// what scoring strategies match against.
type Voice struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Language    string `json:"language,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Description string `json:"description,omitempty"`
}

// NarratorVoice is the single voice used for all narration segments,
// independent of per-character assignments.
type NarratorVoice struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// DefaultNarrator is used when no narrator voice was assigned.
var DefaultNarrator = NarratorVoice{ID: "fable", Name: "Fable"}

// Options contains per-request synthesis options.
type Options struct {
	Voice      string  `json:"voice"`
	Speed      float64 `json:"speed,omitempty"`       // multiplier, provider-clamped
	Format     string  `json:"format,omitempty"`      // wav, mp3, pcm
	SampleRate string  `json:"sample_rate,omitempty"` // Hz as string, provider-specific
	Language   string  `json:"language,omitempty"`
	Model      string  `json:"model,omitempty"`
	Engine     string  `json:"engine,omitempty"` // polly: standard, neural, long-form, generative
}
