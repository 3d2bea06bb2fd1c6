package synth

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fablecast/fablecast/internal/story"
)

// DefaultSegmentTimeout bounds one per-segment synthesis call so a stuck
// request cannot block the rest of the pipeline.
const DefaultSegmentTimeout = 30 * time.Second

// Chunk is the audio for one successfully synthesized segment. Index is the
// source segment's position; Timestamp is an ordering hint, not wall-clock
// truth.
type Chunk struct {
	Index       int
	Audio       []byte
	Text        string
	Timestamp   time.Time
	Character   string
	SegmentType story.SegmentType
}

// Streamer synthesizes parsed story segments in order, one request per
// segment, tolerating per-segment failure.
type Streamer struct {
	provider       Provider
	options        Options
	segmentTimeout time.Duration
}

// StreamerOption is a functional option for configuring a Streamer.
type StreamerOption func(*Streamer)

// WithSegmentTimeout sets the per-segment synthesis deadline.
func WithSegmentTimeout(d time.Duration) StreamerOption {
	return func(s *Streamer) {
		s.segmentTimeout = d
	}
}

// WithSynthesisOptions sets baseline synthesis options (format, speed);
// voice is resolved per segment.
func WithSynthesisOptions(opts Options) StreamerOption {
	return func(s *Streamer) {
		s.options = opts
	}
}

// NewStreamer creates a synthesis streamer over the given provider.
func NewStreamer(provider Provider, opts ...StreamerOption) *Streamer {
	s := &Streamer{
		provider:       provider,
		options:        Options{Format: "wav"},
		segmentTimeout: DefaultSegmentTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stream synthesizes every eligible segment of parsed in order and emits
// one Chunk per success on the returned channel.
//
// Routing: action segments are never synthesized; dialogue segments resolve
// their voice through assignments and are skipped when no assignment
// exists; narration segments always use narrator, falling back to
// DefaultNarrator when unset. A failed segment is logged and skipped, never
// fatal. The only fatal error is an unusable transport, detected before any
// segment is attempted and returned as *SynthesisError.
func (s *Streamer) Stream(ctx context.Context, parsed *story.ParsedStory, assignments map[string]string, narrator NarratorVoice) (<-chan Chunk, error) {
	if !s.provider.IsAvailable(ctx) {
		return nil, &SynthesisError{
			Provider: s.provider.Name(),
			Reason:   "provider unavailable or credentials missing",
		}
	}

	if narrator.ID == "" {
		narrator = DefaultNarrator
	}

	chunks := make(chan Chunk)

	go func() {
		defer close(chunks)

		for i, seg := range parsed.Segments {
			if ctx.Err() != nil {
				return
			}

			voiceID, ok := s.resolveVoice(seg, assignments, narrator)
			if !ok {
				continue
			}

			audio, err := s.synthesizeSegment(ctx, seg.Text, voiceID)
			if err != nil {
				log.Warn().
					Err(err).
					Int("segment", i).
					Str("type", string(seg.Type)).
					Msg("Segment synthesis failed, skipping")
				continue
			}

			chunk := Chunk{
				Index:       i,
				Audio:       audio,
				Text:        seg.Text,
				Timestamp:   time.Now(),
				Character:   seg.Character,
				SegmentType: seg.Type,
			}

			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()

	return chunks, nil
}

// resolveVoice maps a segment to its voice id, or reports that the segment
// is skipped.
func (s *Streamer) resolveVoice(seg story.Segment, assignments map[string]string, narrator NarratorVoice) (string, bool) {
	switch seg.Type {
	case story.SegmentAction:
		return "", false
	case story.SegmentDialogue:
		voiceID, assigned := assignments[seg.Character]
		if !assigned || voiceID == "" {
			log.Debug().Str("character", seg.Character).Msg("No voice assignment, skipping dialogue segment")
			return "", false
		}
		return voiceID, true
	case story.SegmentNarration:
		return narrator.ID, true
	}
	return "", false
}

func (s *Streamer) synthesizeSegment(ctx context.Context, text, voiceID string) ([]byte, error) {
	segCtx, cancel := context.WithTimeout(ctx, s.segmentTimeout)
	defer cancel()

	opts := s.options
	opts.Voice = voiceID

	stream, err := s.provider.Synthesize(segCtx, text, opts)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	audio, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio stream: %w", err)
	}
	return audio, nil
}
