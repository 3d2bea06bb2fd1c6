package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fablecast/fablecast/internal/playback"
	"github.com/fablecast/fablecast/internal/story"
	"github.com/fablecast/fablecast/internal/synth"
)

type fakeGenerator struct {
	fragments []string
	err       error
	// block, when non-nil, delays fragment delivery until closed.
	block chan struct{}
}

func (g *fakeGenerator) Stream(ctx context.Context, opts story.Options) (<-chan string, <-chan error) {
	out := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errs)
		if g.block != nil {
			<-g.block
		}
		for _, f := range g.fragments {
			select {
			case out <- f:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
		if g.err != nil {
			errs <- g.err
		}
	}()
	return out, errs
}

type fakeParser struct {
	gotText string
	parsed  *story.ParsedStory
	err     error
}

func (p *fakeParser) Parse(ctx context.Context, text string) (*story.ParsedStory, error) {
	p.gotText = text
	return p.parsed, p.err
}

type fakeVoiceSource struct {
	voices []synth.Voice
	err    error
}

func (v *fakeVoiceSource) ListVoices(ctx context.Context) ([]synth.Voice, error) {
	return v.voices, v.err
}

type fakeStreamer struct {
	chunks []synth.Chunk
	err    error

	gotAssignments map[string]string
	gotNarrator    synth.NarratorVoice
}

func (s *fakeStreamer) Stream(ctx context.Context, parsed *story.ParsedStory, assignments map[string]string, narrator synth.NarratorVoice) (<-chan synth.Chunk, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.gotAssignments = assignments
	s.gotNarrator = narrator
	out := make(chan synth.Chunk, len(s.chunks))
	for _, c := range s.chunks {
		out <- c
	}
	close(out)
	return out, nil
}

type fakeScheduler struct {
	mu       sync.Mutex
	begins   int
	enqueued []playback.Buffer
	plays    int
	pauses   int
	stops    int
}

func (s *fakeScheduler) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.begins++
	return nil
}

func (s *fakeScheduler) Enqueue(buf playback.Buffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enqueued = append(s.enqueued, buf)
	return nil
}

func (s *fakeScheduler) Play() error  { s.mu.Lock(); defer s.mu.Unlock(); s.plays++; return nil }
func (s *fakeScheduler) Pause() error { s.mu.Lock(); defer s.mu.Unlock(); s.pauses++; return nil }
func (s *fakeScheduler) Stop() error  { s.mu.Lock(); defer s.mu.Unlock(); s.stops++; return nil }

func (s *fakeScheduler) stopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
	stages   []Stage
}

func (n *fakeNotifier) Notify(stage Stage, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stages = append(n.stages, stage)
	n.messages = append(n.messages, message)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

func twoSpeakerStory() *story.ParsedStory {
	return &story.ParsedStory{
		Segments: []story.Segment{
			{Type: story.SegmentNarration, Text: "Deep in the woods."},
			{Type: story.SegmentDialogue, Text: "Who goes there?", Character: "Old Guard"},
		},
		Characters: []story.CharacterCount{{Name: "Old Guard", Appearances: 1}},
	}
}

type fixture struct {
	generator *fakeGenerator
	parser    *fakeParser
	voices    *fakeVoiceSource
	streamer  *fakeStreamer
	scheduler *fakeScheduler
	notifier  *fakeNotifier
	store     *MemoryStore
	orch      *Orchestrator
}

func newFixture() *fixture {
	f := &fixture{
		generator: &fakeGenerator{fragments: []string{"Deep in ", "the woods."}},
		parser:    &fakeParser{parsed: twoSpeakerStory()},
		voices: &fakeVoiceSource{voices: []synth.Voice{
			{ID: "old", Name: "Old Voice"},
			{ID: "nova", Name: "Nova Bright"},
		}},
		streamer:  &fakeStreamer{},
		scheduler: &fakeScheduler{},
		notifier:  &fakeNotifier{},
		store:     NewMemoryStore(),
	}
	f.orch = NewOrchestrator(Config{
		Generator: f.generator,
		Parser:    f.parser,
		Voices:    f.voices,
		Streamer:  f.streamer,
		Scheduler: f.scheduler,
		Notifier:  f.notifier,
		Store:     f.store,
	})
	return f
}

func TestOrchestrator_Generate(t *testing.T) {
	f := newFixture()
	f.streamer.chunks = []synth.Chunk{
		{Index: 0, Audio: []byte("garbage"), Text: "Deep in the woods."},
		{Index: 1, Audio: []byte("garbage"), Text: "Who goes there?", Character: "Old Guard"},
	}

	err := f.orch.Generate(context.Background(), story.Options{Genre: "fantasy", Tone: "dramatic", Length: "short"})
	require.NoError(t, err)

	assert.Equal(t, "Deep in the woods.", f.parser.gotText)
	assert.Equal(t, "Deep in the woods.", f.store.StoryText())
	assert.Equal(t, twoSpeakerStory(), f.store.ParsedStory())

	plan := f.store.Plan()
	assert.Contains(t, plan.Assignments, "Old Guard")
	assert.Equal(t, plan.Assignments, f.streamer.gotAssignments)
	assert.Equal(t, plan.Narrator, f.streamer.gotNarrator)

	require.Len(t, f.scheduler.enqueued, 2)
	assert.Equal(t, 0, f.scheduler.enqueued[0].Index)
	assert.Equal(t, 1, f.scheduler.enqueued[1].Index)
	// The fake audio payloads cannot decode; silence is substituted, never
	// surfaced as a failure.
	assert.True(t, f.scheduler.enqueued[0].Silence)

	require.Equal(t, 1, f.notifier.count())
	assert.Equal(t, StagePlayback, f.notifier.stages[0])
	assert.Equal(t, 1, f.scheduler.begins)
}

func TestOrchestrator_GenerationFailure(t *testing.T) {
	f := newFixture()
	f.generator.fragments = nil
	f.generator.err = &story.GenerationError{Status: 500, Message: "upstream exploded"}

	err := f.orch.Generate(context.Background(), story.Options{})

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageGeneration, stageErr.Stage)

	// Exactly one notification, state rolled back, session torn down.
	assert.Equal(t, 1, f.notifier.count())
	assert.Empty(t, f.store.StoryText())
	assert.Nil(t, f.store.ParsedStory())
	assert.GreaterOrEqual(t, f.scheduler.stopCount(), 1)
}

func TestOrchestrator_GenerationTimeout(t *testing.T) {
	f := newFixture()
	f.generator.fragments = nil
	f.generator.err = fmt.Errorf("stream stalled: %w", context.DeadlineExceeded)

	err := f.orch.Generate(context.Background(), story.Options{})

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, StageGeneration, timeoutErr.Stage)
	assert.Equal(t, 1, f.notifier.count())
}

func TestOrchestrator_ParseFailure(t *testing.T) {
	f := newFixture()
	f.parser.parsed = nil
	f.parser.err = &story.ParseError{Reason: "no structured payload"}

	err := f.orch.Generate(context.Background(), story.Options{})

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageParsing, stageErr.Stage)
	assert.Equal(t, 1, f.notifier.count())
	assert.Contains(t, f.notifier.messages[0], "parsing")
	// The accumulated text from the failed run must not linger.
	assert.Empty(t, f.store.StoryText())
}

func TestOrchestrator_CastingFailure(t *testing.T) {
	f := newFixture()
	f.voices.err = errors.New("catalog unavailable")

	err := f.orch.Generate(context.Background(), story.Options{})

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageCasting, stageErr.Stage)
}

func TestOrchestrator_SynthesisFailure(t *testing.T) {
	f := newFixture()
	f.streamer.err = &synth.SynthesisError{Provider: "openai", Reason: "missing credentials"}

	err := f.orch.Generate(context.Background(), story.Options{})

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageSynthesis, stageErr.Stage)
	assert.Equal(t, 1, f.notifier.count())
	assert.Nil(t, f.store.ParsedStory())
}

func TestOrchestrator_ResetAbandonsInFlightRun(t *testing.T) {
	f := newFixture()
	f.generator.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		done <- f.orch.Generate(context.Background(), story.Options{})
	}()

	// Let the run get into the generation stage, then abandon it.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, f.orch.Reset())
	close(f.generator.block)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("abandoned run never returned")
	}

	// Nothing from the stale run may leak: no stored state, no
	// notifications.
	assert.Empty(t, f.store.StoryText())
	assert.Nil(t, f.store.ParsedStory())
	assert.Equal(t, 0, f.notifier.count())
}

func TestOrchestrator_PlaybackControlsDelegate(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.orch.Play())
	require.NoError(t, f.orch.Pause())
	require.NoError(t, f.orch.Stop())

	assert.Equal(t, 1, f.scheduler.plays)
	assert.Equal(t, 1, f.scheduler.pauses)
	assert.Equal(t, 1, f.scheduler.stops)
}

func TestMemoryStore_Reset(t *testing.T) {
	s := NewMemoryStore()
	s.SetStoryText("once upon a time")
	s.SetParsedStory(twoSpeakerStory())

	s.Reset()

	assert.Empty(t, s.StoryText())
	assert.Nil(t, s.ParsedStory())
	assert.Empty(t, s.Plan().Assignments)
}
