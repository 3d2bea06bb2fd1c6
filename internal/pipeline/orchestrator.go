package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/fablecast/fablecast/internal/casting"
	"github.com/fablecast/fablecast/internal/playback"
	"github.com/fablecast/fablecast/internal/story"
	"github.com/fablecast/fablecast/internal/synth"
)

// Generator streams incremental story text fragments.
type Generator interface {
	Stream(ctx context.Context, opts story.Options) (<-chan string, <-chan error)
}

// Parser turns accumulated story text into typed segments plus a roster.
type Parser interface {
	Parse(ctx context.Context, text string) (*story.ParsedStory, error)
}

// VoiceSource supplies the voice catalog casting ranks against.
type VoiceSource interface {
	ListVoices(ctx context.Context) ([]synth.Voice, error)
}

// Streamer synthesizes parsed segments into ordered audio chunks.
type Streamer interface {
	Stream(ctx context.Context, parsed *story.ParsedStory, assignments map[string]string, narrator synth.NarratorVoice) (<-chan synth.Chunk, error)
}

// Scheduler is the playback session the orchestrator feeds decoded buffers.
type Scheduler interface {
	Begin() error
	Enqueue(buf playback.Buffer) error
	Play() error
	Pause() error
	Stop() error
}

// Notifier receives exactly one human-readable message per stage outcome.
type Notifier interface {
	Notify(stage Stage, message string)
}

// Orchestrator runs the full pipeline and owns run lifecycle: one active run
// at a time, and callbacks from an abandoned run are discarded rather than
// leaking state into the next one.
type Orchestrator struct {
	generator Generator
	parser    Parser
	voices    VoiceSource
	streamer  Streamer
	scheduler Scheduler
	engine    *casting.Engine
	notifier  Notifier
	store     Store

	// run is the active run token; a run whose token is stale must not
	// write to the store or notify.
	run    atomic.Uint64
	mu     sync.Mutex
	cancel context.CancelFunc
}

// Config wires the orchestrator's collaborators.
type Config struct {
	Generator Generator
	Parser    Parser
	Voices    VoiceSource
	Streamer  Streamer
	Scheduler Scheduler
	Engine    *casting.Engine
	Notifier  Notifier
	Store     Store
}

func NewOrchestrator(cfg Config) *Orchestrator {
	engine := cfg.Engine
	if engine == nil {
		engine = casting.NewEngine()
	}
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	return &Orchestrator{
		generator: cfg.Generator,
		parser:    cfg.Parser,
		voices:    cfg.Voices,
		streamer:  cfg.Streamer,
		scheduler: cfg.Scheduler,
		engine:    engine,
		notifier:  cfg.Notifier,
		store:     store,
	}
}

// Generate runs text generation through playback scheduling. On success the
// scheduler session is ready to play; on a stage failure the pipeline stops,
// state is rolled back, and exactly one stage-tagged notification is sent.
func (o *Orchestrator) Generate(ctx context.Context, opts story.Options) error {
	token := o.run.Add(1)

	ctx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
	}
	o.cancel = cancel
	o.mu.Unlock()
	defer cancel()

	if err := o.scheduler.Begin(); err != nil {
		return o.fail(token, StagePlayback, err)
	}

	text, err := o.generateText(ctx, token, opts)
	if err != nil {
		return o.fail(token, StageGeneration, err)
	}

	parsed, err := o.parser.Parse(ctx, text)
	if err != nil {
		return o.fail(token, StageParsing, err)
	}
	if !o.commit(token, func() { o.store.SetParsedStory(parsed) }) {
		return nil
	}

	voices, err := o.voices.ListVoices(ctx)
	if err != nil {
		return o.fail(token, StageCasting, err)
	}
	plan := casting.BuildPlan(o.engine, parsed, casting.StoryAttributes{
		Tone:   opts.Tone,
		Length: string(opts.Length),
		Genre:  opts.Genre,
	}, voices)
	if !o.commit(token, func() { o.store.SetPlan(plan) }) {
		return nil
	}

	if err := o.synthesize(ctx, token, parsed, plan); err != nil {
		return o.fail(token, StageSynthesis, err)
	}

	if o.current(token) {
		o.notify(StagePlayback, "Story ready to play")
	}
	return nil
}

// generateText drains the fragment stream, keeping the accumulated text
// visible in the store as it grows.
func (o *Orchestrator) generateText(ctx context.Context, token uint64, opts story.Options) (string, error) {
	fragments, errs := o.generator.Stream(ctx, opts)

	var sb strings.Builder
	for fragments != nil || errs != nil {
		select {
		case frag, ok := <-fragments:
			if !ok {
				fragments = nil
				continue
			}
			sb.WriteString(frag)
			if !o.commit(token, func() { o.store.SetStoryText(sb.String()) }) {
				return "", context.Canceled
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return "", err
			}
		}
	}

	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("generation produced no text")
	}
	return text, nil
}

// synthesize feeds ordered chunks into the scheduler, substituting silence
// for chunks that fail to decode so timing is undisturbed.
func (o *Orchestrator) synthesize(ctx context.Context, token uint64, parsed *story.ParsedStory, plan casting.Plan) error {
	chunks, err := o.streamer.Stream(ctx, parsed, plan.Assignments, plan.Narrator)
	if err != nil {
		return err
	}

	for chunk := range chunks {
		if !o.current(token) {
			return context.Canceled
		}
		buf, decodeErr := playback.DecodeChunk(chunk.Index, chunk.Audio, chunk.Text, chunk.Character)
		if decodeErr != nil {
			log.Warn().Err(decodeErr).Int("index", chunk.Index).Msg("substituting silence for undecodable chunk")
		}
		if err := o.scheduler.Enqueue(buf); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// Play starts or resumes the scheduled session.
func (o *Orchestrator) Play() error { return o.scheduler.Play() }

// Pause freezes playback in place.
func (o *Orchestrator) Pause() error { return o.scheduler.Pause() }

// Stop tears down the playback session.
func (o *Orchestrator) Stop() error { return o.scheduler.Stop() }

// Reset abandons any in-flight run, stops playback, and clears all stored
// state. Late callbacks from the abandoned run are ignored.
func (o *Orchestrator) Reset() error {
	o.run.Add(1)

	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.mu.Unlock()

	o.store.Reset()
	return o.scheduler.Stop()
}

// Store exposes the orchestrator's state surface for display.
func (o *Orchestrator) Store() Store { return o.store }

func (o *Orchestrator) current(token uint64) bool {
	return o.run.Load() == token
}

// commit runs a store write only if the run is still current.
func (o *Orchestrator) commit(token uint64, write func()) bool {
	if !o.current(token) {
		return false
	}
	write()
	return true
}

// fail rolls the pipeline back after a stage error: playback session torn
// down, partial state cleared, and one stage-tagged notification sent. A
// stale run fails silently.
func (o *Orchestrator) fail(token uint64, stage Stage, err error) error {
	wrapped := classify(stage, err)
	if !o.current(token) {
		log.Debug().Err(wrapped).Msg("abandoned run failed after reset")
		return nil
	}

	if stopErr := o.scheduler.Stop(); stopErr != nil {
		log.Warn().Err(stopErr).Msg("failed to stop playback session during rollback")
	}
	o.store.Reset()
	o.notify(stage, wrapped.Error())

	log.Error().Err(err).Str("stage", string(stage)).Msg("pipeline stage failed")
	return wrapped
}

func (o *Orchestrator) notify(stage Stage, message string) {
	if o.notifier != nil {
		o.notifier.Notify(stage, message)
	}
}
