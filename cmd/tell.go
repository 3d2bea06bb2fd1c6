package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/fablecast/fablecast/internal/config"
	"github.com/fablecast/fablecast/internal/pipeline"
	"github.com/fablecast/fablecast/internal/playback"
	"github.com/fablecast/fablecast/internal/story"
	"github.com/fablecast/fablecast/internal/synth"
)

// consoleNotifier prints stage messages for the user; errors in red,
// everything else in green.
type consoleNotifier struct{}

func (consoleNotifier) Notify(stage pipeline.Stage, message string) {
	if stage == pipeline.StagePlayback && message == "Story ready to play" {
		color.Green("✓ %s", message)
		return
	}
	color.Red("✗ [%s] %s", stage, message)
}

func handleTell(ctx context.Context, c *cli.Command) error {
	cfg := config.Load()

	opts := story.Options{
		Genre:       c.String("genre"),
		Tone:        c.String("tone"),
		Length:      story.Length(c.String("length")),
		Themes:      c.StringSlice("theme"),
		Protagonist: c.String("protagonist"),
		MagicLevel:  int(c.Int("magic")),
		SpiceLevel:  int(c.Int("spice")),
	}

	generator := story.NewGenerator(cfg.GenerationKey,
		story.WithBaseURL(cfg.GenerationBaseURL),
		story.WithModel(cfg.GenerationModel),
		story.WithGenerationTimeout(cfg.GenerationTimeout),
	)

	if c.Bool("text-only") {
		return streamToStdout(ctx, generator, opts)
	}

	providerName := c.String("provider")
	if providerName == "" {
		providerName = cfg.Provider
	}
	provider, err := synth.NewProvider(ctx, providerName, synth.ProviderConfig{
		OpenAIKey:     cfg.OpenAIKey,
		ElevenLabsKey: cfg.ElevenLabsKey,
		AWSRegion:     cfg.AWSRegion,
		GCPLanguage:   cfg.GCPLanguage,
	})
	if err != nil {
		return fmt.Errorf("failed to create synthesis provider: %w", err)
	}

	device, err := playback.NewOtoDevice()
	if err != nil {
		return fmt.Errorf("failed to open audio device: %w", err)
	}
	scheduler := playback.NewScheduler(device)
	defer scheduler.Close()

	orch := pipeline.NewOrchestrator(pipeline.Config{
		Generator: generator,
		Parser:    story.NewParser(generator),
		Voices:    provider,
		Streamer:  synth.NewStreamer(provider, synth.WithSegmentTimeout(cfg.SegmentTimeout)),
		Scheduler: scheduler,
		Notifier:  consoleNotifier{},
		Store:     pipeline.NewMemoryStore(),
	})

	color.Cyan("Generating a %s %s story...", opts.Tone, opts.Genre)
	if err := orch.Generate(ctx, opts); err != nil {
		return err
	}

	printStory(orch.Store().(*pipeline.MemoryStore))

	if err := orch.Play(); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}
	return waitForPlayback(ctx, scheduler, orch)
}

// streamToStdout prints fragments as they arrive, no synthesis.
func streamToStdout(ctx context.Context, generator *story.Generator, opts story.Options) error {
	fragments, errs := generator.Stream(ctx, opts)
	for fragments != nil || errs != nil {
		select {
		case frag, ok := <-fragments:
			if !ok {
				fragments = nil
				continue
			}
			fmt.Print(frag)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return err
			}
		}
	}
	fmt.Println()
	return nil
}

func printStory(store *pipeline.MemoryStore) {
	parsed := store.ParsedStory()
	if parsed == nil {
		return
	}
	plan := store.Plan()

	fmt.Println()
	for _, seg := range parsed.Segments {
		switch seg.Type {
		case story.SegmentDialogue:
			color.Yellow("%s: %s", seg.Character, seg.Text)
		case story.SegmentAction:
			color.Blue("[%s]", seg.Text)
		default:
			fmt.Println(seg.Text)
		}
	}

	fmt.Println()
	color.Cyan("Cast:")
	for name, rec := range plan.Recommendations {
		fmt.Printf("  %s → %s (%.0f%%)\n", name, rec.VoiceName, rec.Confidence*100)
	}
	fmt.Printf("  narrator → %s\n", plan.Narrator.Name)
	fmt.Println()
}

// waitForPlayback blocks until the session plays out or the user interrupts.
func waitForPlayback(ctx context.Context, scheduler *playback.Scheduler, orch *pipeline.Orchestrator) error {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-interrupt:
			log.Debug().Msg("interrupted, stopping playback")
			return orch.Stop()
		case <-ctx.Done():
			return orch.Stop()
		case <-ticker.C:
			if scheduler.State() == playback.StateIdle {
				return nil
			}
		}
	}
}
