package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/fablecast/fablecast/internal/casting"
	"github.com/fablecast/fablecast/internal/config"
	"github.com/fablecast/fablecast/internal/story"
	"github.com/fablecast/fablecast/internal/synth"
)

// handleServe runs fablecast as an MCP server over stdio, exposing story
// narration and voice catalog tools to MCP clients.
func handleServe(ctx context.Context, c *cli.Command) error {
	cfg := config.Load()

	s := server.NewMCPServer("fablecast", version)

	narrate := mcp.NewTool("narrate_story",
		mcp.WithDescription("Generate a short story, segment it, and cast a synthesis voice for every speaking character. Returns the segmented story with the voice cast."),
		mcp.WithString("genre", mcp.Description("Story genre (fantasy, mystery, romance, adventure, horror)")),
		mcp.WithString("tone", mcp.Description("Narration tone (formal, casual, dramatic, whimsical)")),
		mcp.WithString("length", mcp.Description("Story length (short, medium, long)")),
		mcp.WithString("themes", mcp.Description("Comma-separated themes to weave in")),
		mcp.WithNumber("magic", mcp.Description("Magic level 0-3")),
		mcp.WithNumber("spice", mcp.Description("Romance level 0-3")),
		mcp.WithString("provider", mcp.Description("Synthesis provider whose voice catalog to cast from")),
	)
	s.AddTool(narrate, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := narrateStory(ctx, cfg, req)
		if err != nil {
			log.Error().Err(err).Msg("narrate_story failed")
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(result), nil
	})

	listVoices := mcp.NewTool("list_voices",
		mcp.WithDescription("List the voices available from a synthesis provider."),
		mcp.WithString("provider", mcp.Description("Synthesis provider (openai, elevenlabs, gcp, polly)")),
	)
	s.AddTool(listVoices, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		provider, err := synth.NewProvider(ctx, req.GetString("provider", cfg.Provider), synth.ProviderConfig{
			OpenAIKey:     cfg.OpenAIKey,
			ElevenLabsKey: cfg.ElevenLabsKey,
			AWSRegion:     cfg.AWSRegion,
			GCPLanguage:   cfg.GCPLanguage,
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		voices, err := provider.ListVoices(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var sb strings.Builder
		for _, v := range voices {
			fmt.Fprintf(&sb, "%s\t%s\t%s\n", v.ID, v.Name, v.Gender)
		}
		return mcp.NewToolResultText(sb.String()), nil
	})

	log.Info().Msg("starting MCP server on stdio")
	return server.ServeStdio(s)
}

// narrateStory runs generation, parsing, and casting; synthesis and playback
// stay client-side.
func narrateStory(ctx context.Context, cfg config.Config, req mcp.CallToolRequest) (string, error) {
	opts := story.Options{
		Genre:      req.GetString("genre", "fantasy"),
		Tone:       req.GetString("tone", "whimsical"),
		Length:     story.Length(req.GetString("length", "short")),
		MagicLevel: req.GetInt("magic", 2),
		SpiceLevel: req.GetInt("spice", 0),
	}
	if themes := req.GetString("themes", ""); themes != "" {
		for _, theme := range strings.Split(themes, ",") {
			opts.Themes = append(opts.Themes, strings.TrimSpace(theme))
		}
	}

	generator := story.NewGenerator(cfg.GenerationKey,
		story.WithBaseURL(cfg.GenerationBaseURL),
		story.WithModel(cfg.GenerationModel),
		story.WithGenerationTimeout(cfg.GenerationTimeout),
	)

	fragments, errs := generator.Stream(ctx, opts)
	var text strings.Builder
	for fragments != nil || errs != nil {
		select {
		case frag, ok := <-fragments:
			if !ok {
				fragments = nil
				continue
			}
			text.WriteString(frag)
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

	parsed, err := story.NewParser(generator).Parse(ctx, text.String())
	if err != nil {
		return "", err
	}

	provider, err := synth.NewProvider(ctx, req.GetString("provider", cfg.Provider), synth.ProviderConfig{
		OpenAIKey:     cfg.OpenAIKey,
		ElevenLabsKey: cfg.ElevenLabsKey,
		AWSRegion:     cfg.AWSRegion,
		GCPLanguage:   cfg.GCPLanguage,
	})
	if err != nil {
		return "", err
	}
	voices, err := provider.ListVoices(ctx)
	if err != nil {
		return "", err
	}

	plan := casting.BuildPlan(casting.NewEngine(), parsed, casting.StoryAttributes{
		Tone:   opts.Tone,
		Length: string(opts.Length),
		Genre:  opts.Genre,
	}, voices)

	var sb strings.Builder
	for _, seg := range parsed.Segments {
		switch seg.Type {
		case story.SegmentDialogue:
			fmt.Fprintf(&sb, "%s: %s\n", seg.Character, seg.Text)
		case story.SegmentAction:
			fmt.Fprintf(&sb, "[%s]\n", seg.Text)
		default:
			fmt.Fprintf(&sb, "%s\n", seg.Text)
		}
	}
	sb.WriteString("\nCast:\n")
	for name, rec := range plan.Recommendations {
		fmt.Fprintf(&sb, "  %s -> %s (%s)\n", name, rec.VoiceName, rec.Reasoning)
	}
	fmt.Fprintf(&sb, "  narrator -> %s\n", plan.Narrator.Name)

	return sb.String(), nil
}
