package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

var (
	version  = "dev"
	revision = "none"
)

func main() {
	// Setup logger
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	app := &cli.Command{
		Name:  "fablecast",
		Usage: "Generate short stories and narrate them with per-character voices",
		Description: `fablecast turns a one-line premise into a narrated audio story.
It streams story text from a generation backend, splits it into narration,
dialogue, and action segments, casts a synthesis voice for every speaking
character, and plays the result back gap-free.`,
		Version: fmt.Sprintf("%s (rev: %s)", version, revision),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"V"},
				Usage:   "Enable verbose logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:    "tell",
				Usage:   "Generate a story and narrate it",
				Action:  handleTell,
				Aliases: []string{"t"},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "genre",
						Usage: "Story genre (fantasy, mystery, romance, adventure, horror)",
						Value: "fantasy",
					},
					&cli.StringFlag{
						Name:  "tone",
						Usage: "Narration tone (formal, casual, dramatic, whimsical)",
						Value: "whimsical",
					},
					&cli.StringFlag{
						Name:  "length",
						Usage: "Story length (short, medium, long)",
						Value: "short",
					},
					&cli.StringSliceFlag{
						Name:  "theme",
						Usage: "Themes to weave in (repeatable)",
					},
					&cli.StringFlag{
						Name:  "protagonist",
						Usage: "Protagonist description",
					},
					&cli.IntFlag{
						Name:  "magic",
						Usage: "Magic level 0-3",
						Value: 2,
					},
					&cli.IntFlag{
						Name:  "spice",
						Usage: "Romance level 0-3",
						Value: 0,
					},
					&cli.StringFlag{
						Name:  "provider",
						Usage: "Synthesis provider (openai, elevenlabs, gcp, polly)",
					},
					&cli.BoolFlag{
						Name:  "text-only",
						Usage: "Print the generated story without synthesizing audio",
					},
				},
			},
			{
				Name:      "parse",
				Usage:     "Segment story text into narration/dialogue/action and print it",
				Action:    handleParse,
				ArgsUsage: "<file>",
			},
			{
				Name:    "voices",
				Usage:   "List voices available from a synthesis provider",
				Action:  handleVoices,
				Aliases: []string{"v"},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "provider",
						Usage: "Synthesis provider (openai, elevenlabs, gcp, polly, or all)",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Run as an MCP server over stdio",
				Action: handleServe,
			},
		},
	}

	// Set up verbose logging before command execution
	app.Before = func(ctx context.Context, c *cli.Command) error {
		if c.Bool("verbose") {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
		return nil
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
