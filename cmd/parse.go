package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/fablecast/fablecast/internal/config"
	"github.com/fablecast/fablecast/internal/story"
)

func handleParse(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() < 1 {
		return fmt.Errorf("usage: fablecast parse <file>")
	}

	text, err := os.ReadFile(c.Args().First())
	if err != nil {
		return fmt.Errorf("failed to read story file: %w", err)
	}

	cfg := config.Load()
	generator := story.NewGenerator(cfg.GenerationKey,
		story.WithBaseURL(cfg.GenerationBaseURL),
		story.WithModel(cfg.GenerationModel),
		story.WithGenerationTimeout(cfg.GenerationTimeout),
	)

	parsed, err := story.NewParser(generator).Parse(ctx, string(text))
	if err != nil {
		return err
	}

	for i, seg := range parsed.Segments {
		switch seg.Type {
		case story.SegmentDialogue:
			color.Yellow("%3d dialogue  %s: %s", i, seg.Character, seg.Text)
		case story.SegmentAction:
			color.Blue("%3d action    %s", i, seg.Text)
		default:
			fmt.Printf("%3d narration %s\n", i, seg.Text)
		}
	}

	fmt.Println()
	color.Cyan("Characters:")
	for _, ch := range parsed.Characters {
		fmt.Printf("  %s (%d lines)\n", ch.Name, ch.Appearances)
	}
	return nil
}
