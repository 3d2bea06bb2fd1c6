package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/fablecast/fablecast/internal/config"
	"github.com/fablecast/fablecast/internal/synth"
)

func handleVoices(ctx context.Context, c *cli.Command) error {
	cfg := config.Load()

	providerName := c.String("provider")
	if providerName == "" {
		providerName = cfg.Provider
	}
	providerCfg := synth.ProviderConfig{
		OpenAIKey:     cfg.OpenAIKey,
		ElevenLabsKey: cfg.ElevenLabsKey,
		AWSRegion:     cfg.AWSRegion,
		GCPLanguage:   cfg.GCPLanguage,
	}

	var voices []synth.Voice
	if providerName == "all" {
		all, err := synth.NewFullCatalog(ctx, providerCfg).ListVoices(ctx)
		if err != nil {
			return fmt.Errorf("failed to list voices: %w", err)
		}
		voices = all
	} else {
		provider, err := synth.NewProvider(ctx, providerName, providerCfg)
		if err != nil {
			return fmt.Errorf("failed to create synthesis provider: %w", err)
		}
		listed, err := provider.ListVoices(ctx)
		if err != nil {
			return fmt.Errorf("failed to list voices: %w", err)
		}
		voices = listed
	}

	color.Cyan("%s voices:", providerName)
	for _, v := range voices {
		line := fmt.Sprintf("  %-24s %s", v.ID, v.Name)
		if v.Gender != "" {
			line += fmt.Sprintf(" (%s)", v.Gender)
		}
		if v.Description != "" {
			line += " - " + v.Description
		}
		fmt.Println(line)
	}
	fmt.Printf("\n%d voices\n", len(voices))
	return nil
}
