package synth

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Catalog aggregates the voice lists of several providers. Providers that
// are unavailable or fail to list are skipped with a warning; the aggregate
// only errors when no provider contributed anything.
type Catalog struct {
	providers []Provider
}

// NewCatalog builds a catalog over the given providers. Aggregation order
// follows the argument order, so listings are deterministic.
func NewCatalog(providers ...Provider) *Catalog {
	return &Catalog{providers: providers}
}

// ListVoices returns every voice from every usable provider, in provider
// order.
func (c *Catalog) ListVoices(ctx context.Context) ([]Voice, error) {
	var all []Voice
	contributed := 0
	for _, p := range c.providers {
		if !p.IsAvailable(ctx) {
			log.Debug().Str("provider", p.Name()).Msg("Provider unavailable, skipping in catalog")
			continue
		}
		voices, err := p.ListVoices(ctx)
		if err != nil {
			log.Warn().Err(err).Str("provider", p.Name()).Msg("Failed to get voices from provider")
			continue
		}
		all = append(all, voices...)
		contributed++
	}
	if contributed == 0 {
		return nil, fmt.Errorf("no synthesis provider is available")
	}
	return all, nil
}

// NewFullCatalog assembles a catalog over every provider that can be
// constructed from cfg. Construction failures (missing keys, no
// credentials) just leave that provider out.
func NewFullCatalog(ctx context.Context, cfg ProviderConfig) *Catalog {
	var providers []Provider
	for _, name := range ProviderNames() {
		p, err := NewProvider(ctx, name, cfg)
		if err != nil {
			log.Debug().Err(err).Str("provider", name).Msg("Provider not configured, skipping in catalog")
			continue
		}
		providers = append(providers, p)
	}
	return NewCatalog(providers...)
}
