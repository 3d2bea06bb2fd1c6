package synth

import (
	"context"
	"fmt"
	"os"
)

// ProviderConfig carries the credentials and defaults the factory needs.
// Empty fields fall back to the conventional environment variables.
type ProviderConfig struct {
	OpenAIKey     string
	ElevenLabsKey string
	AWSRegion     string
	GCPLanguage   string
}

// ProviderNames lists the providers the factory can create.
func ProviderNames() []string {
	return []string{"openai", "elevenlabs", "gcp", "polly"}
}

// NewProvider creates a provider by name.
func NewProvider(ctx context.Context, name string, cfg ProviderConfig) (Provider, error) {
	switch name {
	case "openai":
		key := cfg.OpenAIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("OpenAI API key not found in config or OPENAI_API_KEY environment variable")
		}
		return NewOpenAIProvider(key), nil

	case "elevenlabs":
		key := cfg.ElevenLabsKey
		if key == "" {
			key = os.Getenv("ELEVENLABS_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("ElevenLabs API key not found in config or ELEVENLABS_API_KEY environment variable")
		}
		return NewElevenLabsProvider(key), nil

	case "gcp":
		return NewGCPProvider(ctx, cfg.GCPLanguage)

	case "polly":
		region := cfg.AWSRegion
		if region == "" {
			region = os.Getenv("AWS_REGION")
		}
		return NewPollyProvider(ctx, region)

	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
}
