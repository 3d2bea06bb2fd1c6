package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	openAIBaseURL     = "https://api.openai.com/v1"
	openAITTSEndpoint = "/audio/speech"
)

// OpenAIProvider implements Provider against the OpenAI Audio API.
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOpenAIProvider creates an OpenAI TTS provider.
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	return &OpenAIProvider{
		apiKey:  apiKey,
		baseURL: openAIBaseURL,
		model:   "tts-1",
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// ListVoices returns the fixed OpenAI voice catalog. The descriptive labels
// matter: voice scoring matches against them.
func (p *OpenAIProvider) ListVoices(ctx context.Context) ([]Voice, error) {
	return []Voice{
		{ID: "alloy", Name: "Alloy", Language: "en", Gender: "neutral", Description: "Balanced, clear voice"},
		{ID: "echo", Name: "Echo Deep", Language: "en", Gender: "male", Description: "Deep, resonant voice"},
		{ID: "fable", Name: "Fable", Language: "en", Gender: "neutral", Description: "Expressive, storytelling voice"},
		{ID: "onyx", Name: "Onyx Dark", Language: "en", Gender: "male", Description: "Strong, authoritative voice"},
		{ID: "nova", Name: "Nova Bright", Language: "en", Gender: "female", Description: "Bright, energetic voice"},
		{ID: "shimmer", Name: "Shimmer Warm", Language: "en", Gender: "female", Description: "Warm, friendly voice"},
	}, nil
}

// Synthesize generates audio for one segment's text.
func (p *OpenAIProvider) Synthesize(ctx context.Context, text string, options Options) (io.ReadCloser, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	voice := options.Voice
	if voice == "" {
		voice = DefaultNarrator.ID
	}

	model := options.Model
	if model == "" {
		model = p.model
	}

	format := options.Format
	if format == "" {
		format = "wav"
	}

	speed := options.Speed
	if speed <= 0 {
		speed = 1.0
	}
	if speed < 0.25 {
		speed = 0.25
	}
	if speed > 4.0 {
		speed = 4.0
	}

	requestBody := map[string]interface{}{
		"model":           model,
		"input":           text,
		"voice":           voice,
		"response_format": format,
		"speed":           speed,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := p.baseURL + openAITTSEndpoint
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	log.Debug().
		Str("voice", voice).
		Str("model", model).
		Str("format", format).
		Int("text_len", len(text)).
		Msg("Making OpenAI TTS request")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("OpenAI API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return resp.Body, nil
}

// IsAvailable reports whether the provider is usable. An empty API key is
// the common failure and is detected without a network round trip.
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	return strings.TrimSpace(p.apiKey) != ""
}
