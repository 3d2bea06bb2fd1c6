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
	elevenLabsBaseURL        = "https://api.elevenlabs.io/v1"
	elevenLabsTTSEndpoint    = "/text-to-speech"
	elevenLabsVoicesEndpoint = "/voices"
)

// ElevenLabsProvider implements Provider against the ElevenLabs TTS API v1.
type ElevenLabsProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewElevenLabsProvider creates an ElevenLabs TTS provider.
func NewElevenLabsProvider(apiKey string) *ElevenLabsProvider {
	return &ElevenLabsProvider{
		apiKey:  apiKey,
		baseURL: elevenLabsBaseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second, // ElevenLabs can be slower than OpenAI
		},
	}
}

// Name returns the provider name.
func (p *ElevenLabsProvider) Name() string {
	return "elevenlabs"
}

type elevenLabsVoice struct {
	VoiceID     string            `json:"voice_id"`
	Name        string            `json:"name"`
	Labels      map[string]string `json:"labels"`
	Description string            `json:"description"`
}

type elevenLabsVoicesResponse struct {
	Voices []elevenLabsVoice `json:"voices"`
}

// ListVoices fetches the voice catalog from the ElevenLabs account.
func (p *ElevenLabsProvider) ListVoices(ctx context.Context) ([]Voice, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", p.baseURL+elevenLabsVoicesEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create voices request: %w", err)
	}
	req.Header.Set("xi-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make voices request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ElevenLabs voices API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var voicesResp elevenLabsVoicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&voicesResp); err != nil {
		return nil, fmt.Errorf("failed to decode voices response: %w", err)
	}

	voices := make([]Voice, 0, len(voicesResp.Voices))
	for _, v := range voicesResp.Voices {
		voices = append(voices, Voice{
			ID:          v.VoiceID,
			Name:        v.Name,
			Gender:      v.Labels["gender"],
			Description: v.Description,
		})
	}

	log.Debug().Int("count", len(voices)).Msg("Listed ElevenLabs voices")
	return voices, nil
}

type elevenLabsTTSRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id,omitempty"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize generates audio for one segment's text.
func (p *ElevenLabsProvider) Synthesize(ctx context.Context, text string, options Options) (io.ReadCloser, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}
	if options.Voice == "" {
		return nil, fmt.Errorf("voice id is required for ElevenLabs")
	}

	payload := elevenLabsTTSRequest{
		Text:    text,
		ModelID: options.Model,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.5,
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	apiFormat, pcmRate, wrapWAV, err := convertElevenLabsFormat(options.Format)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s%s/%s?output_format=%s", p.baseURL, elevenLabsTTSEndpoint, options.Voice, apiFormat)

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", p.apiKey)

	log.Debug().
		Str("voice", options.Voice).
		Str("output_format", apiFormat).
		Int("text_len", len(text)).
		Msg("Making ElevenLabs TTS request")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ElevenLabs API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	if wrapWAV {
		defer resp.Body.Close()
		pcm, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read audio stream: %w", err)
		}
		return io.NopCloser(bytes.NewReader(wrapPCMInWAV(pcm, pcmRate))), nil
	}
	return resp.Body, nil
}

// convertElevenLabsFormat maps generic format names to the output_format
// values the ElevenLabs API defines. The API has no WAV output, so the
// default path requests raw PCM and reports the sample rate so the caller
// can wrap it in a RIFF header.
func convertElevenLabsFormat(format string) (apiFormat string, pcmRate int, wrapWAV bool, err error) {
	switch strings.ToLower(format) {
	case "", "wav", "wave":
		return "pcm_24000", 24000, true, nil
	case "pcm":
		return "pcm_24000", 24000, false, nil
	case "mp3", "mpeg":
		return "mp3_44100_128", 0, false, nil
	case "ulaw":
		return "ulaw_8000", 0, false, nil
	default:
		return "", 0, false, fmt.Errorf("unsupported audio format: %s", format)
	}
}

// IsAvailable reports whether the provider is usable.
func (p *ElevenLabsProvider) IsAvailable(ctx context.Context) bool {
	return strings.TrimSpace(p.apiKey) != ""
}
