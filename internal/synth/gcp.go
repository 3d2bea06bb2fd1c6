package synth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GCPClient is the subset of the Cloud Text-to-Speech client the provider
// needs. *texttospeech.Client satisfies it; tests substitute a mock.
type GCPClient interface {
	ListVoices(ctx context.Context, req *texttospeechpb.ListVoicesRequest, opts ...gax.CallOption) (*texttospeechpb.ListVoicesResponse, error)
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
}

// GCPProvider implements Provider against Google Cloud Text-to-Speech.
// Authentication is handled via GOOGLE_APPLICATION_CREDENTIALS or
// Application Default Credentials.
type GCPProvider struct {
	client   GCPClient
	language string
}

// NewGCPProvider creates a Google Cloud TTS provider.
func NewGCPProvider(ctx context.Context, language string) (*GCPProvider, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP TTS client: %w", err)
	}
	if language == "" {
		language = "en-US"
	}
	return &GCPProvider{client: client, language: language}, nil
}

// Name returns the provider name.
func (p *GCPProvider) Name() string {
	return "gcp"
}

// ListVoices returns the Cloud TTS voice catalog for the configured
// language.
func (p *GCPProvider) ListVoices(ctx context.Context) ([]Voice, error) {
	resp, err := p.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{
		LanguageCode: p.language,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list GCP voices: %w", err)
	}

	var voices []Voice
	for _, v := range resp.Voices {
		gender := "neutral"
		switch v.SsmlGender {
		case texttospeechpb.SsmlVoiceGender_MALE:
			gender = "male"
		case texttospeechpb.SsmlVoiceGender_FEMALE:
			gender = "female"
		}

		lang := p.language
		if len(v.LanguageCodes) > 0 {
			lang = v.LanguageCodes[0]
		}

		voices = append(voices, Voice{
			ID:          v.Name,
			Name:        v.Name,
			Language:    lang,
			Gender:      gender,
			Description: fmt.Sprintf("%s voice (%s)", detectGCPEngineType(v.Name), lang),
		})
	}

	log.Debug().Int("count", len(voices)).Msg("Listed GCP TTS voices")
	return voices, nil
}

func detectGCPEngineType(voiceName string) string {
	name := strings.ToLower(voiceName)
	switch {
	case strings.Contains(name, "wavenet"):
		return "WaveNet"
	case strings.Contains(name, "neural2"):
		return "Neural2"
	case strings.Contains(name, "studio"):
		return "Studio"
	default:
		return "Standard"
	}
}

// Synthesize generates audio for one segment's text. LINEAR16 output is the
// default so the playback decoder receives PCM-bearing WAV.
func (p *GCPProvider) Synthesize(ctx context.Context, text string, options Options) (io.ReadCloser, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	voice := options.Voice
	language := options.Language
	if language == "" {
		// Voice names embed the language, e.g. en-US-Neural2-D.
		parts := strings.Split(voice, "-")
		if len(parts) >= 2 {
			language = parts[0] + "-" + parts[1]
		} else {
			language = p.language
		}
	}

	var input *texttospeechpb.SynthesisInput
	if isSSML(text) {
		input = &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Ssml{Ssml: text},
		}
	} else {
		input = &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		}
	}

	speakingRate := options.Speed
	if speakingRate <= 0 {
		speakingRate = 1.0
	}

	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: input,
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: language,
			Name:         voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: gcpAudioEncoding(options.Format),
			SpeakingRate:  speakingRate,
		},
	}

	log.Debug().
		Str("voice", voice).
		Str("language", language).
		Int("text_len", len(text)).
		Msg("Making GCP TTS request")

	resp, err := p.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}

	return io.NopCloser(bytes.NewReader(resp.AudioContent)), nil
}

func gcpAudioEncoding(format string) texttospeechpb.AudioEncoding {
	switch strings.ToLower(format) {
	case "mp3":
		return texttospeechpb.AudioEncoding_MP3
	case "ogg":
		return texttospeechpb.AudioEncoding_OGG_OPUS
	default:
		return texttospeechpb.AudioEncoding_LINEAR16
	}
}

// IsAvailable reports whether the provider is usable. Authentication
// problems surface as gRPC Unauthenticated/PermissionDenied.
func (p *GCPProvider) IsAvailable(ctx context.Context) bool {
	if p.client == nil {
		return false
	}
	_, err := p.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{LanguageCode: p.language})
	if err != nil {
		code := status.Code(err)
		if code == codes.Unauthenticated || code == codes.PermissionDenied {
			log.Debug().Err(err).Msg("GCP TTS credentials rejected")
		} else {
			log.Debug().Err(err).Str("code", code.String()).Msg("GCP TTS availability check failed")
		}
		return false
	}
	return true
}

// isSSML checks whether text already carries SSML markup.
func isSSML(text string) bool {
	trimmed := strings.TrimSpace(text)
	return strings.HasPrefix(trimmed, "<speak") ||
		strings.Contains(trimmed, "<prosody") ||
		strings.Contains(trimmed, "<break")
}
