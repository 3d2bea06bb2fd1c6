package synth

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PollyClient is the subset of the Polly client the provider needs. Tests
// substitute a mock.
type PollyClient interface {
	DescribeVoices(ctx context.Context, params *polly.DescribeVoicesInput, optFns ...func(*polly.Options)) (*polly.DescribeVoicesOutput, error)
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// PollyProvider implements Provider against Amazon Polly.
type PollyProvider struct {
	client PollyClient
	region string
}

// NewPollyProvider creates an Amazon Polly TTS provider using the default
// AWS credential chain.
func NewPollyProvider(ctx context.Context, region string) (*PollyProvider, error) {
	if region == "" {
		region = "us-east-1"
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &PollyProvider{
		client: polly.NewFromConfig(cfg),
		region: region,
	}, nil
}

// Name returns the provider name.
func (p *PollyProvider) Name() string {
	return "polly"
}

// ListVoices returns the English Polly voice catalog.
func (p *PollyProvider) ListVoices(ctx context.Context) ([]Voice, error) {
	result, err := p.client.DescribeVoices(ctx, &polly.DescribeVoicesInput{
		LanguageCode: types.LanguageCodeEnUs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list Polly voices: %w", err)
	}

	voices := make([]Voice, 0, len(result.Voices))
	for _, v := range result.Voices {
		voice := Voice{
			ID:       string(v.Id),
			Name:     aws.ToString(v.Name),
			Language: string(v.LanguageCode),
			Description: fmt.Sprintf("%s voice, %s engine supported",
				cases.Title(language.English).String(string(v.Gender)),
				formatSupportedEngines(v.SupportedEngines)),
		}
		switch v.Gender {
		case types.GenderFemale:
			voice.Gender = "female"
		case types.GenderMale:
			voice.Gender = "male"
		}
		voices = append(voices, voice)
	}

	log.Debug().Int("count", len(voices)).Msg("Listed Polly voices")
	return voices, nil
}

// Synthesize generates audio for one segment's text. PCM output is the
// default so playback gets raw samples without transcoding.
func (p *PollyProvider) Synthesize(ctx context.Context, text string, options Options) (io.ReadCloser, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	voiceID := options.Voice
	if voiceID == "" {
		voiceID = "Joanna"
	}

	// Polly has no WAV output; the default path requests raw PCM and wraps
	// it in a RIFF header so downstream decoding is uniform.
	var format types.OutputFormat
	wrapWAV := false
	switch strings.ToLower(options.Format) {
	case "", "wav":
		format = types.OutputFormatPcm
		wrapWAV = true
	case "pcm":
		format = types.OutputFormatPcm
	case "mp3":
		format = types.OutputFormatMp3
	case "ogg":
		format = types.OutputFormatOggVorbis
	default:
		return nil, fmt.Errorf("unsupported audio format: %s", options.Format)
	}

	engine := types.EngineNeural
	if options.Engine != "" {
		switch strings.ToLower(options.Engine) {
		case "standard":
			engine = types.EngineStandard
		case "neural":
			engine = types.EngineNeural
		case "long-form":
			engine = types.EngineLongForm
		case "generative":
			engine = types.EngineGenerative
		default:
			log.Warn().Str("engine", options.Engine).Msg("Unknown Polly engine, using neural")
		}
	}

	input := &polly.SynthesizeSpeechInput{
		Text:         aws.String(text),
		VoiceId:      types.VoiceId(voiceID),
		OutputFormat: format,
		Engine:       engine,
		TextType:     types.TextTypeText,
	}
	if isSSML(text) {
		input.TextType = types.TextTypeSsml
	}
	sampleRate := options.SampleRate
	if sampleRate == "" && format == types.OutputFormatPcm {
		sampleRate = "16000" // highest rate Polly supports for pcm
	}
	if sampleRate != "" {
		input.SampleRate = aws.String(sampleRate)
	}

	log.Debug().
		Str("voice_id", voiceID).
		Str("output_format", string(format)).
		Str("engine", string(engine)).
		Msg("Making Polly synthesis request")

	result, err := p.client.SynthesizeSpeech(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}

	if wrapWAV {
		defer result.AudioStream.Close()
		pcm, err := io.ReadAll(result.AudioStream)
		if err != nil {
			return nil, fmt.Errorf("failed to read audio stream: %w", err)
		}
		rate, err := strconv.Atoi(sampleRate)
		if err != nil {
			return nil, fmt.Errorf("invalid sample rate %q: %w", sampleRate, err)
		}
		return io.NopCloser(bytes.NewReader(wrapPCMInWAV(pcm, rate))), nil
	}
	return result.AudioStream, nil
}

// wrapPCMInWAV prepends a RIFF/WAVE header to mono 16-bit PCM.
func wrapPCMInWAV(pcm []byte, sampleRate int) []byte {
	var buf bytes.Buffer
	write := func(v any) { binary.Write(&buf, binary.LittleEndian, v) }

	buf.WriteString("RIFF")
	write(uint32(36 + len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	write(uint32(16))
	write(uint16(1)) // PCM
	write(uint16(1)) // mono
	write(uint32(sampleRate))
	write(uint32(sampleRate * 2)) // byte rate
	write(uint16(2))              // block align
	write(uint16(16))             // bits per sample

	buf.WriteString("data")
	write(uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}

// IsAvailable checks that the credential chain can reach Polly.
func (p *PollyProvider) IsAvailable(ctx context.Context) bool {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := p.client.DescribeVoices(checkCtx, &polly.DescribeVoicesInput{})
	return err == nil
}

func formatSupportedEngines(engines []types.Engine) string {
	if len(engines) == 0 {
		return "unknown"
	}
	names := make([]string, len(engines))
	for i, engine := range engines {
		names[i] = string(engine)
	}
	return strings.Join(names, ", ")
}
