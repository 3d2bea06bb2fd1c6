package synth

import (
	"context"
	"io"
	"testing"

	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// mockGCPClient implements GCPClient for tests.
type mockGCPClient struct {
	listErr     error
	synthesized *texttospeechpb.SynthesizeSpeechRequest
}

func (m *mockGCPClient) ListVoices(ctx context.Context, req *texttospeechpb.ListVoicesRequest, opts ...gax.CallOption) (*texttospeechpb.ListVoicesResponse, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return &texttospeechpb.ListVoicesResponse{
		Voices: []*texttospeechpb.Voice{
			{
				Name:          "en-US-Neural2-D",
				LanguageCodes: []string{"en-US"},
				SsmlGender:    texttospeechpb.SsmlVoiceGender_MALE,
			},
			{
				Name:          "en-US-Wavenet-F",
				LanguageCodes: []string{"en-US"},
				SsmlGender:    texttospeechpb.SsmlVoiceGender_FEMALE,
			},
		},
	}, nil
}

func (m *mockGCPClient) SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error) {
	m.synthesized = req
	return &texttospeechpb.SynthesizeSpeechResponse{AudioContent: []byte("linear16 audio")}, nil
}

func TestGCPProvider_ListVoices(t *testing.T) {
	p := &GCPProvider{client: &mockGCPClient{}, language: "en-US"}

	voices, err := p.ListVoices(context.Background())
	require.NoError(t, err)
	require.Len(t, voices, 2)

	assert.Equal(t, "en-US-Neural2-D", voices[0].ID)
	assert.Equal(t, "male", voices[0].Gender)
	assert.Contains(t, voices[0].Description, "Neural2")
	assert.Contains(t, voices[1].Description, "WaveNet")
}

func TestGCPProvider_Synthesize(t *testing.T) {
	t.Run("defaults to linear16 and infers language from voice", func(t *testing.T) {
		client := &mockGCPClient{}
		p := &GCPProvider{client: client, language: "en-US"}

		stream, err := p.Synthesize(context.Background(), "Hello", Options{Voice: "en-GB-Neural2-A"})
		require.NoError(t, err)
		defer stream.Close()

		assert.Equal(t, texttospeechpb.AudioEncoding_LINEAR16, client.synthesized.AudioConfig.AudioEncoding)
		assert.Equal(t, "en-GB", client.synthesized.Voice.LanguageCode)

		data, _ := io.ReadAll(stream)
		assert.Equal(t, "linear16 audio", string(data))
	})

	t.Run("passes SSML through", func(t *testing.T) {
		client := &mockGCPClient{}
		p := &GCPProvider{client: client, language: "en-US"}

		_, err := p.Synthesize(context.Background(), "<speak>Hi</speak>", Options{Voice: "en-US-Neural2-D"})
		require.NoError(t, err)
		assert.NotNil(t, client.synthesized.Input.GetSsml())
	})
}

func TestGCPProvider_IsAvailable(t *testing.T) {
	ok := &GCPProvider{client: &mockGCPClient{}, language: "en-US"}
	assert.True(t, ok.IsAvailable(context.Background()))

	unauthenticated := &GCPProvider{
		client:   &mockGCPClient{listErr: status.Error(codes.Unauthenticated, "bad credentials")},
		language: "en-US",
	}
	assert.False(t, unauthenticated.IsAvailable(context.Background()))

	var nilClient *GCPProvider = &GCPProvider{language: "en-US"}
	assert.False(t, nilClient.IsAvailable(context.Background()))
}
