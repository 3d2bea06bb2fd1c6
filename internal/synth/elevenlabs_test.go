package synth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElevenLabsProvider_ListVoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("xi-api-key"))
		w.Write([]byte(`{"voices": [
			{"voice_id": "abc", "name": "Rachel", "labels": {"gender": "female"}, "description": "Calm narration"},
			{"voice_id": "def", "name": "Clyde", "labels": {"gender": "male"}}
		]}`))
	}))
	defer server.Close()

	p := NewElevenLabsProvider("test-key")
	p.baseURL = server.URL

	voices, err := p.ListVoices(context.Background())
	require.NoError(t, err)
	require.Len(t, voices, 2)
	assert.Equal(t, Voice{ID: "abc", Name: "Rachel", Gender: "female", Description: "Calm narration"}, voices[0])
}

func TestElevenLabsProvider_Synthesize(t *testing.T) {
	t.Run("requires a voice id", func(t *testing.T) {
		p := NewElevenLabsProvider("test-key")
		_, err := p.Synthesize(context.Background(), "Hello", Options{})
		assert.Error(t, err)
	})

	t.Run("posts to the voice endpoint and wraps pcm in wav", func(t *testing.T) {
		var outputFormat string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.URL.Path, "/text-to-speech/abc")
			outputFormat = r.URL.Query().Get("output_format")
			w.Write([]byte("audio"))
		}))
		defer server.Close()

		p := NewElevenLabsProvider("test-key")
		p.baseURL = server.URL

		stream, err := p.Synthesize(context.Background(), "Hello", Options{Voice: "abc"})
		require.NoError(t, err)
		defer stream.Close()

		// ElevenLabs defines pcm_*/mp3_*/ulaw_* output formats only; generic
		// names like "wav" must never reach the API.
		assert.Equal(t, "pcm_24000", outputFormat)

		data, _ := io.ReadAll(stream)
		assert.True(t, strings.HasPrefix(string(data), "RIFF"))
		assert.True(t, strings.HasSuffix(string(data), "audio"))
	})

	t.Run("default streamer options produce a defined output format", func(t *testing.T) {
		var outputFormat string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			outputFormat = r.URL.Query().Get("output_format")
			w.Write(make([]byte, 4800))
		}))
		defer server.Close()

		p := NewElevenLabsProvider("test-key")
		p.baseURL = server.URL

		opts := NewStreamer(p).options
		opts.Voice = "abc"
		stream, err := p.Synthesize(context.Background(), "Hello", opts)
		require.NoError(t, err)
		defer stream.Close()

		assert.NotEqual(t, "wav", outputFormat)
		assert.True(t, strings.HasPrefix(outputFormat, "pcm_"))
	})

	t.Run("explicit pcm passes raw samples through", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "pcm_24000", r.URL.Query().Get("output_format"))
			w.Write([]byte("raw samples"))
		}))
		defer server.Close()

		p := NewElevenLabsProvider("test-key")
		p.baseURL = server.URL

		stream, err := p.Synthesize(context.Background(), "Hello", Options{Voice: "abc", Format: "pcm"})
		require.NoError(t, err)
		defer stream.Close()

		data, _ := io.ReadAll(stream)
		assert.Equal(t, "raw samples", string(data))
	})

	t.Run("maps mp3 to a bitrate variant", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "mp3_44100_128", r.URL.Query().Get("output_format"))
			w.Write([]byte("mp3 frames"))
		}))
		defer server.Close()

		p := NewElevenLabsProvider("test-key")
		p.baseURL = server.URL

		stream, err := p.Synthesize(context.Background(), "Hello", Options{Voice: "abc", Format: "mp3"})
		require.NoError(t, err)
		defer stream.Close()

		data, _ := io.ReadAll(stream)
		assert.Equal(t, "mp3 frames", string(data))
	})

	t.Run("rejects unsupported formats", func(t *testing.T) {
		p := NewElevenLabsProvider("test-key")
		_, err := p.Synthesize(context.Background(), "Hello", Options{Voice: "abc", Format: "flac"})
		assert.Error(t, err)
	})

	t.Run("surfaces API errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte("bad voice"))
		}))
		defer server.Close()

		p := NewElevenLabsProvider("test-key")
		p.baseURL = server.URL

		_, err := p.Synthesize(context.Background(), "Hello", Options{Voice: "abc"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ElevenLabs API error")
	})
}

func TestElevenLabsProvider_IsAvailable(t *testing.T) {
	assert.False(t, NewElevenLabsProvider("").IsAvailable(context.Background()))
	assert.True(t, NewElevenLabsProvider("key").IsAvailable(context.Background()))
}
