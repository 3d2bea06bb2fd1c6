package story

import (
	"bufio"
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
	DefaultTextBaseURL = "https://api.openai.com/v1"
	chatEndpoint       = "/chat/completions"
	streamDoneMarker   = "[DONE]"

	// DefaultGenerationTimeout bounds one full story generation. The stream
	// fails with a GenerationError wrapping context.DeadlineExceeded instead
	// of hanging.
	DefaultGenerationTimeout = 90 * time.Second
)

// Generator wraps a remote chat-completion endpoint and exposes story text
// as a cancellable stream of fragments.
type Generator struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	timeout    time.Duration
}

// GeneratorOption is a functional option for configuring a Generator.
type GeneratorOption func(*Generator)

// WithBaseURL overrides the chat-completion endpoint base URL.
func WithBaseURL(baseURL string) GeneratorOption {
	return func(g *Generator) {
		g.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithModel sets the text generation model.
func WithModel(model string) GeneratorOption {
	return func(g *Generator) {
		g.model = model
	}
}

// WithGenerationTimeout sets the upper bound for one generation.
func WithGenerationTimeout(d time.Duration) GeneratorOption {
	return func(g *Generator) {
		g.timeout = d
	}
}

// NewGenerator creates a story text generator.
func NewGenerator(apiKey string, opts ...GeneratorOption) *Generator {
	g := &Generator{
		apiKey:  apiKey,
		baseURL: DefaultTextBaseURL,
		model:   "gpt-4o-mini",
		timeout: DefaultGenerationTimeout,
		httpClient: &http.Client{
			// Per-request deadlines come from the stream context; the client
			// itself must not cut a healthy stream short.
			Timeout: 0,
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream,omitempty"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Stream starts a story generation and returns a channel of text fragments
// in delivery order plus an error channel carrying at most one terminal
// error. The fragment channel closes when the upstream stream ends or the
// context is cancelled; fragment boundaries carry no semantic meaning and
// may split mid-word. Concatenating all fragments yields the full story.
func (g *Generator) Stream(ctx context.Context, opts Options) (<-chan string, <-chan error) {
	fragments := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(fragments)
		defer close(errs)

		ctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		resp, err := g.post(ctx, chatRequest{
			Model: g.model,
			Messages: []chatMessage{
				{Role: "system", Content: storySystemPrompt},
				{Role: "user", Content: buildStoryPrompt(opts)},
			},
			Stream: true,
		})
		if err != nil {
			errs <- &GenerationError{Message: err.Error(), Err: err}
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			errs <- &GenerationError{
				Status:  resp.StatusCode,
				Message: strings.TrimSpace(string(body)),
			}
			return
		}

		if err := g.scanStream(ctx, resp.Body, fragments); err != nil {
			errs <- err
		}
	}()

	return fragments, errs
}

// scanStream reads SSE data lines and forwards content deltas. Malformed
// data lines are skipped, not fatal.
func (g *Generator) scanStream(ctx context.Context, body io.Reader, fragments chan<- string) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == streamDoneMarker {
			return nil
		}

		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			log.Debug().Err(err).Msg("Skipping malformed stream fragment")
			continue
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}

		select {
		case fragments <- chunk.Choices[0].Delta.Content:
		case <-ctx.Done():
			return &GenerationError{Message: ctx.Err().Error(), Err: ctx.Err()}
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return &GenerationError{Message: ctx.Err().Error(), Err: ctx.Err()}
		}
		return &GenerationError{Message: err.Error(), Err: err}
	}
	return nil
}

// Complete performs one non-streaming round trip and returns the full
// response text. The segmentation stage uses it for its structuring call.
func (g *Generator) Complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.post(ctx, chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", &GenerationError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &GenerationError{
			Status:  resp.StatusCode,
			Message: strings.TrimSpace(string(body)),
		}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &GenerationError{Message: fmt.Sprintf("failed to decode response: %v", err), Err: err}
	}
	if len(parsed.Choices) == 0 {
		return "", &GenerationError{Message: "response contained no choices"}
	}
	return parsed.Choices[0].Message.Content, nil
}

func (g *Generator) post(ctx context.Context, body chatRequest) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+chatEndpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	log.Debug().
		Str("endpoint", g.baseURL+chatEndpoint).
		Str("model", body.Model).
		Bool("stream", body.Stream).
		Msg("Making text generation request")

	return g.httpClient.Do(req)
}

const storySystemPrompt = `You are a storyteller. Write an engaging short story following the reader's preferences. Use clear paragraphs, quoted dialogue with named speakers, and occasional action beats.`

var lengthWords = map[Length]string{
	LengthShort:  "around 300 words",
	LengthMedium: "around 800 words",
	LengthLong:   "around 1500 words",
}

// buildStoryPrompt renders Options into the generation prompt.
func buildStoryPrompt(opts Options) string {
	var b strings.Builder

	length := lengthWords[opts.Length]
	if length == "" {
		length = lengthWords[LengthMedium]
	}

	fmt.Fprintf(&b, "Write a %s %s story with a %s tone.\n", length, opts.Genre, opts.Tone)
	if opts.Protagonist != "" {
		fmt.Fprintf(&b, "The protagonist is %s.\n", opts.Protagonist)
	}
	if len(opts.Themes) > 0 {
		fmt.Fprintf(&b, "Themes to weave in: %s.\n", strings.Join(opts.Themes, ", "))
	}
	fmt.Fprintf(&b, "Romance intensity: %d of 3. Magic and wonder: %d of 3.\n", opts.SpiceLevel, opts.MagicLevel)

	return b.String()
}
