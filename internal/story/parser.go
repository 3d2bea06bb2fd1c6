package story

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
)

// Completer performs one non-streaming text completion. *Generator
// satisfies it.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Parser converts a complete story text into a ParsedStory via one remote
// structuring call. It is single-shot, not streaming.
type Parser struct {
	llm Completer
}

// NewParser creates a segment parser backed by the given completer.
func NewParser(llm Completer) *Parser {
	return &Parser{llm: llm}
}

const parseSystemPrompt = `You are a structured data extraction specialist. You must output only valid JSON that matches the requested schema. No explanations, no markdown, no extra keys.`

const parsePromptTemplate = `Split the following story into an ordered list of segments. Each segment is one of:
- "narration": descriptive storytelling text
- "dialogue": one character's spoken line; include the speaker's name as "character"
- "action": a short physical beat or scene transition

Schema:
{"segments": [{"type": "narration|dialogue|action", "text": "...", "character": "name (dialogue only)", "emotion": "optional"}], "characters": [{"name": "...", "appearances": 0}]}

Story:
`

// rawStory mirrors the upstream response shape before validation.
type rawStory struct {
	Segments []struct {
		Type      string `json:"type"`
		Text      string `json:"text"`
		Character string `json:"character"`
		Emotion   string `json:"emotion"`
	} `json:"segments"`
	Characters []struct {
		Name        string `json:"name"`
		Appearances int    `json:"appearances"`
	} `json:"characters"`
}

// Parse structures fullText into segments and a character roster. Malformed
// segments are dropped silently; the parse only fails outright when no
// structured payload can be located or no valid segment survives.
func (p *Parser) Parse(ctx context.Context, fullText string) (*ParsedStory, error) {
	response, err := p.llm.Complete(ctx, parseSystemPrompt, parsePromptTemplate+fullText)
	if err != nil {
		return nil, &ParseError{Reason: "structuring call failed", Err: err}
	}

	return p.parseResponse(response)
}

func (p *Parser) parseResponse(response string) (*ParsedStory, error) {
	payload, err := extractJSONPayload(response)
	if err != nil {
		return nil, &ParseError{Reason: "no structured payload in response", Err: err}
	}

	var raw rawStory
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, &ParseError{Reason: "payload is not valid JSON", Err: err}
	}

	segments := make([]Segment, 0, len(raw.Segments))
	dropped := 0
	for _, rs := range raw.Segments {
		seg, ok := validateSegment(rs.Type, rs.Text, rs.Character, rs.Emotion)
		if !ok {
			dropped++
			continue
		}
		segments = append(segments, seg)
	}
	if dropped > 0 {
		log.Debug().Int("dropped", dropped).Msg("Dropped malformed story segments")
	}

	if len(segments) == 0 {
		return nil, &ParseError{Reason: "response contained no valid segments"}
	}

	parsed := &ParsedStory{Segments: segments}
	parsed.Characters = buildRoster(segments, raw)

	log.Debug().
		Int("segments", len(segments)).
		Int("characters", len(parsed.Characters)).
		Msg("Story parsed")

	return parsed, nil
}

// validateSegment accepts only known segment types with non-empty trimmed
// text. Character names are kept for dialogue only and cleared otherwise,
// even if the upstream response set one.
func validateSegment(segType, text, character, emotion string) (Segment, bool) {
	t := SegmentType(strings.ToLower(strings.TrimSpace(segType)))
	if !KnownSegmentType(t) {
		return Segment{}, false
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Segment{}, false
	}

	seg := Segment{Type: t, Text: trimmed, Emotion: strings.TrimSpace(emotion)}
	if t == SegmentDialogue {
		seg.Character = strings.TrimSpace(character)
	}
	return seg, true
}

// buildRoster produces the character roster. Appearance counts are always
// recomputed from dialogue segments; an upstream roster contributes name
// ordering only. Speaking characters missing from the upstream roster are
// appended in first-appearance order.
func buildRoster(segments []Segment, raw rawStory) []CharacterCount {
	counts := make(map[string]int)
	var order []string
	for _, seg := range segments {
		if seg.Type != SegmentDialogue || seg.Character == "" {
			continue
		}
		if _, seen := counts[seg.Character]; !seen {
			order = append(order, seg.Character)
		}
		counts[seg.Character]++
	}

	var roster []CharacterCount
	listed := make(map[string]bool)
	for _, rc := range raw.Characters {
		name := strings.TrimSpace(rc.Name)
		if name == "" || listed[name] {
			continue
		}
		n, speaks := counts[name]
		if !speaks {
			continue
		}
		listed[name] = true
		roster = append(roster, CharacterCount{Name: name, Appearances: n})
	}
	for _, name := range order {
		if listed[name] {
			continue
		}
		roster = append(roster, CharacterCount{Name: name, Appearances: counts[name]})
	}
	return roster
}
