// Package story generates story text from user preferences and structures
// it into an ordered list of typed narration segments.
package story

import "strings"

// Length buckets for generated stories.
type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthLong   Length = "long"
)

// Options holds the user-chosen generation parameters. It is immutable
// input to a single generation request.
type Options struct {
	Genre       string   `json:"genre"`
	Tone        string   `json:"tone"`
	Length      Length   `json:"length"`
	Themes      []string `json:"themes,omitempty"`
	Protagonist string   `json:"protagonist,omitempty"`
	SpiceLevel  int      `json:"spice_level"` // 0-3
	MagicLevel  int      `json:"magic_level"` // 0-3
}

// SegmentType classifies one unit of story text.
type SegmentType string

const (
	SegmentNarration SegmentType = "narration"
	SegmentDialogue  SegmentType = "dialogue"
	SegmentAction    SegmentType = "action"
)

// KnownSegmentType reports whether t is one of the three segment kinds.
func KnownSegmentType(t SegmentType) bool {
	switch t {
	case SegmentNarration, SegmentDialogue, SegmentAction:
		return true
	}
	return false
}

// Segment is one contiguous unit of story text. Segment order is the
// playback order. Only dialogue segments carry a character name.
type Segment struct {
	Type      SegmentType `json:"type"`
	Text      string      `json:"text"`
	Character string      `json:"character,omitempty"`
	Emotion   string      `json:"emotion,omitempty"`
}

// CharacterCount is one roster entry: a speaking character and how many
// dialogue segments are attributed to it.
type CharacterCount struct {
	Name        string `json:"name"`
	Appearances int    `json:"appearances"`
}

// ParsedStory is the structured form of a generated story. Every character
// referenced by a dialogue segment has a matching roster entry, and the
// roster counts equal the number of dialogue segments per name.
type ParsedStory struct {
	Segments   []Segment        `json:"segments"`
	Characters []CharacterCount `json:"characters"`
}

// CharacterNames returns the roster names in roster order.
func (p *ParsedStory) CharacterNames() []string {
	names := make([]string, 0, len(p.Characters))
	for _, c := range p.Characters {
		names = append(names, c.Name)
	}
	return names
}

// DialogueCount returns the number of dialogue segments attributed to name
// (case-sensitive exact match on the trimmed name).
func (p *ParsedStory) DialogueCount(name string) int {
	n := 0
	for _, seg := range p.Segments {
		if seg.Type == SegmentDialogue && strings.TrimSpace(seg.Character) == name {
			n++
		}
	}
	return n
}
