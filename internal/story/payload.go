package story

import (
	"errors"
	"strings"
)

var errNoPayload = errors.New("no structured payload found in response")

// extractJSONPayload locates the structured payload inside a free-form
// model response. A fenced ```json block wins when present; otherwise the
// first balanced JSON object or array is returned.
func extractJSONPayload(s string) (string, error) {
	if fenced, ok := extractFencedBlock(s); ok {
		return fenced, nil
	}

	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return "", errNoPayload
	}

	payload := balancedJSON(s[start:])
	if payload == "" {
		return "", errNoPayload
	}
	return payload, nil
}

func extractFencedBlock(s string) (string, bool) {
	for _, fence := range []string{"```json", "```"} {
		open := strings.Index(s, fence)
		if open == -1 {
			continue
		}
		rest := s[open+len(fence):]
		closing := strings.Index(rest, "```")
		if closing == -1 {
			continue
		}
		block := strings.TrimSpace(rest[:closing])
		if block == "" || (block[0] != '{' && block[0] != '[') {
			continue
		}
		return block, true
	}
	return "", false
}

// balancedJSON returns the shortest prefix of s that forms a balanced JSON
// object or array, tracking string literals and escapes so braces inside
// strings do not count.
func balancedJSON(s string) string {
	if s == "" {
		return ""
	}

	open := s[0]
	var closing byte
	switch open {
	case '{':
		closing = '}'
	case '[':
		closing = ']'
	default:
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch c {
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[:i+1])
			}
		}
	}
	return ""
}
