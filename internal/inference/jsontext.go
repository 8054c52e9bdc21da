package inference

import (
	"encoding/json"
	"strings"
)

// StripCodeFences removes a surrounding ```json ... ``` (or plain ```) fence
// that models sometimes wrap JSON output in.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// drop the language tag line ("json", "JSON", ...)
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// FindJSONObject locates a JSON object embedded in free text: the span from
// the first '{' to the last '}' that parses as an object. Returns false when
// no such object exists.
func FindJSONObject(text string) (json.RawMessage, bool) {
	s := StripCodeFences(text)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	candidate := s[start : end+1]
	var m map[string]any
	if err := json.Unmarshal([]byte(candidate), &m); err == nil {
		return json.RawMessage(candidate), true
	}
	// Greedy span failed; try narrowing from the right so trailing prose
	// after the object does not break the parse.
	for end = strings.LastIndex(s[:end], "}"); end > start; end = strings.LastIndex(s[:end], "}") {
		candidate = s[start : end+1]
		if err := json.Unmarshal([]byte(candidate), &m); err == nil {
			return json.RawMessage(candidate), true
		}
	}
	return nil, false
}
